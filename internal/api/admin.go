package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"velour/internal/schedule"
	"velour/internal/timewin"
)

// BlockedRequest is the request body for POST /api/v1/blocked. A full-day
// block omits start and end; a partial block requires both.
type BlockedRequest struct {
	StylistID int64  `json:"stylist_id"`
	Date      string `json:"date"` // Format: YYYY-MM-DD
	FullDay   bool   `json:"full_day"`
	Start     string `json:"start,omitempty"` // Format: HH:MM
	End       string `json:"end,omitempty"`   // Format: HH:MM
	Reason    string `json:"reason,omitempty"`
}

// handleAddBlocked records an availability exception.
// POST /api/v1/blocked
func (s *Server) handleAddBlocked(w http.ResponseWriter, r *http.Request) {
	var req BlockedRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := timewin.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	block := schedule.BlockedPeriod{
		StylistID: req.StylistID,
		Date:      date,
		FullDay:   req.FullDay,
		Reason:    req.Reason,
	}
	if req.FullDay {
		// Mixing the full-day flag with clock bounds is ambiguous input
		// and is rejected here, before the flag can mask the bounds.
		if req.Start != "" || req.End != "" {
			writeError(w, http.StatusBadRequest, "full-day block must not carry start/end")
			return
		}
	} else {
		start, err := timewin.ParseClock(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start; expected HH:MM")
			return
		}
		end, err := timewin.ParseClock(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end; expected HH:MM")
			return
		}
		block.Window = timewin.Window{Start: start, End: end}
	}

	id, err := s.store.AddBlockedPeriod(r.Context(), block)
	if err != nil {
		if errors.Is(err, schedule.ErrAmbiguousBlock) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Overlap and duplicate full-day violations come back as plain
		// validation errors.
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// handleDeleteBlocked removes an availability exception.
// DELETE /api/v1/blocked/{id}
func (s *Server) handleDeleteBlocked(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid blocked period id")
		return
	}
	if err := s.store.DeleteBlockedPeriod(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "blocked period not found")
			return
		}
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleListBlocked returns a stylist's exceptions for one date.
// GET /api/v1/stylists/{stylistID}/blocked?date=YYYY-MM-DD
func (s *Server) handleListBlocked(w http.ResponseWriter, r *http.Request) {
	stylistID, err := strconv.ParseInt(chi.URLParam(r, "stylistID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stylist id")
		return
	}
	date, err := timewin.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	blocks, err := s.store.ListBlocked(r.Context(), stylistID, date)
	if err != nil {
		s.writeBookingError(w, err)
		return
	}

	type blockInfo struct {
		FullDay bool   `json:"full_day"`
		Start   string `json:"start,omitempty"`
		End     string `json:"end,omitempty"`
		Reason  string `json:"reason,omitempty"`
	}
	out := make([]blockInfo, 0, len(blocks))
	for _, b := range blocks {
		info := blockInfo{FullDay: b.FullDay, Reason: b.Reason}
		if !b.FullDay {
			info.Start = b.Window.Start.String()
			info.End = b.Window.End.String()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date.String(), "blocked": out})
}

// handleDaySheet streams the date's day sheet as an xlsx workbook.
// GET /api/v1/export/daysheet?date=YYYY-MM-DD
func (s *Server) handleDaySheet(w http.ResponseWriter, r *http.Request) {
	date, err := timewin.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=daysheet-%s.xlsx", date))
	if err := s.sheets.Write(r.Context(), date, w); err != nil {
		s.log.Error().Err(err).Str("date", date.String()).Msg("day sheet export failed")
	}
}
