package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"velour/internal/booking"
	"velour/internal/slots"
	"velour/internal/timewin"
)

// StylistResponse is a catalog entry for clients picking a stylist.
type StylistResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// handleListStylists returns the active stylists.
// GET /api/v1/stylists
func (s *Server) handleListStylists(w http.ResponseWriter, r *http.Request) {
	stylists, err := s.store.ListActiveStylists(r.Context())
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	out := make([]StylistResponse, 0, len(stylists))
	for _, st := range stylists {
		out = append(out, StylistResponse{ID: st.ID, Name: st.Name, Phone: st.Phone})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stylists": out})
}

// handleListServices returns the bookable service catalog.
// GET /api/v1/services
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.store.ListActiveServices(r.Context())
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// handleSlots returns the slot grid for a stylist, date and service set.
// GET /api/v1/stylists/{stylistID}/slots?date=YYYY-MM-DD&service_ids=1,2&granularity=15&available_only=true
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
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
	serviceIDs, err := parseIDList(r.URL.Query().Get("service_ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service_ids; expected comma-separated integers")
		return
	}
	if len(serviceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "service_ids is required")
		return
	}
	granularity := 0
	if raw := r.URL.Query().Get("granularity"); raw != "" {
		granularity, err = strconv.Atoi(raw)
		if err != nil || granularity <= 0 {
			writeError(w, http.StatusBadRequest, "invalid granularity; expected positive minutes")
			return
		}
	}

	grid, err := s.booking.Slots(r.Context(), booking.SlotsRequest{
		StylistID:   stylistID,
		Date:        date,
		ServiceIDs:  serviceIDs,
		Granularity: granularity,
	})
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	if r.URL.Query().Get("available_only") == "true" {
		grid = slots.Available(grid)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.String(),
		"slots": slots.ToSlotInfo(grid),
	})
}

// BookRequest is the request body for POST /api/v1/appointments.
type BookRequest struct {
	StylistID   int64   `json:"stylist_id"`
	Date        string  `json:"date"`  // Format: YYYY-MM-DD
	Start       string  `json:"start"` // Format: HH:MM
	ServiceIDs  []int64 `json:"service_ids"`
	ClientName  string  `json:"client_name"`
	ClientPhone string  `json:"client_phone,omitempty"`
	Comment     string  `json:"comment,omitempty"`
}

// handleBook commits a new appointment.
// POST /api/v1/appointments
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ClientName == "" {
		writeError(w, http.StatusBadRequest, "client_name is required")
		return
	}
	if len(req.ServiceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "service_ids is required")
		return
	}
	date, err := timewin.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}
	start, err := timewin.ParseClock(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected HH:MM")
		return
	}

	appt, err := s.booking.Book(r.Context(), booking.CreateRequest{
		StylistID:   req.StylistID,
		Date:        date,
		Start:       start,
		ServiceIDs:  req.ServiceIDs,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Comment:     req.Comment,
	})
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// handleGetAppointment returns one appointment.
// GET /api/v1/appointments/{id}
func (s *Server) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := s.booking.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// RescheduleRequest is the request body for a reschedule.
type RescheduleRequest struct {
	Date  string `json:"date"`  // Format: YYYY-MM-DD
	Start string `json:"start"` // Format: HH:MM
}

// handleReschedule moves an appointment to a new date and time.
// POST /api/v1/appointments/{id}/reschedule
func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := timewin.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}
	start, err := timewin.ParseClock(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected HH:MM")
		return
	}

	appt, err := s.booking.Reschedule(r.Context(), chi.URLParam(r, "id"), date, start)
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// handleConfirm moves a pending appointment to confirmed.
// POST /api/v1/appointments/{id}/confirm
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := s.booking.Confirm(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleCancel cancels an appointment, freeing its slot. Idempotent.
// DELETE /api/v1/appointments/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.booking.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
