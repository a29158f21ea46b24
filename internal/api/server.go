// Package api exposes the booking engine over HTTP: slot queries, appointment
// commits, blocked-period administration and day sheet export.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"velour/internal/booking"
	"velour/internal/export"
	"velour/internal/model"
	"velour/internal/schedule"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

// Store is the persistence the API reads directly, next to the booking
// service which owns appointment writes.
type Store interface {
	ListActiveStylists(ctx context.Context) ([]model.Stylist, error)
	ListActiveServices(ctx context.Context) ([]model.Service, error)
	AddBlockedPeriod(ctx context.Context, b schedule.BlockedPeriod) (int64, error)
	DeleteBlockedPeriod(ctx context.Context, id int64) error
	ListBlocked(ctx context.Context, stylistID int64, date timewin.Date) ([]schedule.BlockedPeriod, error)
}

// Server wires the HTTP handlers.
type Server struct {
	booking *booking.Service
	store   Store
	sheets  *export.DaySheet
	log     *zerolog.Logger
	limiter *clientLimiter
}

// Options tunes the public rate limit; zero values disable it.
type Options struct {
	RateLimitPerSec float64
	RateLimitBurst  int
}

func NewServer(bk *booking.Service, store Store, sheets *export.DaySheet, log *zerolog.Logger, opts Options) *Server {
	s := &Server{
		booking: bk,
		store:   store,
		sheets:  sheets,
		log:     log,
	}
	if opts.RateLimitPerSec > 0 {
		s.limiter = newClientLimiter(opts.RateLimitPerSec, opts.RateLimitBurst)
	}
	return s
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stylists", s.handleListStylists)
		r.Get("/services", s.handleListServices)
		r.Get("/stylists/{stylistID}/slots", s.handleSlots)

		r.Post("/appointments", s.handleBook)
		r.Get("/appointments/{id}", s.handleGetAppointment)
		r.Post("/appointments/{id}/reschedule", s.handleReschedule)
		r.Post("/appointments/{id}/confirm", s.handleConfirm)
		r.Delete("/appointments/{id}", s.handleCancel)

		r.Get("/stylists/{stylistID}/blocked", s.handleListBlocked)
		r.Post("/blocked", s.handleAddBlocked)
		r.Delete("/blocked/{id}", s.handleDeleteBlocked)

		r.Get("/export/daysheet", s.handleDaySheet)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeBookingError maps engine sentinels onto HTTP statuses.
func (s *Server) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrStylistNotFound),
		errors.Is(err, booking.ErrServiceNotFound),
		errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrClosed),
		errors.Is(err, booking.ErrSlotNoLongerAvailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrDateOutOfRange),
		errors.Is(err, timeline.ErrInvalidServiceConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, booking.ErrLockTimeout):
		writeError(w, http.StatusServiceUnavailable, "booking is busy, try again")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
