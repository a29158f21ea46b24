// Package booking commits appointments against the scheduling engine.
// Slot queries are pure reads with unbounded parallelism; commits are
// serialized per stylist-day and re-validated against the freshest snapshot
// before persisting.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"velour/internal/events"
	"velour/internal/metrics"
	"velour/internal/model"
	"velour/internal/schedule"
	"velour/internal/slots"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

// Store is the persistence boundary the booking service talks to.
// Implementations return the package's sentinel errors for missing records.
type Store interface {
	GetStylist(ctx context.Context, id int64) (*model.Stylist, error)
	SalonHours(ctx context.Context) (schedule.Weekly, error)
	// GetServices returns active services in the order of ids.
	GetServices(ctx context.Context, ids []int64) ([]model.Service, error)
	ListBlocked(ctx context.Context, stylistID int64, date timewin.Date) ([]schedule.BlockedPeriod, error)
	// ListActiveAppointments returns non-canceled appointments for the
	// stylist and date.
	ListActiveAppointments(ctx context.Context, stylistID int64, date timewin.Date) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	CreateAppointment(ctx context.Context, appt *model.Appointment) error
	RescheduleAppointment(ctx context.Context, id string, date timewin.Date, start, end timewin.Clock) error
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
}

// Rules bounds how far ahead clients can book and how long a commit may wait
// for its lock.
type Rules struct {
	Granularity    int
	MinAdvance     time.Duration
	MaxAdvanceDays int
	LockTimeout    time.Duration
}

func (r Rules) withDefaults() Rules {
	if r.Granularity <= 0 {
		r.Granularity = slots.DefaultGranularity
	}
	if r.MaxAdvanceDays <= 0 {
		r.MaxAdvanceDays = 60
	}
	if r.LockTimeout <= 0 {
		r.LockTimeout = 3 * time.Second
	}
	return r
}

// Service is the booking façade: slot queries, commits, reschedules and
// cancellations.
type Service struct {
	store  Store
	locks  *LockMap
	shared *RedisLock // optional, nil for single-instance deployments
	bus    *events.Bus
	rules  Rules
	loc    *time.Location
	logger *zerolog.Logger
	now    func() time.Time
}

// New constructs the booking service. loc is the salon's business timezone.
func New(store Store, bus *events.Bus, rules Rules, loc *time.Location, logger *zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  store,
		locks:  NewLockMap(),
		bus:    bus,
		rules:  rules.withDefaults(),
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// UseSharedLock layers a cross-instance redis lock over the in-process one.
func (s *Service) UseSharedLock(lock *RedisLock) {
	s.shared = lock
}

// SlotsRequest is a slot grid query.
type SlotsRequest struct {
	StylistID   int64
	Date        timewin.Date
	ServiceIDs  []int64
	Granularity int
}

// CreateRequest is a booking commit.
type CreateRequest struct {
	StylistID   int64
	Date        timewin.Date
	Start       timewin.Clock
	ServiceIDs  []int64
	ClientName  string
	ClientPhone string
	Comment     string
}

// Slots computes the availability grid for a stylist and date. A closed day
// returns an empty grid and no error.
func (s *Service) Slots(ctx context.Context, req SlotsRequest) ([]slots.Slot, error) {
	day, _, err := s.loadDay(ctx, req.StylistID, req.Date, req.ServiceIDs, "")
	if err != nil {
		metrics.IncSlotQuery("error")
		return nil, err
	}
	if req.Granularity > 0 {
		day.Granularity = req.Granularity
	} else {
		day.Granularity = s.rules.Granularity
	}

	grid := slots.Generate(day)
	if len(grid) == 0 {
		metrics.IncSlotQuery("closed")
	} else {
		metrics.IncSlotQuery("ok")
	}
	return grid, nil
}

// Book validates and commits a new appointment. Re-validation runs inside
// the stylist-day critical section with a fresh appointment snapshot; losing
// a race surfaces ErrSlotNoLongerAvailable and the caller prompts the user
// to pick again.
func (s *Service) Book(ctx context.Context, req CreateRequest) (*model.Appointment, error) {
	if err := s.validateDate(req.Date, req.Start); err != nil {
		return nil, err
	}

	services, err := s.store.GetServices(ctx, req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	profiles := make([]timeline.Profile, len(services))
	lines := make([]model.AppointmentService, len(services))
	for i, svc := range services {
		profiles[i] = svc.Profile()
		lines[i] = model.AppointmentService{ServiceID: svc.ID, Name: svc.Name, Profile: svc.Profile()}
	}
	if err := timeline.ValidateProfiles(profiles); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, dayKey(req.StylistID, req.Date))
	if err != nil {
		return nil, err
	}

	appt, err := s.commitNew(ctx, req, lines, profiles)
	release()
	if err != nil {
		return nil, err
	}

	// Notification fan-out happens outside the critical section.
	metrics.IncBookingCreated(appt.Status)
	if pubErr := s.bus.PublishJSON(events.TypeAppointmentCreated, appt); pubErr != nil {
		s.logger.Error().Err(pubErr).Str("appointment_id", appt.ID).Msg("publish created event")
	}
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Int64("stylist_id", appt.StylistID).
		Str("date", appt.Date.String()).
		Str("start", appt.Start.String()).
		Msg("appointment booked")
	return appt, nil
}

func (s *Service) commitNew(ctx context.Context, req CreateRequest, lines []model.AppointmentService, profiles []timeline.Profile) (*model.Appointment, error) {
	day, _, err := s.loadDay(ctx, req.StylistID, req.Date, nil, "")
	if err != nil {
		return nil, err
	}
	day.Requested = profiles

	open, available, _ := slots.CheckStart(day, req.Start)
	if !open {
		return nil, ErrClosed
	}
	if !available {
		metrics.IncBookingConflict()
		return nil, ErrSlotNoLongerAvailable
	}

	now := s.now().In(s.loc)
	appt := &model.Appointment{
		ID:          uuid.NewString(),
		StylistID:   req.StylistID,
		Date:        req.Date,
		Start:       req.Start,
		End:         req.Start + timewin.Clock(timeline.TotalDuration(profiles)),
		Services:    lines,
		Status:      model.StatusPending,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Comment:     req.Comment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return appt, nil
}

// Reschedule frees the appointment's old occupancy and commits the new one
// inside one critical section. Both stylist-day pairs are locked in a fixed
// order so concurrent reschedules cannot deadlock.
func (s *Service) Reschedule(ctx context.Context, id string, date timewin.Date, start timewin.Clock) (*model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsActive() {
		return nil, fmt.Errorf("%w: appointment is canceled", ErrSlotNoLongerAvailable)
	}
	if err := s.validateDate(date, start); err != nil {
		return nil, err
	}

	release, err := s.lockOrdered(ctx,
		dayKey(appt.StylistID, appt.Date),
		dayKey(appt.StylistID, date),
	)
	if err != nil {
		return nil, err
	}

	moved, err := s.commitMove(ctx, appt, date, start)
	release()
	if err != nil {
		return nil, err
	}

	metrics.IncBookingRescheduled()
	if pubErr := s.bus.PublishJSON(events.TypeAppointmentRescheduled, moved); pubErr != nil {
		s.logger.Error().Err(pubErr).Str("appointment_id", moved.ID).Msg("publish rescheduled event")
	}
	return moved, nil
}

func (s *Service) commitMove(ctx context.Context, appt *model.Appointment, date timewin.Date, start timewin.Clock) (*model.Appointment, error) {
	profiles := appt.Profiles()

	// The moving appointment's own occupancy is excluded from the
	// snapshot: it is being freed as part of the same commit.
	day, _, err := s.loadDay(ctx, appt.StylistID, date, nil, appt.ID)
	if err != nil {
		return nil, err
	}
	day.Requested = profiles

	open, available, _ := slots.CheckStart(day, start)
	if !open {
		return nil, ErrClosed
	}
	if !available {
		metrics.IncBookingConflict()
		return nil, ErrSlotNoLongerAvailable
	}

	end := start + timewin.Clock(timeline.TotalDuration(profiles))
	if err := s.store.RescheduleAppointment(ctx, appt.ID, date, start, end); err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}

	moved := *appt
	moved.Date = date
	moved.Start = start
	moved.End = end
	moved.UpdatedAt = s.now().In(s.loc)
	return &moved, nil
}

// Get loads one appointment.
func (s *Service) Get(ctx context.Context, id string) (*model.Appointment, error) {
	return s.store.GetAppointment(ctx, id)
}

// Cancel transitions the appointment to canceled, freeing its occupancy.
// The row is never deleted.
func (s *Service) Cancel(ctx context.Context, id string) error {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if !appt.IsActive() {
		return nil // already canceled; idempotent
	}

	release, err := s.lock(ctx, dayKey(appt.StylistID, appt.Date))
	if err != nil {
		return err
	}
	err = s.store.UpdateAppointmentStatus(ctx, id, model.StatusCanceled)
	release()
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}

	metrics.IncBookingCanceled()
	appt.Status = model.StatusCanceled
	if pubErr := s.bus.PublishJSON(events.TypeAppointmentCanceled, appt); pubErr != nil {
		s.logger.Error().Err(pubErr).Str("appointment_id", id).Msg("publish canceled event")
	}
	return nil
}

// Confirm moves a pending appointment to confirmed.
func (s *Service) Confirm(ctx context.Context, id string) error {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if !appt.IsActive() {
		return fmt.Errorf("%w: appointment is canceled", ErrAppointmentNotFound)
	}
	if err := s.store.UpdateAppointmentStatus(ctx, id, model.StatusConfirmed); err != nil {
		return fmt.Errorf("confirm appointment: %w", err)
	}
	return nil
}

// loadDay assembles the engine input for one stylist-day. excludeID drops an
// appointment from the snapshot (used while that appointment is being moved).
func (s *Service) loadDay(ctx context.Context, stylistID int64, date timewin.Date, serviceIDs []int64, excludeID string) (slots.DayRequest, *model.Stylist, error) {
	stylist, err := s.store.GetStylist(ctx, stylistID)
	if err != nil {
		return slots.DayRequest{}, nil, err
	}

	salon, err := s.store.SalonHours(ctx)
	if err != nil {
		return slots.DayRequest{}, nil, fmt.Errorf("load salon hours: %w", err)
	}
	blocked, err := s.store.ListBlocked(ctx, stylistID, date)
	if err != nil {
		return slots.DayRequest{}, nil, fmt.Errorf("load blocked periods: %w", err)
	}
	existing, err := s.store.ListActiveAppointments(ctx, stylistID, date)
	if err != nil {
		return slots.DayRequest{}, nil, fmt.Errorf("load appointments: %w", err)
	}

	var booked []slots.Booked
	for _, appt := range existing {
		if excludeID != "" && appt.ID == excludeID {
			continue
		}
		booked = append(booked, slots.Booked{Start: appt.Start, Services: appt.Profiles()})
	}

	req := slots.DayRequest{
		Date:         date,
		StylistHours: stylist.Hours,
		SalonHours:   salon,
		Blocked:      blocked,
		Existing:     booked,
		Granularity:  s.rules.Granularity,
	}

	if len(serviceIDs) > 0 {
		services, err := s.store.GetServices(ctx, serviceIDs)
		if err != nil {
			return slots.DayRequest{}, nil, err
		}
		profiles := make([]timeline.Profile, len(services))
		for i, svc := range services {
			profiles[i] = svc.Profile()
		}
		req.Requested = profiles
	}
	return req, stylist, nil
}

// validateDate enforces the advance-booking window.
func (s *Service) validateDate(date timewin.Date, start timewin.Clock) error {
	now := s.now().In(s.loc)
	today := timewin.DateOf(now)

	if date.Before(today) {
		return fmt.Errorf("%w: date is in the past", ErrDateOutOfRange)
	}
	if today.AddDays(s.rules.MaxAdvanceDays).Before(date) {
		return fmt.Errorf("%w: more than %d days ahead", ErrDateOutOfRange, s.rules.MaxAdvanceDays)
	}
	if s.rules.MinAdvance > 0 {
		if date.At(start, s.loc).Before(now.Add(s.rules.MinAdvance)) {
			return fmt.Errorf("%w: less than %s of notice", ErrDateOutOfRange, s.rules.MinAdvance)
		}
	} else if date == today && date.At(start, s.loc).Before(now) {
		return fmt.Errorf("%w: start time already passed", ErrDateOutOfRange)
	}
	return nil
}

// lock acquires the stylist-day critical section with the configured bound,
// failing closed on timeout.
func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	return s.lockOrdered(ctx, key)
}

func (s *Service) lockOrdered(ctx context.Context, keys ...string) (func(), error) {
	keys = uniqueSorted(keys)
	lockCtx, cancel := context.WithTimeout(ctx, s.rules.LockTimeout)

	release, err := s.locks.AcquireOrdered(lockCtx, keys...)
	if err != nil {
		cancel()
		metrics.IncLockTimeout()
		return nil, ErrLockTimeout
	}

	if s.shared != nil {
		var sharedReleases []func()
		for _, key := range keys {
			sr, err := s.shared.Acquire(lockCtx, key)
			if err != nil {
				for i := len(sharedReleases) - 1; i >= 0; i-- {
					sharedReleases[i]()
				}
				release()
				cancel()
				metrics.IncLockTimeout()
				return nil, ErrLockTimeout
			}
			sharedReleases = append(sharedReleases, sr)
		}
		inner := release
		release = func() {
			for i := len(sharedReleases) - 1; i >= 0; i-- {
				sharedReleases[i]()
			}
			inner()
		}
	}

	return func() {
		release()
		cancel()
	}, nil
}
