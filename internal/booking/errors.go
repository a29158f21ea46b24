package booking

import "errors"

var (
	// ErrClosed means the stylist has no working hours on the requested
	// date (or the date carries a full-day block).
	ErrClosed = errors.New("stylist is closed on this date")

	// ErrSlotNoLongerAvailable is returned when commit-time re-validation
	// finds the chosen start occupied. The caller re-fetches the grid and
	// lets the user pick again; the service never retries a stale intent.
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")

	// ErrStylistNotFound is returned for an unknown or inactive stylist.
	ErrStylistNotFound = errors.New("stylist not found")

	// ErrServiceNotFound is returned for an unknown or inactive service.
	ErrServiceNotFound = errors.New("service not found")

	// ErrAppointmentNotFound is returned when the appointment id is unknown.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrLockTimeout means the stylist-day lock could not be acquired
	// within the configured bound. The commit fails closed.
	ErrLockTimeout = errors.New("booking lock timeout")

	// ErrDateOutOfRange rejects dates in the past or beyond the advance
	// booking horizon.
	ErrDateOutOfRange = errors.New("date outside the bookable range")
)
