// Package model holds the persistent records of the salon: stylists with
// their weekly hours, the service catalog, blocked periods and appointments.
// The scheduling engine consumes these as plain values and owns none of them.
package model

import (
	"time"

	"velour/internal/schedule"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

// Appointment lifecycle. Cancellation is a status transition, never a row
// deletion, so past occupancy stays auditable.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// Stylist owns its weekly hours and blocked periods; appointments reference
// it by id.
type Stylist struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Active    bool            `json:"active"`
	Hours     schedule.Weekly `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Service is a catalog entry with its duration profile. ProcessingWait and
// ProcessingGap are zero for simple services.
type Service struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Duration       int       `json:"duration_minutes"`
	ProcessingWait int       `json:"processing_wait_minutes"`
	ProcessingGap  int       `json:"processing_gap_minutes"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Profile returns the service's duration profile for the timeline model.
func (s Service) Profile() timeline.Profile {
	return timeline.Profile{
		Duration:       s.Duration,
		ProcessingWait: s.ProcessingWait,
		ProcessingGap:  s.ProcessingGap,
	}
}

// AppointmentService is one ordered line of an appointment. The duration
// profile is snapshotted at booking time so later catalog edits do not shift
// already-committed occupancy.
type AppointmentService struct {
	ServiceID int64            `json:"service_id"`
	Name      string           `json:"name"`
	Profile   timeline.Profile `json:"profile"`
}

// Appointment is a booked visit: a stylist, a date, a start clock and an
// ordered service list.
type Appointment struct {
	ID          string               `json:"id"`
	StylistID   int64                `json:"stylist_id"`
	Date        timewin.Date         `json:"date"`
	Start       timewin.Clock        `json:"start"`
	End         timewin.Clock        `json:"end"`
	Services    []AppointmentService `json:"services"`
	Status      string               `json:"status"`
	ClientName  string               `json:"client_name"`
	ClientPhone string               `json:"client_phone,omitempty"`
	Comment     string               `json:"comment,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// IsActive reports whether the appointment still occupies the stylist.
func (a Appointment) IsActive() bool {
	return a.Status != StatusCanceled
}

// Profiles returns the ordered duration profiles of the appointment.
func (a Appointment) Profiles() []timeline.Profile {
	profiles := make([]timeline.Profile, len(a.Services))
	for i, s := range a.Services {
		profiles[i] = s.Profile
	}
	return profiles
}

// Timeline computes the appointment's occupancy shape.
func (a Appointment) Timeline() timeline.Timeline {
	return timeline.Build(a.Start, a.Profiles())
}
