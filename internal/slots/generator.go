// Package slots enumerates bookable start times for a stylist and date. It
// combines the resolved working window, blocked periods and the occupancy of
// existing appointments, then tests the requested services' timeline at every
// candidate start. The whole day grid is emitted, unavailable entries
// included, so callers can render disabled slots.
package slots

import (
	"velour/internal/schedule"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

// DefaultGranularity is used when a request does not set one.
const DefaultGranularity = 30

// Reason explains why a slot is unavailable.
type Reason string

const (
	ReasonOutsideHours Reason = "outside_hours"
	ReasonBlocked      Reason = "blocked"
	ReasonBusy         Reason = "stylist_busy"
)

// Slot is one candidate start time, annotated for the requested services.
// Output only; recomputed per request.
type Slot struct {
	Time      timewin.Clock
	Available bool
	Reason    Reason
}

// SlotInfo is the wire representation for UI callers.
type SlotInfo struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ToSlotInfo converts slots for serialization.
func ToSlotInfo(slots []Slot) []SlotInfo {
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		result[i] = SlotInfo{
			Time:      s.Time.String(),
			Available: s.Available,
			Reason:    string(s.Reason),
		}
	}
	return result
}

// Booked is an existing, non-cancelled appointment reduced to what occupancy
// computation needs: its start and ordered service profiles.
type Booked struct {
	Start    timewin.Clock
	Services []timeline.Profile
}

// DayRequest carries everything slot generation reads. The engine holds no
// state of its own; generation is a pure function of this input.
type DayRequest struct {
	Date         timewin.Date
	StylistHours schedule.Weekly
	SalonHours   schedule.Weekly
	Blocked      []schedule.BlockedPeriod
	Existing     []Booked
	Requested    []timeline.Profile
	Granularity  int
}

// day is the per-request resolved context shared by every candidate check.
type day struct {
	working timewin.Window
	blocked []timewin.Window
	// free is the working window minus blocked periods and minus the
	// occupied intervals of existing appointments. Processing gaps of
	// existing appointments stay free on purpose: a second client fits
	// inside another's developing time.
	free []timewin.Window
}

func resolveDay(req DayRequest) (day, bool) {
	working, ok := schedule.ResolveWorkingWindow(req.StylistHours, req.SalonHours, req.Date)
	if !ok {
		return day{}, false
	}
	// A full-day block closes the date outright, same as no working hours.
	if schedule.HasFullDayBlock(req.Date, req.Blocked) {
		return day{}, false
	}

	blocked := schedule.ResolveBlocked(working, req.Date, req.Blocked)

	unavailable := append([]timewin.Window(nil), blocked...)
	for _, appt := range req.Existing {
		tl := timeline.Build(appt.Start, appt.Services)
		unavailable = append(unavailable, tl.Occupied...)
	}

	return day{
		working: working,
		blocked: blocked,
		free:    timewin.Subtract(working, unavailable),
	}, true
}

// evaluate checks one candidate start against the resolved day.
func (d day) evaluate(start timewin.Clock, requested []timeline.Profile) (bool, Reason) {
	tl := timeline.Build(start, requested)

	if start < d.working.Start || tl.End > d.working.End {
		return false, ReasonOutsideHours
	}
	for _, occ := range tl.Occupied {
		if timewin.ContainedInAny(occ, d.free) {
			continue
		}
		if timewin.IntersectsAny(occ, d.blocked) {
			return false, ReasonBlocked
		}
		return false, ReasonBusy
	}
	return true, ""
}

// Generate produces the full ascending slot grid for the request. A closed
// day yields an empty list; that is a normal result, not an error.
func Generate(req DayRequest) []Slot {
	d, ok := resolveDay(req)
	if !ok {
		return nil
	}

	granularity := req.Granularity
	if granularity <= 0 {
		granularity = DefaultGranularity
	}

	var out []Slot
	for t := d.working.Start; t < d.working.End; t += timewin.Clock(granularity) {
		available, reason := d.evaluate(t, req.Requested)
		out = append(out, Slot{Time: t, Available: available, Reason: reason})
	}
	return out
}

// CheckStart re-validates a single start time against the same rules the
// grid uses. The booking guard calls this at commit time with the freshest
// appointment snapshot. The bool reports whether the stylist works that day
// at all; a closed day is reported separately from an occupied slot.
func CheckStart(req DayRequest, start timewin.Clock) (open bool, available bool, reason Reason) {
	d, ok := resolveDay(req)
	if !ok {
		return false, false, ""
	}
	available, reason = d.evaluate(start, req.Requested)
	return true, available, reason
}

// Available filters the grid down to bookable entries.
func Available(slots []Slot) []Slot {
	var out []Slot
	for _, s := range slots {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}
