// Package schedule resolves a stylist's base availability for a calendar
// date: recurring weekly working hours with salon-wide fallback, minus
// full-day and partial blocked periods.
package schedule

import (
	"fmt"
	"time"

	"velour/internal/timewin"
)

// DayHours is a single weekday entry of a weekly schedule.
type DayHours struct {
	Working bool
	Window  timewin.Window
}

// Weekly maps weekdays to working hours. A stylist's Weekly may cover only
// the days they customized; missing days fall back to the salon schedule.
type Weekly map[time.Weekday]DayHours

// Validate checks that every working day has a sane window.
func (w Weekly) Validate() error {
	for day, h := range w {
		if !h.Working {
			continue
		}
		if !h.Window.Valid() {
			return fmt.Errorf("%s: working hours %s-%s are invalid",
				day, h.Window.Start, h.Window.End)
		}
	}
	return nil
}

// ResolveWorkingWindow returns the stylist's working window for the date.
// Resolution order: the stylist's own weekday entry if present (a stylist can
// explicitly mark a day off), otherwise the salon default for that weekday.
// The second return is false when neither marks the day as working; callers
// short-circuit slot generation to an empty list in that case.
func ResolveWorkingWindow(stylist, salon Weekly, date timewin.Date) (timewin.Window, bool) {
	day := date.Weekday()

	if h, ok := stylist[day]; ok {
		if !h.Working {
			return timewin.Window{}, false
		}
		return h.Window, true
	}

	if h, ok := salon[day]; ok && h.Working {
		return h.Window, true
	}
	return timewin.Window{}, false
}
