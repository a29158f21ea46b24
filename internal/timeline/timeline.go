// Package timeline converts an appointment's ordered services into the
// sub-intervals during which the stylist is actually occupied. A service with
// a processing gap (color developing and similar) frees the stylist in the
// middle of its duration, which is what lets a second client be served inside
// the first client's wait.
package timeline

import (
	"errors"
	"fmt"

	"velour/internal/timewin"
)

// ErrInvalidServiceConfig marks a duration profile whose gap does not fit
// inside its total duration. Rejected at configuration time, never at booking
// time.
var ErrInvalidServiceConfig = errors.New("invalid service configuration")

// Profile describes how one service consumes the stylist's time.
// ProcessingWait is minutes from the service start until the stylist is
// freed; ProcessingGap is how long they stay free before returning to finish.
// Both are zero for simple services: the stylist is occupied throughout.
type Profile struct {
	Duration       int
	ProcessingWait int
	ProcessingGap  int
}

// Validate enforces ProcessingWait + ProcessingGap <= Duration.
func (p Profile) Validate() error {
	if p.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidServiceConfig, p.Duration)
	}
	if p.ProcessingWait < 0 || p.ProcessingGap < 0 {
		return fmt.Errorf("%w: negative processing phase", ErrInvalidServiceConfig)
	}
	if p.ProcessingWait+p.ProcessingGap > p.Duration {
		return fmt.Errorf("%w: processing wait %d + gap %d exceeds duration %d",
			ErrInvalidServiceConfig, p.ProcessingWait, p.ProcessingGap, p.Duration)
	}
	return nil
}

// HasGap reports whether the profile frees the stylist mid-service.
func (p Profile) HasGap() bool {
	return p.ProcessingGap > 0
}

// ValidateProfiles validates a requested service list.
func ValidateProfiles(profiles []Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("%w: no services requested", ErrInvalidServiceConfig)
	}
	for i, p := range profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("service %d: %w", i, err)
		}
	}
	return nil
}

// Timeline is the computed shape of one appointment: its total span and the
// disjoint intervals during which the stylist is occupied. Derived fresh on
// every computation, never persisted.
type Timeline struct {
	Start    timewin.Clock
	End      timewin.Clock
	Occupied []timewin.Window
}

// Span returns the appointment's full interval including processing gaps.
func (t Timeline) Span() timewin.Window {
	return timewin.Window{Start: t.Start, End: t.End}
}

// Build lays the profiles out sequentially from start. Each service begins
// where the previous one ends; its occupied intervals are computed relative
// to its own start and unioned across the whole appointment, coalescing
// back-to-back segments.
func Build(start timewin.Clock, profiles []Profile) Timeline {
	var occupied []timewin.Window
	cursor := start
	for _, p := range profiles {
		svcStart := cursor
		svcEnd := cursor + timewin.Clock(p.Duration)

		if p.HasGap() {
			freedAt := svcStart + timewin.Clock(p.ProcessingWait)
			backAt := freedAt + timewin.Clock(p.ProcessingGap)
			if freedAt > svcStart {
				occupied = append(occupied, timewin.Window{Start: svcStart, End: freedAt})
			}
			if svcEnd > backAt {
				occupied = append(occupied, timewin.Window{Start: backAt, End: svcEnd})
			}
		} else {
			occupied = append(occupied, timewin.Window{Start: svcStart, End: svcEnd})
		}
		cursor = svcEnd
	}

	return Timeline{
		Start:    start,
		End:      cursor,
		Occupied: timewin.Merge(occupied),
	}
}

// TotalDuration sums the sequential durations of the profiles.
func TotalDuration(profiles []Profile) int {
	total := 0
	for _, p := range profiles {
		total += p.Duration
	}
	return total
}
