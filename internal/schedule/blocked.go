package schedule

import (
	"errors"
	"fmt"

	"velour/internal/timewin"
)

// ErrAmbiguousBlock is returned when a blocked period mixes the full-day
// flag with partial bounds, or a partial block has no bounds at all.
var ErrAmbiguousBlock = errors.New("ambiguous blocked period")

// BlockedPeriod is an explicit availability exception for one stylist on one
// date, either the whole day or a clock range.
type BlockedPeriod struct {
	StylistID int64
	Date      timewin.Date
	FullDay   bool
	Window    timewin.Window // partial blocks only
	Reason    string
}

// Validate rejects ambiguous input at the boundary: a full-day block carries
// no clock bounds, a partial block carries a valid window.
func (b BlockedPeriod) Validate() error {
	if b.FullDay {
		if b.Window != (timewin.Window{}) {
			return fmt.Errorf("%w: full-day block has partial bounds %s-%s",
				ErrAmbiguousBlock, b.Window.Start, b.Window.End)
		}
		return nil
	}
	if !b.Window.Valid() {
		return fmt.Errorf("%w: partial block needs start < end, got %s-%s",
			ErrAmbiguousBlock, b.Window.Start, b.Window.End)
	}
	return nil
}

// ValidateBlocks validates each block and enforces the per-date invariants:
// at most one full-day block and no overlapping partial blocks for the same
// stylist and date.
func ValidateBlocks(blocks []BlockedPeriod) error {
	type dayKey struct {
		stylist int64
		date    timewin.Date
	}
	fullDays := make(map[dayKey]bool)
	partials := make(map[dayKey][]timewin.Window)

	for _, b := range blocks {
		if err := b.Validate(); err != nil {
			return err
		}
		key := dayKey{b.StylistID, b.Date}
		if b.FullDay {
			if fullDays[key] {
				return fmt.Errorf("duplicate full-day block for stylist %d on %s", b.StylistID, b.Date)
			}
			fullDays[key] = true
			continue
		}
		if timewin.IntersectsAny(b.Window, partials[key]) {
			return fmt.Errorf("overlapping partial blocks for stylist %d on %s", b.StylistID, b.Date)
		}
		partials[key] = append(partials[key], b.Window)
	}
	return nil
}

// HasFullDayBlock reports whether the date carries a full-day block. A fully
// blocked date behaves like a closed day: slot generation returns an empty
// grid rather than a grid of unavailable entries.
func HasFullDayBlock(date timewin.Date, blocks []BlockedPeriod) bool {
	for _, b := range blocks {
		if b.FullDay && b.Date == date {
			return true
		}
	}
	return false
}

// ResolveBlocked converts the date's blocked periods into windows to subtract
// from the working window. A full-day block blocks the entire working window
// and dominates any partial blocks present for the same date. Partial blocks
// are clipped to the working window; a block entirely outside working hours
// has no effect. Blocks recorded for other dates are ignored.
func ResolveBlocked(working timewin.Window, date timewin.Date, blocks []BlockedPeriod) []timewin.Window {
	var partial []timewin.Window
	for _, b := range blocks {
		if b.Date != date {
			continue
		}
		if b.FullDay {
			return []timewin.Window{working}
		}
		if clipped, ok := b.Window.Clip(working); ok {
			partial = append(partial, clipped)
		}
	}
	return timewin.Merge(partial)
}
