package timewin

import "sort"

// Window is a half-open interval [Start, End) within a single business day.
// Wraparound across midnight is not supported.
type Window struct {
	Start Clock
	End   Clock
}

// NewWindow builds a window from "HH:MM" bounds.
func NewWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: s, End: e}, nil
}

// Valid reports whether the window is non-empty and within the day.
func (w Window) Valid() bool {
	return w.Start.Valid() && w.End.Valid() && w.Start < w.End
}

// Minutes returns the window length.
func (w Window) Minutes() int {
	return int(w.End - w.Start)
}

// Overlaps reports whether two half-open windows share any time.
func (w Window) Overlaps(o Window) bool {
	return w.Start < o.End && o.Start < w.End
}

// Contains reports whether o lies entirely inside w.
func (w Window) Contains(o Window) bool {
	return w.Start <= o.Start && o.End <= w.End
}

// ContainsClock reports whether c falls inside the window.
func (w Window) ContainsClock(c Clock) bool {
	return w.Start <= c && c < w.End
}

// Clip returns the part of w inside bounds, and whether anything remains.
func (w Window) Clip(bounds Window) (Window, bool) {
	out := w
	if out.Start < bounds.Start {
		out.Start = bounds.Start
	}
	if out.End > bounds.End {
		out.End = bounds.End
	}
	if out.Start >= out.End {
		return Window{}, false
	}
	return out, true
}

// IntersectsAny reports whether w overlaps any window in the list.
func IntersectsAny(w Window, list []Window) bool {
	for _, o := range list {
		if w.Overlaps(o) {
			return true
		}
	}
	return false
}

// Merge coalesces overlapping and adjacent windows into a minimal sorted set
// of disjoint windows. Empty or inverted inputs are dropped.
func Merge(windows []Window) []Window {
	var in []Window
	for _, w := range windows {
		if w.Start < w.End {
			in = append(in, w)
		}
	}
	if len(in) == 0 {
		return nil
	}

	sort.Slice(in, func(i, j int) bool {
		if in[i].Start != in[j].Start {
			return in[i].Start < in[j].Start
		}
		return in[i].End < in[j].End
	})

	merged := []Window{in[0]}
	for _, w := range in[1:] {
		last := &merged[len(merged)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// Subtract removes the blocked intervals from w and returns the remaining
// free windows in ascending order. Blocked intervals are merged first, so a
// block at an edge shrinks the window, a block strictly inside splits it in
// two, and a block covering the whole window leaves nothing.
func Subtract(w Window, blocked []Window) []Window {
	if !w.Valid() {
		return nil
	}

	var free []Window
	cursor := w.Start
	for _, b := range Merge(blocked) {
		clipped, ok := b.Clip(w)
		if !ok {
			continue
		}
		if clipped.Start > cursor {
			free = append(free, Window{Start: cursor, End: clipped.Start})
		}
		if clipped.End > cursor {
			cursor = clipped.End
		}
	}
	if cursor < w.End {
		free = append(free, Window{Start: cursor, End: w.End})
	}
	return free
}

// SubtractAll subtracts blocked intervals from every window in ws.
func SubtractAll(ws []Window, blocked []Window) []Window {
	var out []Window
	for _, w := range ws {
		out = append(out, Subtract(w, blocked)...)
	}
	return out
}

// ContainedInAny reports whether w fits entirely inside one of the windows.
// The list is expected to be disjoint; a window can never span two of them.
func ContainedInAny(w Window, list []Window) bool {
	for _, o := range list {
		if o.Contains(w) {
			return true
		}
	}
	return false
}
