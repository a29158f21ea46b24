package slots

import (
	"reflect"
	"testing"
	"time"

	"velour/internal/schedule"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

var salonHours = schedule.Weekly{
	time.Monday:    workDay("09:00", "17:00"),
	time.Tuesday:   workDay("09:00", "17:00"),
	time.Wednesday: workDay("09:00", "17:00"),
}

func workDay(start, end string) schedule.DayHours {
	return schedule.DayHours{
		Working: true,
		Window:  timewin.Window{Start: timewin.MustClock(start), End: timewin.MustClock(end)},
	}
}

func date(s string) timewin.Date {
	d, err := timewin.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func clock(s string) timewin.Clock { return timewin.MustClock(s) }

var (
	haircut = timeline.Profile{Duration: 60}
	trim    = timeline.Profile{Duration: 30}
	color   = timeline.Profile{Duration: 120, ProcessingWait: 45, ProcessingGap: 45}
)

func slotAt(t *testing.T, grid []Slot, at timewin.Clock) Slot {
	t.Helper()
	for _, s := range grid {
		if s.Time == at {
			return s
		}
	}
	t.Fatalf("no slot at %s in grid", at)
	return Slot{}
}

func TestGenerateClosedDay(t *testing.T) {
	// 2025-06-08 is a Sunday; the salon schedule has no entry for it.
	grid := Generate(DayRequest{
		Date:       date("2025-06-08"),
		SalonHours: salonHours,
		Requested:  []timeline.Profile{haircut},
	})
	if len(grid) != 0 {
		t.Errorf("closed day must return empty grid, got %d slots", len(grid))
	}
}

func TestGenerateFullDayBlock(t *testing.T) {
	d := date("2025-06-10") // Tuesday
	grid := Generate(DayRequest{
		Date:       d,
		SalonHours: salonHours,
		Blocked:    []schedule.BlockedPeriod{{Date: d, FullDay: true}},
		Requested:  []timeline.Profile{haircut},
	})
	if len(grid) != 0 {
		t.Errorf("full-day block must return empty grid, got %d slots", len(grid))
	}
}

func TestGenerateFullDayDominatesPartial(t *testing.T) {
	d := date("2025-06-10")
	base := DayRequest{
		Date:       d,
		SalonHours: salonHours,
		Requested:  []timeline.Profile{haircut},
	}

	fullOnly := base
	fullOnly.Blocked = []schedule.BlockedPeriod{{Date: d, FullDay: true}}

	both := base
	both.Blocked = []schedule.BlockedPeriod{
		{Date: d, Window: timewin.Window{Start: clock("12:00"), End: clock("13:00")}},
		{Date: d, FullDay: true},
	}

	if !reflect.DeepEqual(Generate(fullOnly), Generate(both)) {
		t.Error("full-day plus partial must behave exactly like full-day only")
	}
}

func TestGenerateLastFittingSlot(t *testing.T) {
	// 09:00-17:00, 60-minute haircut, 30-minute grid: 16 half-hour starts,
	// 16:00 is the last that fits (ends 17:00 exactly), 16:30 does not.
	grid := Generate(DayRequest{
		Date:        date("2025-06-09"), // Monday
		SalonHours:  salonHours,
		Requested:   []timeline.Profile{haircut},
		Granularity: 30,
	})

	if len(grid) != 16 {
		t.Fatalf("expected 16 candidates, got %d", len(grid))
	}

	last := slotAt(t, grid, clock("16:00"))
	if !last.Available {
		t.Errorf("16:00 should fit exactly: %+v", last)
	}
	overrun := slotAt(t, grid, clock("16:30"))
	if overrun.Available || overrun.Reason != ReasonOutsideHours {
		t.Errorf("16:30 should overrun closing time: %+v", overrun)
	}

	for i := 1; i < len(grid); i++ {
		if grid[i].Time <= grid[i-1].Time {
			t.Fatal("grid must be in ascending time order")
		}
	}
}

func TestGeneratePartialBlock(t *testing.T) {
	d := date("2025-06-09")
	grid := Generate(DayRequest{
		Date:       d,
		SalonHours: salonHours,
		Blocked: []schedule.BlockedPeriod{
			{Date: d, Window: timewin.Window{Start: clock("12:00"), End: clock("14:00")}},
		},
		Requested:   []timeline.Profile{trim},
		Granularity: 30,
	})

	// Grid still shows the whole day, including blocked entries.
	if len(grid) != 16 {
		t.Fatalf("expected 16 candidates, got %d", len(grid))
	}
	blocked := slotAt(t, grid, clock("12:30"))
	if blocked.Available || blocked.Reason != ReasonBlocked {
		t.Errorf("12:30 should be blocked: %+v", blocked)
	}
	if s := slotAt(t, grid, clock("14:00")); !s.Available {
		t.Errorf("14:00 trim starts right after the block: %+v", s)
	}
}

func TestGeneratePartialBlockEdges(t *testing.T) {
	d := date("2025-06-09")
	grid := Generate(DayRequest{
		Date:       d,
		SalonHours: salonHours,
		Blocked: []schedule.BlockedPeriod{
			{Date: d, Window: timewin.Window{Start: clock("12:00"), End: clock("14:00")}},
		},
		Requested:   []timeline.Profile{trim},
		Granularity: 15,
	})

	// Half-open windows: a 30-minute trim at 11:30 ends exactly where the
	// block starts, and 14:00 starts exactly where it ends.
	if s := slotAt(t, grid, clock("11:30")); !s.Available {
		t.Errorf("11:30 trim should end as the block begins: %+v", s)
	}
	if s := slotAt(t, grid, clock("14:00")); !s.Available {
		t.Errorf("14:00 trim should start as the block ends: %+v", s)
	}
	if s := slotAt(t, grid, clock("11:45")); s.Available {
		t.Errorf("11:45 trim overlaps the block: %+v", s)
	}
}

func TestGenerateProcessingGap(t *testing.T) {
	// Color booked at 10:00 occupies 10:00-10:45 and 11:30-12:00; the
	// 10:45-11:30 development gap stays bookable for another client.
	d := date("2025-06-09")
	req := DayRequest{
		Date:        d,
		SalonHours:  salonHours,
		Existing:    []Booked{{Start: clock("10:00"), Services: []timeline.Profile{color}}},
		Requested:   []timeline.Profile{trim},
		Granularity: 15,
	}
	grid := Generate(req)

	if s := slotAt(t, grid, clock("10:45")); !s.Available {
		t.Errorf("10:45 trim sits inside the processing gap: %+v", s)
	}
	if s := slotAt(t, grid, clock("11:00")); !s.Available {
		t.Errorf("11:00 trim ends exactly when the stylist returns: %+v", s)
	}
	if s := slotAt(t, grid, clock("10:30")); s.Available || s.Reason != ReasonBusy {
		t.Errorf("10:30 trim overlaps the first occupied phase: %+v", s)
	}
	if s := slotAt(t, grid, clock("11:15")); s.Available || s.Reason != ReasonBusy {
		t.Errorf("11:15 trim overlaps the finishing phase: %+v", s)
	}
	if s := slotAt(t, grid, clock("09:00")); !s.Available {
		t.Errorf("09:00 trim is clear of the color entirely: %+v", s)
	}
}

func TestGenerateRequestedGapMayCoverBusyTime(t *testing.T) {
	// The requested appointment is a color whose own processing gap spans an
	// existing trim: only the color's occupied phases need free time.
	d := date("2025-06-09")
	req := DayRequest{
		Date:        d,
		SalonHours:  salonHours,
		Existing:    []Booked{{Start: clock("10:45"), Services: []timeline.Profile{trim}}},
		Requested:   []timeline.Profile{color},
		Granularity: 15,
	}
	grid := Generate(req)

	// Color at 10:00: occupied 10:00-10:45 and 11:30-12:00. The existing
	// 10:45-11:15 trim falls inside the gap.
	if s := slotAt(t, grid, clock("10:00")); !s.Available {
		t.Errorf("color gap may cover the existing trim: %+v", s)
	}
	// Color at 10:15: occupied 10:15-11:00 overlaps the trim.
	if s := slotAt(t, grid, clock("10:15")); s.Available {
		t.Errorf("color first phase overlaps existing trim: %+v", s)
	}
}

func TestGenerateNoOverlapProperty(t *testing.T) {
	// Every available slot's occupied intervals must be disjoint from every
	// existing appointment's occupied intervals.
	d := date("2025-06-09")
	existing := []Booked{
		{Start: clock("09:30"), Services: []timeline.Profile{haircut}},
		{Start: clock("13:00"), Services: []timeline.Profile{color}},
	}
	req := DayRequest{
		Date:        d,
		SalonHours:  salonHours,
		Existing:    existing,
		Requested:   []timeline.Profile{color, trim},
		Granularity: 15,
	}

	var busy []timewin.Window
	for _, b := range existing {
		busy = append(busy, timeline.Build(b.Start, b.Services).Occupied...)
	}

	for _, s := range Generate(req) {
		if !s.Available {
			continue
		}
		tl := timeline.Build(s.Time, req.Requested)
		for _, occ := range tl.Occupied {
			if timewin.IntersectsAny(occ, busy) {
				t.Errorf("available slot %s occupies %v which overlaps existing busy time", s.Time, occ)
			}
		}
	}
}

func TestGenerateIdempotent(t *testing.T) {
	d := date("2025-06-09")
	req := DayRequest{
		Date:       d,
		SalonHours: salonHours,
		Existing:   []Booked{{Start: clock("10:00"), Services: []timeline.Profile{color}}},
		Blocked: []schedule.BlockedPeriod{
			{Date: d, Window: timewin.Window{Start: clock("15:00"), End: clock("16:00")}},
		},
		Requested:   []timeline.Profile{trim},
		Granularity: 30,
	}

	if !reflect.DeepEqual(Generate(req), Generate(req)) {
		t.Error("two queries with no intervening writes must be identical")
	}
}

func TestCheckStart(t *testing.T) {
	d := date("2025-06-09")
	req := DayRequest{
		Date:       d,
		SalonHours: salonHours,
		Existing:   []Booked{{Start: clock("10:00"), Services: []timeline.Profile{color}}},
		Requested:  []timeline.Profile{trim},
	}

	open, ok, _ := CheckStart(req, clock("10:45"))
	if !open || !ok {
		t.Errorf("10:45 should be open and available, got open=%v ok=%v", open, ok)
	}

	open, ok, reason := CheckStart(req, clock("10:30"))
	if !open || ok || reason != ReasonBusy {
		t.Errorf("10:30 should be busy, got open=%v ok=%v reason=%s", open, ok, reason)
	}

	closed := req
	closed.Date = date("2025-06-08")
	open, _, _ = CheckStart(closed, clock("10:00"))
	if open {
		t.Error("Sunday should report not open")
	}
}

func TestAvailableFilter(t *testing.T) {
	grid := []Slot{
		{Time: clock("09:00"), Available: true},
		{Time: clock("09:30"), Available: false, Reason: ReasonBusy},
		{Time: clock("10:00"), Available: true},
	}
	got := Available(grid)
	if len(got) != 2 {
		t.Fatalf("expected 2 available slots, got %d", len(got))
	}
}

func TestToSlotInfo(t *testing.T) {
	infos := ToSlotInfo([]Slot{
		{Time: clock("09:00"), Available: true},
		{Time: clock("09:30"), Available: false, Reason: ReasonBusy},
	})
	if infos[0].Time != "09:00" || !infos[0].Available || infos[0].Reason != "" {
		t.Errorf("unexpected first info: %+v", infos[0])
	}
	if infos[1].Reason != string(ReasonBusy) {
		t.Errorf("unexpected second info: %+v", infos[1])
	}
}
