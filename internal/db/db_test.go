package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velour/internal/booking"
	"velour/internal/model"
	"velour/internal/schedule"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "velour_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func clock(s string) timewin.Clock { return timewin.MustClock(s) }

func date(s string) timewin.Date {
	d, err := timewin.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func window(start, end string) timewin.Window {
	return timewin.Window{Start: clock(start), End: clock(end)}
}

func TestStylistRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	s := &model.Stylist{Name: "Dana", Phone: "+70000000001"}
	require.NoError(t, database.CreateStylist(ctx, s))
	require.NotZero(t, s.ID)

	require.NoError(t, database.SetStylistHours(ctx, s.ID, time.Monday,
		schedule.DayHours{Working: true, Window: window("10:00", "18:00")}))
	require.NoError(t, database.SetStylistHours(ctx, s.ID, time.Tuesday,
		schedule.DayHours{Working: false}))

	got, err := database.GetStylist(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.Name)
	assert.Equal(t, "+70000000001", got.Phone)

	mon, ok := got.Hours[time.Monday]
	require.True(t, ok)
	assert.True(t, mon.Working)
	assert.Equal(t, window("10:00", "18:00"), mon.Window)

	tue, ok := got.Hours[time.Tuesday]
	require.True(t, ok, "explicit day off is an override, not an absent row")
	assert.False(t, tue.Working)

	// Upsert replaces, clear removes the override.
	require.NoError(t, database.SetStylistHours(ctx, s.ID, time.Monday,
		schedule.DayHours{Working: true, Window: window("09:00", "17:00")}))
	require.NoError(t, database.ClearStylistHours(ctx, s.ID, time.Tuesday))

	got, err = database.GetStylist(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, window("09:00", "17:00"), got.Hours[time.Monday].Window)
	_, ok = got.Hours[time.Tuesday]
	assert.False(t, ok)
}

func TestGetStylistNotFound(t *testing.T) {
	database := newTestDB(t)
	_, err := database.GetStylist(context.Background(), 42)
	assert.ErrorIs(t, err, booking.ErrStylistNotFound)
}

func TestSeedSalonHours(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	weekly := schedule.Weekly{
		time.Monday:   {Working: true, Window: window("09:00", "19:00")},
		time.Saturday: {Working: true, Window: window("10:00", "18:00")},
		time.Sunday:   {Working: false},
	}
	require.NoError(t, database.SeedSalonHours(ctx, weekly))

	got, err := database.SalonHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, weekly, got)

	// Seeding again overwrites rather than duplicates.
	weekly[time.Monday] = schedule.DayHours{Working: true, Window: window("08:00", "20:00")}
	require.NoError(t, database.SeedSalonHours(ctx, weekly))
	got, err = database.SalonHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, window("08:00", "20:00"), got[time.Monday].Window)
}

func TestServices(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	color := &model.Service{Name: "Color", Duration: 120, ProcessingWait: 45, ProcessingGap: 45}
	haircut := &model.Service{Name: "Haircut", Duration: 60}
	require.NoError(t, database.CreateService(ctx, color))
	require.NoError(t, database.CreateService(ctx, haircut))

	// Invalid profile is rejected before touching the database.
	err := database.CreateService(ctx, &model.Service{Name: "Broken", Duration: 30, ProcessingWait: 20, ProcessingGap: 20})
	assert.ErrorIs(t, err, timeline.ErrInvalidServiceConfig)

	// Order of ids is preserved.
	services, err := database.GetServices(ctx, []int64{haircut.ID, color.ID})
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Haircut", services[0].Name)
	assert.Equal(t, "Color", services[1].Name)
	assert.Equal(t, 45, services[1].ProcessingGap)

	_, err = database.GetServices(ctx, []int64{99})
	assert.ErrorIs(t, err, booking.ErrServiceNotFound)

	// Deactivated services are gone from lookups but keep their row.
	require.NoError(t, database.DeactivateService(ctx, haircut.ID))
	_, err = database.GetServices(ctx, []int64{haircut.ID})
	assert.ErrorIs(t, err, booking.ErrServiceNotFound)

	active, err := database.ListActiveServices(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Color", active[0].Name)
}

func TestBlockedPeriods(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	s := &model.Stylist{Name: "Dana"}
	require.NoError(t, database.CreateStylist(ctx, s))
	day := date("2025-06-02")

	id, err := database.AddBlockedPeriod(ctx, schedule.BlockedPeriod{
		StylistID: s.ID, Date: day, Window: window("12:00", "13:00"), Reason: "lunch",
	})
	require.NoError(t, err)

	// Overlapping partial block is rejected.
	_, err = database.AddBlockedPeriod(ctx, schedule.BlockedPeriod{
		StylistID: s.ID, Date: day, Window: window("12:30", "13:30"),
	})
	assert.Error(t, err)

	// Adjacent partial block is fine (half-open windows).
	_, err = database.AddBlockedPeriod(ctx, schedule.BlockedPeriod{
		StylistID: s.ID, Date: day, Window: window("13:00", "14:00"),
	})
	require.NoError(t, err)

	// Full-day plus existing partials is allowed; a second full-day is not.
	_, err = database.AddBlockedPeriod(ctx, schedule.BlockedPeriod{
		StylistID: s.ID, Date: day, FullDay: true, Reason: "sick",
	})
	require.NoError(t, err)
	_, err = database.AddBlockedPeriod(ctx, schedule.BlockedPeriod{
		StylistID: s.ID, Date: day, FullDay: true,
	})
	assert.Error(t, err)

	blocks, err := database.ListBlocked(ctx, s.ID, day)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.True(t, schedule.HasFullDayBlock(day, blocks))

	// Other dates and stylists see nothing.
	blocks, err = database.ListBlocked(ctx, s.ID, date("2025-06-03"))
	require.NoError(t, err)
	assert.Empty(t, blocks)

	require.NoError(t, database.DeleteBlockedPeriod(ctx, id))
	blocks, err = database.ListBlocked(ctx, s.ID, day)
	require.NoError(t, err)
	assert.Len(t, blocks, 2)
}

func TestAppointmentRoundTrip(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	s := &model.Stylist{Name: "Dana"}
	require.NoError(t, database.CreateStylist(ctx, s))
	day := date("2025-06-02")

	appt := &model.Appointment{
		ID:        "a-1",
		StylistID: s.ID,
		Date:      day,
		Start:     clock("10:00"),
		End:       clock("12:00"),
		Services: []model.AppointmentService{
			{ServiceID: 2, Name: "Color", Profile: timeline.Profile{Duration: 120, ProcessingWait: 45, ProcessingGap: 45}},
			{ServiceID: 1, Name: "Haircut", Profile: timeline.Profile{Duration: 60}},
		},
		Status:      model.StatusPending,
		ClientName:  "Vera",
		ClientPhone: "+70000000002",
		Comment:     "first visit",
	}
	require.NoError(t, database.CreateAppointment(ctx, appt))

	got, err := database.GetAppointment(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, day, got.Date)
	assert.Equal(t, clock("10:00"), got.Start)
	assert.Equal(t, "Vera", got.ClientName)
	assert.Equal(t, "first visit", got.Comment)
	// Line order and snapshots survive the round trip.
	require.Len(t, got.Services, 2)
	assert.Equal(t, "Color", got.Services[0].Name)
	assert.Equal(t, 45, got.Services[0].Profile.ProcessingGap)
	assert.Equal(t, "Haircut", got.Services[1].Name)

	active, err := database.ListActiveAppointments(ctx, s.ID, day)
	require.NoError(t, err)
	require.Len(t, active, 1)

	// Cancellation is a status transition; the row and lines stay.
	require.NoError(t, database.UpdateAppointmentStatus(ctx, "a-1", model.StatusCanceled))
	active, err = database.ListActiveAppointments(ctx, s.ID, day)
	require.NoError(t, err)
	assert.Empty(t, active)

	got, err = database.GetAppointment(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, got.Status)
	assert.Len(t, got.Services, 2)

	byDate, err := database.ListAppointmentsByDate(ctx, day)
	require.NoError(t, err)
	assert.Len(t, byDate, 1, "day sheet export sees canceled rows too")
}

func TestRescheduleAppointment(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	s := &model.Stylist{Name: "Dana"}
	require.NoError(t, database.CreateStylist(ctx, s))

	appt := &model.Appointment{
		ID:        "a-2",
		StylistID: s.ID,
		Date:      date("2025-06-02"),
		Start:     clock("10:00"),
		End:       clock("11:00"),
		Services: []model.AppointmentService{
			{ServiceID: 1, Name: "Haircut", Profile: timeline.Profile{Duration: 60}},
		},
		Status:     model.StatusPending,
		ClientName: "Vera",
	}
	require.NoError(t, database.CreateAppointment(ctx, appt))

	require.NoError(t, database.RescheduleAppointment(ctx, "a-2", date("2025-06-03"), clock("14:00"), clock("15:00")))

	got, err := database.GetAppointment(ctx, "a-2")
	require.NoError(t, err)
	assert.Equal(t, date("2025-06-03"), got.Date)
	assert.Equal(t, clock("14:00"), got.Start)
	assert.Equal(t, clock("15:00"), got.End)

	err = database.RescheduleAppointment(ctx, "missing", date("2025-06-03"), clock("14:00"), clock("15:00"))
	assert.ErrorIs(t, err, booking.ErrAppointmentNotFound)

	err = database.UpdateAppointmentStatus(ctx, "missing", model.StatusConfirmed)
	assert.ErrorIs(t, err, booking.ErrAppointmentNotFound)

	_, err = database.GetAppointment(ctx, "missing")
	assert.ErrorIs(t, err, booking.ErrAppointmentNotFound)
}

func TestBackup(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	s := &model.Stylist{Name: "Dana"}
	require.NoError(t, database.CreateStylist(ctx, s))

	dir := t.TempDir()
	dest := filepath.Join(dir, "backup.db")
	require.NoError(t, database.Backup(dest))

	restored, err := New(dest)
	require.NoError(t, err)
	defer restored.Close()
	got, err := restored.GetStylist(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.Name)

	deleted, err := restored.CleanupBackups(dir, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted, "fresh backups are kept")
}
