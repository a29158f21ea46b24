package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"velour/internal/booking"
	"velour/internal/model"
	"velour/internal/schedule"
	"velour/internal/timewin"
)

// GetStylist returns an active stylist with their weekly hour overrides.
func (db *DB) GetStylist(ctx context.Context, id int64) (*model.Stylist, error) {
	var s model.Stylist
	var phone sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, name, phone, is_active, created_at, updated_at
		FROM stylists
		WHERE id = ? AND is_active = 1`,
		id,
	).Scan(&s.ID, &s.Name, &phone, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, booking.ErrStylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stylist %d: %w", id, err)
	}
	if phone.Valid {
		s.Phone = phone.String
	}

	hours, err := db.stylistHours(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Hours = hours
	return &s, nil
}

// ListActiveStylists returns all bookable stylists, hours included.
func (db *DB) ListActiveStylists(ctx context.Context) ([]model.Stylist, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, phone, is_active, created_at, updated_at
		FROM stylists
		WHERE is_active = 1
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stylists: %w", err)
	}
	defer rows.Close()

	var stylists []model.Stylist
	for rows.Next() {
		var s model.Stylist
		var phone sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &phone, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if phone.Valid {
			s.Phone = phone.String
		}
		stylists = append(stylists, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range stylists {
		hours, err := db.stylistHours(ctx, stylists[i].ID)
		if err != nil {
			return nil, err
		}
		stylists[i].Hours = hours
	}
	return stylists, nil
}

// CreateStylist inserts a stylist and returns its id.
func (db *DB) CreateStylist(ctx context.Context, s *model.Stylist) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO stylists (name, phone, is_active, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)`,
		s.Name, s.Phone, now, now,
	)
	if err != nil {
		return fmt.Errorf("create stylist: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// SetStylistHours replaces the stylist's override for one weekday.
func (db *DB) SetStylistHours(ctx context.Context, stylistID int64, weekday time.Weekday, hours schedule.DayHours) error {
	if hours.Working && !hours.Window.Valid() {
		return fmt.Errorf("invalid working window %s-%s", hours.Window.Start, hours.Window.End)
	}
	var start, end interface{}
	if hours.Working {
		start, end = hours.Window.Start.String(), hours.Window.End.String()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO stylist_hours (stylist_id, weekday, is_working, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(stylist_id, weekday) DO UPDATE SET
			is_working = excluded.is_working,
			start_time = excluded.start_time,
			end_time = excluded.end_time`,
		stylistID, int(weekday), hours.Working, start, end,
	)
	return err
}

// ClearStylistHours removes a weekday override, restoring the salon default.
func (db *DB) ClearStylistHours(ctx context.Context, stylistID int64, weekday time.Weekday) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM stylist_hours WHERE stylist_id = ? AND weekday = ?",
		stylistID, int(weekday),
	)
	return err
}

func (db *DB) stylistHours(ctx context.Context, stylistID int64) (schedule.Weekly, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT weekday, is_working, start_time, end_time
		FROM stylist_hours
		WHERE stylist_id = ?`,
		stylistID,
	)
	if err != nil {
		return nil, fmt.Errorf("stylist %d hours: %w", stylistID, err)
	}
	defer rows.Close()
	return scanWeekly(rows)
}

// SalonHours returns the salon-wide default weekly schedule.
func (db *DB) SalonHours(ctx context.Context) (schedule.Weekly, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT weekday, is_working, start_time, end_time
		FROM salon_hours`)
	if err != nil {
		return nil, fmt.Errorf("salon hours: %w", err)
	}
	defer rows.Close()
	return scanWeekly(rows)
}

// SetSalonHours replaces the salon schedule for one weekday. Startup seeds
// this from the config file.
func (db *DB) SetSalonHours(ctx context.Context, weekday time.Weekday, hours schedule.DayHours) error {
	if hours.Working && !hours.Window.Valid() {
		return fmt.Errorf("invalid working window %s-%s", hours.Window.Start, hours.Window.End)
	}
	var start, end interface{}
	if hours.Working {
		start, end = hours.Window.Start.String(), hours.Window.End.String()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO salon_hours (weekday, is_working, start_time, end_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(weekday) DO UPDATE SET
			is_working = excluded.is_working,
			start_time = excluded.start_time,
			end_time = excluded.end_time`,
		int(weekday), hours.Working, start, end,
	)
	return err
}

// SeedSalonHours writes the whole weekly default in one pass.
func (db *DB) SeedSalonHours(ctx context.Context, weekly schedule.Weekly) error {
	if err := weekly.Validate(); err != nil {
		return fmt.Errorf("seed salon hours: %w", err)
	}
	for day, hours := range weekly {
		if err := db.SetSalonHours(ctx, day, hours); err != nil {
			return fmt.Errorf("seed salon hours for %s: %w", day, err)
		}
	}
	return nil
}

func scanWeekly(rows *sql.Rows) (schedule.Weekly, error) {
	weekly := make(schedule.Weekly)
	for rows.Next() {
		var weekday int
		var working bool
		var start, end sql.NullString
		if err := rows.Scan(&weekday, &working, &start, &end); err != nil {
			return nil, err
		}
		entry := schedule.DayHours{Working: working}
		if working {
			w, err := timewin.NewWindow(start.String, end.String)
			if err != nil {
				return nil, fmt.Errorf("weekday %d: %w", weekday, err)
			}
			entry.Window = w
		}
		weekly[time.Weekday(weekday)] = entry
	}
	return weekly, rows.Err()
}
