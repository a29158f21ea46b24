package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"velour/internal/booking"
	"velour/internal/model"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

// CreateAppointment stores the appointment and its ordered service lines in
// one transaction. The duration profiles are written as a snapshot so later
// catalog edits never move committed occupancy.
func (db *DB) CreateAppointment(ctx context.Context, appt *model.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments (id, stylist_id, date, start_time, end_time,
			status, client_name, client_phone, comment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		appt.ID, appt.StylistID, appt.Date.String(),
		appt.Start.String(), appt.End.String(),
		appt.Status, appt.ClientName, appt.ClientPhone, appt.Comment, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	for i, line := range appt.Services {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO appointment_services (appointment_id, position, service_id,
				name, duration_minutes, processing_wait_minutes, processing_gap_minutes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			appt.ID, i, line.ServiceID, line.Name,
			line.Profile.Duration, line.Profile.ProcessingWait, line.Profile.ProcessingGap,
		)
		if err != nil {
			return fmt.Errorf("insert appointment line %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetAppointment loads an appointment with its service lines.
func (db *DB) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	appt, err := db.scanAppointment(db.QueryRowContext(ctx, `
		SELECT id, stylist_id, date, start_time, end_time, status,
		       client_name, client_phone, comment, created_at, updated_at
		FROM appointments
		WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, booking.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	appt.Services, err = db.appointmentLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ListActiveAppointments returns the stylist's non-canceled appointments for
// one date, ordered by start time, with service lines attached.
func (db *DB) ListActiveAppointments(ctx context.Context, stylistID int64, date timewin.Date) ([]model.Appointment, error) {
	return db.listAppointments(ctx, `
		SELECT id, stylist_id, date, start_time, end_time, status,
		       client_name, client_phone, comment, created_at, updated_at
		FROM appointments
		WHERE stylist_id = ? AND date = ? AND status != ?
		ORDER BY start_time`,
		stylistID, date.String(), model.StatusCanceled)
}

// ListAppointmentsByDate returns every appointment of the date regardless of
// status, ordered by stylist and start time. Used by the day sheet export.
func (db *DB) ListAppointmentsByDate(ctx context.Context, date timewin.Date) ([]model.Appointment, error) {
	return db.listAppointments(ctx, `
		SELECT id, stylist_id, date, start_time, end_time, status,
		       client_name, client_phone, comment, created_at, updated_at
		FROM appointments
		WHERE date = ?
		ORDER BY stylist_id, start_time`,
		date.String())
}

// RescheduleAppointment moves an appointment to a new date and time span. The
// service lines and their snapshots stay untouched.
func (db *DB) RescheduleAppointment(ctx context.Context, id string, date timewin.Date, start, end timewin.Clock) error {
	res, err := db.ExecContext(ctx, `
		UPDATE appointments
		SET date = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ?`,
		date.String(), start.String(), end.String(), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("reschedule appointment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return booking.ErrAppointmentNotFound
	}
	return err
}

// UpdateAppointmentStatus transitions the appointment's lifecycle status.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update appointment %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return booking.ErrAppointmentNotFound
	}
	return err
}

func (db *DB) listAppointments(ctx context.Context, query string, args ...interface{}) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := db.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range appts {
		appts[i].Services, err = db.appointmentLines(ctx, appts[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return appts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (db *DB) scanAppointment(row rowScanner) (*model.Appointment, error) {
	var (
		appt             model.Appointment
		dateStr          string
		startStr, endStr string
		phone, comment   sql.NullString
	)
	err := row.Scan(&appt.ID, &appt.StylistID, &dateStr, &startStr, &endStr,
		&appt.Status, &appt.ClientName, &phone, &comment,
		&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if appt.Date, err = timewin.ParseDate(dateStr); err != nil {
		return nil, fmt.Errorf("appointment date: %w", err)
	}
	if appt.Start, err = timewin.ParseClock(startStr); err != nil {
		return nil, fmt.Errorf("appointment start: %w", err)
	}
	if appt.End, err = timewin.ParseClock(endStr); err != nil {
		return nil, fmt.Errorf("appointment end: %w", err)
	}
	appt.ClientPhone = phone.String
	appt.Comment = comment.String
	return &appt, nil
}

func (db *DB) appointmentLines(ctx context.Context, id string) ([]model.AppointmentService, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT service_id, name, duration_minutes, processing_wait_minutes, processing_gap_minutes
		FROM appointment_services
		WHERE appointment_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("appointment lines: %w", err)
	}
	defer rows.Close()

	var lines []model.AppointmentService
	for rows.Next() {
		var (
			line    model.AppointmentService
			profile timeline.Profile
		)
		if err := rows.Scan(&line.ServiceID, &line.Name,
			&profile.Duration, &profile.ProcessingWait, &profile.ProcessingGap); err != nil {
			return nil, err
		}
		line.Profile = profile
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
