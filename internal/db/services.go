package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"velour/internal/booking"
	"velour/internal/model"
)

// CreateService inserts a catalog entry. The duration profile is validated
// here, at configuration time, so a broken profile can never reach booking.
func (db *DB) CreateService(ctx context.Context, s *model.Service) error {
	if err := s.Profile().Validate(); err != nil {
		return err
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO services (name, duration_minutes, processing_wait_minutes,
			processing_gap_minutes, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		s.Name, s.Duration, s.ProcessingWait, s.ProcessingGap, now, now,
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// UpdateService rewrites a catalog entry, re-validating the profile.
func (db *DB) UpdateService(ctx context.Context, s *model.Service) error {
	if err := s.Profile().Validate(); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		UPDATE services
		SET name = ?, duration_minutes = ?, processing_wait_minutes = ?,
			processing_gap_minutes = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Duration, s.ProcessingWait, s.ProcessingGap, time.Now(), s.ID,
	)
	return err
}

// DeactivateService hides a service from new bookings. Existing appointments
// keep their snapshotted profiles.
func (db *DB) DeactivateService(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx,
		"UPDATE services SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

// GetServices returns active services in the order of ids.
func (db *DB) GetServices(ctx context.Context, ids []int64) ([]model.Service, error) {
	out := make([]model.Service, 0, len(ids))
	for _, id := range ids {
		var s model.Service
		err := db.QueryRowContext(ctx, `
			SELECT id, name, duration_minutes, processing_wait_minutes,
			       processing_gap_minutes, is_active, created_at, updated_at
			FROM services
			WHERE id = ? AND is_active = 1`,
			id,
		).Scan(&s.ID, &s.Name, &s.Duration, &s.ProcessingWait,
			&s.ProcessingGap, &s.Active, &s.CreatedAt, &s.UpdatedAt)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("service %d: %w", id, booking.ErrServiceNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("get service %d: %w", id, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ListActiveServices returns the bookable catalog.
func (db *DB) ListActiveServices(ctx context.Context) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, duration_minutes, processing_wait_minutes,
		       processing_gap_minutes, is_active, created_at, updated_at
		FROM services
		WHERE is_active = 1
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Duration, &s.ProcessingWait,
			&s.ProcessingGap, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}
