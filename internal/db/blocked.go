package db

import (
	"context"
	"database/sql"
	"fmt"

	"velour/internal/schedule"
	"velour/internal/timewin"
)

// AddBlockedPeriod records an availability exception after validating it
// against the periods already stored for that stylist and date.
func (db *DB) AddBlockedPeriod(ctx context.Context, b schedule.BlockedPeriod) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	existing, err := db.ListBlocked(ctx, b.StylistID, b.Date)
	if err != nil {
		return 0, err
	}
	if err := schedule.ValidateBlocks(append(existing, b)); err != nil {
		return 0, err
	}

	var start, end interface{}
	if !b.FullDay {
		start, end = b.Window.Start.String(), b.Window.End.String()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO blocked_periods (stylist_id, date, is_full_day, start_time, end_time, reason)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.StylistID, b.Date.String(), b.FullDay, start, end, b.Reason,
	)
	if err != nil {
		return 0, fmt.Errorf("add blocked period: %w", err)
	}
	return res.LastInsertId()
}

// DeleteBlockedPeriod removes an exception by id.
func (db *DB) DeleteBlockedPeriod(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM blocked_periods WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete blocked period: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return err
}

// ListBlocked returns the stylist's exceptions for one date.
func (db *DB) ListBlocked(ctx context.Context, stylistID int64, date timewin.Date) ([]schedule.BlockedPeriod, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stylist_id, date, is_full_day, start_time, end_time, reason
		FROM blocked_periods
		WHERE stylist_id = ? AND date = ?
		ORDER BY is_full_day DESC, start_time`,
		stylistID, date.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked: %w", err)
	}
	defer rows.Close()
	return scanBlocked(rows)
}

// ListBlockedRange returns all stylists' exceptions within [from, to],
// inclusive. The TEXT date encoding sorts chronologically so a plain string
// comparison works.
func (db *DB) ListBlockedRange(ctx context.Context, from, to timewin.Date) ([]schedule.BlockedPeriod, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stylist_id, date, is_full_day, start_time, end_time, reason
		FROM blocked_periods
		WHERE date >= ? AND date <= ?
		ORDER BY date, stylist_id, start_time`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list blocked range: %w", err)
	}
	defer rows.Close()
	return scanBlocked(rows)
}

func scanBlocked(rows *sql.Rows) ([]schedule.BlockedPeriod, error) {
	var blocks []schedule.BlockedPeriod
	for rows.Next() {
		var (
			b          schedule.BlockedPeriod
			dateStr    string
			start, end sql.NullString
			reason     sql.NullString
		)
		if err := rows.Scan(&b.StylistID, &dateStr, &b.FullDay, &start, &end, &reason); err != nil {
			return nil, err
		}
		date, err := timewin.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("blocked period date: %w", err)
		}
		b.Date = date
		b.Reason = reason.String
		if !b.FullDay {
			s, err := timewin.ParseClock(start.String)
			if err != nil {
				return nil, fmt.Errorf("blocked period start: %w", err)
			}
			e, err := timewin.ParseClock(end.String)
			if err != nil {
				return nil, fmt.Errorf("blocked period end: %w", err)
			}
			b.Window = timewin.Window{Start: s, End: e}
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
