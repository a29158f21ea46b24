// Package export renders day sheets: one Excel workbook per date with a
// sheet per stylist listing that day's appointments and blocked periods.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"velour/internal/model"
	"velour/internal/schedule"
	"velour/internal/timeline"
	"velour/internal/timewin"
)

// Store is the slice of persistence the exporter needs.
type Store interface {
	ListActiveStylists(ctx context.Context) ([]model.Stylist, error)
	ListAppointmentsByDate(ctx context.Context, date timewin.Date) ([]model.Appointment, error)
	ListBlockedRange(ctx context.Context, from, to timewin.Date) ([]schedule.BlockedPeriod, error)
}

// DaySheet builds the workbook for one date and writes it as xlsx.
type DaySheet struct {
	store Store
}

func NewDaySheet(store Store) *DaySheet {
	return &DaySheet{store: store}
}

var sheetHeader = []string{"Time", "Client", "Phone", "Services", "Total min", "In chair", "Status", "Comment"}

// Write renders the date's day sheet into w.
func (d *DaySheet) Write(ctx context.Context, date timewin.Date, w io.Writer) error {
	stylists, err := d.store.ListActiveStylists(ctx)
	if err != nil {
		return fmt.Errorf("load stylists: %w", err)
	}
	appts, err := d.store.ListAppointmentsByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}
	blocks, err := d.store.ListBlockedRange(ctx, date, date)
	if err != nil {
		return fmt.Errorf("load blocked periods: %w", err)
	}

	byStylist := make(map[int64][]model.Appointment)
	for _, a := range appts {
		byStylist[a.StylistID] = append(byStylist[a.StylistID], a)
	}
	blocksByStylist := make(map[int64][]schedule.BlockedPeriod)
	for _, b := range blocks {
		blocksByStylist[b.StylistID] = append(blocksByStylist[b.StylistID], b)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	first := true
	for _, s := range stylists {
		name := sheetName(s.Name)
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}

		row := 1
		if err := setRow(f, name, row, anySlice(sheetHeader)); err != nil {
			return err
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(sheetHeader), row)
		_ = f.SetCellStyle(name, start, end, bold)
		row++

		for _, b := range blocksByStylist[s.ID] {
			span := "all day"
			if !b.FullDay {
				span = fmt.Sprintf("%s-%s", b.Window.Start, b.Window.End)
			}
			if err := setRow(f, name, row, []interface{}{span, "", "", "BLOCKED", "", "", "", b.Reason}); err != nil {
				return err
			}
			row++
		}

		list := byStylist[s.ID]
		sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
		for _, a := range list {
			if err := setRow(f, name, row, appointmentRow(a)); err != nil {
				return err
			}
			row++
		}
	}

	if first {
		// No active stylists; ship the default empty sheet with a header.
		if err := setRow(f, "Sheet1", 1, anySlice(sheetHeader)); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func appointmentRow(a model.Appointment) []interface{} {
	names := make([]string, len(a.Services))
	for i, line := range a.Services {
		names[i] = line.Name
	}
	return []interface{}{
		fmt.Sprintf("%s-%s", a.Start, a.End),
		a.ClientName,
		a.ClientPhone,
		strings.Join(names, ", "),
		timeline.TotalDuration(a.Profiles()),
		inChair(a),
		a.Status,
		a.Comment,
	}
}

// inChair lists the hands-on phases of the visit. Gaps between phases are
// development time when the stylist is free for another client.
func inChair(a model.Appointment) string {
	occ := a.Timeline().Occupied
	spans := make([]string, len(occ))
	for i, w := range occ {
		spans[i] = fmt.Sprintf("%s-%s", w.Start, w.End)
	}
	return strings.Join(spans, ", ")
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func anySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// sheetName truncates to Excel's 31-char sheet name limit.
func sheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
