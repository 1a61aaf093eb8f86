package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/counseling-booking/internal/model"
)

// ScheduleRepo persists counselor time slots.  Dates and times are
// read back through DATE_FORMAT/TIME_FORMAT so the model carries the
// exact strings validation works with.
type ScheduleRepo struct{ db *sql.DB }

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

// ScheduleFilter narrows List.  Empty fields do not filter.
type ScheduleFilter struct {
	Status    *model.ScheduleStatus
	StartDate string
	EndDate   string
}

// ScheduleUpdate carries the optional columns of a slot edit.
type ScheduleUpdate struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Status    *model.ScheduleStatus
}

// Empty reports whether no column would be written.
func (u ScheduleUpdate) Empty() bool {
	return u.Date == nil && u.StartTime == nil && u.EndTime == nil && u.Status == nil
}

const scheduleCols = `s.id, s.counselor_id, DATE_FORMAT(s.date, '%Y-%m-%d'),
	TIME_FORMAT(s.start_time, '%H:%i:%s'), TIME_FORMAT(s.end_time, '%H:%i:%s'),
	s.status, s.created_at, s.updated_at`

func scanSchedule(row interface{ Scan(...any) error }, extra ...any) (model.Schedule, error) {
	var s model.Schedule
	dest := append([]any{&s.ID, &s.CounselorID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Status, &s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return s, err
	}
	s.Duration = model.SlotMinutes(s.StartTime, s.EndTime)
	return s, nil
}

// CreateTx inserts a slot and returns the stored row.
func (r *ScheduleRepo) CreateTx(ctx context.Context, tx *sql.Tx, counselorID uint64, date, start, end string, status model.ScheduleStatus) (model.Schedule, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO schedules (counselor_id, date, start_time, end_time, status) VALUES (?,?,?,?,?)",
		counselorID, date, start, end, status)
	if err != nil {
		return model.Schedule{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Schedule{}, err
	}
	return r.get(ctx, tx, uint64(id), 0, false)
}

// get loads one slot.  A non-zero counselorID restricts the lookup to
// slots that counselor owns.
func (r *ScheduleRepo) get(ctx context.Context, q DBTX, id, counselorID uint64, lock bool) (model.Schedule, error) {
	query := "SELECT " + scheduleCols + " FROM schedules s WHERE s.id = ?"
	args := []any{id}
	if counselorID != 0 {
		query += " AND s.counselor_id = ?"
		args = append(args, counselorID)
	}
	if lock {
		query += " FOR UPDATE"
	}
	return scanSchedule(q.QueryRowContext(ctx, query, args...))
}

// GetOwned returns a slot owned by counselorID or sql.ErrNoRows.
func (r *ScheduleRepo) GetOwned(ctx context.Context, id, counselorID uint64) (model.Schedule, error) {
	return r.get(ctx, r.db, id, counselorID, false)
}

// GetOwnedForUpdateTx is GetOwned with a row lock held until tx ends.
func (r *ScheduleRepo) GetOwnedForUpdateTx(ctx context.Context, tx *sql.Tx, id, counselorID uint64) (model.Schedule, error) {
	return r.get(ctx, tx, id, counselorID, true)
}

// GetForUpdateTx row-locks any slot by id.
func (r *ScheduleRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Schedule, error) {
	return r.get(ctx, tx, id, 0, true)
}

// HasOverlapTx reports whether another slot of the counselor on date
// intersects [start, end).  excludeID skips the slot being edited; 0
// excludes nothing.
func (r *ScheduleRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, counselorID uint64, date, start, end string, excludeID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schedules
		  WHERE counselor_id = ? AND date = ? AND id <> ?
		    AND ((start_time < ? AND end_time > ?)
		      OR (start_time >= ? AND start_time < ?)
		      OR (end_time > ? AND end_time <= ?))`,
		counselorID, date, excludeID,
		end, start,
		start, end,
		start, end).Scan(&n)
	return n > 0, err
}

// UpdateTx writes the supplied columns of a slot.
func (r *ScheduleRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, u ScheduleUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *u.Date)
	}
	if u.StartTime != nil {
		sets = append(sets, "start_time = ?")
		args = append(args, *u.StartTime)
	}
	if u.EndTime != nil {
		sets = append(sets, "end_time = ?")
		args = append(args, *u.EndTime)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := tx.ExecContext(ctx, "UPDATE schedules SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return err
}

// SetStatusTx changes only the status column.
func (r *ScheduleRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.ScheduleStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE schedules SET status = ? WHERE id = ?", status, id)
	return err
}

// DeleteTx removes one slot.  Finished bookings that still point at it
// are removed with it.
func (r *ScheduleRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE schedule_id = ?", id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	return err
}

// DeleteByCounselorTx removes every slot of a counselor profile.
// Bookings on those slots must be deleted first.
func (r *ScheduleRepo) DeleteByCounselorTx(ctx context.Context, tx *sql.Tx, counselorID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE counselor_id = ?", counselorID)
	return err
}

// List returns a counselor's slots with the non-cancelled booking on
// each, ordered by date and start time.
func (r *ScheduleRepo) List(ctx context.Context, counselorID uint64, f ScheduleFilter) ([]model.ScheduleWithBooking, error) {
	query := "SELECT " + scheduleCols + `,
		b.id, b.status, b.topic, b.notes, u.name, u.email
		FROM schedules s
		LEFT JOIN bookings b ON b.schedule_id = s.id AND b.status <> 'cancelled'
		LEFT JOIN users u ON u.id = b.student_id
		WHERE s.counselor_id = ?`
	args := []any{counselorID}
	if f.Status != nil {
		query += " AND s.status = ?"
		args = append(args, *f.Status)
	}
	if f.StartDate != "" {
		query += " AND s.date >= ?"
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		query += " AND s.date <= ?"
		args = append(args, f.EndDate)
	}
	query += " ORDER BY s.date ASC, s.start_time ASC, b.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScheduleWithBooking{}
	seen := map[uint64]bool{}
	for rows.Next() {
		var (
			bookingID                           sql.NullInt64
			status, topic, notes, sName, sEmail sql.NullString
		)
		s, err := scanSchedule(rows, &bookingID, &status, &topic, &notes, &sName, &sEmail)
		if err != nil {
			return nil, err
		}
		// completed bookings also survive the join; keep the newest per slot
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		item := model.ScheduleWithBooking{Schedule: s}
		if bookingID.Valid {
			id := uint64(bookingID.Int64)
			item.BookingID = &id
			item.BookingStatus = nullStr(status)
			item.Topic = nullStr(topic)
			item.Notes = nullStr(notes)
			item.StudentName = nullStr(sName)
			item.StudentEmail = nullStr(sEmail)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListOpen returns a counselor's available slots from fromDate on that
// carry no active booking.
func (r *ScheduleRepo) ListOpen(ctx context.Context, counselorID uint64, fromDate string) ([]model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+scheduleCols+` FROM schedules s
		  WHERE s.counselor_id = ? AND s.status = 'available' AND s.date >= ?
		    AND NOT EXISTS (SELECT 1 FROM bookings b
		                     WHERE b.schedule_id = s.id AND b.status IN ('pending','confirmed'))
		  ORDER BY s.date ASC, s.start_time ASC`,
		counselorID, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
