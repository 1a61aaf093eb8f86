package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/counseling-booking/internal/model"
)

// BookingRepo persists bookings.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const activeBookingIndex = "uq_bookings_active_schedule"

const bookingCols = "b.id, b.student_id, b.schedule_id, b.topic, b.notes, b.status, b.created_at, b.updated_at"

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.StudentID, &b.ScheduleID, &b.Topic, &b.Notes, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// HasActiveTx reports whether a pending or confirmed booking holds the
// schedule.
func (r *BookingRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, scheduleID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE schedule_id = ? AND status IN ('pending','confirmed')",
		scheduleID).Scan(&n)
	return n > 0, err
}

// CreateTx inserts a pending booking and returns the stored row.  A
// collision on the active-booking index yields ErrScheduleBooked.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, studentID, scheduleID uint64, topic, notes string) (model.Booking, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (student_id, schedule_id, topic, notes, status) VALUES (?,?,?,?,?)",
		studentID, scheduleID, topic, notes, model.BookingPending)
	if err != nil {
		if duplicateKey(err, activeBookingIndex) {
			return model.Booking{}, ErrScheduleBooked
		}
		if missingParent(err) {
			return model.Booking{}, ErrMissingParent
		}
		return model.Booking{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Booking{}, err
	}
	return scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings b WHERE b.id = ?", id))
}

// GetForCounselorTx row-locks a booking whose schedule belongs to
// counselorID.  Bookings of other counselors are reported as
// sql.ErrNoRows.
func (r *BookingRepo) GetForCounselorTx(ctx context.Context, tx *sql.Tx, id, counselorID uint64) (model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingCols+` FROM bookings b
		   JOIN schedules s ON s.id = b.schedule_id
		  WHERE b.id = ? AND s.counselor_id = ?
		  FOR UPDATE`, id, counselorID))
}

// GetForStudentTx row-locks a booking made by studentID.
func (r *BookingRepo) GetForStudentTx(ctx context.Context, tx *sql.Tx, id, studentID uint64) (model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings b WHERE b.id = ? AND b.student_id = ? FOR UPDATE",
		id, studentID))
}

// SetStatusTx changes a booking's status.
func (r *BookingRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx, "UPDATE bookings SET status = ? WHERE id = ?", status, id)
	if duplicateKey(err, activeBookingIndex) {
		return ErrScheduleBooked
	}
	return err
}

// DeleteByStudentTx removes every booking a student made and returns
// the schedules those active bookings were holding.
func (r *BookingRepo) DeleteByStudentTx(ctx context.Context, tx *sql.Tx, studentID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT schedule_id FROM bookings WHERE student_id = ? AND status IN ('pending','confirmed') FOR UPDATE",
		studentID)
	if err != nil {
		return nil, err
	}
	var held []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		held = append(held, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE student_id = ?", studentID); err != nil {
		return nil, err
	}
	return held, nil
}

// DeleteByCounselorTx removes every booking on a counselor's schedules.
func (r *BookingRepo) DeleteByCounselorTx(ctx context.Context, tx *sql.Tx, counselorID uint64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE b FROM bookings b
		   JOIN schedules s ON s.id = b.schedule_id
		  WHERE s.counselor_id = ?`, counselorID)
	return err
}

const bookingDetailCols = `b.id, b.schedule_id, b.topic, b.notes, b.status, b.created_at,
	DATE_FORMAT(s.date, '%Y-%m-%d'), TIME_FORMAT(s.start_time, '%H:%i:%s'),
	TIME_FORMAT(s.end_time, '%H:%i:%s'), s.status, s.counselor_id`

// ListForCounselor returns bookings on a counselor's schedules joined
// with the student, newest slot first.
func (r *BookingRepo) ListForCounselor(ctx context.Context, counselorID uint64, status *model.BookingStatus, limit int) ([]model.BookingDetail, error) {
	query := "SELECT " + bookingDetailCols + `, u.id, u.name, u.email, NULL
		FROM bookings b
		JOIN schedules s ON s.id = b.schedule_id
		JOIN users u ON u.id = b.student_id
		WHERE s.counselor_id = ?`
	return r.listDetails(ctx, query, counselorID, status, limit)
}

// ListForStudent returns a student's bookings joined with the
// counselor, newest slot first.
func (r *BookingRepo) ListForStudent(ctx context.Context, studentID uint64, status *model.BookingStatus, limit int) ([]model.BookingDetail, error) {
	query := "SELECT " + bookingDetailCols + `, u.id, u.name, u.email, c.profile_picture
		FROM bookings b
		JOIN schedules s ON s.id = b.schedule_id
		JOIN counselors c ON c.id = s.counselor_id
		JOIN users u ON u.id = c.user_id
		WHERE b.student_id = ?`
	return r.listDetails(ctx, query, studentID, status, limit)
}

func (r *BookingRepo) listDetails(ctx context.Context, query string, ownerID uint64, status *model.BookingStatus, limit int) ([]model.BookingDetail, error) {
	args := []any{ownerID}
	if status != nil {
		query += " AND b.status = ?"
		args = append(args, *status)
	}
	query += " ORDER BY s.date DESC, s.start_time DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		var (
			d     model.BookingDetail
			photo sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.ScheduleID, &d.Topic, &d.Notes, &d.Status, &d.CreatedAt,
			&d.Date, &d.StartTime, &d.EndTime, &d.ScheduleStatus, &d.CounselorID,
			&d.CounterpartID, &d.CounterpartName, &d.CounterpartEmail, &photo); err != nil {
			return nil, err
		}
		d.CounselorPhoto = nullStr(photo)
		out = append(out, d)
	}
	return out, rows.Err()
}
