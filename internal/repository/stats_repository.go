package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/counseling-booking/internal/model"
)

// StatsRepo answers read-only dashboard queries.
type StatsRepo struct{ db *sqlx.DB }

func NewStatsRepo(db *sqlx.DB) *StatsRepo { return &StatsRepo{db: db} }

// CounselorStats counts a counselor's bookings and open slots.  today
// is the first date that counts as upcoming.
func (r *StatsRepo) CounselorStats(ctx context.Context, counselorID uint64, today string) (model.DashboardStats, error) {
	var st model.DashboardStats
	err := r.db.GetContext(ctx, &st, `
		SELECT
		  (SELECT COUNT(*) FROM bookings b JOIN schedules s ON s.id = b.schedule_id
		    WHERE s.counselor_id = ?) AS total_bookings,
		  (SELECT COUNT(*) FROM bookings b JOIN schedules s ON s.id = b.schedule_id
		    WHERE s.counselor_id = ? AND b.status = 'pending') AS pending_bookings,
		  (SELECT COUNT(*) FROM bookings b JOIN schedules s ON s.id = b.schedule_id
		    WHERE s.counselor_id = ? AND b.status = 'confirmed' AND s.date >= ?) AS upcoming_sessions,
		  (SELECT COUNT(*) FROM schedules s
		    WHERE s.counselor_id = ? AND s.status = 'available' AND s.date >= ?) AS available_slots`,
		counselorID, counselorID, counselorID, today, counselorID, today)
	return st, err
}
