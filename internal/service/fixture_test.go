package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/queue"
	"github.com/iliyamo/counseling-booking/internal/repository"
)

var (
	counselorCaller = model.Identity{UserID: 20, Name: "Coach", Email: "coach@school.test", Role: model.RoleCounselor}
	studentCaller   = model.Identity{UserID: 4, Name: "Stu", Email: "stu@school.test", Role: model.RoleStudent}
	otherStudent    = model.Identity{UserID: 5, Name: "Sam", Email: "sam@school.test", Role: model.RoleStudent}
	adminCaller     = model.Identity{UserID: 1, Name: "Admin", Email: "admin@school.test", Role: model.RoleAdmin}
)

type recordingPublisher struct{ events []queue.BookingEvent }

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	db         *sql.DB
	mock       sqlmock.Sqlmock
	users      *repository.UserRepo
	counselors *repository.CounselorRepo
	schedules  *repository.ScheduleRepo
	bookings   *repository.BookingRepo
	tokens     *repository.TokenRepo
	stats      *repository.StatsRepo
	events     *recordingPublisher
	rules      SlotRules
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	x := sqlx.NewDb(db, "sqlmock")
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &fixture{
		db:         db,
		mock:       mock,
		users:      repository.NewUserRepo(db),
		counselors: repository.NewCounselorRepo(x),
		schedules:  repository.NewScheduleRepo(db),
		bookings:   repository.NewBookingRepo(db),
		tokens:     repository.NewTokenRepo(db),
		stats:      repository.NewStatsRepo(x),
		events:     &recordingPublisher{},
		rules: SlotRules{
			MinMinutes: 30,
			MaxMinutes: 240,
			Location:   time.UTC,
			Now:        func() time.Time { return now },
		},
		now: now,
	}
}

func (f *fixture) scheduleService() *ScheduleService {
	return NewScheduleService(f.db, f.counselors, f.schedules, f.bookings, f.rules, zap.NewNop())
}

func (f *fixture) bookingService() *BookingService {
	s := NewBookingService(f.db, f.counselors, f.schedules, f.bookings, f.events, zap.NewNop())
	s.now = func() time.Time { return f.now }
	return s
}

func (f *fixture) userService() *UserService {
	return NewUserService(f.db, f.users, f.counselors, f.schedules, f.bookings, 4, zap.NewNop())
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	require.NoError(t, f.mock.ExpectationsWereMet())
}

var (
	scheduleCols = []string{"id", "counselor_id", "date", "start_time", "end_time", "status", "created_at", "updated_at"}
	bookingCols  = []string{"id", "student_id", "schedule_id", "topic", "notes", "status", "created_at", "updated_at"}
	profileCols  = []string{"id", "user_id", "bio", "specialization", "profile_picture", "created_at", "updated_at"}
	userCols     = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}
)

func (f *fixture) scheduleRow(id, counselorID int64, date, start, end string, status model.ScheduleStatus) *sqlmock.Rows {
	return sqlmock.NewRows(scheduleCols).AddRow(id, counselorID, date, start, end, string(status), f.now, f.now)
}

func (f *fixture) bookingRow(id, studentID, scheduleID int64, topic string, status model.BookingStatus) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(id, studentID, scheduleID, topic, "", string(status), f.now, f.now)
}

func (f *fixture) profileRow(id, userID int64) *sqlmock.Rows {
	return sqlmock.NewRows(profileCols).AddRow(id, userID, model.DefaultCounselorBio, nil, nil, f.now, f.now)
}

func (f *fixture) userRow(id int64, name, email, hash string, role model.Role) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).AddRow(id, name, email, hash, string(role), f.now, f.now)
}
