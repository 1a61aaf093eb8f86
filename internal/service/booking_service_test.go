package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/queue"
)

var (
	qInsertBooking     = regexp.QuoteMeta("INSERT INTO bookings")
	qBookingByID       = regexp.QuoteMeta("FROM bookings b WHERE b.id = ?")
	qCounselorBooking  = regexp.QuoteMeta("WHERE b.id = ? AND s.counselor_id = ? FOR UPDATE")
	qStudentBooking    = regexp.QuoteMeta("WHERE b.id = ? AND b.student_id = ? FOR UPDATE")
	qBookingStatus     = regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id = ?")
	qListForCounselor  = regexp.QuoteMeta("WHERE s.counselor_id = ? ORDER BY s.date DESC, s.start_time DESC LIMIT ?")
	qListForStudentAll = regexp.QuoteMeta("WHERE b.student_id = ? ORDER BY s.date DESC, s.start_time DESC LIMIT ?")
)

func (f *fixture) expectBookingCreate(studentID int64) {
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qSlotLock).WithArgs(11).
		WillReturnRows(f.scheduleRow(11, 3, "2025-06-10", "09:00:00", "09:30:00", model.ScheduleAvailable))
	f.mock.ExpectQuery(qActiveCount).WithArgs(11).WillReturnRows(countRow(0))
	f.mock.ExpectExec(qInsertBooking).
		WithArgs(studentID, 11, "Career advice", "", "pending").
		WillReturnResult(sqlmock.NewResult(9, 1))
	f.mock.ExpectQuery(qBookingByID).WithArgs(9).
		WillReturnRows(f.bookingRow(9, studentID, 11, "Career advice", model.BookingPending))
	f.mock.ExpectExec(qSlotStatus).WithArgs("booked", 11).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
}

func (f *fixture) expectCounselorTransition(from model.BookingStatus, slot model.ScheduleStatus, to model.BookingStatus, nextSlot model.ScheduleStatus) {
	f.mock.ExpectQuery(qProfile).WithArgs(20).WillReturnRows(f.profileRow(3, 20))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qCounselorBooking).WithArgs(9, 3).
		WillReturnRows(f.bookingRow(9, 4, 11, "Career advice", from))
	f.mock.ExpectQuery(qSlotLock).WithArgs(11).
		WillReturnRows(f.scheduleRow(11, 3, "2025-06-10", "09:00:00", "09:30:00", slot))
	f.mock.ExpectExec(qBookingStatus).WithArgs(string(to), 9).WillReturnResult(sqlmock.NewResult(0, 1))
	if nextSlot != "" {
		f.mock.ExpectExec(qSlotStatus).WithArgs(string(nextSlot), 11).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	f.mock.ExpectCommit()
}

func TestBookingService_Create_PendingAndSlotBooked(t *testing.T) {
	f := newFixture(t)
	f.expectBookingCreate(4)

	b, err := f.bookingService().Create(context.Background(), studentCaller, CreateBookingInput{ScheduleID: 11, Topic: " Career advice "})
	require.NoError(t, err)
	require.Equal(t, model.BookingPending, b.Status)
	require.Equal(t, uint64(9), b.ID)
	require.Len(t, f.events.events, 1)
	require.Equal(t, queue.EventBookingCreated, f.events.events[0].Type)
	require.Equal(t, uint64(3), f.events.events[0].CounselorID)
	f.verify(t)
}

func TestBookingService_Create_SecondStudentSeesUnavailable(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qSlotLock).WithArgs(11).
		WillReturnRows(f.scheduleRow(11, 3, "2025-06-10", "09:00:00", "09:30:00", model.ScheduleBooked))
	f.mock.ExpectRollback()

	_, err := f.bookingService().Create(context.Background(), otherStudent, CreateBookingInput{ScheduleID: 11, Topic: "Career advice"})
	require.True(t, IsKind(err, KindConflict))
	require.Equal(t, "schedule is not available", err.Error())
	require.Empty(t, f.events.events)
	f.verify(t)
}

func TestBookingService_Create_ActiveBookingOnAvailableSlot(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qSlotLock).
		WillReturnRows(f.scheduleRow(11, 3, "2025-06-10", "09:00:00", "09:30:00", model.ScheduleAvailable))
	f.mock.ExpectQuery(qActiveCount).WillReturnRows(countRow(1))
	f.mock.ExpectRollback()

	_, err := f.bookingService().Create(context.Background(), studentCaller, CreateBookingInput{ScheduleID: 11, Topic: "x"})
	require.True(t, IsKind(err, KindConflict))
	require.Equal(t, "schedule already booked", err.Error())
	f.verify(t)
}

func TestBookingService_Create_UniqueIndexRace(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qSlotLock).
		WillReturnRows(f.scheduleRow(11, 3, "2025-06-10", "09:00:00", "09:30:00", model.ScheduleAvailable))
	f.mock.ExpectQuery(qActiveCount).WillReturnRows(countRow(0))
	f.mock.ExpectExec(qInsertBooking).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '11' for key 'bookings.uq_bookings_active_schedule'"})
	f.mock.ExpectRollback()

	_, err := f.bookingService().Create(context.Background(), studentCaller, CreateBookingInput{ScheduleID: 11, Topic: "x"})
	require.True(t, IsKind(err, KindConflict))
	f.verify(t)
}

func TestBookingService_Create_StudentDeletedMidSession(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qSlotLock).
		WillReturnRows(f.scheduleRow(11, 3, "2025-06-10", "09:00:00", "09:30:00", model.ScheduleAvailable))
	f.mock.ExpectQuery(qActiveCount).WillReturnRows(countRow(0))
	f.mock.ExpectExec(qInsertBooking).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails (`counseling`.`bookings`, CONSTRAINT `fk_bookings_student`)"})
	f.mock.ExpectRollback()

	_, err := f.bookingService().Create(context.Background(), studentCaller, CreateBookingInput{ScheduleID: 11, Topic: "x"})
	require.True(t, IsKind(err, KindAuthorization))
	require.Equal(t, "account no longer exists", err.Error())
	f.verify(t)
}

func TestBookingService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	svc := f.bookingService()

	_, err := svc.Create(context.Background(), studentCaller, CreateBookingInput{ScheduleID: 11, Topic: "  "})
	require.True(t, IsKind(err, KindValidation))
	_, err = svc.Create(context.Background(), studentCaller, CreateBookingInput{Topic: "x"})
	require.True(t, IsKind(err, KindValidation))
	_, err = svc.Create(context.Background(), counselorCaller, CreateBookingInput{ScheduleID: 11, Topic: "x"})
	require.True(t, IsKind(err, KindAuthorization))
	f.verify(t)
}

func TestBookingService_Create_MissingSchedule(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qSlotLock).WillReturnRows(sqlmock.NewRows(scheduleCols))
	f.mock.ExpectRollback()

	_, err := f.bookingService().Create(context.Background(), studentCaller, CreateBookingInput{ScheduleID: 404, Topic: "x"})
	require.True(t, IsKind(err, KindNotFound))
	f.verify(t)
}

func TestBookingService_Confirm_ThenBackToPendingFails(t *testing.T) {
	f := newFixture(t)
	svc := f.bookingService()

	f.expectCounselorTransition(model.BookingPending, model.ScheduleBooked, model.BookingConfirmed, "")
	b, err := svc.Transition(context.Background(), counselorCaller, 9, model.BookingConfirmed)
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, b.Status)
	require.Equal(t, queue.EventBookingConfirmed, f.events.events[0].Type)
	require.Equal(t, "pending", f.events.events[0].From)

	f.mock.ExpectQuery(qProfile).WillReturnRows(f.profileRow(3, 20))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qCounselorBooking).WithArgs(9, 3).
		WillReturnRows(f.bookingRow(9, 4, 11, "Career advice", model.BookingConfirmed))
	f.mock.ExpectRollback()

	_, err = svc.Transition(context.Background(), counselorCaller, 9, model.BookingPending)
	var te *TransitionError
	require.True(t, errors.As(err, &te), "got %v", err)
	require.Equal(t, model.BookingConfirmed, te.From)
	require.Equal(t, model.BookingPending, te.To)
	require.Len(t, f.events.events, 1)
	f.verify(t)
}

func TestBookingService_CancelConfirmed_FreesSlotForNewStudent(t *testing.T) {
	f := newFixture(t)
	svc := f.bookingService()

	f.expectCounselorTransition(model.BookingConfirmed, model.ScheduleBooked, model.BookingCancelled, model.ScheduleAvailable)
	b, err := svc.Action(context.Background(), counselorCaller, 9, "cancel")
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, b.Status)

	f.expectBookingCreate(5)
	nb, err := svc.Create(context.Background(), otherStudent, CreateBookingInput{ScheduleID: 11, Topic: "Career advice"})
	require.NoError(t, err)
	require.Equal(t, model.BookingPending, nb.Status)
	f.verify(t)
}

func TestBookingService_Complete_LeavesSlotAlone(t *testing.T) {
	f := newFixture(t)
	f.expectCounselorTransition(model.BookingConfirmed, model.ScheduleBooked, model.BookingCompleted, "")

	b, err := f.bookingService().Transition(context.Background(), counselorCaller, 9, model.BookingCompleted)
	require.NoError(t, err)
	require.Equal(t, model.BookingCompleted, b.Status)
	f.verify(t)
}

func TestBookingService_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []model.BookingStatus{model.BookingCompleted, model.BookingCancelled} {
		for _, to := range []model.BookingStatus{model.BookingPending, model.BookingConfirmed, model.BookingCompleted, model.BookingCancelled} {
			f := newFixture(t)
			f.mock.ExpectQuery(qProfile).WillReturnRows(f.profileRow(3, 20))
			f.mock.ExpectBegin()
			f.mock.ExpectQuery(qCounselorBooking).WillReturnRows(f.bookingRow(9, 4, 11, "t", from))
			f.mock.ExpectRollback()

			_, err := f.bookingService().Transition(context.Background(), counselorCaller, 9, to)
			var te *TransitionError
			require.True(t, errors.As(err, &te), "%s -> %s: %v", from, to, err)
			f.verify(t)
		}
	}
}

func TestBookingService_Action_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.bookingService().Action(context.Background(), counselorCaller, 9, "complete")
	require.True(t, IsKind(err, KindValidation))
	f.verify(t)
}

func TestBookingService_Transition_OtherCounselorsBooking(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(qProfile).WillReturnRows(f.profileRow(3, 20))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qCounselorBooking).WithArgs(77, 3).WillReturnRows(sqlmock.NewRows(bookingCols))
	f.mock.ExpectRollback()

	_, err := f.bookingService().Transition(context.Background(), counselorCaller, 77, model.BookingConfirmed)
	require.True(t, IsKind(err, KindNotFound))
	f.verify(t)
}

func TestBookingService_StudentCancel(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qStudentBooking).WithArgs(9, 4).
		WillReturnRows(f.bookingRow(9, 4, 11, "Career advice", model.BookingPending))
	f.mock.ExpectQuery(qSlotLock).WithArgs(11).
		WillReturnRows(f.scheduleRow(11, 3, "2025-06-10", "09:00:00", "09:30:00", model.ScheduleBooked))
	f.mock.ExpectExec(qBookingStatus).WithArgs("cancelled", 9).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(qSlotStatus).WithArgs("available", 11).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	b, err := f.bookingService().Cancel(context.Background(), studentCaller, 9)
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, b.Status)
	require.Equal(t, "student", f.events.events[0].ActorRole)
	f.verify(t)
}

func TestBookingService_StudentCannotCancelConfirmed(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qStudentBooking).
		WillReturnRows(f.bookingRow(9, 4, 11, "Career advice", model.BookingConfirmed))
	f.mock.ExpectRollback()

	_, err := f.bookingService().Cancel(context.Background(), studentCaller, 9)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	f.verify(t)
}

func TestBookingService_ListLimits(t *testing.T) {
	f := newFixture(t)
	detailCols := []string{"id", "schedule_id", "topic", "notes", "status", "created_at", "date", "start", "end",
		"sstatus", "counselor_id", "uid", "name", "email", "photo"}

	f.mock.ExpectQuery(qProfile).WillReturnRows(f.profileRow(3, 20))
	f.mock.ExpectQuery(qListForCounselor).WithArgs(3, CounselorBookingsLimit).
		WillReturnRows(sqlmock.NewRows(detailCols))
	_, err := f.bookingService().ListForCounselor(context.Background(), counselorCaller, "all", 0)
	require.NoError(t, err)

	f.mock.ExpectQuery(qListForStudentAll).WithArgs(4, 100).
		WillReturnRows(sqlmock.NewRows(detailCols))
	_, err = f.bookingService().ListForStudent(context.Background(), studentCaller, "", 5000)
	require.NoError(t, err)

	_, err = f.bookingService().ListForStudent(context.Background(), studentCaller, "lost", 0)
	require.True(t, IsKind(err, KindValidation))
	f.verify(t)
}
