package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/queue"
	"github.com/iliyamo/counseling-booking/internal/repository"
)

// Default page sizes of the booking lists.
const (
	CounselorBookingsLimit = 5
	StudentBookingsLimit   = 10
	maxBookingsLimit       = 100
)

// BookingService moves bookings through their lifecycle and keeps each
// schedule's status in step with the booking that holds it.
type BookingService struct {
	db         *sql.DB
	counselors *repository.CounselorRepo
	schedules  *repository.ScheduleRepo
	bookings   *repository.BookingRepo
	events     EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

func NewBookingService(db *sql.DB, c *repository.CounselorRepo, s *repository.ScheduleRepo, b *repository.BookingRepo, events EventPublisher, log *zap.Logger) *BookingService {
	if events == nil {
		events = NopPublisher{}
	}
	return &BookingService{db: db, counselors: c, schedules: s, bookings: b, events: events, log: log, now: time.Now}
}

// CreateBookingInput is a student's request for a slot.
type CreateBookingInput struct {
	ScheduleID uint64
	Topic      string
	Notes      string
}

var (
	errBookingNotFound      = notFound("booking not found")
	errScheduleUnavailable  = conflict("schedule is not available")
	errScheduleAlreadyTaken = conflict("schedule already booked")
	errAccountRemoved       = forbidden("account no longer exists")
)

// Create books an available slot for the calling student.  The booking
// starts pending and the slot is marked booked in the same transaction.
func (s *BookingService) Create(ctx context.Context, caller model.Identity, in CreateBookingInput) (model.Booking, error) {
	if err := requireRole(caller, model.RoleStudent); err != nil {
		return model.Booking{}, err
	}
	topic := strings.TrimSpace(in.Topic)
	if in.ScheduleID == 0 || topic == "" {
		return model.Booking{}, validation("schedule_id and topic are required")
	}

	var (
		b    model.Booking
		slot model.Schedule
	)
	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		slot, err = s.schedules.GetForUpdateTx(ctx, tx, in.ScheduleID)
		if errors.Is(err, sql.ErrNoRows) {
			return errScheduleNotFound
		}
		if err != nil {
			return fmt.Errorf("lock schedule: %w", err)
		}
		if slot.Status != model.ScheduleAvailable {
			return errScheduleUnavailable
		}
		active, err := s.bookings.HasActiveTx(ctx, tx, slot.ID)
		if err != nil {
			return fmt.Errorf("check bookings: %w", err)
		}
		if active {
			return errScheduleAlreadyTaken
		}
		b, err = s.bookings.CreateTx(ctx, tx, caller.UserID, slot.ID, topic, strings.TrimSpace(in.Notes))
		if errors.Is(err, repository.ErrScheduleBooked) {
			return errScheduleAlreadyTaken
		}
		if errors.Is(err, repository.ErrMissingParent) {
			// The schedule is locked, so the student row is the one gone.
			return errAccountRemoved
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		if err := s.schedules.SetStatusTx(ctx, tx, slot.ID, model.ScheduleBooked); err != nil {
			return fmt.Errorf("mark schedule booked: %w", err)
		}
		slot.Status = model.ScheduleBooked
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("schedule_id", slot.ID),
		zap.Uint64("student_id", caller.UserID))
	ev := bookingEvent(b, slot, "", caller, s.now())
	ev.Type = queue.EventBookingCreated
	publishAfterCommit(ctx, s.events, s.log, ev)
	return b, nil
}

// Transition moves a booking on one of the caller's slots to target.
func (s *BookingService) Transition(ctx context.Context, caller model.Identity, bookingID uint64, target model.BookingStatus) (model.Booking, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return model.Booking{}, err
	}
	if !target.Valid() {
		return model.Booking{}, validation("invalid status")
	}
	profile, err := profileOf(ctx, s.counselors, caller)
	if err != nil {
		return model.Booking{}, err
	}
	return s.transition(ctx, caller, target, func(tx *sql.Tx) (model.Booking, error) {
		return s.bookings.GetForCounselorTx(ctx, tx, bookingID, profile.ID)
	})
}

// Action is the counselor's confirm/cancel shortcut over Transition.
func (s *BookingService) Action(ctx context.Context, caller model.Identity, bookingID uint64, action string) (model.Booking, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "confirm":
		return s.Transition(ctx, caller, bookingID, model.BookingConfirmed)
	case "cancel":
		return s.Transition(ctx, caller, bookingID, model.BookingCancelled)
	}
	return model.Booking{}, validation("invalid action")
}

// Cancel lets a student withdraw one of their own bookings.
func (s *BookingService) Cancel(ctx context.Context, caller model.Identity, bookingID uint64) (model.Booking, error) {
	if err := requireRole(caller, model.RoleStudent); err != nil {
		return model.Booking{}, err
	}
	return s.transition(ctx, caller, model.BookingCancelled, func(tx *sql.Tx) (model.Booking, error) {
		return s.bookings.GetForStudentTx(ctx, tx, bookingID, caller.UserID)
	})
}

// transition locks the booking returned by load, checks the transition
// table for the caller's role and syncs the schedule status.
func (s *BookingService) transition(ctx context.Context, caller model.Identity, target model.BookingStatus, load func(*sql.Tx) (model.Booking, error)) (model.Booking, error) {
	var (
		b    model.Booking
		slot model.Schedule
		from model.BookingStatus
	)
	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		b, err = load(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return errBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		from = b.Status
		if !model.CanTransition(from, target, caller.Role) {
			return &TransitionError{From: from, To: target}
		}
		slot, err = s.schedules.GetForUpdateTx(ctx, tx, b.ScheduleID)
		if err != nil {
			return fmt.Errorf("lock schedule: %w", err)
		}
		if err := s.bookings.SetStatusTx(ctx, tx, b.ID, target); err != nil {
			if errors.Is(err, repository.ErrScheduleBooked) {
				return errScheduleAlreadyTaken
			}
			return fmt.Errorf("update booking: %w", err)
		}
		b.Status = target

		var next model.ScheduleStatus
		switch target {
		case model.BookingCancelled:
			next = model.ScheduleAvailable
		case model.BookingConfirmed:
			next = model.ScheduleBooked
		}
		if next != "" && next != slot.Status {
			if err := s.schedules.SetStatusTx(ctx, tx, slot.ID, next); err != nil {
				return fmt.Errorf("update schedule: %w", err)
			}
			slot.Status = next
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.log.Info("booking status changed",
		zap.Uint64("booking_id", b.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor_role", string(caller.Role)),
		zap.Uint64("actor_id", caller.UserID))
	publishAfterCommit(ctx, s.events, s.log, bookingEvent(b, slot, from, caller, s.now()))
	return b, nil
}

// ListForCounselor returns bookings on the caller's slots.  limit
// defaults to CounselorBookingsLimit.
func (s *BookingService) ListForCounselor(ctx context.Context, caller model.Identity, status string, limit int) ([]model.BookingDetail, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return nil, err
	}
	st, err := bookingStatusFilter(status)
	if err != nil {
		return nil, err
	}
	profile, err := profileOf(ctx, s.counselors, caller)
	if err != nil {
		return nil, err
	}
	out, err := s.bookings.ListForCounselor(ctx, profile.ID, st, clampLimit(limit, CounselorBookingsLimit))
	if err != nil {
		return nil, fmt.Errorf("list counselor bookings: %w", err)
	}
	return out, nil
}

// ListForStudent returns the caller's bookings.  limit defaults to
// StudentBookingsLimit.
func (s *BookingService) ListForStudent(ctx context.Context, caller model.Identity, status string, limit int) ([]model.BookingDetail, error) {
	if err := requireRole(caller, model.RoleStudent); err != nil {
		return nil, err
	}
	st, err := bookingStatusFilter(status)
	if err != nil {
		return nil, err
	}
	out, err := s.bookings.ListForStudent(ctx, caller.UserID, st, clampLimit(limit, StudentBookingsLimit))
	if err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}
	return out, nil
}

func bookingStatusFilter(v string) (*model.BookingStatus, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "all" {
		return nil, nil
	}
	st := model.BookingStatus(v)
	if !st.Valid() {
		return nil, validation("invalid status filter")
	}
	return &st, nil
}

func clampLimit(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > maxBookingsLimit:
		return maxBookingsLimit
	}
	return limit
}
