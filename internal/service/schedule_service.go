package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/repository"
)

// ScheduleService manages a counselor's own time slots.
type ScheduleService struct {
	db         *sql.DB
	counselors *repository.CounselorRepo
	schedules  *repository.ScheduleRepo
	bookings   *repository.BookingRepo
	rules      SlotRules
	log        *zap.Logger
}

func NewScheduleService(db *sql.DB, c *repository.CounselorRepo, s *repository.ScheduleRepo, b *repository.BookingRepo, rules SlotRules, log *zap.Logger) *ScheduleService {
	return &ScheduleService{db: db, counselors: c, schedules: s, bookings: b, rules: rules, log: log}
}

// CreateScheduleInput is a new slot as submitted by a counselor.
type CreateScheduleInput struct {
	Date      string
	StartTime string
	EndTime   string
	Status    string
}

// UpdateScheduleInput holds the fields a counselor chose to change.
type UpdateScheduleInput struct {
	Date      *string
	StartTime *string
	EndTime   *string
	Status    *string
}

// ListSchedulesInput filters a counselor's slot list.
type ListSchedulesInput struct {
	Status    string
	StartDate string
	EndDate   string
}

var (
	errScheduleNotFound  = notFound("schedule not found")
	errProfileNotFound   = notFound("counselor profile not found")
	errScheduleOverlap   = conflict("schedule overlaps with an existing schedule")
	errScheduleHasActive = conflict("schedule has active booking")
)

func requireRole(caller model.Identity, r model.Role) error {
	if !caller.Is(r) {
		return forbidden(fmt.Sprintf("%s role required", r))
	}
	return nil
}

// Create validates and stores a new slot for the caller.
func (s *ScheduleService) Create(ctx context.Context, caller model.Identity, in CreateScheduleInput) (model.Schedule, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return model.Schedule{}, err
	}
	if strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.StartTime) == "" || strings.TrimSpace(in.EndTime) == "" {
		return model.Schedule{}, validation("date, start_time and end_time are required")
	}
	date, ok := NormalizeDate(in.Date)
	if !ok {
		return model.Schedule{}, validation("date must be YYYY-MM-DD")
	}
	if err := s.rules.checkNotPast(date); err != nil {
		return model.Schedule{}, err
	}
	start, okStart := NormalizeTime(in.StartTime)
	end, okEnd := NormalizeTime(in.EndTime)
	if !okStart || !okEnd {
		return model.Schedule{}, validation("times must be HH:MM or HH:MM:SS")
	}
	if err := s.rules.checkWindow(start, end); err != nil {
		return model.Schedule{}, err
	}
	status, err := settableStatus(in.Status, model.ScheduleAvailable)
	if err != nil {
		return model.Schedule{}, err
	}

	var out model.Schedule
	err = repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		counselorID, err := s.lockProfile(ctx, tx, caller)
		if err != nil {
			return err
		}
		overlap, err := s.schedules.HasOverlapTx(ctx, tx, counselorID, date, start, end, 0)
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if overlap {
			return errScheduleOverlap
		}
		out, err = s.schedules.CreateTx(ctx, tx, counselorID, date, start, end, status)
		if err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Schedule{}, err
	}
	s.log.Info("schedule created",
		zap.Uint64("schedule_id", out.ID),
		zap.Uint64("counselor_id", out.CounselorID),
		zap.String("date", out.Date),
		zap.String("start", out.StartTime),
		zap.String("end", out.EndTime))
	return out, nil
}

// Update edits a slot the caller owns.  Any change to date or times
// re-runs the full window and overlap validation against the merged
// values.
func (s *ScheduleService) Update(ctx context.Context, caller model.Identity, id uint64, in UpdateScheduleInput) (model.Schedule, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return model.Schedule{}, err
	}
	if in.Date == nil && in.StartTime == nil && in.EndTime == nil && in.Status == nil {
		return model.Schedule{}, validation("no fields to update")
	}

	var patch repository.ScheduleUpdate
	if in.Date != nil {
		d, ok := NormalizeDate(*in.Date)
		if !ok {
			return model.Schedule{}, validation("date must be YYYY-MM-DD")
		}
		patch.Date = &d
	}
	if in.StartTime != nil {
		t, ok := NormalizeTime(*in.StartTime)
		if !ok {
			return model.Schedule{}, validation("times must be HH:MM or HH:MM:SS")
		}
		patch.StartTime = &t
	}
	if in.EndTime != nil {
		t, ok := NormalizeTime(*in.EndTime)
		if !ok {
			return model.Schedule{}, validation("times must be HH:MM or HH:MM:SS")
		}
		patch.EndTime = &t
	}
	if in.Status != nil {
		st, err := settableStatus(*in.Status, "")
		if err != nil {
			return model.Schedule{}, err
		}
		patch.Status = &st
	}

	var out model.Schedule
	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		counselorID, err := s.lockProfile(ctx, tx, caller)
		if err != nil {
			return err
		}
		cur, err := s.schedules.GetOwnedForUpdateTx(ctx, tx, id, counselorID)
		if errors.Is(err, sql.ErrNoRows) {
			return errScheduleNotFound
		}
		if err != nil {
			return fmt.Errorf("load schedule: %w", err)
		}

		if patch.Date != nil || patch.StartTime != nil || patch.EndTime != nil {
			date := pick(patch.Date, cur.Date)
			start := pick(patch.StartTime, cur.StartTime)
			end := pick(patch.EndTime, cur.EndTime)
			if date != cur.Date {
				if err := s.rules.checkNotPast(date); err != nil {
					return err
				}
			}
			if err := s.rules.checkWindow(start, end); err != nil {
				return err
			}
			overlap, err := s.schedules.HasOverlapTx(ctx, tx, counselorID, date, start, end, cur.ID)
			if err != nil {
				return fmt.Errorf("check overlap: %w", err)
			}
			if overlap {
				return errScheduleOverlap
			}
		}

		if patch.Status != nil && *patch.Status != cur.Status {
			active, err := s.bookings.HasActiveTx(ctx, tx, cur.ID)
			if err != nil {
				return fmt.Errorf("check bookings: %w", err)
			}
			if active {
				return errScheduleHasActive
			}
		}

		if err := s.schedules.UpdateTx(ctx, tx, cur.ID, patch); err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		out, err = s.schedules.GetOwnedForUpdateTx(ctx, tx, cur.ID, counselorID)
		if err != nil {
			return fmt.Errorf("reload schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Schedule{}, err
	}
	s.log.Info("schedule updated", zap.Uint64("schedule_id", out.ID), zap.String("status", string(out.Status)))
	return out, nil
}

// Delete removes a slot the caller owns unless a pending or confirmed
// booking holds it.
func (s *ScheduleService) Delete(ctx context.Context, caller model.Identity, id uint64) error {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return err
	}
	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		counselorID, err := s.lockProfile(ctx, tx, caller)
		if err != nil {
			return err
		}
		if _, err := s.schedules.GetOwnedForUpdateTx(ctx, tx, id, counselorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errScheduleNotFound
			}
			return fmt.Errorf("load schedule: %w", err)
		}
		active, err := s.bookings.HasActiveTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("check bookings: %w", err)
		}
		if active {
			return errScheduleHasActive
		}
		if err := s.schedules.DeleteTx(ctx, tx, id); err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("schedule deleted", zap.Uint64("schedule_id", id), zap.Uint64("user_id", caller.UserID))
	return nil
}

// List returns the caller's slots with their current booking.
func (s *ScheduleService) List(ctx context.Context, caller model.Identity, in ListSchedulesInput) ([]model.ScheduleWithBooking, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return nil, err
	}
	var f repository.ScheduleFilter
	if st := strings.TrimSpace(in.Status); st != "" && st != "all" {
		status := model.ScheduleStatus(st)
		if !status.Valid() {
			return nil, validation("invalid status filter")
		}
		f.Status = &status
	}
	if in.StartDate != "" {
		d, ok := NormalizeDate(in.StartDate)
		if !ok {
			return nil, validation("start_date must be YYYY-MM-DD")
		}
		f.StartDate = d
	}
	if in.EndDate != "" {
		d, ok := NormalizeDate(in.EndDate)
		if !ok {
			return nil, validation("end_date must be YYYY-MM-DD")
		}
		f.EndDate = d
	}
	profile, err := profileOf(ctx, s.counselors, caller)
	if err != nil {
		return nil, err
	}
	out, err := s.schedules.List(ctx, profile.ID, f)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return out, nil
}

func (s *ScheduleService) lockProfile(ctx context.Context, tx *sql.Tx, caller model.Identity) (uint64, error) {
	id, err := s.counselors.LockByUserIDTx(ctx, tx, caller.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errProfileNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock counselor profile: %w", err)
	}
	return id, nil
}

// profileOf loads the caller's counselor profile.
func profileOf(ctx context.Context, repo *repository.CounselorRepo, caller model.Identity) (model.CounselorProfile, error) {
	p, err := repo.GetByUserID(ctx, caller.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return p, errProfileNotFound
	}
	if err != nil {
		return p, fmt.Errorf("load counselor profile: %w", err)
	}
	return p, nil
}

// settableStatus parses a status a counselor may set by hand.  booked
// is reserved for the booking flow.
func settableStatus(v string, def model.ScheduleStatus) (model.ScheduleStatus, error) {
	v = strings.TrimSpace(v)
	if v == "" && def != "" {
		return def, nil
	}
	switch st := model.ScheduleStatus(v); st {
	case model.ScheduleAvailable, model.ScheduleCancelled:
		return st, nil
	case model.ScheduleBooked:
		return "", validation("status booked is set by bookings only")
	}
	return "", validation("status must be available or cancelled")
}

func pick(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
