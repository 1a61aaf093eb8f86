package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/repository"
	"github.com/iliyamo/counseling-booking/internal/storage"
)

// ErrUploadsDisabled is returned by AvatarUploadURL when no bucket is
// configured.
var ErrUploadsDisabled = errors.New("uploads are not configured")

// AvatarPresigner signs direct uploads.  *storage.FilePresigner
// implements it.
type AvatarPresigner interface {
	PresignPut(ctx context.Context, key, contentType string) (storage.PresignedUpload, error)
}

// CounselorService is the counselor directory seen by every signed-in
// user, plus profile editing for the counselor who owns the profile.
type CounselorService struct {
	counselors *repository.CounselorRepo
	schedules  *repository.ScheduleRepo
	presigner  AvatarPresigner
	rules      SlotRules
}

// NewCounselorService wires the directory.  presigner may be nil.
func NewCounselorService(c *repository.CounselorRepo, s *repository.ScheduleRepo, presigner AvatarPresigner, rules SlotRules) *CounselorService {
	return &CounselorService{counselors: c, schedules: s, presigner: presigner, rules: rules}
}

// UpdateProfileInput carries a counselor's profile edit.  A nil
// ProfilePicture keeps the current picture.
type UpdateProfileInput struct {
	Bio            string
	Specialization *string
	ProfilePicture *string
}

var errCounselorNotFound = notFound("counselor not found")

// List returns every counselor with their count of open future slots.
func (s *CounselorService) List(ctx context.Context) ([]model.CounselorSummary, error) {
	out, err := s.counselors.List(ctx, s.rules.Today())
	if err != nil {
		return nil, fmt.Errorf("list counselors: %w", err)
	}
	return out, nil
}

// Get returns one counselor.
func (s *CounselorService) Get(ctx context.Context, id uint64) (model.CounselorSummary, error) {
	out, err := s.counselors.GetSummary(ctx, id, s.rules.Today())
	if errors.Is(err, sql.ErrNoRows) {
		return out, errCounselorNotFound
	}
	if err != nil {
		return out, fmt.Errorf("load counselor: %w", err)
	}
	return out, nil
}

// OpenSlots lists a counselor's bookable slots from startDate on.  An
// empty or past startDate means today.
func (s *CounselorService) OpenSlots(ctx context.Context, id uint64, startDate string) ([]model.Schedule, error) {
	today := s.rules.Today()
	from := today
	if startDate != "" {
		d, ok := NormalizeDate(startDate)
		if !ok {
			return nil, validation("start_date must be YYYY-MM-DD")
		}
		if d > today {
			from = d
		}
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.schedules.ListOpen(ctx, id, from)
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	return out, nil
}

// UpdateProfile edits the caller's own profile.
func (s *CounselorService) UpdateProfile(ctx context.Context, caller model.Identity, id uint64, in UpdateProfileInput) (model.CounselorSummary, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return model.CounselorSummary{}, err
	}
	bio := strings.TrimSpace(in.Bio)
	if bio == "" {
		return model.CounselorSummary{}, validation("bio is required")
	}
	profile, err := profileOf(ctx, s.counselors, caller)
	if err != nil {
		return model.CounselorSummary{}, err
	}
	if profile.ID != id {
		return model.CounselorSummary{}, errCounselorNotFound
	}
	if _, err := s.counselors.UpdateProfile(ctx, id, caller.UserID, bio, trimmed(in.Specialization), trimmed(in.ProfilePicture)); err != nil {
		return model.CounselorSummary{}, fmt.Errorf("update profile: %w", err)
	}
	return s.Get(ctx, id)
}

// AvatarUploadURL presigns an upload slot for the caller's picture.
func (s *CounselorService) AvatarUploadURL(ctx context.Context, caller model.Identity) (storage.PresignedUpload, error) {
	if err := requireRole(caller, model.RoleCounselor); err != nil {
		return storage.PresignedUpload{}, err
	}
	if s.presigner == nil {
		return storage.PresignedUpload{}, ErrUploadsDisabled
	}
	key := fmt.Sprintf("counselor-avatars/%d/%s.jpg", caller.UserID, uuid.NewString())
	up, err := s.presigner.PresignPut(ctx, key, "image/jpeg")
	if err != nil {
		return storage.PresignedUpload{}, fmt.Errorf("presign avatar upload: %w", err)
	}
	return up, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
