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
	"github.com/iliyamo/counseling-booking/internal/utils"
)

// UserService is the admin user directory plus public registration.
// Role changes cascade to counselor profiles and their slots.
type UserService struct {
	db         *sql.DB
	users      *repository.UserRepo
	counselors *repository.CounselorRepo
	schedules  *repository.ScheduleRepo
	bookings   *repository.BookingRepo
	bcryptCost int
	log        *zap.Logger
}

func NewUserService(db *sql.DB, u *repository.UserRepo, c *repository.CounselorRepo, s *repository.ScheduleRepo, b *repository.BookingRepo, bcryptCost int, log *zap.Logger) *UserService {
	return &UserService{db: db, users: u, counselors: c, schedules: s, bookings: b, bcryptCost: bcryptCost, log: log}
}

// CreateUserInput is a new account as entered by an admin.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UpdateUserInput holds the fields an admin chose to change.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}

// RegisterInput is a public sign-up.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

var (
	errUserNotFound = notFound("user not found")
	errEmailTaken   = conflict("email already registered")
)

// List returns users newest first, optionally limited to one role.
func (s *UserService) List(ctx context.Context, caller model.Identity, role string) ([]model.User, error) {
	if err := requireRole(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	var filter *model.Role
	if v := strings.TrimSpace(role); v != "" && v != "all" {
		r := model.Role(v)
		if !r.Valid() {
			return nil, validation("invalid role")
		}
		filter = &r
	}
	out, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, caller model.Identity, id uint64) (model.User, error) {
	if err := requireRole(caller, model.RoleAdmin); err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return u, errUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// Create adds an account.  Counselors get a profile with the default bio.
func (s *UserService) Create(ctx context.Context, caller model.Identity, in CreateUserInput) (uint64, error) {
	if err := requireRole(caller, model.RoleAdmin); err != nil {
		return 0, err
	}
	if blank(in.Name) || blank(in.Email) || in.Password == "" || blank(in.Role) {
		return 0, validation("name, email, password and role are required")
	}
	role := model.Role(strings.TrimSpace(in.Role))
	if !role.Valid() {
		return 0, validation("invalid role")
	}
	id, err := s.create(ctx, in.Name, in.Email, in.Password, role)
	if err != nil {
		return 0, err
	}
	s.log.Info("user created", zap.Uint64("user_id", id), zap.String("role", string(role)), zap.Uint64("by", caller.UserID))
	return id, nil
}

// Register creates a student account for an anonymous visitor and
// returns its identity.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (model.Identity, error) {
	if blank(in.Name) || blank(in.Email) || in.Password == "" {
		return model.Identity{}, validation("name, email and password are required")
	}
	id, err := s.create(ctx, in.Name, in.Email, in.Password, model.RoleStudent)
	if err != nil {
		return model.Identity{}, err
	}
	s.log.Info("student registered", zap.Uint64("user_id", id))
	return model.Identity{
		UserID: id,
		Name:   strings.TrimSpace(in.Name),
		Email:  repository.NormalizeEmail(in.Email),
		Role:   model.RoleStudent,
	}, nil
}

func (s *UserService) create(ctx context.Context, name, email, password string, role model.Role) (uint64, error) {
	if err := checkPassword(password); err != nil {
		return 0, err
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	var id uint64
	err = repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		id, err = s.users.CreateTx(ctx, tx, name, email, hash, role)
		if errors.Is(err, repository.ErrEmailExists) {
			return errEmailTaken
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if role == model.RoleCounselor {
			if _, err := s.counselors.CreateTx(ctx, tx, id, model.DefaultCounselorBio); err != nil {
				return fmt.Errorf("insert counselor profile: %w", err)
			}
		}
		return nil
	})
	return id, err
}

// Update edits an account and applies role cascades.  It returns the
// number of user rows the database reports as changed.
func (s *UserService) Update(ctx context.Context, caller model.Identity, id uint64, in UpdateUserInput) (int64, error) {
	if err := requireRole(caller, model.RoleAdmin); err != nil {
		return 0, err
	}
	if in.Name == nil && in.Email == nil && in.Password == nil && in.Role == nil {
		return 0, validation("no fields to update")
	}
	var patch repository.UserUpdate
	if in.Name != nil {
		if blank(*in.Name) {
			return 0, validation("name cannot be empty")
		}
		patch.Name = in.Name
	}
	if in.Email != nil {
		if blank(*in.Email) {
			return 0, validation("email cannot be empty")
		}
		patch.Email = in.Email
	}
	if in.Password != nil {
		if *in.Password == "" {
			return 0, validation("password cannot be empty")
		}
		if err := checkPassword(*in.Password); err != nil {
			return 0, err
		}
		hash, err := utils.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return 0, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}
	if in.Role != nil {
		r := model.Role(strings.TrimSpace(*in.Role))
		if !r.Valid() {
			return 0, validation("invalid role")
		}
		patch.Role = &r
	}

	var affected int64
	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := s.users.GetForUpdateTx(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return errUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		if patch.Email != nil {
			taken, err := s.users.EmailTakenTx(ctx, tx, *patch.Email, id)
			if err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if taken {
				return errEmailTaken
			}
		}
		affected, err = s.users.UpdateTx(ctx, tx, id, patch)
		if errors.Is(err, repository.ErrEmailExists) {
			return errEmailTaken
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if patch.Role == nil || *patch.Role == cur.Role {
			return nil
		}
		if cur.Role == model.RoleCounselor {
			return s.removeCounselorProfile(ctx, tx, id)
		}
		if *patch.Role == model.RoleCounselor {
			return s.ensureCounselorProfile(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("user updated", zap.Uint64("user_id", id), zap.Int64("affected", affected), zap.Uint64("by", caller.UserID))
	return affected, nil
}

// Delete removes an account after its dependent rows: a counselor's
// profile with its slots and their bookings, or a student's bookings.
// Slots a deleted student was holding become available again.
func (s *UserService) Delete(ctx context.Context, caller model.Identity, id uint64) (int64, error) {
	if err := requireRole(caller, model.RoleAdmin); err != nil {
		return 0, err
	}
	var affected int64
	err := repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := s.users.GetForUpdateTx(ctx, tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return errUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		switch cur.Role {
		case model.RoleCounselor:
			if err := s.removeCounselorProfile(ctx, tx, id); err != nil {
				return err
			}
		case model.RoleStudent:
			held, err := s.bookings.DeleteByStudentTx(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("delete student bookings: %w", err)
			}
			for _, sid := range held {
				if err := s.schedules.SetStatusTx(ctx, tx, sid, model.ScheduleAvailable); err != nil {
					return fmt.Errorf("release schedule: %w", err)
				}
			}
		}
		affected, err = s.users.DeleteTx(ctx, tx, id)
		if errors.Is(err, repository.ErrConflict) {
			return conflict("user still has dependent records")
		}
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("user deleted", zap.Uint64("user_id", id), zap.Uint64("by", caller.UserID))
	return affected, nil
}

func (s *UserService) removeCounselorProfile(ctx context.Context, tx *sql.Tx, userID uint64) error {
	profileID, err := s.counselors.LockByUserIDTx(ctx, tx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock counselor profile: %w", err)
	}
	if err := s.bookings.DeleteByCounselorTx(ctx, tx, profileID); err != nil {
		return fmt.Errorf("delete counselor bookings: %w", err)
	}
	if err := s.schedules.DeleteByCounselorTx(ctx, tx, profileID); err != nil {
		return fmt.Errorf("delete counselor schedules: %w", err)
	}
	if err := s.counselors.DeleteTx(ctx, tx, profileID); err != nil {
		return fmt.Errorf("delete counselor profile: %w", err)
	}
	return nil
}

func (s *UserService) ensureCounselorProfile(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := s.counselors.LockByUserIDTx(ctx, tx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lock counselor profile: %w", err)
	}
	if _, err := s.counselors.CreateTx(ctx, tx, userID, model.DefaultCounselorBio); err != nil {
		return fmt.Errorf("insert counselor profile: %w", err)
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func checkPassword(p string) error {
	if len(p) > utils.MaxPasswordBytes {
		return validation("password must be at most %d bytes", utils.MaxPasswordBytes)
	}
	return nil
}
