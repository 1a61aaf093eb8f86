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
	"github.com/iliyamo/counseling-booking/internal/repository"
	"github.com/iliyamo/counseling-booking/internal/utils"
)

// ErrInvalidRefresh is returned for unknown, expired, revoked or reused
// refresh tokens.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// Session is a signed access token and a fresh refresh token for one
// identity.
type Session struct {
	Identity model.Identity
	Access   utils.AccessToken
	Refresh  utils.RefreshToken
}

// AuthService verifies credentials and issues and rotates sessions.
type AuthService struct {
	users          *repository.UserRepo
	tokens         *repository.TokenRepo
	secret         string
	accessTTLMin   int
	refreshTTLDays int
	pad            *utils.PasswordPad
	log            *zap.Logger
	now            func() time.Time
}

func NewAuthService(u *repository.UserRepo, t *repository.TokenRepo, secret string, accessTTLMin, refreshTTLDays, bcryptCost int, log *zap.Logger) *AuthService {
	return &AuthService{
		users:          u,
		tokens:         t,
		secret:         secret,
		accessTTLMin:   accessTTLMin,
		refreshTTLDays: refreshTTLDays,
		pad:            utils.NewPasswordPad(bcryptCost),
		log:            log,
		now:            time.Now,
	}
}

// Authenticate checks an email/password pair against the stored bcrypt
// hash.  An unknown email and a wrong password both yield
// ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (model.Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.Identity{}, ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.pad.Burn(password)
		return model.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Identity{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.Identity{}, ErrInvalidCredentials
	}
	return identityOf(u), nil
}

// Login authenticates and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	id, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	sess, err := s.IssueSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	s.log.Info("login", zap.Uint64("user_id", id.UserID), zap.String("role", string(id.Role)))
	return sess, nil
}

// IssueSession signs an access token for id and stores a new refresh
// token.
func (s *AuthService) IssueSession(ctx context.Context, id model.Identity) (Session, error) {
	now := s.now()
	access, err := utils.NewAccessToken(s.secret, id, s.accessTTLMin, now)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.refreshTTLDays, now)
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokens.Store(ctx, id.UserID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	return Session{Identity: id, Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new session.  The presented
// token is revoked, so each one works once.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrInvalidRefresh
	}
	hash := utils.HashRefreshRaw(raw)
	tok, err := s.tokens.FindByHash(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, fmt.Errorf("load refresh token: %w", err)
	}
	if !tok.Usable(s.now().UTC()) {
		return Session{}, ErrInvalidRefresh
	}
	revoked, err := s.tokens.Revoke(ctx, hash)
	if err != nil {
		return Session{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !revoked {
		// lost a race with another exchange of the same token
		return Session{}, ErrInvalidRefresh
	}
	u, err := s.users.GetByID(ctx, tok.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidRefresh
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return s.IssueSession(ctx, identityOf(u))
}

// Logout revokes the presented refresh token, or every token of userID
// when none is presented.
func (s *AuthService) Logout(ctx context.Context, userID uint64, rawRefresh string) error {
	if raw := strings.TrimSpace(rawRefresh); raw != "" {
		if _, err := s.tokens.Revoke(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		return nil
	}
	if userID == 0 {
		return nil
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

func identityOf(u model.User) model.Identity {
	return model.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
