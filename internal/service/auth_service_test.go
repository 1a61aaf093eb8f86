package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/counseling-booking/internal/model"
	"github.com/iliyamo/counseling-booking/internal/utils"
)

var (
	qUserByEmail  = regexp.QuoteMeta("FROM users WHERE email=? LIMIT 1")
	qUserByID     = regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1")
	qStoreToken   = regexp.QuoteMeta("INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)")
	qFindToken    = regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=? LIMIT 1")
	qRevokeToken  = regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL")
	qRevokeAll    = regexp.QuoteMeta("WHERE user_id=? AND revoked_at IS NULL")
	tokenCols     = []string{"id", "user_id", "token_hash", "expires_at", "revoked_at", "created_at"}
	testJWTSecret = "test-secret"
)

func (f *fixture) authService() *AuthService {
	s := NewAuthService(f.users, f.tokens, testJWTSecret, 15, 7, 4, zap.NewNop())
	s.now = func() time.Time { return f.now }
	return s
}

func hashOf(t *testing.T, plain string) string {
	t.Helper()
	h, err := utils.HashPassword(plain, 4)
	require.NoError(t, err)
	return h
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t)
	svc := f.authService()
	hash := hashOf(t, "right-password")

	f.mock.ExpectQuery(qUserByEmail).WithArgs("nobody@school.test").WillReturnRows(sqlmock.NewRows(userCols))
	_, err := svc.Authenticate(context.Background(), "Nobody@school.test", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	f.mock.ExpectQuery(qUserByEmail).WithArgs("stu@school.test").
		WillReturnRows(f.userRow(4, "Stu", "stu@school.test", hash, model.RoleStudent))
	_, err = svc.Authenticate(context.Background(), "stu@school.test", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	f.mock.ExpectQuery(qUserByEmail).WithArgs("stu@school.test").
		WillReturnRows(f.userRow(4, "Stu", "stu@school.test", hash, model.RoleStudent))
	id, err := svc.Authenticate(context.Background(), "stu@school.test", "right-password")
	require.NoError(t, err)
	require.Equal(t, studentCaller, id)

	_, err = svc.Authenticate(context.Background(), "", "x")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	f.verify(t)
}

func TestAuthService_LoginStoresHashedRefresh(t *testing.T) {
	f := newFixture(t)
	hash := hashOf(t, "pw")
	f.mock.ExpectQuery(qUserByEmail).
		WillReturnRows(f.userRow(20, "Coach", "coach@school.test", hash, model.RoleCounselor))
	f.mock.ExpectExec(qStoreToken).
		WithArgs(20, sqlmock.AnyArg(), f.now.Add(7*24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sess, err := f.authService().Login(context.Background(), "coach@school.test", "pw")
	require.NoError(t, err)
	require.Equal(t, counselorCaller, sess.Identity)
	require.NotEmpty(t, sess.Access.Token)
	require.Equal(t, f.now.Add(15*time.Minute), sess.Access.Exp)
	require.Len(t, sess.Refresh.Raw, 96)
	f.verify(t)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	f := newFixture(t)
	raw := "old-refresh-token"
	hash := utils.HashRefreshRaw(raw)

	f.mock.ExpectQuery(qFindToken).WithArgs(hash).
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(1, 4, hash, f.now.Add(time.Hour), nil, f.now))
	f.mock.ExpectExec(qRevokeToken).WithArgs(hash).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectQuery(qUserByID).WithArgs(4).
		WillReturnRows(f.userRow(4, "Stu", "stu@school.test", "h", model.RoleStudent))
	f.mock.ExpectExec(qStoreToken).WillReturnResult(sqlmock.NewResult(2, 1))

	sess, err := f.authService().Refresh(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, studentCaller, sess.Identity)
	require.NotEqual(t, raw, sess.Refresh.Raw)
	f.verify(t)
}

func TestAuthService_RefreshRejected(t *testing.T) {
	raw := "some-token"
	hash := utils.HashRefreshRaw(raw)

	t.Run("unknown", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectQuery(qFindToken).WillReturnRows(sqlmock.NewRows(tokenCols))
		_, err := f.authService().Refresh(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidRefresh)
		f.verify(t)
	})
	t.Run("revoked", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectQuery(qFindToken).
			WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(1, 4, hash, f.now.Add(time.Hour), f.now, f.now))
		_, err := f.authService().Refresh(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidRefresh)
		f.verify(t)
	})
	t.Run("expired", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectQuery(qFindToken).
			WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(1, 4, hash, f.now.Add(-time.Minute), nil, f.now))
		_, err := f.authService().Refresh(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidRefresh)
		f.verify(t)
	})
	t.Run("lost race", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectQuery(qFindToken).
			WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(1, 4, hash, f.now.Add(time.Hour), nil, f.now))
		f.mock.ExpectExec(qRevokeToken).WillReturnResult(sqlmock.NewResult(0, 0))
		_, err := f.authService().Refresh(context.Background(), raw)
		require.ErrorIs(t, err, ErrInvalidRefresh)
		f.verify(t)
	})
	t.Run("empty", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.authService().Refresh(context.Background(), "  ")
		require.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	svc := f.authService()

	f.mock.ExpectExec(qRevokeToken).WithArgs(utils.HashRefreshRaw("tok")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.Logout(context.Background(), 4, "tok"))

	f.mock.ExpectExec(qRevokeAll).WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, svc.Logout(context.Background(), 4, ""))

	require.NoError(t, svc.Logout(context.Background(), 0, ""))
	f.verify(t)
}
