package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/counseling-booking/internal/model"
	repo "github.com/iliyamo/counseling-booking/internal/repository"
)

var userColumns = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

func TestUserRepo_CreateTx_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := repo.NewUserRepo(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role)")).
		WithArgs("Ann", "ann@school.test", "hash", "student").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ann@school.test' for key 'uq_users_email'"})
	mock.ExpectRollback()

	err = repo.RunInTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := r.CreateTx(context.Background(), tx, " Ann ", " ANN@school.test", "hash", model.RoleStudent)
		return err
	})
	require.ErrorIs(t, err, repo.ErrEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmail_Normalizes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("sam@school.test").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(7, "Sam", "sam@school.test", "h", "counselor", now, now))

	u, err := repo.NewUserRepo(db).GetByEmail(context.Background(), "  Sam@School.test ")
	require.NoError(t, err)
	require.Equal(t, uint64(7), u.ID)
	require.Equal(t, model.RoleCounselor, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_List_FiltersByRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role=? ORDER BY created_at DESC")).
		WithArgs("student").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(2, "B", "b@x.test", "h", "student", now, now).
			AddRow(1, "A", "a@x.test", "h", "student", now, now))

	role := model.RoleStudent
	users, err := repo.NewUserRepo(db).List(context.Background(), &role)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, uint64(2), users[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdateTx_WritesOnlySuppliedColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name=?, role=? WHERE id=?")).
		WithArgs("New Name", "counselor", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	name := " New Name "
	role := model.RoleCounselor
	var affected int64
	err = repo.RunInTx(context.Background(), db, func(tx *sql.Tx) error {
		var err error
		affected, err = repo.NewUserRepo(db).UpdateTx(context.Background(), tx, 9, repo.UserUpdate{Name: &name, Role: &role})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdate_Empty(t *testing.T) {
	require.True(t, repo.UserUpdate{}.Empty())
	name := "x"
	require.False(t, repo.UserUpdate{Name: &name}.Empty())
}
