package repository_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	repo "github.com/iliyamo/counseling-booking/internal/repository"
)

func TestCounselorRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := repo.NewCounselorRepo(sqlx.NewDb(db, "sqlmock"))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.name ASC")).
		WithArgs("2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "email", "bio", "specialization", "profile_picture", "total_schedules"}).
			AddRow(1, 20, "Ada", "ada@x.test", "BK Counselor", "Career", nil, 4).
			AddRow(2, 21, "Bo", "bo@x.test", "BK Counselor", nil, nil, 0))

	list, err := r.List(context.Background(), "2025-06-01")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 4, list[0].TotalSchedules)
	require.Equal(t, "Career", *list[0].Specialization)
	require.Nil(t, list[1].Specialization)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCounselorRepo_GetSummary_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := repo.NewCounselorRepo(sqlx.NewDb(db, "sqlmock"))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = ?")).
		WithArgs("2025-06-01", 99).
		WillReturnError(sql.ErrNoRows)

	_, err = r.GetSummary(context.Background(), 99, "2025-06-01")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCounselorRepo_LockByUserIDTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := repo.NewCounselorRepo(sqlx.NewDb(db, "sqlmock"))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM counselors WHERE user_id = ? FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	var id uint64
	err = repo.RunInTx(context.Background(), db, func(tx *sql.Tx) error {
		var err error
		id, err = r.LockByUserIDTx(context.Background(), tx, 20)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	require.NoError(t, mock.ExpectationsWereMet())
}
