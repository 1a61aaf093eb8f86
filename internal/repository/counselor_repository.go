package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/counseling-booking/internal/model"
)

// CounselorRepo persists counselor profiles.  Directory reads go through
// sqlx struct scanning; writes that belong to a larger business
// operation take the caller's *sql.Tx.
type CounselorRepo struct{ db *sqlx.DB }

func NewCounselorRepo(db *sqlx.DB) *CounselorRepo { return &CounselorRepo{db: db} }

const counselorSummaryQuery = `
	SELECT c.id, c.user_id, u.name, u.email, c.bio, c.specialization, c.profile_picture,
	       (SELECT COUNT(*) FROM schedules s
	         WHERE s.counselor_id = c.id AND s.status = 'available' AND s.date >= ?) AS total_schedules
	FROM counselors c
	JOIN users u ON u.id = c.user_id`

// List returns the counselor directory ordered by name.  today bounds
// the count of open slots.
func (r *CounselorRepo) List(ctx context.Context, today string) ([]model.CounselorSummary, error) {
	out := []model.CounselorSummary{}
	err := r.db.SelectContext(ctx, &out, counselorSummaryQuery+" ORDER BY u.name ASC, c.id ASC", today)
	return out, err
}

// GetSummary returns one directory entry or sql.ErrNoRows.
func (r *CounselorRepo) GetSummary(ctx context.Context, id uint64, today string) (model.CounselorSummary, error) {
	var out model.CounselorSummary
	err := r.db.GetContext(ctx, &out, counselorSummaryQuery+" WHERE c.id = ?", today, id)
	return out, err
}

// GetByUserID returns the profile owned by a user or sql.ErrNoRows.
func (r *CounselorRepo) GetByUserID(ctx context.Context, userID uint64) (model.CounselorProfile, error) {
	var p model.CounselorProfile
	err := r.db.GetContext(ctx, &p,
		`SELECT id, user_id, bio, specialization, profile_picture, created_at, updated_at
		 FROM counselors WHERE user_id = ? LIMIT 1`, userID)
	return p, err
}

// LockByUserIDTx row-locks the caller's profile for the rest of tx and
// returns its id.  Slot writes for one counselor serialize on this lock.
func (r *CounselorRepo) LockByUserIDTx(ctx context.Context, tx *sql.Tx, userID uint64) (uint64, error) {
	var id uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM counselors WHERE user_id = ? FOR UPDATE", userID).Scan(&id)
	return id, err
}

// CreateTx inserts a profile for userID with the given bio.
func (r *CounselorRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID uint64, bio string) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO counselors (user_id, bio) VALUES (?, ?)", userID, bio)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// DeleteTx removes a profile.  Its schedules must be removed first.
func (r *CounselorRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM counselors WHERE id = ?", id)
	return err
}

// UpdateProfile edits the public fields of a profile owned by userID.
// A nil picture keeps the stored one.  Zero affected rows with a nil
// error means the profile exists but nothing changed, so callers check
// ownership separately.
func (r *CounselorRepo) UpdateProfile(ctx context.Context, id, userID uint64, bio string, specialization, picture *string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE counselors
		    SET bio = ?, specialization = ?, profile_picture = COALESCE(?, profile_picture)
		  WHERE id = ? AND user_id = ?`,
		bio, specialization, picture, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
