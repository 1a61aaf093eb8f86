package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/counseling-booking/internal/model"
)

// UserRepo persists rows of the users table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// UserUpdate carries the optional columns of an admin edit.  Nil
// fields are left untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *model.Role
}

// Empty reports whether no column would be written.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil && u.Role == nil
}

const userCols = "id, name, email, password_hash, role, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// CreateTx inserts a user and returns its ID.  The password must already
// be hashed.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, name, email, passwordHash string, role model.Role) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		strings.TrimSpace(name), NormalizeEmail(email), passwordHash, role)
	if err != nil {
		if duplicateKey(err, "") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// GetForUpdateTx loads and row-locks a user inside tx.
func (r *UserRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? FOR UPDATE", id))
}

// List returns users newest first.  A nil role returns every user.
func (r *UserRepo) List(ctx context.Context, role *model.Role) ([]model.User, error) {
	q := "SELECT " + userCols + " FROM users"
	var args []any
	if role != nil {
		q += " WHERE role=?"
		args = append(args, *role)
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// EmailTakenTx reports whether another user (not excludeID) already
// owns email.
func (r *UserRepo) EmailTakenTx(ctx context.Context, tx *sql.Tx, email string, excludeID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=? AND id<>?",
		NormalizeEmail(email), excludeID).Scan(&n)
	return n > 0, err
}

// UpdateTx writes the supplied columns and returns the affected row count.
func (r *UserRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id uint64, u UserUpdate) (int64, error) {
	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(*u.Name))
	}
	if u.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, NormalizeEmail(*u.Email))
	}
	if u.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *u.PasswordHash)
	}
	if u.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *u.Role)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		if duplicateKey(err, "") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteTx removes a user row.  Dependent rows must be gone already.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		if referenced(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return res.RowsAffected()
}
