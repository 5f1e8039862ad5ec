package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/copyguard/internal/domain/users"
)

const userColumns = `id, email, password_hash, full_name, role, is_active, created_at`

type UserRepository struct {
	q querier
	d Dialect
}

var _ users.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, u *users.User) error {
	q := `INSERT INTO users (` + userColumns + `) VALUES (?,?,?,?,?,?,?)`
	_, err := r.q.ExecContext(ctx, r.d.Rebind(q),
		u.ID, strings.ToLower(u.Email), u.PasswordHash, u.FullName, string(u.Role), u.Active, u.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return users.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail matches case-insensitively; emails are stored lower-cased.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getBy(ctx, "email", strings.ToLower(email))
}

func (r *UserRepository) getBy(ctx context.Context, col, v string) (*users.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + col + `=?`
	u, err := scanUser(r.q.QueryRowContext(ctx, r.d.Rebind(q), v))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*users.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	out := []*users.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update rewrites the mutable profile fields.
func (r *UserRepository) Update(ctx context.Context, u *users.User) error {
	const q = `UPDATE users SET email=?, password_hash=?, full_name=?, role=?, is_active=? WHERE id=?`
	res, err := r.q.ExecContext(ctx, r.d.Rebind(q),
		strings.ToLower(u.Email), u.PasswordHash, u.FullName, string(u.Role), u.Active, u.ID)
	if isUniqueViolation(err) {
		return users.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	// MySQL counts only changed rows, so zero may still mean the row exists
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

func scanUser(row rowScanner) (*users.User, error) {
	var u users.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = users.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
