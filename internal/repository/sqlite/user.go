package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ethioshop/marketplace/internal/repository"
)

type userRepo struct {
	db *sql.DB
}

const userColumns = `id, name, email, phone, password_hash, role, verified, location, push_token, created_at, updated_at`

func (r *userRepo) FindByID(ctx context.Context, id string) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, user *repository.User) error {
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	if user.UpdatedAt == 0 {
		user.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users(`+userColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, strings.ToLower(user.Email), user.Phone, user.PasswordHash,
		user.Role, boolToInt(user.Verified), user.Location, user.PushToken,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return repository.ErrConflict
	}
	return err
}

func (r *userRepo) SetPushToken(ctx context.Context, id, token string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET push_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().Unix(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func scanUser(row rowScanner) (*repository.User, error) {
	var (
		user     repository.User
		verified int
	)
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&verified,
		&user.Location,
		&user.PushToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	user.Verified = verified != 0
	return &user, nil
}
