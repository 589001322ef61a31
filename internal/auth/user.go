package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UsersRepo struct {
	db *pgxpool.Pool
}

func NewUsersRepo(db *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.QueryRow(ctx, `
		SELECT id, username, password_hash, display_name, created_at
			FROM app_user
			WHERE username = $1;`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

type SQLiteUsersRepo struct {
	db *sql.DB
}

func NewSQLiteUsersRepo(db *sql.DB) *SQLiteUsersRepo {
	return &SQLiteUsersRepo{db: db}
}

func (r *SQLiteUsersRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	var createdAt string
	if err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, display_name, created_at
			FROM app_user
			WHERE username = $1;`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DisplayName, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		u.CreatedAt = ts
	}
	return &u, nil
}
