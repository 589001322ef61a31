package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepo is the embedded-store counterpart of Repo.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{
		db: db,
	}
}

func (r *SQLiteRepo) Add(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.Content == "" || entry.CreatedAt.IsZero() {
		return nil, errors.New("entry content or timestamp empty")
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_entry (user_id, title, content, created_at)
			VALUES ($1, $2, $3, $4);`,
		entry.UserID, entry.Title, entry.Content,
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	entry.ID = int(id)
	return &entry, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, entry *Entry) error {
	if entry.Content == "" {
		return errors.New("entry content empty")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE journal_entry
			SET title = $1, content = $2
			WHERE id = $3 AND user_id = $4;`,
		entry.Title, entry.Content, entry.ID, entry.UserID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM journal_entry WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *SQLiteRepo) List(ctx context.Context, userID int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, content, created_at
			FROM journal_entry
			WHERE user_id = $1
			ORDER BY created_at DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		var createdAt string
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Title, &entry.Content, &createdAt,
		); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
