package journal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "journalRepo.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if entry.Content == "" || entry.CreatedAt.IsZero() {
		return nil, errors.New("entry content or timestamp empty")
	}

	if err := r.db.QueryRow(ctx, `
		INSERT INTO journal_entry (user_id, title, content, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		entry.UserID, entry.Title, entry.Content, entry.CreatedAt,
	).Scan(&entry.ID); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *Repo) Update(ctx context.Context, entry *Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "journalRepo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if entry.Content == "" {
		return errors.New("entry content empty")
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE journal_entry
			SET title = $1, content = $2
			WHERE id = $3 AND user_id = $4;`,
		entry.Title, entry.Content, entry.ID, entry.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id, userID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "journalRepo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx,
		`DELETE FROM journal_entry WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context, userID int) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "journalRepo.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, content, created_at
			FROM journal_entry
			WHERE user_id = $1
			ORDER BY created_at DESC;`,
		userID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Title, &entry.Content, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
