package activities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepo is the embedded-store counterpart of Repo, for deployments
// without a postgres server. Same behavior, database/sql underneath.
type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{
		db: db,
	}
}

func (r *SQLiteRepo) Add(ctx context.Context, activity Activity) (*Activity, error) {
	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO activity
			(user_id, kind, date, distance_miles, duration_seconds, effort, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		activity.UserID, string(activity.Kind), activity.Date,
		activity.DistanceMiles, activity.DurationSeconds,
		activity.Effort, activity.Notes, activity.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	activity.ID = int(id)
	return &activity, nil
}

func (r *SQLiteRepo) Get(ctx context.Context, id, userID int) (*Activity, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, kind, date, distance_miles, duration_seconds, effort, notes, created_at
			FROM activity
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)

	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return activity, nil
}

func (r *SQLiteRepo) Update(ctx context.Context, activity *Activity) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE activity
			SET kind = $1, date = $2, distance_miles = $3, duration_seconds = $4, effort = $5, notes = $6
			WHERE id = $7 AND user_id = $8;`,
		string(activity.Kind), activity.Date, activity.DistanceMiles,
		activity.DurationSeconds, activity.Effort, activity.Notes,
		activity.ID, activity.UserID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id, userID int) error {
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM activity WHERE id = $1 AND user_id = $2;`,
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
		return ErrActivityNotFound
	}
	return nil
}

func (r *SQLiteRepo) List(ctx context.Context, params ListParams) ([]Activity, int, error) {
	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity
			WHERE user_id = $1
			AND ($2 = '' OR kind = $2);`,
		params.UserID, string(params.Kind),
	).Scan(&total); err != nil {
		return nil, -1, fmt.Errorf("count activities: %w", err)
	}

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, kind, date, distance_miles, duration_seconds, effort, notes, created_at
			FROM activity
			WHERE user_id = $1
			AND ($2 = '' OR kind = $2)
			ORDER BY date DESC, id DESC
			LIMIT $3
			OFFSET $4;`,
		params.UserID, string(params.Kind), params.Size, (params.Page-1)*params.Size,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	found, err := scanActivities(rows)
	if err != nil {
		return nil, -1, err
	}
	return found, total, nil
}

func (r *SQLiteRepo) ListRange(ctx context.Context, params RangeParams) ([]Activity, error) {
	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, user_id, kind, date, distance_miles, duration_seconds, effort, notes, created_at
			FROM activity
			WHERE user_id = $1
			AND kind = $2
			AND date >= $3 AND date < $4
			ORDER BY date ASC, id ASC;`,
		params.UserID, string(params.Kind), params.From, params.To,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

func (r *SQLiteRepo) SumDistance(ctx context.Context, params RangeParams) (float64, error) {
	var sum float64
	if err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(distance_miles), 0) FROM activity
			WHERE user_id = $1
			AND kind = $2
			AND date >= $3 AND date < $4;`,
		params.UserID, string(params.Kind), params.From, params.To,
	).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum distance: %w", err)
	}
	return sum, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var kind, createdAt string
	if err := row.Scan(
		&a.ID, &a.UserID, &kind, &a.Date,
		&a.DistanceMiles, &a.DurationSeconds,
		&a.Effort, &a.Notes, &createdAt,
	); err != nil {
		return nil, err
	}
	a.Kind = Kind(kind)
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = ts
	}
	return &a, nil
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	found := make([]Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return found, nil
}
