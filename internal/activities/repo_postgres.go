package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrActivityNotFound = errors.New("activity not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, activity Activity) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO activity
				(user_id, kind, date, distance_miles, duration_seconds, effort, notes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id;`,
		activity.UserID, activity.Kind, activity.Date,
		activity.DistanceMiles, activity.DurationSeconds,
		activity.Effort, activity.Notes, activity.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("activity.id", id))

	activity.ID = id
	return &activity, nil
}

func (r *Repo) Get(ctx context.Context, id, userID int) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, kind, date, distance_miles, duration_seconds, effort, notes, created_at
			FROM activity
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	found, err := rows2activities(rows)
	if err != nil {
		return nil, err
	}

	if len(found) != 1 {
		return nil, ErrActivityNotFound
	}

	return &found[0], nil
}

func (r *Repo) Update(ctx context.Context, activity *Activity) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", activity.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE activity
			SET kind = $1, date = $2, distance_miles = $3, duration_seconds = $4, effort = $5, notes = $6
			WHERE id = $7 AND user_id = $8;`,
		activity.Kind, activity.Date, activity.DistanceMiles,
		activity.DurationSeconds, activity.Effort, activity.Notes,
		activity.ID, activity.UserID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id, userID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM activity WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// List returns the requested page of a user's activities, newest first,
// together with the total count.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Activity, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM activity
			WHERE user_id = $1
			AND ($2::text = '' OR kind = $2);`,
		params.UserID, string(params.Kind),
	).Scan(&total); err != nil {
		return nil, -1, fmt.Errorf("count activities: %w", err)
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, kind, date, distance_miles, duration_seconds, effort, notes, created_at
			FROM activity
			WHERE user_id = $1
			AND ($2::text = '' OR kind = $2)
			ORDER BY date DESC, id DESC
			LIMIT $3
			OFFSET $4;`,
		params.UserID, string(params.Kind), limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	found, err := rows2activities(rows)
	if err != nil {
		return nil, -1, err
	}
	return found, total, nil
}

// ListRange returns a user's activities of the given kind with dates in the
// [From, To) interval, date ascending. The stable ordering matters: the
// compliance matcher depends on it.
func (r *Repo) ListRange(ctx context.Context, params RangeParams) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.listRange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("kind", string(params.Kind)))
	span.SetAttributes(attribute.String("from", params.From))
	span.SetAttributes(attribute.String("to", params.To))

	rows, err := r.db.Query(
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

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return rows2activities(rows)
}

// SumDistance returns the total distance of a user's activities of the
// given kind with dates in the [From, To) interval.
func (r *Repo) SumDistance(ctx context.Context, params RangeParams) (_ float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.sumDistance")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("kind", string(params.Kind)))
	span.SetAttributes(attribute.String("from", params.From))
	span.SetAttributes(attribute.String("to", params.To))

	var sum float64
	if err := r.db.QueryRow(ctx, `
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

func rows2activities(rows pgx.Rows) ([]Activity, error) {
	var found []Activity
	for rows.Next() {
		var a Activity
		var createdAt time.Time
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Kind, &a.Date,
			&a.DistanceMiles, &a.DurationSeconds,
			&a.Effort, &a.Notes, &createdAt,
		); err != nil {
			return nil, err
		}
		a.CreatedAt = createdAt
		found = append(found, a)
	}

	if found == nil {
		found = make([]Activity, 0)
	}

	return found, nil
}
