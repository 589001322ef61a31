package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
	"github.com/stridecoach/stridecoach/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, plan Plan) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "plansRepo.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	document, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan document: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO plan (id, user_id, week_start, document, created_at)
			VALUES ($1, $2, $3, $4, now());`,
		plan.ID, plan.UserID, plan.WeekStart, document,
	); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrPlanExists
		}
		return nil, err
	}

	return &plan, nil
}

// GetLatest returns the most recently created plan, the only one the
// compliance tracker considers. Older plans stay around as history.
func (r *Repo) GetLatest(ctx context.Context, userID int) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "plansRepo.getLatest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var document []byte
	if err := r.db.QueryRow(ctx, `
		SELECT document FROM plan
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1;`,
		userID,
	).Scan(&document); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal(document, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan document: %w", err)
	}
	return &plan, nil
}

// Save replaces the stored document wholesale.
func (r *Repo) Save(ctx context.Context, plan *Plan) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "plansRepo.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	document, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan document: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE plan
			SET week_start = $1, document = $2
			WHERE id = $3 AND user_id = $4;`,
		plan.WeekStart, document, plan.ID, plan.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}
