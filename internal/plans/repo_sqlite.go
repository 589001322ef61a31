package plans

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
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

func (r *SQLiteRepo) Create(ctx context.Context, plan Plan) (*Plan, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}

	document, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan document: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO plan (id, user_id, week_start, document, created_at)
			VALUES ($1, $2, $3, $4, $5);`,
		plan.ID, plan.UserID, plan.WeekStart, string(document),
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *SQLiteRepo) GetLatest(ctx context.Context, userID int) (*Plan, error) {
	var document string
	if err := r.db.QueryRowContext(ctx, `
		SELECT document FROM plan
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1;`,
		userID,
	).Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal([]byte(document), &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan document: %w", err)
	}
	return &plan, nil
}

func (r *SQLiteRepo) Save(ctx context.Context, plan *Plan) error {
	document, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan document: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE plan
			SET week_start = $1, document = $2
			WHERE id = $3 AND user_id = $4;`,
		plan.WeekStart, string(document), plan.ID, plan.UserID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPlanNotFound
	}
	return nil
}
