package plans

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/stridecoach/stridecoach/internal/auth"
	"github.com/stridecoach/stridecoach/internal/dates"
	"github.com/stridecoach/stridecoach/internal/telemetry/metrics"
	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
	"github.com/stridecoach/stridecoach/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=plans_mocks_test.go -package=plans_test

type plansRepo interface {
	Create(ctx context.Context, plan Plan) (*Plan, error)
	GetLatest(ctx context.Context, userID int) (*Plan, error)
}

type Handler struct {
	repo    plansRepo
	metrics *metrics.Manager
}

func NewHandler(repo plansRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
	}
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plans.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var plan Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		log.Tracef("new plan, unmarshal json params: %s", err)
		http.Error(w, "add plan failed", http.StatusBadRequest)
		return
	}

	if _, err := dates.Parse(plan.WeekStart); err != nil {
		http.Error(w, "error, invalid week start date", http.StatusBadRequest)
		return
	}
	if _, err := plan.FirstWeek(); err != nil {
		http.Error(w, "error, plan needs at least one week of 7 days", http.StatusBadRequest)
		return
	}

	plan.UserID = auth.MustUserID(ctx)

	added, err := handler.repo.Create(ctx, plan)
	if err != nil {
		if errors.Is(err, ErrPlanExists) {
			http.Error(w, "plan already exists", http.StatusConflict)
			return
		}
		log.Errorf("failed to add new plan [%s]: %s", plan.WeekStart, err)
		http.Error(w, "error, failed to add new plan", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterPlansCreated.Inc()

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new plan: %s", err)
		http.Error(w, "error, failed to add new plan", http.StatusInternalServerError)
		return
	}

	log.Debugf("new plan added: %s [week start %s]", added.ID, added.WeekStart)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plans.latest")
	defer span.End()

	plan, err := handler.repo.GetLatest(ctx, auth.MustUserID(ctx))
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			http.Error(w, "plan not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get latest plan: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	planJson, err := json.Marshal(plan)
	if err != nil {
		log.Errorf("failed to marshal plan: %s", err)
		http.Error(w, "failed to marshal plan", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, planJson, http.StatusOK)
}
