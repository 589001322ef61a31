package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stridecoach/stridecoach/internal/activities"
	"github.com/stridecoach/stridecoach/internal/auth"
	"github.com/stridecoach/stridecoach/internal/dates"
	"github.com/stridecoach/stridecoach/internal/plans"
	"github.com/stridecoach/stridecoach/internal/telemetry/metrics"
	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
	"github.com/stridecoach/stridecoach/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=compliance_mocks_test.go -package=compliance_test

type plansStore interface {
	GetLatest(ctx context.Context, userID int) (*plans.Plan, error)
	Save(ctx context.Context, plan *plans.Plan) error
}

type activityLog interface {
	ListRange(ctx context.Context, params activities.RangeParams) ([]activities.Activity, error)
}

type RescheduleResponse struct {
	MovedFrom   string      `json:"movedFrom"`
	MovedTo     string      `json:"movedTo"`
	UpdatedPlan *plans.Plan `json:"updatedPlan"`
}

type Handler struct {
	plans       plansStore
	activityLog activityLog
	metrics     *metrics.Manager
	now         func() time.Time

	// concurrent reschedules of the same user's plan are serialized,
	// two read-modify-write cycles racing would lose one of the updates
	planLocksMutex sync.Mutex
	planLocks      map[string]*sync.Mutex
}

func NewHandler(
	plansStore plansStore,
	activityLog activityLog,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		plans:       plansStore,
		activityLog: activityLog,
		metrics:     metricsManager,
		now:         time.Now,
		planLocks:   map[string]*sync.Mutex{},
	}
}

func (handler *Handler) planLock(key string) *sync.Mutex {
	handler.planLocksMutex.Lock()
	defer handler.planLocksMutex.Unlock()
	lock, ok := handler.planLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		handler.planLocks[key] = lock
	}
	return lock
}

func (handler *Handler) HandleGetCompliance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.compliance.get")
	defer span.End()

	userID := auth.MustUserID(ctx)
	now := handler.now()
	weekStart, weekEnd := dates.WeekRange(now)
	today := dates.Format(now)

	plan, err := handler.plans.GetLatest(ctx, userID)
	if err != nil {
		if errors.Is(err, plans.ErrPlanNotFound) {
			// no plan is a normal state for a new user
			writeSnapshot(w, EmptySnapshot())
			return
		}
		log.Errorf("compliance, get latest plan: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if _, err := plan.FirstWeek(); err != nil {
		// upstream data corruption, worth an operator's attention
		log.Errorf("compliance, plan %s has malformed first week", plan.ID)
		writeSnapshot(w, EmptySnapshot())
		return
	}

	var runs, lifts []activities.Activity
	errGroup, gCtx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		var err error
		runs, err = handler.activityLog.ListRange(gCtx, activities.RangeParams{
			UserID: userID,
			Kind:   activities.KindRun,
			From:   weekStart,
			To:     weekEnd,
		})
		return err
	})
	errGroup.Go(func() error {
		var err error
		lifts, err = handler.activityLog.ListRange(gCtx, activities.RangeParams{
			UserID: userID,
			Kind:   activities.KindLift,
			From:   weekStart,
			To:     weekEnd,
		})
		return err
	})
	if err := errGroup.Wait(); err != nil {
		log.Errorf("compliance, list activities: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeSnapshot(w, Compute(plan, runs, lifts, weekStart, weekEnd, today))
}

func (handler *Handler) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.compliance.reschedule")
	defer span.End()

	vars := mux.Vars(r)
	sessionIndex, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "error, session id NaN", http.StatusBadRequest)
		return
	}

	userID := auth.MustUserID(ctx)

	// take the lock before the read: the plan must not change between
	// reading it and writing the rescheduled document back
	lock := handler.planLock(strconv.Itoa(userID))
	lock.Lock()
	defer lock.Unlock()

	plan, err := handler.plans.GetLatest(ctx, userID)
	if err != nil {
		if errors.Is(err, plans.ErrPlanNotFound) {
			http.Error(w, "plan not found", http.StatusNotFound)
			return
		}
		log.Errorf("reschedule, get latest plan: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	updated, move, err := Reschedule(*plan, sessionIndex)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("reschedule session %d: %s", sessionIndex, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := handler.plans.Save(ctx, &updated); err != nil {
		log.Errorf("reschedule, save plan %s: %s", updated.ID, err)
		http.Error(w, "error, failed to save plan", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterReschedules.Inc()
	log.Debugf("plan %s: session %d moved %s -> %s", updated.ID, sessionIndex, move.MovedFrom, move.MovedTo)

	respJson, err := json.Marshal(RescheduleResponse{
		MovedFrom:   move.MovedFrom,
		MovedTo:     move.MovedTo,
		UpdatedPlan: &updated,
	})
	if err != nil {
		log.Errorf("failed to marshal reschedule response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func writeSnapshot(w http.ResponseWriter, snapshot Snapshot) {
	snapshotJson, err := json.Marshal(snapshot)
	if err != nil {
		log.Errorf("failed to marshal compliance snapshot: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, snapshotJson, http.StatusOK)
}
