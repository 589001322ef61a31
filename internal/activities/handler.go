package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/stridecoach/stridecoach/internal/auth"
	"github.com/stridecoach/stridecoach/internal/dates"
	"github.com/stridecoach/stridecoach/internal/telemetry/metrics"
	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
	"github.com/stridecoach/stridecoach/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=activities_mocks_test.go -package=activities_test

type activitiesRepo interface {
	Add(ctx context.Context, activity Activity) (*Activity, error)
	Get(ctx context.Context, id, userID int) (*Activity, error)
	Update(ctx context.Context, activity *Activity) error
	Delete(ctx context.Context, id, userID int) error
	List(ctx context.Context, params ListParams) (_ []Activity, total int, err error)
}

type DeleteActivityResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateActivityResponse struct {
	UpdatedID int `json:"updatedId"`
}

type ListResponse struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
}

type Handler struct {
	repo    activitiesRepo
	metrics *metrics.Manager
}

func NewHandler(repo activitiesRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var activity Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		log.Tracef("new activity, unmarshal json params: %s", err)
		http.Error(w, "add activity failed", http.StatusBadRequest)
		return
	}

	if !activity.Kind.Valid() {
		http.Error(w, "error, unknown activity kind", http.StatusBadRequest)
		return
	}
	if _, err := dates.Parse(activity.Date); err != nil {
		http.Error(w, "error, invalid activity date", http.StatusBadRequest)
		return
	}
	if activity.Kind == KindRun && (activity.Effort < 0 || activity.Effort > 10) {
		http.Error(w, "error, effort must be between 0 and 10", http.StatusBadRequest)
		return
	}

	activity.UserID = auth.MustUserID(ctx)
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	added, err := handler.repo.Add(ctx, activity)
	if err != nil {
		log.Errorf("failed to add new activity [%s] [%s]: %s", activity.Kind, activity.Date, err)
		http.Error(w, "error, failed to add new activity", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterActivities.Inc()

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new activity: %s", err)
		http.Error(w, "error, failed to add new activity", http.StatusInternalServerError)
		return
	}

	log.Debugf("new activity added: %s", addedJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.get")
	defer span.End()

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	activity, err := handler.repo.Get(ctx, id, auth.MustUserID(ctx))
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get activity %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	activityJson, err := json.Marshal(activity)
	if err != nil {
		log.Errorf("failed to marshal activity: %s", err)
		http.Error(w, "failed to marshal activity", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, activityJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var activity Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		log.Errorf("update activity, unmarshal json params: %s", err)
		http.Error(w, "update activity failed", http.StatusBadRequest)
		return
	}

	if !activity.Kind.Valid() {
		http.Error(w, "error, unknown activity kind", http.StatusBadRequest)
		return
	}
	if _, err := dates.Parse(activity.Date); err != nil {
		http.Error(w, "error, invalid activity date", http.StatusBadRequest)
		return
	}

	activity.UserID = auth.MustUserID(ctx)

	if err := handler.repo.Update(ctx, &activity); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			log.Debugf("activity %d not found", activity.ID)
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update activity %d: %s", activity.ID, err)
		http.Error(w, "error, failed to update activity", http.StatusInternalServerError)
		return
	}

	updateRespJson, err := json.Marshal(UpdateActivityResponse{
		UpdatedID: activity.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	log.Debugf("activity updated: [%s] [%s]: %d", activity.Kind, activity.Date, activity.ID)
	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.delete")
	defer span.End()

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id, auth.MustUserID(ctx)); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			log.Debugf("activity %d not found", id)
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete activity %d: %s", id, err)
		http.Error(w, "activity not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteActivityResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.list")
	defer span.End()

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		log.Tracef("handle list activities, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		log.Tracef("handle list activities, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	kind := Kind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		http.Error(w, "error, unknown activity kind", http.StatusBadRequest)
		return
	}

	found, total, err := handler.repo.List(ctx, ListParams{
		UserID: auth.MustUserID(ctx),
		Kind:   kind,
		Page:   page,
		Size:   size,
	})
	if err != nil {
		log.Errorf("list activities error: %s", err)
		http.Error(w, "failed to get activities", http.StatusInternalServerError)
		return
	}

	listRespJson, err := json.Marshal(ListResponse{
		Activities: found,
		Total:      total,
	})
	if err != nil {
		log.Errorf("marshal activities error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listRespJson, http.StatusOK)
}
