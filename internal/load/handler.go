package load

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stridecoach/stridecoach/internal/auth"
	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
	"github.com/stridecoach/stridecoach/pkg"
)

type Handler struct {
	monitor *Monitor
	now     func() time.Time
}

func NewHandler(monitor *Monitor) *Handler {
	return &Handler{
		monitor: monitor,
		now:     time.Now,
	}
}

func (handler *Handler) HandleGetLoad(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.load.get")
	defer span.End()

	snapshot, err := handler.monitor.Snapshot(ctx, auth.MustUserID(ctx), handler.now())
	if err != nil {
		log.Errorf("load analysis: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	snapshotJson, err := json.Marshal(snapshot)
	if err != nil {
		log.Errorf("failed to marshal load snapshot: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, snapshotJson, http.StatusOK)
}
