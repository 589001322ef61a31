package load

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stridecoach/stridecoach/internal/activities"
	"github.com/stridecoach/stridecoach/internal/dates"
	"github.com/stridecoach/stridecoach/internal/telemetry/metrics"
	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=load_mocks_test.go -package=load_test

type activityLog interface {
	ListRange(ctx context.Context, params activities.RangeParams) ([]activities.Activity, error)
	SumDistance(ctx context.Context, params activities.RangeParams) (float64, error)
}

type textGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	advisorCacheTTLSeconds = 30 * 60
	advisorCacheSizeBytes  = 512 * 1024
)

// Monitor derives the weekly load snapshot from the activity log. The
// advisory text generator is optional and best-effort: when it is
// missing, slow or failing, the deterministic recommendation from the
// analyzer stays in place.
type Monitor struct {
	activityLog    activityLog
	generator      textGenerator
	generatorCache *freecache.Cache
	advisorTimeout time.Duration
	metrics        *metrics.Manager
}

func NewMonitor(
	activityLog activityLog,
	generator textGenerator,
	advisorTimeout time.Duration,
	metricsManager *metrics.Manager,
) *Monitor {
	return &Monitor{
		activityLog:    activityLog,
		generator:      generator,
		generatorCache: freecache.NewCache(advisorCacheSizeBytes),
		advisorTimeout: advisorTimeout,
		metrics:        metricsManager,
	}
}

// Snapshot computes the load snapshot for the week containing now.
func (m *Monitor) Snapshot(ctx context.Context, userID int, now time.Time) (_ Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "loadMonitor.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	weekStart, weekEnd := dates.WeekRange(now)
	lastWeekStart := dates.AddDays(weekStart, -7)

	var (
		thisWeekMiles, lastWeekMiles float64
		runs                         []activities.Activity
	)

	// the three reads are independent, fetch them concurrently
	errGroup, gCtx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		var err error
		thisWeekMiles, err = m.activityLog.SumDistance(gCtx, activities.RangeParams{
			UserID: userID, Kind: activities.KindRun, From: weekStart, To: weekEnd,
		})
		return err
	})
	errGroup.Go(func() error {
		var err error
		lastWeekMiles, err = m.activityLog.SumDistance(gCtx, activities.RangeParams{
			UserID: userID, Kind: activities.KindRun, From: lastWeekStart, To: weekStart,
		})
		return err
	})
	errGroup.Go(func() error {
		var err error
		runs, err = m.activityLog.ListRange(gCtx, activities.RangeParams{
			UserID: userID, Kind: activities.KindRun, From: weekStart, To: weekEnd,
		})
		return err
	})
	if err := errGroup.Wait(); err != nil {
		return Snapshot{}, fmt.Errorf("fetch activity history: %w", err)
	}

	efforts := make([]int, 0, len(runs))
	for _, run := range runs {
		efforts = append(efforts, run.Effort)
	}

	snapshot := Analyze(thisWeekMiles, lastWeekMiles, efforts)

	if snapshot.Tier != TierOptimal {
		if text := m.personalizedRecommendation(ctx, userID, snapshot); text != "" {
			snapshot.Recommendation = text
		}
	}

	return snapshot, nil
}

// personalizedRecommendation asks the text generator for tailored
// advisory text. Empty string means "use the deterministic baseline";
// the generator failing must never fail the snapshot.
func (m *Monitor) personalizedRecommendation(ctx context.Context, userID int, snapshot Snapshot) string {
	if m.generator == nil {
		return ""
	}

	cacheKey := []byte(fmt.Sprintf("advisor||%d||%s", userID, snapshot.Tier))
	if cached, err := m.generatorCache.Get(cacheKey); err == nil {
		return string(cached)
	}

	genCtx, cancel := context.WithTimeout(ctx, m.advisorTimeout)
	defer cancel()

	m.metrics.CounterAdvisorCalls.Inc()

	text, err := m.generator.Generate(genCtx, advisorPrompt(snapshot))
	if err != nil {
		m.metrics.CounterAdvisorFailures.Inc()
		log.Warnf("load monitor, advisor text for user %d failed: %s", userID, err)
		return ""
	}

	if err := m.generatorCache.Set(cacheKey, []byte(text), advisorCacheTTLSeconds); err != nil {
		log.Tracef("load monitor, cache advisor text: %s", err)
	}
	return text
}

func advisorPrompt(snapshot Snapshot) string {
	return fmt.Sprintf(
		"You are a running coach. A runner logged %.1f miles this week after %.1f miles last week "+
			"(%.0f%% change) with a longest streak of %d consecutive hard-effort days. "+
			"Their overtraining risk is rated %q. "+
			"In at most two sentences, tell them what to do with their next training days.",
		snapshot.ThisWeekMiles, snapshot.LastWeekMiles, snapshot.IncreasePercent,
		snapshot.MaxHardStreak, snapshot.Tier,
	)
}
