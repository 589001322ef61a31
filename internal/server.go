package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/stridecoach/stridecoach/internal/activities"
	"github.com/stridecoach/stridecoach/internal/advisor"
	"github.com/stridecoach/stridecoach/internal/auth"
	"github.com/stridecoach/stridecoach/internal/compliance"
	"github.com/stridecoach/stridecoach/internal/config"
	"github.com/stridecoach/stridecoach/internal/journal"
	"github.com/stridecoach/stridecoach/internal/load"
	"github.com/stridecoach/stridecoach/internal/middleware"
	"github.com/stridecoach/stridecoach/internal/plans"
	"github.com/stridecoach/stridecoach/internal/store"
	"github.com/stridecoach/stridecoach/internal/telemetry/metrics"
	"github.com/stridecoach/stridecoach/internal/telemetry/tracing"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	store  *store.Store

	redisClient *redis.Client
	authService *auth.Service

	// nil when the advisor is disabled
	advisorGenerator advisor.TextGenerator

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	JWTSecret               string
	RedisPassword           string
	GeminiAPIKey            string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dataStore, err := store.Open(ctx, store.OpenParams{
		Driver:         params.Config.StoreDriver,
		PostgresHost:   params.Config.PostgresHost,
		PostgresPort:   params.Config.PostgresPort,
		PostgresDBName: params.Config.PostgresDBName,
		SQLitePath:     params.Config.SQLitePath,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := dataStore.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap store schema: %w", err)
	}

	var extraCollectors []prometheus.Collector
	if dataStore.Driver == store.DriverPostgres {
		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			dataStore.PG,
			map[string]string{"db_name": params.Config.PostgresDBName},
		))
	}
	promRegistry := metrics.SetupPrometheus(extraCollectors...)
	metricsManager := metrics.NewManager("stridecoach", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	var authService *auth.Service
	switch dataStore.Driver {
	case store.DriverPostgres:
		authService = auth.NewService(auth.NewUsersRepo(dataStore.PG), []byte(params.JWTSecret), auth.DefaultTTL, rdb)
	case store.DriverSQLite:
		authService = auth.NewService(auth.NewSQLiteUsersRepo(dataStore.SQLite), []byte(params.JWTSecret), auth.DefaultTTL, rdb)
	}
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "stridecoach-backend")
	if err != nil {
		return nil, err
	}

	var advisorGenerator advisor.TextGenerator
	if params.Config.AdvisorEnabled {
		if params.GeminiAPIKey == "" {
			log.Warnln("advisor enabled but gemini api key empty, advisor stays off")
		} else {
			advisorGenerator, err = advisor.NewGeminiGenerator(ctx, params.GeminiAPIKey, params.Config.AdvisorModel)
			if err != nil {
				return nil, fmt.Errorf("new advisor generator: %w", err)
			}
		}
	}

	return &Server{
		config:           params.Config,
		store:            dataStore,
		versionInfo:      params.VersionInfo,
		redisClient:      rdb,
		authService:      authService,
		advisorGenerator: advisorGenerator,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	authHandler := auth.NewHandler(s.authService, s.versionInfo)
	r.HandleFunc("/", authHandler.HandleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	r.HandleFunc("/version", authHandler.HandleGetVersionInfo).Methods("GET").Name("version")

	loginSubrouter := r.PathPrefix("/a").Subrouter()
	loginSubrouter.
		HandleFunc("/login", authHandler.HandleLogin).
		Methods("POST", "OPTIONS").Name("login")
	loginSubrouter.
		HandleFunc("/logout", authHandler.HandleLogout).
		Methods("GET", "OPTIONS").Name("logout")

	// rate limit the /login and /logout endpoints to prevent abuse
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	loginSubrouter.Use(middleware.RateLimit(
		reqRateLimiter, "login",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	))
	loginSubrouter.Use(middleware.Cors())

	advisorTimeout := time.Duration(s.config.AdvisorTimeoutSeconds) * time.Second

	var (
		activitiesHandler *activities.Handler
		plansHandler      *plans.Handler
		complianceHandler *compliance.Handler
		loadHandler       *load.Handler
		journalHandler    *journal.Handler
	)
	switch s.store.Driver {
	case store.DriverPostgres:
		activitiesRepo := activities.NewRepo(s.store.PG)
		plansRepo := plans.NewRepo(s.store.PG)
		activitiesHandler = activities.NewHandler(activitiesRepo, s.metricsManager)
		plansHandler = plans.NewHandler(plansRepo, s.metricsManager)
		complianceHandler = compliance.NewHandler(plansRepo, activitiesRepo, s.metricsManager)
		loadHandler = load.NewHandler(
			load.NewMonitor(activitiesRepo, s.advisorGenerator, advisorTimeout, s.metricsManager),
		)
		journalHandler = journal.NewHandler(journal.NewRepo(s.store.PG))
	case store.DriverSQLite:
		activitiesRepo := activities.NewSQLiteRepo(s.store.SQLite)
		plansRepo := plans.NewSQLiteRepo(s.store.SQLite)
		activitiesHandler = activities.NewHandler(activitiesRepo, s.metricsManager)
		plansHandler = plans.NewHandler(plansRepo, s.metricsManager)
		complianceHandler = compliance.NewHandler(plansRepo, activitiesRepo, s.metricsManager)
		loadHandler = load.NewHandler(
			load.NewMonitor(activitiesRepo, s.advisorGenerator, advisorTimeout, s.metricsManager),
		)
		journalHandler = journal.NewHandler(journal.NewSQLiteRepo(s.store.SQLite))
	}

	r.HandleFunc("/activities", activitiesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-activity")
	r.HandleFunc("/activities/list/page/{page}/size/{size}", activitiesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-activities")
	r.HandleFunc("/activities/{id}", activitiesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-activity")
	r.HandleFunc("/activities", activitiesHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-activity")
	r.HandleFunc("/activities/{id}", activitiesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-activity")

	r.HandleFunc("/plans", plansHandler.HandleCreate).Methods("POST", "OPTIONS").Name("new-plan")
	r.HandleFunc("/plans/latest", plansHandler.HandleGetLatest).Methods("GET", "OPTIONS").Name("latest-plan")
	r.HandleFunc("/plans/sessions/{id}/reschedule", complianceHandler.HandleReschedule).Methods("POST", "OPTIONS").Name("reschedule-session")

	r.HandleFunc("/compliance", complianceHandler.HandleGetCompliance).Methods("GET", "OPTIONS").Name("compliance")
	r.HandleFunc("/load", loadHandler.HandleGetLoad).Methods("GET", "OPTIONS").Name("load")

	r.HandleFunc("/journal", journalHandler.HandleList).Methods("GET", "OPTIONS").Name("list-journal")
	r.HandleFunc("/journal", journalHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-journal-entry")
	r.HandleFunc("/journal", journalHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-journal-entry")
	r.HandleFunc("/journal/{id}", journalHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-journal-entry")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.advisorGenerator != nil {
		if err := s.advisorGenerator.Close(); err != nil {
			log.Errorf("failed to close advisor generator: %s", err)
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.store != nil {
		log.Debugln("closing store ...")
		if err := s.store.Close(); err != nil {
			log.Errorf("failed to close store: %s", err)
		}
		log.Debugln("store closed")
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
