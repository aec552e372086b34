// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sentrasec/sentra/internal/config"
	"github.com/sentrasec/sentra/internal/device"
	"github.com/sentrasec/sentra/internal/health"
	"github.com/sentrasec/sentra/internal/idgen"
	"github.com/sentrasec/sentra/internal/logging"
	"github.com/sentrasec/sentra/internal/metrics"
	"github.com/sentrasec/sentra/internal/realtime"
	"github.com/sentrasec/sentra/internal/report"
	"github.com/sentrasec/sentra/internal/risk"
	"github.com/sentrasec/sentra/internal/traces"
	"github.com/sentrasec/sentra/internal/validation"
)

// Server wraps the HTTP server and the scoring engine dependencies.
type Server struct {
	cfg         *config.Config
	trust       *device.TrustScorer
	engine      *risk.Engine
	assembler   *report.Assembler
	predictions risk.Store
	hub         *realtime.Hub
	healthReg   *health.Registry
	db          *sql.DB // nil if using in-memory stores
	router      *gin.Engine
	httpSrv     *http.Server
	logger      *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a server with stores selected by configuration: PostgreSQL
// when DATABASE_URL is set, in-memory otherwise.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    slog.Default(),
		healthReg: health.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var (
		historyStore    device.HistoryStore
		predictionStore risk.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		s.db = db
		historyStore = device.NewPostgresStore(db)
		predictionStore = risk.NewPostgresStore(db)
		s.logger.Info("using postgresql stores")
	} else {
		historyStore = device.NewMemoryStore()
		predictionStore = risk.NewMemoryStore()
		s.logger.Info("using in-memory stores (no DATABASE_URL set)")
	}

	s.trust = device.NewTrustScorer(historyStore, s.logger)
	s.engine = risk.NewEngine(predictionStore)
	if cfg.JitterSeed != 0 {
		s.engine = s.engine.WithJitter(risk.NewSeededJitter(cfg.JitterSeed))
		s.logger.Warn("score jitter enabled", "seed", cfg.JitterSeed)
	}
	s.predictions = predictionStore
	s.assembler = report.NewAssembler(s.trust, s.engine, s.logger)
	s.hub = realtime.NewHub(s.logger)

	s.healthReg.Register("engine", func(ctx context.Context) health.Status {
		return health.Status{Name: "engine", Healthy: true}
	})
	if s.db != nil {
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			if err := s.db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}

	metrics.Register()
	s.setupRouter()
	return s, nil
}

func (s *Server) setupRouter() {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(metrics.Middleware())
	router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", metrics.Handler())
	router.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/devices/:userId/changes", s.handleDetectChanges)
		v1.POST("/devices/:userId/trust", s.handleTrustScore)
		v1.POST("/devices/:userId/report", s.handleDeviceReport)
		v1.DELETE("/devices/:userId/history", s.handleResetHistory)
		v1.POST("/transactions/predict", s.handlePredictFraud)
		v1.POST("/assessments", s.handleAssess)
		v1.GET("/predictions", s.handleListPredictions)
	}

	s.router = router
}

// requestLogger attaches a request ID and logs each request on completion.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := idgen.WithPrefix("req_")
		ctx := logging.WithRequestID(c.Request.Context(), reqID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-Id", reqID)

		start := time.Now()
		c.Next()

		s.logger.Debug("http request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"healthy": healthy, "subsystems": statuses})
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	shutdownTraces, err := traces.Init(ctx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		s.logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", "context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownPeriod)
	defer cancel()

	s.hub.Shutdown(shutdownCtx)
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := shutdownTraces(shutdownCtx); err != nil {
		s.logger.Warn("trace shutdown", "error", err)
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	s.logger.Info("shutdown complete")
	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
