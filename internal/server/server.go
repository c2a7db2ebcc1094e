package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/termprov/internal/api/http"
	"github.com/GriffinCanCode/termprov/internal/api/middleware"
	"github.com/GriffinCanCode/termprov/internal/infrastructure/config"
	"github.com/GriffinCanCode/termprov/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termprov/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/termprov/internal/logging"
	"github.com/GriffinCanCode/termprov/internal/providers/terminal"
	"github.com/GriffinCanCode/termprov/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	runtime  *Runtime
	sessions *terminal.Manager
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	done     chan struct{}
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, err
	}
	return newServer(ctx, cfg, logger)
}

func newServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing terminal provisioning server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Strings("workspace", cfg.Terminal.Workspace),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)
	tracer := tracing.New("termprov", logger.Component("tracing"))

	sessions := terminal.NewManager(logger.Component("pty"))
	runtime, err := Bootstrap(ctx, cfg, sessions, metrics, logger.Logger)
	if err != nil {
		tracer.Close()
		return nil, err
	}
	logger.Info("Provisioner ready",
		zap.String("mode", runtime.Provisioner.Mode()),
		zap.Int("members", len(runtime.Tree.Members())),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	handlers := api.NewHandlers(runtime.Provisioner, sessions, metrics, tracer, logger.Component("api"))
	handlers.Register(router)

	stream := ws.NewHandler(sessions, metrics, logger.Component("ws"), middleware.IsLoopbackOrigin)
	router.GET("/terminals/:id/stream", stream.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	done := make(chan struct{})
	go metrics.Run(done)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		runtime:  runtime,
		sessions: sessions,
		metrics:  metrics,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		done:     done,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Reload re-reads the settings files
func (s *Server) Reload() error {
	if err := s.runtime.Settings.Reload(); err != nil {
		s.logger.Error("Failed to reload settings", zap.Error(err))
		return err
	}
	s.logger.Info("Reloaded terminal settings")
	return nil
}

// Close gracefully shuts down the server and kills every terminal
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}

	s.sessions.Close()
	s.runtime.Close()
	close(s.done)
	s.tracer.Close()

	_ = s.logger.Sync()
	return err
}
