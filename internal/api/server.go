package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/afkloop/internal/audit"
	"github.com/nerrad567/afkloop/internal/auth"
	"github.com/nerrad567/afkloop/internal/control"
	"github.com/nerrad567/afkloop/internal/gameloop"
	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/infrastructure/logging"
	"github.com/nerrad567/afkloop/internal/perception"
	"github.com/nerrad567/afkloop/internal/state"
	"github.com/nerrad567/afkloop/internal/worker"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StatusSource reports the shared run state. Implemented by *state.State.
type StatusSource interface {
	Status() state.Status
}

// Controller executes control actions. Implemented by *control.Dispatcher.
type Controller interface {
	Do(ctx context.Context, action string) error
	Snapshot() control.Snapshot
}

// PredicateSource lists live predicates. Implemented by *perception.Engine.
type PredicateSource interface {
	Predicates() []perception.Predicate
}

// MatchHistory reads recorded matches. Implemented by *gameloop.SQLiteRecorder.
type MatchHistory interface {
	Recent(ctx context.Context, limit int) ([]gameloop.Match, error)
	Summary(ctx context.Context) (map[gameloop.Outcome]int, error)
}

// AuditSource reads the control audit trail. Implemented by *audit.SQLiteRepository.
type AuditSource interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// WorkerSource reports worker statistics. Implemented by *worker.Supervisor.
type WorkerSource interface {
	Stats() []worker.Stats
}

// HealthChecker is any component with a health probe.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BrokerStatus reports MQTT connectivity.
type BrokerStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
// Logger, Auth and State are required; the rest are optional and the
// endpoints that need them answer 503 when absent.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Auth       *auth.Authenticator
	State      StatusSource
	Control    Controller
	Predicates PredicateSource
	Matches    MatchHistory
	Audit      AuditSource
	Workers    WorkerSource
	DB         HealthChecker
	MQTT       BrokerStatus
	Version    string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	auth       *auth.Authenticator
	state      StatusSource
	control    Controller
	predicates PredicateSource
	matches    MatchHistory
	audit      AuditSource
	workers    WorkerSource
	db         HealthChecker
	mqtt       BrokerStatus
	version    string
	startTime  time.Time
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc // cancels the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The hub exists from construction so event sinks can attach to it before
// Start. The server is not listening until Start() is called.
//
// Parameters:
//   - deps: Required and optional dependencies
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if deps.State == nil {
		return nil, fmt.Errorf("state is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		auth:       deps.Auth,
		state:      deps.State,
		control:    deps.Control,
		predicates: deps.Predicates,
		matches:    deps.Matches,
		audit:      deps.Audit,
		workers:    deps.Workers,
		db:         deps.DB,
		mqtt:       deps.MQTT,
		version:    deps.Version,
		startTime:  time.Now(),
		hub:        NewHub(deps.WS, deps.Logger),
	}, nil
}

// Hub returns the WebSocket hub for event broadcasting.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the hub
//
// Returns:
//   - error: Always nil; listener errors are logged
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
