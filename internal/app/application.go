package app

import (
	"context"
	"io/fs"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"portal/internal/api"
	"portal/internal/auth"
	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/dispatch"
	"portal/internal/hub"
	"portal/internal/websocket"
	"portal/migrations"
	pkgdatabase "portal/pkg/database"
	"portal/pkg/interfaces"
	"portal/pkg/logger"
)

const (
	rateLimiterSweep = time.Minute
	rateLimiterIdle  = 10 * time.Minute
)

// Application coordinates all system components
// Clean dependency injection pattern with proper initialization order
type Application struct {
	config        *config.Config
	dbManager     *database.Manager
	registry      *websocket.Registry
	authenticator auth.Authenticator
	dispatcher    *dispatch.Dispatcher
	messageHub    *hub.Hub
	wsHandler     *websocket.Handler
	apiServer     *api.Server
	httpServer    *http.Server

	listener    net.Listener
	stopSweeper chan struct{}
	sweeperDone sync.WaitGroup
	log         zerolog.Logger
}

// NewApplication creates a new application instance with all components initialized
// Component initialization follows strict dependency order:
// Database → Registry → Auth → Dispatcher → Hub → WebSocket → API → HTTP
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Validate configuration before component initialization
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	log := logger.Component("app")

	// STEP 1: Initialize database manager (foundation layer)
	dbManager, err := database.NewManager(&cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database manager")
	}

	// STEP 1.5: Apply database migrations to ensure schema is up to date
	applied, err := Migrate(dbManager.GetDB(), &cfg.Database)
	if err != nil {
		_ = dbManager.Close()
		return nil, err
	}
	log.Info().Strs("applied", applied).Msg("database schema ready")

	// STEP 2: Initialize WebSocket registry for connection tracking
	registry := websocket.NewRegistry(cfg.WebSocket.CloseReplaced)

	// STEP 3: Identity provider shared by the socket handshake and the REST API
	authenticator, err := auth.New(cfg.Auth, dbManager)
	if err != nil {
		_ = dbManager.Close()
		return nil, errors.Wrap(err, "failed to initialize authenticator")
	}

	// STEP 4: Persist-then-fan-out engine
	dispatcher := dispatch.NewDispatcher(dbManager, registry, cfg.Dispatch)

	// STEP 5: Worker pool between socket read loops and the dispatcher
	messageHub := hub.NewHub(dispatcher, cfg.Hub.Workers, cfg.Hub.QueueSize)

	// STEP 6: Initialize WebSocket handler
	wsHandler := websocket.NewHandler(registry, authenticator, messageHub, websocket.HandlerConfig{
		AuthTimeout:  cfg.WebSocket.AuthTimeout,
		PingInterval: cfg.WebSocket.PingInterval,
		ReadTimeout:  cfg.WebSocket.ReadTimeout,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		BufferSize:   cfg.WebSocket.BufferSize,
	})

	// STEP 7: REST API, which also mounts /ws
	apiServer := api.NewServer(dbManager, dispatcher, authenticator, registry, api.Options{
		WebSocket: http.HandlerFunc(wsHandler.HandleWebSocket),
		Queue:     messageHub,
	})

	// STEP 8: Setup HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:        cfg,
		dbManager:     dbManager,
		registry:      registry,
		authenticator: authenticator,
		dispatcher:    dispatcher,
		messageHub:    messageHub,
		wsHandler:     wsHandler,
		apiServer:     apiServer,
		httpServer:    httpServer,
		log:           log,
	}, nil
}

// Migrate applies pending migrations from the embedded set, or from
// cfg.MigrationsPath when configured, then validates the resulting schema
func Migrate(db *sqlx.DB, cfg *pkgdatabase.Config) ([]string, error) {
	var source fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		source = os.DirFS(cfg.MigrationsPath)
	}

	manager := pkgdatabase.NewMigrationManager(db, source)
	applied, err := manager.ApplyMigrations()
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply database migrations")
	}
	if err := manager.ValidateSchema(); err != nil {
		return nil, errors.Wrap(err, "schema validation failed")
	}
	return applied, nil
}

// Start begins application execution
// Hub starts first to handle messages, then HTTP server accepts connections
func (app *Application) Start(ctx context.Context) error {
	if err := app.startWorkers(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		app.stopWorkers()
		return errors.Wrapf(err, "failed to listen on %s", app.httpServer.Addr)
	}
	app.listener = listener

	go func() {
		if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	app.log.Info().
		Str("addr", listener.Addr().String()).
		Str("auth_mode", app.authenticator.Mode()).
		Msg("portal started")
	return nil
}

func (app *Application) startWorkers(ctx context.Context) error {
	if err := app.messageHub.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start message hub")
	}

	app.stopSweeper = make(chan struct{})
	app.sweeperDone.Add(1)
	go app.sweepRateLimiter()
	return nil
}

func (app *Application) stopWorkers() {
	if app.stopSweeper != nil {
		close(app.stopSweeper)
		app.sweeperDone.Wait()
		app.stopSweeper = nil
	}
	if err := app.messageHub.Stop(); err != nil && !errors.Is(err, hub.ErrHubNotRunning) {
		app.log.Warn().Err(err).Msg("message hub shutdown error")
	}
}

func (app *Application) sweepRateLimiter() {
	defer app.sweeperDone.Done()

	ticker := time.NewTicker(rateLimiterSweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := app.dispatcher.RateLimiter().Cleanup(rateLimiterIdle); removed > 0 {
				app.log.Debug().Int("removed", removed).Msg("rate limiter swept")
			}
		case <-app.stopSweeper:
			return
		}
	}
}

// Stop gracefully shuts down the application
// Reverse dependency order: HTTP → Hub → Database
func (app *Application) Stop(ctx context.Context) error {
	app.log.Info().Msg("shutting down portal")

	// STEP 1: Stop accepting new connections
	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	// STEP 2: Close live sockets, including ones still in the handshake window,
	// and drop their registry entries so draining dispatches see them offline
	closed := app.wsHandler.CloseAll()
	app.registry.ForEach(func(userID string, _ interfaces.Connection) bool {
		app.registry.Unregister(userID)
		return true
	})
	app.log.Info().Int("closed", closed).Msg("websocket connections closed")

	// STEP 3: Drain queued dispatches
	app.stopWorkers()

	// STEP 4: Close database connections
	if err := app.dbManager.Close(); err != nil {
		return errors.Wrap(err, "database shutdown error")
	}

	app.log.Info().Msg("portal shutdown complete")
	return nil
}

// Addr returns the bound listen address once started, the configured one before
func (app *Application) Addr() string {
	if app.listener != nil {
		return app.listener.Addr().String()
	}
	return app.httpServer.Addr
}

// Handler is the root HTTP handler serving /api, /health and /ws
func (app *Application) Handler() http.Handler {
	return app.apiServer
}
