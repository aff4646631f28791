package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"portal/internal/auth"
	"portal/pkg/interfaces"
	"portal/pkg/logger"
	"portal/pkg/types"
)

// StatsProvider reports live connection counts
type StatsProvider interface {
	GetStats() map[string]int
}

// QueueMonitor reports pending dispatch work
type QueueMonitor interface {
	QueueDepth() int
}

// ARCHITECTURAL DISCOVERY: HTTP API layer serves as pure interface between external clients and internal components
// Persistence goes through the DatabaseManager; live delivery of messages
// created here goes through the same dispatcher fan-out as the socket path
type Server struct {
	echo          *echo.Echo
	db            interfaces.DatabaseManager
	dispatcher    interfaces.MessageDispatcher
	authenticator auth.Authenticator
	registry      StatsProvider
	queue         QueueMonitor
	log           zerolog.Logger
}

// Options carries the optional collaborators
type Options struct {
	// WebSocket is mounted at /ws when set
	WebSocket http.Handler
	Queue     QueueMonitor
}

type appValidator struct {
	validate *validator.Validate
}

func (v appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(db interfaces.DatabaseManager, dispatcher interfaces.MessageDispatcher, authenticator auth.Authenticator, registry StatsProvider, opts Options) *Server {
	s := &Server{
		echo:          echo.New(),
		db:            db,
		dispatcher:    dispatcher,
		authenticator: authenticator,
		registry:      registry,
		queue:         opts.Queue,
		log:           logger.Component("api"),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = appValidator{validate: types.Validator()}
	s.echo.HTTPErrorHandler = s.httpErrorHandler

	s.echo.Pre(middleware.RemoveTrailingSlash())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(s.requestLogger())

	s.setupRoutes(opts.WebSocket)
	return s
}

func (s *Server) setupRoutes(ws http.Handler) {
	s.echo.GET("/health", s.healthCheck)
	if ws != nil {
		s.echo.GET("/ws", echo.WrapHandler(ws))
	}

	api := s.echo.Group("/api", s.authenticate)
	api.GET("/stats", s.stats)

	registerMessageAPI(api, s)
	registerUserAPI(api, s)
	registerCourseAPI(api, s)
	registerEventAPI(api, s)
}

// ServeHTTP lets the server be mounted on a plain http.Server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.log.Debug()
			if v.Status >= http.StatusInternalServerError {
				ev = s.log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

// HealthResponse is the GET /health body
type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
}

// FUNCTIONAL DISCOVERY: Health check pings the database and reports live
// connection counts; an unreachable database is a 503
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Database:    "healthy",
		Connections: s.registry.GetStats(),
	}

	status := http.StatusOK
	if err := s.db.HealthCheck(ctx); err != nil {
		s.log.Warn().Err(err).Msg("health check failed")
		resp.Status = "unhealthy"
		resp.Database = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// StatsResponse is the GET /api/stats body
type StatsResponse struct {
	Connections map[string]int `json:"connections"`
	QueueDepth  int            `json:"queueDepth"`
}

func (s *Server) stats(c echo.Context) error {
	resp := StatsResponse{Connections: s.registry.GetStats()}
	if s.queue != nil {
		resp.QueueDepth = s.queue.QueueDepth()
	}
	return c.JSON(http.StatusOK, resp)
}
