// Package mgmt is the operational HTTP surface: liveness, Prometheus
// metrics and a read-only view of the persisted task queue for debugging
// stuck sprints and sweeps.
package mgmt

import (
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/store"
)

// Config holds the server settings.
type Config struct {
	ListenAddr string
	// APIKey guards /api/v1 routes when set; probe endpoints are always
	// open.
	APIKey string
}

// Server is the management API Fiber application.
type Server struct {
	app       *fiber.App
	store     *store.Store
	logger    zerolog.Logger
	config    Config
	startTime time.Time
}

// NewServer creates and configures the management server.
func NewServer(cfg Config, s *store.Store, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	srv := &Server{
		app:       app,
		store:     s,
		logger:    logger.With().Str("component", "mgmt").Logger(),
		config:    cfg,
		startTime: time.Now(),
	}

	app.Use(recover.New())
	app.Use(srv.authMiddleware)

	app.Get("/healthz", srv.handleHealthz)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	v1 := app.Group("/api/v1")
	v1.Get("/tasks", srv.handleListTasks)

	return srv
}

func (s *Server) authMiddleware(c *fiber.Ctx) error {
	if s.config.APIKey == "" {
		return c.Next()
	}
	path := c.Path()
	if path == "/healthz" || path == "/metrics" {
		return c.Next()
	}

	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.config.APIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}
	return c.Next()
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	active, err := s.store.ActiveSprintCount()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to count active sprints")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status": "degraded",
		})
	}

	return c.JSON(fiber.Map{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"active_sprints": active,
	})
}

type taskView struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	RunAt    int64  `json:"run_at"`
	Object   string `json:"object"`
	ObjectID int64  `json:"object_id"`
	Created  int64  `json:"created"`
}

func (s *Server) handleListTasks(c *fiber.Ctx) error {
	tasks, err := s.store.PendingTasks()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list tasks")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list tasks",
		})
	}

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView{
			ID:       t.ID,
			Type:     t.Type,
			RunAt:    t.RunAt,
			Object:   t.Object,
			ObjectID: t.ObjectID,
			Created:  t.Created,
		})
	}
	return c.JSON(fiber.Map{
		"count": len(views),
		"tasks": views,
	})
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8090"
	}
	s.logger.Info().Str("addr", addr).Msg("management server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
