package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"checkin-queue/internal/http/middleware"
	"checkin-queue/internal/models"
	"checkin-queue/internal/realtime"
)

// Engine is the queue engine as seen by the HTTP layer.
type Engine interface {
	CheckIn(ctx context.Context, patronName string) (models.CheckInResult, error)
	ListWaiting(ctx context.Context) ([]models.QueueEntry, error)
	Complete(ctx context.Context, id int64) (bool, error)
	ClearPastDue(ctx context.Context, id int64) (bool, error)
	Analytics(ctx context.Context, days int) (models.AnalyticsReport, error)
}

type Options struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration

	// Health reports store reachability for /healthz.
	Health func(ctx context.Context) error
}

// Handler translates HTTP and websocket traffic into engine calls and
// pushes the resulting events through the hub. It holds no queue state.
type Handler struct {
	engine Engine
	hub    *realtime.Hub
	opts   Options
}

func New(engine Engine, hub *realtime.Hub, opts Options) *Handler {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 20 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	return &Handler{engine: engine, hub: hub, opts: opts}
}

func (h *Handler) Register(app fiber.Router) {
	ws := websocket.New(h.QueueWebSocket)

	// staff dashboards connect on the origin root, plain GETs get a banner
	app.Get("/", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.JSON(fiber.Map{
			"message": "Check-in queue API running",
		})
	}, ws)
	app.Get("/ws", middleware.RequireUpgrade(), ws)
	app.Get("/healthz", h.Health)

	api := app.Group("/api")
	api.Post("/checkin", h.CheckIn)
	api.Get("/queue", h.GetQueue)
	api.Post("/complete/:id", h.Complete)
	api.Post("/clear-pastdue/:id", h.ClearPastDue)
	api.Get("/analytics", h.GetAnalytics)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if h.opts.Health != nil {
		if err := h.opts.Health(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{
		"status":    "ok",
		"observers": h.hub.Count(),
	})
}
