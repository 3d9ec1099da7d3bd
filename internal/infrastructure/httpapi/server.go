package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"

	"UpdateSentinel/internal/infrastructure/storage"
	"UpdateSentinel/internal/ports"
	"UpdateSentinel/internal/queue"
	"UpdateSentinel/internal/usecase"
)

// Server exposes the REST surface over the store and the pipeline.
type Server struct {
	store   ports.Store
	monitor *usecase.Monitor
	queues  *queue.Set
	logger  *slog.Logger
}

// NewServer builds the Fiber application with all routes registered.
func NewServer(store ports.Store, monitor *usecase.Monitor, queues *queue.Set, logger *slog.Logger) *fiber.App {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   store,
		monitor: monitor,
		queues:  queues,
		logger:  logger.With("component", "httpapi"),
	}

	app := fiber.New(fiber.Config{AppName: "UpdateSentinel API"})
	app.Use(fiberrecover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := app.Group("/api")

	api.Get("/dashboard/stats", s.getStats)

	api.Get("/vendors", s.listVendors)
	api.Post("/vendors", s.createVendor)
	api.Put("/vendors/:id", s.updateVendor)
	api.Delete("/vendors/:id", s.deleteVendor)

	api.Get("/sources", s.listSources)
	api.Post("/sources", s.createSource)
	api.Put("/sources/:id", s.updateSource)

	api.Get("/modules", s.listModules)
	api.Post("/modules", s.createModule)

	api.Get("/assets", s.listAssets)
	api.Post("/assets", s.createAsset)

	api.Get("/events", s.listEvents)

	api.Get("/impacts", s.listImpacts)
	api.Get("/impacts/pending", s.listPendingImpacts)
	api.Post("/impacts/:id/approve", s.approveImpact)
	api.Post("/impacts/:id/reject", s.rejectImpact)

	api.Get("/tasks", s.listTasks)
	api.Put("/tasks/:id", s.updateTask)

	api.Post("/monitoring/manual-run", s.manualRun)
	api.Post("/webhook/change-detected", s.webhookChangeDetected)

	return app
}

// fail renders an error response, translating store misses to 404.
func fail(c *fiber.Ctx, status int, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
