package system

import (
	"context"
	"time"

	"demantive/internal/common/api"
	"demantive/internal/database"

	"github.com/gofiber/fiber/v2"
)

const pingTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthApi struct {
	checks map[string]Pinger
}

func NewHealthApi(postgres *database.PostgresDB, mongodb *database.MongodbDB) api.Route {
	return &HealthApi{checks: map[string]Pinger{
		"postgres": postgres,
		"mongodb":  mongodb,
	}}
}

// Setup registers health check route
func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Pings both stores
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      500  {object}  map[string]any
// @Router       /health [get]
func (h *HealthApi) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), pingTimeout)
	defer cancel()

	status := "ok"
	dbs := fiber.Map{}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			dbs[name] = err.Error()
			status = "degraded"
			continue
		}
		dbs[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusInternalServerError
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"db":        dbs,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
