package sync

import (
	"demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncApi struct {
	controller *SyncController
	config     *config.Config
	members    middleware.MembershipChecker
}

func NewSyncApi(controller *SyncController, config *config.Config, members middleware.MembershipChecker) api.Route {
	return &SyncApi{
		controller: controller,
		config:     config,
		members:    members,
	}
}

// Setup registers sync routes
func (h *SyncApi) Setup(app *fiber.App) {
	sync := app.Group("/api/sync", middleware.AuthMiddleware(h.config.SkipAuth))

	sync.Get("/runs", middleware.RequireTenantRole(h.members, middleware.RoleViewer), h.controller.ListRuns)
	sync.Post("/:provider", middleware.RequireTenantRole(h.members, middleware.RoleEditor), h.controller.Sync)
	sync.Post("/:provider/quick", middleware.RequireTenantRole(h.members, middleware.RoleEditor), h.controller.QuickSync)
}
