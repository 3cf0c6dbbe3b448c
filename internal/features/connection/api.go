package connection

import (
	"demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ConnectionApi struct {
	controller *ConnectionController
	config     *config.Config
	members    middleware.MembershipChecker
}

func NewConnectionApi(controller *ConnectionController, config *config.Config, members middleware.MembershipChecker) api.Route {
	return &ConnectionApi{
		controller: controller,
		config:     config,
		members:    members,
	}
}

// Setup registers OAuth and connection routes. The callback is reached by a browser redirect
// and authenticates through the signed state cookie instead of a bearer token.
func (h *ConnectionApi) Setup(app *fiber.App) {
	app.Get("/api/auth/:provider/callback", h.controller.Callback)

	auth := app.Group("/api/auth", middleware.AuthMiddleware(h.config.SkipAuth))
	auth.Get("/:provider/authorize", h.controller.Authorize)
	auth.Post("/disconnect", middleware.RequireTenantRole(h.members, middleware.RoleAdmin), h.controller.Disconnect)
	auth.Post("/:provider/refresh", middleware.RequireTenantRole(h.members, middleware.RoleEditor), h.controller.Refresh)

	connections := app.Group("/api/connections", middleware.AuthMiddleware(h.config.SkipAuth))
	connections.Get("/", middleware.RequireTenantRole(h.members, middleware.RoleViewer), h.controller.List)
}
