package audit

import (
	"demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
	members    middleware.MembershipChecker
}

func NewAuditApi(controller *AuditController, config *config.Config, members middleware.MembershipChecker) api.Route {
	return &AuditApi{
		controller: controller,
		config:     config,
		members:    members,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	audit := app.Group("/api/audit", middleware.AuthMiddleware(h.config.SkipAuth))

	audit.Get("/", middleware.RequireTenantRole(h.members, middleware.RoleAdmin), h.controller.ListLogs)
}
