package organization

import (
	"demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type OrganizationApi struct {
	controller *OrganizationController
	config     *config.Config
	members    middleware.MembershipChecker
}

func NewOrganizationApi(controller *OrganizationController, config *config.Config, members middleware.MembershipChecker) api.Route {
	return &OrganizationApi{
		controller: controller,
		config:     config,
		members:    members,
	}
}

// Setup registers organization routes
func (h *OrganizationApi) Setup(app *fiber.App) {
	orgs := app.Group("/api/orgs", middleware.AuthMiddleware(h.config.SkipAuth))

	orgs.Get("/", h.controller.ListMine)
	orgs.Post("/", h.controller.Create)
	orgs.Get("/members", middleware.RequireTenantRole(h.members, middleware.RoleViewer), h.controller.ListMembers)
	orgs.Post("/members", middleware.RequireTenantRole(h.members, middleware.RoleAdmin), h.controller.AddMember)
}
