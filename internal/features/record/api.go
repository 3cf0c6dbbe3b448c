package record

import (
	"demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RecordApi struct {
	controller *RecordController
	config     *config.Config
	members    middleware.MembershipChecker
}

func NewRecordApi(controller *RecordController, config *config.Config, members middleware.MembershipChecker) api.Route {
	return &RecordApi{
		controller: controller,
		config:     config,
		members:    members,
	}
}

// Setup registers read-only routes over the normalized tables
func (h *RecordApi) Setup(app *fiber.App) {
	records := app.Group("/api/records",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireTenantRole(h.members, middleware.RoleViewer),
	)

	records.Get("/companies", h.controller.ListCompanies)
	records.Get("/people", h.controller.ListPeople)
	records.Get("/opportunities", h.controller.ListOpportunities)
}
