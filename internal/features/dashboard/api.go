package dashboard

import (
	"demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DashboardApi struct {
	DashboardController *DashboardController
	Config              *config.Config
	Members             middleware.MembershipChecker
}

func NewDashboardApi(dashboardController *DashboardController, cfg *config.Config, members middleware.MembershipChecker) api.Route {
	return &DashboardApi{
		DashboardController: dashboardController,
		Config:              cfg,
		Members:             members,
	}
}

func (api *DashboardApi) Setup(app *fiber.App) {
	group := app.Group("/api/dashboard",
		middleware.AuthMiddleware(api.Config.SkipAuth),
		middleware.RequireTenantRole(api.Members, middleware.RoleViewer),
	)

	group.Get("/pipeline", api.DashboardController.Pipeline)
	group.Get("/pipeline/export", api.DashboardController.ExportPipeline)
}
