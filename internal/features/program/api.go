package program

import (
	"demantive/internal/common/api"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProgramApi struct {
	controller *ProgramController
	config     *config.Config
	members    middleware.MembershipChecker
}

func NewProgramApi(controller *ProgramController, config *config.Config, members middleware.MembershipChecker) api.Route {
	return &ProgramApi{
		controller: controller,
		config:     config,
		members:    members,
	}
}

// Setup registers program, rule and mapping routes
func (h *ProgramApi) Setup(app *fiber.App) {
	programs := app.Group("/api/programs", middleware.AuthMiddleware(h.config.SkipAuth))

	viewer := middleware.RequireTenantRole(h.members, middleware.RoleViewer)
	editor := middleware.RequireTenantRole(h.members, middleware.RoleEditor)

	programs.Post("/map", editor, h.controller.RunMapping)
	programs.Get("/assignments", viewer, h.controller.ListAssignments)

	programs.Get("/", viewer, h.controller.ListPrograms)
	programs.Post("/", editor, h.controller.CreateProgram)
	programs.Patch("/:id", editor, h.controller.UpdateProgram)
	programs.Delete("/:id", editor, h.controller.DeleteProgram)

	programs.Post("/:id/rules", editor, h.controller.CreateRule)
	programs.Patch("/:id/rules/:ruleId", editor, h.controller.UpdateRule)
	programs.Delete("/:id/rules/:ruleId", editor, h.controller.DeleteRule)
}
