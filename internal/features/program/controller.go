package program

import (
	common_api "demantive/internal/common/api"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProgramController struct {
	Service ProgramService
}

func NewProgramController(service ProgramService) *ProgramController {
	return &ProgramController{Service: service}
}

type createProgramRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
	Active      *bool   `json:"active"`
}

type createRuleRequest struct {
	Field     string    `json:"field"`
	MatchType MatchType `json:"match_type"`
	Pattern   string    `json:"pattern"`
	Enabled   *bool     `json:"enabled"`
	Priority  int       `json:"priority"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}

// RunMapping godoc
// @Summary      Classify all opportunities into programs
// @Tags         programs
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/programs/map [post]
func (ctrl *ProgramController) RunMapping(c *fiber.Ctx) error {
	result, err := ctrl.Service.RunMapping(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"mapped":  result.Mapped,
		"total":   result.Total,
	})
}

// ListPrograms godoc
// @Summary      List programs with their rules
// @Tags         programs
// @Param        org  query  string  true  "Organization ID"
// @Success      200  {array}  program.Program
// @Router       /api/programs [get]
func (ctrl *ProgramController) ListPrograms(c *fiber.Ctx) error {
	programs, err := ctrl.Service.ListPrograms(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(programs)
}

// CreateProgram godoc
// @Summary      Create a program
// @Tags         programs
// @Success      201  {object}  program.Program
// @Router       /api/programs [post]
func (ctrl *ProgramController) CreateProgram(c *fiber.Ctx) error {
	var req createProgramRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	p := &Program{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Active:      boolOr(req.Active, true),
	}
	if err := ctrl.Service.CreateProgram(c.UserContext(), middleware.Tenant(c), p); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdateProgram godoc
// @Summary      Update a program
// @Tags         programs
// @Param        id  path  string  true  "Program ID"
// @Success      200  {object}  program.Program
// @Router       /api/programs/{id} [patch]
func (ctrl *ProgramController) UpdateProgram(c *fiber.Ctx) error {
	var upd ProgramUpdate
	if err := c.BodyParser(&upd); err != nil {
		return badBody(c)
	}

	p, err := ctrl.Service.UpdateProgram(c.UserContext(), middleware.Tenant(c), c.Params("id"), upd)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(p)
}

// DeleteProgram godoc
// @Summary      Delete a program and its rules
// @Tags         programs
// @Param        id  path  string  true  "Program ID"
// @Success      204
// @Router       /api/programs/{id} [delete]
func (ctrl *ProgramController) DeleteProgram(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteProgram(c.UserContext(), middleware.Tenant(c), c.Params("id")); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateRule godoc
// @Summary      Add a rule to a program
// @Tags         programs
// @Param        id  path  string  true  "Program ID"
// @Success      201  {object}  program.ProgramRule
// @Router       /api/programs/{id}/rules [post]
func (ctrl *ProgramController) CreateRule(c *fiber.Ctx) error {
	var req createRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	rule := &ProgramRule{
		Field:     req.Field,
		MatchType: req.MatchType,
		Pattern:   req.Pattern,
		Enabled:   boolOr(req.Enabled, true),
		Priority:  req.Priority,
	}
	if err := ctrl.Service.CreateRule(c.UserContext(), middleware.Tenant(c), c.Params("id"), rule); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rule)
}

// UpdateRule godoc
// @Summary      Update a rule
// @Tags         programs
// @Param        id      path  string  true  "Program ID"
// @Param        ruleId  path  string  true  "Rule ID"
// @Success      200  {object}  program.ProgramRule
// @Router       /api/programs/{id}/rules/{ruleId} [patch]
func (ctrl *ProgramController) UpdateRule(c *fiber.Ctx) error {
	var upd RuleUpdate
	if err := c.BodyParser(&upd); err != nil {
		return badBody(c)
	}

	rule, err := ctrl.Service.UpdateRule(c.UserContext(), middleware.Tenant(c), c.Params("id"), c.Params("ruleId"), upd)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(rule)
}

// DeleteRule godoc
// @Summary      Delete a rule
// @Tags         programs
// @Success      204
// @Router       /api/programs/{id}/rules/{ruleId} [delete]
func (ctrl *ProgramController) DeleteRule(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteRule(c.UserContext(), middleware.Tenant(c), c.Params("id"), c.Params("ruleId")); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAssignments godoc
// @Summary      Current opportunity to program assignments
// @Tags         programs
// @Success      200  {array}  program.Assignment
// @Router       /api/programs/assignments [get]
func (ctrl *ProgramController) ListAssignments(c *fiber.Ctx) error {
	assignments, err := ctrl.Service.ListAssignments(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(assignments)
}
