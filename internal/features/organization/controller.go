package organization

import (
	common_api "demantive/internal/common/api"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type OrganizationController struct {
	Service OrganizationService
}

func NewOrganizationController(service OrganizationService) *OrganizationController {
	return &OrganizationController{Service: service}
}

type createOrganizationRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	Role     string `json:"role"`
}

// ListMine godoc
// @Summary      List the caller's organizations
// @Tags         organizations
// @Produce      json
// @Success      200  {array}  organization.UserOrganization
// @Router       /api/orgs [get]
func (ctrl *OrganizationController) ListMine(c *fiber.Ctx) error {
	orgs, err := ctrl.Service.ListForUser(c.UserContext(), middleware.Claims(c).UserID)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(orgs)
}

// Create godoc
// @Summary      Create an organization; the caller becomes its admin
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Success      201  {object}  organization.Organization
// @Router       /api/orgs [post]
func (ctrl *OrganizationController) Create(c *fiber.Ctx) error {
	var req createOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	org, err := ctrl.Service.Create(c.UserContext(), req.Name, middleware.Claims(c).UserID)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(org)
}

// ListMembers godoc
// @Summary      List members of an organization
// @Tags         organizations
// @Produce      json
// @Param        org  query  string  true  "Organization ID"
// @Router       /api/orgs/members [get]
func (ctrl *OrganizationController) ListMembers(c *fiber.Ctx) error {
	members, err := ctrl.Service.ListMembers(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(members)
}

// AddMember godoc
// @Summary      Add or change a member's role
// @Tags         organizations
// @Accept       json
// @Router       /api/orgs/members [post]
func (ctrl *OrganizationController) AddMember(c *fiber.Ctx) error {
	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.AddMember(c.UserContext(), middleware.Tenant(c), req.UserID, req.Role); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
