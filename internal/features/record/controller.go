package record

import (
	common_api "demantive/internal/common/api"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RecordController struct {
	Service RecordService
}

func NewRecordController(service RecordService) *RecordController {
	return &RecordController{Service: service}
}

// ListCompanies godoc
// @Summary      List normalized companies
// @Tags         records
// @Param        org    query  string  true   "Organization ID"
// @Param        page   query  int     false  "Page"
// @Param        limit  query  int     false  "Page size"
// @Success      200  {object}  map[string]any
// @Router       /api/records/companies [get]
func (ctrl *RecordController) ListCompanies(c *fiber.Ctx) error {
	page := ParseInt(c.Query("page"), 1)
	limit := ParseInt(c.Query("limit"), 50)

	companies, err := ctrl.Service.ListCompanies(c.UserContext(), middleware.Tenant(c), page, limit)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  companies,
		"page":  page,
		"limit": limit,
	})
}

// ListPeople godoc
// @Summary      List normalized contacts
// @Tags         records
// @Param        org    query  string  true   "Organization ID"
// @Success      200  {object}  map[string]any
// @Router       /api/records/people [get]
func (ctrl *RecordController) ListPeople(c *fiber.Ctx) error {
	page := ParseInt(c.Query("page"), 1)
	limit := ParseInt(c.Query("limit"), 50)

	people, err := ctrl.Service.ListPeople(c.UserContext(), middleware.Tenant(c), page, limit)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":  people,
		"page":  page,
		"limit": limit,
	})
}

// ListOpportunities godoc
// @Summary      List normalized opportunities
// @Tags         records
// @Param        org  query  string  true  "Organization ID"
// @Success      200  {array}  record.Opportunity
// @Router       /api/records/opportunities [get]
func (ctrl *RecordController) ListOpportunities(c *fiber.Ctx) error {
	opps, err := ctrl.Service.ListOpportunities(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(opps)
}
