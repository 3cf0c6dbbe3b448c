package dashboard

import (
	"fmt"

	common_api "demantive/internal/common/api"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DashboardController struct {
	Service DashboardService
}

func NewDashboardController(service DashboardService) *DashboardController {
	return &DashboardController{Service: service}
}

// Pipeline godoc
// @Summary      Pipeline totals by status and program
// @Tags         dashboard
// @Param        org  query  string  true  "Organization ID"
// @Success      200  {object}  dashboard.PipelineSummary
// @Router       /api/dashboard/pipeline [get]
func (ctrl *DashboardController) Pipeline(c *fiber.Ctx) error {
	summary, err := ctrl.Service.Pipeline(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(summary)
}

// ExportPipeline godoc
// @Summary      Download the pipeline as XLSX
// @Tags         dashboard
// @Param        org  query  string  true  "Organization ID"
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}  file
// @Router       /api/dashboard/pipeline/export [get]
func (ctrl *DashboardController) ExportPipeline(c *fiber.Ctx) error {
	data, filename, err := ctrl.Service.ExportPipeline(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return c.Send(data)
}
