package sync

import (
	"context"
	"strconv"

	common_api "demantive/internal/common/api"
	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
	config  *config.Config
}

func NewSyncController(service SyncService, cfg *config.Config) *SyncController {
	return &SyncController{Service: service, config: cfg}
}

type runFunc func(ctx context.Context, tenantID string, provider models.Provider) (*SyncRun, error)

// Sync godoc
// @Summary      Run a full CRM sync
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        provider  path  string  true  "hubspot"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Router       /api/sync/{provider} [post]
func (ctrl *SyncController) Sync(c *fiber.Ctx) error {
	return ctrl.run(c, ctrl.Service.Run)
}

// QuickSync godoc
// @Summary      Sync the first few records of each object type
// @Tags         sync
// @Param        provider  path  string  true  "hubspot"
// @Success      200  {object}  map[string]any
// @Router       /api/sync/{provider}/quick [post]
func (ctrl *SyncController) QuickSync(c *fiber.Ctx) error {
	return ctrl.run(c, ctrl.Service.QuickSync)
}

// ListRuns godoc
// @Summary      Recent sync runs
// @Tags         sync
// @Param        org    query  string  true   "Organization ID"
// @Param        limit  query  int     false  "Max runs"
// @Success      200  {array}  sync.SyncRun
// @Router       /api/sync/runs [get]
func (ctrl *SyncController) ListRuns(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	runs, err := ctrl.Service.ListRuns(c.UserContext(), middleware.Tenant(c), limit)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(runs)
}

func (ctrl *SyncController) run(c *fiber.Ctx, fn runFunc) error {
	provider := models.Provider(c.Params("provider"))
	if !provider.Valid() {
		return common_api.HandleError(c, errs.ErrUnsupportedProvider)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), ctrl.config.SyncTimeout)
	defer cancel()

	run, err := fn(ctx, middleware.Tenant(c), provider)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"run_id":  run.ID.Hex(),
		"counts":  run.Counts,
	})
}
