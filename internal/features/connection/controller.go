package connection

import (
	"net/url"
	"strings"
	"time"

	common_api "demantive/internal/common/api"
	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ConnectionController struct {
	Service ConnectionService
	config  *config.Config
	logger  *zap.Logger
}

func NewConnectionController(service ConnectionService, cfg *config.Config, logger *zap.Logger) *ConnectionController {
	return &ConnectionController{Service: service, config: cfg, logger: logger}
}

type disconnectRequest struct {
	TenantID string          `json:"tenantId"`
	Provider models.Provider `json:"provider"`
}

// Authorize godoc
// @Summary      Start the CRM OAuth flow
// @Description  Redirects to the provider consent page and sets the signed state cookie.
// @Description  Clients sending Accept: application/json receive {"url": ...} instead.
// @Tags         connections
// @Param        provider  path   string  true  "hubspot"
// @Param        org       query  string  true  "Organization ID"
// @Success      302
// @Router       /api/auth/{provider}/authorize [get]
func (ctrl *ConnectionController) Authorize(c *fiber.Ctx) error {
	provider := models.Provider(c.Params("provider"))
	tenantID := middleware.TenantFromRequest(c)
	if tenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "org is required",
		})
	}

	req, err := ctrl.Service.BeginAuthorization(c.UserContext(), tenantID, middleware.Claims(c).UserID, provider)
	if err != nil {
		return common_api.HandleError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    req.StateCookie,
		Path:     "/api/auth",
		Expires:  req.ExpiresAt,
		HTTPOnly: true,
		Secure:   ctrl.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		return c.JSON(fiber.Map{"url": req.URL})
	}
	return c.Redirect(req.URL, fiber.StatusFound)
}

// Callback godoc
// @Summary      OAuth redirect target
// @Tags         connections
// @Param        provider  path   string  true  "hubspot"
// @Param        code      query  string  true  "Authorization code"
// @Param        state     query  string  true  "State"
// @Success      302
// @Failure      400  {object}  map[string]string
// @Router       /api/auth/{provider}/callback [get]
func (ctrl *ConnectionController) Callback(c *fiber.Ctx) error {
	provider := models.Provider(c.Params("provider"))
	cookie := c.Cookies(StateCookieName)
	ctrl.clearStateCookie(c)

	claims, err := ctrl.Service.ParseStateCookie(cookie)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	if claims.Provider != provider {
		return common_api.HandleError(c, errs.ErrStateMismatch)
	}

	if providerErr := c.Query("error"); providerErr != "" {
		ctrl.logger.Warn("provider denied authorization", zap.String("tenant_id", claims.TenantID), zap.String("error", providerErr))
		return c.Redirect(ctrl.settingsURL(claims.TenantID, "error", providerErr), fiber.StatusFound)
	}

	if _, err := ctrl.Service.CompleteAuthorization(c.UserContext(), c.Query("code"), c.Query("state"), claims.State, claims.TenantID, provider); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.Redirect(ctrl.settingsURL(claims.TenantID, "success", string(provider)), fiber.StatusFound)
}

// Disconnect godoc
// @Summary      Remove a CRM connection
// @Tags         connections
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /api/auth/disconnect [post]
func (ctrl *ConnectionController) Disconnect(c *fiber.Ctx) error {
	var req disconnectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Provider == "" {
		req.Provider = models.ProviderHubSpot
	}

	if err := ctrl.Service.Disconnect(c.UserContext(), middleware.Tenant(c), req.Provider); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Refresh godoc
// @Summary      Make sure the stored access token is fresh
// @Tags         connections
// @Param        provider  path  string  true  "hubspot"
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  map[string]any
// @Router       /api/auth/{provider}/refresh [post]
func (ctrl *ConnectionController) Refresh(c *fiber.Ctx) error {
	provider := models.Provider(c.Params("provider"))
	conn, err := ctrl.Service.GetActive(c.UserContext(), middleware.Tenant(c), provider)
	if err != nil {
		return common_api.HandleError(c, err)
	}
	if _, err := ctrl.Service.EnsureFreshToken(c.UserContext(), conn); err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// List godoc
// @Summary      List CRM connections for an organization
// @Tags         connections
// @Param        org  query  string  true  "Organization ID"
// @Success      200  {array}  connection.OAuthConnection
// @Router       /api/connections [get]
func (ctrl *ConnectionController) List(c *fiber.Ctx) error {
	conns, err := ctrl.Service.List(c.UserContext(), middleware.Tenant(c))
	if err != nil {
		return common_api.HandleError(c, err)
	}
	return c.JSON(conns)
}

func (ctrl *ConnectionController) clearStateCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/api/auth",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   ctrl.config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (ctrl *ConnectionController) settingsURL(tenantID, key, value string) string {
	q := url.Values{}
	q.Set("org", tenantID)
	q.Set(key, value)
	return ctrl.config.AppBaseURL + "/settings/connections?" + q.Encode()
}
