package middleware

import (
	"context"
	"encoding/json"
	"errors"

	"demantive/internal/common/errs"
	common_models "demantive/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// TenantLocalsKey holds the resolved tenant id in fiber Locals.
const TenantLocalsKey = "tenant_id"

var roleRank = map[string]int{RoleViewer: 1, RoleEditor: 2, RoleAdmin: 3}

// MembershipChecker resolves a user's role within a tenant.
type MembershipChecker interface {
	RoleFor(ctx context.Context, tenantID, userID string) (string, error)
}

// RequireTenantRole resolves the tenant from the "org" query, the :orgId param or a JSON
// "tenantId" body field and rejects users whose membership is below minRole.
func RequireTenantRole(checker MembershipChecker, minRole string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		tenantID := TenantFromRequest(c)
		if tenantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "tenantId is required",
			})
		}

		role, err := checker.RoleFor(c.UserContext(), tenantID, claims.UserID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrForbidden) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": "Access denied: not a member of this organization",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if roleRank[role] < roleRank[minRole] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: " + minRole + " role required",
			})
		}

		c.Locals(TenantLocalsKey, tenantID)
		c.SetUserContext(context.WithValue(c.UserContext(), common_models.TenantIDKey, tenantID))
		return c.Next()
	}
}

// TenantFromRequest extracts the tenant id without validating membership.
func TenantFromRequest(c *fiber.Ctx) string {
	if id := c.Query("org"); id != "" {
		return id
	}
	if id := c.Params("orgId"); id != "" {
		return id
	}
	if len(c.Body()) > 0 {
		var body struct {
			TenantID string `json:"tenantId"`
		}
		if err := json.Unmarshal(c.Body(), &body); err == nil {
			return body.TenantID
		}
	}
	return ""
}

// Tenant returns the tenant id resolved by RequireTenantRole.
func Tenant(c *fiber.Ctx) string {
	id, _ := c.Locals(TenantLocalsKey).(string)
	return id
}
