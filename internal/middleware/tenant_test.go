package middleware

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"demantive/internal/common/errs"
	"demantive/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMembership map[string]string // "tenant/user" -> role

func (s stubMembership) RoleFor(ctx context.Context, tenantID, userID string) (string, error) {
	role, ok := s[tenantID+"/"+userID]
	if !ok {
		return "", errs.ErrNotFound
	}
	return role, nil
}

func newTenantApp(checker MembershipChecker, minRole string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		setClaims(c, &utils.UserClaims{UserID: c.Get("X-User")})
		return c.Next()
	})
	handler := func(c *fiber.Ctx) error { return c.SendString(Tenant(c)) }
	app.Get("/", RequireTenantRole(checker, minRole), handler)
	app.Post("/", RequireTenantRole(checker, minRole), handler)
	return app
}

func TestRequireTenantRole(t *testing.T) {
	checker := stubMembership{"org-1/alice": RoleAdmin, "org-1/bob": RoleViewer}

	tests := []struct {
		name    string
		minRole string
		user    string
		method  string
		target  string
		body    string
		want    int
	}{
		{"admin via query", RoleAdmin, "alice", "GET", "/?org=org-1", "", fiber.StatusOK},
		{"editor via body", RoleEditor, "alice", "POST", "/", `{"tenantId":"org-1"}`, fiber.StatusOK},
		{"viewer below editor", RoleEditor, "bob", "POST", "/", `{"tenantId":"org-1"}`, fiber.StatusForbidden},
		{"viewer allowed to read", RoleViewer, "bob", "GET", "/?org=org-1", "", fiber.StatusOK},
		{"not a member", RoleViewer, "carol", "GET", "/?org=org-1", "", fiber.StatusForbidden},
		{"missing tenant", RoleViewer, "alice", "GET", "/", "", fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTenantApp(checker, tt.minRole)

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User", tt.user)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
