package sync

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/config"
	"demantive/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubSyncService struct {
	run    *SyncRun
	err    error
	tenant string
}

func (s *stubSyncService) Run(ctx context.Context, tenantID string, provider models.Provider) (*SyncRun, error) {
	s.tenant = tenantID
	if _, ok := ctx.Deadline(); !ok {
		return nil, errs.Invalid("missing deadline")
	}
	return s.run, s.err
}
func (s *stubSyncService) QuickSync(ctx context.Context, tenantID string, provider models.Provider) (*SyncRun, error) {
	return s.Run(ctx, tenantID, provider)
}
func (s *stubSyncService) ListRuns(ctx context.Context, tenantID string, limit int64) ([]SyncRun, error) {
	return nil, nil
}
func (s *stubSyncService) SyncAllActive(ctx context.Context, perRun time.Duration) (int, error) {
	return 0, nil
}

func newSyncApp(service SyncService) *fiber.App {
	ctrl := NewSyncController(service, &config.Config{SyncTimeout: time.Second})
	app := fiber.New()
	withTenant := func(c *fiber.Ctx) error {
		c.Locals(middleware.TenantLocalsKey, "tenant-1")
		return c.Next()
	}
	app.Post("/api/sync/:provider", withTenant, ctrl.Sync)
	app.Post("/api/sync/:provider/quick", withTenant, ctrl.QuickSync)
	return app
}

func doSync(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(`{"tenantId":"tenant-1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &body))
	return resp.StatusCode, body
}

func TestSyncControllerSuccess(t *testing.T) {
	service := &stubSyncService{run: &SyncRun{ID: primitive.NewObjectID(), Counts: Counts{Companies: 2, Contacts: 5, Deals: 1}}}

	status, body := doSync(t, newSyncApp(service), "/api/sync/hubspot")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"companies": float64(2), "contacts": float64(5), "deals": float64(1)}, body["counts"])
	assert.Equal(t, "tenant-1", service.tenant)
}

func TestSyncControllerErrors(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		err         error
		wantStatus  int
		wantExpired bool
	}{
		{"expired connection", "/api/sync/hubspot", errs.ErrReauthRequired, fiber.StatusUnauthorized, true},
		{"no connection", "/api/sync/hubspot/quick", errs.ErrNoConnection, fiber.StatusNotFound, false},
		{"already running", "/api/sync/hubspot", errs.ErrSyncInProgress, fiber.StatusConflict, false},
		{"timeout", "/api/sync/hubspot", errs.ErrTimeout, fiber.StatusGatewayTimeout, false},
		{"upstream", "/api/sync/hubspot", &errs.UpstreamError{StatusCode: 500, Body: "boom"}, fiber.StatusBadGateway, false},
		{"unknown provider", "/api/sync/pipedrive", nil, fiber.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doSync(t, newSyncApp(&stubSyncService{err: tt.err}), tt.path)
			assert.Equal(t, tt.wantStatus, status)
			assert.NotEmpty(t, body["error"])
			if tt.wantExpired {
				assert.Equal(t, true, body["expired"])
			} else {
				assert.NotContains(t, body, "expired")
			}
		})
	}
}
