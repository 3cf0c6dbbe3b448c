package connection

import (
	"time"

	"demantive/internal/common/models"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
	StatusError   Status = "error"
)

// RefreshWindow is how close to expiry an access token may get before it is refreshed.
const RefreshWindow = 5 * time.Minute

// OAuthConnection is a tenant's link to one CRM provider. Token ciphertexts never leave the service.
type OAuthConnection struct {
	ID                 string          `json:"id"`
	TenantID           string          `json:"tenant_id"`
	Provider           models.Provider `json:"provider"`
	AccessTokenCipher  string          `json:"-"`
	RefreshTokenCipher *string         `json:"-"`
	Scope              string          `json:"scope"`
	ExpiresAt          *time.Time      `json:"expires_at,omitempty"`
	Status             Status          `json:"status"`
	LastSyncedAt       *time.Time      `json:"last_synced_at,omitempty"`
	Cursor             *string         `json:"-"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NeedsRefresh reports whether the access token expires within RefreshWindow of now.
// Connections without a known expiry are never refreshed proactively.
func (c *OAuthConnection) NeedsRefresh(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Sub(now) < RefreshWindow
}

// AuthorizationRequest is what the HTTP layer needs to send the user to the provider.
type AuthorizationRequest struct {
	URL         string
	State       string
	StateCookie string
	ExpiresAt   time.Time
}
