package connection

import (
	"testing"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/config"
	"demantive/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSignerRoundTrip(t *testing.T) {
	signer := NewStateSigner(&config.Config{JWTSecret: "s3cret"})

	cookie, expiresAt, err := signer.Sign(StateClaims{State: "abc", TenantID: "t1", UserID: "u1", Provider: models.ProviderHubSpot}, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(stateTTL), expiresAt, time.Second)

	claims, err := signer.Parse(cookie)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.State)
	assert.Equal(t, "t1", claims.TenantID)
}

func TestStateSignerRejects(t *testing.T) {
	signer := NewStateSigner(&config.Config{JWTSecret: "s3cret"})
	other := NewStateSigner(&config.Config{JWTSecret: "different"})

	expired, _, err := signer.Sign(StateClaims{State: "abc", TenantID: "t1"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	forged, _, err := other.Sign(StateClaims{State: "abc", TenantID: "t1"}, time.Now())
	require.NoError(t, err)

	// a user session token signed with the same secret must not pass as state
	utils.SetSecret("s3cret")
	session, err := utils.GenerateToken("u1", "", time.Hour)
	require.NoError(t, err)

	for name, cookie := range map[string]string{
		"empty":   "",
		"garbage": "not-a-jwt",
		"expired": expired,
		"forged":  forged,
		"session": session,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := signer.Parse(cookie)
			assert.ErrorIs(t, err, errs.ErrStateMismatch)
		})
	}
}
