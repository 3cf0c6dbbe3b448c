package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"demantive/internal/common/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validKey = strings.Repeat("ab", 32)

func TestLoadConfigRequiresSecrets(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
	}{
		{
			name:    "missing encryption key",
			env:     map[string]string{"HUBSPOT_CLIENT_ID": "id", "HUBSPOT_CLIENT_SECRET": "secret"},
			wantKey: "ENCRYPTION_KEY",
		},
		{
			name:    "short encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": "abcd", "HUBSPOT_CLIENT_ID": "id", "HUBSPOT_CLIENT_SECRET": "secret"},
			wantKey: "ENCRYPTION_KEY",
		},
		{
			name:    "non hex encryption key",
			env:     map[string]string{"ENCRYPTION_KEY": strings.Repeat("zz", 32), "HUBSPOT_CLIENT_ID": "id", "HUBSPOT_CLIENT_SECRET": "secret"},
			wantKey: "ENCRYPTION_KEY",
		},
		{
			name:    "missing client id",
			env:     map[string]string{"ENCRYPTION_KEY": validKey, "HUBSPOT_CLIENT_SECRET": "secret"},
			wantKey: "HUBSPOT_CLIENT_ID",
		},
		{
			name:    "missing client secret",
			env:     map[string]string{"ENCRYPTION_KEY": validKey, "HUBSPOT_CLIENT_ID": "id"},
			wantKey: "HUBSPOT_CLIENT_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"ENCRYPTION_KEY", "HUBSPOT_CLIENT_ID", "HUBSPOT_CLIENT_SECRET"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)

			var cfgErr *errs.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", validKey)
	t.Setenv("HUBSPOT_CLIENT_ID", "id")
	t.Setenv("HUBSPOT_CLIENT_SECRET", "secret")
	t.Setenv("SYNC_TIMEOUT", "90s")
	t.Setenv("HUBSPOT_SCOPES", "crm.objects.deals.read,crm.objects.contacts.read")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.SyncTimeout)
	assert.Equal(t, []string{"crm.objects.deals.read", "crm.objects.contacts.read"}, cfg.HubSpotScopes)
	assert.Equal(t, "https://api.hubapi.com/oauth/v1/token", cfg.HubSpotTokenURL)
	assert.Empty(t, cfg.SyncSchedule)
}
