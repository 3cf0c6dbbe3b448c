package sync

import (
	"testing"
	"time"

	"demantive/internal/common/models"
	"demantive/internal/features/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseAmountCents(t *testing.T) {
	tests := []struct {
		in   string
		want *int64
	}{
		{"1234.5", ptr(123450)},
		{"1234.56", ptr(123456)},
		{" 42 ", ptr(4200)},
		{"0.005", ptr(1)},
		{"-0.005", ptr(-1)},
		{"19.994", ptr(1999)},
		{"19.995", ptr(2000)},
		{"0.125", ptr(13)},
		{"-2.5", ptr(-250)},
		{"1e2", ptr(10000)},
		{"0", ptr(0)},
		{"", nil},
		{"abc", nil},
		{"1/3", nil},
		{"12,000", nil},
		{"999999999999999999999", nil},
		{"0x10", nil},
		{"0b101", nil},
		{"0o17", nil},
		{"1_000", nil},
		{"1e99999", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAmountCents(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func ptr(v int64) *int64 { return &v }

func TestDeriveStatus(t *testing.T) {
	tests := map[string]record.OpportunityStatus{
		"closedwon":               record.StatusWon,
		"Closed Won - Enterprise": record.StatusWon,
		"CLOSEDLOST":              record.StatusLost,
		"closed lost":             record.StatusLost,
		"appointmentscheduled":    record.StatusOpen,
		"":                        record.StatusOpen,
	}
	for stage, want := range tests {
		assert.Equal(t, want, DeriveStatus(stage), stage)
	}
}

func TestPickSource(t *testing.T) {
	obj := hsObject(t, "d1", map[string]any{"hs_campaign": "", "dealtype": "newbusiness", "source": "web"}, "")
	assert.Equal(t, "newbusiness", PickSource(&obj))

	obj = hsObject(t, "d2", map[string]any{"hs_analytics_source": "ORGANIC_SEARCH"}, "")
	assert.Equal(t, "ORGANIC_SEARCH", PickSource(&obj))

	obj = hsObject(t, "d3", map[string]any{"hs_campaign": nil}, "")
	assert.Equal(t, "", PickSource(&obj))
}

func TestOpportunityFromObject(t *testing.T) {
	obj := hsObject(t, "d1", map[string]any{
		"amount":    "1234.5",
		"dealstage": "closedwon",
		"closedate": "2024-03-01T00:00:00Z",
	}, "")
	companyID := "company-row"

	opp := opportunityFromObject("tenant-1", models.ProviderHubSpot, &obj, &companyID)

	assert.Equal(t, defaultDealName, opp.Name)
	assert.Equal(t, int64(123450), *opp.Amount)
	assert.Equal(t, record.StatusWon, opp.Status)
	assert.Equal(t, "closedwon", *opp.Stage)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *opp.CloseDate)
	assert.Nil(t, opp.Source)
	assert.Equal(t, &companyID, opp.CompanyID)
}

func TestOpportunityMissingAmountIsNull(t *testing.T) {
	obj := hsObject(t, "d1", map[string]any{"dealname": "Pilot", "amount": "n/a"}, "")
	opp := opportunityFromObject("tenant-1", models.ProviderHubSpot, &obj, nil)

	assert.Nil(t, opp.Amount)
	assert.Equal(t, record.StatusOpen, opp.Status)
	assert.Nil(t, opp.Stage)
}

func TestRawObjectRoundTrip(t *testing.T) {
	obj := hsObject(t, "d1", map[string]any{
		"dealname":            "Acme renewal",
		"hs_lastmodifieddate": "2024-05-01T10:00:00Z",
	}, "c9")

	raw, err := NewRawObject("tenant-1", models.ProviderHubSpot, models.ObjectDeal, &obj)
	require.NoError(t, err)
	assert.Equal(t, "d1", raw.ExternalID)
	require.NotNil(t, raw.SystemModstamp)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), *raw.SystemModstamp)

	back, err := raw.Object()
	require.NoError(t, err)
	assert.Equal(t, "d1", back.ID)
	assert.Equal(t, "Acme renewal", back.Prop("dealname"))
	assert.Equal(t, "c9", back.FirstAssociation("companies"))
}

func TestRawObjectRejectsEmptyPayload(t *testing.T) {
	obj := hsObject(t, "d1", nil, "")
	obj.Raw = nil

	_, err := NewRawObject("tenant-1", models.ProviderHubSpot, models.ObjectDeal, &obj)
	assert.Error(t, err)
}

func TestRawObjectUpsertKeepsFirstSeen(t *testing.T) {
	obj := hsObject(t, "c1", map[string]any{"name": "Acme"}, "")
	raw, err := NewRawObject("tenant-1", models.ProviderHubSpot, models.ObjectCompany, &obj)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	filter, update := rawObjectUpsert(raw, now)

	assert.Equal(t, bson.M{
		"tenant_id":   "tenant-1",
		"provider":    models.ProviderHubSpot,
		"object_type": models.ObjectCompany,
		"external_id": "c1",
	}, filter)

	set := update["$set"].(bson.M)
	assert.Equal(t, now, set["last_seen_at"])
	assert.NotContains(t, set, "first_seen_at")
	assert.Equal(t, bson.M{"first_seen_at": now}, update["$setOnInsert"])
}
