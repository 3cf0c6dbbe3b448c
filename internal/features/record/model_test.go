package record

import (
	"testing"

	"demantive/internal/common/models"

	"github.com/stretchr/testify/assert"
)

func TestOpportunityField(t *testing.T) {
	source := "Webinar Q3"
	opp := &Opportunity{
		ID:         "id-1",
		ExternalID: "901",
		Provider:   models.ProviderHubSpot,
		Name:       "Acme renewal",
		Source:     &source,
		Status:     StatusWon,
	}

	assert.Equal(t, "Acme renewal", opp.Field("name"))
	assert.Equal(t, "Webinar Q3", opp.Field("Source"))
	assert.Equal(t, "won", opp.Field("status"))
	assert.Equal(t, "901", opp.Field("external_id"))
	assert.Equal(t, "", opp.Field("stage"))
	assert.Equal(t, "", opp.Field("no_such_field"))
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Nil(t, StringPtr("   "))
	if assert.NotNil(t, StringPtr(" acme.com ")) {
		assert.Equal(t, "acme.com", *StringPtr(" acme.com "))
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		page, limit        int
		wantLimit, wantOff int
	}{
		{1, 10, 10, 0},
		{3, 10, 10, 20},
		{0, 0, 50, 0},
		{2, 1000, maxPageSize, maxPageSize},
	}
	for _, tt := range tests {
		limit, off := paginate(tt.page, tt.limit)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantOff, off)
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in       string
		def      int
		expected int
	}{
		{"5", 1, 5},
		{"7", 1, 7},
		{"", 1, 1},
		{"-3", 20, 20},
		{"0", 20, 20},
		{"abc", 7, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseInt(tt.in, tt.def), "input %q", tt.in)
	}
}
