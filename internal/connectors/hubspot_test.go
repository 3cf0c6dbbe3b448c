package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPageSendsBearerAndParsesCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "/crm/v3/objects/deals", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("after"))
		assert.Equal(t, "companies", r.URL.Query().Get("associations"))
		assert.Contains(t, r.URL.Query().Get("properties"), "dealstage")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [{
				"id": "42",
				"properties": {"dealname": "Big deal", "amount": "1234.5", "dealstage": "closedwon", "hs_campaign": null},
				"associations": {"companies": {"results": [{"id": "7", "type": "deal_to_company"}]}},
				"createdAt": "2024-01-02T03:04:05.000Z",
				"updatedAt": "2024-02-02T03:04:05.000Z"
			}],
			"paging": {"next": {"after": "def"}}
		}`))
	}))
	defer srv.Close()

	client := NewHubSpotClient(srv.URL, "tok-123", srv.Client())
	page, err := client.FetchPage(context.Background(), models.ObjectDeal, 100, "abc")
	require.NoError(t, err)

	assert.True(t, page.HasMore)
	assert.Equal(t, "def", page.NextCursor)
	require.Len(t, page.Results, 1)

	obj := page.Results[0]
	assert.Equal(t, "42", obj.ID)
	assert.Equal(t, "1234.5", obj.Prop("amount"))
	assert.Equal(t, "", obj.Prop("hs_campaign"))
	assert.Equal(t, "", obj.Prop("missing"))
	assert.Equal(t, "7", obj.FirstAssociation("companies"))
	assert.Contains(t, string(obj.Raw), `"dealname"`)
}

func TestFetchPageWithoutNextIsLastPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("after"))
		w.Write([]byte(`{"results": [{"id": "1", "properties": {"name": "Acme"}}]}`))
	}))
	defer srv.Close()

	page, err := NewHubSpotClient(srv.URL, "tok", srv.Client()).FetchPage(context.Background(), models.ObjectCompany, 10, "")
	require.NoError(t, err)

	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
	assert.Len(t, page.Results, 1)
}

func TestFetchPageNon2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":"error","message":"You have reached your secondly limit."}`))
	}))
	defer srv.Close()

	_, err := NewHubSpotClient(srv.URL, "tok", srv.Client()).FetchPage(context.Background(), models.ObjectContact, 100, "")

	var upstream *errs.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "secondly limit")
}

func TestFetchPageDeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHubSpotClient(srv.URL, "tok", srv.Client()).FetchPage(ctx, models.ObjectContact, 100, "")
	assert.ErrorIs(t, err, errs.ErrTimeout)
}

func TestObjectModifiedAtFallsBack(t *testing.T) {
	obj := Object{Properties: map[string]any{"createdate": "2023-05-01T00:00:00Z"}}
	got := obj.ModifiedAt()
	require.NotNil(t, got)
	assert.Equal(t, 2023, got.Year())

	obj.Properties["lastmodifieddate"] = "1700000000000"
	got = obj.ModifiedAt()
	require.NotNil(t, got)
	assert.Equal(t, int64(1700000000000), got.UnixMilli())

	assert.Nil(t, (&Object{}).ModifiedAt())
}
