package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"

	"golang.org/x/oauth2"
)

const hubspotRequestTimeout = 30 * time.Second

// hubspotObjects maps object types to their v3 path segment and the properties requested.
var hubspotObjects = map[models.ObjectType]struct {
	path         string
	properties   []string
	associations []string
}{
	models.ObjectCompany: {
		path:       "companies",
		properties: []string{"name", "domain", "industry", "createdate", "hs_lastmodifieddate"},
	},
	models.ObjectContact: {
		path:       "contacts",
		properties: []string{"email", "firstname", "lastname", "company", "associatedcompanyid", "createdate", "lastmodifieddate"},
	},
	models.ObjectDeal: {
		path: "deals",
		properties: []string{
			"dealname", "amount", "dealstage", "closedate", "pipeline",
			"hs_campaign", "dealtype", "source", "hs_analytics_source",
			"createdate", "hs_lastmodifieddate",
		},
		associations: []string{"companies"},
	},
}

type HubSpotClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHubSpotClient returns a client that sends accessToken as a bearer token on every request.
// base may be nil, in which case a client with a 30s timeout is used.
func NewHubSpotClient(baseURL, accessToken string, base *http.Client) *HubSpotClient {
	if base == nil {
		base = &http.Client{Timeout: hubspotRequestTimeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = base.Timeout

	return &HubSpotClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

type hubspotListResponse struct {
	Results []json.RawMessage `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

func (c *HubSpotClient) FetchPage(ctx context.Context, objectType models.ObjectType, pageSize int, after string) (*Page, error) {
	def, ok := hubspotObjects[objectType]
	if !ok {
		return nil, errs.Invalid("unknown object type %q", objectType)
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))
	query.Set("properties", strings.Join(def.properties, ","))
	if len(def.associations) > 0 {
		query.Set("associations", strings.Join(def.associations, ","))
	}
	if after != "" {
		query.Set("after", after)
	}

	endpoint := fmt.Sprintf("%s/crm/v3/objects/%s?%s", c.baseURL, def.path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("fetch %s: %w", def.path, errs.ErrTimeout)
		}
		return nil, fmt.Errorf("fetch %s: %w", def.path, &errs.UpstreamError{Body: err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", def.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &errs.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var list hubspotListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", def.path, err)
	}

	page := &Page{Results: make([]Object, 0, len(list.Results))}
	for _, raw := range list.Results {
		var obj Object
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode %s object: %w", def.path, err)
		}
		obj.Raw = raw
		page.Results = append(page.Results, obj)
	}
	if list.Paging != nil && list.Paging.Next != nil && list.Paging.Next.After != "" {
		page.HasMore = true
		page.NextCursor = list.Paging.Next.After
	}
	return page, nil
}
