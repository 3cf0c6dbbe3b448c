package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"demantive/internal/common/models"
)

// Object is one CRM record as returned by the provider. Raw keeps the full payload
// so it can be staged without loss.
type Object struct {
	ID           string                     `json:"id"`
	Properties   map[string]any             `json:"properties"`
	Associations map[string]AssociationList `json:"associations,omitempty"`
	CreatedAt    string                     `json:"createdAt,omitempty"`
	UpdatedAt    string                     `json:"updatedAt,omitempty"`
	Archived     bool                       `json:"archived,omitempty"`
	Raw          json.RawMessage            `json:"-"`
}

type AssociationList struct {
	Results []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"results"`
}

// Page is a single response of a paginated listing.
type Page struct {
	Results    []Object
	HasMore    bool
	NextCursor string
}

// CRMClient reads paginated objects from a provider with an already fresh access token.
type CRMClient interface {
	FetchPage(ctx context.Context, objectType models.ObjectType, pageSize int, after string) (*Page, error)
}

// Prop returns a property as a trimmed string. Missing and null properties are "".
func (o *Object) Prop(name string) string {
	v, ok := o.Properties[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// FirstAssociation returns the id of the first associated object of the given kind.
func (o *Object) FirstAssociation(kind string) string {
	list, ok := o.Associations[kind]
	if !ok || len(list.Results) == 0 {
		return ""
	}
	return list.Results[0].ID
}

// ModifiedAt is the provider-reported modification stamp, falling back to creation time.
func (o *Object) ModifiedAt() *time.Time {
	for _, candidate := range []string{
		o.Prop("lastmodifieddate"),
		o.Prop("hs_lastmodifieddate"),
		o.Prop("createdate"),
		o.UpdatedAt,
		o.CreatedAt,
	} {
		if t := ParseTime(candidate); t != nil {
			return t
		}
	}
	return nil
}

// ParseTime accepts RFC 3339 timestamps, plain dates and epoch milliseconds.
func ParseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t
	}
	return nil
}
