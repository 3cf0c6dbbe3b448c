package record

import (
	"strings"
	"time"

	"demantive/internal/common/models"
)

type OpportunityStatus string

const (
	StatusOpen OpportunityStatus = "open"
	StatusWon  OpportunityStatus = "won"
	StatusLost OpportunityStatus = "lost"
)

// RecordTypeOpportunity is the record_type stored with program assignments.
const RecordTypeOpportunity = "opportunity"

type Company struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	Provider   models.Provider `json:"provider"`
	ExternalID string          `json:"external_id"`
	Name       string          `json:"name"`
	Domain     *string         `json:"domain,omitempty"`
	Industry   *string         `json:"industry,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Person struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	Provider   models.Provider `json:"provider"`
	ExternalID string          `json:"external_id"`
	Email      *string         `json:"email,omitempty"`
	FirstName  *string         `json:"first_name,omitempty"`
	LastName   *string         `json:"last_name,omitempty"`
	CompanyID  *string         `json:"company_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Opportunity amounts are integer minor currency units.
type Opportunity struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	Provider   models.Provider   `json:"provider"`
	ExternalID string            `json:"external_id"`
	Name       string            `json:"name"`
	CompanyID  *string           `json:"company_id,omitempty"`
	Amount     *int64            `json:"amount,omitempty"`
	Stage      *string           `json:"stage,omitempty"`
	Status     OpportunityStatus `json:"status"`
	CloseDate  *time.Time        `json:"close_date,omitempty"`
	Source     *string           `json:"source,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Field returns the named attribute as text for rule matching. Unknown or unset fields are "".
func (o *Opportunity) Field(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "id":
		return o.ID
	case "name":
		return o.Name
	case "source":
		return deref(o.Source)
	case "stage":
		return deref(o.Stage)
	case "status":
		return string(o.Status)
	case "external_id", "externalid":
		return o.ExternalID
	case "provider":
		return string(o.Provider)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for blank values so optional columns stay NULL.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
