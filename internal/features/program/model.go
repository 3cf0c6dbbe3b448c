package program

import "time"

type MatchType string

const (
	MatchEquals     MatchType = "equals"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
	MatchEndsWith   MatchType = "ends_with"
	MatchRegex      MatchType = "regex"
)

func (m MatchType) Valid() bool {
	switch m {
	case MatchEquals, MatchContains, MatchStartsWith, MatchEndsWith, MatchRegex:
		return true
	}
	return false
}

const DefaultColor = "#000000"

// AssignmentConfidence is fixed; rules either match or they don't.
const AssignmentConfidence = 100

type Program struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Color       string        `json:"color"`
	Active      bool          `json:"active"`
	Rules       []ProgramRule `json:"rules"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ProgramRule struct {
	ID        string    `json:"id"`
	ProgramID string    `json:"program_id"`
	Field     string    `json:"field"`
	MatchType MatchType `json:"match_type"`
	Pattern   string    `json:"pattern"`
	Enabled   bool      `json:"enabled"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment links one record to the program that won classification.
type Assignment struct {
	TenantID   string    `json:"tenant_id"`
	RecordType string    `json:"record_type"`
	RecordID   string    `json:"record_id"`
	ProgramID  string    `json:"program_id"`
	Confidence int       `json:"confidence"`
	AssignedAt time.Time `json:"assigned_at"`
}

type MappingResult struct {
	Mapped int `json:"mapped"`
	Total  int `json:"total"`
}

// ProgramUpdate carries the fields a PATCH may change; nil fields are left alone.
type ProgramUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Active      *bool   `json:"active"`
}

type RuleUpdate struct {
	Field     *string    `json:"field"`
	MatchType *MatchType `json:"match_type"`
	Pattern   *string    `json:"pattern"`
	Enabled   *bool      `json:"enabled"`
	Priority  *int       `json:"priority"`
}
