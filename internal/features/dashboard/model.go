package dashboard

import "time"

// StatusSummary aggregates opportunities sharing a status. Amounts are minor units.
type StatusSummary struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Amount int64  `json:"amount"`
}

// ProgramSummary aggregates opportunities by assigned program. ProgramID is nil for unmapped ones.
type ProgramSummary struct {
	ProgramID   *string `json:"program_id"`
	ProgramName string  `json:"program_name"`
	Color       string  `json:"color"`
	Count       int     `json:"count"`
	Amount      int64   `json:"amount"`
}

type PipelineSummary struct {
	TotalOpportunities int              `json:"total_opportunities"`
	TotalAmount        int64            `json:"total_amount"`
	OpenAmount         int64            `json:"open_amount"`
	WonAmount          int64            `json:"won_amount"`
	WinRate            float64          `json:"win_rate"`
	Unmapped           int              `json:"unmapped"`
	ByStatus           []StatusSummary  `json:"by_status"`
	ByProgram          []ProgramSummary `json:"by_program"`
}

// PipelineRow is one opportunity line of the export.
type PipelineRow struct {
	Name      string
	Stage     string
	Status    string
	Amount    *int64
	CloseDate *time.Time
	Source    string
	Program   string
}
