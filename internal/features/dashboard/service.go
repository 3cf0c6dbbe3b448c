package dashboard

import (
	"context"
	"fmt"
	"time"

	"demantive/internal/features/record"

	"github.com/xuri/excelize/v2"
)

const unmappedLabel = "Unmapped"

type DashboardService interface {
	Pipeline(ctx context.Context, tenantID string) (*PipelineSummary, error)
	ExportPipeline(ctx context.Context, tenantID string) ([]byte, string, error)
}

type DashboardServiceImpl struct {
	repo DashboardRepository
	now  func() time.Time
}

func NewDashboardService(repo DashboardRepository) DashboardService {
	return &DashboardServiceImpl{repo: repo, now: time.Now}
}

func (s *DashboardServiceImpl) Pipeline(ctx context.Context, tenantID string) (*PipelineSummary, error) {
	byStatus, err := s.repo.SummaryByStatus(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("summarize by status: %w", err)
	}
	byProgram, err := s.repo.SummaryByProgram(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("summarize by program: %w", err)
	}

	summary := &PipelineSummary{ByStatus: byStatus, ByProgram: byProgram}
	var won, lost int
	for _, st := range byStatus {
		summary.TotalOpportunities += st.Count
		summary.TotalAmount += st.Amount
		switch record.OpportunityStatus(st.Status) {
		case record.StatusOpen:
			summary.OpenAmount += st.Amount
		case record.StatusWon:
			summary.WonAmount += st.Amount
			won += st.Count
		case record.StatusLost:
			lost += st.Count
		}
	}
	if won+lost > 0 {
		summary.WinRate = float64(won) / float64(won+lost)
	}
	for i := range byProgram {
		if byProgram[i].ProgramID == nil {
			byProgram[i].ProgramName = unmappedLabel
			summary.Unmapped += byProgram[i].Count
		}
	}
	return summary, nil
}

// ExportPipeline renders the summary and every opportunity line into an XLSX workbook.
func (s *DashboardServiceImpl) ExportPipeline(ctx context.Context, tenantID string) ([]byte, string, error) {
	summary, err := s.Pipeline(ctx, tenantID)
	if err != nil {
		return nil, "", err
	}
	rows, err := s.repo.PipelineRows(ctx, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("load pipeline rows: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, "", err
	}
	writeTable(f, summarySheet, headerStyle, []string{"Program", "Opportunities", "Amount"}, len(summary.ByProgram), func(i int) []any {
		p := summary.ByProgram[i]
		return []any{p.ProgramName, p.Count, Major(p.Amount)}
	})

	const linesSheet = "Opportunities"
	if _, err := f.NewSheet(linesSheet); err != nil {
		return nil, "", err
	}
	writeTable(f, linesSheet, headerStyle, []string{"Name", "Stage", "Status", "Amount", "Close Date", "Source", "Program"}, len(rows), func(i int) []any {
		r := rows[i]
		var amount any
		if r.Amount != nil {
			amount = Major(*r.Amount)
		}
		closeDate := ""
		if r.CloseDate != nil {
			closeDate = r.CloseDate.Format("2006-01-02")
		}
		program := r.Program
		if program == "" {
			program = unmappedLabel
		}
		return []any{r.Name, r.Stage, r.Status, amount, closeDate, r.Source, program}
	})

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("pipeline-%s.xlsx", s.now().UTC().Format("20060102"))
	return buffer.Bytes(), filename, nil
}

func writeTable(f *excelize.File, sheet string, headerStyle int, columns []string, n int, row func(int) []any) {
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r := 0; r < n; r++ {
		for c, v := range row(r) {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 18)
	}
}

// Major converts minor units to a display amount.
func Major(minor int64) float64 {
	return float64(minor) / 100
}
