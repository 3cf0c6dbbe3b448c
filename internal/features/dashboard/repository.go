package dashboard

import (
	"context"
	"database/sql"

	"demantive/internal/database"
	"demantive/internal/features/record"
)

type DashboardRepository interface {
	SummaryByStatus(ctx context.Context, tenantID string) ([]StatusSummary, error)
	SummaryByProgram(ctx context.Context, tenantID string) ([]ProgramSummary, error)
	PipelineRows(ctx context.Context, tenantID string) ([]PipelineRow, error)
}

type DashboardRepositoryImpl struct {
	db *database.PostgresDB
}

func NewDashboardRepository(db *database.PostgresDB) DashboardRepository {
	return &DashboardRepositoryImpl{db: db}
}

func (r *DashboardRepositoryImpl) SummaryByStatus(ctx context.Context, tenantID string) ([]StatusSummary, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM opportunities WHERE tenant_id = $1
		GROUP BY status ORDER BY status`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StatusSummary{}
	for rows.Next() {
		var s StatusSummary
		if err := rows.Scan(&s.Status, &s.Count, &s.Amount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *DashboardRepositoryImpl) SummaryByProgram(ctx context.Context, tenantID string) ([]ProgramSummary, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT p.id, p.name, p.color, COUNT(o.id), COALESCE(SUM(o.amount), 0)
		FROM opportunities o
		LEFT JOIN record_programs rp
			ON rp.tenant_id = o.tenant_id AND rp.record_type = $2 AND rp.record_id = o.id
		LEFT JOIN programs p ON p.id = rp.program_id
		WHERE o.tenant_id = $1
		GROUP BY p.id, p.name, p.color
		ORDER BY COUNT(o.id) DESC, p.name`, tenantID, record.RecordTypeOpportunity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ProgramSummary{}
	for rows.Next() {
		var s ProgramSummary
		var id, name, color sql.NullString
		if err := rows.Scan(&id, &name, &color, &s.Count, &s.Amount); err != nil {
			return nil, err
		}
		if id.Valid {
			s.ProgramID = &id.String
		}
		s.ProgramName = name.String
		s.Color = color.String
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *DashboardRepositoryImpl) PipelineRows(ctx context.Context, tenantID string) ([]PipelineRow, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT o.name, o.stage, o.status, o.amount, o.close_date, o.source, p.name
		FROM opportunities o
		LEFT JOIN record_programs rp
			ON rp.tenant_id = o.tenant_id AND rp.record_type = $2 AND rp.record_id = o.id
		LEFT JOIN programs p ON p.id = rp.program_id
		WHERE o.tenant_id = $1
		ORDER BY o.created_at, o.id`, tenantID, record.RecordTypeOpportunity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PipelineRow{}
	for rows.Next() {
		var row PipelineRow
		var stage, source, program sql.NullString
		var amount sql.NullInt64
		var closeDate sql.NullTime
		if err := rows.Scan(&row.Name, &stage, &row.Status, &amount, &closeDate, &source, &program); err != nil {
			return nil, err
		}
		row.Stage, row.Source, row.Program = stage.String, source.String, program.String
		if amount.Valid {
			row.Amount = &amount.Int64
		}
		if closeDate.Valid {
			row.CloseDate = &closeDate.Time
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
