package program

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/database"

	"github.com/google/uuid"
)

type ProgramRepository interface {
	ListActiveWithEnabledRules(ctx context.Context, tenantID string) ([]Program, error)
	ListPrograms(ctx context.Context, tenantID string) ([]Program, error)
	GetProgram(ctx context.Context, tenantID, id string) (*Program, error)
	CreateProgram(ctx context.Context, p *Program) error
	UpdateProgram(ctx context.Context, p *Program) error
	DeleteProgram(ctx context.Context, tenantID, id string) error
	GetRule(ctx context.Context, tenantID, programID, ruleID string) (*ProgramRule, error)
	CreateRule(ctx context.Context, r *ProgramRule) error
	UpdateRule(ctx context.Context, r *ProgramRule) error
	DeleteRule(ctx context.Context, tenantID, programID, ruleID string) error
	ReplaceAssignments(ctx context.Context, tenantID, recordType string, assignments []Assignment) error
	ListAssignments(ctx context.Context, tenantID, recordType string) ([]Assignment, error)
}

type ProgramRepositoryImpl struct {
	db *database.PostgresDB
}

func NewProgramRepository(db *database.PostgresDB) ProgramRepository {
	return &ProgramRepositoryImpl{db: db}
}

const programColumns = `p.id, p.tenant_id, p.name, p.description, p.color, p.active, p.created_at, p.updated_at`

const ruleColumns = `r.id, r.program_id, r.field, r.match_type, r.pattern, r.enabled, r.priority, r.created_at`

// ListActiveWithEnabledRules loads active programs that have at least one enabled rule, with only
// those rules attached. Programs come in creation order; rules by priority, then creation.
func (r *ProgramRepositoryImpl) ListActiveWithEnabledRules(ctx context.Context, tenantID string) ([]Program, error) {
	return r.listWithRules(ctx, `
		SELECT `+programColumns+`, `+ruleColumns+`
		FROM programs p
		JOIN program_rules r ON r.program_id = p.id AND r.enabled
		WHERE p.tenant_id = $1 AND p.active
		ORDER BY p.created_at, p.id, r.priority DESC, r.created_at, r.id`, tenantID)
}

func (r *ProgramRepositoryImpl) ListPrograms(ctx context.Context, tenantID string) ([]Program, error) {
	return r.listWithRules(ctx, `
		SELECT `+programColumns+`, `+ruleColumns+`
		FROM programs p
		LEFT JOIN program_rules r ON r.program_id = p.id
		WHERE p.tenant_id = $1
		ORDER BY p.created_at, p.id, r.priority DESC, r.created_at, r.id`, tenantID)
}

func (r *ProgramRepositoryImpl) listWithRules(ctx context.Context, query string, args ...any) ([]Program, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	programs := []Program{}
	index := map[string]int{}
	for rows.Next() {
		var p Program
		var description sql.NullString
		var ruleID, programID, field, matchType, pattern sql.NullString
		var enabled sql.NullBool
		var priority sql.NullInt64
		var ruleCreated sql.NullTime

		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &description, &p.Color, &p.Active, &p.CreatedAt, &p.UpdatedAt,
			&ruleID, &programID, &field, &matchType, &pattern, &enabled, &priority, &ruleCreated); err != nil {
			return nil, err
		}

		i, seen := index[p.ID]
		if !seen {
			if description.Valid {
				p.Description = &description.String
			}
			p.Rules = []ProgramRule{}
			programs = append(programs, p)
			i = len(programs) - 1
			index[p.ID] = i
		}
		if ruleID.Valid {
			programs[i].Rules = append(programs[i].Rules, ProgramRule{
				ID:        ruleID.String,
				ProgramID: programID.String,
				Field:     field.String,
				MatchType: MatchType(matchType.String),
				Pattern:   pattern.String,
				Enabled:   enabled.Bool,
				Priority:  int(priority.Int64),
				CreatedAt: ruleCreated.Time,
			})
		}
	}
	return programs, rows.Err()
}

func (r *ProgramRepositoryImpl) GetProgram(ctx context.Context, tenantID, id string) (*Program, error) {
	if !validIDs(tenantID, id) {
		return nil, errs.ErrNotFound
	}

	var p Program
	var description sql.NullString
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs p WHERE p.tenant_id = $1 AND p.id = $2`, tenantID, id,
	).Scan(&p.ID, &p.TenantID, &p.Name, &description, &p.Color, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	p.Rules = []ProgramRule{}
	return &p, nil
}

func (r *ProgramRepositoryImpl) CreateProgram(ctx context.Context, p *Program) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.DB.ExecContext(ctx, `
		INSERT INTO programs (id, tenant_id, name, description, color, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		p.ID, p.TenantID, p.Name, p.Description, p.Color, p.Active, now,
	)
	return err
}

func (r *ProgramRepositoryImpl) UpdateProgram(ctx context.Context, p *Program) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.DB.ExecContext(ctx, `
		UPDATE programs SET name = $3, description = $4, color = $5, active = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2`,
		p.TenantID, p.ID, p.Name, p.Description, p.Color, p.Active, p.UpdatedAt,
	)
	return affectedOne(res, err)
}

func (r *ProgramRepositoryImpl) DeleteProgram(ctx context.Context, tenantID, id string) error {
	if !validIDs(tenantID, id) {
		return errs.ErrNotFound
	}
	res, err := r.db.DB.ExecContext(ctx, `DELETE FROM programs WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return affectedOne(res, err)
}

func (r *ProgramRepositoryImpl) GetRule(ctx context.Context, tenantID, programID, ruleID string) (*ProgramRule, error) {
	if !validIDs(tenantID, programID, ruleID) {
		return nil, errs.ErrNotFound
	}

	var rule ProgramRule
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM program_rules r
		JOIN programs p ON p.id = r.program_id
		WHERE p.tenant_id = $1 AND r.program_id = $2 AND r.id = $3`, tenantID, programID, ruleID,
	).Scan(&rule.ID, &rule.ProgramID, &rule.Field, &rule.MatchType, &rule.Pattern, &rule.Enabled, &rule.Priority, &rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return &rule, err
}

func (r *ProgramRepositoryImpl) CreateRule(ctx context.Context, rule *ProgramRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.CreatedAt = time.Now().UTC()

	_, err := r.db.DB.ExecContext(ctx, `
		INSERT INTO program_rules (id, program_id, field, match_type, pattern, enabled, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rule.ID, rule.ProgramID, rule.Field, rule.MatchType, rule.Pattern, rule.Enabled, rule.Priority, rule.CreatedAt,
	)
	return err
}

func (r *ProgramRepositoryImpl) UpdateRule(ctx context.Context, rule *ProgramRule) error {
	res, err := r.db.DB.ExecContext(ctx, `
		UPDATE program_rules SET field = $3, match_type = $4, pattern = $5, enabled = $6, priority = $7
		WHERE program_id = $1 AND id = $2`,
		rule.ProgramID, rule.ID, rule.Field, rule.MatchType, rule.Pattern, rule.Enabled, rule.Priority,
	)
	return affectedOne(res, err)
}

func (r *ProgramRepositoryImpl) DeleteRule(ctx context.Context, tenantID, programID, ruleID string) error {
	if !validIDs(tenantID, programID, ruleID) {
		return errs.ErrNotFound
	}
	res, err := r.db.DB.ExecContext(ctx, `
		DELETE FROM program_rules r
		USING programs p
		WHERE p.id = r.program_id AND p.tenant_id = $1 AND r.program_id = $2 AND r.id = $3`,
		tenantID, programID, ruleID,
	)
	return affectedOne(res, err)
}

// ReplaceAssignments clears every assignment of recordType for the tenant and inserts the new set
// in the same transaction.
func (r *ProgramRepositoryImpl) ReplaceAssignments(ctx context.Context, tenantID, recordType string, assignments []Assignment) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM record_programs WHERE tenant_id = $1 AND record_type = $2`, tenantID, recordType,
		); err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO record_programs (tenant_id, record_type, record_id, program_id, confidence, assigned_at)
			VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range assignments {
			if _, err := stmt.ExecContext(ctx, a.TenantID, a.RecordType, a.RecordID, a.ProgramID, a.Confidence, a.AssignedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProgramRepositoryImpl) ListAssignments(ctx context.Context, tenantID, recordType string) ([]Assignment, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT tenant_id, record_type, record_id, program_id, confidence, assigned_at
		FROM record_programs WHERE tenant_id = $1 AND record_type = $2
		ORDER BY assigned_at, record_id`, tenantID, recordType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []Assignment{}
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.TenantID, &a.RecordType, &a.RecordID, &a.ProgramID, &a.Confidence, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
