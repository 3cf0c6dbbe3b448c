package program

import (
	"context"
	"fmt"
	"strings"
	"time"

	"demantive/internal/common/errs"
	common_models "demantive/internal/common/models"
	"demantive/internal/features/audit"
	"demantive/internal/features/record"

	"go.uber.org/zap"
)

// OpportunitySource is the slice of the record store the classifier reads.
type OpportunitySource interface {
	ListOpportunities(ctx context.Context, tenantID string) ([]record.Opportunity, error)
	CountOpportunities(ctx context.Context, tenantID string) (int, error)
}

type ProgramService interface {
	RunMapping(ctx context.Context, tenantID string) (*MappingResult, error)
	ListPrograms(ctx context.Context, tenantID string) ([]Program, error)
	CreateProgram(ctx context.Context, tenantID string, p *Program) error
	UpdateProgram(ctx context.Context, tenantID, id string, upd ProgramUpdate) (*Program, error)
	DeleteProgram(ctx context.Context, tenantID, id string) error
	CreateRule(ctx context.Context, tenantID, programID string, rule *ProgramRule) error
	UpdateRule(ctx context.Context, tenantID, programID, ruleID string, upd RuleUpdate) (*ProgramRule, error)
	DeleteRule(ctx context.Context, tenantID, programID, ruleID string) error
	ListAssignments(ctx context.Context, tenantID string) ([]Assignment, error)
}

type ProgramServiceImpl struct {
	repo         ProgramRepository
	records      OpportunitySource
	auditService audit.AuditService
	logger       *zap.Logger
	now          func() time.Time
}

func NewProgramService(repo ProgramRepository, records record.RecordRepository, auditService audit.AuditService, logger *zap.Logger) ProgramService {
	return &ProgramServiceImpl{
		repo:         repo,
		records:      records,
		auditService: auditService,
		logger:       logger,
		now:          time.Now,
	}
}

// RunMapping recomputes every opportunity's program from scratch.
// With no enabled rules the existing assignments are left untouched.
func (s *ProgramServiceImpl) RunMapping(ctx context.Context, tenantID string) (*MappingResult, error) {
	programs, err := s.repo.ListActiveWithEnabledRules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load programs: %w", err)
	}

	classifier := NewClassifier(programs, s.logger)
	if classifier.Len() == 0 {
		total, err := s.records.CountOpportunities(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("count opportunities: %w", err)
		}
		s.logger.Info("no active programs with rules", zap.String("tenant_id", tenantID))
		return &MappingResult{Mapped: 0, Total: total}, nil
	}

	opps, err := s.records.ListOpportunities(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load opportunities: %w", err)
	}

	now := s.now().UTC()
	assignments := make([]Assignment, 0, len(opps))
	for i := range opps {
		programID, ok := classifier.Classify(&opps[i])
		if !ok {
			continue
		}
		assignments = append(assignments, Assignment{
			TenantID:   tenantID,
			RecordType: record.RecordTypeOpportunity,
			RecordID:   opps[i].ID,
			ProgramID:  programID,
			Confidence: AssignmentConfidence,
			AssignedAt: now,
		})
	}

	if err := s.repo.ReplaceAssignments(ctx, tenantID, record.RecordTypeOpportunity, assignments); err != nil {
		return nil, fmt.Errorf("replace assignments: %w", err)
	}

	result := &MappingResult{Mapped: len(assignments), Total: len(opps)}
	s.logger.Info("program mapping finished",
		zap.String("tenant_id", tenantID),
		zap.Int("mapped", result.Mapped),
		zap.Int("total", result.Total),
	)
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionMapping, "programs", "opportunity", map[string]common_models.Change{
		"mapped": {New: result.Mapped},
		"total":  {New: result.Total},
	})
	return result, nil
}

func (s *ProgramServiceImpl) ListPrograms(ctx context.Context, tenantID string) ([]Program, error) {
	return s.repo.ListPrograms(ctx, tenantID)
}

func (s *ProgramServiceImpl) CreateProgram(ctx context.Context, tenantID string, p *Program) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return errs.Invalid("program name is required")
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	p.TenantID = tenantID
	p.ID = ""

	if err := s.repo.CreateProgram(ctx, p); err != nil {
		return err
	}
	p.Rules = []ProgramRule{}

	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionCreate, "programs", p.ID, map[string]common_models.Change{
		"program": {New: p},
	})
	return nil
}

func (s *ProgramServiceImpl) UpdateProgram(ctx context.Context, tenantID, id string, upd ProgramUpdate) (*Program, error) {
	p, err := s.repo.GetProgram(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	old := *p

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, errs.Invalid("program name is required")
		}
		p.Name = name
	}
	if upd.Description != nil {
		p.Description = record.StringPtr(*upd.Description)
	}
	if upd.Color != nil && *upd.Color != "" {
		p.Color = *upd.Color
	}
	if upd.Active != nil {
		p.Active = *upd.Active
	}

	if err := s.repo.UpdateProgram(ctx, p); err != nil {
		return nil, err
	}
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionUpdate, "programs", id, map[string]common_models.Change{
		"program": {Old: old, New: p},
	})
	return p, nil
}

func (s *ProgramServiceImpl) DeleteProgram(ctx context.Context, tenantID, id string) error {
	if err := s.repo.DeleteProgram(ctx, tenantID, id); err != nil {
		return err
	}
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionDelete, "programs", id, nil)
	return nil
}

func (s *ProgramServiceImpl) CreateRule(ctx context.Context, tenantID, programID string, rule *ProgramRule) error {
	if _, err := s.repo.GetProgram(ctx, tenantID, programID); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	rule.ID = ""
	rule.ProgramID = programID

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return err
	}
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionCreate, "program_rules", rule.ID, map[string]common_models.Change{
		"rule": {New: rule},
	})
	return nil
}

func (s *ProgramServiceImpl) UpdateRule(ctx context.Context, tenantID, programID, ruleID string, upd RuleUpdate) (*ProgramRule, error) {
	rule, err := s.repo.GetRule(ctx, tenantID, programID, ruleID)
	if err != nil {
		return nil, err
	}
	old := *rule

	if upd.Field != nil {
		rule.Field = *upd.Field
	}
	if upd.MatchType != nil {
		rule.MatchType = *upd.MatchType
	}
	if upd.Pattern != nil {
		rule.Pattern = *upd.Pattern
	}
	if upd.Enabled != nil {
		rule.Enabled = *upd.Enabled
	}
	if upd.Priority != nil {
		rule.Priority = *upd.Priority
	}
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionUpdate, "program_rules", ruleID, map[string]common_models.Change{
		"rule": {Old: old, New: rule},
	})
	return rule, nil
}

func (s *ProgramServiceImpl) DeleteRule(ctx context.Context, tenantID, programID, ruleID string) error {
	if err := s.repo.DeleteRule(ctx, tenantID, programID, ruleID); err != nil {
		return err
	}
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionDelete, "program_rules", ruleID, nil)
	return nil
}

func (s *ProgramServiceImpl) ListAssignments(ctx context.Context, tenantID string) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx, tenantID, record.RecordTypeOpportunity)
}

// validateRule checks shape only. A regex that fails to compile is accepted here and
// treated as non-matching during mapping.
func validateRule(rule *ProgramRule) error {
	rule.Field = strings.TrimSpace(rule.Field)
	if rule.Field == "" {
		return errs.Invalid("rule field is required")
	}
	if !rule.MatchType.Valid() {
		return errs.Invalid("unsupported match type %q", rule.MatchType)
	}
	if rule.Pattern == "" {
		return errs.Invalid("rule pattern is required")
	}
	return nil
}
