package organization

import (
	"context"
	"errors"
	"strings"

	"demantive/internal/common/errs"
	common_models "demantive/internal/common/models"
	"demantive/internal/features/audit"
	"demantive/internal/middleware"

	"go.uber.org/zap"
)

type OrganizationService interface {
	Create(ctx context.Context, name, userID string) (*Organization, error)
	ListForUser(ctx context.Context, userID string) ([]UserOrganization, error)
	RoleFor(ctx context.Context, tenantID, userID string) (string, error)
	RequireAdmin(ctx context.Context, tenantID, userID string) error
	AddMember(ctx context.Context, tenantID, userID, role string) error
	ListMembers(ctx context.Context, tenantID string) ([]Membership, error)
}

type OrganizationServiceImpl struct {
	repo         OrganizationRepository
	auditService audit.AuditService
	logger       *zap.Logger
}

func NewOrganizationService(repo OrganizationRepository, auditService audit.AuditService, logger *zap.Logger) OrganizationService {
	return &OrganizationServiceImpl{
		repo:         repo,
		auditService: auditService,
		logger:       logger,
	}
}

func (s *OrganizationServiceImpl) Create(ctx context.Context, name, userID string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Invalid("organization name is required")
	}

	org := &Organization{Name: name}
	if err := s.repo.CreateWithAdmin(ctx, org, userID); err != nil {
		return nil, err
	}

	s.logger.Info("organization created", zap.String("tenant_id", org.ID), zap.String("user_id", userID))
	_ = s.auditService.LogChange(ctx, org.ID, common_models.AuditActionCreate, "organization", org.ID, map[string]common_models.Change{
		"name": {New: org.Name},
	})
	return org, nil
}

func (s *OrganizationServiceImpl) ListForUser(ctx context.Context, userID string) ([]UserOrganization, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *OrganizationServiceImpl) RoleFor(ctx context.Context, tenantID, userID string) (string, error) {
	return s.repo.RoleFor(ctx, tenantID, userID)
}

// RequireAdmin returns ErrForbidden unless userID is an admin of tenantID.
func (s *OrganizationServiceImpl) RequireAdmin(ctx context.Context, tenantID, userID string) error {
	role, err := s.repo.RoleFor(ctx, tenantID, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrForbidden
	}
	if err != nil {
		return err
	}
	if role != middleware.RoleAdmin {
		return errs.ErrForbidden
	}
	return nil
}

func (s *OrganizationServiceImpl) AddMember(ctx context.Context, tenantID, userID, role string) error {
	switch role {
	case middleware.RoleAdmin, middleware.RoleEditor, middleware.RoleViewer:
	default:
		return errs.Invalid("unknown role %q", role)
	}
	if strings.TrimSpace(userID) == "" {
		return errs.Invalid("userId is required")
	}

	if err := s.repo.UpsertMember(ctx, &Membership{OrgID: tenantID, UserID: userID, Role: role}); err != nil {
		return err
	}
	_ = s.auditService.LogChange(ctx, tenantID, common_models.AuditActionUpdate, "membership", userID, map[string]common_models.Change{
		"role": {New: role},
	})
	return nil
}

func (s *OrganizationServiceImpl) ListMembers(ctx context.Context, tenantID string) ([]Membership, error) {
	return s.repo.ListMembers(ctx, tenantID)
}
