package record

import (
	"context"
	"strconv"
)

const maxPageSize = 200

type RecordService interface {
	ListCompanies(ctx context.Context, tenantID string, page, limit int) ([]Company, error)
	ListPeople(ctx context.Context, tenantID string, page, limit int) ([]Person, error)
	ListOpportunities(ctx context.Context, tenantID string) ([]Opportunity, error)
}

type RecordServiceImpl struct {
	repo RecordRepository
}

func NewRecordService(repo RecordRepository) RecordService {
	return &RecordServiceImpl{repo: repo}
}

func (s *RecordServiceImpl) ListCompanies(ctx context.Context, tenantID string, page, limit int) ([]Company, error) {
	limit, offset := paginate(page, limit)
	return s.repo.ListCompanies(ctx, tenantID, limit, offset)
}

func (s *RecordServiceImpl) ListPeople(ctx context.Context, tenantID string, page, limit int) ([]Person, error) {
	limit, offset := paginate(page, limit)
	return s.repo.ListPeople(ctx, tenantID, limit, offset)
}

func (s *RecordServiceImpl) ListOpportunities(ctx context.Context, tenantID string) ([]Opportunity, error) {
	return s.repo.ListOpportunities(ctx, tenantID)
}

func paginate(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, (page - 1) * limit
}

// ParseInt reads a positive integer query value, falling back to def.
func ParseInt(val string, def int) int {
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return def
	}
	return n
}
