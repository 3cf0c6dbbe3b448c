package record

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"demantive/internal/common/models"
	"demantive/internal/database"

	"github.com/google/uuid"
)

type RecordRepository interface {
	UpsertCompany(ctx context.Context, c *Company) error
	UpsertPerson(ctx context.Context, p *Person) error
	UpsertOpportunity(ctx context.Context, o *Opportunity) error
	CompanyIDByExternalID(ctx context.Context, tenantID string, provider models.Provider, externalID string) (*string, error)
	ListCompanies(ctx context.Context, tenantID string, limit, offset int) ([]Company, error)
	ListPeople(ctx context.Context, tenantID string, limit, offset int) ([]Person, error)
	ListOpportunities(ctx context.Context, tenantID string) ([]Opportunity, error)
	CountOpportunities(ctx context.Context, tenantID string) (int, error)
}

type RecordRepositoryImpl struct {
	db *database.PostgresDB
}

func NewRecordRepository(db *database.PostgresDB) RecordRepository {
	return &RecordRepositoryImpl{db: db}
}

// UpsertCompany inserts or updates by (tenant, provider, external id) and sets c.ID to the stored row id.
func (r *RecordRepositoryImpl) UpsertCompany(ctx context.Context, c *Company) error {
	now := time.Now().UTC()
	c.UpdatedAt = now
	return r.db.DB.QueryRowContext(ctx, `
		INSERT INTO companies (id, tenant_id, provider, external_id, name, domain, industry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (tenant_id, provider, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			domain = EXCLUDED.domain,
			industry = EXCLUDED.industry,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		uuid.NewString(), c.TenantID, c.Provider, c.ExternalID, c.Name, c.Domain, c.Industry, now,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *RecordRepositoryImpl) UpsertPerson(ctx context.Context, p *Person) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	return r.db.DB.QueryRowContext(ctx, `
		INSERT INTO people (id, tenant_id, provider, external_id, email, first_name, last_name, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (tenant_id, provider, external_id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			company_id = EXCLUDED.company_id,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		uuid.NewString(), p.TenantID, p.Provider, p.ExternalID, p.Email, p.FirstName, p.LastName, p.CompanyID, now,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *RecordRepositoryImpl) UpsertOpportunity(ctx context.Context, o *Opportunity) error {
	now := time.Now().UTC()
	o.UpdatedAt = now
	return r.db.DB.QueryRowContext(ctx, `
		INSERT INTO opportunities (id, tenant_id, provider, external_id, name, company_id, amount, stage, status,
			close_date, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (tenant_id, provider, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			company_id = EXCLUDED.company_id,
			amount = EXCLUDED.amount,
			stage = EXCLUDED.stage,
			status = EXCLUDED.status,
			close_date = EXCLUDED.close_date,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		uuid.NewString(), o.TenantID, o.Provider, o.ExternalID, o.Name, o.CompanyID, o.Amount, o.Stage, o.Status,
		o.CloseDate, o.Source, now,
	).Scan(&o.ID, &o.CreatedAt)
}

// CompanyIDByExternalID resolves a provider company id to the local row id, or nil when not ingested yet.
func (r *RecordRepositoryImpl) CompanyIDByExternalID(ctx context.Context, tenantID string, provider models.Provider, externalID string) (*string, error) {
	if externalID == "" {
		return nil, nil
	}
	var id string
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT id FROM companies WHERE tenant_id = $1 AND provider = $2 AND external_id = $3`,
		tenantID, provider, externalID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *RecordRepositoryImpl) ListCompanies(ctx context.Context, tenantID string, limit, offset int) ([]Company, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, tenant_id, provider, external_id, name, domain, industry, created_at, updated_at
		FROM companies WHERE tenant_id = $1
		ORDER BY name, id LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		var c Company
		var domain, industry sql.NullString
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Provider, &c.ExternalID, &c.Name, &domain, &industry, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Domain = nullString(domain)
		c.Industry = nullString(industry)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *RecordRepositoryImpl) ListPeople(ctx context.Context, tenantID string, limit, offset int) ([]Person, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, tenant_id, provider, external_id, email, first_name, last_name, company_id, created_at, updated_at
		FROM people WHERE tenant_id = $1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	people := []Person{}
	for rows.Next() {
		var p Person
		var email, first, last, companyID sql.NullString
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Provider, &p.ExternalID, &email, &first, &last, &companyID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Email = nullString(email)
		p.FirstName = nullString(first)
		p.LastName = nullString(last)
		p.CompanyID = nullString(companyID)
		people = append(people, p)
	}
	return people, rows.Err()
}

func (r *RecordRepositoryImpl) ListOpportunities(ctx context.Context, tenantID string) ([]Opportunity, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, tenant_id, provider, external_id, name, company_id, amount, stage, status, close_date, source,
			created_at, updated_at
		FROM opportunities WHERE tenant_id = $1
		ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opps := []Opportunity{}
	for rows.Next() {
		var o Opportunity
		var companyID, stage, source sql.NullString
		var amount sql.NullInt64
		var closeDate sql.NullTime
		if err := rows.Scan(&o.ID, &o.TenantID, &o.Provider, &o.ExternalID, &o.Name, &companyID, &amount, &stage,
			&o.Status, &closeDate, &source, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.CompanyID = nullString(companyID)
		o.Stage = nullString(stage)
		o.Source = nullString(source)
		if amount.Valid {
			o.Amount = &amount.Int64
		}
		if closeDate.Valid {
			o.CloseDate = &closeDate.Time
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

func (r *RecordRepositoryImpl) CountOpportunities(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM opportunities WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
