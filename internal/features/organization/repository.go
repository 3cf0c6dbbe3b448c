package organization

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/database"

	"github.com/google/uuid"
)

type OrganizationRepository interface {
	CreateWithAdmin(ctx context.Context, org *Organization, userID string) error
	ListForUser(ctx context.Context, userID string) ([]UserOrganization, error)
	RoleFor(ctx context.Context, orgID, userID string) (string, error)
	UpsertMember(ctx context.Context, m *Membership) error
	ListMembers(ctx context.Context, orgID string) ([]Membership, error)
}

type OrganizationRepositoryImpl struct {
	db *database.PostgresDB
}

func NewOrganizationRepository(db *database.PostgresDB) OrganizationRepository {
	return &OrganizationRepositoryImpl{db: db}
}

// CreateWithAdmin inserts the organization and makes userID its admin in one transaction.
func (r *OrganizationRepositoryImpl) CreateWithAdmin(ctx context.Context, org *Organization, userID string) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	org.CreatedAt = time.Now().UTC()

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO organizations (id, name, created_at) VALUES ($1, $2, $3)`,
			org.ID, org.Name, org.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (org_id, user_id, role, created_at) VALUES ($1, $2, 'admin', $3)`,
			org.ID, userID, org.CreatedAt,
		)
		return err
	})
}

func (r *OrganizationRepositoryImpl) ListForUser(ctx context.Context, userID string) ([]UserOrganization, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT o.id, o.name, o.created_at, m.role
		FROM memberships m
		JOIN organizations o ON o.id = m.org_id
		WHERE m.user_id = $1
		ORDER BY o.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []UserOrganization{}
	for rows.Next() {
		var o UserOrganization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.Role); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (r *OrganizationRepositoryImpl) RoleFor(ctx context.Context, orgID, userID string) (string, error) {
	if _, err := uuid.Parse(orgID); err != nil {
		return "", errs.ErrNotFound
	}

	var role string
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT role FROM memberships WHERE org_id = $1 AND user_id = $2`, orgID, userID,
	).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errs.ErrNotFound
	}
	return role, err
}

func (r *OrganizationRepositoryImpl) UpsertMember(ctx context.Context, m *Membership) error {
	m.CreatedAt = time.Now().UTC()
	_, err := r.db.DB.ExecContext(ctx, `
		INSERT INTO memberships (org_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.OrgID, m.UserID, m.Role, m.CreatedAt,
	)
	return err
}

func (r *OrganizationRepositoryImpl) ListMembers(ctx context.Context, orgID string) ([]Membership, error) {
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT org_id, user_id, role, created_at FROM memberships WHERE org_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Membership{}
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.OrgID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
