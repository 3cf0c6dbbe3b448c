package connection

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/database"

	"github.com/google/uuid"
)

type ConnectionRepository interface {
	Upsert(ctx context.Context, conn *OAuthConnection) error
	Get(ctx context.Context, tenantID string, provider models.Provider) (*OAuthConnection, error)
	List(ctx context.Context, tenantID string) ([]OAuthConnection, error)
	ListActive(ctx context.Context) ([]OAuthConnection, error)
	UpdateTokens(ctx context.Context, tenantID string, provider models.Provider, accessCipher string, refreshCipher *string, expiresAt *time.Time) error
	UpdateStatus(ctx context.Context, tenantID string, provider models.Provider, status Status) error
	MarkSynced(ctx context.Context, tenantID string, provider models.Provider, syncedAt time.Time, cursor *string) error
	Delete(ctx context.Context, tenantID string, provider models.Provider) error
}

type ConnectionRepositoryImpl struct {
	db *database.PostgresDB
}

func NewConnectionRepository(db *database.PostgresDB) ConnectionRepository {
	return &ConnectionRepositoryImpl{db: db}
}

const connectionColumns = `id, tenant_id, provider, access_token_ciphertext, refresh_token_ciphertext, scope,
	expires_at, status, last_synced_at, cursor, created_at, updated_at`

// Upsert writes the connection keyed by (tenant, provider), replacing tokens of a prior connection.
func (r *ConnectionRepositoryImpl) Upsert(ctx context.Context, conn *OAuthConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	conn.UpdatedAt = now

	return r.db.DB.QueryRowContext(ctx, `
		INSERT INTO oauth_connections (id, tenant_id, provider, access_token_ciphertext, refresh_token_ciphertext,
			scope, expires_at, status, cursor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $9)
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			access_token_ciphertext = EXCLUDED.access_token_ciphertext,
			refresh_token_ciphertext = EXCLUDED.refresh_token_ciphertext,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			status = EXCLUDED.status,
			cursor = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		conn.ID, conn.TenantID, conn.Provider, conn.AccessTokenCipher, conn.RefreshTokenCipher,
		conn.Scope, conn.ExpiresAt, conn.Status, now,
	).Scan(&conn.ID, &conn.CreatedAt)
}

func (r *ConnectionRepositoryImpl) Get(ctx context.Context, tenantID string, provider models.Provider) (*OAuthConnection, error) {
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, errs.ErrNotFound
	}

	row := r.db.DB.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM oauth_connections WHERE tenant_id = $1 AND provider = $2`,
		tenantID, provider)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return conn, err
}

func (r *ConnectionRepositoryImpl) List(ctx context.Context, tenantID string) ([]OAuthConnection, error) {
	return r.query(ctx, `SELECT `+connectionColumns+` FROM oauth_connections WHERE tenant_id = $1 ORDER BY provider`, tenantID)
}

func (r *ConnectionRepositoryImpl) ListActive(ctx context.Context) ([]OAuthConnection, error) {
	return r.query(ctx, `SELECT `+connectionColumns+` FROM oauth_connections WHERE status = 'active' ORDER BY tenant_id, provider`)
}

func (r *ConnectionRepositoryImpl) UpdateTokens(ctx context.Context, tenantID string, provider models.Provider, accessCipher string, refreshCipher *string, expiresAt *time.Time) error {
	_, err := r.db.DB.ExecContext(ctx, `
		UPDATE oauth_connections
		SET access_token_ciphertext = $3, refresh_token_ciphertext = $4, expires_at = $5,
			status = 'active', updated_at = now()
		WHERE tenant_id = $1 AND provider = $2`,
		tenantID, provider, accessCipher, refreshCipher, expiresAt)
	return err
}

func (r *ConnectionRepositoryImpl) UpdateStatus(ctx context.Context, tenantID string, provider models.Provider, status Status) error {
	_, err := r.db.DB.ExecContext(ctx,
		`UPDATE oauth_connections SET status = $3, updated_at = now() WHERE tenant_id = $1 AND provider = $2`,
		tenantID, provider, status)
	return err
}

func (r *ConnectionRepositoryImpl) MarkSynced(ctx context.Context, tenantID string, provider models.Provider, syncedAt time.Time, cursor *string) error {
	_, err := r.db.DB.ExecContext(ctx, `
		UPDATE oauth_connections SET last_synced_at = $3, cursor = COALESCE($4, cursor), updated_at = now()
		WHERE tenant_id = $1 AND provider = $2`,
		tenantID, provider, syncedAt, cursor)
	return err
}

// Delete is unconditional; deleting a missing connection is not an error.
func (r *ConnectionRepositoryImpl) Delete(ctx context.Context, tenantID string, provider models.Provider) error {
	_, err := r.db.DB.ExecContext(ctx,
		`DELETE FROM oauth_connections WHERE tenant_id = $1 AND provider = $2`, tenantID, provider)
	return err
}

func (r *ConnectionRepositoryImpl) query(ctx context.Context, query string, args ...any) ([]OAuthConnection, error) {
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conns := []OAuthConnection{}
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, *conn)
	}
	return conns, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(s scanner) (*OAuthConnection, error) {
	var (
		conn         OAuthConnection
		refresh      sql.NullString
		expiresAt    sql.NullTime
		lastSyncedAt sql.NullTime
		cursor       sql.NullString
	)
	err := s.Scan(&conn.ID, &conn.TenantID, &conn.Provider, &conn.AccessTokenCipher, &refresh, &conn.Scope,
		&expiresAt, &conn.Status, &lastSyncedAt, &cursor, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if refresh.Valid {
		conn.RefreshTokenCipher = &refresh.String
	}
	if expiresAt.Valid {
		conn.ExpiresAt = &expiresAt.Time
	}
	if lastSyncedAt.Valid {
		conn.LastSyncedAt = &lastSyncedAt.Time
	}
	if cursor.Valid {
		conn.Cursor = &cursor.String
	}
	return &conn, nil
}
