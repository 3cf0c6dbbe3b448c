package database

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS memberships (
	org_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('admin', 'editor', 'viewer')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (org_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id);

CREATE TABLE IF NOT EXISTS oauth_connections (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	provider TEXT NOT NULL CHECK (provider IN ('hubspot', 'salesforce')),
	access_token_ciphertext TEXT NOT NULL,
	refresh_token_ciphertext TEXT,
	scope TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'expired', 'revoked', 'error')),
	last_synced_at TIMESTAMPTZ,
	cursor TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, provider)
);

CREATE TABLE IF NOT EXISTS companies (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	provider TEXT NOT NULL,
	external_id TEXT NOT NULL,
	name TEXT NOT NULL,
	domain TEXT,
	industry TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, provider, external_id)
);

CREATE TABLE IF NOT EXISTS people (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	provider TEXT NOT NULL,
	external_id TEXT NOT NULL,
	email TEXT,
	first_name TEXT,
	last_name TEXT,
	company_id UUID REFERENCES companies(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, provider, external_id)
);

CREATE TABLE IF NOT EXISTS opportunities (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	provider TEXT NOT NULL,
	external_id TEXT NOT NULL,
	name TEXT NOT NULL,
	company_id UUID REFERENCES companies(id) ON DELETE SET NULL,
	amount BIGINT,
	stage TEXT,
	status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'won', 'lost')),
	close_date TIMESTAMPTZ,
	source TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tenant_id, provider, external_id)
);

CREATE INDEX IF NOT EXISTS idx_opportunities_tenant_status ON opportunities(tenant_id, status);

CREATE TABLE IF NOT EXISTS programs (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT,
	color TEXT NOT NULL DEFAULT '#000000',
	active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS program_rules (
	id UUID PRIMARY KEY,
	program_id UUID NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
	field TEXT NOT NULL,
	match_type TEXT NOT NULL CHECK (match_type IN ('equals', 'contains', 'starts_with', 'ends_with', 'regex')),
	pattern TEXT NOT NULL,
	enabled BOOLEAN NOT NULL DEFAULT true,
	priority INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_program_rules_program ON program_rules(program_id);

CREATE TABLE IF NOT EXISTS record_programs (
	tenant_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
	record_type TEXT NOT NULL,
	record_id UUID NOT NULL,
	program_id UUID NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
	confidence INTEGER NOT NULL DEFAULT 100,
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, record_type, record_id)
);
`

// InitSchema creates all tables if they don't exist
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
