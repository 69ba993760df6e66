package postgres

import (
	"context"
	"fmt"

	"github.com/orglinks/orglinks/internal/infrastructure/db"
)

// Bootstrap creates the schema if it does not exist yet. Statements are
// idempotent so restarting against an initialized database is safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		short_name  TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner_id    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		CONSTRAINT organizations_name_key UNIQUE (name),
		CONSTRAINT organizations_short_name_key UNIQUE (short_name)
	)`,
	`CREATE TABLE IF NOT EXISTS organization_members (
		org_id    UUID NOT NULL REFERENCES organizations (id),
		user_id   TEXT NOT NULL,
		role      TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL,
		active    BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (org_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		id           UUID PRIMARY KEY,
		original_url TEXT NOT NULL,
		short_code   TEXT NOT NULL,
		org_id       UUID NOT NULL REFERENCES organizations (id),
		org_link_id  BIGINT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		created_by   TEXT NOT NULL,
		click_count  BIGINT NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL,
		expires_at   TIMESTAMPTZ,
		active       BOOLEAN NOT NULL DEFAULT TRUE,
		CONSTRAINT links_short_code_key UNIQUE (short_code),
		CONSTRAINT links_org_link_id_key UNIQUE (org_id, org_link_id)
	)`,
	`CREATE TABLE IF NOT EXISTS org_link_sequences (
		org_id UUID PRIMARY KEY,
		value  BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS links_org_id_idx ON links (org_id) WHERE active`,
}

func Bootstrap(ctx context.Context, p *db.Postgres) error {
	for _, stmt := range schemaStatements {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
