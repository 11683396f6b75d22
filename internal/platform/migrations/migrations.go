// Package migrations applies the relational schema required by the contracts
// service. Statements are idempotent so Apply can run at every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		contract_type TEXT NOT NULL DEFAULT '',
		value NUMERIC(18,2) NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		external_account_id TEXT NOT NULL,
		external_contact_id TEXT NOT NULL,
		account_name TEXT NOT NULL DEFAULT '',
		contact_name TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		is_validated BOOLEAN,
		validation_message TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		signed_at TIMESTAMPTZ,
		signed_by TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_created_at ON contracts (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_external_account ON contracts (external_account_id)`,
}

// Apply executes every migration statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
