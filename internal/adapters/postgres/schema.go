package postgres

import (
	"context"
	"fmt"
)

// ledgerLockKey identifies the prompt ledger advisory lock
const ledgerLockKey int64 = 0x70726f6d7074 // "prompt"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL CHECK (version > 0),
		content TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		triggered_by TEXT NOT NULL CHECK (triggered_by IN ('seed', 'manual', 'autonomous')),
		parent_id TEXT REFERENCES prompts(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		activated_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_version ON prompts(version)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_single_active ON prompts(is_active) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS messages (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		prompt_id TEXT REFERENCES prompts(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK ((role = 'assistant') = (prompt_id IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq)`,
}

// Migrate creates the schema if it does not exist
func Migrate(ctx context.Context, db Querier) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
