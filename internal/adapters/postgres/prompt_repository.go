package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
)

const promptColumns = `id, version, content, is_active, triggered_by, parent_id, created_at, activated_at`

type PromptRepository struct {
	BaseRepository
}

func NewPromptRepository(pool DB) *PromptRepository {
	return &PromptRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *PromptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO prompts (
			id, version, content, is_active, triggered_by, parent_id, created_at, activated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		prompt.ID,
		prompt.Version,
		prompt.Content,
		prompt.Active,
		string(prompt.TriggeredBy),
		nullString(prompt.ParentID),
		prompt.CreatedAt,
		nullTime(prompt.ActivatedAt),
	)

	return err
}

func (r *PromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + promptColumns + ` FROM prompts WHERE id = $1`

	prompt, err := r.scanPrompt(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrPromptNotFound
		}
		return nil, err
	}
	return prompt, nil
}

func (r *PromptRepository) ListActive(ctx context.Context, limit int) ([]*models.Prompt, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + promptColumns + `
		FROM prompts
		WHERE is_active
		ORDER BY version DESC
		LIMIT $1`

	rows, err := r.conn(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanPrompts(rows)
}

func (r *PromptRepository) GetLatestVersion(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var version int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM prompts`).Scan(&version)
	return version, err
}

func (r *PromptRepository) DeactivateAll(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `UPDATE prompts SET is_active = false WHERE is_active`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *PromptRepository) Activate(ctx context.Context, id string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE prompts
		SET is_active = true, activated_at = NOW()
		WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *PromptRepository) CountActive(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prompts WHERE is_active`).Scan(&count)
	return count, err
}

func (r *PromptRepository) List(ctx context.Context, limit int) ([]*models.Prompt, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + promptColumns + `
		FROM prompts
		ORDER BY version DESC
		LIMIT $1`

	rows, err := r.conn(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanPrompts(rows)
}

// LockLedger takes a transaction-scoped advisory lock. It blocks until
// concurrent ledger writers commit or roll back.
func (r *PromptRepository) LockLedger(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey)
	return err
}

func (r *PromptRepository) scanPrompt(row pgx.Row) (*models.Prompt, error) {
	var prompt models.Prompt
	var triggeredBy string
	var parentID sql.NullString
	var activatedAt sql.NullTime

	err := row.Scan(
		&prompt.ID,
		&prompt.Version,
		&prompt.Content,
		&prompt.Active,
		&triggeredBy,
		&parentID,
		&prompt.CreatedAt,
		&activatedAt,
	)
	if err != nil {
		return nil, err
	}

	prompt.TriggeredBy = models.TriggerSource(triggeredBy)
	prompt.ParentID = getString(parentID)
	prompt.CreatedAt = prompt.CreatedAt.UTC()
	prompt.ActivatedAt = getTimePtr(activatedAt)

	return &prompt, nil
}

func (r *PromptRepository) scanPrompts(rows pgx.Rows) ([]*models.Prompt, error) {
	prompts := make([]*models.Prompt, 0)

	for rows.Next() {
		prompt, err := r.scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}

	return prompts, rows.Err()
}
