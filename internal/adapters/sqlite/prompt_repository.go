package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/longregen/promptloop/internal/domain"
	"github.com/longregen/promptloop/internal/domain/models"
)

const promptColumns = `id, version, content, is_active, triggered_by, parent_id, created_at, activated_at`

type PromptRepository struct {
	db *sql.DB
}

func NewPromptRepository(store *Store) *PromptRepository {
	return &PromptRepository{db: store.db}
}

func (r *PromptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO prompts (`+promptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		prompt.ID,
		prompt.Version,
		prompt.Content,
		boolToInt(prompt.Active),
		string(prompt.TriggeredBy),
		nullString(prompt.ParentID),
		formatTime(prompt.CreatedAt),
		nullTimeString(prompt.ActivatedAt),
	)
	return err
}

func (r *PromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+promptColumns+` FROM prompts WHERE id = ?`, id)
	prompt, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPromptNotFound
	}
	return prompt, err
}

func (r *PromptRepository) ListActive(ctx context.Context, limit int) ([]*models.Prompt, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+promptColumns+`
		FROM prompts
		WHERE is_active = 1
		ORDER BY version DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPrompts(rows)
}

func (r *PromptRepository) GetLatestVersion(ctx context.Context) (int, error) {
	var version int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM prompts`).Scan(&version)
	return version, err
}

func (r *PromptRepository) DeactivateAll(ctx context.Context) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE prompts SET is_active = 0 WHERE is_active = 1`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PromptRepository) Activate(ctx context.Context, id string) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE prompts SET is_active = 1, activated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PromptRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts WHERE is_active = 1`).Scan(&count)
	return count, err
}

func (r *PromptRepository) List(ctx context.Context, limit int) ([]*models.Prompt, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+promptColumns+`
		FROM prompts
		ORDER BY version DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPrompts(rows)
}

// LockLedger is a no-op: the store's single connection already serializes transactions
func (r *PromptRepository) LockLedger(ctx context.Context) error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var prompt models.Prompt
	var triggeredBy, createdAt string
	var parentID, activatedAt sql.NullString

	err := row.Scan(
		&prompt.ID,
		&prompt.Version,
		&prompt.Content,
		&prompt.Active,
		&triggeredBy,
		&parentID,
		&createdAt,
		&activatedAt,
	)
	if err != nil {
		return nil, err
	}

	prompt.TriggeredBy = models.TriggerSource(triggeredBy)
	prompt.ParentID = parentID.String
	if prompt.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if prompt.ActivatedAt, err = parseNullTime(activatedAt); err != nil {
		return nil, err
	}
	return &prompt, nil
}

func scanPrompts(rows *sql.Rows) ([]*models.Prompt, error) {
	prompts := make([]*models.Prompt, 0)
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}
	return prompts, rows.Err()
}
