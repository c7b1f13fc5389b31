package postgres

import (
	"context"
	"database/sql"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/longregen/promptloop/internal/domain/models"
)

type MessageRepository struct {
	BaseRepository
}

func NewMessageRepository(pool DB) *MessageRepository {
	return &MessageRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO messages (id, session_id, role, content, prompt_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.conn(ctx).Exec(ctx, query,
		msg.ID,
		msg.SessionID,
		string(msg.Role),
		msg.Content,
		nullString(msg.PromptID),
		msg.CreatedAt,
	)

	return err
}

// GetRecentBySession returns the latest messages of a session in insertion order
func (r *MessageRepository) GetRecentBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, session_id, role, content, prompt_id, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY seq DESC
		LIMIT $2`

	rows, err := r.conn(ctx).Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages, err := r.scanMessages(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *MessageRepository) CountUserMessages(ctx context.Context, sessionID string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = $1 AND role = 'user'`,
		sessionID,
	).Scan(&count)
	return count, err
}

func (r *MessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM messages`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *MessageRepository) scanMessages(rows pgx.Rows) ([]*models.Message, error) {
	messages := make([]*models.Message, 0)

	for rows.Next() {
		var msg models.Message
		var role string
		var promptID sql.NullString

		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &promptID, &msg.CreatedAt); err != nil {
			return nil, err
		}

		msg.Role = models.MessageRole(role)
		msg.PromptID = getString(promptID)
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
