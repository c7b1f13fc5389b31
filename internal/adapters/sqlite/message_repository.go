package sqlite

import (
	"context"
	"database/sql"
	"slices"

	"github.com/longregen/promptloop/internal/domain/models"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(store *Store) *MessageRepository {
	return &MessageRepository{db: store.db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, prompt_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.SessionID,
		string(msg.Role),
		msg.Content,
		nullString(msg.PromptID),
		formatTime(msg.CreatedAt),
	)
	return err
}

// GetRecentBySession returns the latest messages of a session in insertion order
func (r *MessageRepository) GetRecentBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, session_id, role, content, prompt_id, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		var msg models.Message
		var role, createdAt string
		var promptID sql.NullString

		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &promptID, &createdAt); err != nil {
			return nil, err
		}
		msg.Role = models.MessageRole(role)
		msg.PromptID = promptID.String
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

func (r *MessageRepository) CountUserMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ? AND role = 'user'`,
		sessionID,
	).Scan(&count)
	return count, err
}

func (r *MessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM messages`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
