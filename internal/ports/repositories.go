package ports

import (
	"context"

	"github.com/longregen/promptloop/internal/domain/models"
)

// PromptRepository defines persistence for the prompt version ledger.
// Mutations are expected to run inside a TransactionManager transaction.
type PromptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) error
	// GetByID returns domain.ErrPromptNotFound when no row matches
	GetByID(ctx context.Context, id string) (*models.Prompt, error)
	// ListActive returns up to limit rows flagged active, highest version first
	ListActive(ctx context.Context, limit int) ([]*models.Prompt, error)
	// GetLatestVersion returns the highest version number, or 0 for an empty ledger
	GetLatestVersion(ctx context.Context) (int, error)
	// DeactivateAll clears the active flag on every row and returns how many changed
	DeactivateAll(ctx context.Context) (int64, error)
	// Activate sets the active flag on one row and returns how many changed
	Activate(ctx context.Context, id string) (int64, error)
	CountActive(ctx context.Context) (int, error)
	// List returns prompts newest version first
	List(ctx context.Context, limit int) ([]*models.Prompt, error)
	// LockLedger takes the database-level writer lock for the current transaction
	LockLedger(ctx context.Context) error
}

// MessageRepository defines the append-only conversation ledger
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// GetRecentBySession returns the session's latest limit messages, oldest first
	GetRecentBySession(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
	CountUserMessages(ctx context.Context, sessionID string) (int, error)
	// DeleteAll removes every message and returns how many were removed
	DeleteAll(ctx context.Context) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	// WithTransaction executes a function within a database transaction
	// If the function returns an error, the transaction is rolled back
	// Otherwise, the transaction is committed
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator generates unique IDs for entities
type IDGenerator interface {
	// GeneratePromptID generates a new prompt version ID (ap_xxx)
	GeneratePromptID() string

	// GenerateMessageID generates a new message ID (am_xxx)
	GenerateMessageID() string

	// GenerateRunID generates an evolution run ID (UUID)
	GenerateRunID() string
}
