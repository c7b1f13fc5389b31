package models

import (
	"strings"
	"time"
)

// TriggerSource records what caused a prompt version to be created
type TriggerSource string

const (
	TriggerSeed       TriggerSource = "seed"
	TriggerManual     TriggerSource = "manual"
	TriggerAutonomous TriggerSource = "autonomous"
)

func (t TriggerSource) IsValid() bool {
	switch t {
	case TriggerSeed, TriggerManual, TriggerAutonomous:
		return true
	}
	return false
}

// DefaultPreviewLength is the rune budget for Prompt.Preview in API responses
const DefaultPreviewLength = 160

// Prompt is one version of the system prompt. Exactly one prompt in the
// ledger is active once the ledger has been seeded.
type Prompt struct {
	ID          string        `json:"id" msgpack:"id"`
	Version     int           `json:"version" msgpack:"version"`
	Content     string        `json:"content" msgpack:"content"`
	Active      bool          `json:"active" msgpack:"active"`
	TriggeredBy TriggerSource `json:"triggered_by" msgpack:"triggered_by"`
	// ParentID is the prompt this version evolved from, empty for the seed
	ParentID    string     `json:"parent_id,omitempty" msgpack:"parent_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at" msgpack:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty" msgpack:"activated_at,omitempty"`
}

// NewPrompt creates an inactive prompt version
func NewPrompt(id string, version int, content string, triggeredBy TriggerSource, parentID string) *Prompt {
	return &Prompt{
		ID:          id,
		Version:     version,
		Content:     content,
		Active:      false,
		TriggeredBy: triggeredBy,
		ParentID:    parentID,
		CreatedAt:   time.Now().UTC(),
	}
}

// Preview collapses whitespace and clips the content to max runes
func (p *Prompt) Preview(max int) string {
	if p == nil || p.Content == "" {
		return ""
	}
	cleaned := strings.Join(strings.Fields(p.Content), " ")
	runes := []rune(cleaned)
	if max <= 0 || len(runes) <= max {
		return cleaned
	}
	return strings.TrimRight(string(runes[:max]), " ") + "..."
}
