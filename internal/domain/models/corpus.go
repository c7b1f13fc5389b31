package models

import (
	"sort"
	"time"
)

// Turn directions in the reference corpus
const (
	DirectionInbound  = "in"
	DirectionOutbound = "out"
)

// CorpusTurn is a single message in a reference conversation
type CorpusTurn struct {
	Direction  string `json:"direction" yaml:"direction"`
	Text       string `json:"text" yaml:"text"`
	SequenceID int64  `json:"message_id" yaml:"message_id"`
}

// CorpusConversation is one past conversation from the reference corpus
type CorpusConversation struct {
	ContactID string       `json:"contact_id,omitempty" yaml:"contact_id,omitempty"`
	Turns     []CorpusTurn `json:"conversation" yaml:"conversation"`
}

// Corpus is the curated, read-only set of past conversations used to judge
// assistant behavior. It is independent of live sessions.
type Corpus []CorpusConversation

// Normalize orders every conversation's turns by sequence ID
func (c Corpus) Normalize() {
	for i := range c {
		turns := c[i].Turns
		sort.SliceStable(turns, func(a, b int) bool {
			return turns[a].SequenceID < turns[b].SequenceID
		})
	}
}

// OutboundTexts returns the text of every assistant turn, in corpus order
func (c Corpus) OutboundTexts() []string {
	var texts []string
	for _, conv := range c {
		for _, turn := range conv.Turns {
			if turn.Direction == DirectionOutbound {
				texts = append(texts, turn.Text)
			}
		}
	}
	return texts
}

// BehaviorReport is the Stage 1 output, kept for audit only
type BehaviorReport struct {
	RunID       string    `json:"run_id"`
	Report      string    `json:"report"`
	GeneratedAt time.Time `json:"generated_at"`
}
