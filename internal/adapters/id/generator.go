package id

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		// nanoid failed; fall back to a random UUID
		return prefix + "_" + uuid.NewString()
	}
	return prefix + "_" + id
}

func (g *Generator) GeneratePromptID() string {
	return g.generate("ap")
}

func (g *Generator) GenerateMessageID() string {
	return g.generate("am")
}

// GenerateRunID returns an evolution run identifier
func (g *Generator) GenerateRunID() string {
	return uuid.NewString()
}
