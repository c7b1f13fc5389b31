package prompt

import (
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultPayloadBudget is the maximum number of characters sent to the model per field
const DefaultPayloadBudget = 8000

// Truncate keeps the last budget runes of text. Text within budget is returned unchanged.
// A non-positive budget yields an empty string.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= budget {
		return text
	}
	runes := []rune(text)
	return string(runes[len(runes)-budget:])
}

// PayloadGuard truncates LLM input fields and logs every truncation
type PayloadGuard struct {
	budget     int
	logger     *zap.Logger
	onTruncate func(field string)
}

// NewPayloadGuard creates a guard. Non-positive budgets fall back to DefaultPayloadBudget.
func NewPayloadGuard(budget int, logger *zap.Logger) *PayloadGuard {
	if budget <= 0 {
		budget = DefaultPayloadBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayloadGuard{budget: budget, logger: logger}
}

// Budget returns the configured character budget
func (g *PayloadGuard) Budget() int {
	return g.budget
}

// OnTruncate registers fn to be called with the field name on every truncation
func (g *PayloadGuard) OnTruncate(fn func(field string)) *PayloadGuard {
	g.onTruncate = fn
	return g
}

// Apply truncates one logical field. field names the input in the warning log.
func (g *PayloadGuard) Apply(field, text string) string {
	n := utf8.RuneCountInString(text)
	if n <= g.budget {
		return text
	}
	g.logger.Warn("payload guard truncating input",
		zap.String("field", field),
		zap.Int("length", n),
		zap.Int("budget", g.budget),
	)
	if g.onTruncate != nil {
		g.onTruncate(field)
	}
	return Truncate(text, g.budget)
}
