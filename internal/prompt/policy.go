package prompt

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/longregen/promptloop/internal/domain"
)

// Rule names used in validation errors
const (
	RuleForbiddenPhrase    = "forbidden_phrase"
	RuleConversationalTone = "conversational_tone"
	RuleNonEmpty           = "non_empty"
)

// ForbiddenPhrases are customer-facing phrasings that do not belong in a system prompt
var ForbiddenPhrases = []string{
	"Hello",
	"Welcome",
	"Please upload",
	"Our team",
	"We will review",
	"Service fee",
	"I am your",
	"I'm your",
	"Please feel free",
	"I look forward",
	"Let me know",
}

// GreetingTokens mark a conversational opening. Trailing spaces are significant.
var GreetingTokens = []string{
	"hi ",
	"hey ",
	"good morning",
	"good afternoon",
}

// Rule is one check of the policy gate
type Rule interface {
	Name() string
	// Check returns a *domain.ValidationError when text violates the rule
	Check(text string) error
}

// PhraseRule rejects text containing any of its phrases, ignoring case
type PhraseRule struct {
	name    string
	phrases []string
	folded  []string
}

// NewPhraseRule creates a case-insensitive substring rule
func NewPhraseRule(name string, phrases []string) *PhraseRule {
	folder := cases.Fold()
	folded := make([]string, len(phrases))
	for i, p := range phrases {
		folded[i] = folder.String(p)
	}
	return &PhraseRule{
		name:    name,
		phrases: append([]string(nil), phrases...),
		folded:  folded,
	}
}

func (r *PhraseRule) Name() string {
	return r.name
}

// Check returns the first configured phrase found in text
func (r *PhraseRule) Check(text string) error {
	haystack := cases.Fold().String(text)
	for i, needle := range r.folded {
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, needle) {
			return &domain.ValidationError{Rule: r.name, Phrase: r.phrases[i]}
		}
	}
	return nil
}

// NonEmptyRule rejects blank text
type NonEmptyRule struct{}

func (NonEmptyRule) Name() string {
	return RuleNonEmpty
}

func (NonEmptyRule) Check(text string) error {
	if strings.TrimSpace(text) == "" {
		return &domain.ValidationError{Rule: RuleNonEmpty}
	}
	return nil
}

// Policy is an ordered list of rules. The first violation wins.
type Policy struct {
	rules []Rule
}

// NewPolicy creates a policy from rules, evaluated in order
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: append([]Rule(nil), rules...)}
}

// DefaultPolicy returns the forbidden phrase check followed by the conversational tone check
func DefaultPolicy() *Policy {
	return NewPolicy(
		NewPhraseRule(RuleForbiddenPhrase, ForbiddenPhrases),
		NewPhraseRule(RuleConversationalTone, GreetingTokens),
	)
}

// With returns a new policy with extra rules appended
func (p *Policy) With(rules ...Rule) *Policy {
	combined := make([]Rule, 0, len(p.rules)+len(rules))
	combined = append(combined, p.rules...)
	combined = append(combined, rules...)
	return &Policy{rules: combined}
}

// Rules returns the rule names in evaluation order
func (p *Policy) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name()
	}
	return names
}

// Check accepts text or returns the first rule violation
func (p *Policy) Check(text string) error {
	for _, rule := range p.rules {
		if err := rule.Check(text); err != nil {
			return err
		}
	}
	return nil
}
