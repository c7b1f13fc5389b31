package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	// Prompt ledger errors
	ErrNoActivePrompt  = errors.New("no active prompt")
	ErrPromptNotFound  = errors.New("prompt not found")
	ErrLedgerIntegrity = errors.New("prompt ledger integrity violation")
	ErrLedgerEmpty     = errors.New("prompt ledger is empty")

	// Evolution errors
	ErrValidation    = errors.New("candidate prompt rejected by policy")
	ErrCorpusMissing = errors.New("reference corpus unavailable")

	// Message errors
	ErrInvalidRole    = errors.New("invalid message role")
	ErrInvalidSession = errors.New("invalid session ID")

	// LLM errors
	ErrLLMUnavailable = errors.New("LLM service unavailable")
	ErrLLMProvider    = errors.New("LLM provider error")
	ErrLLMQuota       = errors.New("LLM quota exceeded")
	ErrLLMNetwork     = errors.New("LLM network error")
	ErrLLMTimeout     = errors.New("LLM request timed out")
	ErrLLMEmptyReply  = errors.New("LLM returned no choices")

	// Validation errors
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidID    = errors.New("invalid ID format")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}

func NewDomainErrorWithCode(err error, message, code string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// ValidationError reports which policy rule rejected a candidate prompt.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Rule   string
	Phrase string
}

func (e *ValidationError) Error() string {
	if e.Phrase != "" {
		return fmt.Sprintf("%s: rule %s matched %q", ErrValidation.Error(), e.Rule, e.Phrase)
	}
	return fmt.Sprintf("%s: rule %s", ErrValidation.Error(), e.Rule)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsLLMError reports whether err came from the LLM transport
func IsLLMError(err error) bool {
	return errors.Is(err, ErrLLMProvider) ||
		errors.Is(err, ErrLLMQuota) ||
		errors.Is(err, ErrLLMNetwork) ||
		errors.Is(err, ErrLLMTimeout) ||
		errors.Is(err, ErrLLMUnavailable) ||
		errors.Is(err, ErrLLMEmptyReply)
}
