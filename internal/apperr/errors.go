// Package apperr defines the typed error kinds consumed by the chat orchestrator.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can pick a fallback path.
type Kind int

const (
	// Internal is any unexpected failure in a non-LLM component.
	Internal Kind = iota
	// InputInvalid covers empty or unusable utterances.
	InputInvalid
	// LlmUnavailable means no LLM is configured, the breaker is open or the call failed.
	LlmUnavailable
	// LlmTimeout means the LLM did not answer within its budget.
	LlmTimeout
	// LlmMalformed means the LLM answered with an unusable payload.
	LlmMalformed
	// CatalogUnavailable means the tenant has no loaded product index.
	CatalogUnavailable
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	InputInvalid:       "input_invalid",
	LlmUnavailable:     "llm_unavailable",
	LlmTimeout:         "llm_timeout",
	LlmMalformed:       "llm_malformed",
	CatalogUnavailable: "catalog_unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsLLM reports whether the kind belongs to the LLM family that callers swallow.
func (k Kind) IsLLM() bool {
	return k == LlmUnavailable || k == LlmTimeout || k == LlmMalformed
}

// Error is a classified error with the operation that produced it.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without a cause.
func New(op string, kind Kind, msg string) error {
	return &Error{Op: op, Kind: kind, Err: errors.New(msg)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain,
// or Internal when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
