package middleware

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/capitalize-ai/commerce-assistant/internal/catalog"
)

// MaxMessageBytes rejects request bodies that are clearly not chat messages.
// Shorter messages are truncated by the chat service instead.
const MaxMessageBytes = 16 * 1024

const maxSessionIDLength = 128

// ValidateMessage validates a chat message. Empty messages are answered by
// the assistant and are therefore allowed.
func ValidateMessage(content string) error {
	if len(content) > MaxMessageBytes {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a client supplied session ID. Empty asks the
// server to issue one.
func ValidateSessionID(id string) error {
	if len(id) > maxSessionIDLength {
		return errors.New("session ID exceeds maximum length")
	}
	for _, r := range id {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return errors.New("invalid session ID format")
		}
	}
	return nil
}

// ValidateTenantID validates a tenant ID.
func ValidateTenantID(id string) error {
	if len(id) == 0 {
		return errors.New("tenant ID cannot be empty")
	}
	if !catalog.ValidTenantID(id) {
		return errors.New("invalid tenant ID format")
	}
	return nil
}
