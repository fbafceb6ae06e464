package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap("op", Internal, nil))
}

func TestKindOf(t *testing.T) {
	base := Wrap("llm.classify", LlmTimeout, context.DeadlineExceeded)
	wrapped := fmt.Errorf("intent: %w", base)

	assert.Equal(t, LlmTimeout, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, LlmTimeout))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, Internal))
}

func TestKindFamilies(t *testing.T) {
	assert.True(t, LlmMalformed.IsLLM())
	assert.True(t, LlmUnavailable.IsLLM())
	assert.False(t, CatalogUnavailable.IsLLM())
	assert.Equal(t, "catalog_unavailable", CatalogUnavailable.String())
}

func TestErrorMessage(t *testing.T) {
	err := New("retrieval.search", CatalogUnavailable, "no index for tenant")
	assert.Equal(t, "retrieval.search: catalog_unavailable: no index for tenant", err.Error())
}
