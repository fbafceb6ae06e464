package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "assistant.butik.turn", TurnSubject("butik", model.EventTypeTurn))
	assert.Equal(t, "assistant.butik.error", TurnSubject("butik", model.EventTypeError))
	assert.Equal(t, "catalog.butik.changed", CatalogSubject("butik"))
}

func TestCatalogTenant(t *testing.T) {
	id, ok := CatalogTenant(CatalogSubject("magaza-2"))
	assert.True(t, ok)
	assert.Equal(t, "magaza-2", id)

	for _, s := range []string{"catalog..changed", "catalog.butik", "assistant.butik.turn", "catalog.butik.removed"} {
		_, ok := CatalogTenant(s)
		assert.False(t, ok, s)
	}
}

func TestSubjectTenant(t *testing.T) {
	for subject, want := range map[string]string{
		TurnSubject("butik", model.EventTypeTurn): "butik",
		CatalogSubject("magaza-2"):                "magaza-2",
	} {
		got, ok := SubjectTenant(subject)
		assert.True(t, ok, subject)
		assert.Equal(t, want, got)
	}

	for _, s := range []string{"catalog.*.changed", "assistant.>", "other.butik.turn", "assistant..turn"} {
		_, ok := SubjectTenant(s)
		assert.False(t, ok, s)
	}
}
