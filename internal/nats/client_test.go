package nats

import (
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestSubscriptionFields(t *testing.T) {
	err := errors.New("slow consumer")

	assert.Len(t, subscriptionFields(nil, err), 1)

	fields := subscriptionFields(&nats.Subscription{Subject: CatalogSubject("butik")}, err)
	keys := make(map[string]string)
	for _, f := range fields {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "catalog.butik.changed", keys["subject"])
	assert.Equal(t, "butik", keys["tenant_id"])
}
