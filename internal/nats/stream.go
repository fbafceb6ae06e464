package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/internal/model"
)

const (
	// StreamName is the name of the assistant event stream.
	StreamName = "ASSISTANT"

	// TurnPrefix prefixes chat turn subjects.
	TurnPrefix = "assistant"

	// CatalogPrefix prefixes catalog change subjects.
	CatalogPrefix = "catalog"

	// InstanceHeader carries the id of the publishing instance.
	InstanceHeader = "Assistant-Instance"
)

// CatalogHandler is called for catalog changes announced by other instances.
type CatalogHandler func(ctx context.Context, tenantID, origin string) error

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client   *Client
	instance string
}

// NewStreamManager creates a stream manager. The client's instance id lets
// it ignore its own catalog announcements.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client, instance: client.Instance()}
}

// EnsureStream ensures the assistant stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{TurnPrefix + ".>", CatalogPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Assistant chat turns and catalog changes",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a chat turn event.
func TurnSubject(tenantID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", TurnPrefix, tenantID, eventType)
}

// CatalogSubject returns the subject for a tenant's catalog changes.
func CatalogSubject(tenantID string) string {
	return fmt.Sprintf("%s.%s.changed", CatalogPrefix, tenantID)
}

// SubjectTenant extracts the tenant id from any turn or catalog subject.
func SubjectTenant(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) < 3 || (parts[0] != TurnPrefix && parts[0] != CatalogPrefix) {
		return "", false
	}
	if parts[1] == "" || parts[1] == "*" || parts[1] == ">" {
		return "", false
	}
	return parts[1], true
}

// CatalogTenant extracts the tenant id from a catalog subject.
func CatalogTenant(subject string) (string, bool) {
	parts := strings.Split(subject, ".")
	if len(parts) != 3 || parts[0] != CatalogPrefix || parts[2] != "changed" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// PublishTurn publishes a chat turn event.
func (m *StreamManager) PublishTurn(ctx context.Context, ev *model.ChatEvent) error {
	_, err := m.publish(ctx, TurnSubject(ev.TenantID, ev.Type), ev)
	return err
}

// PublishCatalogChanged announces a catalog reload to other instances.
func (m *StreamManager) PublishCatalogChanged(ctx context.Context, ev *model.CatalogEvent) error {
	_, err := m.publish(ctx, CatalogSubject(ev.TenantID), ev)
	return err
}

func (m *StreamManager) publish(ctx context.Context, subject string, v any) (uint64, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(InstanceHeader, m.instance)

	ack, err := m.client.JetStream().PublishMsg(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}

// SubscribeCatalog delivers catalog changes published by other instances to
// handle until the returned stop function is called. Only changes published
// after the subscription starts are delivered.
func (m *StreamManager) SubscribeCatalog(ctx context.Context, origin string, handle CatalogHandler) (func(), error) {
	consumer, err := m.client.JetStream().CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject:     CatalogPrefix + ".*.changed",
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: 5 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	log := m.client.logger
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		defer msg.Ack()

		if msg.Headers().Get(InstanceHeader) == m.instance {
			return
		}
		tenantID, ok := CatalogTenant(msg.Subject())
		if !ok {
			log.Warn("ignoring catalog message on unexpected subject", zap.String("subject", msg.Subject()))
			return
		}
		if err := handle(ctx, tenantID, origin); err != nil {
			log.Warn("failed to apply remote catalog change",
				zap.String("tenant_id", tenantID), zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to consume catalog changes: %w", err)
	}

	return cc.Stop, nil
}

// Turns retrieves a tenant's chat turn events starting after a sequence.
func (m *StreamManager) Turns(ctx context.Context, tenantID string, afterSequence uint64, limit int) ([]model.ChatEvent, uint64, bool, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: fmt.Sprintf("%s.%s.>", TurnPrefix, tenantID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}

	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}
	defer func() {
		if err := js.DeleteConsumer(context.WithoutCancel(ctx), StreamName, consumer.CachedInfo().Name); err != nil {
			m.client.logger.Debug("failed to delete turn consumer", zap.Error(err))
		}
	}()

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch turns: %w", err)
	}

	var events []model.ChatEvent
	var lastSequence uint64
	for msg := range batch.Messages() {
		var ev model.ChatEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			continue
		}

		meta, err := msg.Metadata()
		if err == nil {
			ev.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}

		events = append(events, ev)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return events, lastSequence, len(events) == limit, nil
}
