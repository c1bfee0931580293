// Package watermillbus is a reference bus.Bus implementation backed by
// github.com/ThreeDotsLabs/watermill over a NATS transport. Send and
// Publish both resolve to a watermill publish: Send treats the
// endpoint name as a directed subject, Publish treats the topic as a
// broadcast subject — the distinction is in the caller's intent, not
// the wire mechanics, matching the teacher's own watermill_adapter.go.
package watermillbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	natspkg "github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config configures the NATS-backed publisher.
type Config struct {
	URL string
}

// Bus wraps a watermill message.Publisher.
type Bus struct {
	publisher message.Publisher
	logger    *zap.Logger
}

// New dials NATS and constructs a Bus.
func New(cfg Config, logger *zap.Logger) (*Bus, error) {
	wmLogger := watermill.NewStdLogger(false, false)
	publisher, err := natspkg.NewPublisher(natspkg.PublisherConfig{
		URL:         cfg.URL,
		Marshaler:   &natspkg.NATSMarshaler{},
	}, wmLogger)
	if err != nil {
		return nil, err
	}
	return &Bus{publisher: publisher, logger: logger}, nil
}

func (b *Bus) publish(subject string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.New().String(), body)
	return b.publisher.Publish(subject, msg)
}

// Send delivers payload to a named endpoint subject.
func (b *Bus) Send(ctx context.Context, endpoint string, payload interface{}) error {
	if err := b.publish(endpoint, payload); err != nil {
		b.logger.Error("bus send failed", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}
	return nil
}

// Publish broadcasts payload on a topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) error {
	if err := b.publish(topic, payload); err != nil {
		b.logger.Error("bus publish failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

// Close shuts the underlying publisher down.
func (b *Bus) Close() error { return b.publisher.Close() }
