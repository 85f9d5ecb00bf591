package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/classroom-service/internal/config"
)

const Source = "classroom-service"

// MetadataType is the message metadata key carrying the event type
const MetadataType = "type"

// Domain event types
const (
	CourseStatusChanged = "course.status_changed"
	EnrollmentCreated   = "enrollment.created"
	EnrollmentRemoved   = "enrollment.removed"
	SubmissionCreated   = "submission.created"
	SubmissionGraded    = "submission.graded"
	QueryCreated        = "query.created"
	QueryAnswered       = "query.answered"
)

// Envelope is the JSON payload of every published message
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Source     string          `json:"source"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher emits domain events. Publishing never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any)
	Close() error
}

// PublishObserver is notified of every publish attempt
type PublishObserver interface {
	EventPublished(eventType string, err error)
}

// WatermillPublisher publishes envelopes on one topic through any watermill publisher
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
	observer  PublishObserver
}

// NewPublisher returns a Kafka publisher when brokers are configured and an
// in-process gochannel otherwise. The gochannel is also returned so callers
// can subscribe to it; it is nil in Kafka mode.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger, observer PublishObserver) (*WatermillPublisher, *gochannel.GoChannel, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		logger.Info("Event publisher using Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.Topic)
		return NewWatermillPublisher(pub, cfg.Topic, logger, observer), nil, nil
	}

	channel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)
	logger.Info("Event publisher using in-process channel", "topic", cfg.Topic)
	return NewWatermillPublisher(channel, cfg.Topic, logger, observer), channel, nil
}

func NewWatermillPublisher(publisher message.Publisher, topic string, logger *slog.Logger, observer PublishObserver) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		observer:  observer,
	}
}

// Publish wraps data in an Envelope and sends it. Errors are logged and counted.
func (p *WatermillPublisher) Publish(ctx context.Context, eventType string, data any) {
	msg, err := NewMessage(eventType, data)
	if err == nil {
		msg.SetContext(ctx)
		err = p.publisher.Publish(p.topic, msg)
	}

	if p.observer != nil {
		p.observer.EventPublished(eventType, err)
	}
	if err != nil {
		p.logger.Error("Failed to publish event", "type", eventType, "topic", p.topic, "error", err)
		return
	}
	p.logger.Debug("Event published", "type", eventType, "message_id", msg.UUID)
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NewMessage builds the watermill message for one event
func NewMessage(eventType string, data any) (*message.Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	env := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Source:     Source,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", eventType, err)
	}

	msg := message.NewMessage(env.ID, payload)
	msg.Metadata.Set(MetadataType, eventType)
	return msg, nil
}

// Decode reads an Envelope back from a message payload
func Decode(msg *message.Message) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}
	return &env, nil
}

// Discard is a Publisher that drops every event
type Discard struct{}

func (Discard) Publish(ctx context.Context, eventType string, data any) {}

func (Discard) Close() error {
	return nil
}
