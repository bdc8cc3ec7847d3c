package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"greenhop/internal/platform/kafka/producer"
)

// KafkaPublisher emits trip events through the Kafka producer. Events are
// buffered and produced by a background goroutine so broker latency never
// stalls the submission path.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
	events   chan Event
	wg       sync.WaitGroup
	logger   *slog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// KafkaOption configures the KafkaPublisher.
type KafkaOption func(*KafkaPublisher)

// WithBuffer sets the async buffer size.
func WithBuffer(size int) KafkaOption {
	return func(p *KafkaPublisher) {
		if size > 0 {
			p.events = make(chan Event, size)
		}
	}
}

// WithLogger sets a logger for background error reporting.
func WithLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

// NewKafka creates an async Kafka-backed trip event publisher.
func NewKafka(prod *producer.Producer, topic string, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: prod,
		topic:    topic,
		events:   make(chan Event, 256),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(1)
	go p.processEvents()
	return p
}

// processEvents runs in a goroutine and produces queued events.
func (p *KafkaPublisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		value, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("failed to marshal trip event",
				"error", err,
				"type", event.Type,
				"trip_id", event.TripID,
			)
			continue
		}
		msg := &producer.Message{
			Topic: p.topic,
			Key:   []byte(event.Account),
			Value: value,
		}
		if err := p.producer.Produce(context.Background(), msg); err != nil {
			p.logger.Error("failed to produce trip event",
				"error", err,
				"type", event.Type,
				"trip_id", event.TripID,
			)
		}
	}
}

// Emit queues the event for delivery. A full buffer drops the event rather
// than blocking the submission path.
func (p *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.Warn("trip event buffer full, event dropped",
			"type", event.Type,
			"trip_id", event.TripID,
		)
		return nil
	}
}

// Close drains pending events and stops the background goroutine.
func (p *KafkaPublisher) Close() {
	close(p.events)
	p.wg.Wait()
}

// NoopPublisher discards all events. Used when no brokers are configured.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) Emit(context.Context, Event) error { return nil }
func (NoopPublisher) Close()                            {}
