package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "greenhop/pkg/domain"
)

func fullPublisher() *KafkaPublisher {
	// Unbuffered channel with no consumer behaves like a saturated buffer.
	return &KafkaPublisher{
		events: make(chan Event),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestEmitDropsWhenBufferFull(t *testing.T) {
	p := fullPublisher()

	err := p.Emit(context.Background(), Event{Type: TypeTripCompleted, TripID: id.NewTripID()})
	assert.NoError(t, err)
}

func TestEmitReportsCancelledContextWhenBufferFull(t *testing.T) {
	p := fullPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Emit(ctx, Event{Type: TypeTripCompleted, TripID: id.NewTripID()})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmitStampsTimestamp(t *testing.T) {
	p := &KafkaPublisher{
		events: make(chan Event, 1),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	before := time.Now()

	event := Event{Type: TypeTripRejected, TripID: id.NewTripID()}
	require.NoError(t, p.Emit(context.Background(), event))

	captured := <-p.events
	assert.False(t, captured.Timestamp.Before(before))
}
