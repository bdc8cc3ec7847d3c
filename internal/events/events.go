// Package events publishes trip lifecycle events to Kafka for downstream
// consumers (analytics, reconciliation).
package events

import (
	"context"
	"time"

	id "greenhop/pkg/domain"
)

// Event types emitted by the trip pipeline.
const (
	TypeTripCompleted          = "trip.completed"
	TypeTripRejected           = "trip.rejected"
	TypeTripFailed             = "trip.failed"
	TypeReconciliationRequired = "reward.reconciliation_required"
)

// Event is one trip lifecycle event. The Kafka message key is the account id
// so per-account ordering is preserved.
type Event struct {
	Type           string           `json:"type"`
	TripID         id.TripID        `json:"trip_id"`
	Account        string           `json:"account"`
	TripType       string           `json:"trip_type,omitempty"`
	RewardAmount   int64            `json:"reward_amount,omitempty"`
	TransactionID  id.TransactionID `json:"transaction_id,omitempty"`
	MintTxID       id.TransactionID `json:"mint_tx_id,omitempty"`
	CredentialID   id.CredentialID  `json:"credential_id,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Publisher emits trip events. Implementations must not block the pipeline
// on broker availability.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close()
}
