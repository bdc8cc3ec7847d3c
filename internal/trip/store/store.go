package store

import (
	"context"

	"greenhop/internal/trip/models"
	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "trip not found")

	// ErrDuplicateID guards the insert-only contract: trip ids are generated
	// once at acceptance and never reused.
	ErrDuplicateID = dErrors.New(dErrors.CodeConflict, "trip id already exists")
)

// Store is the append-only trip record store. Records are immutable after
// Create; implementations must support concurrent writers.
type Store interface {
	Create(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, tripID id.TripID) (*models.Record, error)
	ListByAccount(ctx context.Context, account id.AccountID) ([]*models.Record, error)
	ListCompleted(ctx context.Context) ([]*models.Record, error)
}
