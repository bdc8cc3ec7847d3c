package store

import (
	"context"
	"sync"

	"greenhop/internal/trip/models"
	id "greenhop/pkg/domain"
)

// InMemoryStore is an in-memory implementation of Store for tests or local
// use. It is safe for concurrent access but does not persist across process
// restarts.
type InMemoryStore struct {
	mu    sync.RWMutex
	trips map[id.TripID]models.Record
	order []id.TripID // insertion order, for stable listings
}

// NewInMemory constructs an empty in-memory trip store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{trips: make(map[id.TripID]models.Record)}
}

// Create inserts a new record. Records are copied on the way in so later
// caller mutations cannot leak into the store.
func (s *InMemoryStore) Create(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trips[record.ID]; exists {
		return ErrDuplicateID
	}
	s.trips[record.ID] = cloneRecord(record)
	s.order = append(s.order, record.ID)
	return nil
}

// FindByID retrieves a record by trip ID or returns ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, tripID id.TripID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.trips[tripID]; ok {
		out := cloneRecord(&rec)
		return &out, nil
	}
	return nil, ErrNotFound
}

// ListByAccount returns all records for the account in insertion order.
func (s *InMemoryStore) ListByAccount(_ context.Context, account id.AccountID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, tripID := range s.order {
		rec := s.trips[tripID]
		if rec.Account == account {
			c := cloneRecord(&rec)
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListCompleted returns all records with status completed.
func (s *InMemoryStore) ListCompleted(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, tripID := range s.order {
		rec := s.trips[tripID]
		if rec.Status == models.StatusCompleted {
			c := cloneRecord(&rec)
			out = append(out, &c)
		}
	}
	return out, nil
}

func cloneRecord(r *models.Record) models.Record {
	out := *r
	if r.Coordinates != nil {
		out.Coordinates = append(out.Coordinates[:0:0], r.Coordinates...)
	}
	return out
}

var _ Store = (*InMemoryStore)(nil)
