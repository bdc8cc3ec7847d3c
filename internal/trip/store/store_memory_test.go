package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhop/internal/geo"
	"greenhop/internal/trip/models"
	id "greenhop/pkg/domain"
)

func testRecord(account id.AccountID, status models.TripStatus) *models.Record {
	return &models.Record{
		ID:             id.NewTripID(),
		Account:        account,
		StartTime:      1700000000000,
		EndTime:        1700000900000,
		DistanceMeters: 1200,
		AvgSpeedKmh:    4.8,
		Coordinates: []geo.Coordinate{
			{Lat: 52.5200, Lng: 13.4050, Timestamp: 1700000000000},
			{Lat: 52.5210, Lng: 13.4060, Timestamp: 1700000900000},
		},
		Type:         models.TripTypeWalking,
		Status:       status,
		RewardAmount: 1,
		CreatedAt:    time.Now(),
	}
}

func TestInMemoryStoreOperations(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	account := id.MustAccountID("0.0.12345")

	// Create and find
	record := testRecord(account, models.StatusCompleted)
	require.NoError(t, store.Create(ctx, record))

	fetched, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, fetched.ID)
	assert.Equal(t, record.Account, fetched.Account)
	assert.Equal(t, record.Coordinates, fetched.Coordinates)

	// Duplicate id rejected
	require.ErrorIs(t, store.Create(ctx, record), ErrDuplicateID)

	// Copy integrity: mutating a fetched record must not touch the stored one
	fetched.RewardAmount = 99
	fetched.Coordinates[0].Lat = 0
	again, err := store.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.RewardAmount)
	assert.Equal(t, 52.5200, again.Coordinates[0].Lat)

	// Find non-existing
	noRecord, err := store.FindByID(ctx, id.NewTripID())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, noRecord)
}

func TestInMemoryStoreListing(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	alice := id.MustAccountID("0.0.1001")
	bob := id.MustAccountID("0.0.1002")

	first := testRecord(alice, models.StatusCompleted)
	second := testRecord(alice, models.StatusFailed)
	third := testRecord(bob, models.StatusCompleted)
	for _, r := range []*models.Record{first, second, third} {
		require.NoError(t, store.Create(ctx, r))
	}

	// Per-account listing keeps insertion order and includes failed trips
	byAlice, err := store.ListByAccount(ctx, alice)
	require.NoError(t, err)
	require.Len(t, byAlice, 2)
	assert.Equal(t, first.ID, byAlice[0].ID)
	assert.Equal(t, second.ID, byAlice[1].ID)

	// Completed listing spans accounts and skips failed trips
	completed, err := store.ListCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, first.ID, completed[0].ID)
	assert.Equal(t, third.ID, completed[1].ID)

	// Unknown account yields an empty list, not an error
	empty, err := store.ListByAccount(ctx, id.MustAccountID("0.0.9999"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
