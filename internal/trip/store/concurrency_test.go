package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenhop/internal/geo"
	"greenhop/internal/trip/models"
	"greenhop/internal/trip/store"
	id "greenhop/pkg/domain"
	"greenhop/pkg/testutil"
)

func record(tripID id.TripID, account id.AccountID) *models.Record {
	return &models.Record{
		ID:             tripID,
		Account:        account,
		StartTime:      1700000000000,
		EndTime:        1700000900000,
		DistanceMeters: 1200,
		AvgSpeedKmh:    4.8,
		Coordinates: []geo.Coordinate{
			{Lat: 52.5200, Lng: 13.4050, Timestamp: 1700000000000},
			{Lat: 52.5210, Lng: 13.4060, Timestamp: 1700000900000},
		},
		Type:      models.TripTypeWalking,
		Status:    models.StatusCompleted,
		CreatedAt: time.Now(),
	}
}

func TestConcurrentCreateSameID(t *testing.T) {
	st := store.NewInMemory()
	ctx := context.Background()
	account := id.MustAccountID("0.0.12345")
	tripID := id.NewTripID()

	result := testutil.RunConcurrent(16, func(int) error {
		return st.Create(ctx, record(tripID, account))
	})

	assert.Equal(t, int32(1), result.Successes)
	assert.Equal(t, int32(15), result.Duplicates)
	assert.Equal(t, int32(16), result.Total())
}

func TestConcurrentCreateAndList(t *testing.T) {
	st := store.NewInMemory()
	ctx := context.Background()

	result := testutil.RunConcurrentCtx(ctx, 32, func(ctx context.Context, idx int) error {
		account := id.MustAccountID(fmt.Sprintf("0.0.%d", 1000+idx%4))
		return st.Create(ctx, record(id.NewTripID(), account))
	})
	require.Equal(t, int32(32), result.Successes)

	completed, err := st.ListCompleted(ctx)
	require.NoError(t, err)
	assert.Len(t, completed, 32)

	byAccount, err := st.ListByAccount(ctx, id.MustAccountID("0.0.1000"))
	require.NoError(t, err)
	assert.Len(t, byAccount, 8)
}
