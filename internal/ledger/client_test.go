package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
	"greenhop/pkg/platform/circuit"
)

func TestHTTPClientMint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/tokens/mint", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		var req mintRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0.0.55555", req.TokenID)
		assert.Equal(t, int64(3), req.Amount)

		json.NewEncoder(w).Encode(txResponse{TransactionID: "0.0.777@1700000000.000000001", Status: "SUCCESS"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "0.0.55555", 5*time.Second)
	txID, err := client.Mint(context.Background(), 3, "reward for trip_x")
	require.NoError(t, err)
	assert.Equal(t, id.TransactionID("0.0.777@1700000000.000000001"), txID)
}

func TestHTTPClientGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(errorResponse{Error: "invalid_transfer", Message: "insufficient treasury balance"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", "0.0.55555", 5*time.Second)
	_, err := client.Transfer(context.Background(), id.MustAccountID("0.0.12345"), 10)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransferFailed))
	assert.Contains(t, err.Error(), "insufficient treasury balance")
}

func TestHTTPClientCircuitOpensOnRepeatedOutage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker := circuit.New("ledger-gateway", circuit.WithFailureThreshold(2))
	client := NewHTTPClient(srv.URL, "test-key", "0.0.55555", 5*time.Second, WithBreaker(breaker))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := client.Mint(ctx, 1, "")
		require.Error(t, err)
	}
	require.Equal(t, circuit.StateOpen, breaker.State())

	// Circuit is open: the gateway is no longer hit
	_, err := client.Mint(ctx, 1, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMintFailed))
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, int32(2), hits.Load())
}
