package wallet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

func newService(now func() time.Time) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []Option{WithLogger(logger)}
	if now != nil {
		opts = append(opts, WithClock(now))
	}
	return New(NewInMemorySessionStore(), []byte("test-signing-key"), 24*time.Hour, opts...)
}

func TestConnectIssuesVerifiableToken(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()
	account := id.MustAccountID("0.0.12345")

	session, err := svc.Connect(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, account, session.Account)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(session.ConnectedAt))

	parsed, err := svc.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, account, parsed)

	connected, err := svc.Connected(ctx, account)
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestDisconnect(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()
	account := id.MustAccountID("0.0.12345")

	_, err := svc.Connect(ctx, account)
	require.NoError(t, err)
	require.NoError(t, svc.Disconnect(ctx, account))

	connected, err := svc.Connected(ctx, account)
	require.NoError(t, err)
	assert.False(t, connected)

	// Disconnecting an unknown wallet is a no-op
	require.NoError(t, svc.Disconnect(ctx, id.MustAccountID("0.0.404")))
}

func TestSessionExpiry(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(func() time.Time { return current })
	ctx := context.Background()
	account := id.MustAccountID("0.0.12345")

	session, err := svc.Connect(ctx, account)
	require.NoError(t, err)

	current = current.Add(25 * time.Hour)

	connected, err := svc.Connected(ctx, account)
	require.NoError(t, err)
	assert.False(t, connected)

	_, err = svc.VerifyToken(session.Token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	accounts, err := svc.ConnectedAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	svc := newService(nil)
	other := New(NewInMemorySessionStore(), []byte("different-key"), 24*time.Hour)

	session, err := other.Connect(context.Background(), id.MustAccountID("0.0.12345"))
	require.NoError(t, err)

	_, err = svc.VerifyToken(session.Token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestConnectedAccounts(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	_, err := svc.Connect(ctx, id.MustAccountID("0.0.1001"))
	require.NoError(t, err)
	_, err = svc.Connect(ctx, id.MustAccountID("0.0.1002"))
	require.NoError(t, err)

	accounts, err := svc.ConnectedAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}
