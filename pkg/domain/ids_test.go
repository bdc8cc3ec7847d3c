package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "greenhop/pkg/domain-errors"
)

func TestParseAccountID(t *testing.T) {
	t.Run("accepts shard.realm.number", func(t *testing.T) {
		id, err := ParseAccountID("0.0.12345")
		require.NoError(t, err)
		assert.Equal(t, AccountID{Shard: 0, Realm: 0, Num: 12345}, id)
		assert.Equal(t, "0.0.12345", id.String())
	})

	t.Run("accepts nonzero shard and realm", func(t *testing.T) {
		id, err := ParseAccountID("1.2.3")
		require.NoError(t, err)
		assert.Equal(t, AccountID{Shard: 1, Realm: 2, Num: 3}, id)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, input := range []string{
			"",
			"   ",
			"0.0",
			"0.0.0.0",
			"0.0.abc",
			"0.-1.5",
			"0.0.12345x",
			"alice",
		} {
			_, err := ParseAccountID(input)
			require.Error(t, err, "input %q", input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeAccountFormat), "input %q", input)
		}
	})
}

func TestTripID(t *testing.T) {
	t.Run("new trip IDs are prefixed and parseable", func(t *testing.T) {
		id := NewTripID()
		parsed, err := ParseTripID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := ParseTripID("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		require.Error(t, err)
	})

	t.Run("rejects garbage after prefix", func(t *testing.T) {
		_, err := ParseTripID("trip_not-a-uuid")
		require.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseTripID("")
		require.Error(t, err)
		assert.True(t, TripID("").IsNil())
	})
}

func TestCredentialID(t *testing.T) {
	id, err := ParseCredentialID("vc_abc123")
	require.NoError(t, err)
	assert.Equal(t, "vc_abc123", id.String())

	_, err = ParseCredentialID(" ")
	require.Error(t, err)
}
