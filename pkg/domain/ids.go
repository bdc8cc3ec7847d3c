// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "greenhop/pkg/domain-errors"
)

const tripIDPrefix = "trip_"

// TripID is the prefixed identifier generated when a submission is accepted
// into the pipeline (e.g. "trip_6b9f...").
type TripID string

// NewTripID generates a new trip ID with a stable prefix.
func NewTripID() TripID {
	return TripID(tripIDPrefix + uuid.NewString())
}

// ParseTripID validates and parses a trip ID string.
func ParseTripID(s string) (TripID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "trip ID cannot be empty")
	}
	if !strings.HasPrefix(s, tripIDPrefix) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "trip ID must start with trip_")
	}
	if _, err := uuid.Parse(strings.TrimPrefix(s, tripIDPrefix)); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid trip ID format")
	}
	return TripID(s), nil
}

func (id TripID) String() string { return string(id) }
func (id TripID) IsNil() bool    { return id == "" }

// AccountID is a ledger account in shard.realm.number form (e.g. "0.0.12345").
type AccountID struct {
	Shard uint64
	Realm uint64
	Num   uint64
}

// ParseAccountID validates an account string against the shard.realm.number
// pattern. Any input failing the pattern is rejected at the boundary before
// reaching business logic.
func ParseAccountID(s string) (AccountID, error) {
	if strings.TrimSpace(s) == "" {
		return AccountID{}, dErrors.New(dErrors.CodeAccountFormat, "account ID cannot be empty")
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return AccountID{}, dErrors.New(dErrors.CodeAccountFormat, "account ID must be shard.realm.number, e.g. 0.0.12345")
	}
	nums := make([]uint64, 3)
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return AccountID{}, dErrors.New(dErrors.CodeAccountFormat, "account ID must be shard.realm.number, e.g. 0.0.12345")
		}
		nums[i] = n
	}
	return AccountID{Shard: nums[0], Realm: nums[1], Num: nums[2]}, nil
}

// MustAccountID parses an account string and panics on failure. Test helper.
func MustAccountID(s string) AccountID {
	id, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id AccountID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Shard, id.Realm, id.Num)
}

// IsNil reports whether the account is the zero value. The all-zero account
// 0.0.0 is reserved and never a valid reward destination.
func (id AccountID) IsNil() bool { return id == AccountID{} }

// CredentialID is the identifier of an externally issued verifiable
// credential. The core treats it as opaque; only the issuing authority
// understands its structure.
type CredentialID string

// ParseCredentialID validates a credential ID string.
func ParseCredentialID(s string) (CredentialID, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	return CredentialID(s), nil
}

func (id CredentialID) String() string { return string(id) }
func (id CredentialID) IsNil() bool    { return id == "" }

// TransactionID is an opaque ledger transaction identifier
// (e.g. "0.0.98@1703502401.000000001").
type TransactionID string

func (id TransactionID) String() string { return string(id) }
func (id TransactionID) IsNil() bool    { return id == "" }
