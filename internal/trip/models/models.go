// Package models holds the trip domain types shared by the validator,
// pipeline, stores, and handlers.
package models

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"time"

	"greenhop/internal/geo"
	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

// TripType enumerates the supported low-carbon trip modes.
type TripType string

const (
	TripTypeWalking TripType = "walking"
	TripTypeCycling TripType = "cycling"
)

// ParseTripType validates a trip type string at trust boundaries.
func ParseTripType(s string) (TripType, error) {
	switch TripType(s) {
	case TripTypeWalking, TripTypeCycling:
		return TripType(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "trip_type must be walking or cycling")
	}
}

func (t TripType) String() string { return string(t) }

// TripStatus is the terminal status recorded for a processed submission.
type TripStatus string

const (
	StatusCompleted TripStatus = "completed"
	StatusFailed    TripStatus = "failed"
)

// Submission is the untrusted input for one claimed trip. Shape validation
// (all fields present, sane ranges) happens at the transport boundary; the
// claimed distance and speed figures are still unverified here.
type Submission struct {
	Account        id.AccountID
	StartTime      int64 // unix milliseconds
	EndTime        int64 // unix milliseconds
	DistanceMeters float64
	AvgSpeedKmh    float64
	Coordinates    []geo.Coordinate
	Type           TripType
}

// DurationMinutes derives the claimed duration from start/end times.
func (s Submission) DurationMinutes() float64 {
	return float64(s.EndTime-s.StartTime) / (1000 * 60)
}

// IdempotencyKey derives a content hash over account, time window, and the
// coordinate sequence. Identical resubmissions produce identical keys. The
// pipeline records the key for offline reconciliation; it does not dedupe.
func (s Submission) IdempotencyKey() string {
	h := sha256.New()
	h.Write([]byte(s.Account.String()))
	writeInt64(h, s.StartTime)
	writeInt64(h, s.EndTime)
	for _, c := range s.Coordinates {
		writeInt64(h, int64(math.Float64bits(c.Lat)))
		writeInt64(h, int64(math.Float64bits(c.Lng)))
		writeInt64(h, c.Timestamp)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeInt64(h hash.Hash, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:]) //nolint:errcheck // hash writes never fail
}

// VerificationOutcome is the immutable verdict of the trip validator.
// Produced once per submission and never mutated after creation.
type VerificationOutcome struct {
	Valid        bool
	RewardAmount int64
	Reason       string
	Rule         string // machine-readable name of the rejecting rule, empty when valid
}

// Record is the persisted unit of truth for one processed submission.
// Exactly one Record exists per syntactically valid submission, for both
// successful and failed outcomes. Records are immutable once written.
type Record struct {
	ID             id.TripID
	Account        id.AccountID
	StartTime      int64
	EndTime        int64
	DistanceMeters float64
	AvgSpeedKmh    float64
	Coordinates    []geo.Coordinate
	Type           TripType
	Status         TripStatus
	RewardAmount   int64
	TransactionID  id.TransactionID  // set only when the transfer succeeded
	MintTxID       id.TransactionID  // set when minting succeeded, even if the transfer later failed
	CredentialID   id.CredentialID   // set once the credential was issued
	IdempotencyKey string
	CreatedAt      time.Time
}

// DurationMinutes derives per-trip duration from the stored start/end times.
func (r *Record) DurationMinutes() int64 {
	return int64(float64(r.EndTime-r.StartTime)/(1000*60) + 0.5)
}

// SubmitResult is the caller-facing outcome of one submission.
type SubmitResult struct {
	Success       bool
	TripID        id.TripID
	RewardAmount  int64
	TransactionID id.TransactionID
	CredentialID  id.CredentialID
	Message       string
}
