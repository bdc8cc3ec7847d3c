// Package credential integrates with the external green-mobility credential
// authority. A verified trip is attested as a credential before any token
// reward is minted against it.
package credential

import (
	"context"
	"time"

	id "greenhop/pkg/domain"
)

// Status is the lifecycle state of an issued credential.
type Status string

const (
	StatusVerified Status = "verified"
	StatusRevoked  Status = "revoked"
)

// Claim carries the verified trip facts the authority attests to.
type Claim struct {
	TripID         id.TripID `json:"trip_id"`
	Account        string    `json:"account"`
	TripType       string    `json:"trip_type"`
	DistanceMeters float64   `json:"distance_meters"`
	DurationMin    float64   `json:"duration_minutes"`
	CO2SavedGrams  int64     `json:"co2_saved_grams"`
	CompletedAt    int64     `json:"completed_at"`
}

// Credential is the authority's attestation of one claim.
type Credential struct {
	ID       id.CredentialID
	PolicyID string
	Status   Status
	IssuedAt time.Time
}

// Issuer submits trip claims to the credential authority.
type Issuer interface {
	Issue(ctx context.Context, claim Claim) (*Credential, error)
}
