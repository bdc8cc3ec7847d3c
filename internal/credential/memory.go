package credential

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	id "greenhop/pkg/domain"
)

// InMemoryIssuer issues credentials locally without an external authority.
// Used in development and tests when no credential API is configured.
type InMemoryIssuer struct {
	mu       sync.Mutex
	policyID string
	issued   map[id.CredentialID]Claim
}

var _ Issuer = (*InMemoryIssuer)(nil)

// NewInMemory creates a local credential issuer.
func NewInMemory(policyID string) *InMemoryIssuer {
	return &InMemoryIssuer{
		policyID: policyID,
		issued:   make(map[id.CredentialID]Claim),
	}
}

// Issue records the claim and returns a freshly minted credential.
func (m *InMemoryIssuer) Issue(_ context.Context, claim Claim) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	credID := id.CredentialID(fmt.Sprintf("urn:credential:%s", uuid.NewString()))
	m.issued[credID] = claim
	return &Credential{
		ID:       credID,
		PolicyID: m.policyID,
		Status:   StatusVerified,
		IssuedAt: time.Now(),
	}, nil
}

// Issued returns the claim behind a credential id. Test helper.
func (m *InMemoryIssuer) Issued(credID id.CredentialID) (Claim, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claim, ok := m.issued[credID]
	return claim, ok
}
