// Package store persists trust claims. Pending uniqueness is enforced inside
// the store so two concurrent submissions cannot both land: the in-memory
// implementation checks under its lock, the postgres implementation relies on
// a partial unique index over pending claims.
package store

import (
	"context"
	"sync"

	"hometrust/internal/claim/models"
	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded claim store.
type InMemory struct {
	mu               sync.RWMutex
	claims           map[id.ClaimID]*models.Claim
	pendingByAccount map[id.AccountID]id.ClaimID
}

func NewInMemory() *InMemory {
	return &InMemory{
		claims:           make(map[id.ClaimID]*models.Claim),
		pendingByAccount: make(map[id.AccountID]id.ClaimID),
	}
}

// Create inserts a pending claim, failing with ErrAlreadyUsed when the
// account already has one pending.
func (s *InMemory) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pendingByAccount[claim.AccountID]; exists && claim.Status == models.StatusPending {
		return sentinel.ErrAlreadyUsed
	}
	copied := *claim
	s.claims[claim.ID] = &copied
	if claim.Status == models.StatusPending {
		s.pendingByAccount[claim.AccountID] = claim.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *claim
	return &copied, nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID id.AccountID) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Claim
	for _, claim := range s.claims {
		if claim.AccountID != accountID {
			continue
		}
		copied := *claim
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status *models.ClaimStatus) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Claim
	for _, claim := range s.claims {
		if status != nil && claim.Status != *status {
			continue
		}
		copied := *claim
		out = append(out, &copied)
	}
	return out, nil
}

// Execute runs validate then mutate on the claim while holding the store
// lock, bumping the version and releasing the pending slot when the claim
// leaves pending.
func (s *InMemory) Execute(_ context.Context, claimID id.ClaimID, validate func(*models.Claim) error, mutate func(*models.Claim)) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(claim); err != nil {
		return nil, err
	}
	wasPending := claim.Status == models.StatusPending
	mutate(claim)
	claim.Version++
	if wasPending && claim.Status != models.StatusPending {
		delete(s.pendingByAccount, claim.AccountID)
	}
	copied := *claim
	return &copied, nil
}

// Delete removes a single claim record.
func (s *InMemory) Delete(_ context.Context, claimID id.ClaimID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if claim.Status == models.StatusPending {
		delete(s.pendingByAccount, claim.AccountID)
	}
	delete(s.claims, claimID)
	return nil
}

// DeleteByAccount removes every claim owned by the account. Used by the
// account deletion cascade; deleting zero claims is not an error.
func (s *InMemory) DeleteByAccount(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for claimID, claim := range s.claims {
		if claim.AccountID == accountID {
			delete(s.claims, claimID)
		}
	}
	delete(s.pendingByAccount, accountID)
	return nil
}
