// Package store persists accounts. The in-memory implementation backs unit
// tests; the postgres implementation is the production store. Both return
// sentinel errors that services translate into domain errors.
package store

import (
	"context"
	"strings"
	"sync"

	"hometrust/internal/account/models"
	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded account store. Execute holds the lock across
// validate and mutate, giving the same serialization the postgres store gets
// from SELECT ... FOR UPDATE.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*models.Account
	byEmail  map[string]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[id.AccountID]*models.Account),
		byEmail:  make(map[string]id.AccountID),
	}
}

func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	copied := *account
	s.accounts[account.ID] = &copied
	s.byEmail[key] = account.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accountID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.accounts[accountID]
	return &copied, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status *models.Status) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Account
	for _, account := range s.accounts {
		if status != nil && account.Status != *status {
			continue
		}
		copied := *account
		out = append(out, &copied)
	}
	return out, nil
}

// Execute runs validate then mutate on the account while holding the store
// lock. The version is bumped on successful mutation.
func (s *InMemory) Execute(_ context.Context, accountID id.AccountID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(account); err != nil {
		return nil, err
	}
	mutate(account)
	account.Version++
	copied := *account
	return &copied, nil
}

// Update writes the account back, failing with ErrStaleVersion when the stored
// version moved on. The caller's Version field holds the version it read.
func (s *InMemory) Update(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != account.Version {
		return sentinel.ErrStaleVersion
	}
	copied := *account
	copied.Version++
	s.accounts[account.ID] = &copied
	account.Version = copied.Version
	return nil
}

func (s *InMemory) Delete(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(account.Email))
	delete(s.accounts, accountID)
	return nil
}
