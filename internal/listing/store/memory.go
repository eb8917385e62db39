// Package store persists listings. Deleted listings are tombstones: both
// implementations exclude them from every read path, so a deleted listing is
// indistinguishable from an absent one.
package store

import (
	"context"
	"sync"

	"hometrust/internal/listing/models"
	id "hometrust/pkg/domain"
	"hometrust/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded listing store.
type InMemory struct {
	mu       sync.RWMutex
	listings map[id.ListingID]*models.Listing
}

func NewInMemory() *InMemory {
	return &InMemory{listings: make(map[id.ListingID]*models.Listing)}
}

func (s *InMemory) Create(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.listings[listing.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *listing
	s.listings[listing.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, listingID id.ListingID) (*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[listingID]
	if !ok || listing.Deleted {
		return nil, sentinel.ErrNotFound
	}
	copied := *listing
	return &copied, nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID id.AccountID) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Listing
	for _, listing := range s.listings {
		if listing.OwnerID != ownerID || listing.Deleted {
			continue
		}
		copied := *listing
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemory) ListByFlagged(_ context.Context, flagged *bool) ([]*models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Listing
	for _, listing := range s.listings {
		if listing.Deleted {
			continue
		}
		if flagged != nil && listing.Flagged != *flagged {
			continue
		}
		copied := *listing
		out = append(out, &copied)
	}
	return out, nil
}

// Execute runs validate then mutate on the listing while holding the store
// lock, bumping the version. A tombstoned listing reads as not found.
func (s *InMemory) Execute(_ context.Context, listingID id.ListingID, validate func(*models.Listing) error, mutate func(*models.Listing)) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, ok := s.listings[listingID]
	if !ok || listing.Deleted {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(listing); err != nil {
		return nil, err
	}
	mutate(listing)
	listing.Version++
	copied := *listing
	return &copied, nil
}

// DeleteByOwner removes every listing owned by the account, tombstoned or
// not. Used by the account deletion cascade.
func (s *InMemory) DeleteByOwner(_ context.Context, ownerID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for listingID, listing := range s.listings {
		if listing.OwnerID == ownerID {
			delete(s.listings, listingID)
		}
	}
	return nil
}
