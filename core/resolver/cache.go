package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/siherrmann/linkgraph/helper"
)

type accountKey struct {
	entityID        uuid.UUID
	entityVersionID uuid.UUID
}

// CachedStore wraps an EntityStore and caches owning account lookups.
// The account owning an entity never changes, so entries are only evicted
// by size. Misses and errors are not cached.
type CachedStore struct {
	EntityStore
	accounts *lru.Cache
}

// NewCachedStore creates a CachedStore holding up to size account ids
func NewCachedStore(store EntityStore, size int) (*CachedStore, error) {
	if store == nil {
		return nil, helper.NewError("entity store validation", fmt.Errorf("entity store is nil"))
	}

	accounts, err := lru.New(size)
	if err != nil {
		return nil, helper.NewError("create account cache", err)
	}

	return &CachedStore{
		EntityStore: store,
		accounts:    accounts,
	}, nil
}

// SelectEntityAccountID returns the cached account id or asks the wrapped store
func (s *CachedStore) SelectEntityAccountID(ctx context.Context, entityID uuid.UUID, entityVersionID *uuid.UUID) (uuid.UUID, error) {
	key := accountKey{entityID: entityID}
	if entityVersionID != nil {
		key.entityVersionID = *entityVersionID
	}

	if cached, ok := s.accounts.Get(key); ok {
		return cached.(uuid.UUID), nil
	}

	accountID, err := s.EntityStore.SelectEntityAccountID(ctx, entityID, entityVersionID)
	if err != nil {
		return uuid.Nil, err
	}

	if accountID != uuid.Nil {
		s.accounts.Add(key, accountID)
	}

	return accountID, nil
}

// Len returns the number of cached account ids
func (s *CachedStore) Len() int {
	return s.accounts.Len()
}

var _ EntityStore = (*CachedStore)(nil)
