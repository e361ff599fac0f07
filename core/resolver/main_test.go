package resolver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
)

// memoryStore is an in-memory EntityStore recording every call
type memoryStore struct {
	mu       sync.Mutex
	versions map[uuid.UUID]*model.Entity

	accountCalls []uuid.UUID
	versionCalls []uuid.UUID
	latestCalls  []uuid.UUID

	// failEntity makes every lookup for that entity return failErr
	failEntity uuid.UUID
	failErr    error
	// blockEntity makes account lookups for that entity wait for cancellation
	blockEntity uuid.UUID
	// hidden entities resolve their account but are never returned
	hidden map[uuid.UUID]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		versions: map[uuid.UUID]*model.Entity{},
	}
}

// put stores a new version of an entity and returns it
func (s *memoryStore) put(accountID uuid.UUID, entityID uuid.UUID, properties model.Properties, updatedAt time.Time) *model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity := &model.Entity{
		EntityVersionID: uuid.New(),
		EntityID:        entityID,
		AccountID:       accountID,
		Properties:      properties,
		Visibility:      model.VisibilityPrivate,
		UpdatedAt:       updatedAt,
	}
	s.versions[entity.EntityVersionID] = entity
	return entity
}

func (s *memoryStore) SelectEntityAccountID(ctx context.Context, entityID uuid.UUID, entityVersionID *uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	s.accountCalls = append(s.accountCalls, entityID)
	block := s.blockEntity == entityID
	fail := s.failEntity == entityID && s.failErr != nil
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return uuid.Nil, ctx.Err()
	}
	if fail {
		return uuid.Nil, s.failErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.EntityID == entityID && (entityVersionID == nil || v.EntityVersionID == *entityVersionID) {
			return v.AccountID, nil
		}
	}
	return uuid.Nil, nil
}

func (s *memoryStore) SelectEntityVersion(ctx context.Context, accountID uuid.UUID, entityVersionID uuid.UUID) (*model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionCalls = append(s.versionCalls, entityVersionID)

	v, ok := s.versions[entityVersionID]
	if !ok || v.AccountID != accountID || s.hidden[v.EntityID] {
		return nil, nil
	}
	return v, nil
}

func (s *memoryStore) SelectEntityLatestVersion(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) (*model.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestCalls = append(s.latestCalls, entityID)
	if s.hidden[entityID] {
		return nil, nil
	}

	var candidates []*model.Entity
	for _, v := range s.versions {
		if v.EntityID == entityID && v.AccountID == accountID {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})
	return candidates[0], nil
}

func (s *memoryStore) calls() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accountCalls), len(s.versionCalls), len(s.latestCalls)
}

// linkTo builds a linked data property value
func linkTo(entityID uuid.UUID, entityVersionID string) map[string]interface{} {
	linkedData := map[string]interface{}{"entityId": entityID.String()}
	if entityVersionID != "" {
		linkedData["entityVersionId"] = entityVersionID
	}
	return map[string]interface{}{"__linkedData": linkedData}
}
