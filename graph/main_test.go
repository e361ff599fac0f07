package graph

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/core/links"
	"github.com/siherrmann/linkgraph/core/resolver"
	"github.com/siherrmann/linkgraph/model"
)

// fakeBackend keeps entity versions in memory and resolves links with a real LinkResolver
type fakeBackend struct {
	mu       sync.Mutex
	versions map[uuid.UUID]*model.Entity
	incoming map[uuid.UUID][]*model.Link
	clock    time.Time

	// incomingAccounts records the account of every IncomingLinks call
	incomingAccounts []uuid.UUID

	// err is returned by every backend call if set
	err error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		versions: map[uuid.UUID]*model.Entity{},
		incoming: map[uuid.UUID][]*model.Link{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (b *fakeBackend) tick() time.Time {
	b.clock = b.clock.Add(time.Second)
	return b.clock
}

// put stores a new entity and returns its first version
func (b *fakeBackend) put(accountID uuid.UUID, properties model.Properties) *model.Entity {
	entity := &model.Entity{
		AccountID:          accountID,
		EntityTypeID:       uuid.New(),
		Properties:         properties,
		CreatedByAccountID: accountID,
	}
	if err := b.CreateEntity(context.Background(), entity); err != nil {
		panic(err)
	}
	return entity
}

func (b *fakeBackend) latest(accountID uuid.UUID, entityID uuid.UUID) *model.Entity {
	var latest *model.Entity
	for _, version := range b.versions {
		if version.EntityID != entityID || version.AccountID != accountID {
			continue
		}
		if latest == nil || version.UpdatedAt.After(latest.UpdatedAt) {
			latest = version
		}
	}
	return latest
}

func (b *fakeBackend) GetEntity(ctx context.Context, accountID uuid.UUID, entityID *uuid.UUID, entityVersionID *uuid.UUID) (*model.Entity, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if entityVersionID != nil {
		version, ok := b.versions[*entityVersionID]
		if !ok || version.AccountID != accountID {
			return nil, nil
		}
		return version, nil
	}
	return b.latest(accountID, *entityID), nil
}

func (b *fakeBackend) EntityVersions(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Entity, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	versions := []*model.Entity{}
	for _, version := range b.versions {
		if version.EntityID == entityID && version.AccountID == accountID {
			versions = append(versions, version)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].UpdatedAt.After(versions[j].UpdatedAt)
	})
	return versions, nil
}

func (b *fakeBackend) CreateEntity(ctx context.Context, entity *model.Entity) error {
	if b.err != nil {
		return b.err
	}
	if _, err := links.ParseLinksFromEntity(entity); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if entity.EntityID == uuid.Nil {
		entity.EntityID = uuid.New()
	}
	if entity.Visibility == "" {
		entity.Visibility = model.VisibilityPrivate
	}
	entity.EntityVersionID = uuid.New()
	entity.UpdatedByAccountID = entity.CreatedByAccountID
	entity.CreatedAt = b.tick()
	entity.UpdatedAt = entity.CreatedAt
	b.versions[entity.EntityVersionID] = entity
	return nil
}

func (b *fakeBackend) UpdateEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID, properties model.Properties, updatedByAccountID uuid.UUID) (*model.Entity, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	latest := b.latest(accountID, entityID)
	if latest == nil {
		return nil, nil
	}
	version := *latest
	version.EntityVersionID = uuid.New()
	version.Properties = properties
	version.UpdatedByAccountID = updatedByAccountID
	version.UpdatedAt = b.tick()
	b.versions[version.EntityVersionID] = &version
	return &version, nil
}

func (b *fakeBackend) LinkedEntities(ctx context.Context, entity *model.Entity) ([]*model.UnknownEntity, error) {
	if b.err != nil {
		return nil, b.err
	}
	r, err := resolver.NewLinkResolver(b)
	if err != nil {
		return nil, err
	}
	return r.ResolveLinkedEntities(ctx, entity)
}

func (b *fakeBackend) OutgoingLinks(ctx context.Context, entityVersionID uuid.UUID) ([]*model.Link, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	version, ok := b.versions[entityVersionID]
	b.mu.Unlock()
	if !ok {
		return []*model.Link{}, nil
	}
	return links.ParseLinksFromEntity(version)
}

// IncomingLinks returns the links to entityID whose source is in accountID
func (b *fakeBackend) IncomingLinks(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Link, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.incomingAccounts = append(b.incomingAccounts, accountID)
	incoming := []*model.Link{}
	for _, link := range b.incoming[entityID] {
		if link.AccountID == accountID {
			incoming = append(incoming, link)
		}
	}
	return incoming, nil
}

func (b *fakeBackend) DeleteEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, version := range b.versions {
		if version.EntityID == entityID && version.AccountID == accountID {
			delete(b.versions, id)
		}
	}
	return nil
}

func (b *fakeBackend) SelectEntityAccountID(ctx context.Context, entityID uuid.UUID, entityVersionID *uuid.UUID) (uuid.UUID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, version := range b.versions {
		if version.EntityID != entityID {
			continue
		}
		if entityVersionID == nil || version.EntityVersionID == *entityVersionID {
			return version.AccountID, nil
		}
	}
	return uuid.Nil, nil
}

func (b *fakeBackend) SelectEntityVersion(ctx context.Context, accountID uuid.UUID, entityVersionID uuid.UUID) (*model.Entity, error) {
	return b.GetEntity(ctx, accountID, nil, &entityVersionID)
}

func (b *fakeBackend) SelectEntityLatestVersion(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) (*model.Entity, error) {
	return b.GetEntity(ctx, accountID, &entityID, nil)
}

var errBackend = errors.New("connection refused")

func linkTo(entityID uuid.UUID, entityVersionID *uuid.UUID) map[string]interface{} {
	linkedData := map[string]interface{}{"entityId": entityID.String()}
	if entityVersionID != nil {
		linkedData["entityVersionId"] = entityVersionID.String()
	}
	return map[string]interface{}{links.LinkedDataKey: linkedData}
}
