package linkgraph

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/core/links"
	"github.com/siherrmann/linkgraph/core/resolver"
	"github.com/siherrmann/linkgraph/database"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/siherrmann/linkgraph/model"
	loadSql "github.com/siherrmann/linkgraph/sql"
)

// Linkgraph provides a unified interface to the entity store and the link resolver
type Linkgraph struct {
	DB       *helper.Database
	Entities *database.EntitiesDBHandler
	Links    *database.LinksDBHandler
	Resolver *resolver.LinkResolver
	// Accounts is nil if the account cache is disabled
	Accounts *resolver.CachedStore
	// Logging
	log *slog.Logger
}

type options struct {
	logger           *slog.Logger
	accountCacheSize int
	concurrency      int
	force            bool
}

// Option configures NewLinkgraph
type Option func(*options)

// WithLogger sets the logger used by the database and the resolver
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAccountCacheSize sets how many owning account ids are cached.
// Zero disables the cache.
func WithAccountCacheSize(size int) Option {
	return func(o *options) {
		o.accountCacheSize = size
	}
}

// WithConcurrency limits how many links of one entity are resolved at the same time
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithForceReload reloads the SQL functions even if they already exist
func WithForceReload(force bool) Option {
	return func(o *options) {
		o.force = force
	}
}

// NewLinkgraph creates a new Linkgraph instance with all handlers initialized
func NewLinkgraph(config *helper.DatabaseConfiguration, opts ...Option) (*Linkgraph, error) {
	o := &options{
		accountCacheSize: 1024,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.accountCacheSize < 0 {
		return nil, helper.NewError("option validation", fmt.Errorf("account cache size must not be negative"))
	}

	logger := o.logger
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	db, err := helper.NewDatabase("linkgraph", config, logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}

	err = loadSql.Init(db.Instance)
	if err != nil {
		db.Close()
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Entities first, links reference them
	entities, err := database.NewEntitiesDBHandler(db, o.force)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create entities handler", err)
	}

	linksHandler, err := database.NewLinksDBHandler(db, o.force)
	if err != nil {
		db.Close()
		return nil, helper.NewError("create links handler", err)
	}

	var store resolver.EntityStore = entities
	var accounts *resolver.CachedStore
	if o.accountCacheSize > 0 {
		accounts, err = resolver.NewCachedStore(entities, o.accountCacheSize)
		if err != nil {
			db.Close()
			return nil, helper.NewError("create account cache", err)
		}
		store = accounts
	}

	linkResolver, err := resolver.NewLinkResolver(store, resolver.WithConcurrency(o.concurrency), resolver.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, helper.NewError("create link resolver", err)
	}

	return &Linkgraph{
		DB:       db,
		Entities: entities,
		Links:    linksHandler,
		Resolver: linkResolver,
		Accounts: accounts,
		log:      logger,
	}, nil
}

// Close closes the database connection
func (l *Linkgraph) Close() error {
	if l.DB != nil {
		return l.DB.Close()
	}
	return nil
}

// CreateEntity inserts the first version of an entity and persists its outgoing links
// in one transaction. Properties with malformed links are rejected before anything is written.
func (l *Linkgraph) CreateEntity(ctx context.Context, entity *model.Entity) error {
	if entity == nil {
		return helper.NewError("create entity", fmt.Errorf("entity is nil"))
	}

	parsed, err := links.ParseLinksFromEntity(entity)
	if err != nil {
		return helper.NewError("parse links", err)
	}

	inserted := *entity
	err = l.DB.RunInTx(ctx, func(tx *sql.Tx) error {
		err := l.Entities.WithTx(tx).InsertEntity(ctx, &inserted)
		if err != nil {
			return helper.NewError("insert entity", err)
		}
		return persistLinks(ctx, l.Links.WithTx(tx), &inserted, parsed)
	})
	if err != nil {
		return err
	}
	*entity = inserted

	l.log.Info("Inserted entity", slog.String("entity_id", entity.EntityID.String()), slog.Int("links", len(parsed)))

	return nil
}

// UpdateEntity adds a new version with the given properties and persists its outgoing links
// in one transaction. It returns nil without an error if the entity does not exist in the account.
func (l *Linkgraph) UpdateEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID, properties model.Properties, updatedByAccountID uuid.UUID) (*model.Entity, error) {
	parsed, err := links.ParseLinksFromEntity(&model.Entity{EntityID: entityID, AccountID: accountID, Properties: properties})
	if err != nil {
		return nil, helper.NewError("parse links", err)
	}

	var entity *model.Entity
	err = l.DB.RunInTx(ctx, func(tx *sql.Tx) error {
		var err error
		entity, err = l.Entities.WithTx(tx).InsertEntityVersion(ctx, accountID, entityID, properties, updatedByAccountID)
		if err != nil {
			return helper.NewError("insert entity version", err)
		}
		if entity == nil {
			return nil
		}
		return persistLinks(ctx, l.Links.WithTx(tx), entity, parsed)
	})
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}

	l.log.Info("Inserted entity version", slog.String("entity_id", entityID.String()), slog.String("entity_version_id", entity.EntityVersionID.String()), slog.Int("links", len(parsed)))

	return entity, nil
}

// DeleteEntity deletes an entity with all of its versions and outgoing links
func (l *Linkgraph) DeleteEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) error {
	err := l.Entities.DeleteEntity(ctx, accountID, entityID)
	if err != nil {
		return helper.NewError("delete entity", err)
	}

	l.log.Info("Deleted entity", slog.String("entity_id", entityID.String()))

	return nil
}

func persistLinks(ctx context.Context, linksHandler *database.LinksDBHandler, entity *model.Entity, parsed []*model.Link) error {
	for i, link := range parsed {
		versionID := entity.EntityVersionID
		link.AccountID = entity.AccountID
		link.SourceEntityID = entity.EntityID
		link.SourceEntityVersionID = &versionID

		err := linksHandler.InsertLink(ctx, link)
		if err != nil {
			return helper.NewError(fmt.Sprintf("insert link %d", i), err)
		}
	}
	return nil
}

// GetEntity retrieves an entity of an account. A pinned entityVersionID takes
// precedence over entityID, which selects the latest version.
// It returns nil without an error if nothing matches.
func (l *Linkgraph) GetEntity(ctx context.Context, accountID uuid.UUID, entityID *uuid.UUID, entityVersionID *uuid.UUID) (*model.Entity, error) {
	if entityVersionID != nil {
		entity, err := l.Entities.SelectEntityVersion(ctx, accountID, *entityVersionID)
		if err != nil {
			return nil, helper.NewError("select entity version", err)
		}
		if entity != nil && entityID != nil && entity.EntityID != *entityID {
			return nil, nil
		}
		return entity, nil
	}

	if entityID == nil {
		return nil, helper.NewError("get entity", fmt.Errorf("either entity id or entity version id is required"))
	}

	entity, err := l.Entities.SelectEntityLatestVersion(ctx, accountID, *entityID)
	if err != nil {
		return nil, helper.NewError("select latest entity version", err)
	}
	return entity, nil
}

// EntityVersions returns all versions of an entity, newest first
func (l *Linkgraph) EntityVersions(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Entity, error) {
	versions, err := l.Entities.SelectEntityVersions(ctx, accountID, entityID)
	if err != nil {
		return nil, helper.NewError("select entity versions", err)
	}
	return versions, nil
}

// LinkedEntities expands the links in the entity's properties into the linked entities
func (l *Linkgraph) LinkedEntities(ctx context.Context, entity *model.Entity) ([]*model.UnknownEntity, error) {
	return l.Resolver.ResolveLinkedEntities(ctx, entity)
}

// OutgoingLinks returns the persisted outgoing links of one entity version in document order
func (l *Linkgraph) OutgoingLinks(ctx context.Context, entityVersionID uuid.UUID) ([]*model.Link, error) {
	outgoing, err := l.Links.SelectLinksFromEntityVersion(ctx, entityVersionID)
	if err != nil {
		return nil, helper.NewError("select outgoing links", err)
	}
	return outgoing, nil
}

// IncomingLinks returns the persisted links of an account pointing at an entity.
// Only the latest version of each source entity is considered.
func (l *Linkgraph) IncomingLinks(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Link, error) {
	incoming, err := l.Links.SelectLinksToEntity(ctx, accountID, entityID)
	if err != nil {
		return nil, helper.NewError("select incoming links", err)
	}
	return incoming, nil
}
