package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/core/links"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/siherrmann/linkgraph/model"
	"golang.org/x/sync/errgroup"
)

// LinkResolver expands the links embedded in an entity's properties into the
// linked entities.
type LinkResolver struct {
	store       EntityStore
	concurrency int
	log         *slog.Logger
}

// Option configures a LinkResolver
type Option func(*LinkResolver)

// WithConcurrency limits the number of links resolved at the same time.
// Values below one mean no limit.
func WithConcurrency(n int) Option {
	return func(r *LinkResolver) {
		r.concurrency = n
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(r *LinkResolver) {
		if logger != nil {
			r.log = logger
		}
	}
}

// NewLinkResolver creates a resolver reading from store
func NewLinkResolver(store EntityStore, opts ...Option) (*LinkResolver, error) {
	if store == nil {
		return nil, helper.NewError("entity store validation", fmt.Errorf("entity store is nil"))
	}

	r := &LinkResolver{
		store: store,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// ResolveLinkedEntities returns the entities linked from source, one per
// distinct destination entity, in the order they first appear.
//
// All links are resolved concurrently. The first failure cancels the others
// and is returned without partial results. A destination that does not exist
// fails the call with a *NotFoundError.
func (r *LinkResolver) ResolveLinkedEntities(ctx context.Context, source *model.Entity) ([]*model.UnknownEntity, error) {
	if source == nil {
		return nil, helper.NewError("resolve linked entities", fmt.Errorf("source entity is nil"))
	}

	parsedLinks, err := links.ParseLinksFromEntity(source)
	if err != nil {
		return nil, helper.NewError("parse links", err)
	}

	refs := links.Dedupe(links.Destinations(parsedLinks))
	resolved := make([]*model.UnknownEntity, len(refs))
	if len(refs) == 0 {
		return resolved, nil
	}

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	for i, ref := range refs {
		g.Go(func() error {
			entity, err := r.resolve(gctx, ref)
			if err != nil {
				return err
			}
			resolved[i] = entity.ToUnknownEntity()
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	r.log.Debug("Resolved linked entities",
		slog.String("entity_id", source.EntityID.String()),
		slog.Int("links", len(parsedLinks)),
		slog.Int("resolved", len(resolved)),
		slog.Duration("took", time.Since(start)),
	)

	return resolved, nil
}

// Resolve fetches the entity a single reference points at
func (r *LinkResolver) Resolve(ctx context.Context, ref model.EntityRef) (*model.Entity, error) {
	return r.resolve(ctx, ref)
}

func (r *LinkResolver) resolve(ctx context.Context, ref model.EntityRef) (*model.Entity, error) {
	accountID, err := r.store.SelectEntityAccountID(ctx, ref.EntityID, ref.EntityVersionID)
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("select account of entity %s", ref.EntityID), err)
	}
	if accountID == uuid.Nil {
		return nil, &NotFoundError{EntityID: ref.EntityID}
	}

	var entity *model.Entity
	if ref.EntityVersionID != nil {
		entity, err = r.store.SelectEntityVersion(ctx, accountID, *ref.EntityVersionID)
	} else {
		entity, err = r.store.SelectEntityLatestVersion(ctx, accountID, ref.EntityID)
	}
	if err != nil {
		return nil, helper.NewError(fmt.Sprintf("select entity %s", ref.EntityID), err)
	}

	if entity == nil {
		return nil, &NotFoundError{EntityID: ref.EntityID, AccountID: accountID}
	}

	return entity, nil
}
