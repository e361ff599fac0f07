package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
)

// Backend is what the GraphQL layer needs from linkgraph.
// Absent entities are returned as nil without an error.
type Backend interface {
	GetEntity(ctx context.Context, accountID uuid.UUID, entityID *uuid.UUID, entityVersionID *uuid.UUID) (*model.Entity, error)
	EntityVersions(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Entity, error)
	CreateEntity(ctx context.Context, entity *model.Entity) error
	UpdateEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID, properties model.Properties, updatedByAccountID uuid.UUID) (*model.Entity, error)
	DeleteEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) error
	LinkedEntities(ctx context.Context, entity *model.Entity) ([]*model.UnknownEntity, error)
	OutgoingLinks(ctx context.Context, entityVersionID uuid.UUID) ([]*model.Link, error)
	IncomingLinks(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.Link, error)
}
