package resolver

import (
	"context"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
)

// EntityStore is the read side of the entity storage the resolver depends on.
// Absent entities are reported as uuid.Nil or nil without an error.
type EntityStore interface {
	SelectEntityAccountID(ctx context.Context, entityID uuid.UUID, entityVersionID *uuid.UUID) (uuid.UUID, error)
	SelectEntityVersion(ctx context.Context, accountID uuid.UUID, entityVersionID uuid.UUID) (*model.Entity, error)
	SelectEntityLatestVersion(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) (*model.Entity, error)
}
