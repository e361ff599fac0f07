package graph

// This file will be automatically regenerated based on the schema, any resolver implementations
// will be copied through when generating and any unknown code will be moved to the end.

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
)

// CreateEntity is the resolver for the createEntity field.
func (r *mutationResolver) CreateEntity(ctx context.Context, accountID uuid.UUID, createdByAccountID uuid.UUID, entityTypeID uuid.UUID, properties model.Properties, visibility *model.Visibility) (*model.UnknownEntity, error) {
	entity := &model.Entity{
		AccountID:          accountID,
		EntityTypeID:       entityTypeID,
		Properties:         properties,
		Visibility:         model.VisibilityPrivate,
		CreatedByAccountID: createdByAccountID,
		UpdatedByAccountID: createdByAccountID,
	}
	if visibility != nil {
		entity.Visibility = *visibility
	}

	err := r.Backend.CreateEntity(ctx, entity)
	if err != nil {
		return nil, err
	}
	return entity.ToUnknownEntity(), nil
}

// UpdateEntity is the resolver for the updateEntity field.
func (r *mutationResolver) UpdateEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID, updatedByAccountID uuid.UUID, properties model.Properties) (*model.UnknownEntity, error) {
	entity, err := r.Backend.UpdateEntity(ctx, accountID, entityID, properties, updatedByAccountID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, &entityNotFoundError{entityID: entityID, accountID: accountID}
	}
	return entity.ToUnknownEntity(), nil
}

// DeleteEntity is the resolver for the deleteEntity field.
func (r *mutationResolver) DeleteEntity(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) (*DeleteEntityPayload, error) {
	versions, err := r.Backend.EntityVersions(ctx, accountID, entityID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, &entityNotFoundError{entityID: entityID, accountID: accountID}
	}

	err = r.Backend.DeleteEntity(ctx, accountID, entityID)
	if err != nil {
		return nil, err
	}
	return &DeleteEntityPayload{EntityID: entityID, VersionCount: len(versions)}, nil
}

// Entity is the resolver for the entity field.
func (r *queryResolver) Entity(ctx context.Context, accountID uuid.UUID, entityID *uuid.UUID, entityVersionID *uuid.UUID) (*model.UnknownEntity, error) {
	if entityID == nil && entityVersionID == nil {
		return nil, &inputError{argument: "entityId", err: errors.New("entityId or entityVersionId is required")}
	}

	entity, err := r.Backend.GetEntity(ctx, accountID, entityID, entityVersionID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		missing := entityVersionID
		if missing == nil {
			missing = entityID
		}
		return nil, &entityNotFoundError{entityID: *missing, accountID: accountID}
	}
	return entity.ToUnknownEntity(), nil
}

// EntityVersions is the resolver for the entityVersions field.
func (r *queryResolver) EntityVersions(ctx context.Context, accountID uuid.UUID, entityID uuid.UUID) ([]*model.UnknownEntity, error) {
	versions, err := r.Backend.EntityVersions(ctx, accountID, entityID)
	if err != nil {
		return nil, err
	}

	unknown := make([]*model.UnknownEntity, len(versions))
	for i, version := range versions {
		unknown[i] = version.ToUnknownEntity()
	}
	return unknown, nil
}

// LinkedEntities is the resolver for the linkedEntities field.
func (r *unknownEntityResolver) LinkedEntities(ctx context.Context, obj *model.UnknownEntity) ([]*model.UnknownEntity, error) {
	return r.Backend.LinkedEntities(ctx, obj.ToEntity())
}

// Links is the resolver for the links field.
func (r *unknownEntityResolver) Links(ctx context.Context, obj *model.UnknownEntity) ([]*model.Link, error) {
	links, err := r.Backend.OutgoingLinks(ctx, obj.EntityVersionID)
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []*model.Link{}
	}
	return links, nil
}

// IncomingLinks is the resolver for the incomingLinks field.
func (r *unknownEntityResolver) IncomingLinks(ctx context.Context, obj *model.UnknownEntity) ([]*model.Link, error) {
	links, err := r.Backend.IncomingLinks(ctx, callerAccountID(ctx, obj.AccountID), obj.EntityID)
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []*model.Link{}
	}
	return links, nil
}

// Mutation returns MutationResolver implementation.
func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }

// Query returns QueryResolver implementation.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

// UnknownEntity returns UnknownEntityResolver implementation.
func (r *Resolver) UnknownEntity() UnknownEntityResolver { return &unknownEntityResolver{r} }

type mutationResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type unknownEntityResolver struct{ *Resolver }
