package linkgraph

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/core/links"
	"github.com/siherrmann/linkgraph/core/resolver"
	"github.com/siherrmann/linkgraph/helper"
	"github.com/siherrmann/linkgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initLinkgraph(t *testing.T, opts ...Option) *Linkgraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	opts = append([]Option{WithLogger(helper.NewLogger(os.Stdout, slog.LevelWarn))}, opts...)
	l, err := NewLinkgraph(dbConfig, opts...)
	require.NoError(t, err, "failed to create linkgraph")
	require.NotNil(t, l, "expected linkgraph to be non-nil")

	t.Cleanup(func() {
		l.Close()
	})

	return l
}

func linkTo(entityID uuid.UUID, entityVersionID *uuid.UUID) map[string]interface{} {
	linkedData := map[string]interface{}{"entityId": entityID.String()}
	if entityVersionID != nil {
		linkedData["entityVersionId"] = entityVersionID.String()
	}
	return map[string]interface{}{links.LinkedDataKey: linkedData}
}

func createEntity(t *testing.T, l *Linkgraph, accountID uuid.UUID, properties model.Properties) *model.Entity {
	entity := &model.Entity{
		AccountID:          accountID,
		EntityTypeID:       uuid.New(),
		Properties:         properties,
		CreatedByAccountID: accountID,
	}
	require.NoError(t, l.CreateEntity(context.Background(), entity))
	return entity
}

func TestNewLinkgraph(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewLinkgraph", func(t *testing.T) {
		l, err := NewLinkgraph(dbConfig, WithForceReload(true))
		require.NoError(t, err, "Expected NewLinkgraph to not return an error")
		require.NotNil(t, l)
		assert.NotNil(t, l.DB)
		assert.NotNil(t, l.Entities)
		assert.NotNil(t, l.Links)
		assert.NotNil(t, l.Resolver)
		assert.NotNil(t, l.Accounts, "Expected the account cache to be enabled by default")

		err = l.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("Account cache can be disabled", func(t *testing.T) {
		l, err := NewLinkgraph(dbConfig, WithAccountCacheSize(0))
		require.NoError(t, err)
		assert.Nil(t, l.Accounts)
		l.Close()
	})

	t.Run("Negative account cache size", func(t *testing.T) {
		_, err := NewLinkgraph(dbConfig, WithAccountCacheSize(-1))
		assert.Error(t, err)
	})

	t.Run("Nil configuration", func(t *testing.T) {
		_, err := NewLinkgraph(nil)
		assert.Error(t, err)
	})

	t.Run("Linkgraph with nil database handles Close gracefully", func(t *testing.T) {
		l := &Linkgraph{}
		assert.NoError(t, l.Close())
	})
}

func TestCreateAndGetEntity(t *testing.T) {
	l := initLinkgraph(t)
	ctx := context.Background()
	accountID := uuid.New()

	entity := createEntity(t, l, accountID, model.Properties{"name": "first"})
	updated, err := l.UpdateEntity(ctx, accountID, entity.EntityID, model.Properties{"name": "second"}, accountID)
	require.NoError(t, err)
	require.NotNil(t, updated)

	t.Run("Get latest version by entity id", func(t *testing.T) {
		got, err := l.GetEntity(ctx, accountID, &entity.EntityID, nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, updated.EntityVersionID, got.EntityVersionID)
	})

	t.Run("Pinned version takes precedence", func(t *testing.T) {
		got, err := l.GetEntity(ctx, accountID, &entity.EntityID, &entity.EntityVersionID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.Properties["name"])
	})

	t.Run("Pinned version of another entity is absent", func(t *testing.T) {
		other := uuid.New()
		got, err := l.GetEntity(ctx, accountID, &other, &entity.EntityVersionID)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Missing ids", func(t *testing.T) {
		_, err := l.GetEntity(ctx, accountID, nil, nil)
		assert.Error(t, err)
	})

	t.Run("Entity of another account is absent", func(t *testing.T) {
		got, err := l.GetEntity(ctx, uuid.New(), &entity.EntityID, nil)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Entity versions newest first", func(t *testing.T) {
		versions, err := l.EntityVersions(ctx, accountID, entity.EntityID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, updated.EntityVersionID, versions[0].EntityVersionID)
	})

	t.Run("Update unknown entity", func(t *testing.T) {
		got, err := l.UpdateEntity(ctx, accountID, uuid.New(), model.Properties{}, accountID)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Create entity with invalid link is rejected", func(t *testing.T) {
		invalid := &model.Entity{
			AccountID:          accountID,
			EntityTypeID:       uuid.New(),
			CreatedByAccountID: accountID,
			Properties: model.Properties{
				"ref": map[string]interface{}{links.LinkedDataKey: map[string]interface{}{"entityId": "not-a-uuid"}},
			},
		}
		err := l.CreateEntity(ctx, invalid)
		assert.Error(t, err)
		assert.ErrorIs(t, err, links.ErrInvalidLink)
		assert.Equal(t, uuid.Nil, invalid.EntityID, "Expected nothing to be inserted")
	})
}

func TestLinkedEntities(t *testing.T) {
	l := initLinkgraph(t)
	ctx := context.Background()
	accountA := uuid.New()
	accountB := uuid.New()

	author := createEntity(t, l, accountA, model.Properties{"name": "author"})
	book := createEntity(t, l, accountB, model.Properties{"title": "book"})

	source := createEntity(t, l, accountA, model.Properties{
		"by": linkTo(author.EntityID, nil),
		"books": []interface{}{
			linkTo(book.EntityID, &book.EntityVersionID),
			linkTo(author.EntityID, &author.EntityVersionID),
		},
	})

	t.Run("Linked entities across accounts in first-seen order", func(t *testing.T) {
		resolved, err := l.LinkedEntities(ctx, source)
		require.NoError(t, err)
		require.Len(t, resolved, 2, "Expected duplicate destinations to collapse")
		assert.Equal(t, author.EntityID, resolved[0].EntityID)
		assert.Equal(t, accountA, resolved[0].AccountID)
		assert.Equal(t, book.EntityID, resolved[1].EntityID)
		assert.Equal(t, accountB, resolved[1].AccountID)
		assert.Equal(t, "UnknownEntity", resolved[0].TypeName)
	})

	t.Run("Unpinned link follows the latest version", func(t *testing.T) {
		newer, err := l.UpdateEntity(ctx, accountA, author.EntityID, model.Properties{"name": "renamed"}, accountA)
		require.NoError(t, err)

		resolved, err := l.LinkedEntities(ctx, source)
		require.NoError(t, err)
		require.Len(t, resolved, 2)
		assert.Equal(t, newer.EntityVersionID, resolved[0].EntityVersionID)
		assert.Equal(t, "renamed", resolved[0].Properties["name"])
	})

	t.Run("Incoming links come from the persisted source version", func(t *testing.T) {
		incoming, err := l.IncomingLinks(ctx, accountA, book.EntityID)
		require.NoError(t, err)
		require.Len(t, incoming, 1)
		assert.Equal(t, source.EntityID, incoming[0].SourceEntityID)
		assert.Equal(t, "$.books[0]", incoming[0].Path)
	})

	t.Run("Incoming links from another account are hidden", func(t *testing.T) {
		incoming, err := l.IncomingLinks(ctx, accountB, book.EntityID)
		require.NoError(t, err)
		assert.Empty(t, incoming, "Expected the owner of the destination to not see links of accountA")
	})

	t.Run("Outgoing links are read from storage in document order", func(t *testing.T) {
		outgoing, err := l.OutgoingLinks(ctx, source.EntityVersionID)
		require.NoError(t, err)
		require.Len(t, outgoing, 3)
		assert.Equal(t, "$.by", outgoing[0].Path)
		assert.Equal(t, "$.books[0]", outgoing[1].Path)
		assert.Equal(t, "$.books[1]", outgoing[2].Path)
	})

	t.Run("Dangling link fails with not found", func(t *testing.T) {
		missing := uuid.New()
		dangling := createEntity(t, l, accountA, model.Properties{
			"ok":      linkTo(author.EntityID, nil),
			"missing": linkTo(missing, nil),
		})

		resolved, err := l.LinkedEntities(ctx, dangling)
		assert.Nil(t, resolved)
		require.Error(t, err)
		assert.True(t, resolver.IsNotFound(err))
		assert.Contains(t, err.Error(), missing.String())
	})

	t.Run("Entity without links", func(t *testing.T) {
		resolved, err := l.LinkedEntities(ctx, book)
		require.NoError(t, err)
		assert.NotNil(t, resolved)
		assert.Empty(t, resolved)
	})

	t.Run("Account ids are cached", func(t *testing.T) {
		require.NotNil(t, l.Accounts)
		assert.Greater(t, l.Accounts.Len(), 0)
	})
}

func TestLinkedEntitiesKeyOrder(t *testing.T) {
	l := initLinkgraph(t)
	ctx := context.Background()
	accountID := uuid.New()

	author := createEntity(t, l, accountID, model.Properties{"name": "first"})
	newer, err := l.UpdateEntity(ctx, accountID, author.EntityID, model.Properties{"name": "second"}, accountID)
	require.NoError(t, err)

	// Go map order would put "aaa" first, JSONB puts the shorter key "zz" first
	source := createEntity(t, l, accountID, model.Properties{
		"zz":  linkTo(author.EntityID, nil),
		"aaa": linkTo(author.EntityID, &author.EntityVersionID),
	})

	t.Run("Shorter key wins for the stored entity", func(t *testing.T) {
		stored, err := l.GetEntity(ctx, accountID, &source.EntityID, nil)
		require.NoError(t, err)
		require.NotNil(t, stored)

		resolved, err := l.LinkedEntities(ctx, stored)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, newer.EntityVersionID, resolved[0].EntityVersionID, "Expected the unpinned link under zz to win")
	})

	t.Run("Shorter key wins for the created entity", func(t *testing.T) {
		resolved, err := l.LinkedEntities(ctx, source)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, newer.EntityVersionID, resolved[0].EntityVersionID)
	})

	t.Run("Persisted links follow the same order", func(t *testing.T) {
		outgoing, err := l.OutgoingLinks(ctx, source.EntityVersionID)
		require.NoError(t, err)
		require.Len(t, outgoing, 2)
		assert.Equal(t, "$.zz", outgoing[0].Path)
		assert.Equal(t, "$.aaa", outgoing[1].Path)
	})
}

func TestWritesAreAtomic(t *testing.T) {
	l := initLinkgraph(t)
	ctx := context.Background()
	accountID := uuid.New()
	destination := createEntity(t, l, accountID, model.Properties{"name": "destination"})
	existing := createEntity(t, l, accountID, model.Properties{"name": "existing"})

	breakLinkInsert := func(t *testing.T) {
		_, err := l.DB.Instance.ExecContext(ctx, `ALTER FUNCTION insert_link(UUID, UUID, UUID, UUID, UUID, TEXT) RENAME TO insert_link_disabled`)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, err := l.DB.Instance.ExecContext(ctx, `ALTER FUNCTION insert_link_disabled(UUID, UUID, UUID, UUID, UUID, TEXT) RENAME TO insert_link`)
			require.NoError(t, err)
		})
	}

	t.Run("Failed link insert leaves no created entity", func(t *testing.T) {
		breakLinkInsert(t)

		entityID := uuid.New()
		entity := &model.Entity{
			EntityID:           entityID,
			AccountID:          accountID,
			EntityTypeID:       uuid.New(),
			CreatedByAccountID: accountID,
			Properties:         model.Properties{"ref": linkTo(destination.EntityID, nil)},
		}
		err := l.CreateEntity(ctx, entity)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert link 0")
		assert.Equal(t, uuid.Nil, entity.EntityVersionID, "Expected the entity to stay unchanged")

		got, err := l.GetEntity(ctx, accountID, &entityID, nil)
		assert.NoError(t, err)
		assert.Nil(t, got, "Expected the entity to be rolled back")
	})

	t.Run("Failed link insert leaves no new version", func(t *testing.T) {
		breakLinkInsert(t)

		updated, err := l.UpdateEntity(ctx, accountID, existing.EntityID, model.Properties{"ref": linkTo(destination.EntityID, nil)}, accountID)
		require.Error(t, err)
		assert.Nil(t, updated)

		versions, err := l.EntityVersions(ctx, accountID, existing.EntityID)
		require.NoError(t, err)
		require.Len(t, versions, 1, "Expected the new version to be rolled back")
		assert.Equal(t, existing.EntityVersionID, versions[0].EntityVersionID)
	})

	t.Run("Writes succeed again once links can be inserted", func(t *testing.T) {
		updated, err := l.UpdateEntity(ctx, accountID, existing.EntityID, model.Properties{"ref": linkTo(destination.EntityID, nil)}, accountID)
		require.NoError(t, err)
		require.NotNil(t, updated)

		incoming, err := l.IncomingLinks(ctx, accountID, destination.EntityID)
		require.NoError(t, err)
		require.Len(t, incoming, 1)
		assert.Equal(t, updated.EntityVersionID, *incoming[0].SourceEntityVersionID)
	})
}

func TestDeleteEntity(t *testing.T) {
	l := initLinkgraph(t)
	ctx := context.Background()
	accountID := uuid.New()
	destination := createEntity(t, l, accountID, model.Properties{"name": "destination"})
	source := createEntity(t, l, accountID, model.Properties{"ref": linkTo(destination.EntityID, nil)})

	t.Run("Delete from another account keeps the entity", func(t *testing.T) {
		require.NoError(t, l.DeleteEntity(ctx, uuid.New(), source.EntityID))

		got, err := l.GetEntity(ctx, accountID, &source.EntityID, nil)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("Delete removes versions and outgoing links", func(t *testing.T) {
		require.NoError(t, l.DeleteEntity(ctx, accountID, source.EntityID))

		got, err := l.GetEntity(ctx, accountID, &source.EntityID, nil)
		require.NoError(t, err)
		assert.Nil(t, got)

		incoming, err := l.IncomingLinks(ctx, accountID, destination.EntityID)
		require.NoError(t, err)
		assert.Empty(t, incoming)
	})
}
