package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinksNewLinksDBHandler(t *testing.T) {
	database := initDB(t)
	_, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Valid call NewLinksDBHandler", func(t *testing.T) {
		linksDbHandler, err := NewLinksDBHandler(database, true)
		assert.NoError(t, err, "Expected NewLinksDBHandler to not return an error")
		require.NotNil(t, linksDbHandler, "Expected NewLinksDBHandler to return a non-nil instance")
		require.NotNil(t, linksDbHandler.db, "Expected NewLinksDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewLinksDBHandler with nil database", func(t *testing.T) {
		_, err := NewLinksDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating LinksDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestLinksInsertAndSelect(t *testing.T) {
	entitiesDbHandler, linksDbHandler := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	source := newTestEntity(accountID, nil)
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, source))
	destinationID := uuid.New()
	pinned := uuid.New()

	t.Run("Insert link with latest destination", func(t *testing.T) {
		link := &model.Link{
			AccountID:             accountID,
			SourceEntityID:        source.EntityID,
			SourceEntityVersionID: &source.EntityVersionID,
			DestinationEntityID:   destinationID,
			Path:                  "$.author",
		}

		err := linksDbHandler.InsertLink(ctx, link)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, link.ID)
		assert.Nil(t, link.DestinationEntityVersionID)
		require.NotNil(t, link.SourceEntityVersionID)
		assert.Equal(t, source.EntityVersionID, *link.SourceEntityVersionID)
		assert.False(t, link.CreatedAt.IsZero())
	})

	t.Run("Insert link with pinned destination", func(t *testing.T) {
		link := &model.Link{
			AccountID:                  accountID,
			SourceEntityID:             source.EntityID,
			SourceEntityVersionID:      &source.EntityVersionID,
			DestinationEntityID:        destinationID,
			DestinationEntityVersionID: &pinned,
			Path:                       "$.editors[0]",
		}

		err := linksDbHandler.InsertLink(ctx, link)
		require.NoError(t, err)
		require.NotNil(t, link.DestinationEntityVersionID)
		assert.Equal(t, pinned, *link.DestinationEntityVersionID)
	})

	t.Run("Insert nil link", func(t *testing.T) {
		err := linksDbHandler.InsertLink(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("Select links from entity version in insertion order", func(t *testing.T) {
		links, err := linksDbHandler.SelectLinksFromEntityVersion(ctx, source.EntityVersionID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "$.author", links[0].Path)
		assert.Equal(t, "$.editors[0]", links[1].Path)
	})

	t.Run("Select links to entity", func(t *testing.T) {
		links, err := linksDbHandler.SelectLinksToEntity(ctx, accountID, destinationID)
		require.NoError(t, err)
		assert.Len(t, links, 2)
		for _, link := range links {
			assert.Equal(t, source.EntityID, link.SourceEntityID)
		}
	})

	t.Run("Select links of unknown version is empty", func(t *testing.T) {
		links, err := linksDbHandler.SelectLinksFromEntityVersion(ctx, uuid.New())
		assert.NoError(t, err)
		assert.NotNil(t, links)
		assert.Empty(t, links)
	})
}

func TestLinksIncomingOnlyFromLatestVersion(t *testing.T) {
	entitiesDbHandler, linksDbHandler := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()
	destinationID := uuid.New()

	source := newTestEntity(accountID, nil)
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, source))
	require.NoError(t, linksDbHandler.InsertLink(ctx, &model.Link{
		AccountID:             accountID,
		SourceEntityID:        source.EntityID,
		SourceEntityVersionID: &source.EntityVersionID,
		DestinationEntityID:   destinationID,
		Path:                  "$.ref",
	}))

	links, err := linksDbHandler.SelectLinksToEntity(ctx, accountID, destinationID)
	require.NoError(t, err)
	require.Len(t, links, 1)

	t.Run("New version without the link hides the backlink", func(t *testing.T) {
		_, err := entitiesDbHandler.InsertEntityVersion(ctx, accountID, source.EntityID, model.Properties{}, accountID)
		require.NoError(t, err)

		links, err := linksDbHandler.SelectLinksToEntity(ctx, accountID, destinationID)
		assert.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestLinksIncomingScopedToAccount(t *testing.T) {
	entitiesDbHandler, linksDbHandler := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()
	otherAccountID := uuid.New()
	destinationID := uuid.New()

	for _, account := range []uuid.UUID{accountID, otherAccountID} {
		source := newTestEntity(account, nil)
		require.NoError(t, entitiesDbHandler.InsertEntity(ctx, source))
		require.NoError(t, linksDbHandler.InsertLink(ctx, &model.Link{
			AccountID:             account,
			SourceEntityID:        source.EntityID,
			SourceEntityVersionID: &source.EntityVersionID,
			DestinationEntityID:   destinationID,
			Path:                  "$.ref",
		}))
	}

	t.Run("Only links from the requested account are returned", func(t *testing.T) {
		links, err := linksDbHandler.SelectLinksToEntity(ctx, accountID, destinationID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, accountID, links[0].AccountID)
	})

	t.Run("Unknown account sees no links", func(t *testing.T) {
		links, err := linksDbHandler.SelectLinksToEntity(ctx, uuid.New(), destinationID)
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}

func TestLinksWithTx(t *testing.T) {
	entitiesDbHandler, linksDbHandler := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()
	destinationID := uuid.New()

	t.Run("Rolled back transaction leaves no entity and no link", func(t *testing.T) {
		source := newTestEntity(accountID, nil)
		errRollback := errors.New("rollback")

		err := entitiesDbHandler.db.RunInTx(ctx, func(tx *sql.Tx) error {
			require.NoError(t, entitiesDbHandler.WithTx(tx).InsertEntity(ctx, source))
			require.NoError(t, linksDbHandler.WithTx(tx).InsertLink(ctx, &model.Link{
				AccountID:             accountID,
				SourceEntityID:        source.EntityID,
				SourceEntityVersionID: &source.EntityVersionID,
				DestinationEntityID:   destinationID,
				Path:                  "$.ref",
			}))
			return errRollback
		})
		assert.ErrorIs(t, err, errRollback)

		entity, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, source.EntityID)
		assert.NoError(t, err)
		assert.Nil(t, entity)

		links, err := linksDbHandler.SelectLinksToEntity(ctx, accountID, destinationID)
		assert.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("Committed transaction keeps entity and links in insertion order", func(t *testing.T) {
		source := newTestEntity(accountID, nil)

		err := entitiesDbHandler.db.RunInTx(ctx, func(tx *sql.Tx) error {
			err := entitiesDbHandler.WithTx(tx).InsertEntity(ctx, source)
			if err != nil {
				return err
			}
			for _, path := range []string{"$.zz", "$.aaa"} {
				err = linksDbHandler.WithTx(tx).InsertLink(ctx, &model.Link{
					AccountID:             accountID,
					SourceEntityID:        source.EntityID,
					SourceEntityVersionID: &source.EntityVersionID,
					DestinationEntityID:   destinationID,
					Path:                  path,
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		links, err := linksDbHandler.SelectLinksToEntity(ctx, accountID, destinationID)
		assert.NoError(t, err)
		assert.Len(t, links, 2)

		links, err = linksDbHandler.SelectLinksFromEntityVersion(ctx, source.EntityVersionID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "$.zz", links[0].Path)
		assert.Equal(t, "$.aaa", links[1].Path)
	})
}

func TestLinksDeleteSourceEntity(t *testing.T) {
	entitiesDbHandler, linksDbHandler := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	source := newTestEntity(accountID, nil)
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, source))

	t.Run("Deleting the source entity cascades to its links", func(t *testing.T) {
		destinationID := uuid.New()
		require.NoError(t, linksDbHandler.InsertLink(ctx, &model.Link{
			AccountID:             accountID,
			SourceEntityID:        source.EntityID,
			SourceEntityVersionID: &source.EntityVersionID,
			DestinationEntityID:   destinationID,
			Path:                  "$.c",
		}))

		require.NoError(t, entitiesDbHandler.DeleteEntity(ctx, accountID, source.EntityID))

		links, err := linksDbHandler.SelectLinksToEntity(ctx, accountID, destinationID)
		assert.NoError(t, err)
		assert.Empty(t, links)

		links, err = linksDbHandler.SelectLinksFromEntityVersion(ctx, source.EntityVersionID)
		assert.NoError(t, err)
		assert.Empty(t, links)
	})
}
