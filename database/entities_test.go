package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntity(accountID uuid.UUID, properties model.Properties) *model.Entity {
	return &model.Entity{
		AccountID:          accountID,
		EntityTypeID:       uuid.New(),
		Properties:         properties,
		CreatedByAccountID: accountID,
	}
}

func TestEntitiesNewEntitiesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewEntitiesDBHandler", func(t *testing.T) {
		entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewEntitiesDBHandler to not return an error")
		require.NotNil(t, entitiesDbHandler, "Expected NewEntitiesDBHandler to return a non-nil instance")
		require.NotNil(t, entitiesDbHandler.db, "Expected NewEntitiesDBHandler to have a non-nil database instance")
		require.NotNil(t, entitiesDbHandler.db.Instance, "Expected NewEntitiesDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewEntitiesDBHandler with nil database", func(t *testing.T) {
		_, err := NewEntitiesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating EntitiesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

func TestEntitiesInsert(t *testing.T) {
	entitiesDbHandler, _ := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	t.Run("Insert entity", func(t *testing.T) {
		entity := newTestEntity(accountID, model.Properties{"name": "Alice"})

		err := entitiesDbHandler.InsertEntity(ctx, entity)
		require.NoError(t, err, "Expected Insert to not return an error")
		assert.NotEqual(t, uuid.Nil, entity.EntityID, "Expected a generated entity id")
		assert.NotEqual(t, uuid.Nil, entity.EntityVersionID, "Expected a generated version id")
		assert.Equal(t, accountID, entity.AccountID)
		assert.Equal(t, model.VisibilityPrivate, entity.Visibility, "Expected visibility to default to PRIVATE")
		assert.Equal(t, "Alice", entity.Properties["name"])
		assert.WithinDuration(t, time.Now(), entity.CreatedAt, 5*time.Second)
		assert.WithinDuration(t, time.Now(), entity.UpdatedAt, 5*time.Second)
	})

	t.Run("Insert entity with given id and visibility", func(t *testing.T) {
		entityID := uuid.New()
		entity := newTestEntity(accountID, nil)
		entity.EntityID = entityID
		entity.Visibility = model.VisibilityPublic

		err := entitiesDbHandler.InsertEntity(ctx, entity)
		require.NoError(t, err)
		assert.Equal(t, entityID, entity.EntityID)
		assert.Equal(t, model.VisibilityPublic, entity.Visibility)
		assert.Equal(t, model.Properties{}, entity.Properties, "Expected nil properties to be stored as an empty object")
	})

	t.Run("Insert entity with invalid visibility", func(t *testing.T) {
		entity := newTestEntity(accountID, nil)
		entity.Visibility = "SECRET"

		err := entitiesDbHandler.InsertEntity(ctx, entity)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid visibility")
	})

	t.Run("Insert nil entity", func(t *testing.T) {
		err := entitiesDbHandler.InsertEntity(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("Insert duplicate entity id", func(t *testing.T) {
		entity := newTestEntity(accountID, nil)
		require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))

		duplicate := newTestEntity(accountID, nil)
		duplicate.EntityID = entity.EntityID
		err := entitiesDbHandler.InsertEntity(ctx, duplicate)
		assert.Error(t, err, "Expected primary key violation")
	})
}

func TestEntitiesInsertVersion(t *testing.T) {
	entitiesDbHandler, _ := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()
	editorID := uuid.New()

	entity := newTestEntity(accountID, model.Properties{"title": "v1"})
	entity.Visibility = model.VisibilityPublic
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))

	t.Run("Insert new version", func(t *testing.T) {
		version, err := entitiesDbHandler.InsertEntityVersion(ctx, accountID, entity.EntityID, model.Properties{"title": "v2"}, editorID)
		require.NoError(t, err)
		require.NotNil(t, version)
		assert.Equal(t, entity.EntityID, version.EntityID)
		assert.NotEqual(t, entity.EntityVersionID, version.EntityVersionID)
		assert.Equal(t, entity.EntityTypeID, version.EntityTypeID, "Expected type to be carried over")
		assert.Equal(t, model.VisibilityPublic, version.Visibility, "Expected visibility to be carried over")
		assert.Equal(t, accountID, version.CreatedByAccountID)
		assert.Equal(t, editorID, version.UpdatedByAccountID)
		assert.Equal(t, "v2", version.Properties["title"])
		assert.True(t, version.UpdatedAt.After(entity.UpdatedAt))
	})

	t.Run("Insert version of unknown entity", func(t *testing.T) {
		version, err := entitiesDbHandler.InsertEntityVersion(ctx, accountID, uuid.New(), model.Properties{}, editorID)
		assert.NoError(t, err)
		assert.Nil(t, version)
	})

	t.Run("Insert version in wrong account", func(t *testing.T) {
		version, err := entitiesDbHandler.InsertEntityVersion(ctx, uuid.New(), entity.EntityID, model.Properties{}, editorID)
		assert.NoError(t, err)
		assert.Nil(t, version)
	})
}

func TestEntitiesSelectAccountID(t *testing.T) {
	entitiesDbHandler, _ := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	entity := newTestEntity(accountID, nil)
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))

	t.Run("Select account of entity", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityAccountID(ctx, entity.EntityID, nil)
		assert.NoError(t, err)
		assert.Equal(t, accountID, got)
	})

	t.Run("Select account of entity version", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityAccountID(ctx, entity.EntityID, &entity.EntityVersionID)
		assert.NoError(t, err)
		assert.Equal(t, accountID, got)
	})

	t.Run("Select account of unknown entity", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityAccountID(ctx, uuid.New(), nil)
		assert.NoError(t, err)
		assert.Equal(t, uuid.Nil, got)
	})

	t.Run("Select account with version of another entity", func(t *testing.T) {
		other := newTestEntity(accountID, nil)
		require.NoError(t, entitiesDbHandler.InsertEntity(ctx, other))

		got, err := entitiesDbHandler.SelectEntityAccountID(ctx, entity.EntityID, &other.EntityVersionID)
		assert.NoError(t, err)
		assert.Equal(t, uuid.Nil, got)
	})
}

func TestEntitiesSelectVersions(t *testing.T) {
	entitiesDbHandler, _ := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	entity := newTestEntity(accountID, model.Properties{"n": float64(1)})
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))
	second, err := entitiesDbHandler.InsertEntityVersion(ctx, accountID, entity.EntityID, model.Properties{"n": float64(2)}, accountID)
	require.NoError(t, err)
	require.NotNil(t, second)

	t.Run("Select exact version", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityVersion(ctx, accountID, entity.EntityVersionID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, float64(1), got.Properties["n"])
	})

	t.Run("Select exact version from wrong account", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityVersion(ctx, uuid.New(), entity.EntityVersionID)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Select latest version", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, entity.EntityID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, second.EntityVersionID, got.EntityVersionID)
		assert.Equal(t, float64(2), got.Properties["n"])
	})

	t.Run("Select latest version of unknown entity", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Select all versions newest first", func(t *testing.T) {
		versions, err := entitiesDbHandler.SelectEntityVersions(ctx, accountID, entity.EntityID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, second.EntityVersionID, versions[0].EntityVersionID)
		assert.Equal(t, entity.EntityVersionID, versions[1].EntityVersionID)
	})

	t.Run("Select versions of unknown entity", func(t *testing.T) {
		versions, err := entitiesDbHandler.SelectEntityVersions(ctx, accountID, uuid.New())
		assert.NoError(t, err)
		assert.Empty(t, versions)
	})
}

func TestEntitiesLatestVersionOrder(t *testing.T) {
	entitiesDbHandler, _ := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	entity := newTestEntity(accountID, model.Properties{"n": float64(1)})
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))
	second, err := entitiesDbHandler.InsertEntityVersion(ctx, accountID, entity.EntityID, model.Properties{"n": float64(2)}, accountID)
	require.NoError(t, err)
	require.NotNil(t, second)

	setUpdatedAt := func(t *testing.T, versionID uuid.UUID, updatedAt time.Time) {
		_, err := entitiesDbHandler.db.Instance.ExecContext(ctx, `UPDATE entity_versions SET updated_at = $1 WHERE entity_version_id = $2`, updatedAt, versionID)
		require.NoError(t, err)
	}

	t.Run("Versions with equal timestamps keep insertion order", func(t *testing.T) {
		tie := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		setUpdatedAt(t, entity.EntityVersionID, tie)
		setUpdatedAt(t, second.EntityVersionID, tie)

		for i := 0; i < 5; i++ {
			latest, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, entity.EntityID)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, second.EntityVersionID, latest.EntityVersionID, "Expected the later inserted version to be the latest")
		}

		versions, err := entitiesDbHandler.SelectEntityVersions(ctx, accountID, entity.EntityID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, second.EntityVersionID, versions[0].EntityVersionID)
		assert.Equal(t, entity.EntityVersionID, versions[1].EntityVersionID)
	})

	t.Run("Older timestamp on the last version does not change the latest", func(t *testing.T) {
		setUpdatedAt(t, entity.EntityVersionID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
		setUpdatedAt(t, second.EntityVersionID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

		latest, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, entity.EntityID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, second.EntityVersionID, latest.EntityVersionID)
	})

	t.Run("New version is based on the latest by sequence", func(t *testing.T) {
		third, err := entitiesDbHandler.InsertEntityVersion(ctx, accountID, entity.EntityID, model.Properties{"n": float64(3)}, accountID)
		require.NoError(t, err)
		require.NotNil(t, third)
		assert.Equal(t, entity.Visibility, third.Visibility)

		latest, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, entity.EntityID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, third.EntityVersionID, latest.EntityVersionID)
	})
}

func TestEntitiesRawProperties(t *testing.T) {
	entitiesDbHandler, _ := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	entity := newTestEntity(accountID, model.Properties{"aaa": float64(1), "zz": float64(2)})
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))

	t.Run("Inserted entity carries stored bytes", func(t *testing.T) {
		raw := string(entity.RawProperties)
		require.NotEmpty(t, raw)
		assert.Less(t, strings.Index(raw, `"zz"`), strings.Index(raw, `"aaa"`), "Expected the shorter key first")
	})

	t.Run("Selected entity carries stored bytes", func(t *testing.T) {
		got, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, entity.EntityID)
		require.NoError(t, err)
		require.NotNil(t, got)

		raw := string(got.RawProperties)
		assert.Less(t, strings.Index(raw, `"zz"`), strings.Index(raw, `"aaa"`), "Expected the shorter key first")
		assert.Equal(t, float64(1), got.Properties["aaa"])
		assert.Equal(t, float64(2), got.Properties["zz"])
	})
}

func TestEntitiesDelete(t *testing.T) {
	entitiesDbHandler, _ := initHandlers(t)
	ctx := context.Background()
	accountID := uuid.New()

	entity := newTestEntity(accountID, nil)
	require.NoError(t, entitiesDbHandler.InsertEntity(ctx, entity))

	t.Run("Delete from wrong account keeps the entity", func(t *testing.T) {
		err := entitiesDbHandler.DeleteEntity(ctx, uuid.New(), entity.EntityID)
		assert.NoError(t, err)

		got, err := entitiesDbHandler.SelectEntityLatestVersion(ctx, accountID, entity.EntityID)
		assert.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("Delete entity", func(t *testing.T) {
		err := entitiesDbHandler.DeleteEntity(ctx, accountID, entity.EntityID)
		assert.NoError(t, err)

		got, err := entitiesDbHandler.SelectEntityVersion(ctx, accountID, entity.EntityVersionID)
		assert.NoError(t, err)
		assert.Nil(t, got, "Expected versions to be deleted with the entity")

		account, err := entitiesDbHandler.SelectEntityAccountID(ctx, entity.EntityID, nil)
		assert.NoError(t, err)
		assert.Equal(t, uuid.Nil, account)
	})
}
