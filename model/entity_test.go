package model

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_ToUnknownEntity(t *testing.T) {
	t.Run("Maps every field", func(t *testing.T) {
		now := time.Now()
		entity := &Entity{
			EntityVersionID:    uuid.New(),
			EntityID:           uuid.New(),
			AccountID:          uuid.New(),
			EntityTypeID:       uuid.New(),
			Properties:         Properties{"name": "Alice"},
			Visibility:         VisibilityPublic,
			CreatedByAccountID: uuid.New(),
			UpdatedByAccountID: uuid.New(),
			CreatedAt:          now.Add(-time.Hour),
			UpdatedAt:          now,
		}

		unknown := entity.ToUnknownEntity()

		assert.Equal(t, "UnknownEntity", unknown.TypeName)
		assert.Equal(t, entity.EntityVersionID, unknown.ID, "Expected id to be the entity version id")
		assert.Equal(t, entity.EntityID, unknown.EntityID)
		assert.Equal(t, entity.EntityVersionID, unknown.EntityVersionID)
		assert.Equal(t, entity.AccountID, unknown.AccountID)
		assert.Equal(t, entity.EntityTypeID, unknown.EntityTypeID)
		assert.Equal(t, entity.CreatedByAccountID, unknown.CreatedByAccountID)
		assert.Equal(t, entity.UpdatedByAccountID, unknown.UpdatedByAccountID)
		assert.Equal(t, entity.CreatedAt, unknown.CreatedAt)
		assert.Equal(t, entity.UpdatedAt, unknown.UpdatedAt)
		assert.Equal(t, VisibilityPublic, unknown.Visibility)
		assert.Equal(t, "Alice", unknown.Properties["name"])
	})

	t.Run("Defaults empty properties and visibility", func(t *testing.T) {
		unknown := (&Entity{EntityID: uuid.New()}).ToUnknownEntity()

		assert.NotNil(t, unknown.Properties)
		assert.Equal(t, VisibilityPrivate, unknown.Visibility)
	})

	t.Run("ToEntity reverses the mapping", func(t *testing.T) {
		entity := &Entity{
			EntityVersionID: uuid.New(),
			EntityID:        uuid.New(),
			AccountID:       uuid.New(),
			Properties:      Properties{"k": "v"},
			Visibility:      VisibilityPrivate,
		}

		assert.Equal(t, entity, entity.ToUnknownEntity().ToEntity())
	})
}

func TestVisibility_Valid(t *testing.T) {
	assert.True(t, VisibilityPrivate.Valid())
	assert.True(t, VisibilityPublic.Valid())
	assert.False(t, Visibility("SECRET").Valid())
}

func TestVisibility_GQL(t *testing.T) {
	t.Run("Marshal writes a quoted enum value", func(t *testing.T) {
		var buf bytes.Buffer
		VisibilityPublic.MarshalGQL(&buf)
		assert.Equal(t, `"PUBLIC"`, buf.String())
	})

	t.Run("Unmarshal known value", func(t *testing.T) {
		var v Visibility
		require.NoError(t, v.UnmarshalGQL("PRIVATE"))
		assert.Equal(t, VisibilityPrivate, v)
	})

	t.Run("Unmarshal unknown value", func(t *testing.T) {
		var v Visibility
		assert.Error(t, v.UnmarshalGQL("SECRET"))
		assert.Error(t, v.UnmarshalGQL(1))
	})
}

func TestLink_Destination(t *testing.T) {
	versionID := uuid.New()
	link := &Link{
		DestinationEntityID:        uuid.New(),
		DestinationEntityVersionID: &versionID,
	}

	ref := link.Destination()

	assert.Equal(t, link.DestinationEntityID, ref.EntityID)
	assert.Equal(t, &versionID, ref.EntityVersionID)
}

func TestEntity_PropertiesJSON(t *testing.T) {
	t.Run("Raw properties are returned unchanged", func(t *testing.T) {
		raw := json.RawMessage(`{"zz": 1, "aaa": 2}`)
		entity := &Entity{Properties: Properties{"zz": float64(1), "aaa": float64(2)}, RawProperties: raw}

		bytes, err := entity.PropertiesJSON()

		require.NoError(t, err)
		assert.Equal(t, []byte(raw), bytes)
	})

	t.Run("Without raw properties keys follow JSONB order", func(t *testing.T) {
		entity := &Entity{Properties: Properties{"aaa": float64(2), "zz": float64(1)}}

		bytes, err := entity.PropertiesJSON()

		require.NoError(t, err)
		assert.Equal(t, `{"zz":1,"aaa":2}`, string(bytes))
	})

	t.Run("Raw properties survive the external representation", func(t *testing.T) {
		entity := &Entity{RawProperties: json.RawMessage(`{"a": 1}`)}

		assert.Equal(t, entity.RawProperties, entity.ToUnknownEntity().ToEntity().RawProperties)
	})
}
