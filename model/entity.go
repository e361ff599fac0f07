package model

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Visibility controls who may read an entity
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

// Valid reports whether v is a known visibility
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

func (v Visibility) String() string {
	return string(v)
}

// UnmarshalGQL reads the GraphQL enum value
func (v *Visibility) UnmarshalGQL(value interface{}) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("enums must be strings")
	}

	*v = Visibility(str)
	if !v.Valid() {
		return fmt.Errorf("%s is not a valid Visibility", str)
	}
	return nil
}

// MarshalGQL writes the GraphQL enum value
func (v Visibility) MarshalGQL(w io.Writer) {
	fmt.Fprint(w, strconv.Quote(v.String()))
}

// Entity is one immutable version of a versioned, account scoped record.
// EntityID is stable across versions, EntityVersionID identifies this version.
// RawProperties holds the properties as read from the database, keys in stored order.
type Entity struct {
	EntityVersionID    uuid.UUID       `json:"entity_version_id"`
	EntityID           uuid.UUID       `json:"entity_id"`
	AccountID          uuid.UUID       `json:"account_id"`
	EntityTypeID       uuid.UUID       `json:"entity_type_id"`
	Properties         Properties      `json:"properties"`
	Visibility         Visibility      `json:"visibility"`
	CreatedByAccountID uuid.UUID       `json:"created_by_account_id"`
	UpdatedByAccountID uuid.UUID       `json:"updated_by_account_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	RawProperties      json.RawMessage `json:"-"`
}

// EntityRef points at an entity. A nil EntityVersionID means the latest
// version at resolution time.
type EntityRef struct {
	EntityID        uuid.UUID  `json:"entity_id"`
	EntityVersionID *uuid.UUID `json:"entity_version_id,omitempty"`
}

// UnknownEntity is the external representation of an entity whose type is
// not known to the API layer.
type UnknownEntity struct {
	TypeName           string          `json:"__typename"`
	ID                 uuid.UUID       `json:"id"`
	EntityID           uuid.UUID       `json:"entityId"`
	EntityVersionID    uuid.UUID       `json:"entityVersionId"`
	AccountID          uuid.UUID       `json:"accountId"`
	EntityTypeID       uuid.UUID       `json:"entityTypeId"`
	CreatedByAccountID uuid.UUID       `json:"createdByAccountId"`
	UpdatedByAccountID uuid.UUID       `json:"updatedByAccountId"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Visibility         Visibility      `json:"visibility"`
	Properties         Properties      `json:"properties"`
	RawProperties      json.RawMessage `json:"-"`
}

// ToUnknownEntity maps the entity to its external representation
func (e *Entity) ToUnknownEntity() *UnknownEntity {
	properties := e.Properties
	if properties == nil {
		properties = Properties{}
	}
	visibility := e.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}

	return &UnknownEntity{
		TypeName:           "UnknownEntity",
		ID:                 e.EntityVersionID,
		EntityID:           e.EntityID,
		EntityVersionID:    e.EntityVersionID,
		AccountID:          e.AccountID,
		EntityTypeID:       e.EntityTypeID,
		CreatedByAccountID: e.CreatedByAccountID,
		UpdatedByAccountID: e.UpdatedByAccountID,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
		Visibility:         visibility,
		Properties:         properties,
		RawProperties:      e.RawProperties,
	}
}

// ToEntity maps the external representation back to an entity.
// Nested resolvers use it to expand links of already converted entities.
func (u *UnknownEntity) ToEntity() *Entity {
	return &Entity{
		EntityVersionID:    u.EntityVersionID,
		EntityID:           u.EntityID,
		AccountID:          u.AccountID,
		EntityTypeID:       u.EntityTypeID,
		Properties:         u.Properties,
		RawProperties:      u.RawProperties,
		Visibility:         u.Visibility,
		CreatedByAccountID: u.CreatedByAccountID,
		UpdatedByAccountID: u.UpdatedByAccountID,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// PropertiesJSON returns the properties as JSON with object keys in stored order.
// Entities not read from the database are encoded the way a JSONB column orders them.
func (e *Entity) PropertiesJSON() ([]byte, error) {
	if len(e.RawProperties) > 0 {
		return e.RawProperties, nil
	}
	return e.Properties.MarshalJSONB()
}
