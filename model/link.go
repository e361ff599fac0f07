package model

import (
	"time"

	"github.com/google/uuid"
)

// Link is a directed reference from a source entity to a destination entity,
// found inside the source's property object at Path.
type Link struct {
	ID                         uuid.UUID  `json:"id"`
	AccountID                  uuid.UUID  `json:"account_id"`
	SourceEntityID             uuid.UUID  `json:"source_entity_id"`
	SourceEntityVersionID      *uuid.UUID `json:"source_entity_version_id,omitempty"`
	DestinationEntityID        uuid.UUID  `json:"destination_entity_id"`
	DestinationEntityVersionID *uuid.UUID `json:"destination_entity_version_id,omitempty"`
	Path                       string     `json:"path"`
	CreatedAt                  time.Time  `json:"created_at"`
}

// Destination returns the reference to the link's destination entity
func (l *Link) Destination() EntityRef {
	return EntityRef{
		EntityID:        l.DestinationEntityID,
		EntityVersionID: l.DestinationEntityVersionID,
	}
}
