package links

import (
	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/model"
)

// Destinations returns the destination references of the links in order
func Destinations(links []*model.Link) []model.EntityRef {
	refs := make([]model.EntityRef, len(links))
	for i, link := range links {
		refs[i] = link.Destination()
	}
	return refs
}

// Dedupe keeps the first reference per entity id, in first seen order.
// Later references to the same entity are dropped even if they pin a
// different version.
func Dedupe(refs []model.EntityRef) []model.EntityRef {
	seen := make(map[uuid.UUID]struct{}, len(refs))
	unique := make([]model.EntityRef, 0, len(refs))

	for _, ref := range refs {
		if _, ok := seen[ref.EntityID]; ok {
			continue
		}
		seen[ref.EntityID] = struct{}{}
		unique = append(unique, ref)
	}

	return unique
}
