package graph

import (
	"context"

	"github.com/99designs/gqlgen/graphql"
	"github.com/google/uuid"
)

//go:generate go run github.com/99designs/gqlgen generate

// Resolver serves the schema from a Backend.
// Field errors are turned into GraphQL errors by the error presenter of the handler.
type Resolver struct {
	Backend Backend
}

// callerAccountID returns the accountId argument of the outermost field
// that has one. Nested entities can belong to other accounts, the caller
// is the account named by the root field.
func callerAccountID(ctx context.Context, fallback uuid.UUID) uuid.UUID {
	accountID := fallback
	for fc := graphql.GetFieldContext(ctx); fc != nil; fc = fc.Parent {
		if id, ok := fc.Args["accountId"].(uuid.UUID); ok {
			accountID = id
		}
	}
	return accountID
}
