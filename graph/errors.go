package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/99designs/gqlgen/graphql"
	"github.com/google/uuid"
	"github.com/siherrmann/linkgraph/core/links"
	"github.com/siherrmann/linkgraph/core/resolver"
	"github.com/siherrmann/linkgraph/graph/scalar"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Error codes set in the "code" extension
const (
	CodeNotFound      = "NOT_FOUND"
	CodeBadUserInput  = "BAD_USER_INPUT"
	CodeInternalError = "INTERNAL_SERVER_ERROR"
)

// inputError reports an invalid argument value
type inputError struct {
	argument string
	err      error
}

func (e *inputError) Error() string {
	return fmt.Sprintf("invalid argument %s: %v", e.argument, e.err)
}

func (e *inputError) Unwrap() error {
	return e.err
}

// entityNotFoundError is returned by root fields when the requested entity does not exist
type entityNotFoundError struct {
	entityID  uuid.UUID
	accountID uuid.UUID
}

func (e *entityNotFoundError) Error() string {
	return fmt.Sprintf("entity %s not found in account %s", e.entityID, e.accountID)
}

// errorPresenter returns the error presenter of the handler
func errorPresenter(logger *slog.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		return mapError(ctx, err, logger)
	}
}

// recoverFunc logs a panic of a resolver and reports it as an internal error
func recoverFunc(logger *slog.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, err interface{}) error {
		logger.Error("Panic resolving field", slog.String("path", graphql.GetPath(ctx).String()), slog.Any("panic", err), slog.String("stack", string(debug.Stack())))

		return &gqlerror.Error{
			Message: "internal server error",
			Extensions: map[string]interface{}{
				"code": CodeInternalError,
			},
		}
	}
}

// mapError converts resolver errors to GraphQL errors with an error code.
// Errors raised by gqlgen itself (parsing, validation, null checks) pass through.
// Internal errors are logged and replaced by a generic message.
func mapError(ctx context.Context, err error, logger *slog.Logger) *gqlerror.Error {
	gqlErr := graphql.DefaultErrorPresenter(ctx, err)
	if gqlErr.Unwrap() == nil {
		return gqlErr
	}

	var notFound *resolver.NotFoundError
	if errors.As(err, &notFound) {
		return &gqlerror.Error{
			Message:   notFound.Error(),
			Path:      gqlErr.Path,
			Locations: gqlErr.Locations,
			Extensions: map[string]interface{}{
				"code":      CodeNotFound,
				"entityId":  notFound.EntityID.String(),
				"accountId": notFound.AccountID.String(),
			},
		}
	}

	var missing *entityNotFoundError
	if errors.As(err, &missing) {
		return &gqlerror.Error{
			Message:   missing.Error(),
			Path:      gqlErr.Path,
			Locations: gqlErr.Locations,
			Extensions: map[string]interface{}{
				"code":      CodeNotFound,
				"entityId":  missing.entityID.String(),
				"accountId": missing.accountID.String(),
			},
		}
	}

	var input *inputError
	if errors.As(err, &input) {
		return &gqlerror.Error{
			Message:   input.Error(),
			Path:      gqlErr.Path,
			Locations: gqlErr.Locations,
			Extensions: map[string]interface{}{
				"code":     CodeBadUserInput,
				"argument": input.argument,
			},
		}
	}

	// Argument values that do not fit their scalar fail with the argument as last path element
	if errors.Is(err, scalar.ErrInvalidValue) {
		argument := ""
		if len(gqlErr.Path) > 0 {
			if name, ok := gqlErr.Path[len(gqlErr.Path)-1].(ast.PathName); ok {
				argument = string(name)
			}
		}
		return &gqlerror.Error{
			Message:   fmt.Sprintf("invalid argument %s: %v", argument, gqlErr.Unwrap()),
			Path:      gqlErr.Path,
			Locations: gqlErr.Locations,
			Extensions: map[string]interface{}{
				"code":     CodeBadUserInput,
				"argument": argument,
			},
		}
	}

	if errors.Is(err, links.ErrInvalidLink) {
		return &gqlerror.Error{
			Message:   gqlErr.Message,
			Path:      gqlErr.Path,
			Locations: gqlErr.Locations,
			Extensions: map[string]interface{}{
				"code": CodeBadUserInput,
			},
		}
	}

	logger.Error("Error resolving field", slog.String("path", gqlErr.Path.String()), slog.String("error", err.Error()))

	return &gqlerror.Error{
		Message:   "internal server error",
		Path:      gqlErr.Path,
		Locations: gqlErr.Locations,
		Extensions: map[string]interface{}{
			"code": CodeInternalError,
		},
	}
}
