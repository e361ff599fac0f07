package resolver

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError is returned when a linked entity cannot be located.
// AccountID is uuid.Nil if the owning account could not be resolved either.
type NotFoundError struct {
	EntityID  uuid.UUID
	AccountID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("linked entity %s not found in account %s", e.EntityID, e.AccountID)
}

// IsNotFound reports whether err contains a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
