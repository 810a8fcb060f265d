// Package service implements the marketplace core: the listing sale
// lifecycle, purchase intents, favorites, comments and listing search.
// Every operation receives the calling Actor explicitly and talks to
// persistence through the Store and Tx contracts defined in store.go.
package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by core operations.  Handlers translate them
// into HTTP responses with errors.Is.
var (
	// ErrValidation marks malformed or missing input.  Concrete errors are
	// *ValidationError values naming the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when the caller lacks rights over the
	// target, e.g. a non-owner advancing a listing.
	ErrAuthorization = errors.New("not permitted")

	// ErrInvalidState is returned when the requested change conflicts with
	// the listing's current status.
	ErrInvalidState = errors.New("invalid listing state")

	// ErrSelfDealing is returned when a member acts on their own listing
	// where that is not allowed.
	ErrSelfDealing = errors.New("cannot act on own listing")

	// ErrNotFound is returned when the referenced entity does not exist or
	// is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is reported by Store implementations when a unique
	// constraint rejects an insert.  It never leaves the core.
	ErrDuplicate = errors.New("duplicate entry")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// NotificationDeliveryError wraps a failure of the notification
// dispatcher.  Operations never return it; it is logged and turned into a
// warning next to the successful result.
type NotificationDeliveryError struct {
	RecipientID uint64
	Template    string
	Err         error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to user %d: %v", e.Template, e.RecipientID, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error { return e.Err }
