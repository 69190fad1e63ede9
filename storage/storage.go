// Package storage defines the event store interface the calendar core
// persists through, together with the error types backends must use.
package storage

import (
	"context"
	"errors"
	"fmt"

	"dayplan/event"
)

// ErrorType classifies storage failures.
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a storage Error of type ErrNotFound.
func IsNotFound(err error) bool { return hasType(err, ErrNotFound) }

// IsAlreadyExists reports whether err is a storage Error of type ErrAlreadyExists.
func IsAlreadyExists(err error) bool { return hasType(err, ErrAlreadyExists) }

func hasType(err error, t ErrorType) bool {
	var storageErr *Error
	return errors.As(err, &storageErr) && storageErr.Type == t
}

// Store is the interface event store backends implement. Two instances with
// the same ID never coexist; Create and CreateBatch fail with
// ErrAlreadyExists on a duplicate. Batch operations are atomic: either every
// instance is written or none is.
type Store interface {
	// List returns all current instances.
	List(ctx context.Context) ([]event.Instance, error)
	// Get returns the instance with the given ID.
	Get(ctx context.Context, id string) (*event.Instance, error)
	// Create inserts a single instance.
	Create(ctx context.Context, inst event.Instance) error
	// CreateBatch inserts all instances atomically.
	CreateBatch(ctx context.Context, instances []event.Instance) error
	// Update replaces the stored instance with the same ID.
	Update(ctx context.Context, inst event.Instance) error
	// Delete removes the instance with the given ID.
	Delete(ctx context.Context, id string) error

	// ListSeries returns all instances whose SeriesID matches, ordered by date.
	ListSeries(ctx context.Context, seriesID string) ([]event.Instance, error)
	// DeleteSeries removes every instance linked to the series. Removing a
	// series nobody belongs to is not an error.
	DeleteSeries(ctx context.Context, seriesID string) error
	// ReplaceSeries atomically deletes all instances linked to the series
	// and inserts the given replacements.
	ReplaceSeries(ctx context.Context, seriesID string, replacements []event.Instance) error

	// Close releases backend resources.
	Close() error
}
