// Package service defines the backend-agnostic interface for to-do items.
package service

import (
	"context"
	"errors"
)

var (
	// ErrNetworkFailure is returned when a backend call fails.
	ErrNetworkFailure = errors.New("network failure")

	// ErrCanceled is returned when a call is canceled before it resolves.
	ErrCanceled = errors.New("canceled")

	// ErrNotFound is returned when an item ID is unknown to the backend.
	ErrNotFound = errors.New("not found")
)

// Store defines the interface for a remote list of items.
// All backend calls go through this interface.
// The controller never imports a backend SDK directly.
//
// Every method blocks until the backend resolves or ctx is done. A canceled
// call returns an error matching ErrCanceled and leaves the backend unchanged.
// Returned items are copies; callers may modify them freely.
type Store interface {
	// List returns all items in backend order.
	List(ctx context.Context) ([]Item, error)

	// Create adds an item with the given title and returns it with the
	// backend-assigned ID.
	Create(ctx context.Context, title string) (Item, error)

	// Toggle flips the Done flag of an item and returns the updated item.
	Toggle(ctx context.Context, id int64) (Item, error)

	// Delete removes an item.
	Delete(ctx context.Context, id int64) error
}

// IsCanceled reports whether err is a cancellation rather than a failure.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
