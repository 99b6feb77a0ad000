// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"optask/internal/service"
)

// Store methods, as reported by Call.Method.
const (
	MethodList   = "list"
	MethodCreate = "create"
	MethodToggle = "toggle"
	MethodDelete = "delete"
)

// Call is a store call parked by a holding FakeStore.
type Call struct {
	Method string
	Key    string // title for create, item ID for toggle/delete, empty for list

	release chan error
}

// Resolve lets the call proceed. A nil err applies the call to the store;
// a non-nil err is returned to the caller and the store is left unchanged.
func (c *Call) Resolve(err error) {
	c.release <- err
}

// FakeStore is an in-memory implementation of service.Store for testing.
type FakeStore struct {
	mu     sync.Mutex
	items  []service.Item
	lastID int64
	hold   bool
	parked []*Call
	calls  []string

	// Error injection for testing
	ListErr   error
	CreateErr error
	ToggleErr error
	DeleteErr error
}

// NewFakeStore creates a FakeStore holding items in order.
func NewFakeStore(items ...service.Item) *FakeStore {
	f := &FakeStore{}
	for _, it := range items {
		f.items = append(f.items, it)
		if it.ID > f.lastID {
			f.lastID = it.ID
		}
	}
	return f
}

// Hold makes every later call park until it is resolved through Await.
func (f *FakeStore) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = true
}

// Items returns a copy of the store's items.
func (f *FakeStore) Items() []service.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return service.Clone(f.items)
}

// Calls returns the methods called so far, in order.
func (f *FakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Await waits for a parked call matching method and key and removes it from
// the parked set.
func (f *FakeStore) Await(method, key string, timeout time.Duration) (*Call, error) {
	deadline := time.Now().Add(timeout)
	for {
		f.mu.Lock()
		for i, c := range f.parked {
			if c.Method == method && c.Key == key {
				f.parked = append(f.parked[:i], f.parked[i+1:]...)
				f.mu.Unlock()
				return c, nil
			}
		}
		f.mu.Unlock()
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no parked %s call for %q", method, key)
		}
		time.Sleep(time.Millisecond)
	}
}

// List implements service.Store.
func (f *FakeStore) List(ctx context.Context) ([]service.Item, error) {
	if err := f.enter(ctx, MethodList, "", f.ListErr); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return service.Clone(f.items), nil
}

// Create implements service.Store.
func (f *FakeStore) Create(ctx context.Context, title string) (service.Item, error) {
	if err := f.enter(ctx, MethodCreate, title, f.CreateErr); err != nil {
		return service.Item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastID++
	it := service.Item{ID: f.lastID, Title: title}
	f.items = append([]service.Item{it}, f.items...)
	return it, nil
}

// Toggle implements service.Store.
func (f *FakeStore) Toggle(ctx context.Context, id int64) (service.Item, error) {
	if err := f.enter(ctx, MethodToggle, strconv.FormatInt(id, 10), f.ToggleErr); err != nil {
		return service.Item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Done = !f.items[i].Done
			return f.items[i], nil
		}
	}
	return service.Item{}, service.ErrNotFound
}

// Delete implements service.Store.
func (f *FakeStore) Delete(ctx context.Context, id int64) error {
	if err := f.enter(ctx, MethodDelete, strconv.FormatInt(id, 10), f.DeleteErr); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}

// enter records the call, parks it when holding and returns the error the
// call should fail with, if any.
func (f *FakeStore) enter(ctx context.Context, method, key string, injected error) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	if !f.hold {
		f.mu.Unlock()
		if ctx.Err() != nil {
			return service.ErrCanceled
		}
		return injected
	}
	c := &Call{Method: method, Key: key, release: make(chan error, 1)}
	f.parked = append(f.parked, c)
	f.mu.Unlock()

	select {
	case err := <-c.release:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, service.ErrCanceled)
	}
}
