// Package optimistic applies to-do mutations locally before a Store confirms
// them, then commits or rolls back each one when the Store resolves.
//
// # Lifecycle of an operation
//
// Every mutation follows the same three steps:
//  1. Apply the delta to the collection and mark the item pending.
//  2. Call the Store with a context that is canceled by the caller or by
//     Controller.Close.
//  3. On success replace the pending item with the authoritative one; on
//     failure or cancellation restore exactly what step 1 captured.
//
// Reconciliation matches items by ID, never by position, so an operation that
// resolves after unrelated mutations still touches only its own item.
//
// # Errors
//
// A Store failure is returned to the caller (it should be shown to the user).
// A cancellation rolls back the same way but returns nil. A failed Load is
// recorded in the snapshot until RetryLoad succeeds; a canceled Load records
// nothing.
//
// # Concurrency
//
// Operations block until the Store resolves; run them in goroutines to keep
// several in flight. At most one operation may be in flight per item. A
// second toggle or delete on a pending item returns ErrBusy.
//
// # Snapshots
//
// Every change publishes an immutable Snapshot to subscribers in increasing
// Version order. Subscribers run synchronously and must not call back into
// the Controller.
package optimistic
