// Package view maintains live, ordered, materialized lists backed by remote
// collection subscriptions.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/photofeed/internal/logging"
	"github.com/dmitrijs2005/photofeed/internal/remote"
)

// ErrAlreadyOpen is returned by Open when the view holds an active
// subscription that was not closed first. At most one subscription per view.
var ErrAlreadyOpen = errors.New("view already open")

// Record is one materialized document with its payload decoded into T.
type Record[T any] struct {
	ID        string
	CreatedAt time.Time
	Item      T
}

// View owns exactly one subscription to an ordered remote collection and
// exposes the always-current ordered list of records.
//
// Every snapshot replaces the list wholesale: the view never merges partial
// updates and never re-sorts locally — the server-declared order is
// authoritative, including its tie-break for equal ordering keys.
//
// The consumer must call Close on every teardown path, or the subscription
// leaks for the lifetime of the process. Close is idempotent, and a snapshot
// already in flight when Close is invoked is a no-op on arrival.
type View[T any] struct {
	store remote.Store
	log   logging.Logger

	mu      sync.Mutex
	gen     int
	open    bool
	failed  bool
	applied bool
	unsub   remote.UnsubscribeFunc
	records []Record[T]
	err     error

	updates chan []Record[T]
}

func New[T any](store remote.Store, log logging.Logger) *View[T] {
	return &View[T]{
		store:   store,
		log:     log,
		updates: make(chan []Record[T], 1),
	}
}

// Open establishes the subscription. It fails fast with ErrAlreadyOpen if a
// previous Open was not followed by Close. Reopening after Close is allowed
// and starts a fresh generation: stale callbacks from the previous
// subscription can never touch the new list.
func (v *View[T]) Open(ctx context.Context, q remote.Query) error {
	v.mu.Lock()
	if v.open {
		v.mu.Unlock()
		return ErrAlreadyOpen
	}
	v.gen++
	gen := v.gen
	v.open = true
	v.failed = false
	v.applied = false
	v.err = nil
	v.mu.Unlock()

	unsub, err := v.store.SubscribeCollection(ctx, q, func(snap remote.Snapshot, err error) {
		v.apply(ctx, gen, snap, err)
	})
	if err != nil {
		v.mu.Lock()
		if v.gen == gen {
			v.open = false
			v.err = err
		}
		v.mu.Unlock()
		return fmt.Errorf("subscribe error: %w", err)
	}

	v.mu.Lock()
	if v.gen != gen {
		// Closed while the subscribe call was in flight.
		v.mu.Unlock()
		unsub()
		return nil
	}
	v.unsub = unsub
	v.mu.Unlock()
	return nil
}

// Records returns the list materialized from the latest snapshot. The slice
// is replaced atomically on every snapshot; callers must not modify it.
func (v *View[T]) Records() []Record[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.records
}

// Updates notifies after each applied snapshot, carrying the new list.
// The channel coalesces: an unread stale update is dropped in favor of the
// newest one.
func (v *View[T]) Updates() <-chan []Record[T] {
	return v.updates
}

// Prime seeds the list before the first live snapshot arrives, e.g. from a
// local cache. It reports whether the seed was accepted: once any snapshot
// has been applied, priming is refused — live data always replaces cached
// data wholesale and is never merged with it.
func (v *View[T]) Prime(recs []Record[T]) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.open || v.failed || v.applied {
		return false
	}
	v.records = recs
	return true
}

// Err reports the terminal subscription error, if any. A failed view stops
// applying snapshots; recovery is Close followed by a fresh Open.
func (v *View[T]) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Close releases the subscription. Idempotent; safe on every teardown path.
func (v *View[T]) Close() {
	v.mu.Lock()
	if !v.open {
		v.mu.Unlock()
		return
	}
	v.open = false
	v.gen++ // invalidate in-flight callbacks and a pending Open
	unsub := v.unsub
	v.unsub = nil
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (v *View[T]) apply(ctx context.Context, gen int, snap remote.Snapshot, err error) {
	if err != nil {
		v.mu.Lock()
		if v.gen == gen && v.open && !v.failed {
			v.failed = true
			v.err = err
		}
		v.mu.Unlock()
		v.log.Error(ctx, "subscription failed", "error", err)
		return
	}

	recs := make([]Record[T], 0, len(snap.Docs))
	for _, d := range snap.Docs {
		var item T
		if uerr := d.Decode(&item); uerr != nil {
			v.log.Warn(ctx, "skipping undecodable document", "id", d.ID, "error", uerr)
			continue
		}
		recs = append(recs, Record[T]{ID: d.ID, CreatedAt: d.CreatedAt, Item: item})
	}

	v.mu.Lock()
	if v.gen != gen || !v.open || v.failed {
		v.mu.Unlock()
		return
	}
	v.records = recs
	v.applied = true
	v.mu.Unlock()

	select {
	case <-v.updates:
	default:
	}
	select {
	case v.updates <- recs:
	default:
	}
}
