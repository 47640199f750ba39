// Package remote defines the contract for the external document store that
// acts as the system of record: ordered realtime subscriptions over
// collections, per-document subscriptions, and plain CRUD. The client never
// holds an authoritative copy of any document — only materialized snapshots
// delivered through subscriptions, replaceable at any time by a newer one.
package remote

import (
	"context"
	"encoding/json"
	"time"
)

// Direction selects the ordering of a collection subscription.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Query identifies one ordered collection subscription.
// Collection is a slash-separated path, e.g. "posts" or "posts/<id>/comments".
type Query struct {
	Collection string
	OrderBy    string
	Direction  Direction
}

// Document is one record as materialized by the store. ID is assigned by the
// store on creation and immutable afterwards. CreatedAt is the server-assigned
// ordering key, set exactly once at creation; clients never supply it.
type Document struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the document payload into out.
func (d Document) Decode(out any) error {
	return json.Unmarshal(d.Data, out)
}

// Snapshot is a complete ordered materialization of a query's current result
// set. It is never a delta: consumers replace their state with Docs wholesale.
type Snapshot struct {
	Docs []Document
}

// UnsubscribeFunc releases a subscription. Implementations must make it
// idempotent and must guarantee that no callback runs after it returns.
type UnsubscribeFunc func()

// SnapshotFunc receives collection snapshots. Within one subscription,
// snapshots arrive in the order the store emits them; no ordering is
// guaranteed across distinct subscriptions. A non-nil err is terminal for
// the subscription: no further callbacks follow it.
type SnapshotFunc func(snap Snapshot, err error)

// DocumentFunc receives the state of a single document. exists is false when
// the document is absent or has been deleted. A non-nil err is terminal for
// the subscription.
type DocumentFunc func(doc Document, exists bool, err error)

// Store is the external realtime document store.
type Store interface {
	// SubscribeCollection establishes one ordered subscription. The callback
	// fires with the current snapshot promptly after subscribing and again on
	// every change.
	SubscribeCollection(ctx context.Context, q Query, fn SnapshotFunc) (UnsubscribeFunc, error)

	// SubscribeDocument watches a single document by path, e.g. "users/<uid>".
	SubscribeDocument(ctx context.Context, path string, fn DocumentFunc) (UnsubscribeFunc, error)

	// CreateDocument appends a document to a collection and returns the
	// store-assigned ID. The creation timestamp is assigned server-side.
	CreateDocument(ctx context.Context, collection string, payload any) (string, error)

	// SetDocument creates or replaces the document at a caller-chosen path,
	// e.g. "users/<uid>". The creation timestamp is assigned server-side on
	// first write and preserved on replace.
	SetDocument(ctx context.Context, path string, payload any) error

	// UpdateDocument merges the given fields into an existing document.
	UpdateDocument(ctx context.Context, path string, fields map[string]any) error

	// DeleteDocument removes a document. Deleting an absent document is not
	// an error.
	DeleteDocument(ctx context.Context, path string) error

	// ListDocuments returns the documents of a collection whose payload field
	// equals the given value, in creation order. One-shot, not a subscription.
	ListDocuments(ctx context.Context, collection string, field string, equals any) ([]Document, error)
}
