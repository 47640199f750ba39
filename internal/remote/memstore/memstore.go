// Package memstore is an in-process implementation of the remote store and
// identity provider contracts, used by tests and the demo mode. It
// reproduces the reference subscription semantics: every change delivers a
// complete ordered snapshot, ordered by the server-assigned creation
// timestamp with ties broken by insertion order.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photofeed/internal/remote"
)

type document struct {
	id        string
	createdAt time.Time
	seq       int64
	data      []byte
}

func (d document) toRemote() remote.Document {
	return remote.Document{ID: d.id, CreatedAt: d.createdAt, Data: d.data}
}

type colSub struct {
	mu     sync.Mutex
	closed bool
	query  remote.Query
	fn     remote.SnapshotFunc
}

func (s *colSub) deliver(snap remote.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(snap, nil)
}

type docSub struct {
	mu     sync.Mutex
	closed bool
	path   string
	fn     remote.DocumentFunc
}

func (s *docSub) deliver(doc remote.Document, exists bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(doc, exists, nil)
}

// Store keeps documents in memory and fans complete snapshots out to
// subscribers synchronously on every mutation.
type Store struct {
	now func() time.Time

	mu          sync.Mutex
	seq         int64
	nextSub     int
	collections map[string][]document
	colSubs     map[string]map[int]*colSub
	docSubs     map[string]map[int]*docSub

	accounts  map[string]*account
	current   *account
	identSubs map[int]*identSub
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the server clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		collections: map[string][]document{},
		colSubs:     map[string]map[int]*colSub{},
		docSubs:     map[string]map[int]*docSub{},
		accounts:    map[string]*account{},
		identSubs:   map[int]*identSub{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) SubscribeCollection(ctx context.Context, q remote.Query, fn remote.SnapshotFunc) (remote.UnsubscribeFunc, error) {
	if q.OrderBy != "created_at" {
		return nil, fmt.Errorf("%w: unsupported order field %q", remote.ErrValidation, q.OrderBy)
	}

	sub := &colSub{query: q, fn: fn}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.colSubs[q.Collection] == nil {
		s.colSubs[q.Collection] = map[int]*colSub{}
	}
	s.colSubs[q.Collection][id] = sub
	snap := s.snapshotLocked(q)
	s.mu.Unlock()

	// Initial snapshot fires promptly after subscribing.
	sub.deliver(snap)

	return func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()

		s.mu.Lock()
		delete(s.colSubs[q.Collection], id)
		s.mu.Unlock()
	}, nil
}

func (s *Store) SubscribeDocument(ctx context.Context, path string, fn remote.DocumentFunc) (remote.UnsubscribeFunc, error) {
	collection, docID, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	sub := &docSub{path: path, fn: fn}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.docSubs[path] == nil {
		s.docSubs[path] = map[int]*docSub{}
	}
	s.docSubs[path][id] = sub
	doc, exists := s.findLocked(collection, docID)
	s.mu.Unlock()

	sub.deliver(doc.toRemote(), exists)

	return func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()

		s.mu.Lock()
		delete(s.docSubs[path], id)
		s.mu.Unlock()
	}, nil
}

func (s *Store) CreateDocument(ctx context.Context, collection string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", remote.ErrValidation, err)
	}

	s.mu.Lock()
	s.seq++
	doc := document{
		id:        uuid.NewString(),
		createdAt: s.now(),
		seq:       s.seq,
		data:      data,
	}
	s.collections[collection] = append(s.collections[collection], doc)
	notify := s.collectNotifyLocked(collection, collection+"/"+doc.id)
	s.mu.Unlock()

	notify()
	return doc.id, nil
}

func (s *Store) SetDocument(ctx context.Context, path string, payload any) error {
	collection, docID, err := splitPath(path)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", remote.ErrValidation, err)
	}

	s.mu.Lock()
	docs := s.collections[collection]
	replaced := false
	for i := range docs {
		if docs[i].id == docID {
			docs[i].data = data // creation timestamp preserved
			replaced = true
			break
		}
	}
	if !replaced {
		s.seq++
		s.collections[collection] = append(docs, document{
			id:        docID,
			createdAt: s.now(),
			seq:       s.seq,
			data:      data,
		})
	}
	notify := s.collectNotifyLocked(collection, path)
	s.mu.Unlock()

	notify()
	return nil
}

func (s *Store) UpdateDocument(ctx context.Context, path string, fields map[string]any) error {
	collection, docID, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	docs := s.collections[collection]
	idx := -1
	for i := range docs {
		if docs[i].id == docID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", remote.ErrNotFound, path)
	}

	var merged map[string]any
	if err := json.Unmarshal(docs[idx].data, &merged); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", remote.ErrValidation, err)
	}
	docs[idx].data = data
	notify := s.collectNotifyLocked(collection, path)
	s.mu.Unlock()

	notify()
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, path string) error {
	collection, docID, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	docs := s.collections[collection]
	idx := -1
	for i := range docs {
		if docs[i].id == docID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Deleting an absent document is not an error.
		s.mu.Unlock()
		return nil
	}
	s.collections[collection] = append(docs[:idx], docs[idx+1:]...)
	notify := s.collectNotifyLocked(collection, path)
	s.mu.Unlock()

	notify()
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, collection string, field string, equals any) ([]remote.Document, error) {
	s.mu.Lock()
	docs := append([]document(nil), s.collections[collection]...)
	s.mu.Unlock()

	sortDocs(docs, remote.Ascending)

	var out []remote.Document
	for _, d := range docs {
		v, ok := fieldValue(d.data, field)
		if ok && reflect.DeepEqual(v, equals) {
			out = append(out, d.toRemote())
		}
	}
	return out, nil
}

// snapshotLocked materializes the complete ordered result set of q.
func (s *Store) snapshotLocked(q remote.Query) remote.Snapshot {
	docs := append([]document(nil), s.collections[q.Collection]...)
	sortDocs(docs, q.Direction)

	snap := remote.Snapshot{Docs: make([]remote.Document, 0, len(docs))}
	for _, d := range docs {
		snap.Docs = append(snap.Docs, d.toRemote())
	}
	return snap
}

// collectNotifyLocked captures the affected subscribers and their payloads
// under the lock and returns a closure that delivers outside of it, so a
// callback may call back into the store.
func (s *Store) collectNotifyLocked(collection, path string) func() {
	type colDelivery struct {
		sub  *colSub
		snap remote.Snapshot
	}
	type docDelivery struct {
		sub    *docSub
		doc    remote.Document
		exists bool
	}

	var cols []colDelivery
	for _, sub := range s.colSubs[collection] {
		cols = append(cols, colDelivery{sub: sub, snap: s.snapshotLocked(sub.query)})
	}

	var docsOut []docDelivery
	if subs := s.docSubs[path]; len(subs) > 0 {
		col, docID, _ := splitPath(path)
		doc, exists := s.findLocked(col, docID)
		for _, sub := range subs {
			docsOut = append(docsOut, docDelivery{sub: sub, doc: doc.toRemote(), exists: exists})
		}
	}

	return func() {
		for _, d := range cols {
			d.sub.deliver(d.snap)
		}
		for _, d := range docsOut {
			d.sub.deliver(d.doc, d.exists)
		}
	}
}

func (s *Store) findLocked(collection, docID string) (document, bool) {
	for _, d := range s.collections[collection] {
		if d.id == docID {
			return d, true
		}
	}
	return document{}, false
}

func sortDocs(docs []document, dir remote.Direction) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if dir == remote.Descending {
			a, b = b, a
		}
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.Before(b.createdAt)
		}
		return a.seq < b.seq
	})
}

// splitPath separates a document path into its collection and document ID,
// e.g. "posts/p1/comments/c1" → ("posts/p1/comments", "c1").
func splitPath(path string) (collection, docID string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("%w: malformed document path %q", remote.ErrValidation, path)
	}
	return path[:i], path[i+1:], nil
}

// fieldValue resolves a dotted field path like "author.uid" inside a JSON
// payload.
func fieldValue(data []byte, field string) (any, bool) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}

	parts := strings.Split(field, ".")
	var cur any = m
	for _, p := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
