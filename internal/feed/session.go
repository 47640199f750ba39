package feed

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/photofeed/internal/auth"
	"github.com/dmitrijs2005/photofeed/internal/cache"
	"github.com/dmitrijs2005/photofeed/internal/logging"
	"github.com/dmitrijs2005/photofeed/internal/remote"
	"github.com/dmitrijs2005/photofeed/internal/view"
)

// Session ties the subscription lifecycle to the identity lifecycle. The
// current identity is explicit state owned here and passed into components
// at call time; there is no process-wide signed-in singleton.
//
// On sign-in the feed subscription is mounted; on sign-out or identity
// switch every open view is closed first, so a stale identity's snapshots
// can never leak into the next identity's lists.
type Session struct {
	store    remote.Store
	provider auth.Provider
	log      logging.Logger
	cache    *cache.Cache

	mu       sync.Mutex
	started  bool
	ident    *auth.Identity
	feed     *view.View[Post]
	feedStop chan struct{}
	comments map[string]*view.View[Comment]
	avatars  map[string]remote.UnsubscribeFunc
	unsub    auth.UnsubscribeFunc

	updates chan []view.Record[Post]
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCache enables warm-starting the feed from a local snapshot cache.
func WithCache(c *cache.Cache) SessionOption {
	return func(s *Session) { s.cache = c }
}

func NewSession(store remote.Store, provider auth.Provider, log logging.Logger, opts ...SessionOption) *Session {
	s := &Session{
		store:    store,
		provider: provider,
		log:      log,
		comments: map[string]*view.View[Comment]{},
		avatars:  map[string]remote.UnsubscribeFunc{},
		updates:  make(chan []view.Record[Post], 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start registers the identity watcher. The watcher fires immediately with
// the current identity, mounting the feed if already signed in.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	unsub := s.provider.OnIdentityChange(func(ident *auth.Identity) {
		s.handleIdentity(ctx, ident)
	})
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()
}

// Identity returns the identity the session is currently mounted for, or nil.
func (s *Session) Identity() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident
}

// Feed returns the current ordered feed records (newest first), or nil when
// signed out.
func (s *Session) Feed() []view.Record[Post] {
	s.mu.Lock()
	v := s.feed
	s.mu.Unlock()
	if v == nil {
		return nil
	}
	return v.Records()
}

// FeedUpdates notifies after each feed change, coalescing to the latest list.
func (s *Session) FeedUpdates() <-chan []view.Record[Post] {
	return s.updates
}

// FeedErr reports a terminal feed subscription error, if any.
func (s *Session) FeedErr() error {
	s.mu.Lock()
	v := s.feed
	s.mu.Unlock()
	if v == nil {
		return nil
	}
	return v.Err()
}

// OpenComments mounts the comment thread of a post, oldest first. Repeated
// opens for the same post return the existing view.
func (s *Session) OpenComments(ctx context.Context, postID string) (*view.View[Comment], error) {
	s.mu.Lock()
	if v, ok := s.comments[postID]; ok {
		s.mu.Unlock()
		return v, nil
	}
	v := view.New[Comment](s.store, s.log)
	s.comments[postID] = v
	s.mu.Unlock()

	err := v.Open(ctx, remote.Query{
		Collection: CommentsCollection(postID),
		OrderBy:    "created_at",
		Direction:  remote.Ascending,
	})
	if err != nil {
		s.mu.Lock()
		delete(s.comments, postID)
		s.mu.Unlock()
		return nil, err
	}
	return v, nil
}

// CloseComments unmounts a post's comment thread. Idempotent.
func (s *Session) CloseComments(postID string) {
	s.mu.Lock()
	v, ok := s.comments[postID]
	delete(s.comments, postID)
	s.mu.Unlock()
	if ok {
		v.Close()
	}
}

// WatchAvatar mounts an avatar watch for an author, tracked so Close tears
// it down with everything else. One watch per author at a time.
func (s *Session) WatchAvatar(ctx context.Context, uid string, fn func(photoURL string)) error {
	s.mu.Lock()
	if _, ok := s.avatars[uid]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	unsub, err := s.store.SubscribeDocument(ctx, ProfilePath(uid), func(doc remote.Document, exists bool, err error) {
		if err != nil {
			s.log.Error(ctx, "avatar subscription failed", "uid", uid, "error", err)
			return
		}
		if !exists {
			fn("")
			return
		}
		var p Profile
		if uerr := doc.Decode(&p); uerr != nil {
			s.log.Warn(ctx, "skipping undecodable profile", "uid", uid, "error", uerr)
			return
		}
		fn(p.PhotoURL)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.avatars[uid] = unsub
	s.mu.Unlock()
	return nil
}

// Close tears the whole session down: identity watch, feed, comment threads
// and avatar watches. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	teardown := s.teardownLocked()
	s.ident = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	teardown()
}

func (s *Session) handleIdentity(ctx context.Context, ident *auth.Identity) {
	s.mu.Lock()
	switch {
	case ident == nil && s.ident == nil:
		s.mu.Unlock()
		return
	case ident != nil && s.ident != nil && ident.UID == s.ident.UID:
		// Profile-only change (display name, avatar); subscriptions stay.
		s.ident = ident
		s.mu.Unlock()
		return
	}

	// Close on every teardown path before mounting for the next identity.
	teardown := s.teardownLocked()
	s.ident = ident
	s.mu.Unlock()
	teardown()

	if ident == nil {
		return
	}
	s.mountFeed(ctx, ident.UID)
}

func (s *Session) mountFeed(ctx context.Context, uid string) {
	v := view.New[Post](s.store, s.log)

	var cached []view.Record[Post]
	primed := false
	if s.cache != nil {
		if ok, err := s.cache.Load(ctx, PostsCollection, &cached); err != nil {
			s.log.Warn(ctx, "feed cache unavailable", "error", err)
		} else {
			primed = ok
		}
	}

	err := v.Open(ctx, remote.Query{
		Collection: PostsCollection,
		OrderBy:    "created_at",
		Direction:  remote.Descending,
	})
	if err != nil {
		s.log.Error(ctx, "feed subscription failed", "error", err)
		return
	}
	if primed {
		// The first live snapshot still wins if it raced us here.
		v.Prime(cached)
	}

	stop := make(chan struct{})
	s.mu.Lock()
	if s.ident == nil || s.ident.UID != uid {
		// Identity changed while we were subscribing.
		s.mu.Unlock()
		v.Close()
		return
	}
	s.feed = v
	s.feedStop = stop
	s.mu.Unlock()

	go s.forwardFeed(ctx, v, stop)
}

// forwardFeed tees feed updates into the snapshot cache and republishes them
// on the session's own coalescing channel.
func (s *Session) forwardFeed(ctx context.Context, v *view.View[Post], stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case recs := <-v.Updates():
			if s.cache != nil {
				if err := s.cache.Save(ctx, PostsCollection, recs); err != nil {
					s.log.Warn(ctx, "feed cache write failed", "error", err)
				}
			}
			select {
			case <-s.updates:
			default:
			}
			select {
			case s.updates <- recs:
			default:
			}
		}
	}
}

// teardownLocked detaches every mounted view and returns a closure that
// closes them outside the lock.
func (s *Session) teardownLocked() func() {
	feed := s.feed
	stop := s.feedStop
	s.feed = nil
	s.feedStop = nil

	comments := s.comments
	s.comments = map[string]*view.View[Comment]{}

	avatars := s.avatars
	s.avatars = map[string]remote.UnsubscribeFunc{}

	return func() {
		if stop != nil {
			close(stop)
		}
		if feed != nil {
			feed.Close()
		}
		for _, v := range comments {
			v.Close()
		}
		for _, unsub := range avatars {
			unsub()
		}
	}
}
