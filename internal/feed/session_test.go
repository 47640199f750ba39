package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photofeed/internal/cache"
	"github.com/dmitrijs2005/photofeed/internal/remote"
	"github.com/dmitrijs2005/photofeed/internal/view"
)

// lazyStore never delivers a snapshot, so a primed cache is the only
// source of records.
type lazyStore struct{}

func (lazyStore) SubscribeCollection(ctx context.Context, q remote.Query, fn remote.SnapshotFunc) (remote.UnsubscribeFunc, error) {
	return func() {}, nil
}

func (lazyStore) SubscribeDocument(ctx context.Context, path string, fn remote.DocumentFunc) (remote.UnsubscribeFunc, error) {
	return func() {}, nil
}

func (lazyStore) CreateDocument(ctx context.Context, collection string, payload any) (string, error) {
	return "", nil
}

func (lazyStore) SetDocument(ctx context.Context, path string, payload any) error { return nil }

func (lazyStore) UpdateDocument(ctx context.Context, path string, fields map[string]any) error {
	return nil
}

func (lazyStore) DeleteDocument(ctx context.Context, path string) error { return nil }

func (lazyStore) ListDocuments(ctx context.Context, collection string, field string, equals any) ([]remote.Document, error) {
	return nil, nil
}

func newSession(t *testing.T, f *fixture, opts ...SessionOption) *Session {
	t.Helper()
	s := NewSession(f.store, f.store, f.log, opts...)
	s.Start(context.Background())
	t.Cleanup(s.Close)
	return s
}

func TestSession_MountsFeedOnSignIn(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "alice")
	post := f.publish(t, alice, "hello")

	s := newSession(t, f)

	require.NotNil(t, s.Identity())
	require.Equal(t, alice.UID, s.Identity().UID)

	recs := s.Feed()
	require.Len(t, recs, 1)
	require.Equal(t, post.ID, recs[0].ID)
	require.Equal(t, "hello", recs[0].Item.Caption)
}

func TestSession_SignOutUnmountsFeed(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "alice")
	f.publish(t, alice, "hello")

	s := newSession(t, f)
	require.Len(t, s.Feed(), 1)

	require.NoError(t, f.store.SignOut(context.Background()))

	require.Nil(t, s.Identity())
	require.Nil(t, s.Feed())
}

func TestSession_IdentitySwitchRemounts(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "alice")
	f.publish(t, alice, "from alice")

	s := newSession(t, f)
	require.Equal(t, alice.UID, s.Identity().UID)

	bob := f.register(t, "bob@example.com", "bob")
	require.Equal(t, bob.UID, s.Identity().UID)

	// The remounted feed serves the new identity from a fresh subscription.
	recs := s.Feed()
	require.Len(t, recs, 1)
	require.Equal(t, "from alice", recs[0].Item.Caption)
}

func TestSession_FeedUpdatesForwarded(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "alice")
	s := newSession(t, f)

	f.publish(t, alice, "first")

	select {
	case recs := <-s.FeedUpdates():
		require.NotEmpty(t, recs)
		require.Equal(t, "first", recs[len(recs)-1].Item.Caption)
	case <-time.After(time.Second):
		t.Fatal("no feed update delivered")
	}
}

func TestSession_CommentsOldestFirstAndIdempotentOpen(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "alice")
	post := f.publish(t, alice, "hello")

	s := newSession(t, f)

	v, err := s.OpenComments(context.Background(), post.ID)
	require.NoError(t, err)

	_, err = f.svc.AddComment(context.Background(), alice, post.ID, "one")
	require.NoError(t, err)
	_, err = f.svc.AddComment(context.Background(), alice, post.ID, "two")
	require.NoError(t, err)

	recs := v.Records()
	require.Len(t, recs, 2)
	require.Equal(t, "one", recs[0].Item.Text)
	require.Equal(t, "two", recs[1].Item.Text)

	again, err := s.OpenComments(context.Background(), post.ID)
	require.NoError(t, err)
	require.Same(t, v, again)

	s.CloseComments(post.ID)
	s.CloseComments(post.ID)
}

func TestSession_SignOutClosesComments(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "alice")
	post := f.publish(t, alice, "hello")

	s := newSession(t, f)
	v, err := s.OpenComments(context.Background(), post.ID)
	require.NoError(t, err)

	require.NoError(t, f.store.SignOut(context.Background()))

	// The closed view no longer tracks the thread.
	_, err = f.store.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	_, err = f.svc.AddComment(context.Background(), alice, post.ID, "late")
	require.NoError(t, err)
	require.Empty(t, v.Records())
}

func TestSession_WatchAvatarForwardsProfileChanges(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "alice")

	s := newSession(t, f)

	var urls []string
	require.NoError(t, s.WatchAvatar(context.Background(), alice.UID, func(photoURL string) {
		urls = append(urls, photoURL)
	}))
	require.Equal(t, []string{""}, urls)

	require.NoError(t, f.store.UpdateDocument(context.Background(), ProfilePath(alice.UID),
		map[string]any{"photoURL": "https://cdn.example.com/a.jpg"}))
	require.Equal(t, []string{"", "https://cdn.example.com/a.jpg"}, urls)

	s.Close()
	require.NoError(t, f.store.UpdateDocument(context.Background(), ProfilePath(alice.UID),
		map[string]any{"photoURL": "https://cdn.example.com/b.jpg"}))
	require.Len(t, urls, 2)
}

func TestSession_CacheWrittenOnFeedUpdates(t *testing.T) {
	f := newFixture(t)
	c, err := cache.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	alice := f.register(t, "alice@example.com", "alice")
	_ = newSession(t, f, WithCache(c))

	post := f.publish(t, alice, "cached")

	require.Eventually(t, func() bool {
		var recs []view.Record[Post]
		ok, err := c.Load(context.Background(), PostsCollection, &recs)
		if err != nil || !ok {
			return false
		}
		return len(recs) == 1 && recs[0].ID == post.ID
	}, time.Second, 10*time.Millisecond)
}

func TestSession_CacheWarmStartBeforeFirstSnapshot(t *testing.T) {
	f := newFixture(t)
	c, err := cache.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	seed := []view.Record[Post]{{
		ID:        "p1",
		CreatedAt: time.Now().UTC(),
		Item:      Post{Caption: "from cache", Image: "https://cdn.example.com/p1.jpg"},
	}}
	require.NoError(t, c.Save(context.Background(), PostsCollection, seed))

	f.register(t, "alice@example.com", "alice")

	s := NewSession(lazyStore{}, f.store, f.log, WithCache(c))
	s.Start(context.Background())
	t.Cleanup(s.Close)

	recs := s.Feed()
	require.Len(t, recs, 1)
	require.Equal(t, "from cache", recs[0].Item.Caption)
}

func TestSession_CloseIdempotent(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", "alice")

	s := NewSession(f.store, f.store, f.log)
	s.Start(context.Background())
	s.Close()
	s.Close()
	require.Nil(t, s.Feed())
}
