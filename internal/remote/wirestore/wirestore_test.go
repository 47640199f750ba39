package wirestore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photofeed/internal/auth"
	"github.com/dmitrijs2005/photofeed/internal/logging"
	"github.com/dmitrijs2005/photofeed/internal/remote"
)

// gateway is a scriptable fake: each test supplies a handle func that
// answers client frames.
type gateway struct {
	t      *testing.T
	srv    *httptest.Server
	handle func(g *gateway, f clientFrame)

	mu     sync.Mutex
	conn   *websocket.Conn
	frames []clientFrame
}

func newGateway(t *testing.T, handle func(g *gateway, f clientFrame)) *gateway {
	t.Helper()
	g := &gateway{t: t, handle: handle}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		g.mu.Lock()
		g.conn = conn
		g.mu.Unlock()
		for {
			var f clientFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			g.mu.Lock()
			g.frames = append(g.frames, f)
			g.mu.Unlock()
			g.handle(g, f)
		}
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *gateway) url() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *gateway) send(f serverFrame) {
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NoError(g.t, g.conn.WriteJSON(f))
}

func (g *gateway) dropConn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	_ = g.conn.Close()
}

func (g *gateway) receivedOps() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ops := make([]string, 0, len(g.frames))
	for _, f := range g.frames {
		ops = append(ops, f.Op)
	}
	return ops
}

func (g *gateway) lastFrame(op string) (clientFrame, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.frames) - 1; i >= 0; i-- {
		if g.frames[i].Op == op {
			return g.frames[i], true
		}
	}
	return clientFrame{}, false
}

func dialTest(t *testing.T, g *gateway) *Client {
	t.Helper()
	c, err := Dial(context.Background(), g.url(), logging.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func aliceResult(id string) serverFrame {
	return serverFrame{
		ID:           id,
		Kind:         kindResult,
		Identity:     &wireIdentity{UID: "u1", DisplayName: "alice"},
		AccessToken:  "tok-1",
		RefreshToken: "refresh-1",
	}
}

func TestSignIn_AdoptsSessionAndNotifies(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		require.Equal(t, opSignIn, f.Op)
		g.send(aliceResult(f.ID))
	})
	c := dialTest(t, g)

	var seen []*auth.Identity
	var mu sync.Mutex
	c.OnIdentityChange(func(ident *auth.Identity) {
		mu.Lock()
		seen = append(seen, ident)
		mu.Unlock()
	})

	ident, err := c.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", ident.UID)
	require.Equal(t, "alice", ident.DisplayName)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	require.Nil(t, seen[0])
	require.Equal(t, "u1", seen[1].UID)

	sent, ok := g.lastFrame(opSignIn)
	require.True(t, ok)
	require.Equal(t, "alice@example.com", sent.Email)
	require.Equal(t, "pw", sent.Password)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		g.send(serverFrame{ID: f.ID, Kind: kindResult, Code: codeInvalidCredentials, Error: "wrong password"})
	})
	c := dialTest(t, g)

	_, err := c.SignIn(context.Background(), "alice@example.com", "nope")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthedCall_CarriesAccessToken(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opSignIn:
			g.send(aliceResult(f.ID))
		case opCreate:
			g.send(serverFrame{ID: f.ID, Kind: kindResult, DocID: "d1"})
		}
	})
	c := dialTest(t, g)

	_, err := c.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	id, err := c.CreateDocument(context.Background(), "posts", map[string]any{"caption": "hi"})
	require.NoError(t, err)
	require.Equal(t, "d1", id)

	sent, ok := g.lastFrame(opCreate)
	require.True(t, ok)
	require.Equal(t, "tok-1", sent.Token)
}

func TestAuthedCall_RetriesOnceAfterTokenExpiry(t *testing.T) {
	var rejected bool
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opSignIn:
			g.send(aliceResult(f.ID))
		case opCreate:
			if !rejected {
				rejected = true
				g.send(serverFrame{ID: f.ID, Kind: kindResult, Code: codeUnauthenticated, Error: msgTokenExpired})
				return
			}
			require.Equal(t, "tok-2", f.Token)
			g.send(serverFrame{ID: f.ID, Kind: kindResult, DocID: "d1"})
		case opRefresh:
			require.Equal(t, "refresh-1", f.RefreshToken)
			g.send(serverFrame{ID: f.ID, Kind: kindResult, AccessToken: "tok-2", RefreshToken: "refresh-2"})
		}
	})
	c := dialTest(t, g)

	_, err := c.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	id, err := c.CreateDocument(context.Background(), "posts", map[string]any{"caption": "hi"})
	require.NoError(t, err)
	require.Equal(t, "d1", id)
	require.Equal(t, []string{opSignIn, opCreate, opRefresh, opCreate}, g.receivedOps())
}

func TestSubscribeCollection_DeliversPushesUntilUnsubscribed(t *testing.T) {
	doc := wireDocument{ID: "p1", CreatedAt: time.Now().UTC(), Data: []byte(`{"caption":"hi"}`)}
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opSubscribeCollection:
			g.send(serverFrame{ID: f.ID, Kind: kindResult})
			g.send(serverFrame{Kind: kindSnapshot, Sub: f.Sub, Docs: []wireDocument{doc}})
		case opUnsubscribe:
			g.send(serverFrame{ID: f.ID, Kind: kindResult})
		}
	})
	c := dialTest(t, g)

	snaps := make(chan remote.Snapshot, 4)
	unsub, err := c.SubscribeCollection(context.Background(), remote.Query{
		Collection: "posts", OrderBy: "created_at", Direction: remote.Descending,
	}, func(snap remote.Snapshot, err error) {
		require.NoError(t, err)
		snaps <- snap
	})
	require.NoError(t, err)

	select {
	case snap := <-snaps:
		require.Len(t, snap.Docs, 1)
		require.Equal(t, "p1", snap.Docs[0].ID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	sent, ok := g.lastFrame(opSubscribeCollection)
	require.True(t, ok)
	require.Equal(t, "desc", sent.Direction)

	unsub()
	_, ok = g.lastFrame(opUnsubscribe)
	require.True(t, ok)

	// A push for the dead sub is dropped.
	g.send(serverFrame{Kind: kindSnapshot, Sub: sent.Sub, Docs: nil})
	select {
	case <-snaps:
		t.Fatal("delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeDocument_AbsenceAndPresence(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opSubscribeDocument:
			g.send(serverFrame{ID: f.ID, Kind: kindResult})
			g.send(serverFrame{Kind: kindDocument, Sub: f.Sub, Exists: false})
			g.send(serverFrame{Kind: kindDocument, Sub: f.Sub, Exists: true,
				Doc: &wireDocument{ID: "u1", Data: []byte(`{"photoURL":"x"}`)}})
		}
	})
	c := dialTest(t, g)

	type event struct {
		exists bool
		id     string
	}
	events := make(chan event, 4)
	_, err := c.SubscribeDocument(context.Background(), "users/u1", func(doc remote.Document, exists bool, err error) {
		require.NoError(t, err)
		events <- event{exists: exists, id: doc.ID}
	})
	require.NoError(t, err)

	require.Equal(t, event{exists: false}, <-events)
	require.Equal(t, event{exists: true, id: "u1"}, <-events)
}

func TestSubscription_TerminalErrorPush(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opSubscribeCollection:
			g.send(serverFrame{ID: f.ID, Kind: kindResult})
			g.send(serverFrame{Kind: kindSubError, Sub: f.Sub, Code: codePermissionDenied, Error: "no access"})
		}
	})
	c := dialTest(t, g)

	errs := make(chan error, 1)
	_, err := c.SubscribeCollection(context.Background(), remote.Query{
		Collection: "posts", OrderBy: "created_at",
	}, func(snap remote.Snapshot, err error) {
		if err != nil {
			errs <- err
		}
	})
	require.NoError(t, err)

	select {
	case err := <-errs:
		require.ErrorIs(t, err, remote.ErrPermissionDenied)
	case <-time.After(time.Second):
		t.Fatal("no terminal error delivered")
	}
}

func TestConnectionLoss_FailsSubscriptionsTerminally(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opSubscribeCollection:
			g.send(serverFrame{ID: f.ID, Kind: kindResult})
		}
	})
	c := dialTest(t, g)

	errs := make(chan error, 1)
	_, err := c.SubscribeCollection(context.Background(), remote.Query{
		Collection: "posts", OrderBy: "created_at",
	}, func(snap remote.Snapshot, err error) {
		if err != nil {
			errs <- err
		}
	})
	require.NoError(t, err)

	g.dropConn()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, remote.ErrUnavailable)
	case <-time.After(time.Second):
		t.Fatal("subscription survived a dead connection")
	}
}

func TestMapCode_GatewayErrorsBecomeSentinels(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opUpdate:
			g.send(serverFrame{ID: f.ID, Kind: kindResult, Code: codeNotFound, Error: "no such document"})
		case opDelete:
			g.send(serverFrame{ID: f.ID, Kind: kindResult, Code: codePermissionDenied, Error: "not owner"})
		}
	})
	c := dialTest(t, g)

	err := c.UpdateDocument(context.Background(), "posts/p1", map[string]any{"caption": "x"})
	require.ErrorIs(t, err, remote.ErrNotFound)

	err = c.DeleteDocument(context.Background(), "posts/p1")
	require.ErrorIs(t, err, remote.ErrPermissionDenied)
}

func TestUpdateProfile_RequiresSession(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		g.send(serverFrame{ID: f.ID, Kind: kindResult})
	})
	c := dialTest(t, g)

	name := "alice"
	err := c.UpdateProfile(context.Background(), auth.ProfileChanges{DisplayName: &name})
	require.ErrorIs(t, err, auth.ErrNotSignedIn)
}

func TestSignOut_DropsSessionAndNotifies(t *testing.T) {
	g := newGateway(t, func(g *gateway, f clientFrame) {
		switch f.Op {
		case opSignIn:
			g.send(aliceResult(f.ID))
		default:
			g.send(serverFrame{ID: f.ID, Kind: kindResult})
		}
	})
	c := dialTest(t, g)

	_, err := c.SignIn(context.Background(), "alice@example.com", "pw")
	require.NoError(t, err)

	var last *auth.Identity
	var mu sync.Mutex
	c.OnIdentityChange(func(ident *auth.Identity) {
		mu.Lock()
		last = ident
		mu.Unlock()
	})

	require.NoError(t, c.SignOut(context.Background()))
	mu.Lock()
	defer mu.Unlock()
	require.Nil(t, last)

	sent, ok := g.lastFrame(opSignOut)
	require.True(t, ok)
	require.Equal(t, "tok-1", sent.Token)
}

func TestTokenExpired(t *testing.T) {
	key := []byte("secret")

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()}).SignedString(key)
	require.NoError(t, err)
	require.True(t, tokenExpired(expired))

	fresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).SignedString(key)
	require.NoError(t, err)
	require.False(t, tokenExpired(fresh))

	require.False(t, tokenExpired("not-a-token"))
}
