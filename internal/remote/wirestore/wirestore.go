// Package wirestore speaks the realtime gateway's JSON-over-websocket
// protocol. One connection carries both the document store and the identity
// provider; calls are correlated by id, subscription pushes by a
// client-chosen subscription id.
package wirestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/photofeed/internal/auth"
	"github.com/dmitrijs2005/photofeed/internal/logging"
	"github.com/dmitrijs2005/photofeed/internal/remote"
)

type colSub struct {
	mu     sync.Mutex
	closed bool
	fn     remote.SnapshotFunc
}

func (s *colSub) deliver(snap remote.Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(snap, err)
}

type docSub struct {
	mu     sync.Mutex
	closed bool
	fn     remote.DocumentFunc
}

func (s *docSub) deliver(doc remote.Document, exists bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(doc, exists, err)
}

// Client implements remote.Store and auth.Provider over one gateway
// connection.
type Client struct {
	conn *websocket.Conn
	log  logging.Logger

	writeMu sync.Mutex

	mu           sync.Mutex
	pending      map[string]chan serverFrame
	colSubs      map[string]*colSub
	docSubs      map[string]*docSub
	identSubs    map[int]auth.IdentityFunc
	nextIdentSub int
	ident        *auth.Identity
	accessToken  string
	refreshToken string
	closed       bool
}

// Dial connects to the gateway and starts the frame dispatcher.
func Dial(ctx context.Context, url string, log logging.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", remote.ErrUnavailable, url, err)
	}

	c := &Client{
		conn:      conn,
		log:       log,
		pending:   map[string]chan serverFrame{},
		colSubs:   map[string]*colSub{},
		docSubs:   map[string]*docSub{},
		identSubs: map[int]auth.IdentityFunc{},
	}
	go c.readLoop()
	return c, nil
}

// Close tears the connection down. Every subscription receives a terminal
// remote.ErrClosed and pending calls fail.
func (c *Client) Close() error {
	c.fail(remote.ErrClosed)
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		var f serverFrame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.fail(fmt.Errorf("%w: connection lost: %w", remote.ErrUnavailable, err))
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f serverFrame) {
	switch f.Kind {
	case kindResult:
		c.mu.Lock()
		ch, ok := c.pending[f.ID]
		delete(c.pending, f.ID)
		c.mu.Unlock()
		if ok {
			ch <- f
		}

	case kindSnapshot:
		c.mu.Lock()
		sub := c.colSubs[f.Sub]
		c.mu.Unlock()
		if sub == nil {
			return
		}
		docs := make([]remote.Document, 0, len(f.Docs))
		for _, d := range f.Docs {
			docs = append(docs, d.toRemote())
		}
		sub.deliver(remote.Snapshot{Docs: docs}, nil)

	case kindDocument:
		c.mu.Lock()
		sub := c.docSubs[f.Sub]
		c.mu.Unlock()
		if sub == nil {
			return
		}
		var doc remote.Document
		if f.Doc != nil {
			doc = f.Doc.toRemote()
		}
		sub.deliver(doc, f.Exists, nil)

	case kindSubError:
		err := mapCode(f.Code, f.Error)
		c.mu.Lock()
		cs := c.colSubs[f.Sub]
		ds := c.docSubs[f.Sub]
		delete(c.colSubs, f.Sub)
		delete(c.docSubs, f.Sub)
		c.mu.Unlock()
		if cs != nil {
			cs.deliver(remote.Snapshot{}, err)
		}
		if ds != nil {
			ds.deliver(remote.Document{}, false, err)
		}

	default:
		c.log.Warn(context.Background(), "dropping unknown gateway frame", "kind", f.Kind)
	}
}

// fail finishes the client: pending calls and live subscriptions all receive
// the terminal error. Safe to call more than once.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = map[string]chan serverFrame{}
	colSubs := c.colSubs
	c.colSubs = map[string]*colSub{}
	docSubs := c.docSubs
	c.docSubs = map[string]*docSub{}
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- serverFrame{Kind: kindResult, Code: codeUnavailable, Error: err.Error()}
	}
	for _, sub := range colSubs {
		sub.deliver(remote.Snapshot{}, err)
	}
	for _, sub := range docSubs {
		sub.deliver(remote.Document{}, false, err)
	}
}

func (c *Client) call(ctx context.Context, f clientFrame) (serverFrame, error) {
	f.ID = uuid.NewString()
	ch := make(chan serverFrame, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return serverFrame{}, remote.ErrClosed
	}
	c.pending[f.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(f)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, f.ID)
		c.mu.Unlock()
		return serverFrame{}, fmt.Errorf("%w: write failed: %w", remote.ErrUnavailable, err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, f.ID)
		c.mu.Unlock()
		return serverFrame{}, ctx.Err()
	case resp := <-ch:
		if resp.Code != "" {
			return resp, mapCode(resp.Code, resp.Error)
		}
		return resp, nil
	}
}

// authedCall attaches the access token, refreshing it once if the gateway
// reports it expired.
func (c *Client) authedCall(ctx context.Context, f clientFrame) (serverFrame, error) {
	c.mu.Lock()
	token, refresh := c.accessToken, c.refreshToken
	c.mu.Unlock()

	if token != "" && tokenExpired(token) && refresh != "" {
		if err := c.refreshTokens(ctx, refresh); err == nil {
			c.mu.Lock()
			token = c.accessToken
			c.mu.Unlock()
		}
	}

	f.Token = token
	resp, err := c.call(ctx, f)
	if err == nil || resp.Code != codeUnauthenticated || resp.Error != msgTokenExpired || refresh == "" {
		return resp, err
	}

	if rerr := c.refreshTokens(ctx, refresh); rerr != nil {
		return resp, err
	}
	c.mu.Lock()
	f.Token = c.accessToken
	c.mu.Unlock()
	return c.call(ctx, f)
}

func (c *Client) refreshTokens(ctx context.Context, refreshToken string) error {
	resp, err := c.call(ctx, clientFrame{Op: opRefresh, RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	c.mu.Unlock()
	return nil
}

// tokenExpired inspects the unverified exp claim; verification is the
// gateway's job.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

func mapCode(code, msg string) error {
	switch code {
	case codeNotFound:
		return fmt.Errorf("%w: %s", remote.ErrNotFound, msg)
	case codePermissionDenied, codeUnauthenticated:
		return fmt.Errorf("%w: %s", remote.ErrPermissionDenied, msg)
	case codeInvalidArgument:
		return fmt.Errorf("%w: %s", remote.ErrValidation, msg)
	case codeInvalidCredentials:
		return fmt.Errorf("%w: %s", auth.ErrInvalidCredentials, msg)
	case codeUnavailable:
		return fmt.Errorf("%w: %s", remote.ErrUnavailable, msg)
	default:
		return fmt.Errorf("gateway error %s: %s", code, msg)
	}
}
