package wirestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photofeed/internal/remote"
)

// The subscription id is chosen client-side and registered before the frame
// is written, so a push racing the call result can never be dropped.

func (c *Client) SubscribeCollection(ctx context.Context, q remote.Query, fn remote.SnapshotFunc) (remote.UnsubscribeFunc, error) {
	subID := uuid.NewString()
	sub := &colSub{fn: fn}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, remote.ErrClosed
	}
	c.colSubs[subID] = sub
	c.mu.Unlock()

	_, err := c.authedCall(ctx, clientFrame{
		Op:         opSubscribeCollection,
		Sub:        subID,
		Collection: q.Collection,
		OrderBy:    q.OrderBy,
		Direction:  directionString(q.Direction),
	})
	if err != nil {
		c.mu.Lock()
		delete(c.colSubs, subID)
		c.mu.Unlock()
		return nil, err
	}

	return func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()

		c.mu.Lock()
		delete(c.colSubs, subID)
		c.mu.Unlock()
		c.unsubscribe(subID)
	}, nil
}

func (c *Client) SubscribeDocument(ctx context.Context, path string, fn remote.DocumentFunc) (remote.UnsubscribeFunc, error) {
	subID := uuid.NewString()
	sub := &docSub{fn: fn}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, remote.ErrClosed
	}
	c.docSubs[subID] = sub
	c.mu.Unlock()

	_, err := c.authedCall(ctx, clientFrame{
		Op:   opSubscribeDocument,
		Sub:  subID,
		Path: path,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.docSubs, subID)
		c.mu.Unlock()
		return nil, err
	}

	return func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()

		c.mu.Lock()
		delete(c.docSubs, subID)
		c.mu.Unlock()
		c.unsubscribe(subID)
	}, nil
}

// unsubscribe is best effort: the local handler is already detached, so a
// write failure only means the gateway keeps pushing to a dead sub until the
// connection drops.
func (c *Client) unsubscribe(subID string) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	if _, err := c.call(context.Background(), clientFrame{Op: opUnsubscribe, Sub: subID}); err != nil {
		c.log.Warn(context.Background(), "unsubscribe failed", "sub", subID, "error", err)
	}
}

func (c *Client) CreateDocument(ctx context.Context, collection string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode payload: %w", remote.ErrValidation, err)
	}
	resp, err := c.authedCall(ctx, clientFrame{Op: opCreate, Collection: collection, Payload: data})
	if err != nil {
		return "", err
	}
	return resp.DocID, nil
}

func (c *Client) SetDocument(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %w", remote.ErrValidation, err)
	}
	_, err = c.authedCall(ctx, clientFrame{Op: opSet, Path: path, Payload: data})
	return err
}

func (c *Client) UpdateDocument(ctx context.Context, path string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: encode fields: %w", remote.ErrValidation, err)
	}
	_, err = c.authedCall(ctx, clientFrame{Op: opUpdate, Path: path, Fields: data})
	return err
}

func (c *Client) DeleteDocument(ctx context.Context, path string) error {
	_, err := c.authedCall(ctx, clientFrame{Op: opDelete, Path: path})
	return err
}

func (c *Client) ListDocuments(ctx context.Context, collection string, field string, equals any) ([]remote.Document, error) {
	val, err := json.Marshal(equals)
	if err != nil {
		return nil, fmt.Errorf("%w: encode filter value: %w", remote.ErrValidation, err)
	}
	resp, err := c.authedCall(ctx, clientFrame{Op: opList, Collection: collection, Field: field, Equals: val})
	if err != nil {
		return nil, err
	}
	docs := make([]remote.Document, 0, len(resp.Docs))
	for _, d := range resp.Docs {
		docs = append(docs, d.toRemote())
	}
	return docs, nil
}
