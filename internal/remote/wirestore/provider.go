package wirestore

import (
	"context"

	"github.com/dmitrijs2005/photofeed/internal/auth"
)

func (c *Client) OnIdentityChange(fn auth.IdentityFunc) auth.UnsubscribeFunc {
	c.mu.Lock()
	id := c.nextIdentSub
	c.nextIdentSub++
	c.identSubs[id] = fn
	ident := cloneIdentity(c.ident)
	c.mu.Unlock()

	fn(ident)

	return func() {
		c.mu.Lock()
		delete(c.identSubs, id)
		c.mu.Unlock()
	}
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*auth.Identity, error) {
	resp, err := c.call(ctx, clientFrame{
		Op:          opSignUp,
		Email:       email,
		Password:    password,
		DisplayName: &displayName,
	})
	if err != nil {
		return nil, err
	}
	return c.adoptSession(resp), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*auth.Identity, error) {
	resp, err := c.call(ctx, clientFrame{Op: opSignIn, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return c.adoptSession(resp), nil
}

func (c *Client) SignOut(ctx context.Context) error {
	if _, err := c.authedCall(ctx, clientFrame{Op: opSignOut}); err != nil {
		return err
	}
	c.dropSession()
	return nil
}

func (c *Client) UpdateProfile(ctx context.Context, changes auth.ProfileChanges) error {
	c.mu.Lock()
	signedIn := c.ident != nil
	c.mu.Unlock()
	if !signedIn {
		return auth.ErrNotSignedIn
	}

	_, err := c.authedCall(ctx, clientFrame{
		Op:          opUpdateProfile,
		DisplayName: changes.DisplayName,
		PhotoURL:    changes.PhotoURL,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.ident != nil {
		ident := *c.ident
		if changes.DisplayName != nil {
			ident.DisplayName = *changes.DisplayName
		}
		if changes.PhotoURL != nil {
			ident.PhotoURL = *changes.PhotoURL
		}
		c.ident = &ident
	}
	subs, ident := c.identSnapshotLocked()
	c.mu.Unlock()

	notify(subs, ident)
	return nil
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	c.mu.Lock()
	signedIn := c.ident != nil
	c.mu.Unlock()
	if !signedIn {
		return auth.ErrNotSignedIn
	}

	if _, err := c.authedCall(ctx, clientFrame{Op: opDeleteAccount}); err != nil {
		return err
	}
	c.dropSession()
	return nil
}

func (c *Client) adoptSession(resp serverFrame) *auth.Identity {
	var ident *auth.Identity
	if resp.Identity != nil {
		ident = &auth.Identity{
			UID:         resp.Identity.UID,
			DisplayName: resp.Identity.DisplayName,
			PhotoURL:    resp.Identity.PhotoURL,
		}
	}

	c.mu.Lock()
	c.ident = ident
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	subs, current := c.identSnapshotLocked()
	c.mu.Unlock()

	notify(subs, current)
	return cloneIdentity(ident)
}

func (c *Client) dropSession() {
	c.mu.Lock()
	c.ident = nil
	c.accessToken = ""
	c.refreshToken = ""
	subs, _ := c.identSnapshotLocked()
	c.mu.Unlock()

	notify(subs, nil)
}

// identSnapshotLocked copies the subscriber list so callbacks run outside
// the client lock.
func (c *Client) identSnapshotLocked() ([]auth.IdentityFunc, *auth.Identity) {
	subs := make([]auth.IdentityFunc, 0, len(c.identSubs))
	for _, fn := range c.identSubs {
		subs = append(subs, fn)
	}
	return subs, cloneIdentity(c.ident)
}

func notify(subs []auth.IdentityFunc, ident *auth.Identity) {
	for _, fn := range subs {
		fn(cloneIdentity(ident))
	}
}

func cloneIdentity(ident *auth.Identity) *auth.Identity {
	if ident == nil {
		return nil
	}
	copied := *ident
	return &copied
}
