package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photofeed/internal/auth"
)

// account is a demo-grade credential record. Passwords are held in the
// clear: memstore never leaves the process and is not a security boundary.
type account struct {
	uid         string
	email       string
	password    string
	displayName string
	photoURL    string
}

func (a *account) identity() *auth.Identity {
	return &auth.Identity{UID: a.uid, DisplayName: a.displayName, PhotoURL: a.photoURL}
}

type identSub struct {
	mu     sync.Mutex
	closed bool
	fn     auth.IdentityFunc
}

func (s *identSub) deliver(ident *auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(ident)
}

func (s *Store) OnIdentityChange(fn auth.IdentityFunc) auth.UnsubscribeFunc {
	sub := &identSub{fn: fn}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.identSubs[id] = sub
	current := s.currentIdentityLocked()
	s.mu.Unlock()

	sub.deliver(current)

	return func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()

		s.mu.Lock()
		delete(s.identSubs, id)
		s.mu.Unlock()
	}
}

func (s *Store) SignUp(ctx context.Context, email, password, displayName string) (*auth.Identity, error) {
	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("account %s already exists", email)
	}
	acc := &account{
		uid:         uuid.NewString(),
		email:       email,
		password:    password,
		displayName: displayName,
	}
	s.accounts[email] = acc
	s.current = acc
	notify, ident := s.identityChangedLocked()
	s.mu.Unlock()

	notify()
	return ident, nil
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*auth.Identity, error) {
	s.mu.Lock()
	acc, ok := s.accounts[email]
	if !ok || acc.password != password {
		s.mu.Unlock()
		return nil, auth.ErrInvalidCredentials
	}
	s.current = acc
	notify, ident := s.identityChangedLocked()
	s.mu.Unlock()

	notify()
	return ident, nil
}

func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	notify, _ := s.identityChangedLocked()
	s.mu.Unlock()

	notify()
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, changes auth.ProfileChanges) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return auth.ErrNotSignedIn
	}
	if changes.DisplayName != nil {
		s.current.displayName = *changes.DisplayName
	}
	if changes.PhotoURL != nil {
		s.current.photoURL = *changes.PhotoURL
	}
	notify, _ := s.identityChangedLocked()
	s.mu.Unlock()

	notify()
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return auth.ErrNotSignedIn
	}
	delete(s.accounts, s.current.email)
	s.current = nil
	notify, _ := s.identityChangedLocked()
	s.mu.Unlock()

	notify()
	return nil
}

func (s *Store) currentIdentityLocked() *auth.Identity {
	if s.current == nil {
		return nil
	}
	return s.current.identity()
}

// identityChangedLocked snapshots the subscriber set and returns a closure
// delivering the change outside the lock.
func (s *Store) identityChangedLocked() (func(), *auth.Identity) {
	ident := s.currentIdentityLocked()
	subs := make([]*identSub, 0, len(s.identSubs))
	for _, sub := range s.identSubs {
		subs = append(subs, sub)
	}
	return func() {
		for _, sub := range subs {
			sub.deliver(ident)
		}
	}, ident
}
