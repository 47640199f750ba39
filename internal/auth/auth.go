// Package auth defines the contract for the external identity provider:
// credential-based sign-in/up/out and a stream of identity changes.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotSignedIn        = errors.New("not signed in")
)

// Identity is the signed-in account as reported by the provider.
type Identity struct {
	UID         string
	DisplayName string
	PhotoURL    string
}

// IdentityFunc receives the current identity, or nil after sign-out.
type IdentityFunc func(ident *Identity)

// UnsubscribeFunc stops identity-change delivery. Idempotent.
type UnsubscribeFunc func()

// ProfileChanges carries the optional fields of an UpdateProfile call.
// Nil fields are left unchanged.
type ProfileChanges struct {
	DisplayName *string
	PhotoURL    *string
}

// Provider is the external session/identity provider. Identity state is
// explicit: components that need the current identity receive it at call
// time instead of consulting a process-wide singleton.
type Provider interface {
	// OnIdentityChange registers a callback invoked with the current
	// identity immediately and again on every change.
	OnIdentityChange(fn IdentityFunc) UnsubscribeFunc

	// SignUp creates an account and signs it in.
	SignUp(ctx context.Context, email, password, displayName string) (*Identity, error)

	// SignIn authenticates with credentials.
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	// SignOut ends the session.
	SignOut(ctx context.Context) error

	// UpdateProfile mutates the signed-in identity's profile fields.
	UpdateProfile(ctx context.Context, changes ProfileChanges) error

	// DeleteAccount removes the signed-in account at the provider.
	DeleteAccount(ctx context.Context) error
}
