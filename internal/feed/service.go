package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/photofeed/internal/auth"
	"github.com/dmitrijs2005/photofeed/internal/blob"
	"github.com/dmitrijs2005/photofeed/internal/logging"
	"github.com/dmitrijs2005/photofeed/internal/remote"
	"github.com/dmitrijs2005/photofeed/internal/upload"
	"github.com/dmitrijs2005/photofeed/internal/view"
)

var (
	// ErrNotOwner — a mutation was attempted by an identity that does not
	// match the record's embedded author. This gate is a UI-level guard;
	// authoritative enforcement lives in the store's access-control policy.
	ErrNotOwner = errors.New("caller does not own the record")

	ErrEmptyComment = errors.New("comment text is empty")
)

// Limits holds the upload byte ceilings, enforced before any remote call.
type Limits struct {
	PostMaxBytes   int64
	AvatarMaxBytes int64
}

// DefaultLimits mirrors the product defaults: 1 MB for post images, 2 MB for
// avatars.
func DefaultLimits() Limits {
	return Limits{PostMaxBytes: 1_000_000, AvatarMaxBytes: 2_000_000}
}

// Service implements the feed's mutations against the remote store and blob
// storage. It holds no authoritative data; reads go through view
// subscriptions.
type Service struct {
	store    remote.Store
	blobs    blob.Store
	provider auth.Provider
	log      logging.Logger
	limits   Limits
}

func NewService(store remote.Store, blobs blob.Store, provider auth.Provider, log logging.Logger, limits Limits) *Service {
	return &Service{store: store, blobs: blobs, provider: provider, log: log, limits: limits}
}

func authorOf(ident auth.Identity) Author {
	return Author{UID: ident.UID, Username: ident.DisplayName}
}

// Register creates the account and its profile document. The profile is
// written under users/<uid> so avatars resolve for unauthenticated readers.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*auth.Identity, error) {
	ident, err := s.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	profile := Profile{UID: ident.UID, PhotoURL: ident.PhotoURL}
	if err := s.store.SetDocument(ctx, ProfilePath(ident.UID), profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return ident, nil
}

// NewPostUpload returns the upload controller for publishing one post. The
// commit hook creates the post document only after the blob URL resolves, so
// no post ever references a missing image.
func (s *Service) NewPostUpload(ident auth.Identity, caption string, onProgress blob.ProgressFunc) *upload.Controller {
	return upload.NewController(s.blobs, s.log, upload.Config{
		MaxBytes:   s.limits.PostMaxBytes,
		Path:       upload.PostPath(ident.UID),
		OnProgress: onProgress,
		Commit: func(ctx context.Context, url string) (string, error) {
			post := Post{Image: url, Caption: caption, Author: authorOf(ident)}
			return s.store.CreateDocument(ctx, PostsCollection, post)
		},
	})
}

// NewAvatarUpload returns the upload controller for replacing ident's
// avatar. The blob overwrites the fixed per-identity path; on commit the
// profile document and the provider profile both receive the new URL.
func (s *Service) NewAvatarUpload(ident auth.Identity, onProgress blob.ProgressFunc) *upload.Controller {
	return upload.NewController(s.blobs, s.log, upload.Config{
		MaxBytes:   s.limits.AvatarMaxBytes,
		Path:       upload.AvatarPath(ident.UID),
		OnProgress: onProgress,
		Commit: func(ctx context.Context, url string) (string, error) {
			err := s.store.SetDocument(ctx, ProfilePath(ident.UID), Profile{UID: ident.UID, PhotoURL: url})
			if err != nil {
				return "", fmt.Errorf("update profile document: %w", err)
			}
			if err := s.provider.UpdateProfile(ctx, auth.ProfileChanges{PhotoURL: &url}); err != nil {
				return "", fmt.Errorf("update provider profile: %w", err)
			}
			return ident.UID, nil
		},
	})
}

// AddComment appends a comment to a post. Any authenticated identity may
// comment; comments are immutable once created.
func (s *Service) AddComment(ctx context.Context, ident auth.Identity, postID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyComment
	}

	comment := Comment{Text: text, Author: authorOf(ident)}
	id, err := s.store.CreateDocument(ctx, CommentsCollection(postID), comment)
	if err != nil {
		return "", fmt.Errorf("add comment: %w", err)
	}
	return id, nil
}

// EditCaption replaces the caption of an owned post.
func (s *Service) EditCaption(ctx context.Context, ident auth.Identity, rec view.Record[Post], caption string) error {
	if rec.Item.Author.UID != ident.UID {
		return ErrNotOwner
	}

	err := s.store.UpdateDocument(ctx, PostPath(rec.ID), map[string]any{"caption": caption})
	if err != nil {
		return fmt.Errorf("edit caption: %w", err)
	}
	return nil
}

// DeletePost removes an owned post. Two-phase and best-effort-ordered: the
// document goes first, then the blob. A blob-deletion failure is logged and
// swallowed — the post is already gone, so the overall delete has succeeded
// and the blob is merely orphaned. Never retried.
func (s *Service) DeletePost(ctx context.Context, ident auth.Identity, rec view.Record[Post]) error {
	if rec.Item.Author.UID != ident.UID {
		return ErrNotOwner
	}

	if err := s.store.DeleteDocument(ctx, PostPath(rec.ID)); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if rec.Item.Image != "" {
		if err := s.blobs.DeleteByURL(ctx, rec.Item.Image); err != nil {
			s.log.Warn(ctx, "orphaned blob after post delete", "post", rec.ID, "url", rec.Item.Image, "error", err)
		}
	}
	return nil
}

// WatchAvatar subscribes to an author's profile document and reports avatar
// URL changes. Decoupled from post and comment subscriptions: no ordering is
// guaranteed relative to them.
func (s *Service) WatchAvatar(ctx context.Context, uid string, fn func(photoURL string)) (remote.UnsubscribeFunc, error) {
	return s.store.SubscribeDocument(ctx, ProfilePath(uid), func(doc remote.Document, exists bool, err error) {
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
}

// DeleteAccount removes every post authored by ident (cascading best-effort
// blob deletes), the profile document, and finally the provider account.
// Comments authored elsewhere stay, keeping their embedded author snapshot.
func (s *Service) DeleteAccount(ctx context.Context, ident auth.Identity) error {
	docs, err := s.store.ListDocuments(ctx, PostsCollection, "author.uid", ident.UID)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	for _, d := range docs {
		var p Post
		if uerr := d.Decode(&p); uerr != nil {
			s.log.Warn(ctx, "skipping undecodable post during account delete", "post", d.ID, "error", uerr)
		}
		if err := s.store.DeleteDocument(ctx, PostPath(d.ID)); err != nil {
			return fmt.Errorf("delete post %s: %w", d.ID, err)
		}
		if p.Image != "" {
			if err := s.blobs.DeleteByURL(ctx, p.Image); err != nil {
				s.log.Warn(ctx, "orphaned blob after account delete", "post", d.ID, "url", p.Image, "error", err)
			}
		}
	}

	if err := s.store.DeleteDocument(ctx, ProfilePath(ident.UID)); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if err := s.provider.DeleteAccount(ctx); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
