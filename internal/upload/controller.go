// Package upload drives a single blob upload to completion and publishes the
// terminal record, exposing progress for UI feedback.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/photofeed/internal/blob"
	"github.com/dmitrijs2005/photofeed/internal/logging"
)

// State of one upload attempt.
//
//	Idle → FileSelected → Uploading → Finalizing → Committed | Failed
//
// Cancel returns to Idle from any state except Finalizing and Committed:
// no remote side effect exists before Finalizing, so cancellation up to that
// point is always side-effect-free. Once the finalize step is issued the
// upload is treated as committed.
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StateUploading
	StateFinalizing
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileSelected:
		return "file selected"
	case StateUploading:
		return "uploading"
	case StateFinalizing:
		return "finalizing"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrFileTooLarge   = errors.New("file exceeds size limit")
	ErrEmptyFile      = errors.New("empty file")
	ErrNoFileSelected = errors.New("no file selected")
	ErrNotCancelable  = errors.New("upload already finalizing")
)

// File is the locally selected file for one upload attempt. It exists only
// client-side and is discarded on success or cancel.
type File struct {
	Name    string
	Size    int64
	Content io.Reader
}

// CommitFunc creates the terminal record once the durable blob URL has been
// resolved. It returns the store-assigned record ID.
type CommitFunc func(ctx context.Context, url string) (string, error)

// Config parameterizes a Controller for one upload flow.
type Config struct {
	// MaxBytes is the size ceiling enforced at Select time.
	MaxBytes int64

	// Path produces the storage path for the blob. Use PostPath for feed
	// images; avatars overwrite a fixed per-identity path.
	Path func() string

	// Commit publishes the terminal record. Called exactly once, and never
	// before the blob URL has been resolved.
	Commit CommitFunc

	// OnProgress receives upload progress in percent. May be nil.
	OnProgress blob.ProgressFunc
}

// PostPath returns a path generator for feed images owned by uid. The path
// is a function of the identity and a freshly generated random identifier —
// never of the filename — so repeated filenames from the same or different
// identities cannot collide.
func PostPath(uid string) func() string {
	return func() string {
		return fmt.Sprintf("images/%s/posts/%s", uid, uuid.NewString())
	}
}

// AvatarPath returns the fixed avatar path for uid. A new avatar overwrites
// the previous one.
func AvatarPath(uid string) func() string {
	path := fmt.Sprintf("images/%s/profile/%s", uid, uid)
	return func() string { return path }
}

// Controller is the optimistic upload state machine. One instance per
// in-flight upload; it is not reused across identities.
type Controller struct {
	blobs blob.Store
	log   logging.Logger
	cfg   Config

	mu      sync.Mutex
	state   State
	file    File
	cause   error
	percent int
	cancel  context.CancelFunc
	blobURL string
	record  string
}

func NewController(blobs blob.Store, log logging.Logger, cfg Config) *Controller {
	return &Controller{blobs: blobs, log: log, cfg: cfg}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress returns the last reported upload percentage.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.percent
}

// Cause returns the failure cause after StateFailed.
func (c *Controller) Cause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

// RecordID returns the created record's ID after StateCommitted.
func (c *Controller) RecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Select validates and stages a file. On a validation failure the state
// stays Idle and no remote call is ever attempted. Selecting again from
// FileSelected or Failed replaces the staged file.
func (c *Controller) Select(f File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle, StateFileSelected, StateFailed:
	default:
		return fmt.Errorf("cannot select a file while %s", c.state)
	}

	if f.Size <= 0 {
		return ErrEmptyFile
	}
	if c.cfg.MaxBytes > 0 && f.Size > c.cfg.MaxBytes {
		return ErrFileTooLarge
	}

	c.file = f
	c.cause = nil
	c.percent = 0
	c.state = StateFileSelected
	return nil
}

// Submit drives the staged file through Uploading, Finalizing and Committed.
// It blocks until a terminal state; run it in its own goroutine when the
// caller must stay responsive. The record is never created before the upload
// has completed and the blob URL has been resolved, so no published record
// can ever reference a non-existent blob.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateFileSelected {
		c.mu.Unlock()
		return ErrNoFileSelected
	}
	file := c.file
	path := c.cfg.Path()

	upCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateUploading
	c.mu.Unlock()
	defer cancel()

	h := c.blobs.Upload(upCtx, path, file.Content, file.Size, c.reportProgress)
	<-h.Done()
	if err := h.Err(); err != nil {
		c.fail(fmt.Errorf("upload: %w", err))
		return err
	}

	c.mu.Lock()
	if c.state != StateUploading {
		// Cancelled while the last bytes were in flight.
		c.mu.Unlock()
		return context.Canceled
	}
	c.state = StateFinalizing
	c.cancel = nil
	c.mu.Unlock()

	url, err := c.blobs.ResolveURL(ctx, path)
	if err != nil {
		c.fail(fmt.Errorf("resolve url: %w", err))
		return err
	}

	id, err := c.cfg.Commit(ctx, url)
	if err != nil {
		c.fail(fmt.Errorf("commit record: %w", err))
		return err
	}

	c.mu.Lock()
	c.blobURL = url
	c.record = id
	c.file = File{}
	c.state = StateCommitted
	c.mu.Unlock()
	c.log.Debug(ctx, "upload committed", "record", id, "path", path)
	return nil
}

// Cancel discards local state and returns to Idle. An in-flight upload is
// aborted. Not supported from Finalizing or Committed.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	switch c.state {
	case StateFinalizing, StateCommitted:
		c.mu.Unlock()
		return ErrNotCancelable
	}
	cancel := c.cancel
	c.cancel = nil
	c.file = File{}
	c.cause = nil
	c.percent = 0
	c.state = StateIdle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (c *Controller) reportProgress(percent int) {
	c.mu.Lock()
	if c.state != StateUploading || percent <= c.percent {
		c.mu.Unlock()
		return
	}
	c.percent = percent
	fn := c.cfg.OnProgress
	c.mu.Unlock()

	if fn != nil {
		fn(percent)
	}
}

func (c *Controller) fail(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUploading && c.state != StateFinalizing {
		return
	}
	c.state = StateFailed
	c.cause = cause
}
