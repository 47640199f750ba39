package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/photofeed/internal/auth"
	"github.com/dmitrijs2005/photofeed/internal/blob"
	"github.com/dmitrijs2005/photofeed/internal/blob/memblob"
	"github.com/dmitrijs2005/photofeed/internal/blob/s3blob"
	"github.com/dmitrijs2005/photofeed/internal/cache"
	"github.com/dmitrijs2005/photofeed/internal/config"
	"github.com/dmitrijs2005/photofeed/internal/feed"
	"github.com/dmitrijs2005/photofeed/internal/logging"
	"github.com/dmitrijs2005/photofeed/internal/remote"
	"github.com/dmitrijs2005/photofeed/internal/remote/memstore"
	"github.com/dmitrijs2005/photofeed/internal/remote/wirestore"
	"github.com/dmitrijs2005/photofeed/internal/view"
)

type App struct {
	config   *config.Config
	svc      *feed.Service
	session  *feed.Session
	provider auth.Provider
	reader   *bufio.Reader

	// lastFeed maps the indexes of the most recent listing to records.
	lastFeed []view.Record[feed.Post]

	closers []func()
}

// NewApp wires the client against the configured gateway, or against
// in-process backends when demo is set.
func NewApp(ctx context.Context, cfg *config.Config, demo bool) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	a := &App{config: cfg, reader: bufio.NewReader(os.Stdin)}

	var (
		store remote.Store
		blobs blob.Store
	)
	if demo {
		mem := memstore.New()
		store = mem
		a.provider = mem
		blobs = memblob.New()
	} else {
		client, err := wirestore.Dial(ctx, cfg.GatewayURL, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		store = client
		a.provider = client

		blobs, err = s3blob.New(ctx, s3blob.Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			PresignTTL: cfg.PresignTTL,
		})
		if err != nil {
			return nil, err
		}
	}

	limits := feed.Limits{PostMaxBytes: cfg.PostMaxBytes, AvatarMaxBytes: cfg.AvatarMaxBytes}
	a.svc = feed.NewService(store, blobs, a.provider, logger, limits)

	sessionOpts := []feed.SessionOption{}
	if !demo {
		c, err := cache.Open(ctx, cfg.CachePath)
		if err != nil {
			logger.Warn(ctx, "snapshot cache disabled", "error", err)
		} else {
			a.closers = append(a.closers, func() { _ = c.Close() })
			sessionOpts = append(sessionOpts, feed.WithCache(c))
		}
	}

	a.session = feed.NewSession(store, a.provider, logger, sessionOpts...)
	a.session.Start(ctx)

	return a, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) Close() {
	a.session.Close()
	for _, fn := range a.closers {
		fn()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Identity() != nil
}

func (a *App) status() string {
	ident := a.session.Identity()
	if ident == nil {
		return "signed out"
	}
	return ident.DisplayName
}

// post resolves a feed index from the last listing.
func (a *App) post(n int) (view.Record[feed.Post], error) {
	if n < 1 || n > len(a.lastFeed) {
		return view.Record[feed.Post]{}, fmt.Errorf("no post %d in the last listing (run 'list' first)", n)
	}
	return a.lastFeed[n-1], nil
}
