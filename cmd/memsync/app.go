package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Zuo-Peng/memsync/internal/config"
	"github.com/Zuo-Peng/memsync/internal/cursor"
	"github.com/Zuo-Peng/memsync/internal/logging"
	"github.com/Zuo-Peng/memsync/internal/memstore"
	"github.com/Zuo-Peng/memsync/internal/syncer"
	"github.com/Zuo-Peng/memsync/internal/transcript"
	"github.com/rs/zerolog"
)

// app holds what every command builds from configuration.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func newApp(debug bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New(os.Stderr, debug || cfg.Debug)
	if cfg.Path != "" {
		log.Debug().Str("path", cfg.Path).Msg("config loaded")
	}
	return &app{cfg: cfg, log: log}, nil
}

// client returns a store client whose requests are bounded by timeout.
func (a *app) client(timeout time.Duration) *memstore.Client {
	return memstore.New(memstore.Options{
		BaseURL:        a.cfg.URL,
		Timeout:        timeout,
		ProbeTimeout:   a.cfg.ProbeTimeout.Duration,
		MaxRetries:     a.cfg.MaxRetries,
		RetryBaseDelay: a.cfg.RetryBaseDelay.Duration,
	}, logging.Component(a.log, "memstore"))
}

func (a *app) openCursors(ctx context.Context) (cursor.Store, error) {
	return cursor.Open(ctx, cursor.Options{
		Backend:     a.cfg.CursorBackend,
		Dir:         a.cfg.OffsetDir,
		SQLitePath:  a.cfg.SQLitePath,
		RedisURL:    a.cfg.RedisURL,
		RedisPrefix: a.cfg.RedisPrefix,
		Retention:   a.cfg.Retention.Duration,
	}, logging.Component(a.log, "cursor"))
}

func (a *app) coordinator(cursors cursor.Store, client *memstore.Client) *syncer.Coordinator {
	return syncer.New(cursors,
		transcript.NewReader(logging.Component(a.log, "transcript")),
		client,
		syncer.Options{UserID: a.cfg.UserID, GroupPrefix: a.cfg.GroupPrefix},
		logging.Component(a.log, "syncer"))
}
