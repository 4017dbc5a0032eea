// SPDX-License-Identifier: MIT

// Command playlistd runs the playlist synchronization daemon: it keeps IPTV
// playlists and their channels in a local SQLite database, refreshes remote
// sources on a schedule and serves a management HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tvplayer/playlistd/internal/api"
	"github.com/tvplayer/playlistd/internal/config"
	"github.com/tvplayer/playlistd/internal/fetch"
	"github.com/tvplayer/playlistd/internal/jobs"
	"github.com/tvplayer/playlistd/internal/log"
	"github.com/tvplayer/playlistd/internal/persistence/sqlite"
	"github.com/tvplayer/playlistd/internal/playlist"
	"github.com/tvplayer/playlistd/internal/probe"
	"github.com/tvplayer/playlistd/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	exportID := flag.Int64("export", 0, "export the given playlist as M3U and exit")
	exportPath := flag.String("export-path", "playlist.m3u", "output path for -export")
	flag.Parse()

	if *showVersion {
		fmt.Printf("playlistd %s (commit: %s, built: %s)\n",
			version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playlistd: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "playlistd"})
	logger := log.WithComponent("daemon")

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("addr", cfg.Listen).
		Str("db_path", cfg.DBPath).
		Msg("starting playlistd")

	db, err := sqlite.Open(cfg.DBPath, sqlite.DefaultConfig())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "db.open_failed").
			Str("db_path", cfg.DBPath).
			Msg("failed to open database")
	}
	defer func() { _ = db.Close() }()

	if err := sqlite.Migrate(ctx, db); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "db.migrate_failed").
			Msg("failed to migrate database schema")
	}
	if diags, err := sqlite.VerifyIntegrity(cfg.DBPath, "quick"); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "db.integrity_failed").
			Msg("database integrity check failed")
	} else if len(diags) > 0 {
		logger.Fatal().
			Strs("diagnostics", diags).
			Str("event", "db.corrupt").
			Msg("database failed integrity check")
	}

	store := sqlite.NewStore(db)

	if *exportID != 0 {
		if err := exportPlaylist(ctx, store, *exportID, *exportPath); err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "export.failed").
				Int64("playlist_id", *exportID).
				Msg("playlist export failed")
		}
		logger.Info().
			Str("event", "export.complete").
			Int64("playlist_id", *exportID).
			Str("path", *exportPath).
			Msg("playlist exported")
		return
	}

	client := fetch.New(cfg.FetchTimeout)
	synchronizer := jobs.NewSynchronizer(client, store)
	prober := probe.New(client, cfg.ProbeRPS, cfg.ProbeBurst)
	scheduler := jobs.NewScheduler(store, synchronizer, cfg.SchedulerInterval)

	go scheduler.Run(ctx)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api.NewServer(store, synchronizer, prober, cfg.ProbeConcurrency).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("event", "http.listen").
			Str("addr", cfg.Listen).
			Msg("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().
			Str("event", "shutdown.signal").
			Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().
				Err(err).
				Str("event", "http.serve_failed").
				Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().
			Err(err).
			Str("event", "shutdown.http_failed").
			Msg("http server shutdown failed")
	}

	logger.Info().
		Str("event", "shutdown.complete").
		Msg("playlistd stopped")
}

// exportPlaylist writes a playlist's channels to an M3U file atomically.
func exportPlaylist(ctx context.Context, store *sqlite.Store, id int64, path string) error {
	if _, err := store.Playlist(ctx, id); err != nil {
		return err
	}
	channels, err := store.ChannelsByPlaylist(ctx, id)
	if err != nil {
		return err
	}
	items := make([]playlist.Item, 0, len(channels))
	for _, c := range channels {
		items = append(items, playlist.Item{
			Name:  c.Name,
			TvgID: c.TvgID,
			Logo:  c.Logo,
			Group: c.Group,
			URL:   c.URL,
		})
	}
	return playlist.ExportFile(path, items)
}
