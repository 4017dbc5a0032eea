// SPDX-License-Identifier: MIT

// Package jobs orchestrates playlist refreshes: fetch, parse, transactional
// channel replacement and playlist metadata bookkeeping.
package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tvplayer/playlistd/internal/log"
	"github.com/tvplayer/playlistd/internal/metrics"
	"github.com/tvplayer/playlistd/internal/model"
	"github.com/tvplayer/playlistd/internal/playlist"
)

// Fetcher supplies raw playlist documents.
type Fetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Store is the storage contract the synchronizer mutates through.
type Store interface {
	ReplaceChannels(ctx context.Context, playlistID int64, channels []model.Channel) (int, error)
	MarkUpdated(ctx context.Context, id int64, at time.Time, channelCount int) error
	MarkError(ctx context.Context, id int64, message string, at time.Time) error
}

// Synchronizer executes one playlist's refresh to completion with exactly one
// outcome. Concurrent refreshes of the same playlist id are coalesced;
// different playlists refresh independently.
type Synchronizer struct {
	fetcher Fetcher
	store   Store
	group   singleflight.Group
	now     func() time.Time
}

// NewSynchronizer wires the synchronizer with its collaborators.
func NewSynchronizer(fetcher Fetcher, store Store) *Synchronizer {
	return &Synchronizer{
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
	}
}

// Refresh re-synchronizes the playlist's channels from its source document
// and returns the persisted channel count. On failure the previous channel
// set stays untouched; only the playlist's error annotation and attempt
// timestamp change.
func (s *Synchronizer) Refresh(ctx context.Context, pl model.Playlist) (int, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(pl.ID, 10), func() (any, error) {
		return s.refresh(ctx, pl)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *Synchronizer) refresh(ctx context.Context, pl model.Playlist) (int, error) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	logger.Info().
		Str("event", "refresh.start").
		Int64("playlist_id", pl.ID).
		Str("playlist", pl.Name).
		Msg("starting refresh")
	start := time.Now()

	content, rerr := s.loadContent(ctx, pl)
	if rerr == nil && strings.TrimSpace(content) == "" {
		rerr = refreshErr(KindEmptyContent, fmt.Errorf("playlist %q returned no content", pl.Name))
	}
	if rerr != nil {
		return 0, s.fail(ctx, pl, rerr, start)
	}

	format := playlist.DetectFormat(pl.URL, content)
	drafts, err := playlist.Parse(content, format)
	if err != nil {
		return 0, s.fail(ctx, pl, refreshErr(KindParseFailed, err), start)
	}

	channels := make([]model.Channel, 0, len(drafts))
	for _, d := range drafts {
		channels = append(channels, model.ChannelFromDraft(d, pl.ID))
	}

	// The only destructive step: one transaction replaces the channel set.
	count, err := s.store.ReplaceChannels(ctx, pl.ID, channels)
	if err != nil {
		return 0, s.fail(ctx, pl, refreshErr(KindStoreFailed, err), start)
	}

	// Metadata reflects the last durable outcome: applied only after the
	// channel transaction committed.
	if err := s.store.MarkUpdated(ctx, pl.ID, s.now(), count); err != nil {
		return 0, s.fail(ctx, pl, refreshErr(KindStoreFailed, err), start)
	}

	metrics.RecordRefreshSuccess(time.Since(start).Seconds())
	metrics.SetChannelCount(pl.ID, count)
	logger.Info().
		Str("event", "refresh.success").
		Int64("playlist_id", pl.ID).
		Str("playlist", pl.Name).
		Str("format", string(format)).
		Int("channels", count).
		Dur("duration", time.Since(start)).
		Msg("refresh complete")
	return count, nil
}

// loadContent resolves the raw document for the playlist. Remote playlists
// are fetched; local and file playlists read their stored body.
func (s *Synchronizer) loadContent(ctx context.Context, pl model.Playlist) (string, *RefreshError) {
	switch pl.Kind {
	case model.SourceRemote:
		url := strings.TrimSpace(pl.URL)
		if url == "" {
			return "", refreshErr(KindInvalidConfiguration,
				fmt.Errorf("remote playlist %q has no source URL", pl.Name))
		}
		body, err := s.fetcher.Get(ctx, url)
		if err != nil {
			return "", refreshErr(KindFetchFailed, err)
		}
		return body, nil
	case model.SourceLocal, model.SourceFile:
		return pl.Body, nil
	default:
		return "", refreshErr(KindInvalidConfiguration,
			fmt.Errorf("unsupported playlist kind %q", pl.Kind))
	}
}

// fail records the failed attempt on the playlist row and returns the typed
// error. Channel data is never touched on this path.
func (s *Synchronizer) fail(ctx context.Context, pl model.Playlist, rerr *RefreshError, start time.Time) error {
	logger := log.WithComponentFromContext(ctx, "jobs")
	metrics.RecordRefreshFailure(stage(rerr.Kind), time.Since(start).Seconds())

	if err := s.store.MarkError(ctx, pl.ID, rerr.Error(), s.now()); err != nil {
		logger.Error().
			Err(err).
			Str("event", "refresh.mark_error_failed").
			Int64("playlist_id", pl.ID).
			Msg("failed to persist refresh error")
	}

	logger.Warn().
		Err(rerr).
		Str("event", "refresh.failed").
		Int64("playlist_id", pl.ID).
		Str("playlist", pl.Name).
		Str("kind", string(rerr.Kind)).
		Msg("refresh failed")
	return rerr
}
