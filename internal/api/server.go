// SPDX-License-Identifier: MIT

// Package api exposes the HTTP management surface of playlistd.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tvplayer/playlistd/internal/jobs"
	"github.com/tvplayer/playlistd/internal/model"
	"github.com/tvplayer/playlistd/internal/probe"
)

// Store is the storage surface the API reads and mutates.
type Store interface {
	Playlists(ctx context.Context) ([]model.Playlist, error)
	Playlist(ctx context.Context, id int64) (model.Playlist, error)
	CreatePlaylist(ctx context.Context, p model.Playlist) (int64, error)
	DeletePlaylist(ctx context.Context, id int64) error
	DefaultPlaylist(ctx context.Context) (model.Playlist, error)
	SetDefault(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetSortOrder(ctx context.Context, id int64, sortOrder int) error

	ChannelsByPlaylist(ctx context.Context, playlistID int64) ([]model.Channel, error)
	Channel(ctx context.Context, id int64) (model.Channel, error)
	FavoriteChannels(ctx context.Context) ([]model.Channel, error)
	RecentlyPlayedChannels(ctx context.Context, limit int) ([]model.Channel, error)
	SearchChannels(ctx context.Context, query string) ([]model.Channel, error)
	SetFavorite(ctx context.Context, channelID int64, favorite bool) error
	UpdatePlayback(ctx context.Context, channelID int64, position time.Duration, at time.Time) error
	UpdateAvailability(ctx context.Context, channelID int64, available bool, message string) error
}

// Server wires the API handlers with their collaborators.
type Server struct {
	store            Store
	sync             jobs.Refresher
	prober           *probe.Prober
	probeConcurrency int
}

// NewServer builds the API server. All collaborators are passed explicitly;
// there is no ambient global state. probeConcurrency bounds bulk probe
// fan-out.
func NewServer(store Store, sync jobs.Refresher, prober *probe.Prober, probeConcurrency int) *Server {
	return &Server{
		store:            store,
		sync:             sync,
		prober:           prober,
		probeConcurrency: probeConcurrency,
	}
}

// Router assembles the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(httprate.LimitByIP(120, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/playlists", s.handleListPlaylists)
		r.Post("/playlists", s.handleCreatePlaylist)
		r.Get("/playlists/default", s.handleDefaultPlaylist)
		r.Delete("/playlists/{id}", s.handleDeletePlaylist)
		r.Post("/playlists/{id}/refresh", s.handleRefreshPlaylist)
		r.Post("/playlists/{id}/default", s.handleSetDefault)
		r.Post("/playlists/{id}/active", s.handleSetActive)
		r.Post("/playlists/{id}/order", s.handleSetSortOrder)
		r.Get("/playlists/{id}/channels", s.handlePlaylistChannels)
		r.Post("/playlists/{id}/probe", s.handleProbePlaylist)
		r.Get("/playlists/{id}.m3u", s.handleExportM3U)

		r.Get("/channels/favorites", s.handleFavorites)
		r.Get("/channels/recent", s.handleRecent)
		r.Get("/channels/search", s.handleSearch)
		r.Post("/channels/{id}/favorite", s.handleSetFavorite)
		r.Post("/channels/{id}/position", s.handlePlayback)
		r.Post("/channels/{id}/probe", s.handleProbeChannel)

		r.Post("/probe", s.handleProbeURL)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
