// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tvplayer/playlistd/internal/jobs"
	"github.com/tvplayer/playlistd/internal/log"
	"github.com/tvplayer/playlistd/internal/metrics"
	"github.com/tvplayer/playlistd/internal/model"
	"github.com/tvplayer/playlistd/internal/persistence/sqlite"
	"github.com/tvplayer/playlistd/internal/playlist"
)

// recentLimit caps the /channels/recent response size.
const recentLimit = 50

type playlistResponse struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	URL                string `json:"url,omitempty"`
	Kind               string `json:"kind"`
	Active             bool   `json:"active"`
	Default            bool   `json:"default"`
	AutoRefresh        bool   `json:"auto_refresh"`
	RefreshIntervalSec int64  `json:"refresh_interval_seconds"`
	LastUpdatedMs      int64  `json:"last_updated_ms"`
	LastAttemptMs      int64  `json:"last_attempt_ms"`
	ChannelCount       int    `json:"channel_count"`
	LastError          string `json:"last_error,omitempty"`
	SortOrder          int    `json:"sort_order"`
}

type channelResponse struct {
	ID           int64  `json:"id"`
	PlaylistID   int64  `json:"playlist_id"`
	Position     int    `json:"position"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	Logo         string `json:"logo,omitempty"`
	Group        string `json:"group,omitempty"`
	TvgID        string `json:"tvg_id,omitempty"`
	Favorite     bool   `json:"favorite"`
	Available    bool   `json:"available"`
	LastError    string `json:"last_error,omitempty"`
	PlayCount    int    `json:"play_count"`
	LastPlayedMs int64  `json:"last_played_ms"`
	PositionMs   int64  `json:"last_position_ms"`
}

func toPlaylistResponse(p model.Playlist) playlistResponse {
	return playlistResponse{
		ID:                 p.ID,
		Name:               p.Name,
		URL:                p.URL,
		Kind:               string(p.Kind),
		Active:             p.Active,
		Default:            p.Default,
		AutoRefresh:        p.AutoRefresh,
		RefreshIntervalSec: int64(p.RefreshInterval / time.Second),
		LastUpdatedMs:      unixMillis(p.LastUpdated),
		LastAttemptMs:      unixMillis(p.LastAttempt),
		ChannelCount:       p.ChannelCount,
		LastError:          p.LastError,
		SortOrder:          p.SortOrder,
	}
}

func toChannelResponse(c model.Channel) channelResponse {
	return channelResponse{
		ID:           c.ID,
		PlaylistID:   c.PlaylistID,
		Position:     c.Position,
		Name:         c.Name,
		URL:          c.URL,
		Logo:         c.Logo,
		Group:        c.Group,
		TvgID:        c.TvgID,
		Favorite:     c.Favorite,
		Available:    c.Available,
		LastError:    c.LastError,
		PlayCount:    c.PlayCount,
		LastPlayedMs: unixMillis(c.LastPlayedAt),
		PositionMs:   c.LastPosition.Milliseconds(),
	}
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError translates storage failures: missing rows become 404,
// everything else is a 500 with the detail kept out of the response body.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "storage error")
}

// refreshStatus maps a refresh failure to an HTTP status. Configuration and
// document problems are the caller's to fix; upstream and storage failures
// are not.
func refreshStatus(err error) int {
	switch jobs.KindOf(err) {
	case jobs.KindInvalidConfiguration, jobs.KindParseFailed:
		return http.StatusUnprocessableEntity
	case jobs.KindFetchFailed, jobs.KindEmptyContent:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.Playlists(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]playlistResponse, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, toPlaylistResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type createPlaylistRequest struct {
	Name               string `json:"name"`
	URL                string `json:"url"`
	Body               string `json:"body"`
	Kind               string `json:"kind"`
	AutoRefresh        *bool  `json:"auto_refresh"`
	RefreshIntervalSec int64  `json:"refresh_interval_seconds"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var pl model.Playlist
	switch model.SourceKind(req.Kind) {
	case model.SourceRemote, "":
		if strings.TrimSpace(req.URL) == "" {
			writeError(w, http.StatusBadRequest, "url is required for remote playlists")
			return
		}
		pl = model.NewRemotePlaylist(req.Name, strings.TrimSpace(req.URL))
	case model.SourceLocal:
		pl = model.NewLocalPlaylist(req.Name, req.Body)
	case model.SourceFile:
		pl = model.NewFilePlaylist(req.Name, req.Body)
	default:
		writeError(w, http.StatusBadRequest, "unknown playlist kind")
		return
	}
	if req.AutoRefresh != nil {
		pl.AutoRefresh = *req.AutoRefresh
	}
	if req.RefreshIntervalSec > 0 {
		pl.RefreshInterval = time.Duration(req.RefreshIntervalSec) * time.Second
	}

	id, err := s.store.CreatePlaylist(r.Context(), pl)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	created, err := s.store.Playlist(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaylistResponse(created))
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	if err := s.store.DeletePlaylist(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	metrics.DropChannelCount(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	pl, err := s.store.Playlist(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	count, err := s.sync.Refresh(r.Context(), pl)
	if err != nil {
		writeError(w, refreshStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlist_id": id, "channels": count})
}

func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	if err := s.store.SetDefault(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDefaultPlaylist(w http.ResponseWriter, r *http.Request) {
	pl, err := s.store.DefaultPlaylist(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistResponse(pl))
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.SetActive(r.Context(), id, req.Active); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sortOrderRequest struct {
	SortOrder int `json:"sort_order"`
}

func (s *Server) handleSetSortOrder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	var req sortOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.SetSortOrder(r.Context(), id, req.SortOrder); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlaylistChannels(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	if _, err := s.store.Playlist(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	channels, err := s.store.ChannelsByPlaylist(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeChannels(w, channels)
}

func (s *Server) handleExportM3U(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	if _, err := s.store.Playlist(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	channels, err := s.store.ChannelsByPlaylist(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
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
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	if err := playlist.WriteM3U(w, items); err != nil {
		// Headers are already out; all we can do is note the broken write.
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str("event", "export.write_failed").
			Int64("playlist_id", id).
			Msg("m3u export aborted mid-write")
	}
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.FavoriteChannels(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeChannels(w, channels)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	channels, err := s.store.RecentlyPlayedChannels(r.Context(), recentLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeChannels(w, channels)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	channels, err := s.store.SearchChannels(r.Context(), query)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeChannels(w, channels)
}

type favoriteRequest struct {
	Favorite bool `json:"favorite"`
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel id")
		return
	}
	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.SetFavorite(r.Context(), id, req.Favorite); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type playbackRequest struct {
	PositionMs int64 `json:"position_ms"`
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel id")
		return
	}
	var req playbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PositionMs < 0 {
		writeError(w, http.StatusBadRequest, "position_ms must not be negative")
		return
	}
	pos := time.Duration(req.PositionMs) * time.Millisecond
	if err := s.store.UpdatePlayback(r.Context(), id, pos, time.Now()); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProbeChannel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid channel id")
		return
	}
	ch, err := s.store.Channel(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	available := s.prober.Probe(r.Context(), ch)
	message := ""
	if !available {
		message = model.UnavailableMessage
	}
	if err := s.store.UpdateAvailability(r.Context(), id, available, message); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel_id": id, "available": available})
}

// handleProbePlaylist probes every channel of a playlist with bounded
// fan-out and persists the resulting availability flags.
func (s *Server) handleProbePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	if _, err := s.store.Playlist(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	channels, err := s.store.ChannelsByPlaylist(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	results := s.prober.ProbeAll(r.Context(), channels, s.probeConcurrency)
	available := 0
	for chID, ok := range results {
		message := ""
		if ok {
			available++
		} else {
			message = model.UnavailableMessage
		}
		if err := s.store.UpdateAvailability(r.Context(), chID, ok, message); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playlist_id": id,
		"probed":      len(results),
		"available":   available,
	})
}

type probeRequest struct {
	URL string `json:"url"`
}

// handleProbeURL checks a direct stream URL without persisting anything. The
// synthesized channel stays transient.
func (s *Server) handleProbeURL(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	ch := model.TransientChannel(req.URL)
	available := ch.Available && s.prober.Probe(r.Context(), ch)
	writeJSON(w, http.StatusOK, map[string]any{"url": req.URL, "available": available})
}

func writeChannels(w http.ResponseWriter, channels []model.Channel) {
	out := make([]channelResponse, 0, len(channels))
	for _, c := range channels {
		out = append(out, toChannelResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}
