// SPDX-License-Identifier: MIT

// Package model defines the persisted entities of playlistd: playlists and
// the channels they own.
package model

import (
	"strings"
	"time"
)

// SourceKind describes where a playlist's document comes from.
type SourceKind string

const (
	SourceRemote SourceKind = "remote" // fetched from a URL on every refresh
	SourceLocal  SourceKind = "local"  // body stored directly, no URL
	SourceFile   SourceKind = "file"   // imported from a file, body stored
)

// DefaultRefreshInterval is applied to playlists created without an explicit
// interval.
const DefaultRefreshInterval = 6 * time.Hour

// Playlist is a named source of channels.
type Playlist struct {
	ID              int64
	Name            string
	URL             string // empty for local playlists
	Body            string // stored document for local/file playlists
	Kind            SourceKind
	Active          bool
	Default         bool
	LastUpdated     time.Time // last successful refresh; zero if never refreshed
	LastAttempt     time.Time // last refresh attempt, successful or not
	RefreshInterval time.Duration
	AutoRefresh     bool
	ChannelCount    int
	LastError       string
	CreatedAt       time.Time
	SortOrder       int
}

// IsRemote reports whether refreshing this playlist requires a fetch.
func (p Playlist) IsRemote() bool {
	return p.Kind == SourceRemote
}

// IsDue reports whether the playlist is stale at the given instant. It is a
// pure function of the playlist's configuration and timestamps: false when
// auto-refresh is disabled or there is no source URL, true when the playlist
// has never been refreshed, otherwise true iff the configured interval has
// fully elapsed (boundary inclusive).
func (p Playlist) IsDue(now time.Time) bool {
	if !p.AutoRefresh || strings.TrimSpace(p.URL) == "" {
		return false
	}
	if p.LastUpdated.IsZero() {
		return true
	}
	return now.Sub(p.LastUpdated) >= p.RefreshInterval
}

// NewRemotePlaylist builds an unsaved remote playlist with default refresh
// settings.
func NewRemotePlaylist(name, url string) Playlist {
	return Playlist{
		Name:            name,
		URL:             url,
		Kind:            SourceRemote,
		Active:          true,
		AutoRefresh:     true,
		RefreshInterval: DefaultRefreshInterval,
		CreatedAt:       time.Now(),
	}
}

// NewLocalPlaylist builds an unsaved local playlist whose document body is
// stored directly. Local playlists never auto-refresh.
func NewLocalPlaylist(name, body string) Playlist {
	return Playlist{
		Name:            name,
		Body:            body,
		Kind:            SourceLocal,
		Active:          true,
		AutoRefresh:     false,
		RefreshInterval: DefaultRefreshInterval,
		CreatedAt:       time.Now(),
	}
}

// NewFilePlaylist builds an unsaved playlist imported from file content.
func NewFilePlaylist(name, body string) Playlist {
	p := NewLocalPlaylist(name, body)
	p.Kind = SourceFile
	return p
}
