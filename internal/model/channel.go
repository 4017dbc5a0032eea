// SPDX-License-Identifier: MIT

package model

import (
	"strings"
	"time"

	"github.com/tvplayer/playlistd/internal/playlist"
)

// TransientPlaylistID marks channels synthesized outside any persisted
// playlist (for example a direct stream URL handed to the probe endpoint).
// Such channels are never written to the store.
const TransientPlaylistID int64 = -1

// PlaceholderName is used when a parsed channel carries no usable name.
const PlaceholderName = "Unknown Channel"

// UnavailableMessage is the fixed diagnostic recorded when a probe or URL
// validation marks a channel unavailable.
const UnavailableMessage = "stream unavailable"

// Channel is a single streamable entry owned by exactly one playlist.
type Channel struct {
	ID           int64
	PlaylistID   int64
	Position     int // ordinal within the playlist, source-document order
	Name         string
	URL          string
	Logo         string
	Group        string
	TvgID        string // EPG reference
	Favorite     bool
	Available    bool
	LastError    string
	LastPlayedAt time.Time
	PlayCount    int
	LastPosition time.Duration // resume position
}

// ValidStreamURL reports whether url is non-blank and carries one of the
// accepted stream schemes.
func ValidStreamURL(url string) bool {
	u := strings.TrimSpace(url)
	if u == "" {
		return false
	}
	return strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "rtmp://")
}

// ChannelFromDraft binds a parsed draft to a playlist. Channels with an
// invalid stream URL are kept but marked unavailable so the player can show
// them greyed out instead of silently dropping entries.
func ChannelFromDraft(d playlist.Draft, playlistID int64) Channel {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = PlaceholderName
	}
	ch := Channel{
		PlaylistID: playlistID,
		Position:   d.Position,
		Name:       name,
		URL:        d.URL,
		Logo:       d.Logo,
		Group:      d.Group,
		TvgID:      d.TvgID,
		Available:  true,
	}
	if !ValidStreamURL(d.URL) {
		ch.Available = false
		ch.LastError = UnavailableMessage
	}
	return ch
}

// TransientChannel synthesizes a channel for a direct stream URL without any
// playlist context. The result must not be persisted.
func TransientChannel(url string) Channel {
	return Channel{
		PlaylistID: TransientPlaylistID,
		Name:       PlaceholderName,
		URL:        url,
		Available:  ValidStreamURL(url),
	}
}
