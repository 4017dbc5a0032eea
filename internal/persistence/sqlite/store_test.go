// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvplayer/playlistd/internal/model"
	"github.com/tvplayer/playlistd/internal/playlist"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playlistd.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return NewStore(db)
}

func mustCreate(t *testing.T, s *Store, p model.Playlist) int64 {
	t.Helper()
	id, err := s.CreatePlaylist(context.Background(), p)
	require.NoError(t, err)
	return id
}

func TestPlaylistRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := model.NewRemotePlaylist("News", "http://h/list.m3u")
	in.SortOrder = 3
	id := mustCreate(t, s, in)

	got, err := s.Playlist(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "News", got.Name)
	assert.Equal(t, "http://h/list.m3u", got.URL)
	assert.Equal(t, model.SourceRemote, got.Kind)
	assert.True(t, got.Active)
	assert.True(t, got.AutoRefresh)
	assert.Equal(t, model.DefaultRefreshInterval, got.RefreshInterval)
	assert.True(t, got.LastUpdated.IsZero())
	assert.Equal(t, 3, got.SortOrder)
	assert.Empty(t, got.LastError)
}

func TestPlaylistNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Playlist(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePlaylist(context.Background(), 999), ErrNotFound)
	assert.ErrorIs(t, s.SetDefault(context.Background(), 999), ErrNotFound)
}

func TestSetDefaultInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, model.NewRemotePlaylist("A", "http://h/a.m3u"))
	b := mustCreate(t, s, model.NewRemotePlaylist("B", "http://h/b.m3u"))

	require.NoError(t, s.SetDefault(ctx, a))
	got, err := s.DefaultPlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, got.ID)

	require.NoError(t, s.SetDefault(ctx, b))
	got, err = s.DefaultPlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, got.ID)

	// Exactly one default row after the switch.
	all, err := s.Playlists(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, p := range all {
		if p.Default {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func drafts(urls ...string) []model.Channel {
	out := make([]model.Channel, 0, len(urls))
	for i, u := range urls {
		out = append(out, model.ChannelFromDraft(playlist.Draft{
			Name:     "ch",
			URL:      u,
			Position: i,
		}, 0))
	}
	return out
}

func bind(channels []model.Channel, playlistID int64) []model.Channel {
	for i := range channels {
		channels[i].PlaylistID = playlistID
	}
	return channels
}

func TestReplaceChannelsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, model.NewRemotePlaylist("P", "http://h/p.m3u"))

	set := bind(drafts("http://h/1", "http://h/2", "http://h/3"), id)

	n, err := s.ReplaceChannels(ctx, id, set)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first, err := s.ChannelsByPlaylist(ctx, id)
	require.NoError(t, err)

	n, err = s.ReplaceChannels(ctx, id, set)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	second, err := s.ChannelsByPlaylist(ctx, id)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].URL, second[i].URL)
		assert.Equal(t, first[i].Position, second[i].Position)
	}
}

func TestReplaceChannelsEmptySetClears(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, model.NewRemotePlaylist("P", "http://h/p.m3u"))

	_, err := s.ReplaceChannels(ctx, id, bind(drafts("http://h/1"), id))
	require.NoError(t, err)

	n, err := s.ReplaceChannels(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	left, err := s.ChannelsByPlaylist(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestReplaceChannelsConcurrentReaderNeverSeesEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, model.NewRemotePlaylist("Live", "http://h/live.m3u"))

	set := make([]model.Channel, 50)
	for i := range set {
		set[i] = model.Channel{
			PlaylistID: id,
			Position:   i,
			Name:       fmt.Sprintf("CH %d", i),
			URL:        fmt.Sprintf("http://h/%d.ts", i),
			Available:  true,
		}
	}
	_, err := s.ReplaceChannels(ctx, id, set)
	require.NoError(t, err)

	// The delete and insert happen inside one transaction; a reader running
	// alongside repeated replaces must always observe a full channel set.
	stop := make(chan struct{})
	var sawEmpty atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := s.ChannelsByPlaylist(ctx, id)
			if err != nil {
				continue
			}
			if len(got) == 0 {
				sawEmpty.Add(1)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		_, err := s.ReplaceChannels(ctx, id, set)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, sawEmpty.Load(), "reader observed the intermediate empty state")
}

func TestDeletePlaylistCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, model.NewRemotePlaylist("P", "http://h/p.m3u"))
	_, err := s.ReplaceChannels(ctx, id, bind(drafts("http://h/1", "http://h/2"), id))
	require.NoError(t, err)

	require.NoError(t, s.DeletePlaylist(ctx, id))

	left, err := s.ChannelsByPlaylist(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestMarkUpdatedClearsError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, model.NewRemotePlaylist("P", "http://h/p.m3u"))

	attempt := time.Now().Add(-time.Hour)
	require.NoError(t, s.MarkError(ctx, id, "fetch failed: boom", attempt))

	p, err := s.Playlist(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "fetch failed: boom", p.LastError)
	assert.True(t, p.LastUpdated.IsZero(), "error must not touch the success timestamp")
	assert.False(t, p.LastAttempt.IsZero())

	now := time.Now()
	require.NoError(t, s.MarkUpdated(ctx, id, now, 42))

	p, err = s.Playlist(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, p.LastError)
	assert.Equal(t, 42, p.ChannelCount)
	assert.Equal(t, now.UnixMilli(), p.LastUpdated.UnixMilli())
}

func TestChannelFieldUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, model.NewRemotePlaylist("P", "http://h/p.m3u"))
	_, err := s.ReplaceChannels(ctx, id, bind(drafts("http://h/1"), id))
	require.NoError(t, err)

	chs, err := s.ChannelsByPlaylist(ctx, id)
	require.NoError(t, err)
	require.Len(t, chs, 1)
	chID := chs[0].ID

	require.NoError(t, s.SetFavorite(ctx, chID, true))
	played := time.Now()
	require.NoError(t, s.UpdatePlayback(ctx, chID, 90*time.Second, played))
	require.NoError(t, s.UpdatePlayback(ctx, chID, 2*time.Minute, played))
	require.NoError(t, s.UpdateAvailability(ctx, chID, false, model.UnavailableMessage))

	ch, err := s.Channel(ctx, chID)
	require.NoError(t, err)
	assert.True(t, ch.Favorite)
	assert.Equal(t, 2, ch.PlayCount)
	assert.Equal(t, 2*time.Minute, ch.LastPosition)
	assert.False(t, ch.Available)
	assert.Equal(t, model.UnavailableMessage, ch.LastError)

	require.NoError(t, s.UpdateAvailability(ctx, chID, true, ""))
	ch, err = s.Channel(ctx, chID)
	require.NoError(t, err)
	assert.True(t, ch.Available)
	assert.Empty(t, ch.LastError)

	assert.ErrorIs(t, s.SetFavorite(ctx, 9999, true), ErrNotFound)
}

func TestChannelQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, model.NewRemotePlaylist("P", "http://h/p.m3u"))

	set := []model.Channel{
		{PlaylistID: id, Position: 0, Name: "CCTV News", Group: "News", URL: "http://h/1", Available: true},
		{PlaylistID: id, Position: 1, Name: "Sports One", Group: "Sport", URL: "http://h/2", Available: true},
		{PlaylistID: id, Position: 2, Name: "Movies", Group: "Cinema", URL: "http://h/3", Available: true},
	}
	_, err := s.ReplaceChannels(ctx, id, set)
	require.NoError(t, err)

	byName, err := s.SearchChannels(ctx, "news")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "CCTV News", byName[0].Name)

	byGroup, err := s.SearchChannels(ctx, "Sport")
	require.NoError(t, err)
	require.Len(t, byGroup, 1)

	chs, err := s.ChannelsByPlaylist(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.SetFavorite(ctx, chs[2].ID, true))
	favs, err := s.FavoriteChannels(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Movies", favs[0].Name)

	require.NoError(t, s.UpdatePlayback(ctx, chs[0].ID, 0, time.Now().Add(-time.Minute)))
	require.NoError(t, s.UpdatePlayback(ctx, chs[1].ID, 0, time.Now()))
	recent, err := s.RecentlyPlayedChannels(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Sports One", recent[0].Name)
}

func TestPlaylistsDueForRefresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	due := model.NewRemotePlaylist("due", "http://h/a.m3u")
	dueID := mustCreate(t, s, due)

	fresh := model.NewRemotePlaylist("fresh", "http://h/b.m3u")
	freshID := mustCreate(t, s, fresh)
	require.NoError(t, s.MarkUpdated(ctx, freshID, now.Add(-time.Minute), 1))

	noAuto := model.NewLocalPlaylist("local", "#EXTM3U\n")
	mustCreate(t, s, noAuto)

	got, err := s.PlaylistsDueForRefresh(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dueID, got[0].ID)
}

func TestVerifyIntegrity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, db.Close())

	problems, err := VerifyIntegrity(path, "quick")
	require.NoError(t, err)
	assert.Nil(t, problems)
}
