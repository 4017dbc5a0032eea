// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tvplayer/playlistd/internal/model"
)

const channelColumns = `id, playlist_id, position, name, url, logo, group_name,
	tvg_id, is_favorite, is_available, last_error, last_played_ms, play_count,
	last_position_ms`

func scanChannel(row interface{ Scan(...any) error }) (model.Channel, error) {
	var (
		ch                       model.Channel
		lastPlayed, lastPosition int64
		lastError                sql.NullString
	)
	err := row.Scan(&ch.ID, &ch.PlaylistID, &ch.Position, &ch.Name, &ch.URL, &ch.Logo, &ch.Group,
		&ch.TvgID, &ch.Favorite, &ch.Available, &lastError, &lastPlayed, &ch.PlayCount,
		&lastPosition)
	if err != nil {
		return model.Channel{}, err
	}
	ch.LastError = fromNull(lastError)
	ch.LastPlayedAt = fromMillis(lastPlayed)
	ch.LastPosition = time.Duration(lastPosition) * time.Millisecond
	return ch, nil
}

// ReplaceChannels atomically swaps a playlist's channel set for the given
// one. Concurrent readers observe either the previous complete set or the new
// complete set, never the empty intermediate state.
func (s *Store) ReplaceChannels(ctx context.Context, playlistID int64, channels []model.Channel) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE playlist_id = ?`, playlistID); err != nil {
		return 0, fmt.Errorf("delete channels: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO channels (playlist_id, position, name, url, logo, group_name,
			tvg_id, is_favorite, is_available, last_error, last_played_ms,
			play_count, last_position_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, ch := range channels {
		_, err := stmt.ExecContext(ctx, playlistID, ch.Position, ch.Name, ch.URL, ch.Logo, ch.Group,
			ch.TvgID, ch.Favorite, ch.Available, nullable(ch.LastError), millis(ch.LastPlayedAt),
			ch.PlayCount, ch.LastPosition.Milliseconds())
		if err != nil {
			return 0, fmt.Errorf("insert channel %q: %w", ch.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(channels), nil
}

// Channel returns one channel by identifier.
func (s *Store) Channel(ctx context.Context, id int64) (model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Channel{}, ErrNotFound
	}
	return ch, err
}

// ChannelsByPlaylist returns a playlist's channels in source-document order.
func (s *Store) ChannelsByPlaylist(ctx context.Context, playlistID int64) ([]model.Channel, error) {
	return s.queryChannels(ctx,
		`SELECT `+channelColumns+` FROM channels
		 WHERE playlist_id = ? ORDER BY position ASC, name ASC`, playlistID)
}

// FavoriteChannels returns all favorites ordered by name.
func (s *Store) FavoriteChannels(ctx context.Context) ([]model.Channel, error) {
	return s.queryChannels(ctx,
		`SELECT `+channelColumns+` FROM channels
		 WHERE is_favorite = 1 ORDER BY name ASC`)
}

// RecentlyPlayedChannels returns the most recently played channels.
func (s *Store) RecentlyPlayedChannels(ctx context.Context, limit int) ([]model.Channel, error) {
	if limit < 1 {
		limit = 10
	}
	return s.queryChannels(ctx,
		`SELECT `+channelColumns+` FROM channels
		 WHERE last_played_ms > 0 ORDER BY last_played_ms DESC LIMIT ?`, limit)
}

// SearchChannels matches the query against channel names and groups.
func (s *Store) SearchChannels(ctx context.Context, query string) ([]model.Channel, error) {
	like := "%" + query + "%"
	return s.queryChannels(ctx,
		`SELECT `+channelColumns+` FROM channels
		 WHERE name LIKE ? OR group_name LIKE ? ORDER BY name ASC`, like, like)
}

func (s *Store) queryChannels(ctx context.Context, q string, args ...any) ([]model.Channel, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// SetFavorite flips a channel's favorite flag by identifier. A field-level
// update avoids lost updates under concurrent toggles.
func (s *Store) SetFavorite(ctx context.Context, channelID int64, favorite bool) error {
	return s.updateChannel(ctx,
		`UPDATE channels SET is_favorite = ? WHERE id = ?`, favorite, channelID)
}

// UpdatePlayback records a playback stop: resume position, played-at
// timestamp and play count increment in one statement.
func (s *Store) UpdatePlayback(ctx context.Context, channelID int64, position time.Duration, at time.Time) error {
	return s.updateChannel(ctx, `
		UPDATE channels
		SET last_position_ms = ?, last_played_ms = ?, play_count = play_count + 1
		WHERE id = ?`,
		position.Milliseconds(), millis(at), channelID)
}

// UpdateAvailability persists a probe result. Unavailable channels get the
// diagnostic message; available ones get their error cleared.
func (s *Store) UpdateAvailability(ctx context.Context, channelID int64, available bool, message string) error {
	return s.updateChannel(ctx,
		`UPDATE channels SET is_available = ?, last_error = ? WHERE id = ?`,
		available, nullable(message), channelID)
}

func (s *Store) updateChannel(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
