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

const playlistColumns = `id, name, url, body, kind, is_active, is_default,
	last_updated_ms, last_attempt_ms, refresh_interval_ms, auto_refresh,
	channel_count, last_error, created_at_ms, sort_order`

func scanPlaylist(row interface{ Scan(...any) error }) (model.Playlist, error) {
	var (
		p                                  model.Playlist
		lastUpdated, lastAttempt, created  int64
		refreshMS                          int64
		lastError                          sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.URL, &p.Body, (*string)(&p.Kind), &p.Active, &p.Default,
		&lastUpdated, &lastAttempt, &refreshMS, &p.AutoRefresh,
		&p.ChannelCount, &lastError, &created, &p.SortOrder)
	if err != nil {
		return model.Playlist{}, err
	}
	p.LastUpdated = fromMillis(lastUpdated)
	p.LastAttempt = fromMillis(lastAttempt)
	p.RefreshInterval = time.Duration(refreshMS) * time.Millisecond
	p.LastError = fromNull(lastError)
	p.CreatedAt = fromMillis(created)
	return p, nil
}

// CreatePlaylist inserts an unsaved playlist and returns its identifier.
func (s *Store) CreatePlaylist(ctx context.Context, p model.Playlist) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO playlists (name, url, body, kind, is_active, is_default,
			last_updated_ms, last_attempt_ms, refresh_interval_ms, auto_refresh,
			channel_count, last_error, created_at_ms, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.URL, p.Body, string(p.Kind), p.Active, p.Default,
		millis(p.LastUpdated), millis(p.LastAttempt), p.RefreshInterval.Milliseconds(), p.AutoRefresh,
		p.ChannelCount, nullable(p.LastError), millis(p.CreatedAt), p.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("insert playlist: %w", err)
	}
	return res.LastInsertId()
}

// Playlist returns one playlist by identifier.
func (s *Store) Playlist(ctx context.Context, id int64) (model.Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Playlist{}, ErrNotFound
	}
	return p, err
}

// Playlists returns all playlists, default first, then by sort order and name.
func (s *Store) Playlists(ctx context.Context) ([]model.Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists
		 ORDER BY is_default DESC, sort_order ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DefaultPlaylist returns the playlist with the default flag, or ErrNotFound.
func (s *Store) DefaultPlaylist(ctx context.Context) (model.Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists WHERE is_default = 1 LIMIT 1`)
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Playlist{}, ErrNotFound
	}
	return p, err
}

// SetDefault makes id the single default playlist. Clearing the previous
// default and setting the new one happen in one transaction.
func (s *Store) SetDefault(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE playlists SET is_default = 0 WHERE is_default = 1`); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE playlists SET is_default = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// MarkUpdated records a successful refresh: success timestamp, attempt
// timestamp, cleared error and the fresh channel count.
func (s *Store) MarkUpdated(ctx context.Context, id int64, at time.Time, channelCount int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE playlists
		SET last_updated_ms = ?, last_attempt_ms = ?, last_error = NULL, channel_count = ?
		WHERE id = ?`,
		millis(at), millis(at), channelCount, id)
	return err
}

// MarkError records a failed refresh attempt. The success timestamp, the
// channel set and the cached count stay untouched.
func (s *Store) MarkError(ctx context.Context, id int64, message string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE playlists SET last_error = ?, last_attempt_ms = ? WHERE id = ?`,
		message, millis(at), id)
	return err
}

// DeletePlaylist removes a playlist; its channels go with it via the FK
// cascade.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
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

// SetActive toggles a playlist's active flag.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE playlists SET is_active = ? WHERE id = ?`, active, id)
	return err
}

// SetSortOrder updates a playlist's manual sort position.
func (s *Store) SetSortOrder(ctx context.Context, id int64, sortOrder int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE playlists SET sort_order = ? WHERE id = ?`, sortOrder, id)
	return err
}

// PlaylistsDueForRefresh returns active auto-refresh playlists whose refresh
// interval has elapsed at the given instant. The staleness decision itself is
// the pure model predicate applied per row.
func (s *Store) PlaylistsDueForRefresh(ctx context.Context, now time.Time) ([]model.Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists
		 WHERE is_active = 1 AND auto_refresh = 1 AND url != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []model.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		if p.IsDue(now) {
			due = append(due, p)
		}
	}
	return due, rows.Err()
}
