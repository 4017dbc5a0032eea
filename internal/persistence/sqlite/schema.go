// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Channels are exclusively owned by their playlist: the FK cascade is the
// single deletion path for a playlist's channels.
const schema = `
CREATE TABLE IF NOT EXISTS playlists (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	name                TEXT    NOT NULL,
	url                 TEXT    NOT NULL DEFAULT '',
	body                TEXT    NOT NULL DEFAULT '',
	kind                TEXT    NOT NULL DEFAULT 'remote',
	is_active           INTEGER NOT NULL DEFAULT 1,
	is_default          INTEGER NOT NULL DEFAULT 0,
	last_updated_ms     INTEGER NOT NULL DEFAULT 0,
	last_attempt_ms     INTEGER NOT NULL DEFAULT 0,
	refresh_interval_ms INTEGER NOT NULL DEFAULT 21600000,
	auto_refresh        INTEGER NOT NULL DEFAULT 1,
	channel_count       INTEGER NOT NULL DEFAULT 0,
	last_error          TEXT,
	created_at_ms       INTEGER NOT NULL DEFAULT 0,
	sort_order          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS channels (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id      INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	position         INTEGER NOT NULL,
	name             TEXT    NOT NULL,
	url              TEXT    NOT NULL,
	logo             TEXT    NOT NULL DEFAULT '',
	group_name       TEXT    NOT NULL DEFAULT '',
	tvg_id           TEXT    NOT NULL DEFAULT '',
	is_favorite      INTEGER NOT NULL DEFAULT 0,
	is_available     INTEGER NOT NULL DEFAULT 1,
	last_error       TEXT,
	last_played_ms   INTEGER NOT NULL DEFAULT 0,
	play_count       INTEGER NOT NULL DEFAULT 0,
	last_position_ms INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_channels_playlist_position ON channels (playlist_id, position);
CREATE INDEX IF NOT EXISTS idx_channels_favorite ON channels (is_favorite);
CREATE INDEX IF NOT EXISTS idx_channels_last_played ON channels (last_played_ms);
`

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate failed: %w", err)
	}
	return nil
}
