package postgres

import (
	"context"
	"fmt"
)

const ddlSongs = `
CREATE TABLE IF NOT EXISTS songs (
    id           TEXT             PRIMARY KEY,
    title        TEXT             NOT NULL,
    artist       TEXT             NOT NULL DEFAULT '',
    album        TEXT             NOT NULL DEFAULT '',
    filename     TEXT             NOT NULL,
    duration     DOUBLE PRECISION NOT NULL DEFAULT 0,
    lyrics       TEXT             NOT NULL DEFAULT '',
    lyrics_map   JSONB            NOT NULL DEFAULT '[]',
    start_offset DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at   TIMESTAMPTZ      NOT NULL DEFAULT now()
);`

const ddlLeaderboard = `
CREATE TABLE IF NOT EXISTS leaderboard (
    seq        BIGSERIAL   PRIMARY KEY,
    id         TEXT        NOT NULL UNIQUE,
    name       TEXT        NOT NULL,
    score      INTEGER     NOT NULL,
    song_id    TEXT        NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_rank
    ON leaderboard (score DESC, seq ASC);`

// Migrate creates the catalog tables if they do not exist. It is idempotent.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range []struct {
		name string
		sql  string
	}{
		{"songs", ddlSongs},
		{"leaderboard", ddlLeaderboard},
	} {
		if _, err := db.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", stmt.name, err)
		}
	}
	return nil
}
