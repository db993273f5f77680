package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Notification channels written by the change triggers.
const (
	ChannelMessages    = "arena_messages"
	ChannelMatches     = "arena_matches"
	ChannelTournaments = "arena_tournaments"
)

// Execer is satisfied by pgxpool.Pool, pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{"profiles table", `
		CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			gamertag TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			xp BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
			wallet_balance BIGINT NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
			is_organizer BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			organizer_status TEXT NOT NULL DEFAULT 'none',
			organizer_mode BOOLEAN NOT NULL DEFAULT FALSE,
			organizer_tier TEXT NOT NULL DEFAULT 'basic',
			referral_code TEXT NOT NULL DEFAULT '',
			settings JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_xp ON profiles(xp DESC);
		CREATE INDEX IF NOT EXISTS idx_profiles_organizer_status ON profiles(organizer_status);
	`},
	{"user_badges table", `
		CREATE TABLE IF NOT EXISTS user_badges (
			user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			badge_id TEXT NOT NULL,
			acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, badge_id)
		);
	`},
	{"tournaments table", `
		CREATE TABLE IF NOT EXISTS tournaments (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			prize_pool TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'Upcoming',
			organizer_id TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			rules JSONB NOT NULL DEFAULT '[]'::jsonb,
			prize_breakdown JSONB NOT NULL DEFAULT '[]'::jsonb,
			announcements JSONB NOT NULL DEFAULT '[]'::jsonb,
			games JSONB NOT NULL DEFAULT '[]'::jsonb,
			min_level INT NOT NULL DEFAULT 0,
			chat_room_id TEXT NOT NULL DEFAULT '',
			is_priority BOOLEAN NOT NULL DEFAULT FALSE,
			is_verified_event BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_tournaments_date ON tournaments(date);
	`},
	{"participants table", `
		CREATE TABLE IF NOT EXISTS participants (
			tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			game_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tournament_id, user_id)
		);
	`},
	{"matches table", `
		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			game_id TEXT NOT NULL DEFAULT '',
			round TEXT NOT NULL,
			bracket_side TEXT NOT NULL DEFAULT '',
			player1_id TEXT REFERENCES profiles(id) ON DELETE SET NULL,
			player2_id TEXT REFERENCES profiles(id) ON DELETE SET NULL,
			player1_score INT,
			player2_score INT,
			date TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'Scheduled',
			winner_id TEXT,
			verified_by_api BOOLEAN NOT NULL DEFAULT FALSE,
			connection JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_matches_date ON matches(date);
	`},
	{"messages table", `
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			text TEXT NOT NULL,
			client_key TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages(room_id, created_at);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_client_key ON messages(sender_id, client_key) WHERE client_key IS NOT NULL;
	`},
	{"transactions table", `
		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`},
	{"change notification triggers", `
		CREATE OR REPLACE FUNCTION arena_notify() RETURNS trigger AS $$
		DECLARE
			rec JSONB;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				rec := to_jsonb(OLD);
			ELSE
				rec := to_jsonb(NEW);
			END IF;
			PERFORM pg_notify(TG_ARGV[0], json_build_object(
				'table', TG_TABLE_NAME,
				'op', TG_OP,
				'id', rec ->> TG_ARGV[1],
				'record', CASE WHEN TG_ARGV[0] = 'arena_messages' THEN rec ELSE NULL END
			)::text);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql;

		CREATE OR REPLACE TRIGGER messages_notify AFTER INSERT ON messages
			FOR EACH ROW EXECUTE FUNCTION arena_notify('arena_messages', 'id');
		CREATE OR REPLACE TRIGGER matches_notify AFTER INSERT OR UPDATE OR DELETE ON matches
			FOR EACH ROW EXECUTE FUNCTION arena_notify('arena_matches', 'id');
		CREATE OR REPLACE TRIGGER tournaments_notify AFTER INSERT OR UPDATE OR DELETE ON tournaments
			FOR EACH ROW EXECUTE FUNCTION arena_notify('arena_tournaments', 'id');
		CREATE OR REPLACE TRIGGER participants_notify AFTER INSERT OR UPDATE OR DELETE ON participants
			FOR EACH ROW EXECUTE FUNCTION arena_notify('arena_tournaments', 'tournament_id');
	`},
}

// Migrate applies the arena schema. Every step is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
