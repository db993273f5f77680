package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arena-sync/internal/model"
)

// TournamentRepository handles tournaments and their registrations.
type TournamentRepository struct {
	pool *pgxpool.Pool
}

// NewTournamentRepository creates a new TournamentRepository instance.
func NewTournamentRepository(pool *pgxpool.Pool) *TournamentRepository {
	return &TournamentRepository{pool: pool}
}

// List returns every tournament ordered by date with participants attached.
// Per-game participant counts are derived from the registrations.
func (r *TournamentRepository) List(ctx context.Context) ([]model.Tournament, error) {
	const query = `
		SELECT id, title, date, prize_pool, status, organizer_id, description, location, image_url,
			rules, prize_breakdown, announcements, games, min_level, chat_room_id, is_priority, is_verified_event
		FROM tournaments
		ORDER BY date ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]model.Tournament, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			t      model.Tournament
			status string
		)
		err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Date,
			&t.PrizePool,
			&status,
			&t.OrganizerID,
			&t.Description,
			&t.Location,
			&t.ImageURL,
			&t.Rules,
			&t.PrizeBreakdown,
			&t.Announcements,
			&t.Games,
			&t.MinLevel,
			&t.ChatRoomID,
			&t.IsPriority,
			&t.IsVerifiedEvent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		t.Status = model.TournamentStatus(status)
		t.Participants = make([]model.Participant, 0)
		index[t.ID] = len(tournaments)
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournaments: %w", err)
	}

	if err := r.attachParticipants(ctx, tournaments, index); err != nil {
		return nil, err
	}
	for i := range tournaments {
		countEntries(&tournaments[i])
	}
	return tournaments, nil
}

func (r *TournamentRepository) attachParticipants(ctx context.Context, tournaments []model.Tournament, index map[string]int) error {
	const query = `
		SELECT pa.tournament_id, pa.user_id, pa.game_ids, pa.joined_at, p.gamertag, p.avatar_url, p.xp
		FROM participants pa
		JOIN profiles p ON p.id = pa.user_id
		ORDER BY pa.joined_at ASC, pa.user_id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tournamentID string
			p            model.Participant
		)
		if err := rows.Scan(&tournamentID, &p.ID, &p.GameIDs, &p.JoinedAt, &p.Gamertag, &p.AvatarURL, &p.XP); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		if i, ok := index[tournamentID]; ok {
			tournaments[i].Participants = append(tournaments[i].Participants, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating participants: %w", err)
	}
	return nil
}

// countEntries sets each game's participant count from the registrations.
func countEntries(t *model.Tournament) {
	load := gameLoad(t.Participants)
	for i := range t.Games {
		t.Games[i].Participants = load[t.Games[i].ID]
	}
}

func gameLoad(participants []model.Participant) map[string]int {
	load := make(map[string]int)
	for _, p := range participants {
		for _, id := range p.GameIDs {
			load[id]++
		}
	}
	return load
}

// checkEntry validates a registration against the tournament's games and their capacity.
func checkEntry(games []model.Game, load map[string]int, gameIDs []string) error {
	for _, id := range gameIDs {
		var found *model.Game
		for i := range games {
			if games[i].ID == id {
				found = &games[i]
				break
			}
		}
		if found == nil {
			return fmt.Errorf("%w: %s", ErrUnknownGame, id)
		}
		if found.MaxParticipants > 0 && load[id] >= found.MaxParticipants {
			return fmt.Errorf("%w: %s", ErrGameFull, id)
		}
	}
	return nil
}

// Create inserts a tournament. Games without an id get one.
func (r *TournamentRepository) Create(ctx context.Context, d model.TournamentDraft) (*model.Tournament, error) {
	const query = `
		INSERT INTO tournaments (id, title, date, prize_pool, status, organizer_id, description, location,
			image_url, rules, prize_breakdown, announcements, games, min_level, chat_room_id, is_priority, is_verified_event)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '[]'::jsonb, $12, $13, $14, $15, $16)
	`

	t := model.Tournament{
		ID:              uuid.NewString(),
		Title:           d.Title,
		Date:            d.Date,
		PrizePool:       d.PrizePool,
		Status:          model.TournamentUpcoming,
		OrganizerID:     d.OrganizerID,
		Description:     d.Description,
		Location:        d.Location,
		ImageURL:        d.ImageURL,
		Rules:           nonNil(d.Rules),
		PrizeBreakdown:  nonNil(d.PrizeBreakdown),
		Announcements:   []model.Announcement{},
		Participants:    []model.Participant{},
		MinLevel:        d.MinLevel,
		ChatRoomID:      d.ChatRoomID,
		IsPriority:      d.IsPriority,
		IsVerifiedEvent: d.IsVerifiedEvent,
	}
	for _, g := range d.Games {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		if g.Status == "" {
			g.Status = model.TournamentUpcoming
		}
		g.Participants = 0
		t.Games = append(t.Games, g)
	}
	if t.Games == nil {
		t.Games = []model.Game{}
	}

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.Title, t.Date, t.PrizePool, string(t.Status), t.OrganizerID, t.Description, t.Location,
		t.ImageURL, t.Rules, t.PrizeBreakdown, t.Games, t.MinLevel, t.ChatRoomID, t.IsPriority, t.IsVerifiedEvent,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return &t, nil
}

// Update writes the set fields of patch.
func (r *TournamentRepository) Update(ctx context.Context, id string, patch model.TournamentPatch) error {
	b := newSetBuilder(id)
	if patch.Title != nil {
		b.add("title", *patch.Title)
	}
	if patch.Date != nil {
		b.add("date", *patch.Date)
	}
	if patch.PrizePool != nil {
		b.add("prize_pool", *patch.PrizePool)
	}
	if patch.Status != nil {
		b.add("status", string(*patch.Status))
	}
	if patch.Description != nil {
		b.add("description", *patch.Description)
	}
	if patch.Location != nil {
		b.add("location", *patch.Location)
	}
	if patch.ImageURL != nil {
		b.add("image_url", *patch.ImageURL)
	}
	if patch.Rules != nil {
		b.add("rules", patch.Rules)
	}
	if patch.Games != nil {
		b.add("games", patch.Games)
	}
	if patch.Announcements != nil {
		b.add("announcements", patch.Announcements)
	}
	if patch.MinLevel != nil {
		b.add("min_level", *patch.MinLevel)
	}
	if b.empty() {
		return ErrNothingToUpdate
	}

	tag, err := r.pool.Exec(ctx, `UPDATE tournaments SET `+b.clause()+` WHERE id = $1`, b.args...)
	if err != nil {
		return fmt.Errorf("failed to update tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddParticipant registers a user for some of the tournament's games.
// The tournament row is locked so capacity checks do not race.
func (r *TournamentRepository) AddParticipant(ctx context.Context, tournamentID, userID string, gameIDs []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var games []model.Game
		err := tx.QueryRow(ctx, `SELECT games FROM tournaments WHERE id = $1 FOR UPDATE`, tournamentID).Scan(&games)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock tournament: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT user_id, game_ids FROM participants WHERE tournament_id = $1`, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load registrations: %w", err)
		}
		var current []model.Participant
		for rows.Next() {
			var p model.Participant
			if err := rows.Scan(&p.ID, &p.GameIDs); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan registration: %w", err)
			}
			current = append(current, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating registrations: %w", err)
		}

		if err := checkEntry(games, gameLoad(current), gameIDs); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO participants (tournament_id, user_id, game_ids, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tournament_id, user_id) DO NOTHING
		`, tournamentID, userID, nonNil(gameIDs), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrAlreadyRegistered
		}
		return nil
	})
}

// RemoveParticipant deletes a registration. Removing a missing registration is not an error.
func (r *TournamentRepository) RemoveParticipant(ctx context.Context, tournamentID, userID string) error {
	const query = `DELETE FROM participants WHERE tournament_id = $1 AND user_id = $2`

	if _, err := r.pool.Exec(ctx, query, tournamentID, userID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
