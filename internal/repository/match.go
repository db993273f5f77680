package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"arena-sync/internal/model"
)

// unassignedName is shown for an empty player slot.
const unassignedName = "TBD"

// MatchRepository handles match persistence.
type MatchRepository struct {
	pool *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

// List returns every match ordered by date, with player names and the tournament title resolved.
func (r *MatchRepository) List(ctx context.Context) ([]model.Match, error) {
	const query = `
		SELECT m.id, m.tournament_id, m.game_id, t.title, m.round, m.bracket_side,
			m.player1_id, p1.gamertag, p1.avatar_url, m.player1_score,
			m.player2_id, p2.gamertag, p2.avatar_url, m.player2_score,
			m.date, m.status, m.winner_id, m.verified_by_api, m.connection
		FROM matches m
		JOIN tournaments t ON t.id = m.tournament_id
		LEFT JOIN profiles p1 ON p1.id = m.player1_id
		LEFT JOIN profiles p2 ON p2.id = m.player2_id
		ORDER BY m.date ASC, m.id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]model.Match, 0)
	for rows.Next() {
		var (
			m                  model.Match
			p1ID, p1Name, p1AV *string
			p2ID, p2Name, p2AV *string
			status             string
			winner             *string
		)
		err := rows.Scan(
			&m.ID,
			&m.TournamentID,
			&m.GameID,
			&m.TournamentTitle,
			&m.Round,
			&m.BracketSide,
			&p1ID, &p1Name, &p1AV, &m.Player1.Score,
			&p2ID, &p2Name, &p2AV, &m.Player2.Score,
			&m.Date,
			&status,
			&winner,
			&m.VerifiedByAPI,
			&m.Connection,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Player1 = slot(p1ID, p1Name, p1AV, m.Player1.Score)
		m.Player2 = slot(p2ID, p2Name, p2AV, m.Player2.Score)
		m.Status = model.MatchStatus(status)
		m.WinnerID = deref(winner)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

func slot(id, name, avatar *string, score *int) model.MatchPlayer {
	p := model.MatchPlayer{ID: deref(id), Name: deref(name), AvatarURL: deref(avatar), Score: score}
	if p.Name == "" {
		p.Name = unassignedName
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create inserts a match and returns its id.
func (r *MatchRepository) Create(ctx context.Context, d model.MatchDraft) (string, error) {
	const query = `
		INSERT INTO matches (id, tournament_id, game_id, round, player1_id, player2_id, date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	status := d.Status
	if status == "" {
		status = model.MatchScheduled
	}
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, query,
		id, d.TournamentID, d.GameID, d.Round, nullable(d.Player1ID), nullable(d.Player2ID), d.Date, string(status),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create match: %w", err)
	}
	return id, nil
}

// Update writes the set fields of patch.
func (r *MatchRepository) Update(ctx context.Context, id string, patch model.MatchPatch) error {
	b := newSetBuilder(id)
	if patch.Status != nil {
		b.add("status", string(*patch.Status))
	}
	if patch.WinnerID != nil {
		b.add("winner_id", nullable(*patch.WinnerID))
	}
	if patch.Player1Score != nil {
		b.add("player1_score", *patch.Player1Score)
	}
	if patch.Player2Score != nil {
		b.add("player2_score", *patch.Player2Score)
	}
	if patch.VerifiedByAPI != nil {
		b.add("verified_by_api", *patch.VerifiedByAPI)
	}
	if patch.Connection != nil {
		b.add("connection", *patch.Connection)
	}
	if b.empty() {
		return ErrNothingToUpdate
	}

	tag, err := r.pool.Exec(ctx, `UPDATE matches SET `+b.clause()+` WHERE id = $1`, b.args...)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
