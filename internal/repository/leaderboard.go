package repository

import (
	"context"
	"fmt"
	"sort"

	"arena-sync/internal/model"
)

// leaderRow is a raw ranking row before ranks are assigned.
type leaderRow struct {
	UserID    string
	Gamertag  string
	AvatarURL string
	XP        int64
	Wins      int
	Played    int
}

// Leaderboard returns the top players by XP. Ranks start at 1 and follow list order.
func (r *ProfileRepository) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	const query = `
		SELECT p.id, p.gamertag, p.avatar_url, p.xp, COALESCE(s.wins, 0), COALESCE(s.played, 0)
		FROM profiles p
		LEFT JOIN LATERAL (
			SELECT COUNT(*) FILTER (WHERE m.winner_id = p.id) AS wins, COUNT(*) AS played
			FROM matches m
			WHERE m.status = 'Completed' AND (m.player1_id = p.id OR m.player2_id = p.id)
		) s ON TRUE
		ORDER BY p.xp DESC, p.gamertag ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var raw []leaderRow
	for rows.Next() {
		var lr leaderRow
		if err := rows.Scan(&lr.UserID, &lr.Gamertag, &lr.AvatarURL, &lr.XP, &lr.Wins, &lr.Played); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		raw = append(raw, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return rankRows(raw), nil
}

// rankRows orders rows by XP (ties by gamertag) and assigns ranks 1..n.
func rankRows(rows []leaderRow) []model.LeaderboardEntry {
	sorted := append([]leaderRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].XP != sorted[j].XP {
			return sorted[i].XP > sorted[j].XP
		}
		return sorted[i].Gamertag < sorted[j].Gamertag
	})

	entries := make([]model.LeaderboardEntry, len(sorted))
	for i, lr := range sorted {
		entries[i] = model.LeaderboardEntry{
			Rank:      i + 1,
			UserID:    lr.UserID,
			Gamertag:  lr.Gamertag,
			Points:    lr.XP,
			WinRate:   winRate(lr.Wins, lr.Played),
			AvatarURL: lr.AvatarURL,
		}
	}
	return entries
}

// winRate renders wins/played as a whole percentage.
func winRate(wins, played int) string {
	if played <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", wins*100/played)
}
