package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func genLeaderRow() *rapid.Generator[leaderRow] {
	return rapid.Custom(func(t *rapid.T) leaderRow {
		played := rapid.IntRange(0, 50).Draw(t, "played")
		return leaderRow{
			UserID:   rapid.StringMatching(`[a-z0-9]{6}`).Draw(t, "id"),
			Gamertag: rapid.StringMatching(`[A-Za-z]{3,10}`).Draw(t, "gamertag"),
			XP:       rapid.Int64Range(0, 100000).Draw(t, "xp"),
			Played:   played,
			Wins:     rapid.IntRange(0, played).Draw(t, "wins"),
		}
	})
}

// TestLeaderboardRankingProperty checks rank assignment.
// *For any* set of profiles, ranks SHALL be 1..n in list order and points SHALL never increase down the list.
func TestLeaderboardRankingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.SliceOfN(genLeaderRow(), 0, 40).Draw(t, "rows")

		entries := rankRows(rows)

		if len(entries) != len(rows) {
			t.Fatalf("expected %d entries, got %d", len(rows), len(entries))
		}
		for i, e := range entries {
			if e.Rank != i+1 {
				t.Fatalf("entry %d has rank %d", i, e.Rank)
			}
			if i > 0 && entries[i-1].Points < e.Points {
				t.Fatalf("points increase at rank %d: %d < %d", e.Rank, entries[i-1].Points, e.Points)
			}
		}
	})
}

// TestLeaderboardDeterministicProperty checks that ranking does not depend on input order.
// *For any* permutation of the same rows, the ranked points and gamertags SHALL be identical.
func TestLeaderboardDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.SliceOfN(genLeaderRow(), 1, 20).Draw(t, "rows")
		perm := rapid.Permutation(rows).Draw(t, "perm")

		a, b := rankRows(rows), rankRows(perm)
		for i := range a {
			if a[i].Points != b[i].Points || a[i].Gamertag != b[i].Gamertag {
				t.Fatalf("rank %d differs: %+v vs %+v", i+1, a[i], b[i])
			}
		}
	})
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, "0%", winRate(0, 0))
	assert.Equal(t, "50%", winRate(2, 4))
	assert.Equal(t, "66%", winRate(2, 3))
	assert.Equal(t, "100%", winRate(7, 7))
}
