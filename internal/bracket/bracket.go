// Package bracket seeds first-round pairings for a tournament game.
package bracket

import (
	"errors"
	"math/rand"
	"time"

	"arena-sync/internal/model"
)

// FirstRound is the round label of generated matches.
const FirstRound = "Round 1"

// ErrNotEnoughPlayers is returned when fewer than two players entered the game.
var ErrNotEnoughPlayers = errors.New("not enough players to generate a bracket")

// Pair is one generated pairing.
type Pair struct {
	Player1 model.Participant
	Player2 model.Participant
}

// Plan is the outcome of seeding one game.
type Plan struct {
	TournamentID string
	GameID       string
	Pairs        []Pair
	// Unpaired is the trailing player of an odd-sized pool. It gets no match.
	Unpaired *model.Participant
}

// Eligible returns the participants entered for gameID, in registration order.
func Eligible(participants []model.Participant, gameID string) []model.Participant {
	var out []model.Participant
	for _, p := range participants {
		if p.EnteredGame(gameID) {
			out = append(out, p)
		}
	}
	return out
}

// Shuffle permutes players in place with Fisher-Yates: for i from the last index
// down to 1, swap element i with a uniformly chosen element at index <= i.
func Shuffle(players []model.Participant, rng *rand.Rand) {
	for i := len(players) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		players[i], players[j] = players[j], players[i]
	}
}

// PairUp pairs consecutive players (0 with 1, 2 with 3, ...). An odd trailing player is returned separately.
func PairUp(players []model.Participant) ([]Pair, *model.Participant) {
	pairs := make([]Pair, 0, len(players)/2)
	for i := 0; i+1 < len(players); i += 2 {
		pairs = append(pairs, Pair{Player1: players[i], Player2: players[i+1]})
	}
	if len(players)%2 == 1 {
		last := players[len(players)-1]
		return pairs, &last
	}
	return pairs, nil
}

// Generate filters, shuffles and pairs the tournament's players for gameID.
// A nil rng seeds one from the clock.
func Generate(t model.Tournament, gameID string, rng *rand.Rand) (Plan, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	players := Eligible(t.Participants, gameID)
	if len(players) < 2 {
		return Plan{}, ErrNotEnoughPlayers
	}

	Shuffle(players, rng)
	pairs, unpaired := PairUp(players)
	return Plan{TournamentID: t.ID, GameID: gameID, Pairs: pairs, Unpaired: unpaired}, nil
}

// Drafts turns the plan into scheduled first-round matches on the tournament date.
func (p Plan) Drafts(date time.Time) []model.MatchDraft {
	drafts := make([]model.MatchDraft, len(p.Pairs))
	for i, pair := range p.Pairs {
		drafts[i] = model.MatchDraft{
			TournamentID: p.TournamentID,
			GameID:       p.GameID,
			Round:        FirstRound,
			Player1ID:    pair.Player1.ID,
			Player2ID:    pair.Player2.ID,
			Date:         date,
			Status:       model.MatchScheduled,
		}
	}
	return drafts
}
