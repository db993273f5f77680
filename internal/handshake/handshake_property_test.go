package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"arena-sync/internal/model"
)

func lobby() model.Match {
	return model.Match{
		ID:      "x1",
		Player1: model.MatchPlayer{ID: "u1", Name: "Nova"},
		Player2: model.MatchPlayer{ID: "u2", Name: "Rex"},
		Status:  model.MatchScheduled,
	}
}

// TestHandshakeMonotonicProperty checks the lobby state ordering.
// *For any* sequence of actions by any users, the connection state SHALL never move
// backwards, and a refused action SHALL leave the connection unchanged.
func TestHandshakeMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := lobby()
		users := []string{"u1", "u2", "u3"}
		steps := rapid.IntRange(1, 20).Draw(t, "steps")

		for i := 0; i < steps; i++ {
			a := Action(rapid.IntRange(0, 2).Draw(t, "action"))
			user := rapid.SampledFrom(users).Draw(t, "user")
			tag := rapid.SampledFrom([]string{"", "Nova#123"}).Draw(t, "tag")

			before := m.Clone()
			next, err := Step(m, a, user, tag)

			if err != nil {
				if next != current(before.Connection) {
					t.Fatalf("refused %s by %s changed the connection: %+v -> %+v", a, user, current(before.Connection), next)
				}
				continue
			}
			if next.State.Step() != before.ConnectionState().Step()+1 {
				t.Fatalf("%s moved %s -> %s", a, before.ConnectionState(), next.State)
			}
			if !m.HasPlayer(user) {
				t.Fatalf("outsider %s advanced the handshake", user)
			}
			conn := next
			m.Connection = &conn
		}
	})
}

func TestConfirmJoin_IdleIsNoOp(t *testing.T) {
	m := lobby()

	next, err := ConfirmJoin(m.Connection, "u2")

	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, model.ConnIdle, next.State)
	assert.Empty(t, next.HostID)
}

func TestHandshake_FullFlow(t *testing.T) {
	c, err := ClaimHost(nil, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.Connection{HostID: "u1", State: model.ConnWaitingForTag}, c)

	_, err = SubmitTag(&c, "u2", "Rex#9")
	assert.ErrorIs(t, err, ErrIllegalTransition, "only the host submits the tag")

	c, err = SubmitTag(&c, "u1", "Nova#123")
	require.NoError(t, err)
	assert.Equal(t, model.ConnTagReady, c.State)
	assert.Equal(t, "Nova#123", c.HostGameTag)

	_, err = ConfirmJoin(&c, "u1")
	assert.ErrorIs(t, err, ErrIllegalTransition, "the host cannot confirm its own join")

	c, err = ConfirmJoin(&c, "u2")
	require.NoError(t, err)
	assert.Equal(t, model.ConnConnected, c.State)
	assert.Equal(t, "u1", c.HostID)
}

func TestClaimHost_SecondClaimRefused(t *testing.T) {
	c, err := ClaimHost(nil, "u1")
	require.NoError(t, err)

	next, err := ClaimHost(&c, "u2")
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, "u1", next.HostID)
}

func TestStep_RejectsOutsider(t *testing.T) {
	_, err := Step(lobby(), ActionClaim, "u3", "")
	assert.ErrorIs(t, err, ErrNotAPlayer)
}
