package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestMoneyStringParseProperty verifies that formatted amounts parse back unchanged.
// *For any* amount in cents, ParseMoney(m.String()) SHALL return m.
func TestMoneyStringParseProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := Cents(rapid.Int64Range(-1_000_000_00, 1_000_000_00).Draw(rt, "cents"))

		parsed, err := ParseMoney(m.String())
		require.NoError(rt, err)
		assert.Equal(rt, m, parsed)
	})
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
		ok   bool
	}{
		{"9.99", 999, true},
		{"10", 1000, true},
		{"1.5", 150, true},
		{" 0.01 ", 1, true},
		{".50", 50, true},
		{"-2.25", -225, true},
		{"", 0, false},
		{"1.999", 0, false},
		{"1.", 0, false},
		{"abc", 0, false},
		{"1.-5", 0, false},
		{"--5", 0, false},
		{"+5", 0, false},
		{"1.+5", 0, false},
		{"-", 0, false},
		{"1 .50", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMoney_BadgePurchaseLeavesOneCent(t *testing.T) {
	balance := MustParseMoney("10.00")
	cost := MustParseMoney("9.99")

	require.True(t, balance.Covers(cost))
	assert.Equal(t, "0.01", balance.Sub(cost).String())
	assert.False(t, MustParseMoney("5.00").Covers(cost))
}

// TestTournamentStatusForwardOnlyProperty verifies that status changes never move back.
// *For any* pair of known statuses, CanAdvanceTo SHALL hold exactly when the target
// is not earlier in Upcoming, Ongoing, Completed.
func TestTournamentStatusForwardOnlyProperty(t *testing.T) {
	order := []TournamentStatus{TournamentUpcoming, TournamentOngoing, TournamentCompleted}
	rapid.Check(t, func(rt *rapid.T) {
		i := rapid.IntRange(0, 2).Draw(rt, "from")
		j := rapid.IntRange(0, 2).Draw(rt, "to")
		assert.Equal(rt, j >= i, order[i].CanAdvanceTo(order[j]))
	})
}

func TestTournamentStatus_Unknown(t *testing.T) {
	assert.False(t, TournamentOngoing.CanAdvanceTo("Cancelled"))
	assert.True(t, TournamentStatus("").CanAdvanceTo(TournamentUpcoming))
}

func TestOrganizerStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, OrganizerNone.CanAdvanceTo(OrganizerPending))
	assert.True(t, OrganizerRejected.CanAdvanceTo(OrganizerPending))
	assert.False(t, OrganizerPending.CanAdvanceTo(OrganizerPending))
	assert.False(t, OrganizerApproved.CanAdvanceTo(OrganizerPending))
	assert.False(t, OrganizerNone.CanAdvanceTo(OrganizerApproved))
}

func TestConnectionState_Step(t *testing.T) {
	assert.Equal(t, 0, ConnectionState("").Step())
	assert.Equal(t, 0, ConnIdle.Step())
	assert.Equal(t, 1, ConnWaitingForTag.Step())
	assert.Equal(t, 2, ConnTagReady.Step())
	assert.Equal(t, 3, ConnConnected.Step())
	assert.Equal(t, -1, ConnectionState("lost").Step())
}

func TestUserPatch_Apply(t *testing.T) {
	u := User{ID: "u1", Gamertag: "nova", XP: 1200, OwnedBadges: []string{"badge-vip"}}

	patch := UserPatch{
		Bio:       Ptr("support main"),
		XP:        Ptr(int64(1700)),
		AddBadges: []string{"badge-vip", "frame-gold"},
	}
	got := patch.Apply(u)

	assert.Equal(t, "support main", got.Bio)
	assert.Equal(t, int64(1700), got.XP)
	assert.Equal(t, []string{"badge-vip", "frame-gold"}, got.OwnedBadges)
	assert.Equal(t, "nova", got.Gamertag)
	assert.Equal(t, []string{"badge-vip"}, u.OwnedBadges, "input must not be mutated")

	assert.True(t, UserPatch{}.Empty())
	assert.False(t, patch.Empty())
}

func TestMatchPatch_ApplyCopies(t *testing.T) {
	m := Match{ID: "x1", Player1: MatchPlayer{ID: "p1"}, Player2: MatchPlayer{ID: "p2"}, Status: MatchScheduled}
	conn := Connection{HostID: "p1", State: ConnWaitingForTag}

	got := MatchPatch{Connection: &conn, Player1Score: Ptr(2)}.Apply(m)
	conn.State = ConnConnected

	require.NotNil(t, got.Connection)
	assert.Equal(t, ConnWaitingForTag, got.Connection.State)
	assert.Equal(t, 2, *got.Player1.Score)
	assert.Nil(t, m.Connection)
	assert.Equal(t, "p2", got.Opponent("p1"))
	assert.Empty(t, got.Opponent("p3"))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 1, Level(-5))
	assert.Equal(t, 1, Level(999))
	assert.Equal(t, 2, Level(1000))
	assert.Equal(t, 6, Level(5000))
}

func TestSettings_Normalize(t *testing.T) {
	assert.Equal(t, DefaultSettings(), Settings{}.Normalize())

	custom := DefaultSettings()
	custom.Theme = ThemeLight
	custom.Notifications.Sound = false
	assert.Equal(t, custom, custom.Normalize())
}
