package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-sync/internal/gateway"
	"arena-sync/internal/model"
)

func organizerFixture(t *testing.T) *fixture {
	org := player("org", "0")
	org.IsOrganizer = true
	org.OrganizerStatus = model.OrganizerApproved
	f := newFixture(org)
	t.Cleanup(f.store.Close)
	f.signIn(t, "org")
	return f
}

func TestCreateTournament_LinksGroupChat(t *testing.T) {
	f := organizerFixture(t)

	created, err := f.store.CreateTournament(context.Background(), model.TournamentDraft{
		Title:           "Summer Slam 2026",
		Date:            t0,
		PrizePool:       "$1,000",
		Games:           []model.Game{{ID: "g1", Type: model.GameSoccer, MaxParticipants: 32}},
		CreateGroupChat: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "org", created.OrganizerID)
	assert.Equal(t, "group-summer-slam-2026", created.ChatRoomID)

	st := f.store.Snapshot()
	require.Len(t, st.Tournaments, 1)
	require.Len(t, st.ChatRooms, 2)
	assert.Equal(t, model.RoomGroup, st.ChatRooms[1].Type)
	assert.Equal(t, "group-summer-slam-2026", st.ChatRooms[1].ID)

	toast, _ := f.store.ActiveToast()
	assert.Equal(t, "Success", toast.Title)
}

func TestCreateTournament_PlayersRefused(t *testing.T) {
	f := newFixture(player("u1", "0"))
	t.Cleanup(f.store.Close)
	f.signIn(t, "u1")

	_, err := f.store.CreateTournament(context.Background(), model.TournamentDraft{
		Title: "Nope",
		Games: []model.Game{{ID: "g1"}},
	})
	require.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, f.gw.count("CreateTournament"))
}

func TestUpdateTournament_StatusForwardOnly(t *testing.T) {
	f := organizerFixture(t)
	f.gw.tournaments = []model.Tournament{{ID: "t1", OrganizerID: "org", Status: model.TournamentOngoing}}
	require.NoError(t, f.store.RefreshTournaments(context.Background()))

	err := f.store.UpdateTournament(context.Background(), "t1", model.TournamentPatch{
		Status: model.Ptr(model.TournamentUpcoming),
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.gw.count("UpdateTournament"))

	require.NoError(t, f.store.UpdateTournament(context.Background(), "t1", model.TournamentPatch{
		Status: model.Ptr(model.TournamentCompleted),
	}))
	tour, _ := f.store.Tournament("t1")
	assert.Equal(t, model.TournamentCompleted, tour.Status)
}

func TestAddAnnouncement(t *testing.T) {
	f := organizerFixture(t)
	f.gw.tournaments = []model.Tournament{{ID: "t1", OrganizerID: "org", Status: model.TournamentUpcoming}}
	require.NoError(t, f.store.RefreshTournaments(context.Background()))

	require.NoError(t, f.store.AddAnnouncement(context.Background(), "t1", "Check-in opens at 17:30"))

	tour, _ := f.store.Tournament("t1")
	require.Len(t, tour.Announcements, 1)
	assert.Equal(t, "Check-in opens at 17:30", tour.Announcements[0].Message)
	assert.Equal(t, t0, tour.Announcements[0].Date)
}

func TestForfeitMatch_OpponentWins(t *testing.T) {
	f := handshakeFixture(t, "p1")

	require.NoError(t, f.store.ForfeitMatch(context.Background(), "x1"))

	m, _ := f.store.Match("x1")
	assert.Equal(t, model.MatchCompleted, m.Status)
	assert.Equal(t, "p2", m.WinnerID)

	toast, _ := f.store.ActiveToast()
	assert.Equal(t, model.NotifyMatch, toast.Kind)
	assert.Equal(t, "Forfeited", toast.Title)

	err := f.store.ForfeitMatch(context.Background(), "x1")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadAvatar(t *testing.T) {
	f := newFixture(player("u1", "0"))
	t.Cleanup(f.store.Close)
	f.signIn(t, "u1")

	url, err := f.store.UploadAvatar(context.Background(), gatewayAsset("avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, url, f.store.Snapshot().User.AvatarURL)

	toast, _ := f.store.ActiveToast()
	assert.Equal(t, "Avatar Updated", toast.Title)

	f.gw.fail("UploadAsset", errors.New("Bucket not found"))
	_, err = f.store.UploadAvatar(context.Background(), gatewayAsset("avatar2.png"))
	require.Error(t, err)
	toast, _ = f.store.ActiveToast()
	assert.Equal(t, "Upload Error", toast.Title)
	assert.Equal(t, url, f.store.Snapshot().User.AvatarURL)
}

func gatewayAsset(name string) gateway.Asset {
	return gateway.Asset{FileName: name, ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
}

func TestOrganizerRequestFlow(t *testing.T) {
	ctx := context.Background()
	admin := player("admin", "0")
	admin.IsAdmin = true
	f := newFixture(admin, player("u1", "0"))
	t.Cleanup(f.store.Close)

	f.signIn(t, "u1")
	require.NoError(t, f.store.SubmitOrganizerRequest(ctx))
	assert.Equal(t, model.OrganizerPending, f.store.Snapshot().User.OrganizerStatus)
	require.ErrorIs(t, f.store.SubmitOrganizerRequest(ctx), ErrInvalidInput)
	require.ErrorIs(t, f.store.ApproveOrganizer(ctx, "u1"), ErrForbidden)

	f.signIn(t, "admin")
	st := f.store.Snapshot()
	require.Len(t, st.OrganizerRequests, 1)
	assert.Equal(t, "u1", st.OrganizerRequests[0].ID)

	require.NoError(t, f.store.ApproveOrganizer(ctx, "u1"))
	st = f.store.Snapshot()
	assert.Empty(t, st.OrganizerRequests)
	for _, u := range st.AllUsers {
		if u.ID == "u1" {
			assert.True(t, u.IsOrganizer)
			assert.Equal(t, model.OrganizerApproved, u.OrganizerStatus)
		}
	}
	assert.Equal(t, "Approved", st.Notifications[0].Title)
}

func TestMutedKind_RecordedWithoutToast(t *testing.T) {
	f := newFixture(player("u1", "0"))
	t.Cleanup(f.store.Close)
	f.signIn(t, "u1")

	settings := model.DefaultSettings()
	settings.Notifications.MatchReminders = false
	require.NoError(t, f.store.UpdateSettings(context.Background(), settings))

	f.store.Notify(model.NotifyMatch, "Match Soon", "Your match starts in 10 minutes.")
	_, shown := f.store.ActiveToast()
	assert.False(t, shown)
	require.Len(t, f.store.Notifications(), 1)
	assert.Equal(t, "Match Soon", f.store.Notifications()[0].Title)

	f.store.Notify(model.NotifyError, "Error", "Something broke")
	_, shown = f.store.ActiveToast()
	assert.True(t, shown)
}

func TestCompleteSignUp(t *testing.T) {
	f := newFixture()
	t.Cleanup(f.store.Close)
	require.NoError(t, f.store.SetSession(context.Background(), &model.Session{UserID: "new"}))
	assert.Nil(t, f.store.Snapshot().User)

	require.NoError(t, f.store.CompleteSignUp(context.Background(), "new", "Rookie", "rookie@example.com"))
	u := f.store.Snapshot().User
	require.NotNil(t, u)
	assert.Equal(t, "Rookie", u.Gamertag)
	assert.Equal(t, model.DefaultSettings(), u.Settings)
}
