package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"arena-sync/internal/gateway"
	"arena-sync/internal/model"
	"arena-sync/internal/oracle"
	"arena-sync/internal/realtime"
)

// fakeGateway is an in-memory backend. failOn makes the named operation fail.
type fakeGateway struct {
	mu           sync.Mutex
	users        map[string]*model.User
	tournaments  []model.Tournament
	matches      []model.Match
	messages     []model.ChatMessage
	transactions []model.Transaction
	leaderboard  []model.LeaderboardEntry
	failOn       map[string]error
	calls        map[string]int
	postGate     chan struct{}
	beforeLeave  func()
	seq          int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users:  make(map[string]*model.User),
		failOn: make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeGateway) enter(op string) error {
	f.calls[op]++
	if err, ok := f.failOn[op]; ok {
		return gateway.Classify(op, err)
	}
	return nil
}

func (f *fakeGateway) fail(op string, err error) {
	f.mu.Lock()
	f.failOn[op] = err
	f.mu.Unlock()
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeGateway) FetchUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FetchUser"); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, gateway.Classify("FetchUser", fmt.Errorf("profile %s not found", id))
	}
	return u.Clone(), nil
}

func (f *fakeGateway) CreateProfile(_ context.Context, id, gamertag, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateProfile"); err != nil {
		return nil, err
	}
	if _, ok := f.users[id]; !ok {
		f.users[id] = &model.User{
			ID:              id,
			Gamertag:        gamertag,
			Email:           email,
			OrganizerStatus: model.OrganizerNone,
			Settings:        model.DefaultSettings(),
		}
	}
	return f.users[id].Clone(), nil
}

func (f *fakeGateway) UpdateUser(_ context.Context, id string, patch model.UserPatch) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateUser"); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, gateway.Classify("UpdateUser", fmt.Errorf("profile %s not found", id))
	}
	updated := patch.Apply(*u)
	f.users[id] = &updated
	return updated.Clone(), nil
}

func (f *fakeGateway) UploadAsset(_ context.Context, userID string, asset gateway.Asset) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UploadAsset"); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + userID + "/" + asset.FileName, nil
}

func (f *fakeGateway) ListTournaments(context.Context) ([]model.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListTournaments"); err != nil {
		return nil, err
	}
	return cloneTournaments(f.tournaments), nil
}

func (f *fakeGateway) CreateTournament(_ context.Context, draft model.TournamentDraft) (*model.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateTournament"); err != nil {
		return nil, err
	}
	t := model.Tournament{
		ID:          f.nextID("t"),
		Title:       draft.Title,
		Date:        draft.Date,
		PrizePool:   draft.PrizePool,
		Status:      model.TournamentUpcoming,
		OrganizerID: draft.OrganizerID,
		Games:       append([]model.Game(nil), draft.Games...),
		ChatRoomID:  draft.ChatRoomID,
	}
	f.tournaments = append(f.tournaments, t)
	out := t.Clone()
	return &out, nil
}

func (f *fakeGateway) tournament(id string) *model.Tournament {
	for i := range f.tournaments {
		if f.tournaments[i].ID == id {
			return &f.tournaments[i]
		}
	}
	return nil
}

func (f *fakeGateway) UpdateTournament(_ context.Context, id string, patch model.TournamentPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateTournament"); err != nil {
		return err
	}
	t := f.tournament(id)
	if t == nil {
		return gateway.Classify("UpdateTournament", fmt.Errorf("tournament %s not found", id))
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Games != nil {
		t.Games = append([]model.Game(nil), patch.Games...)
	}
	if patch.Announcements != nil {
		t.Announcements = append([]model.Announcement(nil), patch.Announcements...)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	return nil
}

func (f *fakeGateway) JoinTournament(_ context.Context, tournamentID, userID string, gameIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("JoinTournament"); err != nil {
		return err
	}
	t := f.tournament(tournamentID)
	if t == nil {
		return gateway.Classify("JoinTournament", fmt.Errorf("tournament %s not found", tournamentID))
	}
	u := f.users[userID]
	p := model.Participant{ID: userID, GameIDs: append([]string(nil), gameIDs...)}
	if u != nil {
		p.Gamertag = u.Gamertag
	}
	t.Participants = append(t.Participants, p)
	for i := range t.Games {
		for _, g := range gameIDs {
			if t.Games[i].ID == g {
				t.Games[i].Participants++
			}
		}
	}
	return nil
}

func (f *fakeGateway) LeaveTournament(_ context.Context, tournamentID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeLeave != nil {
		f.beforeLeave()
	}
	if err := f.enter("LeaveTournament"); err != nil {
		return err
	}
	t := f.tournament(tournamentID)
	if t == nil {
		return nil
	}
	var kept []model.Participant
	for _, p := range t.Participants {
		if p.ID != userID {
			kept = append(kept, p)
			continue
		}
		for i := range t.Games {
			for _, g := range p.GameIDs {
				if t.Games[i].ID == g {
					t.Games[i].Participants--
				}
			}
		}
	}
	t.Participants = kept
	return nil
}

func (f *fakeGateway) ListMatches(context.Context) ([]model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMatches"); err != nil {
		return nil, err
	}
	return cloneMatches(f.matches), nil
}

func (f *fakeGateway) CreateMatch(_ context.Context, draft model.MatchDraft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateMatch"); err != nil {
		return "", err
	}
	id := f.nextID("x")
	f.matches = append(f.matches, model.Match{
		ID:           id,
		TournamentID: draft.TournamentID,
		GameID:       draft.GameID,
		Round:        draft.Round,
		Player1:      model.MatchPlayer{ID: draft.Player1ID},
		Player2:      model.MatchPlayer{ID: draft.Player2ID},
		Date:         draft.Date,
		Status:       draft.Status,
	})
	return id, nil
}

func (f *fakeGateway) UpdateMatch(_ context.Context, id string, patch model.MatchPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateMatch"); err != nil {
		return err
	}
	for i := range f.matches {
		if f.matches[i].ID == id {
			f.matches[i] = patch.Apply(f.matches[i])
			return nil
		}
	}
	return gateway.Classify("UpdateMatch", fmt.Errorf("match %s not found", id))
}

func (f *fakeGateway) PostMessage(_ context.Context, msg model.OutgoingMessage) (*model.ChatMessage, error) {
	f.mu.Lock()
	gate := f.postGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PostMessage"); err != nil {
		return nil, err
	}
	stored := model.ChatMessage{
		ID:        f.nextID("m"),
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		ClientKey: msg.ClientKey,
	}
	f.messages = append(f.messages, stored)
	return &stored, nil
}

func (f *fakeGateway) ListMessages(_ context.Context, roomID string) ([]model.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMessages"); err != nil {
		return nil, err
	}
	var out []model.ChatMessage
	for _, m := range f.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeGateway) ListLeaderboard(context.Context) ([]model.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListLeaderboard"); err != nil {
		return nil, err
	}
	return append([]model.LeaderboardEntry(nil), f.leaderboard...), nil
}

func (f *fakeGateway) ListWalletTransactions(_ context.Context, userID string) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListWalletTransactions"); err != nil {
		return nil, err
	}
	var out []model.Transaction
	for i := len(f.transactions) - 1; i >= 0; i-- {
		if f.transactions[i].UserID == userID {
			out = append(out, f.transactions[i])
		}
	}
	return out, nil
}

func (f *fakeGateway) RecordTransaction(_ context.Context, tx model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RecordTransaction"); err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = f.nextID("tx")
	}
	f.transactions = append(f.transactions, tx)
	return nil
}

func (f *fakeGateway) ListOrganizerRequests(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListOrganizerRequests"); err != nil {
		return nil, err
	}
	var out []model.User
	for _, u := range f.sortedUsers() {
		if u.OrganizerStatus == model.OrganizerPending {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeGateway) ListAllUsers(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListAllUsers"); err != nil {
		return nil, err
	}
	return f.sortedUsers(), nil
}

func (f *fakeGateway) sortedUsers() []model.User {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gamertag < out[j].Gamertag })
	return out
}

var _ gateway.Gateway = (*fakeGateway)(nil)

// fakeFeed hands the store's handlers to the test.
type fakeFeed struct {
	mu       sync.Mutex
	handlers realtime.Handlers
	subs     int
	closed   int
}

type fakeSubscription struct {
	feed *fakeFeed
	once sync.Once
}

func (s *fakeSubscription) Close() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		s.feed.closed++
		s.feed.mu.Unlock()
	})
}

func (f *fakeFeed) Subscribe(_ context.Context, h realtime.Handlers) (realtime.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = h
	f.subs++
	return &fakeSubscription{feed: f}, nil
}

func (f *fakeFeed) current() realtime.Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers
}

// fakeVerifier returns a fixed verdict.
type fakeVerifier struct {
	verdict *oracle.Verdict
	got     oracle.Request
}

func (v *fakeVerifier) Verify(_ context.Context, req oracle.Request) *oracle.Verdict {
	v.got = req
	return v.verdict
}
