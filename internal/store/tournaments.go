package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"

	"arena-sync/internal/bracket"
	"arena-sync/internal/model"
	"arena-sync/internal/pkg/ids"
)

// PaymentMethod is how a registration's entry fees are paid.
type PaymentMethod string

const (
	// PayWallet debits the entry fees from the in-app wallet.
	PayWallet PaymentMethod = "wallet"
	// PayExternal means the fees were settled outside the app.
	PayExternal PaymentMethod = "external"
)

// Tournament returns the local copy of a tournament.
func (s *Store) Tournament(id string) (model.Tournament, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.state.Tournaments {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return model.Tournament{}, false
}

// GetParticipantProfile finds a registered player in any tournament.
func (s *Store) GetParticipantProfile(userID string) (model.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.state.Tournaments {
		if p, ok := s.state.Tournaments[i].Participant(userID); ok {
			p.GameIDs = append([]string(nil), p.GameIDs...)
			return p, true
		}
	}
	return model.Participant{}, false
}

// RegisterForTournament enters the user into the selected games. The registration is
// shown locally at once; if the backend refuses it, the tournament list is restored
// to the exact list seen before the call.
func (s *Store) RegisterForTournament(ctx context.Context, tournamentID string, gameIDs []string, method PaymentMethod) (bool, error) {
	u, epoch, err := s.requireUser()
	if err != nil {
		return false, err
	}

	t, ok := s.Tournament(tournamentID)
	if !ok {
		s.emit(model.NotifyError, "Registration Failed", "Tournament not found.")
		return false, ErrUnknownTournament
	}

	fee, err := entryFee(t, gameIDs)
	if err != nil {
		s.emit(model.NotifyError, "Registration Failed", "Select at least one game of this tournament.")
		return false, err
	}
	if t.MinLevel > 0 && model.Level(u.XP) < t.MinLevel {
		s.emit(model.NotifyError, "Registration Failed", fmt.Sprintf("Level %d required.", t.MinLevel))
		return false, ErrForbidden
	}
	payWithWallet := method == PayWallet && fee > 0
	if payWithWallet && !u.WalletBalance.Covers(fee) {
		s.emit(model.NotifySystem, "Payment Denied", "Insufficient wallet balance.")
		return false, ErrInsufficientBalance
	}

	var previous []model.Tournament
	s.apply(epoch, SliceTournaments, func(st *State) {
		previous = cloneTournaments(st.Tournaments)
		for i := range st.Tournaments {
			if st.Tournaments[i].ID == tournamentID {
				st.Tournaments[i] = withParticipant(st.Tournaments[i], u, gameIDs, s.now())
			}
		}
	})

	if err := s.gw.JoinTournament(ctx, tournamentID, u.ID, gameIDs); err != nil {
		s.apply(epoch, SliceTournaments, func(st *State) { st.Tournaments = previous })
		return false, s.fail("register_for_tournament", model.NotifyError, "Registration Failed", err)
	}

	if payWithWallet {
		err := s.charge(ctx, epoch, u.ID, fee, "Entry fee: "+t.Title, func(cur model.User) (model.UserPatch, error) {
			if !cur.WalletBalance.Covers(fee) {
				return model.UserPatch{}, ErrInsufficientBalance
			}
			return model.UserPatch{WalletBalance: model.Ptr(cur.WalletBalance.Sub(fee))}, nil
		})
		if err != nil {
			s.undoJoin(ctx, epoch, tournamentID, u.ID, previous)
			return false, s.fail("register_for_tournament", model.NotifyError, "Payment Failed", err)
		}
	}

	_ = s.RefreshTournaments(ctx)
	s.emit(model.NotifyPayment, "Registered", "Entry confirmed.")
	return true, nil
}

// undoJoin withdraws a registration whose fee could not be taken. If the backend
// refuses the withdrawal, the list is reloaded so it shows what the backend holds.
func (s *Store) undoJoin(ctx context.Context, epoch uint64, tournamentID, userID string, previous []model.Tournament) {
	if err := s.gw.LeaveTournament(ctx, tournamentID, userID); err != nil {
		log.Error().Err(err).
			Str("tournament_id", tournamentID).
			Str("user_id", userID).
			Msg("Failed to withdraw unpaid registration")
		_ = s.RefreshTournaments(ctx)
		return
	}
	s.apply(epoch, SliceTournaments, func(st *State) { st.Tournaments = previous })
}

// entryFee checks that every selected game belongs to t and sums their fees.
func entryFee(t model.Tournament, gameIDs []string) (model.Money, error) {
	if len(gameIDs) == 0 {
		return 0, ErrInvalidInput
	}
	var fee model.Money
	for _, id := range gameIDs {
		g, ok := t.Game(id)
		if !ok {
			return 0, ErrInvalidInput
		}
		fee = fee.Add(g.RegistrationFee)
	}
	return fee, nil
}

// withParticipant returns t with u registered for gameIDs.
func withParticipant(t model.Tournament, u *model.User, gameIDs []string, now time.Time) model.Tournament {
	if _, ok := t.Participant(u.ID); ok {
		return t
	}
	t.Participants = append(t.Participants, model.Participant{
		ID:        u.ID,
		Gamertag:  u.Gamertag,
		AvatarURL: u.AvatarURL,
		JoinedAt:  now,
		GameIDs:   append([]string(nil), gameIDs...),
		XP:        u.XP,
	})
	games := make([]model.Game, len(t.Games))
	for i, g := range t.Games {
		for _, id := range gameIDs {
			if g.ID == id {
				g.Participants++
			}
		}
		games[i] = g
	}
	t.Games = games
	return t
}

// LeaveTournament withdraws the user. Nothing is changed locally before the backend
// confirms, so a failure only reports the error.
func (s *Store) LeaveTournament(ctx context.Context, tournamentID string) error {
	u, _, err := s.requireUser()
	if err != nil {
		return err
	}

	if err := s.gw.LeaveTournament(ctx, tournamentID, u.ID); err != nil {
		return s.fail("leave_tournament", model.NotifySystem, "Error", err)
	}

	_ = s.RefreshTournaments(ctx)
	s.emit(model.NotifySystem, "Withdrawn", "Your registration has been cancelled.")
	return nil
}

// CreateTournament publishes a tournament organized by the signed in user.
func (s *Store) CreateTournament(ctx context.Context, draft model.TournamentDraft) (*model.Tournament, error) {
	u, epoch, err := s.requireUser()
	if err != nil {
		return nil, err
	}
	if !u.IsOrganizer && !u.IsAdmin {
		s.emit(model.NotifyError, "Error", "Only organizers can create tournaments.")
		return nil, ErrForbidden
	}
	if draft.Title == "" || len(draft.Games) == 0 {
		s.emit(model.NotifyError, "Error", "A tournament needs a title and at least one game.")
		return nil, ErrInvalidInput
	}

	draft.OrganizerID = u.ID
	if draft.CreateGroupChat && draft.ChatRoomID == "" {
		draft.ChatRoomID = "group-" + slug.Make(draft.Title)
	}

	created, err := s.gw.CreateTournament(ctx, draft)
	if err != nil {
		return nil, s.fail("create_tournament", model.NotifySystem, "Error", err)
	}

	if draft.ChatRoomID != "" {
		s.apply(epoch, SliceChat, func(st *State) {
			for _, r := range st.ChatRooms {
				if r.ID == draft.ChatRoomID {
					return
				}
			}
			st.ChatRooms = append(st.ChatRooms, model.ChatRoom{
				ID:             draft.ChatRoomID,
				Type:           model.RoomGroup,
				Name:           draft.Title,
				ParticipantIDs: []string{u.ID},
			})
		})
	}

	_ = s.RefreshTournaments(ctx)
	s.emit(model.NotifySystem, "Success", "Tournament is now live.")
	return created, nil
}

// UpdateTournament applies an organizer edit. Status changes may only move forward.
func (s *Store) UpdateTournament(ctx context.Context, id string, patch model.TournamentPatch) error {
	u, _, err := s.requireUser()
	if err != nil {
		return err
	}
	t, ok := s.Tournament(id)
	if !ok {
		s.emit(model.NotifyError, "Error", "Tournament not found.")
		return ErrUnknownTournament
	}
	if t.OrganizerID != u.ID && !u.IsAdmin {
		s.emit(model.NotifyError, "Error", "Only the organizer can edit this tournament.")
		return ErrForbidden
	}
	if patch.Status != nil && !t.Status.CanAdvanceTo(*patch.Status) {
		s.emit(model.NotifyError, "Error", "Tournament status can only move forward.")
		return ErrInvalidInput
	}

	if err := s.gw.UpdateTournament(ctx, id, patch); err != nil {
		return s.fail("update_tournament", model.NotifySystem, "Error", err)
	}
	_ = s.RefreshTournaments(ctx)
	return nil
}

// AddAnnouncement appends an organizer announcement to the tournament.
func (s *Store) AddAnnouncement(ctx context.Context, tournamentID, message string) error {
	t, ok := s.Tournament(tournamentID)
	if !ok {
		s.emit(model.NotifyError, "Error", "Tournament not found.")
		return ErrUnknownTournament
	}
	if message == "" {
		return ErrInvalidInput
	}

	announcements := append(t.Announcements, model.Announcement{
		ID:      ids.New(),
		Message: message,
		Date:    s.now(),
	})
	return s.UpdateTournament(ctx, tournamentID, model.TournamentPatch{Announcements: announcements})
}

// GenerateBracket pairs the players entered for gameID into first-round matches and
// marks the game and the tournament Ongoing. Matches already created are kept when a
// later one fails.
func (s *Store) GenerateBracket(ctx context.Context, tournamentID, gameID string) (int, error) {
	u, _, err := s.requireUser()
	if err != nil {
		return 0, err
	}
	t, ok := s.Tournament(tournamentID)
	if !ok {
		s.emit(model.NotifyError, "Error", "Tournament not found.")
		return 0, ErrUnknownTournament
	}
	if t.OrganizerID != u.ID && !u.IsAdmin {
		s.emit(model.NotifyError, "Error", "Only the organizer can generate brackets.")
		return 0, ErrForbidden
	}

	s.rngMu.Lock()
	plan, err := bracket.Generate(t, gameID, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		if errors.Is(err, bracket.ErrNotEnoughPlayers) {
			s.emit(model.NotifySystem, "Bracket", "At least two players must enter the game.")
		}
		return 0, err
	}
	if plan.Unpaired != nil {
		log.Info().
			Str("tournament_id", tournamentID).
			Str("game_id", gameID).
			Str("user_id", plan.Unpaired.ID).
			Msg("Odd player count, last player left unpaired")
	}

	created := 0
	for _, draft := range plan.Drafts(t.Date) {
		if _, err := s.gw.CreateMatch(ctx, draft); err != nil {
			log.Warn().Err(err).
				Str("tournament_id", tournamentID).
				Str("player1_id", draft.Player1ID).
				Str("player2_id", draft.Player2ID).
				Msg("Failed to create bracket match")
			continue
		}
		created++
	}

	games := make([]model.Game, len(t.Games))
	for i, g := range t.Games {
		if g.ID == gameID && g.Status.CanAdvanceTo(model.TournamentOngoing) {
			g.Status = model.TournamentOngoing
		}
		games[i] = g
	}
	patch := model.TournamentPatch{Games: games}
	if t.Status.CanAdvanceTo(model.TournamentOngoing) {
		patch.Status = model.Ptr(model.TournamentOngoing)
	}

	if err := s.gw.UpdateTournament(ctx, tournamentID, patch); err != nil {
		_ = s.RefreshMatches(ctx)
		return created, s.fail("generate_bracket", model.NotifySystem, "Error", err)
	}

	_ = s.RefreshTournaments(ctx)
	_ = s.RefreshMatches(ctx)
	s.emit(model.NotifyMatch, "Bracket Ready", fmt.Sprintf("%d matches scheduled.", created))
	return created, nil
}
