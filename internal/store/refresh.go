package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"arena-sync/internal/gateway"
	"arena-sync/internal/model"
)

// RefreshAppData reloads tournaments, matches, the leaderboard and the wallet history
// concurrently, then the admin directory for admins, then the global chat.
// A failed fetch never aborts its siblings; failures are logged and surfaced once.
func (s *Store) RefreshAppData(ctx context.Context) error {
	epoch := s.currentEpoch()
	s.setLoading(epoch, true)
	defer s.setLoading(epoch, false)

	s.mu.RLock()
	var sessionUserID string
	if s.state.Session != nil {
		sessionUserID = s.state.Session.UserID
	}
	s.mu.RUnlock()

	var (
		g    errgroup.Group
		errs = make([]error, 4)
	)
	g.Go(func() error { errs[0] = s.loadTournaments(ctx, epoch); return nil })
	g.Go(func() error { errs[1] = s.loadMatches(ctx, epoch); return nil })
	g.Go(func() error { errs[2] = s.loadLeaderboard(ctx, epoch); return nil })
	g.Go(func() error { errs[3] = s.loadTransactions(ctx, epoch, sessionUserID); return nil })
	_ = g.Wait()

	errs = append(errs, s.refreshAdmin(ctx, epoch)...)
	errs = append(errs, s.loadRoom(ctx, epoch, s.cfg.GlobalRoom))

	err := errors.Join(errs...)
	if err != nil {
		s.surfaceRefreshFailure(err)
	}
	return err
}

// RefreshTournaments replaces the tournament list with the backend's.
func (s *Store) RefreshTournaments(ctx context.Context) error {
	return s.logged("refresh_tournaments", s.loadTournaments(ctx, s.currentEpoch()))
}

// RefreshMatches replaces the match list with the backend's.
func (s *Store) RefreshMatches(ctx context.Context) error {
	return s.logged("refresh_matches", s.loadMatches(ctx, s.currentEpoch()))
}

// RefreshLeaderboard replaces the leaderboard with the backend's.
func (s *Store) RefreshLeaderboard(ctx context.Context) error {
	return s.logged("refresh_leaderboard", s.loadLeaderboard(ctx, s.currentEpoch()))
}

// RefreshAdminData reloads organizer requests and the user directory. It does nothing
// unless the signed in user is an admin.
func (s *Store) RefreshAdminData(ctx context.Context) error {
	return errors.Join(s.refreshAdmin(ctx, s.currentEpoch())...)
}

// RefreshRoom replaces the history of one chat room, keeping unconfirmed local messages.
func (s *Store) RefreshRoom(ctx context.Context, roomID string) error {
	return s.logged("refresh_room", s.loadRoom(ctx, s.currentEpoch(), roomID))
}

func (s *Store) logged(op string, err error) error {
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("Refresh failed")
	}
	return err
}

func (s *Store) surfaceRefreshFailure(err error) {
	if gateway.IsKind(err, gateway.KindPolicyRecursion) {
		s.emit(model.NotifySystem, "System Error", recursionMessage)
		return
	}
	msg := s.cfg.FallbackMessage
	var ge *gateway.Error
	if errors.As(err, &ge) && ge.Message != "" {
		msg = ge.Message
	}
	s.emit(model.NotifySystem, "Sync Failed", msg)
}

func (s *Store) setLoading(epoch uint64, v bool) {
	s.apply(epoch, SliceLoading, func(st *State) { st.Loading = v })
}

func (s *Store) loadTournaments(ctx context.Context, epoch uint64) error {
	ts, err := s.gw.ListTournaments(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch tournaments")
		return err
	}
	s.apply(epoch, SliceTournaments, func(st *State) { st.Tournaments = ts })
	return nil
}

func (s *Store) loadMatches(ctx context.Context, epoch uint64) error {
	ms, err := s.gw.ListMatches(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch matches")
		return err
	}
	s.apply(epoch, SliceMatches, func(st *State) { st.Matches = ms })
	return nil
}

func (s *Store) loadLeaderboard(ctx context.Context, epoch uint64) error {
	lb, err := s.gw.ListLeaderboard(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch leaderboard")
		return err
	}
	s.apply(epoch, SliceLeaderboard, func(st *State) { st.Leaderboard = lb })
	return nil
}

func (s *Store) loadTransactions(ctx context.Context, epoch uint64, userID string) error {
	if userID == "" {
		s.apply(epoch, SliceTransactions, func(st *State) { st.Transactions = nil })
		return nil
	}
	txs, err := s.gw.ListWalletTransactions(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to fetch wallet transactions")
		return err
	}
	s.apply(epoch, SliceTransactions, func(st *State) { st.Transactions = txs })
	return nil
}

// refreshAdmin fetches both admin lists concurrently and returns their failures.
func (s *Store) refreshAdmin(ctx context.Context, epoch uint64) []error {
	u, _, ok := s.currentUser()
	if !ok || !u.IsAdmin {
		return nil
	}

	var (
		g        errgroup.Group
		requests []model.User
		users    []model.User
		errs     = make([]error, 2)
	)
	g.Go(func() error {
		requests, errs[0] = s.gw.ListOrganizerRequests(ctx)
		return nil
	})
	g.Go(func() error {
		users, errs[1] = s.gw.ListAllUsers(ctx)
		return nil
	})
	_ = g.Wait()

	if errs[0] != nil {
		log.Warn().Err(errs[0]).Msg("Failed to fetch organizer requests")
	}
	if errs[1] != nil {
		log.Warn().Err(errs[1]).Msg("Failed to fetch user directory")
	}
	s.apply(epoch, SliceAdmin, func(st *State) {
		if errs[0] == nil {
			st.OrganizerRequests = requests
		}
		if errs[1] == nil {
			st.AllUsers = users
		}
	})
	return errs
}

func (s *Store) loadRoom(ctx context.Context, epoch uint64, roomID string) error {
	msgs, err := s.gw.ListMessages(ctx, roomID)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to fetch chat history")
		return err
	}
	s.apply(epoch, SliceChat, func(st *State) {
		st.ChatMessages = replaceRoom(st.ChatMessages, roomID, msgs)
	})
	return nil
}

// replaceRoom swaps the history of roomID for fetched. Pending messages of the room
// whose client key is not in fetched are kept after it.
func replaceRoom(current []model.ChatMessage, roomID string, fetched []model.ChatMessage) []model.ChatMessage {
	keys := make(map[string]bool, len(fetched))
	for _, m := range fetched {
		if m.ClientKey != "" {
			keys[m.ClientKey] = true
		}
	}

	var out, pending []model.ChatMessage
	for _, m := range current {
		switch {
		case m.RoomID != roomID:
			out = append(out, m)
		case m.Pending() && !keys[m.ClientKey]:
			pending = append(pending, m)
		}
	}
	out = append(out, fetched...)
	return append(out, pending...)
}
