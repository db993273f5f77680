package store

import (
	"context"

	"github.com/rs/zerolog/log"

	"arena-sync/internal/model"
	"arena-sync/internal/realtime"
)

// SetSession establishes the session: it loads the profile, refreshes every slice and
// (re)subscribes to the realtime feed. A nil session signs out.
func (s *Store) SetSession(ctx context.Context, sess *model.Session) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if sess == nil {
		s.SignOut()
		return nil
	}

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	old := s.sub
	s.sub = nil
	cp := *sess
	s.state.Session = &cp
	s.state.User = nil
	s.state.AuthLoading = false
	s.mu.Unlock()
	s.publish(SliceSession)

	if old != nil {
		old.Close()
	}

	if err := s.loadProfile(ctx, epoch, sess.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", sess.UserID).Msg("Failed to load profile")
	}
	s.subscribeFeed(epoch)

	return s.RefreshAppData(ctx)
}

// HasSession reports whether a session is set.
func (s *Store) HasSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Session != nil
}

// SignOut clears every user-scoped slice and tears down the realtime subscription.
func (s *Store) SignOut() {
	s.mu.Lock()
	s.epoch++
	sub := s.sub
	s.sub = nil
	s.state = State{
		ChatRooms: []model.ChatRoom{{ID: s.cfg.GlobalRoom, Type: model.RoomGlobal, Name: "Global Arena Chat"}},
	}
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.toasts.Reset()
	s.publish(SliceSession)
}

// CompleteSignUp creates the profile of a freshly registered account.
func (s *Store) CompleteSignUp(ctx context.Context, userID, gamertag, email string) error {
	epoch := s.currentEpoch()

	u, err := s.gw.CreateProfile(ctx, userID, gamertag, email)
	if err != nil {
		return s.fail("complete_sign_up", model.NotifyError, "Sign Up Failed", err)
	}
	s.setUser(epoch, u)
	return nil
}

// loadProfile fetches the signed in user. On failure the user is cleared.
func (s *Store) loadProfile(ctx context.Context, epoch uint64, userID string) error {
	u, err := s.gw.FetchUser(ctx, userID)
	if err != nil {
		s.apply(epoch, SliceUser, func(st *State) { st.User = nil })
		return err
	}
	s.setUser(epoch, u)
	return nil
}

func (s *Store) setUser(epoch uint64, u *model.User) {
	if u == nil {
		return
	}
	cp := u.Clone()
	cp.Settings = cp.Settings.Normalize()
	if s.apply(epoch, SliceUser, func(st *State) { st.User = cp }) {
		s.toasts.SetPreferences(cp.Settings.Notifications)
	}
}

// subscribeFeed opens the realtime subscription for the session of epoch.
// Feed events are dropped once the session changed.
func (s *Store) subscribeFeed(epoch uint64) {
	if s.feed == nil {
		return
	}

	h := realtime.Handlers{
		OnMessage: func(msg model.ChatMessage) {
			s.receiveMessage(epoch, msg)
		},
		OnMatch: func(realtime.ChangeEvent) {
			s.spawn(func(ctx context.Context) {
				if s.currentEpoch() == epoch {
					_ = s.RefreshMatches(ctx)
				}
			})
		},
		OnTournament: func(realtime.ChangeEvent) {
			s.spawn(func(ctx context.Context) {
				if s.currentEpoch() == epoch {
					_ = s.RefreshTournaments(ctx)
				}
			})
		},
	}

	sub, err := s.feed.Subscribe(s.bgCtx, h)
	if err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to realtime feed")
		return
	}

	s.mu.Lock()
	if s.epoch != epoch || s.closed.Load() {
		s.mu.Unlock()
		sub.Close()
		return
	}
	s.sub = sub
	s.mu.Unlock()
}
