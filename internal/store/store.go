// Package store is the reconciling client state container. It mirrors backend
// state, applies optimistic mutations and rolls them back when the backend refuses.
package store

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"arena-sync/internal/config"
	"arena-sync/internal/gateway"
	"arena-sync/internal/model"
	"arena-sync/internal/notify"
	"arena-sync/internal/oracle"
	"arena-sync/internal/pkg/lock"
	"arena-sync/internal/realtime"
	"arena-sync/internal/shop"
)

// Store errors
var (
	ErrNotLoggedIn       = errors.New("not logged in")
	ErrClosed            = errors.New("store closed")
	ErrUnknownTournament = errors.New("tournament not found")
	ErrUnknownMatch      = errors.New("match not found")
	ErrForbidden         = errors.New("operation not allowed for this user")
	ErrInvalidInput      = errors.New("invalid input")

	ErrInsufficientBalance = shop.ErrInsufficientBalance
)

// DefaultFallbackMessage is shown when a failure carries no message.
const DefaultFallbackMessage = "Could not complete request. Please try again."

// DefaultLockTimeout bounds the wait for a wallet or match key held by another call.
const DefaultLockTimeout = 10 * time.Second

const recursionMessage = "Database security policy recursion detected. Please contact system admin."

// Verifier reads a match result from a screenshot; nil means unverifiable.
type Verifier interface {
	Verify(ctx context.Context, req oracle.Request) *oracle.Verdict
}

// Slice names the part of the state a Change refers to.
type Slice string

const (
	SliceSession       Slice = "session"
	SliceUser          Slice = "user"
	SliceTournaments   Slice = "tournaments"
	SliceMatches       Slice = "matches"
	SliceLeaderboard   Slice = "leaderboard"
	SliceChat          Slice = "chat"
	SliceTransactions  Slice = "transactions"
	SliceAdmin         Slice = "admin"
	SliceNotifications Slice = "notifications"
	SliceLoading       Slice = "loading"
)

// Change tells observers which slice was replaced.
type Change struct {
	Slice Slice
}

// State is a copy of everything the store mirrors.
type State struct {
	Session           *model.Session
	User              *model.User
	Tournaments       []model.Tournament
	Matches           []model.Match
	Leaderboard       []model.LeaderboardEntry
	ChatRooms         []model.ChatRoom
	ChatMessages      []model.ChatMessage
	Transactions      []model.Transaction
	OrganizerRequests []model.User
	AllUsers          []model.User
	Notifications     []model.Notification
	ActiveToast       *model.Notification
	Loading           bool
	AuthLoading       bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock driving toast timers and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithRand sets the random source used for bracket seeding.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// Store is safe for concurrent use. Gateway calls are made without holding the state lock,
// so concurrent refreshes of one slice resolve last-writer-wins.
type Store struct {
	gw       gateway.Gateway
	feed     realtime.Feed
	verifier Verifier
	cfg      config.StoreConfig
	clock    clockwork.Clock
	toasts   *notify.Emitter
	keys     *lock.KeyLock

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.RWMutex
	state State
	// epoch changes with every session switch; results fetched for an older epoch are dropped.
	epoch uint64
	sub   realtime.Subscription

	obsMu     sync.Mutex
	observers map[chan Change]struct{}

	bgCtx    context.Context
	bgCancel context.CancelFunc

	// spawnMu orders spawn's Add against Close's Wait.
	spawnMu sync.Mutex
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// New creates a Store. feed and verifier may be nil.
func New(gw gateway.Gateway, feed realtime.Feed, verifier Verifier, cfg config.StoreConfig, opts ...Option) *Store {
	if cfg.GlobalRoom == "" {
		cfg.GlobalRoom = model.GlobalRoomID
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = DefaultFallbackMessage
	}
	if cfg.ToastDuration <= 0 {
		cfg.ToastDuration = notify.DefaultDuration
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}

	s := &Store{
		gw:        gw,
		feed:      feed,
		verifier:  verifier,
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		keys:      lock.NewKeyLock(),
		observers: make(map[chan Change]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.clock.Now().UnixNano()))
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	s.state = State{
		ChatRooms:   []model.ChatRoom{{ID: cfg.GlobalRoom, Type: model.RoomGlobal, Name: "Global Arena Chat"}},
		AuthLoading: true,
	}

	s.toasts = notify.NewEmitter(notify.WithClock(s.clock), notify.WithDuration(cfg.ToastDuration))
	s.toasts.Observe(func(notify.Event) { s.publish(SliceNotifications) })
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	st := s.state
	out := State{
		Loading:     st.Loading,
		AuthLoading: st.AuthLoading,
		User:        st.User.Clone(),
	}
	if st.Session != nil {
		sess := *st.Session
		out.Session = &sess
	}
	out.Tournaments = cloneTournaments(st.Tournaments)
	out.Matches = cloneMatches(st.Matches)
	out.Leaderboard = append([]model.LeaderboardEntry(nil), st.Leaderboard...)
	out.ChatRooms = cloneRooms(st.ChatRooms)
	out.ChatMessages = append([]model.ChatMessage(nil), st.ChatMessages...)
	out.Transactions = append([]model.Transaction(nil), st.Transactions...)
	out.OrganizerRequests = cloneUsers(st.OrganizerRequests)
	out.AllUsers = cloneUsers(st.AllUsers)
	s.mu.RUnlock()

	out.Notifications = s.toasts.List()
	if n, ok := s.toasts.Active(); ok {
		out.ActiveToast = &n
	}
	return out
}

// Subscribe returns a channel of state changes and a function to stop receiving them.
// Slow observers miss changes rather than blocking the store.
func (s *Store) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 32)
	s.obsMu.Lock()
	s.observers[ch] = struct{}{}
	s.obsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.obsMu.Lock()
			delete(s.observers, ch)
			s.obsMu.Unlock()
		})
	}
}

func (s *Store) publish(slice Slice) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for ch := range s.observers {
		select {
		case ch <- Change{Slice: slice}:
		default:
		}
	}
}

// OnToast registers fn for every toast shown.
func (s *Store) OnToast(fn func(model.Notification)) {
	s.toasts.Observe(func(ev notify.Event) {
		if ev.Type == notify.ToastShown {
			fn(ev.Notification)
		}
	})
}

// Wait blocks until background work such as message posts and feed-triggered refreshes finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close tears down the realtime subscription, cancels background work and stops
// applying late results.
func (s *Store) Close() {
	s.spawnMu.Lock()
	first := s.closed.CompareAndSwap(false, true)
	s.spawnMu.Unlock()
	if !first {
		return
	}
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.epoch++
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.bgCancel()
	s.wg.Wait()
	s.toasts.Stop()

	s.obsMu.Lock()
	for ch := range s.observers {
		close(ch)
		delete(s.observers, ch)
	}
	s.obsMu.Unlock()
}

// spawn runs fn in the background and reports false once the store closed.
func (s *Store) spawn(fn func(ctx context.Context)) bool {
	s.spawnMu.Lock()
	defer s.spawnMu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.bgCtx)
	}()
	return true
}

// currentEpoch returns the epoch to pass to apply.
func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// apply mutates the state unless the store closed or the session changed since epoch.
func (s *Store) apply(epoch uint64, slice Slice, fn func(st *State)) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	fn(&s.state)
	s.mu.Unlock()
	s.publish(slice)
	return true
}

// currentUser returns a copy of the signed in user.
func (s *Store) currentUser() (*model.User, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil, s.epoch, false
	}
	return s.state.User.Clone(), s.epoch, true
}

// requireUser returns the signed in user or reports the auth error.
func (s *Store) requireUser() (*model.User, uint64, error) {
	u, epoch, ok := s.currentUser()
	if !ok {
		s.emit(model.NotifyError, "Error", "Not logged in")
		return nil, epoch, ErrNotLoggedIn
	}
	return u, epoch, nil
}

func (s *Store) emit(kind model.NotificationKind, title, message string) {
	if s.closed.Load() {
		return
	}
	s.toasts.Emit(kind, title, message)
}

// fail logs a remote failure and surfaces it as the single toast of the operation.
func (s *Store) fail(op string, kind model.NotificationKind, title string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Store operation failed")

	if gateway.IsKind(err, gateway.KindPolicyRecursion) {
		s.emit(model.NotifySystem, "System Error", recursionMessage)
		return err
	}
	msg := gateway.MessageOf(err)
	if msg == "" {
		msg = s.cfg.FallbackMessage
	}
	s.emit(kind, title, msg)
	return err
}

func (s *Store) now() time.Time {
	return s.clock.Now()
}

// ActiveToast returns the visible toast.
func (s *Store) ActiveToast() (model.Notification, bool) {
	return s.toasts.Active()
}

// Notifications returns the notification history, newest first.
func (s *Store) Notifications() []model.Notification {
	return s.toasts.List()
}

// DismissToast hides the visible toast.
func (s *Store) DismissToast() {
	s.toasts.Dismiss()
}

// MarkNotificationRead flags a notification as read.
func (s *Store) MarkNotificationRead(id string) {
	s.toasts.MarkRead(id)
}

// Notify emits a notification from outside the store, e.g. a referral reward.
func (s *Store) Notify(kind model.NotificationKind, title, message string) {
	s.emit(kind, title, message)
}

func cloneTournaments(in []model.Tournament) []model.Tournament {
	if in == nil {
		return nil
	}
	out := make([]model.Tournament, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func cloneMatches(in []model.Match) []model.Match {
	if in == nil {
		return nil
	}
	out := make([]model.Match, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

func cloneRooms(in []model.ChatRoom) []model.ChatRoom {
	if in == nil {
		return nil
	}
	out := make([]model.ChatRoom, len(in))
	for i, r := range in {
		r.ParticipantIDs = append([]string(nil), r.ParticipantIDs...)
		out[i] = r
	}
	return out
}

func cloneUsers(in []model.User) []model.User {
	if in == nil {
		return nil
	}
	out := make([]model.User, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}
