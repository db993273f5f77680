package gateway

import (
	"context"

	"github.com/rs/zerolog/log"

	"arena-sync/internal/model"
	"arena-sync/internal/repository"
	"arena-sync/internal/storage"
)

// transactionHistoryLimit caps the wallet history fetched per refresh.
const transactionHistoryLimit = 50

// AssetStore stores uploaded files and returns their public URLs.
type AssetStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Remote implements Gateway on top of the pgx repositories and an asset store.
type Remote struct {
	profiles         *repository.ProfileRepository
	tournaments      *repository.TournamentRepository
	matches          *repository.MatchRepository
	messages         *repository.MessageRepository
	transactions     *repository.TransactionRepository
	assets           AssetStore
	leaderboardLimit int
}

// NewRemote creates a Remote gateway. assets may be nil when uploads are not configured.
func NewRemote(
	profiles *repository.ProfileRepository,
	tournaments *repository.TournamentRepository,
	matches *repository.MatchRepository,
	messages *repository.MessageRepository,
	transactions *repository.TransactionRepository,
	assets AssetStore,
	leaderboardLimit int,
) *Remote {
	if leaderboardLimit <= 0 {
		leaderboardLimit = 100
	}
	return &Remote{
		profiles:         profiles,
		tournaments:      tournaments,
		matches:          matches,
		messages:         messages,
		transactions:     transactions,
		assets:           assets,
		leaderboardLimit: leaderboardLimit,
	}
}

var _ Gateway = (*Remote)(nil)

// fail classifies err and logs it once.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	ge := Classify(op, err).(*Error)
	switch ge.Kind {
	case KindPolicyRecursion:
		log.Error().Str("op", op).Str("kind", ge.Kind.String()).Msg("Backend policy recursion detected, rerun the database setup")
	case KindResourceMissing:
		log.Warn().Str("op", op).Str("kind", ge.Kind.String()).Str("message", ge.Message).Msg("Backend resource missing")
	default:
		log.Error().Err(ge.Err).Str("op", op).Str("kind", ge.Kind.String()).Msg("Gateway call failed")
	}
	return ge
}

func (r *Remote) FetchUser(ctx context.Context, id string) (*model.User, error) {
	u, err := r.profiles.GetByID(ctx, id)
	return u, fail("fetchUser", err)
}

func (r *Remote) CreateProfile(ctx context.Context, id, gamertag, email string) (*model.User, error) {
	u, err := r.profiles.Create(ctx, id, gamertag, email)
	return u, fail("createProfile", err)
}

func (r *Remote) UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	u, err := r.profiles.Update(ctx, id, patch)
	return u, fail("updateUser", err)
}

func (r *Remote) UploadAsset(ctx context.Context, userID string, asset Asset) (string, error) {
	if r.assets == nil {
		return "", fail("uploadAsset", storage.ErrBucketNotFound)
	}
	key := storage.AvatarKey(userID, asset.FileName, asset.ContentType)
	url, err := r.assets.Put(ctx, key, asset.ContentType, asset.Data)
	return url, fail("uploadAsset", err)
}

func (r *Remote) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	ts, err := r.tournaments.List(ctx)
	return ts, fail("listTournaments", err)
}

func (r *Remote) CreateTournament(ctx context.Context, draft model.TournamentDraft) (*model.Tournament, error) {
	t, err := r.tournaments.Create(ctx, draft)
	return t, fail("createTournament", err)
}

func (r *Remote) UpdateTournament(ctx context.Context, id string, patch model.TournamentPatch) error {
	return fail("updateTournament", r.tournaments.Update(ctx, id, patch))
}

func (r *Remote) JoinTournament(ctx context.Context, tournamentID, userID string, gameIDs []string) error {
	return fail("joinTournament", r.tournaments.AddParticipant(ctx, tournamentID, userID, gameIDs))
}

func (r *Remote) LeaveTournament(ctx context.Context, tournamentID, userID string) error {
	return fail("leaveTournament", r.tournaments.RemoveParticipant(ctx, tournamentID, userID))
}

func (r *Remote) ListMatches(ctx context.Context) ([]model.Match, error) {
	ms, err := r.matches.List(ctx)
	return ms, fail("listMatches", err)
}

func (r *Remote) CreateMatch(ctx context.Context, draft model.MatchDraft) (string, error) {
	id, err := r.matches.Create(ctx, draft)
	return id, fail("createMatch", err)
}

func (r *Remote) UpdateMatch(ctx context.Context, id string, patch model.MatchPatch) error {
	return fail("updateMatch", r.matches.Update(ctx, id, patch))
}

func (r *Remote) PostMessage(ctx context.Context, msg model.OutgoingMessage) (*model.ChatMessage, error) {
	m, err := r.messages.Create(ctx, msg)
	return m, fail("postMessage", err)
}

func (r *Remote) ListMessages(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	ms, err := r.messages.ListByRoom(ctx, roomID)
	return ms, fail("listMessages", err)
}

func (r *Remote) ListLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	es, err := r.profiles.Leaderboard(ctx, r.leaderboardLimit)
	return es, fail("listLeaderboard", err)
}

func (r *Remote) ListWalletTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	txs, err := r.transactions.ListByUser(ctx, userID, transactionHistoryLimit)
	return txs, fail("listWalletTransactions", err)
}

func (r *Remote) RecordTransaction(ctx context.Context, tx model.Transaction) error {
	_, err := r.transactions.Create(ctx, tx)
	return fail("recordTransaction", err)
}

func (r *Remote) ListOrganizerRequests(ctx context.Context) ([]model.User, error) {
	us, err := r.profiles.ListByOrganizerStatus(ctx, model.OrganizerPending)
	return us, fail("listOrganizerRequests", err)
}

func (r *Remote) ListAllUsers(ctx context.Context) ([]model.User, error) {
	us, err := r.profiles.ListAll(ctx)
	return us, fail("listAllUsers", err)
}
