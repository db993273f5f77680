// Package gateway is the typed boundary between the store and the arena backend.
package gateway

import (
	"context"

	"arena-sync/internal/model"
)

// Asset is a file handed to UploadAsset.
type Asset struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Gateway reads and writes backend entities. It holds no business rules;
// every failure is an *Error.
type Gateway interface {
	FetchUser(ctx context.Context, id string) (*model.User, error)
	CreateProfile(ctx context.Context, id, gamertag, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
	UploadAsset(ctx context.Context, userID string, asset Asset) (string, error)

	ListTournaments(ctx context.Context) ([]model.Tournament, error)
	CreateTournament(ctx context.Context, draft model.TournamentDraft) (*model.Tournament, error)
	UpdateTournament(ctx context.Context, id string, patch model.TournamentPatch) error
	JoinTournament(ctx context.Context, tournamentID, userID string, gameIDs []string) error
	LeaveTournament(ctx context.Context, tournamentID, userID string) error

	ListMatches(ctx context.Context) ([]model.Match, error)
	CreateMatch(ctx context.Context, draft model.MatchDraft) (string, error)
	UpdateMatch(ctx context.Context, id string, patch model.MatchPatch) error

	PostMessage(ctx context.Context, msg model.OutgoingMessage) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, roomID string) ([]model.ChatMessage, error)

	ListLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error)
	ListWalletTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
	RecordTransaction(ctx context.Context, tx model.Transaction) error

	ListOrganizerRequests(ctx context.Context) ([]model.User, error)
	ListAllUsers(ctx context.Context) ([]model.User, error)
}
