// Package model defines the domain entities mirrored by the arena client.
package model

import (
	"strings"
	"time"
)

// TempIDPrefix marks ids generated on the client for optimistic entries.
const TempIDPrefix = "temp-"

// GlobalRoomID is the chat room every session can see.
const GlobalRoomID = "global"

// Session is the opaque authentication context handed over by the auth provider.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// OrganizerTier is the organizer subscription level.
type OrganizerTier string

const (
	TierBasic OrganizerTier = "basic"
	TierPro   OrganizerTier = "pro"
)

// User is a player profile.
type User struct {
	ID              string          `db:"id" json:"id"`
	Gamertag        string          `db:"gamertag" json:"gamertag"`
	Email           string          `db:"email" json:"email"`
	AvatarURL       string          `db:"avatar_url" json:"avatar_url"`
	Bio             string          `db:"bio" json:"bio"`
	Location        string          `db:"location" json:"location"`
	PhoneNumber     string          `db:"phone_number" json:"phone_number"`
	XP              int64           `db:"xp" json:"xp"`
	WalletBalance   Money           `db:"wallet_balance" json:"wallet_balance"`
	IsOrganizer     bool            `db:"is_organizer" json:"is_organizer"`
	IsAdmin         bool            `db:"is_admin" json:"is_admin"`
	OrganizerStatus OrganizerStatus `db:"organizer_status" json:"organizer_status"`
	OrganizerMode   bool            `db:"organizer_mode" json:"organizer_mode"`
	OrganizerTier   OrganizerTier   `db:"organizer_tier" json:"organizer_tier"`
	ReferralCode    string          `db:"referral_code" json:"referral_code"`
	Settings        Settings        `db:"settings" json:"settings"`
	OwnedBadges     []string        `json:"owned_badges"`
}

// Level derives the player level from experience points.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/1000) + 1
}

// HasBadge reports whether the user owns the cosmetic entitlement.
func (u *User) HasBadge(id string) bool {
	for _, b := range u.OwnedBadges {
		if b == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.OwnedBadges = append([]string(nil), u.OwnedBadges...)
	return &c
}

// GameType is the genre of a tournament game.
type GameType string

const (
	GameFPS      GameType = "FPS"
	GameMOBA     GameType = "MOBA"
	GameRTS      GameType = "RTS"
	GameFighting GameType = "Fighting"
	GameSports   GameType = "Sports"
	GameCard     GameType = "Card"
	GameSoccer   GameType = "Soccer"
)

// Game is one competition inside a multi-game tournament.
type Game struct {
	ID              string           `json:"id"`
	Type            GameType         `json:"type"`
	CustomName      string           `json:"customName,omitempty"`
	RegistrationFee Money            `json:"registrationFee"`
	MaxParticipants int              `json:"maxParticipants"`
	Participants    int              `json:"participants"`
	Status          TournamentStatus `json:"status"`
}

// Full reports whether the game reached its capacity.
func (g Game) Full() bool {
	return g.MaxParticipants > 0 && g.Participants >= g.MaxParticipants
}

// Participant is a user registered to a tournament.
type Participant struct {
	ID        string    `json:"id"`
	Gamertag  string    `json:"gamertag"`
	AvatarURL string    `json:"avatarUrl"`
	JoinedAt  time.Time `json:"joinedAt"`
	GameIDs   []string  `json:"gameIds"`
	XP        int64     `json:"xp"`
}

// EnteredGame reports whether the participant registered for the game.
func (p Participant) EnteredGame(gameID string) bool {
	for _, id := range p.GameIDs {
		if id == gameID {
			return true
		}
	}
	return false
}

// Announcement is an organizer broadcast attached to a tournament.
type Announcement struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Read    bool      `json:"read"`
}

// Tournament is a scheduled event grouping one or more games.
type Tournament struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Date            time.Time        `json:"date"`
	PrizePool       string           `json:"prizePool"`
	Status          TournamentStatus `json:"status"`
	OrganizerID     string           `json:"organizerId"`
	Description     string           `json:"description"`
	Location        string           `json:"location,omitempty"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	Rules           []string         `json:"rules"`
	PrizeBreakdown  []string         `json:"prizeBreakdown"`
	Announcements   []Announcement   `json:"announcements"`
	Participants    []Participant    `json:"registeredPlayers"`
	Games           []Game           `json:"games"`
	MinLevel        int              `json:"minLevel,omitempty"`
	ChatRoomID      string           `json:"chatRoomId,omitempty"`
	IsPriority      bool             `json:"isPriority"`
	IsVerifiedEvent bool             `json:"isVerifiedEvent"`
}

// Game returns the game with the given id.
func (t *Tournament) Game(id string) (Game, bool) {
	for _, g := range t.Games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

// Participant returns the registration of the given user.
func (t *Tournament) Participant(userID string) (Participant, bool) {
	for _, p := range t.Participants {
		if p.ID == userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Clone returns a deep copy of the tournament.
func (t Tournament) Clone() Tournament {
	c := t
	c.Rules = append([]string(nil), t.Rules...)
	c.PrizeBreakdown = append([]string(nil), t.PrizeBreakdown...)
	c.Announcements = append([]Announcement(nil), t.Announcements...)
	c.Games = append([]Game(nil), t.Games...)
	c.Participants = make([]Participant, len(t.Participants))
	for i, p := range t.Participants {
		p.GameIDs = append([]string(nil), p.GameIDs...)
		c.Participants[i] = p
	}
	if t.Participants == nil {
		c.Participants = nil
	}
	return c
}

// MatchPlayer is one side of a match.
type MatchPlayer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Score     *int   `json:"score,omitempty"`
}

// Connection is the pre-match lobby handshake state.
type Connection struct {
	HostID      string          `json:"hostId,omitempty"`
	HostGameTag string          `json:"hostGameTag,omitempty"`
	State       ConnectionState `json:"status"`
}

// Match is a pairing of two players inside a tournament game.
type Match struct {
	ID              string      `json:"id"`
	TournamentID    string      `json:"tournamentId"`
	GameID          string      `json:"gameId"`
	TournamentTitle string      `json:"tournamentTitle"`
	Round           string      `json:"round"`
	BracketSide     string      `json:"bracketSide,omitempty"`
	Player1         MatchPlayer `json:"player1"`
	Player2         MatchPlayer `json:"player2"`
	Date            time.Time   `json:"date"`
	Status          MatchStatus `json:"status"`
	WinnerID        string      `json:"winnerId,omitempty"`
	VerifiedByAPI   bool        `json:"verifiedByApi"`
	Connection      *Connection `json:"connection,omitempty"`
}

// HasPlayer reports whether the user plays in the match.
func (m *Match) HasPlayer(userID string) bool {
	return userID != "" && (m.Player1.ID == userID || m.Player2.ID == userID)
}

// Opponent returns the id of the other player, or "" if userID does not play.
func (m *Match) Opponent(userID string) string {
	switch userID {
	case m.Player1.ID:
		return m.Player2.ID
	case m.Player2.ID:
		return m.Player1.ID
	}
	return ""
}

// ConnectionState returns the handshake state, idle when no connection exists yet.
func (m *Match) ConnectionState() ConnectionState {
	if m.Connection == nil || m.Connection.State == "" {
		return ConnIdle
	}
	return m.Connection.State
}

// Clone returns a deep copy of the match.
func (m Match) Clone() Match {
	c := m
	if m.Player1.Score != nil {
		s := *m.Player1.Score
		c.Player1.Score = &s
	}
	if m.Player2.Score != nil {
		s := *m.Player2.Score
		c.Player2.Score = &s
	}
	if m.Connection != nil {
		conn := *m.Connection
		c.Connection = &conn
	}
	return c
}

// ChatMessage is a single chat line.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	ClientKey string    `json:"client_key,omitempty"`
	Timestamp time.Time `json:"created_at"`
}

// Pending reports whether the message is an optimistic entry not yet echoed by the server.
func (m ChatMessage) Pending() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// RoomType categorizes chat rooms.
type RoomType string

const (
	RoomGlobal RoomType = "global"
	RoomDirect RoomType = "direct"
	RoomMatch  RoomType = "match"
	RoomGroup  RoomType = "group"
)

// ChatRoom is a conversation container.
type ChatRoom struct {
	ID             string   `json:"id"`
	Type           RoomType `json:"type"`
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participantIds"`
}

// Includes reports whether the user takes part in the room.
func (r ChatRoom) Includes(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NotificationKind categorizes notifications.
type NotificationKind string

const (
	NotifyMatch        NotificationKind = "match"
	NotifySystem       NotificationKind = "system"
	NotifyInvite       NotificationKind = "invite"
	NotifyReward       NotificationKind = "reward"
	NotifyAnnouncement NotificationKind = "announcement"
	NotifyRank         NotificationKind = "rank"
	NotifyPayment      NotificationKind = "payment"
	NotifyError        NotificationKind = "error"
)

// Notification is a user-facing notice.
type Notification struct {
	ID      string           `json:"id"`
	Kind    NotificationKind `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Date    time.Time        `json:"date"`
	Read    bool             `json:"read"`
}

// LeaderboardEntry is one row of the XP ranking.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	Gamertag  string `json:"gamertag"`
	Points    int64  `json:"points"`
	WinRate   string `json:"winRate"`
	AvatarURL string `json:"avatarUrl"`
}

// Transaction is a wallet ledger entry.
type Transaction struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Amount    Money     `db:"amount" json:"amount"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Transaction types for wallet ledger entries.
const (
	TxTypeDebit  = "debit"  // Wallet spend (store purchase, entry fee)
	TxTypeCredit = "credit" // Wallet top-up or reward
)
