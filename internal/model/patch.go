package model

import "time"

// UserPatch is a partial profile update; nil fields are left untouched.
type UserPatch struct {
	Gamertag        *string
	Email           *string
	AvatarURL       *string
	Bio             *string
	Location        *string
	PhoneNumber     *string
	XP              *int64
	WalletBalance   *Money
	IsOrganizer     *bool
	IsAdmin         *bool
	OrganizerStatus *OrganizerStatus
	OrganizerMode   *bool
	OrganizerTier   *OrganizerTier
	Settings        *Settings
	// AddBadges lists entitlements to grant; badges are never revoked client-side.
	AddBadges []string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Gamertag == nil && p.Email == nil && p.AvatarURL == nil && p.Bio == nil &&
		p.Location == nil && p.PhoneNumber == nil && p.XP == nil && p.WalletBalance == nil &&
		p.IsOrganizer == nil && p.IsAdmin == nil && p.OrganizerStatus == nil &&
		p.OrganizerMode == nil && p.OrganizerTier == nil && p.Settings == nil && len(p.AddBadges) == 0
}

// Apply returns a copy of u with the patch applied.
func (p UserPatch) Apply(u User) User {
	if p.Gamertag != nil {
		u.Gamertag = *p.Gamertag
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.XP != nil {
		u.XP = *p.XP
	}
	if p.WalletBalance != nil {
		u.WalletBalance = *p.WalletBalance
	}
	if p.IsOrganizer != nil {
		u.IsOrganizer = *p.IsOrganizer
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.OrganizerStatus != nil {
		u.OrganizerStatus = *p.OrganizerStatus
	}
	if p.OrganizerMode != nil {
		u.OrganizerMode = *p.OrganizerMode
	}
	if p.OrganizerTier != nil {
		u.OrganizerTier = *p.OrganizerTier
	}
	if p.Settings != nil {
		u.Settings = *p.Settings
	}
	badges := append([]string(nil), u.OwnedBadges...)
	for _, b := range p.AddBadges {
		if !u.HasBadge(b) {
			badges = append(badges, b)
		}
	}
	u.OwnedBadges = badges
	return u
}

// TournamentDraft describes a tournament to create.
type TournamentDraft struct {
	Title           string
	Date            time.Time
	PrizePool       string
	OrganizerID     string
	Description     string
	Location        string
	ImageURL        string
	Rules           []string
	PrizeBreakdown  []string
	Games           []Game
	MinLevel        int
	ChatRoomID      string
	IsPriority      bool
	IsVerifiedEvent bool
	// CreateGroupChat asks the client to link a group chat room to the tournament.
	CreateGroupChat bool
}

// TournamentPatch is a partial tournament update.
type TournamentPatch struct {
	Title         *string
	Date          *time.Time
	PrizePool     *string
	Status        *TournamentStatus
	Description   *string
	Location      *string
	ImageURL      *string
	Rules         []string
	Games         []Game
	Announcements []Announcement
	MinLevel      *int
}

// MatchDraft describes a match to create.
type MatchDraft struct {
	TournamentID string
	GameID       string
	Round        string
	Player1ID    string
	Player2ID    string
	Date         time.Time
	Status       MatchStatus
}

// MatchPatch is a partial match update.
type MatchPatch struct {
	Status        *MatchStatus
	WinnerID      *string
	Player1Score  *int
	Player2Score  *int
	VerifiedByAPI *bool
	Connection    *Connection
}

// Apply returns a copy of m with the patch applied.
func (p MatchPatch) Apply(m Match) Match {
	m = m.Clone()
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.WinnerID != nil {
		m.WinnerID = *p.WinnerID
	}
	if p.Player1Score != nil {
		s := *p.Player1Score
		m.Player1.Score = &s
	}
	if p.Player2Score != nil {
		s := *p.Player2Score
		m.Player2.Score = &s
	}
	if p.VerifiedByAPI != nil {
		m.VerifiedByAPI = *p.VerifiedByAPI
	}
	if p.Connection != nil {
		c := *p.Connection
		m.Connection = &c
	}
	return m
}

// OutgoingMessage is a chat line posted to the server.
type OutgoingMessage struct {
	RoomID    string
	SenderID  string
	Text      string
	ClientKey string
}

// Ptr returns a pointer to v; handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
