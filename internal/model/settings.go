package model

// SettingsVersion is the current layout of Settings.
const SettingsVersion = 1

// Theme is the display theme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// NotificationPreferences toggles which notices may raise a toast.
type NotificationPreferences struct {
	MatchReminders      bool `json:"matchReminders"`
	OpponentAssignments bool `json:"opponentAssignments"`
	TournamentUpdates   bool `json:"tournamentUpdates"`
	LeaderboardChanges  bool `json:"leaderboardChanges"`
	ReferralRewards     bool `json:"referralRewards"`
	AdminAnnouncements  bool `json:"adminAnnouncements"`
	Sound               bool `json:"sound"`
	Vibration           bool `json:"vibration"`
}

// AllowsToast reports whether a notice of the given kind may be shown as a toast.
// Errors, system notices and payments are always shown.
func (p NotificationPreferences) AllowsToast(kind NotificationKind) bool {
	switch kind {
	case NotifyMatch:
		return p.MatchReminders
	case NotifyInvite:
		return p.OpponentAssignments
	case NotifyAnnouncement:
		return p.AdminAnnouncements
	case NotifyRank:
		return p.LeaderboardChanges
	case NotifyReward:
		return p.ReferralRewards
	}
	return true
}

// PrivacySettings controls profile visibility.
type PrivacySettings struct {
	ShowOnlineStatus    bool `json:"showOnlineStatus"`
	AllowFriendRequests bool `json:"allowFriendRequests"`
	PublicProfile       bool `json:"publicProfile"`
}

// Settings is the per-user client configuration stored with the profile.
type Settings struct {
	Version       int                     `json:"version"`
	Theme         Theme                   `json:"theme"`
	HighContrast  bool                    `json:"highContrast"`
	LargeText     bool                    `json:"largeText"`
	TextToSpeech  bool                    `json:"textToSpeech"`
	Notifications NotificationPreferences `json:"notifications"`
	Privacy       PrivacySettings         `json:"privacy"`
}

// DefaultSettings returns the settings applied to new profiles.
func DefaultSettings() Settings {
	return Settings{
		Version: SettingsVersion,
		Theme:   ThemeDark,
		Notifications: NotificationPreferences{
			MatchReminders:      true,
			OpponentAssignments: true,
			TournamentUpdates:   true,
			LeaderboardChanges:  true,
			ReferralRewards:     true,
			AdminAnnouncements:  true,
			Sound:               true,
			Vibration:           true,
		},
		Privacy: PrivacySettings{
			ShowOnlineStatus:    true,
			AllowFriendRequests: true,
			PublicProfile:       true,
		},
	}
}

// Normalize upgrades settings stored by older clients.
// Unversioned settings predate the toggles and are replaced by the defaults.
func (s Settings) Normalize() Settings {
	if s.Version <= 0 {
		return DefaultSettings()
	}
	if s.Theme == "" {
		s.Theme = ThemeDark
	}
	s.Version = SettingsVersion
	return s
}
