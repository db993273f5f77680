package model

// TournamentStatus is the lifecycle of tournaments and their games.
type TournamentStatus string

const (
	TournamentUpcoming  TournamentStatus = "Upcoming"
	TournamentOngoing   TournamentStatus = "Ongoing"
	TournamentCompleted TournamentStatus = "Completed"
)

func (s TournamentStatus) rank() int {
	switch s {
	case TournamentUpcoming:
		return 0
	case TournamentOngoing:
		return 1
	case TournamentCompleted:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next keeps the status forward-only.
// Staying in place is allowed.
func (s TournamentStatus) CanAdvanceTo(next TournamentStatus) bool {
	from, to := s.rank(), next.rank()
	if to < 0 {
		return false
	}
	if from < 0 {
		return true
	}
	return to >= from
}

// MatchStatus is the lifecycle of a match.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "Scheduled"
	MatchLive      MatchStatus = "Live"
	MatchCompleted MatchStatus = "Completed"
	MatchDispute   MatchStatus = "Dispute"
)

// Forfeitable reports whether a participant may still surrender the match.
func (s MatchStatus) Forfeitable() bool {
	return s == MatchScheduled || s == MatchLive
}

// ConnectionState is a step of the pre-match lobby handshake.
type ConnectionState string

const (
	ConnIdle          ConnectionState = "idle"
	ConnWaitingForTag ConnectionState = "waiting_for_tag"
	ConnTagReady      ConnectionState = "tag_ready"
	ConnConnected     ConnectionState = "connected"
)

// Step returns the position of the state in the handshake, -1 for unknown states.
func (s ConnectionState) Step() int {
	switch s {
	case ConnIdle, "":
		return 0
	case ConnWaitingForTag:
		return 1
	case ConnTagReady:
		return 2
	case ConnConnected:
		return 3
	}
	return -1
}

// OrganizerStatus is the state of a user's organizer application.
type OrganizerStatus string

const (
	OrganizerNone     OrganizerStatus = "none"
	OrganizerPending  OrganizerStatus = "pending"
	OrganizerApproved OrganizerStatus = "approved"
	OrganizerRejected OrganizerStatus = "rejected"
)

// CanAdvanceTo reports whether a self-service transition is allowed.
// Admin decisions bypass this check.
func (s OrganizerStatus) CanAdvanceTo(next OrganizerStatus) bool {
	switch s {
	case OrganizerNone, "":
		return next == OrganizerPending
	case OrganizerPending:
		return next == OrganizerApproved || next == OrganizerRejected
	case OrganizerRejected:
		return next == OrganizerPending
	}
	return false
}
