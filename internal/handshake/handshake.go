// Package handshake implements the pre-match lobby protocol: a host claims the
// match, broadcasts an in-game tag, and the opponent confirms the join.
//
// The state only moves forward: idle -> waiting_for_tag -> tag_ready -> connected.
package handshake

import (
	"errors"

	"arena-sync/internal/model"
)

// ErrIllegalTransition is returned when an action is not valid in the current state.
var ErrIllegalTransition = errors.New("illegal connection transition")

// ErrNotAPlayer is returned when the acting user does not play in the match.
var ErrNotAPlayer = errors.New("user does not play in this match")

func current(c *model.Connection) model.Connection {
	if c == nil {
		return model.Connection{State: model.ConnIdle}
	}
	out := *c
	if out.State == "" {
		out.State = model.ConnIdle
	}
	return out
}

// ClaimHost makes userID the host. Only legal while the lobby is idle.
func ClaimHost(c *model.Connection, userID string) (model.Connection, error) {
	cur := current(c)
	if userID == "" || cur.State != model.ConnIdle {
		return cur, ErrIllegalTransition
	}
	return model.Connection{HostID: userID, State: model.ConnWaitingForTag}, nil
}

// SubmitTag records the host's in-game tag. Only the host may call it, once.
func SubmitTag(c *model.Connection, userID, tag string) (model.Connection, error) {
	cur := current(c)
	if cur.State != model.ConnWaitingForTag || cur.HostID != userID || tag == "" {
		return cur, ErrIllegalTransition
	}
	cur.HostGameTag = tag
	cur.State = model.ConnTagReady
	return cur, nil
}

// ConfirmJoin records that the non-host player joined the host's session.
func ConfirmJoin(c *model.Connection, userID string) (model.Connection, error) {
	cur := current(c)
	if cur.State != model.ConnTagReady || userID == "" || cur.HostID == userID {
		return cur, ErrIllegalTransition
	}
	cur.State = model.ConnConnected
	return cur, nil
}

// Action is one handshake step performed by a player.
type Action int

const (
	ActionClaim Action = iota
	ActionSubmitTag
	ActionConfirm
)

func (a Action) String() string {
	switch a {
	case ActionClaim:
		return "claim_host"
	case ActionSubmitTag:
		return "submit_tag"
	case ActionConfirm:
		return "confirm_join"
	}
	return "unknown"
}

// Step applies the action for a player of match m.
// The result is the unchanged connection together with an error when the step is refused.
func Step(m model.Match, a Action, userID, tag string) (model.Connection, error) {
	if !m.HasPlayer(userID) {
		return current(m.Connection), ErrNotAPlayer
	}
	switch a {
	case ActionClaim:
		return ClaimHost(m.Connection, userID)
	case ActionSubmitTag:
		return SubmitTag(m.Connection, userID, tag)
	case ActionConfirm:
		return ConfirmJoin(m.Connection, userID)
	}
	return current(m.Connection), ErrIllegalTransition
}
