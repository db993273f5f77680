package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"arena-sync/internal/handshake"
	"arena-sync/internal/model"
	"arena-sync/internal/oracle"
	"arena-sync/internal/pkg/lock"
)

var scorePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

// Match returns the local copy of a match.
func (s *Store) Match(id string) (model.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.state.Matches {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return model.Match{}, false
}

// UpdateMatch writes a match change and reloads the match list.
// Completed matches can only be corrected by admins.
func (s *Store) UpdateMatch(ctx context.Context, id string, patch model.MatchPatch) error {
	u, _, err := s.requireUser()
	if err != nil {
		return err
	}
	m, ok := s.Match(id)
	if !ok {
		s.emit(model.NotifyError, "Error", "Match not found.")
		return ErrUnknownMatch
	}
	if m.Status == model.MatchCompleted && !u.IsAdmin {
		s.emit(model.NotifyError, "Error", "Completed matches can only be corrected by an admin.")
		return ErrForbidden
	}
	return s.pushMatch(ctx, "update_match", id, patch)
}

func (s *Store) pushMatch(ctx context.Context, op, id string, patch model.MatchPatch) error {
	if err := s.gw.UpdateMatch(ctx, id, patch); err != nil {
		return s.fail(op, model.NotifySystem, "Error", err)
	}
	_ = s.RefreshMatches(ctx)
	return nil
}

// ClaimMatchHost makes the user the lobby host of the match.
func (s *Store) ClaimMatchHost(ctx context.Context, matchID string) error {
	return s.handshake(ctx, matchID, handshake.ActionClaim, "")
}

// SubmitMatchTag broadcasts the host's in-game tag to the opponent.
func (s *Store) SubmitMatchTag(ctx context.Context, matchID, tag string) error {
	return s.handshake(ctx, matchID, handshake.ActionSubmitTag, strings.TrimSpace(tag))
}

// ConfirmMatchJoin records that the opponent joined the host's session.
func (s *Store) ConfirmMatchJoin(ctx context.Context, matchID string) error {
	return s.handshake(ctx, matchID, handshake.ActionConfirm, "")
}

// handshake advances the lobby state. Refused steps leave the match untouched and make
// no backend call. Steps on one match are serialized so each one sees the previous result.
func (s *Store) handshake(ctx context.Context, matchID string, action handshake.Action, tag string) error {
	u, _, err := s.requireUser()
	if err != nil {
		return err
	}

	return s.keys.WithLockContext(ctx, lock.MatchKey(matchID), s.cfg.LockTimeout, func() error {
		m, ok := s.Match(matchID)
		if !ok {
			return ErrUnknownMatch
		}
		next, err := handshake.Step(m, action, u.ID, tag)
		if err != nil {
			log.Debug().Err(err).
				Str("match_id", matchID).
				Str("action", action.String()).
				Str("state", string(m.ConnectionState())).
				Msg("Handshake step ignored")
			return err
		}
		return s.pushMatch(ctx, action.String(), matchID, model.MatchPatch{Connection: &next})
	})
}

// StartMatch puts a scheduled match whose lobby is connected live.
func (s *Store) StartMatch(ctx context.Context, matchID string) error {
	u, _, err := s.requireUser()
	if err != nil {
		return err
	}
	m, ok := s.Match(matchID)
	if !ok {
		s.emit(model.NotifyError, "Error", "Match not found.")
		return ErrUnknownMatch
	}
	if !m.HasPlayer(u.ID) {
		s.emit(model.NotifyError, "Error", "Only players of this match can start it.")
		return ErrForbidden
	}
	if m.Status != model.MatchScheduled || m.ConnectionState() != model.ConnConnected {
		s.emit(model.NotifyError, "Error", "Both players must be connected before the match starts.")
		return ErrInvalidInput
	}

	if err := s.pushMatch(ctx, "start_match", matchID, model.MatchPatch{Status: model.Ptr(model.MatchLive)}); err != nil {
		return err
	}
	s.emit(model.NotifyMatch, "Match Live", "Combat initiated. Good luck.")
	return nil
}

// ForfeitMatch surrenders a scheduled or live match; the opponent wins.
func (s *Store) ForfeitMatch(ctx context.Context, matchID string) error {
	u, _, err := s.requireUser()
	if err != nil {
		return err
	}
	m, ok := s.Match(matchID)
	if !ok {
		s.emit(model.NotifyError, "Error", "Match not found.")
		return ErrUnknownMatch
	}
	if !m.HasPlayer(u.ID) {
		s.emit(model.NotifyError, "Error", "Only players of this match can forfeit it.")
		return ErrForbidden
	}
	if !m.Status.Forfeitable() {
		s.emit(model.NotifyError, "Error", "This match can no longer be forfeited.")
		return ErrInvalidInput
	}

	patch := model.MatchPatch{
		Status:   model.Ptr(model.MatchCompleted),
		WinnerID: model.Ptr(m.Opponent(u.ID)),
	}
	if err := s.pushMatch(ctx, "forfeit_match", matchID, patch); err != nil {
		return err
	}
	s.emit(model.NotifyMatch, "Forfeited", "You have surrendered the match.")
	return nil
}

// ReportResult completes the match with the confirmed winner and a "<p1>-<p2>" score.
// verified marks results read by the verification oracle and confirmed by the user.
func (s *Store) ReportResult(ctx context.Context, matchID, winnerID, score string, verified bool) error {
	u, _, err := s.requireUser()
	if err != nil {
		return err
	}
	m, ok := s.Match(matchID)
	if !ok {
		s.emit(model.NotifyError, "Error", "Match not found.")
		return ErrUnknownMatch
	}
	if !m.HasPlayer(u.ID) && !u.IsAdmin {
		s.emit(model.NotifyError, "Error", "Only players of this match can report its result.")
		return ErrForbidden
	}
	if m.Status == model.MatchCompleted && !u.IsAdmin {
		s.emit(model.NotifyError, "Error", "Completed matches can only be corrected by an admin.")
		return ErrForbidden
	}

	p1, p2, err := parseScore(score)
	if err != nil || !m.HasPlayer(winnerID) {
		s.emit(model.NotifyError, "Error", "Enter the winner and a score like 2-1.")
		return ErrInvalidInput
	}

	patch := model.MatchPatch{
		Status:        model.Ptr(model.MatchCompleted),
		WinnerID:      model.Ptr(winnerID),
		Player1Score:  model.Ptr(p1),
		Player2Score:  model.Ptr(p2),
		VerifiedByAPI: model.Ptr(verified),
	}
	if err := s.pushMatch(ctx, "report_result", matchID, patch); err != nil {
		return err
	}
	s.emit(model.NotifyMatch, "Result Submitted", fmt.Sprintf("Final score %d-%d recorded.", p1, p2))
	return nil
}

func parseScore(score string) (int, int, error) {
	m := scorePattern.FindStringSubmatch(strings.ReplaceAll(score, " ", ""))
	if m == nil {
		return 0, 0, errors.New("score must look like <int>-<int>")
	}
	p1, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, err
	}
	p2, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, err
	}
	return p1, p2, nil
}

// VerifyResultWithAI asks the oracle who won. A nil verdict means the screenshot could
// not be read and the user should retry; it is never committed automatically.
func (s *Store) VerifyResultWithAI(ctx context.Context, matchID, imageBase64 string) *oracle.Verdict {
	if s.verifier == nil {
		return nil
	}
	m, ok := s.Match(matchID)
	if !ok {
		return nil
	}
	return s.verifier.Verify(ctx, oracle.Request{
		MatchID:     m.ID,
		Player1:     m.Player1,
		Player2:     m.Player2,
		ImageBase64: imageBase64,
	})
}
