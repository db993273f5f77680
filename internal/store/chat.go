package store

import (
	"context"
	"strings"

	"arena-sync/internal/model"
	"arena-sync/internal/pkg/ids"
)

// SendMessage appends an optimistic message and posts it in the background.
// It returns the temporary id of the local entry. When the post fails, exactly
// that entry is removed and an error toast is shown.
func (s *Store) SendMessage(roomID, text string) (string, error) {
	u, epoch, err := s.requireUser()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrInvalidInput
	}
	if roomID == "" {
		roomID = s.cfg.GlobalRoom
	}

	local := model.ChatMessage{
		ID:        ids.Temp(),
		RoomID:    roomID,
		SenderID:  u.ID,
		Text:      text,
		ClientKey: ids.New(),
		Timestamp: s.now(),
	}
	s.apply(epoch, SliceChat, func(st *State) {
		st.ChatMessages = append(st.ChatMessages, local)
	})

	s.spawn(func(ctx context.Context) {
		posted, err := s.gw.PostMessage(ctx, model.OutgoingMessage{
			RoomID:    local.RoomID,
			SenderID:  local.SenderID,
			Text:      local.Text,
			ClientKey: local.ClientKey,
		})
		if err != nil {
			s.apply(epoch, SliceChat, func(st *State) {
				st.ChatMessages = removeMessage(st.ChatMessages, local.ID)
			})
			_ = s.fail("send_message", model.NotifyError, "Message Failed", err)
			return
		}
		if posted != nil {
			s.receiveMessage(epoch, *posted)
		}
	})
	return local.ID, nil
}

// receiveMessage reconciles a confirmed message: duplicates are ignored and the
// optimistic entry it confirms is replaced.
func (s *Store) receiveMessage(epoch uint64, msg model.ChatMessage) {
	s.apply(epoch, SliceChat, func(st *State) {
		st.ChatMessages = reconcileMessage(st.ChatMessages, msg)
	})
}

// reconcileMessage matches the confirmed message to its pending entry by client key.
// Echoes without a key fall back to the first pending entry with the same sender, room and text.
func reconcileMessage(current []model.ChatMessage, msg model.ChatMessage) []model.ChatMessage {
	for _, m := range current {
		if m.ID == msg.ID {
			return current
		}
	}

	match := -1
	for i, m := range current {
		if !m.Pending() {
			continue
		}
		if msg.ClientKey != "" {
			if m.ClientKey == msg.ClientKey {
				match = i
				break
			}
			continue
		}
		if m.SenderID == msg.SenderID && m.RoomID == msg.RoomID && m.Text == msg.Text {
			match = i
			break
		}
	}

	out := make([]model.ChatMessage, 0, len(current)+1)
	for i, m := range current {
		if i != match {
			out = append(out, m)
		}
	}
	return append(out, msg)
}

func removeMessage(current []model.ChatMessage, id string) []model.ChatMessage {
	out := current[:0:0]
	for _, m := range current {
		if m.ID != id {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// OpenDirectMessage returns the direct room shared with playerID, creating it locally
// when it does not exist yet. Without a session the global room is returned.
func (s *Store) OpenDirectMessage(playerID string) (string, error) {
	u, epoch, ok := s.currentUser()
	if !ok {
		return s.cfg.GlobalRoom, ErrNotLoggedIn
	}
	if playerID == "" || playerID == u.ID {
		return s.cfg.GlobalRoom, ErrInvalidInput
	}

	name := playerID
	if p, found := s.GetParticipantProfile(playerID); found && p.Gamertag != "" {
		name = p.Gamertag
	}

	roomID := ids.DirectRoom(u.ID, playerID)
	s.apply(epoch, SliceChat, func(st *State) {
		for _, r := range st.ChatRooms {
			if r.Type == model.RoomDirect && r.Includes(u.ID) && r.Includes(playerID) {
				roomID = r.ID
				return
			}
		}
		st.ChatRooms = append(st.ChatRooms, model.ChatRoom{
			ID:             roomID,
			Type:           model.RoomDirect,
			Name:           "Direct: " + name,
			ParticipantIDs: []string{u.ID, playerID},
		})
	})
	return roomID, nil
}

// Messages returns the history of one room in arrival order.
func (s *Store) Messages(roomID string) []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ChatMessage
	for _, m := range s.state.ChatMessages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out
}
