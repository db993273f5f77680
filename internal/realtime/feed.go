// Package realtime delivers backend change events to the store.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"arena-sync/internal/model"
	"arena-sync/internal/pkg/db"
)

// Topics carried by every feed. They match the database notification channels.
const (
	TopicMessages    = db.ChannelMessages
	TopicMatches     = db.ChannelMatches
	TopicTournaments = db.ChannelTournaments
)

// Topics lists every topic a feed subscribes to.
var Topics = []string{TopicMessages, TopicMatches, TopicTournaments}

// ChangeEvent describes a row change on a watched table.
type ChangeEvent struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id"`
}

// change is the wire payload shared by all feeds.
type change struct {
	ChangeEvent
	Record json.RawMessage `json:"record,omitempty"`
}

// Handlers receives feed events. Nil callbacks are skipped.
// Callbacks run on the feed goroutine and must not block for long.
type Handlers struct {
	OnMessage    func(model.ChatMessage)
	OnMatch      func(ChangeEvent)
	OnTournament func(ChangeEvent)
}

// Subscription is a live feed. Close stops delivery and waits for the reader to exit.
type Subscription interface {
	Close()
}

// Feed opens subscriptions to the three change streams.
type Feed interface {
	Subscribe(ctx context.Context, h Handlers) (Subscription, error)
}

// Dispatch decodes a payload received on topic and invokes the matching handler.
func Dispatch(h Handlers, topic string, payload []byte) error {
	var c change
	if err := json.Unmarshal(payload, &c); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", topic, err)
	}

	switch topic {
	case TopicMessages:
		if c.Op != "" && c.Op != "INSERT" {
			return nil
		}
		if len(c.Record) == 0 || string(c.Record) == "null" {
			return fmt.Errorf("%s event %s has no record", topic, c.ID)
		}
		var msg model.ChatMessage
		if err := json.Unmarshal(c.Record, &msg); err != nil {
			return fmt.Errorf("failed to decode message record: %w", err)
		}
		if h.OnMessage != nil {
			h.OnMessage(msg)
		}
	case TopicMatches:
		if h.OnMatch != nil {
			h.OnMatch(c.ChangeEvent)
		}
	case TopicTournaments:
		if h.OnTournament != nil {
			h.OnTournament(c.ChangeEvent)
		}
	default:
		return fmt.Errorf("unknown topic %q", topic)
	}
	return nil
}

// subscription cancels a reader goroutine and waits for it.
type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	onStop func()
}

func newSubscription(cancel context.CancelFunc, onStop func()) *subscription {
	return &subscription{cancel: cancel, done: make(chan struct{}), onStop: onStop}
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		if s.onStop != nil {
			s.onStop()
		}
		<-s.done
	})
}
