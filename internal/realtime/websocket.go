package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// envelope is one websocket frame from the realtime endpoint.
type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// subscribeFrame is sent right after connecting.
type subscribeFrame struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics"`
}

// WSFeed receives change events over a websocket.
type WSFeed struct {
	url            string
	token          string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
}

// NewWSFeed creates a websocket feed. token is sent as a bearer credential.
func NewWSFeed(url, token string, reconnectDelay time.Duration) *WSFeed {
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	return &WSFeed{url: url, token: token, reconnectDelay: reconnectDelay, dialer: websocket.DefaultDialer}
}

func (f *WSFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if f.token != "" {
		header.Set("Authorization", "Bearer "+f.token)
	}
	conn, _, err := f.dialer.DialContext(ctx, f.url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial realtime endpoint: %w", err)
	}
	frame, _ := json.Marshal(subscribeFrame{Type: "subscribe", Topics: Topics})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return conn, nil
}

// Subscribe connects and keeps reconnecting until the subscription is closed.
func (f *WSFeed) Subscribe(ctx context.Context, h Handlers) (Subscription, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		current = conn
	)
	runCtx, cancel := context.WithCancel(context.Background())
	sub := newSubscription(cancel, func() {
		// Closing the socket unblocks ReadMessage.
		mu.Lock()
		if current != nil {
			_ = current.Close()
		}
		mu.Unlock()
	})

	go func() {
		defer close(sub.done)
		for {
			f.read(current, h)
			if runCtx.Err() != nil {
				return
			}
			log.Warn().Dur("retry_in", f.reconnectDelay).Msg("Realtime websocket disconnected")

			var next *websocket.Conn
			for next == nil {
				if !sleep(runCtx, f.reconnectDelay) {
					return
				}
				c, err := f.dial(runCtx)
				if err != nil {
					log.Warn().Err(err).Msg("Realtime websocket reconnect failed")
					continue
				}
				next = c
			}

			mu.Lock()
			if runCtx.Err() != nil {
				mu.Unlock()
				_ = next.Close()
				return
			}
			current = next
			mu.Unlock()
			log.Info().Msg("Realtime websocket reconnected")
		}
	}()

	log.Info().Str("url", f.url).Msg("Realtime feed subscribed")
	return sub, nil
}

// read delivers frames until the connection fails.
func (f *WSFeed) read(conn *websocket.Conn, h Handlers) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Msg("Dropped malformed realtime frame")
			continue
		}
		if err := Dispatch(h, env.Topic, env.Payload); err != nil {
			log.Warn().Err(err).Str("topic", env.Topic).Msg("Dropped realtime event")
		}
	}
}
