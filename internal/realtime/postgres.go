package realtime

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"arena-sync/internal/pkg/db"
)

// PGFeed listens to the notification channels written by the schema triggers.
type PGFeed struct {
	pool           *pgxpool.Pool
	reconnectDelay time.Duration
}

// NewPGFeed creates a feed backed by PostgreSQL LISTEN/NOTIFY.
func NewPGFeed(pool *pgxpool.Pool, reconnectDelay time.Duration) *PGFeed {
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	return &PGFeed{pool: pool, reconnectDelay: reconnectDelay}
}

// Subscribe opens a dedicated listener connection and starts delivering events.
func (f *PGFeed) Subscribe(ctx context.Context, h Handlers) (Subscription, error) {
	conn, err := db.Listen(ctx, f.pool, Topics...)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sub := newSubscription(cancel, nil)

	go func() {
		defer close(sub.done)
		f.run(runCtx, conn, h)
	}()

	log.Info().Strs("channels", Topics).Msg("Realtime feed subscribed")
	return sub, nil
}

func (f *PGFeed) run(ctx context.Context, conn *pgx.Conn, h Handlers) {
	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	for {
		if conn == nil {
			var err error
			conn, err = db.Listen(ctx, f.pool, Topics...)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Dur("retry_in", f.reconnectDelay).Msg("Realtime listener reconnect failed")
				if !sleep(ctx, f.reconnectDelay) {
					return
				}
				continue
			}
			log.Info().Msg("Realtime listener reconnected")
		}

		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("Realtime listener lost its connection")
			_ = conn.Close(context.Background())
			conn = nil
			if !sleep(ctx, f.reconnectDelay) {
				return
			}
			continue
		}

		if err := Dispatch(h, n.Channel, []byte(n.Payload)); err != nil {
			log.Warn().Err(err).Str("channel", n.Channel).Msg("Dropped realtime event")
		}
	}
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
