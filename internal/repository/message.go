package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arena-sync/internal/model"
)

// MessageRepository handles chat messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new MessageRepository instance.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(row pgx.Row) (*model.ChatMessage, error) {
	var (
		m   model.ChatMessage
		key *string
	)
	if err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Text, &key, &m.Timestamp); err != nil {
		return nil, err
	}
	m.ClientKey = deref(key)
	return &m, nil
}

// Create stores a message. Posting twice with the same client key returns the first row.
func (r *MessageRepository) Create(ctx context.Context, msg model.OutgoingMessage) (*model.ChatMessage, error) {
	const query = `
		INSERT INTO messages (id, room_id, sender_id, text, client_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sender_id, client_key) WHERE client_key IS NOT NULL
		DO UPDATE SET client_key = EXCLUDED.client_key
		RETURNING id, room_id, sender_id, text, client_key, created_at
	`

	m, err := scanMessage(r.pool.QueryRow(ctx, query,
		uuid.NewString(), msg.RoomID, msg.SenderID, msg.Text, nullable(msg.ClientKey),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return m, nil
}

// ListByRoom returns a room's history, oldest first.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	const query = `
		SELECT id, room_id, sender_id, text, client_key, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]model.ChatMessage, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}
