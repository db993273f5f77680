package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"arena-sync/internal/model"
)

// TransactionRepository handles the wallet ledger.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create records a ledger entry. An empty id is generated.
func (r *TransactionRepository) Create(ctx context.Context, tx model.Transaction) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (id, user_id, amount, type, title, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, amount, type, title, created_at
	`

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	var (
		out    model.Transaction
		amount int64
	)
	err := r.pool.QueryRow(ctx, query, tx.ID, tx.UserID, tx.Amount.Cents(), tx.Type, tx.Title).Scan(
		&out.ID,
		&out.UserID,
		&amount,
		&out.Type,
		&out.Title,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	out.Amount = model.Cents(amount)

	return &out, nil
}

// ListByUser retrieves a user's ledger, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	const query = `
		SELECT id, user_id, amount, type, title, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]model.Transaction, 0)
	for rows.Next() {
		var (
			tx     model.Transaction
			amount int64
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &tx.Type, &tx.Title, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Amount = model.Cents(amount)
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
