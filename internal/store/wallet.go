package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"arena-sync/internal/model"
	"arena-sync/internal/pkg/lock"
	"arena-sync/internal/shop"
)

// BuyStoreItem pays cost from the wallet and grants the item. The balance is checked
// before any backend call; a denied payment changes nothing.
func (s *Store) BuyStoreItem(ctx context.Context, kind shop.ItemKind, ref string, cost model.Money, name string) error {
	u, epoch, err := s.requireUser()
	if err != nil {
		return err
	}

	err = s.charge(ctx, epoch, u.ID, cost, "Purchased "+name, func(cur model.User) (model.UserPatch, error) {
		return shop.Purchase(cur, kind, ref, cost)
	})

	switch {
	case err == nil:
	case errors.Is(err, shop.ErrInsufficientBalance):
		s.emit(model.NotifySystem, "Payment Denied", "Insufficient wallet balance.")
		return err
	case errors.Is(err, shop.ErrAlreadyOwned):
		s.emit(model.NotifySystem, "Already Owned", name+" is already on your profile.")
		return err
	case errors.Is(err, shop.ErrUnknownItem), errors.Is(err, shop.ErrInvalidCost):
		s.emit(model.NotifyError, "Transaction Error", "This item is not available.")
		return err
	case errors.Is(err, ErrNotLoggedIn):
		s.emit(model.NotifyError, "Error", "Not logged in")
		return err
	default:
		return s.fail("buy_store_item", model.NotifySystem, "Transaction Error", err)
	}

	_ = s.logged("refresh_transactions", s.loadTransactions(ctx, epoch, u.ID))
	s.emit(model.NotifyReward, "Unlocked", name+" added to profile.")
	return nil
}

// charge debits amount from the wallet of userID and records the ledger entry.
// price computes the profile patch, including the new balance, from the latest local
// user; it runs under the wallet key so that concurrent charges see each other.
func (s *Store) charge(ctx context.Context, epoch uint64, userID string, amount model.Money, title string, price func(model.User) (model.UserPatch, error)) error {
	return s.keys.WithLockContext(ctx, lock.WalletKey(userID), s.cfg.LockTimeout, func() error {
		cur, _, ok := s.currentUser()
		if !ok || cur.ID != userID {
			return ErrNotLoggedIn
		}
		patch, err := price(*cur)
		if err != nil {
			return err
		}

		updated, err := s.gw.UpdateUser(ctx, userID, patch)
		if err != nil {
			return err
		}
		s.setUser(epoch, updated)

		// The balance is authoritative; a missing ledger row does not undo the payment.
		err = s.gw.RecordTransaction(ctx, model.Transaction{
			UserID:    userID,
			Amount:    amount,
			Type:      model.TxTypeDebit,
			Title:     title,
			CreatedAt: s.now(),
		})
		if err != nil {
			log.Error().Err(err).
				Str("user_id", userID).
				Str("amount", amount.String()).
				Str("title", title).
				Msg("Failed to record wallet transaction")
		}
		return nil
	})
}

// Transactions returns the wallet history, newest first.
func (s *Store) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Transaction(nil), s.state.Transactions...)
}
