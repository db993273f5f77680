// Package shop holds the wallet store catalog and computes purchase effects.
package shop

import (
	"errors"
	"strconv"

	"arena-sync/internal/model"
)

// Shop errors
var (
	ErrUnknownItem         = errors.New("unknown store item")
	ErrAlreadyOwned        = errors.New("item already owned")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidCost         = errors.New("item cost must be positive")
)

// ItemKind is the category of a store item.
type ItemKind string

const (
	KindXP           ItemKind = "xp"
	KindBadge        ItemKind = "badge"
	KindSubscription ItemKind = "subscription"
)

// ProTierRef is the reference of the organizer pro subscription.
const ProTierRef = "pro_tier"

// Item is one catalog entry.
type Item struct {
	Ref         string
	Kind        ItemKind
	Name        string
	Description string
	Cost        model.Money
	XP          int64 // XP granted by xp packs
}

// Items contains every item offered in the store, keyed by reference.
var Items = map[string]Item{
	"xp-small": {
		Ref:  "xp-small",
		Kind: KindXP,
		Name: "Starter Boost",
		Cost: model.MustParseMoney("1.99"),
		XP:   500,
	},
	"xp-medium": {
		Ref:  "xp-medium",
		Kind: KindXP,
		Name: "Pro Boost",
		Cost: model.MustParseMoney("6.99"),
		XP:   2000,
	},
	"xp-large": {
		Ref:  "xp-large",
		Kind: KindXP,
		Name: "Elite Pack",
		Cost: model.MustParseMoney("14.99"),
		XP:   5000,
	},
	"badge-vip": {
		Ref:         "badge-vip",
		Kind:        KindBadge,
		Name:        "Nexgen VIP Badge",
		Description: "Exclusive VIP status icon in chat and profile.",
		Cost:        model.MustParseMoney("9.99"),
	},
	ProTierRef: {
		Ref:  ProTierRef,
		Kind: KindSubscription,
		Name: "Organizer Pro Pass",
		Cost: model.MustParseMoney("19.99"),
	},
}

// Catalog returns all items in display order.
func Catalog() []Item {
	order := []string{"xp-small", "xp-medium", "xp-large", "badge-vip", ProTierRef}

	items := make([]Item, 0, len(order))
	for _, ref := range order {
		if item, ok := Items[ref]; ok {
			items = append(items, item)
		}
	}
	return items
}

// GetItem returns the catalog entry for ref.
func GetItem(ref string) (Item, bool) {
	item, ok := Items[ref]
	return item, ok
}

// Effect computes the profile change granted by an item, without the payment.
// For xp purchases ref is either a pack reference or a plain XP amount.
func Effect(u model.User, kind ItemKind, ref string) (model.UserPatch, error) {
	switch kind {
	case KindXP:
		amount, err := xpAmount(ref)
		if err != nil {
			return model.UserPatch{}, err
		}
		return model.UserPatch{XP: model.Ptr(u.XP + amount)}, nil

	case KindBadge:
		if ref == "" {
			return model.UserPatch{}, ErrUnknownItem
		}
		if u.HasBadge(ref) {
			return model.UserPatch{}, ErrAlreadyOwned
		}
		return model.UserPatch{AddBadges: []string{ref}}, nil

	case KindSubscription:
		if ref != ProTierRef {
			return model.UserPatch{}, ErrUnknownItem
		}
		if u.OrganizerTier == model.TierPro {
			return model.UserPatch{}, ErrAlreadyOwned
		}
		return model.UserPatch{OrganizerTier: model.Ptr(model.TierPro)}, nil
	}
	return model.UserPatch{}, ErrUnknownItem
}

// Purchase checks the balance and returns the full patch: the item effect plus the debit.
func Purchase(u model.User, kind ItemKind, ref string, cost model.Money) (model.UserPatch, error) {
	if cost <= 0 {
		return model.UserPatch{}, ErrInvalidCost
	}
	if u.WalletBalance < cost {
		return model.UserPatch{}, ErrInsufficientBalance
	}

	patch, err := Effect(u, kind, ref)
	if err != nil {
		return model.UserPatch{}, err
	}
	patch.WalletBalance = model.Ptr(u.WalletBalance.Sub(cost))
	return patch, nil
}

func xpAmount(ref string) (int64, error) {
	if item, ok := Items[ref]; ok && item.Kind == KindXP {
		return item.XP, nil
	}
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrUnknownItem
	}
	return n, nil
}
