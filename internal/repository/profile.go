package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arena-sync/internal/model"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const profileColumns = `
	p.id, p.gamertag, p.email, p.avatar_url, p.bio, p.location, p.phone_number,
	p.xp, p.wallet_balance, p.is_organizer, p.is_admin, p.organizer_status,
	p.organizer_mode, p.organizer_tier, p.referral_code, p.settings,
	COALESCE((SELECT array_agg(b.badge_id ORDER BY b.acquired_at, b.badge_id)
		FROM user_badges b WHERE b.user_id = p.id), '{}')`

// ProfileRepository handles player profile persistence.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*model.User, error) {
	var (
		u       model.User
		balance int64
		status  string
		tier    string
	)
	err := row.Scan(
		&u.ID,
		&u.Gamertag,
		&u.Email,
		&u.AvatarURL,
		&u.Bio,
		&u.Location,
		&u.PhoneNumber,
		&u.XP,
		&balance,
		&u.IsOrganizer,
		&u.IsAdmin,
		&status,
		&u.OrganizerMode,
		&tier,
		&u.ReferralCode,
		&u.Settings,
		&u.OwnedBadges,
	)
	if err != nil {
		return nil, err
	}
	u.WalletBalance = model.Cents(balance)
	u.OrganizerStatus = model.OrganizerStatus(status)
	u.OrganizerTier = model.OrganizerTier(tier)
	u.Settings = u.Settings.Normalize()
	return &u, nil
}

// Create inserts a profile for a freshly signed-up user.
// An existing profile is returned unchanged.
func (r *ProfileRepository) Create(ctx context.Context, id, gamertag, email string) (*model.User, error) {
	const query = `
		INSERT INTO profiles (id, gamertag, email, referral_code, settings)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, id, gamertag, email, referralCode(gamertag, id), model.DefaultSettings()); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a profile with its owned badges.
// Returns ErrNotFound if the profile does not exist.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return getProfile(ctx, r.pool, id)
}

func getProfile(ctx context.Context, q querier, id string) (*model.User, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE p.id = $1`

	u, err := scanProfile(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return u, nil
}

// Update writes the set fields of patch and grants any listed badges atomically.
// Returns the updated profile.
func (r *ProfileRepository) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	if patch.Empty() {
		return nil, ErrNothingToUpdate
	}

	b := newSetBuilder(id)
	if patch.Gamertag != nil {
		b.add("gamertag", *patch.Gamertag)
	}
	if patch.Email != nil {
		b.add("email", *patch.Email)
	}
	if patch.AvatarURL != nil {
		b.add("avatar_url", *patch.AvatarURL)
	}
	if patch.Bio != nil {
		b.add("bio", *patch.Bio)
	}
	if patch.Location != nil {
		b.add("location", *patch.Location)
	}
	if patch.PhoneNumber != nil {
		b.add("phone_number", *patch.PhoneNumber)
	}
	if patch.XP != nil {
		b.add("xp", *patch.XP)
	}
	if patch.WalletBalance != nil {
		b.add("wallet_balance", patch.WalletBalance.Cents())
	}
	if patch.IsOrganizer != nil {
		b.add("is_organizer", *patch.IsOrganizer)
	}
	if patch.IsAdmin != nil {
		b.add("is_admin", *patch.IsAdmin)
	}
	if patch.OrganizerStatus != nil {
		b.add("organizer_status", string(*patch.OrganizerStatus))
	}
	if patch.OrganizerMode != nil {
		b.add("organizer_mode", *patch.OrganizerMode)
	}
	if patch.OrganizerTier != nil {
		b.add("organizer_tier", string(*patch.OrganizerTier))
	}
	if patch.Settings != nil {
		b.add("settings", *patch.Settings)
	}

	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if !b.empty() {
			query := `UPDATE profiles SET ` + b.clause() + `, updated_at = NOW() WHERE id = $1`
			tag, err := tx.Exec(ctx, query, b.args...)
			if err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return ErrNotFound
			}
		}
		if len(patch.AddBadges) > 0 {
			if err := addBadges(ctx, tx, id, patch.AddBadges); err != nil {
				return err
			}
		}
		var err error
		user, err = getProfile(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// addBadges grants badges; badges already owned are ignored.
func addBadges(ctx context.Context, q querier, userID string, badgeIDs []string) error {
	const query = `
		INSERT INTO user_badges (user_id, badge_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	if _, err := q.Exec(ctx, query, userID, badgeIDs); err != nil {
		return fmt.Errorf("failed to add badges: %w", err)
	}
	return nil
}

// ListAll returns every profile ordered by gamertag.
func (r *ProfileRepository) ListAll(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p ORDER BY p.gamertag, p.id`
	return r.list(ctx, query)
}

// ListByOrganizerStatus returns profiles whose organizer application is in status.
func (r *ProfileRepository) ListByOrganizerStatus(ctx context.Context, status model.OrganizerStatus) ([]model.User, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE p.organizer_status = $1 ORDER BY p.updated_at, p.id`
	return r.list(ctx, query, string(status))
}

func (r *ProfileRepository) list(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return users, nil
}

func referralCode(gamertag, id string) string {
	prefix := gamertag
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return fmt.Sprintf("%s-%s", prefix, suffix)
}
