package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type TimezoneRepository struct {
	*BaseRepository
}

func NewTimezoneRepository(db *bun.DB) *TimezoneRepository {
	return &TimezoneRepository{BaseRepository: NewBaseRepository(db)}
}

var _ timezone.Repository = (*TimezoneRepository)(nil)

// Get returns "" when the user never set a zone.
func (r *TimezoneRepository) Get(ctx context.Context, userID snowflake.ID) (string, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	m := new(models.UserTimezone)
	err := r.db.NewSelect().Model(m).Where("user_id = ?", int64(userID)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", r.HandleErrorWithID("get", "timezone", userID, err)
	}
	return m.Zone, nil
}

func (r *TimezoneRepository) Set(ctx context.Context, userID snowflake.ID, zone string) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	m := &models.UserTimezone{UserID: int64(userID), Zone: zone, UpdatedAt: time.Now().UTC()}
	_, err := r.db.NewInsert().
		Model(m).
		On("CONFLICT (user_id) DO UPDATE").
		Set("zone = EXCLUDED.zone").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return r.HandleErrorWithID("set", "timezone", userID, err)
}

type SubscriptionRepository struct {
	*BaseRepository
}

func NewSubscriptionRepository(db *bun.DB) *SubscriptionRepository {
	return &SubscriptionRepository{BaseRepository: NewBaseRepository(db)}
}

var _ entitlements.Repository = (*SubscriptionRepository)(nil)

func (r *SubscriptionRepository) Get(ctx context.Context, guildID snowflake.ID) (*entitlements.Subscription, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	m := new(models.Subscription)
	if err := r.db.NewSelect().Model(m).Where("guild_id = ?", int64(guildID)).Scan(ctx); err != nil {
		return nil, r.HandleErrorWithID("get", "subscription", guildID, err)
	}
	return toSubscription(m), nil
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *entitlements.Subscription) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().
		Model(subscriptionModel(sub)).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("tier = EXCLUDED.tier").
		Set("renews_at = EXCLUDED.renews_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return r.HandleErrorWithID("upsert", "subscription", sub.GuildID, err)
}

// ListLapsed returns paid or canceled subscriptions whose renewal date is
// not after now.
func (r *SubscriptionRepository) ListLapsed(ctx context.Context, now time.Time) ([]*entitlements.Subscription, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.Subscription
	err := r.db.NewSelect().
		Model(&rows).
		Where("tier <> ?", string(entitlements.TierFree)).
		Where("renews_at IS NOT NULL").
		Where("renews_at <= ?", now.UTC()).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_lapsed", "subscription", err)
	}

	out := make([]*entitlements.Subscription, 0, len(rows))
	for _, m := range rows {
		out = append(out, toSubscription(m))
	}
	return out, nil
}

type GuildSettingsRepository struct {
	*BaseRepository
}

func NewGuildSettingsRepository(db *bun.DB) *GuildSettingsRepository {
	return &GuildSettingsRepository{BaseRepository: NewBaseRepository(db)}
}

var _ guilds.Repository = (*GuildSettingsRepository)(nil)

func (r *GuildSettingsRepository) Get(ctx context.Context, guildID snowflake.ID) (*guilds.Settings, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	m := new(models.GuildSettings)
	if err := r.db.NewSelect().Model(m).Where("guild_id = ?", int64(guildID)).Scan(ctx); err != nil {
		return nil, r.HandleErrorWithID("get", "guild settings", guildID, err)
	}
	return toGuildSettings(m), nil
}

func (r *GuildSettingsRepository) Upsert(ctx context.Context, settings *guilds.Settings) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewInsert().
		Model(guildSettingsModel(settings)).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("admin_roles = EXCLUDED.admin_roles").
		Set("organizer_roles = EXCLUDED.organizer_roles").
		Set("attendee_roles = EXCLUDED.attendee_roles").
		Set("bulletin_channel_id = EXCLUDED.bulletin_channel_id").
		Set("use_24_hour = EXCLUDED.use_24_hour").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return r.HandleErrorWithID("upsert", "guild settings", settings.GuildID, err)
}
