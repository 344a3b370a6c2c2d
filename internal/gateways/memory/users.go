package memory

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
)

type TimezoneRepository struct {
	mu    sync.RWMutex
	zones map[snowflake.ID]string
}

func NewTimezoneRepository() *TimezoneRepository {
	return &TimezoneRepository{zones: make(map[snowflake.ID]string)}
}

func (r *TimezoneRepository) Get(_ context.Context, userID snowflake.ID) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.zones[userID], nil
}

func (r *TimezoneRepository) Set(_ context.Context, userID snowflake.ID, zone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zones[userID] = zone
	return nil
}

type SubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[snowflake.ID]entitlements.Subscription
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{subs: make(map[snowflake.ID]entitlements.Subscription)}
}

func (r *SubscriptionRepository) Get(_ context.Context, guildID snowflake.ID) (*entitlements.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[guildID]
	if !ok {
		return nil, &errs.NotFoundError{Resource: "subscription", ID: guildID.String()}
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Upsert(_ context.Context, sub *entitlements.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.GuildID] = *sub
	return nil
}

func (r *SubscriptionRepository) ListLapsed(_ context.Context, now time.Time) ([]*entitlements.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entitlements.Subscription
	for _, sub := range r.subs {
		if sub.Tier != entitlements.TierFree && !sub.RenewsAt.IsZero() && !now.Before(sub.RenewsAt) {
			s := sub
			out = append(out, &s)
		}
	}
	return out, nil
}

type GuildSettingsRepository struct {
	mu       sync.RWMutex
	settings map[snowflake.ID]guilds.Settings
}

func NewGuildSettingsRepository() *GuildSettingsRepository {
	return &GuildSettingsRepository{settings: make(map[snowflake.ID]guilds.Settings)}
}

func (r *GuildSettingsRepository) Get(_ context.Context, guildID snowflake.ID) (*guilds.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	settings, ok := r.settings[guildID]
	if !ok {
		return nil, &errs.NotFoundError{Resource: "guild settings", ID: guildID.String()}
	}
	settings = settings.Clone()
	return &settings, nil
}

func (r *GuildSettingsRepository) Upsert(_ context.Context, settings *guilds.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settings.GuildID] = settings.Clone()
	return nil
}
