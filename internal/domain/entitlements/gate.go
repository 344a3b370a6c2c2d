// Package entitlements decides what a guild's subscription allows.
package entitlements

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/errs"
)

// Repository persists subscriptions. Get returns an *errs.NotFoundError for
// guilds that never subscribed.
type Repository interface {
	Get(ctx context.Context, guildID snowflake.ID) (*Subscription, error)
	Upsert(ctx context.Context, sub *Subscription) error
	ListLapsed(ctx context.Context, now time.Time) ([]*Subscription, error)
}

type Config struct {
	FreeQuota    int
	PremiumQuota int
}

// Service is the entitlement gate. Every call reads the repository; nothing
// is cached between operations.
type Service struct {
	repository Repository
	clock      clock.Clock
	cfg        Config
}

func NewService(repository Repository, clk clock.Clock, cfg Config) *Service {
	return &Service{
		repository: repository,
		clock:      clk,
		cfg:        cfg,
	}
}

// Subscription returns the guild's subscription, free when none is stored.
func (s *Service) Subscription(ctx context.Context, guildID snowflake.ID) (Subscription, error) {
	sub, err := s.repository.Get(ctx, guildID)
	if err != nil {
		if errs.IsNotFound(err) {
			return Subscription{GuildID: guildID, Tier: TierFree}, nil
		}
		return Subscription{}, fmt.Errorf("failed to load subscription: %w", err)
	}
	return *sub, nil
}

func (s *Service) IsPremium(ctx context.Context, guildID snowflake.ID) (bool, error) {
	sub, err := s.Subscription(ctx, guildID)
	if err != nil {
		return false, err
	}
	return sub.PremiumAt(s.clock.Now()), nil
}

// EventQuota is the number of draft and open events the guild may hold.
func (s *Service) EventQuota(ctx context.Context, guildID snowflake.ID) (int, error) {
	premium, err := s.IsPremium(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if premium {
		return s.cfg.PremiumQuota, nil
	}
	return s.cfg.FreeQuota, nil
}

// HasFeature reports whether the guild's tier unlocks feature.
func (s *Service) HasFeature(ctx context.Context, guildID snowflake.ID, feature Feature) (bool, error) {
	switch feature {
	case FeatureUnlimitedEvents, FeatureRecurringEvents, FeatureHeatmapImages:
		return s.IsPremium(ctx, guildID)
	default:
		return false, errs.Validation("feature", "unknown feature %q", feature)
	}
}

// SetTier is the only way subscriptions change. It is called by payment
// integrations and the admin command, never by the scheduling core.
func (s *Service) SetTier(ctx context.Context, guildID snowflake.ID, tier Tier, renewsAt time.Time) (Subscription, error) {
	sub := Subscription{
		GuildID:   guildID,
		Tier:      tier,
		RenewsAt:  renewsAt.UTC(),
		UpdatedAt: s.clock.Now(),
	}
	if tier == TierFree {
		sub.RenewsAt = time.Time{}
	}
	if err := s.repository.Upsert(ctx, &sub); err != nil {
		return Subscription{}, fmt.Errorf("failed to save subscription: %w", err)
	}

	slog.Info("Subscription updated",
		slog.String("type", "sys"),
		slog.String("guild_id", guildID.String()),
		slog.String("tier", string(tier)),
	)
	return sub, nil
}

// ExpireLapsed downgrades every subscription whose paid period ended.
func (s *Service) ExpireLapsed(ctx context.Context) (int, error) {
	now := s.clock.Now()
	lapsed, err := s.repository.ListLapsed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list lapsed subscriptions: %w", err)
	}

	expired := 0
	for _, sub := range lapsed {
		if sub.PremiumAt(now) {
			continue
		}
		if _, err := s.SetTier(ctx, sub.GuildID, TierFree, time.Time{}); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
