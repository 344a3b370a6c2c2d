package entitlements

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/errs"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierMonthly  Tier = "monthly"
	TierYearly   Tier = "yearly"
	TierCanceled Tier = "canceled"
)

func ParseTier(s string) (Tier, error) {
	switch tier := Tier(strings.ToLower(strings.TrimSpace(s))); tier {
	case TierFree, TierMonthly, TierYearly, TierCanceled:
		return tier, nil
	default:
		return "", errs.Validation("tier", "%q is not one of free, monthly, yearly, canceled", s)
	}
}

type Feature string

const (
	FeatureUnlimitedEvents Feature = "unlimited_events"
	FeatureRecurringEvents Feature = "recurring_events"
	FeatureHeatmapImages   Feature = "heatmap_images"
)

type Subscription struct {
	GuildID   snowflake.ID
	Tier      Tier
	RenewsAt  time.Time
	UpdatedAt time.Time
}

// PremiumAt reports whether the subscription grants premium at now. Paid
// tiers without a renewal date never lapse; canceled subscriptions keep
// premium until the paid period ends.
func (s Subscription) PremiumAt(now time.Time) bool {
	switch s.Tier {
	case TierMonthly, TierYearly:
		return s.RenewsAt.IsZero() || now.Before(s.RenewsAt)
	case TierCanceled:
		return !s.RenewsAt.IsZero() && now.Before(s.RenewsAt)
	default:
		return false
	}
}

func (s Subscription) String() string {
	if s.RenewsAt.IsZero() {
		return string(s.Tier)
	}
	return fmt.Sprintf("%s (until %s)", s.Tier, s.RenewsAt.Format(time.DateOnly))
}
