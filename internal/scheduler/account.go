package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
)

type timezoneInput struct {
	Zone string `option:"zone" validate:"required,max=64"`
}

type premiumInput struct {
	Tier string `option:"tier" validate:"required,oneof=free monthly yearly canceled"`
	Days int    `option:"days" validate:"gte=0,lte=3660"`
}

func (h *Handlers) setTimezone(ctx context.Context, c commands.Context, in timezoneInput) (commands.Result, error) {
	if err := h.preferences.Set(ctx, c.UserID, in.Zone); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{
		Title:     "Time zone saved",
		Body:      h.zoneLine(c, in.Zone),
		Tone:      commands.ToneSuccess,
		Ephemeral: true,
	}, nil
}

func (h *Handlers) showTimezone(ctx context.Context, c commands.Context, _ struct{}) (commands.Result, error) {
	zone, err := h.zoneOf(ctx, c.UserID, false)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{
		Title:     "Your time zone",
		Body:      h.zoneLine(c, zone),
		Ephemeral: true,
	}, nil
}

func (h *Handlers) zoneLine(c commands.Context, zone string) string {
	local, err := h.normalizer.ToLocal(h.clock.Now(), zone)
	if err != nil {
		return fmt.Sprintf("`%s`", zone)
	}
	return fmt.Sprintf("`%s`, where it is now %s.", zone, local.Format(c.Use24Hour))
}

func (h *Handlers) premiumStatus(ctx context.Context, c commands.Context, _ struct{}) (commands.Result, error) {
	sub, err := h.entitlements.Subscription(ctx, c.GuildID)
	if err != nil {
		return commands.Result{}, err
	}
	quota, err := h.entitlements.EventQuota(ctx, c.GuildID)
	if err != nil {
		return commands.Result{}, err
	}
	active, err := h.events.List(ctx, c.GuildID, events.StatusDraft, events.StatusOpen)
	if err != nil {
		return commands.Result{}, err
	}

	premium := sub.PremiumAt(h.clock.Now())
	result := commands.Result{
		Title: "Subscription",
		Fields: []commands.Field{
			{Name: "Plan", Value: sub.String(), Inline: true},
			{Name: "Active events", Value: fmt.Sprintf("%d of %d", len(active), quota), Inline: true},
		},
	}
	if premium {
		result.Tone = commands.ToneSuccess
		result.Body = "Premium is active on this server."
	} else {
		result.Body = "Free plan. Premium raises the event limit and unlocks recurring events and heatmaps."
	}
	return result, nil
}

// setPremium is the admin path for changing a guild's subscription by hand.
func (h *Handlers) setPremium(ctx context.Context, c commands.Context, in premiumInput) (commands.Result, error) {
	if err := guilds.Require(c.Level, guilds.LevelAdmin, "change the subscription"); err != nil {
		return commands.Result{}, err
	}
	tier, err := entitlements.ParseTier(in.Tier)
	if err != nil {
		return commands.Result{}, err
	}

	var renewsAt time.Time
	if in.Days > 0 {
		renewsAt = h.clock.Now().Add(time.Duration(in.Days) * 24 * time.Hour)
	}
	sub, err := h.entitlements.SetTier(ctx, c.GuildID, tier, renewsAt)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{
		Title: "Subscription updated",
		Body:  fmt.Sprintf("This server is now on %s.", sub),
		Tone:  commands.ToneSuccess,
	}, nil
}
