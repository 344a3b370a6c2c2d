// Package discord delivers event notices by direct message and to guild
// bulletin channels.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/notify"
	"github.com/huddle-bot/huddle/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	colorScheduled       = 0x57f287
	colorChanged         = 0xfee75c
	colorCanceled        = 0xed4245
	colorOpened          = 0x5865f2
	defaultDMConcurrency = 4
)

// Messenger is the part of the Discord REST client used to send messages.
type Messenger interface {
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

type DMDispatcher struct {
	rest        Messenger
	activity    notify.ActivityChecker
	concurrency int
}

// NewDMDispatcher sends at most concurrency DMs at once. activity may be nil.
func NewDMDispatcher(messenger Messenger, activity notify.ActivityChecker, concurrency int) *DMDispatcher {
	if concurrency <= 0 {
		concurrency = defaultDMConcurrency
	}
	return &DMDispatcher{rest: messenger, activity: activity, concurrency: concurrency}
}

var _ notify.Dispatcher = (*DMDispatcher)(nil)

// Dispatch DMs every participant of a finalized, changed or canceled event.
// Opened events are left to the bulletin channel. Finalized and changed
// notices of events canceled or deleted in the meantime are skipped.
//
// Dispatch fails only when no participant could be reached. Retrying a
// partial delivery would DM the others twice, so those failures are logged
// and counted instead.
func (d *DMDispatcher) Dispatch(ctx context.Context, n notify.Notice) error {
	if n.Kind == notify.KindOpened || len(n.Participants) == 0 {
		return nil
	}
	if n.Kind != notify.KindCanceled {
		active, err := isActive(ctx, d.activity, n.EventID)
		if err != nil || !active {
			return err
		}
	}

	msg := discord.MessageCreate{Embeds: []discord.Embed{noticeEmbed(n)}}

	var failed atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, userID := range n.Participants {
		g.Go(func() error {
			if err := d.send(ctx, userID, msg); err != nil {
				failed.Add(1)
				metrics.Notifications.WithLabelValues("dm", "failed").Inc()
				slog.Warn("Failed to DM participant",
					slog.String("type", "error"),
					slog.String("event_id", n.EventID.String()),
					slog.String("kind", string(n.Kind)),
					slog.String("user_id", userID.String()),
					slog.Any("error", err),
				)
				return nil
			}
			metrics.Notifications.WithLabelValues("dm", "success").Inc()
			return nil
		})
	}
	_ = g.Wait()

	count := int(failed.Load())
	switch {
	case count == 0:
		return nil
	case count == len(n.Participants):
		return fmt.Errorf("failed to DM %d of %d participants", count, len(n.Participants))
	default:
		metrics.DispatchFailures.Inc()
		slog.Warn("Some participants could not be reached",
			slog.String("type", "error"),
			slog.String("event_id", n.EventID.String()),
			slog.String("kind", string(n.Kind)),
			slog.Int("failed", count),
			slog.Int("participants", len(n.Participants)),
		)
		return nil
	}
}

func (d *DMDispatcher) send(ctx context.Context, userID snowflake.ID, msg discord.MessageCreate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	channel, err := d.rest.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	if _, err := d.rest.CreateMessage(channel.ID(), msg, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}
	return nil
}

// isActive treats a nil checker as active and logs skipped notices.
func isActive(ctx context.Context, activity notify.ActivityChecker, eventID snowflake.ID) (bool, error) {
	if activity == nil {
		return true, nil
	}
	active, err := activity.IsActive(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to check event %s: %w", eventID, err)
	}
	if !active {
		slog.Info("Skipping notification for inactive event",
			slog.String("type", "sys"),
			slog.String("event_id", eventID.String()),
		)
	}
	return active, nil
}

func noticeEmbed(n notify.Notice) discord.Embed {
	switch n.Kind {
	case notify.KindCanceled:
		return discord.NewEmbedBuilder().
			SetTitle("❌ "+n.Name+" has been canceled").
			SetDescription("The organizer called it off. No need to keep the time free.").
			SetColor(colorCanceled).
			AddField("Organizer", "<@"+n.OrganizerID.String()+">", true).
			SetFooterText("Event " + n.EventID.String()).
			Build()
	case notify.KindChanged:
		return discord.NewEmbedBuilder().
			SetTitle("📝 "+n.Name+" has been updated").
			SetDescription("Changes: "+n.Changes).
			SetColor(colorChanged).
			AddField("Organizer", "<@"+n.OrganizerID.String()+">", true).
			SetFooterText("Event " + n.EventID.String()).
			Build()
	default:
		return scheduledEmbed(n)
	}
}

func scheduledEmbed(n notify.Notice) discord.Embed {
	when := fmt.Sprintf("<t:%d:F> (<t:%d:R>)", n.Start.Unix(), n.Start.Unix())
	b := discord.NewEmbedBuilder().
		SetTitle("📅 "+n.Name+" is scheduled").
		SetDescription(when).
		SetColor(colorScheduled).
		AddField("Organizer", "<@"+n.OrganizerID.String()+">", true)
	if n.Duration > 0 {
		b.AddField("Duration", n.Duration.String(), true)
	}
	return b.SetFooterText("Event " + n.EventID.String()).Build()
}
