package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/notify"
	"github.com/huddle-bot/huddle/internal/metrics"
)

// SettingsSource looks up where a guild wants its bulletins.
type SettingsSource interface {
	Get(ctx context.Context, guildID snowflake.ID) (guilds.Settings, error)
}

// BulletinDispatcher posts opened, finalized and canceled events to the
// guild's bulletin channel.
type BulletinDispatcher struct {
	rest     Messenger
	settings SettingsSource
	activity notify.ActivityChecker
}

// NewBulletinDispatcher returns a dispatcher for settings' bulletin
// channels. activity may be nil.
func NewBulletinDispatcher(messenger Messenger, settings SettingsSource, activity notify.ActivityChecker) *BulletinDispatcher {
	return &BulletinDispatcher{rest: messenger, settings: settings, activity: activity}
}

var _ notify.Dispatcher = (*BulletinDispatcher)(nil)

func (d *BulletinDispatcher) Dispatch(ctx context.Context, n notify.Notice) error {
	if n.Kind == notify.KindChanged {
		return nil
	}

	settings, err := d.settings.Get(ctx, n.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load bulletin channel: %w", err)
	}
	if settings.BulletinChannelID == 0 {
		return nil
	}
	if n.Kind != notify.KindCanceled {
		active, err := isActive(ctx, d.activity, n.EventID)
		if err != nil || !active {
			return err
		}
	}

	msg := discord.MessageCreate{Embeds: []discord.Embed{bulletinEmbed(n)}}
	if _, err := d.rest.CreateMessage(settings.BulletinChannelID, msg, rest.WithCtx(ctx)); err != nil {
		metrics.Notifications.WithLabelValues("bulletin", "failed").Inc()
		return fmt.Errorf("failed to post bulletin to %s: %w", settings.BulletinChannelID, err)
	}
	metrics.Notifications.WithLabelValues("bulletin", "success").Inc()
	return nil
}

func bulletinEmbed(n notify.Notice) discord.Embed {
	switch n.Kind {
	case notify.KindOpened:
		lines := make([]string, 0, len(n.Slots))
		for _, start := range n.Slots {
			lines = append(lines, fmt.Sprintf("• <t:%d:F>", start.Unix()))
		}
		return discord.NewEmbedBuilder().
			SetTitle("🗳️ "+n.Name+" is open for responses").
			SetDescription(strings.Join(lines, "\n")).
			SetColor(colorOpened).
			AddField("Organizer", "<@"+n.OrganizerID.String()+">", true).
			AddField("Respond", "`/availability set event:"+n.EventID.String()+"`", true).
			SetFooterText("Event " + n.EventID.String()).
			Build()
	case notify.KindFinalized:
		embed := scheduledEmbed(n)
		embed.Fields = append(embed.Fields, discord.EmbedField{
			Name:  "Attending",
			Value: fmt.Sprint(len(n.Participants)),
		})
		return embed
	default:
		return noticeEmbed(n)
	}
}
