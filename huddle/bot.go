package huddle

import (
	"context"
	"log/slog"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/huddle/config"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	eventsdomain "github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/gateways/database"
	"github.com/huddle-bot/huddle/internal/jobs"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg          Config
	Client       bot.Client
	Paginator    *paginator.Manager
	Version      string
	Commit       string
	DB           *database.DB
	Registry     *commands.Registry
	Events       *eventsdomain.Manager
	Entitlements *entitlements.Service
	Jobs         *jobs.Scheduler
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Huddle is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), config.PresenceTimeout)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("your calendars"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence",
			slog.String("type", "error"),
			slog.Any("error", err))
	}
}

// IsActive reports whether an event still wants its notifications.
func (b *Bot) IsActive(ctx context.Context, eventID snowflake.ID) (bool, error) {
	return b.Events.IsActive(ctx, eventID)
}

// Messenger sends DMs through the client created by SetupBot. It may be
// handed out before the client exists.
func (b *Bot) Messenger() *Messenger {
	return &Messenger{bot: b}
}

type Messenger struct {
	bot *Bot
}

func (m *Messenger) CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error) {
	return m.bot.Client.Rest().CreateDMChannel(userID, opts...)
}

func (m *Messenger) CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error) {
	return m.bot.Client.Rest().CreateMessage(channelID, messageCreate, opts...)
}
