package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/huddle-bot/huddle/huddle"
	discordcmds "github.com/huddle-bot/huddle/huddle/commands"
	"github.com/huddle-bot/huddle/huddle/config"
	"github.com/huddle-bot/huddle/huddle/logger"
	"github.com/huddle-bot/huddle/internal/calendar"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/availability"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/notify"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/domain/wizard"
	"github.com/huddle-bot/huddle/internal/gateways/database"
	"github.com/huddle-bot/huddle/internal/gateways/database/repositories"
	discordgw "github.com/huddle-bot/huddle/internal/gateways/discord"
	"github.com/huddle-bot/huddle/internal/gateways/memory"
	"github.com/huddle-bot/huddle/internal/gateways/rabbitmq"
	"github.com/huddle-bot/huddle/internal/gateways/spaces"
	"github.com/huddle-bot/huddle/internal/jobs"
	"github.com/huddle-bot/huddle/internal/metrics"
	"github.com/huddle-bot/huddle/internal/render"
	"github.com/huddle-bot/huddle/internal/scheduler"
	"github.com/streadway/amqp"
)

var (
	version = "dev"
	commit  = "unknown"
)

const zoneCacheSize = 512

type storage struct {
	events        events.Repository
	responses     availability.Repository
	timezones     timezone.Repository
	subscriptions entitlements.Repository
	guildSettings guilds.Repository
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(slog.LevelInfo)))

	slog.Info("Starting Huddle",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := huddle.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	logger.LogSystem("Configuration loaded successfully", slog.String("storage", cfg.Storage.Driver))

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	b := huddle.New(*cfg, version, commit)

	startCtx, startCancel := context.WithTimeout(runCtx, config.StartupTimeout)
	store, err := openStorage(startCtx, b)
	if err != nil {
		startCancel()
		slog.Error("Failed to open storage",
			slog.String("type", "db"),
			slog.String("driver", cfg.Storage.Driver),
			slog.Any("error", err))
		os.Exit(-1)
	}
	if b.DB != nil {
		defer b.DB.Close()
	}

	clk := clock.NewSystem()
	normalizer, err := timezone.NewNormalizer(zoneCacheSize)
	if err != nil {
		startCancel()
		slog.Error("Failed to create time zone normalizer", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}

	settings := guilds.NewService(store.guildSettings, clk)

	dispatcher, closeNotify, err := setupNotifications(runCtx, b, settings)
	if err != nil {
		startCancel()
		slog.Error("Failed to set up notifications",
			slog.String("type", "sys"),
			slog.String("driver", cfg.Notify.Driver),
			slog.Any("error", err))
		os.Exit(-1)
	}
	defer closeNotify()
	async := notify.NewAsync(dispatcher, cfg.Notify.Timeout())

	locks := events.NewLocks()
	b.Entitlements = entitlements.NewService(store.subscriptions, clk, cfg.Entitlements.Service())
	responses := availability.NewService(store.responses, store.events, locks)
	b.Events = events.NewManager(store.events, responses, b.Entitlements, async, normalizer, locks, clk, cfg.Manager())
	wizards := wizard.NewManager(time.Duration(cfg.Wizard.TTLMinutes)*time.Minute, clk)

	opts := scheduler.Options{
		Events:       b.Events,
		Availability: responses,
		Preferences:  timezone.NewPreferences(store.timezones, normalizer),
		Normalizer:   normalizer,
		Entitlements: b.Entitlements,
		Guilds:       settings,
		Wizard:       wizards,
		Exporter:     calendar.NewExporter(cfg.Events.CalendarDomain),
		Clock:        clk,
		ListPageSize: cfg.Events.ListPageSize,
	}
	if cfg.Render.Enabled {
		renderer := render.NewRenderer(time.Duration(cfg.Render.TimeoutSeconds) * time.Second)
		if err := renderer.Probe(startCtx); err == nil {
			opts.Renderer = renderer
		}
	}
	if cfg.Spaces.Enabled() {
		uploader, err := spaces.NewUploader(startCtx, cfg.Spaces)
		if err != nil {
			slog.Error("Failed to set up Spaces, exports stay attachment only",
				slog.String("type", "sys"),
				slog.Any("error", err))
		} else {
			opts.Uploader = uploader
		}
	}
	startCancel()

	b.Registry = commands.NewRegistry()
	scheduler.New(opts).Register(b.Registry)

	b.Jobs = jobs.NewScheduler(time.Duration(cfg.Jobs.TimeoutSeconds) * time.Second)
	for _, job := range []jobs.Job{
		jobs.ExpireSubscriptions(cfg.Jobs.ExpireSubscriptions, b.Entitlements),
		jobs.SweepWizard(cfg.Jobs.SweepWizard, wizards),
	} {
		if job.Spec == "" {
			continue
		}
		if err := b.Jobs.Add(job); err != nil {
			logger.LogError("Failed to schedule job", err, slog.String("job", job.Name))
			os.Exit(-1)
		}
	}
	b.Jobs.Start()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(runCtx, cfg.Metrics.Addr); err != nil {
				logger.LogError("Metrics endpoint stopped", err)
			}
		}()
	}

	h := handler.New()
	discordcmds.NewRouter(b.Registry, b.Events, settings, b.Paginator).Register(h)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		b.Jobs.Stop(ctx)
		b.Client.Close(ctx)
		async.Wait()
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, discordcmds.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("error_details", fmt.Sprintf("%+v", err)),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	ctx, cancel := context.WithTimeout(runCtx, config.GatewayOpenTimeout)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...", slog.String("type", "sys"))
	stop()
}

func openStorage(ctx context.Context, b *huddle.Bot) (storage, error) {
	switch b.Cfg.Storage.Driver {
	case "memory":
		slog.Warn("Using in-memory storage, data is lost on restart", slog.String("type", "db"))
		eventRepo, responseRepo := memory.NewEventStore()
		return storage{
			events:        eventRepo,
			responses:     responseRepo,
			timezones:     memory.NewTimezoneRepository(),
			subscriptions: memory.NewSubscriptionRepository(),
			guildSettings: memory.NewGuildSettingsRepository(),
		}, nil
	default:
		start := time.Now()
		db, err := database.New(ctx, b.Cfg.DB)
		if err != nil {
			return storage{}, err
		}
		if err := db.InitializeSchema(ctx); err != nil {
			db.Close()
			return storage{}, fmt.Errorf("failed to initialize schema: %w", err)
		}
		slog.Info("Database ready",
			slog.String("type", "db"),
			slog.String("database", b.Cfg.DB.Database),
			slog.Duration("took", time.Since(start)))

		b.DB = db
		return storage{
			events:        repositories.NewEventRepository(db.BunDB()),
			responses:     repositories.NewResponseRepository(db.BunDB()),
			timezones:     repositories.NewTimezoneRepository(db.BunDB()),
			subscriptions: repositories.NewSubscriptionRepository(db.BunDB()),
			guildSettings: repositories.NewGuildSettingsRepository(db.BunDB()),
		}, nil
	}
}

// setupNotifications builds the dispatcher for event notices. Notices go to
// participants by DM and to the guild's bulletin channel. With RabbitMQ the
// process publishes and, when configured, also consumes and delivers them.
func setupNotifications(ctx context.Context, b *huddle.Bot, settings discordgw.SettingsSource) (notify.Dispatcher, func(), error) {
	cfg := b.Cfg
	delivery := notify.Multi{
		discordgw.NewDMDispatcher(b.Messenger(), b, cfg.Notify.Concurrency),
		discordgw.NewBulletinDispatcher(b.Messenger(), settings, b),
	}

	switch cfg.Notify.Driver {
	case "none":
		return notify.Nop{}, func() {}, nil
	case "rabbitmq":
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, time.Duration(cfg.RabbitMQ.RetryDelaySeconds)*time.Second)
		if err != nil {
			return nil, nil, err
		}
		publishCh, err := rabbitmq.SetupChannel(conn, 0)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}

		if cfg.RabbitMQ.Consume {
			if err := startConsumer(ctx, conn, delivery, cfg); err != nil {
				conn.Close()
				return nil, nil, err
			}
		}
		return rabbitmq.NewPublisher(publishCh), func() { conn.Close() }, nil
	default:
		return delivery, func() {}, nil
	}
}

func startConsumer(ctx context.Context, conn *amqp.Connection, next notify.Dispatcher, cfg huddle.Config) error {
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Concurrency)
	if err != nil {
		return err
	}
	if err := rabbitmq.Consume(ctx, ch, next, cfg.RabbitMQ.Concurrency, cfg.Notify.Timeout()); err != nil {
		return err
	}
	slog.Info("Consuming notifications",
		slog.String("type", "sys"),
		slog.String("queue", rabbitmq.Queue),
		slog.Int("concurrency", cfg.RabbitMQ.Concurrency))
	return nil
}
