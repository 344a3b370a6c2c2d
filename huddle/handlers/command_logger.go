package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/huddle/config"
	"github.com/huddle-bot/huddle/internal/metrics"
)

// Timeout bounds how long a wrapped handler may run before the wrapper
// gives up waiting on it.
var Timeout = config.CommandExecutionTimeout

// WrapWithLogging wraps a command handler with logging and metrics.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return track("cmd", name, e.User(), e.GuildID(), e.ChannelID(), func() error { return h(e) })
	}
}

// WrapComponentWithLogging wraps a component handler with logging and metrics.
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return track("component", name, e.User(), e.GuildID(), e.ChannelID(), func() error { return h(e) })
	}
}

// WrapModalWithLogging wraps a modal submit handler with logging and metrics.
func WrapModalWithLogging(name string, h handler.ModalHandler) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		return track("component", name, e.User(), e.GuildID(), e.ChannelID(), func() error { return h(e) })
	}
}

func track(kind, name string, user discord.User, guildID *snowflake.ID, channelID snowflake.ID, run func() error) error {
	start := time.Now()
	guild := "dm"
	if guildID != nil {
		guild = guildID.String()
	}

	slog.Debug("Interaction started",
		slog.String("type", kind),
		slog.String("name", name),
		slog.String("user_id", user.ID.String()),
		slog.String("user_name", user.Username),
		slog.String("guild_id", guild),
		slog.String("channel_id", channelID.String()),
	)

	done := make(chan error, 1)
	go func() {
		done <- run()
	}()

	select {
	case err := <-done:
		duration := time.Since(start)
		metrics.CommandDuration.WithLabelValues(name).Observe(duration.Seconds())

		attrs := []any{
			slog.String("type", kind),
			slog.String("name", name),
			slog.String("user_id", user.ID.String()),
			slog.String("user_name", user.Username),
			slog.Duration("took", duration),
		}

		switch {
		case err != nil:
			metrics.Commands.WithLabelValues(name, "failed").Inc()
			slog.Error("Interaction failed", append(attrs,
				slog.Any("error", err),
				slog.String("status", "failed"),
			)...)
		case duration > config.SlowCommandThreshold:
			metrics.Commands.WithLabelValues(name, "slow").Inc()
			slog.Warn("Interaction executed slowly", append(attrs,
				slog.String("status", "slow"),
			)...)
		default:
			metrics.Commands.WithLabelValues(name, "success").Inc()
			slog.Info("Interaction completed", append(attrs,
				slog.String("status", "success"),
			)...)
		}
		return err

	case <-time.After(Timeout):
		metrics.Commands.WithLabelValues(name, "timeout").Inc()
		slog.Error("Interaction timed out",
			slog.String("type", kind),
			slog.String("name", name),
			slog.String("user_id", user.ID.String()),
			slog.String("user_name", user.Username),
			slog.String("status", "timeout"),
			slog.Duration("timeout", Timeout),
		)
		return fmt.Errorf("%s timed out after %s", name, Timeout)
	}
}
