// Package cmd holds the maintenance commands of huddlectl.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/huddle-bot/huddle/huddle"
	"github.com/huddle-bot/huddle/huddle/logger"
	"github.com/huddle-bot/huddle/internal/gateways/database"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "huddlectl",
	Short:         "Maintenance tools for the Huddle database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	slog.SetDefault(slog.New(logger.NewHandler(slog.LevelInfo)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", slog.String("type", "sys"), slog.Any("error", err))
		return 1
	}
	return 0
}

// openDB connects with the [db] section of the config. The rest of the file
// is not validated.
func openDB(ctx context.Context) (*database.DB, error) {
	cfg, err := huddle.ReadConfig(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(logger.NewHandlerWithWriter(os.Stderr, cfg.Log.Level)))
	return database.New(ctx, cfg.DB)
}
