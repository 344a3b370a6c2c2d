package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/gateways/database/repositories"
	"github.com/huddle-bot/huddle/internal/legacy"
	"github.com/spf13/cobra"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema and import legacy data",
}

var schemaCMD = &cobra.Command{
	Use:   "schema",
	Short: "Create missing tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx); err != nil {
			return err
		}
		version, err := db.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		slog.Info("Schema is up to date", slog.String("type", "db"), slog.String("version", version))
		return nil
	},
}

var resetConfirm bool

var resetCMD = &cobra.Command{
	Use:   "reset",
	Short: "Delete every event, response, time zone and subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirm {
			return errors.New("refusing to reset without --yes")
		}
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		return db.ResetAppTables(ctx)
	},
}

var (
	importDir    string
	importDryRun bool
)

var importCMD = &cobra.Command{
	Use:   "import",
	Short: "Import events.json and user_timezones.json from the JSON bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx); err != nil {
			return err
		}
		normalizer, err := timezone.NewNormalizer(64)
		if err != nil {
			return err
		}

		importer := legacy.NewImporter(
			repositories.NewEventRepository(db.BunDB()),
			repositories.NewResponseRepository(db.BunDB()),
			repositories.NewTimezoneRepository(db.BunDB()),
			normalizer,
			clock.NewSystem(),
			importDryRun,
		)

		all, err := importer.ImportDir(ctx, importDir)
		for _, stats := range all {
			printStats(cmd, stats)
		}
		return err
	},
}

func printStats(cmd *cobra.Command, stats legacy.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d processed, %d imported, %d skipped in %s\n",
		stats.Kind, stats.Processed, stats.Imported, stats.Skipped,
		stats.EndTime.Sub(stats.StartTime).Round(time.Millisecond))
	for _, issue := range stats.Issues {
		fmt.Fprintf(out, "  %s: %s\n", issue.Record, issue.Reason)
	}
}

func init() {
	resetCMD.Flags().BoolVar(&resetConfirm, "yes", false, "confirm deleting all data")
	importCMD.Flags().StringVar(&importDir, "dir", "data", "directory holding the legacy JSON files")
	importCMD.Flags().BoolVar(&importDryRun, "dry-run", false, "read and report without writing")

	migrateCMD.AddCommand(schemaCMD, resetCMD, importCMD)
	rootCmd.AddCommand(migrateCMD)
}
