package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/huddle-bot/huddle/internal/legacy"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)

	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	printStats(c, legacy.Stats{
		Kind:      "events",
		Processed: 3,
		Imported:  2,
		Skipped:   1,
		Issues:    []legacy.Issue{{Record: "111/Broken", Reason: "no readable slots"}},
		StartTime: start,
		EndTime:   start.Add(1500 * time.Millisecond),
	})

	assert.Equal(t, "events: 3 processed, 2 imported, 1 skipped in 1.5s\n  111/Broken: no readable slots\n", out.String())
}

func TestReset_RequiresConfirmation(t *testing.T) {
	resetConfirm = false
	err := resetCMD.RunE(resetCMD, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestCommandTree(t *testing.T) {
	migrate, _, err := rootCmd.Find([]string{"migrate", "import"})
	require.NoError(t, err)
	assert.Equal(t, "import", migrate.Name())
	assert.NotNil(t, migrate.Flags().Lookup("dry-run"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
