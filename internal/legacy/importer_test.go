package legacy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/gateways/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsJSON = `{
  "111": {
    "events": {
      "Raid": {
        "guild_id": "111",
        "event_name": "Raid",
        "description": "Bring potions",
        "organizer": "1",
        "organizer_cname": "org",
        "confirmed_date": "TBD",
        "rsvp": [],
        "slots": ["Monday, 03/10/25 at 06PM", "Tuesday, 03/11/25 at 06PM", "not a slot"],
        "availability": {
          "Monday, 03/10/25": {"06PM": ["10", "20"]},
          "Tuesday, 03/11/25": {"06PM": ["10"], "09PM": ["30"]}
        }
      },
      "Picnic": {
        "guild_id": "111",
        "event_name": "Picnic",
        "description": "",
        "organizer": "2",
        "organizer_cname": "org2",
        "confirmed_date": "03/12/25",
        "slots": ["Wednesday, 03/12/25 at 11AM"],
        "availability": {}
      },
      "Broken": {
        "event_name": "Broken",
        "organizer": "nobody",
        "slots": []
      }
    }
  }
}`

const timezonesJSON = `{
  "10": {"timezone": "Europe/Berlin"},
  "20": "America/Chicago",
  "30": {"timezone": "Mars/Olympus_Mons"},
  "abc": {"timezone": "UTC"}
}`

type fixture struct {
	importer  *Importer
	events    *memory.EventRepository
	responses *memory.ResponseRepository
	timezones *memory.TimezoneRepository
}

func newFixture(t *testing.T, dryRun bool) *fixture {
	t.Helper()
	normalizer, err := timezone.NewNormalizer(8)
	require.NoError(t, err)

	f := &fixture{
		events:    memory.NewEventRepository(),
		responses: memory.NewResponseRepository(),
		timezones: memory.NewTimezoneRepository(),
	}
	clk := clock.NewFixed(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	f.importer = NewImporter(f.events, f.responses, f.timezones, normalizer, clk, dryRun)
	return f
}

func (f *fixture) event(t *testing.T, name string) *events.Event {
	t.Helper()
	list, err := f.events.ListByGuild(context.Background(), 111)
	require.NoError(t, err)
	for _, e := range list {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("event %s not imported", name)
	return nil
}

func TestImportEvents(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	stats, err := f.importer.ImportEvents(ctx, strings.NewReader(eventsJSON))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 1, stats.Skipped)

	raid := f.event(t, "Raid")
	assert.Equal(t, events.StatusOpen, raid.Status)
	assert.EqualValues(t, 1, raid.OrganizerID)
	require.Len(t, raid.Slots, 2)
	assert.Equal(t, time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC), raid.Slots[0].Start)
	assert.EqualValues(t, 3, raid.NextSlotID)

	responses, err := f.responses.List(ctx, raid.ID)
	require.NoError(t, err)
	assert.Equal(t, overlap.Responses{
		snowflake.ID(10): overlap.NewSlotSet(1, 2),
		snowflake.ID(20): overlap.NewSlotSet(1),
	}, responses)

	picnic := f.event(t, "Picnic")
	assert.Equal(t, events.StatusClosed, picnic.Status)
	assert.EqualValues(t, 1, picnic.FinalSlotID)

	var reasons []string
	for _, issue := range stats.Issues {
		reasons = append(reasons, issue.Reason)
	}
	assert.Contains(t, reasons, `unreadable slot "not a slot"`)
	assert.Contains(t, reasons, "availability for unknown slot Tuesday, 03/11/25 09PM")
}

func TestImportEvents_Rerun(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.importer.ImportEvents(ctx, strings.NewReader(eventsJSON))
	require.NoError(t, err)
	stats, err := f.importer.ImportEvents(ctx, strings.NewReader(eventsJSON))
	require.NoError(t, err)

	assert.Zero(t, stats.Imported)
	assert.Len(t, f.events.All(), 2)
}

func TestImportEvents_DryRun(t *testing.T) {
	f := newFixture(t, true)

	stats, err := f.importer.ImportEvents(context.Background(), strings.NewReader(eventsJSON))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported)
	assert.Empty(t, f.events.All())
}

func TestImportEvents_BadJSON(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.importer.ImportEvents(context.Background(), strings.NewReader("{"))
	assert.Error(t, err)
}

func TestImportTimezones(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	stats, err := f.importer.ImportTimezones(ctx, strings.NewReader(timezonesJSON))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 2, stats.Skipped)

	zone, err := f.timezones.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", zone)

	zone, err = f.timezones.Get(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", zone)

	zone, err = f.timezones.Get(ctx, 30)
	require.NoError(t, err)
	assert.Empty(t, zone)
}

func TestImportDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TimezonesFile), []byte(timezonesJSON), 0o600))

	stats, err := newFixture(t, false).importer.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, stats, 1, "missing events file is skipped")
	assert.Equal(t, "timezones", stats[0].Kind)
}
