package legacy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/availability"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	EventsFile    = "events.json"
	TimezonesFile = "user_timezones.json"
)

type Importer struct {
	events     events.Repository
	responses  availability.Repository
	timezones  timezone.Repository
	normalizer *timezone.Normalizer
	clock      clock.Clock
	ids        events.IDGenerator
	dryRun     bool
}

func NewImporter(
	eventRepo events.Repository,
	responses availability.Repository,
	timezones timezone.Repository,
	normalizer *timezone.Normalizer,
	clk clock.Clock,
	dryRun bool,
) *Importer {
	return &Importer{
		events:     eventRepo,
		responses:  responses,
		timezones:  timezones,
		normalizer: normalizer,
		clock:      clk,
		dryRun:     dryRun,
	}
}

// ImportDir imports every known file found in dir. Missing files are skipped.
func (im *Importer) ImportDir(ctx context.Context, dir string) ([]Stats, error) {
	steps := []struct {
		file string
		run  func(context.Context, io.Reader) (Stats, error)
	}{
		{TimezonesFile, im.ImportTimezones},
		{EventsFile, im.ImportEvents},
	}

	var all []Stats
	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("Legacy file not found, skipping", slog.String("type", "sys"), slog.String("path", path))
			continue
		}
		if err != nil {
			return all, fmt.Errorf("failed to open %s: %w", path, err)
		}

		stats, err := step.run(ctx, f)
		f.Close()
		all = append(all, stats)
		if err != nil {
			return all, fmt.Errorf("failed to import %s: %w", path, err)
		}
	}
	return all, nil
}

// ImportTimezones reads user_timezones.json, where each user maps either to
// {"timezone": zone} or directly to a zone string.
func (im *Importer) ImportTimezones(ctx context.Context, r io.Reader) (Stats, error) {
	stats := Stats{Kind: "timezones", StartTime: im.clock.Now()}
	defer func() { stats.EndTime = im.clock.Now() }()

	var raw map[string]bson.RawValue
	if err := decode(r, &raw); err != nil {
		return stats, err
	}

	for _, key := range sortedKeys(raw) {
		stats.Processed++
		userID, err := snowflake.Parse(key)
		if err != nil {
			stats.skip(key, "invalid user id")
			continue
		}

		zone, ok := zoneOf(raw[key])
		if !ok || zone == "" {
			stats.skip(key, "no time zone")
			continue
		}
		if err := im.normalizer.Validate(zone); err != nil {
			stats.skip(key, "unknown time zone %q", zone)
			continue
		}

		if !im.dryRun {
			if err := im.timezones.Set(ctx, userID, zone); err != nil {
				return stats, fmt.Errorf("failed to save time zone of %s: %w", key, err)
			}
		}
		stats.Imported++
	}
	im.logStats(stats)
	return stats, nil
}

func zoneOf(v bson.RawValue) (string, bool) {
	if zone, ok := v.StringValueOK(); ok {
		return zone, true
	}
	if doc, ok := v.DocumentOK(); ok {
		return doc.Lookup("timezone").StringValueOK()
	}
	return "", false
}

// ImportEvents reads events.json. Events already present in their guild
// under the same name and organizer are skipped, so imports can be rerun.
func (im *Importer) ImportEvents(ctx context.Context, r io.Reader) (Stats, error) {
	stats := Stats{Kind: "events", StartTime: im.clock.Now()}
	defer func() { stats.EndTime = im.clock.Now() }()

	var raw map[string]legacyGuild
	if err := decode(r, &raw); err != nil {
		return stats, err
	}

	for _, guildKey := range sortedKeys(raw) {
		guildID, err := snowflake.Parse(guildKey)
		if err != nil {
			stats.skip(guildKey, "invalid guild id")
			continue
		}

		guild := raw[guildKey]
		for _, name := range sortedKeys(guild.Events) {
			stats.Processed++
			record := guildKey + "/" + name

			event, responses, err := im.convert(guildID, name, guild.Events[name], &stats, record)
			if err != nil {
				stats.skip(record, "%v", err)
				continue
			}

			exists, err := im.exists(ctx, event)
			if err != nil {
				return stats, err
			}
			if exists {
				stats.skip(record, "already imported")
				continue
			}

			if !im.dryRun {
				if err := im.save(ctx, event, responses); err != nil {
					return stats, fmt.Errorf("failed to save %s: %w", record, err)
				}
			}
			stats.Imported++
		}
	}
	im.logStats(stats)
	return stats, nil
}

func (im *Importer) convert(guildID snowflake.ID, name string, le legacyEvent, stats *Stats, record string) (*events.Event, overlap.Responses, error) {
	organizerID, err := snowflake.Parse(le.Organizer)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid organizer %q", le.Organizer)
	}
	if le.Name != "" {
		name = le.Name
	}

	var starts []time.Time
	for _, s := range le.Slots {
		t, err := time.Parse(slotLayout, s)
		if err != nil {
			stats.note(record, "unreadable slot %q", s)
			continue
		}
		if !slices.ContainsFunc(starts, t.Equal) {
			starts = append(starts, t)
		}
	}
	if len(starts) == 0 {
		return nil, nil, errors.New("no readable slots")
	}
	slices.SortFunc(starts, time.Time.Compare)

	now := im.clock.Now()
	event := &events.Event{
		ID:          im.ids.Next(now),
		GuildID:     guildID,
		OrganizerID: organizerID,
		Name:        name,
		Description: le.Description,
		Status:      events.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	byStart := make(map[time.Time]overlap.SlotID, len(starts))
	for i, start := range starts {
		id := overlap.SlotID(i + 1)
		event.Slots = append(event.Slots, events.Slot{ID: id, Start: start, Duration: time.Hour})
		byStart[start] = id
	}
	event.NextSlotID = overlap.SlotID(len(starts) + 1)

	responses := make(overlap.Responses)
	for date, hours := range le.Availability {
		for hour, users := range hours {
			start, err := parseAvailability(date, hour)
			if err != nil {
				stats.note(record, "unreadable availability %q %q", date, hour)
				continue
			}
			slotID, ok := byStart[start]
			if !ok {
				stats.note(record, "availability for unknown slot %s %s", date, hour)
				continue
			}
			for _, user := range users {
				userID, err := snowflake.Parse(user)
				if err != nil {
					stats.note(record, "invalid user id %q", user)
					continue
				}
				if responses[userID] == nil {
					responses[userID] = overlap.NewSlotSet()
				}
				responses[userID][slotID] = struct{}{}
			}
		}
	}

	if slotID, ok := confirmedSlot(le.ConfirmedDate, event.Slots); ok {
		event.Status = events.StatusClosed
		event.FinalSlotID = slotID
	} else if le.ConfirmedDate != "" && le.ConfirmedDate != "TBD" {
		stats.note(record, "confirmed date %q matches no slot, imported as open", le.ConfirmedDate)
	}
	return event, responses, nil
}

func parseAvailability(date, hour string) (time.Time, error) {
	return time.Parse(availDateLayout+" "+availHourLayout, date+" "+hour)
}

// confirmedSlot picks the earliest slot on the confirmed day.
func confirmedSlot(confirmed string, slots []events.Slot) (overlap.SlotID, bool) {
	day, err := time.Parse(confirmedLayout, confirmed)
	if err != nil {
		return 0, false
	}
	for _, slot := range slots {
		y, m, d := slot.Start.Date()
		if y == day.Year() && m == day.Month() && d == day.Day() {
			return slot.ID, true
		}
	}
	return 0, false
}

func (im *Importer) exists(ctx context.Context, event *events.Event) (bool, error) {
	existing, err := im.events.ListByGuild(ctx, event.GuildID)
	if err != nil {
		return false, fmt.Errorf("failed to list events: %w", err)
	}
	return slices.ContainsFunc(existing, func(e *events.Event) bool {
		return e.Name == event.Name && e.OrganizerID == event.OrganizerID
	}), nil
}

func (im *Importer) save(ctx context.Context, event *events.Event, responses overlap.Responses) error {
	if err := im.events.Create(ctx, event); err != nil {
		return err
	}
	for _, userID := range responses.Users() {
		if err := im.responses.Replace(ctx, event.ID, userID, responses[userID]); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) logStats(stats Stats) {
	slog.Info("Legacy import finished",
		slog.String("type", "db"),
		slog.String("kind", stats.Kind),
		slog.Int("processed", stats.Processed),
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("issues", len(stats.Issues)),
		slog.Bool("dry_run", im.dryRun),
	)
}

// decode reads relaxed Extended JSON, which plain JSON files satisfy.
func decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}
	if err := bson.UnmarshalExtJSON(data, false, v); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
