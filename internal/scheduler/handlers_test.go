package scheduler

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/calendar"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/availability"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/domain/wizard"
	"github.com/huddle-bot/huddle/internal/gateways/memory"
	"github.com/huddle-bot/huddle/internal/scheduler/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const guildID = snowflake.ID(500)

var (
	organizer = commands.Context{GuildID: guildID, UserID: 1, UserName: "org", Level: guilds.LevelOrganizer, ConversationID: "chan", Use24Hour: true}
	alice     = commands.Context{GuildID: guildID, UserID: 10, UserName: "alice", Level: guilds.LevelAttendee, ConversationID: "chan", Use24Hour: true}
	bob       = commands.Context{GuildID: guildID, UserID: 20, UserName: "bob", Level: guilds.LevelAttendee, ConversationID: "chan", Use24Hour: true}
	carol     = commands.Context{GuildID: guildID, UserID: 30, UserName: "carol", Level: guilds.LevelAttendee, ConversationID: "chan", Use24Hour: true}
	admin     = commands.Context{GuildID: guildID, UserID: 99, UserName: "admin", Level: guilds.LevelAdmin, Use24Hour: true}
)

type fixture struct {
	registry *commands.Registry
	events   *events.Manager
	guilds   *guilds.Service
	clock    *clock.Manual
	renderer *mock.MockRenderer
	uploader *mock.MockUploader
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	normalizer, err := timezone.NewNormalizer(16)
	require.NoError(t, err)

	clk := clock.NewManual(time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC))
	locks := events.NewLocks()
	eventRepo, responses := memory.NewEventStore()
	store := availability.NewService(responses, eventRepo, locks)
	gate := entitlements.NewService(memory.NewSubscriptionRepository(), clk, entitlements.Config{FreeQuota: 2, PremiumQuota: 50})
	manager := events.NewManager(eventRepo, store, gate, nil, normalizer, locks, clk, events.DefaultConfig())
	settings := guilds.NewService(memory.NewGuildSettingsRepository(), clk)

	f := &fixture{
		registry: commands.NewRegistry(),
		events:   manager,
		guilds:   settings,
		clock:    clk,
		renderer: mock.NewMockRenderer(ctrl),
		uploader: mock.NewMockUploader(ctrl),
	}
	New(Options{
		Events:       manager,
		Availability: store,
		Preferences:  timezone.NewPreferences(memory.NewTimezoneRepository(), normalizer),
		Normalizer:   normalizer,
		Entitlements: gate,
		Guilds:       settings,
		Wizard:       wizard.NewManager(10*time.Minute, clk),
		Exporter:     calendar.NewExporter("test.local"),
		Clock:        clk,
		Renderer:     f.renderer,
		Uploader:     f.uploader,
		ListPageSize: pageSize,
	}).Register(f.registry)
	return f
}

// run dispatches name with in copied into the handler's input.
func (f *fixture) run(name string, c commands.Context, in any) (commands.Result, error) {
	var decode commands.Decoder
	if in != nil {
		decode = func(target any) error {
			reflect.ValueOf(target).Elem().Set(reflect.ValueOf(in))
			return nil
		}
	}
	return f.registry.Dispatch(context.Background(), name, c, decode)
}

func (f *fixture) mustRun(t *testing.T, name string, c commands.Context, in any) commands.Result {
	t.Helper()
	result, err := f.run(name, c, in)
	require.NoError(t, err)
	return result
}

func (f *fixture) newEvent(t *testing.T, name string) *events.Event {
	t.Helper()
	f.mustRun(t, "timezone.set", organizer, timezoneInput{Zone: "America/New_York"})
	f.mustRun(t, "event.create", organizer, createInput{
		Name:     name,
		Slots:    "2025-03-10 18:00; 2025-03-11 18:00\n2025-03-12 18:00",
		Duration: 90,
		Open:     true,
	})

	list, err := f.events.Search(context.Background(), guildID, name, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestRegister_BindsEveryCommand(t *testing.T) {
	names := newFixture(t, 0).registry.Names()
	for _, name := range []string{
		"event.create", "event.recurring", "event.open", "event.add-slots", "event.remove-slot",
		"event.edit", "event.finalize", "event.cancel", "event.delete", "event.info", "event.list",
		"event.export", "availability.set", "availability.clear", "availability.mine",
		"timezone.set", "timezone.show", "premium.status", "premium.set",
		"settings.show", "settings.role-add", "settings.role-remove", "settings.bulletin", "settings.time-format",
		"wizard.start", "wizard.details", "wizard.confirm", "wizard.abort",
	} {
		assert.Contains(t, names, name)
	}
}

func TestCreate_NeedsTimezone(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.run("event.create", organizer, createInput{Name: "Raid", Slots: "2025-03-10 18:00"})

	assert.ErrorIs(t, err, timezone.ErrNotSet)
	assert.Equal(t, errs.KindValidation, commands.Classify(err).Kind)
}

func TestCreate_ConvertsFromOrganizerZone(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")

	require.Len(t, event.Slots, 3)
	assert.Equal(t, time.Date(2025, time.March, 10, 22, 0, 0, 0, time.UTC), event.Slots[0].Start.UTC())
	assert.Equal(t, 90*time.Minute, event.Slots[0].Duration)

	info := f.mustRun(t, "event.info", alice, eventInput{Event: event.ID.String()})
	assert.Equal(t, "Raid", info.Title)
	assert.Contains(t, fieldValue(info, "Best times"), "<t:1741644000:F>")
}

func TestAvailabilityAndFinalize(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")
	id := event.ID.String()

	f.mustRun(t, "availability.set", bob, setAvailabilityInput{Event: id, Slots: "1"})
	f.mustRun(t, "availability.set", alice, setAvailabilityInput{Event: id, Slots: "#1, 2-3"})
	saved := f.mustRun(t, "availability.set", carol, setAvailabilityInput{Event: id, Slots: "3"})
	assert.True(t, saved.Ephemeral)
	assert.Contains(t, fieldValue(saved, "Current best time"), "2/3")

	mine := f.mustRun(t, "availability.mine", alice, eventInput{Event: id})
	assert.Equal(t, "You can make #1, #2, #3.", mine.Body)

	_, err := f.run("event.finalize", alice, slotInput{Event: id})
	assert.Equal(t, errs.KindPermission, commands.Classify(err).Kind)

	done := f.mustRun(t, "event.finalize", organizer, slotInput{Event: id})
	assert.Equal(t, "Event finalized", done.Title)

	closed, err := f.events.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, events.StatusClosed, closed.Status)
	assert.EqualValues(t, 1, closed.FinalSlotID, "ties keep the first proposed slot")

	_, err = f.run("availability.set", bob, setAvailabilityInput{Event: id, Slots: "2"})
	assert.Equal(t, errs.KindStateConflict, commands.Classify(err).Kind)
}

func TestAvailability_EmptySelectionCounts(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")

	saved := f.mustRun(t, "availability.set", bob, setAvailabilityInput{Event: event.ID.String(), Slots: "none"})
	assert.Contains(t, saved.Body, "none of the times")

	info := f.mustRun(t, "event.info", bob, eventInput{Event: event.ID.String()})
	assert.Equal(t, "1", fieldValue(info, "Responses"))

	f.mustRun(t, "availability.clear", bob, eventInput{Event: event.ID.String()})
	info = f.mustRun(t, "event.info", bob, eventInput{Event: event.ID.String()})
	assert.Equal(t, "0", fieldValue(info, "Responses"))
}

func TestEvents_HiddenFromOtherGuilds(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")

	stranger := commands.Context{GuildID: 777, UserID: 5}
	_, err := f.run("event.info", stranger, eventInput{Event: event.ID.String()})
	assert.Equal(t, errs.KindNotFound, commands.Classify(err).Kind)

	_, err = f.run("event.info", stranger, eventInput{Event: "not-an-id"})
	assert.Equal(t, errs.KindValidation, commands.Classify(err).Kind)
}

func TestEventList_Paginates(t *testing.T) {
	f := newFixture(t, 1)
	f.newEvent(t, "Raid")
	f.newEvent(t, "Picnic")

	list := f.mustRun(t, "event.list", alice, listInput{})
	require.Len(t, list.Pages, 2)
	assert.Equal(t, "Showing 1-1 of 2", list.Pages[0].Description)

	empty := f.mustRun(t, "event.list", alice, listInput{Status: "closed"})
	assert.Equal(t, "No events", empty.Title)

	_, err := f.run("event.list", alice, listInput{Status: "someday"})
	assert.Equal(t, errs.KindValidation, commands.Classify(err).Kind)
}

func TestQuota_ReportedAsQuotaError(t *testing.T) {
	f := newFixture(t, 0)
	f.newEvent(t, "Raid")
	f.newEvent(t, "Picnic")

	_, err := f.run("event.create", organizer, createInput{Name: "Third", Slots: "2025-03-10 18:00"})
	failure := commands.Classify(err)
	assert.Equal(t, errs.KindQuota, failure.Kind)
	assert.Contains(t, failure.Message, "2 of 2")
}

func TestExport_AttachesAndUploads(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")

	f.uploader.EXPECT().
		Upload(gomock.Any(), "calendars/"+calendar.FileName(event), calendar.ContentType, gomock.Any()).
		Return("https://cdn.example/raid.ics", nil)

	result := f.mustRun(t, "event.export", alice, eventInput{Event: event.ID.String()})
	require.Len(t, result.Attachments, 1)
	assert.Contains(t, string(result.Attachments[0].Data), "BEGIN:VCALENDAR")
	assert.Contains(t, result.Body, "https://cdn.example/raid.ics")
}

func TestExport_UploadFailureKeepsAttachment(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")

	f.uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("bucket gone"))

	result := f.mustRun(t, "event.export", alice, eventInput{Event: event.ID.String()})
	assert.Len(t, result.Attachments, 1)
	assert.NotContains(t, result.Body, "Subscribe link")
}

func TestInfo_HeatmapForPremiumOnly(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")
	id := event.ID.String()
	f.mustRun(t, "availability.set", bob, setAvailabilityInput{Event: id, Slots: "1"})

	free := f.mustRun(t, "event.info", bob, eventInput{Event: id})
	assert.Empty(t, free.Attachments)

	f.mustRun(t, "premium.set", admin, premiumInput{Tier: "monthly", Days: 30})
	f.renderer.EXPECT().Render(gomock.Any(), gomock.Any(), time.UTC).Return([]byte("png"), nil)

	premium := f.mustRun(t, "event.info", bob, eventInput{Event: id})
	require.Len(t, premium.Attachments, 1)
	assert.Equal(t, "heatmap.png", premium.ImageName)
}

func TestPremium_AdminOnly(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.run("premium.set", alice, premiumInput{Tier: "yearly"})
	assert.Equal(t, errs.KindPermission, commands.Classify(err).Kind)

	f.mustRun(t, "premium.set", admin, premiumInput{Tier: "yearly", Days: 365})
	status := f.mustRun(t, "premium.status", alice, nil)
	assert.Equal(t, commands.ToneSuccess, status.Tone)
	assert.Equal(t, "0 of 50", fieldValue(status, "Active events"))
}

func TestRecurring_RequiresPremium(t *testing.T) {
	f := newFixture(t, 0)
	f.mustRun(t, "timezone.set", organizer, timezoneInput{Zone: "Europe/Berlin"})
	in := recurringInput{Name: "Weekly sync", First: "2025-03-20 19:00", Rule: "FREQ=WEEKLY;COUNT=3"}

	_, err := f.run("event.recurring", organizer, in)
	assert.Equal(t, errs.KindPremium, commands.Classify(err).Kind)

	f.mustRun(t, "premium.set", admin, premiumInput{Tier: "monthly"})
	result := f.mustRun(t, "event.recurring", organizer, in)
	assert.Equal(t, "`FREQ=WEEKLY;COUNT=3`", fieldValue(result, "Repeats"))
	assert.Contains(t, fieldValue(result, "Times"), "`#3`")
}

func TestWizard_Flow(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.run("wizard.start", organizer, nil)
	require.ErrorIs(t, err, timezone.ErrNotSet)

	f.mustRun(t, "timezone.set", organizer, timezoneInput{Zone: "Asia/Tokyo"})
	start := f.mustRun(t, "wizard.start", organizer, nil)
	require.NotNil(t, start.Modal)
	assert.Equal(t, WizardModalID, start.Modal.ID)

	preview := f.mustRun(t, "wizard.details", organizer, wizardDetailsInput{
		Name:     "Movie night",
		Slots:    "2025-04-01 20:00\n2025-04-02 20:00",
		Duration: "120",
	})
	assert.Len(t, preview.Fields, 2)
	require.Len(t, preview.Components, 2)
	assert.Equal(t, WizardConfirmID, preview.Components[0].ID)

	created := f.mustRun(t, "wizard.confirm", organizer, nil)
	assert.Equal(t, "Event created", created.Title)

	list, err := f.events.List(context.Background(), guildID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, events.StatusOpen, list[0].Status)
	assert.Equal(t, time.Date(2025, time.April, 1, 11, 0, 0, 0, time.UTC), list[0].Slots[0].Start.UTC())

	_, err = f.run("wizard.confirm", organizer, nil)
	assert.ErrorIs(t, err, wizard.ErrNoSession)
}

func TestWizard_Abort(t *testing.T) {
	f := newFixture(t, 0)
	f.mustRun(t, "timezone.set", organizer, timezoneInput{Zone: "UTC"})
	f.mustRun(t, "wizard.start", organizer, nil)

	aborted := f.mustRun(t, "wizard.abort", organizer, nil)
	assert.Equal(t, "Event discarded", aborted.Title)

	_, err := f.run("wizard.details", organizer, wizardDetailsInput{Name: "x", Slots: "2025-04-01 20:00"})
	assert.ErrorIs(t, err, wizard.ErrNoSession)
}

func TestWizard_ConfirmKeepsDraftWhenQuotaFull(t *testing.T) {
	f := newFixture(t, 0)
	raid := f.newEvent(t, "Raid")
	f.newEvent(t, "Picnic")

	f.mustRun(t, "wizard.start", organizer, nil)
	f.mustRun(t, "wizard.details", organizer, wizardDetailsInput{Name: "Movie night", Slots: "2025-04-01 20:00"})

	_, err := f.run("wizard.confirm", organizer, nil)
	require.Equal(t, errs.KindQuota, commands.Classify(err).Kind)

	f.mustRun(t, "event.cancel", organizer, eventInput{Event: raid.ID.String()})

	created := f.mustRun(t, "wizard.confirm", organizer, nil)
	assert.Equal(t, "Event created", created.Title)
	list, err := f.events.Search(context.Background(), guildID, "Movie night", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.run("wizard.confirm", organizer, nil)
	assert.ErrorIs(t, err, wizard.ErrNoSession)
}

func TestWizard_DetailsRejectSkippedTimes(t *testing.T) {
	f := newFixture(t, 0)
	f.mustRun(t, "timezone.set", organizer, timezoneInput{Zone: "America/New_York"})
	f.mustRun(t, "wizard.start", organizer, nil)

	_, err := f.run("wizard.details", organizer, wizardDetailsInput{Name: "Raid", Slots: "2025-03-09 02:30"})

	var skipped *timezone.NonexistentLocalTimeError
	require.ErrorAs(t, err, &skipped)
	assert.Equal(t, errs.KindValidation, commands.Classify(err).Kind)

	preview := f.mustRun(t, "wizard.details", organizer, wizardDetailsInput{Name: "Raid", Slots: "2025-11-02 01:30"})
	assert.Len(t, preview.Fields, 1, "repeated times are accepted")
}

func TestLevels_GateCommands(t *testing.T) {
	f := newFixture(t, 0)
	event := f.newEvent(t, "Raid")
	f.mustRun(t, "timezone.set", alice, timezoneInput{Zone: "UTC"})
	outsider := commands.Context{GuildID: guildID, UserID: 40, Level: guilds.LevelNone}

	tests := []struct {
		name string
		cmd  string
		c    commands.Context
		in   any
	}{
		{name: "attendee creates", cmd: "event.create", c: alice, in: createInput{Name: "Mine", Slots: "2025-03-10 18:00"}},
		{name: "attendee starts wizard", cmd: "wizard.start", c: alice},
		{name: "outsider answers", cmd: "availability.set", c: outsider, in: setAvailabilityInput{Event: event.ID.String(), Slots: "1"}},
		{name: "outsider withdraws", cmd: "availability.clear", c: outsider, in: eventInput{Event: event.ID.String()}},
		{name: "organizer adds role", cmd: "settings.role-add", c: organizer, in: roleInput{Kind: "organizer", Role: 5}},
		{name: "organizer sets bulletin", cmd: "settings.bulletin", c: organizer, in: bulletinInput{Channel: 6}},
		{name: "organizer sets clock", cmd: "settings.time-format", c: organizer, in: timeFormatInput{Clock: "12h"}},
		{name: "organizer sets premium", cmd: "premium.set", c: organizer, in: premiumInput{Tier: "monthly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(tt.cmd, tt.c, tt.in)

			var level *guilds.LevelError
			require.ErrorAs(t, err, &level)
			assert.Equal(t, errs.KindPermission, commands.Classify(err).Kind)
		})
	}
}

func TestSettings_Manage(t *testing.T) {
	f := newFixture(t, 0)

	added := f.mustRun(t, "settings.role-add", admin, roleInput{Kind: "organizer", Role: 555})
	assert.Equal(t, "<@&555>", fieldValue(added, "Organizer roles"))
	assert.Equal(t, "everyone", fieldValue(added, "Attendee roles"))

	bulletin := f.mustRun(t, "settings.bulletin", admin, bulletinInput{Channel: 777})
	assert.Equal(t, "<#777>", fieldValue(bulletin, "Bulletins"))

	format := f.mustRun(t, "settings.time-format", admin, timeFormatInput{Clock: "12h"})
	assert.Equal(t, "12 hour", fieldValue(format, "Clock"))

	stored, err := f.guilds.Get(context.Background(), guildID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{555}, stored.OrganizerRoles)
	assert.EqualValues(t, 777, stored.BulletinChannelID)
	assert.False(t, stored.Use24Hour)

	_, err = f.run("settings.role-remove", admin, roleInput{Kind: "admin", Role: 555})
	assert.Equal(t, errs.KindNotFound, commands.Classify(err).Kind)

	removed := f.mustRun(t, "settings.role-remove", admin, roleInput{Kind: "organizer", Role: 555})
	assert.Equal(t, "everyone", fieldValue(removed, "Organizer roles"))

	off := f.mustRun(t, "settings.bulletin", admin, bulletinInput{})
	assert.Equal(t, "Bulletins turned off", off.Title)

	shown := f.mustRun(t, "settings.show", alice, nil)
	assert.Equal(t, "off", fieldValue(shown, "Bulletins"))
}

func TestTimezone_FollowsGuildClock(t *testing.T) {
	f := newFixture(t, 0)
	twelve := alice
	twelve.Use24Hour = false

	saved := f.mustRun(t, "timezone.set", alice, timezoneInput{Zone: "UTC"})
	assert.Contains(t, saved.Body, "2025-03-01 12:00.")

	shown := f.mustRun(t, "timezone.show", twelve, nil)
	assert.Contains(t, shown.Body, "2025-03-01 12:00PM")
}

func fieldValue(r commands.Result, name string) string {
	for _, field := range r.Fields {
		if field.Name == name {
			return field.Value
		}
	}
	return ""
}
