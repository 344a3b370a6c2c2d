package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/huddle/config"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/wizard"
	"github.com/huddle-bot/huddle/internal/gateways/memory"
	"github.com/huddle-bot/huddle/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes_AllRegistered(t *testing.T) {
	registry := commands.NewRegistry()
	scheduler.New(scheduler.Options{
		Wizard: wizard.NewManager(time.Minute, clock.NewSystem()),
		Guilds: guilds.NewService(memory.NewGuildSettingsRepository(), clock.NewSystem()),
	}).Register(registry)
	names := registry.Names()

	for _, r := range routes() {
		assert.Contains(t, names, r.Name, "/%s %s", r.Command, r.Sub)
	}
	for _, id := range []string{scheduler.WizardModalID, scheduler.WizardConfirmID, scheduler.WizardAbortID} {
		assert.Contains(t, names, commandName(id))
	}
}

func TestRoutes_Names(t *testing.T) {
	byName := make(map[string]route)
	for _, r := range routes() {
		byName[r.Name] = r
	}

	assert.Equal(t, route{Command: "event", Sub: "wizard", Name: "wizard.start"}, byName["wizard.start"])
	assert.True(t, byName["event.info"].Autocomplete)
	assert.True(t, byName["timezone.set"].Autocomplete)
	assert.False(t, byName["event.create"].Autocomplete)
	assert.False(t, byName["premium.set"].Autocomplete)
	assert.Equal(t, route{Command: "settings", Sub: "role-add", Name: "settings.role-add"}, byName["settings.role-add"])
}

type decodeTarget struct {
	Name  string       `option:"name"`
	Slot  int          `option:"slot"`
	Open  bool         `option:"open"`
	Role  snowflake.ID `option:"role"`
	Skip  string       `option:"-"`
	Plain string
}

func TestDecoder(t *testing.T) {
	values := map[string]string{"name": "  Raid  ", "slot": "3", "open": "true", "role": "555", "Plain": "x"}
	opts := textOptions(func(id string) (string, bool) {
		v, ok := values[id]
		return v, ok
	})

	var got decodeTarget
	require.NoError(t, decoder(opts)(&got))
	assert.Equal(t, decodeTarget{Name: "Raid", Slot: 3, Open: true, Role: 555}, got)
}

func TestDecoder_MissingAndMalformed(t *testing.T) {
	values := map[string]string{"slot": "three", "open": "maybe", "role": "@everyone"}
	opts := textOptions(func(id string) (string, bool) {
		v, ok := values[id]
		return v, ok
	})

	var got decodeTarget
	require.NoError(t, decoder(opts)(&got))
	assert.Zero(t, got)
}

func TestDecoder_RejectsBadTargets(t *testing.T) {
	opts := textOptions(func(string) (string, bool) { return "", false })

	assert.Error(t, decoder(opts)(decodeTarget{}))

	var unsupported struct {
		When time.Time `option:"when"`
	}
	assert.Error(t, decoder(opts)(&unsupported))
}

func TestControlIDs(t *testing.T) {
	assert.Equal(t, "/wizard/confirm", customID("wizard:confirm"))
	assert.Equal(t, "wizard.confirm", commandName("wizard:confirm"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ääää…", truncate("ääääää", 5))
}

func TestMessageCreate(t *testing.T) {
	res := commands.Result{
		Title:     "Raid",
		Body:      "Best time",
		Tone:      commands.ToneSuccess,
		Ephemeral: true,
		Fields:    []commands.Field{{Name: "Slot 1", Value: "3 available", Inline: true}},
		Attachments: []commands.Attachment{
			{Name: "heatmap.png", ContentType: "image/png", Data: []byte{1, 2, 3}},
		},
		ImageName: "heatmap.png",
		Components: []commands.Component{
			{ID: "a:1"}, {ID: "a:2"}, {ID: "a:3"}, {ID: "a:4"}, {ID: "a:5"}, {ID: "a:6"},
		},
	}

	msg := messageCreate(res)
	require.Len(t, msg.Embeds, 1)
	embed := msg.Embeds[0]
	assert.Equal(t, "Raid", embed.Title)
	assert.Equal(t, config.SuccessColor, embed.Color)
	require.Len(t, embed.Fields, 1)
	require.NotNil(t, embed.Fields[0].Inline)
	assert.True(t, *embed.Fields[0].Inline)
	require.NotNil(t, embed.Image)
	assert.Equal(t, "attachment://heatmap.png", embed.Image.URL)
	require.Len(t, msg.Files, 1)
	assert.Equal(t, "heatmap.png", msg.Files[0].Name)
	assert.Len(t, msg.Components, 2)
	assert.True(t, msg.Flags.Has(discord.MessageFlagEphemeral))
}

func TestMessageCreate_Limits(t *testing.T) {
	fields := make([]commands.Field, 30)
	for i := range fields {
		fields[i] = commands.Field{Name: "n", Value: "v"}
	}

	msg := messageCreate(commands.Result{Title: "x", Fields: fields})
	assert.Len(t, msg.Embeds[0].Fields, config.MaxEmbedFields)
	assert.False(t, msg.Flags.Has(discord.MessageFlagEphemeral))
	assert.Empty(t, msg.Components)
	assert.Nil(t, msg.Embeds[0].Image)
}

func TestMessageUpdate_ClearsControls(t *testing.T) {
	update := messageUpdate(commands.Result{Title: "Done"})
	require.NotNil(t, update.Components)
	assert.Empty(t, *update.Components)
	require.NotNil(t, update.Embeds)
	assert.Equal(t, "Done", (*update.Embeds)[0].Title)
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		kind  errs.Kind
		color int
	}{
		{errs.KindInternal, config.ErrorColor},
		{errs.KindPermission, config.ErrorColor},
		{errs.KindValidation, config.WarningColor},
		{errs.KindQuota, config.WarningColor},
		{errs.KindStateConflict, config.WarningColor},
		{errs.KindNotFound, config.WarningColor},
		{errs.KindPremium, config.InfoColor},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			msg := failureMessage(commands.Failure{Kind: tt.kind, Message: "nope"})
			assert.Equal(t, tt.color, msg.Embeds[0].Color)
			assert.Equal(t, "nope", msg.Embeds[0].Description)
			assert.True(t, msg.Flags.Has(discord.MessageFlagEphemeral))
		})
	}
}

func TestModalCreate(t *testing.T) {
	modal := modalCreate(&commands.Modal{
		ID:    "wizard:details",
		Title: "New event",
		Inputs: []commands.Input{
			{ID: "name", Label: "Name", Required: true},
			{ID: "slots", Label: "Times", Paragraph: true},
		},
	})

	assert.Equal(t, "/wizard/details", modal.CustomID)
	assert.Equal(t, "New event", modal.Title)
	assert.Len(t, modal.Components, 2)
}

func TestPageFunc(t *testing.T) {
	pages := []commands.Page{
		{Title: "Events 1/2", Description: "first"},
		{Title: "Events 2/2", Description: "second", Fields: []commands.Field{{Name: "a", Value: "b"}}},
	}
	render := pageFunc(pages, commands.ToneInfo)

	embed := discord.NewEmbedBuilder()
	render(1, embed)
	built := embed.Build()
	assert.Equal(t, "Events 2/2", built.Title)
	assert.Len(t, built.Fields, 1)

	embed = discord.NewEmbedBuilder()
	render(7, embed)
	assert.Equal(t, "Events 2/2", embed.Build().Title)
}

type settingsFunc func(ctx context.Context, guildID snowflake.ID) (guilds.Settings, error)

func (f settingsFunc) Get(ctx context.Context, guildID snowflake.ID) (guilds.Settings, error) {
	return f(ctx, guildID)
}

func TestInvocation(t *testing.T) {
	guildID := snowflake.ID(10)
	user := discord.User{ID: 1, Username: "ada"}
	settings := guilds.Settings{GuildID: guildID, OrganizerRoles: []snowflake.ID{7}}
	rt := NewRouter(nil, nil, settingsFunc(func(context.Context, snowflake.ID) (guilds.Settings, error) {
		return settings, nil
	}), nil)

	_, ok := rt.invocation(user, nil, nil, 5)
	assert.False(t, ok)

	c, ok := rt.invocation(user, &discord.ResolvedMember{Permissions: discord.PermissionManageGuild}, &guildID, 5)
	require.True(t, ok)
	assert.Equal(t, commands.Context{GuildID: 10, UserID: 1, UserName: "ada", Level: guilds.LevelAdmin, ConversationID: "5"}, c)

	tests := []struct {
		name   string
		member *discord.ResolvedMember
		want   guilds.Level
	}{
		{name: "organizer role", member: &discord.ResolvedMember{Member: discord.Member{RoleIDs: []snowflake.ID{7}}}, want: guilds.LevelOrganizer},
		{name: "no role", member: &discord.ResolvedMember{Permissions: discord.PermissionSendMessages}, want: guilds.LevelAttendee},
		{name: "no member", want: guilds.LevelAttendee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := rt.invocation(user, tt.member, &guildID, 5)
			require.True(t, ok)
			assert.Equal(t, tt.want, c.Level)
		})
	}
}

func TestInvocation_SettingsFallback(t *testing.T) {
	guildID := snowflake.ID(10)
	rt := NewRouter(nil, nil, settingsFunc(func(context.Context, snowflake.ID) (guilds.Settings, error) {
		return guilds.Settings{}, errors.New("database down")
	}), nil)

	c, ok := rt.invocation(discord.User{ID: 1}, nil, &guildID, 5)
	require.True(t, ok)
	assert.Equal(t, guildID, c.GuildID)
	assert.Equal(t, guilds.LevelOrganizer, c.Level)
	assert.True(t, c.Use24Hour)
}

func TestEventChoices(t *testing.T) {
	found := make([]*events.Event, 30)
	for i := range found {
		found[i] = &events.Event{ID: snowflake.ID(i + 1), Name: "Raid", Status: events.StatusOpen}
	}

	choices := eventChoices(found)
	require.Len(t, choices, config.MaxAutocompleteChoices)
	assert.Equal(t, discord.AutocompleteChoiceString{Name: "Raid (open)", Value: "1"}, choices[0])
}

func TestZoneChoices(t *testing.T) {
	var zones []string
	for _, c := range zoneChoices("berlin") {
		zones = append(zones, c.(discord.AutocompleteChoiceString).Value)
	}
	assert.Contains(t, zones, "Europe/Berlin")
	assert.Len(t, zoneChoices(""), config.MaxAutocompleteChoices)
}
