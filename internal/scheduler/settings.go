package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
)

const settingsAction = "change server settings"

type roleInput struct {
	Kind string       `option:"kind" validate:"required,oneof=admin organizer attendee"`
	Role snowflake.ID `option:"role" validate:"required"`
}

type bulletinInput struct {
	Channel snowflake.ID `option:"channel"`
}

type timeFormatInput struct {
	Clock string `option:"clock" validate:"required,oneof=12h 24h"`
}

func (h *Handlers) showSettings(ctx context.Context, c commands.Context, _ struct{}) (commands.Result, error) {
	settings, err := h.guilds.Get(ctx, c.GuildID)
	if err != nil {
		return commands.Result{}, err
	}
	return settingsCard(settings, "Server settings", commands.ToneInfo), nil
}

func (h *Handlers) addRole(ctx context.Context, c commands.Context, in roleInput) (commands.Result, error) {
	kind, err := h.settingsRole(c, in)
	if err != nil {
		return commands.Result{}, err
	}
	settings, err := h.guilds.AddRole(ctx, c.GuildID, kind, in.Role)
	if err != nil {
		return commands.Result{}, err
	}
	return settingsCard(settings, "Role added", commands.ToneSuccess), nil
}

func (h *Handlers) removeRole(ctx context.Context, c commands.Context, in roleInput) (commands.Result, error) {
	kind, err := h.settingsRole(c, in)
	if err != nil {
		return commands.Result{}, err
	}
	settings, err := h.guilds.RemoveRole(ctx, c.GuildID, kind, in.Role)
	if err != nil {
		return commands.Result{}, err
	}
	return settingsCard(settings, "Role removed", commands.ToneSuccess), nil
}

func (h *Handlers) settingsRole(c commands.Context, in roleInput) (guilds.RoleKind, error) {
	if err := guilds.Require(c.Level, guilds.LevelAdmin, settingsAction); err != nil {
		return "", err
	}
	kind, ok := guilds.ParseRoleKind(in.Kind)
	if !ok {
		return "", errs.Validation("kind", "unknown role kind %q", in.Kind)
	}
	return kind, nil
}

func (h *Handlers) setBulletin(ctx context.Context, c commands.Context, in bulletinInput) (commands.Result, error) {
	if err := guilds.Require(c.Level, guilds.LevelAdmin, settingsAction); err != nil {
		return commands.Result{}, err
	}
	settings, err := h.guilds.SetBulletinChannel(ctx, c.GuildID, in.Channel)
	if err != nil {
		return commands.Result{}, err
	}
	title := "Bulletins turned off"
	if in.Channel != 0 {
		title = "Bulletin channel set"
	}
	return settingsCard(settings, title, commands.ToneSuccess), nil
}

func (h *Handlers) setTimeFormat(ctx context.Context, c commands.Context, in timeFormatInput) (commands.Result, error) {
	if err := guilds.Require(c.Level, guilds.LevelAdmin, settingsAction); err != nil {
		return commands.Result{}, err
	}
	settings, err := h.guilds.SetTimeFormat(ctx, c.GuildID, in.Clock == "24h")
	if err != nil {
		return commands.Result{}, err
	}
	return settingsCard(settings, "Time format saved", commands.ToneSuccess), nil
}

func settingsCard(s guilds.Settings, title string, tone commands.Tone) commands.Result {
	bulletin := "off"
	if s.BulletinChannelID != 0 {
		bulletin = "<#" + s.BulletinChannelID.String() + ">"
	}
	clock := "24 hour"
	if !s.Use24Hour {
		clock = "12 hour"
	}
	return commands.Result{
		Title: title,
		Tone:  tone,
		Fields: []commands.Field{
			{Name: "Admin roles", Value: roleList(s.AdminRoles, "Discord admins only")},
			{Name: "Organizer roles", Value: roleList(s.OrganizerRoles, "everyone")},
			{Name: "Attendee roles", Value: roleList(s.AttendeeRoles, "everyone")},
			{Name: "Bulletins", Value: bulletin, Inline: true},
			{Name: "Clock", Value: clock, Inline: true},
		},
		Ephemeral: true,
	}
}

func roleList(ids []snowflake.ID, empty string) string {
	if len(ids) == 0 {
		return empty
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = fmt.Sprintf("<@&%s>", id)
	}
	return strings.Join(mentions, " ")
}
