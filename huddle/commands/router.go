// Package commands exposes the scheduling commands as Discord slash
// commands, buttons and modals.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/huddle/config"
	"github.com/huddle-bot/huddle/huddle/handlers"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/scheduler"
)

// deferred commands may outlast the three second response window, so the
// reply is deferred and sent as a followup.
var deferred = map[string]bool{
	"event.info":   true,
	"event.export": true,
}

// autocompleteStatuses narrows event suggestions to events the command can
// act on. Commands not listed suggest every event.
var autocompleteStatuses = map[string][]events.Status{
	"event.open":         {events.StatusDraft},
	"event.add-slots":    {events.StatusDraft, events.StatusOpen},
	"event.remove-slot":  {events.StatusDraft, events.StatusOpen},
	"event.edit":         {events.StatusDraft, events.StatusOpen},
	"event.finalize":     {events.StatusOpen},
	"event.cancel":       {events.StatusDraft, events.StatusOpen},
	"availability.set":   {events.StatusOpen},
	"availability.clear": {events.StatusOpen},
}

// EventSearcher finds events of a guild by name for autocomplete.
type EventSearcher interface {
	Search(ctx context.Context, guildID snowflake.ID, query string, limit int, statuses ...events.Status) ([]*events.Event, error)
}

// SettingsSource returns a guild's role and display settings.
type SettingsSource interface {
	Get(ctx context.Context, guildID snowflake.ID) (guilds.Settings, error)
}

type Router struct {
	registry  *commands.Registry
	events    EventSearcher
	settings  SettingsSource
	paginator *paginator.Manager
}

func NewRouter(registry *commands.Registry, searcher EventSearcher, settings SettingsSource, pages *paginator.Manager) *Router {
	return &Router{
		registry:  registry,
		events:    searcher,
		settings:  settings,
		paginator: pages,
	}
}

// Register binds every slash subcommand, button and modal to r.
func (rt *Router) Register(r handler.Router) {
	grouped := make(map[string][]route)
	var order []string
	for _, rr := range routes() {
		if _, ok := grouped[rr.Command]; !ok {
			order = append(order, rr.Command)
		}
		grouped[rr.Command] = append(grouped[rr.Command], rr)
	}

	for _, name := range order {
		subs := grouped[name]
		r.Route("/"+name, func(r handler.Router) {
			for _, rr := range subs {
				r.Command("/"+rr.Sub, handlers.WrapWithLogging(rr.Name, rt.command(rr.Name)))
				if rr.Autocomplete {
					r.Autocomplete("/"+rr.Sub, rt.autocomplete(rr.Name))
				}
			}
		})
	}

	r.Modal(customID(scheduler.WizardModalID), handlers.WrapModalWithLogging(commandName(scheduler.WizardModalID), rt.modal(commandName(scheduler.WizardModalID))))
	for _, id := range []string{scheduler.WizardConfirmID, scheduler.WizardAbortID} {
		r.Component(customID(id), handlers.WrapComponentWithLogging(commandName(id), rt.component(commandName(id))))
	}
}

// invocation builds the command context of an interaction. Interactions
// outside guilds are rejected. Settings that fail to load fall back to the
// defaults.
func (rt *Router) invocation(user discord.User, member *discord.ResolvedMember, guildID *snowflake.ID, channelID snowflake.ID) (commands.Context, bool) {
	if guildID == nil {
		return commands.Context{}, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.AutocompleteTimeout)
	defer cancel()

	settings, err := rt.settings.Get(ctx, *guildID)
	if err != nil {
		slog.Error("Failed to load guild settings",
			slog.String("type", "error"),
			slog.String("guild_id", guildID.String()),
			slog.Any("error", err),
		)
		settings = guilds.Defaults(*guildID)
	}
	return memberContext(user, member, settings, channelID), true
}

func memberContext(user discord.User, member *discord.ResolvedMember, settings guilds.Settings, channelID snowflake.ID) commands.Context {
	c := commands.Context{
		GuildID:        settings.GuildID,
		UserID:         user.ID,
		UserName:       user.Username,
		ConversationID: channelID.String(),
		Use24Hour:      settings.Use24Hour,
	}
	if member != nil {
		discordAdmin := member.Permissions.Has(discord.PermissionAdministrator) ||
			member.Permissions.Has(discord.PermissionManageGuild)
		c.Level = settings.LevelOf(member.RoleIDs, discordAdmin)
	} else {
		c.Level = settings.LevelOf(nil, false)
	}
	return c
}

// dispatch runs name and converts a classified error into a reply. The
// error is returned as well when it is internal so the wrapper records it.
func (rt *Router) dispatch(name string, c commands.Context, opts options) (commands.Result, *discord.MessageCreate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), handlers.Timeout)
	defer cancel()

	res, err := rt.registry.Dispatch(ctx, name, c, decoder(opts))
	if err == nil {
		return res, nil, nil
	}

	failure := commands.Classify(err)
	msg := failureMessage(failure)
	if failure.Kind == errs.KindInternal {
		return res, &msg, fmt.Errorf("%s: %w", name, err)
	}
	slog.Debug("Command rejected",
		slog.String("type", "cmd"),
		slog.String("name", name),
		slog.String("kind", failure.Kind.String()),
		slog.String("reason", err.Error()),
	)
	return res, &msg, nil
}

func (rt *Router) command(name string) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		c, ok := rt.invocation(e.User(), e.Member(), e.GuildID(), e.ChannelID())
		if !ok {
			return e.CreateMessage(guildOnlyMessage)
		}
		opts := slashOptions{data: e.SlashCommandInteractionData()}

		if deferred[name] {
			if err := e.DeferCreateMessage(false); err != nil {
				return err
			}
			res, failed, err := rt.dispatch(name, c, opts)
			msg := messageCreate(res)
			if failed != nil {
				msg = *failed
			}
			if _, ferr := e.CreateFollowupMessage(msg); ferr != nil {
				return ferr
			}
			return err
		}

		res, failed, err := rt.dispatch(name, c, opts)
		if failed != nil {
			if rerr := e.CreateMessage(*failed); rerr != nil {
				return rerr
			}
			return err
		}

		switch {
		case res.Modal != nil:
			return e.Modal(modalCreate(res.Modal))
		case len(res.Pages) > 0:
			return rt.paginator.Create(e.Respond, paginator.Pages{
				ID:         e.ID().String(),
				Creator:    e.User().ID,
				PageFunc:   pageFunc(res.Pages, res.Tone),
				Pages:      len(res.Pages),
				ExpireMode: paginator.ExpireModeAfterLastUsage,
			}, res.Ephemeral)
		default:
			return e.CreateMessage(messageCreate(res))
		}
	}
}

func (rt *Router) component(name string) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		c, ok := rt.invocation(e.User(), e.Member(), e.GuildID(), e.ChannelID())
		if !ok {
			return e.CreateMessage(guildOnlyMessage)
		}

		res, failed, err := rt.dispatch(name, c, nil)
		if failed != nil {
			if rerr := e.CreateMessage(*failed); rerr != nil {
				return rerr
			}
			return err
		}
		if res.Modal != nil {
			return e.Modal(modalCreate(res.Modal))
		}
		return e.UpdateMessage(messageUpdate(res))
	}
}

func (rt *Router) modal(name string) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		c, ok := rt.invocation(e.User(), e.Member(), e.GuildID(), e.ChannelID())
		if !ok {
			return e.CreateMessage(guildOnlyMessage)
		}

		res, failed, err := rt.dispatch(name, c, textOptions(e.Data.OptText))
		if failed != nil {
			if rerr := e.CreateMessage(*failed); rerr != nil {
				return rerr
			}
			return err
		}
		return e.CreateMessage(messageCreate(res))
	}
}

func (rt *Router) autocomplete(name string) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()

		query := ""
		if focused.Value != nil {
			if err := json.Unmarshal(focused.Value, &query); err != nil {
				slog.Error("Failed to unmarshal focused.Value",
					slog.String("type", "error"),
					slog.String("name", name),
					slog.Any("error", err),
				)
				return e.AutocompleteResult([]discord.AutocompleteChoice{})
			}
		}

		switch focused.Name {
		case "zone":
			return e.AutocompleteResult(zoneChoices(query))
		case "event":
			guildID := e.GuildID()
			if guildID == nil {
				return e.AutocompleteResult([]discord.AutocompleteChoice{})
			}

			ctx, cancel := context.WithTimeout(context.Background(), config.AutocompleteTimeout)
			defer cancel()

			found, err := rt.events.Search(ctx, *guildID, query, config.MaxAutocompleteChoices, autocompleteStatuses[name]...)
			if err != nil {
				slog.Error("Failed to search events",
					slog.String("type", "error"),
					slog.String("name", name),
					slog.String("search_term", query),
					slog.Any("error", err),
				)
				return e.AutocompleteResult([]discord.AutocompleteChoice{})
			}
			return e.AutocompleteResult(eventChoices(found))
		default:
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}
	}
}

func eventChoices(found []*events.Event) []discord.AutocompleteChoice {
	choices := make([]discord.AutocompleteChoice, 0, min(len(found), config.MaxAutocompleteChoices))
	for _, event := range found {
		if len(choices) == config.MaxAutocompleteChoices {
			break
		}
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  truncate(fmt.Sprintf("%s (%s)", event.Name, event.Status), config.MaxChoiceNameLength),
			Value: event.ID.String(),
		})
	}
	return choices
}

func zoneChoices(query string) []discord.AutocompleteChoice {
	matches := timezone.Search(query, config.MaxAutocompleteChoices)
	choices := make([]discord.AutocompleteChoice, 0, len(matches))
	for _, m := range matches {
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  truncate(m.Label, config.MaxChoiceNameLength),
			Value: m.Zone,
		})
	}
	return choices
}
