// Package scheduler binds the scheduling services to named commands. The
// handlers know nothing about the chat transport that calls them.
package scheduler

import (
	"context"
	"errors"
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
)

// Renderer draws an overlap summary as a PNG with labels in loc.
type Renderer interface {
	Render(ctx context.Context, summary *availability.Summary, loc *time.Location) ([]byte, error)
}

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Options struct {
	Events       *events.Manager
	Availability *availability.Service
	Preferences  *timezone.Preferences
	Normalizer   *timezone.Normalizer
	Entitlements *entitlements.Service
	Guilds       *guilds.Service
	Wizard       *wizard.Manager
	Exporter     *calendar.Exporter
	Clock        clock.Clock
	// Renderer and Uploader are optional.
	Renderer Renderer
	Uploader Uploader
	// ListPageSize is the number of events per page of /event list.
	ListPageSize int
}

type Handlers struct {
	events       *events.Manager
	availability *availability.Service
	preferences  *timezone.Preferences
	normalizer   *timezone.Normalizer
	entitlements *entitlements.Service
	guilds       *guilds.Service
	wizard       *wizard.Manager
	exporter     *calendar.Exporter
	clock        clock.Clock
	renderer     Renderer
	uploader     Uploader
	pageSize     int
}

func New(o Options) *Handlers {
	if o.Clock == nil {
		o.Clock = clock.NewSystem()
	}
	if o.Exporter == nil {
		o.Exporter = calendar.NewExporter("")
	}
	if o.ListPageSize <= 0 {
		o.ListPageSize = 5
	}
	return &Handlers{
		events:       o.Events,
		availability: o.Availability,
		preferences:  o.Preferences,
		normalizer:   o.Normalizer,
		entitlements: o.Entitlements,
		guilds:       o.Guilds,
		wizard:       o.Wizard,
		exporter:     o.Exporter,
		clock:        o.Clock,
		renderer:     o.Renderer,
		uploader:     o.Uploader,
		pageSize:     o.ListPageSize,
	}
}

// Register binds every scheduling command to r.
func (h *Handlers) Register(r *commands.Registry) {
	commands.Register(r, "event.create", h.createEvent)
	commands.Register(r, "event.recurring", h.createRecurring)
	commands.Register(r, "event.open", h.openEvent)
	commands.Register(r, "event.add-slots", h.addSlots)
	commands.Register(r, "event.remove-slot", h.removeSlot)
	commands.Register(r, "event.edit", h.editEvent)
	commands.Register(r, "event.finalize", h.finalizeEvent)
	commands.Register(r, "event.cancel", h.cancelEvent)
	commands.Register(r, "event.delete", h.deleteEvent)
	commands.Register(r, "event.info", h.eventInfo)
	commands.Register(r, "event.list", h.listEvents)
	commands.Register(r, "event.export", h.exportEvent)

	commands.Register(r, "availability.set", h.setAvailability)
	commands.Register(r, "availability.clear", h.clearAvailability)
	commands.Register(r, "availability.mine", h.myAvailability)

	commands.Register(r, "timezone.set", h.setTimezone)
	commands.Register(r, "timezone.show", h.showTimezone)

	commands.Register(r, "premium.status", h.premiumStatus)
	commands.Register(r, "premium.set", h.setPremium)

	if h.guilds != nil {
		commands.Register(r, "settings.show", h.showSettings)
		commands.Register(r, "settings.role-add", h.addRole)
		commands.Register(r, "settings.role-remove", h.removeRole)
		commands.Register(r, "settings.bulletin", h.setBulletin)
		commands.Register(r, "settings.time-format", h.setTimeFormat)
	}

	if h.wizard != nil {
		commands.Register(r, "wizard.start", h.startWizard)
		commands.Register(r, "wizard.details", h.wizardDetails)
		commands.Register(r, "wizard.confirm", h.confirmWizard)
		commands.Register(r, "wizard.abort", h.abortWizard)
	}
}

func actor(c commands.Context) events.Actor {
	return events.Actor{UserID: c.UserID, Level: c.Level}
}

// guildEvent loads an event and hides events of other guilds.
func (h *Handlers) guildEvent(ctx context.Context, c commands.Context, option string) (*events.Event, error) {
	id, err := ParseEventID(option)
	if err != nil {
		return nil, err
	}
	event, err := h.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.GuildID != c.GuildID {
		return nil, &errs.NotFoundError{Resource: "event", ID: id.String()}
	}
	return event, nil
}

// zoneOf returns the user's zone, or "" with ErrNotSet swallowed when
// optional is set.
func (h *Handlers) zoneOf(ctx context.Context, userID snowflake.ID, optional bool) (string, error) {
	zone, err := h.preferences.Get(ctx, userID)
	if err != nil {
		if optional && errors.Is(err, timezone.ErrNotSet) {
			return "", nil
		}
		return "", err
	}
	return zone, nil
}

// location returns the user's location, UTC when unset.
func (h *Handlers) location(ctx context.Context, userID snowflake.ID) *time.Location {
	zone, err := h.zoneOf(ctx, userID, true)
	if err != nil || zone == "" {
		return time.UTC
	}
	loc, err := h.normalizer.Location(zone)
	if err != nil {
		return time.UTC
	}
	return loc
}
