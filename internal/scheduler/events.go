package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huddle-bot/huddle/internal/calendar"
	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/availability"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
)

type createInput struct {
	Name        string `option:"name" validate:"required,max=100"`
	Description string `option:"description" validate:"max=1000"`
	Slots       string `option:"slots" validate:"required,max=1500"`
	Duration    int    `option:"duration" validate:"gte=0,lte=1440"`
	Open        bool   `option:"open"`
}

type recurringInput struct {
	Name        string `option:"name" validate:"required,max=100"`
	Description string `option:"description" validate:"max=1000"`
	First       string `option:"first" validate:"required"`
	Rule        string `option:"rule" validate:"required,max=200"`
	Duration    int    `option:"duration" validate:"gte=0,lte=1440"`
	Open        bool   `option:"open"`
}

type eventInput struct {
	Event string `option:"event" validate:"required"`
}

type addSlotsInput struct {
	Event    string `option:"event" validate:"required"`
	Slots    string `option:"slots" validate:"required,max=1500"`
	Duration int    `option:"duration" validate:"gte=0,lte=1440"`
}

type slotInput struct {
	Event string `option:"event" validate:"required"`
	Slot  int    `option:"slot" validate:"gte=0,lte=10000"`
}

type editInput struct {
	Event       string `option:"event" validate:"required"`
	Name        string `option:"name" validate:"required,max=100"`
	Description string `option:"description" validate:"max=1000"`
}

type listInput struct {
	Status string `option:"status" validate:"omitempty,oneof=draft open closed canceled active all"`
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func (h *Handlers) createEvent(ctx context.Context, c commands.Context, in createInput) (commands.Result, error) {
	zone, err := h.zoneOf(ctx, c.UserID, false)
	if err != nil {
		return commands.Result{}, err
	}
	proposals, err := ParseProposals(in.Slots, minutes(in.Duration))
	if err != nil {
		return commands.Result{}, err
	}

	event, err := h.events.Create(ctx, events.CreateInput{
		GuildID:     c.GuildID,
		Organizer:   actor(c),
		Name:        in.Name,
		Description: in.Description,
		Zone:        zone,
		Slots:       proposals,
		Open:        in.Open,
	})
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Event created", commands.ToneSuccess), nil
}

func (h *Handlers) createRecurring(ctx context.Context, c commands.Context, in recurringInput) (commands.Result, error) {
	zone, err := h.zoneOf(ctx, c.UserID, false)
	if err != nil {
		return commands.Result{}, err
	}
	first, err := ParseProposals(in.First, 0)
	if err != nil {
		return commands.Result{}, err
	}

	event, err := h.events.CreateRecurring(ctx, events.RecurringInput{
		CreateInput: events.CreateInput{
			GuildID:     c.GuildID,
			Organizer:   actor(c),
			Name:        in.Name,
			Description: in.Description,
			Zone:        zone,
			Open:        in.Open,
		},
		First:    first[0].Start,
		Duration: minutes(in.Duration),
		Rule:     in.Rule,
	})
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Recurring event created", commands.ToneSuccess), nil
}

func (h *Handlers) openEvent(ctx context.Context, c commands.Context, in eventInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	event, err = h.events.Open(ctx, actor(c), event.ID)
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Event is open for responses", commands.ToneSuccess), nil
}

func (h *Handlers) addSlots(ctx context.Context, c commands.Context, in addSlotsInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	zone, err := h.zoneOf(ctx, c.UserID, false)
	if err != nil {
		return commands.Result{}, err
	}
	proposals, err := ParseProposals(in.Slots, minutes(in.Duration))
	if err != nil {
		return commands.Result{}, err
	}

	event, err = h.events.AddSlots(ctx, actor(c), event.ID, zone, proposals)
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Times added", commands.ToneSuccess), nil
}

func (h *Handlers) removeSlot(ctx context.Context, c commands.Context, in slotInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	if in.Slot < 1 {
		return commands.Result{}, errs.Validation("slot", "pick a slot number")
	}

	event, err = h.events.RemoveSlot(ctx, actor(c), event.ID, overlap.SlotID(in.Slot))
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, fmt.Sprintf("Time #%d removed", in.Slot), commands.ToneSuccess), nil
}

func (h *Handlers) editEvent(ctx context.Context, c commands.Context, in editInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	event, err = h.events.Edit(ctx, actor(c), event.ID, in.Name, in.Description)
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Event updated", commands.ToneSuccess), nil
}

// finalizeEvent closes the event on the given slot, or on the best ranked
// slot when none is given.
func (h *Handlers) finalizeEvent(ctx context.Context, c commands.Context, in slotInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}

	slotID := overlap.SlotID(in.Slot)
	if slotID == 0 {
		summary, err := h.availability.Summary(ctx, event.ID)
		if err != nil {
			return commands.Result{}, err
		}
		best, ok := summary.Overlap.Best()
		if !ok {
			return commands.Result{}, errs.Validation("slot", "the event has no times to choose from")
		}
		slotID = best.SlotID
	}

	event, err = h.events.Finalize(ctx, actor(c), event.ID, slotID)
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Event finalized", commands.ToneSuccess), nil
}

func (h *Handlers) cancelEvent(ctx context.Context, c commands.Context, in eventInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	event, err = h.events.Cancel(ctx, actor(c), event.ID)
	if err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Event canceled", commands.ToneWarning), nil
}

func (h *Handlers) deleteEvent(ctx context.Context, c commands.Context, in eventInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	if err := h.events.Delete(ctx, actor(c), event.ID); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{
		Title: "Event deleted",
		Body:  fmt.Sprintf("**%s** and all of its responses were deleted.", event.Name),
		Tone:  commands.ToneWarning,
	}, nil
}

func (h *Handlers) eventInfo(ctx context.Context, c commands.Context, in eventInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	summary, err := h.availability.Summary(ctx, event.ID)
	if err != nil {
		return commands.Result{}, err
	}

	result := summaryCard(summary)
	if png := h.heatmap(ctx, c, summary); png != nil {
		result.Attachments = append(result.Attachments, commands.Attachment{
			Name:        "heatmap.png",
			ContentType: "image/png",
			Data:        png,
		})
		result.ImageName = "heatmap.png"
	}
	return result, nil
}

// heatmap renders an image for premium guilds. Failures only cost the image.
func (h *Handlers) heatmap(ctx context.Context, c commands.Context, summary *availability.Summary) []byte {
	if h.renderer == nil || summary.Overlap.Respondents == 0 {
		return nil
	}
	allowed, err := h.entitlements.HasFeature(ctx, c.GuildID, entitlements.FeatureHeatmapImages)
	if err != nil || !allowed {
		return nil
	}
	png, err := h.renderer.Render(ctx, summary, h.location(ctx, c.UserID))
	if err != nil {
		slog.Warn("Heatmap unavailable",
			slog.String("type", "error"),
			slog.String("event_id", summary.Event.ID.String()),
			slog.Any("error", err),
		)
		return nil
	}
	return png
}

func (h *Handlers) listEvents(ctx context.Context, c commands.Context, in listInput) (commands.Result, error) {
	var statuses []events.Status
	switch in.Status {
	case "", "active":
		statuses = []events.Status{events.StatusDraft, events.StatusOpen}
	case "all":
	default:
		statuses = []events.Status{events.Status(in.Status)}
	}

	list, err := h.events.List(ctx, c.GuildID, statuses...)
	if err != nil {
		return commands.Result{}, err
	}
	if len(list) == 0 {
		return commands.Result{
			Title: "No events",
			Body:  "There are no matching events. Create one with `/event create`.",
		}, nil
	}

	var pages []commands.Page
	for start := 0; start < len(list); start += h.pageSize {
		end := min(start+h.pageSize, len(list))
		page := commands.Page{
			Title:       "Events",
			Description: fmt.Sprintf("Showing %d-%d of %d", start+1, end, len(list)),
		}
		for _, event := range list[start:end] {
			page.Fields = append(page.Fields, commands.Field{
				Name:  fmt.Sprintf("%s · %s", event.Name, statusLabel(event.Status)),
				Value: listLine(event),
			})
		}
		pages = append(pages, page)
	}
	return commands.Result{Title: "Events", Pages: pages}, nil
}

func listLine(event *events.Event) string {
	line := fmt.Sprintf("ID `%s` · by %s · %d times", event.ID, Mention(event.OrganizerID), len(event.Slots))
	if slot, ok := event.FinalSlot(); ok {
		line += " · " + Timestamp(slot.Start)
	}
	return line
}

func (h *Handlers) exportEvent(ctx context.Context, c commands.Context, in eventInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	data, err := h.exporter.Export(event, h.clock.Now())
	if err != nil {
		return commands.Result{}, err
	}

	name := calendar.FileName(event)
	result := commands.Result{
		Title: "Calendar export",
		Body:  fmt.Sprintf("Import **%s** into your calendar with the attached file.", event.Name),
		Attachments: []commands.Attachment{{
			Name:        name,
			ContentType: calendar.ContentType,
			Data:        data,
		}},
	}

	if h.uploader != nil {
		url, err := h.uploader.Upload(ctx, "calendars/"+name, calendar.ContentType, data)
		if err != nil {
			slog.Warn("Calendar upload failed",
				slog.String("type", "error"),
				slog.String("event_id", event.ID.String()),
				slog.Any("error", err),
			)
		} else {
			result.Body += fmt.Sprintf("\nSubscribe link: %s", url)
		}
	}
	return result, nil
}

// eventCard describes an event after a change.
func eventCard(event *events.Event, title string, tone commands.Tone) commands.Result {
	result := commands.Result{
		Title: title,
		Body:  fmt.Sprintf("**%s**", event.Name),
		Tone:  tone,
		Fields: []commands.Field{
			{Name: "Status", Value: statusLabel(event.Status), Inline: true},
			{Name: "Organizer", Value: Mention(event.OrganizerID), Inline: true},
			{Name: "ID", Value: "`" + event.ID.String() + "`", Inline: true},
		},
	}
	if event.Description != "" {
		result.Body += "\n" + event.Description
	}

	if slot, ok := event.FinalSlot(); ok {
		result.Fields = append(result.Fields, commands.Field{Name: "Final time", Value: FormatSlot(slot)})
	} else {
		result.Fields = append(result.Fields, commands.Field{Name: "Times", Value: formatSlots(event.Slots)})
	}
	if n := ambiguousCount(event.Slots); n > 0 {
		result.Fields = append(result.Fields, commands.Field{
			Name:  "Heads up",
			Value: fmt.Sprintf("%d time(s) fall in a daylight saving repeat. The first occurrence was used.", n),
		})
	}
	if event.Recurrence != "" {
		result.Fields = append(result.Fields, commands.Field{Name: "Repeats", Value: "`" + event.Recurrence + "`", Inline: true})
	}
	if event.Status == events.StatusDraft {
		result.Body += "\nOpen it with `/event open` when you are ready for responses."
	}
	return result
}

// summaryCard lists the ranked slots of an event.
func summaryCard(summary *availability.Summary) commands.Result {
	event := summary.Event
	result := eventCard(event, event.Name, commands.ToneInfo)
	result.Body = event.Description
	result.Fields = result.Fields[:3]

	result.Fields = append(result.Fields, commands.Field{
		Name:   "Responses",
		Value:  fmt.Sprintf("%d", summary.Overlap.Respondents),
		Inline: true,
	})

	if slot, ok := event.FinalSlot(); ok {
		result.Fields = append(result.Fields, commands.Field{Name: "Final time", Value: FormatSlot(slot)})
	}

	const maxRanked = 10
	var lines []string
	for i, ranking := range summary.Overlap.Ranked {
		if i == maxRanked {
			lines = append(lines, fmt.Sprintf("…and %d more", len(summary.Overlap.Ranked)-maxRanked))
			break
		}
		slot, _ := event.Slot(ranking.SlotID)
		lines = append(lines, fmt.Sprintf("%s\n└ **%d/%d**: %s",
			FormatSlot(slot), ranking.AvailableCount, summary.Overlap.Respondents, mentions(ranking.Available, 8)))
	}
	if len(lines) > 0 {
		result.Fields = append(result.Fields, commands.Field{Name: "Best times", Value: strings.Join(lines, "\n")})
	}
	return result
}
