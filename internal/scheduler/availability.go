package scheduler

import (
	"context"
	"fmt"

	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
)

type setAvailabilityInput struct {
	Event string `option:"event" validate:"required"`
	Slots string `option:"slots" validate:"max=500"`
}

// setAvailability replaces the caller's response. Slots are chosen by
// number, so no time zone is needed to answer.
func (h *Handlers) setAvailability(ctx context.Context, c commands.Context, in setAvailabilityInput) (commands.Result, error) {
	if err := guilds.Require(c.Level, guilds.LevelAttendee, "answer events"); err != nil {
		return commands.Result{}, err
	}
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	slots, err := ParseSlotIDs(in.Slots)
	if err != nil {
		return commands.Result{}, err
	}
	if err := h.availability.SetResponse(ctx, event.ID, c.UserID, slots); err != nil {
		return commands.Result{}, err
	}

	result := commands.Result{
		Title:     "Availability saved",
		Body:      fmt.Sprintf("For **%s** you can make %s.", event.Name, formatSlotSet(slots)),
		Tone:      commands.ToneSuccess,
		Ephemeral: true,
	}

	summary, err := h.availability.Summary(ctx, event.ID)
	if err != nil {
		return result, nil
	}
	if best, ok := summary.Overlap.Best(); ok && best.AvailableCount > 0 {
		slot, _ := summary.Event.Slot(best.SlotID)
		result.Fields = append(result.Fields, commands.Field{
			Name:  "Current best time",
			Value: fmt.Sprintf("%s with %d/%d", FormatSlot(slot), best.AvailableCount, summary.Overlap.Respondents),
		})
	}
	return result, nil
}

func (h *Handlers) clearAvailability(ctx context.Context, c commands.Context, in eventInput) (commands.Result, error) {
	if err := guilds.Require(c.Level, guilds.LevelAttendee, "answer events"); err != nil {
		return commands.Result{}, err
	}
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	if err := h.availability.ClearResponse(ctx, event.ID, c.UserID); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{
		Title:     "Response withdrawn",
		Body:      fmt.Sprintf("You are no longer counted for **%s**.", event.Name),
		Ephemeral: true,
	}, nil
}

func (h *Handlers) myAvailability(ctx context.Context, c commands.Context, in eventInput) (commands.Result, error) {
	event, err := h.guildEvent(ctx, c, in.Event)
	if err != nil {
		return commands.Result{}, err
	}
	set, ok, err := h.availability.ResponseOf(ctx, event.ID, c.UserID)
	if err != nil {
		return commands.Result{}, err
	}
	if !ok {
		return commands.Result{
			Title:     event.Name,
			Body:      "You have not responded yet. Use `/availability set`.",
			Ephemeral: true,
		}, nil
	}

	result := commands.Result{
		Title:     event.Name,
		Body:      fmt.Sprintf("You can make %s.", formatSlotSet(set)),
		Ephemeral: true,
	}
	for _, id := range set.Sorted() {
		if slot, ok := event.Slot(id); ok {
			result.Fields = append(result.Fields, commands.Field{Name: fmt.Sprintf("#%d", id), Value: Timestamp(slot.Start), Inline: true})
		}
	}
	return result, nil
}
