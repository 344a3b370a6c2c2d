package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/huddle-bot/huddle/internal/commands"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/domain/wizard"
)

// Component and modal IDs the transport routes back to the wizard commands.
const (
	WizardModalID   = "wizard:details"
	WizardConfirmID = "wizard:confirm"
	WizardAbortID   = "wizard:abort"
)

type wizardDetailsInput struct {
	Name        string `option:"name" validate:"required,max=100"`
	Description string `option:"description" validate:"max=1000"`
	Slots       string `option:"slots" validate:"required,max=1500"`
	Duration    string `option:"duration" validate:"max=5"`
}

func wizardKey(c commands.Context) wizard.Key {
	return wizard.Key{UserID: c.UserID, ConversationID: c.ConversationID}
}

// startWizard begins a draft and asks for its details. Level and time zone
// are checked first so the user is not sent through the form for nothing.
func (h *Handlers) startWizard(ctx context.Context, c commands.Context, _ struct{}) (commands.Result, error) {
	if err := guilds.Require(c.Level, guilds.LevelOrganizer, "create events"); err != nil {
		return commands.Result{}, err
	}
	if _, err := h.zoneOf(ctx, c.UserID, false); err != nil {
		return commands.Result{}, err
	}
	h.wizard.Begin(wizardKey(c), c.GuildID)

	return commands.Result{
		Modal: &commands.Modal{
			ID:    WizardModalID,
			Title: "New event",
			Inputs: []commands.Input{
				{ID: "name", Label: "Name", Required: true, MaxLength: 100},
				{ID: "description", Label: "Description", Paragraph: true, MaxLength: 1000},
				{ID: "slots", Label: "Times, one per line", Placeholder: "2025-03-14 18:30\n2025-03-15 18:30", Paragraph: true, Required: true, MaxLength: 1500},
				{ID: "duration", Label: "Length in minutes", Placeholder: "60", MaxLength: 5},
			},
		},
	}, nil
}

func (h *Handlers) wizardDetails(ctx context.Context, c commands.Context, in wizardDetailsInput) (commands.Result, error) {
	zone, err := h.zoneOf(ctx, c.UserID, false)
	if err != nil {
		return commands.Result{}, err
	}
	duration, err := ParseMinutes(in.Duration)
	if err != nil {
		return commands.Result{}, err
	}
	proposals, err := ParseProposals(in.Slots, duration)
	if err != nil {
		return commands.Result{}, err
	}
	if err := h.checkLocalTimes(proposals, zone); err != nil {
		return commands.Result{}, err
	}

	session, err := h.wizard.SubmitDetails(wizardKey(c), wizard.Draft{
		Name:        in.Name,
		Description: in.Description,
		Zone:        zone,
		Slots:       proposals,
		Open:        true,
	})
	if err != nil {
		return commands.Result{}, err
	}

	fields := make([]commands.Field, 0, len(proposals))
	for i, p := range proposals {
		fields = append(fields, commands.Field{
			Name:   fmt.Sprintf("#%d", i+1),
			Value:  fmt.Sprintf("%s (%s)", p.Start.Format(c.Use24Hour), zone),
			Inline: true,
		})
	}
	return commands.Result{
		Title:     "Create " + session.Draft.Name + "?",
		Body:      "Check the times below. The event opens for responses as soon as you confirm.",
		Fields:    fields,
		Ephemeral: true,
		Components: []commands.Component{
			{ID: WizardConfirmID, Label: "Create event", Style: commands.StylePrimary},
			{ID: WizardAbortID, Label: "Cancel", Style: commands.StyleSecondary},
		},
	}, nil
}

// checkLocalTimes rejects wall clock times the zone skips. Times the zone
// repeats are accepted here and resolved when the event is created.
func (h *Handlers) checkLocalTimes(proposals []events.SlotProposal, zone string) error {
	for _, p := range proposals {
		_, err := h.normalizer.ToCanonical(p.Start, zone)
		var ambiguous *timezone.AmbiguousLocalTimeError
		if err != nil && !errors.As(err, &ambiguous) {
			return err
		}
	}
	return nil
}

// confirmWizard creates the drafted event. A failed create hands the draft
// back so the user can retry once the cause is fixed.
func (h *Handlers) confirmWizard(ctx context.Context, c commands.Context, _ struct{}) (commands.Result, error) {
	key := wizardKey(c)
	draft, err := h.wizard.Confirm(key)
	if err != nil {
		return commands.Result{}, err
	}

	event, err := h.events.Create(ctx, events.CreateInput{
		GuildID:     draft.GuildID,
		Organizer:   actor(c),
		Name:        draft.Name,
		Description: draft.Description,
		Zone:        draft.Zone,
		Slots:       draft.Slots,
		Open:        draft.Open,
	})
	if err != nil {
		if reopenErr := h.wizard.Reopen(key); reopenErr != nil {
			return commands.Result{}, errors.Join(err, reopenErr)
		}
		return commands.Result{}, err
	}
	if err := h.wizard.Complete(key); err != nil {
		return commands.Result{}, err
	}
	return eventCard(event, "Event created", commands.ToneSuccess), nil
}

func (h *Handlers) abortWizard(_ context.Context, c commands.Context, _ struct{}) (commands.Result, error) {
	if err := h.wizard.Abort(wizardKey(c)); err != nil {
		return commands.Result{}, err
	}
	return commands.Result{
		Title:     "Event discarded",
		Body:      "Nothing was created.",
		Ephemeral: true,
	}, nil
}
