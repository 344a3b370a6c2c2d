package events

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
)

// StateConflictError rejects an action the event's current status forbids.
type StateConflictError struct {
	EventID snowflake.ID
	State   Status
	Action  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s event %s in state %s", e.Action, e.EventID, e.State)
}

func (e *StateConflictError) Kind() errs.Kind { return errs.KindStateConflict }

func (e *StateConflictError) UserMessage() string {
	return fmt.Sprintf("You can't %s this event because it is **%s**.", e.Action, e.State)
}

// InvalidSlotSelectionError is returned when a slot id does not belong to the event.
type InvalidSlotSelectionError struct {
	EventID snowflake.ID
	SlotID  overlap.SlotID
}

func (e *InvalidSlotSelectionError) Error() string {
	return fmt.Sprintf("slot %d is not part of event %s", e.SlotID, e.EventID)
}

func (e *InvalidSlotSelectionError) Kind() errs.Kind { return errs.KindValidation }

func (e *InvalidSlotSelectionError) UserMessage() string {
	return fmt.Sprintf("Slot #%d is not one of this event's slots.", e.SlotID)
}

// QuotaExceededError carries the guild's usage for display.
type QuotaExceededError struct {
	Count   int
	Limit   int
	Premium bool
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("event quota exceeded: %d of %d", e.Count, e.Limit)
}

func (e *QuotaExceededError) Kind() errs.Kind { return errs.KindQuota }

func (e *QuotaExceededError) UserMessage() string {
	msg := fmt.Sprintf("This server already has %d of %d active events.", e.Count, e.Limit)
	if !e.Premium {
		msg += " Close or cancel one, or upgrade to premium for more."
	} else {
		msg += " Close or cancel one first."
	}
	return msg
}

// PermissionError is returned when the actor is neither organizer nor admin.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return "not permitted to " + e.Action
}

func (e *PermissionError) Kind() errs.Kind { return errs.KindPermission }

func (e *PermissionError) UserMessage() string {
	return fmt.Sprintf("Only the organizer or a server admin can %s this event.", e.Action)
}

// PremiumRequiredError is returned for premium-only features on free guilds.
type PremiumRequiredError struct {
	Feature string
}

func (e *PremiumRequiredError) Error() string {
	return e.Feature + " requires premium"
}

func (e *PremiumRequiredError) Kind() errs.Kind { return errs.KindPremium }

func (e *PremiumRequiredError) UserMessage() string {
	return fmt.Sprintf("%s is a premium feature. Check `/premium status` for details.", e.Feature)
}
