package availability

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
)

// UnknownSlotError is returned when a response names a slot the event lacks.
type UnknownSlotError struct {
	EventID snowflake.ID
	SlotID  overlap.SlotID
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("slot %d does not belong to event %s", e.SlotID, e.EventID)
}

func (e *UnknownSlotError) Kind() errs.Kind { return errs.KindValidation }

func (e *UnknownSlotError) UserMessage() string {
	return fmt.Sprintf("Slot #%d is not one of this event's times.", e.SlotID)
}

// EventClosedError is returned when registering on a closed or canceled event.
type EventClosedError struct {
	EventID snowflake.ID
	State   events.Status
}

func (e *EventClosedError) Error() string {
	return fmt.Sprintf("event %s is %s and no longer accepts responses", e.EventID, e.State)
}

func (e *EventClosedError) Kind() errs.Kind { return errs.KindStateConflict }

func (e *EventClosedError) UserMessage() string {
	return fmt.Sprintf("This event is **%s** and no longer takes availability.", e.State)
}
