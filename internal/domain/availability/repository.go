package availability

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
)

// Repository stores one response per (event, user). Replace must write the
// whole set atomically.
type Repository interface {
	Replace(ctx context.Context, eventID, userID snowflake.ID, slots overlap.SlotSet) error
	Remove(ctx context.Context, eventID, userID snowflake.ID) error
	RemoveAll(ctx context.Context, eventID snowflake.ID) error
	List(ctx context.Context, eventID snowflake.ID) (overlap.Responses, error)
	PruneSlot(ctx context.Context, eventID snowflake.ID, slotID overlap.SlotID) error
}

// EventReader loads the event a response belongs to.
type EventReader interface {
	Get(ctx context.Context, id snowflake.ID) (*events.Event, error)
}
