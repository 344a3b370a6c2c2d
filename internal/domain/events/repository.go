package events

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/notify"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
)

// Repository persists events with their slots. Get returns an
// *errs.NotFoundError for unknown IDs.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	Get(ctx context.Context, id snowflake.ID) (*Event, error)
	Update(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id snowflake.ID) error
	ListByGuild(ctx context.Context, guildID snowflake.ID, statuses ...Status) ([]*Event, error)
	CountActive(ctx context.Context, guildID snowflake.ID) (int, error)
}

// ResponseStore is the part of the availability store lifecycle operations
// need. Callers hold the event lock.
type ResponseStore interface {
	GetResponses(ctx context.Context, eventID snowflake.ID) (overlap.Responses, error)
	RemoveAllResponses(ctx context.Context, eventID snowflake.ID) error
	PruneSlot(ctx context.Context, eventID snowflake.ID, slotID overlap.SlotID) error
}

// Gate answers entitlement questions for a guild.
type Gate interface {
	IsPremium(ctx context.Context, guildID snowflake.ID) (bool, error)
	EventQuota(ctx context.Context, guildID snowflake.ID) (int, error)
}

// Dispatcher receives event notices.
type Dispatcher = notify.Dispatcher
