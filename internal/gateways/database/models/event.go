package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          int64     `bun:"id,pk"`
	GuildID     int64     `bun:"guild_id,notnull"`
	OrganizerID int64     `bun:"organizer_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull,default:''"`
	Status      string    `bun:"status,notnull"`
	NextSlotID  int       `bun:"next_slot_id,notnull"`
	FinalSlotID int       `bun:"final_slot_id,notnull,default:0"`
	Recurrence  string    `bun:"recurrence,notnull,default:''"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	// Relations
	Slots []*Slot `bun:"rel:has-many,join:id=event_id"`
}

// Slot is one proposed time of an event. Position keeps proposal order.
type Slot struct {
	bun.BaseModel `bun:"table:event_slots,alias:s"`

	EventID   int64     `bun:"event_id,pk"`
	SlotID    int       `bun:"slot_id,pk"`
	Position  int       `bun:"position,notnull"`
	StartAt   time.Time `bun:"start_at,notnull"`
	Duration  int64     `bun:"duration_seconds,notnull,default:0"`
	Ambiguous bool      `bun:"ambiguous,notnull,default:false"`
}

// Response is one participant's selection. An empty SlotIDs still counts
// as a response.
type Response struct {
	bun.BaseModel `bun:"table:responses,alias:r"`

	EventID   int64     `bun:"event_id,pk"`
	UserID    int64     `bun:"user_id,pk"`
	SlotIDs   []int64   `bun:"slot_ids,array,notnull,default:'{}'"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
