package events

import (
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
	StatusCanceled Status = "canceled"
)

// Active statuses count against a guild's event quota.
func (s Status) Active() bool {
	return s == StatusDraft || s == StatusOpen
}

// AcceptsResponses reports whether participants may still register.
func (s Status) AcceptsResponses() bool {
	return s.Active()
}

type Slot struct {
	ID        overlap.SlotID
	Start     time.Time
	Duration  time.Duration
	Ambiguous bool
}

// End is Start plus Duration, or Start when no duration was given.
func (s Slot) End() time.Time {
	return s.Start.Add(s.Duration)
}

type Event struct {
	ID          snowflake.ID
	GuildID     snowflake.ID
	OrganizerID snowflake.ID
	Name        string
	Description string
	Status      Status
	Slots       []Slot
	NextSlotID  overlap.SlotID
	FinalSlotID overlap.SlotID
	Recurrence  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SlotIDs returns slot identifiers in proposal order.
func (e *Event) SlotIDs() []overlap.SlotID {
	ids := make([]overlap.SlotID, 0, len(e.Slots))
	for _, slot := range e.Slots {
		ids = append(ids, slot.ID)
	}
	return ids
}

func (e *Event) Slot(id overlap.SlotID) (Slot, bool) {
	for _, slot := range e.Slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return Slot{}, false
}

func (e *Event) HasSlot(id overlap.SlotID) bool {
	_, ok := e.Slot(id)
	return ok
}

// FinalSlot returns the chosen slot of a closed event.
func (e *Event) FinalSlot() (Slot, bool) {
	if e.Status != StatusClosed || e.FinalSlotID == 0 {
		return Slot{}, false
	}
	return e.Slot(e.FinalSlotID)
}

// Clone returns a copy that shares no slices with e.
func (e *Event) Clone() *Event {
	out := *e
	out.Slots = slices.Clone(e.Slots)
	return &out
}

// Actor is the user performing a lifecycle action with their level in the
// event's guild.
type Actor struct {
	UserID snowflake.ID
	Level  guilds.Level
}

// canManage holds for the event's organizer whatever their current level,
// and for guild admins.
func (a Actor) canManage(e *Event) bool {
	return a.Level >= guilds.LevelAdmin || a.UserID == e.OrganizerID
}
