// Package memory implements the repositories in process memory. It backs
// tests and the "memory" storage driver.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
)

type EventRepository struct {
	mu     sync.RWMutex
	events map[snowflake.ID]*events.Event
	// responses, when set, loses an event's responses with the event.
	responses *ResponseRepository
}

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[snowflake.ID]*events.Event)}
}

// NewEventStore returns repositories sharing one lifetime: deleting an event
// removes its responses in the same step, as the database does.
func NewEventStore() (*EventRepository, *ResponseRepository) {
	responses := NewResponseRepository()
	repo := NewEventRepository()
	repo.responses = responses
	return repo, responses
}

func (r *EventRepository) Create(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[event.ID]; ok {
		return &errs.ValidationError{Field: "id", Reason: "event already exists"}
	}
	r.events[event.ID] = event.Clone()
	return nil
}

func (r *EventRepository) Get(_ context.Context, id snowflake.ID) (*events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, &errs.NotFoundError{Resource: "event", ID: id.String()}
	}
	return event.Clone(), nil
}

func (r *EventRepository) Update(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[event.ID]; !ok {
		return &errs.NotFoundError{Resource: "event", ID: event.ID.String()}
	}
	r.events[event.ID] = event.Clone()
	return nil
}

func (r *EventRepository) Delete(_ context.Context, id snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.responses != nil {
		r.responses.mu.Lock()
		delete(r.responses.responses, id)
		r.responses.mu.Unlock()
	}
	delete(r.events, id)
	return nil
}

func (r *EventRepository) ListByGuild(_ context.Context, guildID snowflake.ID, statuses ...events.Status) ([]*events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*events.Event
	for _, event := range r.events {
		if event.GuildID != guildID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, event.Status) {
			continue
		}
		out = append(out, event.Clone())
	}
	slices.SortFunc(out, func(a, b *events.Event) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return out, nil
}

func (r *EventRepository) CountActive(_ context.Context, guildID snowflake.ID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, event := range r.events {
		if event.GuildID == guildID && event.Status.Active() {
			count++
		}
	}
	return count, nil
}

// All returns every stored event, used by the legacy importer's dry runs.
func (r *EventRepository) All() []*events.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*events.Event, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Clone())
	}
	slices.SortFunc(out, func(a, b *events.Event) int { return compareIDs(a.ID, b.ID) })
	return out
}

func compareIDs(a, b snowflake.ID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type ResponseRepository struct {
	mu        sync.RWMutex
	responses map[snowflake.ID]overlap.Responses
}

func NewResponseRepository() *ResponseRepository {
	return &ResponseRepository{responses: make(map[snowflake.ID]overlap.Responses)}
}

func (r *ResponseRepository) Replace(_ context.Context, eventID, userID snowflake.ID, slots overlap.SlotSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.responses[eventID] == nil {
		r.responses[eventID] = make(overlap.Responses)
	}
	r.responses[eventID][userID] = slots.Clone()
	return nil
}

func (r *ResponseRepository) Remove(_ context.Context, eventID, userID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.responses[eventID], userID)
	return nil
}

func (r *ResponseRepository) RemoveAll(_ context.Context, eventID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.responses, eventID)
	return nil
}

func (r *ResponseRepository) List(_ context.Context, eventID snowflake.ID) (overlap.Responses, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.responses[eventID].Clone(), nil
}

func (r *ResponseRepository) PruneSlot(_ context.Context, eventID snowflake.ID, slotID overlap.SlotID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, set := range r.responses[eventID] {
		delete(set, slotID)
	}
	return nil
}
