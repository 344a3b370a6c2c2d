// Package availability records which slots each participant can attend and
// summarizes the overlap.
package availability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/metrics"
)

type Service struct {
	repository Repository
	events     EventReader
	locks      *events.Locks
}

func NewService(repository Repository, eventReader EventReader, locks *events.Locks) *Service {
	return &Service{
		repository: repository,
		events:     eventReader,
		locks:      locks,
	}
}

// SetResponse replaces the user's response with slotIDs. An empty set is a
// valid answer meaning none of the times work.
func (s *Service) SetResponse(ctx context.Context, eventID, userID snowflake.ID, slotIDs overlap.SlotSet) error {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	event, err := s.openEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, id := range slotIDs.Sorted() {
		if !event.HasSlot(id) {
			return &UnknownSlotError{EventID: eventID, SlotID: id}
		}
	}

	if err := s.repository.Replace(ctx, eventID, userID, slotIDs.Clone()); err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}
	return nil
}

// ClearResponse withdraws the user from an event they responded to.
func (s *Service) ClearResponse(ctx context.Context, eventID, userID snowflake.ID) error {
	unlock := s.locks.Lock(eventID)
	defer unlock()

	if _, err := s.openEvent(ctx, eventID); err != nil {
		return err
	}
	if err := s.repository.Remove(ctx, eventID, userID); err != nil {
		return fmt.Errorf("failed to remove response: %w", err)
	}
	return nil
}

func (s *Service) openEvent(ctx context.Context, eventID snowflake.ID) (*events.Event, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Status.AcceptsResponses() {
		return nil, &EventClosedError{EventID: eventID, State: event.Status}
	}
	return event, nil
}

// GetResponses returns a copy of every response to the event.
func (s *Service) GetResponses(ctx context.Context, eventID snowflake.ID) (overlap.Responses, error) {
	responses, err := s.repository.List(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	return responses.Clone(), nil
}

// RemoveAllResponses deletes the event's responses. It is a no-op when there
// are none. The caller holds the event lock.
func (s *Service) RemoveAllResponses(ctx context.Context, eventID snowflake.ID) error {
	return s.repository.RemoveAll(ctx, eventID)
}

// PruneSlot removes slotID from every response. The caller holds the event lock.
func (s *Service) PruneSlot(ctx context.Context, eventID snowflake.ID, slotID overlap.SlotID) error {
	return s.repository.PruneSlot(ctx, eventID, slotID)
}

// Summary is an event together with its ranked overlap.
type Summary struct {
	Event     *events.Event
	Responses overlap.Responses
	Overlap   overlap.Result
}

// Summary ranks the event's slots. Stale slot references are reported as an
// integrity violation and otherwise ignored.
func (s *Service) Summary(ctx context.Context, eventID snowflake.ID) (*Summary, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	responses, err := s.GetResponses(ctx, eventID)
	if err != nil {
		return nil, err
	}

	result := overlap.Compute(event.SlotIDs(), responses)
	for _, ref := range result.Stale {
		metrics.IntegrityViolations.Inc()
		slog.Error("Integrity violation: response references missing slot",
			slog.String("type", "error"),
			slog.String("event_id", eventID.String()),
			slog.String("user_id", ref.UserID.String()),
			slog.Int("slot_id", int(ref.SlotID)),
		)
	}

	return &Summary{
		Event:     event,
		Responses: responses,
		Overlap:   result,
	}, nil
}

// ResponseOf returns one user's response and whether they responded.
func (s *Service) ResponseOf(ctx context.Context, eventID, userID snowflake.ID) (overlap.SlotSet, bool, error) {
	responses, err := s.GetResponses(ctx, eventID)
	if err != nil {
		return nil, false, err
	}
	set, ok := responses[userID]
	return set, ok, nil
}
