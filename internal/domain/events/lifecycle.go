// Package events manages the lifecycle of scheduling events: creation, slot
// proposals, finalization, cancellation and deletion.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/notify"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/metrics"
)

type Config struct {
	// FallbackQuota applies when the entitlement gate cannot be reached.
	FallbackQuota   int
	MaxSlots        int
	MaxNameLength   int
	GateTimeout     time.Duration
	DefaultDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		FallbackQuota:   2,
		MaxSlots:        25,
		MaxNameLength:   100,
		GateTimeout:     3 * time.Second,
		DefaultDuration: time.Hour,
	}
}

// SlotProposal is a candidate start in the proposer's wall clock.
type SlotProposal struct {
	Start    timezone.LocalTime
	Duration time.Duration
}

type CreateInput struct {
	GuildID     snowflake.ID
	// Organizer needs at least guilds.LevelOrganizer.
	Organizer   Actor
	Name        string
	Description string
	Zone        string
	Slots       []SlotProposal
	Open        bool
}

type Manager struct {
	repository Repository
	responses  ResponseStore
	gate       Gate
	dispatcher notify.Dispatcher
	normalizer *timezone.Normalizer
	locks      *Locks
	clock      clock.Clock
	ids        IDGenerator
	cfg        Config
}

func NewManager(
	repository Repository,
	responses ResponseStore,
	gate Gate,
	dispatcher notify.Dispatcher,
	normalizer *timezone.Normalizer,
	locks *Locks,
	clk clock.Clock,
	cfg Config,
) *Manager {
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}
	return &Manager{
		repository: repository,
		responses:  responses,
		gate:       gate,
		dispatcher: dispatcher,
		normalizer: normalizer,
		locks:      locks,
		clock:      clk,
		cfg:        cfg,
	}
}

// Create stores a new event in draft, or open when in.Open is set.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Event, error) {
	if err := m.validateDetails(in.Name, in.Description); err != nil {
		return nil, err
	}
	if len(in.Slots) == 0 {
		return nil, errs.Validation("slots", "propose at least one time")
	}

	slots, err := m.convertSlots(in.Zone, in.Slots, 1, nil)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, in, slots, "")
}

func (m *Manager) create(ctx context.Context, in CreateInput, slots []Slot, recurrence string) (*Event, error) {
	if err := guilds.Require(in.Organizer.Level, guilds.LevelOrganizer, "create events"); err != nil {
		return nil, err
	}
	if len(slots) > m.cfg.MaxSlots {
		return nil, errs.Validation("slots", "at most %d times can be proposed", m.cfg.MaxSlots)
	}

	unlock := m.locks.Lock(in.GuildID)
	defer unlock()

	if err := m.checkQuota(ctx, in.GuildID); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	status := StatusDraft
	if in.Open {
		status = StatusOpen
	}
	event := &Event{
		ID:          m.ids.Next(now),
		GuildID:     in.GuildID,
		OrganizerID: in.Organizer.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Slots:       slots,
		NextSlotID:  overlap.SlotID(len(slots) + 1),
		Recurrence:  recurrence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.repository.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	metrics.Transitions.WithLabelValues(string(status)).Inc()
	slog.Info("Event created",
		slog.String("type", "sys"),
		slog.String("event_id", event.ID.String()),
		slog.String("guild_id", event.GuildID.String()),
		slog.Int("slots", len(event.Slots)),
		slog.String("status", string(status)),
	)
	if status == StatusOpen {
		m.notify(ctx, openedNotice(event))
	}
	return event.Clone(), nil
}

// checkQuota fails when the guild's draft and open events already reach its
// quota. An unreachable gate falls back to the configured free quota.
func (m *Manager) checkQuota(ctx context.Context, guildID snowflake.ID) error {
	count, err := m.repository.CountActive(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to count active events: %w", err)
	}

	gateCtx, cancel := context.WithTimeout(ctx, m.cfg.GateTimeout)
	defer cancel()

	limit, err := m.gate.EventQuota(gateCtx, guildID)
	if err != nil {
		metrics.GateFallbacks.Inc()
		slog.Warn("Entitlement gate unavailable, using fallback quota",
			slog.String("type", "error"),
			slog.String("guild_id", guildID.String()),
			slog.Int("fallback_quota", m.cfg.FallbackQuota),
			slog.Any("error", err),
		)
		limit = m.cfg.FallbackQuota
	}
	if count < limit {
		return nil
	}

	premium, err := m.gate.IsPremium(gateCtx, guildID)
	if err != nil {
		premium = false
	}
	return &QuotaExceededError{Count: count, Limit: limit, Premium: premium}
}

// convertSlots turns proposals into canonical slots numbered from firstID.
// existing slots are checked for duplicate starts.
func (m *Manager) convertSlots(zone string, proposals []SlotProposal, firstID overlap.SlotID, existing []Slot) ([]Slot, error) {
	if _, err := m.normalizer.Location(zone); err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(proposals))
	for i, p := range proposals {
		start, err := m.normalizer.ToCanonical(p.Start, zone)
		ambiguous := false
		if err != nil {
			var fold *timezone.AmbiguousLocalTimeError
			if !errors.As(err, &fold) {
				return nil, err
			}
			ambiguous = true
		}

		duration := p.Duration
		if duration < 0 {
			return nil, errs.Validation("duration", "must not be negative")
		}
		if duration == 0 {
			duration = m.cfg.DefaultDuration
		}

		if containsStart(existing, start) || containsStart(slots, start) {
			return nil, errs.Validation("slots", "%s is proposed twice", p.Start)
		}

		slots = append(slots, Slot{
			ID:        firstID + overlap.SlotID(i),
			Start:     start,
			Duration:  duration,
			Ambiguous: ambiguous,
		})
	}
	return slots, nil
}

func containsStart(slots []Slot, start time.Time) bool {
	return slices.ContainsFunc(slots, func(s Slot) bool { return s.Start.Equal(start) })
}

func (m *Manager) validateDetails(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.Validation("name", "must not be empty")
	}
	if len([]rune(name)) > m.cfg.MaxNameLength {
		return errs.Validation("name", "must be at most %d characters", m.cfg.MaxNameLength)
	}
	if len([]rune(description)) > 1000 {
		return errs.Validation("description", "must be at most 1000 characters")
	}
	return nil
}

// mutate loads an event under its lock, checks permission and state, and
// saves it when fn succeeds.
func (m *Manager) mutate(ctx context.Context, actor Actor, eventID snowflake.ID, action string, allowed func(Status) bool, fn func(*Event) error) (*Event, error) {
	unlock := m.locks.Lock(eventID)
	defer unlock()

	event, err := m.repository.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(event) {
		return nil, &PermissionError{Action: action}
	}
	if !allowed(event.Status) {
		return nil, &StateConflictError{EventID: eventID, State: event.Status, Action: action}
	}

	if err := fn(event); err != nil {
		return nil, err
	}
	event.UpdatedAt = m.clock.Now()
	if err := m.repository.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event.Clone(), nil
}

// Open moves a draft event to open.
func (m *Manager) Open(ctx context.Context, actor Actor, eventID snowflake.ID) (*Event, error) {
	event, err := m.mutate(ctx, actor, eventID, "open", func(s Status) bool { return s == StatusDraft }, func(e *Event) error {
		e.Status = StatusOpen
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues(string(StatusOpen)).Inc()
	m.notify(ctx, openedNotice(event))
	return event, nil
}

// Edit changes the name and description of a draft or open event.
func (m *Manager) Edit(ctx context.Context, actor Actor, eventID snowflake.ID, name, description string) (*Event, error) {
	if err := m.validateDetails(name, description); err != nil {
		return nil, err
	}
	var changes []string
	event, err := m.mutate(ctx, actor, eventID, "edit", Status.Active, func(e *Event) error {
		name, description := strings.TrimSpace(name), strings.TrimSpace(description)
		if name != e.Name {
			changes = append(changes, fmt.Sprintf("renamed from **%s**", e.Name))
		}
		if description != e.Description {
			changes = append(changes, "new description")
		}
		e.Name = name
		e.Description = description
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.notifyChanged(ctx, actor, event, strings.Join(changes, ", "))
	return event, nil
}

// AddSlots appends proposals to a draft or open event.
func (m *Manager) AddSlots(ctx context.Context, actor Actor, eventID snowflake.ID, zone string, proposals []SlotProposal) (*Event, error) {
	if len(proposals) == 0 {
		return nil, errs.Validation("slots", "propose at least one time")
	}
	event, err := m.mutate(ctx, actor, eventID, "add slots to", Status.Active, func(e *Event) error {
		if len(e.Slots)+len(proposals) > m.cfg.MaxSlots {
			return errs.Validation("slots", "an event can have at most %d times", m.cfg.MaxSlots)
		}
		slots, err := m.convertSlots(zone, proposals, e.NextSlotID, e.Slots)
		if err != nil {
			return err
		}
		e.Slots = append(e.Slots, slots...)
		e.NextSlotID += overlap.SlotID(len(slots))
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.notifyChanged(ctx, actor, event, fmt.Sprintf("%d new time(s) to pick from", len(proposals)))
	return event, nil
}

// RemoveSlot drops a slot from a draft or open event and prunes it from
// every response.
func (m *Manager) RemoveSlot(ctx context.Context, actor Actor, eventID snowflake.ID, slotID overlap.SlotID) (*Event, error) {
	unlock := m.locks.Lock(eventID)
	defer unlock()

	event, err := m.repository.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(event) {
		return nil, &PermissionError{Action: "remove slots from"}
	}
	if !event.Status.Active() {
		return nil, &StateConflictError{EventID: eventID, State: event.Status, Action: "remove slots from"}
	}
	if !event.HasSlot(slotID) {
		return nil, &InvalidSlotSelectionError{EventID: eventID, SlotID: slotID}
	}
	if len(event.Slots) == 1 {
		return nil, errs.Validation("slots", "an event needs at least one time")
	}

	event.Slots = slices.DeleteFunc(event.Slots, func(s Slot) bool { return s.ID == slotID })
	event.UpdatedAt = m.clock.Now()
	if err := m.repository.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	if err := m.responses.PruneSlot(ctx, eventID, slotID); err != nil {
		return nil, fmt.Errorf("failed to prune responses: %w", err)
	}
	m.notifyChanged(ctx, actor, event, fmt.Sprintf("time #%d was removed", slotID))
	return event.Clone(), nil
}

// Finalize closes an open event on the chosen slot and hands the result to
// the dispatcher. Dispatcher failures do not undo the transition.
func (m *Manager) Finalize(ctx context.Context, actor Actor, eventID snowflake.ID, slotID overlap.SlotID) (*Event, error) {
	var participants []snowflake.ID

	event, err := m.mutate(ctx, actor, eventID, "finalize", func(s Status) bool { return s == StatusOpen }, func(e *Event) error {
		if !e.HasSlot(slotID) {
			return &InvalidSlotSelectionError{EventID: eventID, SlotID: slotID}
		}

		responses, err := m.responses.GetResponses(ctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to load responses: %w", err)
		}
		for _, user := range responses.Users() {
			if responses[user].Has(slotID) {
				participants = append(participants, user)
			}
		}
		if !slices.Contains(participants, e.OrganizerID) {
			participants = append(participants, e.OrganizerID)
		}

		e.Status = StatusClosed
		e.FinalSlotID = slotID
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues(string(StatusClosed)).Inc()

	slot, _ := event.Slot(slotID)
	n := newNotice(notify.KindFinalized, event)
	n.Start = slot.Start
	n.Duration = slot.Duration
	n.Participants = participants
	m.notify(ctx, n)
	return event, nil
}

// Cancel moves a draft or open event to canceled and tells everyone who
// responded.
func (m *Manager) Cancel(ctx context.Context, actor Actor, eventID snowflake.ID) (*Event, error) {
	var recipients []snowflake.ID
	event, err := m.mutate(ctx, actor, eventID, "cancel", Status.Active, func(e *Event) error {
		var err error
		if recipients, err = m.recipients(ctx, e, actor); err != nil {
			return err
		}
		e.Status = StatusCanceled
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues(string(StatusCanceled)).Inc()

	n := newNotice(notify.KindCanceled, event)
	n.Participants = recipients
	m.notify(ctx, n)
	return event, nil
}

// Delete removes an event in any state together with its responses.
func (m *Manager) Delete(ctx context.Context, actor Actor, eventID snowflake.ID) error {
	unlock := m.locks.Lock(eventID)
	defer unlock()

	event, err := m.repository.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if !actor.canManage(event) {
		return &PermissionError{Action: "delete"}
	}

	if err := m.repository.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	// The repository removed the responses with the event. This sweep only
	// matters for stores that keep responses apart.
	if err := m.responses.RemoveAllResponses(ctx, eventID); err != nil {
		slog.Warn("Failed to sweep responses of deleted event",
			slog.String("type", "db"),
			slog.String("event_id", eventID.String()),
			slog.Any("error", err),
		)
	}

	metrics.Transitions.WithLabelValues("deleted").Inc()
	slog.Info("Event deleted",
		slog.String("type", "sys"),
		slog.String("event_id", eventID.String()),
		slog.String("previous_status", string(event.Status)),
	)
	return nil
}

func (m *Manager) Get(ctx context.Context, eventID snowflake.ID) (*Event, error) {
	return m.repository.Get(ctx, eventID)
}

// List returns a guild's events, newest first. No statuses means all.
func (m *Manager) List(ctx context.Context, guildID snowflake.ID, statuses ...Status) ([]*Event, error) {
	return m.repository.ListByGuild(ctx, guildID, statuses...)
}

// IsActive reports whether deliveries for the event should still happen.
// Deleted and canceled events are inactive.
func (m *Manager) IsActive(ctx context.Context, eventID snowflake.ID) (bool, error) {
	event, err := m.repository.Get(ctx, eventID)
	if err != nil {
		if errs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return event.Status != StatusCanceled, nil
}

func newNotice(kind notify.Kind, e *Event) notify.Notice {
	return notify.Notice{
		Kind:        kind,
		EventID:     e.ID,
		GuildID:     e.GuildID,
		OrganizerID: e.OrganizerID,
		Name:        e.Name,
	}
}

func openedNotice(e *Event) notify.Notice {
	n := newNotice(notify.KindOpened, e)
	n.Slots = make([]time.Time, 0, len(e.Slots))
	for _, slot := range e.Slots {
		n.Slots = append(n.Slots, slot.Start)
	}
	return n
}

// recipients lists who hears about changes to e: every respondent and the
// organizer, except actor.
func (m *Manager) recipients(ctx context.Context, e *Event, actor Actor) ([]snowflake.ID, error) {
	responses, err := m.responses.GetResponses(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	users := responses.Users()
	if !slices.Contains(users, e.OrganizerID) {
		users = append(users, e.OrganizerID)
	}
	return slices.DeleteFunc(users, func(id snowflake.ID) bool { return id == actor.UserID }), nil
}

// notifyChanged sends a changed notice when anyone besides actor cares.
func (m *Manager) notifyChanged(ctx context.Context, actor Actor, e *Event, changes string) {
	if changes == "" {
		return
	}
	recipients, err := m.recipients(ctx, e, actor)
	if err != nil {
		slog.Error("Failed to collect notice recipients",
			slog.String("type", "error"),
			slog.String("event_id", e.ID.String()),
			slog.Any("error", err),
		)
		return
	}
	if len(recipients) == 0 {
		return
	}
	n := newNotice(notify.KindChanged, e)
	n.Changes = changes
	n.Participants = recipients
	m.notify(ctx, n)
}

// notify hands n to the dispatcher. Failures never undo the transition
// that produced the notice.
func (m *Manager) notify(ctx context.Context, n notify.Notice) {
	if err := m.dispatcher.Dispatch(ctx, n); err != nil {
		metrics.DispatchFailures.Inc()
		slog.Error("Failed to hand off event notice",
			slog.String("type", "error"),
			slog.String("event_id", n.EventID.String()),
			slog.String("kind", string(n.Kind)),
			slog.Any("error", err),
		)
	}
}
