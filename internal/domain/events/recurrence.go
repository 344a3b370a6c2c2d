package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/teambition/rrule-go"
)

type RecurringInput struct {
	CreateInput
	First    timezone.LocalTime
	Duration time.Duration
	// Rule is an RFC 5545 RRULE body such as "FREQ=WEEKLY;COUNT=4".
	Rule string
}

// CreateRecurring creates an event whose slots are the occurrences of an
// RRULE starting at First. Premium guilds only.
func (m *Manager) CreateRecurring(ctx context.Context, in RecurringInput) (*Event, error) {
	if err := m.validateDetails(in.Name, in.Description); err != nil {
		return nil, err
	}

	gateCtx, cancel := context.WithTimeout(ctx, m.cfg.GateTimeout)
	premium, err := m.gate.IsPremium(gateCtx, in.GuildID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to check premium status: %w", err)
	}
	if !premium {
		return nil, &PremiumRequiredError{Feature: "Recurring events"}
	}

	starts, err := m.expandRule(in.First, in.Zone, in.Rule)
	if err != nil {
		return nil, err
	}

	proposals := make([]SlotProposal, 0, len(starts))
	for _, start := range starts {
		proposals = append(proposals, SlotProposal{Start: start, Duration: in.Duration})
	}
	slots, err := m.convertSlots(in.Zone, proposals, 1, nil)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, in.CreateInput, slots, normalizeRule(in.Rule))
}

// expandRule returns up to MaxSlots wall clock occurrences of rule. The rule
// is evaluated in the proposer's zone so occurrences keep their local time
// across daylight saving changes.
func (m *Manager) expandRule(first timezone.LocalTime, zone, rule string) ([]timezone.LocalTime, error) {
	loc, err := m.normalizer.Location(zone)
	if err != nil {
		return nil, err
	}
	if err := first.Validate(); err != nil {
		return nil, err
	}

	r, err := rrule.StrToRRule(normalizeRule(rule))
	if err != nil {
		return nil, errs.Validation("rule", "%v", err)
	}
	r.DTStart(time.Date(first.Year, first.Month, first.Day, first.Hour, first.Minute, 0, 0, loc))

	var out []timezone.LocalTime
	next := r.Iterator()
	for t, ok := next(); ok && len(out) < m.cfg.MaxSlots; t, ok = next() {
		out = append(out, timezone.LocalTimeOf(t.In(loc)))
	}
	if len(out) == 0 {
		return nil, errs.Validation("rule", "produces no occurrences")
	}
	return out, nil
}

func normalizeRule(rule string) string {
	rule = strings.TrimSpace(rule)
	rule = strings.TrimPrefix(strings.ToUpper(rule), "RRULE:")
	return rule
}
