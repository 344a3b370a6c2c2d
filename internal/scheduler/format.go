package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
)

// ParseEventID reads the event option, which autocomplete fills with an ID.
func ParseEventID(s string) (snowflake.ID, error) {
	id, err := snowflake.Parse(strings.TrimSpace(s))
	if err != nil || id == 0 {
		return 0, errs.Validation("event", "pick an event from the suggestions")
	}
	return id, nil
}

// ParseSlotIDs reads a slot selection such as "1, 3 5-7". "none" or an empty
// string select nothing.
func ParseSlotIDs(s string) (overlap.SlotSet, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	set := overlap.NewSlotSet()
	if s == "" || s == "none" {
		return set, nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	for _, field := range fields {
		field = strings.TrimPrefix(field, "#")
		lo, hi, isRange := strings.Cut(field, "-")
		first, err := parseSlotID(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parseSlotID(hi); err != nil {
				return nil, err
			}
			if last < first {
				return nil, errs.Validation("slots", "range %s is backwards", field)
			}
			if last-first > 100 {
				return nil, errs.Validation("slots", "range %s is too large", field)
			}
		}
		for id := first; id <= last; id++ {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

func parseSlotID(s string) (overlap.SlotID, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || n < 1 {
		return 0, errs.Validation("slots", "%q is not a slot number", s)
	}
	return overlap.SlotID(n), nil
}

// ParseProposals reads times separated by semicolons or new lines, each in
// the proposer's wall clock.
func ParseProposals(s string, duration time.Duration) ([]events.SlotProposal, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\n' || r == '|' })

	var out []events.SlotProposal
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		local, err := timezone.ParseLocalTime(part)
		if err != nil {
			return nil, err
		}
		if err := local.Validate(); err != nil {
			return nil, err
		}
		out = append(out, events.SlotProposal{Start: local, Duration: duration})
	}
	if len(out) == 0 {
		return nil, errs.Validation("slots", "propose at least one time, e.g. 2025-03-14 18:30")
	}
	return out, nil
}

// ParseMinutes reads a duration given in minutes. Empty means the default.
func ParseMinutes(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 24*60 {
		return 0, errs.Validation("duration", "must be a number of minutes up to 1440")
	}
	return time.Duration(n) * time.Minute, nil
}

// Timestamp renders t so each viewer's client shows it in their own zone.
func Timestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:F>", t.Unix())
}

func Mention(id snowflake.ID) string {
	return "<@" + id.String() + ">"
}

func mentions(ids []snowflake.ID, limit int) string {
	if len(ids) == 0 {
		return "nobody"
	}
	parts := make([]string, 0, min(len(ids), limit))
	for i, id := range ids {
		if i == limit {
			parts = append(parts, fmt.Sprintf("and %d more", len(ids)-limit))
			break
		}
		parts = append(parts, Mention(id))
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "open ended"
	}
	h, m := int(d.Hours()), int(d.Minutes())%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// FormatSlot is one line describing a slot.
func FormatSlot(slot events.Slot) string {
	line := fmt.Sprintf("`#%d` %s · %s", slot.ID, Timestamp(slot.Start), formatDuration(slot.Duration))
	if slot.Ambiguous {
		line += " ⚠️ repeated local time, earlier one used"
	}
	return line
}

func formatSlots(slots []events.Slot) string {
	lines := make([]string, 0, len(slots))
	for _, slot := range slots {
		lines = append(lines, FormatSlot(slot))
	}
	return strings.Join(lines, "\n")
}

func formatSlotSet(set overlap.SlotSet) string {
	ids := set.Sorted()
	if len(ids) == 0 {
		return "none of the times"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("#%d", id))
	}
	return strings.Join(parts, ", ")
}

var statusLabels = map[events.Status]string{
	events.StatusDraft:    "📝 Draft",
	events.StatusOpen:     "🟢 Open",
	events.StatusClosed:   "✅ Finalized",
	events.StatusCanceled: "🚫 Canceled",
}

func statusLabel(s events.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func ambiguousCount(slots []events.Slot) int {
	n := 0
	for _, slot := range slots {
		if slot.Ambiguous {
			n++
		}
	}
	return n
}
