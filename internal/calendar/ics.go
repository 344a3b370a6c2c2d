// Package calendar exports events as iCalendar files.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/huddle-bot/huddle/internal/domain/events"
)

const productID = "-//Huddle//Scheduling Assistant//EN"

// ContentType is the MIME type of Export's output.
const ContentType = "text/calendar; charset=utf-8"

// Exporter renders events as ICS documents.
type Exporter struct {
	// Domain suffixes event UIDs, e.g. "huddle.bot".
	Domain string
}

func NewExporter(domain string) *Exporter {
	if domain == "" {
		domain = "huddle.local"
	}
	return &Exporter{Domain: domain}
}

// Export writes a closed event as one confirmed VEVENT and a draft or open
// event as one tentative VEVENT per candidate slot.
func (x *Exporter) Export(event *events.Event, stamp time.Time) ([]byte, error) {
	if event.Status == events.StatusCanceled {
		return nil, &events.StateConflictError{EventID: event.ID, State: event.Status, Action: "export"}
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(event.Name)

	if slot, ok := event.FinalSlot(); ok {
		x.addSlot(cal, event, slot, event.Name, ical.ObjectStatusConfirmed, stamp)
		return []byte(cal.Serialize()), nil
	}

	for i, slot := range event.Slots {
		summary := fmt.Sprintf("%s (option %d of %d)", event.Name, i+1, len(event.Slots))
		x.addSlot(cal, event, slot, summary, ical.ObjectStatusTentative, stamp)
	}
	return []byte(cal.Serialize()), nil
}

func (x *Exporter) addSlot(cal *ical.Calendar, event *events.Event, slot events.Slot, summary string, status ical.ObjectStatus, stamp time.Time) {
	vevent := cal.AddEvent(x.uid(event, slot))
	vevent.SetDtStampTime(stamp.UTC())
	vevent.SetCreatedTime(event.CreatedAt.UTC())
	vevent.SetModifiedAt(event.UpdatedAt.UTC())
	vevent.SetStartAt(slot.Start.UTC())
	vevent.SetEndAt(slot.End().UTC())
	vevent.SetSummary(summary)
	if description := strings.TrimSpace(event.Description); description != "" {
		vevent.SetDescription(description)
	}
	vevent.SetStatus(status)
}

func (x *Exporter) uid(event *events.Event, slot events.Slot) string {
	return fmt.Sprintf("%s-%d@%s", event.ID, slot.ID, x.Domain)
}

// FileName is a filesystem safe name for the event's export.
func FileName(event *events.Event) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, event.Name)
	name = strings.Trim(name, "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	if name == "" {
		name = "event"
	}
	return fmt.Sprintf("%s-%s.ics", name, event.ID)
}
