// Package legacy imports data written by the earlier JSON based bot.
package legacy

import (
	"fmt"
	"time"
)

// The legacy files store slots in UTC as "Monday, 03/10/25 at 06PM" and
// availability as date -> hour -> users.
const (
	slotLayout      = "Monday, 01/02/06 at 3PM"
	availDateLayout = "Monday, 01/02/06"
	availHourLayout = "3PM"
	confirmedLayout = "01/02/06"
)

// legacyGuild is one top level entry of events.json.
type legacyGuild struct {
	Events map[string]legacyEvent `bson:"events"`
}

type legacyEvent struct {
	EventID       string                         `bson:"event_id"`
	Name          string                         `bson:"event_name"`
	Description   string                         `bson:"description"`
	Organizer     string                         `bson:"organizer"`
	ConfirmedDate string                         `bson:"confirmed_date"`
	Slots         []string                       `bson:"slots"`
	Availability  map[string]map[string][]string `bson:"availability"`
}

// Issue is a record that was skipped or imported with a problem.
type Issue struct {
	Record string
	Reason string
}

type Stats struct {
	Kind      string
	Processed int
	Imported  int
	Skipped   int
	Issues    []Issue
	StartTime time.Time
	EndTime   time.Time
}

func (s *Stats) skip(record, format string, args ...any) {
	s.Skipped++
	s.note(record, format, args...)
}

func (s *Stats) note(record, format string, args ...any) {
	s.Issues = append(s.Issues, Issue{Record: record, Reason: fmt.Sprintf(format, args...)})
}
