package timezone

import (
	"fmt"
	"strings"
	"time"

	"github.com/huddle-bot/huddle/internal/domain/errs"
)

// LocalTime is a wall clock reading with no zone attached.
type LocalTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

var localLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 3:04PM",
	"2006-01-02 3PM",
	"2006-01-02T15:04",
	"01/02/06 3PM",
	"01/02/06 3:04PM",
}

// ParseLocalTime reads user input such as "2025-03-14 18:30" or "2025-03-14 6PM".
func ParseLocalTime(s string) (LocalTime, error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	s = strings.ReplaceAll(s, " PM", "PM")
	s = strings.ReplaceAll(s, " AM", "AM")

	for _, layout := range localLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return LocalTimeOf(t), nil
		}
	}
	return LocalTime{}, errs.Validation("time", "could not read %q, use YYYY-MM-DD HH:MM", s)
}

// LocalTimeOf returns the wall clock reading of t in its own location.
func LocalTimeOf(t time.Time) LocalTime {
	return LocalTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// Validate rejects readings such as February 30 or 25:00.
func (l LocalTime) Validate() error {
	if LocalTimeOf(l.asUTC()) != l {
		return errs.Validation("time", "%04d-%02d-%02d %02d:%02d is not a real date", l.Year, int(l.Month), l.Day, l.Hour, l.Minute)
	}
	return nil
}

func (l LocalTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", l.Year, int(l.Month), l.Day, l.Hour, l.Minute)
}

// Format renders l with a 24 or 12 hour clock. Both forms parse back with
// ParseLocalTime.
func (l LocalTime) Format(use24Hour bool) string {
	if use24Hour {
		return l.String()
	}
	return l.asUTC().Format("2006-01-02 3:04PM")
}

// asUTC interprets the wall clock reading as if it were UTC.
func (l LocalTime) asUTC() time.Time {
	return time.Date(l.Year, l.Month, l.Day, l.Hour, l.Minute, 0, 0, time.UTC)
}
