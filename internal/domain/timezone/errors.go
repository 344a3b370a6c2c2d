package timezone

import (
	"fmt"
	"time"

	"github.com/huddle-bot/huddle/internal/domain/errs"
)

// InvalidZoneError is returned for identifiers the tz database does not know.
type InvalidZoneError struct {
	Zone string
	Err  error
}

func (e *InvalidZoneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid time zone %q: %v", e.Zone, e.Err)
	}
	return fmt.Sprintf("invalid time zone %q", e.Zone)
}

func (e *InvalidZoneError) Unwrap() error { return e.Err }

func (e *InvalidZoneError) Kind() errs.Kind { return errs.KindValidation }

func (e *InvalidZoneError) UserMessage() string {
	return fmt.Sprintf("`%s` is not a time zone I know. Try something like `America/New_York` or `Europe/Berlin`.", e.Zone)
}

// NonexistentLocalTimeError is returned when a wall clock time is skipped by a
// daylight saving transition.
type NonexistentLocalTimeError struct {
	Local LocalTime
	Zone  string
}

func (e *NonexistentLocalTimeError) Error() string {
	return fmt.Sprintf("local time %s does not exist in %s", e.Local, e.Zone)
}

func (e *NonexistentLocalTimeError) Kind() errs.Kind { return errs.KindValidation }

func (e *NonexistentLocalTimeError) UserMessage() string {
	return fmt.Sprintf("%s does not exist in %s because the clocks jump forward. Pick another time.", e.Local, e.Zone)
}

// AmbiguousLocalTimeError is returned alongside the earlier instant when a wall
// clock time happens twice because of a daylight saving fold.
type AmbiguousLocalTimeError struct {
	Local   LocalTime
	Zone    string
	Earlier time.Time
	Later   time.Time
}

func (e *AmbiguousLocalTimeError) Error() string {
	return fmt.Sprintf("local time %s is ambiguous in %s (%s or %s)",
		e.Local, e.Zone, e.Earlier.Format(time.RFC3339), e.Later.Format(time.RFC3339))
}

func (e *AmbiguousLocalTimeError) Kind() errs.Kind { return errs.KindValidation }

func (e *AmbiguousLocalTimeError) UserMessage() string {
	return fmt.Sprintf("%s happens twice in %s, the earlier one was used.", e.Local, e.Zone)
}

type notSetError struct{}

func (notSetError) Error() string { return "time zone not set" }

func (notSetError) Kind() errs.Kind { return errs.KindValidation }

func (notSetError) UserMessage() string {
	return "You have not set a time zone yet. Use `/timezone set` first."
}

// ErrNotSet is returned when a user has no time zone preference.
var ErrNotSet error = notSetError{}
