package guilds

import (
	"fmt"

	"github.com/huddle-bot/huddle/internal/domain/errs"
)

// LevelError is returned when a member's level is below what an action needs.
type LevelError struct {
	Required Level
	Action   string
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("%s requires level %s", e.Action, e.Required)
}

func (e *LevelError) Kind() errs.Kind { return errs.KindPermission }

func (e *LevelError) UserMessage() string {
	return fmt.Sprintf("You need **%s** permissions to %s.", e.Required, e.Action)
}

// Require returns a *LevelError when have is below want.
func Require(have, want Level, action string) error {
	if have >= want {
		return nil
	}
	return &LevelError{Required: want, Action: action}
}
