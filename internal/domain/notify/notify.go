// Package notify defines how event notices leave the core. Delivery and
// reminder timing belong to the Dispatcher implementations.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type Kind string

const (
	KindOpened    Kind = "opened"
	KindChanged   Kind = "changed"
	KindCanceled  Kind = "canceled"
	KindFinalized Kind = "finalized"
)

// Notice tells participants and the guild's bulletin channel about an
// event. Start and Duration describe the chosen slot of a finalized event;
// Slots lists the proposed times of an opened one.
type Notice struct {
	Kind         Kind           `json:"kind"`
	EventID      snowflake.ID   `json:"event_id"`
	GuildID      snowflake.ID   `json:"guild_id"`
	OrganizerID  snowflake.ID   `json:"organizer_id"`
	Name         string         `json:"name"`
	Start        time.Time      `json:"start,omitzero"`
	Duration     time.Duration  `json:"duration_ns,omitempty"`
	Slots        []time.Time    `json:"slots,omitempty"`
	Changes      string         `json:"changes,omitempty"`
	Participants []snowflake.ID `json:"participants"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n Notice) error
}

// ActivityChecker lets a dispatcher drop deliveries for canceled or deleted events.
type ActivityChecker interface {
	IsActive(ctx context.Context, eventID snowflake.ID) (bool, error)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Dispatch(context.Context, Notice) error { return nil }

// Multi hands a notice to every dispatcher. It fails only when all of them
// fail, so a retry never repeats a delivery that already happened. Partial
// failures are logged.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, n Notice) error {
	var failures []error
	for _, d := range m {
		if err := d.Dispatch(ctx, n); err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	if len(failures) == len(m) {
		return errors.Join(failures...)
	}
	slog.Warn("Notice partially delivered",
		slog.String("type", "error"),
		slog.String("event_id", n.EventID.String()),
		slog.String("kind", string(n.Kind)),
		slog.Int("failed", len(failures)),
		slog.Int("dispatchers", len(m)),
		slog.Any("error", errors.Join(failures...)),
	)
	return nil
}
