package repositories

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

// EventRepository implements events.Repository. Slots live in their own
// table and are rewritten with the event in one transaction.
type EventRepository struct {
	*BaseRepository
}

func NewEventRepository(db *bun.DB) *EventRepository {
	return &EventRepository{BaseRepository: NewBaseRepository(db)}
}

var _ events.Repository = (*EventRepository)(nil)

func (r *EventRepository) Create(ctx context.Context, event *events.Event) error {
	m := eventModel(event)
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return err
		}
		return insertSlots(ctx, tx, m.Slots)
	})
	return r.HandleErrorWithID("create", "event", event.ID, err)
}

func (r *EventRepository) Get(ctx context.Context, id snowflake.ID) (*events.Event, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	m := new(models.Event)
	err := r.db.NewSelect().
		Model(m).
		Relation("Slots", orderSlots).
		Where("e.id = ?", int64(id)).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "event", id, err)
	}
	return toEvent(m), nil
}

func (r *EventRepository) Update(ctx context.Context, event *events.Event) error {
	m := eventModel(event)
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(m).
			ExcludeColumn("created_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &errs.NotFoundError{Resource: "event", ID: event.ID.String()}
		}

		if _, err := tx.NewDelete().
			Model((*models.Slot)(nil)).
			Where("event_id = ?", m.ID).
			Exec(ctx); err != nil {
			return err
		}
		return insertSlots(ctx, tx, m.Slots)
	})
	if errs.IsNotFound(err) {
		return err
	}
	return r.HandleErrorWithID("update", "event", event.ID, err)
}

// Delete removes the event with its slots and responses.
func (r *EventRepository) Delete(ctx context.Context, id snowflake.ID) error {
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range []interface{}{(*models.Response)(nil), (*models.Slot)(nil)} {
			if _, err := tx.NewDelete().Model(model).Where("event_id = ?", int64(id)).Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewDelete().Model((*models.Event)(nil)).Where("id = ?", int64(id)).Exec(ctx)
		return err
	})
	if err != nil {
		slog.Error("Failed to delete event",
			slog.String("type", "db"),
			slog.String("event_id", id.String()),
			slog.Any("error", err),
		)
	}
	return r.HandleErrorWithID("delete", "event", id, err)
}

// ListByGuild returns the guild's events, newest first.
func (r *EventRepository) ListByGuild(ctx context.Context, guildID snowflake.ID, statuses ...events.Status) ([]*events.Event, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.Event
	q := r.db.NewSelect().
		Model(&rows).
		Relation("Slots", orderSlots).
		Where("e.guild_id = ?", int64(guildID)).
		OrderExpr("e.created_at DESC, e.id DESC")
	if len(statuses) > 0 {
		q = q.Where("e.status IN (?)", bun.In(statuses))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, r.HandleError("list", "event", err)
	}

	out := make([]*events.Event, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEvent(m))
	}
	return out, nil
}

func (r *EventRepository) CountActive(ctx context.Context, guildID snowflake.ID) (int, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	count, err := r.db.NewSelect().
		Model((*models.Event)(nil)).
		Where("guild_id = ?", int64(guildID)).
		Where("status IN (?)", bun.In([]events.Status{events.StatusDraft, events.StatusOpen})).
		Count(ctx)
	return count, r.HandleError("count_active", "event", err)
}

func insertSlots(ctx context.Context, tx bun.Tx, slots []*models.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	_, err := tx.NewInsert().Model(&slots).Exec(ctx)
	return err
}

func orderSlots(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("position ASC")
}
