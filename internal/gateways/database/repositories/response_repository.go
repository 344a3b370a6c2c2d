package repositories

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/availability"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

// ResponseRepository implements availability.Repository with one row per
// participant and event.
type ResponseRepository struct {
	*BaseRepository
}

func NewResponseRepository(db *bun.DB) *ResponseRepository {
	return &ResponseRepository{BaseRepository: NewBaseRepository(db)}
}

var _ availability.Repository = (*ResponseRepository)(nil)

func (r *ResponseRepository) Replace(ctx context.Context, eventID, userID snowflake.ID, slots overlap.SlotSet) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	row := &models.Response{
		EventID:   int64(eventID),
		UserID:    int64(userID),
		SlotIDs:   slotIDs(slots),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (event_id, user_id) DO UPDATE").
		Set("slot_ids = EXCLUDED.slot_ids").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return r.HandleErrorWithID("replace", "response", eventID, err)
}

func (r *ResponseRepository) Remove(ctx context.Context, eventID, userID snowflake.ID) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewDelete().
		Model((*models.Response)(nil)).
		Where("event_id = ?", int64(eventID)).
		Where("user_id = ?", int64(userID)).
		Exec(ctx)
	return r.HandleErrorWithID("remove", "response", eventID, err)
}

func (r *ResponseRepository) RemoveAll(ctx context.Context, eventID snowflake.ID) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewDelete().
		Model((*models.Response)(nil)).
		Where("event_id = ?", int64(eventID)).
		Exec(ctx)
	return r.HandleErrorWithID("remove_all", "response", eventID, err)
}

func (r *ResponseRepository) List(ctx context.Context, eventID snowflake.ID) (overlap.Responses, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []models.Response
	err := r.db.NewSelect().
		Model(&rows).
		Where("event_id = ?", int64(eventID)).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("list", "response", eventID, err)
	}
	return toResponses(rows), nil
}

// PruneSlot drops slotID from every response of the event. Participants
// keep their row even when nothing is left.
func (r *ResponseRepository) PruneSlot(ctx context.Context, eventID snowflake.ID, slotID overlap.SlotID) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.NewUpdate().
		Model((*models.Response)(nil)).
		Set("slot_ids = array_remove(slot_ids, ?)", int64(slotID)).
		Where("event_id = ?", int64(eventID)).
		Exec(ctx)
	return r.HandleErrorWithID("prune_slot", "response", eventID, err)
}
