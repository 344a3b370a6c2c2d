package repositories

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/gateways/database/models"
)

func eventModel(e *events.Event) *models.Event {
	return &models.Event{
		ID:          int64(e.ID),
		GuildID:     int64(e.GuildID),
		OrganizerID: int64(e.OrganizerID),
		Name:        e.Name,
		Description: e.Description,
		Status:      string(e.Status),
		NextSlotID:  int(e.NextSlotID),
		FinalSlotID: int(e.FinalSlotID),
		Recurrence:  e.Recurrence,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		Slots:       slotModels(e),
	}
}

func slotModels(e *events.Event) []*models.Slot {
	out := make([]*models.Slot, 0, len(e.Slots))
	for i, slot := range e.Slots {
		out = append(out, &models.Slot{
			EventID:   int64(e.ID),
			SlotID:    int(slot.ID),
			Position:  i,
			StartAt:   slot.Start.UTC(),
			Duration:  int64(slot.Duration / time.Second),
			Ambiguous: slot.Ambiguous,
		})
	}
	return out
}

// toEvent expects m.Slots ordered by position.
func toEvent(m *models.Event) *events.Event {
	e := &events.Event{
		ID:          snowflake.ID(m.ID),
		GuildID:     snowflake.ID(m.GuildID),
		OrganizerID: snowflake.ID(m.OrganizerID),
		Name:        m.Name,
		Description: m.Description,
		Status:      events.Status(m.Status),
		NextSlotID:  overlap.SlotID(m.NextSlotID),
		FinalSlotID: overlap.SlotID(m.FinalSlotID),
		Recurrence:  m.Recurrence,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	for _, s := range m.Slots {
		e.Slots = append(e.Slots, events.Slot{
			ID:        overlap.SlotID(s.SlotID),
			Start:     s.StartAt.UTC(),
			Duration:  time.Duration(s.Duration) * time.Second,
			Ambiguous: s.Ambiguous,
		})
	}
	return e
}

func slotIDs(set overlap.SlotSet) []int64 {
	out := make([]int64, 0, len(set))
	for _, id := range set.Sorted() {
		out = append(out, int64(id))
	}
	return out
}

func toResponses(rows []models.Response) overlap.Responses {
	out := make(overlap.Responses, len(rows))
	for _, row := range rows {
		set := overlap.NewSlotSet()
		for _, id := range row.SlotIDs {
			set[overlap.SlotID(id)] = struct{}{}
		}
		out[snowflake.ID(row.UserID)] = set
	}
	return out
}

func subscriptionModel(s *entitlements.Subscription) *models.Subscription {
	return &models.Subscription{
		GuildID:   int64(s.GuildID),
		Tier:      string(s.Tier),
		RenewsAt:  s.RenewsAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toSubscription(m *models.Subscription) *entitlements.Subscription {
	sub := &entitlements.Subscription{
		GuildID:   snowflake.ID(m.GuildID),
		Tier:      entitlements.Tier(m.Tier),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
	if !m.RenewsAt.IsZero() {
		sub.RenewsAt = m.RenewsAt.UTC()
	}
	return sub
}

func guildSettingsModel(s *guilds.Settings) *models.GuildSettings {
	return &models.GuildSettings{
		GuildID:           int64(s.GuildID),
		AdminRoles:        roleIDs(s.AdminRoles),
		OrganizerRoles:    roleIDs(s.OrganizerRoles),
		AttendeeRoles:     roleIDs(s.AttendeeRoles),
		BulletinChannelID: int64(s.BulletinChannelID),
		Use24Hour:         s.Use24Hour,
		UpdatedAt:         s.UpdatedAt,
	}
}

func toGuildSettings(m *models.GuildSettings) *guilds.Settings {
	return &guilds.Settings{
		GuildID:           snowflake.ID(m.GuildID),
		AdminRoles:        toRoleIDs(m.AdminRoles),
		OrganizerRoles:    toRoleIDs(m.OrganizerRoles),
		AttendeeRoles:     toRoleIDs(m.AttendeeRoles),
		BulletinChannelID: snowflake.ID(m.BulletinChannelID),
		Use24Hour:         m.Use24Hour,
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

func roleIDs(ids []snowflake.ID) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func toRoleIDs(ids []int64) []snowflake.ID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		out = append(out, snowflake.ID(id))
	}
	return out
}
