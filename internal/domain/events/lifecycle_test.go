package events_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/huddle-bot/huddle/internal/clock"
	"github.com/huddle-bot/huddle/internal/domain/availability"
	"github.com/huddle-bot/huddle/internal/domain/errs"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/domain/events/mock"
	"github.com/huddle-bot/huddle/internal/domain/guilds"
	"github.com/huddle-bot/huddle/internal/domain/notify"
	"github.com/huddle-bot/huddle/internal/domain/overlap"
	"github.com/huddle-bot/huddle/internal/domain/timezone"
	"github.com/huddle-bot/huddle/internal/gateways/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	guildID     = snowflake.ID(9000)
	organizerID = snowflake.ID(1)
	otherUserID = snowflake.ID(2)
)

var (
	organizer = events.Actor{UserID: organizerID, Level: guilds.LevelOrganizer}
	admin     = events.Actor{UserID: otherUserID, Level: guilds.LevelAdmin}
)

// kindIs matches notices of the listed kinds.
type kindIs []notify.Kind

func (k kindIs) Matches(x any) bool {
	n, ok := x.(notify.Notice)
	return ok && slices.Contains(k, n.Kind)
}

func (k kindIs) String() string {
	return fmt.Sprintf("is a notice of kind %v", []notify.Kind(k))
}

type fixture struct {
	manager    *events.Manager
	repo       *memory.EventRepository
	store      *availability.Service
	gate       *mock.MockGate
	dispatcher *mock.MockDispatcher
	clock      *clock.Manual
	// notices collects every notice except finalized ones, which tests
	// expect explicitly.
	notices []notify.Notice
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	normalizer, err := timezone.NewNormalizer(16)
	require.NoError(t, err)

	repo, responses := memory.NewEventStore()
	locks := events.NewLocks()
	store := availability.NewService(responses, repo, locks)
	gate := mock.NewMockGate(ctrl)
	dispatcher := mock.NewMockDispatcher(ctrl)
	clk := clock.NewManual(time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC))

	f := &fixture{
		manager:    events.NewManager(repo, store, gate, dispatcher, normalizer, locks, clk, events.DefaultConfig()),
		repo:       repo,
		store:      store,
		gate:       gate,
		dispatcher: dispatcher,
		clock:      clk,
	}
	dispatcher.EXPECT().
		Dispatch(gomock.Any(), kindIs{notify.KindOpened, notify.KindChanged, notify.KindCanceled}).
		DoAndReturn(func(_ context.Context, n notify.Notice) error {
			f.notices = append(f.notices, n)
			return nil
		}).
		AnyTimes()
	return f
}

// noticesOf returns the collected notices of kind.
func (f *fixture) noticesOf(kind notify.Kind) []notify.Notice {
	var out []notify.Notice
	for _, n := range f.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func proposals(starts ...string) []events.SlotProposal {
	out := make([]events.SlotProposal, 0, len(starts))
	for _, s := range starts {
		local, err := timezone.ParseLocalTime(s)
		if err != nil {
			panic(err)
		}
		out = append(out, events.SlotProposal{Start: local, Duration: time.Hour})
	}
	return out
}

func (f *fixture) create(t *testing.T, name string, open bool) *events.Event {
	t.Helper()
	event, err := f.manager.Create(context.Background(), events.CreateInput{
		GuildID:   guildID,
		Organizer: organizer,
		Name:      name,
		Zone:      "UTC",
		Slots:     proposals("2025-03-10 18:00", "2025-03-11 18:00", "2025-03-12 18:00"),
		Open:      open,
	})
	require.NoError(t, err)
	return event
}

func TestManager_CreateEnforcesQuota(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil).Times(3)
	f.gate.EXPECT().IsPremium(gomock.Any(), guildID).Return(false, nil)

	f.create(t, "Raid night", true)
	f.create(t, "Board games", true)

	_, err := f.manager.Create(context.Background(), events.CreateInput{
		GuildID:   guildID,
		Organizer: organizer,
		Name:      "Movie night",
		Zone:      "UTC",
		Slots:     proposals("2025-03-15 20:00"),
		Open:      true,
	})

	var quota *events.QuotaExceededError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, 2, quota.Count)
	assert.Equal(t, 2, quota.Limit)
	assert.False(t, quota.Premium)
	assert.Equal(t, errs.KindQuota, errs.KindOf(err))
}

func TestManager_CreateFreesQuotaAfterCancel(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(1, nil).Times(2)

	first := f.create(t, "First", false)
	_, err := f.manager.Cancel(context.Background(), organizer, first.ID)
	require.NoError(t, err)

	f.create(t, "Second", false)
}

func TestManager_CreateFallsBackWhenGateFails(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(0, errors.New("gate down")).Times(3)
	f.gate.EXPECT().IsPremium(gomock.Any(), guildID).Return(false, errors.New("gate down"))

	f.create(t, "One", false)
	f.create(t, "Two", false)

	_, err := f.manager.Create(context.Background(), events.CreateInput{
		GuildID: guildID, Organizer: organizer, Name: "Three", Zone: "UTC",
		Slots: proposals("2025-03-20 10:00"),
	})
	var quota *events.QuotaExceededError
	require.ErrorAs(t, err, &quota)
	assert.Equal(t, events.DefaultConfig().FallbackQuota, quota.Limit)
}

func TestManager_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      events.CreateInput
		wantErr any
	}{
		{
			name:    "empty name",
			in:      events.CreateInput{Name: "  ", Zone: "UTC", Slots: proposals("2025-03-10 18:00")},
			wantErr: &errs.ValidationError{},
		},
		{
			name:    "no slots",
			in:      events.CreateInput{Name: "Chess", Zone: "UTC"},
			wantErr: &errs.ValidationError{},
		},
		{
			name:    "duplicate slot",
			in:      events.CreateInput{Name: "Chess", Zone: "UTC", Slots: proposals("2025-03-10 18:00", "2025-03-10 6PM")},
			wantErr: &errs.ValidationError{},
		},
		{
			name:    "bad zone",
			in:      events.CreateInput{Name: "Chess", Zone: "Moon/Base", Slots: proposals("2025-03-10 18:00")},
			wantErr: &timezone.InvalidZoneError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.in.GuildID = guildID
			tt.in.Organizer = organizer
			_, err := f.manager.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
		})
	}
}

func TestManager_CreateConvertsFromOrganizerZone(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)

	event, err := f.manager.Create(context.Background(), events.CreateInput{
		GuildID:   guildID,
		Organizer: organizer,
		Name:      "Standup",
		Zone:      "America/New_York",
		Slots:     proposals("2025-01-15 09:00", "2024-11-03 01:30"),
	})
	require.NoError(t, err)

	require.Len(t, event.Slots, 2)
	assert.Equal(t, time.Date(2025, time.January, 15, 14, 0, 0, 0, time.UTC), event.Slots[0].Start)
	assert.False(t, event.Slots[0].Ambiguous)
	assert.Equal(t, time.Date(2024, time.November, 3, 5, 30, 0, 0, time.UTC), event.Slots[1].Start)
	assert.True(t, event.Slots[1].Ambiguous)
	assert.Equal(t, []overlap.SlotID{1, 2}, event.SlotIDs())
	assert.Equal(t, events.StatusDraft, event.Status)
}

func TestManager_FinalizeRejectsUnknownSlot(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", true)

	_, err := f.manager.Finalize(context.Background(), organizer, event.ID, 42)

	var invalid *events.InvalidSlotSelectionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, overlap.SlotID(42), invalid.SlotID)

	stored, err := f.manager.Get(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, events.StatusOpen, stored.Status)
	assert.Zero(t, stored.FinalSlotID)
}

func TestManager_FinalizeDispatchesParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", true)

	require.NoError(t, f.store.SetResponse(ctx, event.ID, 20, overlap.NewSlotSet(1, 2)))
	require.NoError(t, f.store.SetResponse(ctx, event.ID, 10, overlap.NewSlotSet(2)))
	require.NoError(t, f.store.SetResponse(ctx, event.ID, 30, overlap.NewSlotSet(3)))

	var got notify.Notice
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), kindIs{notify.KindFinalized}).
		DoAndReturn(func(_ context.Context, n notify.Notice) error {
			got = n
			return nil
		})

	closed, err := f.manager.Finalize(ctx, organizer, event.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, events.StatusClosed, closed.Status)
	assert.Equal(t, overlap.SlotID(2), closed.FinalSlotID)
	assert.Equal(t, event.ID, got.EventID)
	assert.Equal(t, time.Date(2025, time.March, 11, 18, 0, 0, 0, time.UTC), got.Start)
	assert.Equal(t, []snowflake.ID{10, 20, organizerID}, got.Participants)

	err = f.store.SetResponse(ctx, event.ID, 10, overlap.NewSlotSet(1))
	var closedErr *availability.EventClosedError
	assert.ErrorAs(t, err, &closedErr)
}

func TestManager_FinalizeSurvivesDispatcherFailure(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", true)

	f.dispatcher.EXPECT().Dispatch(gomock.Any(), kindIs{notify.KindFinalized}).Return(errors.New("broker unreachable"))

	closed, err := f.manager.Finalize(context.Background(), organizer, event.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, events.StatusClosed, closed.Status)
}

func TestManager_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		open    bool
		prepare func(f *fixture, id snowflake.ID)
		action  func(f *fixture, id snowflake.ID) error
		wantErr any
		want    events.Status
	}{
		{
			name: "draft to open",
			action: func(f *fixture, id snowflake.ID) error {
				_, err := f.manager.Open(context.Background(), organizer, id)
				return err
			},
			want: events.StatusOpen,
		},
		{
			name: "open twice",
			open: true,
			action: func(f *fixture, id snowflake.ID) error {
				_, err := f.manager.Open(context.Background(), organizer, id)
				return err
			},
			wantErr: &events.StateConflictError{},
			want:    events.StatusOpen,
		},
		{
			name: "finalize draft",
			action: func(f *fixture, id snowflake.ID) error {
				_, err := f.manager.Finalize(context.Background(), organizer, id, 1)
				return err
			},
			wantErr: &events.StateConflictError{},
			want:    events.StatusDraft,
		},
		{
			name: "admin cancels",
			open: true,
			action: func(f *fixture, id snowflake.ID) error {
				_, err := f.manager.Cancel(context.Background(), admin, id)
				return err
			},
			want: events.StatusCanceled,
		},
		{
			name: "stranger cannot cancel",
			open: true,
			action: func(f *fixture, id snowflake.ID) error {
				_, err := f.manager.Cancel(context.Background(), events.Actor{UserID: otherUserID, Level: guilds.LevelOrganizer}, id)
				return err
			},
			wantErr: &events.PermissionError{},
			want:    events.StatusOpen,
		},
		{
			name: "cancel closed event",
			open: true,
			prepare: func(f *fixture, id snowflake.ID) {
				f.dispatcher.EXPECT().Dispatch(gomock.Any(), kindIs{notify.KindFinalized}).Return(nil)
				_, err := f.manager.Finalize(context.Background(), organizer, id, 3)
				if err != nil {
					panic(err)
				}
			},
			action: func(f *fixture, id snowflake.ID) error {
				_, err := f.manager.Cancel(context.Background(), organizer, id)
				return err
			},
			wantErr: &events.StateConflictError{},
			want:    events.StatusClosed,
		},
		{
			name: "edit canceled event",
			prepare: func(f *fixture, id snowflake.ID) {
				if _, err := f.manager.Cancel(context.Background(), organizer, id); err != nil {
					panic(err)
				}
			},
			action: func(f *fixture, id snowflake.ID) error {
				_, err := f.manager.Edit(context.Background(), organizer, id, "New name", "")
				return err
			},
			wantErr: &events.StateConflictError{},
			want:    events.StatusCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(5, nil)
			event := f.create(t, "Game night", tt.open)
			if tt.prepare != nil {
				tt.prepare(f, event.ID)
			}

			err := tt.action(f, event.ID)
			switch want := tt.wantErr.(type) {
			case *events.StateConflictError:
				require.ErrorAs(t, err, &want)
			case *events.PermissionError:
				require.ErrorAs(t, err, &want)
			default:
				require.NoError(t, err)
			}

			stored, err := f.manager.Get(context.Background(), event.ID)
			require.NoError(t, err)
			if stored.Status != tt.want {
				t.Errorf("status got = %v, want %v", stored.Status, tt.want)
			}
		})
	}
}

func TestManager_DeleteCascadesResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", true)

	require.NoError(t, f.store.SetResponse(ctx, event.ID, 10, overlap.NewSlotSet(1)))
	require.NoError(t, f.store.SetResponse(ctx, event.ID, 11, overlap.NewSlotSet(2, 3)))

	require.NoError(t, f.manager.Delete(ctx, organizer, event.ID))

	responses, err := f.store.GetResponses(ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)

	_, err = f.manager.Get(ctx, event.ID)
	assert.True(t, errs.IsNotFound(err))

	active, err := f.manager.IsActive(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestManager_RemoveSlotPrunesResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", true)

	require.NoError(t, f.store.SetResponse(ctx, event.ID, 10, overlap.NewSlotSet(1, 2)))

	updated, err := f.manager.RemoveSlot(ctx, organizer, event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []overlap.SlotID{1, 3}, updated.SlotIDs())

	responses, err := f.store.GetResponses(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, overlap.NewSlotSet(1), responses[10])

	_, err = f.manager.RemoveSlot(ctx, organizer, event.ID, 2)
	var invalid *events.InvalidSlotSelectionError
	assert.ErrorAs(t, err, &invalid)
}

func TestManager_AddSlotsNeverReusesIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", false)

	_, err := f.manager.RemoveSlot(ctx, organizer, event.ID, 3)
	require.NoError(t, err)

	updated, err := f.manager.AddSlots(ctx, organizer, event.ID, "UTC", proposals("2025-03-13 18:00"))
	require.NoError(t, err)
	assert.Equal(t, []overlap.SlotID{1, 2, 4}, updated.SlotIDs())

	_, err = f.manager.AddSlots(ctx, organizer, event.ID, "UTC", proposals("2025-03-10 18:00"))
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestManager_IsActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", true)

	active, err := f.manager.IsActive(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = f.manager.Cancel(ctx, organizer, event.ID)
	require.NoError(t, err)

	active, err = f.manager.IsActive(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestManager_CreateRecurring(t *testing.T) {
	first, err := timezone.ParseLocalTime("2025-03-03 19:00")
	require.NoError(t, err)

	in := events.RecurringInput{
		CreateInput: events.CreateInput{
			GuildID:   guildID,
			Organizer: organizer,
			Name:      "Weekly raid",
			Zone:      "America/New_York",
		},
		First:    first,
		Duration: 2 * time.Hour,
		Rule:     "RRULE:FREQ=WEEKLY;COUNT=3",
	}

	t.Run("free guild", func(t *testing.T) {
		f := newFixture(t)
		f.gate.EXPECT().IsPremium(gomock.Any(), guildID).Return(false, nil)

		_, err := f.manager.CreateRecurring(context.Background(), in)
		var premium *events.PremiumRequiredError
		assert.ErrorAs(t, err, &premium)
	})

	t.Run("premium guild keeps local time across DST", func(t *testing.T) {
		f := newFixture(t)
		f.gate.EXPECT().IsPremium(gomock.Any(), guildID).Return(true, nil)
		f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(999, nil)

		event, err := f.manager.CreateRecurring(context.Background(), in)
		require.NoError(t, err)

		require.Len(t, event.Slots, 3)
		assert.Equal(t, time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC), event.Slots[0].Start)
		assert.Equal(t, time.Date(2025, time.March, 10, 23, 0, 0, 0, time.UTC), event.Slots[1].Start)
		assert.Equal(t, time.Date(2025, time.March, 17, 23, 0, 0, 0, time.UTC), event.Slots[2].Start)
		assert.Equal(t, 2*time.Hour, event.Slots[0].Duration)
		assert.Equal(t, "FREQ=WEEKLY;COUNT=3", event.Recurrence)
	})
}

func TestManager_Search(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(5, nil).Times(3)

	f.create(t, "Raid night", true)
	f.clock.Advance(time.Minute)
	f.create(t, "Board games", true)
	f.clock.Advance(time.Minute)
	f.create(t, "Raid practice", true)

	got, err := f.manager.Search(context.Background(), guildID, "raid", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	newest, err := f.manager.Search(context.Background(), guildID, "", 1)
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, "Raid practice", newest[0].Name)
}

func TestManager_CreateRequiresOrganizerLevel(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Create(context.Background(), events.CreateInput{
		GuildID:   guildID,
		Organizer: events.Actor{UserID: otherUserID, Level: guilds.LevelAttendee},
		Name:      "Raid night",
		Zone:      "UTC",
		Slots:     proposals("2025-03-10 18:00"),
	})

	var levelErr *guilds.LevelError
	require.ErrorAs(t, err, &levelErr)
	assert.Equal(t, guilds.LevelOrganizer, levelErr.Required)
	assert.Equal(t, errs.KindPermission, errs.KindOf(err))
}

func TestManager_OpenSendsOpenedNotice(t *testing.T) {
	f := newFixture(t)
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", false)
	assert.Empty(t, f.notices, "drafts are not announced")

	_, err := f.manager.Open(context.Background(), organizer, event.ID)
	require.NoError(t, err)

	opened := f.noticesOf(notify.KindOpened)
	require.Len(t, opened, 1)
	assert.Equal(t, event.ID, opened[0].EventID)
	assert.Equal(t, guildID, opened[0].GuildID)
	assert.Len(t, opened[0].Slots, 3)
	assert.Empty(t, opened[0].Participants)
}

func TestManager_CancelNotifiesRespondents(t *testing.T) {
	tests := []struct {
		name  string
		actor events.Actor
		want  []snowflake.ID
	}{
		{name: "organizer cancels", actor: organizer, want: []snowflake.ID{10, 20}},
		{name: "admin cancels", actor: admin, want: []snowflake.ID{organizerID, 10, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
			event := f.create(t, "Raid night", true)

			require.NoError(t, f.store.SetResponse(ctx, event.ID, 20, overlap.NewSlotSet(1)))
			require.NoError(t, f.store.SetResponse(ctx, event.ID, 10, overlap.NewSlotSet()))

			_, err := f.manager.Cancel(ctx, tt.actor, event.ID)
			require.NoError(t, err)

			canceled := f.noticesOf(notify.KindCanceled)
			require.Len(t, canceled, 1)
			assert.ElementsMatch(t, tt.want, canceled[0].Participants)
			assert.Equal(t, "Raid night", canceled[0].Name)
		})
	}
}

func TestManager_ChangesNotifyRespondents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	event := f.create(t, "Raid night", true)

	_, err := f.manager.Edit(ctx, organizer, event.ID, "Raid night", "Bring snacks")
	require.NoError(t, err)
	assert.Empty(t, f.noticesOf(notify.KindChanged), "nobody responded yet")

	require.NoError(t, f.store.SetResponse(ctx, event.ID, 10, overlap.NewSlotSet(1)))

	_, err = f.manager.Edit(ctx, organizer, event.ID, "Raid night", "Bring snacks")
	require.NoError(t, err)
	assert.Empty(t, f.noticesOf(notify.KindChanged), "nothing changed")

	_, err = f.manager.Edit(ctx, organizer, event.ID, "Raid", "Bring snacks")
	require.NoError(t, err)
	_, err = f.manager.AddSlots(ctx, organizer, event.ID, "UTC", proposals("2025-03-13 18:00"))
	require.NoError(t, err)
	_, err = f.manager.RemoveSlot(ctx, organizer, event.ID, 2)
	require.NoError(t, err)

	changed := f.noticesOf(notify.KindChanged)
	require.Len(t, changed, 3)
	assert.Equal(t, "renamed from **Raid night**", changed[0].Changes)
	assert.Equal(t, "1 new time(s) to pick from", changed[1].Changes)
	assert.Equal(t, "time #2 was removed", changed[2].Changes)
	for _, n := range changed {
		assert.Equal(t, []snowflake.ID{10}, n.Participants)
	}
}

// failingDelete is an event repository whose deletes fail.
type failingDelete struct {
	*memory.EventRepository
}

func (failingDelete) Delete(context.Context, snowflake.ID) error {
	return errors.New("connection reset")
}

func TestManager_DeleteKeepsResponsesWhenDeleteFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	normalizer, err := timezone.NewNormalizer(16)
	require.NoError(t, err)

	repo, responses := memory.NewEventStore()
	locks := events.NewLocks()
	store := availability.NewService(responses, repo, locks)
	gate := mock.NewMockGate(ctrl)
	gate.EXPECT().EventQuota(gomock.Any(), guildID).Return(2, nil)
	clk := clock.NewManual(time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC))
	manager := events.NewManager(failingDelete{repo}, store, gate, notify.Nop{}, normalizer, locks, clk, events.DefaultConfig())

	event, err := manager.Create(ctx, events.CreateInput{
		GuildID:   guildID,
		Organizer: organizer,
		Name:      "Raid night",
		Zone:      "UTC",
		Slots:     proposals("2025-03-10 18:00"),
		Open:      true,
	})
	require.NoError(t, err)
	require.NoError(t, store.SetResponse(ctx, event.ID, 10, overlap.NewSlotSet(1)))

	err = manager.Delete(ctx, organizer, event.ID)
	require.Error(t, err)

	_, err = manager.Get(ctx, event.ID)
	require.NoError(t, err)
	kept, err := store.GetResponses(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, overlap.NewSlotSet(1), kept[10])
}
