package overlap

import (
	"reflect"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	slotA SlotID = 1
	slotB SlotID = 2
	slotC SlotID = 3
)

var (
	u1 = snowflake.ID(101)
	u2 = snowflake.ID(102)
	u3 = snowflake.ID(103)
)

func order(r Result) []SlotID {
	ids := make([]SlotID, 0, len(r.Ranked))
	for _, ranking := range r.Ranked {
		ids = append(ids, ranking.SlotID)
	}
	return ids
}

func counts(r Result) []int {
	out := make([]int, 0, len(r.Ranked))
	for _, ranking := range r.Ranked {
		out = append(out, ranking.AvailableCount)
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		slots      []SlotID
		responses  Responses
		wantOrder  []SlotID
		wantCounts []int
		wantStale  []StaleRef
	}{
		{
			name:  "most available first, ties keep proposal order",
			slots: []SlotID{slotA, slotB, slotC},
			responses: Responses{
				u1: NewSlotSet(slotA, slotB),
				u2: NewSlotSet(slotB, slotC),
				u3: NewSlotSet(slotB),
			},
			wantOrder:  []SlotID{slotB, slotA, slotC},
			wantCounts: []int{3, 1, 1},
		},
		{
			name:       "no responses keeps original order",
			slots:      []SlotID{slotA, slotB},
			responses:  Responses{},
			wantOrder:  []SlotID{slotA, slotB},
			wantCounts: []int{0, 0},
		},
		{
			name:       "nil responses",
			slots:      []SlotID{slotB, slotA},
			responses:  nil,
			wantOrder:  []SlotID{slotB, slotA},
			wantCounts: []int{0, 0},
		},
		{
			name:  "empty response counts as respondent",
			slots: []SlotID{slotA, slotB},
			responses: Responses{
				u1: NewSlotSet(),
				u2: NewSlotSet(slotB),
			},
			wantOrder:  []SlotID{slotB, slotA},
			wantCounts: []int{1, 0},
		},
		{
			name:  "stale slot reference is ignored",
			slots: []SlotID{slotA, slotB},
			responses: Responses{
				u1: NewSlotSet(slotA, 99),
				u2: NewSlotSet(slotB),
			},
			wantOrder:  []SlotID{slotA, slotB},
			wantCounts: []int{1, 1},
			wantStale:  []StaleRef{{UserID: u1, SlotID: 99}},
		},
		{
			name:       "no slots",
			slots:      nil,
			responses:  Responses{u1: NewSlotSet(slotA)},
			wantOrder:  []SlotID{},
			wantCounts: []int{},
			wantStale:  []StaleRef{{UserID: u1, SlotID: slotA}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.slots, tt.responses)
			if !reflect.DeepEqual(order(got), tt.wantOrder) {
				t.Errorf("Compute() order = %v, want %v", order(got), tt.wantOrder)
			}
			if !reflect.DeepEqual(counts(got), tt.wantCounts) {
				t.Errorf("Compute() counts = %v, want %v", counts(got), tt.wantCounts)
			}
			if !reflect.DeepEqual(got.Stale, tt.wantStale) {
				t.Errorf("Compute() stale = %v, want %v", got.Stale, tt.wantStale)
			}
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	slots := []SlotID{slotA, slotB, slotC, 4, 5}
	responses := Responses{
		u1: NewSlotSet(slotA, slotC, 5),
		u2: NewSlotSet(slotC, 4),
		u3: NewSlotSet(slotA, 4),
		104: NewSlotSet(5),
	}

	first := Compute(slots, responses)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Compute(slots, responses))
	}
}

func TestComputeAvailableAndMissingPartitionRespondents(t *testing.T) {
	slots := []SlotID{slotA, slotB, slotC}
	responses := Responses{
		u1: NewSlotSet(slotA, slotB),
		u2: NewSlotSet(slotB, slotC),
		u3: NewSlotSet(slotB),
	}

	got := Compute(slots, responses)
	require.Equal(t, 3, got.Respondents)

	for _, ranking := range got.Ranked {
		assert.Equal(t, len(ranking.Available), ranking.AvailableCount)

		union := append(append([]snowflake.ID{}, ranking.Available...), ranking.Missing...)
		assert.ElementsMatch(t, responses.Users(), union)

		for _, user := range ranking.Available {
			assert.NotContains(t, ranking.Missing, user)
		}
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	slots := []SlotID{slotC, slotA, slotB}
	responses := Responses{u1: NewSlotSet(slotB)}
	snapshot := responses.Clone()

	Compute(slots, responses)

	assert.Equal(t, []SlotID{slotC, slotA, slotB}, slots)
	assert.Equal(t, snapshot, responses)
}

func TestResultBestAndFind(t *testing.T) {
	got := Compute([]SlotID{slotA, slotB}, Responses{u1: NewSlotSet(slotB)})

	best, ok := got.Best()
	require.True(t, ok)
	assert.Equal(t, slotB, best.SlotID)
	assert.Equal(t, 1, best.Position)

	a, ok := got.Find(slotA)
	require.True(t, ok)
	assert.Equal(t, []snowflake.ID{u1}, a.Missing)

	_, ok = Compute(nil, nil).Best()
	assert.False(t, ok)
}
