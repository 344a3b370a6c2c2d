package overlap

import (
	"slices"

	"github.com/disgoorg/snowflake/v2"
)

// SlotID identifies a candidate slot inside one event.
type SlotID int

// SlotSet is the set of slots a participant marked available.
type SlotSet map[SlotID]struct{}

func NewSlotSet(ids ...SlotID) SlotSet {
	set := make(SlotSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s SlotSet) Has(id SlotID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s SlotSet) Sorted() []SlotID {
	ids := make([]SlotID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s SlotSet) Clone() SlotSet {
	out := make(SlotSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

func (s SlotSet) Equal(other SlotSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Responses maps every respondent to the slots they accepted.
type Responses map[snowflake.ID]SlotSet

// Clone deep copies the mapping so callers never share sets with a store.
func (r Responses) Clone() Responses {
	out := make(Responses, len(r))
	for user, set := range r {
		out[user] = set.Clone()
	}
	return out
}

// Users returns the respondents in ascending ID order.
func (r Responses) Users() []snowflake.ID {
	users := make([]snowflake.ID, 0, len(r))
	for user := range r {
		users = append(users, user)
	}
	slices.Sort(users)
	return users
}

// Ranking is the overlap of one slot.
type Ranking struct {
	SlotID         SlotID
	Position       int
	AvailableCount int
	Available      []snowflake.ID
	Missing        []snowflake.ID
}

// StaleRef is a response entry pointing at a slot the event no longer has.
type StaleRef struct {
	UserID snowflake.ID
	SlotID SlotID
}

type Result struct {
	Ranked      []Ranking
	Respondents int
	Stale       []StaleRef
}

// Best returns the top ranked slot, if any.
func (r Result) Best() (Ranking, bool) {
	if len(r.Ranked) == 0 {
		return Ranking{}, false
	}
	return r.Ranked[0], true
}

// Find looks up the ranking of a slot.
func (r Result) Find(id SlotID) (Ranking, bool) {
	for _, ranking := range r.Ranked {
		if ranking.SlotID == id {
			return ranking, true
		}
	}
	return Ranking{}, false
}
