// Package overlap ranks an event's candidate slots by how many respondents
// can attend each of them.
package overlap

import (
	"sort"

	"github.com/disgoorg/snowflake/v2"
)

// Compute ranks slots by available count, highest first. Slots with equal
// counts keep the order they were proposed in. Response entries naming a slot
// that is not in slots are skipped and reported in Result.Stale.
//
// Compute has no side effects and returns the same Result for the same input.
func Compute(slots []SlotID, responses Responses) Result {
	users := responses.Users()

	known := make(map[SlotID]struct{}, len(slots))
	for _, id := range slots {
		known[id] = struct{}{}
	}

	var stale []StaleRef
	for _, user := range users {
		for _, id := range responses[user].Sorted() {
			if _, ok := known[id]; !ok {
				stale = append(stale, StaleRef{UserID: user, SlotID: id})
			}
		}
	}

	ranked := make([]Ranking, 0, len(slots))
	for pos, id := range slots {
		available := make([]snowflake.ID, 0, len(users))
		missing := make([]snowflake.ID, 0, len(users))
		for _, user := range users {
			if responses[user].Has(id) {
				available = append(available, user)
			} else {
				missing = append(missing, user)
			}
		}
		ranked = append(ranked, Ranking{
			SlotID:         id,
			Position:       pos,
			AvailableCount: len(available),
			Available:      available,
			Missing:        missing,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AvailableCount > ranked[j].AvailableCount
	})

	return Result{
		Ranked:      ranked,
		Respondents: len(users),
		Stale:       stale,
	}
}
