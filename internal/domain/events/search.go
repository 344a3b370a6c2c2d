package events

import (
	"context"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sahilm/fuzzy"
)

type eventNames []*Event

func (e eventNames) String(i int) string {
	return e[i].Name
}

func (e eventNames) Len() int {
	return len(e)
}

// Search returns the guild's events whose names match query, best match
// first. An empty query returns the newest events.
func (m *Manager) Search(ctx context.Context, guildID snowflake.ID, query string, limit int, statuses ...Status) ([]*Event, error) {
	all, err := m.repository.ListByGuild(ctx, guildID, statuses...)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	source := eventNames(all)
	matches := fuzzy.FindFrom(query, source)

	out := make([]*Event, 0, min(limit, len(matches)))
	for _, match := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, source[match.Index])
	}
	return out, nil
}
