package events

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// IDGenerator hands out snowflakes that are unique within the process.
type IDGenerator struct {
	mu   sync.Mutex
	last snowflake.ID
}

func (g *IDGenerator) Next(now time.Time) snowflake.ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := snowflake.New(now)
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
