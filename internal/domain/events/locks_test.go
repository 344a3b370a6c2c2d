package events

import (
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
)

func TestLocks_SerializesSameKey(t *testing.T) {
	locks := NewLocks()
	key := snowflake.ID(1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(key)
			defer unlock()

			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.size())
}

func TestLocks_IndependentKeys(t *testing.T) {
	locks := NewLocks()
	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(2)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestIDGenerator_Monotonic(t *testing.T) {
	var gen IDGenerator
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	seen := make(map[snowflake.ID]struct{})
	var last snowflake.ID
	for i := 0; i < 1000; i++ {
		id := gen.Next(now)
		assert.Greater(t, id, last)
		seen[id] = struct{}{}
		last = id
	}
	assert.Len(t, seen, 1000)
}
