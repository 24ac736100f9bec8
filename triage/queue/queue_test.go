package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func drain(q *Queue) []string {
	var out []string
	for {
		e, ok := q.Next()
		if !ok {
			return out
		}
		out = append(out, e.ReportID)
	}
}

func TestQueueBasics(t *testing.T) {
	assert := assert.New(t)
	q := NewQueue()

	_, ok := q.Next()
	assert.False(ok)

	assert.Equal(LaneLow, q.AssignPriority("a", 3, false))
	assert.Equal(LaneLow, q.AssignPriority("b", 5, false))
	assert.Equal(LaneHigh, q.AssignPriority("c", 6, false))
	assert.Equal(LaneHigh, q.AssignPriority("d", 0, true))
	assert.Equal(4, q.Len())
	assert.Equal(2, q.LaneLen(LaneHigh))
	assert.Equal(2, q.LaneLen(LaneLow))

	// high lane drains first (by rank), then low lane (by rank)
	assert.Equal([]string{"c", "d", "b", "a"}, drain(q))
	assert.Equal(0, q.Len())
}

func TestQueueRankOrderIgnoresSubmissionOrder(t *testing.T) {
	assert := assert.New(t)
	q := NewQueue()

	q.AssignPriority("r2", 2, false)
	q.AssignPriority("r9", 9, false)
	q.AssignPriority("r4", 4, false)
	q.AssignPriority("r7", 7, false)
	q.AssignPriority("r10", 10, false)
	assert.Equal([]string{"r10", "r9", "r7", "r4", "r2"}, drain(q))
}

func TestQueueFIFOOnEqualRank(t *testing.T) {
	assert := assert.New(t)
	q := NewQueue()

	// identities chosen so lexical order disagrees with submission order
	ids := []string{"zed", "alpha", "mike", "bravo", "yankee", "charlie"}
	for _, id := range ids {
		q.AssignPriority(id, 7, false)
	}
	q.AssignPriority("low-z", 2, false)
	q.AssignPriority("low-a", 2, false)
	assert.Equal(append(ids, "low-z", "low-a"), drain(q))
}

func TestQueueOverridePlacement(t *testing.T) {
	assert := assert.New(t)
	q := NewQueue()

	q.AssignPriority("plain-five", 5, false)
	q.AssignPriority("override-one", 1, true)
	e, ok := q.Next()
	assert.True(ok)
	assert.Equal("override-one", e.ReportID)
	assert.True(e.Override)
	e, ok = q.Next()
	assert.True(ok)
	assert.Equal("plain-five", e.ReportID)
}

func TestQueueRemove(t *testing.T) {
	assert := assert.New(t)
	q := NewQueue()

	q.AssignPriority("a", 8, false)
	q.AssignPriority("b", 8, false)
	q.AssignPriority("c", 2, false)
	assert.True(q.Contains("b"))
	assert.True(q.Remove("b"))
	assert.False(q.Remove("b"))
	assert.False(q.Contains("b"))
	assert.True(q.Remove("c"))
	assert.Equal([]string{"a"}, drain(q))
}

func TestQueueConcurrentClaims(t *testing.T) {
	assert := assert.New(t)
	q := NewQueue()

	n := 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.AssignPriority(fmt.Sprintf("r%d", i), i%11, i%13 == 0)
		}(i)
	}
	wg.Wait()
	assert.Equal(n, q.Len())

	var lk sync.Mutex
	claimed := make(map[string]int)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				e, ok := q.Next()
				if !ok {
					return
				}
				lk.Lock()
				claimed[e.ReportID]++
				lk.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(n, len(claimed))
	for id, c := range claimed {
		assert.Equal(1, c, "claimed more than once: %s", id)
	}
}
