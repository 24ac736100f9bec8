package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type item struct {
	key string
	n   int
}

func TestSchedulerOrderPerKey(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var lk sync.Mutex
	seen := make(map[string][]int)
	var wg sync.WaitGroup

	s := NewScheduler(4, "test-order", func(ctx context.Context, it item) error {
		defer wg.Done()
		// uneven work, so that ordering across workers would show up
		time.Sleep(time.Duration(it.n%3) * time.Millisecond)
		lk.Lock()
		seen[it.key] = append(seen[it.key], it.n)
		lk.Unlock()
		if it.n%10 == 0 {
			return errors.New("handler errors are logged and skipped")
		}
		return nil
	})

	keys := []string{"chan-a", "chan-b", "chan-c"}
	for n := 0; n < 30; n++ {
		for _, k := range keys {
			wg.Add(1)
			assert.NoError(s.AddWork(ctx, k, item{key: k, n: n}))
		}
	}
	wg.Wait()
	s.Shutdown()

	for _, k := range keys {
		l := seen[k]
		if assert.Len(l, 30, k) {
			for i := range l {
				assert.Equal(i, l[i], fmt.Sprintf("%s position %d", k, i))
			}
		}
	}
}

func TestSchedulerParallelKeys(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan string, 2)
	var wg sync.WaitGroup

	s := NewScheduler(2, "test-parallel", func(ctx context.Context, key string) error {
		defer wg.Done()
		started <- key
		<-release
		return nil
	})

	wg.Add(2)
	assert.NoError(s.AddWork(ctx, "a", "a"))
	assert.NoError(s.AddWork(ctx, "b", "b"))

	// both keys are in flight at the same time
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case k := <-started:
			got[k] = true
		case <-time.After(2 * time.Second):
			t.Fatal("work for distinct keys did not run in parallel")
		}
	}
	assert.True(got["a"] && got["b"])
	close(release)
	wg.Wait()
	s.Shutdown()
}
