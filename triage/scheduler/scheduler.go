// Fixed-size worker pool which runs work for the same key strictly in order, and work for
// different keys in parallel.
//
// The daemon keys inbound channel messages by channel, so that auto-flags for a channel are
// created in the order the messages arrived.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Scheduler[T any] struct {
	maxConcurrency int

	do func(context.Context, T) error

	feeder chan *task[T]
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*task[T]

	ident string

	// metrics
	itemsAdded     prometheus.Counter
	itemsProcessed prometheus.Counter
	itemsFailed    prometheus.Counter
	workersActive  prometheus.Gauge

	log *slog.Logger
}

func NewScheduler[T any](maxC int, ident string, do func(context.Context, T) error) *Scheduler[T] {
	if maxC <= 0 {
		maxC = 1
	}
	p := &Scheduler[T]{
		maxConcurrency: maxC,

		do: do,

		feeder: make(chan *task[T]),
		active: make(map[string][]*task[T]),
		out:    make(chan struct{}),

		ident: ident,

		itemsAdded:     workItemsAdded.WithLabelValues(ident),
		itemsProcessed: workItemsProcessed.WithLabelValues(ident),
		itemsFailed:    workItemsFailed.WithLabelValues(ident),
		workersActive:  workersActive.WithLabelValues(ident),

		log: slog.Default().With("system", "scheduler", "pool", ident),
	}

	for i := 0; i < maxC; i++ {
		go p.worker()
	}

	p.workersActive.Set(float64(maxC))

	return p
}

// Shutdown stops the workers once all work which has already been handed to them is done.
func (p *Scheduler[T]) Shutdown() {
	p.log.Info("shutting down scheduler")

	for i := 0; i < p.maxConcurrency; i++ {
		p.feeder <- &task[T]{
			stop: true,
		}
	}

	close(p.feeder)

	for i := 0; i < p.maxConcurrency; i++ {
		<-p.out
	}
	p.workersActive.Set(0)

	p.log.Info("scheduler shutdown complete")
}

type task[T any] struct {
	key  string
	val  T
	stop bool
}

// AddWork queues val behind any pending work for the same key. It blocks until a worker picks
// up the item, or ctx is done, unless work for the key is already in flight.
func (p *Scheduler[T]) AddWork(ctx context.Context, key string, val T) error {
	p.itemsAdded.Inc()
	t := &task[T]{
		key: key,
		val: val,
	}
	p.lk.Lock()

	a, ok := p.active[key]
	if ok {
		p.active[key] = append(a, t)
		p.lk.Unlock()
		return nil
	}

	p.active[key] = []*task[T]{}
	p.lk.Unlock()

	select {
	case p.feeder <- t:
		return nil
	case <-ctx.Done():
		p.lk.Lock()
		// hand any work queued behind this item to a worker, or release the key
		rem := p.active[key]
		delete(p.active, key)
		p.lk.Unlock()
		for _, r := range rem {
			_ = p.AddWork(context.Background(), r.key, r.val)
		}
		return ctx.Err()
	}
}

func (p *Scheduler[T]) worker() {
	for work := range p.feeder {
		for work != nil {
			if work.stop {
				p.out <- struct{}{}
				return
			}

			if err := p.do(context.Background(), work.val); err != nil {
				p.itemsFailed.Inc()
				p.log.Error("work handler failed", "key", work.key, "err", err)
			}
			p.itemsProcessed.Inc()

			p.lk.Lock()
			rem, ok := p.active[work.key]
			if !ok {
				p.log.Error("should always have an 'active' entry if a worker is processing a job")
			}

			if len(rem) == 0 {
				delete(p.active, work.key)
				work = nil
			} else {
				work = rem[0]
				p.active[work.key] = rem[1:]
			}
			p.lk.Unlock()
		}
	}
}
