package queue

import (
	"container/heap"
	"sync"

	"github.com/KathyFeiyang/cs152bots/triage/priority"
)

type Lane string

const (
	LaneHigh Lane = "high"
	LaneLow  Lane = "low"
)

// A pending report waiting for a moderator. Only ReportID, Rank and Override are meaningful to callers.
type Entry struct {
	ReportID string
	Rank     int
	Override bool

	seq uint64
}

// Two-lane triage queue. Within a lane, entries are ordered by descending rank, and
// first-in-first-out among equal ranks.
//
// Safe for concurrent use; a given entry is returned by at most one call to Next.
type Queue struct {
	lk   sync.Mutex
	high lane
	low  lane
	seq  uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

// AssignPriority enqueues a report, returning the lane it was placed in.
func (q *Queue) AssignPriority(reportID string, rank int, override bool) Lane {
	q.lk.Lock()
	defer q.lk.Unlock()

	q.seq++
	e := &Entry{
		ReportID: reportID,
		Rank:     rank,
		Override: override,
		seq:      q.seq,
	}
	ln := LaneLow
	if priority.HighLane(rank, override) {
		ln = LaneHigh
	}
	heap.Push(q.lane(ln), e)

	queueEnqueued.WithLabelValues(string(ln)).Inc()
	q.updateGauges()
	return ln
}

// Next pops the most urgent entry: high lane first, then low lane. Returns false if both
// lanes are empty. Never blocks.
func (q *Queue) Next() (Entry, bool) {
	q.lk.Lock()
	defer q.lk.Unlock()

	for _, ln := range []Lane{LaneHigh, LaneLow} {
		l := q.lane(ln)
		if l.Len() == 0 {
			continue
		}
		e := heap.Pop(l).(*Entry)
		queueDequeued.WithLabelValues(string(ln)).Inc()
		q.updateGauges()
		return *e, true
	}
	return Entry{}, false
}

// Remove withdraws a pending report from whichever lane holds it.
func (q *Queue) Remove(reportID string) bool {
	q.lk.Lock()
	defer q.lk.Unlock()

	for _, ln := range []Lane{LaneHigh, LaneLow} {
		l := q.lane(ln)
		for i, e := range *l {
			if e.ReportID == reportID {
				heap.Remove(l, i)
				q.updateGauges()
				return true
			}
		}
	}
	return false
}

func (q *Queue) Contains(reportID string) bool {
	q.lk.Lock()
	defer q.lk.Unlock()

	for _, l := range []*lane{&q.high, &q.low} {
		for _, e := range *l {
			if e.ReportID == reportID {
				return true
			}
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.lk.Lock()
	defer q.lk.Unlock()
	return q.high.Len() + q.low.Len()
}

func (q *Queue) LaneLen(ln Lane) int {
	q.lk.Lock()
	defer q.lk.Unlock()
	return q.lane(ln).Len()
}

func (q *Queue) lane(ln Lane) *lane {
	if ln == LaneHigh {
		return &q.high
	}
	return &q.low
}

// must hold lock
func (q *Queue) updateGauges() {
	queueDepth.WithLabelValues(string(LaneHigh)).Set(float64(q.high.Len()))
	queueDepth.WithLabelValues(string(LaneLow)).Set(float64(q.low.Len()))
}

// heap.Interface over entries; ties on rank are broken by insertion sequence, never by report identity
type lane []*Entry

func (l lane) Len() int { return len(l) }

func (l lane) Less(i, j int) bool {
	if l[i].Rank != l[j].Rank {
		return l[i].Rank > l[j].Rank
	}
	return l[i].seq < l[j].seq
}

func (l lane) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

func (l *lane) Push(x any) {
	*l = append(*l, x.(*Entry))
}

func (l *lane) Pop() any {
	old := *l
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*l = old[:n-1]
	return e
}
