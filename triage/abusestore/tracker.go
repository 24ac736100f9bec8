package abusestore

import (
	"context"
	"time"
)

const DefaultLimit = 5

// Tracker applies the false-report threshold on top of an AbuseStore. A reporter is throttled
// once their history reaches Limit entries.
type Tracker struct {
	Store AbuseStore
	Limit int
	Now   func() time.Time
}

func NewTracker(store AbuseStore, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{
		Store: store,
		Limit: limit,
		Now:   time.Now,
	}
}

func (t *Tracker) RecordFalseReport(ctx context.Context, ident, reportID, reported string) error {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	return t.Store.Append(ctx, ident, Entry{
		ReportID: reportID,
		Reported: reported,
		At:       now(),
	})
}

func (t *Tracker) IsThrottled(ctx context.Context, ident string) (bool, error) {
	c, err := t.Store.Count(ctx, ident)
	if err != nil {
		return false, err
	}
	return c >= t.Limit, nil
}
