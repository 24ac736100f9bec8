// Counters of how often an account's content has been reported, total and per time period.
//
// Includes an interface and implementations using redis and in-process memory.
package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

const (
	// reports (human or auto-flag) against content by an account
	NameReported = "reported"
	// distinct reporters of an account
	NameReporters = "reporters"
)

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

func periodBucket(name, val, period string) string {
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		t := time.Now().UTC().Format(time.DateOnly)
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	case PeriodHour:
		t := time.Now().UTC().Format(time.RFC3339)[0:13]
		return fmt.Sprintf("%s/%s/%s", name, val, t)
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}

// ReportHistory summarizes how often an account has been reported.
type ReportHistory struct {
	Total     int `json:"total"`
	Day       int `json:"day"`
	Reporters int `json:"reporters"`
}

func GetReportHistory(ctx context.Context, cs CountStore, account string) (*ReportHistory, error) {
	total, err := cs.GetCount(ctx, NameReported, account, PeriodTotal)
	if err != nil {
		return nil, err
	}
	day, err := cs.GetCount(ctx, NameReported, account, PeriodDay)
	if err != nil {
		return nil, err
	}
	reporters, err := cs.GetCountDistinct(ctx, NameReporters, account, PeriodTotal)
	if err != nil {
		return nil, err
	}
	return &ReportHistory{Total: total, Day: day, Reporters: reporters}, nil
}

// RecordReport counts one report against an account, by a reporter.
func RecordReport(ctx context.Context, cs CountStore, account, reporter string) error {
	if err := cs.Increment(ctx, NameReported, account); err != nil {
		return err
	}
	return cs.IncrementDistinct(ctx, NameReporters, account, reporter)
}
