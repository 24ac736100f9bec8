package abusestore

import (
	"context"
	"time"
)

// One confirmed false report.
type Entry struct {
	ReportID string    `json:"report_id"`
	Reported string    `json:"reported"`
	At       time.Time `json:"at"`
}

type AbuseStore interface {
	Append(ctx context.Context, ident string, e Entry) error
	History(ctx context.Context, ident string) ([]Entry, error)
	Count(ctx context.Context, ident string) (int, error)
}
