// Durable log of finalized moderation reports, stored with gorm in sqlite or postgres.
package auditstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

type ModerationRecord struct {
	ID             uint      `gorm:"primarykey" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	ReportID       string    `gorm:"index" json:"report_id"`
	Reporter       string    `gorm:"index" json:"reporter"`
	Synthetic      bool      `json:"synthetic"`
	Reported       string    `gorm:"index" json:"reported"`
	MessageRef     string    `json:"message_ref"`
	Score          float64   `json:"score"`
	Classification string    `json:"classification"`
	Rank           int       `json:"rank"`
	FinalState     string    `json:"final_state"`
	Outcome        string    `json:"outcome"`
	FalseReporting bool      `json:"false_reporting"`
	Moderator      string    `json:"moderator"`
	Summary        string    `json:"summary"`
}

type AuditStore interface {
	Record(ctx context.Context, rec *ModerationRecord) error
	Recent(ctx context.Context, limit int) ([]ModerationRecord, error)
}

type GormAuditStore struct {
	db *gorm.DB
}

var _ AuditStore = (*GormAuditStore)(nil)

// Open connects to a "sqlite://path" or "postgres://..." database URL.
func Open(dburl string, maxConnections int) (*gorm.DB, error) {
	var dial gorm.Dialector

	isSqlite := false
	openConns := maxConnections
	if strings.HasPrefix(dburl, "sqlite://") {
		sqliteSuffix := dburl[len("sqlite://"):]
		// if this isn't ":memory:", ensure that directory exists (eg, if db
		// file is being initialized)
		if !strings.Contains(sqliteSuffix, ":memory:") {
			os.MkdirAll(filepath.Dir(sqliteSuffix), os.ModePerm)
		}
		dial = sqlite.Open(sqliteSuffix)
		openConns = 1
		isSqlite = true
	} else if strings.HasPrefix(dburl, "postgresql://") || strings.HasPrefix(dburl, "postgres://") {
		// can pass entire URL, with prefix, to gorm driver
		dial = postgres.Open(dburl)
	} else {
		return nil, fmt.Errorf("unsupported or unrecognized database URL scheme")
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxIdleConns(10)
	sqldb.SetMaxOpenConns(openConns)
	sqldb.SetConnMaxIdleTime(time.Hour)

	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, fmt.Errorf("enabling gorm tracing: %w", err)
	}

	if isSqlite {
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, err
		}
	}
	return db, nil
}

func NewGormAuditStore(db *gorm.DB) (*GormAuditStore, error) {
	if err := db.AutoMigrate(&ModerationRecord{}); err != nil {
		return nil, fmt.Errorf("migrating audit tables: %w", err)
	}
	return &GormAuditStore{db: db}, nil
}

func (s *GormAuditStore) Record(ctx context.Context, rec *ModerationRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// Recent returns the latest records, newest first.
func (s *GormAuditStore) Recent(ctx context.Context, limit int) ([]ModerationRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []ModerationRecord
	if err := s.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ForReported returns every record about content authored by the given account, oldest first.
func (s *GormAuditStore) ForReported(ctx context.Context, reported string) ([]ModerationRecord, error) {
	var out []ModerationRecord
	if err := s.db.WithContext(ctx).Where("reported = ?", reported).Order("id asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
