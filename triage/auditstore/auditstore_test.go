package auditstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testStore(t *testing.T) *GormAuditStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewGormAuditStore(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGormAuditStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	recs, err := s.Recent(ctx, 10)
	assert.NoError(err)
	assert.Empty(recs)

	assert.NoError(s.Record(ctx, &ModerationRecord{ReportID: "user1", Reporter: "user1", Reported: "spammer", Outcome: "false-report", FalseReporting: true}))
	assert.NoError(s.Record(ctx, &ModerationRecord{ReportID: "auto-flag:1", Reporter: "auto-flag:1", Synthetic: true, Reported: "spammer", Outcome: "remove-content"}))
	assert.NoError(s.Record(ctx, &ModerationRecord{ReportID: "user2", Reporter: "user2", Reported: "other", Outcome: "emergency"}))

	recs, err = s.Recent(ctx, 2)
	assert.NoError(err)
	assert.Len(recs, 2)
	assert.Equal("user2", recs[0].ReportID)
	assert.Equal("auto-flag:1", recs[1].ReportID)

	recs, err = s.ForReported(ctx, "spammer")
	assert.NoError(err)
	assert.Len(recs, 2)
	assert.True(recs[0].FalseReporting)
	assert.True(recs[1].Synthetic)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open("mysql://localhost/db", 4)
	assert.Error(t, err)
}
