package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignments(t *testing.T) {
	assert := assert.New(t)
	a := NewAssignments()

	assert.NoError(a.Bind("mod1", "r1"))
	assert.ErrorIs(a.Bind("mod1", "r2"), ErrOngoingAssignment)
	assert.ErrorIs(a.Bind("mod2", "r1"), ErrReportAssigned)
	assert.NoError(a.Bind("mod2", "r2"))
	assert.Equal(2, a.Len())

	id, ok := a.Lookup("mod1")
	assert.True(ok)
	assert.Equal("r1", id)
	m, ok := a.ReportHolder("r2")
	assert.True(ok)
	assert.Equal("mod2", m)

	id, ok = a.Unbind("mod1")
	assert.True(ok)
	assert.Equal("r1", id)
	_, ok = a.ReportHolder("r1")
	assert.False(ok)
	_, ok = a.Unbind("mod1")
	assert.False(ok)

	// freed on both sides
	assert.NoError(a.Bind("mod3", "r1"))
	assert.Equal(2, a.Len())
}
