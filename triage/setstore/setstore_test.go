package setstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemSetStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemSetStore()
	ok, err := s.InSet(ctx, Moderators, "1001")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(s.LoadFromFileJSON("testdata/roster.json"))
	ok, err = s.InSet(ctx, Moderators, "1001")
	assert.NoError(err)
	assert.True(ok)
	ok, err = s.InSet(ctx, Moderators, "2000")
	assert.NoError(err)
	assert.False(ok)

	s.Add(Moderators, "2000")
	assert.Equal([]string{"1001", "1002", "2000"}, s.Members(Moderators))
	s.Remove(Moderators, "1001")
	ok, err = s.InSet(ctx, Moderators, "1001")
	assert.NoError(err)
	assert.False(ok)

	assert.Error(s.LoadFromFileJSON("testdata/missing.json"))
}
