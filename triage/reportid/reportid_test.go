package reportid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyntheticIdentities(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGenerator(1)
	assert.NoError(err)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.NewSynthetic()
		assert.True(IsSynthetic(id))
		assert.False(seen[id])
		seen[id] = true
	}

	assert.NoError(ValidateHuman("123456"))
	assert.ErrorIs(ValidateHuman("auto-flag:123"), ErrInvalidIdentity)
	assert.ErrorIs(ValidateHuman("  "), ErrInvalidIdentity)

	_, err = NewGenerator(5000)
	assert.Error(err)
}
