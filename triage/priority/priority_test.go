package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBands(t *testing.T) {
	assert := assert.New(t)
	p := DefaultPolicy(ModeBestAccuracy)

	d := p.Compute(0.05, Signals{})
	assert.False(d.NeedsModeration)
	assert.False(d.Flagged())
	assert.Equal(0, d.Rank)

	// boundary is inclusive
	d = p.Compute(0.2, Signals{})
	assert.False(d.NeedsModeration)

	d = p.Compute(0.55, Signals{})
	assert.True(d.NeedsModeration)
	assert.Equal(5, d.Rank)

	d = p.Compute(0.7, Signals{})
	assert.Equal(7, d.Rank)

	// above the high threshold: route, rank computed separately
	d = p.Compute(0.85, Signals{})
	assert.True(d.NeedsModeration)
	assert.Equal(0, d.Rank)
	assert.Equal(8, p.Rank(d, 0.85, Signals{}))
	assert.True(HighLane(p.Rank(d, 0.85, Signals{}), d.Override))
}

func TestComputeRapidResponse(t *testing.T) {
	assert := assert.New(t)
	p := DefaultPolicy(ModeRapidResponse)

	// risk signals elevated: max of signals, floor and scaled score
	d := p.Compute(0.3, Signals{Distribution: 9, Vulnerability: 2})
	assert.Equal(9, d.Rank)
	d = p.Compute(0.3, Signals{Distribution: 7, Vulnerability: 0})
	assert.Equal(7, d.Rank)
	d = p.Compute(0.75, Signals{Vulnerability: 7})
	assert.Equal(7, d.Rank)

	// only the floor applies when signals barely cross
	p.RapidFloor = 8
	d = p.Compute(0.3, Signals{Distribution: 7})
	assert.Equal(8, d.Rank)
	p.RapidFloor = 6

	// not engaged: plain scaled score
	d = p.Compute(0.45, Signals{Distribution: 6, Vulnerability: 6})
	assert.True(d.NeedsModeration)
	assert.Equal(4, d.Rank)

	// ranks never exceed the maximum
	d = p.Compute(0.5, Signals{Distribution: 15})
	assert.Equal(10, d.Rank)
}

func TestOverride(t *testing.T) {
	assert := assert.New(t)
	p := DefaultPolicy(ModeBestAccuracy)

	d := p.Compute(0.1, Signals{Override: true})
	assert.False(d.NeedsModeration)
	assert.True(d.Flagged())
	assert.True(HighLane(d.Rank, d.Override))
	assert.False(HighLane(5, false))
	assert.True(HighLane(6, false))
}

func TestHumanRank(t *testing.T) {
	assert := assert.New(t)
	p := DefaultPolicy(ModeBestAccuracy)
	assert.Equal(0, p.HumanRank(0.05))
	assert.Equal(5, p.HumanRank(0.5))
	assert.Equal(10, p.HumanRank(1.0))
	assert.Equal(0, p.HumanRank(-1))
}

func TestParseMode(t *testing.T) {
	assert := assert.New(t)
	m, err := ParseMode("rapid-response")
	assert.NoError(err)
	assert.Equal(ModeRapidResponse, m)
	m, err = ParseMode("best-accuracy")
	assert.NoError(err)
	assert.Equal(ModeBestAccuracy, m)
	assert.Equal("best-accuracy", m.String())
	_, err = ParseMode("fastest")
	assert.Error(err)
}
