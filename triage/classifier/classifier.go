// Boundary to the external misinformation classifier ("oracle").
//
// Implementations return a probability that a piece of text is disinformation, with an
// optional label. Guard wraps any implementation with a deadline, rate limiting, tracing and
// metrics, and maps every failure to ErrClassifierUnavailable so callers can fall back to
// UnknownScore.
package classifier

import (
	"context"
	"errors"
	"math"

	"github.com/KathyFeiyang/cs152bots/triage/priority"
)

// Score used when the classifier can not produce one. Lands on the lane boundary, in the low lane.
const UnknownScore = 0.5

var ErrClassifierUnavailable = errors.New("classifier unavailable")

type Result struct {
	Score float64 `json:"score"`
	Label string  `json:"label,omitempty"`
	// auxiliary risk signals, when the classifier provides them
	Signals priority.Signals `json:"signals"`
}

type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
}

// Unknown is the fallback result used in place of a failed classification.
func Unknown() *Result {
	return &Result{Score: UnknownScore}
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return UnknownScore
	}
	return math.Min(math.Max(s, 0), 1)
}
