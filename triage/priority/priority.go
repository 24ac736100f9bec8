package priority

import (
	"fmt"
	"math"
)

// Operating mode of the policy, trading response speed against precision.
type Mode int

const (
	ModeBestAccuracy Mode = iota
	ModeRapidResponse
)

func (m Mode) String() string {
	switch m {
	case ModeBestAccuracy:
		return "best-accuracy"
	case ModeRapidResponse:
		return "rapid-response"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(raw string) (Mode, error) {
	switch raw {
	case "best-accuracy", "accuracy", "":
		return ModeBestAccuracy, nil
	case "rapid-response", "rapid":
		return ModeRapidResponse, nil
	default:
		return ModeBestAccuracy, fmt.Errorf("unknown priority mode: %q", raw)
	}
}

// Reports ranked at or below this value go to the low-priority lane, unless overridden.
const LaneThreshold = 5

// Auxiliary risk signals which may accompany a classifier score.
type Signals struct {
	// Estimated reach of the content, on the same 0..10 scale as rank
	Distribution int
	// Estimated vulnerability of the audience, 0..10
	Vulnerability int
	// Supplemental "special attention needed" signal; forces the high-priority lane
	Override bool
}

// Outcome of running the policy over a single score.
type Decision struct {
	Rank            int
	NeedsModeration bool
	Override        bool
}

// Flagged indicates the content should become an auto-flag report.
func (d Decision) Flagged() bool {
	return d.NeedsModeration || d.Override
}

type Policy struct {
	Mode            Mode
	LowMid          float64
	MidHigh         float64
	DistributionTh  int
	VulnerabilityTh int
	RapidFloor      int
	MaxRank         int
}

func DefaultPolicy(mode Mode) Policy {
	return Policy{
		Mode:            mode,
		LowMid:          0.2,
		MidHigh:         0.8,
		DistributionTh:  6,
		VulnerabilityTh: 6,
		RapidFloor:      6,
		MaxRank:         10,
	}
}

// Compute maps a score and signals to a rank and moderation decision.
//
// Scores above the mid/high threshold return rank 0 with NeedsModeration set: the content
// must be routed, and the caller computes the real rank with FullRank.
func (p Policy) Compute(score float64, sig Signals) Decision {
	d := Decision{Override: sig.Override}
	if score <= p.LowMid {
		return d
	}
	if score > p.MidHigh {
		d.NeedsModeration = true
		return d
	}
	d.NeedsModeration = true
	d.Rank = p.midRank(score, sig)
	return d
}

// FullRank computes the numeric rank regardless of which band the score falls in.
func (p Policy) FullRank(score float64, sig Signals) int {
	return p.midRank(score, sig)
}

// HumanRank is the rank given to human-submitted reports: the scaled score only.
func (p Policy) HumanRank(score float64) int {
	return p.clamp(scaled(score))
}

// Rank resolves a decision to the rank used for queue placement.
func (p Policy) Rank(d Decision, score float64, sig Signals) int {
	if d.Rank == 0 && d.NeedsModeration {
		return p.FullRank(score, sig)
	}
	return d.Rank
}

func (p Policy) midRank(score float64, sig Signals) int {
	base := scaled(score)
	if p.Mode != ModeRapidResponse {
		return p.clamp(base)
	}
	// rapid response only engages when either risk signal is elevated; otherwise fall back
	// to the plain scaled score
	if sig.Distribution <= p.DistributionTh && sig.Vulnerability <= p.VulnerabilityTh {
		return p.clamp(base)
	}
	return p.clamp(max(sig.Distribution, sig.Vulnerability, p.RapidFloor, base))
}

func (p Policy) clamp(rank int) int {
	if rank < 0 {
		return 0
	}
	if p.MaxRank > 0 && rank > p.MaxRank {
		return p.MaxRank
	}
	return rank
}

func scaled(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	// guard against float artifacts like 0.7*10 = 6.999...
	return int(math.Floor(score*10 + 1e-9))
}

// Lane placement for a rank and override flag.
func HighLane(rank int, override bool) bool {
	return override || rank > LaneThreshold
}
