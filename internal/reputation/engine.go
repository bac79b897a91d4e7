// Package reputation turns accumulated weighted votes into the published
// score and integrity index. Everything here is pure arithmetic; stores and
// transport live elsewhere.
package reputation

import (
	"math"

	"veritas/internal/platform/config"
)

// Score is the publishable reputation state of one target.
type Score struct {
	VoteCount   int
	WeightedSum float64
	TotalWeight float64

	// Reputation is the shrunk weighted mean on the 0-5 scale.
	Reputation float64
	// Confidence is the volume factor in [0,1].
	Confidence float64
	// IntegrityIndex is the confidence-damped public signal in [0,1],
	// neutral at 0.5.
	IntegrityIndex float64
}

// Engine computes scores from the live tunables snapshot.
type Engine struct {
	tunables *config.Store
}

func NewEngine(tunables *config.Store) *Engine {
	return &Engine{tunables: tunables}
}

// Recompute derives the full published state from an accumulator.
// With no votes the reputation is exactly the prior mean and the integrity
// index sits at the neutral baseline.
func (e *Engine) Recompute(voteCount int, weightedSum, totalWeight float64) Score {
	t := e.tunables.Load()

	rep := shrink(weightedSum, totalWeight, t)
	conf := confidence(voteCount, t)
	return Score{
		VoteCount:      voteCount,
		WeightedSum:    weightedSum,
		TotalWeight:    totalWeight,
		Reputation:     rep,
		Confidence:     conf,
		IntegrityIndex: integrityIndex(rep, conf),
	}
}

// shrink applies Bayesian shrinkage: the prior contributes m synthetic
// votes of value C, so low-volume targets sit near C and high-volume
// targets converge to their weighted mean. Bounded [0,5] for vote values
// in [0,5].
func shrink(weightedSum, totalWeight float64, t *config.Tunables) float64 {
	if totalWeight < 0 {
		totalWeight = 0
	}
	rep := (t.PriorStrength*t.PriorMean + weightedSum) / (t.PriorStrength + totalWeight)
	return clamp(rep, 0, 5)
}

// confidence is the volume factor sqrt(min(N,cap)/saturation).
func confidence(voteCount int, t *config.Tunables) float64 {
	if voteCount <= 0 {
		return 0
	}
	n := float64(voteCount)
	sat := float64(t.VolumeSaturation)
	if n > sat {
		n = sat
	}
	return math.Sqrt(n / sat)
}

// integrityIndex maps the reputation onto [0,1] and pulls it toward the
// 0.5 neutral baseline by the volume confidence, so a handful of extreme
// votes cannot move the public signal far.
func integrityIndex(reputation, confidence float64) float64 {
	normalized := reputation / 5
	return clamp(0.5+(normalized-0.5)*confidence, 0, 1)
}

// DecayFactor is the exponential half-life weight for a ballot of the
// given age. Age zero keeps full weight; one half-life halves it.
func DecayFactor(ageSeconds, halfLifeSeconds float64) float64 {
	if halfLifeSeconds <= 0 || ageSeconds <= 0 {
		return 1
	}
	return math.Exp2(-ageSeconds / halfLifeSeconds)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
