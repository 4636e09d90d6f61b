// Package simulation holds the two stateless calculators behind the dashboard:
// the cycle life curve generator and the process impact estimators.
package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"battery-platform/internal/models"
)

// EfficiencyTier is one band of the coulombic efficiency rule
type EfficiencyTier struct {
	Below    float64 `json:"below" mapstructure:"below"` // decay rates strictly below this fall in the tier
	Base     float64 `json:"base" mapstructure:"base"`
	Slope    float64 `json:"slope" mapstructure:"slope"` // per-cycle drift of the base value
	NoiseStd float64 `json:"noise_std" mapstructure:"noise_std"`
}

// EfficiencyRule maps a decay rate onto a tier. Tiers are ordered by Below and the
// last tier catches everything else.
type EfficiencyRule struct {
	Name  string           `json:"name"`
	Tiers []EfficiencyTier `json:"tiers"`
}

// Efficiency rule presets
const (
	RuleCurrent = "current"
	RuleLegacy  = "legacy"
)

// CurrentEfficiencyRule is the canonical tier set
func CurrentEfficiencyRule() EfficiencyRule {
	return EfficiencyRule{
		Name: RuleCurrent,
		Tiers: []EfficiencyTier{
			{Below: 1.5, Base: 99.98, NoiseStd: 0.01},
			{Below: 3.0, Base: 99.90, NoiseStd: 0.03},
			{Below: math.Inf(1), Base: 99.5, Slope: -0.0005, NoiseStd: 0.15},
		},
	}
}

// LegacyEfficiencyRule reproduces the looser tiers of the early dashboard builds
func LegacyEfficiencyRule() EfficiencyRule {
	return EfficiencyRule{
		Name: RuleLegacy,
		Tiers: []EfficiencyTier{
			{Below: 2.0, Base: 99.95, NoiseStd: 0.02},
			{Below: 4.0, Base: 99.85, NoiseStd: 0.05},
			{Below: math.Inf(1), Base: 99.6, Slope: -0.0008, NoiseStd: 0.15},
		},
	}
}

// EfficiencyRuleByName returns a preset
func EfficiencyRuleByName(name string) (EfficiencyRule, error) {
	switch name {
	case RuleCurrent, "":
		return CurrentEfficiencyRule(), nil
	case RuleLegacy:
		return LegacyEfficiencyRule(), nil
	default:
		return EfficiencyRule{}, fmt.Errorf("unknown efficiency rule %q", name)
	}
}

// Validate checks that tiers are ordered, open-ended and have sane noise
func (r EfficiencyRule) Validate() error {
	if len(r.Tiers) == 0 {
		return fmt.Errorf("efficiency rule %q has no tiers", r.Name)
	}
	if !sort.SliceIsSorted(r.Tiers, func(i, j int) bool { return r.Tiers[i].Below < r.Tiers[j].Below }) {
		return fmt.Errorf("efficiency rule %q tiers must be ordered by threshold", r.Name)
	}
	if !math.IsInf(r.Tiers[len(r.Tiers)-1].Below, 1) {
		return fmt.Errorf("efficiency rule %q must end with an open tier", r.Name)
	}
	for _, t := range r.Tiers {
		if t.NoiseStd < 0 {
			return fmt.Errorf("efficiency rule %q has negative noise", r.Name)
		}
	}
	return nil
}

// Tier selects the tier for a decay rate
func (r EfficiencyRule) Tier(decayRate float64) EfficiencyTier {
	for _, t := range r.Tiers {
		if decayRate < t.Below {
			return t
		}
	}
	return r.Tiers[len(r.Tiers)-1]
}

// CycleLifeModel generates capacity fade and coulombic efficiency curves from a
// linear fade term, a late-life exponential term and Gaussian noise
type CycleLifeModel struct {
	LinearCoeff   float64
	AccelCoeff    float64
	AccelRate     float64
	CapacityNoise float64
	Efficiency    EfficiencyRule
}

// NewCycleLifeModel returns the model with its standard fade constants
func NewCycleLifeModel(rule EfficiencyRule) *CycleLifeModel {
	return &CycleLifeModel{
		LinearCoeff:   0.00015,
		AccelCoeff:    1e-9,
		AccelRate:     0.015,
		CapacityNoise: 0.0015,
		Efficiency:    rule,
	}
}

// Generate simulates numCycles cycles. All noise is drawn from src: first one
// capacity sample per cycle, then one efficiency sample per cycle. A nil src draws
// from a freshly seeded stream.
func (m *CycleLifeModel) Generate(decayRate, initialCapacity float64, numCycles int, src rand.Source) (*models.CycleLifePrediction, error) {
	if !(decayRate > 0) || math.IsInf(decayRate, 0) {
		return nil, &models.InvalidArgumentError{Field: "decay_rate", Value: fmt.Sprint(decayRate), Message: "must be a positive number"}
	}
	if !(initialCapacity > 0) || math.IsInf(initialCapacity, 0) {
		return nil, &models.InvalidArgumentError{Field: "initial_capacity", Value: fmt.Sprint(initialCapacity), Message: "must be a positive number"}
	}
	if numCycles < 1 {
		return nil, &models.InvalidArgumentError{Field: "num_cycles", Value: fmt.Sprint(numCycles), Message: "must be at least 1"}
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	pred := &models.CycleLifePrediction{
		CycleIndex:          make([]int, numCycles),
		Capacity:            make([]float64, numCycles),
		CoulombicEfficiency: make([]float64, numCycles),
		DecayRate:           decayRate,
		InitialCapacity:     initialCapacity,
	}

	capacityNoise := distuv.Normal{Mu: 0, Sigma: m.CapacityNoise, Src: src}
	for i := range pred.Capacity {
		x := float64(i + 1)
		pred.CycleIndex[i] = i + 1

		linearFade := m.LinearCoeff * x * decayRate
		accelFade := m.AccelCoeff * math.Exp(m.AccelRate*x) * decayRate
		retention := 1.0 - linearFade - accelFade + capacityNoise.Rand()

		pred.Capacity[i] = math.Max(retention*initialCapacity, 0)
	}

	tier := m.Efficiency.Tier(decayRate)
	efficiencyNoise := distuv.Normal{Mu: 0, Sigma: tier.NoiseStd, Src: src}
	for i := range pred.CoulombicEfficiency {
		base := tier.Base + tier.Slope*float64(i+1)
		pred.CoulombicEfficiency[i] = clamp(base+efficiencyNoise.Rand(), 0, 100)
	}

	return pred, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
