package models

import (
	"fmt"
	"strings"
)

// DefaultEOLFraction is the share of initial capacity that marks end of life
const DefaultEOLFraction = 0.8

// CycleLifePrediction is one simulated capacity retention and coulombic efficiency curve.
// All three series have one entry per cycle.
type CycleLifePrediction struct {
	CycleIndex          []int     `json:"cycle_index" yaml:"cycle_index"`
	Capacity            []float64 `json:"capacity" yaml:"capacity"`
	CoulombicEfficiency []float64 `json:"coulombic_efficiency" yaml:"coulombic_efficiency"`
	DecayRate           float64   `json:"decay_rate" yaml:"decay_rate"`
	InitialCapacity     float64   `json:"initial_capacity" yaml:"initial_capacity"`
}

// Len returns the number of simulated cycles
func (p *CycleLifePrediction) Len() int {
	return len(p.CycleIndex)
}

// EndOfLife reports the first cycle whose capacity falls below
// initial capacity times fraction
func (p *CycleLifePrediction) EndOfLife(fraction float64) EndOfLife {
	threshold := p.InitialCapacity * fraction
	eol := EndOfLife{
		Threshold: threshold,
		Index:     FirstBelow(p.Capacity, threshold),
	}
	if eol.Index >= 0 {
		eol.Reached = true
		eol.Cycle = p.CycleIndex[eol.Index]
	}
	return eol
}

// EndOfLife is the result of the EOL scan. Index is zero-based into the series,
// Cycle is the matching 1-based cycle number. Both are meaningless unless Reached.
type EndOfLife struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Reached   bool    `json:"reached" yaml:"reached"`
	Cycle     int     `json:"cycle,omitempty" yaml:"cycle,omitempty"`
	Index     int     `json:"index" yaml:"index"`
}

// Message renders the EOL result the way the dashboard reports it
func (e EndOfLife) Message(horizon int) string {
	if !e.Reached {
		return fmt.Sprintf("no EOL reached within the simulated horizon of %d cycles", horizon)
	}
	return fmt.Sprintf("capacity falls below %.4g at cycle %d", e.Threshold, e.Cycle)
}

// FirstBelow returns the position of the first value strictly below threshold, or -1.
// Values that later recover above the threshold do not move the result.
func FirstBelow(values []float64, threshold float64) int {
	for i, v := range values {
		if v < threshold {
			return i
		}
	}
	return -1
}

// Stability tiers of the degradation profiles
const (
	StabilityPerfectlyStable = "perfectly-stable"
	StabilityStable          = "stable"
	StabilityUnstable        = "unstable"
)

// DegradationProfile is a named test sample with a fixed decay rate
type DegradationProfile struct {
	Name      string     `json:"name" yaml:"name"`
	Label     string     `json:"label" yaml:"label"`
	Sample    string     `json:"sample" yaml:"sample"`
	Binder    BinderType `json:"binder,omitempty" yaml:"binder,omitempty"`
	Stability string     `json:"stability" yaml:"stability"`
	DecayRate float64    `json:"decay_rate" yaml:"decay_rate"`
}

// DegradationProfiles is the static enumeration offered to users
var DegradationProfiles = []DegradationProfile{
	{
		Name:      "excellent",
		Label:     "Excellent (CMGG)",
		Sample:    "A",
		Binder:    BinderCMGG,
		Stability: StabilityPerfectlyStable,
		DecayRate: 1.0,
	},
	{
		Name:      "normal",
		Label:     "Normal (PVDF)",
		Sample:    "B",
		Binder:    BinderPVDF,
		Stability: StabilityStable,
		DecayRate: 2.5,
	},
	{
		Name:      "poor",
		Label:     "Poor (Defective)",
		Sample:    "C",
		Stability: StabilityUnstable,
		DecayRate: 5.0,
	},
}

// LookupProfile resolves a profile by name, stability tier or sample letter
func LookupProfile(name string) (DegradationProfile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range DegradationProfiles {
		if key == p.Name || key == p.Stability || key == strings.ToLower(p.Sample) {
			return p, nil
		}
	}
	return DegradationProfile{}, invalidArgument("profile", name, "unknown degradation profile")
}
