package models

import (
	"math"
	"strings"
)

// BinderType is the electrode binder polymer
type BinderType string

const (
	BinderPVDF BinderType = "PVDF"
	BinderCMC  BinderType = "CMC"
	BinderCMGG BinderType = "CMGG"
	BinderGG   BinderType = "GG"
	BinderSBR  BinderType = "SBR"
)

// KnownBinders lists the binders the rule tables cover
var KnownBinders = []BinderType{BinderPVDF, BinderCMC, BinderCMGG, BinderGG, BinderSBR}

// ParseBinder normalizes user input. Unknown binders pass through so the
// estimator can apply its fallback factor.
func ParseBinder(s string) BinderType {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, b := range KnownBinders {
		if string(b) == upper {
			return b
		}
	}
	return BinderType(strings.TrimSpace(s))
}

// Known reports whether b is one of KnownBinders
func (b BinderType) Known() bool {
	for _, k := range KnownBinders {
		if b == k {
			return true
		}
	}
	return false
}

// SolventType is the slurry solvent
type SolventType string

const (
	SolventNMP   SolventType = "NMP"
	SolventWater SolventType = "Water"
)

// ParseSolvent accepts NMP or Water in any case
func ParseSolvent(s string) (SolventType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nmp":
		return SolventNMP, nil
	case "water", "h2o":
		return SolventWater, nil
	default:
		return "", invalidArgument("solvent_type", s, "expected NMP or Water")
	}
}

// ProcessCondition is one electrode coating recipe
type ProcessCondition struct {
	Binder        BinderType  `json:"binder_type" yaml:"binder_type"`
	Solvent       SolventType `json:"solvent_type" yaml:"solvent_type"`
	DryingTempC   float64     `json:"drying_temp_c" yaml:"drying_temp_c"`
	DryingTimeMin float64     `json:"drying_time_min" yaml:"drying_time_min"`
	LoadingMass   float64     `json:"loading_mass" yaml:"loading_mass"`
}

// Validate checks the numeric contract; chemistry is checked by the estimator
func (c ProcessCondition) Validate() error {
	if c.Binder == "" {
		return invalidArgument("binder_type", c.Binder, "binder is required")
	}
	if c.Solvent != SolventNMP && c.Solvent != SolventWater {
		return invalidArgument("solvent_type", c.Solvent, "expected NMP or Water")
	}
	if math.IsNaN(c.DryingTempC) || math.IsInf(c.DryingTempC, 0) {
		return invalidArgument("drying_temp_c", c.DryingTempC, "must be a finite number")
	}
	if math.IsNaN(c.DryingTimeMin) || math.IsInf(c.DryingTimeMin, 0) || c.DryingTimeMin < 0 {
		return invalidArgument("drying_time_min", c.DryingTimeMin, "must be a finite non-negative number")
	}
	if math.IsNaN(c.LoadingMass) || math.IsInf(c.LoadingMass, 0) || c.LoadingMass < 0 {
		return invalidArgument("loading_mass", c.LoadingMass, "must be a finite non-negative number")
	}
	return nil
}

// ImpactEstimate holds the per-area environmental metrics of a process condition
type ImpactEstimate struct {
	CO2KgPerM2     float64 `json:"co2_kg_per_m2" yaml:"co2_kg_per_m2"`
	EnergyKWhPerM2 float64 `json:"energy_kwh_per_m2" yaml:"energy_kwh_per_m2"`
	VOCGPerM2      float64 `json:"voc_g_per_m2" yaml:"voc_g_per_m2"`
	CO2Level       string  `json:"co2_level" yaml:"co2_level"`
	VOCLevel       string  `json:"voc_level" yaml:"voc_level"`
	Method         string  `json:"method" yaml:"method"`
}

// CheckFinite rejects estimates whose inputs pushed a metric out of float range
func (e *ImpactEstimate) CheckFinite() error {
	metrics := []struct {
		field string
		value float64
	}{
		{"co2_kg_per_m2", e.CO2KgPerM2},
		{"energy_kwh_per_m2", e.EnergyKWhPerM2},
		{"voc_g_per_m2", e.VOCGPerM2},
	}
	for _, m := range metrics {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) {
			return invalidArgument(m.field, m.value, "process condition is out of range")
		}
	}
	return nil
}

// Recipe fills the composition columns the dashboard keeps fixed
type Recipe struct {
	BinderAmountWt     float64 `json:"binder_amount_wt" yaml:"binder_amount_wt"`
	GraphiteWt         float64 `json:"graphite_wt" yaml:"graphite_wt"`
	SuperPWt           float64 `json:"superp_wt" yaml:"superp_wt"`
	CoatingThicknessMM float64 `json:"coating_thickness_mm" yaml:"coating_thickness_mm"`
}

// DefaultRecipe is the fixed slurry composition used for what-if estimates
var DefaultRecipe = Recipe{
	BinderAmountWt:     2.0,
	GraphiteWt:         97.0,
	SuperPWt:           1.0,
	CoatingThicknessMM: 0.1,
}
