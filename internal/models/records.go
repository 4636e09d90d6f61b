package models

import (
	"strconv"
	"strings"
	"time"
)

// Validation record kinds
const (
	KindHistory    = "history"
	KindPrediction = "prediction"
)

// ValidationRecord is one row of experimental comparison data: either a measured
// (history) capacity or a model output (prediction) for a cell sample
type ValidationRecord struct {
	ID        int64     `json:"id" db:"id"`
	SampleID  string    `json:"sample_id" db:"sample_id"`
	Cycle     int       `json:"cycle" db:"cycle"`
	Capacity  float64   `json:"capacity" db:"capacity"`
	Kind      string    `json:"kind" db:"kind"`
	BatchID   string    `json:"-" db:"batch_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RawValidationRow is a single line of the validation CSV before conversion
type RawValidationRow struct {
	SampleID string
	Cycle    string
	Capacity string
	Kind     string
}

// ToRecord converts the raw row, normalizing the kind tag
func (r *RawValidationRow) ToRecord() (*ValidationRecord, error) {
	sampleID := strings.TrimSpace(r.SampleID)
	if sampleID == "" {
		return nil, invalidArgument("sample_id", r.SampleID, "sample identifier is required")
	}

	cycle, err := strconv.Atoi(strings.TrimSpace(r.Cycle))
	if err != nil || cycle <= 0 {
		return nil, invalidArgument("cycle", r.Cycle, "expected a positive integer")
	}

	capacity, err := strconv.ParseFloat(strings.TrimSpace(r.Capacity), 64)
	if err != nil || capacity < 0 {
		return nil, invalidArgument("capacity", r.Capacity, "expected a non-negative number")
	}

	var kind string
	switch strings.ToLower(strings.TrimSpace(r.Kind)) {
	case "history", "measured", "input":
		kind = KindHistory
	case "prediction", "predicted", "model":
		kind = KindPrediction
	default:
		return nil, invalidArgument("type", r.Kind, "expected history or prediction")
	}

	return &ValidationRecord{
		SampleID:  sampleID,
		Cycle:     cycle,
		Capacity:  capacity,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// LCARecord is one row of the life-cycle assessment dataset
type LCARecord struct {
	ID                 int64       `json:"id" db:"id"`
	Binder             BinderType  `json:"binder_type" db:"binder_type"`
	Solvent            SolventType `json:"solvent_type" db:"solvent_type"`
	BinderAmountWt     float64     `json:"binder_amount_wt" db:"binder_amount_wt"`
	GraphiteWt         float64     `json:"graphite_wt" db:"graphite_wt"`
	SuperPWt           float64     `json:"superp_wt" db:"superp_wt"`
	CoatingThicknessMM float64     `json:"coating_thickness_mm" db:"coating_thickness_mm"`
	DryingTempC        float64     `json:"drying_temp_c" db:"drying_temp_c"`
	DryingTimeMin      float64     `json:"drying_time_min" db:"drying_time_min"`
	ArealLoading       float64     `json:"areal_loading_g_m2" db:"areal_loading_g_m2"`
	CO2KgPerM2         float64     `json:"co2_kg_per_m2" db:"co2_kg_per_m2"`
	EnergyKWhPerM2     float64     `json:"energy_kwh_per_m2" db:"energy_kwh_per_m2"`
	VOCGPerM2          float64     `json:"voc_g_per_m2" db:"voc_g_per_m2"`
	BatchID            string      `json:"-" db:"batch_id"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
}

// Recipe returns the composition columns of the row
func (r *LCARecord) Recipe() Recipe {
	return Recipe{
		BinderAmountWt:     r.BinderAmountWt,
		GraphiteWt:         r.GraphiteWt,
		SuperPWt:           r.SuperPWt,
		CoatingThicknessMM: r.CoatingThicknessMM,
	}
}

// Condition returns the process columns of the row
func (r *LCARecord) Condition() ProcessCondition {
	return ProcessCondition{
		Binder:        r.Binder,
		Solvent:       r.Solvent,
		DryingTempC:   r.DryingTempC,
		DryingTimeMin: r.DryingTimeMin,
		LoadingMass:   r.ArealLoading,
	}
}

// SampleSummary describes the stored comparison data for one sample
type SampleSummary struct {
	SampleID         string `json:"sample_id" db:"sample_id"`
	HistoryPoints    int    `json:"history_points" db:"history_points"`
	PredictionPoints int    `json:"prediction_points" db:"prediction_points"`
	MaxCycle         int    `json:"max_cycle" db:"max_cycle"`
}
