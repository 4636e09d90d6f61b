package services

import (
	"context"
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"battery-platform/internal/dataset"
	"battery-platform/internal/models"
	"battery-platform/internal/repository"
	"battery-platform/internal/simulation"
	"battery-platform/pkg/logging"
	"battery-platform/pkg/metrics"
)

// ErrSurrogateUnavailable is returned for surrogate requests when no model was fit
var ErrSurrogateUnavailable = errors.New("surrogate estimator is not available")

// Baseline sources
const (
	BaselineDataset  = "dataset"
	BaselineFallback = "fallback"
)

// Baseline is the conventional NMP process every estimate is compared against
type Baseline struct {
	CO2KgPerM2     float64 `json:"co2_kg_per_m2" yaml:"co2_kg_per_m2"`
	EnergyKWhPerM2 float64 `json:"energy_kwh_per_m2" yaml:"energy_kwh_per_m2"`
	VOCGPerM2      float64 `json:"voc_g_per_m2" yaml:"voc_g_per_m2"`
	Source         string  `json:"source" yaml:"source"`
}

// FallbackBaseline is used when the dataset has no NMP rows
var FallbackBaseline = Baseline{
	CO2KgPerM2:     0.27,
	EnergyKWhPerM2: 0.6,
	VOCGPerM2:      3.0,
	Source:         BaselineFallback,
}

// NMPBaseline averages the NMP rows of the training set per metric
func NMPBaseline(records []models.LCARecord) Baseline {
	var co2, energy, voc []float64
	for _, r := range records {
		if r.Solvent != models.SolventNMP {
			continue
		}
		co2 = append(co2, r.CO2KgPerM2)
		energy = append(energy, r.EnergyKWhPerM2)
		voc = append(voc, r.VOCGPerM2)
	}
	if len(co2) == 0 {
		return FallbackBaseline
	}

	return Baseline{
		CO2KgPerM2:     stat.Mean(co2, nil),
		EnergyKWhPerM2: stat.Mean(energy, nil),
		VOCGPerM2:      stat.Mean(voc, nil),
		Source:         BaselineDataset,
	}
}

// ImpactDelta is the percent change of each metric against the baseline. A nil
// entry means the baseline value is zero.
type ImpactDelta struct {
	CO2Pct    *float64 `json:"co2_pct" yaml:"co2_pct"`
	EnergyPct *float64 `json:"energy_pct" yaml:"energy_pct"`
	VOCPct    *float64 `json:"voc_pct" yaml:"voc_pct"`
}

// ImpactReport is an estimate with its baseline comparison
type ImpactReport struct {
	Condition models.ProcessCondition `json:"condition" yaml:"condition"`
	Estimate  *models.ImpactEstimate  `json:"estimate" yaml:"estimate"`
	Baseline  Baseline                `json:"baseline" yaml:"baseline"`
	Delta     ImpactDelta             `json:"delta" yaml:"delta"`
}

// ImpactService dispatches impact estimates to the rule or surrogate estimator
type ImpactService struct {
	rules     simulation.Estimator
	surrogate simulation.Estimator
	baseline  Baseline
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewImpactService creates a new impact service. surrogate may be nil.
func NewImpactService(rules, surrogate simulation.Estimator, baseline Baseline, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ImpactService {
	return &ImpactService{
		rules:     rules,
		surrogate: surrogate,
		baseline:  baseline,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Baseline returns the comparison baseline in use
func (s *ImpactService) Baseline() Baseline {
	return s.baseline
}

// SurrogateAvailable reports whether surrogate requests can be served
func (s *ImpactService) SurrogateAvailable() bool {
	return s.surrogate != nil
}

// Estimate evaluates cond with the named method ("rules" when empty)
func (s *ImpactService) Estimate(ctx context.Context, cond models.ProcessCondition, method string) (*ImpactReport, error) {
	var estimator simulation.Estimator
	switch method {
	case simulation.MethodRules, "":
		method = simulation.MethodRules
		estimator = s.rules
	case simulation.MethodSurrogate:
		if s.surrogate == nil {
			return nil, ErrSurrogateUnavailable
		}
		estimator = s.surrogate
	default:
		return nil, &models.InvalidArgumentError{Field: "method", Value: method, Message: "expected rules or surrogate"}
	}

	est, err := estimator.Estimate(cond)
	if err != nil {
		var incompatible *models.IncompatibleMaterialsError
		if errors.As(err, &incompatible) {
			s.metrics.RecordIncompatible(string(cond.Binder), string(cond.Solvent))
			s.logger.Warn(ctx, "[IMPACT_INCOMPATIBLE] Rejected binder/solvent pair", logging.Fields{
				"binder":  cond.Binder,
				"solvent": cond.Solvent,
				"reason":  incompatible.Reason,
			})
		}
		return nil, err
	}

	s.metrics.RecordImpactEstimate(method, string(cond.Binder), string(cond.Solvent))

	return &ImpactReport{
		Condition: cond,
		Estimate:  est,
		Baseline:  s.baseline,
		Delta: ImpactDelta{
			CO2Pct:    percentChange(est.CO2KgPerM2, s.baseline.CO2KgPerM2),
			EnergyPct: percentChange(est.EnergyKWhPerM2, s.baseline.EnergyKWhPerM2),
			VOCPct:    percentChange(est.VOCGPerM2, s.baseline.VOCGPerM2),
		},
	}, nil
}

func percentChange(value, base float64) *float64 {
	if base == 0 {
		return nil
	}
	pct := (value - base) / base * 100
	return &pct
}

// TrainingSet is the LCA data the surrogate and baseline are built from
type TrainingSet struct {
	Records []models.LCARecord
	Source  string // "database", "file" or "synthetic"
}

// LoadTrainingSet prefers rows already ingested into the repository, then the CSV
// at path, then the synthetic dataset. repo may be nil.
func LoadTrainingSet(ctx context.Context, repo repository.BatteryRepository, path string, src rand.Source, logger *logging.StructuredLogger) (*TrainingSet, error) {
	if repo != nil {
		records, err := repo.ListLCARecords(ctx)
		if err != nil {
			logger.Warn(ctx, "[TRAINING_SET] Could not read LCA rows from database", logging.Fields{
				"error": err.Error(),
			})
		} else if len(records) > 0 {
			return &TrainingSet{Records: records, Source: "database"}, nil
		}
	}

	records, synthetic, err := dataset.LoadLCA(path, src)
	if err != nil {
		return nil, err
	}
	set := &TrainingSet{Records: records, Source: "file"}
	if synthetic {
		set.Source = "synthetic"
		logger.Warn(ctx, "[TRAINING_SET] LCA dataset not found, using synthetic data", logging.Fields{
			"path": path,
			"rows": len(records),
		})
	}
	return set, nil
}

// FitSurrogate trains the surrogate on the training set and records fit metrics
func FitSurrogate(ctx context.Context, set *TrainingSet, ridge float64, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*simulation.SurrogateModel, error) {
	timer := metricsCollector.NewTimer(metricsCollector.SurrogateFitDuration)
	model, err := simulation.FitSurrogate(set.Records, ridge)
	duration := timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	metricsCollector.SurrogateTrainingSamples.Set(float64(model.Samples()))
	logger.Info(ctx, "[SURROGATE_FIT] Surrogate estimator trained", logging.Fields{
		"samples":     model.Samples(),
		"source":      set.Source,
		"ridge":       ridge,
		"duration_ms": duration.Milliseconds(),
	})

	return model, nil
}
