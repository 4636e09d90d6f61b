package simulation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"battery-platform/internal/models"
)

// DefaultRidge is the L2 penalty used when fitting the surrogate. It keeps the
// normal equations solvable when one-hot columns are collinear with the intercept.
const DefaultRidge = 1e-6

// numericFeatures extracts the standardized columns in a fixed order
var numericFeatures = []struct {
	name  string
	value func(models.Recipe, models.ProcessCondition) float64
}{
	{"binder_amount_wt", func(r models.Recipe, _ models.ProcessCondition) float64 { return r.BinderAmountWt }},
	{"graphite_wt", func(r models.Recipe, _ models.ProcessCondition) float64 { return r.GraphiteWt }},
	{"superp_wt", func(r models.Recipe, _ models.ProcessCondition) float64 { return r.SuperPWt }},
	{"coating_thickness_mm", func(r models.Recipe, _ models.ProcessCondition) float64 { return r.CoatingThicknessMM }},
	{"drying_temp_c", func(_ models.Recipe, c models.ProcessCondition) float64 { return c.DryingTempC }},
	{"drying_time_min", func(_ models.Recipe, c models.ProcessCondition) float64 { return c.DryingTimeMin }},
	{"areal_loading_g_m2", func(_ models.Recipe, c models.ProcessCondition) float64 { return c.LoadingMass }},
}

// SurrogateModel is a ridge regression fit on the LCA dataset: standardized
// numeric features, one-hot binder and solvent, three targets.
// It is fit once and shared read-only.
type SurrogateModel struct {
	means    []float64
	scales   []float64
	binders  []models.BinderType
	solvents []models.SolventType
	coef     *mat.Dense // features x targets
	samples  int
	recipe   models.Recipe
}

// FitSurrogate trains the surrogate on records
func FitSurrogate(records []models.LCARecord, ridge float64) (*SurrogateModel, error) {
	if len(records) < 2 {
		return nil, errors.New("surrogate needs at least two training rows")
	}
	if ridge < 0 {
		return nil, fmt.Errorf("ridge penalty must be non-negative, got %v", ridge)
	}

	s := &SurrogateModel{
		means:   make([]float64, len(numericFeatures)),
		scales:  make([]float64, len(numericFeatures)),
		samples: len(records),
		recipe:  models.DefaultRecipe,
	}

	column := make([]float64, len(records))
	for j, f := range numericFeatures {
		for i := range records {
			column[i] = f.value(records[i].Recipe(), records[i].Condition())
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.means[j], s.scales[j] = mean, std
	}

	binderSet := map[models.BinderType]struct{}{}
	solventSet := map[models.SolventType]struct{}{}
	for i := range records {
		binderSet[records[i].Binder] = struct{}{}
		solventSet[records[i].Solvent] = struct{}{}
	}
	for b := range binderSet {
		s.binders = append(s.binders, b)
	}
	for sv := range solventSet {
		s.solvents = append(s.solvents, sv)
	}
	sort.Slice(s.binders, func(i, j int) bool { return s.binders[i] < s.binders[j] })
	sort.Slice(s.solvents, func(i, j int) bool { return s.solvents[i] < s.solvents[j] })

	n, p := len(records), s.width()
	x := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 3, nil)
	for i := range records {
		x.SetRow(i, s.features(records[i].Recipe(), records[i].Condition()))
		y.SetRow(i, []float64{records[i].CO2KgPerM2, records[i].EnergyKWhPerM2, records[i].VOCGPerM2})
	}

	var gram mat.Dense
	gram.Mul(x.T(), x)
	for j := 1; j < p; j++ {
		gram.Set(j, j, gram.At(j, j)+ridge*float64(n))
	}

	var moment mat.Dense
	moment.Mul(x.T(), y)

	var coef mat.Dense
	if err := coef.Solve(&gram, &moment); err != nil {
		return nil, fmt.Errorf("failed to solve surrogate normal equations: %w", err)
	}
	s.coef = &coef

	return s, nil
}

// width is intercept + numeric + one-hot columns
func (s *SurrogateModel) width() int {
	return 1 + len(numericFeatures) + len(s.binders) + len(s.solvents)
}

// features builds one design row. Categories unseen in training encode as all zeros.
func (s *SurrogateModel) features(recipe models.Recipe, cond models.ProcessCondition) []float64 {
	row := make([]float64, 0, s.width())
	row = append(row, 1)
	for j, f := range numericFeatures {
		row = append(row, (f.value(recipe, cond)-s.means[j])/s.scales[j])
	}
	for _, b := range s.binders {
		row = append(row, indicator(cond.Binder == b))
	}
	for _, sv := range s.solvents {
		row = append(row, indicator(cond.Solvent == sv))
	}
	return row
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Samples returns the number of rows the model was fit on
func (s *SurrogateModel) Samples() int {
	return s.samples
}

// Estimate predicts with the default recipe
func (s *SurrogateModel) Estimate(cond models.ProcessCondition) (*models.ImpactEstimate, error) {
	return s.EstimateWithRecipe(cond, s.recipe)
}

// EstimateWithRecipe runs the compatibility check, then predicts all three metrics
func (s *SurrogateModel) EstimateWithRecipe(cond models.ProcessCondition, recipe models.Recipe) (*models.ImpactEstimate, error) {
	if err := CheckCompatibility(cond.Binder, cond.Solvent); err != nil {
		return nil, err
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}

	row := mat.NewDense(1, s.width(), s.features(recipe, cond))
	var out mat.Dense
	out.Mul(row, s.coef)

	co2Level, vocLevel := Descriptors(cond)
	estimate := &models.ImpactEstimate{
		CO2KgPerM2:     math.Max(out.At(0, 0), 0),
		EnergyKWhPerM2: math.Max(out.At(0, 1), 0),
		VOCGPerM2:      math.Max(out.At(0, 2), 0),
		CO2Level:       co2Level,
		VOCLevel:       vocLevel,
		Method:         MethodSurrogate,
	}
	if err := estimate.CheckFinite(); err != nil {
		return nil, err
	}
	return estimate, nil
}
