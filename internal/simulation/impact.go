package simulation

import (
	"fmt"
	"math"

	"battery-platform/internal/models"
)

// Estimation methods
const (
	MethodRules     = "rules"
	MethodSurrogate = "surrogate"
)

// Estimator turns a process condition into an impact estimate
type Estimator interface {
	Estimate(cond models.ProcessCondition) (*models.ImpactEstimate, error)
}

type binderFamily int

const (
	familyUnknown binderFamily = iota
	familyHydrophobic
	familyWaterBased
)

var binderFamilies = map[models.BinderType]binderFamily{
	models.BinderPVDF: familyHydrophobic,
	models.BinderCMC:  familyWaterBased,
	models.BinderCMGG: familyWaterBased,
	models.BinderGG:   familyWaterBased,
	models.BinderSBR:  familyWaterBased,
}

type familySolvent struct {
	family  binderFamily
	solvent models.SolventType
}

// incompatiblePairs lists every rejected combination and why
var incompatiblePairs = map[familySolvent]string{
	{familyHydrophobic, models.SolventWater}: models.ReasonHydrophobicInAqueous,
	{familyWaterBased, models.SolventNMP}:    models.ReasonWaterBasedInOrganic,
}

// CheckCompatibility rejects binder/solvent pairs that cannot form a slurry.
// Unknown binders are not rejected.
func CheckCompatibility(binder models.BinderType, solvent models.SolventType) error {
	family := binderFamilies[binder]
	if reason, bad := incompatiblePairs[familySolvent{family, solvent}]; bad {
		return &models.IncompatibleMaterialsError{
			Binder:  binder,
			Solvent: solvent,
			Reason:  reason,
		}
	}
	return nil
}

type emissionFactor struct {
	kgPer20g float64
	level    string
}

var (
	emissionFluorinated = emissionFactor{0.45, "High (Fluorinated Polymer)"}
	emissionBioBased    = emissionFactor{0.12, "Low (Bio-based Polymer)"}
	emissionFallback    = emissionFactor{0.3, "Medium"}
)

var emissionFactors = map[models.BinderType]emissionFactor{
	models.BinderPVDF: emissionFluorinated,
	models.BinderCMGG: emissionBioBased,
	models.BinderGG:   emissionBioBased,
	models.BinderCMC:  emissionBioBased,
	models.BinderSBR:  emissionBioBased,
}

func emissionFor(binder models.BinderType) emissionFactor {
	if f, ok := emissionFactors[binder]; ok {
		return f
	}
	return emissionFallback
}

type solventProfile struct {
	boilingPointC float64
	penalty       float64
	vocPer10g     float64
	vocLevel      string
}

var solventProfiles = map[models.SolventType]solventProfile{
	models.SolventNMP:   {boilingPointC: 204.1, penalty: 1.5, vocPer10g: 3.0, vocLevel: "Critical (NMP Toxicity)"},
	models.SolventWater: {boilingPointC: 100.0, penalty: 1.0, vocPer10g: 0.0, vocLevel: "Clean (Water Vapor)"},
}

const (
	ambientTempC         = 25.0
	subBoilingEfficiency = 0.6
	energyNormalization  = 50000.0
	co2ReferenceLoading  = 20.0
	vocReferenceLoading  = 10.0
)

// ImpactModel is the rule-based CO2 / energy / VOC estimator.
// VOC scales linearly with loading; that is a model assumption, not measured data.
type ImpactModel struct{}

// NewImpactModel returns the rule-based estimator
func NewImpactModel() *ImpactModel {
	return &ImpactModel{}
}

// Estimate validates the chemistry first, then evaluates the three formulas
func (m *ImpactModel) Estimate(cond models.ProcessCondition) (*models.ImpactEstimate, error) {
	if err := CheckCompatibility(cond.Binder, cond.Solvent); err != nil {
		return nil, err
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}

	solvent, ok := solventProfiles[cond.Solvent]
	if !ok {
		return nil, fmt.Errorf("no solvent profile for %s", cond.Solvent)
	}
	emission := emissionFor(cond.Binder)

	estimate := &models.ImpactEstimate{
		CO2KgPerM2:     emission.kgPer20g * (cond.LoadingMass / co2ReferenceLoading),
		EnergyKWhPerM2: dryingEnergy(cond, solvent),
		VOCGPerM2:      solvent.vocPer10g * (cond.LoadingMass / vocReferenceLoading),
		CO2Level:       emission.level,
		VOCLevel:       solvent.vocLevel,
		Method:         MethodRules,
	}
	if err := estimate.CheckFinite(); err != nil {
		return nil, err
	}
	return estimate, nil
}

// dryingEnergy heats from ambient; drying below the boiling point wastes 40%
func dryingEnergy(cond models.ProcessCondition, solvent solventProfile) float64 {
	deltaT := math.Max(cond.DryingTempC-ambientTempC, 0)
	efficiency := subBoilingEfficiency
	if cond.DryingTempC >= solvent.boilingPointC {
		efficiency = 1.0
	}
	return (deltaT * cond.DryingTimeMin * solvent.penalty) / (efficiency * energyNormalization)
}

// Descriptors returns the CO2 and VOC severity labels for a condition
func Descriptors(cond models.ProcessCondition) (co2Level, vocLevel string) {
	return emissionFor(cond.Binder).level, solventProfiles[cond.Solvent].vocLevel
}
