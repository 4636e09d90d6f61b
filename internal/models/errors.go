package models

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when an optional external dataset has nothing for the request.
// Callers surface it as "no data available" rather than failing.
var ErrNoData = errors.New("no data available")

// InvalidArgumentError represents a caller contract violation
type InvalidArgumentError struct {
	Field   string
	Value   string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsTransient returns false as argument errors are permanent
func (e *InvalidArgumentError) IsTransient() bool {
	return false
}

// invalidArgument is a small constructor used across the package
func invalidArgument(field string, value interface{}, message string) *InvalidArgumentError {
	return &InvalidArgumentError{
		Field:   field,
		Value:   fmt.Sprint(value),
		Message: message,
	}
}

// Incompatibility reasons
const (
	ReasonHydrophobicInAqueous = "hydrophobic binder in aqueous solvent"
	ReasonWaterBasedInOrganic  = "water-based binder in organic solvent"
)

// IncompatibleMaterialsError rejects a chemically inconsistent binder/solvent pair
type IncompatibleMaterialsError struct {
	Binder  BinderType
	Solvent SolventType
	Reason  string
}

func (e *IncompatibleMaterialsError) Error() string {
	return fmt.Sprintf("incompatible materials %s/%s: %s", e.Binder, e.Solvent, e.Reason)
}

// IsTransient returns false; the same pair will always be rejected
func (e *IncompatibleMaterialsError) IsTransient() bool {
	return false
}
