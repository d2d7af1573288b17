// Package scenario defines the physical input record submitted to the
// radiative-properties oracle and the fixed-width result row it produces.
package scenario

import (
	"errors"
	"fmt"
	"math"
)

// NumSpecies is the length of the composition vector.
const NumSpecies = 14

// Species lists the recognized gas species in composition-vector order.
// The first three are the species tracked by the default sampler; the last
// one absorbs the closure residual.
var Species = [NumSpecies]string{
	"CO2", "H2O", "CO", "CH4", "C2H4", "C2H6", "C3H6",
	"C3H8", "C7H8", "C7H16", "CH3OH", "MMA", "O2", "N2",
}

const (
	// DefaultOmegaMin is the default lower band bound (1/cm).
	DefaultOmegaMin = 50.0
	// DefaultOmegaMax is the default upper band bound (1/cm).
	DefaultOmegaMax = 10000.0

	// ClosureTolerance is the allowed deviation of sum(X) from one.
	ClosureTolerance = 1e-9
)

// ErrClosure is returned when the composition vector does not sum to one.
var ErrClosure = errors.New("scenario: mole fractions do not sum to one")

// Scenario is one fully specified oracle input configuration.
type Scenario struct {
	OmegaMin float64 // lower band bound (1/cm)
	OmegaMax float64 // upper band bound (1/cm)
	TWall    float64 // wall temperature (K)
	T        float64 // gas temperature (K)
	Length   float64 // path length (m)
	Pressure float64 // pressure (atm)
	FV       float64 // soot volume fraction

	// X holds one mole fraction per entry of Species.
	X [NumSpecies]float64
}

// New returns a Scenario with the default band bounds and zero soot.
func New() Scenario {
	return Scenario{
		OmegaMin: DefaultOmegaMin,
		OmegaMax: DefaultOmegaMax,
	}
}

// CompositionSum returns sum(X).
func (s *Scenario) CompositionSum() float64 {
	var sum float64
	for _, x := range s.X {
		sum += x
	}
	return sum
}

// Validate checks the closure invariant and rejects negative fractions.
func (s *Scenario) Validate() error {
	for i, x := range s.X {
		if x < 0 || math.IsNaN(x) {
			return fmt.Errorf("%w: X%s = %g", ErrClosure, Species[i], x)
		}
	}
	if sum := s.CompositionSum(); math.Abs(sum-1) > ClosureTolerance {
		return fmt.Errorf("%w: sum = %.17g", ErrClosure, sum)
	}
	return nil
}

// Row returns the input half of a result row; the output columns are zero.
func (s *Scenario) Row() Row {
	var r Row
	r[ColOmegaMin] = s.OmegaMin
	r[ColOmegaMax] = s.OmegaMax
	r[ColTWall] = s.TWall
	r[ColT] = s.T
	r[ColLength] = s.Length
	r[ColPressure] = s.Pressure
	r[ColFV] = s.FV
	copy(r[ColComposition:ColComposition+NumSpecies], s.X[:])
	return r
}

// FromRow rebuilds the scenario stored in the input columns of r.
func FromRow(r Row) Scenario {
	s := Scenario{
		OmegaMin: r[ColOmegaMin],
		OmegaMax: r[ColOmegaMax],
		TWall:    r[ColTWall],
		T:        r[ColT],
		Length:   r[ColLength],
		Pressure: r[ColPressure],
		FV:       r[ColFV],
	}
	copy(s.X[:], r[ColComposition:ColComposition+NumSpecies])
	return s
}
