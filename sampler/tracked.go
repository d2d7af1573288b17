package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/hupe1980/radbase/scenario"
)

// NumTracked is the number of species drawn by the Tracked regime.
const NumTracked = 3

// Bounds holds the grids of the scalar conditions.
type Bounds struct {
	T     Grid
	L     Grid
	P     Grid
	FV    Grid
	TWall Grid
}

// DefaultBounds are the documented condition ranges.
var DefaultBounds = Bounds{
	T:     Grid{Min: 300, Max: 2500, Steps: 221},
	L:     Grid{Min: 0.01, Max: 5, Steps: 100},
	P:     Grid{Min: 0.5, Max: 2, Steps: 100},
	FV:    Fixed(0),
	TWall: Grid{Min: 300, Max: 1500, Steps: 121},
}

// Validate checks every grid.
func (b Bounds) Validate() error {
	for name, g := range map[string]Grid{"T": b.T, "L": b.L, "P": b.P, "FV": b.FV, "TWALL": b.TWall} {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (b Bounds) draw(r *rand.Rand) Conditions {
	// Draw order is part of the reproducibility contract.
	return Conditions{
		T:     b.T.Draw(r),
		L:     b.L.Draw(r),
		P:     b.P.Draw(r),
		FV:    b.FV.Draw(r),
		TWall: b.TWall.Draw(r),
	}
}

// Tracked samples CO2, H2O and CO and closes the composition with N2.
type Tracked struct {
	Species [NumTracked]Grid
	Bounds  Bounds
}

// NewTracked returns the default tracked-species sampler.
func NewTracked() *Tracked {
	return &Tracked{
		Species: [NumTracked]Grid{
			{Min: 0, Max: 0.3, Steps: 100}, // CO2
			{Min: 0, Max: 0.3, Steps: 100}, // H2O
			{Min: 0, Max: 0.1, Steps: 100}, // CO
		},
		Bounds: DefaultBounds,
	}
}

// Validate rejects bounds whose tracked maxima could leave a negative residual.
func (s *Tracked) Validate() error {
	var maxSum float64
	for i, g := range s.Species {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("X%s: %w", scenario.Species[i], err)
		}
		if g.Min < 0 {
			return fmt.Errorf("sampler: X%s minimum is negative", scenario.Species[i])
		}
		maxSum += g.Max
	}
	if maxSum > 1 {
		return errors.New("sampler: tracked species maxima exceed unity")
	}
	return s.Bounds.Validate()
}

// Sample implements Sampler.
func (s *Tracked) Sample(r *rand.Rand, x []float64) Conditions {
	checkBuffer(x)

	clear(x)
	var sum float64
	for i, g := range s.Species {
		x[i] = g.Draw(r)
		sum += x[i]
	}
	x[scenario.NumSpecies-1] = 1 - sum

	return s.Bounds.draw(r)
}
