package sampler

import (
	"errors"
	"math/rand/v2"

	"github.com/hupe1980/radbase/scenario"
)

// FullSpectrum spreads a drawn non-residual fraction over every species
// except the residual one.
type FullSpectrum struct {
	// Total is the grid of the combined non-residual mole fraction.
	Total  Grid
	Bounds Bounds
}

// NewFullSpectrum returns a full-spectrum sampler with default bounds.
func NewFullSpectrum() *FullSpectrum {
	return &FullSpectrum{
		Total:  Grid{Min: 0, Max: 0.6, Steps: 61},
		Bounds: DefaultBounds,
	}
}

// Validate checks that the total fraction stays within [0, 1].
func (s *FullSpectrum) Validate() error {
	if err := s.Total.Validate(); err != nil {
		return err
	}
	if s.Total.Min < 0 || s.Total.Max > 1 {
		return errors.New("sampler: total fraction must lie in [0, 1]")
	}
	return s.Bounds.Validate()
}

// Sample implements Sampler.
func (s *FullSpectrum) Sample(r *rand.Rand, x []float64) Conditions {
	checkBuffer(x)

	total := s.Total.Draw(r)

	var weights float64
	for i := 0; i < scenario.NumSpecies-1; i++ {
		x[i] = r.Float64()
		weights += x[i]
	}

	var sum float64
	for i := 0; i < scenario.NumSpecies-1; i++ {
		if weights > 0 {
			x[i] = total * x[i] / weights
		} else {
			x[i] = 0
		}
		sum += x[i]
	}
	x[scenario.NumSpecies-1] = 1 - sum

	return s.Bounds.draw(r)
}
