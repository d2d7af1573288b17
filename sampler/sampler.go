// Package sampler draws randomized physical scenarios for the oracle.
//
// A Sampler fills a composition buffer and returns the remaining physical
// conditions. Randomness is never global: every call receives the generator
// it must draw from, so callers control seeding and can run samplers from
// several goroutines with independent generators.
//
// # Regimes
//
//   - Tracked: three tracked species (CO2, H2O, CO) with N2 as the residual.
//   - FullSpectrum: every non-residual species receives a share.
//   - Func: adapter for caller-supplied sampling functions.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/hupe1980/radbase/scenario"
)

// Conditions are the scalar conditions returned by a Sampler.
type Conditions struct {
	T     float64 // gas temperature (K)
	L     float64 // path length (m)
	P     float64 // pressure (atm)
	FV    float64 // soot volume fraction
	TWall float64 // wall temperature (K)
}

// Sampler produces one randomized scenario per call.
//
// Sample mutates x (length scenario.NumSpecies) so that it sums to one and
// returns the drawn conditions. It has no other side effects.
type Sampler interface {
	Sample(r *rand.Rand, x []float64) Conditions
}

// Func adapts a plain function to the Sampler interface.
type Func func(r *rand.Rand, x []float64) Conditions

// Sample implements Sampler.
func (f Func) Sample(r *rand.Rand, x []float64) Conditions {
	return f(r, x)
}

// NewRand returns a PCG generator for the given seed and stream.
//
// Distinct streams of the same seed are independent, which lets callers
// derive one reproducible generator per block.
func NewRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// Draw runs s once and returns a complete scenario with default band bounds.
func Draw(s Sampler, r *rand.Rand) scenario.Scenario {
	sc := scenario.New()
	c := s.Sample(r, sc.X[:])
	sc.T = c.T
	sc.Length = c.L
	sc.Pressure = c.P
	sc.FV = c.FV
	sc.TWall = c.TWall
	return sc
}

func checkBuffer(x []float64) {
	if len(x) != scenario.NumSpecies {
		panic(fmt.Sprintf("sampler: composition buffer has length %d, want %d", len(x), scenario.NumSpecies))
	}
}
