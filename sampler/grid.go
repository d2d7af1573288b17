package sampler

import (
	"fmt"
	"math/rand/v2"
)

// Grid is a uniform grid over [Min, Max] with Steps points.
//
// Draws are quantized to grid points, so repeated runs revisit identical
// conditions and the aggregated dataset can deduplicate them.
type Grid struct {
	Min   float64
	Max   float64
	Steps int
}

// Fixed returns a grid that always yields v.
func Fixed(v float64) Grid {
	return Grid{Min: v, Max: v, Steps: 1}
}

// Draw returns a uniformly chosen grid point.
func (g Grid) Draw(r *rand.Rand) float64 {
	if g.Steps <= 1 || g.Max == g.Min {
		return g.Min
	}
	k := r.IntN(g.Steps)
	return g.At(k)
}

// At returns the k-th grid point.
func (g Grid) At(k int) float64 {
	if g.Steps <= 1 {
		return g.Min
	}
	if k == g.Steps-1 {
		return g.Max
	}
	return g.Min + float64(k)*(g.Max-g.Min)/float64(g.Steps-1)
}

// Validate reports an inverted or empty grid.
func (g Grid) Validate() error {
	if g.Max < g.Min {
		return fmt.Errorf("sampler: grid max %g below min %g", g.Max, g.Min)
	}
	if g.Steps < 1 {
		return fmt.Errorf("sampler: grid needs at least one step, got %d", g.Steps)
	}
	return nil
}
