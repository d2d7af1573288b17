package testutil

import (
	"math/rand/v2"
	"sync"

	"github.com/hupe1980/radbase/scenario"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, 0)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, 0))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Scenario returns a random scenario whose composition sums to one.
func (r *RNG) Scenario() scenario.Scenario {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scenarioLocked()
}

func (r *RNG) scenarioLocked() scenario.Scenario {
	sc := scenario.New()
	sc.TWall = 300 + 1200*r.rand.Float64()
	sc.T = 300 + 2200*r.rand.Float64()
	sc.Length = 0.01 + 4.99*r.rand.Float64()
	sc.Pressure = 0.5 + 1.5*r.rand.Float64()

	var sum float64
	for i := 0; i < 3; i++ {
		sc.X[i] = 0.3 * r.rand.Float64()
		sum += sc.X[i]
	}
	sc.X[scenario.NumSpecies-1] = 1 - sum

	return sc
}

// Row returns a random result row with strictly positive outputs.
func (r *RNG) Row() scenario.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rowLocked()
}

func (r *RNG) rowLocked() scenario.Row {
	sc := r.scenarioLocked()
	row := sc.Row()
	for i := scenario.ColOutputs; i < scenario.RowWidth; i++ {
		row[i] = 1e-3 + r.rand.Float64()
	}
	return row
}

// Rows generates n random result rows.
func (r *RNG) Rows(n int) []scenario.Row {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]scenario.Row, n)
	for i := range rows {
		rows[i] = r.rowLocked()
	}
	return rows
}

// SentinelRow returns the row a stub invoker produces for sc: the scenario
// columns followed by the fixed FakeOutputs.
func SentinelRow(sc *scenario.Scenario) scenario.Row {
	row := sc.Row()
	copy(row[scenario.ColOutputs:], FakeOutputs[:])
	return row
}
