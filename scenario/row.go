package scenario

// NumOutputs is the number of quantities parsed from an oracle report.
const NumOutputs = 5

// RowWidth is the fixed number of columns of a result row.
const RowWidth = 7 + NumSpecies + NumOutputs

// Column offsets of a result row.
const (
	ColOmegaMin = 0
	ColOmegaMax = 1
	ColTWall    = 2
	ColT        = 3
	ColLength   = 4
	ColPressure = 5
	ColFV       = 6

	// ColComposition is the first of NumSpecies mole fraction columns.
	ColComposition = 7

	// ColOutputs is the first of NumOutputs oracle output columns.
	ColOutputs = ColComposition + NumSpecies

	ColIntensity      = ColOutputs     // received intensity (W/m2/sr)
	ColPlanckMean     = ColOutputs + 1 // Planck-mean absorption coefficient (1/m)
	ColEffectiveAbs   = ColOutputs + 2 // effective absorption coefficient (1/m)
	ColEmissivity     = ColOutputs + 3
	ColTransmissivity = ColOutputs + 4
)

// Row is one oracle result: band bounds, conditions, composition, outputs.
//
// Row is an array so it is comparable and can key a map.
type Row [RowWidth]float64

// Outputs returns the oracle output columns.
func (r *Row) Outputs() []float64 {
	return r[ColOutputs:]
}

// Composition returns the mole fraction columns.
func (r *Row) Composition() []float64 {
	return r[ColComposition : ColComposition+NumSpecies]
}

// IsZero reports whether every column is zero.
func (r *Row) IsZero() bool {
	return *r == Row{}
}

// ColumnNames returns the column names in row order.
func ColumnNames() []string {
	names := make([]string, 0, RowWidth)
	names = append(names, "OMMIN", "OMMAX", "TWALL", "T", "LENGTH", "PRESSURE", "FV")
	for _, sp := range Species {
		names = append(names, "X"+sp)
	}
	names = append(names, "INTENSITY", "AMEAN_PLANCK", "AMEAN_EFF", "EMISSIVITY", "TRANSMISSIVITY")
	return names
}
