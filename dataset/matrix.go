package dataset

import (
	"fmt"

	"github.com/hupe1980/radbase/scenario"
)

// Matrix is a dense row-major float32 table.
type Matrix struct {
	Rows    int
	Cols    int
	Columns []string
	Data    []float32
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int, columns []string) (*Matrix, error) {
	if rows < 0 || cols <= 0 {
		return nil, fmt.Errorf("dataset: invalid shape (%d, %d)", rows, cols)
	}
	if columns != nil && len(columns) != cols {
		return nil, fmt.Errorf("dataset: %d column names for %d columns", len(columns), cols)
	}
	return &Matrix{
		Rows:    rows,
		Cols:    cols,
		Columns: columns,
		Data:    make([]float32, rows*cols),
	}, nil
}

// FromRows converts result rows to a float32 matrix with the standard
// column names.
func FromRows(rows []scenario.Row) *Matrix {
	m := &Matrix{
		Rows:    len(rows),
		Cols:    scenario.RowWidth,
		Columns: scenario.ColumnNames(),
		Data:    make([]float32, len(rows)*scenario.RowWidth),
	}
	for i := range rows {
		dst := m.Data[i*scenario.RowWidth : (i+1)*scenario.RowWidth]
		for j, v := range rows[i] {
			dst[j] = float32(v)
		}
	}
	return m
}

// Shape returns (rows, cols).
func (m *Matrix) Shape() (int, int) { return m.Rows, m.Cols }

// Row returns a view of row i.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

// Column copies column j into a new slice.
func (m *Matrix) Column(j int) []float32 {
	out := make([]float32, m.Rows)
	for i := range out {
		out[i] = m.Data[i*m.Cols+j]
	}
	return out
}

// ColumnIndex returns the index of the named column, or -1.
func (m *Matrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ResultRow widens row i back to a result row. It panics unless the matrix
// has scenario.RowWidth columns.
func (m *Matrix) ResultRow(i int) scenario.Row {
	if m.Cols != scenario.RowWidth {
		panic(fmt.Sprintf("dataset: matrix has %d columns, want %d", m.Cols, scenario.RowWidth))
	}
	var r scenario.Row
	for j, v := range m.Row(i) {
		r[j] = float64(v)
	}
	return r
}

// FilterZeroComposition drops rows whose composition columns are all zero.
//
// Such rows cannot come from a valid scenario; they are what a zero-filled
// failed sample looks like. It returns the filtered matrix and the number of
// dropped rows. Matrices that are not result tables are returned unchanged.
func (m *Matrix) FilterZeroComposition() (*Matrix, int) {
	if m.Cols != scenario.RowWidth {
		return m, 0
	}

	out := &Matrix{
		Cols:    m.Cols,
		Columns: m.Columns,
		Data:    make([]float32, 0, len(m.Data)),
	}
	for i := 0; i < m.Rows; i++ {
		row := m.Row(i)
		if allZero(row[scenario.ColComposition : scenario.ColComposition+scenario.NumSpecies]) {
			continue
		}
		out.Data = append(out.Data, row...)
		out.Rows++
	}
	return out, m.Rows - out.Rows
}

func allZero(vs []float32) bool {
	for _, v := range vs {
		if v != 0 {
			return false
		}
	}
	return true
}
