// Package scaler standardizes the input features of a dataset for model
// training and stores the fitted statistics as a small YAML artifact.
package scaler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/internal/fs"
	"github.com/hupe1980/radbase/persistence"
	"gopkg.in/yaml.v3"
)

// DefaultFeatures are the scenario inputs a surrogate model is trained on.
var DefaultFeatures = []string{"TWALL", "T", "LENGTH", "PRESSURE", "XCO2", "XH2O", "XCO"}

var (
	// ErrUnknownFeature is returned when a feature is not a column of the
	// matrix being fitted.
	ErrUnknownFeature = errors.New("scaler: unknown feature")

	// ErrEmpty is returned when fitting a matrix without rows.
	ErrEmpty = errors.New("scaler: no rows to fit")

	// ErrInvalid is returned for a scaler whose fields disagree in length.
	ErrInvalid = errors.New("scaler: invalid scaler")
)

// Scaler holds per-feature mean and scale (population standard deviation).
type Scaler struct {
	Features []string  `yaml:"features,flow"`
	Mean     []float64 `yaml:"mean,flow"`
	Scale    []float64 `yaml:"scale,flow"`
}

// Fit computes mean and population standard deviation of the given columns
// of m. Features defaults to DefaultFeatures. A constant column gets scale 1
// so that Transform maps it to zero instead of dividing by zero.
func Fit(m *dataset.Matrix, features ...string) (*Scaler, error) {
	if len(features) == 0 {
		features = DefaultFeatures
	}
	if m.Rows == 0 {
		return nil, ErrEmpty
	}

	s := &Scaler{
		Features: append([]string(nil), features...),
		Mean:     make([]float64, len(features)),
		Scale:    make([]float64, len(features)),
	}

	for k, name := range features {
		j := m.ColumnIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
		}

		// Welford, accumulated in float64.
		var mean, m2 float64
		for i := 0; i < m.Rows; i++ {
			x := float64(m.At(i, j))
			d := x - mean
			mean += d / float64(i+1)
			m2 += d * (x - mean)
		}

		std := math.Sqrt(m2 / float64(m.Rows))
		if std == 0 {
			std = 1
		}
		s.Mean[k] = mean
		s.Scale[k] = std
	}

	return s, nil
}

// Validate checks that the fields have matching lengths and positive scales.
func (s *Scaler) Validate() error {
	n := len(s.Features)
	if n == 0 || len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("%w: %d features, %d means, %d scales", ErrInvalid, n, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: scale of %s is %g", ErrInvalid, s.Features[i], v)
		}
	}
	return nil
}

// Transform standardizes x in place. len(x) must equal len(s.Features).
func (s *Scaler) Transform(x []float64) {
	s.check(x)
	for i := range x {
		x[i] = (x[i] - s.Mean[i]) / s.Scale[i]
	}
}

// Inverse undoes Transform in place.
func (s *Scaler) Inverse(x []float64) {
	s.check(x)
	for i := range x {
		x[i] = x[i]*s.Scale[i] + s.Mean[i]
	}
}

// TransformMatrix returns the standardized feature columns of m as a
// row-major matrix with len(s.Features) columns.
func (s *Scaler) TransformMatrix(m *dataset.Matrix) (*dataset.Matrix, error) {
	cols := make([]int, len(s.Features))
	for k, name := range s.Features {
		if cols[k] = m.ColumnIndex(name); cols[k] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, name)
		}
	}

	out, err := dataset.NewMatrix(m.Rows, len(cols), append([]string(nil), s.Features...))
	if err != nil {
		return nil, err
	}

	x := make([]float64, len(cols))
	for i := 0; i < m.Rows; i++ {
		for k, j := range cols {
			x[k] = float64(m.At(i, j))
		}
		s.Transform(x)
		row := out.Row(i)
		for k, v := range x {
			row[k] = float32(v)
		}
	}

	return out, nil
}

func (s *Scaler) check(x []float64) {
	if len(x) != len(s.Features) {
		panic(fmt.Sprintf("scaler: vector has length %d, want %d", len(x), len(s.Features)))
	}
}

// Marshal encodes s as YAML.
func (s *Scaler) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("scaler: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("scaler: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and validates a YAML scaler.
func Unmarshal(data []byte) (*Scaler, error) {
	s := &Scaler{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("scaler: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes s to path atomically.
func (s *Scaler) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	return fs.WriteFileAtomic(fs.Default, path, data, 0o644)
}

// Load reads a scaler written by Save.
func Load(path string) (*Scaler, error) {
	var s *Scaler
	err := persistence.LoadFromFile(path, func(r io.Reader) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		s, err = Unmarshal(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
