package scaler

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/radbase/dataset"
	"github.com/hupe1980/radbase/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit(t *testing.T) {
	m := dataset.FromRows(testutil.NewRNG(3).Rows(500))

	s, err := Fit(m)
	require.NoError(t, err)
	require.NoError(t, s.Validate())
	assert.Equal(t, DefaultFeatures, s.Features)

	for k, name := range s.Features {
		col := m.Column(m.ColumnIndex(name))

		var sum float64
		for _, v := range col {
			sum += float64(v)
		}
		mean := sum / float64(len(col))

		var ss float64
		for _, v := range col {
			ss += (float64(v) - mean) * (float64(v) - mean)
		}
		std := math.Sqrt(ss / float64(len(col)))

		assert.InDelta(t, mean, s.Mean[k], 1e-9*math.Max(1, math.Abs(mean)), name)
		assert.InDelta(t, std, s.Scale[k], 1e-9*math.Max(1, std), name)
	}
}

func TestFitConstantColumn(t *testing.T) {
	// Default bounds keep OMMIN constant.
	m := dataset.FromRows(testutil.NewRNG(1).Rows(10))

	s, err := Fit(m, "OMMIN", "T")
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Scale[0])

	x := []float64{s.Mean[0], s.Mean[1]}
	s.Transform(x)
	assert.Equal(t, []float64{0, 0}, x)
}

func TestFitErrors(t *testing.T) {
	_, err := Fit(dataset.FromRows(nil))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Fit(dataset.FromRows(testutil.NewRNG(1).Rows(2)), "XNOPE")
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestTransformInverse(t *testing.T) {
	s := &Scaler{
		Features: []string{"T", "LENGTH"},
		Mean:     []float64{1000, 2},
		Scale:    []float64{500, 0.5},
	}

	x := []float64{1500, 1}
	s.Transform(x)
	assert.Equal(t, []float64{1, -2}, x)

	s.Inverse(x)
	assert.Equal(t, []float64{1500, 1}, x)

	assert.Panics(t, func() { s.Transform([]float64{1}) })
}

func TestTransformMatrix(t *testing.T) {
	m := dataset.FromRows(testutil.NewRNG(9).Rows(200))
	s, err := Fit(m)
	require.NoError(t, err)

	z, err := s.TransformMatrix(m)
	require.NoError(t, err)

	rows, cols := z.Shape()
	assert.Equal(t, 200, rows)
	assert.Equal(t, len(DefaultFeatures), cols)

	refit, err := Fit(z, DefaultFeatures...)
	require.NoError(t, err)
	for k := range refit.Mean {
		assert.InDelta(t, 0, refit.Mean[k], 1e-5)
		assert.InDelta(t, 1, refit.Scale[k], 1e-4)
	}
}

func TestSaveLoad(t *testing.T) {
	s, err := Fit(dataset.FromRows(testutil.NewRNG(5).Rows(50)))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "scaler.yaml")
	require.NoError(t, s.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "features: [TWALL, T, LENGTH, PRESSURE, XCO2, XH2O, XCO]"))
	assert.Contains(t, string(data), "\nmean: [")
	assert.Contains(t, string(data), "\nscale: [")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Unmarshal([]byte("features: [T]\nmean: [1, 2]\nscale: [1]\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Unmarshal([]byte("features: [T]\nmean: [1]\nscale: [0]\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Unmarshal([]byte("features: [T\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("features: [T]\nmean: [1]\nscale: [0]\n"), 0o600))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}
