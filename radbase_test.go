package radbase

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/radbase/oracle"
	"github.com/hupe1980/radbase/runner"
	"github.com/hupe1980/radbase/sampler"
	"github.com/hupe1980/radbase/scenario"
	"github.com/hupe1980/radbase/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithFakeOracle(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	dst := filepath.Join(t.TempDir(), "radcal.rdb")

	res, err := Generate(context.Background(), dst,
		WithOracle(testutil.FakeOracle(t, testutil.FakeSuccess)),
		WithSampler(sampler.NewFullSpectrum()),
		WithMetricsCollector(metrics),
		WithRunnerOptions(func(o *runner.Options) {
			o.Repeats = 2
			o.SampleSize = 3
			o.ScratchDir = t.TempDir()
		}),
	)
	require.NoError(t, err)
	require.Len(t, res.Rows, 6)

	m, err := Load(dst)
	require.NoError(t, err)
	rows, cols := m.Shape()
	assert.Equal(t, 6, rows)
	assert.Equal(t, scenario.RowWidth, cols)

	f, err := Open(dst)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	tables := f.Tables()
	require.Len(t, tables, 1)
	assert.Equal(t, "radcal/database", tables[0].Path)
	assert.Equal(t, 6, tables[0].Rows)

	st := metrics.Stats()
	assert.Equal(t, int64(6), st.Samples)
	assert.Equal(t, int64(2), st.Blocks)
	assert.Equal(t, int64(6), st.Rows)
}

func TestGenerateSkipsExisting(t *testing.T) {
	inv := oracle.InvokerFunc(func(_ context.Context, _ oracle.Workspace, sc *scenario.Scenario) (scenario.Row, error) {
		return testutil.SentinelRow(sc), nil
	})
	dst := filepath.Join(t.TempDir(), "radcal.rdb")
	scratch := WithRunnerOptions(func(o *runner.Options) { o.ScratchDir = t.TempDir() })

	res, err := Generate(context.Background(), dst, WithInvoker(inv), scratch)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	res, err = Generate(context.Background(), dst, WithInvoker(inv), scratch, WithLogger(nil))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestGenerateErrors(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "radcal.rdb")

	_, err := Generate(context.Background(), dst)
	assert.ErrorIs(t, err, ErrNoOracle)

	_, err = Generate(context.Background(), dst, WithOracle(filepath.Join(t.TempDir(), "missing")))
	assert.ErrorIs(t, err, ErrExecutable)

	_, err = Load(dst)
	assert.Error(t, err)
}

func TestGenerateReportsRunError(t *testing.T) {
	res, err := Generate(context.Background(), filepath.Join(t.TempDir(), "radcal.rdb"),
		WithOracle(testutil.FakeOracle(t, testutil.FakeNoOutput)),
		WithRunnerOptions(func(o *runner.Options) { o.ScratchDir = t.TempDir() }),
	)
	assert.Nil(t, res)

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.NotEmpty(t, re.RunDir)
	assert.False(t, IsRecoverable(err))
}
