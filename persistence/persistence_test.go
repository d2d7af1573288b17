package persistence

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.rdb")

	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("first"))
		return err
	}))
	require.NoError(t, SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("second"))
		return err
	}))

	var got []byte
	require.NoError(t, LoadFromFile(path, func(r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	}))
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must be cleaned up")
}

func TestSaveToFileFailureKeepsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.rdb")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o600))

	boom := errors.New("boom")
	err := SaveToFile(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadFromFileMissing(t *testing.T) {
	err := LoadFromFile(filepath.Join(t.TempDir(), "missing"), func(io.Reader) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestChecksumWriter(t *testing.T) {
	payload := []byte("radcal/database")

	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)
	_, err := cw.Write(payload[:6])
	require.NoError(t, err)
	_, err = cw.Write(payload[6:])
	require.NoError(t, err)

	assert.Equal(t, CalculateChecksum(payload), cw.Sum())
	assert.Equal(t, int64(len(payload)), cw.Written())
	assert.Equal(t, payload, buf.Bytes())

	require.NoError(t, VerifyChecksum(payload, cw.Sum()))

	err = VerifyChecksum(payload[1:], cw.Sum())
	assert.True(t, IsChecksumMismatch(err))
	assert.True(t, IsChecksumMismatch(errors.Join(errors.New("wrapped"), err)))
	assert.False(t, IsChecksumMismatch(io.EOF))
}

func TestCalculateChecksumIsCastagnoli(t *testing.T) {
	assert.Equal(t, uint32(0xe3069283), CalculateChecksum([]byte("123456789")))
}

func TestEncoderSliceReader(t *testing.T) {
	e := NewEncoder(0)
	e.PutUint8(7)
	e.PutUint16(0xBEEF)
	e.PutUint32(0xDEADBEEF)
	e.PutUint64(math.MaxUint64 - 1)
	require.NoError(t, e.PutString("EMISSIVITY"))
	buf := AppendFloat32s(e.Bytes(), []float32{1.5, -2.25, float32(math.Inf(1))})

	r := NewSliceReader(buf)

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64-1), u64)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "EMISSIVITY", s)

	raw, err := r.ReadBytes(12)
	require.NoError(t, err)
	fs := make([]float32, 3)
	require.NoError(t, DecodeFloat32s(fs, raw))
	assert.Equal(t, []float32{1.5, -2.25, float32(math.Inf(1))}, fs)

	assert.Nil(t, r.Remaining())
	assert.Equal(t, len(buf), r.Offset())

	_, err = r.ReadUint32()
	assert.ErrorIs(t, err, ErrOutOfBounds)

	assert.ErrorIs(t, DecodeFloat32s(fs, raw[:8]), ErrOutOfBounds)

	e.Reset()
	assert.Zero(t, e.Len())
}

func TestPutStringTooLong(t *testing.T) {
	e := NewEncoder(0)
	assert.Error(t, e.PutString(string(make([]byte, MaxStringLen+1))))
}
