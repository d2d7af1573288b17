package persistence

import (
	"errors"
	"fmt"
	stdhash "hash"
	"io"

	"github.com/hupe1980/radbase/internal/hash"
)

// CalculateChecksum returns the CRC32-Castagnoli checksum used for dataset
// headers, directories and column chunks.
func CalculateChecksum(data []byte) uint32 {
	return hash.CRC32C(data)
}

// VerifyChecksum returns a *ChecksumMismatchError if data does not hash to
// expected.
func VerifyChecksum(data []byte, expected uint32) error {
	if actual := CalculateChecksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// ChecksumWriter counts and checksums everything written through it.
type ChecksumWriter struct {
	w   io.Writer
	crc stdhash.Hash32
	n   int64
}

// NewChecksumWriter wraps w.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{w: w, crc: hash.NewCRC32C()}
}

// Write implements io.Writer. Only bytes accepted by the underlying writer
// enter the checksum.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	_, _ = cw.crc.Write(p[:n])
	cw.n += int64(n)
	return n, err
}

// Written returns the number of bytes written to the underlying writer.
func (cw *ChecksumWriter) Written() int64 { return cw.n }

// Sum returns the checksum of the bytes written so far.
func (cw *ChecksumWriter) Sum() uint32 { return cw.crc.Sum32() }

// ChecksumMismatchError is returned when checksum verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// IsChecksumMismatch reports whether err is or wraps a checksum mismatch.
func IsChecksumMismatch(err error) bool {
	var cm *ChecksumMismatchError
	return errors.As(err, &cm)
}
