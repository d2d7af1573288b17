package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned when a read runs past the end of the buffer.
var ErrOutOfBounds = errors.New("persistence: out of bounds read")

// MaxStringLen is the longest string PutString accepts.
const MaxStringLen = math.MaxUint16

// Encoder appends little-endian values to a growing buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with the given initial capacity.
func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int { return len(e.buf) }

// Reset discards the encoded bytes but keeps the capacity.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

func (e *Encoder) PutUint8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) PutUint16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }

func (e *Encoder) PutUint32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }

func (e *Encoder) PutUint64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

// PutString writes a uint16 length prefix followed by the bytes of s.
func (e *Encoder) PutString(s string) error {
	if len(s) > MaxStringLen {
		return fmt.Errorf("persistence: string of %d bytes exceeds %d", len(s), MaxStringLen)
	}
	e.PutUint16(uint16(len(s))) //nolint:gosec // bounded above
	e.buf = append(e.buf, s...)
	return nil
}

// AppendFloat32s appends vs to dst in little-endian binary32 form.
func AppendFloat32s(dst []byte, vs []float32) []byte {
	dst = growBytes(dst, 4*len(vs))
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// DecodeFloat32s decodes len(dst) binary32 values from src.
func DecodeFloat32s(dst []float32, src []byte) error {
	if len(src) != 4*len(dst) {
		return fmt.Errorf("%w: %d bytes for %d float32 values", ErrOutOfBounds, len(src), len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
	return nil
}

func growBytes(b []byte, n int) []byte {
	if cap(b)-len(b) >= n {
		return b
	}
	nb := make([]byte, len(b), len(b)+n)
	copy(nb, b)
	return nb
}

// SliceReader provides bounds-checked reads from a byte slice.
// It is used to decode mapped files without intermediate allocations.
type SliceReader struct {
	b   []byte
	off int
}

// NewSliceReader returns a reader positioned at the start of b.
func NewSliceReader(b []byte) *SliceReader {
	return &SliceReader{b: b}
}

// Offset returns the current read position.
func (r *SliceReader) Offset() int {
	if r == nil {
		return 0
	}
	return r.off
}

// ReadBytes returns a view of the next n bytes.
func (r *SliceReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.b)-r.off {
		return nil, fmt.Errorf("%w: %d bytes at %d, len=%d", ErrOutOfBounds, n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *SliceReader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *SliceReader) ReadUint16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *SliceReader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *SliceReader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadString reads a string written by Encoder.PutString.
func (r *SliceReader) ReadString() (string, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Remaining returns the unread part of the buffer.
func (r *SliceReader) Remaining() []byte {
	if r.off >= len(r.b) {
		return nil
	}
	return r.b[r.off:]
}
