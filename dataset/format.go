package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/radbase/persistence"
)

const (
	// FormatMagic identifies dataset container files (ASCII: "RDB0").
	FormatMagic = 0x52444230

	// FormatVersion is the current container format version.
	FormatVersion uint32 = 1

	// HeaderSize is the size of the file header in bytes.
	HeaderSize = 64

	// DefaultPath is the table written by the aggregator and read by Load.
	DefaultPath = "radcal/database"
)

var (
	// ErrInvalidMagic is returned when a file is not a dataset container.
	ErrInvalidMagic = errors.New("dataset: invalid magic number")

	// ErrInvalidVersion is returned when a file has an unsupported version.
	ErrInvalidVersion = errors.New("dataset: unsupported format version")

	// ErrCorrupted is returned when a file fails structural or checksum validation.
	ErrCorrupted = errors.New("dataset: file corrupted")

	// ErrTableNotFound is returned when the requested table path does not exist.
	ErrTableNotFound = errors.New("dataset: table not found")

	// ErrInvalidPath is returned for malformed table paths.
	ErrInvalidPath = errors.New("dataset: invalid table path")

	// ErrClosed is returned when reading from a closed File.
	ErrClosed = errors.New("dataset: file is closed")
)

// fileHeader is the 64-byte header at the start of a container.
//
// Layout (little-endian):
//
//	[0:4]   magic
//	[4:8]   version
//	[8:12]  flags
//	[12:16] table count
//	[16:24] directory offset
//	[24:32] directory length
//	[32:36] directory CRC32C
//	[36:56] reserved
//	[56:60] header CRC32C over [0:56]
//	[60:64] reserved
type fileHeader struct {
	Version     uint32
	Flags       uint32
	TableCount  uint32
	DirOffset   uint64
	DirLength   uint64
	DirChecksum uint32
}

func (h *fileHeader) marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], FormatMagic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], h.TableCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.DirOffset)
	binary.LittleEndian.PutUint64(buf[24:32], h.DirLength)
	binary.LittleEndian.PutUint32(buf[32:36], h.DirChecksum)
	binary.LittleEndian.PutUint32(buf[56:60], persistence.CalculateChecksum(buf[:56]))
	return buf
}

func (h *fileHeader) unmarshal(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("%w: file too small for header (%d bytes)", ErrCorrupted, len(buf))
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != FormatMagic {
		return ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(buf[56:60]) != persistence.CalculateChecksum(buf[:56]) {
		return fmt.Errorf("%w: header checksum mismatch", ErrCorrupted)
	}

	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	if h.Version == 0 || h.Version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	h.TableCount = binary.LittleEndian.Uint32(buf[12:16])
	h.DirOffset = binary.LittleEndian.Uint64(buf[16:24])
	h.DirLength = binary.LittleEndian.Uint64(buf[24:32])
	h.DirChecksum = binary.LittleEndian.Uint32(buf[32:36])
	return nil
}

// TableInfo describes one table of a container.
type TableInfo struct {
	Path        string
	Rows        int
	Cols        int
	Columns     []string
	Compression Compression
}

// Group returns the group part of the table path ("radcal" for
// "radcal/database").
func (t TableInfo) Group() string {
	i := strings.LastIndexByte(t.Path, '/')
	if i < 0 {
		return ""
	}
	return t.Path[:i]
}

type columnChunk struct {
	Offset   uint64
	Length   uint64
	Checksum uint32
}

type tableEntry struct {
	TableInfo
	chunks []columnChunk
}

// CleanPath validates a slash-separated table path and strips surrounding
// slashes.
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return p, nil
}
