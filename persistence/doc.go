// Package persistence provides the durable-file primitives used by the
// dataset container.
//
//   - SaveToFile / LoadFromFile: atomic replace and buffered load
//   - ChecksumWriter: running CRC32C over a stream
//   - Encoder / SliceReader: portable little-endian encoding with
//     bounds-checked decoding from mapped memory
//
// All multi-byte values are little-endian regardless of the host.
package persistence
