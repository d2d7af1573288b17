// Package fs provides filesystem abstractions for testability and fault injection.
//
// The batch runner writes every durable artifact of a run (block files, the
// raw accumulation file, the run manifest) through a [FileSystem], so tests
// can crash it at an exact byte or on an fsync and then exercise resume.
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: open, remove, rename, truncate and friends
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper injecting write, sync, close, open and rename failures
//
// # Usage
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("raw.txt", fs.Fault{FailAfterBytes: 1024})
//
// Operations carry no context.Context: local file operations are short and
// not interruptible at the syscall level. Remote storage goes through
// blobstore, which is context-aware.
package fs
