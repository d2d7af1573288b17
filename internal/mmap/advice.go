package mmap

import "errors"

// Advice is a hint about how a mapped range is going to be read.
type Advice int

const (
	// AdviceNormal drops any earlier hint.
	AdviceNormal Advice = iota
	// AdviceSequential suits a column chunk decoded front to back.
	AdviceSequential
	// AdviceRandom suits scattered reads such as the table directory.
	AdviceRandom
	// AdviceWillNeed asks for read-ahead of the whole range.
	AdviceWillNeed
	// AdviceDontNeed lets the kernel drop the pages.
	AdviceDontNeed
)

func (a Advice) String() string {
	switch a {
	case AdviceNormal:
		return "normal"
	case AdviceSequential:
		return "sequential"
	case AdviceRandom:
		return "random"
	case AdviceWillNeed:
		return "willneed"
	case AdviceDontNeed:
		return "dontneed"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is returned by every accessor once the mapping is closed.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for files too large to map.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrOutOfBounds is returned for ranges outside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
)
