package laspp

import "fmt"

// FormatError reports a structurally malformed file: bad signature, wrong
// header size for the declared version, an item-record size mismatch, or a
// chunk table whose running sums go negative.
type FormatError struct {
	Reason string
	Offset int64
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("laspp: format error at offset %d: %s", e.Offset, e.Reason)
}

// UnsupportedFeatureError reports a recognised but unimplemented feature:
// point formats 4/5/8/9/10, an adaptive chunk-table offset of -1 on read,
// or a non-arithmetic coder id.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("laspp: unsupported feature: %s", e.Feature)
}

// StateError reports a call made out of the writer's VLRS -> POINTS ->
// EVLRS -> CLOSED state sequence, or a reader call
// incompatible with the file's point format.
type StateError struct {
	Operation string
	State     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("laspp: %s invalid in state %s", e.Operation, e.State)
}

// IOError wraps an underlying filesystem failure (open, short read, mmap)
// with the operation and path that triggered it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("laspp: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CorruptionError reports a consistency check failing on data that parsed
// structurally fine: a chunk that decompressed to the wrong point count, or
// a quadtree whose interval sums disagree with its cell counts. Range-coder
// buffer under-runs (internal/rangecoder.CorruptStreamError) are recovered
// at this package's boundary and reported as CorruptionError too.
type CorruptionError struct {
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("laspp: corruption detected: %s", e.Reason)
}
