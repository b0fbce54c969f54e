// Package fieldcodec implements the predictive per-field point encoders
// layered on top of internal/symbolmodel: Point10, GPSTime11, RGB12,
// Point14, RGB14 and the generic Byte/Bytes encoder.
package fieldcodec

// StreamingMedian is a running median predictor the way the legacy-point
// XYZ predictors use it: a 5-slot insertion-sorted window in which each
// insertion evicts the current largest or smallest entry, with no need to
// keep the full history.
type StreamingMedian[T int32 | int64] struct {
	vals          [5]T
	removeLargest bool
}

// Insert folds v into the window and flips which end the next insertion
// will evict, matching the reference implementation's alternating
// remove-largest/remove-smallest update.
func (m *StreamingMedian[T]) Insert(v T) {
	if m.removeLargest {
		switch {
		case v < m.vals[0]:
			m.vals[4] = m.vals[3]
			m.vals[3] = m.vals[2]
			m.vals[2] = m.vals[1]
			m.vals[1] = m.vals[0]
			m.vals[0] = v
		case v < m.vals[1]:
			m.vals[4] = m.vals[3]
			m.vals[3] = m.vals[2]
			m.vals[2] = m.vals[1]
			m.vals[1] = v
		case v < m.vals[2]:
			m.vals[4] = m.vals[3]
			m.vals[3] = m.vals[2]
			m.vals[2] = v
		case v < m.vals[3]:
			m.vals[4] = m.vals[3]
			m.vals[3] = v
		default:
			m.vals[4] = v
		}
	} else {
		switch {
		case v > m.vals[4]:
			m.vals[0] = m.vals[1]
			m.vals[1] = m.vals[2]
			m.vals[2] = m.vals[3]
			m.vals[3] = m.vals[4]
			m.vals[4] = v
		case v > m.vals[3]:
			m.vals[0] = m.vals[1]
			m.vals[1] = m.vals[2]
			m.vals[2] = m.vals[3]
			m.vals[3] = v
		case v > m.vals[2]:
			m.vals[0] = m.vals[1]
			m.vals[1] = m.vals[2]
			m.vals[2] = v
		case v > m.vals[1]:
			m.vals[0] = m.vals[1]
			m.vals[1] = v
		default:
			m.vals[0] = v
		}
	}
	m.removeLargest = !m.removeLargest
}

// Median returns the window's current median value.
func (m *StreamingMedian[T]) Median() T {
	return m.vals[2]
}
