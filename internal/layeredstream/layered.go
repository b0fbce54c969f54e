// Package layeredstream implements the multi-stream framing used by
// layered-chunked (LAZ v3+) compression: a chunk's payload is framed as N
// independently range-coded layers behind a size header. pkg/laspp codes
// every Point14 field into one layer and RGB14 color into a second, so
// fields such as XYZ, GPS time or intensity cannot be skipped individually.
package layeredstream

import (
	"encoding/binary"
	"fmt"

	"github.com/laspp/laspp-go/internal/rangecoder"
)

// FramingError reports a malformed layered-stream header or truncated
// layer payload.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("layeredstream: %s", e.Reason)
}

// dummy is substituted for any layer whose encoded size is too small to
// hold a valid range-coder prefix; rangecoder.InStream always requires at
// least 4 bytes to seed its state, so a genuinely empty layer still needs
// a placeholder nobody actually decodes from.
var dummy = [4]byte{}

// OutStreams accumulates n independently range-coded output layers.
type OutStreams struct {
	layers []*rangecoder.OutStream
}

// NewOutStreams returns n fresh, empty layers.
func NewOutStreams(n int) *OutStreams {
	s := &OutStreams{layers: make([]*rangecoder.OutStream, n)}
	for i := range s.layers {
		s.layers[i] = rangecoder.NewOutStream()
	}
	return s
}

// Layer returns the i'th layer's encoder, for field encoders to write into.
func (s *OutStreams) Layer(i int) *rangecoder.OutStream { return s.layers[i] }

// NumLayers returns the number of layers.
func (s *OutStreams) NumLayers() int { return len(s.layers) }

// Finalize finalizes every layer that was written to and returns the
// combined framed buffer: an N×uint32 little-endian size header followed by
// the concatenated layer payloads. A layer nothing was written to gets
// size 0 and contributes no bytes.
func (s *OutStreams) Finalize() []byte {
	sizes := make([]uint32, len(s.layers))
	payloads := make([][]byte, len(s.layers))
	for i, l := range s.layers {
		if len(l.Bytes()) == 0 && l.Length() == ^uint32(0) {
			continue
		}
		l.Finalize()
		payloads[i] = l.Bytes()
		sizes[i] = uint32(len(payloads[i]))
	}

	out := make([]byte, 4*len(sizes))
	for i, sz := range sizes {
		binary.LittleEndian.PutUint32(out[4*i:], sz)
	}
	for _, p := range payloads {
		out = append(out, p...)
	}
	return out
}

// InStreams decodes the framed buffer produced by OutStreams.Finalize.
type InStreams struct {
	layers   []*rangecoder.InStream
	nonEmpty []bool
}

// NewInStreams parses data as n layers framed the way OutStreams.Finalize
// writes them.
func NewInStreams(data []byte, n int) (*InStreams, error) {
	headerLen := 4 * n
	if len(data) < headerLen {
		return nil, &FramingError{Reason: "buffer too small for layer size header"}
	}
	sizes := make([]uint32, n)
	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint32(data[4*i:])
	}

	s := &InStreams{layers: make([]*rangecoder.InStream, n), nonEmpty: make([]bool, n)}
	pos := headerLen
	for i, sz := range sizes {
		end := pos + int(sz)
		if end > len(data) || end < pos {
			return nil, &FramingError{Reason: fmt.Sprintf("layer %d size %d exceeds remaining buffer", i, sz)}
		}
		layerData := data[pos:end]
		pos = end

		if sz < 4 {
			s.layers[i] = rangecoder.NewInStream(dummy[:])
			s.nonEmpty[i] = false
		} else {
			s.layers[i] = rangecoder.NewInStream(layerData)
			s.nonEmpty[i] = true
		}
	}
	return s, nil
}

// Layer returns the i'th layer's decoder.
func (s *InStreams) Layer(i int) *rangecoder.InStream { return s.layers[i] }

// NonEmpty reports whether the i'th layer actually held data (as opposed
// to being backed by the shared dummy buffer).
func (s *InStreams) NonEmpty(i int) bool { return s.nonEmpty[i] }
