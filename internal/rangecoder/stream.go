// Package rangecoder implements the binary arithmetic coder shared by every
// LAZ field encoder: a base/value/length state machine with carry
// propagation on the encode side and byte-at-a-time renormalisation on the
// decode side.
package rangecoder

import "fmt"

// CorruptStreamError reports an attempt to read past the end of a
// compressed-data buffer during renormalisation.
type CorruptStreamError struct {
	Reason string
}

func (e *CorruptStreamError) Error() string {
	return fmt.Sprintf("rangecoder: %s", e.Reason)
}

// InStream decodes a binary range-coded buffer held entirely in memory.
// It has no relation to Go's io.Reader: callers hand it the full
// compressed span for one chunk or layer up front.
type InStream struct {
	data   []byte
	pos    int
	value  uint32
	length uint32
}

// NewInStream wraps data for decoding. data must hold at least 4 bytes; the
// range coder reads them big-endian to seed its state.
func NewInStream(data []byte) *InStream {
	if len(data) < 4 {
		panic(&CorruptStreamError{Reason: "buffer too small to initialize (need at least 4 bytes)"})
	}
	s := &InStream{data: data, length: ^uint32(0)}
	for i := 0; i < 4; i++ {
		s.value = s.value<<8 | uint32(s.readByte())
	}
	return s
}

func (s *InStream) readByte() byte {
	if s.pos >= len(s.data) {
		panic(&CorruptStreamError{Reason: "read past end of buffer"})
	}
	b := s.data[s.pos]
	s.pos++
	return b
}

// Length returns the current coding interval width.
func (s *InStream) Length() uint32 { return s.length }

// UpdateRange narrows the interval to [lower, upper) of the current length.
func (s *InStream) UpdateRange(lower, upper uint32) {
	s.value -= lower
	s.length = upper - lower
}

// GetValue renormalises the coder (reading 0-3 bytes, depending on how far
// length has shrunk) and returns the current scaled value.
func (s *InStream) GetValue() uint32 {
	switch {
	case s.length < (1 << 8):
		if s.pos+3 > len(s.data) {
			panic(&CorruptStreamError{Reason: "read past end of buffer (need 3 bytes)"})
		}
		s.value <<= 24
		s.length <<= 24
		s.value |= uint32(s.data[s.pos])<<16 | uint32(s.data[s.pos+1])<<8 | uint32(s.data[s.pos+2])
		s.pos += 3
	case s.length < (1 << 16):
		if s.pos+2 > len(s.data) {
			panic(&CorruptStreamError{Reason: "read past end of buffer (need 2 bytes)"})
		}
		s.value <<= 16
		s.length <<= 16
		s.value |= uint32(s.data[s.pos])<<8 | uint32(s.data[s.pos+1])
		s.pos += 2
	case s.length < (1 << 24):
		if s.pos+1 > len(s.data) {
			panic(&CorruptStreamError{Reason: "read past end of buffer (need 1 byte)"})
		}
		s.value <<= 8
		s.length <<= 8
		s.value |= uint32(s.data[s.pos])
		s.pos++
	}
	return s.value
}

// OutStream accumulates range-coded output in memory. Carry propagation
// rewrites already-emitted bytes, so the buffer must support random-access
// mutation — a plain growable slice, unlike bytes.Buffer.
type OutStream struct {
	buf       []byte
	base      uint32
	length    uint32
	finalized bool
}

// NewOutStream returns a fresh encoder with maximal starting interval.
func NewOutStream() *OutStream {
	return &OutStream{length: ^uint32(0)}
}

// Length returns the current coding interval width.
func (s *OutStream) Length() uint32 { return s.length }

// Base returns the current base value (exposed for tests exercising the
// range-coder law directly).
func (s *OutStream) Base() uint32 { return s.base }

func (s *OutStream) propagateCarry() {
	pos := len(s.buf) - 1
	for pos >= 0 && s.buf[pos] == 0xff {
		s.buf[pos] = 0
		pos--
	}
	if pos < 0 {
		panic(&CorruptStreamError{Reason: "carry propagated past start of output buffer"})
	}
	s.buf[pos]++
}

func (s *OutStream) updateBase() {
	for s.length < (1 << 24) {
		s.buf = append(s.buf, byte(s.base>>24))
		s.base <<= 8
		s.length <<= 8
	}
}

// UpdateRange narrows the interval to [lower, upper) of the current length,
// propagating any carry into already-written bytes and renormalising.
func (s *OutStream) UpdateRange(lower, upper uint32) {
	if s.finalized {
		panic(&CorruptStreamError{Reason: "update_range called on a finalized stream"})
	}
	if uint64(s.base)+uint64(lower) >= (uint64(1) << 32) {
		s.propagateCarry()
	}
	s.base += lower
	s.length = upper - lower
	s.updateBase()
}

// Finalize flushes the terminator bytes that let a decoder recover the
// final symbol unambiguously. It is idempotent.
func (s *OutStream) Finalize() {
	if s.finalized {
		return
	}
	var writeTwoBytes bool
	if s.Length() > (1 << 25) {
		s.UpdateRange(1<<24, 0b11<<23)
		writeTwoBytes = false
	} else {
		s.UpdateRange(1<<23, (1<<23)+(1<<15))
		writeTwoBytes = true
	}
	s.buf = append(s.buf, 0, 0)
	if !writeTwoBytes {
		s.buf = append(s.buf, 0)
	}
	s.finalized = true
}

// Bytes returns the encoded payload. Finalize must be called first.
func (s *OutStream) Bytes() []byte {
	return s.buf
}
