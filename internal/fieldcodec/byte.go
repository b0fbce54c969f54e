package fieldcodec

import (
	"github.com/laspp/laspp-go/internal/rangecoder"
	"github.com/laspp/laspp-go/internal/symbolmodel"
)

// ByteEncoder codes a single opaque byte position (e.g. one "extra bytes"
// payload slot) as a mod-256 delta against the previous point's value.
type ByteEncoder struct {
	have  bool
	last  uint8
	model *symbolmodel.Model // n=256
}

// NewByteEncoder returns a freshly seeded single-byte codec.
func NewByteEncoder() *ByteEncoder {
	return &ByteEncoder{model: symbolmodel.NewModel(256)}
}

// Reset seeds the predictor with the first value of a chunk.
func (e *ByteEncoder) Reset(first uint8) {
	e.last = first
	e.have = true
}

// DecodeByte reads one byte from in.
func (e *ByteEncoder) DecodeByte(in *rangecoder.InStream) uint8 {
	if !e.have {
		panic("fieldcodec: ByteEncoder.DecodeByte called before Reset")
	}
	v := uint8(e.model.DecodeSymbol(in)) + e.last
	e.last = v
	return v
}

// EncodeByte writes v to out.
func (e *ByteEncoder) EncodeByte(out *rangecoder.OutStream, v uint8) {
	if !e.have {
		panic("fieldcodec: ByteEncoder.EncodeByte called before Reset")
	}
	e.model.EncodeSymbol(out, uint16(v-e.last))
	e.last = v
}

// BytesEncoder codes a fixed-width byte payload (LAS "extra bytes") as N
// independent ByteEncoders, one per position, since neighboring positions
// usually hold unrelated fields with no cross-byte correlation to exploit.
type BytesEncoder struct {
	encoders []*ByteEncoder
}

// NewBytesEncoder returns a codec for payloads of the given width.
func NewBytesEncoder(width int) *BytesEncoder {
	b := &BytesEncoder{encoders: make([]*ByteEncoder, width)}
	for i := range b.encoders {
		b.encoders[i] = NewByteEncoder()
	}
	return b
}

// Reset seeds every position's predictor with the first payload of a chunk.
func (b *BytesEncoder) Reset(first []byte) {
	for i, e := range b.encoders {
		e.Reset(first[i])
	}
}

// DecodeBytes reads one payload from in into dst, which must have the
// codec's configured width.
func (b *BytesEncoder) DecodeBytes(in *rangecoder.InStream, dst []byte) {
	for i, e := range b.encoders {
		dst[i] = e.DecodeByte(in)
	}
}

// EncodeBytes writes payload to out.
func (b *BytesEncoder) EncodeBytes(out *rangecoder.OutStream, payload []byte) {
	for i, e := range b.encoders {
		e.EncodeByte(out, payload[i])
	}
}
