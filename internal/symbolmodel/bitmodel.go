package symbolmodel

import "github.com/laspp/laspp-go/internal/rangecoder"

// BitModel is an adaptive binary probability model. It is a distinct type
// from Model rather than Model with n=2 because its decode path samples
// the stream's value both before and after the interval split — required
// to keep the encoder and decoder byte-synchronized — and its update
// formula is specialized for two symbols.
type BitModel struct {
	bit0Count       uint32
	bitCount        uint32
	bit0Prob        uint32
	updateCycle     uint32
	bitsUntilUpdate uint32
}

// NewBitModel returns a freshly seeded 50/50 bit model.
func NewBitModel() *BitModel {
	return &BitModel{
		bit0Count:       1,
		bitCount:        2,
		bit0Prob:        1 << 12,
		updateCycle:     4,
		bitsUntilUpdate: 4,
	}
}

func (b *BitModel) updateDistribution() {
	b.bitCount += b.updateCycle
	if b.bitCount > (1 << 16) {
		b.bitCount = (b.bitCount + 1) >> 1
		b.bit0Count = (b.bit0Count + 1) >> 1
		if b.bit0Count == b.bitCount {
			b.bitCount++
		}
	}
	b.bit0Prob = uint32((((uint64(1) << 31) / uint64(b.bitCount)) * uint64(b.bit0Count)) >> 18)
	next := (5 * b.updateCycle) / 4
	if next > 64 {
		next = 64
	}
	b.updateCycle = next
	b.bitsUntilUpdate = b.updateCycle
}

// DecodeBit decodes one bit from in and adapts the model.
func (b *BitModel) DecodeBit(in *rangecoder.InStream) uint32 {
	value := in.GetValue()
	length := in.Length()
	split := (length >> 13) * b.bit0Prob

	var sym uint32
	if value < split {
		sym = 0
		in.UpdateRange(0, split)
		b.bit0Count++
	} else {
		sym = 1
		in.UpdateRange(split, length)
	}
	in.GetValue()

	b.bitsUntilUpdate--
	if b.bitsUntilUpdate == 0 {
		b.updateDistribution()
	}
	return sym
}

// EncodeBit emits bit (0 or 1) to out and adapts the model.
func (b *BitModel) EncodeBit(out *rangecoder.OutStream, bit uint32) {
	length := out.Length()
	split := (length >> 13) * b.bit0Prob

	if bit == 0 {
		out.UpdateRange(0, split)
		b.bit0Count++
	} else {
		out.UpdateRange(split, length)
	}

	b.bitsUntilUpdate--
	if b.bitsUntilUpdate == 0 {
		b.updateDistribution()
	}
}
