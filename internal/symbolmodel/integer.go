package symbolmodel

import "github.com/laspp/laspp-go/internal/rangecoder"

// symbolEncoders bundles the probability models a family of integer coders
// shares. prevK lives here, not on an individual IntegerCoder, because the
// reference coder shares one k-history across every instance spawned by a
// MultiInstanceIntegerCoder: a caller asking "what k did the last call use"
// means the last call on ANY instance, not just this one.
type symbolEncoders struct {
	bit0  *BitModel
	low   [7]*Model // k = 1..7, n = 1<<k
	high  []*Model  // k = 8..nBits, 256-ary, selected by k-8 (one model, not one per byte)
	prevK uint16
}

func newSymbolEncoders(nBits uint8) *symbolEncoders {
	se := &symbolEncoders{bit0: NewBitModel()}
	for k := 1; k <= 7 && k < int(nBits); k++ {
		se.low[k-1] = NewModel(1 << uint(k))
	}
	if int(nBits) >= 8 {
		se.high = make([]*Model, int(nBits)-7) // indices 0..nBits-8, i.e. k in [8, nBits]
		for i := range se.high {
			se.high[i] = NewModel(256)
		}
	}
	return se
}

// IntegerCoder adaptively codes signed integers of up to nBits magnitude
// bits, in the manner of the reference implementation's IntegerEncoder: a
// length-class symbol k followed by a k-bit residue, rather than coding the
// raw two's-complement bits directly.
type IntegerCoder struct {
	nBits    uint8
	kEncoder *Model
	shared   *symbolEncoders
}

// NewIntegerCoder returns a standalone coder with its own probability models.
func NewIntegerCoder(nBits uint8) *IntegerCoder {
	return &IntegerCoder{
		nBits:    nBits,
		kEncoder: NewModel(int(nBits) + 1),
		shared:   newSymbolEncoders(nBits),
	}
}

// PrevK reports the length class used by the most recent decode/encode call
// on this coder's shared model family.
func (ic *IntegerCoder) PrevK() uint16 { return ic.shared.prevK }

// residueWidth returns the number of raw bits following the single 256-ary
// high-model symbol for length class k>=8: the model carries the top 8 bits
// of the k-bit residue, and the remaining k-8 bits are coded uniformly.
// k==8 itself yields 0 raw bits (the model carries the whole residue).
func residueWidth(k uint16) uint8 { return uint8(k) - 8 }

// DecodeInt decodes one signed value.
func (ic *IntegerCoder) DecodeInt(in *rangecoder.InStream) int32 {
	k := ic.kEncoder.DecodeSymbol(in)
	ic.shared.prevK = k

	// k==32 is reached only when the delta being encoded is exactly
	// math.MinInt32 (see EncodeInt); no payload follows the symbol itself.
	if k == 32 {
		return -(1 << 31)
	}
	if k == 0 {
		if ic.shared.bit0.DecodeBit(in) == 0 {
			return 0
		}
		return 1
	}

	var low uint32
	if k <= 7 {
		low = uint32(ic.shared.low[k-1].DecodeSymbol(in))
	} else {
		rawBits := residueWidth(k)
		top := uint32(ic.shared.high[rawBits].DecodeSymbol(in))
		if rawBits > 0 {
			low = (top << rawBits) | RawDecode(in, rawBits)
		} else {
			low = top
		}
	}

	if low >= (uint32(1) << (k - 1)) {
		return int32(low + 1)
	}
	return int32(low) - int32((uint32(1)<<k)-1)
}

// EncodeInt encodes one signed value, growing the length class k until val
// fits in it (k==32 covers only math.MinInt32, which no wider class reaches
// since 1<<31 already covers every other int32 magnitude).
func (ic *IntegerCoder) EncodeInt(out *rangecoder.OutStream, val int32) {
	var k uint16
	for int64(val) > (int64(1)<<k) || int64(val) < -((int64(1)<<k)-1) {
		k++
	}
	ic.kEncoder.EncodeSymbol(out, k)
	ic.shared.prevK = k

	if k == 32 {
		return
	}
	if k == 0 {
		var bit uint32
		if val != 0 {
			bit = 1
		}
		ic.shared.bit0.EncodeBit(out, bit)
		return
	}

	residue := int64(val)
	if val < 0 {
		residue += (int64(1) << k) - 1
	} else {
		residue--
	}
	low := uint32(residue)

	if k <= 7 {
		ic.shared.low[k-1].EncodeSymbol(out, uint16(low))
		return
	}
	rawBits := residueWidth(k)
	ic.shared.high[rawBits].EncodeSymbol(out, uint16(low>>rawBits))
	if rawBits > 0 {
		RawEncode(out, low&((uint32(1)<<rawBits)-1), rawBits)
	}
}

// MultiInstanceIntegerCoder is a set of IntegerCoder instances that share
// one probability-model family (including the k-history) while each keeps
// its own k-length symbol model, mirroring the per-context dx/dy/dz split
// used by the streaming-median field encoders.
type MultiInstanceIntegerCoder struct {
	instances []*IntegerCoder
}

// NewMultiInstanceIntegerCoder returns n correlated coder instances.
func NewMultiInstanceIntegerCoder(nBits uint8, n int) *MultiInstanceIntegerCoder {
	shared := newSymbolEncoders(nBits)
	mi := &MultiInstanceIntegerCoder{instances: make([]*IntegerCoder, n)}
	for i := range mi.instances {
		mi.instances[i] = &IntegerCoder{
			nBits:    nBits,
			kEncoder: NewModel(int(nBits) + 1),
			shared:   shared,
		}
	}
	return mi
}

// Instance returns the i'th correlated coder.
func (mi *MultiInstanceIntegerCoder) Instance(i int) *IntegerCoder { return mi.instances[i] }

// PrevK reports the length class used by the most recent call on any
// instance in this family.
func (mi *MultiInstanceIntegerCoder) PrevK() uint16 { return mi.instances[0].shared.prevK }
