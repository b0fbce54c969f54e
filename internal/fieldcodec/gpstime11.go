package fieldcodec

import (
	"math"

	"github.com/laspp/laspp-go/internal/rangecoder"
	"github.com/laspp/laspp-go/internal/symbolmodel"
)

// gpsReferenceFrame tracks one of the timelines a multi-return pulse can
// interleave between: a laser that fires several returns per pulse often
// reports GPS time from two or more nearly-constant-rate sequences at
// once, so a single last-value/last-delta predictor thrashes every time
// the stream hops between them. delta and prevBits operate on the GPS
// time's raw float64 bit pattern, not its numeric value — once a frame's
// sample rate stabilizes, consecutive bit patterns differ by a constant
// delta far more often than the floating-point values happen to.
type gpsReferenceFrame struct {
	delta    int32
	counter  int32
	prevBits uint64
}

// GeneralGPSTimeEncoder codes the 8-byte GPS time field against up to four
// alternating reference frames. Once a frame's delta has stabilized
// (after a few same-delta hits), successive times are coded as a small
// multiplier on that delta plus a residual correction; multiplier zero
// means the delta itself needs revising, and the case space is split
// across 9 correlated integer-coder instances keyed by which of those
// situations applies. point14 selects the narrower case-symbol space the
// point14 encoder uses (mirroring the point-format-6 predictor dropping
// the legacy "identical value, no payload" shortcut).
type GeneralGPSTimeEncoder struct {
	point14 bool

	frames     [4]gpsReferenceFrame
	current    int
	nextUnused int

	caseModel       *symbolmodel.Model // n = 516 - point14
	case0DeltaModel *symbolmodel.Model // n = 6 - point14
	corrector       *symbolmodel.MultiInstanceIntegerCoder
}

// gps corrector instance assignments, mirroring the reference's
// case_delta -> instance mapping:
//
//	0: establishing a frame's first delta (frame had none yet)
//	1: multiplier == 1 against an established delta
//	2: 1 < multiplier < 10
//	3: 10 <= multiplier < 500
//	4: multiplier clamped to 500
//	5: -10 < multiplier < 0
//	6: multiplier clamped to -10
//	7: multiplier == 0 (delta itself is off)
//	8: full-precision fallback's high-word correction
const (
	gpsInstEstablish   = 0
	gpsInstMultiplier1 = 1
	gpsInstMultSmall   = 2
	gpsInstMultMid     = 3
	gpsInstMult500     = 4
	gpsInstMultNegSm   = 5
	gpsInstMultNeg10   = 6
	gpsInstMult0       = 7
	gpsInstFallback    = 8
)

// NewGeneralGPSTimeEncoder returns a freshly constructed GPS time codec.
// point14 selects the point-format-6+ case-symbol space (one narrower
// than the legacy point-format-1/3 space, which additionally special-
// cases an unchanged GPS time against a zero delta).
func NewGeneralGPSTimeEncoder(point14 bool) *GeneralGPSTimeEncoder {
	p14 := 0
	if point14 {
		p14 = 1
	}
	return &GeneralGPSTimeEncoder{
		point14:         point14,
		caseModel:       symbolmodel.NewModel(516 - p14),
		case0DeltaModel: symbolmodel.NewModel(6 - p14),
		corrector:       symbolmodel.NewMultiInstanceIntegerCoder(32, 9),
	}
}

// Reset seeds the predictor with the first GPS time of a chunk.
func (e *GeneralGPSTimeEncoder) Reset(first float64) {
	e.frames = [4]gpsReferenceFrame{}
	e.frames[0].prevBits = math.Float64bits(first)
	e.current = 0
	e.nextUnused = 0
}

// DecodeTime reads one GPS time from in.
func (e *GeneralGPSTimeEncoder) DecodeTime(in *rangecoder.InStream) float64 {
	p14 := 0
	if e.point14 {
		p14 = 1
	}

	var caseDelta int
	if e.frames[e.current].delta == 0 {
		caseDelta = int(e.case0DeltaModel.DecodeSymbol(in)) + p14
		if caseDelta >= 3 {
			e.current = (e.current + caseDelta - 2) % 4
			return e.DecodeTime(in)
		}
		if !e.point14 && caseDelta == 0 {
			caseDelta = 511
		} else if caseDelta == 2 {
			caseDelta = 512 - p14
		}
	} else {
		caseDelta = int(e.caseModel.DecodeSymbol(in))
		if caseDelta >= 513-p14 {
			e.current = (e.current + caseDelta - (512 - p14)) % 4
			return e.DecodeTime(in)
		}
	}

	f := &e.frames[e.current]
	if caseDelta <= 510 {
		inst := gpsInstMult0
		switch {
		case caseDelta == 0:
			inst = gpsInstMult0
		case caseDelta == 1:
			if f.delta == 0 {
				inst = gpsInstEstablish
			} else {
				inst = gpsInstMultiplier1
			}
		case caseDelta < 500:
			if caseDelta < 10 {
				inst = gpsInstMultSmall
			} else {
				inst = gpsInstMultMid
			}
		case caseDelta == 500:
			inst = gpsInstMult500
		default: // 501..510
			if caseDelta == 510 {
				inst = gpsInstMultNeg10
			} else {
				inst = gpsInstMultNegSm
			}
		}
		d := e.corrector.Instance(inst).DecodeInt(in)

		var add int32
		switch {
		case caseDelta == 0:
			f.prevBits = uint64(int64(f.prevBits) + int64(d))
			f.counter++
			if f.counter > 3 {
				f.delta = d
				f.counter = 0
			}
			return math.Float64frombits(f.prevBits)
		case caseDelta == 1:
			add = f.delta + d
			f.prevBits = uint64(int64(f.prevBits) + int64(add))
			f.counter = 0
			if f.delta == 0 {
				f.delta = d
			}
		case caseDelta < 500:
			add = int32(uint32(caseDelta)*uint32(f.delta) + uint32(d))
			f.prevBits = uint64(int64(f.prevBits) + int64(add))
		case caseDelta == 500:
			add = int32(uint32(caseDelta)*uint32(f.delta) + uint32(d))
			f.prevBits = uint64(int64(f.prevBits) + int64(add))
			f.counter++
			if f.counter > 3 {
				f.delta = int32(uint32(500*f.delta) + uint32(d))
				f.counter = 0
			}
		default: // 501..510
			mag := uint32(caseDelta-500) * uint32(f.delta)
			add = int32(-mag + uint32(d))
			f.prevBits = uint64(int64(f.prevBits) + int64(add))
			if caseDelta == 510 {
				f.counter++
				if f.counter > 3 {
					f.delta = int32(uint32(-10*f.delta) + uint32(d))
					f.counter = 0
				}
			}
		}
		return math.Float64frombits(f.prevBits)
	} else if !e.point14 && caseDelta == 511 {
		return math.Float64frombits(f.prevBits)
	}

	// caseDelta == 512-p14: full-precision fallback. Reseeds the next
	// unused frame wholesale rather than correcting the active one.
	d := e.corrector.Instance(gpsInstFallback).DecodeInt(in)
	rawLow := symbolmodel.RawDecode(in, 32)
	newHigh := uint32(f.prevBits>>32) + uint32(d)
	tmp := uint64(newHigh)<<32 | uint64(rawLow)
	e.nextUnused = (e.nextUnused + 1) % 4
	e.current = e.nextUnused
	e.frames[e.current] = gpsReferenceFrame{prevBits: tmp}
	return math.Float64frombits(tmp)
}

// EncodeTime writes t to out.
func (e *GeneralGPSTimeEncoder) EncodeTime(out *rangecoder.OutStream, t float64) {
	p14 := 0
	if e.point14 {
		p14 = 1
	}
	bits := math.Float64bits(t)
	f := &e.frames[e.current]

	if f.delta == 0 {
		if !e.point14 && f.prevBits == bits {
			e.case0DeltaModel.EncodeSymbol(out, 0)
			return
		}
		diff := int64(bits - f.prevBits)
		if diff == int64(int32(diff)) {
			diff32 := int32(diff)
			e.case0DeltaModel.EncodeSymbol(out, uint16(1-p14))
			e.corrector.Instance(gpsInstEstablish).EncodeInt(out, diff32)
			f.delta = diff32
			f.counter = 0
		} else {
			matched := -1
			for i := 0; i < 4; i++ {
				rfDiff := int64(bits - e.frames[i].prevBits)
				if rfDiff == int64(int32(rfDiff)) {
					matched = i
					break
				}
			}
			if matched >= 0 {
				e.case0DeltaModel.EncodeSymbol(out, uint16(2-p14+(4+matched-e.current)%4))
				e.current = matched
				e.EncodeTime(out, t)
				return
			}
			e.case0DeltaModel.EncodeSymbol(out, uint16(2-p14))
			hi := int32(uint32(bits>>32)) - int32(uint32(f.prevBits>>32))
			e.corrector.Instance(gpsInstFallback).EncodeInt(out, hi)
			symbolmodel.RawEncode(out, uint32(bits), 32)
			e.nextUnused = (e.nextUnused + 1) % 4
			e.current = e.nextUnused
			e.frames[e.current] = gpsReferenceFrame{}
		}
		e.frames[e.current].prevBits = bits
		return
	}

	if !e.point14 && f.prevBits == bits {
		e.caseModel.EncodeSymbol(out, 511)
		return
	}
	diff := int64(bits - f.prevBits)
	if diff == int64(int32(diff)) {
		diff32 := uint32(diff)
		halfDelta := uint32(f.delta) / 2
		multiplier := int32(diff32+halfDelta) / f.delta

		switch {
		case multiplier == 1:
			e.caseModel.EncodeSymbol(out, 1)
			e.corrector.Instance(gpsInstMultiplier1).EncodeInt(out, int32(diff32-uint32(f.delta)))
			f.counter = 0
		case multiplier == 0:
			e.caseModel.EncodeSymbol(out, 0)
			e.corrector.Instance(gpsInstMult0).EncodeInt(out, int32(diff32))
			f.counter++
			if f.counter > 3 {
				f.delta = int32(diff32)
				f.counter = 0
			}
		case multiplier > 0:
			if multiplier < 500 {
				inst := gpsInstMultMid
				if multiplier < 10 {
					inst = gpsInstMultSmall
				}
				e.caseModel.EncodeSymbol(out, uint16(multiplier))
				e.corrector.Instance(inst).EncodeInt(out, int32(diff32-uint32(f.delta)*uint32(multiplier)))
			} else {
				multiplier = 500
				e.caseModel.EncodeSymbol(out, uint16(multiplier))
				e.corrector.Instance(gpsInstMult500).EncodeInt(out, int32(diff32-uint32(f.delta)*uint32(multiplier)))
				f.counter++
				if f.counter > 3 {
					f.delta = int32(diff32)
					f.counter = 0
				}
			}
		default: // multiplier < 0
			if multiplier < -10 {
				multiplier = -10
			}
			inst := gpsInstMultNegSm
			if multiplier == -10 {
				inst = gpsInstMultNeg10
			}
			e.caseModel.EncodeSymbol(out, uint16(500-multiplier))
			e.corrector.Instance(inst).EncodeInt(out, int32(diff32-uint32(f.delta)*uint32(multiplier)))
			if multiplier == -10 {
				f.counter++
				if f.counter > 3 {
					f.delta = int32(diff32)
					f.counter = 0
				}
			}
		}
		f.prevBits = bits
		return
	}

	matched := -1
	for i := 0; i < 4; i++ {
		rfDiff := int64(bits - e.frames[i].prevBits)
		if rfDiff == int64(int32(rfDiff)) {
			matched = i
			break
		}
	}
	if matched >= 0 {
		e.caseModel.EncodeSymbol(out, uint16(512-p14+(4+matched-e.current)%4))
		e.current = matched
		e.EncodeTime(out, t)
		return
	}

	e.caseModel.EncodeSymbol(out, uint16(512-p14))
	hi := int32(uint32(bits>>32)) - int32(uint32(f.prevBits>>32))
	e.corrector.Instance(gpsInstFallback).EncodeInt(out, hi)
	symbolmodel.RawEncode(out, uint32(bits), 32)
	e.nextUnused = (e.nextUnused + 1) % 4
	e.current = e.nextUnused
	e.frames[e.current] = gpsReferenceFrame{prevBits: bits}
}
