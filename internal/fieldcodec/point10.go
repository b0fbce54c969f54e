package fieldcodec

import (
	"github.com/laspp/laspp-go/internal/rangecoder"
	"github.com/laspp/laspp-go/internal/symbolmodel"
)

// Point10 is the legacy 20-byte point record (point data formats 0-3 share
// this base layout).
type Point10 struct {
	X, Y, Z            int32
	Intensity          uint16
	ReturnNumber       uint8 // 0-7
	NumberOfReturns    uint8 // 0-7
	ScanDirectionFlag  bool
	EdgeOfFlightLine   bool
	Classification     uint8
	ScanAngleRank      int8
	UserData           uint8
	PointSourceID      uint16
}

const point10Contexts = 64

func point10Context(p *Point10) int {
	return int(p.ReturnNumber)*8 + int(p.NumberOfReturns)
}

func point10LevelOfDetail(p *Point10) int {
	l := int(p.NumberOfReturns) - int(p.ReturnNumber)
	if l < 0 {
		l = -l
	}
	if l > 7 {
		l = 7
	}
	return l
}

func bitByte(p *Point10) uint8 {
	b := p.ReturnNumber | (p.NumberOfReturns << 3)
	if p.ScanDirectionFlag {
		b |= 1 << 6
	}
	if p.EdgeOfFlightLine {
		b |= 1 << 7
	}
	return b
}

func setBitByte(p *Point10, b uint8) {
	p.ReturnNumber = b & 0x7
	p.NumberOfReturns = (b >> 3) & 0x7
	p.ScanDirectionFlag = b&(1<<6) != 0
	p.EdgeOfFlightLine = b&(1<<7) != 0
}

// Point10Encoder implements the predictive codec for legacy point records:
// a streaming-median XYZ delta predictor with per-return-geometry context,
// and a changed-values bitmask gating the remaining scalar fields so that
// unchanged-field runs cost almost nothing to code.
type Point10Encoder struct {
	have bool
	last Point10

	changedValues [point10Contexts]*symbolmodel.Model // n=64, bits: bitByte/intensity/classification/scanAngle/userData/sourceID
	bitByteModel  *symbolmodel.Model                  // n=256
	classification *symbolmodel.Model                 // n=256
	userData      *symbolmodel.Model                  // n=256
	scanAngle     *symbolmodel.IntegerCoder // n_bits=8, coded as delta
	sourceID      *symbolmodel.IntegerCoder // n_bits=16, coded as delta

	intensity *symbolmodel.MultiInstanceIntegerCoder // n_bits=16, one instance per context
	dx        *symbolmodel.MultiInstanceIntegerCoder // n_bits=32, one instance per context
	dy        *symbolmodel.MultiInstanceIntegerCoder // n_bits=32, one instance per context
	dz        *symbolmodel.MultiInstanceIntegerCoder // n_bits=32, one instance per level of detail

	medianX [point10Contexts]StreamingMedian[int32]
	medianY [point10Contexts]StreamingMedian[int32]
	prevDz  [8]int32
}

// NewPoint10Encoder returns a freshly seeded Point10 codec.
func NewPoint10Encoder() *Point10Encoder {
	e := &Point10Encoder{
		bitByteModel:    symbolmodel.NewModel(256),
		classification:  symbolmodel.NewModel(256),
		userData:        symbolmodel.NewModel(256),
		scanAngle:       symbolmodel.NewIntegerCoder(8),
		sourceID:        symbolmodel.NewIntegerCoder(16),
		intensity:       symbolmodel.NewMultiInstanceIntegerCoder(16, point10Contexts),
		dx:              symbolmodel.NewMultiInstanceIntegerCoder(32, point10Contexts),
		dy:              symbolmodel.NewMultiInstanceIntegerCoder(32, point10Contexts),
		dz:              symbolmodel.NewMultiInstanceIntegerCoder(32, 8),
	}
	for i := range e.changedValues {
		e.changedValues[i] = symbolmodel.NewModel(64)
	}
	return e
}

// DecodePoint reads one point from in.
func (e *Point10Encoder) DecodePoint(in *rangecoder.InStream) Point10 {
	if !e.have {
		panic("fieldcodec: Point10Encoder.DecodePoint called before Reset")
	}
	ctx := point10Context(&e.last)
	var p Point10

	m := e.changedValues[ctx].DecodeSymbol(in)

	curBitByte := bitByte(&e.last)
	if m&(1<<5) != 0 {
		curBitByte = uint8(e.bitByteModel.DecodeSymbol(in))
	}
	setBitByte(&p, curBitByte)

	if m&(1<<4) != 0 {
		delta := e.intensity.Instance(ctx).DecodeInt(in)
		p.Intensity = uint16(int32(e.last.Intensity) + delta)
	} else {
		p.Intensity = e.last.Intensity
	}

	if m&(1<<3) != 0 {
		p.Classification = uint8(e.classification.DecodeSymbol(in))
	} else {
		p.Classification = e.last.Classification
	}

	if m&(1<<2) != 0 {
		delta := e.scanAngle.DecodeInt(in)
		p.ScanAngleRank = int8(int32(e.last.ScanAngleRank) + delta)
	} else {
		p.ScanAngleRank = e.last.ScanAngleRank
	}

	if m&(1<<1) != 0 {
		p.UserData = uint8(e.userData.DecodeSymbol(in))
	} else {
		p.UserData = e.last.UserData
	}

	if m&1 != 0 {
		delta := e.sourceID.DecodeInt(in)
		p.PointSourceID = uint16(int32(e.last.PointSourceID) + delta)
	} else {
		p.PointSourceID = e.last.PointSourceID
	}

	predX := e.medianX[ctx].Median()
	residualX := e.dx.Instance(ctx).DecodeInt(in)
	dx := predX + residualX
	p.X = e.last.X + dx
	e.medianX[ctx].Insert(dx)

	predY := e.medianY[ctx].Median()
	residualY := e.dy.Instance(ctx).DecodeInt(in)
	dy := predY + residualY
	p.Y = e.last.Y + dy
	e.medianY[ctx].Insert(dy)

	l := point10LevelOfDetail(&p)
	dz := e.prevDz[l] + e.dz.Instance(l).DecodeInt(in)
	p.Z = e.last.Z + dz
	e.prevDz[l] = dz

	e.last = p
	return p
}

// EncodePoint writes p to out.
func (e *Point10Encoder) EncodePoint(out *rangecoder.OutStream, p Point10) {
	if !e.have {
		panic("fieldcodec: Point10Encoder.EncodePoint called before Reset")
	}
	ctx := point10Context(&e.last)

	curBitByte := bitByte(&p)
	prevBitByte := bitByte(&e.last)
	var m uint16
	if curBitByte != prevBitByte {
		m |= 1 << 5
	}
	if p.Intensity != e.last.Intensity {
		m |= 1 << 4
	}
	if p.Classification != e.last.Classification {
		m |= 1 << 3
	}
	if p.ScanAngleRank != e.last.ScanAngleRank {
		m |= 1 << 2
	}
	if p.UserData != e.last.UserData {
		m |= 1 << 1
	}
	if p.PointSourceID != e.last.PointSourceID {
		m |= 1
	}

	e.changedValues[ctx].EncodeSymbol(out, m)

	if m&(1<<5) != 0 {
		e.bitByteModel.EncodeSymbol(out, uint16(curBitByte))
	}
	if m&(1<<4) != 0 {
		e.intensity.Instance(ctx).EncodeInt(out, int32(p.Intensity)-int32(e.last.Intensity))
	}
	if m&(1<<3) != 0 {
		e.classification.EncodeSymbol(out, uint16(p.Classification))
	}
	if m&(1<<2) != 0 {
		e.scanAngle.EncodeInt(out, int32(p.ScanAngleRank)-int32(e.last.ScanAngleRank))
	}
	if m&(1<<1) != 0 {
		e.userData.EncodeSymbol(out, uint16(p.UserData))
	}
	if m&1 != 0 {
		e.sourceID.EncodeInt(out, int32(p.PointSourceID)-int32(e.last.PointSourceID))
	}

	dx := p.X - e.last.X
	e.dx.Instance(ctx).EncodeInt(out, dx-e.medianX[ctx].Median())
	e.medianX[ctx].Insert(dx)

	dy := p.Y - e.last.Y
	e.dy.Instance(ctx).EncodeInt(out, dy-e.medianY[ctx].Median())
	e.medianY[ctx].Insert(dy)

	l := point10LevelOfDetail(&p)
	dz := p.Z - e.last.Z
	e.dz.Instance(l).EncodeInt(out, dz-e.prevDz[l])
	e.prevDz[l] = dz

	e.last = p
}

// Reset seeds the predictor with the first point of a chunk, written
// verbatim (the first point in every chunk is stored uncompressed by the
// layer above; the encoder only predicts points after it).
func (e *Point10Encoder) Reset(first Point10) {
	e.last = first
	e.have = true
	for i := range e.medianX {
		e.medianX[i] = StreamingMedian[int32]{}
		e.medianY[i] = StreamingMedian[int32]{}
	}
	e.prevDz = [8]int32{}
}
