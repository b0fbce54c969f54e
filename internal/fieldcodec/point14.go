package fieldcodec

import (
	"github.com/laspp/laspp-go/internal/rangecoder"
	"github.com/laspp/laspp-go/internal/symbolmodel"
)

// Point14 is the extended 30-byte point record (point data formats 6-10),
// which widens return counts to 4 bits, classification to a full byte, and
// adds a scanner channel and per-point classification flags.
type Point14 struct {
	X, Y, Z         int32
	Intensity       uint16
	ReturnNumber    uint8 // 0-15
	NumberOfReturns uint8 // 0-15
	ClassFlags      uint8 // synthetic/key-point/withheld/overlap, bits 0-3
	ScannerChannel  uint8 // 0-3
	ScanDirectionFlag bool
	EdgeOfFlightLine  bool
	Classification  uint8
	UserData        uint8
	ScanAngle       int16
	PointSourceID   uint16
	GPSTime         float64
}

const point14Channels = 4
const point14Contexts = 256 // return_number<<4 | number_of_returns

func point14Context(p *Point14) int {
	return int(p.ReturnNumber)<<4 | int(p.NumberOfReturns)
}

func point14LevelOfDetail(p *Point14) int {
	l := int(p.NumberOfReturns) - int(p.ReturnNumber)
	if l < 0 {
		l = -l
	}
	if l > 15 {
		l = 15
	}
	return l
}

// point14Channel holds one scanner channel's full predictor state. A laser
// head that round-robins between channels (common on multi-channel
// systems) needs each channel's own last-point/median history, or the
// predictor thrashes every time the active channel changes.
type point14Channel struct {
	have bool
	last Point14

	medianX [point14Contexts]StreamingMedian[int32]
	medianY [point14Contexts]StreamingMedian[int32]
	prevDz  [16]int32

	gps *GeneralGPSTimeEncoder
}

func newPoint14Channel() *point14Channel {
	return &point14Channel{gps: NewGeneralGPSTimeEncoder(true)}
}

// Point14Encoder implements the layered extended-point codec: one streaming
// context per scanner channel, a return-geometry-keyed changed-values
// bitmask, and the same median-delta XYZ predictor as Point10 widened to
// 4-bit return fields.
type Point14Encoder struct {
	channels [point14Channels]*point14Channel
	active   int

	changedValues [point14Contexts]*symbolmodel.Model // n=128
	classFlags    *symbolmodel.Model                  // n=16
	classification *symbolmodel.Model                 // n=256
	userData      *symbolmodel.Model                  // n=256
	scanAngle     *symbolmodel.IntegerCoder            // n_bits=16
	sourceID      *symbolmodel.IntegerCoder            // n_bits=16

	intensity *symbolmodel.MultiInstanceIntegerCoder // n_bits=16
	dx        *symbolmodel.MultiInstanceIntegerCoder // n_bits=32
	dy        *symbolmodel.MultiInstanceIntegerCoder // n_bits=32
	dz        *symbolmodel.MultiInstanceIntegerCoder // n_bits=32, 16 instances by level of detail

	externalContext int
}

// NewPoint14Encoder returns a freshly seeded Point14 codec.
func NewPoint14Encoder() *Point14Encoder {
	e := &Point14Encoder{
		classFlags:      symbolmodel.NewModel(16),
		classification:  symbolmodel.NewModel(256),
		userData:        symbolmodel.NewModel(256),
		scanAngle:       symbolmodel.NewIntegerCoder(16),
		sourceID:        symbolmodel.NewIntegerCoder(16),
		intensity:       symbolmodel.NewMultiInstanceIntegerCoder(16, point14Contexts),
		dx:              symbolmodel.NewMultiInstanceIntegerCoder(32, point14Contexts),
		dy:              symbolmodel.NewMultiInstanceIntegerCoder(32, point14Contexts),
		dz:              symbolmodel.NewMultiInstanceIntegerCoder(32, 16),
	}
	for i := range e.changedValues {
		e.changedValues[i] = symbolmodel.NewModel(128)
	}
	for i := range e.channels {
		e.channels[i] = newPoint14Channel()
	}
	return e
}

// ExternalContext reports the scanner channel used by the most recently
// coded point, for RGB14Encoder to key its own per-channel state on.
func (e *Point14Encoder) ExternalContext() int { return e.externalContext }

func point14BitByte(p *Point14) uint16 {
	var b uint16
	b |= uint16(p.ReturnNumber)
	b |= uint16(p.NumberOfReturns) << 4
	b |= uint16(p.ScannerChannel) << 8
	if p.ScanDirectionFlag {
		b |= 1 << 10
	}
	if p.EdgeOfFlightLine {
		b |= 1 << 11
	}
	return b
}

func setPoint14BitByte(p *Point14, b uint16) {
	p.ReturnNumber = uint8(b & 0xf)
	p.NumberOfReturns = uint8((b >> 4) & 0xf)
	p.ScannerChannel = uint8((b >> 8) & 0x3)
	p.ScanDirectionFlag = b&(1<<10) != 0
	p.EdgeOfFlightLine = b&(1<<11) != 0
}

// DecodePoint reads one point from in.
func (e *Point14Encoder) DecodePoint(in *rangecoder.InStream) Point14 {
	ch := e.channels[e.active]
	if !ch.have {
		panic("fieldcodec: Point14Encoder.DecodePoint called before Reset")
	}
	ctx := point14Context(&ch.last)

	m := e.changedValues[ctx].DecodeSymbol(in)

	var p Point14
	curBitByte := point14BitByte(&ch.last)
	if m&(1<<6) != 0 {
		curBitByte = uint16(symbolmodel.RawDecode(in, 12))
	}
	setPoint14BitByte(&p, curBitByte)
	e.externalContext = int(p.ScannerChannel)

	if m&(1<<5) != 0 {
		delta := e.intensity.Instance(ctx).DecodeInt(in)
		p.Intensity = uint16(int32(ch.last.Intensity) + delta)
	} else {
		p.Intensity = ch.last.Intensity
	}

	if m&(1<<4) != 0 {
		p.ClassFlags = uint8(e.classFlags.DecodeSymbol(in))
	} else {
		p.ClassFlags = ch.last.ClassFlags
	}

	if m&(1<<3) != 0 {
		p.Classification = uint8(e.classification.DecodeSymbol(in))
	} else {
		p.Classification = ch.last.Classification
	}

	if m&(1<<2) != 0 {
		delta := e.scanAngle.DecodeInt(in)
		p.ScanAngle = int16(int32(ch.last.ScanAngle) + delta)
	} else {
		p.ScanAngle = ch.last.ScanAngle
	}

	if m&(1<<1) != 0 {
		p.UserData = uint8(e.userData.DecodeSymbol(in))
	} else {
		p.UserData = ch.last.UserData
	}

	if m&1 != 0 {
		delta := e.sourceID.DecodeInt(in)
		p.PointSourceID = uint16(int32(ch.last.PointSourceID) + delta)
	} else {
		p.PointSourceID = ch.last.PointSourceID
	}

	predX := ch.medianX[ctx].Median()
	dx := predX + e.dx.Instance(ctx).DecodeInt(in)
	p.X = ch.last.X + dx
	ch.medianX[ctx].Insert(dx)

	predY := ch.medianY[ctx].Median()
	dy := predY + e.dy.Instance(ctx).DecodeInt(in)
	p.Y = ch.last.Y + dy
	ch.medianY[ctx].Insert(dy)

	l := point14LevelOfDetail(&p)
	dz := ch.prevDz[l] + e.dz.Instance(l).DecodeInt(in)
	p.Z = ch.last.Z + dz
	ch.prevDz[l] = dz

	p.GPSTime = ch.gps.DecodeTime(in)

	ch.last = p
	return p
}

// EncodePoint writes p to out.
func (e *Point14Encoder) EncodePoint(out *rangecoder.OutStream, p Point14) {
	ch := e.channels[e.active]
	if !ch.have {
		panic("fieldcodec: Point14Encoder.EncodePoint called before Reset")
	}
	ctx := point14Context(&ch.last)

	curBitByte := point14BitByte(&p)
	prevBitByte := point14BitByte(&ch.last)
	var m uint16
	if curBitByte != prevBitByte {
		m |= 1 << 6
	}
	if p.Intensity != ch.last.Intensity {
		m |= 1 << 5
	}
	if p.ClassFlags != ch.last.ClassFlags {
		m |= 1 << 4
	}
	if p.Classification != ch.last.Classification {
		m |= 1 << 3
	}
	if p.ScanAngle != ch.last.ScanAngle {
		m |= 1 << 2
	}
	if p.UserData != ch.last.UserData {
		m |= 1 << 1
	}
	if p.PointSourceID != ch.last.PointSourceID {
		m |= 1
	}

	e.changedValues[ctx].EncodeSymbol(out, m)

	if m&(1<<6) != 0 {
		symbolmodel.RawEncode(out, uint32(curBitByte), 12)
	}
	e.externalContext = int(p.ScannerChannel)

	if m&(1<<5) != 0 {
		e.intensity.Instance(ctx).EncodeInt(out, int32(p.Intensity)-int32(ch.last.Intensity))
	}
	if m&(1<<4) != 0 {
		e.classFlags.EncodeSymbol(out, uint16(p.ClassFlags))
	}
	if m&(1<<3) != 0 {
		e.classification.EncodeSymbol(out, uint16(p.Classification))
	}
	if m&(1<<2) != 0 {
		e.scanAngle.EncodeInt(out, int32(p.ScanAngle)-int32(ch.last.ScanAngle))
	}
	if m&(1<<1) != 0 {
		e.userData.EncodeSymbol(out, uint16(p.UserData))
	}
	if m&1 != 0 {
		e.sourceID.EncodeInt(out, int32(p.PointSourceID)-int32(ch.last.PointSourceID))
	}

	dx := p.X - ch.last.X
	e.dx.Instance(ctx).EncodeInt(out, dx-ch.medianX[ctx].Median())
	ch.medianX[ctx].Insert(dx)

	dy := p.Y - ch.last.Y
	e.dy.Instance(ctx).EncodeInt(out, dy-ch.medianY[ctx].Median())
	ch.medianY[ctx].Insert(dy)

	l := point14LevelOfDetail(&p)
	dz := p.Z - ch.last.Z
	e.dz.Instance(l).EncodeInt(out, dz-ch.prevDz[l])
	ch.prevDz[l] = dz

	ch.gps.EncodeTime(out, p.GPSTime)

	ch.last = p
}

// Reset clears every channel's predictor, seeds the first point's scanner
// channel with that point and selects it as active. Other channels are
// seeded by SwitchChannel when first used.
func (e *Point14Encoder) Reset(first Point14) {
	for _, ch := range e.channels {
		*ch = *newPoint14Channel()
	}
	e.active = int(first.ScannerChannel)
	ch := e.channels[e.active]
	ch.last = first
	ch.have = true
	ch.gps.Reset(first.GPSTime)
	e.externalContext = e.active
}

// SwitchChannel selects the active scanner channel for the next point,
// seeding it from the previous point if this is the first time the channel
// is used in the chunk.
func (e *Point14Encoder) SwitchChannel(channel uint8, seed Point14) {
	e.active = int(channel)
	ch := e.channels[e.active]
	if !ch.have {
		ch.last = seed
		ch.have = true
		ch.gps.Reset(seed.GPSTime)
	}
}
