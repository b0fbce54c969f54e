package laspp

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/laspp/laspp-go/internal/fieldcodec"
	"github.com/laspp/laspp-go/internal/layeredstream"
	"github.com/laspp/laspp-go/internal/rangecoder"
)

func toPoint10(p Point) fieldcodec.Point10 {
	return fieldcodec.Point10{
		X: p.X, Y: p.Y, Z: p.Z,
		Intensity:         p.Intensity,
		ReturnNumber:      p.ReturnNumber,
		NumberOfReturns:   p.NumberOfReturns,
		ScanDirectionFlag: p.ScanDirectionFlag,
		EdgeOfFlightLine:  p.EdgeOfFlightLine,
		Classification:    p.Classification,
		ScanAngleRank:     int8(p.ScanAngle),
		UserData:          p.UserData,
		PointSourceID:     p.PointSourceID,
	}
}

func fromPoint10(c fieldcodec.Point10, into *Point) {
	into.X, into.Y, into.Z = c.X, c.Y, c.Z
	into.Intensity = c.Intensity
	into.ReturnNumber = c.ReturnNumber
	into.NumberOfReturns = c.NumberOfReturns
	into.ScanDirectionFlag = c.ScanDirectionFlag
	into.EdgeOfFlightLine = c.EdgeOfFlightLine
	into.Classification = c.Classification
	into.ScanAngle = int16(c.ScanAngleRank)
	into.UserData = c.UserData
	into.PointSourceID = c.PointSourceID
}

func toPoint14(p Point) fieldcodec.Point14 {
	return fieldcodec.Point14{
		X: p.X, Y: p.Y, Z: p.Z,
		Intensity:         p.Intensity,
		ReturnNumber:      p.ReturnNumber,
		NumberOfReturns:   p.NumberOfReturns,
		ClassFlags:        p.ClassFlags,
		ScannerChannel:    p.ScannerChannel,
		ScanDirectionFlag: p.ScanDirectionFlag,
		EdgeOfFlightLine:  p.EdgeOfFlightLine,
		Classification:    p.Classification,
		UserData:          p.UserData,
		ScanAngle:         p.ScanAngle,
		PointSourceID:     p.PointSourceID,
		GPSTime:           p.GPSTime,
	}
}

func fromPoint14(c fieldcodec.Point14, into *Point) {
	into.X, into.Y, into.Z = c.X, c.Y, c.Z
	into.Intensity = c.Intensity
	into.ReturnNumber = c.ReturnNumber
	into.NumberOfReturns = c.NumberOfReturns
	into.ClassFlags = c.ClassFlags
	into.ScannerChannel = c.ScannerChannel
	into.ScanDirectionFlag = c.ScanDirectionFlag
	into.EdgeOfFlightLine = c.EdgeOfFlightLine
	into.Classification = c.Classification
	into.UserData = c.UserData
	into.ScanAngle = c.ScanAngle
	into.PointSourceID = c.PointSourceID
	into.GPSTime = c.GPSTime
}

func toRGB(p Point) fieldcodec.RGB12   { return fieldcodec.RGB12{R: p.Red, G: p.Green, B: p.Blue} }
func fromRGB(c fieldcodec.RGB12, into *Point) { into.Red, into.Green, into.Blue = c.R, c.G, c.B }

// rawSeedLength returns the on-disk byte width of one uncompressed record
// in format, the same layout used both for whole uncompressed point data
// and for the literal seed record at the front of every compressed chunk.
func rawSeedLength(format Format) int {
	n, _ := format.RecordLength()
	return n
}

// marshalPointRaw encodes p as its real LAS on-disk record: the 20-byte
// legacy core or 30-byte extended core, plus GPSTime and/or RGB as the
// format dictates.
func marshalPointRaw(p Point, format Format) []byte {
	buf := make([]byte, rawSeedLength(format))
	binary.LittleEndian.PutUint32(buf[0:], uint32(p.X))
	binary.LittleEndian.PutUint32(buf[4:], uint32(p.Y))
	binary.LittleEndian.PutUint32(buf[8:], uint32(p.Z))
	binary.LittleEndian.PutUint16(buf[12:], p.Intensity)

	var off int
	if format.IsExtended() {
		buf[14] = (p.ReturnNumber & 0xf) | (p.NumberOfReturns&0xf)<<4
		var flags uint8
		flags |= p.ClassFlags & 0xf
		flags |= (p.ScannerChannel & 0x3) << 4
		if p.ScanDirectionFlag {
			flags |= 1 << 6
		}
		if p.EdgeOfFlightLine {
			flags |= 1 << 7
		}
		buf[15] = flags
		buf[16] = p.Classification
		buf[17] = p.UserData
		binary.LittleEndian.PutUint16(buf[18:], uint16(p.ScanAngle))
		binary.LittleEndian.PutUint16(buf[20:], p.PointSourceID)
		binary.LittleEndian.PutUint64(buf[22:], math.Float64bits(p.GPSTime))
		off = 30
	} else {
		buf[14] = (p.ReturnNumber & 0x7) | (p.NumberOfReturns&0x7)<<3 |
			boolBit(p.ScanDirectionFlag, 6) | boolBit(p.EdgeOfFlightLine, 7)
		buf[15] = p.Classification
		buf[16] = uint8(int8(p.ScanAngle))
		buf[17] = p.UserData
		binary.LittleEndian.PutUint16(buf[18:], p.PointSourceID)
		off = 20
		if format.HasGPSTime() {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(p.GPSTime))
			off += 8
		}
	}
	if format.HasColor() {
		binary.LittleEndian.PutUint16(buf[off:], p.Red)
		binary.LittleEndian.PutUint16(buf[off+2:], p.Green)
		binary.LittleEndian.PutUint16(buf[off+4:], p.Blue)
	}
	return buf
}

func boolBit(b bool, shift uint) uint8 {
	if b {
		return 1 << shift
	}
	return 0
}

// unmarshalPointRaw is marshalPointRaw's inverse.
func unmarshalPointRaw(data []byte, format Format) Point {
	var p Point
	p.X = int32(binary.LittleEndian.Uint32(data[0:]))
	p.Y = int32(binary.LittleEndian.Uint32(data[4:]))
	p.Z = int32(binary.LittleEndian.Uint32(data[8:]))
	p.Intensity = binary.LittleEndian.Uint16(data[12:])

	var off int
	if format.IsExtended() {
		p.ReturnNumber = data[14] & 0xf
		p.NumberOfReturns = (data[14] >> 4) & 0xf
		flags := data[15]
		p.ClassFlags = flags & 0xf
		p.ScannerChannel = (flags >> 4) & 0x3
		p.ScanDirectionFlag = flags&(1<<6) != 0
		p.EdgeOfFlightLine = flags&(1<<7) != 0
		p.Classification = data[16]
		p.UserData = data[17]
		p.ScanAngle = int16(binary.LittleEndian.Uint16(data[18:]))
		p.PointSourceID = binary.LittleEndian.Uint16(data[20:])
		p.GPSTime = math.Float64frombits(binary.LittleEndian.Uint64(data[22:]))
		off = 30
	} else {
		b := data[14]
		p.ReturnNumber = b & 0x7
		p.NumberOfReturns = (b >> 3) & 0x7
		p.ScanDirectionFlag = b&(1<<6) != 0
		p.EdgeOfFlightLine = b&(1<<7) != 0
		p.Classification = data[15]
		p.ScanAngle = int16(int8(data[16]))
		p.UserData = data[17]
		p.PointSourceID = binary.LittleEndian.Uint16(data[18:])
		off = 20
		if format.HasGPSTime() {
			p.GPSTime = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
			off += 8
		}
	}
	if format.HasColor() {
		p.Red = binary.LittleEndian.Uint16(data[off:])
		p.Green = binary.LittleEndian.Uint16(data[off+2:])
		p.Blue = binary.LittleEndian.Uint16(data[off+4:])
	}
	return p
}

// EncodeChunk compresses points (len(points) >= 1, all sharing format) into
// one chunk payload: a literal raw seed record followed by a range-coded
// (or, for formats 6-7, layered) stream for every subsequent point.
func EncodeChunk(format Format, points []Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if !format.Supported() {
		_, err := format.RecordLength()
		return nil, err
	}
	raw := marshalPointRaw(points[0], format)
	if len(points) == 1 {
		return raw, nil
	}
	if format.IsExtended() {
		return encodeLayeredChunk(format, points, raw)
	}
	return encodePointwiseChunk(format, points, raw)
}

// DecodeChunk decompresses a chunk payload written by EncodeChunk back into
// n points. Panics raised by the underlying range coder on a truncated or
// corrupt buffer are recovered here and reported as CorruptionError.
func DecodeChunk(format Format, data []byte, n int) (points []Point, err error) {
	if n == 0 {
		return nil, nil
	}
	if !format.Supported() {
		_, rerr := format.RecordLength()
		return nil, rerr
	}
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*rangecoder.CorruptStreamError); ok {
				err = &CorruptionError{Reason: ce.Error()}
				return
			}
			err = &CorruptionError{Reason: fmt.Sprintf("%v", r)}
		}
	}()

	rawLen := rawSeedLength(format)
	if len(data) < rawLen {
		return nil, &FormatError{Reason: "chunk payload shorter than one literal seed record"}
	}
	seed := unmarshalPointRaw(data[:rawLen], format)
	if n == 1 {
		return []Point{seed}, nil
	}
	if format.IsExtended() {
		return decodeLayeredChunk(format, seed, data[rawLen:], n)
	}
	return decodePointwiseChunk(format, seed, data[rawLen:], n)
}

func encodePointwiseChunk(format Format, points []Point, raw []byte) ([]byte, error) {
	out := rangecoder.NewOutStream()
	core := fieldcodec.NewPoint10Encoder()
	core.Reset(toPoint10(points[0]))

	var gps *fieldcodec.GeneralGPSTimeEncoder
	if format.HasGPSTime() {
		gps = fieldcodec.NewGeneralGPSTimeEncoder(false)
		gps.Reset(points[0].GPSTime)
	}
	var color *fieldcodec.RGB12Encoder
	if format.HasColor() {
		color = fieldcodec.NewRGB12Encoder()
		color.Reset(toRGB(points[0]))
	}

	for _, p := range points[1:] {
		core.EncodePoint(out, toPoint10(p))
		if gps != nil {
			gps.EncodeTime(out, p.GPSTime)
		}
		if color != nil {
			color.EncodePoint(out, toRGB(p))
		}
	}
	out.Finalize()
	return append(raw, out.Bytes()...), nil
}

func decodePointwiseChunk(format Format, seed Point, rest []byte, n int) ([]Point, error) {
	points := make([]Point, n)
	points[0] = seed

	in := rangecoder.NewInStream(rest)
	core := fieldcodec.NewPoint10Encoder()
	core.Reset(toPoint10(seed))

	var gps *fieldcodec.GeneralGPSTimeEncoder
	if format.HasGPSTime() {
		gps = fieldcodec.NewGeneralGPSTimeEncoder(false)
		gps.Reset(seed.GPSTime)
	}
	var color *fieldcodec.RGB12Encoder
	if format.HasColor() {
		color = fieldcodec.NewRGB12Encoder()
		color.Reset(toRGB(seed))
	}

	for i := 1; i < n; i++ {
		var p Point
		fromPoint10(core.DecodePoint(in), &p)
		if gps != nil {
			p.GPSTime = gps.DecodeTime(in)
		}
		if color != nil {
			fromRGB(color.DecodePoint(in), &p)
		}
		points[i] = p
	}
	return points, nil
}

// encodeLayeredChunk drives the Point14/RGB14 codecs across a 1- or
// 2-layer container (color gets its own layer on formats with an RGB
// item). Scanner-channel switches are applied *after* coding each point,
// using the point just coded as the seed for whatever channel it just
// switched to — this keeps the channel-remap rule symmetric between
// encode and decode without either side needing to see ahead.
func encodeLayeredChunk(format Format, points []Point, raw []byte) ([]byte, error) {
	numLayers := 1
	if format.HasColor() {
		numLayers = 2
	}
	layers := layeredstream.NewOutStreams(numLayers)

	core := fieldcodec.NewPoint14Encoder()
	core.Reset(toPoint14(points[0]))

	var color *fieldcodec.RGB14Encoder
	if format.HasColor() {
		color = fieldcodec.NewRGB14Encoder()
		color.Reset(toRGB(points[0]))
	}

	active := int(points[0].ScannerChannel)
	prevColor := points[0]
	for _, p := range points[1:] {
		core.EncodePoint(layers.Layer(0), toPoint14(p))
		if color != nil {
			color.ResolveContext(core.ExternalContext(), toRGB(prevColor))
			color.EncodePoint(layers.Layer(1), toRGB(p))
			prevColor = p
		}
		if int(p.ScannerChannel) != active {
			core.SwitchChannel(p.ScannerChannel, toPoint14(p))
			active = int(p.ScannerChannel)
		}
	}
	return append(raw, layers.Finalize()...), nil
}

func decodeLayeredChunk(format Format, seed Point, rest []byte, n int) ([]Point, error) {
	numLayers := 1
	if format.HasColor() {
		numLayers = 2
	}
	layers, err := layeredstream.NewInStreams(rest, numLayers)
	if err != nil {
		return nil, err
	}

	points := make([]Point, n)
	points[0] = seed

	core := fieldcodec.NewPoint14Encoder()
	core.Reset(toPoint14(seed))

	var color *fieldcodec.RGB14Encoder
	if format.HasColor() {
		color = fieldcodec.NewRGB14Encoder()
		color.Reset(toRGB(seed))
	}

	active := int(seed.ScannerChannel)
	prevColor := seed
	for i := 1; i < n; i++ {
		var p Point
		fromPoint14(core.DecodePoint(layers.Layer(0)), &p)
		if color != nil {
			color.ResolveContext(core.ExternalContext(), toRGB(prevColor))
			fromRGB(color.DecodePoint(layers.Layer(1)), &p)
			prevColor = p
		}
		if int(p.ScannerChannel) != active {
			core.SwitchChannel(p.ScannerChannel, toPoint14(p))
			active = int(p.ScannerChannel)
		}
		points[i] = p
	}
	return points, nil
}
