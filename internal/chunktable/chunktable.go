// Package chunktable implements the LAZ chunk table: the delta-coded
// catalog, written after the point data, that lets a reader seek directly
// to any chunk's compressed span and point-count without scanning the
// whole file.
package chunktable

import (
	"encoding/binary"
	"fmt"

	"github.com/laspp/laspp-go/internal/rangecoder"
	"github.com/laspp/laspp-go/internal/symbolmodel"
)

// HeaderSize is the fixed byte width of Header's on-disk form: a 2-byte
// version, 2 reserved bytes, and a 4-byte chunk count, written just before
// the range-coded table body so a reader knows how many entries to decode
// without scanning ahead.
const HeaderSize = 8

// Header is the fixed-width prefix in front of the delta-coded table body.
type Header struct {
	Version        uint16
	NumberOfChunks uint32
}

// Marshal encodes h to its 8-byte on-disk form.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:], h.Version)
	binary.LittleEndian.PutUint32(buf[4:], h.NumberOfChunks)
	return buf
}

// UnmarshalHeader parses an 8-byte chunk-table header prefix.
func UnmarshalHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("chunktable: buffer too small for header")
	}
	return Header{
		Version:        binary.LittleEndian.Uint16(data[0:]),
		NumberOfChunks: binary.LittleEndian.Uint32(data[4:]),
	}, nil
}

// Entry describes one chunk's size in the catalog.
type Entry struct {
	PointCount      uint32
	CompressedSize  uint32
}

// Table is an in-memory chunk catalog, either built incrementally while
// writing or decoded from a file's chunk table body while reading.
type Table struct {
	entries       []Entry
	constantValid bool // set only by Decode; Encode recomputes via PointsPerChunk
}

// New returns an empty table ready for AddChunk calls.
func New() *Table {
	return &Table{}
}

// AddChunk records one more chunk's point count and compressed byte size.
func (t *Table) AddChunk(pointCount, compressedSize uint32) {
	t.entries = append(t.entries, Entry{PointCount: pointCount, CompressedSize: compressedSize})
}

// NumChunks returns the number of chunks recorded.
func (t *Table) NumChunks() int { return len(t.entries) }

// PointsPerChunk returns the constant per-chunk point count if every chunk
// but possibly the last shares one, and false otherwise.
func (t *Table) PointsPerChunk() (uint32, bool) {
	if len(t.entries) == 0 {
		return 0, false
	}
	constant := t.entries[0].PointCount
	for i, e := range t.entries {
		if i == len(t.entries)-1 {
			break // final chunk may be short
		}
		if e.PointCount != constant {
			return 0, false
		}
	}
	return constant, true
}

// ChunkOffset returns the compressed-data byte offset of chunk i, relative
// to the start of the point-data section (compressed offsets conventionally
// start at 8, after the 8-byte chunk-table-offset field).
func (t *Table) ChunkOffset(i int) uint64 {
	var off uint64 = 8
	for j := 0; j < i; j++ {
		off += uint64(t.entries[j].CompressedSize)
	}
	return off
}

// DecompressedChunkOffset returns the point-index offset of chunk i.
func (t *Table) DecompressedChunkOffset(i int) uint64 {
	var off uint64
	for j := 0; j < i; j++ {
		off += uint64(t.entries[j].PointCount)
	}
	return off
}

// Entry returns chunk i's recorded entry.
func (t *Table) Entry(i int) Entry { return t.entries[i] }

// Encode range-codes the table body: a constant-chunk-size flag folded
// into the point-count stream (omitted entirely when every chunk but the
// last shares one size) followed by delta-coded point counts and
// compressed sizes.
func (t *Table) Encode() []byte {
	out := rangecoder.NewOutStream()
	pointCounts := symbolmodel.NewIntegerCoder(32)
	sizes := symbolmodel.NewIntegerCoder(32)

	constant, isConstant := t.PointsPerChunk()
	lastDiffers := isConstant && len(t.entries) > 0 && t.entries[len(t.entries)-1].PointCount != constant

	var header uint32
	if isConstant {
		header = 1
	}
	symbolmodel.RawEncode(out, header, 1)
	if isConstant {
		symbolmodel.RawEncode(out, constant, 32)
		var lastDiffersBit uint32
		if lastDiffers {
			lastDiffersBit = 1
		}
		symbolmodel.RawEncode(out, lastDiffersBit, 1)
	}

	var prevCount, prevSize int32
	for i, e := range t.entries {
		if !isConstant {
			pointCounts.EncodeInt(out, int32(e.PointCount)-prevCount)
			prevCount = int32(e.PointCount)
		} else if lastDiffers && i == len(t.entries)-1 {
			pointCounts.EncodeInt(out, int32(e.PointCount))
		}
		sizes.EncodeInt(out, int32(e.CompressedSize)-prevSize)
		prevSize = int32(e.CompressedSize)
	}
	out.Finalize()
	return out.Bytes()
}

// Decode reads a table body encoded by Encode, given the chunk count taken
// from the table's Header (NumberOfChunks).
func Decode(data []byte, numChunks int) (*Table, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("chunktable: buffer too small")
	}
	in := rangecoder.NewInStream(data)
	pointCounts := symbolmodel.NewIntegerCoder(32)
	sizes := symbolmodel.NewIntegerCoder(32)

	isConstant := symbolmodel.RawDecode(in, 1) != 0
	var constant uint32
	var lastDiffers bool
	if isConstant {
		constant = symbolmodel.RawDecode(in, 32)
		lastDiffers = symbolmodel.RawDecode(in, 1) != 0
	}

	t := &Table{constantValid: isConstant}
	var prevCount, prevSize int32
	for i := 0; i < numChunks; i++ {
		var count uint32
		if !isConstant {
			prevCount += pointCounts.DecodeInt(in)
			count = uint32(prevCount)
		} else if lastDiffers && i == numChunks-1 {
			count = uint32(pointCounts.DecodeInt(in))
		} else {
			count = constant
		}
		prevSize += sizes.DecodeInt(in)
		t.entries = append(t.entries, Entry{PointCount: count, CompressedSize: uint32(prevSize)})
	}
	return t, nil
}
