// Package lasheader implements the fixed-width LAS public header block,
// versions 1.0 through 1.4.
package lasheader

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Signature is the 4-byte magic every LAS file starts with.
const Signature = "LASF"

// Global encoding bit flags (LAS 1.3+).
const (
	GlobalEncodingGPSTimeStandard  = 1 << 0
	GlobalEncodingWaveformInternal = 1 << 1
	GlobalEncodingWaveformExternal = 1 << 2
	GlobalEncodingSyntheticReturns = 1 << 3
	GlobalEncodingWKT             = 1 << 4
)

// Size1_1 through Size1_4 are the fixed header lengths per LAS version;
// later versions only ever append fields.
const (
	Size1_1 = 227
	Size1_2 = 227
	Size1_3 = 235
	Size1_4 = 375
)

// ParseError reports a malformed or unsupported LAS header.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("lasheader: %s", e.Reason) }

// Header is the LAS public header block, holding every field through
// LAS 1.4. Fields introduced by later versions are zero on files that
// predate them.
type Header struct {
	VersionMajor, VersionMinor uint8
	SystemIdentifier           string // 32 bytes
	GeneratingSoftware         string // 32 bytes
	FileCreationDayOfYear      uint16
	FileCreationYear           uint16
	HeaderSize                 uint16
	OffsetToPointData          uint32
	NumberOfVLRs               uint32
	PointDataFormat            uint8
	PointDataRecordLength      uint16
	LegacyNumberOfPointRecords uint32
	LegacyNumberOfPointsByReturn [5]uint32
	XScaleFactor, YScaleFactor, ZScaleFactor float64
	XOffset, YOffset, ZOffset               float64
	MaxX, MinX, MaxY, MinY, MaxZ, MinZ       float64
	StartOfWaveformDataPacketRecord uint64 // 1.3+
	StartOfFirstEVLR                uint64 // 1.4+
	NumberOfEVLRs                    uint32 // 1.4+
	NumberOfPointRecords             uint64 // 1.4+
	NumberOfPointsByReturn           [15]uint64 // 1.4+
	ProjectID                        uuid.UUID
	GlobalEncoding                   uint16
}

func sizeForVersion(major, minor uint8) (int, error) {
	switch {
	case major != 1:
		return 0, &ParseError{Reason: fmt.Sprintf("unsupported major version %d", major)}
	case minor <= 2:
		return Size1_2, nil
	case minor == 3:
		return Size1_3, nil
	case minor == 4:
		return Size1_4, nil
	default:
		return 0, &ParseError{Reason: fmt.Sprintf("unsupported minor version 1.%d", minor)}
	}
}

func trimFixed(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func fixed(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// Unmarshal parses a LAS public header block from the start of data.
func Unmarshal(data []byte) (*Header, error) {
	if len(data) < 4 || string(data[0:4]) != Signature {
		return nil, &ParseError{Reason: "missing LASF signature"}
	}
	if len(data) < 104 {
		return nil, &ParseError{Reason: "buffer too small for fixed header prefix"}
	}

	h := &Header{}
	// file source ID (2) + global encoding (2) at offset 4
	h.GlobalEncoding = binary.LittleEndian.Uint16(data[6:])
	projectBytes := data[8:24]
	var guidBytes [16]byte
	// LAS GUID fields 1-3 are little-endian, field 4 is raw bytes.
	binary.LittleEndian.PutUint32(guidBytes[0:], binary.LittleEndian.Uint32(projectBytes[0:4]))
	binary.LittleEndian.PutUint16(guidBytes[4:], binary.LittleEndian.Uint16(projectBytes[4:6]))
	binary.LittleEndian.PutUint16(guidBytes[6:], binary.LittleEndian.Uint16(projectBytes[6:8]))
	copy(guidBytes[8:], projectBytes[8:16])
	h.ProjectID = uuid.UUID(guidBytes)

	h.VersionMajor = data[24]
	h.VersionMinor = data[25]

	size, err := sizeForVersion(h.VersionMajor, h.VersionMinor)
	if err != nil {
		return nil, err
	}
	if len(data) < size {
		return nil, &ParseError{Reason: "buffer too small for declared version's header size"}
	}

	h.SystemIdentifier = trimFixed(data[26:58])
	h.GeneratingSoftware = trimFixed(data[58:90])
	h.FileCreationDayOfYear = binary.LittleEndian.Uint16(data[90:])
	h.FileCreationYear = binary.LittleEndian.Uint16(data[92:])
	h.HeaderSize = binary.LittleEndian.Uint16(data[94:])
	h.OffsetToPointData = binary.LittleEndian.Uint32(data[96:])
	h.NumberOfVLRs = binary.LittleEndian.Uint32(data[100:])
	h.PointDataFormat = data[104] & 0x7f // bit 7 reserved for legacy-compressed flag
	h.PointDataRecordLength = binary.LittleEndian.Uint16(data[105:])
	h.LegacyNumberOfPointRecords = binary.LittleEndian.Uint32(data[107:])
	for i := 0; i < 5; i++ {
		h.LegacyNumberOfPointsByReturn[i] = binary.LittleEndian.Uint32(data[111+4*i:])
	}
	off := 131
	h.XScaleFactor = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	h.YScaleFactor = math.Float64frombits(binary.LittleEndian.Uint64(data[off+8:]))
	h.ZScaleFactor = math.Float64frombits(binary.LittleEndian.Uint64(data[off+16:]))
	h.XOffset = math.Float64frombits(binary.LittleEndian.Uint64(data[off+24:]))
	h.YOffset = math.Float64frombits(binary.LittleEndian.Uint64(data[off+32:]))
	h.ZOffset = math.Float64frombits(binary.LittleEndian.Uint64(data[off+40:]))
	h.MaxX = math.Float64frombits(binary.LittleEndian.Uint64(data[off+48:]))
	h.MinX = math.Float64frombits(binary.LittleEndian.Uint64(data[off+56:]))
	h.MaxY = math.Float64frombits(binary.LittleEndian.Uint64(data[off+64:]))
	h.MinY = math.Float64frombits(binary.LittleEndian.Uint64(data[off+72:]))
	h.MaxZ = math.Float64frombits(binary.LittleEndian.Uint64(data[off+80:]))
	h.MinZ = math.Float64frombits(binary.LittleEndian.Uint64(data[off+88:]))

	if h.VersionMinor >= 3 {
		h.StartOfWaveformDataPacketRecord = binary.LittleEndian.Uint64(data[227:])
	}
	if h.VersionMinor >= 4 {
		h.StartOfFirstEVLR = binary.LittleEndian.Uint64(data[235:])
		h.NumberOfEVLRs = binary.LittleEndian.Uint32(data[243:])
		h.NumberOfPointRecords = binary.LittleEndian.Uint64(data[247:])
		for i := 0; i < 15; i++ {
			h.NumberOfPointsByReturn[i] = binary.LittleEndian.Uint64(data[255+8*i:])
		}
	}
	return h, nil
}

// PointCount returns the authoritative point count, preferring the 64-bit
// LAS 1.4 field when present and reconciling it with the legacy 32-bit
// count otherwise.
func (h *Header) PointCount() uint64 {
	if h.VersionMinor >= 4 && h.NumberOfPointRecords != 0 {
		return h.NumberOfPointRecords
	}
	return uint64(h.LegacyNumberOfPointRecords)
}

// Marshal encodes the header back to its on-disk fixed-width form.
func (h *Header) Marshal() []byte {
	size, err := sizeForVersion(h.VersionMajor, h.VersionMinor)
	if err != nil {
		size = Size1_4
	}
	buf := make([]byte, size)
	copy(buf[0:4], Signature)
	binary.LittleEndian.PutUint16(buf[6:], h.GlobalEncoding)

	guid := h.ProjectID
	binary.LittleEndian.PutUint32(buf[8:], binary.LittleEndian.Uint32(guid[0:4]))
	binary.LittleEndian.PutUint16(buf[12:], binary.LittleEndian.Uint16(guid[4:6]))
	binary.LittleEndian.PutUint16(buf[14:], binary.LittleEndian.Uint16(guid[6:8]))
	copy(buf[16:24], guid[8:16])

	buf[24] = h.VersionMajor
	buf[25] = h.VersionMinor
	copy(buf[26:58], fixed(h.SystemIdentifier, 32))
	copy(buf[58:90], fixed(h.GeneratingSoftware, 32))
	binary.LittleEndian.PutUint16(buf[90:], h.FileCreationDayOfYear)
	binary.LittleEndian.PutUint16(buf[92:], h.FileCreationYear)
	binary.LittleEndian.PutUint16(buf[94:], uint16(size))
	binary.LittleEndian.PutUint32(buf[96:], h.OffsetToPointData)
	binary.LittleEndian.PutUint32(buf[100:], h.NumberOfVLRs)
	buf[104] = h.PointDataFormat
	binary.LittleEndian.PutUint16(buf[105:], h.PointDataRecordLength)
	binary.LittleEndian.PutUint32(buf[107:], h.LegacyNumberOfPointRecords)
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint32(buf[111+4*i:], h.LegacyNumberOfPointsByReturn[i])
	}
	off := 131
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(h.XScaleFactor))
	binary.LittleEndian.PutUint64(buf[off+8:], math.Float64bits(h.YScaleFactor))
	binary.LittleEndian.PutUint64(buf[off+16:], math.Float64bits(h.ZScaleFactor))
	binary.LittleEndian.PutUint64(buf[off+24:], math.Float64bits(h.XOffset))
	binary.LittleEndian.PutUint64(buf[off+32:], math.Float64bits(h.YOffset))
	binary.LittleEndian.PutUint64(buf[off+40:], math.Float64bits(h.ZOffset))
	binary.LittleEndian.PutUint64(buf[off+48:], math.Float64bits(h.MaxX))
	binary.LittleEndian.PutUint64(buf[off+56:], math.Float64bits(h.MinX))
	binary.LittleEndian.PutUint64(buf[off+64:], math.Float64bits(h.MaxY))
	binary.LittleEndian.PutUint64(buf[off+72:], math.Float64bits(h.MinY))
	binary.LittleEndian.PutUint64(buf[off+80:], math.Float64bits(h.MaxZ))
	binary.LittleEndian.PutUint64(buf[off+88:], math.Float64bits(h.MinZ))

	if h.VersionMinor >= 3 {
		binary.LittleEndian.PutUint64(buf[227:], h.StartOfWaveformDataPacketRecord)
	}
	if h.VersionMinor >= 4 {
		binary.LittleEndian.PutUint64(buf[235:], h.StartOfFirstEVLR)
		binary.LittleEndian.PutUint32(buf[243:], h.NumberOfEVLRs)
		binary.LittleEndian.PutUint64(buf[247:], h.NumberOfPointRecords)
		for i := 0; i < 15; i++ {
			binary.LittleEndian.PutUint64(buf[255+8*i:], h.NumberOfPointsByReturn[i])
		}
	}
	return buf
}
