package lasvlr

import "encoding/binary"

// Compressor identifies the overall compression strategy a LAZ file uses,
// advertised in the LAZ special VLR so a reader can pick the right
// decompression path before touching any chunk.
type Compressor uint16

const (
	CompressorNone             Compressor = 0
	CompressorPointwise        Compressor = 1
	CompressorPointwiseChunked Compressor = 2
	CompressorLayeredChunked   Compressor = 3
)

// ItemType identifies one field group within a point record (the LAZ item
// stream model: a point record is a sequence of typed, independently
// versioned items).
type ItemType uint16

const (
	ItemByte       ItemType = 0
	ItemPoint10    ItemType = 6
	ItemGPSTime11  ItemType = 7
	ItemRGB12      ItemType = 8
	ItemWavepacket13 ItemType = 9
	ItemPoint14    ItemType = 10
	ItemRGB14      ItemType = 11
	ItemRGBNIR14   ItemType = 12
	ItemByte14     ItemType = 14
)

// DefaultSize returns the on-disk byte width of one instance of item,
// independent of compression — the size a reader needs to know to compute
// uncompressed record strides.
func (item ItemType) DefaultSize(version uint16) (int, bool) {
	switch item {
	case ItemByte, ItemByte14:
		return 1, true // caller multiplies by item count
	case ItemPoint10:
		return 20, true
	case ItemGPSTime11:
		return 8, true
	case ItemRGB12, ItemRGB14:
		return 6, true
	case ItemWavepacket13:
		return 29, true
	case ItemPoint14:
		return 30, true
	case ItemRGBNIR14:
		return 8, true
	default:
		return 0, false
	}
}

// ItemRecord is one (type, count, version) triple in the LAZ special VLR's
// item list.
type ItemRecord struct {
	Type    ItemType
	Count   uint16
	Version uint16
}

// SpecialVLRPt1 is the fixed-size prefix of the LAZ special VLR payload:
// compression scheme, coder, version, options, chunk size and the
// special-EVLR count, followed by a variable-length item list.
// OffsetToSpecialEVLRs is not serialised: Marshal leaves it out of the
// 28-byte prefix and UnmarshalSpecialVLRPt1 leaves it zero.
type SpecialVLRPt1 struct {
	Compressor         Compressor
	Coder              uint16
	VersionMajor       uint8
	VersionMinor       uint8
	VersionRevision    uint16
	CompatibilityMode  bool
	ChunkSize          uint32
	NumberOfSpecialEVLRs int64
	OffsetToSpecialEVLRs int64
	Items              []ItemRecord
}

// AdaptiveChunking reports whether ChunkSize signals per-chunk point
// counts chosen at encode time rather than a fixed size.
func (p *SpecialVLRPt1) AdaptiveChunking() bool {
	return p.ChunkSize == 0xFFFFFFFF
}

// AddItemRecord appends one item to the record list.
func (p *SpecialVLRPt1) AddItemRecord(rec ItemRecord) {
	p.Items = append(p.Items, rec)
}

const specialVLRFixedSize = 28

// Marshal encodes the special VLR payload (fixed prefix plus item list),
// suitable for embedding as a VariableLengthRecord's Data.
func (p *SpecialVLRPt1) Marshal() []byte {
	buf := make([]byte, specialVLRFixedSize+6*len(p.Items))
	binary.LittleEndian.PutUint16(buf[0:], uint16(p.Compressor))
	binary.LittleEndian.PutUint16(buf[2:], p.Coder)
	buf[4] = p.VersionMajor
	buf[5] = p.VersionMinor
	binary.LittleEndian.PutUint16(buf[6:], p.VersionRevision)
	var options uint32
	if p.CompatibilityMode {
		options |= 1
	}
	binary.LittleEndian.PutUint32(buf[8:], options)
	binary.LittleEndian.PutUint32(buf[12:], p.ChunkSize)
	binary.LittleEndian.PutUint64(buf[16:], uint64(p.NumberOfSpecialEVLRs))
	binary.LittleEndian.PutUint16(buf[24:], uint16(len(p.Items)))
	pos := specialVLRFixedSize
	for _, it := range p.Items {
		binary.LittleEndian.PutUint16(buf[pos:], uint16(it.Type))
		binary.LittleEndian.PutUint16(buf[pos+2:], it.Count)
		binary.LittleEndian.PutUint16(buf[pos+4:], it.Version)
		pos += 6
	}
	return buf
}

// UnmarshalSpecialVLRPt1 parses a LAZ special VLR payload.
func UnmarshalSpecialVLRPt1(data []byte) (*SpecialVLRPt1, error) {
	if len(data) < specialVLRFixedSize {
		return nil, &ParseError{Reason: "buffer too small for LAZ special VLR"}
	}
	p := &SpecialVLRPt1{
		Compressor:      Compressor(binary.LittleEndian.Uint16(data[0:])),
		Coder:           binary.LittleEndian.Uint16(data[2:]),
		VersionMajor:    data[4],
		VersionMinor:    data[5],
		VersionRevision: binary.LittleEndian.Uint16(data[6:]),
	}
	options := binary.LittleEndian.Uint32(data[8:])
	p.CompatibilityMode = options&1 != 0
	p.ChunkSize = binary.LittleEndian.Uint32(data[12:])
	p.NumberOfSpecialEVLRs = int64(binary.LittleEndian.Uint64(data[16:]))
	numItems := int(binary.LittleEndian.Uint16(data[24:]))

	pos := specialVLRFixedSize
	for i := 0; i < numItems; i++ {
		if pos+6 > len(data) {
			return nil, &ParseError{Reason: "buffer too small for item record list"}
		}
		p.Items = append(p.Items, ItemRecord{
			Type:    ItemType(binary.LittleEndian.Uint16(data[pos:])),
			Count:   binary.LittleEndian.Uint16(data[pos+2:]),
			Version: binary.LittleEndian.Uint16(data[pos+4:]),
		})
		pos += 6
	}
	return p, nil
}
