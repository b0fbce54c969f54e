// Package lasvlr implements LAS variable- and extended-variable-length
// record (VLR/EVLR) parsing and serialization, including the LAZ special
// VLR that advertises a file's compression scheme to a reader before it
// touches a single point.
package lasvlr

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// VLRHeaderSize is the fixed size of a classic VLR header, before its
// payload.
const VLRHeaderSize = 54

// EVLRHeaderSize is the fixed size of an extended VLR header.
const EVLRHeaderSize = 60

// ParseError reports a malformed VLR/EVLR header or truncated payload.
type ParseError struct {
	Reason string
	Offset int64
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lasvlr: %s (offset %d)", e.Reason, e.Offset)
}

// VariableLengthRecord is a classic LAS VLR: reserved + 16-byte user ID +
// numeric record ID + payload, with a 32-byte free-text description.
type VariableLengthRecord struct {
	Reserved              uint16
	UserID                string // trimmed to 16 bytes on write
	RecordID              uint16
	Description           string // trimmed to 32 bytes on write
	Data                  []byte
}

// IsLAZVLR reports whether this record is the LASzip/laz-perf special VLR.
func (v *VariableLengthRecord) IsLAZVLR() bool {
	return v.UserID == "laszip encoded" && v.RecordID == 22204
}

// IsProjection reports whether this record carries GeoTIFF or WKT
// coordinate reference system metadata.
func (v *VariableLengthRecord) IsProjection() bool {
	if v.UserID != "LASF_Projection" {
		return false
	}
	switch v.RecordID {
	case 34735, 34736, 34737, 2111, 2112:
		return true
	default:
		return false
	}
}

// IsExtraBytes reports whether this record describes "extra bytes" payload
// fields appended to every point record.
func (v *VariableLengthRecord) IsExtraBytes() bool {
	return v.UserID == "LASF_Spec" && v.RecordID == 4
}

func fixedString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func trimTrailingNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Marshal encodes the header and payload as they appear on disk.
func (v *VariableLengthRecord) Marshal() []byte {
	buf := make([]byte, VLRHeaderSize+len(v.Data))
	binary.LittleEndian.PutUint16(buf[0:], v.Reserved)
	copy(buf[2:18], fixedString(v.UserID, 16))
	binary.LittleEndian.PutUint16(buf[18:], v.RecordID)
	binary.LittleEndian.PutUint16(buf[20:], uint16(len(v.Data)))
	copy(buf[22:54], fixedString(v.Description, 32))
	copy(buf[54:], v.Data)
	return buf
}

// UnmarshalVLR parses one classic VLR starting at the front of data,
// returning the record and the number of bytes consumed.
func UnmarshalVLR(data []byte, offset int64) (*VariableLengthRecord, int, error) {
	if len(data) < VLRHeaderSize {
		return nil, 0, &ParseError{Reason: "buffer too small for VLR header", Offset: offset}
	}
	recordLength := int(binary.LittleEndian.Uint16(data[20:]))
	total := VLRHeaderSize + recordLength
	if len(data) < total {
		return nil, 0, &ParseError{Reason: "buffer too small for VLR payload", Offset: offset}
	}
	v := &VariableLengthRecord{
		Reserved:    binary.LittleEndian.Uint16(data[0:]),
		UserID:      trimTrailingNUL(data[2:18]),
		RecordID:    binary.LittleEndian.Uint16(data[18:]),
		Description: trimTrailingNUL(data[22:54]),
		Data:        append([]byte(nil), data[54:total]...),
	}
	return v, total, nil
}

// ExtendedVariableLengthRecord is an EVLR: like a VLR but with a 64-bit
// payload length, used for payloads too large for a classic VLR (waveform
// data, large spatial indexes).
type ExtendedVariableLengthRecord struct {
	Reserved    uint16
	UserID      string
	RecordID    uint16
	Description string
	Data        []byte
}

// Marshal encodes the header and payload as they appear on disk.
func (v *ExtendedVariableLengthRecord) Marshal() []byte {
	buf := make([]byte, EVLRHeaderSize+len(v.Data))
	binary.LittleEndian.PutUint16(buf[0:], v.Reserved)
	copy(buf[2:18], fixedString(v.UserID, 16))
	binary.LittleEndian.PutUint16(buf[18:], v.RecordID)
	binary.LittleEndian.PutUint64(buf[20:], uint64(len(v.Data)))
	copy(buf[28:60], fixedString(v.Description, 32))
	copy(buf[60:], v.Data)
	return buf
}

// UnmarshalEVLR parses one EVLR starting at the front of data, returning
// the record and the number of bytes consumed.
func UnmarshalEVLR(data []byte, offset int64) (*ExtendedVariableLengthRecord, int, error) {
	if len(data) < EVLRHeaderSize {
		return nil, 0, &ParseError{Reason: "buffer too small for EVLR header", Offset: offset}
	}
	recordLength := int(binary.LittleEndian.Uint64(data[20:]))
	total := EVLRHeaderSize + recordLength
	if len(data) < total {
		return nil, 0, &ParseError{Reason: "buffer too small for EVLR payload", Offset: offset}
	}
	v := &ExtendedVariableLengthRecord{
		Reserved:    binary.LittleEndian.Uint16(data[0:]),
		UserID:      trimTrailingNUL(data[2:18]),
		RecordID:    binary.LittleEndian.Uint16(data[18:]),
		Description: trimTrailingNUL(data[28:60]),
		Data:        append([]byte(nil), data[60:total]...),
	}
	return v, total, nil
}

// NewProjectID returns a fresh random GUID suitable for a LAS header's
// project ID field, for writers that don't inherit one from their source.
func NewProjectID() uuid.UUID {
	return uuid.New()
}
