package laspp

import "fmt"

// Format identifies a LAS point data record format. laspp-go implements the
// core formats 0, 1, 2, 3 (legacy 20-byte record) and 6, 7 (extended
// 30-byte record); 4, 5, 8, 9, and 10 add wavepacket or near-infrared items
// this engine doesn't carry and are rejected with UnsupportedFeatureError.
type Format uint8

const (
	Format0 Format = 0
	Format1 Format = 1
	Format2 Format = 2
	Format3 Format = 3
	Format6 Format = 6
	Format7 Format = 7
)

// CompressedBit is set in a LAS header's point_data_record_format byte to
// mark the point stream as LAZ-compressed.
const CompressedBit = 0x80

// HasGPSTime reports whether format carries a GPSTime field.
func (f Format) HasGPSTime() bool {
	switch f {
	case Format1, Format3, Format6, Format7:
		return true
	default:
		return false
	}
}

// HasColor reports whether format carries an RGB color triple.
func (f Format) HasColor() bool {
	switch f {
	case Format2, Format3, Format7:
		return true
	default:
		return false
	}
}

// IsExtended reports whether format uses the Point14 extended core (30-byte
// record, layered compression) rather than the Point10 legacy core.
func (f Format) IsExtended() bool {
	return f == Format6 || f == Format7
}

// RecordLength returns the uncompressed on-disk byte width of one record in
// format f, or an UnsupportedFeatureError if f isn't implemented.
func (f Format) RecordLength() (int, error) {
	switch f {
	case Format0:
		return 20, nil
	case Format1:
		return 28, nil
	case Format2:
		return 26, nil
	case Format3:
		return 34, nil
	case Format6:
		return 30, nil
	case Format7:
		return 36, nil
	default:
		return 0, &UnsupportedFeatureError{Feature: fmt.Sprintf("point data format %d", uint8(f))}
	}
}

// Supported reports whether laspp-go implements format f.
func (f Format) Supported() bool {
	_, err := f.RecordLength()
	return err == nil
}

// Point is one decoded LAS point record: the union of every field used
// across the formats this package supports. Fields not meaningful for a
// given record's format (e.g. Red/Green/Blue on format 0) are left zero.
type Point struct {
	X, Y, Z int32

	Intensity         uint16
	ReturnNumber      uint8 // 0-7 (formats 0-3) or 0-15 (formats 6-7)
	NumberOfReturns   uint8
	ScanDirectionFlag bool
	EdgeOfFlightLine  bool
	Classification    uint8
	ClassFlags         uint8 // synthetic/key-point/withheld/overlap bits, formats 6-7 only
	ScannerChannel     uint8 // 0-3, formats 6-7 only
	ScanAngle          int16 // full range on formats 6-7; legacy rank fits int8
	UserData           uint8
	PointSourceID      uint16

	GPSTime float64 // formats 1, 3, 6, 7

	Red, Green, Blue uint16 // formats 2, 3, 7
}
