package lasheader

import (
	"testing"

	"github.com/google/uuid"
)

func TestHeaderRoundTrip1_4(t *testing.T) {
	h := &Header{
		VersionMajor:          1,
		VersionMinor:          4,
		SystemIdentifier:      "laspp-go",
		GeneratingSoftware:    "laspp-go test",
		FileCreationYear:      2026,
		FileCreationDayOfYear: 209,
		OffsetToPointData:     Size1_4,
		NumberOfVLRs:          2,
		PointDataFormat:       7,
		PointDataRecordLength: 36,
		XScaleFactor:          0.001,
		YScaleFactor:          0.001,
		ZScaleFactor:          0.001,
		XOffset:               0,
		YOffset:               0,
		ZOffset:               0,
		MaxX: 100, MinX: -100,
		MaxY: 100, MinY: -100,
		MaxZ: 50, MinZ: -50,
		NumberOfPointRecords: 1234567,
		ProjectID:            uuid.New(),
		GlobalEncoding:       GlobalEncodingWKT,
	}

	buf := h.Marshal()
	got, err := Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.PointCount() != h.NumberOfPointRecords {
		t.Fatalf("PointCount: got %d, want %d", got.PointCount(), h.NumberOfPointRecords)
	}
	if got.SystemIdentifier != h.SystemIdentifier || got.GeneratingSoftware != h.GeneratingSoftware {
		t.Fatalf("string fields mismatch: got %+v", got)
	}
	if got.XScaleFactor != h.XScaleFactor || got.MaxX != h.MaxX {
		t.Fatalf("float fields mismatch: got %+v", got)
	}
	if got.ProjectID != h.ProjectID {
		t.Fatalf("ProjectID mismatch: got %v, want %v", got.ProjectID, h.ProjectID)
	}
	if got.GlobalEncoding != h.GlobalEncoding {
		t.Fatalf("GlobalEncoding mismatch: got %v, want %v", got.GlobalEncoding, h.GlobalEncoding)
	}
}

func TestHeaderRejectsBadSignature(t *testing.T) {
	buf := make([]byte, 227)
	copy(buf, "XXXX")
	if _, err := Unmarshal(buf); err == nil {
		t.Fatal("expected error for bad signature")
	}
}
