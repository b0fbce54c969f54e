package lasvlr

import "testing"

func TestVLRRoundTrip(t *testing.T) {
	v := &VariableLengthRecord{
		UserID:      "LASF_Projection",
		RecordID:    34735,
		Description: "GeoKeyDirectoryTag",
		Data:        []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
	buf := v.Marshal()

	got, n, err := UnmarshalVLR(buf, 0)
	if err != nil {
		t.Fatalf("UnmarshalVLR: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d bytes, want %d", n, len(buf))
	}
	if got.UserID != v.UserID || got.RecordID != v.RecordID || got.Description != v.Description {
		t.Fatalf("got %+v, want %+v", got, v)
	}
	if !got.IsProjection() {
		t.Fatal("expected IsProjection true")
	}
}

func TestEVLRRoundTrip(t *testing.T) {
	v := &ExtendedVariableLengthRecord{
		UserID:      "laszip encoded",
		RecordID:    22204,
		Description: "LAZ",
		Data:        make([]byte, 100),
	}
	buf := v.Marshal()

	got, n, err := UnmarshalEVLR(buf, 0)
	if err != nil {
		t.Fatalf("UnmarshalEVLR: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d bytes, want %d", n, len(buf))
	}
	if len(got.Data) != len(v.Data) {
		t.Fatalf("got %d data bytes, want %d", len(got.Data), len(v.Data))
	}
}

func TestSpecialVLRRoundTrip(t *testing.T) {
	p := &SpecialVLRPt1{
		Compressor:      CompressorLayeredChunked,
		VersionMajor:    3,
		ChunkSize:       50000,
		Items: []ItemRecord{
			{Type: ItemPoint14, Count: 1, Version: 3},
			{Type: ItemRGB14, Count: 1, Version: 3},
		},
	}
	buf := p.Marshal()

	got, err := UnmarshalSpecialVLRPt1(buf)
	if err != nil {
		t.Fatalf("UnmarshalSpecialVLRPt1: %v", err)
	}
	if got.Compressor != p.Compressor || got.ChunkSize != p.ChunkSize || len(got.Items) != len(p.Items) {
		t.Fatalf("got %+v, want %+v", got, p)
	}
	if got.AdaptiveChunking() {
		t.Fatal("expected fixed chunk size")
	}
}
