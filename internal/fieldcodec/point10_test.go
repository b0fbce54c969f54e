package fieldcodec

import (
	"testing"

	"github.com/laspp/laspp-go/internal/rangecoder"
)

func samplePoint10s() []Point10 {
	return []Point10{
		{X: 1000, Y: 2000, Z: 3000, Intensity: 50, ReturnNumber: 1, NumberOfReturns: 1, Classification: 2, ScanAngleRank: 5, UserData: 9, PointSourceID: 7},
		{X: 1010, Y: 1995, Z: 3002, Intensity: 55, ReturnNumber: 1, NumberOfReturns: 2, Classification: 2, ScanAngleRank: 5, UserData: 9, PointSourceID: 7},
		{X: 1025, Y: 1980, Z: 2990, Intensity: 40, ReturnNumber: 2, NumberOfReturns: 2, Classification: 5, ScanAngleRank: 6, UserData: 9, PointSourceID: 7},
		{X: 1030, Y: 1970, Z: 2988, Intensity: 40, ReturnNumber: 1, NumberOfReturns: 1, Classification: 5, ScanAngleRank: -3, UserData: 1, PointSourceID: 42},
		{X: 900, Y: 2100, Z: 3100, Intensity: 0, ScanDirectionFlag: true, EdgeOfFlightLine: true, Classification: 0, ScanAngleRank: 0, UserData: 0, PointSourceID: 0},
	}
}

func TestPoint10RoundTrip(t *testing.T) {
	pts := samplePoint10s()

	out := rangecoder.NewOutStream()
	enc := NewPoint10Encoder()
	enc.Reset(pts[0])
	for _, p := range pts[1:] {
		enc.EncodePoint(out, p)
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewPoint10Encoder()
	dec.Reset(pts[0])
	for i, want := range pts[1:] {
		got := dec.DecodePoint(in)
		if got != want {
			t.Fatalf("point %d: got %+v, want %+v", i+1, got, want)
		}
	}
}
