package laspp

import (
	"bytes"
	"os"
	"testing"

	"github.com/laspp/laspp-go/internal/spatialindex"
	"github.com/laspp/laspp-go/internal/workerpool"
)

func makeGridPoints(n int, format Format) []Point {
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		p := Point{
			X: int32(i % 1000 * 10), Y: int32(i / 1000 * 10), Z: int32(100 + i%50),
			Intensity:       uint16(100 + i%900),
			ReturnNumber:    uint8(1 + i%3),
			NumberOfReturns: uint8(3),
			Classification:  uint8(2 + i%6),
			UserData:        uint8(i % 256),
			PointSourceID:   uint16(1),
		}
		if format.IsExtended() {
			p.ScannerChannel = uint8(i % 2)
			p.ClassFlags = uint8(i % 4)
		}
		if format.HasGPSTime() {
			p.GPSTime = float64(i) * 0.001
		}
		if format.HasColor() {
			p.Red, p.Green, p.Blue = uint16(i%65535), uint16((i*3)%65535), uint16((i*7)%65535)
		}
		pts[i] = p
	}
	return pts
}

func writeAndOpen(t *testing.T, format Format, points []Point, compressed bool) *Reader {
	t.Helper()
	var buf bytes.Buffer
	opts := DefaultWriterOptions()
	opts.Compressed = compressed
	opts.ChunkSize = 37 // deliberately not a divisor of len(points), to exercise a short final chunk
	w, err := NewWriter(&buf, format, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WritePoints(points); err != nil {
		t.Fatalf("WritePoints: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	r, err := OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	return r
}

func assertPointsEqual(t *testing.T, got, want []Point) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("point %d mismatch:\ngot  %+v\nwant %+v", i, got[i], want[i])
		}
	}
}

func TestUncompressedRoundTrip(t *testing.T) {
	points := makeGridPoints(200, Format3)
	r := writeAndOpen(t, Format3, points, false)
	if r.NumChunks() != 1 {
		t.Fatalf("uncompressed file should report 1 chunk, got %d", r.NumChunks())
	}
	got, err := r.ReadChunk(0)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	assertPointsEqual(t, got, points)
}

func TestCompressedChunkedRoundTrip(t *testing.T) {
	points := makeGridPoints(200, Format1)
	r := writeAndOpen(t, Format1, points, true)

	wantChunks := (len(points) + 36) / 37
	if r.NumChunks() != wantChunks {
		t.Fatalf("got %d chunks, want %d", r.NumChunks(), wantChunks)
	}

	var all []Point
	for i := 0; i < r.NumChunks(); i++ {
		got, err := r.ReadChunk(i)
		if err != nil {
			t.Fatalf("ReadChunk(%d): %v", i, err)
		}
		all = append(all, got...)
	}
	assertPointsEqual(t, all, points)
}

func TestLayeredFormat7RoundTrip(t *testing.T) {
	points := makeGridPoints(150, Format7)
	r := writeAndOpen(t, Format7, points, true)

	var all []Point
	for i := 0; i < r.NumChunks(); i++ {
		got, err := r.ReadChunk(i)
		if err != nil {
			t.Fatalf("ReadChunk(%d): %v", i, err)
		}
		all = append(all, got...)
	}
	assertPointsEqual(t, all, points)
}

func TestChunkTableExactPointAccounting(t *testing.T) {
	points := makeGridPoints(112, Format0)
	r := writeAndOpen(t, Format0, points, true)

	total := 0
	for i := 0; i < r.NumChunks(); i++ {
		got, err := r.ReadChunk(i)
		if err != nil {
			t.Fatalf("ReadChunk(%d): %v", i, err)
		}
		total += len(got)
	}
	if uint64(total) != r.NumPoints() {
		t.Fatalf("chunk table point accounting mismatch: got %d points across chunks, header says %d", total, r.NumPoints())
	}
}

func TestSpatialIndexRoundTrip(t *testing.T) {
	points := makeGridPoints(500, Format0)
	var buf bytes.Buffer
	opts := DefaultWriterOptions()
	opts.Compressed = true
	opts.ChunkSize = 50
	w, err := NewWriter(&buf, Format0, opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WritePoints(points); err != nil {
		t.Fatalf("WritePoints: %v", err)
	}
	if err := w.WriteLASToolsSpatialIndex(); err != nil {
		t.Fatalf("WriteLASToolsSpatialIndex: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if !r.HasLASToolsSpatialIndex() {
		t.Fatal("expected spatial index to round-trip via EVLR")
	}
	idx, err := r.LASToolsSpatialIndex()
	if err != nil {
		t.Fatalf("LASToolsSpatialIndex: %v", err)
	}
	mean, _ := idx.DensityStats()
	if mean <= 0 {
		t.Fatalf("expected positive mean cell density, got %f", mean)
	}

	query := spatialindex.Bounds{MinX: 0, MinY: 0, MaxX: 10000, MaxY: 10000}
	chunks, err := r.ChunksOverlapping(query)
	if err != nil {
		t.Fatalf("ChunksOverlapping: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk to overlap the full-range query")
	}
}

func TestReadChunksParallelMatchesSequential(t *testing.T) {
	points := makeGridPoints(400, Format1)
	r := writeAndOpen(t, Format1, points, true)

	var sequential []Point
	for i := 0; i < r.NumChunks(); i++ {
		got, err := r.ReadChunk(i)
		if err != nil {
			t.Fatalf("ReadChunk(%d): %v", i, err)
		}
		sequential = append(sequential, got...)
	}

	for _, threads := range []string{"1", "4", "0"} {
		os.Setenv(workerpool.EnvThreads, threads)
		parallel, err := r.ReadChunks(0, r.NumChunks())
		if err != nil {
			t.Fatalf("ReadChunks (threads=%s): %v", threads, err)
		}
		assertPointsEqual(t, parallel, sequential)
	}
	os.Unsetenv(workerpool.EnvThreads)
}
