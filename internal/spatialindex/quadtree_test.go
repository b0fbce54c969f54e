package spatialindex

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func sampleChunks() []ChunkEntry {
	return []ChunkEntry{
		{ChunkIndex: 0, PointSpan: [2]uint64{0, 100}, GeoBounds: Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}},
		{ChunkIndex: 1, PointSpan: [2]uint64{100, 250}, GeoBounds: Bounds{MinX: 40, MinY: 40, MaxX: 50, MaxY: 50}},
		{ChunkIndex: 2, PointSpan: [2]uint64{250, 260}, GeoBounds: Bounds{MinX: 90, MinY: 90, MaxX: 100, MaxY: 100}},
	}
}

// samplePoints places points densely in the same three regions the sample
// chunks occupy, with global indices matching each chunk's PointSpan.
func samplePoints() []Point2D {
	pts := make([]Point2D, 260)
	for i := 0; i < 100; i++ {
		pts[i] = Point2D{X: 1 + float64(i%8), Y: 1 + float64(i%8)}
	}
	for i := 100; i < 250; i++ {
		pts[i] = Point2D{X: 41 + float64(i%8), Y: 41 + float64(i%8)}
	}
	for i := 250; i < 260; i++ {
		pts[i] = Point2D{X: 91 + float64(i%8), Y: 91 + float64(i%8)}
	}
	return pts
}

func TestCellAtCellBoundsRoundTrip(t *testing.T) {
	root := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	for level := 0; level <= 6; level++ {
		for _, pt := range [][2]float64{{5, 5}, {42, 17}, {99, 99}, {0, 0}} {
			cell := CellAt(root, level, pt[0], pt[1])
			bounds := CellBounds(root, level, cell)
			if pt[0] < bounds.MinX || pt[0] > bounds.MaxX || pt[1] < bounds.MinY || pt[1] > bounds.MaxY {
				t.Fatalf("level %d: point %v not within its own cell bounds %+v", level, pt, bounds)
			}
			if CellAt(root, level, (bounds.MinX+bounds.MaxX)/2, (bounds.MinY+bounds.MaxY)/2) != cell {
				t.Fatalf("level %d: cell center does not map back to cell %d", level, cell)
			}
			if got := CellLevel(level, cell); got != level {
				t.Fatalf("CellLevel(%d, %d) = %d, want %d", level, cell, got, level)
			}
		}
	}
}

func TestChooseLevel(t *testing.T) {
	cases := []struct {
		maxDim, tileSize float64
		want             int
	}{
		{maxDim: 100, tileSize: 50, want: 1},
		{maxDim: 1000, tileSize: 50, want: 5},
		{maxDim: 0, tileSize: 50, want: 4},
		{maxDim: 1e9, tileSize: 50, want: 20}, // clamped
	}
	for _, c := range cases {
		root := Bounds{MinX: 0, MinY: 0, MaxX: c.maxDim, MaxY: c.maxDim}
		if got := chooseLevel(root, c.tileSize); got != c.want {
			t.Fatalf("chooseLevel(maxDim=%v, tileSize=%v) = %d, want %d", c.maxDim, c.tileSize, got, c.want)
		}
	}
}

func TestBuildPointIntervals(t *testing.T) {
	root := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	idx := BuildWithTileSize(root, sampleChunks(), samplePoints(), 20)

	cells := idx.Cells()
	if len(cells) == 0 {
		t.Fatal("expected at least one populated cell")
	}

	var totalPoints uint32
	for _, c := range cells {
		var sum uint32
		prevEnd := int64(-2)
		for _, iv := range c.Intervals {
			if iv.Start > iv.End {
				t.Fatalf("cell %d: malformed interval %+v", c.CellIndex, iv)
			}
			if int64(iv.Start) <= prevEnd+1 {
				t.Fatalf("cell %d: intervals not sorted/non-overlapping: %+v", c.CellIndex, c.Intervals)
			}
			prevEnd = int64(iv.End)
			sum += iv.End - iv.Start + 1
		}
		if sum != c.NumberPoints {
			t.Fatalf("cell %d: interval span sum %d != NumberPoints %d", c.CellIndex, sum, c.NumberPoints)
		}
		totalPoints += c.NumberPoints
	}
	if int(totalPoints) != len(samplePoints()) {
		t.Fatalf("cells cover %d points, want %d", totalPoints, len(samplePoints()))
	}

	for i, p := range samplePoints() {
		ci, ok := idx.Lookup(p.X, p.Y)
		if !ok {
			t.Fatalf("point %d: no cell found via Lookup", i)
		}
		found := false
		for _, iv := range ci.Intervals {
			if uint32(i) >= iv.Start && uint32(i) <= iv.End {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("point %d: not present in its own looked-up cell's intervals", i)
		}
	}
}

func TestChunksOverlapping(t *testing.T) {
	root := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	idx := Build(root, sampleChunks(), samplePoints())

	hits := idx.ChunksOverlapping(Bounds{MinX: 35, MinY: 35, MaxX: 55, MaxY: 55})
	if len(hits) != 1 || hits[0].ChunkIndex != 1 {
		t.Fatalf("expected only chunk 1 to overlap, got %+v", hits)
	}

	hits = idx.ChunksOverlapping(root)
	if len(hits) != 3 {
		t.Fatalf("expected all 3 chunks to overlap root query, got %d", len(hits))
	}

	hits = idx.ChunksOverlapping(Bounds{MinX: 200, MinY: 200, MaxX: 210, MaxY: 210})
	if len(hits) != 0 {
		t.Fatalf("expected no chunks to overlap a disjoint query, got %+v", hits)
	}
}

func TestDensityStats(t *testing.T) {
	idx := Build(Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}, sampleChunks(), samplePoints())
	mean, stddev := idx.DensityStats()
	if mean <= 0 {
		t.Fatalf("expected positive mean density, got %v", mean)
	}
	if stddev < 0 {
		t.Fatalf("expected non-negative stddev, got %v", stddev)
	}
}

func TestDensityStatsEmpty(t *testing.T) {
	idx := Build(Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}, nil, nil)
	mean, stddev := idx.DensityStats()
	if mean != 0 || stddev != 0 {
		t.Fatalf("expected zero stats for empty index, got %v %v", mean, stddev)
	}
}

func TestLAXRoundTrip(t *testing.T) {
	root := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	idx := Build(root, sampleChunks(), samplePoints())

	var buf bytes.Buffer
	if err := WriteLAX(&buf, idx, false); err != nil {
		t.Fatalf("WriteLAX: %v", err)
	}
	got, err := ReadLAX(&buf)
	if err != nil {
		t.Fatalf("ReadLAX: %v", err)
	}
	if got.Level() != idx.Level() {
		t.Fatalf("level mismatch: got %d, want %d", got.Level(), idx.Level())
	}
	if len(got.chunks) != len(idx.chunks) {
		t.Fatalf("chunk count mismatch: got %d, want %d", len(got.chunks), len(idx.chunks))
	}
	for i, c := range got.chunks {
		if c != idx.chunks[i] {
			t.Fatalf("chunk %d mismatch: got %+v, want %+v", i, c, idx.chunks[i])
		}
	}

	wantCells, gotCells := idx.Cells(), got.Cells()
	if len(gotCells) != len(wantCells) {
		t.Fatalf("cell count mismatch: got %d, want %d", len(gotCells), len(wantCells))
	}
	for i, c := range gotCells {
		w := wantCells[i]
		if c.CellIndex != w.CellIndex || c.NumberPoints != w.NumberPoints {
			t.Fatalf("cell %d mismatch: got %+v, want %+v", i, c, w)
		}
		if len(c.Intervals) != len(w.Intervals) {
			t.Fatalf("cell %d interval count mismatch: got %+v, want %+v", i, c.Intervals, w.Intervals)
		}
		for j, iv := range c.Intervals {
			if iv != w.Intervals[j] {
				t.Fatalf("cell %d interval %d mismatch: got %+v, want %+v", i, j, iv, w.Intervals[j])
			}
		}
	}
}

func TestLAXRoundTripCompressed(t *testing.T) {
	root := Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	idx := Build(root, sampleChunks(), samplePoints())

	var buf bytes.Buffer
	if err := WriteLAX(&buf, idx, true); err != nil {
		t.Fatalf("WriteLAX: %v", err)
	}
	got, err := ReadLAX(&buf)
	if err != nil {
		t.Fatalf("ReadLAX: %v", err)
	}
	if len(got.chunks) != len(idx.chunks) {
		t.Fatalf("chunk count mismatch: got %d, want %d", len(got.chunks), len(idx.chunks))
	}
	if len(got.Cells()) != len(idx.Cells()) {
		t.Fatalf("cell count mismatch: got %d, want %d", len(got.Cells()), len(idx.Cells()))
	}
}

func TestReadLAXRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("XXXX")
	if _, err := ReadLAX(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestReadLAXRejectsMissingIntervalBlock(t *testing.T) {
	// A hand-assembled body that ends right after the chunk list, as the
	// pre-review wire format did: no "LASV" block at all.
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, int32(0))
	binary.Write(&body, binary.LittleEndian, 0.0)
	binary.Write(&body, binary.LittleEndian, 0.0)
	binary.Write(&body, binary.LittleEndian, 100.0)
	binary.Write(&body, binary.LittleEndian, 100.0)
	binary.Write(&body, binary.LittleEndian, int32(0)) // zero chunks, then nothing else

	var file bytes.Buffer
	file.WriteString(LAXMagic)
	binary.Write(&file, binary.LittleEndian, uint32(0))
	binary.Write(&file, binary.LittleEndian, int64(body.Len()))
	file.Write(body.Bytes())

	if _, err := ReadLAX(&file); err == nil {
		t.Fatal("expected error for LAX body missing its interval block")
	}
}
