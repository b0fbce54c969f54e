package chunktable

import "testing"

func TestChunkTableConstantSize(t *testing.T) {
	tbl := New()
	tbl.AddChunk(50000, 12345)
	tbl.AddChunk(50000, 12400)
	tbl.AddChunk(50000, 12100)

	data := tbl.Encode()
	got, err := Decode(data, tbl.NumChunks())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := 0; i < tbl.NumChunks(); i++ {
		if got.Entry(i) != tbl.Entry(i) {
			t.Fatalf("chunk %d: got %+v, want %+v", i, got.Entry(i), tbl.Entry(i))
		}
	}
}

func TestChunkTableVariableSize(t *testing.T) {
	tbl := New()
	tbl.AddChunk(50000, 12345)
	tbl.AddChunk(49000, 12400)
	tbl.AddChunk(12345, 3100) // short final chunk

	data := tbl.Encode()
	got, err := Decode(data, tbl.NumChunks())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := 0; i < tbl.NumChunks(); i++ {
		if got.Entry(i) != tbl.Entry(i) {
			t.Fatalf("chunk %d: got %+v, want %+v", i, got.Entry(i), tbl.Entry(i))
		}
	}
}

func TestChunkTableConstantWithShortFinal(t *testing.T) {
	tbl := New()
	tbl.AddChunk(50000, 12345)
	tbl.AddChunk(50000, 12400)
	tbl.AddChunk(13000, 3100) // constant except the final, shorter chunk

	data := tbl.Encode()
	got, err := Decode(data, tbl.NumChunks())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := 0; i < tbl.NumChunks(); i++ {
		if got.Entry(i) != tbl.Entry(i) {
			t.Fatalf("chunk %d: got %+v, want %+v", i, got.Entry(i), tbl.Entry(i))
		}
	}
}
