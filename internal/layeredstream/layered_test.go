package layeredstream

import "testing"

func TestLayeredRoundTrip(t *testing.T) {
	out := NewOutStreams(3)
	out.Layer(0).UpdateRange(0, 1<<30)
	out.Layer(1).UpdateRange(10, 1<<20)
	// layer 2 left empty
	data := out.Finalize()

	in, err := NewInStreams(data, 3)
	if err != nil {
		t.Fatalf("NewInStreams: %v", err)
	}
	if !in.NonEmpty(0) || !in.NonEmpty(1) {
		t.Fatal("expected layers 0 and 1 to be non-empty")
	}
	if in.NonEmpty(2) {
		t.Fatal("expected layer 2 to be empty")
	}
}

func TestLayeredTruncated(t *testing.T) {
	_, err := NewInStreams([]byte{1, 2, 3}, 2)
	if err == nil {
		t.Fatal("expected error on truncated header")
	}
}
