package fieldcodec

import (
	"testing"

	"github.com/laspp/laspp-go/internal/rangecoder"
)

func TestRGB14RoundTrip(t *testing.T) {
	colors := []RGB12{
		{R: 1000, G: 1000, B: 1000},
		{R: 1200, G: 1200, B: 1200},
		{R: 1250, G: 900, B: 300},
	}
	channels := []int{0, 0, 1}

	out := rangecoder.NewOutStream()
	enc := NewRGB14Encoder()
	enc.Reset(colors[0])
	for i := 1; i < len(colors); i++ {
		enc.ResolveContext(channels[i], colors[i-1])
		enc.EncodePoint(out, colors[i])
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewRGB14Encoder()
	dec.Reset(colors[0])
	for i := 1; i < len(colors); i++ {
		dec.ResolveContext(channels[i], colors[i-1])
		got := dec.DecodePoint(in)
		if got != colors[i] {
			t.Fatalf("color %d: got %+v, want %+v", i, got, colors[i])
		}
	}
}
