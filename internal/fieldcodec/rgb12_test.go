package fieldcodec

import (
	"testing"

	"github.com/laspp/laspp-go/internal/rangecoder"
)

func TestRGB12RoundTrip(t *testing.T) {
	colors := []RGB12{
		{R: 1000, G: 1000, B: 1000},
		{R: 1200, G: 1200, B: 1200}, // monochrome
		{R: 1250, G: 900, B: 300},
		{R: 1251, G: 899, B: 300},
		{R: 0, G: 65535, B: 32768},
	}

	out := rangecoder.NewOutStream()
	enc := NewRGB12Encoder()
	enc.Reset(colors[0])
	for _, c := range colors[1:] {
		enc.EncodePoint(out, c)
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewRGB12Encoder()
	dec.Reset(colors[0])
	for i, want := range colors[1:] {
		got := dec.DecodePoint(in)
		if got != want {
			t.Fatalf("color %d: got %+v, want %+v", i+1, got, want)
		}
	}
}
