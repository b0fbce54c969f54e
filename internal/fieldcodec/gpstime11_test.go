package fieldcodec

import (
	"math/rand"
	"testing"

	"github.com/laspp/laspp-go/internal/rangecoder"
)

func TestGPSTime11RoundTrip(t *testing.T) {
	times := []float64{
		100000.000100,
		100000.000200, // constant-rate continuation
		100000.000300,
		100000.000305, // small jump, new delta
		99999.998000,  // jump to an interleaved return's timeline
		100000.000310,
		100000.000315,
	}

	out := rangecoder.NewOutStream()
	enc := NewGeneralGPSTimeEncoder(false)
	enc.Reset(times[0])
	for _, tm := range times[1:] {
		enc.EncodeTime(out, tm)
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewGeneralGPSTimeEncoder(false)
	dec.Reset(times[0])
	for i, want := range times[1:] {
		got := dec.DecodeTime(in)
		if got != want {
			t.Fatalf("time %d: got %v, want %v", i+1, got, want)
		}
	}
}

func TestGPSTime11Point14RoundTrip(t *testing.T) {
	times := []float64{
		200000.0,
		200000.001,
		200000.002,
		200000.002, // identical value: point14 has no shortcut for this
		200000.1,   // large jump, fresh frame via fallback
		200000.101,
		200000.102,
	}

	out := rangecoder.NewOutStream()
	enc := NewGeneralGPSTimeEncoder(true)
	enc.Reset(times[0])
	for _, tm := range times[1:] {
		enc.EncodeTime(out, tm)
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewGeneralGPSTimeEncoder(true)
	dec.Reset(times[0])
	for i, want := range times[1:] {
		got := dec.DecodeTime(in)
		if got != want {
			t.Fatalf("time %d: got %v, want %v", i+1, got, want)
		}
	}
}

// TestGPSTime11MultiplierCases drives every multiplier branch the case
// model distinguishes: an established delta ridden at 1x, at a small
// positive multiple, at a multiple clamped to 500, at a small negative
// multiple, and at a multiple clamped to -10.
func TestGPSTime11MultiplierCases(t *testing.T) {
	base := 1000.0
	delta := 0.0000001
	times := []float64{base}
	times = append(times, base+delta)   // establish delta
	times = append(times, base+2*delta) // multiplier 1
	for m := 2; m < 9; m++ {
		times = append(times, times[len(times)-1]+float64(m)*delta) // small positive multipliers
	}
	times = append(times, times[len(times)-1]+600*delta) // multiplier clamped to 500
	times = append(times, times[len(times)-1]-5*delta)   // small negative multiplier
	times = append(times, times[len(times)-1]-20*delta)  // multiplier clamped to -10

	out := rangecoder.NewOutStream()
	enc := NewGeneralGPSTimeEncoder(false)
	enc.Reset(times[0])
	for _, tm := range times[1:] {
		enc.EncodeTime(out, tm)
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewGeneralGPSTimeEncoder(false)
	dec.Reset(times[0])
	for i, want := range times[1:] {
		got := dec.DecodeTime(in)
		if got != want {
			t.Fatalf("time %d: got %v, want %v", i+1, got, want)
		}
	}
}

// TestGPSTime11RandomRoundTrip seeds a deterministic PRNG and round-trips
// a long run of jump-prone GPS times (small forward and backward steps plus
// large forward jumps), exercising the multiplier and full-precision
// fallback paths many times over.
func TestGPSTime11RandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(0))

	n := 1000
	times := make([]float64, n)
	times[0] = 400000.0
	for i := 1; i < n; i++ {
		switch {
		case rng.Intn(20) == 0:
			times[i] = times[i-1] + rng.Float64()*1000 // big jump: fallback path
		case rng.Intn(5) == 0:
			times[i] = times[i-1] - rng.Float64()*0.01 // negative multiplier
		default:
			times[i] = times[i-1] + rng.Float64()*0.001
		}
	}

	for _, point14 := range []bool{false, true} {
		out := rangecoder.NewOutStream()
		enc := NewGeneralGPSTimeEncoder(point14)
		enc.Reset(times[0])
		for _, tm := range times[1:] {
			enc.EncodeTime(out, tm)
		}
		out.Finalize()

		in := rangecoder.NewInStream(out.Bytes())
		dec := NewGeneralGPSTimeEncoder(point14)
		dec.Reset(times[0])
		for i, want := range times[1:] {
			got := dec.DecodeTime(in)
			if got != want {
				t.Fatalf("point14=%v time %d: got %v, want %v", point14, i+1, got, want)
			}
		}
	}
}
