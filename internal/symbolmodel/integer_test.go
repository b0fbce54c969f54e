package symbolmodel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/laspp/laspp-go/internal/rangecoder"
)

// TestIntegerCoderBoundaryValues mirrors the reference implementation's
// fixed-case test: particular values are pinned to particular length
// classes, since an off-by-one in the k<->value mapping round-trips fine
// against itself but silently diverges from LASzip's bitstream.
func TestIntegerCoderBoundaryValues(t *testing.T) {
	values := []int32{12442, 1, math.MaxInt32, math.MinInt32, 0, -1}
	wantK := []uint16{14, 0, 31, 32, 0, 1}

	out := rangecoder.NewOutStream()
	enc := NewIntegerCoder(32)
	for i, v := range values {
		enc.EncodeInt(out, v)
		if enc.PrevK() != wantK[i] {
			t.Fatalf("value %d: k = %d, want %d", v, enc.PrevK(), wantK[i])
		}
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewIntegerCoder(32)
	for i, want := range values {
		got := dec.DecodeInt(in)
		if got != want {
			t.Fatalf("value %d: decoded %d", i, got)
		}
	}
}

// TestIntegerCoderRandomRoundTrip seeds a PRNG at 0 and round-trips 1000
// values covering every length class from 0 up to 31, including the
// k>=8 high-byte-model path the reviewer flagged as broken.
func TestIntegerCoderRandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	values := make([]int32, 1000)
	for i := range values {
		switch i % 4 {
		case 0:
			values[i] = int32(rng.Intn(2)) // exercise k==0
		case 1:
			values[i] = int32(rng.Intn(256)) - 128 // exercise k<=7
		case 2:
			values[i] = int32(rng.Intn(1<<24)) - (1 << 23) // exercise k in [8,24)
		default:
			values[i] = rng.Int31() - rng.Int31() // full 32-bit range, exercises k up to 31
		}
	}

	out := rangecoder.NewOutStream()
	enc := NewIntegerCoder(32)
	for _, v := range values {
		enc.EncodeInt(out, v)
	}
	out.Finalize()

	in := rangecoder.NewInStream(out.Bytes())
	dec := NewIntegerCoder(32)
	for i, want := range values {
		got := dec.DecodeInt(in)
		if got != want {
			t.Fatalf("value %d: got %d, want %d", i, got, want)
		}
	}
}

// TestIntegerCoderNarrowWidths exercises 8- and 16-bit coders (as used by
// point10.go's scan angle and source ID fields) up through their maximum
// legitimate length class k==nBits, which is not an escape for these
// widths — only IntegerCoder(32) ever reaches the k==32 sentinel.
func TestIntegerCoderNarrowWidths(t *testing.T) {
	for _, nBits := range []uint8{8, 16} {
		nBits := nBits
		t.Run(string(rune('0'+nBits/10))+string(rune('0'+nBits%10)), func(t *testing.T) {
			limit := int32(1) << (nBits - 1)
			stride := int32(1)
			if nBits == 16 {
				stride = 37 // full exhaustive coverage isn't needed to hit every k; sample instead
			}
			values := make([]int32, 0, 2*int(limit)/int(stride)+1)
			for v := -limit; v < limit; v += stride {
				values = append(values, v)
			}

			out := rangecoder.NewOutStream()
			enc := NewIntegerCoder(nBits)
			for _, v := range values {
				enc.EncodeInt(out, v)
			}
			out.Finalize()

			in := rangecoder.NewInStream(out.Bytes())
			dec := NewIntegerCoder(nBits)
			for i, want := range values {
				got := dec.DecodeInt(in)
				if got != want {
					t.Fatalf("nBits=%d value %d: got %d, want %d", nBits, i, got, want)
				}
			}
		})
	}
}

// TestMultiInstanceIntegerCoderSharesModels checks that separate instances
// spawned from one MultiInstanceIntegerCoder round-trip independently while
// still sharing the underlying probability models (PrevK reflects whichever
// instance coded most recently).
func TestMultiInstanceIntegerCoderSharesModels(t *testing.T) {
	out := rangecoder.NewOutStream()
	mi := NewMultiInstanceIntegerCoder(32, 3)
	values := [3][]int32{{5, -5, 1000}, {0, 1, -1}, {70000, -70000, 12442}}
	for round := 0; round < 3; round++ {
		for inst := 0; inst < 3; inst++ {
			mi.Instance(inst).EncodeInt(out, values[inst][round])
		}
	}
	out.Finalize()
	// Instance 2 coded last (12442, length class 14); instance 0 sees it too.
	if got := mi.Instance(0).PrevK(); got != 14 {
		t.Fatalf("instance 0 PrevK = %d, want 14 from instance 2's last value", got)
	}

	in := rangecoder.NewInStream(out.Bytes())
	mi2 := NewMultiInstanceIntegerCoder(32, 3)
	for round := 0; round < 3; round++ {
		for inst := 0; inst < 3; inst++ {
			got := mi2.Instance(inst).DecodeInt(in)
			if got != values[inst][round] {
				t.Fatalf("round %d instance %d: got %d, want %d", round, inst, got, values[inst][round])
			}
		}
	}
}
