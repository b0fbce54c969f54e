package fieldcodec

import (
	"github.com/laspp/laspp-go/internal/rangecoder"
	"github.com/laspp/laspp-go/internal/symbolmodel"
)

// RGB12 is a 6-byte RGB color record (point data formats 2/3/5/7/8/10).
type RGB12 struct {
	R, G, B uint16
}

func clampByte(value int, delta int) uint8 {
	v := value + delta
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func loHi(v uint16) (uint8, uint8) { return uint8(v), uint8(v >> 8) }

// RGB12Encoder codes color deltas against the previous point, predicting
// green and blue from red's own delta (channels in typical imagery move
// together) and short-circuiting the common case where the whole triple is
// a greyscale value.
type RGB12Encoder struct {
	have bool
	last RGB12

	changedValues *symbolmodel.Model // n=128

	rLow, rHigh *symbolmodel.Model // n=256
	gLow, gHigh *symbolmodel.Model // n=256
	bLow, bHigh *symbolmodel.Model // n=256
}

// NewRGB12Encoder returns a freshly seeded RGB12 codec.
func NewRGB12Encoder() *RGB12Encoder {
	return &RGB12Encoder{
		changedValues: symbolmodel.NewModel(128),
		rLow:          symbolmodel.NewModel(256),
		rHigh:         symbolmodel.NewModel(256),
		gLow:          symbolmodel.NewModel(256),
		gHigh:         symbolmodel.NewModel(256),
		bLow:          symbolmodel.NewModel(256),
		bHigh:         symbolmodel.NewModel(256),
	}
}

// Reset seeds the predictor with the first color of a chunk.
func (e *RGB12Encoder) Reset(first RGB12) {
	e.last = first
	e.have = true
}

// DecodePoint reads one color triple from in.
func (e *RGB12Encoder) DecodePoint(in *rangecoder.InStream) RGB12 {
	if !e.have {
		panic("fieldcodec: RGB12Encoder.DecodePoint called before Reset")
	}
	lastRLow, lastRHigh := loHi(e.last.R)
	lastGLow, lastGHigh := loHi(e.last.G)
	lastBLow, lastBHigh := loHi(e.last.B)

	sym := e.changedValues.DecodeSymbol(in)

	var c RGB12
	rLow, rHigh := lastRLow, lastRHigh
	if sym&1 != 0 {
		rLow = uint8(e.rLow.DecodeSymbol(in)) + lastRLow
	}
	if sym&2 != 0 {
		rHigh = uint8(e.rHigh.DecodeSymbol(in)) + lastRHigh
	}
	c.R = uint16(rLow) | uint16(rHigh)<<8

	if sym&(1<<6) != 0 {
		c.G = c.R
		c.B = c.R
	} else {
		redDeltaLow := int(rLow) - int(lastRLow)
		redDeltaHigh := int(rHigh) - int(lastRHigh)

		gLow, gHigh := lastGLow, lastGHigh
		if sym&4 != 0 {
			gLow = uint8(e.gLow.DecodeSymbol(in)) + clampByte(int(lastGLow), redDeltaLow)
		}
		if sym&8 != 0 {
			gHigh = uint8(e.gHigh.DecodeSymbol(in)) + clampByte(int(lastGHigh), redDeltaHigh)
		}
		c.G = uint16(gLow) | uint16(gHigh)<<8

		bLow, bHigh := lastBLow, lastBHigh
		if sym&16 != 0 {
			bLow = uint8(e.bLow.DecodeSymbol(in)) + clampByte(int(lastBLow), redDeltaLow)
		}
		if sym&32 != 0 {
			bHigh = uint8(e.bHigh.DecodeSymbol(in)) + clampByte(int(lastBHigh), redDeltaHigh)
		}
		c.B = uint16(bLow) | uint16(bHigh)<<8
	}

	e.last = c
	return c
}

// EncodePoint writes c to out.
func (e *RGB12Encoder) EncodePoint(out *rangecoder.OutStream, c RGB12) {
	if !e.have {
		panic("fieldcodec: RGB12Encoder.EncodePoint called before Reset")
	}
	lastRLow, lastRHigh := loHi(e.last.R)
	lastGLow, lastGHigh := loHi(e.last.G)
	lastBLow, lastBHigh := loHi(e.last.B)
	rLow, rHigh := loHi(c.R)
	gLow, gHigh := loHi(c.G)
	bLow, bHigh := loHi(c.B)

	monochrome := c.G == c.R && c.B == c.R

	var sym uint16
	if rLow != lastRLow {
		sym |= 1
	}
	if rHigh != lastRHigh {
		sym |= 2
	}
	if monochrome {
		sym |= 1 << 6
	} else {
		if gLow != lastGLow {
			sym |= 4
		}
		if gHigh != lastGHigh {
			sym |= 8
		}
		if bLow != lastBLow {
			sym |= 16
		}
		if bHigh != lastBHigh {
			sym |= 32
		}
	}

	e.changedValues.EncodeSymbol(out, sym)

	if sym&1 != 0 {
		e.rLow.EncodeSymbol(out, uint16(uint8(int(rLow)-int(lastRLow))))
	}
	if sym&2 != 0 {
		e.rHigh.EncodeSymbol(out, uint16(uint8(int(rHigh)-int(lastRHigh))))
	}

	if !monochrome {
		redDeltaLow := int(rLow) - int(lastRLow)
		redDeltaHigh := int(rHigh) - int(lastRHigh)

		if sym&4 != 0 {
			pred := clampByte(int(lastGLow), redDeltaLow)
			e.gLow.EncodeSymbol(out, uint16(uint8(int(gLow)-int(pred))))
		}
		if sym&8 != 0 {
			pred := clampByte(int(lastGHigh), redDeltaHigh)
			e.gHigh.EncodeSymbol(out, uint16(uint8(int(gHigh)-int(pred))))
		}
		if sym&16 != 0 {
			pred := clampByte(int(lastBLow), redDeltaLow)
			e.bLow.EncodeSymbol(out, uint16(uint8(int(bLow)-int(pred))))
		}
		if sym&32 != 0 {
			pred := clampByte(int(lastBHigh), redDeltaHigh)
			e.bHigh.EncodeSymbol(out, uint16(uint8(int(bHigh)-int(pred))))
		}
	}

	e.last = c
}
