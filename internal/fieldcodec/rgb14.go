package fieldcodec

import (
	"github.com/laspp/laspp-go/internal/rangecoder"
	"github.com/laspp/laspp-go/internal/symbolmodel"
)

// rgb14Channel is one scanner channel's color predictor state, lazily
// created the first time that channel is seen.
type rgb14Channel struct {
	have bool
	last RGB12

	changedValues *symbolmodel.Model
	rLow, rHigh   *symbolmodel.Model
	gLow, gHigh   *symbolmodel.Model
	bLow, bHigh   *symbolmodel.Model
}

func newRGB14Channel() *rgb14Channel {
	return &rgb14Channel{
		changedValues: symbolmodel.NewModel(128),
		rLow:          symbolmodel.NewModel(256),
		rHigh:         symbolmodel.NewModel(256),
		gLow:          symbolmodel.NewModel(256),
		gHigh:         symbolmodel.NewModel(256),
		bLow:          symbolmodel.NewModel(256),
		bHigh:         symbolmodel.NewModel(256),
	}
}

// RGB14Encoder is RGB12Encoder widened with one lazily-initialized context
// per scanner channel, tracking Point14Encoder's active channel via
// ResolveContext.
type RGB14Encoder struct {
	channels [point14Channels]*rgb14Channel
	active   int
}

// NewRGB14Encoder returns a freshly seeded RGB14 codec.
func NewRGB14Encoder() *RGB14Encoder {
	return &RGB14Encoder{}
}

// Reset seeds channel 0 with the first color of a chunk.
func (e *RGB14Encoder) Reset(first RGB12) {
	e.channels = [point14Channels]*rgb14Channel{}
	ch := newRGB14Channel()
	ch.have = true
	ch.last = first
	e.channels[0] = ch
	e.active = 0
}

// ResolveContext selects the active scanner channel, lazily seeding it from
// seed if this is the first point coded on that channel.
func (e *RGB14Encoder) ResolveContext(channel int, seed RGB12) {
	e.active = channel
	if e.channels[channel] == nil {
		ch := newRGB14Channel()
		ch.have = true
		ch.last = seed
		e.channels[channel] = ch
	}
}

func (e *RGB14Encoder) ensure() *rgb14Channel {
	ch := e.channels[e.active]
	if ch == nil {
		panic("fieldcodec: RGB14Encoder used on an unresolved channel")
	}
	return ch
}

// DecodePoint reads one color triple from in on the active channel.
func (e *RGB14Encoder) DecodePoint(in *rangecoder.InStream) RGB12 {
	ch := e.ensure()
	lastRLow, lastRHigh := loHi(ch.last.R)
	lastGLow, lastGHigh := loHi(ch.last.G)
	lastBLow, lastBHigh := loHi(ch.last.B)

	sym := ch.changedValues.DecodeSymbol(in)

	var c RGB12
	rLow, rHigh := lastRLow, lastRHigh
	if sym&1 != 0 {
		rLow = uint8(ch.rLow.DecodeSymbol(in)) + lastRLow
	}
	if sym&2 != 0 {
		rHigh = uint8(ch.rHigh.DecodeSymbol(in)) + lastRHigh
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
			gLow = uint8(ch.gLow.DecodeSymbol(in)) + clampByte(int(lastGLow), redDeltaLow)
		}
		if sym&8 != 0 {
			gHigh = uint8(ch.gHigh.DecodeSymbol(in)) + clampByte(int(lastGHigh), redDeltaHigh)
		}
		c.G = uint16(gLow) | uint16(gHigh)<<8

		bLow, bHigh := lastBLow, lastBHigh
		if sym&16 != 0 {
			bLow = uint8(ch.bLow.DecodeSymbol(in)) + clampByte(int(lastBLow), redDeltaLow)
		}
		if sym&32 != 0 {
			bHigh = uint8(ch.bHigh.DecodeSymbol(in)) + clampByte(int(lastBHigh), redDeltaHigh)
		}
		c.B = uint16(bLow) | uint16(bHigh)<<8
	}

	ch.last = c
	return c
}

// EncodePoint writes c to out on the active channel.
func (e *RGB14Encoder) EncodePoint(out *rangecoder.OutStream, c RGB12) {
	ch := e.ensure()
	lastRLow, lastRHigh := loHi(ch.last.R)
	lastGLow, lastGHigh := loHi(ch.last.G)
	lastBLow, lastBHigh := loHi(ch.last.B)
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

	ch.changedValues.EncodeSymbol(out, sym)

	if sym&1 != 0 {
		ch.rLow.EncodeSymbol(out, uint16(uint8(int(rLow)-int(lastRLow))))
	}
	if sym&2 != 0 {
		ch.rHigh.EncodeSymbol(out, uint16(uint8(int(rHigh)-int(lastRHigh))))
	}

	if !monochrome {
		redDeltaLow := int(rLow) - int(lastRLow)
		redDeltaHigh := int(rHigh) - int(lastRHigh)

		if sym&4 != 0 {
			pred := clampByte(int(lastGLow), redDeltaLow)
			ch.gLow.EncodeSymbol(out, uint16(uint8(int(gLow)-int(pred))))
		}
		if sym&8 != 0 {
			pred := clampByte(int(lastGHigh), redDeltaHigh)
			ch.gHigh.EncodeSymbol(out, uint16(uint8(int(gHigh)-int(pred))))
		}
		if sym&16 != 0 {
			pred := clampByte(int(lastBLow), redDeltaLow)
			ch.bLow.EncodeSymbol(out, uint16(uint8(int(bLow)-int(pred))))
		}
		if sym&32 != 0 {
			pred := clampByte(int(lastBHigh), redDeltaHigh)
			ch.bHigh.EncodeSymbol(out, uint16(uint8(int(bHigh)-int(pred))))
		}
	}

	ch.last = c
}
