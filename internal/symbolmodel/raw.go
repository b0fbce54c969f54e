package symbolmodel

import "github.com/laspp/laspp-go/internal/rangecoder"

// RawDecode decodes nBits of uniformly-distributed data, splitting wide
// reads into 16-bit halves since the coder's internal length register
// cannot directly split ranges wider than about 2^19 without overflow.
func RawDecode(in *rangecoder.InStream, nBits uint8) uint32 {
	if nBits > 19 {
		lo := RawDecode(in, 16)
		hi := RawDecode(in, nBits-16)
		return lo | (hi << 16)
	}
	value := in.GetValue()
	length := in.Length() >> nBits
	sym := value / length
	if sym >= (uint32(1) << nBits) {
		sym = (uint32(1) << nBits) - 1
	}
	in.UpdateRange(sym*length, (sym+1)*length)
	return sym
}

// RawEncode emits the low nBits of value as uniformly-distributed data.
func RawEncode(out *rangecoder.OutStream, value uint32, nBits uint8) {
	if nBits > 19 {
		RawEncode(out, value&0xffff, 16)
		RawEncode(out, value>>16, nBits-16)
		return
	}
	length := out.Length() >> nBits
	out.UpdateRange(value*length, (value+1)*length)
}
