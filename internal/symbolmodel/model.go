// Package symbolmodel implements the adaptive probability models used by
// the LAZ arithmetic coder: a binary bit model, an N-symbol model with an
// optional decode lookup table, a raw (uniform) coder, and the integer
// coder built on top of them.
//
// Go has no const-generic array sizes, so where the reference implementation
// templates on the symbol count, these models carry it as a runtime field
// and size their slices accordingly.
package symbolmodel

import "github.com/laspp/laspp-go/internal/rangecoder"

// Model is an adaptive N-symbol probability model, N in [2, 1024).
type Model struct {
	n                  int
	symbolCount        []uint16
	distribution       []uint16
	lookup             []uint16
	lookupShift        uint32
	updateCycle        uint32
	symbolsUntilUpdate uint32
}

// NewModel returns a freshly seeded model over n equiprobable symbols.
func NewModel(n int) *Model {
	if n < 2 || n >= 1024 {
		panic("symbolmodel: n must be in [2, 1024)")
	}
	m := &Model{
		n:            n,
		symbolCount:  make([]uint16, n),
		distribution: make([]uint16, n),
	}
	for s := range m.symbolCount {
		m.symbolCount[s] = 1
	}
	if n >= 16 {
		bits := lookupTableBits(n)
		m.lookupShift = 15 - bits
		size := (uint32(1) << bits) + 2
		m.lookup = make([]uint16, size)
	}
	m.updateDistribution()
	m.updateCycle = uint32(n+6) / 2
	m.symbolsUntilUpdate = m.updateCycle
	return m
}

func lookupTableBits(n int) uint32 {
	var bits uint32
	for (uint64(1) << bits) < uint64(n) {
		bits++
	}
	return bits - 2
}

func (m *Model) updateDistribution() {
	var symbolSum uint32
	for _, c := range m.symbolCount {
		symbolSum += uint32(c)
	}
	if symbolSum > (1 << 15) {
		symbolSum = 0
		for s := range m.symbolCount {
			m.symbolCount[s] = uint16((m.symbolCount[s] + 1) / 2)
			symbolSum += uint32(m.symbolCount[s])
		}
	}
	scaleFactor := (uint32(1) << 31) / symbolSum
	var cumulativeSum uint32
	lookupIdx := uint32(0)
	if m.lookup != nil {
		m.lookup[lookupIdx] = 0
		lookupIdx++
	}
	for s := 0; s < m.n; s++ {
		m.distribution[s] = uint16((uint64(scaleFactor) * uint64(cumulativeSum)) / (1 << 16))
		cumulativeSum += uint32(m.symbolCount[s])

		if m.lookup != nil {
			shiftedDist := uint32(m.distribution[s]) >> m.lookupShift
			for lookupIdx < shiftedDist+1 {
				m.lookup[lookupIdx] = uint16(s - 1)
				lookupIdx++
			}
		}
	}
	if m.lookup != nil {
		for int(lookupIdx) < len(m.lookup) {
			m.lookup[lookupIdx] = uint16(m.n - 1)
			lookupIdx++
		}
	}
	next := (5 * m.updateCycle) / 4
	cap := uint32(8 * (m.n + 6))
	if next > cap {
		next = cap
	}
	m.updateCycle = next
	m.symbolsUntilUpdate = m.updateCycle
}

func (m *Model) upperBound(symbol int, length uint32, lTmp uint32) uint32 {
	if symbol < m.n-1 {
		return uint32(m.distribution[symbol+1]) * lTmp
	}
	return length
}

// DecodeSymbol decodes one symbol from in and adapts the model.
func (m *Model) DecodeSymbol(in *rangecoder.InStream) uint16 {
	value := in.GetValue()
	lTmp := in.Length() >> 15
	symbol := 0

	if m.lookup == nil {
		for symbol+1 < m.n && uint32(m.distribution[symbol+1])*lTmp <= value {
			symbol++
		}
	} else {
		lookupIdx := (value / lTmp) >> m.lookupShift
		symbol = int(m.lookup[lookupIdx])
		for symbol+1 < m.n && symbol+1 <= int(m.lookup[lookupIdx+1]) &&
			uint32(m.distribution[symbol+1])*lTmp <= value {
			symbol++
		}
	}

	in.UpdateRange(uint32(m.distribution[symbol])*lTmp, m.upperBound(symbol, in.Length(), lTmp))

	m.symbolCount[symbol]++
	m.symbolsUntilUpdate--
	if m.symbolsUntilUpdate == 0 {
		m.updateDistribution()
	}
	return uint16(symbol)
}

// EncodeSymbol emits symbol to out and adapts the model.
func (m *Model) EncodeSymbol(out *rangecoder.OutStream, symbol uint16) {
	if int(symbol) >= m.n {
		panic("symbolmodel: symbol out of range")
	}
	lTmp := out.Length() >> 15
	out.UpdateRange(uint32(m.distribution[symbol])*lTmp, m.upperBound(int(symbol), out.Length(), lTmp))

	m.symbolCount[symbol]++
	m.symbolsUntilUpdate--
	if m.symbolsUntilUpdate == 0 {
		m.updateDistribution()
	}
}
