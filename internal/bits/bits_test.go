package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNarrowingMasks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Int().Draw(t, "x")
		assert.Equal(t, x&1, U1(x))
		assert.Equal(t, x&0xF, U4(x))
		assert.Equal(t, x&0x7F, U7(x))
		assert.Equal(t, x&0xFF, U8(x))
		assert.Equal(t, x&0x7FF, U11(x))
		assert.Equal(t, x&0x3FFF, U14(x))
		assert.Equal(t, x&0x7FFF, U15(x))
		assert.Equal(t, x&0xFFFF, U16(x))
	})
}

func TestSignExtend4MatchesS8OfShiftedNibble(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 0xF).Draw(t, "n")
		got := SignExtend4(n)
		assert.True(t, got >= -8 && got <= 7)
		assert.Equal(t, n, got&0xF)
		assert.Equal(t, S8(n<<4)>>4, got)
	})
}

func TestSClamp16StaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.IntRange(-1<<20, 1<<20).Draw(t, "x")
		got := SClamp16(x)
		assert.True(t, got >= -0x8000 && got <= 0x7FFF)
		if x >= -0x8000 && x <= 0x7FFF {
			assert.Equal(t, x, got)
		}
	})
}

func TestSClamp17StaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.IntRange(-1<<20, 1<<20).Draw(t, "x")
		got := SClamp17(x)
		assert.True(t, got >= -(1<<16) && got <= (1<<16)-1)
		if x >= -(1<<16) && x <= (1<<16)-1 {
			assert.Equal(t, x, got)
		}
	})
}

func TestBitAndSetBitRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.IntRange(0, 0xFFFF).Draw(t, "x")
		i := rapid.IntRange(0, 15).Draw(t, "i")
		set := SetBit(x, uint(i), true)
		clear := SetBit(x, uint(i), false)
		assert.True(t, Bit(set, uint(i)))
		assert.False(t, Bit(clear, uint(i)))
	})
}

func TestBitRangeExtractsExpectedBits(t *testing.T) {
	assert.Equal(t, 0xF, BitRange(0xFF, 0, 3))
	assert.Equal(t, 0xF, BitRange(0xFF, 4, 7))
	assert.Equal(t, 0x1, BitRange(0x8000, 15, 15))
}

func TestLoHiWordRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(0, 0xFFFF).Draw(t, "w")
		lo, hi := Lo(w), Hi(w)
		assert.Equal(t, w, Word(lo, hi))
	})
}

func TestS8SignExtendsLowByte(t *testing.T) {
	assert.Equal(t, -1, S8(0xFF))
	assert.Equal(t, 127, S8(0x7F))
	assert.Equal(t, -128, S8(0x80))
}

func TestS16SignExtends(t *testing.T) {
	assert.Equal(t, -1, S16(0xFFFF))
	assert.Equal(t, 32767, S16(0x7FFF))
	assert.Equal(t, -32768, S16(0x8000))
}
