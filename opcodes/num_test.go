package opcodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumArithmetic(t *testing.T) {
	two := NumFromInt(2)
	three := NumFromInt(3)
	ten := NumFromInt(10)

	assert.Equal(t, NumFromInt(5), two.Add(three))
	assert.Equal(t, NumFromInt(-1), two.Sub(three))
	assert.Equal(t, NumFromInt(6), two.Mul(three))
	assert.Equal(t, NumFromInt(5), ten.Div(two))
	assert.Equal(t, NumFromInt(1), ten.Mod(three))

	half := NumFromFloat(0.5)
	assert.Equal(t, NumFromInt(1), two.Mul(half))
	assert.Equal(t, NumFromFloat(2.5), NumFromInt(5).Mul(half))
	assert.Equal(t, NumFromFloat(0.25), half.Div(two))
}

func TestNumFract(t *testing.T) {
	assert.Equal(t, NumFromFloat(0.5), NumFromFloat(2.5).Fract())
	assert.Equal(t, Num(0), NumFromInt(4).Fract())
	assert.Equal(t, NumFromFloat(-0.5), NumFromFloat(-2.5).Fract())
}

func TestNumIntTruncatesTowardZero(t *testing.T) {
	assert.Equal(t, int32(2), NumFromFloat(2.75).Int())
	assert.Equal(t, int32(-2), NumFromFloat(-2.75).Int())
	assert.Equal(t, int32(0), Num(0).Int())
}

func TestParseNum(t *testing.T) {
	cases := []struct {
		in   string
		want Num
	}{
		{"0", 0},
		{"4", NumFromInt(4)},
		{"-1.5", NumFromFloat(-1.5)},
		{"+0.25", NumFromFloat(0.25)},
		{"100", NumFromInt(100)},
	}
	for _, tc := range cases {
		got, err := ParseNum(tc.in)
		require.NoError(t, err, "parsing %q", tc.in)
		assert.Equal(t, tc.want, got, "parsing %q", tc.in)
	}

	_, err := ParseNum("abc")
	assert.Error(t, err)
}

func TestNumString(t *testing.T) {
	assert.Equal(t, "5", NumFromInt(5).String())
	assert.Equal(t, "-3", NumFromInt(-3).String())
	assert.Equal(t, "2.5", NumFromFloat(2.5).String())
	assert.Equal(t, "0", Num(0).String())
}

func TestNumBool(t *testing.T) {
	assert.Equal(t, NumFromInt(1), NumBool(true))
	assert.Equal(t, Num(0), NumBool(false))
	assert.True(t, Num(0).IsZero())
	assert.False(t, NumFromFloat(0.5).IsZero())
}

func TestNumBitsRoundTrip(t *testing.T) {
	for _, n := range []Num{0, NumFromInt(1), NumFromInt(-1), NumFromFloat(3.25), Num(1)} {
		assert.Equal(t, n, NumFromBits(n.Bits()))
	}
}
