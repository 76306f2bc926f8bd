package rate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaircaseIsOrderedAndSymmetric(t *testing.T) {
	all := All()
	assert.Len(t, all, 23)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Value(), all[i].Value(), "rate %v must be below %v", all[i-1], all[i])
	}
	for i := range all {
		mirror := all[len(all)-1-i]
		assert.Equal(t, -all[i].Value(), mirror.Value())
	}
}

func TestNextUpper(t *testing.T) {
	tests := []struct {
		in   Rate
		want Rate
	}{
		{Minus32, Minus16},
		{MinusThirtySecond, Zero},
		{Zero, ThirtySecond},
		{Half, One},
		{One, Two},
		{Sixteen, ThirtyTwo},
		{ThirtyTwo, ThirtyTwo},
		{Unknown, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, NextUpper(tt.in))
		})
	}
}

func TestNextLower(t *testing.T) {
	tests := []struct {
		in   Rate
		want Rate
	}{
		{ThirtyTwo, Sixteen},
		{One, Half},
		{ThirtySecond, Zero},
		{Zero, MinusThirtySecond},
		{Minus16, Minus32},
		{Minus32, Minus32},
		{Unknown, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, NextLower(tt.in))
		})
	}
}

func TestUpperThenLowerIsIdentityAwayFromExtremes(t *testing.T) {
	for _, r := range All() {
		if r == ThirtyTwo {
			continue
		}
		assert.Equal(t, r, NextLower(NextUpper(r)), "rate %v", r)
	}
}

func TestFromValue(t *testing.T) {
	for _, r := range All() {
		assert.Equal(t, r, FromValue(r.Value()))
	}
	assert.Equal(t, Unknown, FromValue(3))
	assert.Equal(t, Unknown, FromValue(64))
	assert.Equal(t, Unknown, FromValue(math.NaN()))
}

func TestNearest(t *testing.T) {
	assert.Equal(t, One, Nearest(1.1))
	assert.Equal(t, Two, Nearest(2.9))
	assert.Equal(t, Four, Nearest(3.1))
	assert.Equal(t, ThirtyTwo, Nearest(1000))
	assert.Equal(t, Minus32, Nearest(-1000))
	assert.Equal(t, Zero, Nearest(0.001))
	assert.Equal(t, Unknown, Nearest(math.NaN()))
}

func TestString(t *testing.T) {
	tests := map[Rate]string{
		One:          "1x",
		ThirtyTwo:    "32x",
		Quarter:      "1/4x",
		MinusHalf:    "-1/2x",
		Minus8:       "-8x",
		ThirtySecond: "1/32x",
		Zero:         "0x",
		Unknown:      "unknown",
	}
	for r, want := range tests {
		assert.Equal(t, want, r.String())
	}
}

func TestUnknownValueIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(Unknown.Value()))
	assert.True(t, math.IsNaN(Rate(99).Value()))
}
