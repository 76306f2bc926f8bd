// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package rate holds the staircase of playback speeds offered by speed up /
// slow down controls.
package rate

import (
	"fmt"
	"math"
)

// Rate is a position on the playback speed staircase.
type Rate int

// Rates ordered from the fastest reverse speed to the fastest forward speed.
const (
	Minus32 Rate = iota
	Minus16
	Minus8
	Minus4
	Minus2
	Minus1
	MinusHalf
	MinusQuarter
	MinusEighth
	MinusSixteenth
	MinusThirtySecond
	Zero
	ThirtySecond
	Sixteenth
	Eighth
	Quarter
	Half
	One
	Two
	Four
	Eight
	Sixteen
	ThirtyTwo

	// Unknown is returned for speeds that are not on the staircase.
	Unknown Rate = -1
)

var values = [...]float64{
	-32, -16, -8, -4, -2, -1, -1.0 / 2, -1.0 / 4, -1.0 / 8, -1.0 / 16, -1.0 / 32,
	0,
	1.0 / 32, 1.0 / 16, 1.0 / 8, 1.0 / 4, 1.0 / 2, 1, 2, 4, 8, 16, 32,
}

// All returns every staircase rate in ascending order.
func All() []Rate {
	all := make([]Rate, len(values))
	for i := range values {
		all[i] = Rate(i)
	}
	return all
}

func (r Rate) valid() bool {
	return r >= Minus32 && r <= ThirtyTwo
}

// Value returns the speed multiplier, or NaN for Unknown.
func (r Rate) Value() float64 {
	if !r.valid() {
		return math.NaN()
	}
	return values[r]
}

// String renders the rate the way speed labels show it, e.g. "2x" or "-1/4x".
func (r Rate) String() string {
	if !r.valid() {
		return "unknown"
	}
	v := values[r]
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v == 0:
		return "0x"
	case v >= 1:
		return fmt.Sprintf("%s%gx", sign, v)
	default:
		return fmt.Sprintf("%s1/%gx", sign, 1/v)
	}
}

// NextUpper returns the next faster rate. It saturates at ThirtyTwo.
func NextUpper(r Rate) Rate {
	if !r.valid() {
		return Unknown
	}
	if r == ThirtyTwo {
		return r
	}
	return r + 1
}

// NextLower returns the next slower rate. It saturates at Minus32.
func NextLower(r Rate) Rate {
	if !r.valid() {
		return Unknown
	}
	if r == Minus32 {
		return r
	}
	return r - 1
}

// FromValue maps a speed multiplier to its staircase rate, or Unknown when the
// speed is not on the staircase.
func FromValue(v float64) Rate {
	for i, s := range values {
		if s == v {
			return Rate(i)
		}
	}
	return Unknown
}

// Nearest maps any finite speed to the closest staircase rate. Speeds beyond
// the extremes snap to the extremes.
func Nearest(v float64) Rate {
	if math.IsNaN(v) {
		return Unknown
	}
	best := Zero
	bestDist := math.Inf(1)
	for i, s := range values {
		if d := math.Abs(s - v); d < bestDist {
			best, bestDist = Rate(i), d
		}
	}
	return best
}
