// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"math"
)

func secondsToMinAndSec(seconds float64) (int, int) {
	whole := int64(math.Floor(seconds))
	return int(whole / 60), int(whole % 60)
}

// formatTime renders mm:ss, or h:mm:ss from one hour on. Unknown times
// (negative, NaN, infinite) render as --:--.
func formatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "--:--"
	}
	minutes, secs := secondsToMinAndSec(seconds)
	if minutes >= 60 {
		return fmt.Sprintf("%d:%02d:%02d", minutes/60, minutes%60, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
