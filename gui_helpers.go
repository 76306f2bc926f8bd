// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"

	"github.com/rivo/tview"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/rate"
)

func makeModal(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewGrid().
		SetColumns(0, width, 0).
		SetRows(0, height, 0).
		AddItem(p, 1, 1, 1, 1, 0, 0, true)
}

// formatPlayerStatus renders "[rate][volume][position/duration]". Negative
// values are what a disposed engine returns and render as unknown.
func formatPlayerStatus(speed float64, volume float64, muted bool, position float64, duration float64) string {
	rateText := fmt.Sprintf("%.3gx", speed)
	if r := rate.FromValue(speed); r != rate.Unknown {
		rateText = r.String()
	}

	volumeText := "mute"
	if !muted {
		volumeText = fmt.Sprintf("%3d%%", int(max(volume, 0)*100+0.5))
	}

	return fmt.Sprintf("[%s][%s][::b][%s/%s]", rateText, volumeText, formatTime(position), formatTime(duration))
}

var stateColors = map[engine.State]string{
	engine.StateReady:    "white",
	engine.StatePlaying:  "green",
	engine.StatePaused:   "yellow",
	engine.StateStopped:  "red",
	engine.StateStalled:  "orange",
	engine.StateFinished: "blue",
	engine.StateHalted:   "red",
}

func formatStateForStatusBar(state engine.State, title string) (text string) {
	color, ok := stateColors[state]
	if !ok {
		color = "gray"
	}
	text = fmt.Sprintf("[%s::b]%s[::-]", color, state)
	if title != "" {
		text += " [white]" + tview.Escape(title)
	}
	return
}
