// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/rivo/tview"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/rate"
	"github.com/spf13/viper"
)

// mediaInfo holds what does not change while the file is loaded.
type mediaInfo struct {
	duration      float64
	fps           float64
	width, height int
}

type PlayerPage struct {
	Root *tview.Flex

	info  *tview.TextView
	media atomic.Pointer[mediaInfo]

	// external refs
	ui *Ui
}

func (ui *Ui) createPlayerPage() *PlayerPage {
	playerPage := PlayerPage{
		ui: ui,
	}

	playerPage.info = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	playerPage.info.SetBorder(true).SetTitle(" " + tview.Escape(ui.mediaPath) + " ")
	if ui.player.State() != engine.StateUnknown {
		playerPage.loadMediaInfo()
	}
	playerPage.info.SetText(playerPage.render())

	playerPage.Root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(playerPage.info, 0, 1, true)

	return &playerPage
}

// loadMediaInfo queries the static properties once the media is ready.
// Audio-only backends have no image size to ask for.
func (p *PlayerPage) loadMediaInfo() {
	e := p.ui.player
	info := &mediaInfo{
		duration: e.Duration(),
		fps:      e.FPS(),
	}
	if p.ui.window != nil {
		info.width, info.height = e.ImageWidth(), e.ImageHeight()
	}
	p.media.Store(info)
}

func (p *PlayerPage) duration() float64 {
	if info := p.media.Load(); info != nil {
		return info.duration
	}
	return -1
}

// render lists what the engine currently reports about the media.
func (p *PlayerPage) render() string {
	e := p.ui.player
	var b strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&b, "[::b]%-14s[::-] %s\n", label, value)
	}

	row("backend", viper.GetString("player.backend"))
	row("state", e.State().String())
	row("position", fmt.Sprintf("%s / %s", formatTime(e.PresentationTime()), formatTime(p.duration())))

	window := formatTime(e.StartTime())
	if stop := e.StopTime(); !math.IsInf(stop, 1) {
		window += " - " + formatTime(stop)
	} else {
		window += " - end"
	}
	row("play window", window)

	r := e.Rate()
	rateText := rate.Nearest(r).String()
	if e.IsSeekPlaybackEnabled() {
		rateText += " (seek playback)"
	}
	row("rate", rateText)

	if info := p.media.Load(); info != nil {
		if info.fps > 0 {
			row("fps", fmt.Sprintf("%.3f", info.fps))
		}
		if info.width > 0 && info.height > 0 {
			row("image", fmt.Sprintf("%dx%d", info.width, info.height))
		}
	}
	if p.ui.window != nil {
		visibility := "shown"
		if p.ui.windowHidden.Load() {
			visibility = "hidden"
		}
		row("window", fmt.Sprintf("%dx%d, %s", p.ui.window.WindowWidth(), p.ui.window.WindowHeight(), visibility))
	}

	volume := fmt.Sprintf("%.0f%%", e.UnmutedVolume()*100)
	if e.Mute() {
		volume += " (muted)"
	}
	row("volume", volume)
	row("balance", fmt.Sprintf("%+.2f", e.Balance()))

	return b.String()
}
