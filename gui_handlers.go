// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"github.com/gdamore/tcell/v2"
	"github.com/spezifisch/vplay/mpvplayer"
	"github.com/spezifisch/vplay/rate"
)

const (
	seekStep   = 5.0
	volumeStep = 0.05
)

func (ui *Ui) handlePageInput(event *tcell.EventKey) *tcell.EventKey {
	// keep the keys away from the player while a modal is open
	if ui.helpWidget.visible {
		return event
	}

	switch event.Key() {
	case tcell.KeyLeft:
		ui.handleKey(mpvplayer.KeyLeft)
		return nil
	case tcell.KeyRight:
		ui.handleKey(mpvplayer.KeyRight)
		return nil
	}

	r := event.Rune()
	if page, ok := pageForKey(r); ok {
		ui.ShowPage(page)
		return nil
	}
	if r == '?' {
		ui.ShowHelp()
		return nil
	}
	if r == 'c' && ui.menuWidget.GetActivePage() == PageLog {
		ui.logPage.Clear()
		return nil
	}
	if !ui.handleKey(int(r)) {
		return event
	}
	return nil
}

// handleKey runs the playback command bound to a console key or a key code
// forwarded from the video window. It reports whether the key is bound.
func (ui *Ui) handleKey(code int) bool {
	switch code {
	case 'p', ' ':
		// toggle playing/pause
		ui.player.TogglePause()

	case 'P':
		ui.logger.Print("key stop")
		ui.player.Stop()

	case ',':
		ui.player.StepBackward()

	case '.':
		ui.player.StepForward()

	case '[':
		ui.changeRate(rate.NextLower)

	case ']':
		ui.changeRate(rate.NextUpper)

	case '-':
		ui.adjustVolume(-volumeStep)

	case '+', '=':
		ui.adjustVolume(volumeStep)

	case 'm':
		ui.player.SetMute(!ui.player.Mute())

	case 'w':
		ui.toggleWindow()

	case 'f':
		ui.player.Finish()

	case mpvplayer.KeyLeft:
		ui.seekBy(-seekStep)

	case mpvplayer.KeyRight:
		ui.seekBy(seekStep)

	case 'Q':
		ui.Quit()

	default:
		return false
	}

	ui.refresh()
	return true
}

// changeRate moves one step along the rate staircase from the current rate.
func (ui *Ui) changeRate(step func(rate.Rate) rate.Rate) {
	if ui.player.IsDisposed() {
		return
	}
	next := step(rate.Nearest(ui.player.Rate()))
	if next == rate.Unknown {
		return
	}
	if !ui.player.IsRateSupported(next.Value()) && !ui.player.IsSeekPlaybackEnabled() {
		ui.logger.Printf("rate %s is not supported by this backend", next)
		return
	}
	ui.logger.Printf("rate %s", next)
	ui.player.SetRate(next.Value())
}

func (ui *Ui) adjustVolume(delta float64) {
	if ui.player.Mute() {
		ui.player.SetVolume(ui.player.UnmutedVolume() + delta)
		return
	}
	if v := ui.player.Volume(); v >= 0 {
		ui.player.SetVolume(v + delta)
	}
}

func (ui *Ui) seekBy(delta float64) {
	if pos := ui.player.PresentationTime(); pos >= 0 {
		ui.player.Seek(max(pos+delta, 0))
	}
}

// toggleWindow hides the video window (which mutes) or shows it again.
func (ui *Ui) toggleWindow() {
	if ui.window == nil {
		ui.logger.Print("this backend has no window")
		return
	}
	hidden := !ui.windowHidden.Load()
	ui.windowHidden.Store(hidden)
	if hidden {
		ui.window.HideWindow()
	} else {
		ui.window.ShowWindow()
	}
}

func (ui *Ui) ShowPage(name string) {
	ui.pages.SwitchToPage(name)
	ui.menuWidget.SetActivePage(name)
	_, prim := ui.pages.GetFrontPage()
	ui.app.SetFocus(prim)
}

// Quit saves the settings, releases the player and stops the ui. Safe to
// call from a listener.
func (ui *Ui) Quit() {
	ui.quitOnce.Do(func() {
		if ui.store != nil {
			if err := saveState(ui.store, ui.statePath); err != nil {
				ui.logger.PrintError("saveState", err)
			}
		}
		if ui.clock != nil {
			ui.clock.Stop()
		}
		if ui.mprisPlayer != nil {
			ui.mprisPlayer.Close()
		}
		close(ui.eventLoop.quit)
		ui.player.Dispose()
		ui.app.Stop()
	})
}
