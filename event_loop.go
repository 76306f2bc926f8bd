// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"path/filepath"
	"time"

	"github.com/spezifisch/vplay/engine"
	"github.com/spf13/viper"
)

type eventLoop struct {
	// the status bar and player page are redrawn at this interval
	refreshInterval time.Duration
	quit            chan struct{}
}

func (ui *Ui) initEventLoops() {
	interval := viper.GetDuration("ui.refresh_interval")
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ui.eventLoop = &eventLoop{
		refreshInterval: interval,
		quit:            make(chan struct{}),
	}
}

func (ui *Ui) runEventLoops() {
	go ui.guiEventLoop()
}

// handle ui updates
func (ui *Ui) guiEventLoop() {
	refresh := time.NewTicker(ui.eventLoop.refreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ui.eventLoop.quit:
			return

		case <-refresh.C:
			ui.refresh()

		case msg := <-ui.logger.Prints:
			// handle log page output
			ui.logPage.Print(msg)

		case ev := <-ui.engineEvents:
			ui.handleEngineEvent(ev)
		}
	}
}

func (ui *Ui) handleEngineEvent(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.StateEvent:
		ui.logger.Printf("engine: %s at %s", ev.State, formatTime(ev.Time))
		if ev.State == engine.StateReady {
			ui.playerPage.loadMediaInfo()
		}
		statusText := formatStateForStatusBar(ev.State, filepath.Base(ui.mediaPath))
		ui.app.QueueUpdateDraw(func() {
			ui.stateText.SetText(statusText)
			if ev.State == engine.StateHalted {
				ui.showHalt(ev.Message)
			}
		})
		ui.refresh()

	case engine.ErrorEvent:
		ui.logger.Printf("Error(%s) -> code %d: %s", ev.Source, ev.Code, ev.Description)

	case engine.KeyEvent:
		// keys pressed inside the video window
		if !ui.handleKey(ev.KeyCode) {
			ui.logger.Debugf("unbound window key %d", ev.KeyCode)
		}

	default:
		ui.logger.Printf("guiEventLoop: unhandled engine event %T", ev)
	}
}

// refresh redraws what changes without a state event: position, rate, volume.
func (ui *Ui) refresh() {
	if ui.player.IsDisposed() {
		return
	}
	status := ui.statusText()
	info := ui.playerPage.render()
	ui.app.QueueUpdateDraw(func() {
		ui.clockText.SetText(status)
		ui.playerPage.info.SetText(info)
	})
}
