// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package main

import "github.com/spezifisch/vplay/engine"

var (
	_ engine.StateListener = (*Ui)(nil)
	_ engine.ErrorListener = (*Ui)(nil)
	_ engine.KeyListener   = (*Ui)(nil)
)

// SendEvent hands an engine event to the gui event loop. The status bar is
// refreshed periodically anyway, so a full queue drops the event.
func (ui *Ui) SendEvent(event engine.Event) {
	select {
	case ui.engineEvents <- event:
	default:
		ui.logger.Debugf("ui: event queue full, dropping %T", event)
	}
}

func (ui *Ui) sendState(state engine.State, t float64, message string) {
	ui.SendEvent(engine.StateEvent{State: state, Time: t, Message: message})
}

func (ui *Ui) OnReady(t float64)     { ui.sendState(engine.StateReady, t, "") }
func (ui *Ui) OnPlaying(t float64)   { ui.sendState(engine.StatePlaying, t, "") }
func (ui *Ui) OnPause(t float64)     { ui.sendState(engine.StatePaused, t, "") }
func (ui *Ui) OnStop(t float64)      { ui.sendState(engine.StateStopped, t, "") }
func (ui *Ui) OnStall(t float64)     { ui.sendState(engine.StateStalled, t, "") }
func (ui *Ui) OnFinish(t float64)    { ui.sendState(engine.StateFinished, t, "") }
func (ui *Ui) OnHalt(message string) { ui.sendState(engine.StateHalted, 0, message) }

func (ui *Ui) OnError(source string, code int, message string) {
	ui.SendEvent(engine.ErrorEvent{Source: source, Code: code, Description: message})
}

func (ui *Ui) OnKey(source string, handle uintptr, keyCode int) {
	ui.SendEvent(engine.KeyEvent{Source: source, Handle: handle, KeyCode: keyCode})
}
