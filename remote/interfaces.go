// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package remote

import "github.com/spezifisch/vplay/engine"

// ControlledPlayer is the part of the playback engine a remote control can
// drive. *engine.Engine implements it.
type ControlledPlayer interface {
	State() engine.State

	Play()
	Pause()
	TogglePause()
	Stop()
	Seek(t float64)

	PresentationTime() float64
	Duration() float64

	Rate() float64
	SetRate(r float64)
	Volume() float64
	SetVolume(v float64)

	AddStateListener(l engine.StateListener) engine.Token
	RemoveStateListener(t engine.Token) bool
}

var _ ControlledPlayer = (*engine.Engine)(nil)

// propertySetter is the write side of exported D-Bus properties.
type propertySetter interface {
	SetMust(iface, property string, v interface{})
}
