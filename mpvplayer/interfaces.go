// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpvplayer

import (
	"github.com/supersonic-app/go-mpv"
)

// client is the subset of the libmpv handle the player uses. *mpv.Mpv
// implements it; tests substitute a scripted fake.
type client interface {
	SetOptionString(name, value string) error
	Initialize() error
	Command(cmd []string) error
	SetProperty(name string, format mpv.Format, data interface{}) error
	GetProperty(name string, format mpv.Format) (interface{}, error)
	ObserveProperty(replyUserdata uint64, name string, format mpv.Format) error
	WaitEvent(timeout float32) *mpv.Event
	TerminateDestroy()
}

var _ client = (*mpv.Mpv)(nil)

// Config selects how the mpv instance is set up.
type Config struct {
	// SeekPlayback disables mpv's own speed control; non-1x rates are then
	// emulated by the clock driver.
	SeekPlayback bool

	// Keys maps mpv key names (e.g. "SPACE", "LEFT", "q") to the key codes
	// reported to key listeners.
	Keys map[string]int

	Width  int
	Height int

	// Options are passed to mpv verbatim before initialization.
	Options map[string]string
}

// DefaultKeys forwards the keys the console reacts to.
func DefaultKeys() map[string]int {
	return map[string]int{
		"SPACE": ' ',
		"p":     'p',
		"P":     'P',
		",":     ',',
		".":     '.',
		"[":     '[',
		"]":     ']',
		"-":     '-',
		"=":     '=',
		"m":     'm',
		"f":     'f',
		"LEFT":  KeyLeft,
		"RIGHT": KeyRight,
		"Q":     'Q',
	}
}

// Key codes for non-printable keys, outside the rune range used by the
// printable ones.
const (
	KeyLeft = 0x110000 + iota
	KeyRight
)
