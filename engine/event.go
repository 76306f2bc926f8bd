// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

// Event is a notification travelling from the native player to listeners.
// It is one of StateEvent, ErrorEvent or KeyEvent.
type Event interface {
	event()
}

// StateEvent reports a state transition at presentation time Time (seconds, >= 0).
type StateEvent struct {
	State   State
	Time    float64
	Message string
}

// ErrorEvent reports a failed native operation.
type ErrorEvent struct {
	Source      string
	Code        int
	Description string
}

// KeyEvent reports a key press inside a native player window.
type KeyEvent struct {
	Source  string
	Handle  uintptr
	KeyCode int
}

// wakeEvent unblocks the dispatch loop on shutdown; it is never dispatched.
type wakeEvent struct{}

func (StateEvent) event() {}
func (ErrorEvent) event() {}
func (KeyEvent) event()   {}
func (wakeEvent) event()  {}
