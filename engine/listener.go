// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

import (
	"sync"

	"github.com/samber/lo"
)

// ErrorListener receives failed native operations.
type ErrorListener interface {
	OnError(source string, code int, message string)
}

// StateListener has one callback per state. t is the presentation time in
// seconds at which the state was entered.
type StateListener interface {
	OnReady(t float64)
	OnPlaying(t float64)
	OnPause(t float64)
	OnStop(t float64)
	OnStall(t float64)
	OnFinish(t float64)
	OnHalt(message string)
}

// KeyListener receives key presses from window-backed engines.
type KeyListener interface {
	OnKey(source string, handle uintptr, keyCode int)
}

// StateFuncs adapts optional funcs to StateListener.
type StateFuncs struct {
	Ready    func(t float64)
	Playing  func(t float64)
	Paused   func(t float64)
	Stopped  func(t float64)
	Stalled  func(t float64)
	Finished func(t float64)
	Halted   func(message string)
}

var _ StateListener = StateFuncs{}

func (f StateFuncs) OnReady(t float64)   { call(f.Ready, t) }
func (f StateFuncs) OnPlaying(t float64) { call(f.Playing, t) }
func (f StateFuncs) OnPause(t float64)   { call(f.Paused, t) }
func (f StateFuncs) OnStop(t float64)    { call(f.Stopped, t) }
func (f StateFuncs) OnStall(t float64)   { call(f.Stalled, t) }
func (f StateFuncs) OnFinish(t float64)  { call(f.Finished, t) }

func (f StateFuncs) OnHalt(message string) {
	if f.Halted != nil {
		f.Halted(message)
	}
}

func call(fn func(float64), t float64) {
	if fn != nil {
		fn(t)
	}
}

// ErrorFunc adapts a func to ErrorListener.
type ErrorFunc func(source string, code int, message string)

func (f ErrorFunc) OnError(source string, code int, message string) { f(source, code, message) }

// KeyFunc adapts a func to KeyListener.
type KeyFunc func(source string, handle uintptr, keyCode int)

func (f KeyFunc) OnKey(source string, handle uintptr, keyCode int) { f(source, handle, keyCode) }

// Token identifies a listener registration. The zero Token is never issued.
type Token uint64

type registration[L any] struct {
	token    Token
	listener L
	removed  bool
}

// registry holds listeners in registration order. Removal only marks the
// entry; it is dropped on the next snapshot taken by the dispatch loop.
type registry[L any] struct {
	mu      sync.Mutex
	last    Token
	entries []*registration[L]
}

func (r *registry[L]) add(l L) Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last++
	r.entries = append(r.entries, &registration[L]{token: r.last, listener: l})
	return r.last
}

func (r *registry[L]) remove(t Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.token == t && !e.removed {
			e.removed = true
			return true
		}
	}
	return false
}

// snapshot prunes removed entries and returns the live listeners.
func (r *registry[L]) snapshot() []L {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = lo.Filter(r.entries, func(e *registration[L], _ int) bool {
		return !e.removed
	})
	return lo.Map(r.entries, func(e *registration[L], _ int) L {
		return e.listener
	})
}

// size counts entries including removed ones not yet pruned.
func (r *registry[L]) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *registry[L]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
