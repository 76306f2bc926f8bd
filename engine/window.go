// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

// WindowEngine is an Engine whose backend renders into a window it owns.
// Hiding the window mutes audio and showing it unmutes.
type WindowEngine struct {
	*Engine
	window WindowNative
}

func NewWindow(native WindowNative, opts ...Option) *WindowEngine {
	return &WindowEngine{
		Engine: New(native, opts...),
		window: native,
	}
}

func (w *WindowEngine) ShowWindow() {
	if !w.acquire() {
		return
	}
	defer w.release()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.check("show window", w.window.ShowWindow())
	w.setMuteLocked(false)
}

func (w *WindowEngine) HideWindow() {
	if !w.acquire() {
		return
	}
	defer w.release()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.check("hide window", w.window.HideWindow())
	w.setMuteLocked(true)
}

func (w *WindowEngine) WindowWidth() int {
	return query(w.Engine, "window width", -1, w.window.WindowWidth)
}

func (w *WindowEngine) WindowHeight() int {
	return query(w.Engine, "window height", -1, w.window.WindowHeight)
}

func (w *WindowEngine) SetWindowSize(width, height int) {
	if !w.acquire() {
		return
	}
	defer w.release()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.check("set window size", w.window.SetWindowSize(width, height))
}

func (w *WindowEngine) AddKeyListener(l KeyListener) Token {
	if !w.acquire() {
		return 0
	}
	defer w.release()
	return w.keyListeners.add(l)
}

func (w *WindowEngine) RemoveKeyListener(t Token) bool {
	if !w.acquire() {
		return false
	}
	defer w.release()
	return w.keyListeners.remove(t)
}
