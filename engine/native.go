// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

// Poster is how a native player hands notifications to the engine. The calls
// only enqueue, so they are safe from any thread and never block on listeners.
type Poster interface {
	PostState(state State, t float64, message string)
	PostError(source string, code int, description string)
	PostKey(handle uintptr, keyCode int)
}

// Native is the primitive command set of a decoder/renderer backend. Every
// primitive may fail; backends should return *MediaError so the code survives
// into ErrorEvent.
type Native interface {
	// Init allocates the native player and returns its non-zero handle. The
	// backend keeps p and reports state changes through it from now on.
	Init(p Poster) (uintptr, error)

	Play() error
	Stop() error
	StepForward() error
	StepBackward() error
	Pause() error
	Finish() error

	Rate() (float64, error)
	SetRate(rate float64) error

	PresentationTime() (float64, error)
	FPS() (float64, error)
	ImageWidth() (int, error)
	ImageHeight() (int, error)

	Mute() (bool, error)
	SetMute(mute bool) error
	Volume() (float64, error)
	SetVolume(volume float64) error
	Balance() (float64, error)
	SetBalance(balance float64) error

	Duration() (float64, error)
	StartTime() (float64, error)
	SetStartTime(t float64) error
	Seek(t float64) error

	Dispose() error

	// IsSeekPlaybackEnabled reports that the backend cannot decode at
	// arbitrary rates and relies on an external clock seeking repeatedly.
	IsSeekPlaybackEnabled() bool
	IsRateSupported(rate float64) bool
}

// WindowNative is a backend rendering into a display surface it owns.
type WindowNative interface {
	Native

	WindowWidth() (int, error)
	WindowHeight() (int, error)
	SetWindowSize(width, height int) error
	ShowWindow() error
	HideWindow() error
}
