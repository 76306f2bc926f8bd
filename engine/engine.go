// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package engine is the playback control core: a state machine over a native
// player that runs on its own threads and reports back asynchronously.
//
// Commands never return native failures. They are turned into ErrorEvents and
// delivered on the engine's dispatch goroutine, the only goroutine that calls
// listeners. Once Dispose has started every operation is a silent no-op.
package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/spezifisch/vplay/logger"
)

type Engine struct {
	name   string
	native Native
	logger logger.LoggerInterface

	// lifetime gates every public operation against Dispose. Operations
	// take it with TryRLock and are skipped while Dispose holds it.
	lifetime sync.RWMutex
	disposed atomic.Bool

	handle  atomic.Uintptr
	current atomic.Int32 // State, written by the dispatch loop only

	// mu serializes bookkeeping and native commands.
	mu               sync.Mutex
	initialized      bool
	playbackRate     float64
	muted            bool
	mutedVolume      float64
	startTime        float64
	stopTime         float64
	startTimeUpdated bool

	dispatcher     *dispatcher
	errorListeners registry[ErrorListener]
	stateListeners registry[StateListener]
	keyListeners   registry[KeyListener]
}

type Option func(*Engine)

func WithLogger(l logger.LoggerInterface) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithName sets the source label carried by error and key events.
func WithName(name string) Option {
	return func(e *Engine) {
		e.name = name
	}
}

func New(native Native, opts ...Option) *Engine {
	e := &Engine{
		name:         "engine",
		native:       native,
		logger:       &logger.Logger{},
		playbackRate: 1,
		mutedVolume:  1,
		stopTime:     math.Inf(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dispatcher = newDispatcher(e.dispatch, e.logger)
	return e
}

// acquire read-locks the lifetime lock unless the engine is disposed or
// being disposed. Callers must RUnlock when it returns true.
func (e *Engine) acquire() bool {
	if e.disposed.Load() {
		return false
	}
	if !e.lifetime.TryRLock() {
		e.logger.Debugf("%s: command skipped, dispose in progress", e.name)
		return false
	}
	if e.disposed.Load() {
		e.lifetime.RUnlock()
		return false
	}
	return true
}

func (e *Engine) release() {
	e.lifetime.RUnlock()
}

// check turns a native failure into an error event.
func (e *Engine) check(op string, err error) bool {
	if err == nil {
		return true
	}
	me := AsMediaError(err)
	e.logger.Debugf("%s: %s failed: %v", e.name, op, err)
	e.dispatcher.post(ErrorEvent{Source: e.name, Code: me.Code, Description: op + ": " + me.Description})
	return false
}

// Init allocates the native player and starts dispatching. Register listeners
// before calling it or the READY event may be missed.
func (e *Engine) Init() error {
	if !e.acquire() {
		return nil
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}

	e.dispatcher.start()
	h, err := e.native.Init(e)
	if err != nil {
		return err
	}
	e.handle.Store(h)
	e.initialized = true
	e.logger.Debugf("%s: native player initialized (handle %#x)", e.name, h)
	return nil
}

// Dispose releases the native player and all listeners. It is idempotent and
// waits for in-flight operations; afterwards the engine is inert for good.
func (e *Engine) Dispose() {
	e.lifetime.Lock()
	defer e.lifetime.Unlock()
	if e.disposed.Load() {
		return
	}
	e.disposed.Store(true)

	e.dispatcher.terminate()

	e.mu.Lock()
	if e.initialized {
		if err := e.native.Dispose(); err != nil {
			e.logger.PrintError("dispose", err)
		}
		e.initialized = false
	}
	e.mu.Unlock()

	e.errorListeners.clear()
	e.stateListeners.clear()
	e.keyListeners.clear()
	e.handle.Store(0)
	e.logger.Debugf("%s: disposed", e.name)
}

func (e *Engine) IsDisposed() bool {
	return e.disposed.Load()
}

// Handle returns the native handle, 0 once disposed.
func (e *Engine) Handle() uintptr {
	return e.handle.Load()
}

// Name returns the source label of this engine's events.
func (e *Engine) Name() string {
	return e.name
}

// State returns the last state reported by the native player, StateUnknown
// once disposed.
func (e *Engine) State() State {
	if !e.acquire() {
		return StateUnknown
	}
	defer e.release()
	return State(e.current.Load())
}

// Play starts playback, seeking first to a start time set while stopped.
func (e *Engine) Play() {
	if !e.acquire() {
		return
	}
	defer e.release()
	e.play()
}

func (e *Engine) play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startTimeUpdated {
		e.startTimeUpdated = false
		e.check("seek", e.native.Seek(e.startTime))
	}
	e.check("play", e.native.Play())
}

func (e *Engine) Pause() {
	if !e.acquire() {
		return
	}
	defer e.release()
	e.pause()
}

func (e *Engine) pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.check("pause", e.native.Pause())
}

// Stop stops playback and resets the rate to 1x. The STOPPED event may
// arrive after Stop returns.
func (e *Engine) Stop() {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.check("stop", e.native.Stop())
	e.playbackRate = 1
	if !e.native.IsSeekPlaybackEnabled() {
		e.check("set rate", e.native.SetRate(1))
	}
}

// TogglePause plays when the last observed state is PAUSED and pauses
// otherwise. A state event racing with the call may make it act on stale state.
func (e *Engine) TogglePause() {
	if !e.acquire() {
		return
	}
	defer e.release()
	if State(e.current.Load()) == StatePaused {
		e.play()
	} else {
		e.pause()
	}
}

// Finish jumps to the end of the stream.
func (e *Engine) Finish() {
	e.command("finish", e.native.Finish)
}

func (e *Engine) StepForward() {
	e.command("step forward", e.native.StepForward)
}

func (e *Engine) StepBackward() {
	e.command("step backward", e.native.StepBackward)
}

func (e *Engine) command(op string, fn func() error) {
	if !e.acquire() {
		return
	}
	defer e.release()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.check(op, fn())
}

// Seek moves to t seconds, clamped to [0, duration]. An unknown duration
// leaves the upper bound open. The current state is unchanged.
func (e *Engine) Seek(t float64) {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	upper := math.Inf(1)
	if d, err := e.native.Duration(); err == nil && d > 0 && !math.IsNaN(d) {
		upper = d
	}
	if math.IsNaN(t) {
		t = 0
	}
	e.check("seek", e.native.Seek(lo.Clamp(t, 0, upper)))
}

// Rate returns the playback rate. With seek playback the requested rate is
// authoritative, otherwise the native one.
func (e *Engine) Rate() float64 {
	if !e.acquire() {
		return -1
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.native.IsSeekPlaybackEnabled() {
		return e.playbackRate
	}
	r, err := e.native.Rate()
	if !e.check("rate", err) {
		return e.playbackRate
	}
	return r
}

// SetRate records rate even when the native player rejects it, so speed
// controls keep stepping from what the user asked for.
func (e *Engine) SetRate(rate float64) {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.playbackRate = rate
	if e.native.IsSeekPlaybackEnabled() {
		return
	}
	e.check("set rate", e.native.SetRate(rate))
}

func (e *Engine) IsSeekPlaybackEnabled() bool {
	if !e.acquire() {
		return false
	}
	defer e.release()
	return e.native.IsSeekPlaybackEnabled()
}

func (e *Engine) IsRateSupported(rate float64) bool {
	if !e.acquire() {
		return false
	}
	defer e.release()
	return e.native.IsRateSupported(rate)
}

// Volume returns the native volume in [0,1], 0 while muted.
func (e *Engine) Volume() float64 {
	return query(e, "volume", -1, e.native.Volume)
}

// SetVolume clamps v to [0,1]. While muted only the volume restored on
// unmute changes.
func (e *Engine) SetVolume(v float64) {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	v = lo.Clamp(v, 0, 1)
	if e.muted {
		e.mutedVolume = v
		return
	}
	e.check("set volume", e.native.SetVolume(v))
}

// UnmutedVolume is the volume playback returns to once unmuted.
func (e *Engine) UnmutedVolume() float64 {
	if !e.acquire() {
		return -1
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.muted {
		return e.mutedVolume
	}
	v, err := e.native.Volume()
	if !e.check("volume", err) {
		return -1
	}
	return v
}

func (e *Engine) Mute() bool {
	if !e.acquire() {
		return false
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// SetMute forces the volume to zero, remembering the previous volume, or
// restores it. Setting the current mute state again does nothing.
func (e *Engine) SetMute(enable bool) {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.setMuteLocked(enable)
}

func (e *Engine) setMuteLocked(enable bool) {
	if enable == e.muted {
		return
	}
	if enable {
		if v, err := e.native.Volume(); e.check("volume", err) {
			e.mutedVolume = v
		}
		e.check("set volume", e.native.SetVolume(0))
		e.check("set mute", e.native.SetMute(true))
		e.muted = true
		return
	}
	e.muted = false
	e.check("set mute", e.native.SetMute(false))
	e.check("set volume", e.native.SetVolume(e.mutedVolume))
}

func (e *Engine) Balance() float64 {
	if !e.acquire() {
		return -1
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.native.Balance()
	if !e.check("balance", err) {
		// -1 is a legal balance, so fall back to centered
		return 0
	}
	return b
}

// SetBalance clamps b to [-1,1].
func (e *Engine) SetBalance(b float64) {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.check("set balance", e.native.SetBalance(lo.Clamp(b, -1, 1)))
}

func (e *Engine) StartTime() float64 {
	if !e.acquire() {
		return -1
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startTime
}

// SetStartTime records t as the playback start. It reaches the native player
// at once unless playing, finished or stopped; when stopped the next Play
// seeks to it first.
func (e *Engine) SetStartTime(t float64) {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	e.startTime = t
	switch State(e.current.Load()) {
	case StateStopped:
		e.startTimeUpdated = true
	case StatePlaying, StateFinished:
	default:
		e.check("set start time", e.native.SetStartTime(t))
	}
}

// StopTime is the upper playback bound, +Inf unless set.
func (e *Engine) StopTime() float64 {
	if !e.acquire() {
		return -1
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopTime
}

func (e *Engine) SetStopTime(t float64) {
	if !e.acquire() {
		return
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	if math.IsNaN(t) || t <= 0 {
		t = math.Inf(1)
	}
	e.stopTime = t
}

func (e *Engine) PresentationTime() float64 {
	return query(e, "presentation time", -1, e.native.PresentationTime)
}

func (e *Engine) Duration() float64 {
	return query(e, "duration", -1, e.native.Duration)
}

func (e *Engine) FPS() float64 {
	return query(e, "fps", -1, e.native.FPS)
}

func (e *Engine) ImageWidth() int {
	return query(e, "image width", -1, e.native.ImageWidth)
}

func (e *Engine) ImageHeight() int {
	return query(e, "image height", -1, e.native.ImageHeight)
}

// query runs a native getter under the lifetime lock, returning fallback when
// disposed or on failure.
func query[T any](e *Engine, op string, fallback T, get func() (T, error)) T {
	if !e.acquire() {
		return fallback
	}
	defer e.release()

	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := get()
	if !e.check(op, err) {
		return fallback
	}
	return v
}

func (e *Engine) AddErrorListener(l ErrorListener) Token {
	if !e.acquire() {
		return 0
	}
	defer e.release()
	return e.errorListeners.add(l)
}

func (e *Engine) RemoveErrorListener(t Token) bool {
	if !e.acquire() {
		return false
	}
	defer e.release()
	return e.errorListeners.remove(t)
}

func (e *Engine) AddStateListener(l StateListener) Token {
	if !e.acquire() {
		return 0
	}
	defer e.release()
	return e.stateListeners.add(l)
}

func (e *Engine) RemoveStateListener(t Token) bool {
	if !e.acquire() {
		return false
	}
	defer e.release()
	return e.stateListeners.remove(t)
}

// PostState queues a state event. Negative times are reported as 0.
func (e *Engine) PostState(state State, t float64, message string) {
	if t < 0 || math.IsNaN(t) {
		t = 0
	}
	e.dispatcher.post(StateEvent{State: state, Time: t, Message: message})
}

// PostError queues an error event.
func (e *Engine) PostError(source string, code int, description string) {
	e.dispatcher.post(ErrorEvent{Source: source, Code: code, Description: description})
}

// PostKey queues a key event from the native window.
func (e *Engine) PostKey(handle uintptr, keyCode int) {
	e.dispatcher.post(KeyEvent{Source: e.name, Handle: handle, KeyCode: keyCode})
}

// dispatch runs on the dispatch goroutine.
func (e *Engine) dispatch(ev Event) {
	switch ev := ev.(type) {
	case StateEvent:
		e.current.Store(int32(ev.State))
		for _, l := range e.stateListeners.snapshot() {
			e.dispatcher.safely("state", func() { notifyState(l, ev) })
		}
	case ErrorEvent:
		for _, l := range e.errorListeners.snapshot() {
			e.dispatcher.safely("error", func() { l.OnError(ev.Source, ev.Code, ev.Description) })
		}
	case KeyEvent:
		for _, l := range e.keyListeners.snapshot() {
			e.dispatcher.safely("key", func() { l.OnKey(ev.Source, ev.Handle, ev.KeyCode) })
		}
	}
}

func notifyState(l StateListener, ev StateEvent) {
	switch ev.State {
	case StateReady:
		l.OnReady(ev.Time)
	case StatePlaying:
		l.OnPlaying(ev.Time)
	case StatePaused:
		l.OnPause(ev.Time)
	case StateStopped:
		l.OnStop(ev.Time)
	case StateStalled:
		l.OnStall(ev.Time)
	case StateFinished:
		l.OnFinish(ev.Time)
	case StateHalted:
		l.OnHalt(ev.Message)
	}
}

var _ Poster = (*Engine)(nil)
