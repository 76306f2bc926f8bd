// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

import (
	"sync"
)

// MockNative is a test double for WindowNative. It reports state changes
// synchronously from the calling goroutine, which keeps event order
// deterministic in tests.
type MockNative struct {
	mu sync.Mutex

	poster      Poster
	handle      uintptr
	initialized bool
	disposed    bool

	state     State
	time      float64
	duration  float64
	rate      float64
	volume    float64
	balance   float64
	muted     bool
	startTime float64
	fps       float64
	width     int
	height    int

	windowWidth   int
	windowHeight  int
	windowVisible bool

	seekPlayback bool
	failures     map[string]error

	disposeEntered chan struct{}
	disposeGate    chan struct{}

	calls []string
	seeks []float64
}

// NewMockNative creates a 60 second, 25 fps, 640x480 mock player.
func NewMockNative() *MockNative {
	return &MockNative{
		handle:        0xbeef,
		duration:      60,
		rate:          1,
		volume:        1,
		fps:           25,
		width:         640,
		height:        480,
		windowWidth:   640,
		windowHeight:  480,
		windowVisible: true,
		failures:      map[string]error{},
	}
}

// begin records the call and returns the injected failure, if any.
// Callers hold m.mu.
func (m *MockNative) begin(op string) error {
	m.calls = append(m.calls, op)
	if err, ok := m.failures[op]; ok {
		return err
	}
	if !m.initialized && op != "init" && op != "dispose" {
		return NewMediaError(CodeNotInitialized, "%s before init", op)
	}
	return nil
}

func (m *MockNative) transition(s State) {
	m.state = s
	if m.poster != nil {
		m.poster.PostState(s, m.time, "")
	}
}

func (m *MockNative) Init(p Poster) (uintptr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("init"); err != nil {
		return 0, err
	}
	m.poster = p
	m.initialized = true
	m.time = 0
	m.transition(StateReady)
	return m.handle, nil
}

func (m *MockNative) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("play"); err != nil {
		return err
	}
	m.transition(StatePlaying)
	return nil
}

func (m *MockNative) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("pause"); err != nil {
		return err
	}
	m.transition(StatePaused)
	return nil
}

func (m *MockNative) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("stop"); err != nil {
		return err
	}
	m.time = 0
	m.transition(StateStopped)
	return nil
}

func (m *MockNative) Finish() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("finish"); err != nil {
		return err
	}
	m.time = m.duration
	m.transition(StateFinished)
	return nil
}

// StepForward advances one frame and leaves the player paused.
func (m *MockNative) StepForward() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("step forward"); err != nil {
		return err
	}
	m.time = min(m.time+1/m.fps, m.duration)
	m.transition(StatePaused)
	return nil
}

func (m *MockNative) StepBackward() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("step backward"); err != nil {
		return err
	}
	m.time = max(m.time-1/m.fps, 0)
	m.transition(StatePaused)
	return nil
}

func (m *MockNative) Rate() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("rate"); err != nil {
		return 0, err
	}
	return m.rate, nil
}

func (m *MockNative) SetRate(rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("set rate"); err != nil {
		return err
	}
	if !m.rateSupported(rate) {
		return NewMediaError(CodeUnsupportedRate, "rate %g not supported", rate)
	}
	m.rate = rate
	return nil
}

func (m *MockNative) PresentationTime() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("presentation time"); err != nil {
		return 0, err
	}
	return m.time, nil
}

func (m *MockNative) FPS() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("fps"); err != nil {
		return 0, err
	}
	return m.fps, nil
}

func (m *MockNative) ImageWidth() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("image width"); err != nil {
		return 0, err
	}
	return m.width, nil
}

func (m *MockNative) ImageHeight() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("image height"); err != nil {
		return 0, err
	}
	return m.height, nil
}

func (m *MockNative) Mute() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("mute"); err != nil {
		return false, err
	}
	return m.muted, nil
}

func (m *MockNative) SetMute(mute bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("set mute"); err != nil {
		return err
	}
	m.muted = mute
	return nil
}

func (m *MockNative) Volume() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("volume"); err != nil {
		return 0, err
	}
	return m.volume, nil
}

func (m *MockNative) SetVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("set volume"); err != nil {
		return err
	}
	m.volume = volume
	return nil
}

func (m *MockNative) Balance() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("balance"); err != nil {
		return 0, err
	}
	return m.balance, nil
}

func (m *MockNative) SetBalance(balance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("set balance"); err != nil {
		return err
	}
	m.balance = balance
	return nil
}

func (m *MockNative) Duration() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("duration"); err != nil {
		return 0, err
	}
	if m.duration <= 0 {
		return 0, NewMediaError(CodeNativeFailure, "duration unknown")
	}
	return m.duration, nil
}

func (m *MockNative) StartTime() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("start time"); err != nil {
		return 0, err
	}
	return m.startTime, nil
}

func (m *MockNative) SetStartTime(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("set start time"); err != nil {
		return err
	}
	m.startTime = t
	return nil
}

func (m *MockNative) Seek(t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("seek"); err != nil {
		return err
	}
	m.seeks = append(m.seeks, t)
	m.time = t
	return nil
}

func (m *MockNative) Dispose() error {
	m.mu.Lock()
	entered, gate := m.disposeEntered, m.disposeGate
	m.disposeEntered, m.disposeGate = nil, nil
	m.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("dispose"); err != nil {
		return err
	}
	m.initialized = false
	m.disposed = true
	m.poster = nil
	return nil
}

func (m *MockNative) IsSeekPlaybackEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seekPlayback
}

func (m *MockNative) IsRateSupported(rate float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rateSupported(rate)
}

func (m *MockNative) rateSupported(rate float64) bool {
	return rate >= -32 && rate <= 32
}

func (m *MockNative) WindowWidth() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("window width"); err != nil {
		return 0, err
	}
	return m.windowWidth, nil
}

func (m *MockNative) WindowHeight() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("window height"); err != nil {
		return 0, err
	}
	return m.windowHeight, nil
}

func (m *MockNative) SetWindowSize(width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("set window size"); err != nil {
		return err
	}
	m.windowWidth, m.windowHeight = width, height
	return nil
}

func (m *MockNative) ShowWindow() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("show window"); err != nil {
		return err
	}
	m.windowVisible = true
	return nil
}

func (m *MockNative) HideWindow() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("hide window"); err != nil {
		return err
	}
	m.windowVisible = false
	return nil
}

// Test helpers

// Fail makes the named primitive (e.g. "play", "set rate") return err.
// A nil err clears the failure.
func (m *MockNative) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// HoldDispose makes the next Dispose block until release is called. entered
// is closed once Dispose is waiting.
func (m *MockNative) HoldDispose() (entered <-chan struct{}, release func()) {
	in := make(chan struct{})
	gate := make(chan struct{})
	m.mu.Lock()
	m.disposeEntered, m.disposeGate = in, gate
	m.mu.Unlock()
	return in, sync.OnceFunc(func() { close(gate) })
}

func (m *MockNative) SetSeekPlayback(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekPlayback = enabled
}

// SetDuration sets the stream length; 0 makes it unknown.
func (m *MockNative) SetDuration(d float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *MockNative) SetTime(t float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.time = t
}

// Emit reports a state the way the native thread would, e.g. a stall.
func (m *MockNative) Emit(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transition(s)
}

// Halt reports a fatal failure.
func (m *MockNative) Halt(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateHalted
	if m.poster != nil {
		m.poster.PostState(StateHalted, m.time, message)
	}
}

// PressKey reports a key press in the player window.
func (m *MockNative) PressKey(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.poster != nil {
		m.poster.PostKey(m.handle, code)
	}
}

// Calls returns the primitives invoked so far, in order.
func (m *MockNative) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockNative) Seeks() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.seeks...)
}

func (m *MockNative) NativeState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MockNative) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

func (m *MockNative) WindowVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windowVisible
}

func (m *MockNative) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

var _ WindowNative = (*MockNative)(nil)
