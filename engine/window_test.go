package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWindow(t *testing.T) (*WindowEngine, *MockNative, *recorder) {
	t.Helper()
	native := NewMockNative()
	w := NewWindow(native)
	rec := &recorder{}
	w.AddStateListener(rec)
	w.AddErrorListener(rec)
	w.AddKeyListener(rec)
	require.NoError(t, w.Init())
	t.Cleanup(w.Dispose)
	rec.waitStates(t, StateReady)
	return w, native, rec
}

func TestHideWindowMutes(t *testing.T) {
	w, native, _ := newTestWindow(t)
	w.SetVolume(0.6)

	w.HideWindow()
	assert.False(t, native.WindowVisible())
	assert.True(t, w.Mute())
	assert.Equal(t, 0.0, w.Volume())

	w.ShowWindow()
	assert.True(t, native.WindowVisible())
	assert.False(t, w.Mute())
	assert.Equal(t, 0.6, w.Volume())
}

func TestShowWindowUnmutesExplicitMute(t *testing.T) {
	w, _, _ := newTestWindow(t)
	w.SetMute(true)
	w.ShowWindow()
	assert.False(t, w.Mute())
}

func TestWindowSize(t *testing.T) {
	w, native, rec := newTestWindow(t)
	assert.Equal(t, 640, w.WindowWidth())
	assert.Equal(t, 480, w.WindowHeight())

	w.SetWindowSize(1280, 720)
	assert.Equal(t, 1280, w.WindowWidth())
	assert.Equal(t, 720, w.WindowHeight())

	native.Fail("window width", NewMediaError(CodeUnsupportedOperation, "headless"))
	assert.Equal(t, -1, w.WindowWidth())
	require.Eventually(t, func() bool { return len(rec.Errors()) == 1 }, waitFor, tick)
	assert.Equal(t, "window width: headless", rec.Errors()[0].Description)
}

func TestKeyListenerRemoval(t *testing.T) {
	w, native, rec := newTestWindow(t)
	other := &recorder{}
	token := w.AddKeyListener(other)

	native.PressKey(1)
	require.Eventually(t, func() bool { return len(other.Keys()) == 1 }, waitFor, tick)

	assert.True(t, w.RemoveKeyListener(token))
	native.PressKey(2)
	require.Eventually(t, func() bool { return len(rec.Keys()) == 2 }, waitFor, tick)
	assert.Len(t, other.Keys(), 1)
	assert.Equal(t, 2, rec.Keys()[1].KeyCode)
}

func TestWindowAfterDispose(t *testing.T) {
	w, native, _ := newTestWindow(t)
	w.Dispose()
	calls := len(native.Calls())

	w.ShowWindow()
	w.HideWindow()
	w.SetWindowSize(1, 1)
	assert.Equal(t, -1, w.WindowWidth())
	assert.Equal(t, -1, w.WindowHeight())
	assert.Zero(t, w.AddKeyListener(&recorder{}))
	assert.False(t, w.RemoveKeyListener(1))
	assert.Equal(t, calls, len(native.Calls()))
}
