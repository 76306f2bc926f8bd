package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
	"github.com/spezifisch/vplay/mpvplayer"
	"github.com/spezifisch/vplay/settings"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runMain calls main with args and returns the exit codes it requested.
func runMain(t *testing.T, args ...string) []int {
	t.Helper()
	var codes []int
	osExit = func(code int) {
		codes = append(codes, code)
	}
	testMode = true
	headlessMode = true
	oldArgs := os.Args
	t.Cleanup(func() {
		osExit = os.Exit
		testMode = false
		headlessMode = false
		os.Args = oldArgs
		viper.Reset()
	})

	flag.CommandLine = flag.NewFlagSet(args[0], flag.ContinueOnError)
	os.Args = args
	main()
	return codes
}

func TestMainHelp(t *testing.T) {
	assert.Equal(t, []int{0}, runMain(t, "cmd", "--help"))
}

func TestMainWithoutTUI(t *testing.T) {
	codes := runMain(t, "cmd", "--config=vplay-example.toml")
	assert.Equal(t, []int{0x23420001}, codes)
	assert.Equal(t, "mpv", viper.GetString("player.backend"))
	assert.Equal(t, 1280, viper.GetInt("window.width"))
}

func TestMainFlagsOverrideConfig(t *testing.T) {
	codes := runMain(t, "cmd", "--config=vplay-example.toml", "--backend=beep", "--seek-playback")
	assert.Equal(t, []int{0x23420001}, codes)
	assert.Equal(t, "beep", viper.GetString("player.backend"))
	assert.True(t, viper.GetBool("player.seek_playback"))
}

func TestMainConfigErrors(t *testing.T) {
	assert.Equal(t, []int{2}, runMain(t, "cmd", "--config=does-not-exist.toml"))
}

func TestReadConfigRejectsUnknownBackend(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "vplay.toml")
	require.NoError(t, os.WriteFile(path, []byte("[player]\nbackend = \"vlc\"\n"), 0o600))

	err := readConfig(&path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vlc")
}

func TestStateFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("player.state_file", "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", stateFile())
}

func TestMpvKeys(t *testing.T) {
	t.Cleanup(viper.Reset)
	l := &logger.Logger{}

	assert.Nil(t, mpvKeys(l), "defaults apply without entries")

	viper.Set("player.keys", []string{"k=p", "bad", "x=too long", "=p"})
	keys := mpvKeys(l)
	assert.Equal(t, int('p'), keys["k"])
	assert.NotContains(t, keys, "bad")
	assert.NotContains(t, keys, "x")
	assert.Equal(t, mpvplayer.KeyLeft, keys["LEFT"])
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{59.9, "00:59"},
		{61, "01:01"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{7384, "2:03:04"},
		{-1, "--:--"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, formatTime(tc.in), "%v", tc.in)
	}
}

func TestFormatPlayerStatus(t *testing.T) {
	assert.Equal(t, "[2x][ 80%][::b][00:10/01:00]", formatPlayerStatus(2, 0.8, false, 10, 60))
	assert.Equal(t, "[1/4x][mute][::b][00:00/--:--]", formatPlayerStatus(0.25, 0, true, 0, -1))
	assert.Equal(t, "[1.5x][100%][::b][--:--/--:--]", formatPlayerStatus(1.5, 1, false, -1, -1))
}

func TestFormatStateForStatusBar(t *testing.T) {
	assert.Equal(t, "[green::b]PLAYING[::-] [white]clip.mkv", formatStateForStatusBar(engine.StatePlaying, "clip.mkv"))
	assert.Equal(t, "[gray::b]UNKNOWN[::-]", formatStateForStatusBar(engine.StateUnknown, ""))
}

func TestHelpText(t *testing.T) {
	assert.Contains(t, helpLeftText(), "play/pause")
	assert.Contains(t, helpRightText(PagePlayer, true), "video window")
	assert.Empty(t, helpRightText(PagePlayer, false))
	assert.NotEmpty(t, helpRightText(PageLog, false))
}

func newTestUi(t *testing.T) (*Ui, *engine.WindowEngine, *engine.MockNative) {
	t.Helper()
	t.Cleanup(viper.Reset)
	native := engine.NewMockNative()
	w := engine.NewWindow(native, engine.WithName("clip.mkv"))
	require.NoError(t, w.Init())
	t.Cleanup(w.Dispose)
	waitState(t, w.Engine, engine.StateReady)

	ui := InitGui("/media/clip.mkv", w.Engine, w, &logger.Logger{})
	return ui, w, native
}

func waitState(t *testing.T, e *engine.Engine, want engine.State) {
	t.Helper()
	require.Eventually(t, func() bool { return e.State() == want }, time.Second, 5*time.Millisecond,
		"state %s, want %s", e.State(), want)
}

func TestUiSeesReadyFromFreshEngine(t *testing.T) {
	native := engine.NewMockNative()
	w := engine.NewWindow(native, engine.WithName("clip.mkv"))
	t.Cleanup(w.Dispose)

	ui := InitGui("/media/clip.mkv", w.Engine, w, &logger.Logger{})
	assert.Equal(t, -1.0, ui.playerPage.duration())
	require.NoError(t, w.Init())

	var ev engine.Event
	select {
	case ev = <-ui.engineEvents:
	case <-time.After(time.Second):
		t.Fatal("READY was not delivered to the ui")
	}
	require.Equal(t, engine.StateEvent{State: engine.StateReady}, ev)

	ui.handleEngineEvent(ev)
	assert.Equal(t, 60.0, ui.playerPage.duration())
}

func TestPlaybackKeys(t *testing.T) {
	ui, w, native := newTestUi(t)

	require.True(t, ui.handleKey('p'))
	waitState(t, w.Engine, engine.StatePlaying)
	require.True(t, ui.handleKey(' '))
	waitState(t, w.Engine, engine.StatePaused)

	ui.handleKey(',')
	ui.handleKey('.')
	ui.handleKey('f')
	calls := native.Calls()
	assert.Contains(t, calls, "step backward")
	assert.Contains(t, calls, "step forward")
	assert.Contains(t, calls, "finish")

	ui.handleKey('P')
	waitState(t, w.Engine, engine.StateStopped)

	assert.False(t, ui.handleKey('z'))
}

func TestRateKeysFollowStaircase(t *testing.T) {
	ui, w, _ := newTestUi(t)

	ui.handleKey(']')
	assert.Equal(t, 2.0, w.Rate())
	ui.handleKey('[')
	ui.handleKey('[')
	assert.Equal(t, 0.5, w.Rate())
}

func TestVolumeAndMuteKeys(t *testing.T) {
	ui, w, native := newTestUi(t)

	ui.handleKey('-')
	assert.InDelta(t, 0.95, w.Volume(), 1e-9)
	ui.handleKey('=')
	assert.InDelta(t, 1.0, w.Volume(), 1e-9)

	ui.handleKey('m')
	assert.True(t, w.Mute())
	assert.True(t, native.Muted())

	// adjusts the volume restored on unmute
	ui.handleKey('-')
	assert.True(t, w.Mute())
	assert.InDelta(t, 0.95, w.UnmutedVolume(), 1e-9)

	ui.handleKey('m')
	assert.False(t, w.Mute())
	assert.InDelta(t, 0.95, w.Volume(), 1e-9)
}

func TestSeekKeys(t *testing.T) {
	ui, _, native := newTestUi(t)
	native.SetTime(3)

	ui.handleKey(mpvplayer.KeyRight)
	ui.handleKey(mpvplayer.KeyLeft)
	ui.handleKey(mpvplayer.KeyLeft)
	assert.Equal(t, []float64{8, 3, 0}, native.Seeks())
}

func TestWindowKeyTogglesWindow(t *testing.T) {
	ui, w, native := newTestUi(t)

	ui.handleKey('w')
	assert.False(t, native.WindowVisible())
	assert.True(t, w.Mute())

	ui.handleKey('w')
	assert.True(t, native.WindowVisible())
	assert.False(t, w.Mute())
}

func TestKeysFromVideoWindow(t *testing.T) {
	ui, w, _ := newTestUi(t)

	ui.handleEngineEvent(engine.KeyEvent{Source: "clip.mkv", Handle: w.Handle(), KeyCode: 'p'})
	waitState(t, w.Engine, engine.StatePlaying)
}

func TestQuitSavesState(t *testing.T) {
	ui, w, native := newTestUi(t)
	ui.store = settings.Bind(w)
	ui.statePath = filepath.Join(t.TempDir(), "vplay", "state.toml")

	ui.handleKey('-')
	ui.handleKey('Q')

	assert.True(t, w.IsDisposed())
	assert.True(t, native.Disposed())
	data, err := os.ReadFile(ui.statePath)
	require.NoError(t, err)
	var saved struct{ Volume float64 }
	require.NoError(t, toml.Unmarshal(data, &saved))
	assert.InDelta(t, 0.95, saved.Volume, 1e-9)

	// once only
	ui.Quit()
	assert.Len(t, lo.Filter(native.Calls(), func(c string, _ int) bool { return c == "dispose" }), 1)
}

func TestPageKeys(t *testing.T) {
	page, ok := pageForKey('2')
	assert.True(t, ok)
	assert.Equal(t, PageLog, page)
	_, ok = pageForKey('9')
	assert.False(t, ok)

	ui, _, _ := newTestUi(t)
	ui.ShowPage(PageLog)
	assert.Equal(t, PageLog, ui.menuWidget.GetActivePage())
	assert.Contains(t, helpRightText(ui.menuWidget.GetActivePage(), true), "clear")
}
