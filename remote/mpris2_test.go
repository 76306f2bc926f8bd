package remote

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProps struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func (f *fakeProps) SetMust(iface, property string, v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[iface+"."+property] = v
}

func (f *fakeProps) get(property string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[playerIface+"."+property]
}

func newTestBridge(t *testing.T) (*MprisPlayer, *engine.Engine, *engine.MockNative, *fakeProps) {
	t.Helper()
	native := engine.NewMockNative()
	e := engine.New(native, engine.WithName("test"))
	props := &fakeProps{values: map[string]interface{}{}}
	m := &MprisPlayer{
		props:  props,
		player: e,
		logger: &logger.Logger{},
		title:  "clip.mkv",
	}
	m.token = e.AddStateListener(m)
	require.NoError(t, e.Init())
	t.Cleanup(e.Dispose)
	waitStatus(t, props, "Stopped")
	return m, e, native, props
}

func waitStatus(t *testing.T, props *fakeProps, want string) {
	t.Helper()
	require.Eventually(t, func() bool { return props.get("PlaybackStatus") == want }, time.Second, 5*time.Millisecond,
		"status %v, want %s", props.get("PlaybackStatus"), want)
}

func TestReadyPublishesMetadata(t *testing.T) {
	_, _, _, props := newTestBridge(t)

	md, ok := props.get("Metadata").(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, trackID, md["mpris:trackid"])
	assert.Equal(t, int64(60_000_000), md["mpris:length"])
	assert.Equal(t, "clip.mkv", md["xesam:title"])
	assert.Equal(t, 1.0, props.get("Volume"))
	assert.Equal(t, 1.0, props.get("Rate"))
}

func TestPlaybackStatusFollowsState(t *testing.T) {
	m, _, native, props := newTestBridge(t)

	require.Nil(t, m.methods().Play())
	waitStatus(t, props, "Playing")

	native.Emit(engine.StateStalled)
	// stays Playing while buffering
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "Playing", props.get("PlaybackStatus"))

	require.Nil(t, m.methods().Pause())
	waitStatus(t, props, "Paused")

	require.Nil(t, m.methods().PlayPause())
	waitStatus(t, props, "Playing")

	require.Nil(t, m.methods().Stop())
	waitStatus(t, props, "Stopped")

	native.SetTime(5)
	require.Nil(t, m.methods().Play())
	waitStatus(t, props, "Playing")
	assert.Equal(t, int64(5_000_000), props.get("Position"))

	native.Halt("decoder gone")
	waitStatus(t, props, "Stopped")
}

func TestPauseWhenNotPlayingIsNoop(t *testing.T) {
	m, _, native, _ := newTestBridge(t)

	require.Nil(t, m.methods().Pause())
	assert.NotContains(t, native.Calls(), "pause")
}

func TestSeekIsRelative(t *testing.T) {
	m, _, native, _ := newTestBridge(t)
	native.SetTime(10)

	require.Nil(t, m.methods().Seek(2_500_000))
	require.Nil(t, m.methods().Seek(-20_000_000))
	assert.Equal(t, []float64{12.5, 0}, native.Seeks())
}

func TestSetPositionChecksTrack(t *testing.T) {
	m, _, native, _ := newTestBridge(t)

	require.Nil(t, m.methods().SetPosition("/some/other/track", 1_000_000))
	require.Nil(t, m.methods().SetPosition(trackID, -1))
	require.Nil(t, m.methods().SetPosition(trackID, 30_000_000))
	assert.Equal(t, []float64{30}, native.Seeks())
}

func TestRateChangeSnapsToStaircase(t *testing.T) {
	m, e, _, _ := newTestBridge(t)

	tests := []struct {
		in   interface{}
		want float64
	}{
		{2.0, 2},
		{3.1, 4},
		{0.3, 0.25},
		{100.0, 32},
		{"0.5", 0.5},
	}
	for _, tc := range tests {
		require.Nil(t, m.rateChange(&prop.Change{Value: tc.in}), "%v", tc.in)
		assert.Equal(t, tc.want, e.Rate(), "%v", tc.in)
	}

	assert.Equal(t, prop.ErrInvalidArg, m.rateChange(&prop.Change{Value: "fast"}))
}

func TestRateZeroPauses(t *testing.T) {
	m, e, native, props := newTestBridge(t)

	e.Play()
	waitStatus(t, props, "Playing")
	require.Nil(t, m.rateChange(&prop.Change{Value: 0.0}))
	waitStatus(t, props, "Paused")
	assert.NotContains(t, native.Calls(), "set rate")
}

func TestVolumeChange(t *testing.T) {
	m, e, _, _ := newTestBridge(t)

	require.Nil(t, m.volumeChange(&prop.Change{Value: 0.4}))
	assert.InDelta(t, 0.4, e.Volume(), 1e-9)

	require.Nil(t, m.volumeChange(&prop.Change{Value: 1.7}))
	assert.Equal(t, 1.0, e.Volume())

	assert.Equal(t, prop.ErrInvalidArg, m.volumeChange(&prop.Change{Value: []string{"loud"}}))
}

func TestCloseRemovesListener(t *testing.T) {
	m, e, _, props := newTestBridge(t)

	m.Close()
	e.Play()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "Stopped", props.get("PlaybackStatus"))
}

func TestOnlyMprisMethodsAreExported(t *testing.T) {
	m, _, _, _ := newTestBridge(t)

	var names []string
	for _, method := range introspect.Methods(m.methods()) {
		names = append(names, method.Name)
	}
	assert.ElementsMatch(t, []string{
		"Next", "OpenUri", "Pause", "Play", "PlayPause", "Previous", "Seek", "SetPosition", "Stop",
	}, names)

	typ := reflect.TypeOf(m.methods())
	for _, name := range []string{"Close", "OnReady", "OnPlaying", "OnHalt"} {
		_, found := typ.MethodByName(name)
		assert.False(t, found, name)
	}
}
