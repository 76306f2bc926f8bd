package beepplayer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = beep.SampleRate(1000)

// mixerOutput stands in for the speaker; tests pull samples by hand.
type mixerOutput struct {
	mu    sync.Mutex
	mixer beep.Mixer
	sr    beep.SampleRate
}

func (m *mixerOutput) Init(sr beep.SampleRate) error {
	if m.sr == 0 {
		m.sr = sr
	}
	return nil
}

func (m *mixerOutput) SampleRate() beep.SampleRate { return m.sr }

func (m *mixerOutput) Play(s beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Add(s)
}

func (m *mixerOutput) Lock()   { m.mu.Lock() }
func (m *mixerOutput) Unlock() { m.mu.Unlock() }

func (m *mixerOutput) pull(n int) {
	buf := make([][2]float64, n)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Stream(buf)
}

func (m *mixerOutput) playing() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}

type closer struct {
	beep.StreamSeeker
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

type posted struct {
	mu     sync.Mutex
	states []engine.State
	times  []float64
}

func (p *posted) PostState(state engine.State, t float64, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
	p.times = append(p.times, t)
}

func (p *posted) PostError(string, int, string) {}
func (p *posted) PostKey(uintptr, int)          {}

func (p *posted) last() (engine.State, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return engine.StateUnknown, 0
	}
	return p.states[len(p.states)-1], p.times[len(p.times)-1]
}

func (p *posted) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

// newTestPlayer loads ten seconds of silence at 1 kHz.
func newTestPlayer(t *testing.T) (*Player, *mixerOutput, *closer, *posted) {
	t.Helper()
	return newTestPlayerConfig(t, Config{})
}

func newTestPlayerConfig(t *testing.T, cfg Config) (*Player, *mixerOutput, *closer, *posted) {
	t.Helper()
	format := beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)
	buf.Append(beep.Silence(testRate.N(10 * time.Second)))
	src := &closer{StreamSeeker: buf.Streamer(0, buf.Len())}

	out := &mixerOutput{}
	p := New("/music/silence.flac", cfg, &logger.Logger{})
	p.out = out
	p.open = func(string) (beep.StreamSeekCloser, beep.Format, error) {
		return src, format, nil
	}

	post := &posted{}
	handle, err := p.Init(post)
	require.NoError(t, err)
	require.NotZero(t, handle)
	return p, out, src, post
}

func position(t *testing.T, p *Player) float64 {
	t.Helper()
	pos, err := p.PresentationTime()
	require.NoError(t, err)
	return pos
}

func TestResampleQualityIsClamped(t *testing.T) {
	for in, want := range map[int]int{0: 4, -2: 4, 1: 1, 16: 16, 64: 64, 100: 64} {
		assert.Equal(t, want, New("a.wav", Config{ResampleQuality: in}, &logger.Logger{}).cfg.ResampleQuality, "quality %d", in)
	}

	p, out, _, post := newTestPlayerConfig(t, Config{ResampleQuality: 1000})
	require.NoError(t, p.Play())
	out.pull(1000)
	state, _ := post.last()
	assert.Equal(t, engine.StatePlaying, state)
	assert.Equal(t, 64, p.cfg.ResampleQuality)
}

func TestInitLoadsPaused(t *testing.T) {
	p, out, _, post := newTestPlayer(t)

	state, _ := post.last()
	assert.Equal(t, engine.StateReady, state)
	d, err := p.Duration()
	require.NoError(t, err)
	assert.InDelta(t, 10, d, 1e-9)
	assert.Equal(t, 1, out.playing())

	out.pull(500)
	assert.Zero(t, position(t, p))
}

func TestInitOpenFailure(t *testing.T) {
	p := New("/music/missing.mp3", Config{}, &logger.Logger{})
	p.out = &mixerOutput{}
	p.open = func(string) (beep.StreamSeekCloser, beep.Format, error) {
		return nil, beep.Format{}, errors.New("no such file")
	}

	_, err := p.Init(&posted{})
	require.Error(t, err)
	assert.Equal(t, engine.CodeNativeFailure, engine.AsMediaError(err).Code)
	assert.Equal(t, engine.CodeNotInitialized, engine.AsMediaError(p.Play()).Code)
	assert.NoError(t, p.Dispose())
}

func TestUnknownExtension(t *testing.T) {
	p := New("/music/notes.txt", Config{}, &logger.Logger{})
	_, _, err := p.openFile("/music/notes.txt")
	assert.Error(t, err)
}

func TestPlayToEndAndAgain(t *testing.T) {
	p, out, _, post := newTestPlayer(t)

	require.NoError(t, p.Play())
	state, _ := post.last()
	assert.Equal(t, engine.StatePlaying, state)

	out.pull(12000)
	state, at := post.last()
	assert.Equal(t, engine.StateFinished, state)
	assert.InDelta(t, 10, at, 1e-9)
	assert.Zero(t, out.playing())

	require.NoError(t, p.Play())
	state, at = post.last()
	assert.Equal(t, engine.StatePlaying, state)
	assert.Zero(t, at)
	assert.Equal(t, 1, out.playing())
}

func TestPauseHoldsPosition(t *testing.T) {
	p, out, _, post := newTestPlayer(t)

	require.NoError(t, p.Play())
	out.pull(1000)
	require.NoError(t, p.Pause())
	state, _ := post.last()
	assert.Equal(t, engine.StatePaused, state)

	held := position(t, p)
	assert.Positive(t, held)
	out.pull(1000)
	assert.Equal(t, held, position(t, p))
}

func TestStopRewinds(t *testing.T) {
	p, out, _, post := newTestPlayer(t)

	require.NoError(t, p.Play())
	out.pull(2000)
	require.NoError(t, p.Stop())

	state, at := post.last()
	assert.Equal(t, engine.StateStopped, state)
	assert.Zero(t, at)
	assert.Zero(t, position(t, p))
}

func TestFinish(t *testing.T) {
	p, out, _, post := newTestPlayer(t)

	require.NoError(t, p.Finish())
	out.pull(100)
	state, at := post.last()
	assert.Equal(t, engine.StateFinished, state)
	assert.InDelta(t, 10, at, 1e-9)

	// already drained: reported directly
	n := post.count()
	require.NoError(t, p.Finish())
	assert.Equal(t, n+1, post.count())
	state, _ = post.last()
	assert.Equal(t, engine.StateFinished, state)
}

func TestSteps(t *testing.T) {
	p, _, _, post := newTestPlayer(t)

	require.NoError(t, p.StepForward())
	state, at := post.last()
	assert.Equal(t, engine.StatePaused, state)
	assert.InDelta(t, 0.04, at, 1e-9)

	require.NoError(t, p.StepBackward())
	require.NoError(t, p.StepBackward())
	_, at = post.last()
	assert.Zero(t, at)

	fps, err := p.FPS()
	require.NoError(t, err)
	assert.Equal(t, 25.0, fps)
}

func TestRate(t *testing.T) {
	p, _, _, _ := newTestPlayer(t)

	require.NoError(t, p.SetRate(2))
	r, err := p.Rate()
	require.NoError(t, err)
	assert.Equal(t, 2.0, r)
	assert.Equal(t, 2.0, p.resampler.Ratio())

	for _, bad := range []float64{0, -1, 64} {
		err := p.SetRate(bad)
		assert.Equal(t, engine.CodeUnsupportedRate, engine.AsMediaError(err).Code, "rate %v", bad)
		assert.False(t, p.IsRateSupported(bad))
	}
	assert.False(t, p.IsSeekPlaybackEnabled())
}

func TestResamplesToOutputRate(t *testing.T) {
	format := beep.Format{SampleRate: 2000, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)
	buf.Append(beep.Silence(2000))

	p := New("/music/a.wav", Config{}, &logger.Logger{})
	p.out = &mixerOutput{sr: testRate}
	p.open = func(string) (beep.StreamSeekCloser, beep.Format, error) {
		return &closer{StreamSeeker: buf.Streamer(0, buf.Len())}, format, nil
	}
	_, err := p.Init(&posted{})
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.resampler.Ratio())

	require.NoError(t, p.SetRate(0.5))
	assert.Equal(t, 1.0, p.resampler.Ratio())
}

func TestVolumeAndMute(t *testing.T) {
	p, _, _, _ := newTestPlayer(t)

	require.NoError(t, p.SetVolume(0.5))
	assert.Equal(t, -1.0, p.volume.Volume)
	assert.False(t, p.volume.Silent)

	require.NoError(t, p.SetMute(true))
	muted, err := p.Mute()
	require.NoError(t, err)
	assert.True(t, muted)
	assert.True(t, p.volume.Silent)

	require.NoError(t, p.SetMute(false))
	require.NoError(t, p.SetVolume(0))
	assert.True(t, p.volume.Silent)

	v, err := p.Volume()
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, -10.0, levelToVolume(0))
	assert.Equal(t, 0.0, levelToVolume(1))
	assert.Equal(t, 0.0, levelToVolume(2))
	assert.Equal(t, -2.0, levelToVolume(0.25))
}

func TestBalance(t *testing.T) {
	p, _, _, _ := newTestPlayer(t)

	require.NoError(t, p.SetBalance(-0.5))
	b, err := p.Balance()
	require.NoError(t, err)
	assert.Equal(t, -0.5, b)
	assert.Equal(t, -0.5, p.pan.Pan)
}

func TestNoImage(t *testing.T) {
	p, _, _, _ := newTestPlayer(t)

	_, err := p.ImageWidth()
	assert.Equal(t, engine.CodeUnsupportedOperation, engine.AsMediaError(err).Code)
	_, err = p.ImageHeight()
	assert.Equal(t, engine.CodeUnsupportedOperation, engine.AsMediaError(err).Code)
}

func TestSeekClamps(t *testing.T) {
	p, _, _, _ := newTestPlayer(t)

	require.NoError(t, p.Seek(5))
	assert.InDelta(t, 5, position(t, p), 1e-9)
	require.NoError(t, p.Seek(20))
	assert.InDelta(t, 10, position(t, p), 1e-9)
	require.NoError(t, p.Seek(-1))
	assert.Zero(t, position(t, p))

	require.NoError(t, p.SetStartTime(2.5))
	start, err := p.StartTime()
	require.NoError(t, err)
	assert.Equal(t, 2.5, start)
	assert.InDelta(t, 2.5, position(t, p), 1e-9)
}

func TestDisposeDetaches(t *testing.T) {
	p, out, src, post := newTestPlayer(t)
	require.NoError(t, p.Play())
	n := post.count()

	require.NoError(t, p.Dispose())
	assert.True(t, src.closed)

	out.pull(100)
	assert.Zero(t, out.playing())
	assert.Equal(t, n, post.count(), "no FINISHED after dispose")

	assert.Equal(t, engine.CodeNotInitialized, engine.AsMediaError(p.Play()).Code)
	assert.NoError(t, p.Dispose())
}

func TestDrivesEngine(t *testing.T) {
	format := beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)
	buf.Append(beep.Silence(testRate.N(time.Second)))

	out := &mixerOutput{}
	p := New("/music/a.ogg", Config{}, &logger.Logger{})
	p.out = out
	p.open = func(string) (beep.StreamSeekCloser, beep.Format, error) {
		return &closer{StreamSeeker: buf.Streamer(0, buf.Len())}, format, nil
	}

	var mu sync.Mutex
	var seen []engine.State
	add := func(s engine.State) func(float64) {
		return func(float64) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, s)
		}
	}

	e := engine.New(p, engine.WithName("beep"))
	e.AddStateListener(engine.StateFuncs{
		Ready:    add(engine.StateReady),
		Playing:  add(engine.StatePlaying),
		Finished: add(engine.StateFinished),
	})
	require.NoError(t, e.Init())
	t.Cleanup(e.Dispose)

	e.Play()
	require.Eventually(t, func() bool { return e.State() == engine.StatePlaying }, time.Second, 5*time.Millisecond)
	out.pull(3000)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return assert.ObjectsAreEqual([]engine.State{engine.StateReady, engine.StatePlaying, engine.StateFinished}, seen)
	}, time.Second, 5*time.Millisecond)
}
