// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package beepplayer is a pure Go audio-only backend for the playback engine,
// built on the beep speaker.
package beepplayer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/samber/lo"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
)

// FrameDuration is the step size of StepForward and StepBackward; audio has
// no frames of its own.
const FrameDuration = 40 * time.Millisecond

const (
	minRate = 1.0 / 32
	maxRate = 32
)

var handles atomic.Uintptr

type Config struct {
	// ResampleQuality is passed to beep.ResampleRatio, 1 (fast) to 64.
	ResampleQuality int
}

type Player struct {
	path   string
	cfg    Config
	logger logger.LoggerInterface

	out  output
	open func(path string) (beep.StreamSeekCloser, beep.Format, error)

	poster   engine.Poster
	handle   uintptr
	duration float64

	mu        sync.Mutex
	file      *os.File
	streamer  beep.StreamSeekCloser
	format    beep.Format
	baseRatio float64
	resampler *beep.Resampler
	ctrl      *beep.Ctrl
	pan       *effects.Pan
	volume    *effects.Volume

	rate      float64
	level     float64
	muted     bool
	balance   float64
	startTime float64

	// queued is set while the chain is in the output mixer; the end-of-stream
	// callback clears it.
	queued   atomic.Bool
	disposed atomic.Bool
}

var _ engine.Native = (*Player)(nil)

func New(path string, cfg Config, logger logger.LoggerInterface) *Player {
	if cfg.ResampleQuality <= 0 {
		cfg.ResampleQuality = 4
	}
	// beep panics outside this range
	cfg.ResampleQuality = lo.Clamp(cfg.ResampleQuality, 1, 64)
	p := &Player{
		path:   path,
		cfg:    cfg,
		logger: logger,
		out:    defaultOutput,
		rate:   1,
		level:  1,
	}
	p.open = p.openFile
	return p
}

func (p *Player) openFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var streamer beep.StreamSeekCloser
	var format beep.Format
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		err = fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	p.file = f
	return streamer, format, nil
}

func (p *Player) Init(poster engine.Poster) (uintptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	streamer, format, err := p.open(p.path)
	if err != nil {
		return 0, engine.NewMediaError(engine.CodeNativeFailure, "open %s: %v", p.path, err)
	}
	if err := p.out.Init(format.SampleRate); err != nil {
		streamer.Close()
		return 0, engine.NewMediaError(engine.CodeNativeFailure, "speaker: %v", err)
	}

	p.streamer = streamer
	p.format = format
	p.baseRatio = float64(format.SampleRate) / float64(p.out.SampleRate())
	p.duration = format.SampleRate.D(streamer.Len()).Seconds()
	p.poster = poster
	p.handle = handles.Add(1)

	p.enqueue(true)
	p.logger.Printf("beep: loaded %s (%s, %d Hz)", filepath.Base(p.path), format.SampleRate.D(streamer.Len()), format.SampleRate)
	poster.PostState(engine.StateReady, 0, "")
	return p.handle, nil
}

// enqueue builds a fresh chain around the decoder and hands it to the output.
// A drained resampler cannot be restarted, hence the rebuild.
// Callers hold p.mu.
func (p *Player) enqueue(paused bool) {
	p.resampler = beep.ResampleRatio(p.cfg.ResampleQuality, p.baseRatio*p.rate, p.streamer)
	p.ctrl = &beep.Ctrl{Streamer: p.resampler, Paused: paused}
	p.pan = &effects.Pan{Streamer: p.ctrl, Pan: p.balance}
	p.volume = &effects.Volume{
		Streamer: p.pan,
		Base:     2,
		Volume:   levelToVolume(p.level),
		Silent:   p.muted || p.level <= 0,
	}
	p.queued.Store(true)
	p.out.Play(beep.Seq(p.volume, beep.Callback(p.ended)))
}

// rewire drops whatever the resampler buffered before a seek. Callers hold
// p.mu and the output lock.
func (p *Player) rewire() {
	p.resampler = beep.ResampleRatio(p.cfg.ResampleQuality, p.baseRatio*p.rate, p.streamer)
	p.ctrl.Streamer = p.resampler
}

// ended runs on the output goroutine with the output lock held.
func (p *Player) ended() {
	p.queued.Store(false)
	if p.disposed.Load() {
		return
	}
	p.poster.PostState(engine.StateFinished, p.duration, "")
}

// levelToVolume maps a 0..1 level onto beep's base-2 volume scale.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

func (p *Player) ready() error {
	if p.streamer == nil || p.disposed.Load() {
		return engine.NewMediaError(engine.CodeNotInitialized, "beep player not initialized")
	}
	return nil
}

// position reads the decoder position in seconds. Callers hold p.mu.
func (p *Player) position() float64 {
	p.out.Lock()
	pos := p.streamer.Position()
	p.out.Unlock()
	return p.format.SampleRate.D(pos).Seconds()
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}

	if p.queued.Load() {
		p.out.Lock()
		p.ctrl.Paused = false
		p.out.Unlock()
	} else {
		// drained at the end of the stream: start over
		if p.streamer.Position() >= p.streamer.Len() {
			if err := p.streamer.Seek(0); err != nil {
				return engine.NewMediaError(engine.CodeNativeFailure, "seek: %v", err)
			}
		}
		p.enqueue(false)
	}
	p.poster.PostState(engine.StatePlaying, p.position(), "")
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	p.out.Lock()
	p.ctrl.Paused = true
	p.out.Unlock()
	p.poster.PostState(engine.StatePaused, p.position(), "")
	return nil
}

func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	p.out.Lock()
	p.ctrl.Paused = true
	err := p.streamer.Seek(0)
	p.rewire()
	p.out.Unlock()
	if err != nil {
		return engine.NewMediaError(engine.CodeNativeFailure, "seek: %v", err)
	}
	if !p.queued.Load() {
		p.enqueue(true)
	}
	p.poster.PostState(engine.StateStopped, 0, "")
	return nil
}

// Finish moves to the end of the stream; FINISHED arrives from the output
// once it has drained.
func (p *Player) Finish() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	if !p.queued.Load() {
		p.poster.PostState(engine.StateFinished, p.duration, "")
		return nil
	}
	p.out.Lock()
	err := p.streamer.Seek(p.streamer.Len())
	p.rewire()
	p.ctrl.Paused = false
	p.out.Unlock()
	if err != nil {
		return engine.NewMediaError(engine.CodeNativeFailure, "seek: %v", err)
	}
	return nil
}

func (p *Player) StepForward() error {
	return p.step(1)
}

func (p *Player) StepBackward() error {
	return p.step(-1)
}

func (p *Player) step(dir int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	if !p.queued.Load() {
		p.enqueue(true)
	}
	p.out.Lock()
	p.ctrl.Paused = true
	target := p.streamer.Position() + dir*p.format.SampleRate.N(FrameDuration)
	target = min(max(target, 0), max(p.streamer.Len()-1, 0))
	err := p.streamer.Seek(target)
	p.rewire()
	p.out.Unlock()
	if err != nil {
		return engine.NewMediaError(engine.CodeNativeFailure, "seek: %v", err)
	}
	p.poster.PostState(engine.StatePaused, p.format.SampleRate.D(target).Seconds(), "")
	return nil
}

func (p *Player) Rate() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return 0, err
	}
	return p.rate, nil
}

// SetRate changes the resampling ratio, which shifts pitch along with speed.
func (p *Player) SetRate(rate float64) error {
	if !p.IsRateSupported(rate) {
		return engine.NewMediaError(engine.CodeUnsupportedRate, "beep cannot play at %gx", rate)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	p.rate = rate
	p.out.Lock()
	p.resampler.SetRatio(p.baseRatio * rate)
	p.out.Unlock()
	return nil
}

func (p *Player) IsRateSupported(rate float64) bool {
	return rate >= minRate && rate <= maxRate
}

func (p *Player) IsSeekPlaybackEnabled() bool {
	return false
}

func (p *Player) PresentationTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return 0, err
	}
	return p.position(), nil
}

func (p *Player) FPS() (float64, error) {
	return float64(time.Second / FrameDuration), nil
}

func (p *Player) ImageWidth() (int, error) {
	return 0, engine.NewMediaError(engine.CodeUnsupportedOperation, "audio has no image")
}

func (p *Player) ImageHeight() (int, error) {
	return 0, engine.NewMediaError(engine.CodeUnsupportedOperation, "audio has no image")
}

func (p *Player) Mute() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted, p.ready()
}

func (p *Player) SetMute(mute bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	p.muted = mute
	p.applyVolume()
	return nil
}

func (p *Player) Volume() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, p.ready()
}

func (p *Player) SetVolume(volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	p.level = volume
	p.applyVolume()
	return nil
}

func (p *Player) applyVolume() {
	p.out.Lock()
	p.volume.Volume = levelToVolume(p.level)
	p.volume.Silent = p.muted || p.level <= 0
	p.out.Unlock()
}

func (p *Player) Balance() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, p.ready()
}

func (p *Player) SetBalance(balance float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	p.balance = balance
	p.out.Lock()
	p.pan.Pan = balance
	p.out.Unlock()
	return nil
}

func (p *Player) Duration() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return 0, err
	}
	return p.duration, nil
}

func (p *Player) StartTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startTime, p.ready()
}

func (p *Player) SetStartTime(t float64) error {
	p.mu.Lock()
	p.startTime = t
	p.mu.Unlock()
	return p.Seek(t)
}

func (p *Player) Seek(t float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ready(); err != nil {
		return err
	}
	n := p.format.SampleRate.N(time.Duration(t * float64(time.Second)))
	p.out.Lock()
	n = min(max(n, 0), p.streamer.Len())
	err := p.streamer.Seek(n)
	if p.queued.Load() {
		p.rewire()
	}
	p.out.Unlock()
	if err != nil {
		return engine.NewMediaError(engine.CodeNativeFailure, "seek: %v", err)
	}
	return nil
}

// Dispose detaches the chain from the output and closes the decoder.
func (p *Player) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil || !p.disposed.CompareAndSwap(false, true) {
		return nil
	}
	p.out.Lock()
	if p.ctrl != nil {
		p.ctrl.Streamer = nil
	}
	p.out.Unlock()

	err := p.streamer.Close()
	if p.file != nil {
		p.file.Close()
	}
	if err != nil {
		return engine.NewMediaError(engine.CodeNativeFailure, "close: %v", err)
	}
	return nil
}
