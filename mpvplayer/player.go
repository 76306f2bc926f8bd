// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package mpvplayer is a libmpv backend for the playback engine. mpv renders
// into its own window and reports back through an event pump goroutine.
package mpvplayer

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
	"github.com/supersonic-app/go-mpv"
)

// reply userdata of observed properties; key counters start at keyBase.
const (
	propPause uint64 = iota + 1
	propPausedForCache
	propEOFReached
	keyBase uint64 = 1 << 32
)

var handles atomic.Uintptr

type Player struct {
	path   string
	cfg    Config
	logger logger.LoggerInterface

	// newClient creates the mpv handle on Init
	newClient func() client
	instance  client

	poster engine.Poster
	handle uintptr

	mu        sync.Mutex
	loaded    bool
	paused    bool
	stopped   bool
	finished  bool
	stalled   bool
	balance   float64
	startTime float64
	keyCounts map[int]int64

	quit     chan struct{}
	pump     *conc.WaitGroup
	disposed atomic.Bool
}

var _ engine.WindowNative = (*Player)(nil)

func New(path string, cfg Config, logger logger.LoggerInterface) *Player {
	if cfg.Keys == nil {
		cfg.Keys = DefaultKeys()
	}
	return &Player{
		path:      path,
		cfg:       cfg,
		logger:    logger,
		newClient: func() client { return mpv.Create() },
		paused:    true,
		keyCounts: map[int]int64{},
	}
}

func (p *Player) Init(poster engine.Poster) (uintptr, error) {
	instance := p.newClient()

	options := map[string]string{
		"keep-open":              "always",
		"pause":                  "yes",
		"force-window":           "yes",
		"input-default-bindings": "no",
		"input-vo-keyboard":      "yes",
		"osc":                    "no",
	}
	if p.cfg.Width > 0 && p.cfg.Height > 0 {
		options["geometry"] = fmt.Sprintf("%dx%d", p.cfg.Width, p.cfg.Height)
	}
	for k, v := range p.cfg.Options {
		options[k] = v
	}
	for k, v := range options {
		if err := instance.SetOptionString(k, v); err != nil {
			instance.TerminateDestroy()
			return 0, wrap("option "+k, err)
		}
	}
	if err := instance.Initialize(); err != nil {
		instance.TerminateDestroy()
		return 0, wrap("initialize", err)
	}

	p.instance = instance
	p.poster = poster
	p.handle = handles.Add(1)

	observe := []struct {
		id     uint64
		name   string
		format mpv.Format
	}{
		{propPause, "pause", mpv.FORMAT_FLAG},
		{propPausedForCache, "paused-for-cache", mpv.FORMAT_FLAG},
		{propEOFReached, "eof-reached", mpv.FORMAT_FLAG},
	}
	for _, o := range observe {
		if err := instance.ObserveProperty(o.id, o.name, o.format); err != nil {
			p.logger.PrintError("mpv observe "+o.name, err)
		}
	}
	p.bindKeys()

	if err := p.command("loadfile", p.path); err != nil {
		instance.TerminateDestroy()
		p.instance = nil
		return 0, err
	}

	p.quit = make(chan struct{})
	p.pump = conc.NewWaitGroup()
	p.pump.Go(p.eventLoop)
	return p.handle, nil
}

// bindKeys routes each configured key to a user-data counter observed by the
// event loop, so key presses arrive as property changes.
func (p *Player) bindKeys() {
	for name, code := range p.cfg.Keys {
		prop := keyProperty(code)
		if err := p.setProperty(prop, mpv.FORMAT_INT64, int64(0)); err != nil {
			p.logger.PrintError("mpv keybind "+name, err)
			continue
		}
		if err := p.command("keybind", name, "add "+prop+" 1"); err != nil {
			p.logger.PrintError("mpv keybind "+name, err)
			continue
		}
		p.mu.Lock()
		p.keyCounts[code] = 0
		p.mu.Unlock()
		if err := p.instance.ObserveProperty(keyBase+uint64(code), prop, mpv.FORMAT_INT64); err != nil {
			p.logger.PrintError("mpv keybind "+name, err)
		}
	}
}

func keyProperty(code int) string {
	return fmt.Sprintf("user-data/vplay/key/%d", code)
}

func (p *Player) Dispose() error {
	if p.instance == nil || !p.disposed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.quit)
	p.pump.Wait()
	p.instance.TerminateDestroy()
	p.logger.Print("mpv: player destroyed")
	return nil
}

func (p *Player) ready() error {
	if p.instance == nil || p.disposed.Load() {
		return engine.NewMediaError(engine.CodeNotInitialized, "mpv player not initialized")
	}
	return nil
}

func (p *Player) Play() error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	rewind := p.finished
	p.stopped = false
	p.finished = false
	p.mu.Unlock()

	if rewind {
		if err := p.command("seek", "0", "absolute+exact"); err != nil {
			return err
		}
	}
	return p.setProperty("pause", mpv.FORMAT_FLAG, false)
}

func (p *Player) Pause() error {
	if err := p.ready(); err != nil {
		return err
	}
	return p.setProperty("pause", mpv.FORMAT_FLAG, true)
}

// Stop pauses and rewinds. mpv has no stopped state that keeps the file
// loaded, so STOPPED is reported from here.
func (p *Player) Stop() error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	p.stopped = true
	p.finished = false
	p.mu.Unlock()

	if err := p.setProperty("pause", mpv.FORMAT_FLAG, true); err != nil {
		return err
	}
	if err := p.command("seek", "0", "absolute+exact"); err != nil {
		return err
	}
	p.poster.PostState(engine.StateStopped, 0, "")
	return nil
}

func (p *Player) Finish() error {
	if err := p.ready(); err != nil {
		return err
	}
	if err := p.setProperty("pause", mpv.FORMAT_FLAG, true); err != nil {
		return err
	}
	return p.command("seek", "100", "absolute-percent+exact")
}

func (p *Player) StepForward() error {
	return p.step("frame-step")
}

func (p *Player) StepBackward() error {
	return p.step("frame-back-step")
}

// step pauses as a side effect; mpv only reports it if it was playing.
func (p *Player) step(cmd string) error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	wasPaused := p.paused
	p.stopped = false
	p.mu.Unlock()

	if err := p.command(cmd); err != nil {
		return err
	}
	if wasPaused {
		t, _ := p.getPropertyFloat64("time-pos")
		p.poster.PostState(engine.StatePaused, t, "")
	}
	return nil
}

func (p *Player) Rate() (float64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	return p.getPropertyFloat64("speed")
}

func (p *Player) SetRate(rate float64) error {
	if err := p.ready(); err != nil {
		return err
	}
	if !p.IsRateSupported(rate) {
		return engine.NewMediaError(engine.CodeUnsupportedRate, "mpv cannot play at %gx", rate)
	}
	return p.setProperty("speed", mpv.FORMAT_DOUBLE, rate)
}

// IsRateSupported covers mpv's speed range, forward only.
func (p *Player) IsRateSupported(rate float64) bool {
	return !p.cfg.SeekPlayback && rate >= 1.0/32 && rate <= 32
}

func (p *Player) IsSeekPlaybackEnabled() bool {
	return p.cfg.SeekPlayback
}

func (p *Player) PresentationTime() (float64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	return p.getPropertyFloat64("time-pos")
}

func (p *Player) FPS() (float64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	fps, err := p.getPropertyFloat64("container-fps")
	if err != nil || fps <= 0 {
		return p.getPropertyFloat64("estimated-vf-fps")
	}
	return fps, nil
}

func (p *Player) ImageWidth() (int, error) {
	return p.intProperty("width")
}

func (p *Player) ImageHeight() (int, error) {
	return p.intProperty("height")
}

func (p *Player) intProperty(name string) (int, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	v, err := p.getPropertyInt64(name)
	return int(v), err
}

func (p *Player) Mute() (bool, error) {
	if err := p.ready(); err != nil {
		return false, err
	}
	return p.getPropertyBool("mute")
}

func (p *Player) SetMute(mute bool) error {
	if err := p.ready(); err != nil {
		return err
	}
	return p.setProperty("mute", mpv.FORMAT_FLAG, mute)
}

// Volume maps mpv's 0..100 to 0..1.
func (p *Player) Volume() (float64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	v, err := p.getPropertyFloat64("volume")
	return v / 100, err
}

func (p *Player) SetVolume(volume float64) error {
	if err := p.ready(); err != nil {
		return err
	}
	return p.setProperty("volume", mpv.FORMAT_DOUBLE, volume*100)
}

func (p *Player) Balance() (float64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

// SetBalance pans with a labelled stereotools filter, replaced on every call.
func (p *Player) SetBalance(balance float64) error {
	if err := p.ready(); err != nil {
		return err
	}
	var err error
	if balance == 0 {
		err = p.command("af", "remove", "@vplay-balance")
	} else {
		err = p.command("af", "add", fmt.Sprintf("@vplay-balance:lavfi=[stereotools=balance_out=%.3f]", balance))
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.balance = balance
	p.mu.Unlock()
	return nil
}

func (p *Player) Duration() (float64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	d, err := p.getPropertyFloat64("duration")
	if err == nil && (d <= 0 || math.IsNaN(d)) {
		return 0, engine.NewMediaError(engine.CodeNativeFailure, "duration unknown")
	}
	return d, err
}

func (p *Player) StartTime() (float64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startTime, nil
}

// SetStartTime sets mpv's start option, which applies on the next load, and
// seeks there now.
func (p *Player) SetStartTime(t float64) error {
	if err := p.ready(); err != nil {
		return err
	}
	if err := p.setProperty("start", mpv.FORMAT_STRING, fmt.Sprintf("%.3f", t)); err != nil {
		return err
	}
	p.mu.Lock()
	p.startTime = t
	p.mu.Unlock()
	return p.Seek(t)
}

func (p *Player) Seek(t float64) error {
	if err := p.ready(); err != nil {
		return err
	}
	p.mu.Lock()
	p.finished = false
	p.mu.Unlock()
	return p.command("seek", fmt.Sprintf("%.3f", t), "absolute+exact")
}

func (p *Player) WindowWidth() (int, error) {
	return p.intProperty("osd-width")
}

func (p *Player) WindowHeight() (int, error) {
	return p.intProperty("osd-height")
}

func (p *Player) SetWindowSize(width, height int) error {
	if err := p.ready(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return engine.NewMediaError(engine.CodeUnsupportedOperation, "window size %dx%d", width, height)
	}
	return p.setProperty("geometry", mpv.FORMAT_STRING, fmt.Sprintf("%dx%d", width, height))
}

func (p *Player) ShowWindow() error {
	if err := p.ready(); err != nil {
		return err
	}
	return p.setProperty("window-minimized", mpv.FORMAT_FLAG, false)
}

func (p *Player) HideWindow() error {
	if err := p.ready(); err != nil {
		return err
	}
	return p.setProperty("window-minimized", mpv.FORMAT_FLAG, true)
}
