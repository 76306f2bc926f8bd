// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package clock drives playback at rates the native player cannot decode at,
// by seeking on a timer, and enforces the engine's stop time.
package clock

import (
	"math"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spezifisch/vplay/engine"
	"github.com/spezifisch/vplay/logger"
)

const DefaultInterval = 40 * time.Millisecond

// Target is the part of an engine the clock drives. *engine.Engine
// implements it.
type Target interface {
	State() engine.State
	IsSeekPlaybackEnabled() bool
	Rate() float64
	PresentationTime() float64
	StopTime() float64
	Seek(t float64)
	Pause()
}

var _ Target = (*engine.Engine)(nil)

type Driver struct {
	target   Target
	interval time.Duration
	logger   logger.LoggerInterface

	mu      sync.Mutex
	stop    chan struct{}
	wg      *conc.WaitGroup
	running bool

	// emulation anchor: position and wall time the current rate took effect
	anchored   bool
	anchorPos  float64
	anchorTime time.Time
	anchorRate float64
	lastTarget float64
	lastTick   time.Time
}

func New(target Target, interval time.Duration, logger logger.LoggerInterface) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Driver{
		target:   target,
		interval: interval,
		logger:   logger,
	}
}

func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.stop = make(chan struct{})
	d.wg = conc.NewWaitGroup()
	stop := d.stop
	d.wg.Go(func() { d.run(stop) })
	d.logger.Debugf("clock: started, interval %s", d.interval)
}

// Stop halts the timer and waits for a tick in progress.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stop)
	wg := d.wg
	d.mu.Unlock()

	wg.Wait()
	d.logger.Debugf("clock: stopped")
}

func (d *Driver) run(stop <-chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			d.tick(now)
		}
	}
}

func (d *Driver) tick(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := now.Sub(d.lastTick)
	if d.lastTick.IsZero() {
		elapsed = 0
	}
	d.lastTick = now

	if d.target.State() != engine.StatePlaying {
		d.anchored = false
		return
	}
	pos := d.target.PresentationTime()
	if pos < 0 {
		// disposed
		d.anchored = false
		return
	}

	stopAt := d.target.StopTime()
	if pos >= stopAt {
		d.logger.Debugf("clock: stop time %.3f reached", stopAt)
		d.target.Pause()
		d.anchored = false
		return
	}

	if !d.target.IsSeekPlaybackEnabled() {
		d.anchored = false
		return
	}
	r := d.target.Rate()
	if r == 1 || math.IsNaN(r) {
		d.anchored = false
		return
	}

	// The native player may keep running at 1x between our seeks, so allow
	// for that before deciding the position was moved by someone else.
	slack := elapsed.Seconds() + 0.5
	if !d.anchored || r != d.anchorRate || math.Abs(pos-d.lastTarget) > slack {
		d.anchored = true
		d.anchorPos = pos
		d.anchorTime = now
		d.anchorRate = r
		d.lastTarget = pos
		return
	}

	next := d.anchorPos + r*now.Sub(d.anchorTime).Seconds()
	switch {
	case next <= 0:
		d.target.Seek(0)
		d.target.Pause()
		d.anchored = false
	case next >= stopAt:
		d.target.Seek(stopAt)
		d.target.Pause()
		d.anchored = false
	default:
		d.target.Seek(next)
		d.lastTarget = next
	}
}
