// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpvplayer

import (
	"github.com/spezifisch/vplay/engine"
	"github.com/supersonic-app/go-mpv"
)

// eventLoop pumps mpv events until Dispose or an mpv shutdown.
func (p *Player) eventLoop() {
	for {
		select {
		case <-p.quit:
			return
		default:
		}

		evt := p.instance.WaitEvent(0.25)
		if evt == nil {
			continue
		}
		if !p.handleEvent(evt) {
			return
		}
	}
}

// handleEvent translates one mpv event into engine states. It returns false
// once mpv has shut down.
func (p *Player) handleEvent(evt *mpv.Event) bool {
	switch evt.Event_Id {
	case mpv.EVENT_NONE, mpv.EVENT_IDLE:
		return true

	case mpv.EVENT_FILE_LOADED:
		p.mu.Lock()
		first := !p.loaded
		p.loaded = true
		p.mu.Unlock()
		if first {
			p.logger.Printf("mpv: loaded %s", p.path)
			p.poster.PostState(engine.StateReady, p.timePos(), "")
		}

	case mpv.EVENT_PROPERTY_CHANGE:
		if evt.Reply_Userdata >= keyBase {
			p.keyPressed(int(evt.Reply_Userdata - keyBase))
			return true
		}
		p.propertyChanged(evt.Reply_Userdata)

	case mpv.EVENT_END_FILE:
		// with keep-open, mpv only unloads the file on errors
		msg := "playback ended"
		if evt.Error != nil {
			msg = evt.Error.Error()
		}
		p.logger.Printf("mpv: end of file: %s", msg)
		p.poster.PostState(engine.StateHalted, p.timePos(), msg)

	case mpv.EVENT_SHUTDOWN:
		if !p.disposed.Load() {
			p.poster.PostState(engine.StateHalted, 0, "mpv shut down")
		}
		return false

	default:
		p.logger.Debugf("mpv: unhandled event id %v", evt.Event_Id)
	}
	return true
}

// propertyChanged re-reads the observed flags rather than decoding event
// data, and reports the state they add up to.
func (p *Player) propertyChanged(id uint64) {
	p.mu.Lock()
	loaded := p.loaded
	p.mu.Unlock()
	if !loaded {
		// initial values observed before the file is loaded
		return
	}

	switch id {
	case propPause:
		paused, err := p.getPropertyBool("pause")
		if err != nil {
			p.logger.PrintError("mpv pause", err)
			return
		}
		p.mu.Lock()
		p.paused = paused
		p.mu.Unlock()
		p.report()

	case propPausedForCache:
		stalled, err := p.getPropertyBool("paused-for-cache")
		if err != nil {
			p.logger.PrintError("mpv paused-for-cache", err)
			return
		}
		p.mu.Lock()
		changed := stalled != p.stalled
		p.stalled = stalled
		p.mu.Unlock()
		if changed {
			p.report()
		}

	case propEOFReached:
		eof, err := p.getPropertyBool("eof-reached")
		if err != nil {
			p.logger.PrintError("mpv eof-reached", err)
			return
		}
		if eof {
			p.mu.Lock()
			p.finished = true
			p.mu.Unlock()
			p.report()
		}
	}
}

func (p *Player) report() {
	p.mu.Lock()
	var state engine.State
	switch {
	case p.stopped:
		// Stop reported itself
		p.mu.Unlock()
		return
	case p.finished:
		state = engine.StateFinished
	case p.stalled:
		state = engine.StateStalled
	case p.paused:
		state = engine.StatePaused
	default:
		state = engine.StatePlaying
	}
	p.mu.Unlock()

	p.poster.PostState(state, p.timePos(), "")
}

func (p *Player) keyPressed(code int) {
	count, err := p.getPropertyInt64(keyProperty(code))
	if err != nil {
		p.logger.PrintError("mpv key", err)
		return
	}
	p.mu.Lock()
	last := p.keyCounts[code]
	p.keyCounts[code] = count
	p.mu.Unlock()
	if count <= last {
		// the initial value
		return
	}
	for i := last; i < count; i++ {
		p.poster.PostKey(p.handle, code)
	}
}

func (p *Player) timePos() float64 {
	t, err := p.getPropertyFloat64("time-pos")
	if err != nil {
		return 0
	}
	return t
}
