// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package beepplayer

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// output is where the player's streamer chain is mixed. Lock guards every
// change to streamers that are currently being played.
type output interface {
	Init(sr beep.SampleRate) error
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

// speakerOutput is the process-wide beep speaker, opened once at the rate of
// the first file played.
type speakerOutput struct {
	mu          sync.Mutex
	initialized bool
	sampleRate  beep.SampleRate
}

var defaultOutput = &speakerOutput{}

func (s *speakerOutput) Init(sr beep.SampleRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return err
	}
	s.initialized = true
	s.sampleRate = sr
	return nil
}

func (s *speakerOutput) SampleRate() beep.SampleRate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

func (s *speakerOutput) Play(st beep.Streamer) { speaker.Play(st) }
func (s *speakerOutput) Lock()                 { speaker.Lock() }
func (s *speakerOutput) Unlock()               { speaker.Unlock() }
