// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

// Package settings persists the user-adjustable state of an engine (volume,
// mute, balance, rate, playback window and window size) as TOML.
package settings

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

var ErrDisposed = errors.New("settings: engine is disposed")

// Engine is what a Store reads from and writes to. *engine.Engine
// implements it.
type Engine interface {
	IsDisposed() bool

	UnmutedVolume() float64
	SetVolume(v float64)
	Mute() bool
	SetMute(enable bool)
	Balance() float64
	SetBalance(b float64)
	Rate() float64
	SetRate(r float64)
	StartTime() float64
	SetStartTime(t float64)
	StopTime() float64
	SetStopTime(t float64)
}

// Window is implemented by window-backed engines; their size is persisted too.
type Window interface {
	WindowWidth() int
	WindowHeight() int
	SetWindowSize(width, height int)
}

type Store struct {
	engine Engine
}

func Bind(e Engine) *Store {
	return &Store{engine: e}
}

type windowDoc struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type document struct {
	Volume    float64    `toml:"volume"`
	Mute      bool       `toml:"mute"`
	Balance   float64    `toml:"balance"`
	Rate      float64    `toml:"rate"`
	StartTime float64    `toml:"start_time"`
	StopTime  *float64   `toml:"stop_time,omitempty"`
	Window    *windowDoc `toml:"window,omitempty"`
}

// StoreSettings writes the current engine settings to w.
func (s *Store) StoreSettings(w io.Writer) error {
	if s.engine.IsDisposed() {
		return ErrDisposed
	}
	doc := document{
		Volume:    s.engine.UnmutedVolume(),
		Mute:      s.engine.Mute(),
		Balance:   s.engine.Balance(),
		Rate:      s.engine.Rate(),
		StartTime: s.engine.StartTime(),
	}
	if stop := s.engine.StopTime(); !math.IsInf(stop, 1) {
		doc.StopTime = &stop
	}
	if win, ok := s.engine.(Window); ok {
		if width, height := win.WindowWidth(), win.WindowHeight(); width > 0 && height > 0 {
			doc.Window = &windowDoc{Width: width, Height: height}
		}
	}

	enc := toml.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	return nil
}

// LoadSettings applies the settings read from r. Keys missing from the input
// leave the engine untouched; the whole input is validated before anything
// is applied.
func (s *Store) LoadSettings(r io.Reader) error {
	if s.engine.IsDisposed() {
		return ErrDisposed
	}
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(r); err != nil {
		return fmt.Errorf("settings: read: %w", err)
	}

	var apply []func()
	floatKey := func(key string, set func(float64)) error {
		if !v.IsSet(key) {
			return nil
		}
		f, err := cast.ToFloat64E(v.Get(key))
		if err != nil {
			return fmt.Errorf("settings: %s: %w", key, err)
		}
		apply = append(apply, func() { set(f) })
		return nil
	}

	// volume before mute, so muting caches the stored volume
	for _, k := range []struct {
		key string
		set func(float64)
	}{
		{"volume", s.engine.SetVolume},
		{"balance", s.engine.SetBalance},
		{"rate", s.engine.SetRate},
		{"start_time", s.engine.SetStartTime},
		{"stop_time", s.engine.SetStopTime},
	} {
		if err := floatKey(k.key, k.set); err != nil {
			return err
		}
	}

	if v.IsSet("mute") {
		m, err := cast.ToBoolE(v.Get("mute"))
		if err != nil {
			return fmt.Errorf("settings: mute: %w", err)
		}
		apply = append(apply, func() { s.engine.SetMute(m) })
	}

	if win, ok := s.engine.(Window); ok && v.IsSet("window.width") && v.IsSet("window.height") {
		width, err := cast.ToIntE(v.Get("window.width"))
		if err != nil {
			return fmt.Errorf("settings: window.width: %w", err)
		}
		height, err := cast.ToIntE(v.Get("window.height"))
		if err != nil {
			return fmt.Errorf("settings: window.height: %w", err)
		}
		if width > 0 && height > 0 {
			apply = append(apply, func() { win.SetWindowSize(width, height) })
		}
	}

	for _, fn := range apply {
		fn()
	}
	return nil
}
