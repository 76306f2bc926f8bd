// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpvplayer

import (
	"errors"
	"fmt"

	"github.com/spezifisch/vplay/engine"
	"github.com/supersonic-app/go-mpv"
)

var errNilValue = errors.New("nil value")

func (p *Player) getPropertyInt64(name string) (int64, error) {
	value, err := p.instance.GetProperty(name, mpv.FORMAT_INT64)
	if err != nil {
		return 0, wrap(name, err)
	} else if value == nil {
		return 0, wrap(name, errNilValue)
	}
	return value.(int64), nil
}

func (p *Player) getPropertyBool(name string) (bool, error) {
	value, err := p.instance.GetProperty(name, mpv.FORMAT_FLAG)
	if err != nil {
		return false, wrap(name, err)
	} else if value == nil {
		return false, wrap(name, errNilValue)
	}
	return value.(bool), nil
}

func (p *Player) getPropertyFloat64(name string) (float64, error) {
	value, err := p.instance.GetProperty(name, mpv.FORMAT_DOUBLE)
	if err != nil {
		return 0, wrap(name, err)
	} else if value == nil {
		return 0, wrap(name, errNilValue)
	}
	return value.(float64), nil
}

func (p *Player) setProperty(name string, format mpv.Format, value interface{}) error {
	return wrap(name, p.instance.SetProperty(name, format, value))
}

func (p *Player) command(args ...string) error {
	if err := p.instance.Command(args); err != nil {
		return wrap(args[0], err)
	}
	return nil
}

// wrap turns an mpv failure into a media error naming what failed.
func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return &engine.MediaError{
		Code:        engine.CodeNativeFailure,
		Description: fmt.Sprintf("mpv %s: %v", what, err),
	}
}
