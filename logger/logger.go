// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger feeds log lines to the UI log page through Prints and mirrors them
// to a logrus backend. The zero value discards everything and never blocks.
type Logger struct {
	Prints chan string

	backend *logrus.Logger
	file    *os.File
}

// Options configure the logrus backend.
type Options struct {
	Level string // logrus level name, default "info"
	JSON  bool
	File  string // append to this file; empty means no file output
}

// New builds a Logger. When opts.File is set the file is opened for
// appending; otherwise backend output is discarded and only the UI channel
// receives lines.
func New(opts Options) (*Logger, error) {
	backend := logrus.New()
	backend.SetOutput(io.Discard)

	if opts.JSON {
		backend.SetFormatter(&logrus.JSONFormatter{})
	} else {
		backend.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	backend.SetLevel(level)

	l := &Logger{
		Prints:  make(chan string, 100),
		backend: backend,
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return l, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		backend.SetOutput(f)
	}
	return l, nil
}

// Backend exposes the logrus logger, e.g. for attaching fields.
func (l *Logger) Backend() *logrus.Logger {
	return l.backend
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Print(s string) {
	l.emit(logrus.InfoLevel, s)
}

func (l *Logger) Printf(s string, as ...interface{}) {
	l.emit(logrus.InfoLevel, fmt.Sprintf(s, as...))
}

// Debugf goes to the backend only; the UI log page shows info and above.
func (l *Logger) Debugf(s string, as ...interface{}) {
	if l.backend != nil {
		l.backend.Debugf(s, as...)
	}
}

func (l *Logger) PrintError(source string, err error) {
	if l.backend != nil {
		l.backend.WithField("source", source).Error(err)
	}
	l.send(fmt.Sprintf("Error(%s) -> %s", source, err.Error()))
}

func (l *Logger) emit(level logrus.Level, msg string) {
	if l.backend != nil {
		l.backend.Log(level, msg)
	}
	l.send(msg)
}

// send drops the line when nobody drains the channel fast enough.
func (l *Logger) send(msg string) {
	if l.Prints == nil {
		return
	}
	select {
	case l.Prints <- msg:
	default:
	}
}
