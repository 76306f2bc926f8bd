// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package engine

import (
	"fmt"
	"sync"

	"github.com/spezifisch/vplay/logger"
)

// dispatcher is the single worker that turns queued events into listener
// callbacks. Posting never blocks: the queue is unbounded.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	stopped bool

	startOnce sync.Once
	done      chan struct{}

	handle func(Event)
	logger logger.LoggerInterface
}

func newDispatcher(handle func(Event), logger logger.LoggerInterface) *dispatcher {
	d := &dispatcher{
		done:   make(chan struct{}),
		handle: handle,
		logger: logger,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *dispatcher) start() {
	d.startOnce.Do(func() {
		go d.loop()
	})
}

// post enqueues e. It reports false once the loop has been terminated.
func (d *dispatcher) post(e Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	d.queue = append(d.queue, e)
	d.cond.Signal()
	return true
}

// terminate stops dispatching and wakes a pending take with a sentinel. It
// does not wait for the loop, as a listener may be the caller.
func (d *dispatcher) terminate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	d.queue = append(d.queue, wakeEvent{})
	d.cond.Signal()
}

// take blocks until an event is queued.
func (d *dispatcher) take() (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.queue) == 0 {
		d.cond.Wait()
	}
	e := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return e, d.stopped
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		e, stopped := d.take()
		if stopped {
			d.drain()
			return
		}
		if _, ok := e.(wakeEvent); ok {
			continue
		}
		d.handle(e)
	}
}

// drain discards what is left without dispatching it.
func (d *dispatcher) drain() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := len(d.queue); n > 0 {
		d.logger.Debugf("dispatcher: dropping %d events after stop", n)
	}
	d.queue = nil
}

func (d *dispatcher) isStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

// safely runs one listener callback unless the loop was terminated in the
// meantime. A panic is logged and swallowed so the remaining listeners still
// run.
func (d *dispatcher) safely(what string, fn func()) {
	if d.isStopped() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.PrintError("dispatcher", fmt.Errorf("%s listener panicked: %v", what, r))
		}
	}()
	fn()
}
