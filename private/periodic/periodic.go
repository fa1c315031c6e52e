// Copyright 2026 R5Valkyrie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package periodic runs tasks on a fixed schedule with explicit
// cancellation handles. Tests can substitute the Ticker to drive ticks
// deterministically instead of relying on wall-clock timers.
package periodic

import (
	"context"
	"time"

	"github.com/r5valkyrie/master-server-sub000/pkg/log"
)

// Ticker interface to improve testability of this periodic task code.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type defaultTicker struct {
	*time.Ticker
}

func (t *defaultTicker) Chan() <-chan time.Time {
	return t.C
}

// NewTicker returns a new Ticker with time.Ticker as implementation.
func NewTicker(d time.Duration) Ticker {
	return &defaultTicker{Ticker: time.NewTicker(d)}
}

// Task is a piece of work that is executed periodically.
type Task interface {
	// Name returns the tasks name, used for logging.
	Name() string
	// Run executes the task once, it should return within the context's
	// timeout.
	Run(context.Context)
}

// Runner runs a task periodically.
type Runner struct {
	task         Task
	ticker       Ticker
	timeout      time.Duration
	stop         chan struct{}
	loopFinished chan struct{}
	ctx          context.Context
	cancelF      context.CancelFunc
	trigger      chan struct{}
}

// Start creates and starts a new Runner to run the given task periodically.
// The ticker regulates the periodicity. The timeout bounds a single
// execution of the task; it may be larger than the tick period.
func Start(task Task, ticker Ticker, timeout time.Duration) *Runner {
	ctx, cancelF := context.WithCancel(context.Background())
	runner := &Runner{
		task:         task,
		ticker:       ticker,
		timeout:      timeout,
		stop:         make(chan struct{}),
		loopFinished: make(chan struct{}),
		ctx:          ctx,
		cancelF:      cancelF,
		trigger:      make(chan struct{}),
	}
	go func() {
		defer log.HandlePanic()
		runner.runLoop()
	}()
	return runner
}

// Stop stops the periodic execution of the Runner. If the task is
// currently running, Stop blocks until it is done.
func (r *Runner) Stop() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	<-r.loopFinished
}

// Kill is like Stop but it also cancels the context of a currently running
// task.
func (r *Runner) Kill() {
	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.cancelF()
	<-r.loopFinished
}

// TriggerRun triggers the task to run now. This does not affect the normal
// periodicity: with a period of 5m and a trigger after 2m, the next
// scheduled execution is still 3m out.
//
// The method blocks until either the triggered run was started or the
// runner was stopped, in which case the triggered run is not executed.
func (r *Runner) TriggerRun() {
	select {
	case <-r.stop:
	case r.trigger <- struct{}{}:
	}
}

func (r *Runner) runLoop() {
	defer close(r.loopFinished)
	defer r.cancelF()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.Chan():
			r.onTick()
		case <-r.trigger:
			r.onTick()
		}
	}
}

func (r *Runner) onTick() {
	select {
	// The stop case is evaluated first so that a concurrent Kill with both
	// channels ready always wins.
	case <-r.stop:
		return
	default:
		ctx, cancelF := context.WithTimeout(r.ctx, r.timeout)
		defer cancelF()
		ctx = log.CtxWith(ctx, log.New("task", r.task.Name()))
		r.task.Run(ctx)
	}
}
