// Package eventloop implements the single-threaded cooperative scheduler
// that linearizes every mutation of the operator graph and scene: a FIFO
// queue of callables, drained by one dedicated logic goroutine, with
// async work re-entering as a scheduled follow-up event rather than a
// nested call.
package eventloop

import (
	"context"
	"sync"

	"github.com/lyzr/notf/common/logger"
)

// Event is one unit of work dequeued and run inline by the Loop.
type Event func(ctx context.Context)

// Loop is the logic thread: it owns a FIFO queue and runs exactly one
// Event at a time, in enqueue order, until Shutdown.
type Loop struct {
	log *logger.Logger

	mu       sync.Mutex
	queue    []Event
	wake     chan struct{}
	shutdown chan struct{}
	done     chan struct{}
}

// New creates a Loop. Nothing runs until Run is called.
func New(log *logger.Logger) *Loop {
	return &Loop{
		log:      log,
		wake:     make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Schedule enqueues fn. Safe to call from any goroutine — this is the
// re-entry point async operator work (operator.Runtime.Schedule) and
// external hosts (facts, ticks) both use to get back onto the logic
// thread. It satisfies operator.Scheduler.
func (l *Loop) Schedule(fn func()) {
	l.ScheduleEvent(func(context.Context) { fn() })
}

// ScheduleEvent enqueues an Event that receives the Loop's run context.
func (l *Loop) ScheduleEvent(ev Event) {
	l.mu.Lock()
	l.queue = append(l.queue, ev)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run blocks, dispatching events strictly in enqueue order until the
// context is cancelled or Shutdown is called. Each event completes fully
// before the next is dequeued — the at-most-one-concurrent-mutation
// guarantee the operator graph and scene rely on.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		ev, ok := l.dequeue()
		if ok {
			ev(ctx)
			continue
		}
		select {
		case <-l.wake:
			continue
		case <-l.shutdown:
			l.log.Info("event loop shutting down, draining remaining events")
			l.drain(ctx)
			return
		case <-ctx.Done():
			l.log.Info("event loop context cancelled, draining remaining events")
			l.drain(ctx)
			return
		}
	}
}

// drain runs queued events until the queue is empty, including events
// scheduled while it drains; no queued event is dropped.
func (l *Loop) drain(ctx context.Context) {
	for {
		ev, ok := l.dequeue()
		if !ok {
			return
		}
		ev(ctx)
	}
}

func (l *Loop) dequeue() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	ev := l.queue[0]
	l.queue = l.queue[1:]
	return ev, true
}

// Shutdown signals Run to stop accepting new dispatch cycles after
// draining whatever is already queued, and blocks until it has.
func (l *Loop) Shutdown() {
	close(l.shutdown)
	<-l.done
}
