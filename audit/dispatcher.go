package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatcher decouples event emission from sink delivery through a bounded
// buffer and a single worker goroutine. Emit never blocks the caller: when
// the buffer is full the event is dropped and counted. The dispatcher
// itself satisfies [Sink], so services emit into it directly.
type Dispatcher struct {
	sink      Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher delivering into sink. A nil sink is
// replaced with [NoOpSink]; buffer is clamped to at least 1.
func NewDispatcher(sink Sink, buffer int) *Dispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		sink: sink,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit enqueues an event for asynchronous delivery, dropping it when the
// buffer is full or the dispatcher is closed.
func (d *Dispatcher) Emit(_ context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- event:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to a full buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close stops accepting events, drains the buffer, and waits for the
// worker to finish. Safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
