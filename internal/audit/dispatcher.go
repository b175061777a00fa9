package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of making
	// the caller wait for room.
	DropIfFull bool
}

// Dispatcher forwards engine audit events to a Sink on one goroutine, in
// emission order. Every event handed to Emit is either delivered to the
// sink or counted by Dropped.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	events     chan Event
	// stopping releases callers blocked on a full buffer during Close.
	stopping chan struct{}

	// mu guards closed and every send on events, so events is never
	// closed under a sender.
	mu     sync.RWMutex
	closed bool

	dropped   atomic.Uint64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher. A disabled config yields nil, which
// accepts and ignores every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		events:     make(chan Event, cfg.BufferSize),
		stopping:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.events {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. It drops and counts the event when the dispatcher is
// closed, when the buffer is full under DropIfFull, or when ctx ends while
// waiting for room.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}
	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stopping:
		d.dropped.Add(1)
	}
}

// Close stops accepting events, waits for the queued ones to reach the
// sink and returns. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.stopping)
		d.mu.Lock()
		d.closed = true
		close(d.events)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

// Dropped reports how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
