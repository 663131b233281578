package diagnostics

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives one emitted event.
type Handler func(id EventID, fields []zap.Field)

// Dispatcher fans events out to handlers registered per event, and to every
// handler registered with RegisterAll. Handlers run on the emitting goroutine
// and must not block.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventID][]Handler
	all      []Handler
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventID][]Handler)}
}

// Register adds a handler for one event.
func (d *Dispatcher) Register(id EventID, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[id] = append(d.handlers[id], h)
}

// RegisterAll adds a handler for every event.
func (d *Dispatcher) RegisterAll(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, h)
}

// Subscribe forwards every event to e.
func (d *Dispatcher) Subscribe(e Emitter) {
	d.RegisterAll(func(id EventID, fields []zap.Field) {
		e.Emit(id, fields...)
	})
}

// Emit implements Emitter. A panicking handler is skipped so the remaining
// handlers still run.
func (d *Dispatcher) Emit(id EventID, fields ...zap.Field) {
	d.mu.RLock()
	targeted := d.handlers[id]
	all := d.all
	d.mu.RUnlock()

	for _, h := range all {
		safeCall(h, id, fields)
	}
	for _, h := range targeted {
		safeCall(h, id, fields)
	}
}

func safeCall(h Handler, id EventID, fields []zap.Field) {
	defer func() { _ = recover() }()
	h(id, fields)
}

// Counter tallies events by name.
type Counter struct {
	mu     sync.Mutex
	counts map[EventID]int64
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[EventID]int64)}
}

// Emit implements Emitter.
func (c *Counter) Emit(id EventID, _ ...zap.Field) {
	c.mu.Lock()
	c.counts[id]++
	c.mu.Unlock()
}

// Snapshot returns the current counts keyed by event name.
func (c *Counter) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for id, n := range c.counts {
		out[id.String()] = n
	}
	return out
}
