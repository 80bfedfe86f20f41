package application

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Dispatcher is the designated delivery context for observer notifications.
// UI front-ends typically supply one that runs callbacks on their main loop.
type Dispatcher interface {
	Dispatch(fn func())
}

// ImmediateDispatcher runs callbacks inline on the publishing goroutine.
type ImmediateDispatcher struct{}

// Dispatch runs fn immediately.
func (ImmediateDispatcher) Dispatch(fn func()) { fn() }

// SerialDispatcher runs callbacks one at a time, in submission order, on a
// single dedicated goroutine.
type SerialDispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// NewSerialDispatcher starts the delivery goroutine. Call Close to stop it.
func NewSerialDispatcher() *SerialDispatcher {
	d := &SerialDispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// Dispatch enqueues fn. It never blocks; callbacks submitted after Close are dropped.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, fn)
	d.cond.Signal()
}

// Close runs every queued callback and stops the delivery goroutine.
func (d *SerialDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
}

func (d *SerialDispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		runCallback(fn)
	}
}

func runCallback(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("observer callback panicked", "panic", v)
		}
	}()
	fn()
}

// Observable is a published value. Reads are synchronous; subscribers are
// notified through the Dispatcher with the value as of each mutation.
// Published slices are shared and must not be modified by readers.
//
// Every mutation takes a sequence number under the lock. A subscriber never
// receives a value older than one it has already been given, so on an
// ordered Dispatcher the last delivered value matches Get.
type Observable[T any] struct {
	mu       sync.RWMutex
	value    T
	loaded   bool
	resets   uint64
	seq      uint64
	subs     map[uint64]*subscription[T]
	nextID   uint64
	dispatch Dispatcher
}

type subscription[T any] struct {
	fn        func(T)
	delivered atomic.Uint64
}

// advance records seq as delivered, reporting false when a newer value has
// already gone out.
func (s *subscription[T]) advance(seq uint64) bool {
	for {
		cur := s.delivered.Load()
		if seq <= cur {
			return false
		}
		if s.delivered.CompareAndSwap(cur, seq) {
			return true
		}
	}
}

// NewObservable creates an empty Observable delivering through d.
func NewObservable[T any](d Dispatcher) *Observable[T] {
	if d == nil {
		d = ImmediateDispatcher{}
	}
	return &Observable[T]{subs: make(map[uint64]*subscription[T]), dispatch: d}
}

// Get returns the current value, or the zero value when empty.
func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Load returns the current value and whether one has been published since
// the last reset.
func (o *Observable[T]) Load() (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value, o.loaded
}

// Loaded reports whether a value has been published since the last reset.
func (o *Observable[T]) Loaded() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loaded
}

// Subscribe registers fn for future changes and returns a function that
// removes it.
func (o *Observable[T]) Subscribe(fn func(T)) (cancel func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	sub := &subscription[T]{fn: fn}
	sub.delivered.Store(o.seq)
	o.subs[id] = sub
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// epoch identifies the current reset generation, see publishAt.
func (o *Observable[T]) epoch() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.resets
}

func (o *Observable[T]) publish(v T) {
	o.mu.Lock()
	o.value = v
	o.loaded = true
	seq, subs := o.mutated()
	o.mu.Unlock()

	o.notify(subs, seq, v)
}

// publishAt publishes v only if the slot has not been reset since epoch.
// Loads that straddle a reset are discarded.
func (o *Observable[T]) publishAt(epoch uint64, v T) bool {
	o.mu.Lock()
	if o.resets != epoch {
		o.mu.Unlock()
		return false
	}
	o.value = v
	o.loaded = true
	seq, subs := o.mutated()
	o.mu.Unlock()

	o.notify(subs, seq, v)
	return true
}

func (o *Observable[T]) reset() {
	var zero T

	o.mu.Lock()
	o.value = zero
	o.loaded = false
	o.resets++
	seq, subs := o.mutated()
	o.mu.Unlock()

	o.notify(subs, seq, zero)
}

// mutated bumps the sequence number and snapshots the subscribers in
// registration order. Must be called with o.mu held.
func (o *Observable[T]) mutated() (uint64, []*subscription[T]) {
	o.seq++
	subs := make([]*subscription[T], 0, len(o.subs))
	for _, id := range slices.Sorted(maps.Keys(o.subs)) {
		subs = append(subs, o.subs[id])
	}
	return o.seq, subs
}

func (o *Observable[T]) notify(subs []*subscription[T], seq uint64, v T) {
	for _, sub := range subs {
		o.dispatch.Dispatch(func() {
			if sub.advance(seq) {
				sub.fn(v)
			}
		})
	}
}
