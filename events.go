package ecs

import (
	"reflect"
	"sync"

	"github.com/ashgrove/ecsframe/ecslog"
)

// eventRecord pairs a boxed event value with the frame it was written in,
// so advanceFrame can identify and drop whole frames of stale events.
type eventRecord struct {
	frame uint64
	value any
}

// eventQueue is a single event type's double-buffered FIFO: a single
// growing slice addressed by a monotonic sequence number, with the
// oldest frame's records trimmed off the front once retention expires.
// A plain slice plays the role of the "double buffer" spec.md describes,
// since readers address records by absolute sequence number rather than
// by buffer generation — rotation is just trimming the front.
type eventQueue struct {
	mu            sync.Mutex
	records       []eventRecord
	baseSeq       uint64
	frame         uint64
	retention     int
	droppedOnce   bool
	log           *ecslog.Logger
}

func (q *eventQueue) write(v any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records = append(q.records, eventRecord{frame: q.frame, value: v})
}

// advanceFrame rotates the queue: called once per frame by the
// scheduler. Frames older than retention are dropped without logging; a
// reader that had not yet consumed a dropped record skips past it on its
// next Read, which logs a single warning the first time this happens for
// this queue.
func (q *eventQueue) advanceFrame() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frame++
	if q.frame < uint64(q.retention) {
		return
	}
	cutoff := q.frame - uint64(q.retention)
	i := 0
	for i < len(q.records) && q.records[i].frame < cutoff {
		i++
	}
	if i > 0 {
		q.baseSeq += uint64(i)
		q.records = q.records[i:]
	}
}

// EventReader reads events of type T from a World via a per-reader
// cursor recording the last sequence number consumed. Zero value is not
// usable; construct with NewEventReader.
type EventReader[T any] struct {
	q       *eventQueue
	nextSeq uint64
}

// NewEventReader returns a reader positioned at the front of world's
// queue for event type T: its first Read returns every retained event,
// including those written before the reader was created.
func NewEventReader[T any](world *World) *EventReader[T] {
	return &EventReader[T]{q: world.events.queueFor(reflect.TypeOf((*T)(nil)).Elem())}
}

// Read drains every event the reader has not yet consumed, advancing its
// cursor. If events were dropped before this reader caught up, the
// reader silently fast-forwards to the oldest retained record and a
// warning is logged once for the queue.
func (r *EventReader[T]) Read() []T {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	if r.nextSeq < r.q.baseSeq {
		if !r.q.droppedOnce && r.q.log != nil {
			r.q.log.Warn("event reader missed events dropped by retention", "missed", r.q.baseSeq-r.nextSeq)
			r.q.droppedOnce = true
		}
		r.nextSeq = r.q.baseSeq
	}

	start := r.nextSeq - r.q.baseSeq
	if start >= uint64(len(r.q.records)) {
		return nil
	}
	out := make([]T, 0, uint64(len(r.q.records))-start)
	for _, rec := range r.q.records[start:] {
		out = append(out, rec.value.(T))
	}
	r.nextSeq = r.q.baseSeq + uint64(len(r.q.records))
	return out
}

// EventWriter appends events of type T to a World's queue.
type EventWriter[T any] struct {
	q *eventQueue
}

// NewEventWriter returns a writer for event type T on world.
func NewEventWriter[T any](world *World) EventWriter[T] {
	return EventWriter[T]{q: world.events.queueFor(reflect.TypeOf((*T)(nil)).Elem())}
}

// Send appends v to the event queue; it becomes visible to readers
// immediately, with no frame delay.
func (w EventWriter[T]) Send(v T) {
	w.q.write(v)
}

// eventRegistry owns one eventQueue per registered event type, keyed by
// its reflect.Type the same way component.go and the teacher's
// factory.go key registered element types by reflect.Type.
type eventRegistry struct {
	mu        sync.Mutex
	queues    map[reflect.Type]*eventQueue
	retention int
	log       *ecslog.Logger
}

func newEventRegistry(retention int) *eventRegistry {
	if retention < 1 {
		retention = 1
	}
	return &eventRegistry{
		queues:    make(map[reflect.Type]*eventQueue),
		retention: retention,
		log:       ecslog.Default(),
	}
}

func (r *eventRegistry) queueFor(t reflect.Type) *eventQueue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[t]
	if !ok {
		q = &eventQueue{retention: r.retention, log: r.log}
		r.queues[t] = q
	}
	return q
}

// AdvanceFrame rotates every registered event queue. The scheduler calls
// this once per frame, conventionally at the end of the PostUpdate
// stage.
func (r *eventRegistry) AdvanceFrame() {
	r.mu.Lock()
	queues := make([]*eventQueue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()
	for _, q := range queues {
		q.advanceFrame()
	}
}
