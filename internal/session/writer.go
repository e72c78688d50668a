package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Op names, used in logs and persistence errors.
const (
	opUpsertSession  = "upsert session"
	opDeleteSession  = "delete session"
	opUpsertExercise = "upsert exercise"
	opDeleteExercise = "delete exercise"
	opUpsertSet      = "upsert set"
	opDeleteSet      = "delete set"
)

type rowKind int

const (
	rowNone rowKind = iota
	rowSession
	rowExercise
	rowSet
)

// rowKey identifies one persisted row of the session.
type rowKey struct {
	kind rowKind
	id   int64
}

// op is one queued store write. run must be self-contained: it captures the
// row as it was when the op was issued.
type op struct {
	key     rowKey
	name    string
	run     func(ctx context.Context, st Store) error
	barrier chan struct{}
}

// writer applies ops to the store one at a time in issue order on its own
// goroutine. The queue is unbounded so issuing never blocks.
type writer struct {
	store   Store
	log     *slog.Logger
	onError func(error)
	// rebuild returns fresh full-row ops for the given rows, built from
	// current memory.
	rebuild func(keys []rowKey) []op

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	queue  []op
	dirty  map[rowKey]struct{}
	closed bool
}

func newWriter(st Store, log *slog.Logger, onError func(error), rebuild func([]rowKey) []op) *writer {
	ctx, cancel := context.WithCancel(context.Background())
	w := &writer{
		store:   st,
		log:     log,
		onError: onError,
		rebuild: rebuild,
		ctx:     ctx,
		cancel:  cancel,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		dirty:   make(map[rowKey]struct{}),
	}
	go w.run()
	return w
}

// enqueue appends ops to the queue. Ops issued after close are dropped.
func (w *writer) enqueue(ops ...op) {
	if len(ops) == 0 {
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.queue = append(w.queue, ops...)
	w.mu.Unlock()
	w.signal()
}

func (w *writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// flush waits until every op issued before the call has been applied.
func (w *writer) flush(ctx context.Context) error {
	b := make(chan struct{})
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.queue = append(w.queue, op{barrier: b})
	w.mu.Unlock()
	w.signal()

	select {
	case <-b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting ops and waits for the queue to drain. If ctx expires
// first the in-flight write is cancelled and the rest are abandoned.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	already := w.closed
	w.closed = true
	w.mu.Unlock()
	if !already {
		w.signal()
	}

	select {
	case <-w.done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		<-w.done
		w.mu.Lock()
		left := 0
		for _, o := range w.queue {
			if o.barrier == nil {
				left++
			}
		}
		w.mu.Unlock()
		if left > 0 {
			return fmt.Errorf("%d workout writes not persisted: %w", left, ctx.Err())
		}
		return ctx.Err()
	}
}

// pendingDirty returns the number of rows awaiting reconciliation.
func (w *writer) pendingDirty() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirty)
}

func (w *writer) run() {
	defer close(w.done)
	defer w.releaseBarriers()
	for {
		o, ok := w.next()
		if !ok {
			return
		}
		w.exec(o)
	}
}

func (w *writer) next() (op, bool) {
	for {
		w.mu.Lock()
		if w.ctx.Err() != nil {
			w.mu.Unlock()
			return op{}, false
		}
		if len(w.queue) > 0 {
			o := w.queue[0]
			w.queue[0] = op{}
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return o, true
		}
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return op{}, false
		}
		select {
		case <-w.wake:
		case <-w.ctx.Done():
		}
	}
}

// releaseBarriers unblocks flush callers left in an abandoned queue.
func (w *writer) releaseBarriers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range w.queue {
		if o.barrier != nil {
			close(o.barrier)
		}
	}
}

func (w *writer) exec(o op) {
	if o.barrier != nil {
		close(o.barrier)
		return
	}
	if w.ctx.Err() != nil {
		return
	}
	if err := o.run(w.ctx, w.store); err != nil {
		w.fail(o, err)
		return
	}

	w.mu.Lock()
	if o.name == opDeleteSession {
		clear(w.dirty)
	}
	delete(w.dirty, o.key)
	keys := make([]rowKey, 0, len(w.dirty))
	for k := range w.dirty {
		keys = append(keys, k)
	}
	w.mu.Unlock()

	if len(keys) > 0 {
		w.reconcile(keys)
	}
}

// reconcile re-issues the dirty rows. Parents sort before children so
// foreign keys resolve.
func (w *writer) reconcile(keys []rowKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].id < keys[j].id
	})
	w.log.Info("reconciling workout rows after failed writes", "rows", len(keys))
	for _, o := range w.rebuild(keys) {
		if w.ctx.Err() != nil {
			return
		}
		if err := o.run(w.ctx, w.store); err != nil {
			w.fail(o, err)
			continue
		}
		w.mu.Lock()
		if o.name == opDeleteSession {
			clear(w.dirty)
		}
		delete(w.dirty, o.key)
		w.mu.Unlock()
	}
}

func (w *writer) fail(o op, err error) {
	w.mu.Lock()
	w.dirty[o.key] = struct{}{}
	w.mu.Unlock()
	w.log.Warn("persisting workout change failed", "op", o.name, "error", err)
	if w.onError != nil {
		w.onError(fmt.Errorf("%s: %w", o.name, err))
	}
}
