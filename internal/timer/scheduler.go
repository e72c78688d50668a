package timer

import (
	"sort"
	"sync"
	"time"
)

// Task is a scheduled repeating callback.
type Task interface {
	// Cancel stops future invocations. It does not wait for an invocation
	// already in flight.
	Cancel()
}

// Scheduler runs fn every interval until the returned task is cancelled.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// TickerScheduler runs each task on its own goroutine driven by a
// time.Ticker.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(interval time.Duration, fn func()) Task {
	t := &tickerTask{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTask struct {
	once sync.Once
	stop chan struct{}
}

func (t *tickerTask) Cancel() {
	t.once.Do(func() { close(t.stop) })
}

// ManualScheduler fires tasks only when Tick is called. Tests use it to
// advance time deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	next  int
	tasks map[int]func()
}

// NewManualScheduler creates a ManualScheduler with no tasks.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]func())}
}

// Every implements Scheduler. The interval is ignored; each Tick counts as
// one interval.
func (m *ManualScheduler) Every(_ time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.tasks[m.next] = fn
	return &manualTask{sched: m, id: m.next}
}

// Tick fires every active task n times, in the order they were scheduled.
// A task cancelled during a tick does not fire again; a task scheduled
// during a tick first fires on the next one.
func (m *ManualScheduler) Tick(n int) {
	for range n {
		m.mu.Lock()
		ids := make([]int, 0, len(m.tasks))
		for id := range m.tasks {
			ids = append(ids, id)
		}
		m.mu.Unlock()
		sort.Ints(ids)

		for _, id := range ids {
			m.mu.Lock()
			fn, ok := m.tasks[id]
			m.mu.Unlock()
			if ok {
				fn()
			}
		}
	}
}

// Active returns the number of tasks that have not been cancelled.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

type manualTask struct {
	sched *ManualScheduler
	id    int
}

func (t *manualTask) Cancel() {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	delete(t.sched.tasks, t.id)
}
