// Package timer implements the rest countdown run between sets.
//
// A Timer is a small state machine (Idle, Running, Paused, Expired) driven by
// an injected Scheduler, so production code ticks once per second while tests
// advance a ManualScheduler by hand. Expired is sticky: it stays until Skip,
// Dismiss or a new Start.
package timer

import (
	"sync"
	"time"
)

// Status is the run state of a Timer.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusExpired Status = "expired"
)

// tickInterval is the countdown resolution.
const tickInterval = time.Second

// State is a point-in-time copy of a Timer.
type State struct {
	Status    Status `json:"status"`
	Remaining int    `json:"remaining_seconds"`
	Total     int    `json:"total_seconds"`
	// Owner identifies the set the countdown was started for.
	Owner int64 `json:"owner,omitempty"`
}

// Notifier is told when a countdown reaches zero.
type Notifier interface {
	OnTimerExpired()
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func()

// OnTimerExpired implements Notifier.
func (f NotifierFunc) OnTimerExpired() { f() }

// Timer is a rest countdown. All methods are safe for concurrent use.
// Callbacks run after the internal lock is released.
type Timer struct {
	sched    Scheduler
	notifier Notifier

	mu       sync.Mutex
	state    State
	task     Task
	gen      uint64
	stopped  bool
	onChange func(State)
}

// New creates an idle Timer. A nil notifier is allowed.
func New(sched Scheduler, notifier Notifier) *Timer {
	if sched == nil {
		sched = TickerScheduler{}
	}
	return &Timer{sched: sched, notifier: notifier, state: State{Status: StatusIdle}}
}

// OnChange registers fn to be called with the new state after every
// transition or adjustment, including ticks.
func (t *Timer) OnChange(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start begins a countdown of seconds for owner, superseding any countdown
// in progress. A non-positive duration leaves the timer idle.
func (t *Timer) Start(owner int64, seconds int) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.cancelTask()
	if seconds <= 0 {
		t.state = State{Status: StatusIdle}
	} else {
		t.state = State{Status: StatusRunning, Remaining: seconds, Total: seconds, Owner: owner}
		t.schedule()
	}
	t.unlockAndNotify(false)
}

// Pause freezes a running countdown.
func (t *Timer) Pause() {
	t.mu.Lock()
	if t.state.Status != StatusRunning {
		t.mu.Unlock()
		return
	}
	t.cancelTask()
	t.state.Status = StatusPaused
	t.unlockAndNotify(false)
}

// Resume continues a paused countdown.
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.state.Status != StatusPaused || t.stopped {
		t.mu.Unlock()
		return
	}
	t.state.Status = StatusRunning
	t.schedule()
	t.unlockAndNotify(false)
}

// Skip abandons the countdown and returns to idle.
func (t *Timer) Skip() {
	t.mu.Lock()
	if t.state.Status == StatusIdle {
		t.mu.Unlock()
		return
	}
	t.cancelTask()
	t.state = State{Status: StatusIdle}
	t.unlockAndNotify(false)
}

// Dismiss acknowledges an expired countdown. It is a no-op in other states.
func (t *Timer) Dismiss() {
	t.mu.Lock()
	if t.state.Status != StatusExpired {
		t.mu.Unlock()
		return
	}
	t.state = State{Status: StatusIdle}
	t.unlockAndNotify(false)
}

// AddTime extends a running or paused countdown.
func (t *Timer) AddTime(seconds int) {
	t.adjust(seconds)
}

// SubtractTime shortens a running or paused countdown. Reaching zero
// expires it.
func (t *Timer) SubtractTime(seconds int) {
	t.adjust(-seconds)
}

// Stop cancels the tick source and makes the timer inert. Used on teardown.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.cancelTask()
	t.stopped = true
	changed := t.state.Status != StatusIdle
	t.state = State{Status: StatusIdle}
	if !changed {
		t.mu.Unlock()
		return
	}
	t.unlockAndNotify(false)
}

func (t *Timer) adjust(delta int) {
	t.mu.Lock()
	if t.state.Status != StatusRunning && t.state.Status != StatusPaused {
		t.mu.Unlock()
		return
	}
	t.state.Remaining += delta
	if t.state.Remaining > t.state.Total {
		t.state.Total = t.state.Remaining
	}
	expired := false
	if t.state.Remaining <= 0 {
		t.expire()
		expired = true
	}
	t.unlockAndNotify(expired)
}

func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state.Status != StatusRunning {
		t.mu.Unlock()
		return
	}
	t.state.Remaining--
	expired := false
	if t.state.Remaining <= 0 {
		t.expire()
		expired = true
	}
	t.unlockAndNotify(expired)
}

// expire must be called with mu held.
func (t *Timer) expire() {
	t.cancelTask()
	t.state.Remaining = 0
	t.state.Status = StatusExpired
}

// schedule must be called with mu held.
func (t *Timer) schedule() {
	t.gen++
	gen := t.gen
	t.task = t.sched.Every(tickInterval, func() { t.tick(gen) })
}

// cancelTask must be called with mu held. Bumping gen invalidates a tick
// that raced with the cancellation.
func (t *Timer) cancelTask() {
	if t.task != nil {
		t.task.Cancel()
		t.task = nil
	}
	t.gen++
}

// unlockAndNotify releases mu, then runs the change callback and, when
// expired is set, the notifier.
func (t *Timer) unlockAndNotify(expired bool) {
	state, onChange, notifier := t.state, t.onChange, t.notifier
	t.mu.Unlock()
	if onChange != nil {
		onChange(state)
	}
	if expired && notifier != nil {
		notifier.OnTimerExpired()
	}
}
