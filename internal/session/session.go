// Package session runs one live workout.
//
// A Session is the single authoritative in-memory view of the workout:
// every mutation is applied to memory first, published to subscribers as an
// immutable Snapshot and then handed to an ordered background writer. The
// engine never blocks on storage and never rolls back an edit because a
// write failed; failed rows are re-issued from memory after the next
// successful write.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/timer"
)

const defaultWorkoutName = "Workout"

// Options configures a Session. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Notifier is told when a rest countdown expires.
	Notifier  timer.Notifier
	Scheduler timer.Scheduler
	// DefaultRestSeconds applies to sets without a rest override.
	DefaultRestSeconds int
	// OnPersistError is called from the writer goroutine for every failed
	// store write. It must not block for long.
	OnPersistError func(error)
	Now            func() time.Time
	// Name is used for workouts started without a template.
	Name string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Scheduler == nil {
		o.Scheduler = timer.TickerScheduler{}
	}
	if o.DefaultRestSeconds <= 0 {
		o.DefaultRestSeconds = analytics.DefaultRestSeconds
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if strings.TrimSpace(o.Name) == "" {
		o.Name = defaultWorkoutName
	}
	return o
}

// SetKey addresses a set by its type and its 1-based number within that
// type inside one exercise.
type SetKey struct {
	Type   models.SetType `json:"type"`
	Number int            `json:"number"`
}

type exerciseEntry struct {
	id       int64
	name     string
	showRPE  bool
	note     string
	setIDs   []int64
	previous []models.SetLog
}

type setEntry struct {
	id          int64
	exerciseID  int64
	typ         models.SetType
	weight      *float64
	reps        *int
	rpe         *float64
	rest        *int
	completedAt *time.Time
}

type pendingRemoval struct {
	set        setEntry
	exerciseID int64
	position   int
}

// Session is a live workout. All methods are safe for concurrent use.
type Session struct {
	store Store
	opts  Options
	log   *slog.Logger
	timer *timer.Timer
	w     *writer

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup

	mu        sync.Mutex
	info      models.Session
	exercises []*exerciseEntry
	sets      map[int64]*setEntry
	nextID    int64
	pending   *pendingRemoval
	finished  bool
	cancelled bool
	closed    bool
	version   uint64
	subs      map[int]chan Snapshot
	nextSub   int
}

func newSession(ctx context.Context, st Store, opts Options, info models.Session) *Session {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		store:  st,
		opts:   opts,
		log:    opts.Logger.With("session", info.ID),
		ctx:    ctx,
		cancel: cancel,
		info:   info,
		sets:   make(map[int64]*setEntry),
		subs:   make(map[int]chan Snapshot),
	}
	s.timer = timer.New(opts.Scheduler, opts.Notifier)
	s.timer.OnChange(s.onTimerChange)
	s.w = newWriter(st, s.log, opts.OnPersistError, s.rebuild)
	return s
}

// Start begins a new workout, seeded from tmpl when it is not nil.
func Start(ctx context.Context, st Store, opts Options, tmpl *models.Template) (*Session, error) {
	if st == nil {
		return nil, fmt.Errorf("starting workout: nil store")
	}
	opts = opts.withDefaults()
	info := models.Session{
		ID:        uuid.New(),
		Name:      opts.Name,
		StartedAt: opts.Now().UTC(),
	}
	if tmpl != nil {
		id := tmpl.ID
		info.TemplateID = &id
		if tmpl.Name != "" {
			info.Name = tmpl.Name
		}
	}
	s := newSession(ctx, st, opts, info)

	s.mu.Lock()
	if tmpl != nil {
		for _, te := range tmpl.Exercises {
			ex := s.newExercise(te.ExerciseName)
			for _, ts := range te.Sets {
				typ := ts.Type
				if !typ.Valid() {
					typ = models.SetRegular
				}
				s.newSet(ex, len(ex.setIDs), &setEntry{
					typ:    typ,
					weight: clone(ts.Weight),
					reps:   clone(ts.Reps),
					rest:   clone(ts.RestSeconds),
				})
			}
		}
	}
	ops := append([]op{upsertSessionOp(s.info)}, s.allRowOps()...)
	s.w.enqueue(ops...)
	s.publishLocked()
	loads := s.exerciseNames()
	s.mu.Unlock()

	for id, name := range loads {
		s.loadPrevious(id, name)
	}
	s.log.Info("workout started", "name", info.Name, "exercises", len(loads))
	return s, nil
}

// Resume rebuilds a live session from a stored workout that has not been
// completed. The rest timer starts idle.
func Resume(ctx context.Context, st Store, opts Options, id uuid.UUID) (*Session, error) {
	if st == nil {
		return nil, fmt.Errorf("resuming workout: nil store")
	}
	d, err := st.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if d.Completed() {
		return nil, ErrFinished
	}
	opts = opts.withDefaults()
	s := newSession(ctx, st, opts, d.Session)

	s.mu.Lock()
	exercises := append([]models.ExerciseDetail(nil), d.Exercises...)
	sort.SliceStable(exercises, func(i, j int) bool { return exercises[i].Position < exercises[j].Position })
	for _, ed := range exercises {
		ex := &exerciseEntry{id: ed.ID, name: ed.ExerciseName, showRPE: ed.ShowRPE, note: ed.Note}
		s.exercises = append(s.exercises, ex)
		s.nextID = max(s.nextID, ed.ID)
		sets := append([]models.SetLog(nil), ed.Sets...)
		sort.SliceStable(sets, func(i, j int) bool { return sets[i].Position < sets[j].Position })
		for _, sl := range sets {
			typ := sl.Type
			if !typ.Valid() {
				typ = models.SetRegular
			}
			e := &setEntry{
				id:          sl.ID,
				exerciseID:  ex.id,
				typ:         typ,
				weight:      sl.Weight,
				reps:        sl.Reps,
				rpe:         sl.RPE,
				rest:        sl.RestSeconds,
				completedAt: sl.CompletedAt,
			}
			s.sets[e.id] = e
			ex.setIDs = append(ex.setIDs, e.id)
			s.nextID = max(s.nextID, sl.ID)
		}
	}
	s.publishLocked()
	loads := s.exerciseNames()
	s.mu.Unlock()

	for id, name := range loads {
		s.loadPrevious(id, name)
	}
	s.log.Info("workout resumed", "name", d.Name, "exercises", len(loads))
	return s, nil
}

// ID returns the workout's session id.
func (s *Session) ID() uuid.UUID {
	return s.info.ID
}

// Finished reports whether the workout was finished or cancelled.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// AddExercise appends an exercise with one regular set. A name already in
// the workout (ignoring case and surrounding space) is left alone and
// reported with added=false.
func (s *Session) AddExercise(name string) (added bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrInvalidValue
	}
	var id int64
	err = s.mutate(func() error {
		for _, ex := range s.exercises {
			if strings.EqualFold(ex.name, name) {
				return nil
			}
		}
		ex := s.newExercise(name)
		rest := s.opts.DefaultRestSeconds
		s.newSet(ex, 0, &setEntry{typ: models.SetRegular, rest: &rest})
		s.w.enqueue(s.exerciseOp(len(s.exercises) - 1))
		s.w.enqueue(s.setOps(ex)...)
		added, id = true, ex.id
		return nil
	})
	if added {
		s.loadPrevious(id, name)
	}
	return added, err
}

// RemoveExercise deletes the exercise at index with all its sets.
func (s *Session) RemoveExercise(index int) error {
	return s.mutate(func() error {
		ex, err := s.exercise(index)
		if err != nil {
			return err
		}
		for _, id := range ex.setIDs {
			delete(s.sets, id)
		}
		s.exercises = append(s.exercises[:index], s.exercises[index+1:]...)
		s.w.enqueue(deleteExerciseOp(s.info.ID, ex.id))
		s.w.enqueue(s.exerciseOpsRange(index, len(s.exercises)-1)...)
		return nil
	})
}

// ReorderExercises moves the exercise at from to index to.
func (s *Session) ReorderExercises(from, to int) error {
	return s.mutate(func() error {
		n := len(s.exercises)
		if from < 0 || from >= n || to < 0 || to >= n {
			return ErrInvalidIndex
		}
		if from == to {
			return nil
		}
		ex := s.exercises[from]
		s.exercises = append(s.exercises[:from], s.exercises[from+1:]...)
		s.exercises = append(s.exercises[:to], append([]*exerciseEntry{ex}, s.exercises[to:]...)...)
		s.w.enqueue(s.exerciseOpsRange(min(from, to), max(from, to))...)
		return nil
	})
}

// SetExerciseNote replaces the note of the exercise at index.
func (s *Session) SetExerciseNote(index int, note string) error {
	return s.mutate(func() error {
		ex, err := s.exercise(index)
		if err != nil {
			return err
		}
		ex.note = note
		s.w.enqueue(s.exerciseOp(index))
		return nil
	})
}

// SetShowRPE toggles RPE entry for the exercise at index.
func (s *Session) SetShowRPE(index int, show bool) error {
	return s.mutate(func() error {
		ex, err := s.exercise(index)
		if err != nil {
			return err
		}
		ex.showRPE = show
		s.w.enqueue(s.exerciseOp(index))
		return nil
	})
}

// SetStartedAt corrects the workout's start time.
func (s *Session) SetStartedAt(t time.Time) error {
	if t.IsZero() {
		return ErrInvalidValue
	}
	return s.mutate(func() error {
		s.info.StartedAt = t.UTC()
		s.w.enqueue(upsertSessionOp(s.info))
		return nil
	})
}

// AddSet appends a set to the exercise at index, copying type, weight,
// reps and rest from the last set. It returns the new set's key.
func (s *Session) AddSet(exerciseIndex int) (SetKey, error) {
	var key SetKey
	err := s.mutate(func() error {
		ex, err := s.exercise(exerciseIndex)
		if err != nil {
			return err
		}
		e := &setEntry{typ: models.SetRegular}
		if n := len(ex.setIDs); n > 0 {
			last := s.sets[ex.setIDs[n-1]]
			e.typ = last.typ
			e.weight = clone(last.weight)
			e.reps = clone(last.reps)
			e.rest = clone(last.rest)
		} else {
			rest := s.opts.DefaultRestSeconds
			e.rest = &rest
		}
		s.newSet(ex, len(ex.setIDs), e)
		key = SetKey{Type: e.typ, Number: s.numbers(ex)[e.id]}
		s.w.enqueue(s.setOp(ex, e.id))
		return nil
	})
	return key, err
}

// RemoveSet deletes a set by id and keeps it in the undo slot, replacing
// any earlier pending removal.
func (s *Session) RemoveSet(exerciseIndex int, setID int64) error {
	return s.mutate(func() error {
		ex, err := s.exercise(exerciseIndex)
		if err != nil {
			return err
		}
		pos := indexOf(ex.setIDs, setID)
		if pos < 0 {
			return ErrSetNotFound
		}
		removed := *s.sets[setID]
		ex.setIDs = append(ex.setIDs[:pos], ex.setIDs[pos+1:]...)
		delete(s.sets, setID)
		s.pending = &pendingRemoval{set: removed, exerciseID: ex.id, position: pos}
		s.w.enqueue(deleteSetOp(s.info.ID, setID))
		s.w.enqueue(s.setOps(ex)...)
		return nil
	})
}

// UndoSetRemoval restores the pending removal at its original position.
// It reports false when there was nothing to restore or the owning exercise
// is gone; the undo slot is empty afterwards either way.
func (s *Session) UndoSetRemoval() (bool, error) {
	restored := false
	err := s.mutate(func() error {
		p := s.pending
		if p == nil {
			return nil
		}
		s.pending = nil
		ex := s.exerciseByID(p.exerciseID)
		if ex == nil {
			return nil
		}
		e := p.set
		pos := min(p.position, len(ex.setIDs))
		s.insertSet(ex, pos, &e)
		s.w.enqueue(s.setOps(ex)...)
		restored = true
		return nil
	})
	return restored, err
}

// DiscardPendingRemoval confirms the pending removal and empties the undo
// slot.
func (s *Session) DiscardPendingRemoval() error {
	return s.mutate(func() error {
		s.pending = nil
		return nil
	})
}

// UpdateSetWeight sets or, with nil, clears a set's weight.
func (s *Session) UpdateSetWeight(exerciseIndex int, key SetKey, weight *float64) error {
	if weight != nil && (*weight < 0 || math.IsNaN(*weight) || math.IsInf(*weight, 0)) {
		return ErrInvalidValue
	}
	return s.updateSet(exerciseIndex, key, func(e *setEntry) { e.weight = clone(weight) })
}

// UpdateSetReps sets or, with nil, clears a set's reps.
func (s *Session) UpdateSetReps(exerciseIndex int, key SetKey, reps *int) error {
	if reps != nil && *reps < 0 {
		return ErrInvalidValue
	}
	return s.updateSet(exerciseIndex, key, func(e *setEntry) { e.reps = clone(reps) })
}

// UpdateSetRest sets or, with nil, clears a set's rest override.
func (s *Session) UpdateSetRest(exerciseIndex int, key SetKey, seconds *int) error {
	if seconds != nil && *seconds < 0 {
		return ErrInvalidValue
	}
	return s.updateSet(exerciseIndex, key, func(e *setEntry) { e.rest = clone(seconds) })
}

// UpdateSetRPE sets or, with nil, clears a set's RPE. Values must lie in
// [1, 10] in steps of 0.5.
func (s *Session) UpdateSetRPE(exerciseIndex int, key SetKey, rpe *float64) error {
	if rpe != nil && !validRPE(*rpe) {
		return ErrInvalidValue
	}
	return s.updateSet(exerciseIndex, key, func(e *setEntry) { e.rpe = clone(rpe) })
}

// UpdateSetType changes a set's type. Sets of the old and new type are
// renumbered.
func (s *Session) UpdateSetType(exerciseIndex int, key SetKey, typ models.SetType) error {
	if !typ.Valid() {
		return ErrInvalidValue
	}
	return s.updateSet(exerciseIndex, key, func(e *setEntry) { e.typ = typ })
}

// CycleSetType advances a set's type REGULAR → WARMUP → DROP → REGULAR and
// returns the set's new key.
func (s *Session) CycleSetType(exerciseIndex int, key SetKey) (SetKey, error) {
	var next SetKey
	err := s.mutate(func() error {
		ex, e, err := s.findSet(exerciseIndex, key)
		if err != nil {
			return err
		}
		e.typ = e.typ.Next()
		next = SetKey{Type: e.typ, Number: s.numbers(ex)[e.id]}
		s.w.enqueue(s.setOps(ex)...)
		return nil
	})
	return next, err
}

func (s *Session) updateSet(exerciseIndex int, key SetKey, apply func(*setEntry)) error {
	return s.mutate(func() error {
		ex, e, err := s.findSet(exerciseIndex, key)
		if err != nil {
			return err
		}
		typ := e.typ
		apply(e)
		if e.typ != typ {
			s.w.enqueue(s.setOps(ex)...)
		} else {
			s.w.enqueue(s.setOp(ex, e.id))
		}
		return nil
	})
}

// CompleteSet toggles a set's completion and reports the new state.
//
// Completing requires weight and reps, taken from the set or else from the
// same set of the exercise's most recent completed session. Completing any
// set but the workout's last one starts the rest countdown, superseding a
// countdown already running.
func (s *Session) CompleteSet(exerciseIndex int, key SetKey) (completed bool, err error) {
	var (
		startRest bool
		rest      int
		owner     int64
	)
	s.mu.Lock()
	err = func() error {
		if s.finished {
			return ErrFinished
		}
		ex, e, err := s.findSet(exerciseIndex, key)
		if err != nil {
			return err
		}
		if e.completedAt != nil {
			e.completedAt = nil
			s.w.enqueue(s.setOp(ex, e.id))
			return nil
		}

		weight, reps := e.weight, e.reps
		if weight == nil || reps == nil {
			if prev := s.previousFor(ex, e.typ, s.numbers(ex)[e.id]); prev != nil {
				if weight == nil {
					weight = clone(prev.Weight)
				}
				if reps == nil {
					reps = clone(prev.Reps)
				}
			}
		}
		if weight == nil || reps == nil {
			return ErrIncompleteSet
		}
		now := s.opts.Now().UTC()
		e.weight, e.reps, e.completedAt = weight, reps, &now
		s.w.enqueue(s.setOp(ex, e.id))
		completed = true

		if !s.isLastSet(e.id) {
			startRest, owner, rest = true, e.id, s.opts.DefaultRestSeconds
			if e.rest != nil {
				rest = *e.rest
			}
		}
		return nil
	}()
	if err == nil {
		s.publishLocked()
	}
	s.mu.Unlock()

	if startRest {
		s.timer.Start(owner, rest)
	}
	return completed, err
}

// PauseTimer pauses the rest countdown.
func (s *Session) PauseTimer() error {
	return s.withTimer(func(t *timer.Timer) { t.Pause() })
}

// ResumeTimer resumes a paused rest countdown.
func (s *Session) ResumeTimer() error {
	return s.withTimer(func(t *timer.Timer) { t.Resume() })
}

// SkipTimer abandons the rest countdown, or dismisses an expired one.
func (s *Session) SkipTimer() error {
	return s.withTimer(func(t *timer.Timer) { t.Skip() })
}

// AddRestTime extends the running or paused countdown.
func (s *Session) AddRestTime(seconds int) error {
	if seconds < 0 {
		return ErrInvalidValue
	}
	return s.withTimer(func(t *timer.Timer) { t.AddTime(seconds) })
}

// SubtractRestTime shortens the running or paused countdown.
func (s *Session) SubtractRestTime(seconds int) error {
	if seconds < 0 {
		return ErrInvalidValue
	}
	return s.withTimer(func(t *timer.Timer) { t.SubtractTime(seconds) })
}

func (s *Session) withTimer(fn func(*timer.Timer)) error {
	if s.Finished() {
		return ErrFinished
	}
	fn(s.timer)
	return nil
}

// FinishWorkout marks the workout completed. The session is read-only
// afterwards.
func (s *Session) FinishWorkout() error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return ErrFinished
	}
	now := s.opts.Now().UTC()
	s.info.CompletedAt = &now
	s.finished = true
	s.pending = nil
	s.w.enqueue(upsertSessionOp(s.info))
	s.publishLocked()
	s.mu.Unlock()

	s.timer.Stop()
	s.log.Info("workout finished", "duration", now.Sub(s.info.StartedAt).Round(time.Second))
	return nil
}

// CancelWorkout deletes the workout and everything logged in it.
func (s *Session) CancelWorkout() error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return ErrFinished
	}
	s.finished = true
	s.cancelled = true
	s.pending = nil
	s.w.enqueue(deleteSessionOp(s.info.ID))
	s.publishLocked()
	s.mu.Unlock()

	s.timer.Stop()
	s.log.Info("workout cancelled")
	return nil
}

// Flush waits until previous-performance loads and every write issued so
// far have completed.
func (s *Session) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.loads.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.w.flush(ctx)
}

// Close stops the rest timer, drains pending writes until ctx expires and
// closes all subscriptions.
func (s *Session) Close(ctx context.Context) error {
	s.timer.Stop()
	err := s.w.close(ctx)
	s.cancel()

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
	}
	s.mu.Unlock()
	return err
}

// mutate runs fn under the lock on an unfinished session and publishes a
// snapshot when it succeeds.
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return ErrFinished
	}
	if err := fn(); err != nil {
		return err
	}
	s.publishLocked()
	return nil
}

func (s *Session) onTimerChange(timer.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked()
}

// loadPrevious fetches the exercise's most recent completed performance.
func (s *Session) loadPrevious(exerciseID int64, name string) {
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		hist, err := s.store.HistoricalSetsForExercise(s.ctx, name, s.info.ID)
		if err != nil {
			s.log.Warn("loading previous performance failed", "exercise", name, "error", err)
			return
		}
		prev := mostRecentSession(hist)
		if len(prev) == 0 {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		ex := s.exerciseByID(exerciseID)
		if ex == nil {
			return
		}
		ex.previous = prev
		s.publishLocked()
	}()
}

func mostRecentSession(hist []models.HistoricalSet) []models.SetLog {
	if len(hist) == 0 {
		return nil
	}
	latest := hist[0]
	for _, h := range hist[1:] {
		if h.SessionCompleted.After(latest.SessionCompleted) {
			latest = h
		}
	}
	var out []models.SetLog
	for _, h := range hist {
		if h.SessionID == latest.SessionID {
			out = append(out, h.SetLog)
		}
	}
	return out
}

// previousFor returns the previous-performance set with the given type and
// number, or nil.
func (s *Session) previousFor(ex *exerciseEntry, typ models.SetType, number int) *models.SetLog {
	for i := range ex.previous {
		p := &ex.previous[i]
		if p.Type == typ && p.Number == number {
			return p
		}
	}
	return nil
}

// isLastSet reports whether id is the final set of the workout.
func (s *Session) isLastSet(id int64) bool {
	for i := len(s.exercises) - 1; i >= 0; i-- {
		if ids := s.exercises[i].setIDs; len(ids) > 0 {
			return ids[len(ids)-1] == id
		}
	}
	return false
}

func (s *Session) newExercise(name string) *exerciseEntry {
	s.nextID++
	ex := &exerciseEntry{id: s.nextID, name: strings.TrimSpace(name)}
	s.exercises = append(s.exercises, ex)
	return ex
}

// newSet assigns e a fresh id and inserts it into ex at pos.
func (s *Session) newSet(ex *exerciseEntry, pos int, e *setEntry) {
	s.nextID++
	e.id = s.nextID
	s.insertSet(ex, pos, e)
}

func (s *Session) insertSet(ex *exerciseEntry, pos int, e *setEntry) {
	e.exerciseID = ex.id
	s.sets[e.id] = e
	ex.setIDs = append(ex.setIDs, 0)
	copy(ex.setIDs[pos+1:], ex.setIDs[pos:])
	ex.setIDs[pos] = e.id
}

func (s *Session) exercise(index int) (*exerciseEntry, error) {
	if index < 0 || index >= len(s.exercises) {
		return nil, ErrExerciseNotFound
	}
	return s.exercises[index], nil
}

func (s *Session) exerciseByID(id int64) *exerciseEntry {
	if i := s.exerciseIndex(id); i >= 0 {
		return s.exercises[i]
	}
	return nil
}

func (s *Session) exerciseIndex(id int64) int {
	for i, ex := range s.exercises {
		if ex.id == id {
			return i
		}
	}
	return -1
}

func (s *Session) findSet(exerciseIndex int, key SetKey) (*exerciseEntry, *setEntry, error) {
	ex, err := s.exercise(exerciseIndex)
	if err != nil {
		return nil, nil, err
	}
	n := 0
	for _, id := range ex.setIDs {
		e := s.sets[id]
		if e.typ != key.Type {
			continue
		}
		n++
		if n == key.Number {
			return ex, e, nil
		}
	}
	return nil, nil, ErrSetNotFound
}

// numbers derives each set's 1-based number within its type.
func (s *Session) numbers(ex *exerciseEntry) map[int64]int {
	counts := make(map[models.SetType]int, 3)
	out := make(map[int64]int, len(ex.setIDs))
	for _, id := range ex.setIDs {
		t := s.sets[id].typ
		counts[t]++
		out[id] = counts[t]
	}
	return out
}

// exerciseNames returns the ids and names of all exercises.
func (s *Session) exerciseNames() map[int64]string {
	out := make(map[int64]string, len(s.exercises))
	for _, ex := range s.exercises {
		out[ex.id] = ex.name
	}
	return out
}

func validRPE(v float64) bool {
	return v >= 1 && v <= 10 && math.Mod(v*2, 1) == 0
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
