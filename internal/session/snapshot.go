package session

import (
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/timer"
)

// Snapshot is an immutable copy of a live workout. Version increases with
// every published change.
type Snapshot struct {
	Version        uint64          `json:"version"`
	Session        models.Session  `json:"session"`
	Finished       bool            `json:"finished"`
	Cancelled      bool            `json:"cancelled,omitempty"`
	Exercises      []ExerciseView  `json:"exercises"`
	PendingRemoval *PendingRemoval `json:"pending_removal,omitempty"`
	Timer          timer.State     `json:"timer"`
}

// ExerciseView is one exercise of a Snapshot.
type ExerciseView struct {
	models.ExerciseLog
	Sets []SetView `json:"sets"`
}

// SetView is one set of a Snapshot with the matching set of the exercise's
// most recent completed session, when there is one.
type SetView struct {
	models.SetLog
	Previous *Previous `json:"previous,omitempty"`
}

// Key returns the set's current key.
func (v SetView) Key() SetKey {
	return SetKey{Type: v.Type, Number: v.Number}
}

// Previous is the performance a set inherits when completed without values.
type Previous struct {
	Weight *float64 `json:"weight,omitempty"`
	Reps   *int     `json:"reps,omitempty"`
	RPE    *float64 `json:"rpe,omitempty"`
}

// PendingRemoval describes the set held in the undo slot.
type PendingRemoval struct {
	ExerciseID int64         `json:"exercise_id"`
	Position   int           `json:"position"`
	Set        models.SetLog `json:"set"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that always holds the most recent snapshot.
// Older undelivered snapshots are dropped, so a slow reader never blocks the
// session. The channel is closed by cancel or when the session is closed.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// publishLocked must be called with s.mu held.
func (s *Session) publishLocked() {
	s.version++
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:   s.version,
		Session:   s.sessionRow(),
		Finished:  s.finished,
		Cancelled: s.cancelled,
		Exercises: make([]ExerciseView, len(s.exercises)),
		Timer:     s.timer.State(),
	}
	for i, ex := range s.exercises {
		rows := s.setRows(ex)
		view := ExerciseView{ExerciseLog: s.exerciseRow(i), Sets: make([]SetView, len(rows))}
		for j, r := range rows {
			view.Sets[j] = SetView{SetLog: r}
			if p := s.previousFor(ex, r.Type, r.Number); p != nil {
				view.Sets[j].Previous = &Previous{Weight: clone(p.Weight), Reps: clone(p.Reps), RPE: clone(p.RPE)}
			}
		}
		snap.Exercises[i] = view
	}
	if p := s.pending; p != nil {
		snap.PendingRemoval = &PendingRemoval{
			ExerciseID: p.exerciseID,
			Position:   p.position,
			Set: models.SetLog{
				SessionID:   s.info.ID,
				ID:          p.set.id,
				ExerciseID:  p.exerciseID,
				Position:    p.position,
				Type:        p.set.typ,
				Weight:      clone(p.set.weight),
				Reps:        clone(p.set.reps),
				RPE:         clone(p.set.rpe),
				RestSeconds: clone(p.set.rest),
				CompletedAt: clone(p.set.completedAt),
			},
		}
	}
	return snap
}

// sessionRow copies the session row without sharing its optional fields.
func (s *Session) sessionRow() models.Session {
	info := s.info
	info.TemplateID = clone(info.TemplateID)
	info.CompletedAt = clone(info.CompletedAt)
	return info
}
