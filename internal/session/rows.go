package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/models"
)

// The helpers below must be called with s.mu held. They capture row values
// at call time so the writer never reads live memory.

func upsertSessionOp(row models.Session) op {
	return op{
		key:  rowKey{kind: rowSession},
		name: opUpsertSession,
		run:  func(ctx context.Context, st Store) error { return st.UpsertSession(ctx, row) },
	}
}

func deleteSessionOp(id uuid.UUID) op {
	return op{
		key:  rowKey{kind: rowSession},
		name: opDeleteSession,
		run:  func(ctx context.Context, st Store) error { return st.DeleteSession(ctx, id) },
	}
}

func upsertExerciseOp(row models.ExerciseLog) op {
	return op{
		key:  rowKey{kind: rowExercise, id: row.ID},
		name: opUpsertExercise,
		run:  func(ctx context.Context, st Store) error { return st.UpsertExerciseLog(ctx, row) },
	}
}

func deleteExerciseOp(sessionID uuid.UUID, id int64) op {
	return op{
		key:  rowKey{kind: rowExercise, id: id},
		name: opDeleteExercise,
		run:  func(ctx context.Context, st Store) error { return st.DeleteExerciseLog(ctx, sessionID, id) },
	}
}

func upsertSetOp(row models.SetLog) op {
	return op{
		key:  rowKey{kind: rowSet, id: row.ID},
		name: opUpsertSet,
		run:  func(ctx context.Context, st Store) error { return st.UpsertSetLog(ctx, row) },
	}
}

func deleteSetOp(sessionID uuid.UUID, id int64) op {
	return op{
		key:  rowKey{kind: rowSet, id: id},
		name: opDeleteSet,
		run:  func(ctx context.Context, st Store) error { return st.DeleteSetLog(ctx, sessionID, id) },
	}
}

func (s *Session) exerciseRow(index int) models.ExerciseLog {
	ex := s.exercises[index]
	return models.ExerciseLog{
		SessionID:    s.info.ID,
		ID:           ex.id,
		Position:     index,
		ExerciseName: ex.name,
		ShowRPE:      ex.showRPE,
		Note:         ex.note,
	}
}

func (s *Session) setRow(ex *exerciseEntry, pos, number int) models.SetLog {
	e := s.sets[ex.setIDs[pos]]
	return models.SetLog{
		SessionID:   s.info.ID,
		ID:          e.id,
		ExerciseID:  ex.id,
		Position:    pos,
		Type:        e.typ,
		Number:      number,
		Weight:      clone(e.weight),
		Reps:        clone(e.reps),
		RPE:         clone(e.rpe),
		RestSeconds: clone(e.rest),
		CompletedAt: clone(e.completedAt),
	}
}

func (s *Session) setRows(ex *exerciseEntry) []models.SetLog {
	nums := s.numbers(ex)
	rows := make([]models.SetLog, len(ex.setIDs))
	for pos, id := range ex.setIDs {
		rows[pos] = s.setRow(ex, pos, nums[id])
	}
	return rows
}

func (s *Session) exerciseOp(index int) op {
	return upsertExerciseOp(s.exerciseRow(index))
}

// exerciseOpsRange upserts the exercises at positions lo through hi.
func (s *Session) exerciseOpsRange(lo, hi int) []op {
	var ops []op
	for i := max(lo, 0); i <= hi && i < len(s.exercises); i++ {
		ops = append(ops, s.exerciseOp(i))
	}
	return ops
}

func (s *Session) setOp(ex *exerciseEntry, id int64) op {
	pos := indexOf(ex.setIDs, id)
	return upsertSetOp(s.setRow(ex, pos, s.numbers(ex)[id]))
}

// setOps upserts every set of ex, covering renumbering and repositioning.
func (s *Session) setOps(ex *exerciseEntry) []op {
	rows := s.setRows(ex)
	ops := make([]op, len(rows))
	for i, r := range rows {
		ops[i] = upsertSetOp(r)
	}
	return ops
}

func (s *Session) allRowOps() []op {
	var ops []op
	for i, ex := range s.exercises {
		ops = append(ops, s.exerciseOp(i))
		ops = append(ops, s.setOps(ex)...)
	}
	return ops
}

// rebuild builds full-row writes for keys from current memory: an upsert for
// a row that still exists, a delete for one that does not.
func (s *Session) rebuild(keys []rowKey) []op {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return []op{deleteSessionOp(s.info.ID)}
	}
	var ops []op
	for _, k := range keys {
		switch k.kind {
		case rowSession:
			if s.cancelled {
				ops = append(ops, deleteSessionOp(s.info.ID))
			} else {
				ops = append(ops, upsertSessionOp(s.info))
			}
		case rowExercise:
			if i := s.exerciseIndex(k.id); i >= 0 {
				ops = append(ops, s.exerciseOp(i))
			} else {
				ops = append(ops, deleteExerciseOp(s.info.ID, k.id))
			}
		case rowSet:
			if e, ok := s.sets[k.id]; ok {
				if ex := s.exerciseByID(e.exerciseID); ex != nil {
					ops = append(ops, s.setOp(ex, k.id))
					continue
				}
			}
			ops = append(ops, deleteSetOp(s.info.ID, k.id))
		}
	}
	return ops
}
