package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/liftlog/internal/models"
)

// UpsertSession inserts or fully replaces a session row.
func (db *DB) UpsertSession(ctx context.Context, s models.Session) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sessions (id, template_id, name, started_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET
		 template_id = EXCLUDED.template_id, name = EXCLUDED.name,
		 started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at`,
		s.ID, s.TemplateID, s.Name, s.StartedAt, s.CompletedAt)
	if err != nil {
		return fmt.Errorf("upserting session %s: %w", s.ID, err)
	}
	return nil
}

// DeleteSession removes a session. Exercise and set rows cascade.
func (db *DB) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// GetSession returns a session with its exercises and sets ordered by
// position.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error) {
	var d models.SessionDetail
	err := db.Pool.QueryRow(ctx,
		`SELECT id, template_id, name, started_at, completed_at FROM sessions WHERE id = $1`, id,
	).Scan(&d.ID, &d.TemplateID, &d.Name, &d.StartedAt, &d.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, notFound(err))
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, position, exercise_name, show_rpe, note
		 FROM exercise_logs WHERE session_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying exercise logs: %w", err)
	}
	index := make(map[int64]int)
	for rows.Next() {
		e := models.ExerciseDetail{ExerciseLog: models.ExerciseLog{SessionID: id}}
		if err := rows.Scan(&e.ID, &e.Position, &e.ExerciseName, &e.ShowRPE, &e.Note); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning exercise log: %w", err)
		}
		index[e.ID] = len(d.Exercises)
		d.Exercises = append(d.Exercises, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exercise logs: %w", err)
	}

	sets, err := db.setLogs(ctx, `WHERE session_id = $1 ORDER BY exercise_id, position`, id)
	if err != nil {
		return nil, err
	}
	for _, s := range sets {
		if i, ok := index[s.ExerciseID]; ok {
			d.Exercises[i].Sets = append(d.Exercises[i].Sets, s)
		}
	}
	return &d, nil
}

// ActiveSession returns the most recently started session that has not
// been completed.
func (db *DB) ActiveSession(ctx context.Context) (*models.Session, error) {
	var s models.Session
	err := db.Pool.QueryRow(ctx,
		`SELECT id, template_id, name, started_at, completed_at FROM sessions
		 WHERE completed_at IS NULL ORDER BY started_at DESC LIMIT 1`,
	).Scan(&s.ID, &s.TemplateID, &s.Name, &s.StartedAt, &s.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", notFound(err))
	}
	return &s, nil
}

// ListSessions returns completed sessions, most recent first.
func (db *DB) ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, template_id, name, started_at, completed_at FROM sessions
		 WHERE completed_at IS NOT NULL
		 ORDER BY completed_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.TemplateID, &s.Name, &s.StartedAt, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// InsertCompletedSession writes a finished session with all its rows in one
// transaction. It returns false without writing when the session id already
// exists.
func (db *DB) InsertCompletedSession(ctx context.Context, d models.SessionDetail) (bool, error) {
	if d.CompletedAt == nil {
		return false, fmt.Errorf("inserting completed session %s: not completed", d.ID)
	}
	inserted := false
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO sessions (id, template_id, name, started_at, completed_at)
			 VALUES ($1,$2,$3,$4,$5) ON CONFLICT DO NOTHING`,
			d.ID, d.TemplateID, d.Name, d.StartedAt, d.CompletedAt)
		if err != nil {
			return fmt.Errorf("inserting session %s: %w", d.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, e := range d.Exercises {
			batch.Queue(upsertExerciseSQL, d.ID, e.ID, e.Position, e.ExerciseName, e.ShowRPE, e.Note)
			for _, s := range e.Sets {
				batch.Queue(upsertSetSQL, setArgs(d.ID, e.ID, s)...)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting rows of session %s: %w", d.ID, err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// CompletedSetsBetween returns the completed sets of sessions completed in
// [start, end), oldest session first.
func (db *DB) CompletedSetsBetween(ctx context.Context, start, end time.Time) ([]models.HistoricalSet, error) {
	return db.historicalSets(ctx,
		`s.completed_at >= $1 AND s.completed_at < $2`,
		`s.completed_at, e.position, l.position`,
		start, end)
}

// HistoricalSetsForExercise returns the completed sets of an exercise in
// completed sessions other than exclude, most recent session first.
func (db *DB) HistoricalSetsForExercise(ctx context.Context, exerciseName string, exclude uuid.UUID) ([]models.HistoricalSet, error) {
	return db.historicalSets(ctx,
		`s.completed_at IS NOT NULL AND s.id <> $1 AND lower(e.exercise_name) = lower($2)`,
		`s.completed_at DESC, l.position`,
		exclude, exerciseName)
}

func (db *DB) historicalSets(ctx context.Context, cond, order string, args ...any) ([]models.HistoricalSet, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT l.session_id, l.id, l.exercise_id, l.position, l.set_type, l.number,
		 l.weight, l.reps, l.rpe, l.rest_seconds, l.completed_at,
		 e.exercise_name, s.completed_at
		 FROM set_logs l
		 JOIN exercise_logs e ON e.session_id = l.session_id AND e.id = l.exercise_id
		 JOIN sessions s ON s.id = l.session_id
		 WHERE l.completed_at IS NOT NULL AND `+cond+`
		 ORDER BY `+order, args...)
	if err != nil {
		return nil, fmt.Errorf("querying historical sets: %w", err)
	}
	defer rows.Close()

	var result []models.HistoricalSet
	for rows.Next() {
		var h models.HistoricalSet
		var typ string
		if err := rows.Scan(&h.SessionID, &h.ID, &h.ExerciseID, &h.Position, &typ, &h.Number,
			&h.Weight, &h.Reps, &h.RPE, &h.RestSeconds, &h.CompletedAt,
			&h.ExerciseName, &h.SessionCompleted); err != nil {
			return nil, fmt.Errorf("scanning historical set: %w", err)
		}
		h.Type = models.SetType(typ)
		result = append(result, h)
	}
	return result, rows.Err()
}
