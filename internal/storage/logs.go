package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/models"
)

const upsertExerciseSQL = `INSERT INTO exercise_logs (session_id, id, position, exercise_name, show_rpe, note)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (session_id, id) DO UPDATE SET
	position = EXCLUDED.position, exercise_name = EXCLUDED.exercise_name,
	show_rpe = EXCLUDED.show_rpe, note = EXCLUDED.note`

const upsertSetSQL = `INSERT INTO set_logs (session_id, id, exercise_id, position, set_type, number,
	weight, reps, rpe, rest_seconds, completed_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (session_id, id) DO UPDATE SET
	exercise_id = EXCLUDED.exercise_id, position = EXCLUDED.position,
	set_type = EXCLUDED.set_type, number = EXCLUDED.number,
	weight = EXCLUDED.weight, reps = EXCLUDED.reps, rpe = EXCLUDED.rpe,
	rest_seconds = EXCLUDED.rest_seconds, completed_at = EXCLUDED.completed_at`

func setArgs(sessionID uuid.UUID, exerciseID int64, s models.SetLog) []any {
	return []any{sessionID, s.ID, exerciseID, s.Position, string(s.Type), s.Number,
		s.Weight, s.Reps, s.RPE, s.RestSeconds, s.CompletedAt}
}

// UpsertExerciseLog inserts or fully replaces an exercise row.
func (db *DB) UpsertExerciseLog(ctx context.Context, e models.ExerciseLog) error {
	_, err := db.Pool.Exec(ctx, upsertExerciseSQL,
		e.SessionID, e.ID, e.Position, e.ExerciseName, e.ShowRPE, e.Note)
	if err != nil {
		return fmt.Errorf("upserting exercise log %d: %w", e.ID, err)
	}
	return nil
}

// DeleteExerciseLog removes an exercise row. Its sets cascade.
func (db *DB) DeleteExerciseLog(ctx context.Context, sessionID uuid.UUID, id int64) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM exercise_logs WHERE session_id = $1 AND id = $2`, sessionID, id)
	if err != nil {
		return fmt.Errorf("deleting exercise log %d: %w", id, err)
	}
	return nil
}

// UpsertSetLog inserts or fully replaces a set row.
func (db *DB) UpsertSetLog(ctx context.Context, s models.SetLog) error {
	if _, err := db.Pool.Exec(ctx, upsertSetSQL, setArgs(s.SessionID, s.ExerciseID, s)...); err != nil {
		return fmt.Errorf("upserting set log %d: %w", s.ID, err)
	}
	return nil
}

// DeleteSetLog removes a set row.
func (db *DB) DeleteSetLog(ctx context.Context, sessionID uuid.UUID, id int64) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM set_logs WHERE session_id = $1 AND id = $2`, sessionID, id)
	if err != nil {
		return fmt.Errorf("deleting set log %d: %w", id, err)
	}
	return nil
}

func (db *DB) setLogs(ctx context.Context, clause string, args ...any) ([]models.SetLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, id, exercise_id, position, set_type, number,
		 weight, reps, rpe, rest_seconds, completed_at
		 FROM set_logs `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("querying set logs: %w", err)
	}
	defer rows.Close()

	var result []models.SetLog
	for rows.Next() {
		var s models.SetLog
		var typ string
		if err := rows.Scan(&s.SessionID, &s.ID, &s.ExerciseID, &s.Position, &typ, &s.Number,
			&s.Weight, &s.Reps, &s.RPE, &s.RestSeconds, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning set log: %w", err)
		}
		s.Type = models.SetType(typ)
		result = append(result, s)
	}
	return result, rows.Err()
}
