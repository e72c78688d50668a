package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/models"
)

// Store persists live workouts. Every write is a full-row upsert or a
// delete, so re-issuing a write built from current memory is always safe.
type Store interface {
	UpsertSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.SessionDetail, error)
	// DeleteSession removes the session with all its exercises and sets.
	DeleteSession(ctx context.Context, id uuid.UUID) error

	UpsertExerciseLog(ctx context.Context, e models.ExerciseLog) error
	// DeleteExerciseLog removes the exercise with all its sets.
	DeleteExerciseLog(ctx context.Context, sessionID uuid.UUID, id int64) error

	UpsertSetLog(ctx context.Context, s models.SetLog) error
	DeleteSetLog(ctx context.Context, sessionID uuid.UUID, id int64) error

	// HistoricalSetsForExercise returns the completed sets logged for the
	// exercise in completed sessions other than exclude, most recent session
	// first and by position within a session.
	HistoricalSetsForExercise(ctx context.Context, exerciseName string, exclude uuid.UUID) ([]models.HistoricalSet, error)
}
