package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a row of the sessions table: one concrete execution of (or
// departure from) a template.
type Session struct {
	ID          uuid.UUID  `json:"id"`
	TemplateID  *int64     `json:"template_id,omitempty"`
	Name        string     `json:"name"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the session has been finished.
func (s Session) Completed() bool {
	return s.CompletedAt != nil
}

// ExerciseLog is a row of the exercise_logs table. ID is stable for the
// lifetime of the session; Position is the current display order.
type ExerciseLog struct {
	SessionID    uuid.UUID `json:"session_id"`
	ID           int64     `json:"id"`
	Position     int       `json:"position"`
	ExerciseName string    `json:"exercise_name"`
	ShowRPE      bool      `json:"show_rpe"`
	Note         string    `json:"note,omitempty"`
}

// SetLog is a row of the set_logs table. Number is 1-based within the
// set's own type inside its exercise.
type SetLog struct {
	SessionID   uuid.UUID  `json:"session_id"`
	ID          int64      `json:"id"`
	ExerciseID  int64      `json:"exercise_id"`
	Position    int        `json:"position"`
	Type        SetType    `json:"type"`
	Number      int        `json:"number"`
	Weight      *float64   `json:"weight,omitempty"`
	Reps        *int       `json:"reps,omitempty"`
	RPE         *float64   `json:"rpe,omitempty"`
	RestSeconds *int       `json:"rest_seconds,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SessionDetail is a session with its exercises and sets, ordered by position.
type SessionDetail struct {
	Session
	Exercises []ExerciseDetail `json:"exercises"`
}

// ExerciseDetail is an exercise log with its sets.
type ExerciseDetail struct {
	ExerciseLog
	Sets []SetLog `json:"sets"`
}

// HistoricalSet is a set from a completed session, as returned by history
// queries for previous-performance display and 1RM history.
type HistoricalSet struct {
	SetLog
	ExerciseName     string    `json:"exercise_name"`
	SessionCompleted time.Time `json:"session_completed_at"`
}

// Template is a reusable, unexecuted workout blueprint.
type Template struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Exercises []TemplateExercise `json:"exercises"`
}

// TemplateExercise is one exercise of a template.
type TemplateExercise struct {
	ExerciseName string        `json:"exercise_name"`
	Sets         []TemplateSet `json:"sets"`
}

// TemplateSet is a planned set. Target values become the initial weight and
// reps of the session set created from it.
type TemplateSet struct {
	Type        SetType  `json:"type"`
	Weight      *float64 `json:"weight,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	RestSeconds *int     `json:"rest_seconds,omitempty"`
}

// SetCount returns the number of planned sets across all exercises.
func (t Template) SetCount() int {
	n := 0
	for _, ex := range t.Exercises {
		n += len(ex.Sets)
	}
	return n
}
