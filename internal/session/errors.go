package session

import "errors"

var (
	// ErrFinished is returned by mutations on a finished or cancelled workout.
	ErrFinished = errors.New("workout is finished")
	// ErrExerciseNotFound is returned for an exercise index out of range.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrSetNotFound is returned when no set matches the given id or key.
	ErrSetNotFound = errors.New("set not found")
	// ErrIncompleteSet is returned when completing a set that has no weight
	// or reps and no previous performance to inherit them from.
	ErrIncompleteSet = errors.New("set needs weight and reps before it can be completed")
	// ErrInvalidValue is returned for out-of-range field values.
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidIndex is returned for a reorder target out of range.
	ErrInvalidIndex = errors.New("invalid index")
)
