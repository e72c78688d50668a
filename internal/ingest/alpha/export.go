package alpha

import "time"

// Session is one workout as it appears in an export.
type Session struct {
	Name string
	// Date is the start time, in the exporting phone's local clock read as UTC.
	Date      time.Time
	Duration  time.Duration
	Exercises []Exercise
}

// Exercise is one numbered exercise block of a session.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	// DropSets is the "N dropsets" modifier: the last N working sets were drops.
	DropSets int
	// Sets lists warmups first, then working sets in order.
	Sets []Set
}

type Set struct {
	Number int
	Weight float64
	// AddedWeight marks "+N" notation: N kg on top of bodyweight.
	AddedWeight bool
	Reps        int
	// RIR is reps in reserve; -1 means untracked.
	RIR    float64
	Warmup bool
}
