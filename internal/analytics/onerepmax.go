package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/liftlog/internal/models"
)

// repMultipliers maps effective reps to the fraction of 1RM that can be
// lifted for that many reps.
var repMultipliers = map[int]float64{
	1:  1.00,
	2:  0.94,
	3:  0.91,
	4:  0.88,
	5:  0.86,
	6:  0.83,
	7:  0.82,
	8:  0.78,
	9:  0.77,
	10: 0.75,
	11: 0.73,
	12: 0.72,
}

const (
	defaultMultiplier = 0.72
	maxEffectiveReps  = 12
)

// EstimateOneRepMax returns the estimated one-rep max for a set. A nil rpe
// is treated as RPE 10 (taken to failure). Returns 0 when weight or reps are
// not positive, when rpe falls outside [1, 10], or when either float is not
// finite.
func EstimateOneRepMax(weight float64, reps int, rpe *float64) float64 {
	if !finite(weight) || weight <= 0 || reps <= 0 {
		return 0
	}
	effort := 10.0
	if rpe != nil {
		if !finite(*rpe) || *rpe < 1 || *rpe > 10 {
			return 0
		}
		effort = *rpe
	}

	effective := int(math.Round(float64(reps) + effort - 10))
	effective = min(max(effective, 1), maxEffectiveReps)

	multiplier, ok := repMultipliers[effective]
	if !ok {
		multiplier = defaultMultiplier
	}
	return weight / multiplier
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BestOneRepMax returns the highest estimate across REGULAR sets that have a
// weight and positive reps, or 0 if none qualify.
func BestOneRepMax(sets []models.SetLog) float64 {
	best := 0.0
	for _, s := range sets {
		if s.Type != models.SetRegular || s.Weight == nil || s.Reps == nil || *s.Reps <= 0 {
			continue
		}
		if est := EstimateOneRepMax(*s.Weight, *s.Reps, s.RPE); est > best {
			best = est
		}
	}
	return best
}

// OneRepMaxPoint is the best estimate of one completed session.
type OneRepMaxPoint struct {
	SessionID uuid.UUID `json:"session_id"`
	Date      time.Time `json:"date"`
	Estimate  float64   `json:"estimated_1rm"`
}

// OneRepMaxHistory groups historical sets by session and returns the best
// estimate for each session in chronological order. Sessions without a
// qualifying set are omitted.
func OneRepMaxHistory(sets []models.HistoricalSet) []OneRepMaxPoint {
	bySession := make(map[uuid.UUID][]models.SetLog)
	dates := make(map[uuid.UUID]time.Time)
	for _, s := range sets {
		bySession[s.SessionID] = append(bySession[s.SessionID], s.SetLog)
		dates[s.SessionID] = s.SessionCompleted
	}

	points := make([]OneRepMaxPoint, 0, len(bySession))
	for id, logs := range bySession {
		est := BestOneRepMax(logs)
		if est == 0 {
			continue
		}
		points = append(points, OneRepMaxPoint{SessionID: id, Date: dates[id], Estimate: est})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Date.Equal(points[j].Date) {
			return points[i].SessionID.String() < points[j].SessionID.String()
		}
		return points[i].Date.Before(points[j].Date)
	})
	return points
}
