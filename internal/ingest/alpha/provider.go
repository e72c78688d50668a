package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/models"
)

// namespace seeds the deterministic session ids of imported workouts.
var namespace = uuid.MustParse("6f1c1d5e-8a57-4c36-9d0b-3a1f4a2b7e90")

// Store receives imported sessions.
type Store interface {
	InsertCompletedSession(ctx context.Context, d models.SessionDetail) (bool, error)
}

// Provider imports Alpha Progression CSV exports as completed workouts.
type Provider struct {
	store Store
	log   *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(store Store, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// Ingest parses a CSV export and stores each session. Sessions imported
// before are skipped, so re-importing the same export is harmless.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	for _, s := range sessions {
		d := Convert(s)
		sets := countSets(d)
		result.SetsReceived += sets

		inserted, err := p.store.InsertCompletedSession(ctx, d)
		if err != nil {
			return result, fmt.Errorf("storing session %q of %s: %w", s.Name, s.Date.Format("2006-01-02"), err)
		}
		if !inserted {
			result.SessionsSkipped++
			p.log.Debug("session already imported", "name", s.Name, "date", s.Date)
			continue
		}
		result.SessionsInserted++
		result.SetsInserted += sets
	}
	p.log.Info("alpha import complete",
		"sessions", result.SessionsReceived,
		"inserted", result.SessionsInserted,
		"skipped", result.SessionsSkipped,
		"sets", result.SetsInserted)
	return result, nil
}

// SessionID returns the id an imported session is stored under.
func SessionID(name string, date time.Time) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(name+"|"+date.UTC().Format(time.RFC3339)))
}

// Convert maps a parsed session onto the workout model. Warmups become
// WARMUP sets, the last DropSets working sets become DROP sets and RIR
// becomes RPE (10 - RIR). Every set is marked completed at the session end.
func Convert(s Session) models.SessionDetail {
	started := s.Date.UTC()
	completed := started.Add(s.Duration)
	d := models.SessionDetail{Session: models.Session{
		ID:          SessionID(s.Name, s.Date),
		Name:        s.Name,
		StartedAt:   started,
		CompletedAt: &completed,
	}}

	var nextID int64
	for pos, ex := range s.Exercises {
		nextID++
		detail := models.ExerciseDetail{ExerciseLog: models.ExerciseLog{
			SessionID:    d.ID,
			ID:           nextID,
			Position:     pos,
			ExerciseName: ex.Name,
		}}

		working := 0
		for _, set := range ex.Sets {
			if !set.Warmup {
				working++
			}
		}
		firstDrop := working - min(ex.DropSets, working)

		counts := make(map[models.SetType]int, 3)
		w := 0
		for i, set := range ex.Sets {
			typ := models.SetWarmup
			if !set.Warmup {
				typ = models.SetRegular
				if w >= firstDrop {
					typ = models.SetDrop
				}
				w++
			}
			counts[typ]++
			nextID++

			weight, reps := set.Weight, set.Reps
			detail.Sets = append(detail.Sets, models.SetLog{
				SessionID:   d.ID,
				ID:          nextID,
				ExerciseID:  detail.ID,
				Position:    i,
				Type:        typ,
				Number:      counts[typ],
				Weight:      &weight,
				Reps:        &reps,
				RPE:         rpeFromRIR(set.RIR),
				CompletedAt: &completed,
			})
		}
		d.Exercises = append(d.Exercises, detail)
	}
	return d
}

// rpeFromRIR converts reps in reserve to RPE, clamped to [1, 10].
// Untracked RIR yields nil.
func rpeFromRIR(rir float64) *float64 {
	if rir < 0 {
		return nil
	}
	rpe := max(1, min(10, 10-rir))
	return &rpe
}

func countSets(d models.SessionDetail) int {
	n := 0
	for _, ex := range d.Exercises {
		n += len(ex.Sets)
	}
	return n
}
