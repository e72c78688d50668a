package analytics

import "github.com/meltforce/liftlog/internal/models"

// Program is the settings-independent analysis of a selection of
// templates. Call Report to evaluate it under the current settings.
type Program struct {
	volumes []MuscleVolume
	plans   []restPlan
}

// Report is a program analysis evaluated under one set of flags.
type Report struct {
	Settings      Settings           `json:"settings"`
	Muscles       []VolumeRow        `json:"muscles"`
	Durations     []TemplateDuration `json:"durations,omitempty"`
	EffectiveSets float64            `json:"effective_sets"`
	TotalSeconds  int                `json:"total_seconds"`
}

// Analyze counts every planned set of the templates per muscle and records
// their rest plan.
func Analyze(templates []models.Template, lookup MuscleLookup, defaultRest int) *Program {
	agg := NewAggregator(lookup)
	p := &Program{}
	for _, t := range templates {
		for _, ex := range t.Exercises {
			for _, set := range ex.Sets {
				agg.AddSet(ex.ExerciseName, set.Type)
			}
		}
		p.plans = append(p.plans, planRests(t, defaultRest))
	}
	p.volumes = agg.Volumes()
	return p
}

// AnalyzeHistory counts logged sets of completed sessions per muscle. The
// resulting program has no duration breakdown.
func AnalyzeHistory(sets []models.HistoricalSet, lookup MuscleLookup) *Program {
	agg := NewAggregator(lookup)
	for _, s := range sets {
		agg.AddSet(s.ExerciseName, s.Type)
	}
	return &Program{volumes: agg.Volumes()}
}

// Volumes returns the raw per-muscle counts sorted by muscle name.
func (p *Program) Volumes() []MuscleVolume {
	return append([]MuscleVolume(nil), p.volumes...)
}

// Report evaluates the program under s. The same program yields different
// effective totals for different flags.
func (p *Program) Report(s Settings) Report {
	r := Report{Settings: s, Muscles: Rows(p.volumes, s)}
	for _, row := range r.Muscles {
		r.EffectiveSets += row.EffectiveSets
	}
	for _, plan := range p.plans {
		d := plan.estimate(s.secondsPerSet())
		r.Durations = append(r.Durations, d)
		r.TotalSeconds += d.TotalSeconds
	}
	return r
}
