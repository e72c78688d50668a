package analytics

import (
	"sort"

	"github.com/meltforce/liftlog/internal/models"
)

// UnknownMuscle is the bucket for exercises missing from the library.
const UnknownMuscle = "Unknown"

// auxiliaryWeight is the effective-set credit of one auxiliary involvement.
const auxiliaryWeight = 0.5

// MuscleLookup resolves an exercise name to its primary and auxiliary
// muscles. ok is false when the exercise is not in the library.
type MuscleLookup interface {
	Muscles(exerciseName string) (primary string, auxiliary []string, ok bool)
}

// SetCounts holds set counts by type.
type SetCounts struct {
	Warmup  int `json:"warmup"`
	Regular int `json:"regular"`
	Drop    int `json:"drop"`
}

// Add counts one set of type t.
func (c *SetCounts) Add(t models.SetType) {
	switch t {
	case models.SetWarmup:
		c.Warmup++
	case models.SetDrop:
		c.Drop++
	default:
		c.Regular++
	}
}

// Total returns the number of sets regardless of type.
func (c SetCounts) Total() int {
	return c.Warmup + c.Regular + c.Drop
}

// Effective returns the sets that count toward volume under s: regular sets
// always, warmups and drops only when their flag is enabled.
func (c SetCounts) Effective(s Settings) float64 {
	n := c.Regular
	if s.CountWarmupAsEffective {
		n += c.Warmup
	}
	if s.CountDropSetAsEffective {
		n += c.Drop
	}
	return float64(n)
}

// MuscleVolume is the raw set breakdown attributed to one muscle.
type MuscleVolume struct {
	Muscle    string    `json:"muscle"`
	Primary   SetCounts `json:"primary"`
	Auxiliary SetCounts `json:"auxiliary"`
}

// EffectiveSets returns primary effective sets plus half the auxiliary ones.
func (v MuscleVolume) EffectiveSets(s Settings) float64 {
	return v.Primary.Effective(s) + auxiliaryWeight*v.Auxiliary.Effective(s)
}

// Aggregator accumulates set counts per muscle.
type Aggregator struct {
	lookup  MuscleLookup
	muscles map[string]*MuscleVolume
}

// NewAggregator creates an Aggregator. A nil lookup attributes every set to
// UnknownMuscle.
func NewAggregator(lookup MuscleLookup) *Aggregator {
	return &Aggregator{lookup: lookup, muscles: make(map[string]*MuscleVolume)}
}

// AddSet attributes one set of the named exercise: once to its primary
// muscle and once to each auxiliary muscle.
func (a *Aggregator) AddSet(exerciseName string, t models.SetType) {
	primary, auxiliary := UnknownMuscle, []string(nil)
	if a.lookup != nil {
		if p, aux, ok := a.lookup.Muscles(exerciseName); ok && p != "" {
			primary, auxiliary = p, aux
		}
	}

	a.volume(primary).Primary.Add(t)
	seen := map[string]bool{primary: true}
	for _, m := range auxiliary {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		a.volume(m).Auxiliary.Add(t)
	}
}

func (a *Aggregator) volume(muscle string) *MuscleVolume {
	v, ok := a.muscles[muscle]
	if !ok {
		v = &MuscleVolume{Muscle: muscle}
		a.muscles[muscle] = v
	}
	return v
}

// Volumes returns the accumulated breakdown sorted by muscle name.
func (a *Aggregator) Volumes() []MuscleVolume {
	out := make([]MuscleVolume, 0, len(a.muscles))
	for _, v := range a.muscles {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Muscle < out[j].Muscle })
	return out
}

// VolumeRow is one muscle's line in a report, with flags already applied.
type VolumeRow struct {
	Muscle             string    `json:"muscle"`
	Primary            SetCounts `json:"primary"`
	Auxiliary          SetCounts `json:"auxiliary"`
	PrimaryEffective   float64   `json:"primary_effective"`
	AuxiliaryEffective float64   `json:"auxiliary_effective"`
	EffectiveSets      float64   `json:"effective_sets"`
}

// Rows evaluates volumes under s and sorts them by effective sets
// descending, ties broken by muscle name ascending.
func Rows(volumes []MuscleVolume, s Settings) []VolumeRow {
	rows := make([]VolumeRow, 0, len(volumes))
	for _, v := range volumes {
		aux := auxiliaryWeight * v.Auxiliary.Effective(s)
		rows = append(rows, VolumeRow{
			Muscle:             v.Muscle,
			Primary:            v.Primary,
			Auxiliary:          v.Auxiliary,
			PrimaryEffective:   v.Primary.Effective(s),
			AuxiliaryEffective: aux,
			EffectiveSets:      v.Primary.Effective(s) + aux,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].EffectiveSets != rows[j].EffectiveSets {
			return rows[i].EffectiveSets > rows[j].EffectiveSets
		}
		return rows[i].Muscle < rows[j].Muscle
	})
	return rows
}
