package analytics

import "github.com/meltforce/liftlog/internal/models"

// TotalSeconds estimates workout time as the sum of rest periods plus a
// fixed execution time per set.
func TotalSeconds(restSeconds []int, secondsPerSet int) int {
	total := len(restSeconds) * secondsPerSet
	for _, r := range restSeconds {
		total += r
	}
	return total
}

// TemplateDuration is the time breakdown of one template.
type TemplateDuration struct {
	TemplateID     int64  `json:"template_id"`
	Name           string `json:"name"`
	TotalSeconds   int    `json:"total_seconds"`
	Sets           int    `json:"sets"`
	LiftingSeconds int    `json:"lifting_seconds"`
	RestSeconds    int    `json:"rest_seconds"`
	Exercises      int    `json:"exercises"`
}

// restPlan is the settings-independent part of a duration estimate.
type restPlan struct {
	templateID int64
	name       string
	rests      []int
	exercises  int
}

func planRests(t models.Template, defaultRest int) restPlan {
	if defaultRest <= 0 {
		defaultRest = DefaultRestSeconds
	}
	p := restPlan{templateID: t.ID, name: t.Name, exercises: len(t.Exercises)}
	for _, ex := range t.Exercises {
		for _, set := range ex.Sets {
			rest := defaultRest
			if set.RestSeconds != nil && *set.RestSeconds >= 0 {
				rest = *set.RestSeconds
			}
			p.rests = append(p.rests, rest)
		}
	}
	return p
}

func (p restPlan) estimate(secondsPerSet int) TemplateDuration {
	d := TemplateDuration{
		TemplateID:     p.templateID,
		Name:           p.name,
		Sets:           len(p.rests),
		LiftingSeconds: len(p.rests) * secondsPerSet,
		Exercises:      p.exercises,
	}
	for _, r := range p.rests {
		d.RestSeconds += r
	}
	d.TotalSeconds = TotalSeconds(p.rests, secondsPerSet)
	return d
}

// EstimateDuration returns the time breakdown of t. Sets without a rest
// override use defaultRest.
func EstimateDuration(t models.Template, s Settings, defaultRest int) TemplateDuration {
	return planRests(t, defaultRest).estimate(s.secondsPerSet())
}
