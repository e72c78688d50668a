package analytics

// DefaultSecondsPerSet is the assumed non-rest execution time of one set.
const DefaultSecondsPerSet = 30

// DefaultRestSeconds is the rest period used when a set has no override.
const DefaultRestSeconds = 120

// Settings are the externally supplied flags that shape analytics output.
// They are applied when a report is built, never stored with the data.
type Settings struct {
	CountWarmupAsEffective  bool `json:"count_warmup_as_effective"`
	CountDropSetAsEffective bool `json:"count_drop_set_as_effective"`
	SecondsPerSet           int  `json:"seconds_per_set"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{SecondsPerSet: DefaultSecondsPerSet}
}

func (s Settings) secondsPerSet() int {
	if s.SecondsPerSet <= 0 {
		return DefaultSecondsPerSet
	}
	return s.SecondsPerSet
}
