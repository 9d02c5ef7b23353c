package settings

import "time"

const (
	MinTimeLimitMinutes = 1
	MaxTimeLimitMinutes = 120
)

// Settings are the admin-managed runtime knobs. They are persisted as one
// JSON document by the store.
type Settings struct {
	ShowExplanationsForCorrect bool            `json:"show_explanations_for_correct"`
	ModuleTimeLimits           map[string]int  `json:"module_time_limits"`
	ModuleAvailability         map[string]bool `json:"module_availability"`
}

func Default() Settings {
	return Settings{
		ModuleTimeLimits:   map[string]int{},
		ModuleAvailability: map[string]bool{},
	}
}

// Enabled reports whether students may start a quiz for module. Modules the
// admin has never toggled are enabled.
func (s Settings) Enabled(module string) bool {
	v, ok := s.ModuleAvailability[module]
	return !ok || v
}

// TimeLimit returns the admin-enforced limit for module, if any.
func (s Settings) TimeLimit(module string) (time.Duration, bool) {
	m, ok := s.ModuleTimeLimits[module]
	if !ok || m <= 0 {
		return 0, false
	}
	return time.Duration(m) * time.Minute, true
}

// Normalize drops non-positive limits, clamps the rest into range and
// replaces nil maps.
func (s Settings) Normalize() Settings {
	out := Settings{
		ShowExplanationsForCorrect: s.ShowExplanationsForCorrect,
		ModuleTimeLimits:           make(map[string]int, len(s.ModuleTimeLimits)),
		ModuleAvailability:         make(map[string]bool, len(s.ModuleAvailability)),
	}
	for m, v := range s.ModuleTimeLimits {
		if m == "" || v < MinTimeLimitMinutes {
			continue
		}
		out.ModuleTimeLimits[m] = min(v, MaxTimeLimitMinutes)
	}
	for m, v := range s.ModuleAvailability {
		if m != "" {
			out.ModuleAvailability[m] = v
		}
	}
	return out
}
