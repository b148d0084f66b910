// Package sim provides deterministic, script-driven run profiles for
// exercising the controller without hardware.
package sim

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScenarioScript is a keyframed description of a run: the pod's true
// forward acceleration over time. Time is expressed as Go duration
// strings ("0s", "250ms", "10s"); acceleration between keyframes is
// linearly interpolated. If Duration is zero it is derived from the
// last keyframe.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 30s
//	profile:
//	  keyframes:
//	    - t: 0s
//	      accel: 0
//	    - t: 2s
//	      accel: 9.5
//
// Keyframes must use non-decreasing t values.
//
// Keep this struct stable: scripts are test fixtures.
type ScenarioScript struct {
	Version  int           `yaml:"version"`
	Duration time.Duration `yaml:"duration"`
	Profile  Profile       `yaml:"profile"`
}

// Profile is the acceleration timeline.
type Profile struct {
	Keyframes []Keyframe `yaml:"keyframes"`
}

// Keyframe is a time-stamped true forward acceleration in m/s^2.
type Keyframe struct {
	T     time.Duration `yaml:"t"`
	Accel float64       `yaml:"accel"`
}

// Scenario is the validated, runtime representation.
type Scenario struct {
	script   ScenarioScript
	duration time.Duration
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from
// path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

// ParseScenarioScriptYAML parses a YAML scenario script.
func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// NewScenario validates script and returns a runtime Scenario.
func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Profile.Keyframes) == 0 {
		return nil, fmt.Errorf("profile.keyframes is required")
	}
	prev := time.Duration(-1)
	for i, kf := range script.Profile.Keyframes {
		if kf.T < 0 {
			return nil, fmt.Errorf("profile.keyframes[%d].t must be >= 0", i)
		}
		if kf.T < prev {
			return nil, fmt.Errorf("profile.keyframes[%d].t goes backwards", i)
		}
		prev = kf.T
	}

	dur := script.Duration
	if dur <= 0 {
		dur = script.Profile.Keyframes[len(script.Profile.Keyframes)-1].T
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or deriveable from keyframes)")
	}
	return &Scenario{script: script, duration: dur}, nil
}

// Duration returns the effective scenario duration.
func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

// Done reports whether elapsed is past the scenario end.
func (s *Scenario) Done(elapsed time.Duration) bool {
	if s == nil {
		return true
	}
	return elapsed >= s.duration
}

// AccelAt computes the true forward acceleration at elapsed. Elapsed is
// clamped to [0, Duration()]; before the first keyframe the first value
// holds, after the last the last value holds.
func (s *Scenario) AccelAt(elapsed time.Duration) float64 {
	if s == nil {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > s.duration {
		elapsed = s.duration
	}

	kfs := s.script.Profile.Keyframes
	if elapsed <= kfs[0].T {
		return kfs[0].Accel
	}
	for i := 1; i < len(kfs); i++ {
		if elapsed > kfs[i].T {
			continue
		}
		a, b := kfs[i-1], kfs[i]
		span := b.T - a.T
		if span <= 0 {
			return b.Accel
		}
		frac := float64(elapsed-a.T) / float64(span)
		return a.Accel + frac*(b.Accel-a.Accel)
	}
	return kfs[len(kfs)-1].Accel
}
