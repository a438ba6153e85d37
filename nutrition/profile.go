// Package nutrition holds the quick-check calculators: daily targets from a
// body profile, and coverage scores from a day's meals and supplements.
// Everything here is pure computation over plain values.
package nutrition

import "math"

type Sex string

const (
	SexUnset  Sex = ""
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type JobActivity string

const (
	JobUnset  JobActivity = ""
	JobLow    JobActivity = "low"
	JobMedium JobActivity = "medium"
	JobHigh   JobActivity = "high"
)

type TrainingActivity string

const (
	TrainingUnset    TrainingActivity = ""
	TrainingNone     TrainingActivity = "none"
	TrainingLight    TrainingActivity = "light"
	TrainingModerate TrainingActivity = "moderate"
	TrainingHigh     TrainingActivity = "high"
)

type Goal string

const (
	GoalUnset      Goal = ""
	GoalLoseFat    Goal = "lose_fat"
	GoalMaintain   Goal = "maintain"
	GoalGainMuscle Goal = "gain_muscle"
)

// Valid reports whether s is a known sex. The unset value is not valid.
func (s Sex) Valid() bool { return s == SexMale || s == SexFemale }

func (j JobActivity) Valid() bool {
	_, ok := jobBasePAL[j]
	return ok
}

func (t TrainingActivity) Valid() bool {
	_, ok := trainingBump[t]
	return ok
}

func (g Goal) Valid() bool {
	return g == GoalLoseFat || g == GoalMaintain || g == GoalGainMuscle
}

// NutritionProfile is the body profile the targets are computed from.
// Numeric fields are nil until the user has entered them.
type NutritionProfile struct {
	Sex              Sex              `json:"sex"`
	AgeYears         *float64         `json:"age"`
	HeightCM         *float64         `json:"heightCm"`
	WeightKG         *float64         `json:"weightKg"`
	Goal             Goal             `json:"goal"`
	JobActivity      JobActivity      `json:"jobActivity"`
	TrainingActivity TrainingActivity `json:"trainingActivity"`
}

/* ─── Input clamps ───────────────────────────────────────────────────── */

// Input ranges for profile fields. They are applied when values enter the
// system, never inside the formulas, which only reject zero/unset values.
const (
	MinAgeYears = 1
	MaxAgeYears = 120
	MinHeightCM = 50
	MaxHeightCM = 250
	MinWeightKG = 20
	MaxWeightKG = 250
)

// ClampProfile returns p with numeric fields clamped into their input
// ranges and unknown enum values reset to unset. Nil fields stay nil.
func ClampProfile(p NutritionProfile) NutritionProfile {
	p.AgeYears = clampPtr(p.AgeYears, MinAgeYears, MaxAgeYears)
	p.HeightCM = clampPtr(p.HeightCM, MinHeightCM, MaxHeightCM)
	p.WeightKG = clampPtr(p.WeightKG, MinWeightKG, MaxWeightKG)
	if !p.Sex.Valid() {
		p.Sex = SexUnset
	}
	if !p.Goal.Valid() {
		p.Goal = GoalUnset
	}
	if !p.JobActivity.Valid() {
		p.JobActivity = JobUnset
	}
	if !p.TrainingActivity.Valid() {
		p.TrainingActivity = TrainingUnset
	}
	return p
}

func clampPtr(v *float64, lo, hi float64) *float64 {
	if v == nil {
		return nil
	}
	c := clampFloat(*v, lo, hi)
	return &c
}

func clampFloat(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// round is half-up rounding: round(-2.5) == -2, round(2.5) == 3.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// RoundKcal clamps a calorie target to [0, MaxTargetKcal] before rounding
// half-up, so out-of-range floats never overflow int.
func RoundKcal(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return round(clampFloat(v, 0, MaxTargetKcal))
}

// value reads an optional number, treating nil as zero.
func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
