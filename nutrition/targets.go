package nutrition

import "math"

// jobBasePAL maps job activity to the base physical activity level. This is
// the single source of truth for valid job activity values.
var jobBasePAL = map[JobActivity]float64{
	JobLow:    1.35,
	JobMedium: 1.55,
	JobHigh:   1.75,
}

// trainingBump is added on top of the job base PAL.
var trainingBump = map[TrainingActivity]float64{
	TrainingNone:     0,
	TrainingLight:    0.10,
	TrainingModerate: 0.20,
	TrainingHigh:     0.30,
}

const (
	MinPAL = 1.20
	MaxPAL = 2.05
)

// Energy accounting used when pricing macros.
const (
	KcalPerGramProtein = 4
	KcalPerGramFat     = 9
	KcalPerGramCarbs   = 4
)

// BMR estimates basal metabolic rate with Mifflin-St Jeor.
// Returns ok=false when weight, height, age or sex is missing or zero.
func BMR(p NutritionProfile) (bmr int, ok bool) {
	w, h, a := value(p.WeightKG), value(p.HeightCM), value(p.AgeYears)
	if w == 0 || h == 0 || a == 0 || !p.Sex.Valid() {
		return 0, false
	}

	base := 10*w + 6.25*h - 5*a
	if p.Sex == SexMale {
		return round(base + 5), true
	}
	return round(base - 161), true
}

// PAL returns the activity multiplier: job base plus training bump, clamped
// to [MinPAL, MaxPAL] and rounded to two decimals.
func PAL(p NutritionProfile) (pal float64, ok bool) {
	base, found := jobBasePAL[p.JobActivity]
	if !found {
		return 0, false
	}
	bump, found := trainingBump[p.TrainingActivity]
	if !found {
		return 0, false
	}
	pal = clampFloat(base+bump, MinPAL, MaxPAL)
	return float64(round(pal*100)) / 100, true
}

// Energy is the BMR/PAL/TDEE breakdown. A nil field means that stage could
// not be computed; TDEE is nil whenever either input is.
type Energy struct {
	BMR  *int     `json:"bmr"`
	PAL  *float64 `json:"pal"`
	TDEE *int     `json:"tdee"`
}

// TDEE computes total daily energy expenditure as round(BMR × PAL).
func TDEE(p NutritionProfile) Energy {
	bmr, ok := BMR(p)
	if !ok || bmr == 0 {
		return Energy{}
	}
	pal, ok := PAL(p)
	if !ok {
		return Energy{BMR: &bmr}
	}
	tdee := round(float64(bmr) * pal)
	return Energy{BMR: &bmr, PAL: &pal, TDEE: &tdee}
}

// GoalInfo describes how a goal adjusts maintenance calories.
type GoalInfo struct {
	Label      string  `json:"label"`
	TweakLabel string  `json:"tweak_label"`
	Factor     float64 `json:"factor"`
}

func GoalMeta(g Goal) GoalInfo {
	switch g {
	case GoalLoseFat:
		return GoalInfo{Label: "Lose fat", TweakLabel: "−15%", Factor: 0.85}
	case GoalGainMuscle:
		return GoalInfo{Label: "Gain muscle", TweakLabel: "+10%", Factor: 1.10}
	case GoalMaintain:
		return GoalInfo{Label: "Maintain", TweakLabel: "0%", Factor: 1.0}
	default:
		return GoalInfo{Label: "Not set", TweakLabel: "—", Factor: 1.0}
	}
}

// ApplyGoalToCalories scales tdee by the goal factor. Nil in, nil out.
func ApplyGoalToCalories(tdee *int, g Goal) *int {
	if tdee == nil {
		return nil
	}
	kcal := round(float64(*tdee) * GoalMeta(g).Factor)
	return &kcal
}

// Macros holds gram targets. Fields are nil when they cannot be derived.
type Macros struct {
	Protein *int `json:"protein"`
	Fat     *int `json:"fat"`
	Carbs   *int `json:"carbs"`
}

// MacrosFromCalories prices protein (1.8 g/kg, 2.0 g/kg when gaining) and fat
// (0.9 g/kg) first; carbs take whatever energy is left, never below zero.
func MacrosFromCalories(p NutritionProfile, calories *int) Macros {
	w := value(p.WeightKG)
	if w == 0 || calories == nil {
		return Macros{}
	}

	proteinPerKG := 1.8
	if p.Goal == GoalGainMuscle {
		proteinPerKG = 2.0
	}
	protein := round(w * proteinPerKG)
	fat := round(w * 0.9)

	remaining := float64(*calories - (protein*KcalPerGramProtein + fat*KcalPerGramFat))
	carbs := int(math.Max(0, float64(round(remaining/KcalPerGramCarbs))))
	return Macros{Protein: &protein, Fat: &fat, Carbs: &carbs}
}

// AutoTargets is the calculator output for a profile. Any stage that could
// not be computed leaves its fields nil.
type AutoTargets struct {
	Energy
	Calories *int `json:"calories"`
	Macros
	Goal GoalInfo `json:"goal"`
}

// Complete reports whether every target field is available.
func (a AutoTargets) Complete() bool {
	return a.Calories != nil && a.Protein != nil && a.Fat != nil && a.Carbs != nil
}

// Targets converts a complete result into daily targets.
func (a AutoTargets) Targets() (Targets, bool) {
	if !a.Complete() {
		return Targets{}, false
	}
	return Targets{
		Kcal:    *a.Calories,
		Protein: float64(*a.Protein),
		Fat:     float64(*a.Fat),
		Carbs:   float64(*a.Carbs),
	}, true
}

// TargetsFromProfile runs TDEE → goal-adjusted calories → macros.
func TargetsFromProfile(p NutritionProfile) AutoTargets {
	energy := TDEE(p)
	calories := ApplyGoalToCalories(energy.TDEE, p.Goal)
	return AutoTargets{
		Energy:   energy,
		Calories: calories,
		Macros:   MacrosFromCalories(p, calories),
		Goal:     GoalMeta(p.Goal),
	}
}

// IsProfileComplete reports whether every field the calculators need is set.
// Goal is not required; an unset goal behaves like maintain.
func IsProfileComplete(p NutritionProfile) bool {
	return p.Sex.Valid() &&
		value(p.AgeYears) != 0 &&
		value(p.HeightCM) != 0 &&
		value(p.WeightKG) != 0 &&
		p.JobActivity.Valid() &&
		p.TrainingActivity.Valid()
}
