package nutrition

// Score bounds per category. Macros may overshoot to 140 and EAA to 160;
// the proxy categories stop at 100.
const (
	MaxMacroScore = 140
	MaxProxyScore = 100
	MaxEAAScore   = 160

	// EAATargetGrams is the fixed daily essential amino acid target.
	EAATargetGrams = 6.0
)

// Proxy weights. These are transparent V1 scoring constants, not nutrient
// math: each flag contributes a fixed share of the category.
const (
	vitaminsMultivitamin = 75
	vitaminsVitaminD     = 15
	vitaminsMealsLogged  = 10

	mineralsMultivitamin = 55
	mineralsMagnesium    = 20
	mineralsZinc         = 15
	mineralsMealsLogged  = 10

	fattyOmega3     = 85
	fattyDietaryFat = 15
	// fattyFatThresholdG is the dietary fat (g) above which the fat bump applies.
	fattyFatThresholdG = 10
)

// Totals is the sum of every logged meal.
type Totals struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"p"`
	Fat     float64 `json:"f"`
	Carbs   float64 `json:"c"`
}

func SumMeals(meals []Meal) Totals {
	var t Totals
	for _, m := range meals {
		t.Kcal += m.Kcal
		t.Protein += m.Protein
		t.Fat += m.Fat
		t.Carbs += m.Carbs
	}
	return t
}

// Pct returns consumed as a rounded percentage of target, or 0 when target
// is not positive.
func Pct(consumed, target float64) int {
	if target <= 0 {
		return 0
	}
	return round(consumed / target * 100)
}

// Coverage is the five category scores for one day, in percent.
type Coverage struct {
	Macros     int `json:"macros"`
	Vitamins   int `json:"vitamins"`
	Minerals   int `json:"minerals"`
	FattyAcids int `json:"fatty_acids"`
	EAA        int `json:"eaa"`
}

// MacroScore averages kcal/protein/fat/carbs coverage, capped at 140.
func MacroScore(t Totals, targets Targets) int {
	k := Pct(t.Kcal, float64(targets.Kcal))
	p := Pct(t.Protein, targets.Protein)
	f := Pct(t.Fat, targets.Fat)
	c := Pct(t.Carbs, targets.Carbs)
	return clampInt(round(float64(k+p+f+c)/4), 0, MaxMacroScore)
}

// VitaminScore is a proxy. Any logged meal counts as a weak positive signal,
// whatever its content.
func VitaminScore(s Supplements, mealsLogged bool) int {
	score := 0
	if s.Multivitamin {
		score += vitaminsMultivitamin
	}
	if s.VitaminD {
		score += vitaminsVitaminD
	}
	if mealsLogged {
		score += vitaminsMealsLogged
	}
	return clampInt(score, 0, MaxProxyScore)
}

func MineralScore(s Supplements, mealsLogged bool) int {
	score := 0
	if s.Multivitamin {
		score += mineralsMultivitamin
	}
	if s.Magnesium {
		score += mineralsMagnesium
	}
	if s.Zinc {
		score += mineralsZinc
	}
	if mealsLogged {
		score += mineralsMealsLogged
	}
	return clampInt(score, 0, MaxProxyScore)
}

func FattyAcidScore(s Supplements, dietaryFatG float64) int {
	score := 0
	if s.Omega3 {
		score += fattyOmega3
	}
	if dietaryFatG > fattyFatThresholdG {
		score += fattyDietaryFat
	}
	return clampInt(score, 0, MaxProxyScore)
}

// EAAScore rates grams against the 6 g target, allowing overshoot up to limit.
func EAAScore(grams float64, limit int) int {
	return clampInt(round(grams/EAATargetGrams*100), 0, limit)
}

// ComputeCoverage scores a day from scratch.
func ComputeCoverage(d DailyLog) Coverage {
	totals := SumMeals(d.Meals)
	logged := len(d.Meals) > 0
	return Coverage{
		Macros:     MacroScore(totals, d.Targets),
		Vitamins:   VitaminScore(d.Supplements, logged),
		Minerals:   MineralScore(d.Supplements, logged),
		FattyAcids: FattyAcidScore(d.Supplements, totals.Fat),
		EAA:        EAAScore(d.Supplements.EAAGrams, MaxEAAScore),
	}
}
