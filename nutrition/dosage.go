package nutrition

import "fmt"

// Reference product constants for the "what a product could cover" view.
// They are provisional V1 values until the product's nutrient sheet is final.
const (
	// FullDoseGrams is the nominal daily serving of the reference product.
	FullDoseGrams = 8.8
	// EAAPerFullDoseGrams is the EAA content of one full serving.
	EAAPerFullDoseGrams = 5.0
	// boostPerFullDose is the vitamin/mineral score bump for one full serving.
	boostPerFullDose = 35
	maxDoseBoost     = 40

	// MaxDoseEAAScore lets the comparison show EAA up to 200%.
	MaxDoseEAAScore = 200

	MinDoseGrams = 0
	MaxDoseGrams = 12
)

// Category keys used in comparison rows.
const (
	CategoryMacros     = "macros"
	CategoryVitamins   = "vitamins"
	CategoryMinerals   = "minerals"
	CategoryFattyAcids = "fatty_acids"
	CategoryEAA        = "eaa"
)

// ComparisonRow is the before/after score of one category.
type ComparisonRow struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Note     string `json:"note"`
}

// Comparison is the result of adding a hypothetical dose to a day.
type Comparison struct {
	Grams         float64         `json:"grams"`
	VitaminBoost  int             `json:"vitamin_boost"`
	MineralBoost  int             `json:"mineral_boost"`
	ExtraEAAGrams float64         `json:"extra_eaa_grams"`
	Rows          []ComparisonRow `json:"rows"`
}

// DoseBoost is the vitamin/mineral score bump for grams of product.
func DoseBoost(grams float64) int {
	return clampInt(round(grams/FullDoseGrams*boostPerFullDose), 0, maxDoseBoost)
}

// DoseEAAGrams is the EAA contained in grams of product.
func DoseEAAGrams(grams float64) float64 {
	return grams / FullDoseGrams * EAAPerFullDoseGrams
}

// CompareDosage scores d as logged and again with grams of the reference
// product added. Macros and fatty acids are not affected by the product.
// grams is clamped to [MinDoseGrams, MaxDoseGrams].
func CompareDosage(d DailyLog, grams float64) Comparison {
	grams = clampFloat(grams, MinDoseGrams, MaxDoseGrams)
	base := ComputeCoverage(d)

	boost := DoseBoost(grams)
	extraEAA := DoseEAAGrams(grams)
	eaaAfter := EAAScore(d.Supplements.EAAGrams+extraEAA, MaxDoseEAAScore)

	return Comparison{
		Grams:         grams,
		VitaminBoost:  boost,
		MineralBoost:  boost,
		ExtraEAAGrams: extraEAA,
		Rows: []ComparisonRow{
			{
				Category: CategoryMacros,
				Title:    "A) Macros + energy",
				Before:   base.Macros,
				After:    base.Macros,
				Note:     "Macros are unchanged by the added dose.",
			},
			{
				Category: CategoryVitamins,
				Title:    "B) Vitamins",
				Before:   base.Vitamins,
				After:    clampInt(base.Vitamins+boost, 0, MaxProxyScore),
				Note:     fmt.Sprintf("Estimated boost: +%d%%", boost),
			},
			{
				Category: CategoryMinerals,
				Title:    "C) Minerals & trace elements",
				Before:   base.Minerals,
				After:    clampInt(base.Minerals+boost, 0, MaxProxyScore),
				Note:     fmt.Sprintf("Estimated boost: +%d%%", boost),
			},
			{
				Category: CategoryFattyAcids,
				Title:    "D) Fatty acids",
				Before:   base.FattyAcids,
				After:    base.FattyAcids,
				Note:     "Omega-3 is tracked separately.",
			},
			{
				Category: CategoryEAA,
				Title:    "E) EAA",
				Before:   base.EAA,
				After:    eaaAfter,
				Note:     fmt.Sprintf("Adds ~%.1fg EAA (proxy)", extraEAA),
			},
		},
	}
}
