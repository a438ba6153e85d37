package nutrition

import (
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Targets are the daily calorie and macro goals coverage is measured against.
type Targets struct {
	Kcal    int     `json:"kcal"`
	Protein float64 `json:"p"`
	Fat     float64 `json:"f"`
	Carbs   float64 `json:"c"`
}

// Meal labels. Breakfast, lunch and dinner exist once by default; any number
// of extra meals may be added.
const (
	LabelBreakfast = "Breakfast"
	LabelLunch     = "Lunch"
	LabelDinner    = "Dinner"
	LabelExtra     = "Extra"
)

// Meal is one logged meal. Values are entered by hand or estimated from Note.
type Meal struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Note    string  `json:"note"`
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"p"`
	Fat     float64 `json:"f"`
	Carbs   float64 `json:"c"`
}

// Supplements is today's supplement checklist.
type Supplements struct {
	Multivitamin bool    `json:"multivitamin"`
	VitaminD     bool    `json:"vitaminD"`
	Omega3       bool    `json:"omega3"`
	Magnesium    bool    `json:"magnesium"`
	Zinc         bool    `json:"zinc"`
	EAAGrams     float64 `json:"eaaGrams"`
}

// DailyLog is the persisted quick-check document and the sole input to the
// coverage engine.
type DailyLog struct {
	Meals       []Meal           `json:"meals"`
	Supplements Supplements      `json:"supplements"`
	Targets     Targets          `json:"targets"`
	Profile     NutritionProfile `json:"profile"`
}

// Input ranges for logged values.
const (
	MaxMealKcal    = 10000
	MaxMealProtein = 400
	MaxMealFat     = 400
	MaxMealCarbs   = 800
	MaxEAAGrams    = 50
	MaxTargetKcal  = 10000
	MaxTargetGrams = 1000
)

/* ─── Defaults ───────────────────────────────────────────────────────── */

func DefaultTargets() Targets {
	return Targets{Kcal: 2200, Protein: 150, Fat: 70, Carbs: 220}
}

func DefaultProfile() NutritionProfile {
	return NutritionProfile{
		Goal:             GoalMaintain,
		JobActivity:      JobLow,
		TrainingActivity: TrainingNone,
	}
}

func DefaultMeals() []Meal {
	return []Meal{
		NewMeal(LabelBreakfast),
		NewMeal(LabelLunch),
		NewMeal(LabelDinner),
	}
}

// NewMeal returns an empty meal with a fresh id.
func NewMeal(label string) Meal {
	return Meal{ID: newMealID(), Label: label}
}

func newMealID() string {
	return uuid.NewString()
}

// DefaultDailyLog is the document a device starts with.
func DefaultDailyLog() DailyLog {
	return DailyLog{
		Meals:       DefaultMeals(),
		Supplements: Supplements{},
		Targets:     DefaultTargets(),
		Profile:     DefaultProfile(),
	}
}

// DocumentKeyPrefix versions the persisted document layout.
const DocumentKeyPrefix = "smooday_v1_quickcheck:"

// DocumentKey derives the storage key of a device's document. The raw device
// id is never stored.
func DocumentKey(deviceID uuid.UUID) string {
	sum := blake2b.Sum256(deviceID[:])
	return DocumentKeyPrefix + hex.EncodeToString(sum[:])
}

/* ─── Decoding ───────────────────────────────────────────────────────── */

// DecodeDailyLog parses a stored document over the defaults. Unreadable input
// yields the defaults; within a readable document every missing, null or
// wrong-typed field keeps its default. The result is sanitized.
func DecodeDailyLog(raw []byte) DailyLog {
	doc := DefaultDailyLog()
	if len(raw) == 0 {
		return doc
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return doc
	}

	if meals, ok := decodeMeals(top["meals"]); ok {
		doc.Meals = meals
	}

	s := &doc.Supplements
	mergeFields(top["supplements"], fields{
		"multivitamin": into(&s.Multivitamin),
		"vitaminD":     into(&s.VitaminD),
		"omega3":       into(&s.Omega3),
		"magnesium":    into(&s.Magnesium),
		"zinc":         into(&s.Zinc),
		"eaaGrams":     into(&s.EAAGrams),
	})

	t := &doc.Targets
	mergeFields(top["targets"], fields{
		"kcal": intoKcal(&t.Kcal),
		"p":    into(&t.Protein),
		"f":    into(&t.Fat),
		"c":    into(&t.Carbs),
	})

	p := &doc.Profile
	mergeFields(top["profile"], fields{
		"sex":              into(&p.Sex),
		"age":              intoPtr(&p.AgeYears),
		"heightCm":         intoPtr(&p.HeightCM),
		"weightKg":         intoPtr(&p.WeightKG),
		"goal":             into(&p.Goal),
		"jobActivity":      into(&p.JobActivity),
		"trainingActivity": into(&p.TrainingActivity),
	})

	return Sanitize(doc)
}

// decodeMeals accepts an array of objects. An empty array is a valid,
// empty meal list; an array holding no objects at all is rejected. Fields
// inside a meal fall back to zero values the same way document sections do.
func decodeMeals(raw json.RawMessage) ([]Meal, bool) {
	if raw == nil {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	if len(items) == 0 {
		return []Meal{}, true
	}

	meals := make([]Meal, 0, len(items))
	for _, item := range items {
		var m Meal
		isObject := mergeFields(item, fields{
			"id":    into(&m.ID),
			"label": into(&m.Label),
			"note":  into(&m.Note),
			"kcal":  into(&m.Kcal),
			"p":     into(&m.Protein),
			"f":     into(&m.Fat),
			"c":     into(&m.Carbs),
		})
		if !isObject {
			continue
		}
		meals = append(meals, m)
	}
	if len(meals) == 0 {
		return nil, false
	}
	return meals, true
}

type fields map[string]func(json.RawMessage)

// mergeFields decodes raw as an object and hands each known key to its
// setter. Returns false when raw is not an object.
func mergeFields(raw json.RawMessage, fs fields) bool {
	if raw == nil {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return false
	}
	for key, set := range fs {
		v, ok := obj[key]
		if !ok || isNull(v) {
			continue
		}
		set(v)
	}
	return true
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

// into assigns the decoded value only when it has the expected type.
func into[T any](dst *T) func(json.RawMessage) {
	return func(raw json.RawMessage) {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			*dst = v
		}
	}
}

func intoPtr(dst **float64) func(json.RawMessage) {
	return func(raw json.RawMessage) {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			*dst = &v
		}
	}
}

func intoKcal(dst *int) func(json.RawMessage) {
	return func(raw json.RawMessage) {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			*dst = RoundKcal(v)
		}
	}
}

// Sanitize applies the input clamps to every field of the document and
// fills in missing meal ids and labels.
func Sanitize(doc DailyLog) DailyLog {
	meals := make([]Meal, len(doc.Meals))
	for i, m := range doc.Meals {
		meals[i] = SanitizeMeal(m)
	}
	doc.Meals = meals
	doc.Supplements.EAAGrams = clampFloat(doc.Supplements.EAAGrams, 0, MaxEAAGrams)
	doc.Targets = SanitizeTargets(doc.Targets)
	doc.Profile = ClampProfile(doc.Profile)
	return doc
}

func SanitizeMeal(m Meal) Meal {
	if m.ID == "" {
		m.ID = newMealID()
	}
	if m.Label == "" {
		m.Label = LabelExtra
	}
	m.Kcal = clampFloat(m.Kcal, 0, MaxMealKcal)
	m.Protein = clampFloat(m.Protein, 0, MaxMealProtein)
	m.Fat = clampFloat(m.Fat, 0, MaxMealFat)
	m.Carbs = clampFloat(m.Carbs, 0, MaxMealCarbs)
	return m
}

func SanitizeTargets(t Targets) Targets {
	t.Kcal = clampInt(t.Kcal, 0, MaxTargetKcal)
	t.Protein = clampFloat(t.Protein, 0, MaxTargetGrams)
	t.Fat = clampFloat(t.Fat, 0, MaxTargetGrams)
	t.Carbs = clampFloat(t.Carbs, 0, MaxTargetGrams)
	return t
}

/* ─── Mutations ──────────────────────────────────────────────────────── */

// AddExtraMeal appends an empty "Extra" meal and returns it.
func (d *DailyLog) AddExtraMeal() Meal {
	m := NewMeal(LabelExtra)
	d.Meals = append(d.Meals, m)
	return m
}

// MealPatch carries a partial meal update; nil fields are left unchanged.
type MealPatch struct {
	Note    *string  `json:"note"`
	Kcal    *float64 `json:"kcal"`
	Protein *float64 `json:"p"`
	Fat     *float64 `json:"f"`
	Carbs   *float64 `json:"c"`
}

// UpdateMeal applies patch to the meal with the given id. Returns false when
// no such meal exists.
func (d *DailyLog) UpdateMeal(id string, patch MealPatch) (Meal, bool) {
	for i := range d.Meals {
		if d.Meals[i].ID != id {
			continue
		}
		m := d.Meals[i]
		if patch.Note != nil {
			m.Note = *patch.Note
		}
		if patch.Kcal != nil {
			m.Kcal = *patch.Kcal
		}
		if patch.Protein != nil {
			m.Protein = *patch.Protein
		}
		if patch.Fat != nil {
			m.Fat = *patch.Fat
		}
		if patch.Carbs != nil {
			m.Carbs = *patch.Carbs
		}
		d.Meals[i] = SanitizeMeal(m)
		return d.Meals[i], true
	}
	return Meal{}, false
}

// FindMeal returns the meal with the given id.
func (d *DailyLog) FindMeal(id string) (Meal, bool) {
	for _, m := range d.Meals {
		if m.ID == id {
			return m, true
		}
	}
	return Meal{}, false
}

// RemoveMeal deletes the meal with the given id. Removing every meal is
// allowed; an empty list means nothing is logged.
func (d *DailyLog) RemoveMeal(id string) bool {
	for i, m := range d.Meals {
		if m.ID == id {
			d.Meals = append(d.Meals[:i:i], d.Meals[i+1:]...)
			return true
		}
	}
	return false
}

func (d *DailyLog) ResetMeals() {
	d.Meals = DefaultMeals()
}

// ApplyAutoTargets overwrites Targets with the values computed from Profile.
// Returns false, leaving Targets untouched, when the profile cannot produce
// a complete result.
func (d *DailyLog) ApplyAutoTargets() (Targets, bool) {
	t, ok := TargetsFromProfile(d.Profile).Targets()
	if !ok {
		return d.Targets, false
	}
	d.Targets = SanitizeTargets(t)
	return d.Targets, true
}

// ResetProfileAndTargets restores the default profile and targets, keeping
// meals and supplements.
func (d *DailyLog) ResetProfileAndTargets() {
	d.Targets = DefaultTargets()
	d.Profile = DefaultProfile()
}
