package main

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smooday/quickcheck-api/nutrition"
)

/* ─── Response types ─────────────────────────────────────────────────── */

// autoView is the calculator result for the document's profile.
type autoView struct {
	BMR      *int     `json:"bmr"`
	PAL      *float64 `json:"pal"`
	TDEE     *int     `json:"tdee"`
	Calories *int     `json:"calories"`
	Protein  *int     `json:"protein"`
	Fat      *int     `json:"fat"`
	Carbs    *int     `json:"carbs"`
	Complete bool     `json:"complete"`
}

// stateView is returned by every quick-check read and mutation, so clients
// never have to recompute anything.
type stateView struct {
	Document nutrition.DailyLog `json:"document"`
	Auto     autoView           `json:"auto"`
	Totals   nutrition.Totals   `json:"totals"`
	Coverage nutrition.Coverage `json:"coverage"`
}

func buildStateView(doc nutrition.DailyLog) stateView {
	auto := nutrition.TargetsFromProfile(doc.Profile)
	return stateView{
		Document: doc,
		Auto: autoView{
			BMR:      auto.BMR,
			PAL:      auto.PAL,
			TDEE:     auto.TDEE,
			Calories: auto.Calories,
			Protein:  auto.Protein,
			Fat:      auto.Fat,
			Carbs:    auto.Carbs,
			Complete: auto.Complete(),
		},
		Totals:   nutrition.SumMeals(doc.Meals),
		Coverage: nutrition.ComputeCoverage(doc),
	}
}

/* ─── Document helpers ───────────────────────────────────────────────── */

// loadDocument reads the device's document without locking; used by
// read-only routes.
func (h *Handler) loadDocument(c *gin.Context) nutrition.DailyLog {
	return h.store.Load(c.Request.Context(), storageKeyFrom(c))
}

// mutate loads the device's document, applies fn and, if fn returns true,
// saves it and responds with the state view. fn writes its own error
// response when it returns false.
func (h *Handler) mutate(c *gin.Context, fn func(doc *nutrition.DailyLog) bool) {
	key := storageKeyFrom(c)
	ctx := c.Request.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	doc := h.store.Load(ctx, key)
	if !fn(&doc) {
		return
	}
	h.store.Save(ctx, key, doc)
	c.JSON(http.StatusOK, buildStateView(doc))
}

/* ─── Document ───────────────────────────────────────────────────────── */

// getQuickCheck handles GET /api/quickcheck.
func (h *Handler) getQuickCheck(c *gin.Context) {
	c.JSON(http.StatusOK, buildStateView(h.loadDocument(c)))
}

// replaceQuickCheck handles PUT /api/quickcheck. The body is decoded with the
// same field-by-field defaults as a stored document.
func (h *Handler) replaceQuickCheck(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil || probe == nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		*doc = nutrition.DecodeDailyLog(body)
		return true
	})
}

// resetQuickCheck handles POST /api/quickcheck/reset.
func (h *Handler) resetQuickCheck(c *gin.Context) {
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		*doc = nutrition.DefaultDailyLog()
		return true
	})
}

/* ─── Profile & targets ──────────────────────────────────────────────── */

// profilePatch is a partial profile update. An empty string clears an enum;
// a number <= 0 clears a measurement.
type profilePatch struct {
	Sex              *string  `json:"sex"`
	AgeYears         *float64 `json:"age"`
	HeightCM         *float64 `json:"heightCm"`
	WeightKG         *float64 `json:"weightKg"`
	Goal             *string  `json:"goal"`
	JobActivity      *string  `json:"jobActivity"`
	TrainingActivity *string  `json:"trainingActivity"`
}

// apply validates enum values and merges the patch into p.
func (patch profilePatch) apply(p *nutrition.NutritionProfile) (string, bool) {
	if patch.Sex != nil {
		v := nutrition.Sex(*patch.Sex)
		if v != nutrition.SexUnset && !v.Valid() {
			return "invalid sex", false
		}
		p.Sex = v
	}
	if patch.Goal != nil {
		v := nutrition.Goal(*patch.Goal)
		if v != nutrition.GoalUnset && !v.Valid() {
			return "invalid goal", false
		}
		p.Goal = v
	}
	if patch.JobActivity != nil {
		v := nutrition.JobActivity(*patch.JobActivity)
		if v != nutrition.JobUnset && !v.Valid() {
			return "invalid jobActivity", false
		}
		p.JobActivity = v
	}
	if patch.TrainingActivity != nil {
		v := nutrition.TrainingActivity(*patch.TrainingActivity)
		if v != nutrition.TrainingUnset && !v.Valid() {
			return "invalid trainingActivity", false
		}
		p.TrainingActivity = v
	}
	setMeasurement(&p.AgeYears, patch.AgeYears)
	setMeasurement(&p.HeightCM, patch.HeightCM)
	setMeasurement(&p.WeightKG, patch.WeightKG)
	*p = nutrition.ClampProfile(*p)
	return "", true
}

func setMeasurement(dst **float64, v *float64) {
	if v == nil {
		return
	}
	if *v <= 0 {
		*dst = nil
		return
	}
	n := *v
	*dst = &n
}

// patchProfile handles PATCH /api/quickcheck/profile.
func (h *Handler) patchProfile(c *gin.Context) {
	var patch profilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		if msg, ok := patch.apply(&doc.Profile); !ok {
			apiError(c, http.StatusBadRequest, msg)
			return false
		}
		return true
	})
}

// resetProfile handles POST /api/quickcheck/profile/reset. Meals and
// supplements are kept.
func (h *Handler) resetProfile(c *gin.Context) {
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		doc.ResetProfileAndTargets()
		return true
	})
}

// getAutoTargets handles GET /api/quickcheck/targets/auto.
func (h *Handler) getAutoTargets(c *gin.Context) {
	doc := h.loadDocument(c)
	auto := nutrition.TargetsFromProfile(doc.Profile)
	c.JSON(http.StatusOK, gin.H{
		"targets":          auto,
		"complete":         auto.Complete(),
		"profile_complete": nutrition.IsProfileComplete(doc.Profile),
	})
}

// applyAutoTargets handles POST /api/quickcheck/targets/auto.
func (h *Handler) applyAutoTargets(c *gin.Context) {
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		if _, ok := doc.ApplyAutoTargets(); !ok {
			apiError(c, http.StatusBadRequest, "profile incomplete")
			return false
		}
		return true
	})
}

// targetsRequest accepts fractional kcal; it is rounded on the way in.
type targetsRequest struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"p"`
	Fat     float64 `json:"f"`
	Carbs   float64 `json:"c"`
}

// putTargets handles PUT /api/quickcheck/targets.
func (h *Handler) putTargets(c *gin.Context) {
	var req targetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		doc.Targets = nutrition.SanitizeTargets(nutrition.Targets{
			Kcal:    nutrition.RoundKcal(req.Kcal),
			Protein: req.Protein,
			Fat:     req.Fat,
			Carbs:   req.Carbs,
		})
		return true
	})
}

/* ─── Meals ──────────────────────────────────────────────────────────── */

// addMeal handles POST /api/quickcheck/meals.
func (h *Handler) addMeal(c *gin.Context) {
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		doc.AddExtraMeal()
		return true
	})
}

// resetMeals handles POST /api/quickcheck/meals/reset.
func (h *Handler) resetMeals(c *gin.Context) {
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		doc.ResetMeals()
		return true
	})
}

// updateMeal handles PUT /api/quickcheck/meals/:id.
func (h *Handler) updateMeal(c *gin.Context) {
	var patch nutrition.MealPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	id := c.Param("id")
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		if _, ok := doc.UpdateMeal(id, patch); !ok {
			apiError(c, http.StatusNotFound, "meal not found")
			return false
		}
		return true
	})
}

// deleteMeal handles DELETE /api/quickcheck/meals/:id.
func (h *Handler) deleteMeal(c *gin.Context) {
	id := c.Param("id")
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		if !doc.RemoveMeal(id) {
			apiError(c, http.StatusNotFound, "meal not found")
			return false
		}
		return true
	})
}

// estimateMeal handles POST /api/quickcheck/meals/:id/estimate. The meal note
// is sent to the macro estimator and the result is written into the meal.
// The provider call runs outside the document lock.
func (h *Handler) estimateMeal(c *gin.Context) {
	id := c.Param("id")
	doc := h.loadDocument(c)
	meal, ok := doc.FindMeal(id)
	if !ok {
		apiError(c, http.StatusNotFound, "meal not found")
		return
	}
	if strings.TrimSpace(meal.Note) == "" {
		apiError(c, http.StatusBadRequest, "meal note is empty")
		return
	}

	est, status, err := h.requestMealMacros(c, meal.Note)
	if err != nil {
		apiError(c, status, err.Error())
		return
	}

	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		kcal, p, f, carbs := float64(est.Kcal), float64(est.Protein), float64(est.Fat), float64(est.Carbs)
		if _, ok := doc.UpdateMeal(id, nutrition.MealPatch{Kcal: &kcal, Protein: &p, Fat: &f, Carbs: &carbs}); !ok {
			// Removed while the estimate was running.
			apiError(c, http.StatusNotFound, "meal not found")
			return false
		}
		return true
	})
}

/* ─── Supplements ────────────────────────────────────────────────────── */

type supplementsPatch struct {
	Multivitamin *bool    `json:"multivitamin"`
	VitaminD     *bool    `json:"vitaminD"`
	Omega3       *bool    `json:"omega3"`
	Magnesium    *bool    `json:"magnesium"`
	Zinc         *bool    `json:"zinc"`
	EAAGrams     *float64 `json:"eaaGrams"`
}

// patchSupplements handles PATCH /api/quickcheck/supplements.
func (h *Handler) patchSupplements(c *gin.Context) {
	var patch supplementsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	h.mutate(c, func(doc *nutrition.DailyLog) bool {
		s := &doc.Supplements
		setBool(&s.Multivitamin, patch.Multivitamin)
		setBool(&s.VitaminD, patch.VitaminD)
		setBool(&s.Omega3, patch.Omega3)
		setBool(&s.Magnesium, patch.Magnesium)
		setBool(&s.Zinc, patch.Zinc)
		if patch.EAAGrams != nil {
			s.EAAGrams = *patch.EAAGrams
		}
		*doc = nutrition.Sanitize(*doc)
		return true
	})
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

/* ─── Coverage ───────────────────────────────────────────────────────── */

// getCoverage handles GET /api/quickcheck/coverage.
func (h *Handler) getCoverage(c *gin.Context) {
	doc := h.loadDocument(c)
	c.JSON(http.StatusOK, gin.H{
		"totals":   nutrition.SumMeals(doc.Meals),
		"targets":  doc.Targets,
		"coverage": nutrition.ComputeCoverage(doc),
	})
}

// getComparison handles GET /api/quickcheck/compare?grams=8.8.
func (h *Handler) getComparison(c *gin.Context) {
	grams := nutrition.FullDoseGrams
	if raw := c.Query("grams"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			h.log.Debug("[compare] bad grams", zap.String("grams", raw))
			apiError(c, http.StatusBadRequest, "grams must be a number")
			return
		}
		grams = parsed
	}
	c.JSON(http.StatusOK, nutrition.CompareDosage(h.loadDocument(c), grams))
}
