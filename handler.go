package main

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"smooday/quickcheck-api/nutrition"
)

// Handler holds shared dependencies (document store, config) for all route handlers.
type Handler struct {
	store         *sessionCache
	log           *zap.Logger
	cfg           config
	openAIBaseURL string // Base URL for OpenAI API (overridable for tests)

	// createCheckoutSession talks to Stripe; replaced in tests.
	createCheckoutSession checkoutSessionCreator

	// mu serializes read-modify-write cycles on documents.
	mu sync.Mutex
}

func newHandler(store *sessionCache, log *zap.Logger, cfg config) *Handler {
	return &Handler{
		store:                 store,
		log:                   log,
		cfg:                   cfg,
		openAIBaseURL:         cfg.OpenAIBaseURL,
		createCheckoutSession: stripeCheckoutSession(cfg.StripeSecretKey),
	}
}

// apiError returns a consistent JSON error response: {"error": "message"}.
func apiError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

/* ─── Device identity ────────────────────────────────────────────────── */

const deviceIDHeader = "X-Device-ID"

// deviceMiddleware validates the X-Device-ID header and sets storage_key on
// the context. Documents are scoped to a device; there are no accounts.
func (h *Handler) deviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(deviceIDHeader))
		if raw == "" {
			apiError(c, http.StatusBadRequest, "missing X-Device-ID header")
			c.Abort()
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid X-Device-ID header")
			c.Abort()
			return
		}
		c.Set("storage_key", nutrition.DocumentKey(id))
		c.Next()
	}
}

func storageKeyFrom(c *gin.Context) string {
	return c.GetString("storage_key")
}

/* ─── Server setup ────────────────────────────────────────────────────── */

// registerRoutes registers all API routes on the router.
func (h *Handler) registerRoutes(router *gin.Engine) {
	// Public routes
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/products", h.listProducts)
	router.POST("/api/stripe/checkout", h.createCheckout)
	router.POST("/api/ai/meal-macros", h.estimateMealMacros)

	// Device-scoped routes
	qc := router.Group("/api/quickcheck", h.deviceMiddleware())
	qc.GET("", h.getQuickCheck)
	qc.PUT("", h.replaceQuickCheck)
	qc.POST("/reset", h.resetQuickCheck)
	qc.PATCH("/profile", h.patchProfile)
	qc.POST("/profile/reset", h.resetProfile)
	qc.GET("/targets/auto", h.getAutoTargets)
	qc.POST("/targets/auto", h.applyAutoTargets)
	qc.PUT("/targets", h.putTargets)
	qc.POST("/meals", h.addMeal)
	qc.POST("/meals/reset", h.resetMeals)
	qc.PUT("/meals/:id", h.updateMeal)
	qc.DELETE("/meals/:id", h.deleteMeal)
	qc.POST("/meals/:id/estimate", h.estimateMeal)
	qc.PATCH("/supplements", h.patchSupplements)
	qc.GET("/coverage", h.getCoverage)
	qc.GET("/compare", h.getComparison)
}
