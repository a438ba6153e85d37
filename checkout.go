package main

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

/* ─── Catalog ────────────────────────────────────────────────────────── */

// product is one purchasable SKU. Prices are whole euros.
type product struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Flavor     string `json:"flavor"`
	OneTimeEUR int64  `json:"one_time_eur"`
	SubEUR     int64  `json:"sub_eur"`
	InStock    bool   `json:"in_stock"`
}

var catalog = []product{
	{SKU: "odf-citrus-30", Name: "ODF 30-Day Supply", Flavor: "Citrus", OneTimeEUR: 69, SubEUR: 62},
	{SKU: "odf-vanilla-30", Name: "ODF 30-Day Supply", Flavor: "Vanilla", OneTimeEUR: 69, SubEUR: 62},
}

// products returns the catalog with stock state applied from config.
func (h *Handler) products() []product {
	out := make([]product, len(catalog))
	for i, p := range catalog {
		p.InStock = !slices.Contains(h.cfg.SoldOutSKUs, p.SKU)
		out[i] = p
	}
	return out
}

func (h *Handler) findProduct(sku string) (product, bool) {
	for _, p := range h.products() {
		if p.SKU == sku {
			return p, true
		}
	}
	return product{}, false
}

// listProducts handles GET /api/products.
func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.products())
}

/* ─── Stripe ─────────────────────────────────────────────────────────── */

const (
	planOneTime = "one_time"
	planSub     = "sub"
)

// checkoutSessionCreator creates a hosted checkout session.
type checkoutSessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// stripeCheckoutSession returns a creator bound to secretKey. A per-client key
// keeps the global stripe.Key untouched.
func stripeCheckoutSession(secretKey string) checkoutSessionCreator {
	client := session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return client.New
}

// checkoutParams builds a single-item session for p. Subscriptions bill
// monthly at the subscription price.
func checkoutParams(p product, plan, siteURL string) *stripe.CheckoutSessionParams {
	mode := stripe.CheckoutSessionModePayment
	unitEUR := p.OneTimeEUR
	name := p.Name + " - " + p.Flavor
	var recurring *stripe.CheckoutSessionLineItemPriceDataRecurringParams
	if plan == planSub {
		mode = stripe.CheckoutSessionModeSubscription
		unitEUR = p.SubEUR
		name += " (Subscription)"
		recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}

	return &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(mode)),
		SuccessURL: stripe.String(siteURL + "/checkout/success"),
		CancelURL:  stripe.String(siteURL + "/checkout/cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyEUR)),
					UnitAmount: stripe.Int64(unitEUR * 100),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
					Recurring: recurring,
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
}

type checkoutRequest struct {
	SKU  string `json:"sku"`
	Plan string `json:"plan"`
}

// createCheckout handles POST /api/stripe/checkout and returns the hosted
// checkout URL. Any plan other than "sub" is a one-time purchase.
func (h *Handler) createCheckout(c *gin.Context) {
	if h.cfg.StripeSecretKey == "" {
		apiError(c, http.StatusBadRequest, "Stripe is not configured (missing STRIPE_SECRET_KEY).")
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	plan := planOneTime
	if req.Plan == planSub {
		plan = planSub
	}

	p, ok := h.findProduct(req.SKU)
	if !ok {
		recordCheckoutSession(plan, "unknown_product")
		apiError(c, http.StatusBadRequest, "Unknown product.")
		return
	}
	if !p.InStock {
		recordCheckoutSession(plan, "sold_out")
		apiError(c, http.StatusBadRequest, "Sold out.")
		return
	}

	s, err := h.createCheckoutSession(checkoutParams(p, plan, h.cfg.SiteURL))
	if err != nil {
		recordCheckoutSession(plan, "provider_error")
		h.log.Error("[checkout] Stripe error", zap.String("sku", p.SKU), zap.Error(err))
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			apiError(c, http.StatusInternalServerError, stripeErr.Msg)
			return
		}
		apiError(c, http.StatusInternalServerError, err.Error())
		return
	}

	recordCheckoutSession(plan, "ok")
	c.JSON(http.StatusOK, gin.H{"url": s.URL})
}
