package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

// fakeCheckout records the params of the last session request.
type fakeCheckout struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (f *fakeCheckout) create(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{URL: "https://checkout.stripe.test/session"}, nil
}

func TestListProducts(t *testing.T) {
	router, h := setupQuickCheckTest(t)
	h.cfg.SoldOutSKUs = []string{"odf-vanilla-30"}

	w := doDeviceRequest(router, "GET", "/api/products", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var products []product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "odf-citrus-30", products[0].SKU)
	assert.True(t, products[0].InStock)
	assert.False(t, products[1].InStock)
	assert.Equal(t, int64(69), products[0].OneTimeEUR)
	assert.Equal(t, int64(62), products[0].SubEUR)
}

func TestCheckout_OneTime(t *testing.T) {
	router, h := setupQuickCheckTest(t)
	fake := &fakeCheckout{}
	h.cfg.StripeSecretKey = "sk_test"
	h.createCheckoutSession = fake.create

	w := doDeviceRequest(router, "POST", "/api/stripe/checkout", `{"sku":"odf-citrus-30","plan":"whatever"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.stripe.test/session", resp["url"])

	p := fake.params
	require.NotNil(t, p)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *p.Mode)
	assert.Equal(t, "http://shop.test/checkout/success", *p.SuccessURL)
	assert.Equal(t, "http://shop.test/checkout/cancel", *p.CancelURL)
	require.Len(t, p.LineItems, 1)
	item := p.LineItems[0]
	assert.Equal(t, int64(6900), *item.PriceData.UnitAmount)
	assert.Equal(t, "eur", *item.PriceData.Currency)
	assert.Equal(t, "ODF 30-Day Supply - Citrus", *item.PriceData.ProductData.Name)
	assert.Nil(t, item.PriceData.Recurring)
	assert.Equal(t, int64(1), *item.Quantity)
}

func TestCheckout_Subscription(t *testing.T) {
	router, h := setupQuickCheckTest(t)
	fake := &fakeCheckout{}
	h.cfg.StripeSecretKey = "sk_test"
	h.createCheckoutSession = fake.create

	w := doDeviceRequest(router, "POST", "/api/stripe/checkout", `{"sku":"odf-vanilla-30","plan":"sub"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p := fake.params
	assert.Equal(t, string(stripe.CheckoutSessionModeSubscription), *p.Mode)
	item := p.LineItems[0]
	assert.Equal(t, int64(6200), *item.PriceData.UnitAmount)
	assert.Equal(t, "ODF 30-Day Supply - Vanilla (Subscription)", *item.PriceData.ProductData.Name)
	require.NotNil(t, item.PriceData.Recurring)
	assert.Equal(t, "month", *item.PriceData.Recurring.Interval)
}

func TestCheckout_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		secretKey string
		soldOut   []string
		body      string
		wantMsg   string
	}{
		{"missing key", "", nil, `{"sku":"odf-citrus-30"}`, "Stripe is not configured (missing STRIPE_SECRET_KEY)."},
		{"unknown product", "sk_test", nil, `{"sku":"odf-mango-30"}`, "Unknown product."},
		{"sold out", "sk_test", []string{"odf-citrus-30"}, `{"sku":"odf-citrus-30","plan":"sub"}`, "Sold out."},
		{"bad body", "sk_test", nil, `{"sku":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, h := setupQuickCheckTest(t)
			fake := &fakeCheckout{}
			h.cfg.StripeSecretKey = tt.secretKey
			h.cfg.SoldOutSKUs = tt.soldOut
			h.createCheckoutSession = fake.create

			w := doDeviceRequest(router, "POST", "/api/stripe/checkout", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(w))
			assert.Nil(t, fake.params, "no session is created")
		})
	}
}

func TestCheckout_ProviderError(t *testing.T) {
	router, h := setupQuickCheckTest(t)
	h.cfg.StripeSecretKey = "sk_test"

	fake := &fakeCheckout{err: &stripe.Error{Msg: "Invalid API Key provided"}}
	h.createCheckoutSession = fake.create
	w := doDeviceRequest(router, "POST", "/api/stripe/checkout", `{"sku":"odf-citrus-30"}`, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Invalid API Key provided", errorMessage(w))

	fake.err = errors.New("connection reset")
	w = doDeviceRequest(router, "POST", "/api/stripe/checkout", `{"sku":"odf-citrus-30"}`, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "connection reset", errorMessage(w))
}
