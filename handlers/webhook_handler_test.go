package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76"

	"oritualAPI/services"
)

// signPayload builds a Stripe-Signature header the way Stripe does:
// t=<unix>,v1=hex(hmac_sha256(secret, "<unix>.<payload>")).
func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func stripeEvent(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": %q,
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "metadata": {}}}
	}`, stripe.APIVersion, eventType))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	handler := NewWebhookHandler(services.NewUserService(nil))
	payload := stripeEvent("checkout.session.completed")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload("whsec_wrong", payload))
	rr := httptest.NewRecorder()

	handler.HandleStripeWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookRequiresConfiguredSecret(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	handler := NewWebhookHandler(services.NewUserService(nil))
	payload := stripeEvent("checkout.session.completed")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	rr := httptest.NewRecorder()

	handler.HandleStripeWebhook(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestWebhookAcknowledgesUnhandledEvents(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	handler := NewWebhookHandler(services.NewUserService(nil))
	payload := stripeEvent("invoice.payment_succeeded")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload("whsec_test", payload))
	rr := httptest.NewRecorder()

	handler.HandleStripeWebhook(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhookCheckoutWithoutUserMetadata(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")

	handler := NewWebhookHandler(services.NewUserService(nil))
	payload := stripeEvent("checkout.session.completed")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload("whsec_test", payload))
	rr := httptest.NewRecorder()

	handler.HandleStripeWebhook(rr, req)

	// no user_id to activate, nothing to retry
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
