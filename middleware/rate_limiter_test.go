package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func limitedProbe() http.Handler {
	return RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func probeStatus(handler http.Handler, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest("GET", "/api/v1/user", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimitExhaustsConfiguredBurst(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "1")
	t.Setenv("RATE_LIMIT_BURST", "2")
	handler := limitedProbe()

	// a fresh address so the bucket is created with this test's config
	addr := "203.0.113.7:4444"
	assert.Equal(t, http.StatusOK, probeStatus(handler, addr, ""))
	assert.Equal(t, http.StatusOK, probeStatus(handler, addr, ""))
	assert.Equal(t, http.StatusTooManyRequests, probeStatus(handler, addr, ""))
}

func TestRateLimitBucketsPerClient(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "1")
	t.Setenv("RATE_LIMIT_BURST", "1")
	handler := limitedProbe()

	assert.Equal(t, http.StatusOK, probeStatus(handler, "203.0.113.8:1111", ""))
	assert.Equal(t, http.StatusTooManyRequests, probeStatus(handler, "203.0.113.8:1111", ""))

	// a different client is unaffected
	assert.Equal(t, http.StatusOK, probeStatus(handler, "203.0.113.9:2222", ""))
}

func TestClientIPPrefersFirstForwardedHop(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	assert.Equal(t, "198.51.100.4", clientIP(req))

	bare := httptest.NewRequest("GET", "/", nil)
	bare.RemoteAddr = "192.0.2.10:8080"
	assert.Equal(t, "192.0.2.10", clientIP(bare))
}

func TestLimitConfigFallsBackOnGarbage(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "fast")
	t.Setenv("RATE_LIMIT_BURST", "-3")

	rps, burst := limitConfig()
	assert.EqualValues(t, defaultRatePerSecond, rps)
	assert.Equal(t, defaultBurst, burst)
}
