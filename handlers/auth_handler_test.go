package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func tokenWithIDToken(raw string) *oauth2.Token {
	return (&oauth2.Token{AccessToken: "access"}).WithExtra(map[string]interface{}{
		"id_token": raw,
	})
}

func TestIDTokenClaims(t *testing.T) {
	raw := signedIDToken(t, jwt.MapClaims{
		"sub":   "google-subject-1",
		"email": "person@example.com",
		"name":  "Person Example",
	})

	claims, err := idTokenClaims(tokenWithIDToken(raw))
	require.NoError(t, err)
	assert.Equal(t, "google-subject-1", claims.subject)
	assert.Equal(t, "person@example.com", claims.email)
	require.NotNil(t, claims.name)
	assert.Equal(t, "Person Example", *claims.name)
}

func TestIDTokenClaimsWithoutName(t *testing.T) {
	raw := signedIDToken(t, jwt.MapClaims{
		"sub":   "google-subject-2",
		"email": "anon@example.com",
	})

	claims, err := idTokenClaims(tokenWithIDToken(raw))
	require.NoError(t, err)
	assert.Nil(t, claims.name)
}

func TestIDTokenClaimsMissingIdentity(t *testing.T) {
	_, err := idTokenClaims(&oauth2.Token{AccessToken: "access"})
	assert.Error(t, err)

	raw := signedIDToken(t, jwt.MapClaims{"email": "no-subject@example.com"})
	_, err = idTokenClaims(tokenWithIDToken(raw))
	assert.Error(t, err)

	raw = signedIDToken(t, jwt.MapClaims{"sub": "no-email"})
	_, err = idTokenClaims(tokenWithIDToken(raw))
	assert.Error(t, err)
}

func TestRequestOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://app.example.com/login/google", nil)
	assert.Equal(t, "http://app.example.com", requestOrigin(r))

	r = httptest.NewRequest(http.MethodGet, "http://app.example.com/login/google", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://app.example.com", requestOrigin(r))
}
