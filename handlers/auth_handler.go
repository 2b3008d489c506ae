package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"oritualAPI/internal/user"
	"oritualAPI/middleware"
	"oritualAPI/services"
)

const (
	stateCookieName    = "oauth_state"
	verifierCookieName = "oauth_verifier"
	oauthCookieTTL     = 10 * time.Minute
	sessionTTL         = 30 * 24 * time.Hour
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

// oauthConfig is built per request so the redirect URI follows the
// origin the user arrived on instead of a hardcoded host.
func oauthConfig(r *http.Request) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  requestOrigin(r) + "/auth/callback/google",
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// Login starts the Google OAuth flow with PKCE. State and verifier are
// parked in short-lived cookies for the callback to check.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	cfg := oauthConfig(r)
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		respondWithError(w, http.StatusInternalServerError, "Service not configured")
		return
	}

	state, err := randomToken(16)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	verifier := oauth2.GenerateVerifier()

	setOAuthCookie(w, r, stateCookieName, state)
	setOAuthCookie(w, r, verifierCookieName, verifier)

	url := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback finishes the OAuth flow: validates state, exchanges the code,
// reads the identity claims off the ID token, upserts the user, and
// issues the session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	verifierCookie, err := r.Cookie(verifierCookieName)
	if err != nil || verifierCookie.Value == "" {
		respondWithError(w, http.StatusBadRequest, "Missing OAuth verifier")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	cfg := oauthConfig(r)
	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifierCookie.Value))
	if err != nil {
		log.Printf("OAuth code exchange failed: %v", err)
		respondWithError(w, http.StatusBadRequest, "Authentication failed")
		return
	}

	claims, err := idTokenClaims(token)
	if err != nil {
		log.Printf("ID token parsing failed: %v", err)
		respondWithError(w, http.StatusBadRequest, "Authentication failed")
		return
	}

	u, isNew, err := h.userService.UpsertByGoogleID(ctx, &user.UpsertRequest{
		GoogleID: claims.subject,
		Email:    claims.email,
		Name:     claims.name,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	sessionToken, err := randomToken(32)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	clearOAuthCookies(w, r)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    fmt.Sprintf("%s:%s", u.ID, sessionToken),
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})

	if isNew || !u.OnboardingCompleted {
		http.Redirect(w, r, "/onboarding", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/app", http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, r)
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type identityClaims struct {
	subject string
	email   string
	name    *string
}

// idTokenClaims pulls identity out of the ID token that rode along with
// the access token. The token came straight from Google over TLS during
// the code exchange, so its signature is not re-verified here.
func idTokenClaims(token *oauth2.Token) (*identityClaims, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("token response carries no id_token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return nil, fmt.Errorf("id_token is missing sub or email")
	}

	out := &identityClaims{subject: sub, email: email}
	if name, ok := claims["name"].(string); ok && name != "" {
		out.name = &name
	}
	return out, nil
}

func randomToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func secureCookies() bool {
	return os.Getenv("SECURE_COOKIES") == "true"
}

func setOAuthCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(oauthCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearOAuthCookies(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{stateCookieName, verifierCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secureCookies(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}
