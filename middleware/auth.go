package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"oritualAPI/internal/apperr"
	"oritualAPI/services"
)

type contextKey string

const UserIDKey contextKey = "userID"

// SessionCookieName is the cookie carrying "<userId>:<token>".
const SessionCookieName = "session"

// SessionAuthMiddleware resolves the session cookie into a user identity.
// The cookie value is "<userId>:<token>"; identity is established by a
// successful user lookup on the embedded id.
func SessionAuthMiddleware(userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				respondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, _, found := strings.Cut(cookie.Value, ":")
			if !found || userID == "" {
				respondWithError(w, http.StatusUnauthorized, "Invalid session")
				return
			}

			if _, err := userService.GetUser(r.Context(), userID); err != nil {
				if !errors.Is(err, apperr.ErrNotFound) {
					log.Printf("Session user lookup failed: %v", err)
				}
				respondWithError(w, http.StatusUnauthorized, "Invalid session")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(fmt.Sprintf(`{"error": "%s"}`, message)))
}
