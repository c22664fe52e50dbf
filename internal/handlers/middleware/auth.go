package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/azhulin/journalmart/internal/handlers/render"
	"github.com/azhulin/journalmart/internal/handlers/userctx"
)

type identityVerifier interface {
	// Validate the token issued by the identity provider, return the user id
	UserID(tokenString string) (uuid.UUID, error)
}

// AuthMiddleware verifies the bearer token and puts the user id in context.
// No other identity detail is read from the token.
func AuthMiddleware(verifier identityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := verifier.UserID(token)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
