package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/azhulin/journalmart/internal/handlers/userctx"
	"github.com/azhulin/journalmart/internal/identity"
)

// Allow to use a function as verifier
type verifierFunc func(tokenString string) (uuid.UUID, error)

func (f verifierFunc) UserID(tokenString string) (uuid.UUID, error) {
	return f(tokenString)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that reads the user id from context
	// Must always be present: the middleware either sets it or rejects
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		require.True(t, ok, "middleware should put user id in context")

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(userID.String()))
		require.NoError(t, err, "should write user id to response")
	})

	t.Run("valid token", func(t *testing.T) {
		userID := uuid.New()
		var gotToken string

		middleware := AuthMiddleware(verifierFunc(func(tokenString string) (uuid.UUID, error) {
			gotToken = tokenString
			return userID, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer session-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", string(body))
		require.Equal(t, "session-token", gotToken, "token should reach the verifier without the scheme")
		require.Equal(t, userID.String(), string(body), "handler should see the verified user id")
	})

	t.Run("invalid token", func(t *testing.T) {
		middleware := AuthMiddleware(verifierFunc(func(string) (uuid.UUID, error) {
			return uuid.Nil, identity.ErrTokenInvalid
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer garbage")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "should return status Unauthorized. Resp: %s", string(body))
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Unauthorized"
			}`,
			string(body),
		)
	})

	t.Run("missing or malformed header", func(t *testing.T) {
		middleware := AuthMiddleware(verifierFunc(func(string) (uuid.UUID, error) {
			t.Fatal("verifier must not be called without a bearer token")
			return uuid.Nil, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		for _, header := range []string{"", "Basic dXNlcjpwd2Q=", "Bearer "} {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/test", nil)
			require.NoError(t, err)
			if header != "" {
				req.Header.Set("Authorization", header)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "should make request to test server")
			resp.Body.Close() // nolint:errcheck

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "header %q should be rejected", header)
		}
	})
}
