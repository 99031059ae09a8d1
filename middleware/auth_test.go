package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UrThings/cs-ufe/models"
)

var testSecret = []byte("unit-test-secret")

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func playerClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": 42,
		"role":    string(models.RolePlayer),
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
}

func runAuthenticated(t *testing.T, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	handler := Authenticator(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticatorAcceptsValidToken(t *testing.T) {
	token := signToken(t, playerClaims(), testSecret)
	rec := runAuthenticated(t, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	expired := playerClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	cases := []struct {
		name          string
		authorization string
	}{
		{name: "no header", authorization: ""},
		{name: "not bearer", authorization: "Basic abcdef"},
		{name: "garbage token", authorization: "Bearer not.a.token"},
		{name: "wrong secret", authorization: "Bearer " + signToken(t, playerClaims(), []byte("other-secret"))},
		{name: "expired", authorization: "Bearer " + signToken(t, expired, testSecret)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := runAuthenticated(t, tc.authorization)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthenticatorPutsClaimsInContext(t *testing.T) {
	var gotUserID int
	var gotRole models.UserRole

	handler := Authenticator(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotUserID, err = GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		gotRole, err = GetUserRoleFromContext(r.Context())
		require.NoError(t, err)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, playerClaims(), testSecret))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 42, gotUserID)
	assert.Equal(t, models.RolePlayer, gotRole)
}

func TestAuthorizeByRole(t *testing.T) {
	adminOnly := Authorize(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(claims jwt.MapClaims) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if claims != nil {
			req = req.WithContext(context.WithValue(req.Context(), userContextKey, claims))
		}
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)
		return rec
	}

	admin := playerClaims()
	admin["role"] = string(models.RoleAdmin)
	assert.Equal(t, http.StatusNoContent, serve(admin).Code)
	assert.Equal(t, http.StatusForbidden, serve(playerClaims()).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(nil).Code)
}

func TestGetUserIDFromContextClaimShapes(t *testing.T) {
	withClaims := func(claims jwt.MapClaims) context.Context {
		return context.WithValue(context.Background(), userContextKey, claims)
	}

	id, err := GetUserIDFromContext(withClaims(jwt.MapClaims{"user_id": float64(7)}))
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	id, err = GetUserIDFromContext(withClaims(jwt.MapClaims{"user_id": "12"}))
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = GetUserIDFromContext(withClaims(jwt.MapClaims{"user_id": float64(0)}))
	assert.Error(t, err)

	_, err = GetUserIDFromContext(withClaims(jwt.MapClaims{"role": "admin"}))
	assert.Error(t, err)

	_, err = GetUserIDFromContext(context.Background())
	assert.Error(t, err)
}
