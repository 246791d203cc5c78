package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modousall221/iap/models"
	"github.com/modousall221/iap/utils"

	"github.com/stretchr/testify/require"
)

func TestAuthMiddlewareRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-auth-roundtrip")
	t.Setenv("JWT_AUD", "")
	t.Setenv("JWT_ISS", "")

	token, err := utils.GenerateAccessTokenWithExpiry("user-abc", models.RoleInvestor, time.Minute)
	require.NoError(t, err)

	var gotID string
	var gotRole models.Role
	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = utils.GetUserID(r)
		gotRole, _ = utils.GetUserRole(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-abc", gotID)
	require.Equal(t, models.RoleInvestor, gotRole)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-auth-roundtrip")
	t.Setenv("JWT_AUD", "")
	t.Setenv("JWT_ISS", "")

	token, err := utils.GenerateAccessTokenWithExpiry("user-abc", models.RoleInvestor, -time.Minute)
	require.NoError(t, err)

	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsTamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-auth-roundtrip")

	token, err := utils.GenerateAccessTokenWithExpiry("user-abc", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
