package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sufra/globals"
	"sufra/models"
)

func signedToken(t *testing.T, userID string, roles []string) string {
	t.Helper()
	claims := &Claims{
		Username: "amina",
		UserID:   userID,
		Role:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	require.NoError(t, err)
	return token
}

func recordingHandler(reached *bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	reached := false
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()

	Authenticate(recordingHandler(&reached))(rec, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthenticateRejectsUpgradeRequestWithoutToken(t *testing.T) {
	reached := false
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()

	Authenticate(recordingHandler(&reached))(rec, req, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached, "upgrade headers must not bypass token validation")
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	var gotUserID string
	var gotRoles []string
	handler := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotUserID, _ = r.Context().Value(globals.UserIDKey).(string)
		gotRoles, _ = r.Context().Value(globals.RoleKey).([]string)
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u-1", []string{models.RoleCustomer}))
	rec := httptest.NewRecorder()

	Authenticate(handler)(rec, req, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", gotUserID)
	assert.Equal(t, []string{models.RoleCustomer}, gotRoles)
}

func TestRequireRole(t *testing.T) {
	reached := false
	wrapped := Authenticate(RequireRole(recordingHandler(&reached), models.RoleSuperAdmin))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u-1", []string{models.RoleCustomer}))
	rec := httptest.NewRecorder()
	wrapped(rec, req, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u-2", []string{models.RoleSuperAdmin}))
	rec = httptest.NewRecorder()
	wrapped(rec, req, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}
