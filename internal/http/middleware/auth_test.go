package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuthDisabledWhenNoHash(t *testing.T) {
	handler := AdminAuth("")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminAuthRejectsMissingCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := AdminAuth(string(hash))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Header().Get("WWW-Authenticate"), "Basic")
}

func TestAdminAuthRejectsWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := AdminAuth(string(hash))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.SetBasicAuth("admin", "wrong")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminAuthAcceptsValidPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := AdminAuth(string(hash))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.SetBasicAuth("admin", "hunter2")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}
