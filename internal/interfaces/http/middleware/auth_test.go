package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func authedHandler(t *testing.T, got *Principal) http.Handler {
	return RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		require.True(t, ok)
		*got = p
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAuth_ValidToken(t *testing.T) {
	token, err := IssueToken(testSecret, Principal{UserID: "u1", TenantID: "t1", PosNumber: 4},
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)

	var got Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authedHandler(t, &got).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Principal{UserID: "u1", TenantID: "t1", PosNumber: 4}, got)
}

func TestRequireAuth_Rejections(t *testing.T) {
	expired, err := IssueToken(testSecret, Principal{UserID: "u1", TenantID: "t1"},
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))})
	require.NoError(t, err)
	wrongKey, err := IssueToken("other", Principal{UserID: "u1", TenantID: "t1"}, jwt.RegisteredClaims{})
	require.NoError(t, err)
	noTenant, err := IssueToken(testSecret, Principal{UserID: "u1"}, jwt.RegisteredClaims{})
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "auth_required"},
		{"basic scheme", "Basic abc", "auth_invalid_scheme"},
		{"garbage", "Bearer not-a-jwt", "auth_invalid"},
		{"expired", "Bearer " + expired, "auth_invalid"},
		{"wrong key", "Bearer " + wrongKey, "auth_invalid"},
		{"missing tenant", "Bearer " + noTenant, "auth_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}
