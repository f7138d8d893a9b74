package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "5f0c1a7e-2b8d-4c1e-9a3f-6d2b7e8c9a10"

func sessionCookie(t *testing.T, m *AuthMiddleware, userID string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	m.SetAuthCookie(w, userID)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "no cookies set by SetAuthCookie")
	return cookies[0]
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok, "user id not in context")
		assert.Equal(t, testUserID, id)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.AddCookie(sessionCookie(t, m, testUserID))

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, nextCalled, "next handler was not called")
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	valid := sessionCookie(t, m, testUserID)

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"garbage", &http.Cookie{Name: authCookieName, Value: "garbage"}},
		{"tampered id", &http.Cookie{Name: authCookieName, Value: "admin" + valid.Value[len(testUserID):]}},
		{"foreign secret", sessionCookie(t, other, testUserID)},
		{"empty id", &http.Cookie{Name: authCookieName, Value: "." + m.signature("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}

			m.Middleware(next).ServeHTTP(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
		})
	}
}

func TestClearAuthCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	w := httptest.NewRecorder()
	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestNewAuthMiddleware_RandomSecret(t *testing.T) {
	a := NewAuthMiddleware("")
	b := NewAuthMiddleware("")
	assert.NotEqual(t, a.sign(testUserID), b.sign(testUserID))
}
