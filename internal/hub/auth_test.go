package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "alice", expected: "alice"},
		{name: "uppercase folded", input: "Alice", expected: "alice"},
		{name: "spaces and symbols dropped", input: "alice smith!", expected: "alicesmith"},
		{name: "dashes and underscores kept", input: "a-b_c", expected: "a-b_c"},
		{name: "email stripped", input: "alice@example.com", expected: "aliceexamplecom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeUsername(tt.input))
		})
	}
}

func TestHandleLogin_SetsSessionCookie(t *testing.T) {
	auth := NewAuthenticator("test-secret")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"Alice"}`))
	rec := httptest.NewRecorder()
	auth.HandleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"/workshop/"`)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "workshop_token", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)

	id, err := auth.verifyToken(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-alice", id.UserID)
	assert.Equal(t, "Alice", id.Username)
}

func TestHandleLogin_MissingUsername(t *testing.T) {
	auth := NewAuthenticator("test-secret")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	auth.HandleLogin(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestMiddleware_AttachesIdentity(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	token, err := auth.issueToken("user-alice", "alice")
	require.NoError(t, err)

	var got Identity
	var ok bool
	handler := auth.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, ok = IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/workshop/", nil)
	req.AddCookie(&http.Cookie{Name: "workshop_token", Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	assert.Equal(t, "user-alice", got.UserID)
}

func TestMiddleware_RejectsForgedToken(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	forged, err := NewAuthenticator("other-secret").issueToken("user-mallory", "mallory")
	require.NoError(t, err)

	var ok bool
	handler := auth.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, ok = IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/workshop/", nil)
	req.AddCookie(&http.Cookie{Name: "workshop_token", Value: forged})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, ok)
}

func TestMiddleware_RejectsExpiredToken(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	auth.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := auth.issueToken("user-alice", "alice")
	require.NoError(t, err)
	auth.now = time.Now

	_, err = auth.verifyToken(token)
	assert.Error(t, err)
}

func TestRequireAuth_RedirectsAnonymous(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workshop/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
