package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieName = "workshop_token"

const sessionDuration = 24 * time.Hour

// Identity is the authenticated user attached to a request.
type Identity struct {
	UserID   string
	Username string
}

type identityKey struct{}

// IdentityFrom returns the authenticated identity for the request, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies session tokens carried in an HTTP-only
// cookie.
type Authenticator struct {
	secret []byte
	now    func() time.Time

	// onLogin is called after each successful login.
	onLogin func()
}

// NewAuthenticator creates an Authenticator signing with the given secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

type loginRequest struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// HandleLogin accepts a username, issues a session token, and sets the
// session cookie.
func (a *Authenticator) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeJSON(w, http.StatusBadRequest, loginResponse{Message: "username required"})
		return
	}

	userID := "user-" + sanitizeUsername(req.Username)
	log.Printf("Login attempt for %s", userID)

	token, err := a.issueToken(userID, req.Username)
	if err != nil {
		log.Printf("Failed to sign session token: %v", err)
		writeJSON(w, http.StatusInternalServerError, loginResponse{Message: "authentication error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if a.onLogin != nil {
		a.onLogin()
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Success:  true,
		Message:  "Login successful",
		Redirect: "/workshop/",
	})
}

// HandleLogout clears the session cookie.
func (a *Authenticator) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *Authenticator) issueToken(userID, username string) (string, error) {
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(a.now().Add(sessionDuration)),
			IssuedAt:  jwt.NewNumericDate(a.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) verifyToken(token string) (Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}

// Middleware attaches the authenticated identity to the request context when
// a valid session cookie is present. Requests without one pass through
// unauthenticated.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(cookieName); err == nil {
			id, err := a.verifyToken(cookie.Value)
			if err != nil {
				log.Printf("Invalid session token: %v", err)
			} else {
				r = r.WithContext(context.WithValue(r.Context(), identityKey{}, id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth redirects unauthenticated requests to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sanitizeUsername reduces a username to characters valid in a Kubernetes
// label value.
func sanitizeUsername(username string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(username) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		}
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
