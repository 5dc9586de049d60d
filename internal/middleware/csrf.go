package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfTokenLen   = 32
	csrfMaxAge     = 12 * 60 * 60 // 12 hours
)

// CSRFMiddleware implements the double-submit cookie pattern for the
// cookie-authenticated account API. Paths under an exempt prefix are
// authenticated with bearer tokens and skip the check.
type CSRFMiddleware struct {
	secure         bool
	exemptPrefixes []string
}

func NewCSRFMiddleware(secure bool, exemptPrefixes ...string) *CSRFMiddleware {
	return &CSRFMiddleware{secure: secure, exemptPrefixes: exemptPrefixes}
}

func (m *CSRFMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			m.ensureToken(w, r)
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusForbidden, "CSRF token missing")
			return
		}

		headerToken := r.Header.Get(csrfHeaderName)
		if headerToken == "" {
			writeError(w, http.StatusForbidden, "CSRF token header missing")
			return
		}

		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(headerToken)) != 1 {
			writeError(w, http.StatusForbidden, "CSRF token mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *CSRFMiddleware) exempt(path string) bool {
	for _, prefix := range m.exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *CSRFMiddleware) ensureToken(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		w.Header().Set(csrfHeaderName, cookie.Value)
		return
	}

	token, err := generateCSRFToken()
	if err != nil {
		return
	}
	m.setCookie(w, token)
	w.Header().Set(csrfHeaderName, token)
}

func (m *CSRFMiddleware) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   csrfMaxAge,
		Expires:  time.Now().Add(csrfMaxAge * time.Second),
		HttpOnly: false, // clients echo it back in the header
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func generateCSRFToken() (string, error) {
	bytes := make([]byte, csrfTokenLen)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// GetToken returns the caller's CSRF token, issuing one when absent.
func (m *CSRFMiddleware) GetToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(csrfCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var err error
		token, err = generateCSRFToken()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to generate CSRF token")
			return
		}
		m.setCookie(w, token)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}
