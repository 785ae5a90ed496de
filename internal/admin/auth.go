package admin

import (
	cryptorand "crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

const (
	secretPathLength = 32
	tokenLength      = 32

	// MinTokenLength is the shortest operator-supplied token accepted.
	MinTokenLength = 16

	cookieName   = "gohwrng_admin_token"
	cookieMaxAge = 86400
)

// ErrTokenTooShort is returned when a configured token is shorter than
// MinTokenLength.
var ErrTokenTooShort = errors.New("admin token too short")

// Authenticator guards the dashboard behind a secret path and a token.
//
// Secrets come from the operating system CSPRNG, never from the hardware
// generator, so the dashboard works on machines without a hardware source.
type Authenticator struct {
	token    string
	path     string
	useHTTPS bool
}

// NewAuthenticator returns an Authenticator with a fresh secret path.
//
// If token is empty a random token is generated; otherwise token is used
// as given and must be at least MinTokenLength characters.
func NewAuthenticator(useHTTPS bool, token string) (*Authenticator, error) {
	if token == "" {
		t, err := secretString(tokenLength)
		if err != nil {
			return nil, fmt.Errorf("generate admin token: %w", err)
		}
		token = t
	} else if len(token) < MinTokenLength {
		return nil, fmt.Errorf("%w: %d characters, need %d", ErrTokenTooShort, len(token), MinTokenLength)
	}

	p, err := secretString(secretPathLength)
	if err != nil {
		return nil, fmt.Errorf("generate admin path: %w", err)
	}

	return &Authenticator{
		token:    token,
		path:     "/" + p,
		useHTTPS: useHTTPS,
	}, nil
}

// secretString returns length URL-safe characters from crypto/rand.
func secretString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := cryptorand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}

// Token returns the admin token.
func (a *Authenticator) Token() string {
	return a.token
}

// Path returns the secret dashboard path, with a leading slash.
func (a *Authenticator) Path() string {
	return a.path
}

// ValidateToken compares token against the admin token in constant time.
func (a *Authenticator) ValidateToken(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
}

// TokenFromRequest returns the token carried by the session cookie, or
// the token query parameter if there is no cookie.
func (a *Authenticator) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// SetCookie stores the admin token in an HttpOnly session cookie.
func (a *Authenticator) SetCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    a.token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   a.useHTTPS,
	})
}

// IsAuthenticated reports whether r carries the admin token.
func (a *Authenticator) IsAuthenticated(r *http.Request) bool {
	return a.ValidateToken(a.TokenFromRequest(r))
}

func (a *Authenticator) baseURL(host string) *url.URL {
	scheme := "http"
	if a.useHTTPS {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: host, Path: a.path}
}

// LoginURL returns the one-click login link for host.
func (a *Authenticator) LoginURL(host string) string {
	u := a.baseURL(host)
	u.Path += "/login"
	u.RawQuery = url.Values{"token": {a.token}}.Encode()
	return u.String()
}

// AdminURL returns the dashboard URL for host, without the token.
func (a *Authenticator) AdminURL(host string) string {
	return a.baseURL(host).String()
}
