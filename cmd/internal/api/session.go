package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wedding/cmd/identity"
)

const (
	sessionIssuer  = "wedding"
	sessionSubject = "admin"
)

var errNoSession = errors.New("admin session missing")

type adminClaims struct {
	jwt.RegisteredClaims
}

func (h *Handler) issueSession(now time.Time) (string, time.Time, error) {
	exp := now.Add(h.cfg.Admin.SessionTTL)
	id, err := identity.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    sessionIssuer,
			Subject:   sessionSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.Admin.SessionSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (h *Handler) parseSession(raw string) (*adminClaims, error) {
	var claims adminClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return []byte(h.cfg.Admin.SessionSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithSubject(sessionSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func (h *Handler) sessionFromRequest(r *http.Request) (*adminClaims, error) {
	c, err := r.Cookie(h.cfg.Admin.CookieName)
	if err != nil {
		return nil, errNoSession
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return nil, errNoSession
	}
	return h.parseSession(v)
}

// requireAdmin rejects requests without a valid session cookie.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.sessionFromRequest(r); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "admin session required")
			return
		}
		next(w, r)
	}
}

// checkPassword compares against the argon2id hash when configured, else the plaintext
// password in constant time.
func (h *Handler) checkPassword(given string) (bool, error) {
	a := h.cfg.Admin
	if a.PasswordHash != "" {
		return h.passwords.Verify(a.PasswordHash, given)
	}
	return secureStringEqual(a.Password, given), nil
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, exp time.Time) {
	a := h.cfg.Admin
	http.SetCookie(w, &http.Cookie{
		Name:     a.CookieName,
		Value:    value,
		Path:     a.CookiePath,
		Domain:   a.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   a.CookieSecure,
		SameSite: a.CookieSameSite,
	})
}

func (h *Handler) expireSessionCookie(w http.ResponseWriter) {
	a := h.cfg.Admin
	http.SetCookie(w, &http.Cookie{
		Name:     a.CookieName,
		Value:    "",
		Path:     a.CookiePath,
		Domain:   a.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.CookieSecure,
		SameSite: a.CookieSameSite,
	})
}

func secureStringEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
