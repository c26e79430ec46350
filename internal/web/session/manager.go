package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds the cookie and token settings for the manager.
type Config struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
	JWTSecret  []byte
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig(secret []byte) Config {
	return Config{
		CookieName: "lucent_session",
		Secure:     true,
		TTL:        7 * 24 * time.Hour,
		JWTSecret:  secret,
	}
}

// Manager creates and resolves sessions. Browser clients carry the
// session ID in an HttpOnly cookie; API clients may instead send the JWT
// issued at login as a bearer token.
type Manager struct {
	store  Store
	config Config
}

// NewManager builds a manager over the given store.
func NewManager(store Store, config Config) *Manager {
	if config.CookieName == "" {
		config.CookieName = "lucent_session"
	}
	if config.TTL <= 0 {
		config.TTL = 7 * 24 * time.Hour
	}
	return &Manager{store: store, config: config}
}

// Create starts a session for the user, sets the cookie, and returns the
// session together with a signed token for non-browser clients.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID, email string) (*Session, string, error) {
	sess := New(uuid.NewString(), userID, email, m.config.TTL)
	if err := m.store.Set(ctx, sess.ID, sess, m.config.TTL); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	token, err := m.signToken(sess)
	if err != nil {
		return nil, "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(m.config.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return sess, token, nil
}

// FromRequest resolves the session for a request, checking the cookie
// first and then the Authorization header.
func (m *Manager) FromRequest(r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(m.config.CookieName); err == nil && cookie.Value != "" {
		return m.store.Get(r.Context(), cookie.Value)
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		sessionID, err := m.verifyToken(token)
		if err != nil {
			return nil, err
		}
		return m.store.Get(r.Context(), sessionID)
	}

	return nil, ErrSessionNotFound
}

// Destroy removes the session and clears the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	if cookie, err := r.Cookie(m.config.CookieName); err == nil && cookie.Value != "" {
		if err := m.store.Delete(r.Context(), cookie.Value); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) signToken(sess *Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sess.UserID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.config.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) verifyToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.config.JWTSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("token has no session id")
	}
	return claims.ID, nil
}
