package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
	"github.com/lucent-admin/lucent/internal/web/response"
	"github.com/lucent-admin/lucent/internal/web/session"
)

// AdminCollection is where panel users live.
const AdminCollection = "admin_users"

// Auth serves registration, login, and logout for panel users.
type Auth struct {
	store    store.Store
	sessions *session.Manager
	logger   *zap.Logger
}

// NewAuth builds the auth controller.
func NewAuth(s store.Store, sessions *session.Manager, logger *zap.Logger) *Auth {
	return &Auth{store: s, sessions: sessions, logger: logger}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Init reports whether any admin user exists, so the client knows whether
// to show the registration form.
func (c *Auth) Init(w http.ResponseWriter, r *http.Request) {
	hasAdmin, err := c.hasAdmin(r.Context())
	if err != nil {
		c.logger.Error("check admin users", zap.Error(err))
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]bool{"hasAdmin": hasAdmin})
}

// Register creates an admin user. The first registration is open; once an
// admin exists, further registration requires a session.
func (c *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		response.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))

	if errs := validateCredentials(creds); errs.Any() {
		response.ValidationFailed(w, errs)
		return
	}

	hasAdmin, err := c.hasAdmin(r.Context())
	if err != nil {
		c.logger.Error("check admin users", zap.Error(err))
		response.InternalError(w)
		return
	}
	if hasAdmin && UserFromContext(r.Context()) == nil {
		response.Unauthorized(w, "")
		return
	}

	if existing, err := c.findByEmail(r.Context(), creds.Email); err == nil && existing != nil {
		response.ValidationFailed(w, resource.Errors{"email": "An account with this email already exists."})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		c.logger.Error("hash password", zap.Error(err))
		response.InternalError(w)
		return
	}

	user, err := c.store.Insert(r.Context(), AdminCollection, store.Record{
		"email":    creds.Email,
		"password": string(hash),
	})
	if err != nil {
		c.logger.Error("insert admin user", zap.Error(err))
		response.InternalError(w)
		return
	}

	_, token, err := c.sessions.Create(r.Context(), w, user.ID(), creds.Email)
	if err != nil {
		c.logger.Error("create session", zap.Error(err))
		response.InternalError(w)
		return
	}

	response.Created(w, map[string]any{
		"user":  publicUser(user),
		"token": token,
	})
}

// Login checks credentials and starts a session.
func (c *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		response.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))

	if errs := validateCredentials(creds); errs.Any() {
		response.ValidationFailed(w, errs)
		return
	}

	user, err := c.findByEmail(r.Context(), creds.Email)
	if err != nil {
		c.logger.Error("find admin user", zap.Error(err))
		response.InternalError(w)
		return
	}

	if user == nil || !passwordMatches(user, creds.Password) {
		response.ValidationFailed(w, resource.Errors{"email": "These credentials do not match our records."})
		return
	}

	_, token, err := c.sessions.Create(r.Context(), w, user.ID(), creds.Email)
	if err != nil {
		c.logger.Error("create session", zap.Error(err))
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]any{
		"user":  publicUser(user),
		"token": token,
	})
}

// Logout destroys the session and clears the cookie.
func (c *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := c.sessions.Destroy(w, r); err != nil {
		c.logger.Error("destroy session", zap.Error(err))
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]any{})
}

// Authenticate loads the signed-in user into the request context when a
// valid session is present. It never rejects; RequireAuth does.
func (c *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := c.sessions.FromRequest(r)
		if err == nil {
			if user, err := c.store.Find(r.Context(), AdminCollection, sess.UserID); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests that carry no signed-in user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			response.Unauthorized(w, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Auth) hasAdmin(ctx context.Context) (bool, error) {
	result, err := c.store.Fetch(ctx, AdminCollection, store.Query{Page: 1, PerPage: 1}.Normalize())
	if err != nil {
		return false, err
	}
	return result.Total > 0, nil
}

func (c *Auth) findByEmail(ctx context.Context, email string) (store.Record, error) {
	q := store.Query{Page: 1, PerPage: 1}.Normalize()
	q.Where("email", store.OpEqual, email)
	result, err := c.store.Fetch(ctx, AdminCollection, q)
	if err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, nil
	}
	return result.Data[0], nil
}

func validateCredentials(creds credentials) resource.Errors {
	errs := resource.Errors{}
	if creds.Email == "" {
		errs["email"] = "The email field is required."
	}
	if creds.Password == "" {
		errs["password"] = "The password field is required."
	}
	return errs
}

func passwordMatches(user store.Record, password string) bool {
	hash, _ := user["password"].(string)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// publicUser strips the password hash before a user record leaves the
// server.
func publicUser(user store.Record) store.Record {
	out := user.Clone()
	delete(out, "password")
	return out
}
