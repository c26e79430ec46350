// Package router assembles the admin panel's route table.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lucent-admin/lucent/internal/web/controller"
	"github.com/lucent-admin/lucent/internal/web/middleware"
)

// Config holds the controllers and middleware dependencies the route table
// needs.
type Config struct {
	Resources *controller.Resources
	Auth      *controller.Auth
	Logger    *zap.Logger
	// StorageDir, when set, is served under /storage/.
	StorageDir string
}

// New builds the full route table.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cfg.Auth.Authenticate)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/init", cfg.Auth.Init)
		r.Post("/login", cfg.Auth.Login)
		r.Post("/register", cfg.Auth.Register)
		r.Post("/logout", cfg.Auth.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(controller.RequireAuth)

		r.Get("/api/resources", cfg.Resources.Metadata)

		r.Route("/resources/{resource}", func(r chi.Router) {
			r.Get("/", cfg.Resources.Index)
			r.Post("/", cfg.Resources.Store)
			r.Delete("/", cfg.Resources.Destroy)
			r.Post("/run-action", cfg.Resources.RunAction)
			r.Post("/upload-file", cfg.Resources.Upload)
			r.Get("/{id}", cfg.Resources.Show)
			r.Put("/{id}", cfg.Resources.Update)
			r.Get("/{id}/has-many/{relation}", cfg.Resources.HasMany)
			r.Get("/{id}/has-one/{relation}", cfg.Resources.HasOne)
		})
	})

	if cfg.StorageDir != "" {
		fs := http.StripPrefix(controller.PublicStoragePrefix, http.FileServer(http.Dir(cfg.StorageDir)))
		r.Get(controller.PublicStoragePrefix+"*", fs.ServeHTTP)
	}

	return r
}
