// Package lucent assembles an admin panel from a set of registered
// resources: a document store, the query engine, session-backed
// authentication, uploads, and the HTTP surface, all driven by a single
// config.
package lucent

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/lucent-admin/lucent/internal/config"
	"github.com/lucent-admin/lucent/internal/engine"
	"github.com/lucent-admin/lucent/internal/resource"
	"github.com/lucent-admin/lucent/internal/store"
	"github.com/lucent-admin/lucent/internal/uploads"
	"github.com/lucent-admin/lucent/internal/web/cache"
	"github.com/lucent-admin/lucent/internal/web/controller"
	"github.com/lucent-admin/lucent/internal/web/router"
	"github.com/lucent-admin/lucent/internal/web/server"
	"github.com/lucent-admin/lucent/internal/web/session"
)

// Panel is a configured admin panel ready to register resources and
// serve.
type Panel struct {
	config   *config.Config
	logger   *zap.Logger
	registry *resource.Registry
	store    store.Store
	sessions *session.Manager
	cache    cache.Cache
	storage  *uploads.DiskStorage
	server   *server.Server
}

// New builds a panel from config. Resources are registered afterwards,
// before Run.
func New(cfg *config.Config, logger *zap.Logger) (*Panel, error) {
	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	storage, err := uploads.NewDiskStorage(cfg.Storage.Root, cfg.Storage.MaxFileSize)
	if err != nil {
		return nil, err
	}

	sessionStore, err := openSessionStore(cfg.Session)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(sessionStore, session.Config{
		Secure:    cfg.Session.Secure,
		TTL:       cfg.Session.TTL,
		JWTSecret: []byte(cfg.Session.Secret),
	})

	c, err := openCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	return &Panel{
		config:   cfg,
		logger:   logger,
		registry: resource.NewRegistry(),
		store:    st,
		sessions: sessions,
		cache:    c,
		storage:  storage,
	}, nil
}

// Register adds a resource to the panel.
func (p *Panel) Register(res *resource.Resource) error {
	return p.registry.Register(res)
}

// MustRegister adds a resource and panics on a definition error.
func (p *Panel) MustRegister(res *resource.Resource) {
	p.registry.MustRegister(res)
}

// Registry exposes the registered resources.
func (p *Panel) Registry() *resource.Registry { return p.registry }

// Store exposes the document store, for seeding and admin tooling.
func (p *Panel) Store() store.Store { return p.store }

// Handler builds the panel's HTTP handler.
func (p *Panel) Handler() (http.Handler, error) {
	eng := engine.New(p.store, p.registry)
	resources := controller.NewResources(eng, p.storage, p.cache, p.logger)
	auth := controller.NewAuth(p.store, p.sessions, p.logger)

	return router.New(router.Config{
		Resources:  resources,
		Auth:       auth,
		Logger:     p.logger,
		StorageDir: p.storage.Dir(),
	}), nil
}

// Run serves the panel until interrupted, then shuts down the server and
// closes the backends.
func (p *Panel) Run() error {
	handler, err := p.Handler()
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig(handler)
	cfg.Address = p.config.Server.Address()

	srv, err := server.New(cfg, p.logger)
	if err != nil {
		return err
	}
	p.server = srv

	srv.OnShutdown(func(ctx context.Context) error {
		return p.Close()
	})

	return srv.Run()
}

// Close releases the panel's backends.
func (p *Panel) Close() error {
	var firstErr error
	if err := p.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := p.cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.Path)
	case "postgres":
		return store.NewPostgresStore(context.Background(), cfg.URL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openSessionStore(cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Driver {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		}), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

func openCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Driver {
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Config: cache.DefaultConfig(),
		})
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
