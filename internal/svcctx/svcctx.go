// Package svcctx wires folio's long-lived services together and carries
// them through a context.Context.
package svcctx

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/internal/jobs"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/repository"
	"github.com/jackzampolin/folio/internal/router"
)

// Services are built once per process by New. Commands reach them through
// the context helpers below.
type Services struct {
	Config     *config.Manager
	Registry   *providers.Registry
	Repository repository.Repository
	Pool       *jobs.BatchPool
	Gate       *jobs.Gate
	Logger     *slog.Logger
	Home       *home.Dir

	controller atomic.Pointer[router.Controller]
}

// Controller returns the current routing controller. A config reload swaps
// it; extractions already running keep the one they loaded.
func (s *Services) Controller() *router.Controller {
	return s.controller.Load()
}

// SetController replaces the routing controller.
func (s *Services) SetController(c *router.Controller) {
	s.controller.Store(c)
}

type servicesKey struct{}

// WithServices attaches s to ctx.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom returns the Services attached to ctx, or nil.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// field applies get to the attached Services, or returns T's zero value.
func field[T any](ctx context.Context, get func(*Services) T) T {
	if s := ServicesFrom(ctx); s != nil {
		return get(s)
	}
	var zero T
	return zero
}

func RegistryFrom(ctx context.Context) *providers.Registry {
	return field(ctx, func(s *Services) *providers.Registry { return s.Registry })
}

func RepositoryFrom(ctx context.Context) repository.Repository {
	return field(ctx, func(s *Services) repository.Repository { return s.Repository })
}

// ControllerFrom returns the controller current at the time of the call.
func ControllerFrom(ctx context.Context) *router.Controller {
	return field(ctx, (*Services).Controller)
}

func PoolFrom(ctx context.Context) *jobs.BatchPool {
	return field(ctx, func(s *Services) *jobs.BatchPool { return s.Pool })
}

func LoggerFrom(ctx context.Context) *slog.Logger {
	return field(ctx, func(s *Services) *slog.Logger { return s.Logger })
}

func HomeFrom(ctx context.Context) *home.Dir {
	return field(ctx, func(s *Services) *home.Dir { return s.Home })
}

func ConfigFrom(ctx context.Context) *config.Manager {
	return field(ctx, func(s *Services) *config.Manager { return s.Config })
}
