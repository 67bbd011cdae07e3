package builder

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/byteai/builder/handler"
	"github.com/byteai/builder/pkg/auth"
	"github.com/byteai/builder/pkg/logger"
	"github.com/byteai/builder/pkg/quota"
	"github.com/byteai/builder/pkg/ratelimit"
	"github.com/byteai/builder/pkg/sandbox"
	"github.com/byteai/builder/pkg/search"
)

type Config struct {
	TestUpgradeEnabled bool `env:"TEST_UPGRADE_ENABLED" envDefault:"false"`

	// Per-user budgets for the two routes that cost money upstream.
	SandboxRate ratelimit.Config `envPrefix:"SANDBOX_RATE_"`
	SearchRate  ratelimit.Config `envPrefix:"SEARCH_RATE_"`
}

// SandboxFactory builds provider handles by name.
type SandboxFactory interface {
	Create(name string, opts ...sandbox.CreateOption) (*sandbox.Handle, error)
	DefaultProvider() string
	IsProviderAvailable(name string) bool
}

// SandboxRegistry owns the active sandbox.
type SandboxRegistry interface {
	Replace(ctx context.Context, create func() (*sandbox.Handle, error)) (sandbox.Info, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) (search.Response, error)
}

// Handler serves the builder API.
type Handler struct {
	quota     quota.Service
	sandboxes SandboxFactory
	registry  SandboxRegistry
	search    Searcher
	cfg       Config
	log       *slog.Logger
	errs      handler.ErrorHandler
	now       func() time.Time

	sandboxLimit *ratelimit.Bucket
	searchLimit  *ratelimit.Bucket
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(h *Handler) {
		h.cfg = cfg
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithRateLimits throttles sandbox creation and search per user. Nil
// buckets leave the route unlimited.
func WithRateLimits(sandboxes, search *ratelimit.Bucket) Option {
	return func(h *Handler) {
		h.sandboxLimit = sandboxes
		h.searchLimit = search
	}
}

// NewHandler panics on nil collaborators.
func NewHandler(q quota.Service, f SandboxFactory, reg SandboxRegistry, s Searcher, opts ...Option) *Handler {
	if q == nil {
		panic("builder: quota service is required")
	}
	if f == nil || reg == nil {
		panic("builder: sandbox factory and registry are required")
	}
	if s == nil {
		panic("builder: searcher is required")
	}
	h := &Handler{
		quota:     q,
		sandboxes: f,
		registry:  reg,
		search:    s,
		log:       logger.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("builder"))
	h.errs = handler.NewErrorHandler(h.log)
	return h
}

// Routes registers the API on r under /api.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/check-generation-limit", wrap(h, h.checkGenerationLimit))
		r.Get("/user-progress", wrap(h, h.userProgress))
		r.Post("/sync-user", wrap(h, h.syncUser))
		r.Get("/subscription", wrap(h, h.subscription))
		r.Post("/update-user-progress", wrap(h, h.updateUserProgress, handler.BindJSON()))
		r.Post("/record-app-generation", wrap(h, h.recordAppGeneration, handler.BindJSON()))
		r.Post("/increment-generation", wrap(h, h.incrementGeneration, handler.BindJSON()))
		if h.cfg.TestUpgradeEnabled {
			r.Post("/test-upgrade", wrap(h, h.testUpgrade, handler.BindJSON()))
		}

		r.Get("/user-projects", wrap(h, h.listProjects))
		r.Post("/user-projects", wrap(h, h.createProject, handler.BindJSON()))
		r.Put("/user-projects/{projectId}", wrap(h, h.updateProject, handler.BindJSON(), handler.BindPath(chi.URLParam)))
		r.Delete("/user-projects/{projectId}", wrap(h, h.deleteProject, handler.BindPath(chi.URLParam)))

		r.With(h.throttle("sandbox", h.sandboxLimit)...).Post("/create-ai-sandbox", wrap(h, h.createSandbox))
		r.Get("/sandbox-providers", wrap(h, h.sandboxProviders))

		r.With(h.throttle("search", h.searchLimit)...).Post("/search", wrap(h, h.searchDesigns, handler.BindJSON()))
	})
}

func (h *Handler) throttle(scope string, b *ratelimit.Bucket) []func(http.Handler) http.Handler {
	if b == nil {
		return nil
	}
	key := func(r *http.Request) string {
		if id := auth.UserID(r.Context()); id != "" {
			return scope + ":" + id
		}
		return ""
	}
	return []func(http.Handler) http.Handler{
		ratelimit.Middleware(b, key, ratelimit.WithMiddlewareLogger(h.log)),
	}
}

func wrap[R any](h *Handler, fn handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(fn, handler.WithBinders(binders...), handler.WithErrorHandler(h.errs))
}

// caller returns the session user. RequireUser guarantees one in production.
func caller(ctx handler.Context) (string, bool) {
	id := auth.UserID(ctx)
	return id, id != ""
}

func unauthorized() handler.Response {
	return handler.Fail(handler.ErrUnauthorized)
}

// internalError logs err and answers the generic 500.
func (h *Handler) internalError(ctx handler.Context, msg, userID string, err error) handler.Response {
	h.log.ErrorContext(ctx, msg, logger.UserID(userID), logger.Error(err))
	return handler.Fail(handler.ErrInternal)
}
