package sandbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/byteai/builder/pkg/logger"
)

// Registry tracks live sandboxes by id and the one currently active.
type Registry struct {
	mu               sync.Mutex
	handles          map[string]*Handle
	active           *Handle
	terminateTimeout time.Duration
	log              *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTerminateTimeout bounds each best-effort termination.
func WithTerminateTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.terminateTimeout = d
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handles:          make(map[string]*Handle),
		terminateTimeout: 30 * time.Second,
		log:              logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("sandbox_registry"))
	return r
}

// Replace terminates every tracked sandbox, then builds a new handle with
// create, provisions it, scaffolds the app and makes it active. On failure
// the half-built sandbox is terminated too and the error returned.
func (r *Registry) Replace(ctx context.Context, create func() (*Handle, error)) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.terminateAllLocked(ctx)

	h, err := create()
	if err != nil {
		return Info{}, err
	}
	info, err := h.CreateSandbox(ctx)
	if err != nil {
		r.terminate(ctx, h)
		return Info{}, err
	}
	if err := h.SetupViteApp(ctx); err != nil {
		r.terminate(ctx, h)
		return Info{}, err
	}

	r.handles[info.SandboxID] = h
	r.active = h
	return info, nil
}

// TerminateAll terminates and forgets every tracked sandbox.
func (r *Registry) TerminateAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminateAllLocked(ctx)
}

func (r *Registry) terminateAllLocked(ctx context.Context) {
	seen := make(map[*Handle]struct{}, len(r.handles)+1)
	for id, h := range r.handles {
		seen[h] = struct{}{}
		r.terminate(ctx, h)
		delete(r.handles, id)
	}
	if r.active != nil {
		if _, ok := seen[r.active]; !ok {
			r.terminate(ctx, r.active)
		}
		r.active = nil
	}
}

// terminate never fails; the caller wants a fresh sandbox regardless.
func (r *Registry) terminate(ctx context.Context, h *Handle) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.terminateTimeout)
	defer cancel()

	if err := h.Terminate(ctx); err != nil {
		r.log.WarnContext(ctx, "failed to terminate sandbox",
			logger.SandboxID(h.Info().SandboxID),
			logger.Provider(string(h.Kind())),
			logger.Error(err),
		)
	}
}

// Get returns the tracked handle for a sandbox id.
func (r *Registry) Get(sandboxID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[sandboxID]
	return h, ok
}

// Active returns the most recently provisioned handle.
func (r *Registry) Active() (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != nil
}

// Len returns the number of tracked sandboxes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
