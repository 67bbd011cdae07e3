package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/byteai/builder/pkg/logger"
)

// State is a Handle lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateCreated       State = "created"
	StateScaffolded    State = "app-scaffolded"
	StateTerminated    State = "terminated"
)

type event string

const (
	eventCreate    event = "create"
	eventScaffold  event = "scaffold"
	eventTerminate event = "terminate"
)

// transitions lists the only legal moves; everything else is rejected.
var transitions = map[State]map[event]State{
	StateUninitialized: {eventCreate: StateCreated, eventTerminate: StateTerminated},
	StateCreated:       {eventScaffold: StateScaffolded, eventTerminate: StateTerminated},
	StateScaffolded:    {eventTerminate: StateTerminated},
}

// Handle drives one Provider through its lifecycle. It is safe for
// concurrent use.
type Handle struct {
	mu       sync.Mutex
	provider Provider
	state    State
	info     Info
	log      *slog.Logger
}

// NewHandle wraps p in an uninitialized handle.
func NewHandle(p Provider, log *slog.Logger) *Handle {
	if log == nil {
		log = logger.Discard()
	}
	return &Handle{
		provider: p,
		state:    StateUninitialized,
		log:      log.With(logger.Provider(string(p.Kind()))),
	}
}

func (h *Handle) next(ev event) (State, error) {
	to, ok := transitions[h.state][ev]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s in state %s", ErrInvalidTransition, ev, h.state)
	}
	return to, nil
}

// CreateSandbox provisions the remote sandbox.
func (h *Handle) CreateSandbox(ctx context.Context) (Info, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	to, err := h.next(eventCreate)
	if err != nil {
		return Info{}, err
	}
	info, err := h.provider.CreateSandbox(ctx)
	if err != nil {
		return Info{}, errors.Join(ErrCreateFailed, err)
	}
	h.info = info
	h.state = to
	h.log.InfoContext(ctx, "sandbox created", logger.SandboxID(info.SandboxID), slog.String("url", info.URL))
	return info, nil
}

// SetupViteApp scaffolds the baseline app in a created sandbox.
func (h *Handle) SetupViteApp(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	to, err := h.next(eventScaffold)
	if err != nil {
		return err
	}
	if err := h.provider.SetupViteApp(ctx); err != nil {
		return errors.Join(ErrSetupFailed, err)
	}
	h.state = to
	h.log.InfoContext(ctx, "vite app scaffolded", logger.SandboxID(h.info.SandboxID))
	return nil
}

// Terminate releases the sandbox. The handle ends terminated even when the
// vendor call fails, so the vendor is asked at most once. Terminating a
// terminated handle is a no-op.
func (h *Handle) Terminate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateTerminated {
		return nil
	}
	from := h.state
	to, err := h.next(eventTerminate)
	if err != nil {
		return err
	}
	h.state = to
	if from == StateUninitialized {
		return nil
	}
	if err := h.provider.Terminate(ctx); err != nil {
		return errors.Join(ErrTerminateFailed, err)
	}
	h.log.InfoContext(ctx, "sandbox terminated", logger.SandboxID(h.info.SandboxID))
	return nil
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Info returns what CreateSandbox reported. Zero before creation.
func (h *Handle) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info
}

func (h *Handle) Kind() Kind {
	return h.provider.Kind()
}
