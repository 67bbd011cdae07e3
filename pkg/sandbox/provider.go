package sandbox

import "context"

// Info describes a provisioned sandbox.
type Info struct {
	SandboxID string `json:"sandboxId"`
	URL       string `json:"url"`
	Provider  Kind   `json:"provider"`
}

// Provider is a vendor sandbox client bound to at most one sandbox.
type Provider interface {
	Kind() Kind
	CreateSandbox(ctx context.Context) (Info, error)
	SetupViteApp(ctx context.Context) error
	Terminate(ctx context.Context) error
}
