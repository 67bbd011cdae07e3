package builder

import (
	"context"
	"net/http"

	"github.com/byteai/builder/handler"
	"github.com/byteai/builder/pkg/logger"
	"github.com/byteai/builder/pkg/quota"
	"github.com/byteai/builder/pkg/sandbox"
)

type limitReachedResponse struct {
	Error        string `json:"error"`
	LimitReached bool   `json:"limitReached"`
}

func limitReached(reason string) limitReachedResponse {
	return limitReachedResponse{Error: reason, LimitReached: true}
}

type sandboxResponse struct {
	Success   bool         `json:"success"`
	SandboxID string       `json:"sandboxId"`
	URL       string       `json:"url"`
	Provider  sandbox.Kind `json:"provider"`
	Message   string       `json:"message"`
}

// createSandbox replaces the active sandbox with a fresh one for the caller.
// The quota is held while the vendor provisions it.
func (h *Handler) createSandbox(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}

	var info sandbox.Info
	d, _, err := h.quota.ProvisionApp(ctx, userID, func(ctx context.Context) (quota.SandboxRef, error) {
		var err error
		info, err = h.registry.Replace(ctx, func() (*sandbox.Handle, error) {
			return h.sandboxes.Create("")
		})
		if err != nil {
			return quota.SandboxRef{}, err
		}
		return quota.SandboxRef{SandboxID: info.SandboxID, URL: info.URL}, nil
	})
	if err != nil {
		h.log.ErrorContext(ctx, "failed to create sandbox", logger.UserID(userID), logger.Error(err))
		return handler.Error(http.StatusInternalServerError, err.Error())
	}
	if !d.CanGenerate {
		h.log.InfoContext(ctx, "generation limit reached", logger.UserID(userID), "reason", d.Reason)
		return handler.JSONStatus(http.StatusForbidden, limitReached(d.Reason))
	}

	h.log.InfoContext(ctx, "sandbox ready",
		logger.UserID(userID),
		logger.SandboxID(info.SandboxID),
		logger.Provider(string(info.Provider)),
	)
	return handler.JSON(sandboxResponse{
		Success:   true,
		SandboxID: info.SandboxID,
		URL:       info.URL,
		Provider:  info.Provider,
		Message:   "Sandbox created and Vite React app initialized",
	})
}

type providersResponse struct {
	Providers []string        `json:"providers"`
	Available map[string]bool `json:"available"`
	Default   string          `json:"default"`
}

func (h *Handler) sandboxProviders(_ handler.Context, _ struct{}) handler.Response {
	names := sandbox.AvailableProviders()
	available := make(map[string]bool, len(names))
	for _, name := range names {
		available[name] = h.sandboxes.IsProviderAvailable(name)
	}
	return handler.JSON(providersResponse{
		Providers: names,
		Available: available,
		Default:   h.sandboxes.DefaultProvider(),
	})
}
