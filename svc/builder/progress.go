package builder

import (
	"errors"
	"net/http"

	"github.com/byteai/builder/handler"
	"github.com/byteai/builder/pkg/plans"
	"github.com/byteai/builder/pkg/quota"
)

type limitResponse struct {
	CanGenerate        bool                `json:"canGenerate"`
	Reason             string              `json:"reason,omitempty"`
	Progress           *quota.UserProgress `json:"progress"`
	TrialDaysRemaining *int                `json:"trialDaysRemaining,omitempty"`
}

func (h *Handler) limit(ctx handler.Context, userID string) (limitResponse, error) {
	d := h.quota.CanGenerateApp(ctx, userID)
	p, err := h.quota.GetUserProgress(ctx, userID)
	if err != nil {
		return limitResponse{}, err
	}
	return limitResponse{
		CanGenerate:        d.CanGenerate,
		Reason:             d.Reason,
		Progress:           p,
		TrialDaysRemaining: h.trialDaysRemaining(p),
	}, nil
}

// trialDaysRemaining is set only for free users with a known trial start.
func (h *Handler) trialDaysRemaining(p *quota.UserProgress) *int {
	if p.TrialStartDate == nil || p.SubscriptionStatus != quota.StatusFree {
		return nil
	}
	days := plans.TrialDaysRemaining(*p.TrialStartDate, h.now())
	return &days
}

func (h *Handler) checkGenerationLimit(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	resp, err := h.limit(ctx, userID)
	if err != nil {
		return h.internalError(ctx, "failed to check generation limit", userID, err)
	}
	return handler.JSON(resp)
}

func (h *Handler) userProgress(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	resp, err := h.limit(ctx, userID)
	if err != nil {
		return h.internalError(ctx, "failed to fetch user progress", userID, err)
	}
	return handler.JSON(resp)
}

type progressResponse struct {
	Success  bool                `json:"success,omitempty"`
	Progress *quota.UserProgress `json:"progress"`
}

// syncUser initializes progress on first sign in.
func (h *Handler) syncUser(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	p, err := h.quota.GetUserProgress(ctx, userID)
	if err != nil {
		return h.internalError(ctx, "failed to sync user", userID, err)
	}
	return handler.JSON(progressResponse{Success: true, Progress: p})
}

func (h *Handler) subscription(ctx handler.Context, _ struct{}) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	p, err := h.quota.UpdateSubscriptionStatus(ctx, userID)
	if err != nil {
		return h.internalError(ctx, "failed to refresh subscription status", userID, err)
	}
	return handler.JSON(progressResponse{Progress: p})
}

func (h *Handler) updateUserProgress(ctx handler.Context, req quota.UserProgress) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	req.UserID = userID
	if err := h.quota.SaveUserProgress(ctx, req); err != nil {
		if errors.Is(err, quota.ErrInvalidProgress) {
			return handler.Error(http.StatusBadRequest, "Invalid progress")
		}
		return h.internalError(ctx, "failed to update user progress", userID, err)
	}
	return handler.JSON(map[string]bool{"success": true})
}

type recordRequest struct {
	AppName string `json:"appName"`
	Prompt  string `json:"prompt"`
}

func (h *Handler) recordAppGeneration(ctx handler.Context, req recordRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	if req.AppName == "" || req.Prompt == "" {
		return handler.Error(http.StatusBadRequest, "Missing required fields")
	}
	return h.consume(ctx, userID, req)
}

// incrementGeneration is the lenient variant: fields are optional. It is
// gated like every other consumer of the quota.
func (h *Handler) incrementGeneration(ctx handler.Context, req recordRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	if req.AppName == "" {
		req.AppName = "Generated App"
	}
	return h.consume(ctx, userID, req)
}

func (h *Handler) consume(ctx handler.Context, userID string, req recordRequest) handler.Response {
	d, p, err := h.quota.ConsumeGeneration(ctx, userID, req.AppName, req.Prompt)
	if err != nil {
		return h.internalError(ctx, "failed to record app generation", userID, err)
	}
	if !d.CanGenerate {
		return handler.Error(http.StatusForbidden, d.Reason)
	}
	return handler.JSON(progressResponse{Success: true, Progress: p})
}

type upgradeRequest struct {
	Plan string `json:"plan"`
}

type upgradeResponse struct {
	Success  bool                `json:"success"`
	Plan     string              `json:"plan"`
	Message  string              `json:"message"`
	Progress *quota.UserProgress `json:"progress"`
}

func (h *Handler) testUpgrade(ctx handler.Context, req upgradeRequest) handler.Response {
	userID, ok := caller(ctx)
	if !ok {
		return unauthorized()
	}
	p, err := h.quota.TestUpgrade(ctx, userID, req.Plan)
	switch {
	case errors.Is(err, quota.ErrInvalidPlan):
		return handler.Error(http.StatusBadRequest, "Invalid plan")
	case err != nil:
		return h.internalError(ctx, "failed to apply test upgrade", userID, err)
	}
	return handler.JSON(upgradeResponse{
		Success:  true,
		Plan:     req.Plan,
		Message:  "Successfully upgraded to " + req.Plan + " plan (TEST MODE)",
		Progress: p,
	})
}
