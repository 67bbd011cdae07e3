package quota

import (
	"context"
	"time"

	"github.com/byteai/builder/pkg/plans"
)

// Status is the subscription state recorded in UserProgress.
type Status string

const (
	StatusFree    Status = "free"
	StatusPro     Status = "pro"
	StatusPremium Status = "premium"
	StatusExpired Status = "expired"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusFree, StatusPro, StatusPremium, StatusExpired:
		return true
	}
	return false
}

// Plan maps the status to its catalog plan. Expired has none.
func (s Status) Plan() (plans.ID, bool) {
	switch s {
	case StatusFree:
		return plans.Free, true
	case StatusPro:
		return plans.Pro, true
	case StatusPremium:
		return plans.Premium, true
	}
	return "", false
}

// Deny reasons surfaced to users.
const (
	ReasonFreeLimit   = "Free plan allows only 1 app. Please upgrade to create more apps!"
	ReasonProLimit    = "Monthly limit reached. Upgrade to Premium for unlimited apps or wait for next billing cycle."
	ReasonPlanLimit   = "Monthly limit reached. Please wait for next billing cycle."
	ReasonCheckFailed = "Error checking subscription status"
	ReasonInvalidPlan = "Invalid subscription plan"
)

// UserProgress is the per-user quota state.
type UserProgress struct {
	UserID                   string     `json:"userId"`
	TotalAppsGenerated       int64      `json:"totalAppsGenerated"`
	CurrentPlanAppsGenerated int64      `json:"currentPlanAppsGenerated"`
	SubscriptionStatus       Status     `json:"subscriptionStatus"`
	TrialStartDate           *time.Time `json:"trialStartDate,omitempty"`
	LastAppGeneratedAt       *time.Time `json:"lastAppGeneratedAt,omitempty"`
}

func (p UserProgress) validate() error {
	switch {
	case p.UserID == "":
		return ErrEmptyUserID
	case p.TotalAppsGenerated < 0, p.CurrentPlanAppsGenerated < 0:
		return ErrInvalidProgress
	case p.CurrentPlanAppsGenerated > p.TotalAppsGenerated:
		return ErrInvalidProgress
	case !p.SubscriptionStatus.Valid():
		return ErrInvalidProgress
	}
	return nil
}

// UserProject records one provisioned app.
type UserProject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SandboxID   string    `json:"sandboxId,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	PlanUsed    string    `json:"planUsed"`
	IsActive    bool      `json:"isActive"`
}

// Active reports whether the project counts against the free plan.
func (p UserProject) Active() bool {
	return p.URL != "" && p.IsActive
}

// GeneratedApp is one audit log entry.
type GeneratedApp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	PlanUsed  Status    `json:"planUsed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Decision is the gate's answer.
type Decision struct {
	CanGenerate bool   `json:"canGenerate"`
	Reason      string `json:"reason,omitempty"`
}

func allow() Decision             { return Decision{CanGenerate: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// NewProject is the input of CreateProject.
type NewProject struct {
	Name        string
	Description string
	SandboxID   string
	URL         string
	PlanUsed    string
}

// ProjectPatch is a partial project update. Empty strings and a nil
// IsActive leave the field untouched.
type ProjectPatch struct {
	Name        string
	Description string
	SandboxID   string
	URL         string
	IsActive    *bool
}

// SandboxRef identifies a freshly provisioned sandbox.
type SandboxRef struct {
	SandboxID string
	URL       string
}

// ProvisionFunc creates a sandbox while the user's quota is held.
type ProvisionFunc func(ctx context.Context) (SandboxRef, error)
