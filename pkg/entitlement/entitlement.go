package entitlement

import (
	"context"
	"errors"
	"strings"

	"github.com/byteai/builder/pkg/auth"
	"github.com/byteai/builder/pkg/usermeta"
)

var (
	ErrCheckFailed = errors.New("entitlement check failed")
)

// Checker is the billing collaborator's entitlement query.
type Checker interface {
	Has(ctx context.Context, userID, plan string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, userID, plan string) (bool, error)

func (f CheckerFunc) Has(ctx context.Context, userID, plan string) (bool, error) {
	return f(ctx, userID, plan)
}

// Any grants when any checker grants. Checkers run in order; the first error
// aborts.
func Any(checkers ...Checker) Checker {
	return CheckerFunc(func(ctx context.Context, userID, plan string) (bool, error) {
		for _, c := range checkers {
			ok, err := c.Has(ctx, userID, plan)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

// Static grants from a fixed userID -> plans table.
type Static map[string][]string

func (s Static) Has(_ context.Context, userID, plan string) (bool, error) {
	for _, p := range s[userID] {
		if p == plan {
			return true, nil
		}
	}
	return false, nil
}

// ClaimsChecker reads Clerk Billing's "pla" claim from the verified session
// in the context. It only answers for the session's own user.
type ClaimsChecker struct{}

func (ClaimsChecker) Has(ctx context.Context, userID, plan string) (bool, error) {
	c, ok := auth.ClaimsFromContext(ctx)
	if !ok || c.Subject != userID || c.Plan == "" {
		return false, nil
	}
	// "u:pro" for a user plan, "o:pro" for an organization plan.
	held := c.Plan
	if scope, slug, found := strings.Cut(held, ":"); found && (scope == "u" || scope == "o") {
		held = slug
	}
	return held == plan, nil
}

// TestPlanKey is the public metadata key set by the test upgrade endpoint.
const TestPlanKey = "testPlan"

// MetadataChecker grants the plan stored under TestPlanKey.
type MetadataChecker struct {
	Store usermeta.Store
}

func (m MetadataChecker) Has(ctx context.Context, userID, plan string) (bool, error) {
	u, err := m.Store.GetUser(ctx, userID)
	if errors.Is(err, usermeta.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(ErrCheckFailed, err)
	}
	var held string
	if _, err := u.PublicMetadata.Decode(TestPlanKey, &held); err != nil {
		return false, errors.Join(ErrCheckFailed, err)
	}
	return held != "" && held == plan, nil
}
