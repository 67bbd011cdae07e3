package quota

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/byteai/builder/pkg/logger"
	"github.com/byteai/builder/pkg/plans"
	"github.com/byteai/builder/pkg/usermeta"
)

// CanGenerateApp decides whether the user may generate one more app. It
// never fails: errors deny with ReasonCheckFailed.
func (s *service) CanGenerateApp(ctx context.Context, userID string) Decision {
	var d Decision
	entered := false
	err := s.withLock(ctx, userID, func() error {
		entered = true
		d = s.decide(ctx, userID)
		return nil
	})
	if !entered {
		s.log.ErrorContext(ctx, "quota check failed", logger.UserID(userID), logger.Error(err))
		return deny(ReasonCheckFailed)
	}
	return d
}

// decide runs the gate and converts failures into a denial. The caller holds
// the lock.
func (s *service) decide(ctx context.Context, userID string) Decision {
	d, err := s.canGenerate(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "quota check failed", logger.UserID(userID), logger.Error(err))
		return deny(ReasonCheckFailed)
	}
	if !d.CanGenerate {
		s.log.InfoContext(ctx, "generation denied", logger.UserID(userID), slog.String("reason", d.Reason))
	}
	return d
}

func (s *service) canGenerate(ctx context.Context, userID string) (Decision, error) {
	p, st, err := s.progress(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	status, err := s.derivePlan(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if status != p.SubscriptionStatus {
		prev := p.SubscriptionStatus
		p.SubscriptionStatus = status
		// Any move to a paid plan opens a fresh window.
		if status != StatusFree {
			p.CurrentPlanAppsGenerated = 0
		}
		if err := s.writeProgress(ctx, p); err != nil {
			return Decision{}, err
		}
		s.log.InfoContext(ctx, "subscription status changed",
			logger.UserID(userID),
			slog.String("from", string(prev)),
			slog.String("to", string(status)),
		)
	}

	id, ok := status.Plan()
	if !ok {
		return deny(ReasonInvalidPlan), nil
	}
	plan, err := s.catalog.Get(id)
	if err != nil {
		return deny(ReasonInvalidPlan), nil
	}

	if plan.ID == plans.Free {
		// Enforced against live projects so a stale counter cannot let a
		// second free app through.
		if st.activeProjects() >= int64(plan.AppLimit) {
			return deny(ReasonFreeLimit), nil
		}
		return allow(), nil
	}
	if plan.IsUnlimited() {
		return allow(), nil
	}
	if p.CurrentPlanAppsGenerated >= int64(plan.AppLimit) {
		if plan.ID == plans.Pro {
			return deny(ReasonProLimit), nil
		}
		return deny(ReasonPlanLimit), nil
	}
	return allow(), nil
}

// IncrementAppGeneration records one generation without consulting the
// gate. Gated paths use ConsumeGeneration or ProvisionApp.
func (s *service) IncrementAppGeneration(ctx context.Context, userID, appName, prompt string) (*UserProgress, error) {
	var out *UserProgress
	err := s.withLock(ctx, userID, func() error {
		p, err := s.increment(ctx, userID, appName, prompt)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) increment(ctx context.Context, userID, appName, prompt string) (*UserProgress, error) {
	p, st, err := s.progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	apps, err := st.generatedApps()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.TotalAppsGenerated++
	p.CurrentPlanAppsGenerated++
	p.LastAppGeneratedAt = &now

	if s.sealer != nil && prompt != "" {
		sealed, err := s.sealer.Seal(userID, prompt)
		if err != nil {
			return nil, errors.Join(ErrSaveFailed, err)
		}
		prompt = sealed
	}
	apps = append(apps, GeneratedApp{
		ID:        "app_" + strconv.FormatInt(now.UnixMilli(), 10),
		Name:      appName,
		Prompt:    prompt,
		PlanUsed:  p.SubscriptionStatus,
		CreatedAt: now,
	})

	upd, err := progressUpdate(p)
	if err != nil {
		return nil, err
	}
	upd.Private = usermeta.Metadata{}
	if err := upd.Private.Set(generatedAppsKey, apps); err != nil {
		return nil, errors.Join(ErrSaveFailed, err)
	}
	if err := s.write(ctx, userID, upd); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "app generation recorded",
		logger.UserID(userID),
		logger.Plan(string(p.SubscriptionStatus)),
		slog.Int64("current", p.CurrentPlanAppsGenerated),
	)
	return p, nil
}

// ConsumeGeneration checks the gate and, when allowed, records the
// generation while still holding the user's lock. Progress is nil on denial.
func (s *service) ConsumeGeneration(ctx context.Context, userID, appName, prompt string) (Decision, *UserProgress, error) {
	var (
		d       Decision
		out     *UserProgress
		entered bool
	)
	err := s.withLock(ctx, userID, func() error {
		entered = true
		d = s.decide(ctx, userID)
		if !d.CanGenerate {
			return nil
		}
		p, err := s.increment(ctx, userID, appName, prompt)
		out = p
		return err
	})
	if !entered {
		s.log.ErrorContext(ctx, "quota check failed", logger.UserID(userID), logger.Error(err))
		return deny(ReasonCheckFailed), nil, nil
	}
	if err != nil {
		return d, nil, err
	}
	return d, out, nil
}

// ProvisionApp gates, runs provision and records the generation plus a
// project for the new sandbox, all under the user's lock. Recording failures
// are logged; the sandbox already exists and is returned.
func (s *service) ProvisionApp(ctx context.Context, userID string, provision ProvisionFunc) (Decision, SandboxRef, error) {
	var (
		d       Decision
		ref     SandboxRef
		entered bool
	)
	err := s.withLock(ctx, userID, func() error {
		entered = true
		d = s.decide(ctx, userID)
		if !d.CanGenerate {
			return nil
		}
		var err error
		if ref, err = provision(ctx); err != nil {
			return err
		}
		if _, err := s.increment(ctx, userID, "App-"+ref.SandboxID, "New app generation"); err != nil {
			s.log.WarnContext(ctx, "failed to record app generation",
				logger.UserID(userID), logger.SandboxID(ref.SandboxID), logger.Error(err))
		}
		if _, err := s.recordSandboxProject(ctx, userID, ref); err != nil {
			s.log.WarnContext(ctx, "failed to record sandbox project",
				logger.UserID(userID), logger.SandboxID(ref.SandboxID), logger.Error(err))
		}
		return nil
	})
	if !entered {
		s.log.ErrorContext(ctx, "quota check failed", logger.UserID(userID), logger.Error(err))
		return deny(ReasonCheckFailed), SandboxRef{}, nil
	}
	if err != nil {
		return d, SandboxRef{}, err
	}
	return d, ref, nil
}
