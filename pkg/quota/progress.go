package quota

import (
	"context"
	"errors"
	"log/slog"

	"github.com/byteai/builder/pkg/entitlement"
	"github.com/byteai/builder/pkg/logger"
)

// GetUserProgress returns the user's progress, creating it on first access
// and raising both counters to the active project count.
func (s *service) GetUserProgress(ctx context.Context, userID string) (*UserProgress, error) {
	var out *UserProgress
	err := s.withLock(ctx, userID, func() error {
		p, _, err := s.progress(ctx, userID)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// progress loads and repairs the stored record. The caller holds the lock.
func (s *service) progress(ctx context.Context, userID string) (*UserProgress, *state, error) {
	st, err := s.load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	active := st.activeProjects()

	if st.progress == nil {
		start := s.now().UTC()
		p := &UserProgress{
			UserID:                   userID,
			TotalAppsGenerated:       active,
			CurrentPlanAppsGenerated: active,
			SubscriptionStatus:       StatusFree,
			TrialStartDate:           &start,
		}
		if err := s.writeProgress(ctx, p); err != nil {
			return nil, nil, err
		}
		st.progress = p
		s.log.DebugContext(ctx, "initialized user progress",
			logger.UserID(userID),
			slog.Int64("active_projects", active),
		)
		return p, st, nil
	}

	p := st.progress
	changed := false
	if p.TotalAppsGenerated < active {
		p.TotalAppsGenerated = active
		changed = true
	}
	if p.CurrentPlanAppsGenerated < active {
		p.CurrentPlanAppsGenerated = active
		changed = true
	}
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = StatusFree
		changed = true
	}
	if changed {
		if err := s.writeProgress(ctx, p); err != nil {
			return nil, nil, err
		}
		s.log.InfoContext(ctx, "repaired user progress",
			logger.UserID(userID),
			slog.Int64("active_projects", active),
			slog.Int64("total", p.TotalAppsGenerated),
			slog.Int64("current", p.CurrentPlanAppsGenerated),
		)
	}
	return p, st, nil
}

// SaveUserProgress overwrites the stored progress with p.
func (s *service) SaveUserProgress(ctx context.Context, p UserProgress) error {
	if err := p.validate(); err != nil {
		return err
	}
	return s.withLock(ctx, p.UserID, func() error {
		return s.writeProgress(ctx, &p)
	})
}

// ResetMonthlyCounter zeroes the current-plan counter and keeps everything
// else.
func (s *service) ResetMonthlyCounter(ctx context.Context, userID string) error {
	return s.withLock(ctx, userID, func() error {
		p, _, err := s.progress(ctx, userID)
		if err != nil {
			return err
		}
		if p.CurrentPlanAppsGenerated == 0 {
			return nil
		}
		p.CurrentPlanAppsGenerated = 0
		return s.writeProgress(ctx, p)
	})
}

// UpdateSubscriptionStatus re-derives the status from the entitlement check
// and persists it. The counter is left alone.
func (s *service) UpdateSubscriptionStatus(ctx context.Context, userID string) (*UserProgress, error) {
	var out *UserProgress
	err := s.withLock(ctx, userID, func() error {
		p, _, err := s.progress(ctx, userID)
		if err != nil {
			return err
		}
		status, err := s.derivePlan(ctx, userID)
		if err != nil {
			return err
		}
		p.SubscriptionStatus = status
		if err := s.writeProgress(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TestUpgrade switches the user to plan without billing. The plan is also
// stored as the test entitlement so later checks keep honouring it.
func (s *service) TestUpgrade(ctx context.Context, userID, plan string) (*UserProgress, error) {
	status := Status(plan)
	if _, ok := status.Plan(); !ok {
		return nil, ErrInvalidPlan
	}

	var out *UserProgress
	err := s.withLock(ctx, userID, func() error {
		p, _, err := s.progress(ctx, userID)
		if err != nil {
			return err
		}
		p.SubscriptionStatus = status
		p.CurrentPlanAppsGenerated = 0

		upd, err := progressUpdate(p)
		if err != nil {
			return err
		}
		if err := upd.Public.Set(entitlement.TestPlanKey, plan); err != nil {
			return errors.Join(ErrSaveFailed, err)
		}
		if err := s.write(ctx, userID, upd); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "test upgrade applied", logger.UserID(userID), logger.Plan(plan))
	return out, nil
}
