package quota

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/byteai/builder/pkg/logger"
)

// ListProjects returns the user's projects, most recently updated first.
func (s *service) ListProjects(ctx context.Context, userID string) ([]UserProject, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	st, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	projects := slices.Clone(st.projects)
	if projects == nil {
		projects = []UserProject{}
	}
	slices.SortStableFunc(projects, func(a, b UserProject) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return projects, nil
}

// CreateProject adds a project if the gate allows one more app.
func (s *service) CreateProject(ctx context.Context, userID string, in NewProject) (Decision, *UserProject, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Description) == "" {
		return Decision{}, nil, ErrInvalidProject
	}

	var (
		d       Decision
		out     *UserProject
		entered bool
	)
	err := s.withLock(ctx, userID, func() error {
		entered = true
		d = s.decide(ctx, userID)
		if !d.CanGenerate {
			return nil
		}
		p, st, err := s.progress(ctx, userID)
		if err != nil {
			return err
		}
		planUsed := in.PlanUsed
		if planUsed == "" {
			planUsed = string(p.SubscriptionStatus)
		}
		now := s.now().UTC()
		project := UserProject{
			ID:          newProjectID(now),
			Name:        in.Name,
			Description: in.Description,
			SandboxID:   in.SandboxID,
			URL:         in.URL,
			CreatedAt:   now,
			UpdatedAt:   now,
			PlanUsed:    planUsed,
			IsActive:    true,
		}
		if err := s.writeProjects(ctx, userID, append(st.projects, project)); err != nil {
			return err
		}
		out = &project
		return nil
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

// UpdateProject applies the non-empty fields of patch.
func (s *service) UpdateProject(ctx context.Context, userID, projectID string, patch ProjectPatch) (*UserProject, error) {
	var out *UserProject
	err := s.withLock(ctx, userID, func() error {
		st, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(st.projects, func(p UserProject) bool { return p.ID == projectID })
		if i < 0 {
			return ErrProjectNotFound
		}
		p := &st.projects[i]
		if patch.Name != "" {
			p.Name = patch.Name
		}
		if patch.Description != "" {
			p.Description = patch.Description
		}
		if patch.SandboxID != "" {
			p.SandboxID = patch.SandboxID
		}
		if patch.URL != "" {
			p.URL = patch.URL
		}
		if patch.IsActive != nil {
			p.IsActive = *patch.IsActive
		}
		p.UpdatedAt = s.now().UTC()

		if err := s.writeProjects(ctx, userID, st.projects); err != nil {
			return err
		}
		updated := *p
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteProject removes the project.
func (s *service) DeleteProject(ctx context.Context, userID, projectID string) error {
	return s.withLock(ctx, userID, func() error {
		st, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(st.projects, func(p UserProject) bool { return p.ID == projectID })
		if i < 0 {
			return ErrProjectNotFound
		}
		return s.writeProjects(ctx, userID, slices.Delete(st.projects, i, i+1))
	})
}

// RecordSandboxProject stores a project for a sandbox provisioned outside
// ProvisionApp.
func (s *service) RecordSandboxProject(ctx context.Context, userID string, ref SandboxRef) (*UserProject, error) {
	var out *UserProject
	err := s.withLock(ctx, userID, func() error {
		p, err := s.recordSandboxProject(ctx, userID, ref)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) recordSandboxProject(ctx context.Context, userID string, ref SandboxRef) (*UserProject, error) {
	p, st, err := s.progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	project := UserProject{
		ID:          newProjectID(now),
		Name:        fmt.Sprintf("App %d", len(st.projects)+1),
		Description: "Generated app",
		SandboxID:   ref.SandboxID,
		URL:         ref.URL,
		CreatedAt:   now,
		UpdatedAt:   now,
		PlanUsed:    string(p.SubscriptionStatus),
		IsActive:    true,
	}
	if err := s.writeProjects(ctx, userID, append(st.projects, project)); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "sandbox project recorded",
		logger.UserID(userID), logger.SandboxID(ref.SandboxID))
	return &project, nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newProjectID returns project_<unix millis>_<9 base36 chars>.
func newProjectID(now time.Time) string {
	var b [9]byte
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return fmt.Sprintf("project_%d_%s", now.UnixMilli(), b[:])
}
