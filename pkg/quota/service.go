package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/byteai/builder/pkg/entitlement"
	"github.com/byteai/builder/pkg/logger"
	"github.com/byteai/builder/pkg/plans"
	"github.com/byteai/builder/pkg/secrets"
	"github.com/byteai/builder/pkg/usermeta"
)

// Service defines the quota reconciler.
type Service interface {
	// Progress
	GetUserProgress(ctx context.Context, userID string) (*UserProgress, error)
	SaveUserProgress(ctx context.Context, progress UserProgress) error
	UpdateSubscriptionStatus(ctx context.Context, userID string) (*UserProgress, error)
	ResetMonthlyCounter(ctx context.Context, userID string) error
	TestUpgrade(ctx context.Context, userID, plan string) (*UserProgress, error)

	// Gate
	CanGenerateApp(ctx context.Context, userID string) Decision
	IncrementAppGeneration(ctx context.Context, userID, appName, prompt string) (*UserProgress, error)
	ConsumeGeneration(ctx context.Context, userID, appName, prompt string) (Decision, *UserProgress, error)
	ProvisionApp(ctx context.Context, userID string, provision ProvisionFunc) (Decision, SandboxRef, error)

	// Projects
	ListProjects(ctx context.Context, userID string) ([]UserProject, error)
	CreateProject(ctx context.Context, userID string, in NewProject) (Decision, *UserProject, error)
	UpdateProject(ctx context.Context, userID, projectID string, patch ProjectPatch) (*UserProject, error)
	DeleteProject(ctx context.Context, userID, projectID string) error
	RecordSandboxProject(ctx context.Context, userID string, ref SandboxRef) (*UserProject, error)
}

type service struct {
	store   usermeta.Store
	catalog *plans.Catalog
	checker entitlement.Checker
	locker  usermeta.Locker
	sealer  *secrets.Sealer
	log     *slog.Logger
	now     func() time.Time
}

// ServiceOption configures the reconciler.
type ServiceOption func(*service)

// WithLocker sets the per-user lock. Defaults to an in-process locker, which
// is only correct with a single replica.
func WithLocker(l usermeta.Locker) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSealer encrypts audit log prompts at rest.
func WithSealer(sealer *secrets.Sealer) ServiceOption {
	return func(s *service) {
		s.sealer = sealer
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the reconciler. Panics if a required dependency is nil.
func NewService(store usermeta.Store, catalog *plans.Catalog, checker entitlement.Checker, opts ...ServiceOption) Service {
	if store == nil {
		panic("quota: usermeta.Store is required")
	}
	if catalog == nil {
		panic("quota: plans.Catalog is required")
	}
	if checker == nil {
		panic("quota: entitlement.Checker is required")
	}

	s := &service{
		store:   store,
		catalog: catalog,
		checker: checker,
		locker:  usermeta.NewMemoryLocker(),
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("quota"))
	return s
}

// withLock runs fn while holding the user's quota lock.
func (s *service) withLock(ctx context.Context, userID string, fn func() error) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	unlock, err := s.locker.Lock(ctx, lockKey(userID))
	if err != nil {
		return errors.Join(ErrLockFailed, err)
	}
	defer unlock()
	return fn()
}

func lockKey(userID string) string {
	return "quota:" + userID
}

// derivePlan asks the entitlement checker for premium first, then pro.
func (s *service) derivePlan(ctx context.Context, userID string) (Status, error) {
	for _, st := range []Status{StatusPremium, StatusPro} {
		id, _ := st.Plan()
		for _, alias := range s.catalog.Aliases(id) {
			ok, err := s.checker.Has(ctx, userID, alias)
			if err != nil {
				return "", errors.Join(ErrEntitlementFailed, err)
			}
			if ok {
				return st, nil
			}
		}
	}
	return StatusFree, nil
}
