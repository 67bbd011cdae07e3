package quota_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteai/builder/pkg/entitlement"
	"github.com/byteai/builder/pkg/plans"
	"github.com/byteai/builder/pkg/quota"
	"github.com/byteai/builder/pkg/secrets"
	"github.com/byteai/builder/pkg/usermeta"
)

const userID = "user_1"

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T, store usermeta.Store, checker entitlement.Checker, opts ...quota.ServiceOption) quota.Service {
	t.Helper()
	if checker == nil {
		checker = entitlement.Static{}
	}
	opts = append([]quota.ServiceOption{quota.WithClock(func() time.Time { return fixedNow })}, opts...)
	return quota.NewService(store, plans.Default(), checker, opts...)
}

func seedProgress(t *testing.T, store usermeta.Store, p quota.UserProgress) {
	t.Helper()
	public := usermeta.Metadata{}
	require.NoError(t, public.Set("progress", p))
	require.NoError(t, store.UpdateUserMetadata(context.Background(), p.UserID, usermeta.Update{Public: public}))
}

func seedProjects(t *testing.T, store usermeta.Store, id string, projects ...quota.UserProject) {
	t.Helper()
	private := usermeta.Metadata{}
	require.NoError(t, private.Set("projects", projects))
	require.NoError(t, store.UpdateUserMetadata(context.Background(), id, usermeta.Update{Private: private}))
}

func activeProject(id string) quota.UserProject {
	return quota.UserProject{ID: id, Name: id, URL: "https://" + id + ".example.com", IsActive: true}
}

func storedProgress(t *testing.T, store usermeta.Store, id string) quota.UserProgress {
	t.Helper()
	u, err := store.GetUser(context.Background(), id)
	require.NoError(t, err)
	var p quota.UserProgress
	ok, err := u.PublicMetadata.Decode("progress", &p)
	require.NoError(t, err)
	require.True(t, ok, "progress not stored")
	return p
}

type failingStore struct{}

func (failingStore) GetUser(context.Context, string) (*usermeta.User, error) {
	return nil, errors.New("identity store unreachable")
}

func (failingStore) UpdateUserMetadata(context.Context, string, usermeta.Update) error {
	return errors.New("identity store unreachable")
}

func TestGetUserProgress_Initializes(t *testing.T) {
	t.Parallel()

	t.Run("no projects", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		svc := newService(t, store, nil)

		p, err := svc.GetUserProgress(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, userID, p.UserID)
		assert.Equal(t, quota.StatusFree, p.SubscriptionStatus)
		assert.Zero(t, p.TotalAppsGenerated)
		assert.Zero(t, p.CurrentPlanAppsGenerated)
		require.NotNil(t, p.TrialStartDate)
		assert.True(t, fixedNow.Equal(*p.TrialStartDate))
		assert.Equal(t, *p, storedProgress(t, store, userID))
	})

	t.Run("trial start survives later loads", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		_, err := newService(t, store, nil).GetUserProgress(context.Background(), userID)
		require.NoError(t, err)

		later := newService(t, store, nil, quota.WithClock(func() time.Time { return fixedNow.AddDate(0, 0, 3) }))
		p, err := later.GetUserProgress(context.Background(), userID)
		require.NoError(t, err)
		require.NotNil(t, p.TrialStartDate)
		assert.True(t, fixedNow.Equal(*p.TrialStartDate))
		assert.Equal(t, plans.TrialDays-3, plans.TrialDaysRemaining(*p.TrialStartDate, fixedNow.AddDate(0, 0, 3)))
	})

	t.Run("seeded from active projects", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		inactive := activeProject("c")
		inactive.IsActive = false
		noURL := activeProject("d")
		noURL.URL = ""
		seedProjects(t, store, userID, activeProject("a"), activeProject("b"), inactive, noURL)
		svc := newService(t, store, nil)

		p, err := svc.GetUserProgress(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), p.TotalAppsGenerated)
		assert.Equal(t, int64(2), p.CurrentPlanAppsGenerated)
		assert.Equal(t, quota.StatusFree, p.SubscriptionStatus)
	})
}

func TestGetUserProgress_Repair(t *testing.T) {
	t.Parallel()

	t.Run("raises counters that fell behind", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 1, SubscriptionStatus: quota.StatusPro})
		seedProjects(t, store, userID, activeProject("a"), activeProject("b"), activeProject("c"))
		svc := newService(t, store, nil)

		p, err := svc.GetUserProgress(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), p.TotalAppsGenerated)
		assert.Equal(t, int64(3), p.CurrentPlanAppsGenerated)
		assert.Equal(t, quota.StatusPro, p.SubscriptionStatus)
		assert.Equal(t, *p, storedProgress(t, store, userID))
	})

	t.Run("never lowers counters", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 5, CurrentPlanAppsGenerated: 4, SubscriptionStatus: quota.StatusPro})
		seedProjects(t, store, userID, activeProject("a"))
		svc := newService(t, store, nil)

		p, err := svc.GetUserProgress(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), p.TotalAppsGenerated)
		assert.Equal(t, int64(4), p.CurrentPlanAppsGenerated)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, failingStore{}, nil)

		_, err := svc.GetUserProgress(context.Background(), userID)
		require.ErrorIs(t, err, quota.ErrLoadFailed)
	})

	t.Run("empty user id", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, usermeta.NewMemoryStore(), nil)

		_, err := svc.GetUserProgress(context.Background(), "")
		require.ErrorIs(t, err, quota.ErrEmptyUserID)
	})
}

func TestCanGenerateApp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		progress *quota.UserProgress
		projects []quota.UserProject
		grants   []string
		want     quota.Decision
	}{
		{
			name: "free without projects",
			want: quota.Decision{CanGenerate: true},
		},
		{
			name:     "free with one active project ignores stale counter",
			progress: &quota.UserProgress{UserID: userID, SubscriptionStatus: quota.StatusFree},
			projects: []quota.UserProject{activeProject("a")},
			want:     quota.Decision{Reason: quota.ReasonFreeLimit},
		},
		{
			name:     "free with inactive project only",
			progress: &quota.UserProgress{UserID: userID, TotalAppsGenerated: 4, CurrentPlanAppsGenerated: 4, SubscriptionStatus: quota.StatusFree},
			projects: []quota.UserProject{{ID: "a", URL: "https://a", IsActive: false}},
			want:     quota.Decision{CanGenerate: true},
		},
		{
			name:     "pro at limit",
			progress: &quota.UserProgress{UserID: userID, TotalAppsGenerated: 30, CurrentPlanAppsGenerated: 25, SubscriptionStatus: quota.StatusPro},
			grants:   []string{"pro"},
			want:     quota.Decision{Reason: quota.ReasonProLimit},
		},
		{
			name:     "pro below limit",
			progress: &quota.UserProgress{UserID: userID, TotalAppsGenerated: 30, CurrentPlanAppsGenerated: 24, SubscriptionStatus: quota.StatusPro},
			grants:   []string{"pro"},
			want:     quota.Decision{CanGenerate: true},
		},
		{
			name:     "pro under a historical alias",
			progress: &quota.UserProgress{UserID: userID, TotalAppsGenerated: 25, CurrentPlanAppsGenerated: 25, SubscriptionStatus: quota.StatusPro},
			grants:   []string{"Standard"},
			want:     quota.Decision{Reason: quota.ReasonProLimit},
		},
		{
			name:     "premium ignores counters",
			progress: &quota.UserProgress{UserID: userID, TotalAppsGenerated: 1000, CurrentPlanAppsGenerated: 1000, SubscriptionStatus: quota.StatusPremium},
			projects: []quota.UserProject{activeProject("a"), activeProject("b")},
			grants:   []string{"Premium Plan"},
			want:     quota.Decision{CanGenerate: true},
		},
		{
			name:     "premium wins over pro",
			progress: &quota.UserProgress{UserID: userID, TotalAppsGenerated: 99, CurrentPlanAppsGenerated: 99, SubscriptionStatus: quota.StatusPremium},
			grants:   []string{"pro", "premium"},
			want:     quota.Decision{CanGenerate: true},
		},
		{
			name:     "downgrade to free enforces project count",
			progress: &quota.UserProgress{UserID: userID, TotalAppsGenerated: 3, CurrentPlanAppsGenerated: 3, SubscriptionStatus: quota.StatusPro},
			projects: []quota.UserProject{activeProject("a")},
			want:     quota.Decision{Reason: quota.ReasonFreeLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := usermeta.NewMemoryStore()
			if tt.progress != nil {
				seedProgress(t, store, *tt.progress)
			}
			if tt.projects != nil {
				seedProjects(t, store, userID, tt.projects...)
			}
			svc := newService(t, store, entitlement.Static{userID: tt.grants})

			assert.Equal(t, tt.want, svc.CanGenerateApp(context.Background(), userID))
		})
	}
}

func TestCanGenerateApp_UpgradeResetsWindow(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 3, CurrentPlanAppsGenerated: 3, SubscriptionStatus: quota.StatusFree})
	svc := newService(t, store, entitlement.Static{userID: {"Pro Plan"}})

	d := svc.CanGenerateApp(context.Background(), userID)
	assert.True(t, d.CanGenerate)

	p := storedProgress(t, store, userID)
	assert.Equal(t, quota.StatusPro, p.SubscriptionStatus)
	assert.Zero(t, p.CurrentPlanAppsGenerated)
	assert.Equal(t, int64(3), p.TotalAppsGenerated)
}

func TestCanGenerateApp_PaidPlanChangeResetsWindow(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 7, CurrentPlanAppsGenerated: 7, SubscriptionStatus: quota.StatusPremium})
	svc := newService(t, store, entitlement.Static{userID: {"pro"}})

	d := svc.CanGenerateApp(context.Background(), userID)
	assert.True(t, d.CanGenerate)

	p := storedProgress(t, store, userID)
	assert.Equal(t, quota.StatusPro, p.SubscriptionStatus)
	assert.Zero(t, p.CurrentPlanAppsGenerated)
}

func TestCanGenerateApp_FailsClosed(t *testing.T) {
	t.Parallel()

	t.Run("entitlement error", func(t *testing.T) {
		t.Parallel()
		checker := entitlement.CheckerFunc(func(context.Context, string, string) (bool, error) {
			return false, errors.New("billing down")
		})
		svc := newService(t, usermeta.NewMemoryStore(), checker)

		assert.Equal(t, quota.Decision{Reason: quota.ReasonCheckFailed}, svc.CanGenerateApp(context.Background(), userID))
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, failingStore{}, nil)

		assert.Equal(t, quota.Decision{Reason: quota.ReasonCheckFailed}, svc.CanGenerateApp(context.Background(), userID))
	})

	t.Run("lock error", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		locker := lockerFunc(func(ctx context.Context, _ string) (func(), error) {
			return nil, ctx.Err()
		})
		svc := newService(t, usermeta.NewMemoryStore(), nil, quota.WithLocker(locker))

		assert.Equal(t, quota.Decision{Reason: quota.ReasonCheckFailed}, svc.CanGenerateApp(ctx, userID))
	})

	t.Run("empty user id", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, usermeta.NewMemoryStore(), nil)

		assert.False(t, svc.CanGenerateApp(context.Background(), "").CanGenerate)
	})
}

type lockerFunc func(ctx context.Context, key string) (func(), error)

func (f lockerFunc) Lock(ctx context.Context, key string) (func(), error) { return f(ctx, key) }

func TestIncrementAppGeneration(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 4, CurrentPlanAppsGenerated: 2, SubscriptionStatus: quota.StatusPro})
	svc := newService(t, store, nil)

	p, err := svc.IncrementAppGeneration(context.Background(), userID, "Todo app", "build a todo app")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.TotalAppsGenerated)
	assert.Equal(t, int64(3), p.CurrentPlanAppsGenerated)
	require.NotNil(t, p.LastAppGeneratedAt)
	assert.True(t, fixedNow.Equal(*p.LastAppGeneratedAt))
	assert.Equal(t, quota.StatusPro, p.SubscriptionStatus, "increment does not consult entitlement")

	_, err = svc.IncrementAppGeneration(context.Background(), userID, "Blog", "a blog")
	require.NoError(t, err)

	u, err := store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	var apps []quota.GeneratedApp
	_, err = u.PrivateMetadata.Decode("generatedApps", &apps)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Todo app", apps[0].Name)
	assert.Equal(t, "build a todo app", apps[0].Prompt)
	assert.Equal(t, quota.StatusPro, apps[0].PlanUsed)
	assert.True(t, strings.HasPrefix(apps[0].ID, "app_"))
	assert.Equal(t, "Blog", apps[1].Name)
	assert.Equal(t, int64(6), storedProgress(t, store, userID).TotalAppsGenerated)
}

func TestIncrementAppGeneration_SealsPrompt(t *testing.T) {
	t.Parallel()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	sealer, err := secrets.New(key)
	require.NoError(t, err)

	store := usermeta.NewMemoryStore()
	svc := newService(t, store, nil, quota.WithSealer(sealer))

	_, err = svc.IncrementAppGeneration(context.Background(), userID, "Shop", "a secret prompt")
	require.NoError(t, err)

	u, err := store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	var apps []quota.GeneratedApp
	_, err = u.PrivateMetadata.Decode("generatedApps", &apps)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.True(t, secrets.IsSealed(apps[0].Prompt))

	plain, err := sealer.Open(userID, apps[0].Prompt)
	require.NoError(t, err)
	assert.Equal(t, "a secret prompt", plain)
}

func TestConsumeGeneration(t *testing.T) {
	t.Parallel()

	t.Run("denied leaves counters alone", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		seedProjects(t, store, userID, activeProject("a"))
		svc := newService(t, store, nil)

		d, p, err := svc.ConsumeGeneration(context.Background(), userID, "App", "")
		require.NoError(t, err)
		assert.False(t, d.CanGenerate)
		assert.Equal(t, quota.ReasonFreeLimit, d.Reason)
		assert.Nil(t, p)
		assert.Equal(t, int64(1), storedProgress(t, store, userID).TotalAppsGenerated)
	})

	t.Run("concurrent callers cannot pass the limit", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 24, CurrentPlanAppsGenerated: 24, SubscriptionStatus: quota.StatusPro})
		svc := newService(t, store, entitlement.Static{userID: {"pro"}})

		var (
			wg      sync.WaitGroup
			allowed atomic.Int32
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, _, err := svc.ConsumeGeneration(context.Background(), userID, "App", "")
				if err == nil && d.CanGenerate {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), allowed.Load())
		p := storedProgress(t, store, userID)
		assert.Equal(t, int64(25), p.CurrentPlanAppsGenerated)
		assert.Equal(t, int64(25), p.TotalAppsGenerated)
	})
}

func TestProvisionApp(t *testing.T) {
	t.Parallel()

	t.Run("free user journey", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		svc := newService(t, store, nil)
		ctx := context.Background()

		require.True(t, svc.CanGenerateApp(ctx, userID).CanGenerate)

		d, ref, err := svc.ProvisionApp(ctx, userID, func(context.Context) (quota.SandboxRef, error) {
			return quota.SandboxRef{SandboxID: "sbx_1", URL: "https://sbx-1.example.com"}, nil
		})
		require.NoError(t, err)
		assert.True(t, d.CanGenerate)
		assert.Equal(t, "sbx_1", ref.SandboxID)

		p, err := svc.GetUserProgress(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.TotalAppsGenerated)
		assert.Equal(t, int64(1), p.CurrentPlanAppsGenerated)

		projects, err := svc.ListProjects(ctx, userID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, "App 1", projects[0].Name)
		assert.Equal(t, "Generated app", projects[0].Description)
		assert.Equal(t, "sbx_1", projects[0].SandboxID)
		assert.Equal(t, "free", projects[0].PlanUsed)
		assert.True(t, projects[0].Active())

		d = svc.CanGenerateApp(ctx, userID)
		assert.False(t, d.CanGenerate)
		assert.Contains(t, d.Reason, "upgrade")
	})

	t.Run("denied does not provision", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		seedProjects(t, store, userID, activeProject("a"))
		svc := newService(t, store, nil)

		called := false
		d, _, err := svc.ProvisionApp(context.Background(), userID, func(context.Context) (quota.SandboxRef, error) {
			called = true
			return quota.SandboxRef{}, nil
		})
		require.NoError(t, err)
		assert.False(t, d.CanGenerate)
		assert.False(t, called)
	})

	t.Run("provision failure records nothing", func(t *testing.T) {
		t.Parallel()
		store := usermeta.NewMemoryStore()
		svc := newService(t, store, nil)
		boom := errors.New("vendor down")

		d, _, err := svc.ProvisionApp(context.Background(), userID, func(context.Context) (quota.SandboxRef, error) {
			return quota.SandboxRef{}, boom
		})
		require.ErrorIs(t, err, boom)
		assert.True(t, d.CanGenerate)
		assert.Zero(t, storedProgress(t, store, userID).TotalAppsGenerated)
	})
}

func TestUpdateSubscriptionStatus(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 9, CurrentPlanAppsGenerated: 6, SubscriptionStatus: quota.StatusFree})
	svc := newService(t, store, entitlement.Static{userID: {"Premium"}})

	p, err := svc.UpdateSubscriptionStatus(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, quota.StatusPremium, p.SubscriptionStatus)
	assert.Equal(t, int64(6), p.CurrentPlanAppsGenerated)
	assert.Equal(t, *p, storedProgress(t, store, userID))

	failing := newService(t, store, entitlement.CheckerFunc(func(context.Context, string, string) (bool, error) {
		return false, errors.New("billing down")
	}))
	_, err = failing.UpdateSubscriptionStatus(context.Background(), userID)
	require.ErrorIs(t, err, quota.ErrEntitlementFailed)
}

func TestResetMonthlyCounter(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	last := fixedNow.Add(-time.Hour)
	seedProgress(t, store, quota.UserProgress{
		UserID:                   userID,
		TotalAppsGenerated:       12,
		CurrentPlanAppsGenerated: 8,
		SubscriptionStatus:       quota.StatusPro,
		LastAppGeneratedAt:       &last,
	})
	svc := newService(t, store, nil)

	require.NoError(t, svc.ResetMonthlyCounter(context.Background(), userID))

	p := storedProgress(t, store, userID)
	assert.Zero(t, p.CurrentPlanAppsGenerated)
	assert.Equal(t, int64(12), p.TotalAppsGenerated)
	assert.Equal(t, quota.StatusPro, p.SubscriptionStatus)
	require.NotNil(t, p.LastAppGeneratedAt)
	assert.True(t, last.Equal(*p.LastAppGeneratedAt))
}

func TestSaveUserProgress(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	svc := newService(t, store, nil)
	ctx := context.Background()

	want := quota.UserProgress{UserID: userID, TotalAppsGenerated: 3, CurrentPlanAppsGenerated: 1, SubscriptionStatus: quota.StatusExpired}
	require.NoError(t, svc.SaveUserProgress(ctx, want))
	assert.Equal(t, want, storedProgress(t, store, userID))

	tests := []struct {
		name string
		p    quota.UserProgress
		err  error
	}{
		{"missing user", quota.UserProgress{SubscriptionStatus: quota.StatusFree}, quota.ErrEmptyUserID},
		{"negative", quota.UserProgress{UserID: userID, TotalAppsGenerated: -1, SubscriptionStatus: quota.StatusFree}, quota.ErrInvalidProgress},
		{"current above total", quota.UserProgress{UserID: userID, TotalAppsGenerated: 1, CurrentPlanAppsGenerated: 2, SubscriptionStatus: quota.StatusFree}, quota.ErrInvalidProgress},
		{"unknown status", quota.UserProgress{UserID: userID, SubscriptionStatus: "gold"}, quota.ErrInvalidProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, svc.SaveUserProgress(ctx, tt.p), tt.err)
		})
	}
}

func TestTestUpgrade(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	seedProgress(t, store, quota.UserProgress{UserID: userID, TotalAppsGenerated: 2, CurrentPlanAppsGenerated: 2, SubscriptionStatus: quota.StatusFree})
	svc := newService(t, store, nil)

	_, err := svc.TestUpgrade(context.Background(), userID, "gold")
	require.ErrorIs(t, err, quota.ErrInvalidPlan)

	p, err := svc.TestUpgrade(context.Background(), userID, "premium")
	require.NoError(t, err)
	assert.Equal(t, quota.StatusPremium, p.SubscriptionStatus)
	assert.Zero(t, p.CurrentPlanAppsGenerated)
	assert.Equal(t, int64(2), p.TotalAppsGenerated)

	u, err := store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	var plan string
	ok, err := u.PublicMetadata.Decode(entitlement.TestPlanKey, &plan)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "premium", plan)

	// The stored test plan keeps the gate on premium.
	gated := newService(t, store, entitlement.MetadataChecker{Store: store})
	assert.True(t, gated.CanGenerateApp(context.Background(), userID).CanGenerate)
	assert.Equal(t, quota.StatusPremium, storedProgress(t, store, userID).SubscriptionStatus)
}

func TestNewService_PanicsOnMissingDeps(t *testing.T) {
	t.Parallel()

	store := usermeta.NewMemoryStore()
	assert.Panics(t, func() { quota.NewService(nil, plans.Default(), entitlement.Static{}) })
	assert.Panics(t, func() { quota.NewService(store, nil, entitlement.Static{}) })
	assert.Panics(t, func() { quota.NewService(store, plans.Default(), nil) })
}
