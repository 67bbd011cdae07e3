package plans_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteai/builder/pkg/plans"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c := plans.Default()

	free, err := c.Get(plans.Free)
	require.NoError(t, err)
	assert.Equal(t, plans.Limit(1), free.AppLimit)
	assert.Equal(t, int64(0), free.Price)

	pro, err := c.Get(plans.Pro)
	require.NoError(t, err)
	assert.Equal(t, plans.Limit(25), pro.AppLimit)
	assert.Equal(t, int64(1900), pro.Price)

	premium, err := c.Get(plans.Premium)
	require.NoError(t, err)
	assert.True(t, premium.IsUnlimited())

	ids := make([]plans.ID, 0, 3)
	for _, p := range c.List() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []plans.ID{plans.Free, plans.Pro, plans.Premium}, ids)
}

func TestCatalog_Resolve(t *testing.T) {
	t.Parallel()

	c := plans.Default()
	cases := map[string]plans.ID{
		"premium":      plans.Premium,
		"Premium Plan": plans.Premium,
		"Premium":      plans.Premium,
		"pro":          plans.Pro,
		"Pro Plan":     plans.Pro,
		"standard":     plans.Pro,
		"Standard":     plans.Pro,
		"free_user":    plans.Free,
	}
	for alias, want := range cases {
		got, ok := c.Resolve(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, want, got, alias)
	}

	_, ok := c.Resolve("enterprise")
	assert.False(t, ok)

	assert.Equal(t, []string{"premium", "Premium Plan", "Premium"}, c.Aliases(plans.Premium))
	assert.Nil(t, c.Aliases("enterprise"))
}

func TestCatalog_Get_Unknown(t *testing.T) {
	t.Parallel()
	_, err := plans.Default().Get("expired")
	assert.ErrorIs(t, err, plans.ErrPlanNotFound)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	base := func() []plans.Plan {
		return []plans.Plan{
			{ID: plans.Free, AppLimit: 1},
			{ID: plans.Pro, AppLimit: 25},
			{ID: plans.Premium, AppLimit: plans.Limit(plans.Unlimited)},
		}
	}

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		_, err := plans.New(base()...)
		assert.NoError(t, err)
	})

	t.Run("missing premium", func(t *testing.T) {
		t.Parallel()
		_, err := plans.New(base()[:2]...)
		assert.ErrorIs(t, err, plans.ErrMissingPlan)
	})

	t.Run("duplicate alias across plans", func(t *testing.T) {
		t.Parallel()
		list := base()
		list[1].Aliases = []string{"Gold"}
		list[2].Aliases = []string{"Gold"}
		_, err := plans.New(list...)
		assert.ErrorIs(t, err, plans.ErrDuplicateAlias)
	})

	t.Run("duplicate id", func(t *testing.T) {
		t.Parallel()
		_, err := plans.New(append(base(), plans.Plan{ID: plans.Pro})...)
		assert.ErrorIs(t, err, plans.ErrDuplicatePlan)
	})

	t.Run("negative limit", func(t *testing.T) {
		t.Parallel()
		list := base()
		list[1].AppLimit = -5
		_, err := plans.New(list...)
		assert.ErrorIs(t, err, plans.ErrInvalidLimit)
	})

	t.Run("unlimited free plan", func(t *testing.T) {
		t.Parallel()
		list := base()
		list[0].AppLimit = plans.Limit(plans.Unlimited)
		_, err := plans.New(list...)
		assert.ErrorIs(t, err, plans.ErrInvalidLimit)
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - {id: free, app_limit: 2}
  - {id: pro, app_limit: 50, aliases: [team]}
  - {id: premium, app_limit: unlimited}
`), 0o600))

	c, err := plans.LoadFile(path)
	require.NoError(t, err)

	free, _ := c.Get(plans.Free)
	assert.Equal(t, plans.Limit(2), free.AppLimit)
	id, ok := c.Resolve("team")
	assert.True(t, ok)
	assert.Equal(t, plans.Pro, id)

	_, err = plans.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, plans.ErrFailedToReadCatalog)

	_, err = plans.Parse([]byte("plans: [{id: free, app_limit: lots}]"))
	assert.Error(t, err)
}

func TestLimit_JSON(t *testing.T) {
	t.Parallel()

	premium, _ := plans.Default().Get(plans.Premium)
	b, err := json.Marshal(premium)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"appLimit":null`)

	var l plans.Limit
	require.NoError(t, json.Unmarshal([]byte("null"), &l))
	assert.Equal(t, plans.Limit(plans.Unlimited), l)
}

func TestTrialDaysRemaining(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 7, plans.TrialDaysRemaining(start, start))
	assert.Equal(t, 7, plans.TrialDaysRemaining(start, start.Add(time.Hour)))
	assert.Equal(t, 1, plans.TrialDaysRemaining(start, start.AddDate(0, 0, 6).Add(time.Hour)))
	assert.Equal(t, 0, plans.TrialDaysRemaining(start, start.AddDate(0, 0, 8)))
	assert.True(t, plans.IsTrialExpired(start, start.AddDate(0, 0, 7)))
	assert.False(t, plans.IsTrialExpired(start, start.AddDate(0, 0, 3)))
}
