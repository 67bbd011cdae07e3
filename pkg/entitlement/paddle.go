package entitlement

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/byteai/builder/pkg/cache"
	"github.com/byteai/builder/pkg/usermeta"
)

// CustomerIDKey is the private metadata key holding the Paddle customer id.
const CustomerIDKey = "paddleCustomerId"

type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	BaseURL     string `env:"PADDLE_BASE_URL"` // override for tests
	// PlanPrices maps a plan name to the Paddle price ids that grant it,
	// e.g. "pro:pri_01h...,premium:pri_01j...". Several prices per plan are
	// separated with "|".
	PlanPrices map[string]string `env:"PADDLE_PLAN_PRICES" envKeyValSeparator:":"`
	CacheTTL   time.Duration     `env:"PADDLE_CACHE_TTL" envDefault:"30s"`
}

// PaddleChecker grants a plan when the user's Paddle customer has an active
// or trialing subscription containing one of the plan's prices.
type PaddleChecker struct {
	client *paddle.SDK
	store  usermeta.Store
	prices map[string][]string
	held   *cache.Cache[string, map[string]struct{}]
}

func NewPaddleChecker(cfg PaddleConfig, store usermeta.Store, httpClient *http.Client) (*PaddleChecker, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}

	var opts []paddle.Option
	if cfg.BaseURL != "" {
		opts = append(opts, paddle.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, paddle.WithClient(httpClient))
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey, opts...)
	case "production", "":
		client, err = paddle.New(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	prices := make(map[string][]string, len(cfg.PlanPrices))
	for plan, ids := range cfg.PlanPrices {
		for id := range strings.SplitSeq(ids, "|") {
			if id = strings.TrimSpace(id); id != "" {
				prices[plan] = append(prices[plan], id)
			}
		}
	}

	return &PaddleChecker{
		client: client,
		store:  store,
		prices: prices,
		held:   cache.New[string, map[string]struct{}](1024, cfg.CacheTTL),
	}, nil
}

func (p *PaddleChecker) Has(ctx context.Context, userID, plan string) (bool, error) {
	want := p.prices[plan]
	if len(want) == 0 {
		return false, nil
	}
	held, err := p.activePrices(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, id := range want {
		if _, ok := held[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Forget drops the cached subscription state for userID.
func (p *PaddleChecker) Forget(userID string) {
	p.held.Delete(userID)
}

func (p *PaddleChecker) activePrices(ctx context.Context, userID string) (map[string]struct{}, error) {
	if held, ok := p.held.Get(userID); ok {
		return held, nil
	}

	u, err := p.store.GetUser(ctx, userID)
	if errors.Is(err, usermeta.ErrUserNotFound) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, errors.Join(ErrCheckFailed, err)
	}
	var customerID string
	if _, err := u.PrivateMetadata.Decode(CustomerIDKey, &customerID); err != nil {
		return nil, errors.Join(ErrCheckFailed, err)
	}

	held := map[string]struct{}{}
	if customerID != "" {
		res, err := p.client.SubscriptionsClient.ListSubscriptions(ctx, &paddle.ListSubscriptionsRequest{
			CustomerID: []string{customerID},
			Status:     []string{"active", "trialing"},
		})
		if err != nil {
			return nil, errors.Join(ErrCheckFailed, err)
		}
		err = res.Iter(ctx, func(s *paddle.Subscription) (bool, error) {
			for _, item := range s.Items {
				held[item.Price.ID] = struct{}{}
			}
			return true, nil
		})
		if err != nil {
			return nil, errors.Join(ErrCheckFailed, err)
		}
	}

	p.held.Put(userID, held)
	return held, nil
}
