package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/byteai/builder/pkg/auth"
	"github.com/byteai/builder/pkg/config"
	"github.com/byteai/builder/pkg/entitlement"
	"github.com/byteai/builder/pkg/httpserver"
	"github.com/byteai/builder/pkg/logger"
	"github.com/byteai/builder/pkg/mongo"
	"github.com/byteai/builder/pkg/pg"
	"github.com/byteai/builder/pkg/plans"
	"github.com/byteai/builder/pkg/quota"
	"github.com/byteai/builder/pkg/ratelimit"
	"github.com/byteai/builder/pkg/redis"
	"github.com/byteai/builder/pkg/requestid"
	"github.com/byteai/builder/pkg/sandbox"
	"github.com/byteai/builder/pkg/search"
	"github.com/byteai/builder/pkg/secrets"
	"github.com/byteai/builder/pkg/usermeta"
	"github.com/byteai/builder/svc/builder"
)

type appConfig struct {
	Env               string        `env:"APP_ENV" envDefault:"development"`
	Name              string        `env:"APP_NAME" envDefault:"builder"`
	StoreDriver       string        `env:"STORE_DRIVER" envDefault:"clerk"`
	EntitlementSource []string      `env:"ENTITLEMENT_SOURCE" envSeparator:"," envDefault:"claims"`
	PlansFile         string        `env:"PLANS_FILE"`
	QuotaResetDay     int           `env:"QUOTA_RESET_DAY" envDefault:"1"`
	AuditSecretKey    string        `env:"AUDIT_SECRET_KEY"`
	LockTTL           time.Duration `env:"QUOTA_LOCK_TTL" envDefault:"2m"` // covers a full sandbox provisioning
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}
	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	catalog := plans.Default()
	if cfg.PlansFile != "" {
		if catalog, err = plans.LoadFile(cfg.PlansFile); err != nil {
			return err
		}
	}

	checker, err := entitlementChain(cfg.EntitlementSource, store.Store)
	if err != nil {
		return err
	}

	quotaOpts := []quota.ServiceOption{quota.WithLocker(store.locker), quota.WithLogger(log)}
	if cfg.AuditSecretKey != "" {
		key, err := secrets.ParseKey(cfg.AuditSecretKey)
		if err != nil {
			return err
		}
		sealer, err := secrets.New(key)
		if err != nil {
			return err
		}
		quotaOpts = append(quotaOpts, quota.WithSealer(sealer))
	}
	quotaSvc := quota.NewService(store.Store, catalog, checker, quotaOpts...)

	var sandboxCfg sandbox.Config
	if err := config.Load(&sandboxCfg); err != nil {
		return err
	}
	factory := sandbox.NewFactory(sandboxCfg, sandbox.WithLogger(log))
	registry := sandbox.NewRegistry(
		sandbox.WithRegistryLogger(log),
		sandbox.WithTerminateTimeout(sandboxCfg.TerminateTimeout),
	)

	var searchCfg search.Config
	if err := config.Load(&searchCfg); err != nil {
		return err
	}
	searcher := search.New(searchCfg, search.WithLogger(log))

	var builderCfg builder.Config
	if err := config.Load(&builderCfg); err != nil {
		return err
	}
	sandboxLimit, err := ratelimit.NewBucket(store.limits, builderCfg.SandboxRate)
	if err != nil {
		return err
	}
	searchLimit, err := ratelimit.NewBucket(store.limits, builderCfg.SearchRate)
	if err != nil {
		return err
	}
	api := builder.NewHandler(quotaSvc, factory, registry, searcher,
		builder.WithConfig(builderCfg),
		builder.WithLogger(log),
		builder.WithRateLimits(sandboxLimit, searchLimit),
	)

	verifier, err := newVerifier(ctx)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, store.checks...))
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, auth.WithLogger(log)))
		r.Use(auth.RequireUser)
		api.Routes(r)
	})

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Run(ctx, r)
	})
	if lister, ok := store.Store.(usermeta.UserLister); ok && cfg.QuotaResetDay > 0 {
		resetter := quota.NewResetter(quotaSvc, lister,
			quota.WithSchedule(quota.MonthlyOn(cfg.QuotaResetDay, 0, 0)),
			quota.WithResetterLogger(log),
		)
		g.Go(func() error { return resetter.Run(ctx) })
	} else if cfg.QuotaResetDay > 0 {
		log.WarnContext(ctx, "store cannot list users, monthly reset disabled", slog.String("driver", cfg.StoreDriver))
	}

	err = g.Wait()
	registry.TerminateAll(context.Background())
	return err
}

func newVerifier(ctx context.Context) (auth.TokenVerifier, error) {
	var cfg auth.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if cfg.Disabled {
		return auth.StaticVerifier{Claims: auth.Claims{Subject: cfg.DevUserID}}, nil
	}
	v, err := auth.NewVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// metaStore bundles a usermeta backend with its lock, rate limit state,
// readiness probes and cleanup.
type metaStore struct {
	usermeta.Store
	locker usermeta.Locker
	limits ratelimit.Store
	checks []httpserver.Check
	close  func()
}

// inProcess fills the shared-state fields a backend cannot provide.
func (m *metaStore) inProcess() *metaStore {
	if m.locker == nil {
		m.locker = usermeta.NewMemoryLocker()
	}
	if m.limits == nil {
		mem := ratelimit.NewMemoryStore()
		m.limits = mem
		next := m.close
		m.close = func() {
			mem.Close()
			if next != nil {
				next()
			}
		}
	}
	if m.close == nil {
		m.close = func() {}
	}
	return m
}

func openStore(ctx context.Context, cfg appConfig, log *slog.Logger) (*metaStore, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "memory":
		return (&metaStore{Store: usermeta.NewMemoryStore()}).inProcess(), nil

	case "clerk":
		var clerkCfg usermeta.ClerkConfig
		if err := config.Load(&clerkCfg); err != nil {
			return nil, err
		}
		if clerkCfg.SecretKey == "" {
			return nil, errors.New("CLERK_SECRET_KEY is required for the clerk store")
		}
		// Clerk offers no lock; a single replica with the in-process locker is assumed.
		return (&metaStore{
			Store: usermeta.NewClerkStore(clerkCfg, &http.Client{Timeout: 15 * time.Second}),
		}).inProcess(), nil

	case "redis":
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		return &metaStore{
			Store: usermeta.NewRedisStore(client, redisCfg.KeyPrefix),
			locker: usermeta.NewRedisLocker(client, redisCfg.KeyPrefix,
				usermeta.WithLockTTL(cfg.LockTTL),
				usermeta.WithLockLogger(log),
			),
			limits: ratelimit.NewRedisStore(client, redisCfg.KeyPrefix),
			checks: []httpserver.Check{{Name: "redis", Fn: redis.Healthcheck(client)}},
			close:  func() { _ = client.Close() },
		}, nil

	case "postgres":
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, usermeta.Migrations(), pgCfg.MigrationsTable, log); err != nil {
			pool.Close()
			return nil, err
		}
		return (&metaStore{
			Store:  usermeta.NewPostgresStore(pool),
			locker: usermeta.NewPostgresLocker(pool, log),
			checks: []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}},
			close:  pool.Close,
		}).inProcess(), nil

	case "mongo":
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return nil, err
		}
		db, err := mongo.ConnectDatabase(ctx, mongoCfg)
		if err != nil {
			return nil, err
		}
		// Mongo has no advisory locks; quota updates are serialized in process.
		return (&metaStore{
			Store:  usermeta.NewMongoStore(db),
			checks: []httpserver.Check{{Name: "mongo", Fn: mongo.Healthcheck(db.Client())}},
			close:  func() { _ = db.Client().Disconnect(context.Background()) },
		}).inProcess(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// entitlementChain grants a plan when any configured source does.
func entitlementChain(sources []string, store usermeta.Store) (entitlement.Checker, error) {
	var checkers []entitlement.Checker
	for _, src := range sources {
		switch strings.TrimSpace(strings.ToLower(src)) {
		case "":
			continue
		case "claims":
			checkers = append(checkers, entitlement.ClaimsChecker{})
		case "metadata":
			checkers = append(checkers, entitlement.MetadataChecker{Store: store})
		case "paddle":
			var paddleCfg entitlement.PaddleConfig
			if err := config.Load(&paddleCfg); err != nil {
				return nil, err
			}
			pc, err := entitlement.NewPaddleChecker(paddleCfg, store, &http.Client{Timeout: 15 * time.Second})
			if err != nil {
				return nil, err
			}
			checkers = append(checkers, pc)
		default:
			return nil, fmt.Errorf("unknown ENTITLEMENT_SOURCE %q", src)
		}
	}
	if len(checkers) == 0 {
		return entitlement.Static{}, nil
	}
	return entitlement.Any(checkers...), nil
}
