package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// entry holds one parsed configuration value together with the once guard
// that protects its first parse.
type entry struct {
	once  sync.Once
	value any
	err   error
}

var (
	entries sync.Map // reflect.Type -> *entry

	dotenvOnce sync.Once
)

// Load populates v from the process environment and caches the result per type,
// so every later call for the same T is a copy from memory.
// A .env file in the working directory is read once; a missing file is not an error.
//
//	type SandboxConfig struct {
//		Provider string `env:"SANDBOX_PROVIDER" envDefault:"e2b"`
//		E2BKey   string `env:"E2B_API_KEY"`
//	}
//
//	var cfg SandboxConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	key := reflect.TypeFor[T]()
	actual, _ := entries.LoadOrStore(key, &entry{})
	e := actual.(*entry)

	e.once.Do(func() {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			e.err = errors.Join(ErrParsingConfig, err)
			return
		}
		e.value = parsed
	})

	if e.err != nil {
		// Parse failures are not cached so a corrected environment can be retried.
		entries.CompareAndDelete(key, e)
		return e.err
	}

	cached, ok := e.value.(T)
	if !ok {
		return ErrConfigNotLoaded
	}
	*v = cached
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", reflect.TypeFor[T](), err))
	}
}

// Parse reads v from the environment without touching the cache.
func Parse[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// Reset drops every cached configuration. Intended for tests.
func Reset() {
	entries.Range(func(k, _ any) bool {
		entries.Delete(k)
		return true
	})
}
