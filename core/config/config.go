package config

import (
	"errors"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilTarget is returned when Load receives a nil pointer.
	ErrNilTarget = errors.New("config: target must be a non-nil pointer")
	// ErrParse wraps environment parsing failures.
	ErrParse = errors.New("config: failed to parse environment")
)

var (
	dotenvOnce sync.Once
	cacheMu    sync.Mutex
	cache      = make(map[reflect.Type]any)
)

// Load fills cfg from the environment. A .env file in the working directory is
// loaded on first use; variables already set in the environment win.
// Each type is parsed once and served from cache afterwards.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilTarget
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load() // missing .env is fine
	})

	typ := reflect.TypeOf(cfg).Elem()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[typ]; ok {
		*cfg = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParse, err)
	}
	cache[typ] = parsed
	*cfg = parsed
	return nil
}

// MustLoad is Load that panics on failure. Intended for process startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Reset drops every cached configuration. Tests use it between t.Setenv calls.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[reflect.Type]any)
}
