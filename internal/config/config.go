// Package config provides type-safe environment variable loading using the
// caarlos0/env parser. A .env file is loaded once, best-effort, before the
// first read so local development works without exporting variables.
package config

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var loadDotEnv = sync.OnceFunc(func() {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()
})

// Load parses environment variables into the struct pointed to by cfg.
func Load(cfg any) error {
	loadDotEnv()
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse environment: %w", err)
	}
	return nil
}

// MustLoad is Load but panics on failure. Intended for application startup
// where a missing required variable should stop the process immediately.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
