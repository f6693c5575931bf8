// Package config loads the core's tunables the same way the rest of the
// platform does: a .env file via viper with environment overrides and a
// default for every key.
package config

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ruralpay/corebank/internal/models"
)

// Config holds the runtime settings of the transaction core.
type Config struct {
	SessionTimeout   time.Duration
	LockoutDuration  time.Duration
	MaxLoginAttempts int
	LockWait         time.Duration
	OverdraftLimit   decimal.Decimal
}

// Load reads configuration from .env and the environment, falling back to
// the documented defaults.
func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("session.timeout", "SESSION_TIMEOUT")
	viper.BindEnv("lockout.duration", "LOCKOUT_DURATION")
	viper.BindEnv("lockout.max_attempts", "LOCKOUT_MAX_ATTEMPTS")
	viper.BindEnv("engine.lock_wait", "ENGINE_LOCK_WAIT")
	viper.BindEnv("overdraft.limit", "OVERDRAFT_LIMIT")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("[CONFIG] config file not found, using defaults: %v", err)
	}

	viper.SetDefault("session.timeout", 20*time.Minute)
	viper.SetDefault("lockout.duration", 2*time.Minute)
	viper.SetDefault("lockout.max_attempts", 3)
	viper.SetDefault("engine.lock_wait", 500*time.Millisecond)
	viper.SetDefault("overdraft.limit", "500.00")

	limit, err := decimal.NewFromString(viper.GetString("overdraft.limit"))
	if err != nil {
		log.Printf("[CONFIG] invalid overdraft limit %q, using default: %v",
			viper.GetString("overdraft.limit"), err)
		limit = models.DefaultOverdraftLimit
	}

	return &Config{
		SessionTimeout:   viper.GetDuration("session.timeout"),
		LockoutDuration:  viper.GetDuration("lockout.duration"),
		MaxLoginAttempts: viper.GetInt("lockout.max_attempts"),
		LockWait:         viper.GetDuration("engine.lock_wait"),
		OverdraftLimit:   limit,
	}
}
