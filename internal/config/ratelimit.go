package config

import "time"

// RateLimitConfig throttles the console's sign-in endpoints per client
// IP.  It only takes effect when a Redis client is available.
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Capacity       int           `yaml:"capacity"`
	RefillTokens   int           `yaml:"refill_tokens"`
	RefillInterval time.Duration `yaml:"refill_interval"`
	TTL            time.Duration `yaml:"ttl"`
	Prefix         string        `yaml:"prefix"`
}

func defaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Enabled:        true,
		Capacity:       10,
		RefillTokens:   1,
		RefillInterval: 6 * time.Second,
		TTL:            10 * time.Minute,
		Prefix:         "rl",
	}
}

func applyRateLimitEnv(rl *RateLimitConfig) {
	rl.Enabled = envBool("RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Capacity = envInt("RATE_LIMIT_CAPACITY", rl.Capacity)
	rl.RefillTokens = envInt("RATE_LIMIT_REFILL_TOKENS", rl.RefillTokens)
	rl.RefillInterval = envDur("RATE_LIMIT_REFILL_INTERVAL", rl.RefillInterval)
	rl.TTL = envDur("RATE_LIMIT_TTL", rl.TTL)
	rl.Prefix = envStr("RATE_LIMIT_PREFIX", rl.Prefix)

	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
}
