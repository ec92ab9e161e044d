package config

import "time"

// RateLimitConfig drives the Redis token buckets that guard the credential
// endpoints (register and login).  Capacity is the burst allowed for one
// account (the email a request names) across all client addresses;
// IPCapacity is the burst allowed for one client address on one route.
// Every RefillInterval adds RefillTokens back to each bucket.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    IPCapacity     int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    Prefix         string
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
        IPCapacity:     envInt("RATE_LIMIT_IP_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
    }
    return def.normalize()
}

// normalize clamps values so the Lua script never sees a zero interval or
// an empty bucket, and keeps keys alive for at least five refill periods.
// An unset IPCapacity falls back to Capacity.
func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.IPCapacity < 1 { c.IPCapacity = c.Capacity }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL { c.TTL = minTTL }
    return c
}
