package config

import (
    "strings"
    "time"
)

// CacheConfig controls the Redis response cache applied to the public
// catalog endpoints.  When Enabled is false or no Redis client is available
// the middleware is a no-op.  Methods lists the HTTP methods eligible for
// caching, TTL the entry lifetime, KeyStrategy which request parts make up
// the cache key, and MaxBodyBytes caps how large a response may be stored.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig builds a CacheConfig from the environment with defaults
// suitable for the movie catalog (GET only, 30 second TTL).
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envDefault("CACHE_ENABLED", "true") == "true",
        Methods:      parseMethods(envDefault("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envDefault("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envDefault("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envIntDefault("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
