package config

import (
	"time"

	"github.com/prajwalbharadwajbm/clipescrow/internal/cache"
)

type CacheConfig struct {
	Enabled       bool          `env:"CACHE_ENABLED" envDefault:"true"`
	DefaultTTL    time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"30s"`
	MemoryCacheMB int           `env:"CACHE_MEMORY_MB" envDefault:"32"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	EnableMemory  bool          `env:"CACHE_ENABLE_MEMORY" envDefault:"true"`
	EnableRedis   bool          `env:"CACHE_ENABLE_REDIS" envDefault:"false"`
}

// GetCacheConfig maps the loaded cache section onto cache.CacheConfig
func GetCacheConfig() cache.CacheConfig {
	c := AppConfigInstance.CacheConfig
	return cache.CacheConfig{
		DefaultTTL:    c.DefaultTTL,
		MemoryCacheMB: c.MemoryCacheMB,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		EnableMemory:  c.EnableMemory,
		EnableRedis:   c.EnableRedis,
	}
}

// CacheHealthCheck represents cache health status
type CacheHealthCheck struct {
	Memory struct {
		Enabled bool `json:"enabled"`
		SizeMB  int  `json:"size_mb"`
	} `json:"memory"`
	Redis struct {
		Enabled bool   `json:"enabled"`
		Address string `json:"address"`
	} `json:"redis"`
	Stats cache.CacheStats `json:"stats"`
}

// GetCacheHealth returns current cache health status
func GetCacheHealth(c cache.Cache) CacheHealthCheck {
	cfg := AppConfigInstance.CacheConfig
	health := CacheHealthCheck{}

	health.Memory.Enabled = cfg.EnableMemory
	health.Memory.SizeMB = cfg.MemoryCacheMB
	health.Redis.Enabled = cfg.EnableRedis
	health.Redis.Address = cfg.RedisAddr
	health.Stats = c.GetStats()

	return health
}
