package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
)

// Cache defines the interface for the campaign read-projection cache
type Cache interface {
	// Stats projection
	GetCampaignStats(ctx context.Context, campaignID string) (models.CampaignStats, error)
	SetCampaignStats(ctx context.Context, stats models.CampaignStats, ttl time.Duration) error

	// Milestone projection
	GetMilestones(ctx context.Context, campaignID string) ([]models.Milestone, error)
	SetMilestones(ctx context.Context, campaignID string, milestones []models.Milestone, ttl time.Duration) error

	// Invalidate drops every projection of one campaign
	Invalidate(ctx context.Context, campaignID string) error
	InvalidateAll(ctx context.Context) error

	// Cache management
	GetStats() CacheStats
}

// CacheStats holds cache performance statistics
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Errors      int64     `json:"errors"`
	HitRatio    float64   `json:"hit_ratio"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	DefaultTTL    time.Duration
	MemoryCacheMB int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EnableMemory  bool
	EnableRedis   bool
}

// Custom errors
var (
	ErrCacheMiss = errors.New("cache miss")
)

// HybridCache keeps projections in an in-process freecache tier backed by
// a shared redis tier. Reads try memory, then redis, warming memory on a
// redis hit.
type HybridCache struct {
	memoryCache *memoryCache
	redisCache  *redisCache
	config      CacheConfig

	stats CacheStats
	mu    sync.RWMutex
}

// NewHybridCache creates a new hybrid cache
func NewHybridCache(config CacheConfig) (*HybridCache, error) {
	hc := &HybridCache{
		config: config,
		stats: CacheStats{
			LastUpdated: time.Now(),
		},
	}

	if config.EnableMemory {
		hc.memoryCache = newMemoryCache(config.MemoryCacheMB * 1024 * 1024)
	}

	if config.EnableRedis {
		var err error
		hc.redisCache, err = newRedisCache(config)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
	}

	return hc, nil
}

func statsKey(campaignID string) string {
	return "stats:" + campaignID
}

func milestonesKey(campaignID string) string {
	return "milestones:" + campaignID
}

// GetCampaignStats implements Cache
func (hc *HybridCache) GetCampaignStats(ctx context.Context, campaignID string) (models.CampaignStats, error) {
	var stats models.CampaignStats
	if err := hc.get(ctx, statsKey(campaignID), &stats); err != nil {
		return models.CampaignStats{}, err
	}
	return stats, nil
}

// SetCampaignStats implements Cache
func (hc *HybridCache) SetCampaignStats(ctx context.Context, stats models.CampaignStats, ttl time.Duration) error {
	return hc.set(ctx, statsKey(stats.CampaignID), stats, ttl)
}

// GetMilestones implements Cache
func (hc *HybridCache) GetMilestones(ctx context.Context, campaignID string) ([]models.Milestone, error) {
	var milestones []models.Milestone
	if err := hc.get(ctx, milestonesKey(campaignID), &milestones); err != nil {
		return nil, err
	}
	return milestones, nil
}

// SetMilestones implements Cache
func (hc *HybridCache) SetMilestones(ctx context.Context, campaignID string, milestones []models.Milestone, ttl time.Duration) error {
	return hc.set(ctx, milestonesKey(campaignID), milestones, ttl)
}

func (hc *HybridCache) get(ctx context.Context, key string, out any) error {
	if hc.memoryCache != nil {
		if data, found := hc.memoryCache.get(key); found {
			if err := json.Unmarshal(data, out); err == nil {
				hc.recordHit()
				return nil
			}
			hc.memoryCache.del(key)
		}
	}

	if hc.redisCache != nil {
		data, err := hc.redisCache.get(ctx, key)
		if err == nil {
			if err := json.Unmarshal(data, out); err != nil {
				hc.recordError()
				hc.recordMiss()
				return ErrCacheMiss
			}
			hc.recordHit()
			if hc.memoryCache != nil {
				hc.memoryCache.set(key, data, hc.config.DefaultTTL)
			}
			return nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			hc.recordError()
		}
	}

	hc.recordMiss()
	return ErrCacheMiss
}

func (hc *HybridCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("JSON marshal error: %w", err)
	}

	if hc.memoryCache != nil {
		hc.memoryCache.set(key, data, ttl)
	}

	if hc.redisCache != nil {
		if err := hc.redisCache.set(ctx, key, data, ttl); err != nil {
			hc.recordError()
			return fmt.Errorf("cache store error: %w", err)
		}
	}

	return nil
}

// Invalidate implements Cache
func (hc *HybridCache) Invalidate(ctx context.Context, campaignID string) error {
	keys := []string{statsKey(campaignID), milestonesKey(campaignID)}

	if hc.memoryCache != nil {
		for _, k := range keys {
			hc.memoryCache.del(k)
		}
	}

	if hc.redisCache != nil {
		if err := hc.redisCache.del(ctx, keys...); err != nil {
			hc.recordError()
			return fmt.Errorf("cache invalidation error: %w", err)
		}
	}

	return nil
}

// InvalidateAll clears all caches
func (hc *HybridCache) InvalidateAll(ctx context.Context) error {
	if hc.memoryCache != nil {
		hc.memoryCache.clear()
	}

	if hc.redisCache != nil {
		if err := hc.redisCache.clear(ctx); err != nil {
			return fmt.Errorf("cache invalidation error: %w", err)
		}
	}

	return nil
}

// HealthCheck pings the redis tier when it is enabled
func (hc *HybridCache) HealthCheck(ctx context.Context) error {
	if hc.redisCache == nil {
		return nil
	}
	return hc.redisCache.healthCheck(ctx)
}

// Close releases the redis connection
func (hc *HybridCache) Close() error {
	if hc.redisCache == nil {
		return nil
	}
	return hc.redisCache.close()
}

// GetStats returns cache statistics
func (hc *HybridCache) GetStats() CacheStats {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	stats := hc.stats
	if stats.TotalOps > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(stats.TotalOps)
	}
	return stats
}

func (hc *HybridCache) recordHit() {
	hc.mu.Lock()
	hc.stats.Hits++
	hc.stats.TotalOps++
	hc.stats.LastUpdated = time.Now()
	hc.mu.Unlock()
}

func (hc *HybridCache) recordMiss() {
	hc.mu.Lock()
	hc.stats.Misses++
	hc.stats.TotalOps++
	hc.stats.LastUpdated = time.Now()
	hc.mu.Unlock()
}

func (hc *HybridCache) recordError() {
	hc.mu.Lock()
	hc.stats.Errors++
	hc.mu.Unlock()
}
