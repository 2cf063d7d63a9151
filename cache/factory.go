package cache

import (
	"fmt"
	"log"

	"github.com/anoixa/shock-panel/cache/memory"
	"github.com/anoixa/shock-panel/cache/redis"
	"github.com/anoixa/shock-panel/config"
)

// NewProvider 根据配置创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	cacheType := cfg.CacheType
	if cacheType == "" {
		cacheType = "memory"
	}

	switch cacheType {
	case "memory":
		return newMemoryProvider()
	case "redis":
		provider, err := redis.NewRedis(redis.Config{
			Addr:     cfg.CacheRedisAddr,
			Password: cfg.CacheRedisPassword,
			DB:       cfg.CacheRedisDB,
		})
		if err != nil {
			// Redis 不可用时回退到内存缓存
			log.Printf("[Cache] Failed to connect to redis at %s: %v, falling back to memory cache", cfg.CacheRedisAddr, err)
			return newMemoryProvider()
		}
		log.Printf("[Cache] Using redis cache at %s", cfg.CacheRedisAddr)
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported cache provider type: %s", cacheType)
	}
}

func newMemoryProvider() (Provider, error) {
	provider, err := memory.NewMemory(memory.Config{
		NumCounters: 100000,
		MaxCost:     64 << 20, // 64MB
		BufferItems: 64,
		Metrics:     false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return provider, nil
}

// ShockerListKey 用户设备列表的缓存键
func ShockerListKey(userID uint) string {
	return fmt.Sprintf("shockers:user:%d", userID)
}
