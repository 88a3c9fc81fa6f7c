package statistics

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ShopFox/app/models"
	"github.com/ManuelReschke/ShopFox/internal/pkg/cache"
	"github.com/ManuelReschke/ShopFox/internal/pkg/database"
)

const (
	CacheKeyOrdersTotal  = "statistics:orders:total"
	CacheKeyOrdersDaily  = "statistics:orders:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyRevenueCents = "statistics:revenue:total_cents"
	CacheExpiration      = 30 * time.Minute
)

// ShopStatistics holds the aggregate numbers for the stats endpoint.
type ShopStatistics struct {
	TodayOrders       int64 `json:"todayOrders"`
	TotalOrders       int64 `json:"totalOrders"`
	TotalRevenueCents int64 `json:"totalRevenueCents"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached numbers are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()
	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached statistics when the interval has
// elapsed.
func UpdateCacheIfNeeded() {
	if !ShouldUpdateCache() {
		return
	}
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if err := UpdateStatisticsCache(); err != nil {
		log.Errorf("[Statistics] Failed to update cache: %v", err)
		return
	}
	lastCacheUpdate = time.Now()
}

// ResetCacheUpdateTimer forces the next caller to refresh.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()
	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes the aggregates from the database and writes
// them to Redis.
func UpdateStatisticsCache() error {
	db := database.GetDB()
	ctx := context.Background()

	var totalOrders int64
	if err := db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	var todayOrders int64
	if err := db.Model(&models.Order{}).
		Where("DATE(created_at) = ?", today).
		Count(&todayOrders).Error; err != nil {
		return fmt.Errorf("failed to count today's orders: %w", err)
	}

	var revenue int64
	if err := db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusPaid).
		Select("COALESCE(SUM(total_cents), 0)").
		Scan(&revenue).Error; err != nil {
		return fmt.Errorf("failed to sum revenue: %w", err)
	}

	client := cache.GetClient()
	if err := client.Set(ctx, CacheKeyOrdersTotal, totalOrders, CacheExpiration).Err(); err != nil {
		return err
	}
	if err := client.Set(ctx, fmt.Sprintf(CacheKeyOrdersDaily, today), todayOrders, CacheExpiration).Err(); err != nil {
		return err
	}
	return client.Set(ctx, CacheKeyRevenueCents, revenue, CacheExpiration).Err()
}

// GetStatistics returns the cached aggregates, refreshing them when stale.
func GetStatistics() ShopStatistics {
	UpdateCacheIfNeeded()

	ctx := context.Background()
	today := time.Now().Format("2006-01-02")

	stats := ShopStatistics{
		TotalOrders:       readInt(ctx, CacheKeyOrdersTotal),
		TodayOrders:       readInt(ctx, fmt.Sprintf(CacheKeyOrdersDaily, today)),
		TotalRevenueCents: readInt(ctx, CacheKeyRevenueCents),
	}
	return stats
}

func readInt(ctx context.Context, key string) int64 {
	val, err := cache.GetClient().Get(ctx, key).Result()
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
