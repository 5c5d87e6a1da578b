package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"touchflow/config"

	"github.com/go-redis/redis/v8"
)

// ReportCache is a short-TTL read-through cache for reporting
// responses. Reports are read-only projections and tolerate staleness,
// so a cache miss or a Redis outage only costs a recompute.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache builds a cache from the loaded config, or returns nil
// when Redis is disabled. A nil *ReportCache is safe to use; every
// lookup is then a miss.
func NewReportCache() *ReportCache {
	if !config.AppConfig.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.Redis.Address,
		Password: config.AppConfig.Redis.Password,
		DB:       config.AppConfig.Redis.DB,
	})
	return &ReportCache{client: client, ttl: config.AppConfig.ReportCacheTTL}
}

// Key builds a cache key scoped by business, report name and params.
func (rc *ReportCache) Key(businessID uint, report string, params ...interface{}) string {
	key := fmt.Sprintf("report:%d:%s", businessID, report)
	for _, p := range params {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// Get unmarshals a cached report into out, reporting whether it hit.
func (rc *ReportCache) Get(ctx context.Context, key string, out interface{}) bool {
	if rc == nil {
		return false
	}
	raw, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// Set stores a report under the configured TTL. Failures are ignored;
// the cache is best-effort.
func (rc *ReportCache) Set(ctx context.Context, key string, value interface{}) {
	if rc == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	rc.client.Set(ctx, key, raw, rc.ttl)
}
