package constants

import "time"

const (
	SearchContextCachePrefix  = "search_context" // CacheBuilder adds colon
	SearchContextCacheKey     = "latest"
	SearchContextCacheExpiry  = 24 * time.Hour
	HealthSnapshotCachePrefix = "health_snapshot"
	HealthSnapshotCacheKey    = "tree"
	HealthSnapshotCacheExpiry = 10 * time.Minute
)
