package cachestore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-supertokens/core"
)

const versionCacheKeyPrefix = "go-supertokens::cdi_version::v1"

// VersionCache keeps the negotiated protocol version in a go-repository-cache
// service. Clients pointed at the same core and sharing one service negotiate
// once between them.
type VersionCache struct {
	cache repositorycache.CacheService
	key   string
}

func NewVersionCache(cacheService repositorycache.CacheService, coreURI string) (*VersionCache, error) {
	if cacheService == nil {
		return nil, fmt.Errorf("cachestore: version cache service is required")
	}
	key, err := VersionCacheKey(coreURI)
	if err != nil {
		return nil, err
	}
	return &VersionCache{cache: cacheService, key: key}, nil
}

// VersionCacheKey returns go-supertokens::cdi_version::v1::<core uri> with the
// uri path escaped after trimming its trailing slash.
func VersionCacheKey(coreURI string) (string, error) {
	normalized := strings.TrimRight(strings.TrimSpace(coreURI), "/")
	if normalized == "" {
		return "", fmt.Errorf("cachestore: core uri is required")
	}
	return versionCacheKeyPrefix + "::" + url.PathEscape(normalized), nil
}

func (c *VersionCache) Key() string {
	if c == nil {
		return ""
	}
	return c.key
}

func (c *VersionCache) GetOrFetch(ctx context.Context, fetch func(ctx context.Context) (string, error)) (string, error) {
	if c == nil || c.cache == nil {
		return "", fmt.Errorf("cachestore: version cache is not configured")
	}
	if fetch == nil {
		return "", fmt.Errorf("cachestore: version fetch function is required")
	}
	version, err := repositorycache.GetOrFetch(ctx, c.cache, c.key, func(ctx context.Context) (string, error) {
		fetched, fetchErr := fetch(ctx)
		if fetchErr != nil {
			return "", fetchErr
		}
		return strings.TrimSpace(fetched), nil
	})
	if err != nil {
		return "", err
	}
	return version, nil
}

func (c *VersionCache) Invalidate(ctx context.Context) error {
	if c == nil || c.cache == nil {
		return fmt.Errorf("cachestore: version cache is not configured")
	}
	return c.cache.Delete(ctx, c.key)
}

var _ core.VersionCache = (*VersionCache)(nil)
