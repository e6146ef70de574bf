package services

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codyseavey/market-history/backend/internal/metrics"
)

// assetCacheSize is generous on purpose: item metadata is immutable, so
// the cache is effectively eviction-free for the life of the process.
const assetCacheSize = 10000

// AssetCache memoizes item descriptors observed while parsing pages,
// keyed by appid/classid/instanceid/language. It is an explicit
// collaborator owned by the manager, not ambient global state.
type AssetCache struct {
	cache *lru.Cache[string, *RawAsset]
}

func NewAssetCache() (*AssetCache, error) {
	cache, err := lru.New[string, *RawAsset](assetCacheSize)
	if err != nil {
		return nil, err
	}
	return &AssetCache{cache: cache}, nil
}

func assetCacheKey(appID, classID, instanceID, language string) string {
	return fmt.Sprintf("%s/%s/%s/%s", appID, classID, instanceID, language)
}

func (c *AssetCache) Get(appID, classID, instanceID, language string) (*RawAsset, bool) {
	asset, ok := c.cache.Get(assetCacheKey(appID, classID, instanceID, language))
	if ok {
		metrics.AssetCacheHits.Inc()
	} else {
		metrics.AssetCacheMisses.Inc()
	}
	return asset, ok
}

func (c *AssetCache) Put(appID, classID, instanceID, language string, asset *RawAsset) {
	c.cache.Add(assetCacheKey(appID, classID, instanceID, language), asset)
}

func (c *AssetCache) Len() int {
	return c.cache.Len()
}
