package classifier

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedVerdict is an irrelevance decision remembered for a normalized text.
type CachedVerdict struct {
	Irrelevant bool
	Reason     string
}

// VerdictCache remembers irrelevance verdicts keyed by normalized text so a
// repeated question within the TTL reproduces the same decision without
// re-scoring or another LLM call.
type VerdictCache struct {
	cache *cache.Cache
}

const (
	// DefaultVerdictTTL keeps verdicts for one minute.
	DefaultVerdictTTL = 60 * time.Second

	verdictPurgeInterval = 2 * time.Minute
)

func NewVerdictCache(ttl time.Duration) *VerdictCache {
	if ttl <= 0 {
		ttl = DefaultVerdictTTL
	}
	return &VerdictCache{cache: cache.New(ttl, verdictPurgeInterval)}
}

func (c *VerdictCache) Get(text string) (*CachedVerdict, bool) {
	if x, found := c.cache.Get(NormalizeKey(text)); found {
		v := x.(CachedVerdict)
		return &v, true
	}
	return nil, false
}

func (c *VerdictCache) Set(text string, irrelevant bool, reason string) {
	c.cache.Set(NormalizeKey(text), CachedVerdict{Irrelevant: irrelevant, Reason: reason}, cache.DefaultExpiration)
}
