package authz

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// plan is the cached outcome of Tiers 1-3's *rule lookup*, independent
// of the request's Context (which can vary request to request and is
// applied when the plan is executed, not when it is cached).
type plan struct {
	tier  Tier
	rules []rule
}

// cache memoizes decision plans per (realm, resource type, action,
// subject), avoiding repeated is_public/blanket-grant/matching-rule
// lookups for the same subject across many authorization calls. It
// wraps hashicorp/golang-lru/v2 the way core/cache.go wraps it for
// compiled query fragments, but unlike that cache a plan goes stale
// the moment any ACL in its realm is written: every key carries the
// realm's current epoch, and invalidateRealm bumps that epoch instead
// of walking the LRU to evict individual entries. Entries tagged with
// a superseded epoch age out of the LRU on their own; they are never
// returned because their key no longer matches.
type cache struct {
	inner *lru.Cache[string, plan]

	mu    sync.Mutex
	epoch map[int]uint64
}

func newCache(size int) *cache {
	if size <= 0 {
		size = 4096
	}
	c, err := lru.New[string, plan](size)
	if err != nil {
		// Only returns an error for a non-positive size, which newCache
		// already guards against.
		panic(err)
	}
	return &cache{inner: c, epoch: make(map[int]uint64)}
}

func planKey(realmID, resourceTypeID, actionID, principalID int, roleIDs []int, epoch uint64) string {
	sorted := append([]int(nil), roleIDs...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("%d:%d:%d:%d:[%s]:%d", realmID, resourceTypeID, actionID, principalID, strings.Join(parts, ","), epoch)
}

// key builds the cache key for a lookup, folding in realmID's current
// epoch so a plan cached before the most recent invalidateRealm call
// never matches.
func (c *cache) key(realmID, resourceTypeID, actionID, principalID int, roleIDs []int) string {
	var epoch uint64
	if c != nil {
		c.mu.Lock()
		epoch = c.epoch[realmID]
		c.mu.Unlock()
	}
	return planKey(realmID, resourceTypeID, actionID, principalID, roleIDs, epoch)
}

// invalidateRealm discards every plan cached for realmID by advancing
// its epoch; it is registered with ACLRepo.OnMutate so an ACL write
// takes effect on the next Authorize call instead of being served a
// stale plan indefinitely.
func (c *cache) invalidateRealm(realmID int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.epoch[realmID]++
	c.mu.Unlock()
}

func (c *cache) get(key string) (plan, bool) {
	if c == nil {
		return plan{}, false
	}
	return c.inner.Get(key)
}

func (c *cache) set(key string, p plan) {
	if c == nil {
		return
	}
	c.inner.Add(key, p)
}
