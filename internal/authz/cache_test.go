package authz

import "testing"

func TestCacheInvalidateRealmChangesKey(t *testing.T) {
	c := newCache(0)

	key := c.key(1, 7, 3, 5, nil)
	c.set(key, plan{tier: TierBlanketGrant})

	if p, ok := c.get(key); !ok || p.tier != TierBlanketGrant {
		t.Fatalf("expected cached plan, got %+v ok=%v", p, ok)
	}

	c.invalidateRealm(1)

	if newKey := c.key(1, 7, 3, 5, nil); newKey == key {
		t.Fatalf("expected invalidateRealm to change the key, got same key %q", key)
	} else if _, ok := c.get(newKey); ok {
		t.Fatalf("expected no cached plan under the post-invalidation key")
	}

	// A different realm's key is untouched by realm 1's invalidation.
	other := c.key(2, 7, 3, 5, nil)
	c.set(other, plan{tier: TierDenied})
	c.invalidateRealm(1)
	if p, ok := c.get(other); !ok || p.tier != TierDenied {
		t.Fatalf("expected realm 2's plan to survive realm 1's invalidation, got %+v ok=%v", p, ok)
	}
}
