package engine

import (
	"context"
	"testing"
	"time"
)

func withTestCache(t *testing.T, maxEntries int) *tieredCache {
	t.Helper()
	prev := postingCache
	postingCache = newTieredCache(time.Minute, maxEntries, 0)
	t.Cleanup(func() { postingCache = prev })
	return postingCache
}

type cachedJob struct {
	Title string   `json:"title"`
	Must  []string `json:"must"`
}

func TestCacheKeyDeterministic(t *testing.T) {
	a := CacheKey("job", "model", "text")
	if a != CacheKey("job", "model", "text") {
		t.Error("same parts should give the same key")
	}
	if a == CacheKey("job", "heuristic", "text") {
		t.Error("different parts should give different keys")
	}
	if len(a) != len("ga:")+24 {
		t.Errorf("key %q has unexpected length", a)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	withTestCache(t, 10)
	ctx := context.Background()
	key := CacheKey("job", "x")

	if _, ok := CacheLoadJSON[cachedJob](ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}
	CacheStoreJSON(ctx, key, cachedJob{Title: "SRE", Must: []string{"Go"}})
	got, ok := CacheLoadJSON[cachedJob](ctx, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Title != "SRE" || len(got.Must) != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestCacheExpired(t *testing.T) {
	c := withTestCache(t, 10)
	ctx := context.Background()
	c.l1.Store("k", &cacheEntry{data: []byte(`{"title":"old"}`), expiresAt: time.Now().Add(-time.Second)})
	if _, ok := CacheLoadJSON[cachedJob](ctx, "k"); ok {
		t.Error("expired entry should miss")
	}
	if _, ok := c.l1.Load("k"); ok {
		t.Error("expired entry should be deleted")
	}
}

func TestCacheEviction(t *testing.T) {
	c := withTestCache(t, 3)
	ctx := context.Background()
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		c.l1.Store(k, &cacheEntry{data: []byte(`{}`), expiresAt: time.Now().Add(time.Duration(i+1) * time.Minute)})
	}
	CacheStoreJSON(ctx, "f", cachedJob{Title: "new"})

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count > 3 {
		t.Errorf("L1 has %d entries, want at most 3", count)
	}
	if _, ok := c.l1.Load("a"); ok {
		t.Error("oldest entry should be evicted first")
	}
	if _, ok := CacheLoadJSON[cachedJob](ctx, "f"); !ok {
		t.Error("new entry should be present")
	}
}

func TestCacheDisabled(t *testing.T) {
	prev := postingCache
	postingCache = nil
	t.Cleanup(func() { postingCache = prev })

	CacheStoreJSON(context.Background(), "k", cachedJob{Title: "x"})
	if _, ok := CacheLoadJSON[cachedJob](context.Background(), "k"); ok {
		t.Error("nil cache should always miss")
	}
}
