package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/dary/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	sessionID := "session-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, sessionID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, sessionID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, sessionID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, sessionID, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, sessionID, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, sessionID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, sessionID, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, sessionID, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, sessionID, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("ZeroTTLNeverExpires", func(t *testing.T) {
		_ = cache.Set(ctx, sessionID, "forever", []byte("v"), 0)

		val, _ := cache.Get(ctx, sessionID, "forever")
		if string(val) != "v" {
			t.Errorf("expected value with zero ttl, got %q", val)
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, sessionID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, sessionID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, sessionID, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, sessionID, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, sessionID, "d", []byte("4"), time.Minute)

		// 'b' should be evicted
		val, _ := smallCache.Get(ctx, sessionID, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		// 'a' should still be there
		val, _ = smallCache.Get(ctx, sessionID, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("SessionIsolation", func(t *testing.T) {
		session1 := "session-001"
		session2 := "session-002"

		_ = cache.Set(ctx, session1, "shared-key", []byte("session1-value"), time.Minute)
		_ = cache.Set(ctx, session2, "shared-key", []byte("session2-value"), time.Minute)

		val1, _ := cache.Get(ctx, session1, "shared-key")
		val2, _ := cache.Get(ctx, session2, "shared-key")

		if string(val1) != "session1-value" {
			t.Errorf("expected 'session1-value', got '%s'", string(val1))
		}
		if string(val2) != "session2-value" {
			t.Errorf("expected 'session2-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresSessionID", func(t *testing.T) {
		err := cache.Set(ctx, "", "key", []byte("value"), time.Minute)
		if err == nil {
			t.Error("expected error for empty sessionID")
		}

		_, err = cache.Get(ctx, "", "key")
		if err == nil {
			t.Error("expected error for empty sessionID")
		}

		_, err = cache.Append(ctx, "", "list", []byte("x"), 10, time.Minute)
		if err == nil {
			t.Error("expected error for empty sessionID")
		}

		_, err = cache.Range(ctx, "", "list")
		if err == nil {
			t.Error("expected error for empty sessionID")
		}
	})

	t.Run("AppendAndRange", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			n, err := cache.Append(ctx, sessionID, "history", []byte(fmt.Sprintf("item-%d", i)), 10, time.Minute)
			if err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if n != int64(i) {
				t.Errorf("expected length %d, got %d", i, n)
			}
		}

		items, err := cache.Range(ctx, sessionID, "history")
		if err != nil {
			t.Fatalf("Range failed: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		if string(items[0]) != "item-1" || string(items[2]) != "item-3" {
			t.Errorf("expected insertion order, got %q", items)
		}
	})

	t.Run("AppendTrimsOldest", func(t *testing.T) {
		for i := 1; i <= 5; i++ {
			_, _ = cache.Append(ctx, sessionID, "bounded", []byte(fmt.Sprintf("%d", i)), 3, time.Minute)
		}

		items, _ := cache.Range(ctx, sessionID, "bounded")
		if len(items) != 3 {
			t.Fatalf("expected 3 items, got %d", len(items))
		}
		if string(items[0]) != "3" || string(items[2]) != "5" {
			t.Errorf("expected newest items 3..5, got %q", items)
		}
	})

	t.Run("RangeMiss", func(t *testing.T) {
		items, err := cache.Range(ctx, sessionID, "no-such-list")
		if err != nil {
			t.Fatalf("Range failed: %v", err)
		}
		if items != nil {
			t.Errorf("expected nil for missing list, got %v", items)
		}
	})

	t.Run("ListExpiration", func(t *testing.T) {
		_, _ = cache.Append(ctx, sessionID, "short", []byte("x"), 10, 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		items, _ := cache.Range(ctx, sessionID, "short")
		if items != nil {
			t.Error("expected list to expire")
		}
	})

	t.Run("DeleteList", func(t *testing.T) {
		_, _ = cache.Append(ctx, sessionID, "to-clear", []byte("x"), 10, time.Minute)
		_ = cache.Delete(ctx, sessionID, "to-clear")

		items, _ := cache.Range(ctx, sessionID, "to-clear")
		if items != nil {
			t.Error("expected list to be deleted")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, sessionID, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, sessionID, "k2", []byte("v2"), time.Minute)
		_, _ = statsCache.Append(ctx, sessionID, "l1", []byte("v"), 10, time.Minute)

		size, capacity := statsCache.Stats()
		if size != 3 {
			t.Errorf("expected size 3, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, sessionID, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		// Cache should be empty after close
		val, _ := testCache.Get(ctx, sessionID, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestTwoPhaseCache(t *testing.T) {
	ctx := context.Background()
	sessionID := "session-001"

	local := NewLRUCache(10)
	remote := NewLRUCache(10)
	cache := newTwoPhase(local, remote, time.Minute)

	t.Run("SetWritesBothLevels", func(t *testing.T) {
		_ = cache.Set(ctx, sessionID, "k", []byte("v"), time.Hour)

		if val, _ := local.Get(ctx, sessionID, "k"); string(val) != "v" {
			t.Errorf("expected L1 value, got %q", val)
		}
		if val, _ := remote.Get(ctx, sessionID, "k"); string(val) != "v" {
			t.Errorf("expected L2 value, got %q", val)
		}
	})

	t.Run("L2HitPopulatesL1", func(t *testing.T) {
		_ = remote.Set(ctx, sessionID, "remote-only", []byte("r"), time.Hour)

		val, err := cache.Get(ctx, sessionID, "remote-only")
		if err != nil || string(val) != "r" {
			t.Fatalf("expected L2 value, got %q (%v)", val, err)
		}
		if val, _ := local.Get(ctx, sessionID, "remote-only"); string(val) != "r" {
			t.Error("expected L1 to be populated after L2 hit")
		}
	})

	t.Run("ListsLiveInL2", func(t *testing.T) {
		_, _ = cache.Append(ctx, sessionID, "history", []byte("a"), 10, time.Hour)
		_, _ = cache.Append(ctx, sessionID, "history", []byte("b"), 10, time.Hour)

		if items, _ := local.Range(ctx, sessionID, "history"); items != nil {
			t.Error("expected lists to bypass L1")
		}
		items, _ := cache.Range(ctx, sessionID, "history")
		if len(items) != 2 {
			t.Errorf("expected 2 items from L2, got %d", len(items))
		}
	})

	t.Run("DeleteBothLevels", func(t *testing.T) {
		_ = cache.Delete(ctx, sessionID, "k")

		if val, _ := cache.Get(ctx, sessionID, "k"); val != nil {
			t.Error("expected value deleted from both levels")
		}
	})
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("DARY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DARY_TEST_REDIS_ADDR not set")
	}

	cache, err := NewRedisCache(addr, "", 0)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	sessionID := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer cache.Delete(ctx, sessionID, "history")

	for i := 1; i <= 4; i++ {
		if _, err := cache.Append(ctx, sessionID, "history", []byte(fmt.Sprintf("%d", i)), 3, time.Minute); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	items, err := cache.Range(ctx, sessionID, "history")
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(items) != 3 || string(items[0]) != "2" {
		t.Errorf("expected newest 3 items starting at 2, got %q", items)
	}
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
