package catalog

import (
	"fmt"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: time.Minute, MaxItems: 100})

	cache.Set("key1", "value1")

	val, ok := cache.Get("key1")
	if !ok {
		t.Fatal("expected key1 to exist")
	}
	if val != "value1" {
		t.Errorf("expected value1, got %v", val)
	}
}

func TestCache_GetMissing(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: time.Minute, MaxItems: 100})

	if _, ok := cache.Get("nonexistent"); ok {
		t.Error("expected key to not exist")
	}
}

func TestCache_Expiration(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: 50 * time.Millisecond, MaxItems: 100})

	cache.Set("key1", "value1")

	if _, ok := cache.Get("key1"); !ok {
		t.Error("expected key1 to exist immediately")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("key1"); ok {
		t.Error("expected key1 to be expired")
	}
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: time.Minute, MaxItems: 10})

	for i := 0; i < 20; i++ {
		cache.Set(fmt.Sprintf("key%d", i), i)
	}

	if cache.Len() > 10 {
		t.Errorf("cache grew past max: %d items", cache.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: time.Minute, MaxItems: 100})

	cache.Set("key1", "value1")
	cache.Delete("key1")

	if _, ok := cache.Get("key1"); ok {
		t.Error("expected key1 to be deleted")
	}
}
