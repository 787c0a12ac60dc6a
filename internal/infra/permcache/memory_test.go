package permcache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPutGet(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "e1", "v1", "vehicle.view"); ok {
		t.Fatal("empty cache reported a hit")
	}

	if err := c.Put(ctx, "e1", "v1", "vehicle.view", true, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	allowed, ok, err := c.Get(ctx, "e1", "v1", "vehicle.view")
	if err != nil || !ok || !allowed {
		t.Fatalf("get = (%v, %v, %v), want allowed hit", allowed, ok, err)
	}

	// Denials are cached too.
	if err := c.Put(ctx, "e1", "v1", "vehicle.delete", false, time.Minute); err != nil {
		t.Fatalf("put denial: %v", err)
	}
	allowed, ok, _ = c.Get(ctx, "e1", "v1", "vehicle.delete")
	if !ok || allowed {
		t.Fatalf("denial get = (%v, %v), want cached denial", allowed, ok)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	if err := c.Put(ctx, "e1", "v1", "vehicle.view", true, time.Nanosecond); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, ok, _ := c.Get(ctx, "e1", "v1", "vehicle.view"); ok {
		t.Fatal("expired entry reported a hit")
	}

	// Zero TTL stores nothing.
	if err := c.Put(ctx, "e1", "v1", "vehicle.edit", true, 0); err != nil {
		t.Fatalf("put zero ttl: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "e1", "v1", "vehicle.edit"); ok {
		t.Fatal("zero-ttl entry reported a hit")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	c.Put(ctx, "e1", "v1", "vehicle.view", true, time.Minute)
	c.Put(ctx, "e1", "v1", "vehicle.edit", true, time.Minute)
	c.Put(ctx, "e1", "v2", "vehicle.view", true, time.Minute)

	if err := c.Invalidate(ctx, "e1", "v1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "e1", "v1", "vehicle.view"); ok {
		t.Fatal("invalidated entry survived")
	}
	if _, ok, _ := c.Get(ctx, "e1", "v1", "vehicle.edit"); ok {
		t.Fatal("invalidated entry survived")
	}
	if _, ok, _ := c.Get(ctx, "e1", "v2", "vehicle.view"); !ok {
		t.Fatal("other vehicle's entry was dropped")
	}
}
