package permcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

// Memory is a process-local permission cache for single-instance deployments
// and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	allowed   bool
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func key(entityID, vehicleID, code string) string {
	return entityID + "|" + vehicleID + "|" + code
}

func (c *Memory) Get(_ context.Context, entityID, vehicleID, code string) (bool, bool, error) {
	if c == nil {
		return false, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key(entityID, vehicleID, code)]
	if !ok {
		return false, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key(entityID, vehicleID, code))
		return false, false, nil
	}
	return entry.allowed, true, nil
}

func (c *Memory) Put(_ context.Context, entityID, vehicleID, code string, allowed bool, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(entityID, vehicleID, code)] = memoryEntry{
		allowed:   allowed,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Invalidate drops every cached code for the entity/vehicle pair.
func (c *Memory) Invalidate(_ context.Context, entityID, vehicleID string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := entityID + "|" + vehicleID + "|"
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

var _ usecase.PermissionCache = (*Memory)(nil)
