package usecase

import (
	"context"
	"log"
	"time"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// Cached verdicts stay short-lived so a revocation is observed quickly even
// when invalidation is missed.
const (
	defaultPermissionTTL = 30 * time.Second
	maxPermissionTTL     = 5 * time.Minute
)

// PermissionService answers "may this entity do this to this vehicle" from
// the link/permission catalog, with an optional read-through cache in front
// of the database join.
type PermissionService struct {
	Permissions PermissionRepository
	Cache       PermissionCache
	CacheTTL    time.Duration
	Clock       func() time.Time
}

func NewPermissionService(permissions PermissionRepository, cache PermissionCache, ttl time.Duration) *PermissionService {
	return &PermissionService{
		Permissions: permissions,
		Cache:       cache,
		CacheTTL:    ttl,
		Clock:       time.Now,
	}
}

func (s *PermissionService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *PermissionService) ttl() time.Duration {
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = defaultPermissionTTL
	}
	if ttl > maxPermissionTTL {
		ttl = maxPermissionTTL
	}
	return ttl
}

// HasPermission reports whether the entity holds a currently valid link on the
// vehicle whose type grants the permission code. Cache failures fall back to
// the database rather than denying.
func (s *PermissionService) HasPermission(ctx context.Context, entityID, vehicleID, code string) (bool, error) {
	if entityID == "" || vehicleID == "" || code == "" {
		return false, nil
	}
	if s.Cache != nil {
		allowed, ok, err := s.Cache.Get(ctx, entityID, vehicleID, code)
		if err != nil {
			log.Printf("permission cache get: %v", err)
		} else if ok {
			return allowed, nil
		}
	}
	allowed, err := s.Permissions.HasPermission(ctx, entityID, vehicleID, code, s.now())
	if err != nil {
		return false, err
	}
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, entityID, vehicleID, code, allowed, s.ttl()); err != nil {
			log.Printf("permission cache put: %v", err)
		}
	}
	return allowed, nil
}

// Invalidate drops all cached verdicts for the entity/vehicle pair. Called
// after every link mutation touching that pair.
func (s *PermissionService) Invalidate(ctx context.Context, entityID, vehicleID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, entityID, vehicleID); err != nil {
		log.Printf("permission cache invalidate: %v", err)
	}
}

func (s *PermissionService) Catalog(ctx context.Context) ([]domain.Permission, error) {
	return s.Permissions.ListCatalog(ctx)
}
