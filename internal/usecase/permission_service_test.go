package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

func TestHasPermissionByLinkType(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vehicle := f.addVehicle()

	tests := []struct {
		typeCode domain.LinkTypeCode
		code     string
		want     bool
	}{
		{domain.LinkOwner, domain.PermVehicleDelete, true},
		{domain.LinkOwner, domain.PermVehicleGrantAccess, true},
		{domain.LinkCoOwner, domain.PermVehicleEdit, true},
		{domain.LinkCoOwner, domain.PermVehicleDelete, false},
		{domain.LinkManager, domain.PermVehicleGrantAccess, true},
		{domain.LinkManager, domain.PermVehicleDelete, false},
		{domain.LinkAuthorizedDriver, domain.PermVehicleView, true},
		{domain.LinkAuthorizedDriver, domain.PermVehicleEdit, false},
		{domain.LinkRenter, domain.PermVehicleViewHistory, true},
		{domain.LinkMechanic, domain.PermVehicleView, true},
		{domain.LinkMechanic, domain.PermVehicleManageDocuments, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typeCode)+"/"+tt.code, func(t *testing.T) {
			entity := f.addEntity()
			f.addLink(entity.ID, vehicle.ID, tt.typeCode, domain.LinkActive)
			got, err := f.permSvc.HasPermission(ctx, entity.ID, vehicle.ID, tt.code)
			if err != nil {
				t.Fatalf("has permission: %v", err)
			}
			if got != tt.want {
				t.Fatalf("HasPermission(%s, %s) = %v, want %v", tt.typeCode, tt.code, got, tt.want)
			}
		})
	}
}

func TestHasPermissionNoLink(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	entity := f.addEntity()
	vehicle := f.addVehicle()

	got, err := f.permSvc.HasPermission(ctx, entity.ID, vehicle.ID, domain.PermVehicleView)
	if err != nil {
		t.Fatalf("has permission: %v", err)
	}
	if got {
		t.Fatal("unlinked entity granted vehicle.view")
	}

	got, err = f.permSvc.HasPermission(ctx, "", vehicle.ID, domain.PermVehicleView)
	if err != nil || got {
		t.Fatalf("blank entity: got = %v, err = %v", got, err)
	}
}

func TestHasPermissionCaching(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	entity := f.addEntity()
	vehicle := f.addVehicle()
	f.addLink(entity.ID, vehicle.ID, domain.LinkOwner, domain.LinkActive)

	for i := 0; i < 3; i++ {
		ok, err := f.permSvc.HasPermission(ctx, entity.ID, vehicle.ID, domain.PermVehicleView)
		if err != nil || !ok {
			t.Fatalf("call %d: ok = %v, err = %v", i, ok, err)
		}
	}
	if f.cache.puts != 1 {
		t.Fatalf("cache puts = %d, want 1 (later calls served from cache)", f.cache.puts)
	}

	f.permSvc.Invalidate(ctx, entity.ID, vehicle.ID)
	if _, err := f.permSvc.HasPermission(ctx, entity.ID, vehicle.ID, domain.PermVehicleView); err != nil {
		t.Fatalf("post-invalidate: %v", err)
	}
	if f.cache.puts != 2 {
		t.Fatalf("cache puts = %d, want 2 after invalidation", f.cache.puts)
	}
}

func TestHasPermissionWithoutCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	entity := f.addEntity()
	vehicle := f.addVehicle()
	f.addLink(entity.ID, vehicle.ID, domain.LinkOwner, domain.LinkActive)

	svc := NewPermissionService(&fakePermissionRepo{links: f.links}, nil, 0)
	svc.Clock = func() time.Time { return f.now }

	ok, err := svc.HasPermission(ctx, entity.ID, vehicle.ID, domain.PermVehicleView)
	if err != nil {
		t.Fatalf("has permission: %v", err)
	}
	if !ok {
		t.Fatal("owner denied vehicle.view without cache")
	}
	// Invalidate with no cache configured must not panic.
	svc.Invalidate(ctx, entity.ID, vehicle.ID)
}

func TestCatalog(t *testing.T) {
	f := newFixture()
	perms, err := f.permSvc.Catalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(perms) != 6 {
		t.Fatalf("catalog size = %d, want 6", len(perms))
	}
}
