package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// Migrate creates the schema and seeds the reference catalogs. vehicle_events
// is range-partitioned by event_timestamp, which AutoMigrate cannot express,
// so it is created with raw DDL; the unique source index must include the
// partition key.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&EntityTypeModel{},
		&EntityModel{},
		&EntityNameModel{},
		&EntityContactModel{},
		&VehicleModel{},
		&LinkTypeModel{},
		&LinkModel{},
		&LinkStatusModel{},
		&PermissionModel{},
		&LinkTypePermissionModel{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := migrateEventLog(ctx, db); err != nil {
		return err
	}
	if err := seed(ctx, db); err != nil {
		return err
	}
	return nil
}

func migrateEventLog(ctx context.Context, db *gorm.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicle_events (
			id uuid NOT NULL,
			vehicle_id uuid NOT NULL,
			entity_id text,
			event_category text NOT NULL,
			event_type text NOT NULL,
			event_timestamp timestamptz NOT NULL,
			severity text,
			title text NOT NULL,
			description text,
			event_data jsonb,
			source_table text NOT NULL,
			source_record_id text NOT NULL,
			tags jsonb,
			visibility text NOT NULL DEFAULT 'owner_only',
			created_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (id, event_timestamp)
		) PARTITION BY RANGE (event_timestamp)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_vehicle_events_source
			ON vehicle_events (source_table, source_record_id, event_timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_events_vehicle_ts
			ON vehicle_events (vehicle_id, event_timestamp DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_events_category
			ON vehicle_events (vehicle_id, event_category)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_events_tags
			ON vehicle_events USING gin (tags)`,
	}
	for _, stmt := range stmts {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("event log ddl: %w", err)
		}
	}

	// Always keep the current and next quarter attached so inserts never hit
	// a missing partition at a quarter boundary.
	admin := NewPartitionAdmin(db)
	now := time.Now().UTC()
	year, quarter := QuarterOf(now)
	if err := admin.EnsurePartition(ctx, year, quarter); err != nil {
		return err
	}
	nextYear, nextQuarter := nextQuarter(year, quarter)
	return admin.EnsurePartition(ctx, nextYear, nextQuarter)
}

type seedPermission struct {
	code        string
	name        string
	description string
	category    string
}

var permissionCatalog = []seedPermission{
	{domain.PermVehicleView, "View vehicle", "Read vehicle profile data", "read"},
	{domain.PermVehicleEdit, "Edit vehicle", "Change vehicle profile data", "write"},
	{domain.PermVehicleDelete, "Delete vehicle", "Remove the vehicle", "write"},
	{domain.PermVehicleGrantAccess, "Grant access", "Create and manage links for other entities", "admin"},
	{domain.PermVehicleViewHistory, "View history", "Read the vehicle event timeline", "read"},
	{domain.PermVehicleManageDocuments, "Manage documents", "Upload and edit vehicle documents", "write"},
}

// linkTypeGrants is the seeded permission set per link type. Owners hold
// everything; co-owners and managers everything but deletion; drivers, renters
// and mechanics read-only access.
var linkTypeGrants = map[domain.LinkTypeCode][]string{
	domain.LinkOwner: {
		domain.PermVehicleView, domain.PermVehicleEdit, domain.PermVehicleDelete,
		domain.PermVehicleGrantAccess, domain.PermVehicleViewHistory, domain.PermVehicleManageDocuments,
	},
	domain.LinkCoOwner: {
		domain.PermVehicleView, domain.PermVehicleEdit,
		domain.PermVehicleGrantAccess, domain.PermVehicleViewHistory, domain.PermVehicleManageDocuments,
	},
	domain.LinkManager: {
		domain.PermVehicleView, domain.PermVehicleEdit,
		domain.PermVehicleGrantAccess, domain.PermVehicleViewHistory, domain.PermVehicleManageDocuments,
	},
	domain.LinkAuthorizedDriver: {domain.PermVehicleView, domain.PermVehicleViewHistory},
	domain.LinkRenter:           {domain.PermVehicleView, domain.PermVehicleViewHistory},
	domain.LinkMechanic:         {domain.PermVehicleView, domain.PermVehicleViewHistory},
}

func seed(ctx context.Context, db *gorm.DB) error {
	now := time.Now().UTC()

	entityTypes := []EntityTypeModel{
		{ID: uuid.NewString(), Code: string(domain.EntityPerson), Name: "Person", RequiresLegalID: true, LegalIDFormat: string(domain.LegalIDCPF), Active: true, CreatedAt: now},
		{ID: uuid.NewString(), Code: string(domain.EntityCompany), Name: "Company", RequiresLegalID: true, LegalIDFormat: string(domain.LegalIDCNPJ), Active: true, CreatedAt: now},
		{ID: uuid.NewString(), Code: string(domain.EntityDevice), Name: "Device", Active: true, CreatedAt: now},
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&entityTypes).Error; err != nil {
		return fmt.Errorf("seed entity types: %w", err)
	}

	linkTypes := []LinkTypeModel{
		{ID: uuid.NewString(), Code: string(domain.LinkOwner), Name: "Owner", Active: true, CreatedAt: now},
		{ID: uuid.NewString(), Code: string(domain.LinkCoOwner), Name: "Co-owner", Active: true, CreatedAt: now},
		{ID: uuid.NewString(), Code: string(domain.LinkRenter), Name: "Renter", Active: true, CreatedAt: now},
		{ID: uuid.NewString(), Code: string(domain.LinkAuthorizedDriver), Name: "Authorized driver", Active: true, CreatedAt: now},
		{ID: uuid.NewString(), Code: string(domain.LinkManager), Name: "Manager", Active: true, CreatedAt: now},
		{ID: uuid.NewString(), Code: string(domain.LinkMechanic), Name: "Mechanic", Active: true, CreatedAt: now},
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&linkTypes).Error; err != nil {
		return fmt.Errorf("seed link types: %w", err)
	}

	permissions := make([]PermissionModel, 0, len(permissionCatalog))
	for _, p := range permissionCatalog {
		permissions = append(permissions, PermissionModel{
			ID: uuid.NewString(), Code: p.code, Name: p.name,
			Description: p.description, Category: p.category, Active: true, CreatedAt: now,
		})
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&permissions).Error; err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}

	// Resolve ids after the conflict-tolerant inserts: rows may predate this
	// run with different ids than the ones generated above.
	linkTypeIDs := map[string]string{}
	var storedTypes []LinkTypeModel
	if err := db.WithContext(ctx).Find(&storedTypes).Error; err != nil {
		return err
	}
	for _, t := range storedTypes {
		linkTypeIDs[t.Code] = t.ID
	}
	permissionIDs := map[string]string{}
	var storedPerms []PermissionModel
	if err := db.WithContext(ctx).Find(&storedPerms).Error; err != nil {
		return err
	}
	for _, p := range storedPerms {
		permissionIDs[p.Code] = p.ID
	}

	var grants []LinkTypePermissionModel
	for typeCode, codes := range linkTypeGrants {
		typeID, ok := linkTypeIDs[string(typeCode)]
		if !ok {
			return fmt.Errorf("seed grants: link type %s missing", typeCode)
		}
		for _, code := range codes {
			permID, ok := permissionIDs[code]
			if !ok {
				return fmt.Errorf("seed grants: permission %s missing", code)
			}
			grants = append(grants, LinkTypePermissionModel{LinkTypeID: typeID, PermissionID: permID, CreatedAt: now})
		}
	}
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grants).Error; err != nil {
		return fmt.Errorf("seed link type permissions: %w", err)
	}
	return nil
}
