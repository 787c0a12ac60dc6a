package usecase

import (
	"context"
	"time"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

type EntityRepository interface {
	Create(ctx context.Context, entity domain.Entity, names []domain.EntityName, contacts []domain.EntityContact) (domain.Entity, error)
	Get(ctx context.Context, entityID string) (domain.Entity, error)
	List(ctx context.Context, offset, limit int) ([]domain.Entity, error)
	Update(ctx context.Context, entity domain.Entity) (domain.Entity, error)
	GetType(ctx context.Context, code domain.EntityTypeCode) (domain.EntityType, error)

	// ReplaceCurrentName closes the current row for (entity, name type) and
	// inserts next as the new current row, atomically.
	ReplaceCurrentName(ctx context.Context, next domain.EntityName) (domain.EntityName, error)
	ReplaceCurrentContact(ctx context.Context, next domain.EntityContact) (domain.EntityContact, error)
	CurrentName(ctx context.Context, entityID, nameType string) (domain.EntityName, error)
	CurrentContact(ctx context.Context, entityID, contactType string) (domain.EntityContact, error)
	ListNames(ctx context.Context, entityID string) ([]domain.EntityName, error)
	ListContacts(ctx context.Context, entityID string) ([]domain.EntityContact, error)
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, error)
	Get(ctx context.Context, vehicleID string) (domain.Vehicle, error)
}

// LinkUpdate carries the optional column changes applied together with a
// status transition.
type LinkUpdate struct {
	EndDate      *time.Time
	ValidatedAt  *time.Time
	ValidatedBy  string
	Observations string
}

type LinkFilter struct {
	Status    domain.LinkStatus
	TypeCode  domain.LinkTypeCode
	ActiveOn  *time.Time
	VehicleID string
	EntityID  string
}

type LinkRepository interface {
	// Create persists the link, its first status-history row and the derived
	// vehicle event in one transaction.
	Create(ctx context.Context, link domain.Link, change domain.LinkStatusChange, event *domain.VehicleEvent) (domain.Link, error)
	Get(ctx context.Context, linkID string) (domain.Link, error)

	// Transition performs a conditional status update (only when the stored
	// status still equals from), appends the history row and the derived event
	// in one transaction. A raced update returns domain.ErrConflict.
	Transition(ctx context.Context, linkID string, from, to domain.LinkStatus, update LinkUpdate, change domain.LinkStatusChange, event *domain.VehicleEvent) (domain.Link, error)

	// SetEndDate writes an end date on a link whose status stays put, plus the
	// derived event, conditionally on the stored status still equaling status.
	SetEndDate(ctx context.Context, linkID string, status domain.LinkStatus, endDate time.Time, event *domain.VehicleEvent) (domain.Link, error)

	ListByVehicle(ctx context.Context, vehicleID string, filter LinkFilter) ([]domain.Link, error)
	ListByEntity(ctx context.Context, entityID string, filter LinkFilter) ([]domain.Link, error)
	CountActiveByVehicle(ctx context.Context, vehicleID string) (int64, error)
	Owners(ctx context.Context, vehicleID string, today time.Time) ([]domain.Link, error)
	ActiveOwnerExists(ctx context.Context, vehicleID, excludeLinkID string) (bool, error)
	// ActiveTypeCodes returns the link-type codes of the entity's currently
	// valid links on the vehicle.
	ActiveTypeCodes(ctx context.Context, entityID, vehicleID string, today time.Time) ([]domain.LinkTypeCode, error)
	ListHistory(ctx context.Context, linkID string) ([]domain.LinkStatusChange, error)

	GetLinkType(ctx context.Context, code domain.LinkTypeCode) (domain.LinkType, error)
}

type PermissionRepository interface {
	// HasPermission evaluates the catalog join: a currently valid active link
	// whose type grants an active permission with the given code.
	HasPermission(ctx context.Context, entityID, vehicleID, code string, today time.Time) (bool, error)
	ListCatalog(ctx context.Context) ([]domain.Permission, error)
}

type PermissionCache interface {
	Get(ctx context.Context, entityID, vehicleID, code string) (allowed, ok bool, err error)
	Put(ctx context.Context, entityID, vehicleID, code string, allowed bool, ttl time.Duration) error
	Invalidate(ctx context.Context, entityID, vehicleID string) error
}

type TimelineFilter struct {
	Category domain.EventCategory
	Type     string
	Severity domain.EventSeverity
	Tag      string
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Cursor   string
}

type EventRepository interface {
	// Insert appends the event unless one already exists for its
	// (source table, source record) pair; the bool reports whether a row was
	// created.
	Insert(ctx context.Context, event domain.VehicleEvent) (bool, error)
	FindBySource(ctx context.Context, sourceTable, sourceRecordID string) (domain.VehicleEvent, error)
	// Timeline returns events newest-first with keyset pagination, restricted
	// to the given visibility levels.
	Timeline(ctx context.Context, vehicleID string, filter TimelineFilter, visibilities []domain.EventVisibility) ([]domain.VehicleEvent, string, error)
}

type PartitionAdmin interface {
	EnsurePartition(ctx context.Context, year, quarter int) error
	DropPartition(ctx context.Context, year, quarter int) error
	ListPartitions(ctx context.Context) ([]string, error)
}
