package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// In-memory repositories backing the service tests. They honor the same
// contracts the postgres implementations do, including the conditional write
// on link transitions.

type fakeEntityRepo struct {
	entities map[string]domain.Entity
	types    map[domain.EntityTypeCode]domain.EntityType
	names    []domain.EntityName
	contacts []domain.EntityContact
}

func newFakeEntityRepo() *fakeEntityRepo {
	return &fakeEntityRepo{
		entities: map[string]domain.Entity{},
		types: map[domain.EntityTypeCode]domain.EntityType{
			domain.EntityPerson:  {ID: uuid.NewString(), Code: domain.EntityPerson, RequiresLegalID: true, LegalIDFormat: domain.LegalIDCPF},
			domain.EntityCompany: {ID: uuid.NewString(), Code: domain.EntityCompany, RequiresLegalID: true, LegalIDFormat: domain.LegalIDCNPJ},
			domain.EntityDevice:  {ID: uuid.NewString(), Code: domain.EntityDevice},
		},
	}
}

func (r *fakeEntityRepo) Create(_ context.Context, entity domain.Entity, names []domain.EntityName, contacts []domain.EntityContact) (domain.Entity, error) {
	r.entities[entity.ID] = entity
	r.names = append(r.names, names...)
	r.contacts = append(r.contacts, contacts...)
	return entity, nil
}

func (r *fakeEntityRepo) Get(_ context.Context, entityID string) (domain.Entity, error) {
	entity, ok := r.entities[entityID]
	if !ok {
		return domain.Entity{}, fmt.Errorf("%w: entity %s", domain.ErrNotFound, entityID)
	}
	return entity, nil
}

func (r *fakeEntityRepo) List(_ context.Context, offset, limit int) ([]domain.Entity, error) {
	ids := make([]string, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []domain.Entity
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, r.entities[id])
	}
	return out, nil
}

func (r *fakeEntityRepo) Update(_ context.Context, entity domain.Entity) (domain.Entity, error) {
	if _, ok := r.entities[entity.ID]; !ok {
		return domain.Entity{}, fmt.Errorf("%w: entity %s", domain.ErrNotFound, entity.ID)
	}
	r.entities[entity.ID] = entity
	return entity, nil
}

func (r *fakeEntityRepo) GetType(_ context.Context, code domain.EntityTypeCode) (domain.EntityType, error) {
	t, ok := r.types[code]
	if !ok {
		return domain.EntityType{}, fmt.Errorf("%w: entity type %s", domain.ErrNotFound, code)
	}
	return t, nil
}

func (r *fakeEntityRepo) ReplaceCurrentName(_ context.Context, next domain.EntityName) (domain.EntityName, error) {
	for i := range r.names {
		if r.names[i].EntityID == next.EntityID && r.names[i].NameType == next.NameType && r.names[i].Current {
			r.names[i].Current = false
			end := next.StartDate
			r.names[i].EndDate = &end
		}
	}
	r.names = append(r.names, next)
	return next, nil
}

func (r *fakeEntityRepo) ReplaceCurrentContact(_ context.Context, next domain.EntityContact) (domain.EntityContact, error) {
	for i := range r.contacts {
		if r.contacts[i].EntityID == next.EntityID && r.contacts[i].ContactType == next.ContactType && r.contacts[i].Current {
			r.contacts[i].Current = false
			end := next.StartDate
			r.contacts[i].EndDate = &end
		}
	}
	r.contacts = append(r.contacts, next)
	return next, nil
}

func (r *fakeEntityRepo) CurrentName(_ context.Context, entityID, nameType string) (domain.EntityName, error) {
	for _, n := range r.names {
		if n.EntityID == entityID && n.NameType == nameType && n.Current {
			return n, nil
		}
	}
	return domain.EntityName{}, fmt.Errorf("%w: no current %s name", domain.ErrNotFound, nameType)
}

func (r *fakeEntityRepo) CurrentContact(_ context.Context, entityID, contactType string) (domain.EntityContact, error) {
	for _, c := range r.contacts {
		if c.EntityID == entityID && c.ContactType == contactType && c.Current {
			return c, nil
		}
	}
	return domain.EntityContact{}, fmt.Errorf("%w: no current %s contact", domain.ErrNotFound, contactType)
}

func (r *fakeEntityRepo) ListNames(_ context.Context, entityID string) ([]domain.EntityName, error) {
	var out []domain.EntityName
	for _, n := range r.names {
		if n.EntityID == entityID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeEntityRepo) ListContacts(_ context.Context, entityID string) ([]domain.EntityContact, error) {
	var out []domain.EntityContact
	for _, c := range r.contacts {
		if c.EntityID == entityID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeVehicleRepo struct {
	vehicles map[string]domain.Vehicle
}

func newFakeVehicleRepo() *fakeVehicleRepo {
	return &fakeVehicleRepo{vehicles: map[string]domain.Vehicle{}}
}

func (r *fakeVehicleRepo) Create(_ context.Context, vehicle domain.Vehicle) (domain.Vehicle, error) {
	r.vehicles[vehicle.ID] = vehicle
	return vehicle, nil
}

func (r *fakeVehicleRepo) Get(_ context.Context, vehicleID string) (domain.Vehicle, error) {
	vehicle, ok := r.vehicles[vehicleID]
	if !ok {
		return domain.Vehicle{}, fmt.Errorf("%w: vehicle %s", domain.ErrNotFound, vehicleID)
	}
	return vehicle, nil
}

type fakeLinkRepo struct {
	links     map[string]domain.Link
	history   []domain.LinkStatusChange
	linkTypes map[domain.LinkTypeCode]domain.LinkType
	events    []domain.VehicleEvent

	// conflictOnce makes the next Transition fail as if raced.
	conflictOnce bool
}

func newFakeLinkRepo() *fakeLinkRepo {
	r := &fakeLinkRepo{links: map[string]domain.Link{}, linkTypes: map[domain.LinkTypeCode]domain.LinkType{}}
	for _, code := range []domain.LinkTypeCode{
		domain.LinkOwner, domain.LinkCoOwner, domain.LinkRenter,
		domain.LinkAuthorizedDriver, domain.LinkManager, domain.LinkMechanic,
	} {
		r.linkTypes[code] = domain.LinkType{ID: uuid.NewString(), Code: code, Active: true}
	}
	return r
}

func (r *fakeLinkRepo) Create(_ context.Context, link domain.Link, change domain.LinkStatusChange, event *domain.VehicleEvent) (domain.Link, error) {
	r.links[link.ID] = link
	r.history = append(r.history, change)
	if event != nil {
		r.events = append(r.events, *event)
	}
	return link, nil
}

func (r *fakeLinkRepo) Get(_ context.Context, linkID string) (domain.Link, error) {
	link, ok := r.links[linkID]
	if !ok {
		return domain.Link{}, fmt.Errorf("%w: link %s", domain.ErrNotFound, linkID)
	}
	return link, nil
}

func (r *fakeLinkRepo) Transition(_ context.Context, linkID string, from, to domain.LinkStatus, update LinkUpdate, change domain.LinkStatusChange, event *domain.VehicleEvent) (domain.Link, error) {
	link, ok := r.links[linkID]
	if !ok {
		return domain.Link{}, fmt.Errorf("%w: link %s", domain.ErrNotFound, linkID)
	}
	if r.conflictOnce {
		r.conflictOnce = false
		return domain.Link{}, fmt.Errorf("%w: link %s changed concurrently", domain.ErrConflict, linkID)
	}
	if link.Status != from {
		return domain.Link{}, fmt.Errorf("%w: link %s changed concurrently", domain.ErrConflict, linkID)
	}
	link.Status = to
	if update.EndDate != nil {
		link.EndDate = update.EndDate
	}
	if update.ValidatedAt != nil {
		link.ValidatedAt = update.ValidatedAt
	}
	if update.ValidatedBy != "" {
		link.ValidatedBy = update.ValidatedBy
	}
	if update.Observations != "" {
		link.Observations = update.Observations
	}
	r.links[linkID] = link
	r.history = append(r.history, change)
	if event != nil {
		r.events = append(r.events, *event)
	}
	return link, nil
}

func (r *fakeLinkRepo) SetEndDate(_ context.Context, linkID string, status domain.LinkStatus, endDate time.Time, event *domain.VehicleEvent) (domain.Link, error) {
	link, ok := r.links[linkID]
	if !ok {
		return domain.Link{}, fmt.Errorf("%w: link %s", domain.ErrNotFound, linkID)
	}
	if link.Status != status {
		return domain.Link{}, fmt.Errorf("%w: link %s changed concurrently", domain.ErrConflict, linkID)
	}
	link.EndDate = &endDate
	r.links[linkID] = link
	if event != nil {
		r.events = append(r.events, *event)
	}
	return link, nil
}

func (r *fakeLinkRepo) ListByVehicle(_ context.Context, vehicleID string, filter LinkFilter) ([]domain.Link, error) {
	var out []domain.Link
	for _, link := range r.links {
		if link.VehicleID == vehicleID && matchLink(link, filter) {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLinkRepo) ListByEntity(_ context.Context, entityID string, filter LinkFilter) ([]domain.Link, error) {
	var out []domain.Link
	for _, link := range r.links {
		if link.EntityID == entityID && matchLink(link, filter) {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchLink(link domain.Link, filter LinkFilter) bool {
	if filter.Status != "" && link.Status != filter.Status {
		return false
	}
	if filter.TypeCode != "" && link.LinkTypeCode != filter.TypeCode {
		return false
	}
	if filter.ActiveOn != nil && !link.CurrentlyValid(*filter.ActiveOn) {
		return false
	}
	return true
}

func (r *fakeLinkRepo) CountActiveByVehicle(_ context.Context, vehicleID string) (int64, error) {
	var n int64
	for _, link := range r.links {
		if link.VehicleID == vehicleID && link.Status == domain.LinkActive {
			n++
		}
	}
	return n, nil
}

func (r *fakeLinkRepo) Owners(_ context.Context, vehicleID string, today time.Time) ([]domain.Link, error) {
	var out []domain.Link
	for _, link := range r.links {
		if link.VehicleID == vehicleID && link.LinkTypeCode.Ownership() && link.CurrentlyValid(today) {
			out = append(out, link)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) ActiveOwnerExists(_ context.Context, vehicleID, excludeLinkID string) (bool, error) {
	for _, link := range r.links {
		if link.VehicleID == vehicleID && link.LinkTypeCode == domain.LinkOwner &&
			link.Status == domain.LinkActive && link.ID != excludeLinkID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLinkRepo) ActiveTypeCodes(_ context.Context, entityID, vehicleID string, today time.Time) ([]domain.LinkTypeCode, error) {
	var out []domain.LinkTypeCode
	for _, link := range r.links {
		if link.EntityID == entityID && link.VehicleID == vehicleID && link.CurrentlyValid(today) {
			out = append(out, link.LinkTypeCode)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) ListHistory(_ context.Context, linkID string) ([]domain.LinkStatusChange, error) {
	var out []domain.LinkStatusChange
	for _, change := range r.history {
		if change.LinkID == linkID {
			out = append(out, change)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) GetLinkType(_ context.Context, code domain.LinkTypeCode) (domain.LinkType, error) {
	t, ok := r.linkTypes[code]
	if !ok {
		return domain.LinkType{}, fmt.Errorf("%w: link type %s", domain.ErrNotFound, code)
	}
	return t, nil
}

// fakePermissionRepo resolves permissions from the fake link repo using the
// seeded catalog mapping instead of the SQL join.
type fakePermissionRepo struct {
	links *fakeLinkRepo
}

var catalogGrants = map[domain.LinkTypeCode][]string{
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

func (r *fakePermissionRepo) HasPermission(_ context.Context, entityID, vehicleID, code string, today time.Time) (bool, error) {
	for _, link := range r.links.links {
		if link.EntityID != entityID || link.VehicleID != vehicleID || !link.CurrentlyValid(today) {
			continue
		}
		for _, granted := range catalogGrants[link.LinkTypeCode] {
			if granted == code {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakePermissionRepo) ListCatalog(_ context.Context) ([]domain.Permission, error) {
	return []domain.Permission{
		{Code: domain.PermVehicleView, Active: true},
		{Code: domain.PermVehicleEdit, Active: true},
		{Code: domain.PermVehicleDelete, Active: true},
		{Code: domain.PermVehicleGrantAccess, Active: true},
		{Code: domain.PermVehicleViewHistory, Active: true},
		{Code: domain.PermVehicleManageDocuments, Active: true},
	}, nil
}

type fakeEventRepo struct {
	events []domain.VehicleEvent
}

func sourceKey(table, recordID string) string {
	return table + "|" + recordID
}

// Insert mirrors the storage engine's unique index, which carries the
// partition key: only an exact (source table, source record, timestamp) match
// is rejected here. The pair-level idempotency contract lives in the service.
func (r *fakeEventRepo) Insert(_ context.Context, event domain.VehicleEvent) (bool, error) {
	for _, e := range r.events {
		if e.SourceTable == event.SourceTable && e.SourceRecordID == event.SourceRecordID && e.Timestamp.Equal(event.Timestamp) {
			return false, nil
		}
	}
	r.events = append(r.events, event)
	return true, nil
}

func (r *fakeEventRepo) FindBySource(_ context.Context, sourceTable, sourceRecordID string) (domain.VehicleEvent, error) {
	for _, e := range r.events {
		if e.SourceTable == sourceTable && e.SourceRecordID == sourceRecordID {
			return e, nil
		}
	}
	return domain.VehicleEvent{}, fmt.Errorf("%w: event for %s", domain.ErrNotFound, sourceKey(sourceTable, sourceRecordID))
}

func (r *fakeEventRepo) Timeline(_ context.Context, vehicleID string, filter TimelineFilter, visibilities []domain.EventVisibility) ([]domain.VehicleEvent, string, error) {
	visible := map[domain.EventVisibility]bool{}
	for _, v := range visibilities {
		visible[v] = true
	}
	var out []domain.VehicleEvent
	for _, e := range r.events {
		if e.VehicleID != vehicleID || !visible[e.Visibility] {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, "", nil
}

type fakeCache struct {
	values      map[string]bool
	gets, puts  int
	invalidates int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]bool{}}
}

func cacheKey(entityID, vehicleID, code string) string {
	return entityID + "|" + vehicleID + "|" + code
}

func (c *fakeCache) Get(_ context.Context, entityID, vehicleID, code string) (bool, bool, error) {
	c.gets++
	allowed, ok := c.values[cacheKey(entityID, vehicleID, code)]
	return allowed, ok, nil
}

func (c *fakeCache) Put(_ context.Context, entityID, vehicleID, code string, allowed bool, _ time.Duration) error {
	c.puts++
	c.values[cacheKey(entityID, vehicleID, code)] = allowed
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, entityID, vehicleID string) error {
	c.invalidates++
	prefix := entityID + "|" + vehicleID + "|"
	for k := range c.values {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.values, k)
		}
	}
	return nil
}

// fixture wires the services over the fakes at a fixed clock.
type fixture struct {
	entities *fakeEntityRepo
	vehicles *fakeVehicleRepo
	links    *fakeLinkRepo
	events   *fakeEventRepo
	cache    *fakeCache

	entitySvc *EntityService
	linkSvc   *LinkService
	permSvc   *PermissionService
	eventSvc  *EventService
	projector *Projector

	now time.Time
}

func newFixture() *fixture {
	f := &fixture{
		entities: newFakeEntityRepo(),
		vehicles: newFakeVehicleRepo(),
		links:    newFakeLinkRepo(),
		events:   &fakeEventRepo{},
		cache:    newFakeCache(),
		now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.permSvc = NewPermissionService(&fakePermissionRepo{links: f.links}, f.cache, time.Minute)
	f.permSvc.Clock = clock

	f.entitySvc = NewEntityService(f.entities)
	f.entitySvc.Clock = clock

	f.eventSvc = NewEventService(f.events, f.links)
	f.eventSvc.Clock = clock

	f.linkSvc = NewLinkService(f.links, f.entities, f.vehicles, f.permSvc)
	f.linkSvc.Clock = clock

	f.projector = NewProjector(f.eventSvc)
	return f
}

func (f *fixture) addVehicle() domain.Vehicle {
	vehicle := domain.Vehicle{ID: uuid.NewString(), CreatedAt: f.now}
	f.vehicles.vehicles[vehicle.ID] = vehicle
	return vehicle
}

func (f *fixture) addEntity() domain.Entity {
	entity := domain.Entity{ID: uuid.NewString(), Code: newCode("ENT"), TypeCode: domain.EntityPerson, Active: true, Verified: true}
	f.entities.entities[entity.ID] = entity
	return entity
}

// addLink installs an existing link directly, bypassing the service paths.
func (f *fixture) addLink(entityID, vehicleID string, typeCode domain.LinkTypeCode, status domain.LinkStatus) domain.Link {
	link := domain.Link{
		ID:           uuid.NewString(),
		Code:         newCode("LNK"),
		EntityID:     entityID,
		VehicleID:    vehicleID,
		LinkTypeID:   f.links.linkTypes[typeCode].ID,
		LinkTypeCode: typeCode,
		Status:       status,
		StartDate:    f.now.Add(-24 * time.Hour),
		CreatedAt:    f.now.Add(-24 * time.Hour),
	}
	f.links.links[link.ID] = link
	return link
}
