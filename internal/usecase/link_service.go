package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// Actor identifies who is performing an operation. Admin actors bypass the
// permission catalog, mirroring service-role access in the backoffice.
type Actor struct {
	EntityID string
	Admin    bool
}

// LinkService owns the entity/vehicle relationship lifecycle: creation through
// the grant, request and claim paths, the status machine, and the audit
// trail. Every status change lands in link_status and in the vehicle's
// timeline within the same transaction.
type LinkService struct {
	Links    LinkRepository
	Entities EntityRepository
	Vehicles VehicleRepository
	Perms    *PermissionService
	Clock    func() time.Time
}

func NewLinkService(links LinkRepository, entities EntityRepository, vehicles VehicleRepository, perms *PermissionService) *LinkService {
	return &LinkService{
		Links:    links,
		Entities: entities,
		Vehicles: vehicles,
		Perms:    perms,
		Clock:    time.Now,
	}
}

func (s *LinkService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

type GrantInput struct {
	EntityID     string
	VehicleID    string
	TypeCode     domain.LinkTypeCode
	StartDate    *time.Time
	EndDate      *time.Time
	Observations string
}

// Grant creates an immediately active link. The granter needs
// vehicle.grant_access, with one bootstrap exception: a vehicle with no active
// links yet accepts a self-grant of the owner type, so the first owner can
// exist at all.
func (s *LinkService) Grant(ctx context.Context, actor Actor, input GrantInput) (domain.Link, error) {
	now := s.now()

	entity, err := s.Entities.Get(ctx, input.EntityID)
	if err != nil {
		return domain.Link{}, err
	}
	if !entity.Active {
		return domain.Link{}, fmt.Errorf("%w: entity %s is deactivated", domain.ErrInvalidArgument, entity.ID)
	}
	if _, err := s.Vehicles.Get(ctx, input.VehicleID); err != nil {
		return domain.Link{}, err
	}
	linkType, err := s.Links.GetLinkType(ctx, input.TypeCode)
	if err != nil {
		return domain.Link{}, err
	}

	allowed, err := s.canManage(ctx, actor, input.VehicleID)
	if err != nil {
		return domain.Link{}, err
	}
	if !allowed {
		bootstrap, err := s.bootstrapGrant(ctx, actor, input)
		if err != nil {
			return domain.Link{}, err
		}
		if !bootstrap {
			return domain.Link{}, fmt.Errorf("%w: granting links requires %s", domain.ErrForbidden, domain.PermVehicleGrantAccess)
		}
	}

	if input.TypeCode == domain.LinkOwner {
		taken, err := s.Links.ActiveOwnerExists(ctx, input.VehicleID, "")
		if err != nil {
			return domain.Link{}, err
		}
		if taken {
			return domain.Link{}, fmt.Errorf("%w: vehicle already has an active owner", domain.ErrConflict)
		}
	}

	startDate := now
	if input.StartDate != nil {
		startDate = *input.StartDate
	}
	if input.EndDate != nil && input.EndDate.Before(startDate) {
		return domain.Link{}, fmt.Errorf("%w: end date before start date", domain.ErrInvalidArgument)
	}

	link := domain.Link{
		ID:           uuid.NewString(),
		Code:         newCode("LNK"),
		EntityID:     input.EntityID,
		VehicleID:    input.VehicleID,
		LinkTypeID:   linkType.ID,
		LinkTypeCode: linkType.Code,
		Status:       domain.LinkActive,
		StartDate:    startDate,
		EndDate:      input.EndDate,
		Observations: input.Observations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	change := domain.LinkStatusChange{
		ID:        uuid.NewString(),
		LinkID:    link.ID,
		To:        domain.LinkActive,
		ChangedBy: actor.EntityID,
		Reason:    "granted",
		CreatedAt: now,
	}
	created, err := s.Links.Create(ctx, link, change, linkCreatedEvent(link, now))
	if err != nil {
		return domain.Link{}, err
	}
	s.Perms.Invalidate(ctx, created.EntityID, created.VehicleID)
	return created, nil
}

type RequestInput struct {
	// EntityID is the entity being asked to accept the role. Empty means the
	// actor is requesting the role for themselves.
	EntityID     string
	VehicleID    string
	TypeCode     domain.LinkTypeCode
	Observations string
}

// Request opens a pending_request link. A self-request is decided by whoever
// holds grant access on the vehicle; a request opened for another entity
// needs grant access up front and is then decided by that entity.
func (s *LinkService) Request(ctx context.Context, actor Actor, input RequestInput) (domain.Link, error) {
	if actor.EntityID == "" && !actor.Admin {
		return domain.Link{}, fmt.Errorf("%w: requesting a link requires an identity", domain.ErrUnauthorized)
	}
	target := input.EntityID
	if target == "" {
		target = actor.EntityID
	}
	if target != actor.EntityID {
		allowed, err := s.canManage(ctx, actor, input.VehicleID)
		if err != nil {
			return domain.Link{}, err
		}
		if !allowed {
			return domain.Link{}, fmt.Errorf("%w: requesting a link for another entity requires %s", domain.ErrForbidden, domain.PermVehicleGrantAccess)
		}
	}
	return s.createPending(ctx, actor, target, input.VehicleID, input.TypeCode,
		domain.LinkPendingRequest, "", input.Observations, "requested")
}

type ClaimInput struct {
	VehicleID     string
	TypeCode      domain.LinkTypeCode
	DocumentProof string
	Observations  string
}

// Claim opens a pending_validation link backed by a document, to be validated
// by an administrator. Used when nobody with grant access exists to vouch for
// the claimant.
func (s *LinkService) Claim(ctx context.Context, actor Actor, input ClaimInput) (domain.Link, error) {
	if actor.EntityID == "" {
		return domain.Link{}, fmt.Errorf("%w: claiming a link requires an identity", domain.ErrUnauthorized)
	}
	if input.DocumentProof == "" {
		return domain.Link{}, fmt.Errorf("%w: document proof is required for claims", domain.ErrInvalidArgument)
	}
	return s.createPending(ctx, actor, actor.EntityID, input.VehicleID, input.TypeCode,
		domain.LinkPendingValidation, input.DocumentProof, input.Observations, "claimed")
}

func (s *LinkService) createPending(ctx context.Context, actor Actor, entityID, vehicleID string, typeCode domain.LinkTypeCode, status domain.LinkStatus, proof, observations, reason string) (domain.Link, error) {
	now := s.now()

	entity, err := s.Entities.Get(ctx, entityID)
	if err != nil {
		return domain.Link{}, err
	}
	if !entity.Active {
		return domain.Link{}, fmt.Errorf("%w: entity %s is deactivated", domain.ErrInvalidArgument, entity.ID)
	}
	if _, err := s.Vehicles.Get(ctx, vehicleID); err != nil {
		return domain.Link{}, err
	}
	linkType, err := s.Links.GetLinkType(ctx, typeCode)
	if err != nil {
		return domain.Link{}, err
	}

	link := domain.Link{
		ID:            uuid.NewString(),
		Code:          newCode("LNK"),
		EntityID:      entityID,
		VehicleID:     vehicleID,
		LinkTypeID:    linkType.ID,
		LinkTypeCode:  linkType.Code,
		Status:        status,
		DocumentProof: proof,
		RequestedBy:   actor.EntityID,
		StartDate:     now,
		Observations:  observations,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	change := domain.LinkStatusChange{
		ID:        uuid.NewString(),
		LinkID:    link.ID,
		To:        status,
		ChangedBy: actor.EntityID,
		Reason:    reason,
		CreatedAt: now,
	}
	return s.Links.Create(ctx, link, change, linkCreatedEvent(link, now))
}

// Approve activates a pending_request link. A request opened on the entity's
// behalf is theirs to accept; a self-request needs grant access on the
// vehicle. An owner-type approval also enforces single active ownership.
func (s *LinkService) Approve(ctx context.Context, actor Actor, linkID, reason string) (domain.Link, error) {
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if link.Status != domain.LinkPendingRequest {
		return domain.Link{}, fmt.Errorf("%w: only pending requests can be approved, link is %s", domain.ErrInvalidState, link.Status)
	}
	if err := s.requireRequestDecision(ctx, actor, link); err != nil {
		return domain.Link{}, err
	}
	if err := s.checkOwnerSlot(ctx, link); err != nil {
		return domain.Link{}, err
	}
	return s.transition(ctx, actor, link, domain.LinkActive, orDefault(reason, "approved"), LinkUpdate{})
}

// Reject closes a pending link without activating it.
func (s *LinkService) Reject(ctx context.Context, actor Actor, linkID, reason string) (domain.Link, error) {
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	switch link.Status {
	case domain.LinkPendingRequest:
		if err := s.requireRequestDecision(ctx, actor, link); err != nil {
			return domain.Link{}, err
		}
	case domain.LinkPendingValidation:
		if !actor.Admin {
			return domain.Link{}, fmt.Errorf("%w: claims are rejected by administrators", domain.ErrForbidden)
		}
	default:
		return domain.Link{}, fmt.Errorf("%w: only pending links can be rejected, link is %s", domain.ErrInvalidState, link.Status)
	}
	return s.transition(ctx, actor, link, domain.LinkRejected, orDefault(reason, "rejected"), LinkUpdate{})
}

// Validate activates a pending_validation link after its document proof has
// been checked. Administrator only; records who validated and when.
func (s *LinkService) Validate(ctx context.Context, actor Actor, linkID, reason string) (domain.Link, error) {
	if !actor.Admin {
		return domain.Link{}, fmt.Errorf("%w: claims are validated by administrators", domain.ErrForbidden)
	}
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if link.Status != domain.LinkPendingValidation {
		return domain.Link{}, fmt.Errorf("%w: only claims can be validated, link is %s", domain.ErrInvalidState, link.Status)
	}
	if err := s.checkOwnerSlot(ctx, link); err != nil {
		return domain.Link{}, err
	}
	now := s.now()
	return s.transition(ctx, actor, link, domain.LinkActive, orDefault(reason, "validated"), LinkUpdate{
		ValidatedAt: &now,
		ValidatedBy: actor.EntityID,
	})
}

// Terminate ends a link by agreement: allowed for the linked entity itself or
// for anyone with grant access. Sets the end date to today.
func (s *LinkService) Terminate(ctx context.Context, actor Actor, linkID, reason string) (domain.Link, error) {
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if actor.EntityID != link.EntityID {
		if err := s.requireManage(ctx, actor, link.VehicleID); err != nil {
			return domain.Link{}, err
		}
	}
	now := s.now()
	return s.transition(ctx, actor, link, domain.LinkTerminated, orDefault(reason, "terminated"), LinkUpdate{EndDate: &now})
}

// Revoke force-ends a link against the linked entity. Requires grant access on
// the vehicle and cannot be applied to one's own link; Terminate covers that.
func (s *LinkService) Revoke(ctx context.Context, actor Actor, linkID, reason string) (domain.Link, error) {
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if actor.EntityID == link.EntityID && !actor.Admin {
		return domain.Link{}, fmt.Errorf("%w: own links are terminated, not revoked", domain.ErrInvalidArgument)
	}
	if err := s.requireManage(ctx, actor, link.VehicleID); err != nil {
		return domain.Link{}, err
	}
	now := s.now()
	return s.transition(ctx, actor, link, domain.LinkRevoked, orDefault(reason, "revoked"), LinkUpdate{EndDate: &now})
}

// Suspend pauses an active link; its permissions stop resolving until
// reactivation.
func (s *LinkService) Suspend(ctx context.Context, actor Actor, linkID, reason string) (domain.Link, error) {
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if err := s.requireManage(ctx, actor, link.VehicleID); err != nil {
		return domain.Link{}, err
	}
	return s.transition(ctx, actor, link, domain.LinkSuspended, orDefault(reason, "suspended"), LinkUpdate{})
}

// Reactivate resumes a suspended link.
func (s *LinkService) Reactivate(ctx context.Context, actor Actor, linkID, reason string) (domain.Link, error) {
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if err := s.requireManage(ctx, actor, link.VehicleID); err != nil {
		return domain.Link{}, err
	}
	if err := s.checkOwnerSlot(ctx, link); err != nil {
		return domain.Link{}, err
	}
	return s.transition(ctx, actor, link, domain.LinkActive, orDefault(reason, "reactivated"), LinkUpdate{})
}

// ScheduleEnd sets or moves the end date of an active link without changing
// its status. The link stops granting permissions once the date passes.
func (s *LinkService) ScheduleEnd(ctx context.Context, actor Actor, linkID string, endDate time.Time) (domain.Link, error) {
	link, err := s.Links.Get(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	if link.Status != domain.LinkActive {
		return domain.Link{}, fmt.Errorf("%w: only active links take an end date, link is %s", domain.ErrInvalidState, link.Status)
	}
	if actor.EntityID != link.EntityID {
		if err := s.requireManage(ctx, actor, link.VehicleID); err != nil {
			return domain.Link{}, err
		}
	}
	if endDate.Before(link.StartDate) {
		return domain.Link{}, fmt.Errorf("%w: end date before start date", domain.ErrInvalidArgument)
	}
	now := s.now()
	updated, err := s.Links.SetEndDate(ctx, link.ID, link.Status, endDate, linkEndScheduledEvent(link, endDate, now))
	if err != nil {
		return domain.Link{}, err
	}
	s.Perms.Invalidate(ctx, link.EntityID, link.VehicleID)
	return updated, nil
}

func (s *LinkService) Get(ctx context.Context, linkID string) (domain.Link, error) {
	return s.Links.Get(ctx, linkID)
}

func (s *LinkService) VehicleLinks(ctx context.Context, vehicleID string, filter LinkFilter) ([]domain.Link, error) {
	return s.Links.ListByVehicle(ctx, vehicleID, filter)
}

func (s *LinkService) EntityLinks(ctx context.Context, entityID string, filter LinkFilter) ([]domain.Link, error) {
	return s.Links.ListByEntity(ctx, entityID, filter)
}

func (s *LinkService) ActiveLinkCount(ctx context.Context, vehicleID string) (int64, error) {
	return s.Links.CountActiveByVehicle(ctx, vehicleID)
}

func (s *LinkService) Owners(ctx context.Context, vehicleID string) ([]domain.Link, error) {
	return s.Links.Owners(ctx, vehicleID, s.now())
}

// History returns the status audit trail, oldest first.
func (s *LinkService) History(ctx context.Context, linkID string) ([]domain.LinkStatusChange, error) {
	if _, err := s.Links.Get(ctx, linkID); err != nil {
		return nil, err
	}
	return s.Links.ListHistory(ctx, linkID)
}

// transition applies the status machine, persists the change and invalidates
// cached permissions. A raced concurrent update surfaces as domain.ErrConflict
// from the repository's conditional write.
func (s *LinkService) transition(ctx context.Context, actor Actor, link domain.Link, to domain.LinkStatus, reason string, update LinkUpdate) (domain.Link, error) {
	if !domain.CanTransition(link.Status, to) {
		return domain.Link{}, fmt.Errorf("%w: cannot move link from %s to %s", domain.ErrInvalidState, link.Status, to)
	}
	now := s.now()
	change := domain.LinkStatusChange{
		ID:        uuid.NewString(),
		LinkID:    link.ID,
		From:      link.Status,
		To:        to,
		ChangedBy: actor.EntityID,
		Reason:    reason,
		CreatedAt: now,
	}
	updated, err := s.Links.Transition(ctx, link.ID, link.Status, to, update, change, linkStatusChangedEvent(link, link.Status, to, now))
	if err != nil {
		return domain.Link{}, err
	}
	s.Perms.Invalidate(ctx, link.EntityID, link.VehicleID)
	return updated, nil
}

func (s *LinkService) canManage(ctx context.Context, actor Actor, vehicleID string) (bool, error) {
	if actor.Admin {
		return true, nil
	}
	if actor.EntityID == "" {
		return false, nil
	}
	return s.Perms.HasPermission(ctx, actor.EntityID, vehicleID, domain.PermVehicleGrantAccess)
}

func (s *LinkService) requireManage(ctx context.Context, actor Actor, vehicleID string) error {
	allowed, err := s.canManage(ctx, actor, vehicleID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: managing links requires %s", domain.ErrForbidden, domain.PermVehicleGrantAccess)
	}
	return nil
}

// requireRequestDecision gates approve/reject on a pending request. When the
// request was opened for the entity by someone else, only that entity or an
// admin decides; a self-request is decided by grant-access holders.
func (s *LinkService) requireRequestDecision(ctx context.Context, actor Actor, link domain.Link) error {
	if actor.Admin {
		return nil
	}
	if link.RequestedBy != "" && link.RequestedBy != link.EntityID {
		if actor.EntityID == link.EntityID {
			return nil
		}
		return fmt.Errorf("%w: only the requested entity may decide this request", domain.ErrForbidden)
	}
	if actor.EntityID != "" && actor.EntityID == link.EntityID {
		return fmt.Errorf("%w: an entity cannot decide its own request", domain.ErrForbidden)
	}
	return s.requireManage(ctx, actor, link.VehicleID)
}

// bootstrapGrant reports whether the grant qualifies for the first-owner
// exception: owner type, self-grant, vehicle with no active links yet.
func (s *LinkService) bootstrapGrant(ctx context.Context, actor Actor, input GrantInput) (bool, error) {
	if input.TypeCode != domain.LinkOwner || actor.EntityID == "" || actor.EntityID != input.EntityID {
		return false, nil
	}
	count, err := s.Links.CountActiveByVehicle(ctx, input.VehicleID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// checkOwnerSlot enforces the single-active-owner rule before a link becomes
// active.
func (s *LinkService) checkOwnerSlot(ctx context.Context, link domain.Link) error {
	if link.LinkTypeCode != domain.LinkOwner {
		return nil
	}
	taken, err := s.Links.ActiveOwnerExists(ctx, link.VehicleID, link.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: vehicle already has an active owner", domain.ErrConflict)
	}
	return nil
}

func orDefault(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
