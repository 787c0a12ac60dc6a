package usecase

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// EntityService maintains entities and their append-only name/contact history.
type EntityService struct {
	Entities EntityRepository
	Clock    func() time.Time
}

func NewEntityService(entities EntityRepository) *EntityService {
	return &EntityService{Entities: entities, Clock: time.Now}
}

type CreateEntityInput struct {
	TypeCode domain.EntityTypeCode
	Name     string
	Email    string
	Phone    string
	LegalID  string
}

type ConvertInput struct {
	Email   string
	Phone   string
	LegalID string
}

func newCode(prefix string) string {
	id := uuid.New()
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(id[:])[:12])
}

func (s *EntityService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *EntityService) Create(ctx context.Context, input CreateEntityInput) (domain.Entity, error) {
	if strings.TrimSpace(input.Name) == "" {
		return domain.Entity{}, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	entityType, err := s.Entities.GetType(ctx, input.TypeCode)
	if err != nil {
		return domain.Entity{}, err
	}
	if entityType.RequiresLegalID {
		if strings.TrimSpace(input.LegalID) == "" {
			return domain.Entity{}, fmt.Errorf("%w: legal id (%s) is required for entity type %s",
				domain.ErrInvalidArgument, entityType.LegalIDFormat, entityType.Code)
		}
		if err := domain.ValidateLegalID(entityType.LegalIDFormat, input.LegalID); err != nil {
			return domain.Entity{}, fmt.Errorf("%w: malformed %s", domain.ErrInvalidArgument, entityType.LegalIDFormat)
		}
	}

	now := s.now()
	entity := domain.Entity{
		ID:        uuid.NewString(),
		Code:      newCode("ENT"),
		TypeCode:  entityType.Code,
		LegalID:   strings.TrimSpace(input.LegalID),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	names := []domain.EntityName{{
		ID:        uuid.NewString(),
		EntityID:  entity.ID,
		NameType:  domain.NameTypeDisplay,
		Value:     strings.TrimSpace(input.Name),
		Current:   true,
		StartDate: now,
		CreatedAt: now,
	}}
	var contacts []domain.EntityContact
	if v := strings.TrimSpace(input.Email); v != "" {
		contacts = append(contacts, newContact(entity.ID, domain.ContactEmail, v, now))
	}
	if v := strings.TrimSpace(input.Phone); v != "" {
		contacts = append(contacts, newContact(entity.ID, domain.ContactPhone, v, now))
	}
	return s.Entities.Create(ctx, entity, names, contacts)
}

// CreateAnonymous registers an entity from a device fingerprint alone. The
// result is unverified until credentials are attached.
func (s *EntityService) CreateAnonymous(ctx context.Context, fingerprint string) (domain.Entity, error) {
	if strings.TrimSpace(fingerprint) == "" {
		return domain.Entity{}, fmt.Errorf("%w: fingerprint is required", domain.ErrInvalidArgument)
	}
	now := s.now()
	entity := domain.Entity{
		ID:        uuid.NewString(),
		Code:      newCode("ANON"),
		TypeCode:  domain.EntityDevice,
		Active:    true,
		Anonymous: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	names := []domain.EntityName{{
		ID:        uuid.NewString(),
		EntityID:  entity.ID,
		NameType:  domain.NameTypeDisplay,
		Value:     "Anonymous",
		Current:   true,
		StartDate: now,
		CreatedAt: now,
	}}
	contacts := []domain.EntityContact{newContact(entity.ID, domain.ContactFingerprint, strings.TrimSpace(fingerprint), now)}
	return s.Entities.Create(ctx, entity, names, contacts)
}

func newContact(entityID, contactType, value string, now time.Time) domain.EntityContact {
	return domain.EntityContact{
		ID:          uuid.NewString(),
		EntityID:    entityID,
		ContactType: contactType,
		Value:       value,
		Current:     true,
		StartDate:   now,
		CreatedAt:   now,
	}
}

func (s *EntityService) Get(ctx context.Context, entityID string) (domain.Entity, error) {
	return s.Entities.Get(ctx, entityID)
}

func (s *EntityService) List(ctx context.Context, offset, limit int) ([]domain.Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.Entities.List(ctx, offset, limit)
}

// DisplayName resolves the current display-name row; the current value is
// never stored on the entity itself.
func (s *EntityService) DisplayName(ctx context.Context, entityID string) (string, error) {
	name, err := s.Entities.CurrentName(ctx, entityID, domain.NameTypeDisplay)
	if err != nil {
		return "", err
	}
	return name.Value, nil
}

// UpdateName closes the current row for the name type and inserts a new
// current one. Prior rows are never rewritten.
func (s *EntityService) UpdateName(ctx context.Context, entityID, nameType, newValue, reason, changedBy string) (domain.EntityName, error) {
	if strings.TrimSpace(newValue) == "" {
		return domain.EntityName{}, fmt.Errorf("%w: name value is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(nameType) == "" {
		nameType = domain.NameTypeDisplay
	}
	if _, err := s.Entities.Get(ctx, entityID); err != nil {
		return domain.EntityName{}, err
	}
	now := s.now()
	next := domain.EntityName{
		ID:        uuid.NewString(),
		EntityID:  entityID,
		NameType:  nameType,
		Value:     strings.TrimSpace(newValue),
		Current:   true,
		StartDate: now,
		Reason:    reason,
		ChangedBy: changedBy,
		CreatedAt: now,
	}
	return s.Entities.ReplaceCurrentName(ctx, next)
}

func (s *EntityService) UpdateContact(ctx context.Context, entityID, contactType, newValue string) (domain.EntityContact, error) {
	if strings.TrimSpace(contactType) == "" || strings.TrimSpace(newValue) == "" {
		return domain.EntityContact{}, fmt.Errorf("%w: contact type and value are required", domain.ErrInvalidArgument)
	}
	if _, err := s.Entities.Get(ctx, entityID); err != nil {
		return domain.EntityContact{}, err
	}
	next := newContact(entityID, contactType, strings.TrimSpace(newValue), s.now())
	return s.Entities.ReplaceCurrentContact(ctx, next)
}

// ConvertAnonymousToVerified upgrades an anonymous entity once at least one of
// email, phone or legal id is supplied. Calling it on an already verified
// entity is a no-op.
func (s *EntityService) ConvertAnonymousToVerified(ctx context.Context, entityID string, input ConvertInput) (domain.Entity, error) {
	entity, err := s.Entities.Get(ctx, entityID)
	if err != nil {
		return domain.Entity{}, err
	}
	if entity.Verified {
		return entity, nil
	}
	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	legalID := strings.TrimSpace(input.LegalID)
	if email == "" && phone == "" && legalID == "" {
		return domain.Entity{}, fmt.Errorf("%w: at least one of email, phone, legal id is required", domain.ErrInvalidArgument)
	}
	now := s.now()
	if email != "" {
		if _, err := s.Entities.ReplaceCurrentContact(ctx, newContact(entityID, domain.ContactEmail, email, now)); err != nil {
			return domain.Entity{}, err
		}
	}
	if phone != "" {
		if _, err := s.Entities.ReplaceCurrentContact(ctx, newContact(entityID, domain.ContactPhone, phone, now)); err != nil {
			return domain.Entity{}, err
		}
	}
	if legalID != "" {
		entity.LegalID = legalID
	}
	entity.Verified = true
	entity.Anonymous = false
	entity.UpdatedAt = now
	return s.Entities.Update(ctx, entity)
}

// Deactivate soft-deletes: history stays referentially intact for resolved
// links and recorded events.
func (s *EntityService) Deactivate(ctx context.Context, entityID string) (domain.Entity, error) {
	entity, err := s.Entities.Get(ctx, entityID)
	if err != nil {
		return domain.Entity{}, err
	}
	if !entity.Active {
		return entity, nil
	}
	entity.Active = false
	entity.UpdatedAt = s.now()
	return s.Entities.Update(ctx, entity)
}

func (s *EntityService) NameHistory(ctx context.Context, entityID string) ([]domain.EntityName, error) {
	return s.Entities.ListNames(ctx, entityID)
}

func (s *EntityService) ContactHistory(ctx context.Context, entityID string) ([]domain.EntityContact, error) {
	return s.Entities.ListContacts(ctx, entityID)
}
