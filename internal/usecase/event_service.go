package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

// EventService owns the append-only vehicle timeline.
type EventService struct {
	Events EventRepository
	Links  LinkRepository
	Clock  func() time.Time
}

func NewEventService(events EventRepository, links LinkRepository) *EventService {
	return &EventService{Events: events, Links: links, Clock: time.Now}
}

type RecordInput struct {
	VehicleID      string
	EntityID       string
	Category       domain.EventCategory
	Type           string
	Timestamp      time.Time
	Severity       domain.EventSeverity
	Title          string
	Description    string
	Data           map[string]any
	SourceTable    string
	SourceRecordID string
	Tags           []string
	Visibility     domain.EventVisibility
}

func (s *EventService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Record appends one event, idempotently on (source table, source record id):
// a retry returns the id of the existing row and creates nothing, even when
// the source row's timestamp field was amended between invocations. The
// storage unique index carries the partition key too, so the pair is checked
// here first and the index only hardens the insert against races.
func (s *EventService) Record(ctx context.Context, input RecordInput) (domain.VehicleEvent, bool, error) {
	if strings.TrimSpace(input.VehicleID) == "" {
		return domain.VehicleEvent{}, false, fmt.Errorf("%w: vehicle id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(input.SourceTable) == "" || strings.TrimSpace(input.SourceRecordID) == "" {
		return domain.VehicleEvent{}, false, fmt.Errorf("%w: source table and source record id are required", domain.ErrInvalidArgument)
	}
	if !domain.ValidCategory(input.Category) {
		return domain.VehicleEvent{}, false, fmt.Errorf("%w: unknown event category %q", domain.ErrInvalidArgument, input.Category)
	}
	if strings.TrimSpace(input.Type) == "" || strings.TrimSpace(input.Title) == "" {
		return domain.VehicleEvent{}, false, fmt.Errorf("%w: event type and title are required", domain.ErrInvalidArgument)
	}
	if input.Category == domain.CategoryAlert && input.Severity == "" {
		return domain.VehicleEvent{}, false, fmt.Errorf("%w: alerts require a severity", domain.ErrInvalidArgument)
	}
	if input.Severity != "" && !domain.ValidSeverity(input.Severity) {
		return domain.VehicleEvent{}, false, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidArgument, input.Severity)
	}
	if input.Visibility == "" {
		input.Visibility = domain.VisibilityOwnerOnly
	}
	if !domain.ValidVisibility(input.Visibility) {
		return domain.VehicleEvent{}, false, fmt.Errorf("%w: unknown visibility %q", domain.ErrInvalidArgument, input.Visibility)
	}
	if input.Timestamp.IsZero() {
		input.Timestamp = s.now()
	}

	existing, err := s.Events.FindBySource(ctx, input.SourceTable, input.SourceRecordID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.VehicleEvent{}, false, err
	}

	event := domain.VehicleEvent{
		ID:             uuid.NewString(),
		VehicleID:      input.VehicleID,
		EntityID:       input.EntityID,
		Category:       input.Category,
		Type:           input.Type,
		Timestamp:      input.Timestamp,
		Severity:       input.Severity,
		Title:          input.Title,
		Description:    input.Description,
		Data:           input.Data,
		SourceTable:    input.SourceTable,
		SourceRecordID: input.SourceRecordID,
		Tags:           input.Tags,
		Visibility:     input.Visibility,
		CreatedAt:      s.now(),
	}
	created, err := s.Events.Insert(ctx, event)
	if err != nil {
		return domain.VehicleEvent{}, false, err
	}
	if created {
		return event, true, nil
	}
	existing, err = s.Events.FindBySource(ctx, input.SourceTable, input.SourceRecordID)
	if err != nil {
		return domain.VehicleEvent{}, false, err
	}
	return existing, false, nil
}

// Timeline returns the vehicle's events newest-first. The caller's
// relationship to the vehicle bounds what it may see: owners and co-owners see
// everything, any other currently valid link sees linked_entities and public,
// everyone else sees public only.
func (s *EventService) Timeline(ctx context.Context, vehicleID string, filter TimelineFilter, callerEntityID string) ([]domain.VehicleEvent, string, error) {
	if strings.TrimSpace(vehicleID) == "" {
		return nil, "", fmt.Errorf("%w: vehicle id is required", domain.ErrInvalidArgument)
	}
	visibilities, err := s.visibilitiesFor(ctx, callerEntityID, vehicleID)
	if err != nil {
		return nil, "", err
	}
	return s.Events.Timeline(ctx, vehicleID, filter, visibilities)
}

func (s *EventService) visibilitiesFor(ctx context.Context, entityID, vehicleID string) ([]domain.EventVisibility, error) {
	public := []domain.EventVisibility{domain.VisibilityPublic}
	if strings.TrimSpace(entityID) == "" {
		return public, nil
	}
	codes, err := s.Links.ActiveTypeCodes(ctx, entityID, vehicleID, s.now())
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return public, nil
	}
	for _, code := range codes {
		if code.Ownership() {
			return []domain.EventVisibility{
				domain.VisibilityOwnerOnly,
				domain.VisibilityLinkedEntities,
				domain.VisibilityPublic,
			}, nil
		}
	}
	return []domain.EventVisibility{domain.VisibilityLinkedEntities, domain.VisibilityPublic}, nil
}
