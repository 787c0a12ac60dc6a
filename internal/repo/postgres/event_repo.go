package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends the event unless its (source_table, source_record_id) pair
// already exists; the unique index on the partitioned table enforces this
// and OnConflict DoNothing turns the duplicate into a no-op.
func (r *EventRepository) Insert(ctx context.Context, event domain.VehicleEvent) (bool, error) {
	return insertEvent(r.db.WithContext(ctx), event)
}

func insertEvent(db *gorm.DB, event domain.VehicleEvent) (bool, error) {
	model, err := eventToModel(event)
	if err != nil {
		return false, err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_table"}, {Name: "source_record_id"}, {Name: "event_timestamp"}},
		DoNothing: true,
	}).Create(&model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *EventRepository) FindBySource(ctx context.Context, sourceTable, sourceRecordID string) (domain.VehicleEvent, error) {
	var model VehicleEventModel
	err := r.db.WithContext(ctx).
		Where("source_table = ? AND source_record_id = ?", sourceTable, sourceRecordID).
		Order("event_timestamp ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.VehicleEvent{}, fmt.Errorf("%w: event for %s/%s", domain.ErrNotFound, sourceTable, sourceRecordID)
		}
		return domain.VehicleEvent{}, err
	}
	return modelToEvent(model)
}

// Timeline pages the vehicle's events newest-first on the
// (event_timestamp, id) key, restricted to the given visibility levels.
func (r *EventRepository) Timeline(ctx context.Context, vehicleID string, filter usecase.TimelineFilter, visibilities []domain.EventVisibility) ([]domain.VehicleEvent, string, error) {
	if len(visibilities) == 0 {
		return nil, "", nil
	}
	limit := normalizeLimit(filter.Limit)
	levels := make([]string, 0, len(visibilities))
	for _, v := range visibilities {
		levels = append(levels, string(v))
	}

	query := r.db.WithContext(ctx).Model(&VehicleEventModel{}).
		Where("vehicle_id = ?", vehicleID).
		Where("visibility IN ?", levels)
	if filter.Category != "" {
		query = query.Where("event_category = ?", string(filter.Category))
	}
	if filter.Type != "" {
		query = query.Where("event_type = ?", filter.Type)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", string(filter.Severity))
	}
	if filter.Tag != "" {
		tag, err := json.Marshal([]string{filter.Tag})
		if err != nil {
			return nil, "", err
		}
		query = query.Where("tags @> ?", string(tag))
	}
	if filter.Since != nil {
		query = query.Where("event_timestamp >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("event_timestamp <= ?", *filter.Until)
	}
	if filter.Cursor != "" {
		cursorTime, cursorID, err := decodeCursor(filter.Cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: malformed cursor", domain.ErrInvalidArgument)
		}
		query = query.Where("(event_timestamp, id) < (?, ?)", cursorTime, cursorID)
	}

	var models []VehicleEventModel
	err := query.
		Order("event_timestamp DESC, id DESC").
		Limit(limit + 1).
		Find(&models).Error
	if err != nil {
		return nil, "", err
	}

	items := make([]domain.VehicleEvent, 0, limit)
	for i, model := range models {
		if i == limit {
			break
		}
		event, err := modelToEvent(model)
		if err != nil {
			return nil, "", err
		}
		items = append(items, event)
	}
	if len(models) > limit {
		last := items[len(items)-1]
		return items, encodeCursor(last.Timestamp, last.ID), nil
	}
	return items, "", nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func encodeCursor(timestamp time.Time, id string) string {
	return timestamp.UTC().Format(time.RFC3339Nano) + "|" + id
}

func decodeCursor(cursor string) (time.Time, string, error) {
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("invalid cursor")
	}
	parsed, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	if parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("invalid cursor")
	}
	return parsed, parts[1], nil
}

func eventToModel(event domain.VehicleEvent) (VehicleEventModel, error) {
	var data []byte
	if event.Data != nil {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return VehicleEventModel{}, fmt.Errorf("encode event data: %w", err)
		}
		data = encoded
	}
	var tags []byte
	if event.Tags != nil {
		encoded, err := json.Marshal(event.Tags)
		if err != nil {
			return VehicleEventModel{}, fmt.Errorf("encode event tags: %w", err)
		}
		tags = encoded
	}
	return VehicleEventModel{
		ID:             event.ID,
		VehicleID:      event.VehicleID,
		EntityID:       event.EntityID,
		EventCategory:  string(event.Category),
		EventType:      event.Type,
		EventTimestamp: event.Timestamp,
		Severity:       string(event.Severity),
		Title:          event.Title,
		Description:    event.Description,
		EventData:      data,
		SourceTable:    event.SourceTable,
		SourceRecordID: event.SourceRecordID,
		Tags:           tags,
		Visibility:     string(event.Visibility),
		CreatedAt:      event.CreatedAt,
	}, nil
}

func modelToEvent(model VehicleEventModel) (domain.VehicleEvent, error) {
	var data map[string]any
	if len(model.EventData) > 0 {
		if err := json.Unmarshal(model.EventData, &data); err != nil {
			return domain.VehicleEvent{}, fmt.Errorf("decode event data: %w", err)
		}
	}
	var tags []string
	if len(model.Tags) > 0 {
		if err := json.Unmarshal(model.Tags, &tags); err != nil {
			return domain.VehicleEvent{}, fmt.Errorf("decode event tags: %w", err)
		}
	}
	return domain.VehicleEvent{
		ID:             model.ID,
		VehicleID:      model.VehicleID,
		EntityID:       model.EntityID,
		Category:       domain.EventCategory(model.EventCategory),
		Type:           model.EventType,
		Timestamp:      model.EventTimestamp,
		Severity:       domain.EventSeverity(model.Severity),
		Title:          model.Title,
		Description:    model.Description,
		Data:           data,
		SourceTable:    model.SourceTable,
		SourceRecordID: model.SourceRecordID,
		Tags:           tags,
		Visibility:     domain.EventVisibility(model.Visibility),
		CreatedAt:      model.CreatedAt,
	}, nil
}
