package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// linkRow joins the link with its type code so callers get a complete
// domain.Link in one query.
type linkRow struct {
	LinkModel
	TypeCode string
}

const linkSelect = "links.*, link_types.code AS type_code"

func (r *LinkRepository) Create(ctx context.Context, link domain.Link, change domain.LinkStatusChange, event *domain.VehicleEvent) (domain.Link, error) {
	model := linkToModel(link)
	changeModel := changeToModel(change)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if err := tx.Create(&changeModel).Error; err != nil {
			return err
		}
		if event != nil {
			if _, err := insertEvent(tx, *event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Link{}, err
	}
	return link, nil
}

func (r *LinkRepository) Get(ctx context.Context, linkID string) (domain.Link, error) {
	var row linkRow
	err := r.db.WithContext(ctx).
		Table("links").
		Select(linkSelect).
		Joins("JOIN link_types ON link_types.id = links.link_type_id").
		Where("links.id = ?", linkID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Link{}, fmt.Errorf("%w: link %s", domain.ErrNotFound, linkID)
		}
		return domain.Link{}, err
	}
	return rowToLink(row), nil
}

// Transition moves the link's status with a conditional update: the write
// applies only while the stored status still equals from. Zero affected rows
// means someone else won the race.
func (r *LinkRepository) Transition(ctx context.Context, linkID string, from, to domain.LinkStatus, update usecase.LinkUpdate, change domain.LinkStatusChange, event *domain.VehicleEvent) (domain.Link, error) {
	changeModel := changeToModel(change)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values := map[string]any{
			"status":     string(to),
			"updated_at": change.CreatedAt,
		}
		if update.EndDate != nil {
			values["end_date"] = *update.EndDate
		}
		if update.ValidatedAt != nil {
			values["validated_at"] = *update.ValidatedAt
		}
		if update.ValidatedBy != "" {
			values["validated_by"] = update.ValidatedBy
		}
		if update.Observations != "" {
			values["observations"] = update.Observations
		}
		result := tx.Model(&LinkModel{}).
			Where("id = ? AND status = ?", linkID, string(from)).
			Updates(values)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: link %s no longer %s", domain.ErrConflict, linkID, from)
		}
		if err := tx.Create(&changeModel).Error; err != nil {
			return err
		}
		if event != nil {
			if _, err := insertEvent(tx, *event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Link{}, err
	}
	return r.Get(ctx, linkID)
}

func (r *LinkRepository) SetEndDate(ctx context.Context, linkID string, status domain.LinkStatus, endDate time.Time, event *domain.VehicleEvent) (domain.Link, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&LinkModel{}).
			Where("id = ? AND status = ?", linkID, string(status)).
			Updates(map[string]any{"end_date": endDate, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: link %s no longer %s", domain.ErrConflict, linkID, status)
		}
		if event != nil {
			if _, err := insertEvent(tx, *event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Link{}, err
	}
	return r.Get(ctx, linkID)
}

func (r *LinkRepository) ListByVehicle(ctx context.Context, vehicleID string, filter usecase.LinkFilter) ([]domain.Link, error) {
	query := r.linkQuery(ctx, filter).Where("links.vehicle_id = ?", vehicleID)
	return collectLinks(query)
}

func (r *LinkRepository) ListByEntity(ctx context.Context, entityID string, filter usecase.LinkFilter) ([]domain.Link, error) {
	query := r.linkQuery(ctx, filter).Where("links.entity_id = ?", entityID)
	return collectLinks(query)
}

func (r *LinkRepository) linkQuery(ctx context.Context, filter usecase.LinkFilter) *gorm.DB {
	query := r.db.WithContext(ctx).
		Table("links").
		Select(linkSelect).
		Joins("JOIN link_types ON link_types.id = links.link_type_id").
		Order("links.created_at DESC, links.id DESC")
	if filter.Status != "" {
		query = query.Where("links.status = ?", string(filter.Status))
	}
	if filter.TypeCode != "" {
		query = query.Where("link_types.code = ?", string(filter.TypeCode))
	}
	if filter.ActiveOn != nil {
		query = query.Where(
			"links.status = ? AND links.start_date <= ? AND (links.end_date IS NULL OR links.end_date >= ?)",
			string(domain.LinkActive), *filter.ActiveOn, filter.ActiveOn.Truncate(24*time.Hour),
		)
	}
	return query
}

func collectLinks(query *gorm.DB) ([]domain.Link, error) {
	var rows []linkRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Link, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToLink(row))
	}
	return out, nil
}

func (r *LinkRepository) CountActiveByVehicle(ctx context.Context, vehicleID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LinkModel{}).
		Where("vehicle_id = ? AND status = ?", vehicleID, string(domain.LinkActive)).
		Count(&count).Error
	return count, err
}

func (r *LinkRepository) Owners(ctx context.Context, vehicleID string, today time.Time) ([]domain.Link, error) {
	query := r.db.WithContext(ctx).
		Table("links").
		Select(linkSelect).
		Joins("JOIN link_types ON link_types.id = links.link_type_id").
		Where("links.vehicle_id = ?", vehicleID).
		Where("link_types.code IN ?", []string{string(domain.LinkOwner), string(domain.LinkCoOwner)}).
		Where("links.status = ? AND links.start_date <= ? AND (links.end_date IS NULL OR links.end_date >= ?)",
			string(domain.LinkActive), today, today.Truncate(24*time.Hour)).
		Order("links.created_at ASC")
	return collectLinks(query)
}

func (r *LinkRepository) ActiveOwnerExists(ctx context.Context, vehicleID, excludeLinkID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&LinkModel{}).
		Joins("JOIN link_types ON link_types.id = links.link_type_id").
		Where("links.vehicle_id = ? AND links.status = ? AND link_types.code = ?",
			vehicleID, string(domain.LinkActive), string(domain.LinkOwner))
	if excludeLinkID != "" {
		query = query.Where("links.id <> ?", excludeLinkID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *LinkRepository) ActiveTypeCodes(ctx context.Context, entityID, vehicleID string, today time.Time) ([]domain.LinkTypeCode, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Table("links").
		Select("DISTINCT link_types.code").
		Joins("JOIN link_types ON link_types.id = links.link_type_id").
		Where("links.entity_id = ? AND links.vehicle_id = ?", entityID, vehicleID).
		Where("links.status = ? AND links.start_date <= ? AND (links.end_date IS NULL OR links.end_date >= ?)",
			string(domain.LinkActive), today, today.Truncate(24*time.Hour)).
		Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.LinkTypeCode, 0, len(codes))
	for _, code := range codes {
		out = append(out, domain.LinkTypeCode(code))
	}
	return out, nil
}

func (r *LinkRepository) ListHistory(ctx context.Context, linkID string) ([]domain.LinkStatusChange, error) {
	var models []LinkStatusModel
	err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.LinkStatusChange, 0, len(models))
	for _, model := range models {
		out = append(out, domain.LinkStatusChange{
			ID:        model.ID,
			LinkID:    model.LinkID,
			From:      domain.LinkStatus(model.PreviousStatus),
			To:        domain.LinkStatus(model.NewStatus),
			ChangedBy: model.ChangedBy,
			Reason:    model.Reason,
			CreatedAt: model.CreatedAt,
		})
	}
	return out, nil
}

func (r *LinkRepository) GetLinkType(ctx context.Context, code domain.LinkTypeCode) (domain.LinkType, error) {
	var model LinkTypeModel
	err := r.db.WithContext(ctx).Where("code = ? AND active", string(code)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LinkType{}, fmt.Errorf("%w: link type %s", domain.ErrNotFound, code)
		}
		return domain.LinkType{}, err
	}
	return domain.LinkType{
		ID:          model.ID,
		Code:        domain.LinkTypeCode(model.Code),
		Name:        model.Name,
		Description: model.Description,
		Active:      model.Active,
		CreatedAt:   model.CreatedAt,
	}, nil
}

func linkToModel(link domain.Link) LinkModel {
	return LinkModel{
		ID:            link.ID,
		Code:          link.Code,
		EntityID:      link.EntityID,
		VehicleID:     link.VehicleID,
		LinkTypeID:    link.LinkTypeID,
		Status:        string(link.Status),
		DocumentProof: link.DocumentProof,
		RequestedBy:   link.RequestedBy,
		ValidatedAt:   link.ValidatedAt,
		ValidatedBy:   link.ValidatedBy,
		StartDate:     link.StartDate,
		EndDate:       link.EndDate,
		Observations:  link.Observations,
		CreatedAt:     link.CreatedAt,
		UpdatedAt:     link.UpdatedAt,
	}
}

func rowToLink(row linkRow) domain.Link {
	return domain.Link{
		ID:            row.ID,
		Code:          row.Code,
		EntityID:      row.EntityID,
		VehicleID:     row.VehicleID,
		LinkTypeID:    row.LinkTypeID,
		LinkTypeCode:  domain.LinkTypeCode(row.TypeCode),
		Status:        domain.LinkStatus(row.Status),
		DocumentProof: row.DocumentProof,
		RequestedBy:   row.RequestedBy,
		ValidatedAt:   row.ValidatedAt,
		ValidatedBy:   row.ValidatedBy,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		Observations:  row.Observations,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func changeToModel(change domain.LinkStatusChange) LinkStatusModel {
	return LinkStatusModel{
		ID:             change.ID,
		LinkID:         change.LinkID,
		PreviousStatus: string(change.From),
		NewStatus:      string(change.To),
		ChangedBy:      change.ChangedBy,
		Reason:         change.Reason,
		CreatedAt:      change.CreatedAt,
	}
}
