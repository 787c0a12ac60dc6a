package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

type EntityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) Create(ctx context.Context, entity domain.Entity, names []domain.EntityName, contacts []domain.EntityContact) (domain.Entity, error) {
	entityType, err := r.GetType(ctx, entity.TypeCode)
	if err != nil {
		return domain.Entity{}, err
	}
	model := entityToModel(entity, entityType.ID)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		for _, name := range names {
			nameModel := nameToModel(name)
			if err := tx.Create(&nameModel).Error; err != nil {
				return err
			}
		}
		for _, contact := range contacts {
			contactModel := contactToModel(contact)
			if err := tx.Create(&contactModel).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Entity{}, err
	}
	return entity, nil
}

func (r *EntityRepository) Get(ctx context.Context, entityID string) (domain.Entity, error) {
	var model EntityModel
	err := r.db.WithContext(ctx).Where("id = ?", entityID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Entity{}, fmt.Errorf("%w: entity %s", domain.ErrNotFound, entityID)
		}
		return domain.Entity{}, err
	}
	return r.modelToEntity(ctx, model)
}

func (r *EntityRepository) List(ctx context.Context, offset, limit int) ([]domain.Entity, error) {
	var models []EntityModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(models))
	for _, model := range models {
		entity, err := r.modelToEntity(ctx, model)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func (r *EntityRepository) Update(ctx context.Context, entity domain.Entity) (domain.Entity, error) {
	entityType, err := r.GetType(ctx, entity.TypeCode)
	if err != nil {
		return domain.Entity{}, err
	}
	model := entityToModel(entity, entityType.ID)
	result := r.db.WithContext(ctx).Model(&EntityModel{}).Where("id = ?", entity.ID).Updates(map[string]any{
		"legal_id":   model.LegalID,
		"active":     model.Active,
		"verified":   model.Verified,
		"anonymous":  model.Anonymous,
		"updated_at": model.UpdatedAt,
	})
	if result.Error != nil {
		return domain.Entity{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Entity{}, fmt.Errorf("%w: entity %s", domain.ErrNotFound, entity.ID)
	}
	return entity, nil
}

func (r *EntityRepository) GetType(ctx context.Context, code domain.EntityTypeCode) (domain.EntityType, error) {
	var model EntityTypeModel
	err := r.db.WithContext(ctx).Where("code = ? AND active", string(code)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EntityType{}, fmt.Errorf("%w: entity type %s", domain.ErrNotFound, code)
		}
		return domain.EntityType{}, err
	}
	return domain.EntityType{
		ID:              model.ID,
		Code:            domain.EntityTypeCode(model.Code),
		Name:            model.Name,
		RequiresLegalID: model.RequiresLegalID,
		LegalIDFormat:   domain.LegalIDFormat(model.LegalIDFormat),
		Active:          model.Active,
		CreatedAt:       model.CreatedAt,
	}, nil
}

// ReplaceCurrentName closes the open row for (entity, name type) and inserts
// the replacement as current, in one transaction.
func (r *EntityRepository) ReplaceCurrentName(ctx context.Context, next domain.EntityName) (domain.EntityName, error) {
	model := nameToModel(next)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&EntityNameModel{}).
			Where("entity_id = ? AND name_type = ? AND is_current", next.EntityID, next.NameType).
			Updates(map[string]any{"is_current": false, "end_date": next.StartDate}).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.EntityName{}, err
	}
	return next, nil
}

func (r *EntityRepository) ReplaceCurrentContact(ctx context.Context, next domain.EntityContact) (domain.EntityContact, error) {
	model := contactToModel(next)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&EntityContactModel{}).
			Where("entity_id = ? AND contact_type = ? AND is_current", next.EntityID, next.ContactType).
			Updates(map[string]any{"is_current": false, "end_date": next.StartDate}).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.EntityContact{}, err
	}
	return next, nil
}

func (r *EntityRepository) CurrentName(ctx context.Context, entityID, nameType string) (domain.EntityName, error) {
	var model EntityNameModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND name_type = ? AND is_current", entityID, nameType).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EntityName{}, fmt.Errorf("%w: no current %s name for entity %s", domain.ErrNotFound, nameType, entityID)
		}
		return domain.EntityName{}, err
	}
	return modelToName(model), nil
}

func (r *EntityRepository) CurrentContact(ctx context.Context, entityID, contactType string) (domain.EntityContact, error) {
	var model EntityContactModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND contact_type = ? AND is_current", entityID, contactType).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EntityContact{}, fmt.Errorf("%w: no current %s contact for entity %s", domain.ErrNotFound, contactType, entityID)
		}
		return domain.EntityContact{}, err
	}
	return modelToContact(model), nil
}

func (r *EntityRepository) ListNames(ctx context.Context, entityID string) ([]domain.EntityName, error) {
	var models []EntityNameModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("start_date ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.EntityName, 0, len(models))
	for _, model := range models {
		out = append(out, modelToName(model))
	}
	return out, nil
}

func (r *EntityRepository) ListContacts(ctx context.Context, entityID string) ([]domain.EntityContact, error) {
	var models []EntityContactModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("start_date ASC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.EntityContact, 0, len(models))
	for _, model := range models {
		out = append(out, modelToContact(model))
	}
	return out, nil
}

func (r *EntityRepository) modelToEntity(ctx context.Context, model EntityModel) (domain.Entity, error) {
	var entityType EntityTypeModel
	err := r.db.WithContext(ctx).Where("id = ?", model.EntityTypeID).First(&entityType).Error
	if err != nil {
		return domain.Entity{}, err
	}
	return domain.Entity{
		ID:        model.ID,
		Code:      model.Code,
		TypeCode:  domain.EntityTypeCode(entityType.Code),
		LegalID:   model.LegalID,
		Active:    model.Active,
		Verified:  model.Verified,
		Anonymous: model.Anonymous,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func entityToModel(entity domain.Entity, entityTypeID string) EntityModel {
	return EntityModel{
		ID:           entity.ID,
		Code:         entity.Code,
		EntityTypeID: entityTypeID,
		LegalID:      entity.LegalID,
		Active:       entity.Active,
		Verified:     entity.Verified,
		Anonymous:    entity.Anonymous,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
}

func nameToModel(name domain.EntityName) EntityNameModel {
	return EntityNameModel{
		ID:        name.ID,
		EntityID:  name.EntityID,
		NameType:  name.NameType,
		Value:     name.Value,
		IsCurrent: name.Current,
		StartDate: name.StartDate,
		EndDate:   name.EndDate,
		Reason:    name.Reason,
		ChangedBy: name.ChangedBy,
		CreatedAt: name.CreatedAt,
	}
}

func modelToName(model EntityNameModel) domain.EntityName {
	return domain.EntityName{
		ID:        model.ID,
		EntityID:  model.EntityID,
		NameType:  model.NameType,
		Value:     model.Value,
		Current:   model.IsCurrent,
		StartDate: model.StartDate,
		EndDate:   model.EndDate,
		Reason:    model.Reason,
		ChangedBy: model.ChangedBy,
		CreatedAt: model.CreatedAt,
	}
}

func contactToModel(contact domain.EntityContact) EntityContactModel {
	return EntityContactModel{
		ID:          contact.ID,
		EntityID:    contact.EntityID,
		ContactType: contact.ContactType,
		Value:       contact.Value,
		IsCurrent:   contact.Current,
		Verified:    contact.Verified,
		StartDate:   contact.StartDate,
		EndDate:     contact.EndDate,
		CreatedAt:   contact.CreatedAt,
	}
}

func modelToContact(model EntityContactModel) domain.EntityContact {
	return domain.EntityContact{
		ID:          model.ID,
		EntityID:    model.EntityID,
		ContactType: model.ContactType,
		Value:       model.Value,
		Current:     model.IsCurrent,
		Verified:    model.Verified,
		StartDate:   model.StartDate,
		EndDate:     model.EndDate,
		CreatedAt:   model.CreatedAt,
	}
}
