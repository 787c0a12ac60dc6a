package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// HasPermission evaluates the catalog join in one query: a currently valid
// active link on the vehicle whose type grants an active permission with the
// given code.
func (r *PermissionRepository) HasPermission(ctx context.Context, entityID, vehicleID, code string, today time.Time) (bool, error) {
	var allowed bool
	err := r.db.WithContext(ctx).Raw(`
SELECT EXISTS (
	SELECT 1
	FROM links l
	JOIN link_type_permissions ltp ON ltp.link_type_id = l.link_type_id
	JOIN permissions p ON p.id = ltp.permission_id
	WHERE l.entity_id = ?
	  AND l.vehicle_id = ?
	  AND l.status = 'active'
	  AND l.start_date <= ?
	  AND (l.end_date IS NULL OR l.end_date >= ?)
	  AND p.code = ?
	  AND p.active
)`, entityID, vehicleID, today, today.Truncate(24*time.Hour), code).Scan(&allowed).Error
	if err != nil {
		return false, err
	}
	return allowed, nil
}

func (r *PermissionRepository) ListCatalog(ctx context.Context) ([]domain.Permission, error) {
	var models []PermissionModel
	err := r.db.WithContext(ctx).
		Where("active").
		Order("code ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Permission, 0, len(models))
	for _, model := range models {
		out = append(out, domain.Permission{
			ID:          model.ID,
			Code:        model.Code,
			Name:        model.Name,
			Description: model.Description,
			Category:    model.Category,
			Active:      model.Active,
			CreatedAt:   model.CreatedAt,
		})
	}
	return out, nil
}
