package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Create(ctx context.Context, vehicle domain.Vehicle) (domain.Vehicle, error) {
	model := VehicleModel{
		ID:         vehicle.ID,
		VIN:        vehicle.VIN,
		Renavam:    vehicle.Renavam,
		BrandID:    vehicle.BrandID,
		ModelID:    vehicle.ModelID,
		VersionID:  vehicle.VersionID,
		Visibility: vehicle.Visibility,
		Active:     vehicle.Active,
		CreatedAt:  vehicle.CreatedAt,
		UpdatedAt:  vehicle.UpdatedAt,
	}
	if model.Visibility == "" {
		model.Visibility = "private"
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Vehicle{}, err
	}
	return vehicle, nil
}

func (r *VehicleRepository) Get(ctx context.Context, vehicleID string) (domain.Vehicle, error) {
	var model VehicleModel
	err := r.db.WithContext(ctx).Where("id = ?", vehicleID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Vehicle{}, fmt.Errorf("%w: vehicle %s", domain.ErrNotFound, vehicleID)
		}
		return domain.Vehicle{}, err
	}
	return domain.Vehicle{
		ID:         model.ID,
		VIN:        model.VIN,
		Renavam:    model.Renavam,
		BrandID:    model.BrandID,
		ModelID:    model.ModelID,
		VersionID:  model.VersionID,
		Visibility: model.Visibility,
		Active:     model.Active,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}, nil
}
