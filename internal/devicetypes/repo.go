package devicetypes

import (
	"context"

	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
)

// Repository reads the shared device type catalog. The catalog is
// seeded by migrations and rarely changes, so every method takes the
// connection of the caller, transaction or not.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// List returns the catalog ordered for keyboard rendering.
func (r *Repository) List(ctx context.Context, conn *gorm.DB) ([]models.DeviceType, error) {
	var types []models.DeviceType
	err := conn.WithContext(ctx).
		Order("name ASC").
		Find(&types).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing device types")
	}
	return types, nil
}

// FindBySlug resolves one catalog entry by its stable slug.
func (r *Repository) FindBySlug(ctx context.Context, conn *gorm.DB, slug string) (*models.DeviceType, error) {
	var deviceType models.DeviceType
	err := conn.WithContext(ctx).
		Where("slug = ?", slug).
		First(&deviceType).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errors.Wrap(errors.CodeNotFound, err, "device type not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "fetching device type")
	}
	return &deviceType, nil
}
