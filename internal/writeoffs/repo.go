package writeoffs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
)

// Repository persists the per-user write-off list.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// FindByID fetches one write-off entry with its catalog type.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.WriteoffDevice, error) {
	var entry models.WriteoffDevice
	err := tx.WithContext(ctx).
		Preload("Type").
		First(&entry, "id = ?", id).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errors.Wrap(errors.CodeNotFound, err, "write-off entry not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "fetching write-off entry")
	}
	return &entry, nil
}

// Create inserts a new write-off entry.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, entry *models.WriteoffDevice) error {
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating write-off entry")
	}
	return nil
}

// Save persists changed entry columns.
func (r *Repository) Save(ctx context.Context, tx *gorm.DB, entry *models.WriteoffDevice) error {
	err := tx.WithContext(ctx).
		Omit("Type").
		Save(entry).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "saving write-off entry")
	}
	return nil
}

// Delete removes one entry.
func (r *Repository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := tx.WithContext(ctx).Delete(&models.WriteoffDevice{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(errors.CodeDependency, result.Error, "deleting write-off entry")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "write-off entry already gone")
	}
	return nil
}

// ListByUser returns the user's write-off list, oldest first.
func (r *Repository) ListByUser(ctx context.Context, conn *gorm.DB, userID uuid.UUID) ([]models.WriteoffDevice, error) {
	var list []models.WriteoffDevice
	err := conn.WithContext(ctx).
		Preload("Type").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing write-off entries")
	}
	return list, nil
}
