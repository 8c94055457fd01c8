package contracts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
)

// Repository persists contract rows. Contracts are shared between
// tickets and are never deleted through the conversation flows.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// FindOrCreateByNumber returns the contract with the given number,
// creating it when absent. Linking a second ticket to a known number
// reuses the existing row.
func (r *Repository) FindOrCreateByNumber(ctx context.Context, tx *gorm.DB, number string) (*models.Contract, error) {
	var contract models.Contract
	err := tx.WithContext(ctx).
		Where("number = ?", number).
		FirstOrCreate(&contract, models.Contract{Number: number}).Error
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Lost a create race; the row exists now.
			err = tx.WithContext(ctx).Where("number = ?", number).First(&contract).Error
		}
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "resolving contract")
		}
	}
	return &contract, nil
}

// FindByID fetches one contract row.
func (r *Repository) FindByID(ctx context.Context, conn *gorm.DB, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := conn.WithContext(ctx).First(&contract, "id = ?", id).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errors.Wrap(errors.CodeNotFound, err, "contract not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "fetching contract")
	}
	return &contract, nil
}
