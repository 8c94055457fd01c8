package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/pkg/db"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/pagination"
)

// Repository persists tickets and their device collections. Devices
// are always read in position order so conversation state may address
// them by index.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// FindByID fetches one ticket with the requested associations.
func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID, loads ...string) (*models.Ticket, error) {
	query := tx.WithContext(ctx)
	for _, load := range loads {
		if load == "Devices" {
			query = query.Preload("Devices", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC")
			})
			continue
		}
		query = query.Preload(load)
	}

	var ticket models.Ticket
	if err := query.First(&ticket, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, errors.Wrap(errors.CodeNotFound, err, "ticket not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "fetching ticket")
	}
	return &ticket, nil
}

// FindByNumber fetches the ticket with the external number, if any.
func (r *Repository) FindByNumber(ctx context.Context, tx *gorm.DB, number string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := tx.WithContext(ctx).Where("number = ?", number).First(&ticket).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, errors.Wrap(errors.CodeNotFound, err, "ticket not found")
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "fetching ticket by number")
	}
	return &ticket, nil
}

// Create inserts a new ticket row.
func (r *Repository) Create(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	if err := tx.WithContext(ctx).Create(ticket).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return errors.Wrap(errors.CodeValidation, err, "ticket number already taken")
		}
		return errors.Wrap(errors.CodeDependency, err, "creating ticket")
	}
	return nil
}

// Save persists changed ticket columns.
func (r *Repository) Save(ctx context.Context, tx *gorm.DB, ticket *models.Ticket) error {
	err := tx.WithContext(ctx).
		Omit("Devices", "Contract").
		Save(ticket).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "saving ticket")
	}
	return nil
}

// Delete removes the ticket; its devices cascade away with it.
func (r *Repository) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	result := tx.WithContext(ctx).Delete(&models.Ticket{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(errors.CodeDependency, result.Error, "deleting ticket")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "ticket already gone")
	}
	return nil
}

// ListByUser returns one page of the user's tickets, newest first. The
// requested page number is clamped against the actual total, so a
// pager button referencing a page that shrank away lands on the last
// real page instead of an empty one.
func (r *Repository) ListByUser(ctx context.Context, conn *gorm.DB, userID uuid.UUID, pageNumber, pageSize int) ([]models.Ticket, pagination.Page, error) {
	var total int64
	err := conn.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, pagination.Page{}, errors.Wrap(errors.CodeDependency, err, "counting tickets")
	}

	page := pagination.New(pageNumber, pageSize, int(total))
	start, end := page.Bounds()

	var list []models.Ticket
	err = conn.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(start).
		Limit(end - start).
		Find(&list).Error
	if err != nil {
		return nil, pagination.Page{}, errors.Wrap(errors.CodeDependency, err, "listing tickets")
	}
	return list, page, nil
}

// AddDevice appends a device row to the ticket.
func (r *Repository) AddDevice(ctx context.Context, tx *gorm.DB, device *models.Device) error {
	if err := tx.WithContext(ctx).Create(device).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "adding device")
	}
	return nil
}

// SaveDevice persists changed device columns.
func (r *Repository) SaveDevice(ctx context.Context, tx *gorm.DB, device *models.Device) error {
	err := tx.WithContext(ctx).
		Omit("Type").
		Save(device).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "saving device")
	}
	return nil
}

// DeleteDevice removes one device row and compacts the positions of
// the devices after it so indexes stay dense.
func (r *Repository) DeleteDevice(ctx context.Context, tx *gorm.DB, device *models.Device) error {
	if err := tx.WithContext(ctx).Delete(device).Error; err != nil {
		return errors.Wrap(errors.CodeDependency, err, "deleting device")
	}
	err := tx.WithContext(ctx).
		Model(&models.Device{}).
		Where("ticket_id = ? AND position > ?", device.TicketID, device.Position).
		UpdateColumn("position", gorm.Expr("position - 1")).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "compacting device positions")
	}
	return nil
}
