package writeoffs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/internal/devicetypes"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
)

// Service maintains the per-user list of written-off units, tracked
// independently of any ticket.
type Service struct {
	writeoffs *Repository
	types     *devicetypes.Repository
}

func NewService(repo *Repository, typeRepo *devicetypes.Repository) *Service {
	return &Service{writeoffs: repo, types: typeRepo}
}

// Add opens a new write-off entry of the given catalog type.
func (s *Service) Add(ctx context.Context, tx *gorm.DB, user *models.User, typeSlug string) (*models.WriteoffDevice, error) {
	deviceType, err := s.types.FindBySlug(ctx, tx, typeSlug)
	if err != nil {
		return nil, err
	}
	entry := &models.WriteoffDevice{
		UserID:       user.ID,
		DeviceTypeID: deviceType.ID,
		Type:         deviceType,
	}
	if err := s.writeoffs.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SetSerial records the serial on the entry, validated against the
// type pattern. The entry must carry its type.
func (s *Service) SetSerial(ctx context.Context, tx *gorm.DB, entry *models.WriteoffDevice, serial string) error {
	if entry.Type == nil {
		return errors.New(errors.CodeStateConflict, "write-off entry type not loaded")
	}
	if !entry.Type.HasSerial {
		return errors.New(errors.CodeStateConflict, fmt.Sprintf("%s units carry no serial number", entry.Type.Name))
	}
	if !entry.Type.ValidSerial(serial) {
		return errors.New(errors.CodeValidation, fmt.Sprintf("serial %q does not match the %s format", serial, entry.Type.Name))
	}
	entry.SerialNumber = &serial
	return s.writeoffs.Save(ctx, tx, entry)
}

// ToggleDefect flips the defect mark on the entry.
func (s *Service) ToggleDefect(ctx context.Context, tx *gorm.DB, entry *models.WriteoffDevice) error {
	entry.Defect = !entry.Defect
	return s.writeoffs.Save(ctx, tx, entry)
}

// Remove drops one entry, verifying ownership first.
func (s *Service) Remove(ctx context.Context, tx *gorm.DB, user *models.User, id uuid.UUID) error {
	entry, err := s.writeoffs.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	if entry.UserID != user.ID {
		return errors.New(errors.CodeStateConflict, "write-off entry belongs to another user")
	}
	return s.writeoffs.Delete(ctx, tx, id)
}

// List returns the user's write-off entries, oldest first.
func (s *Service) List(ctx context.Context, conn *gorm.DB, userID uuid.UUID) ([]models.WriteoffDevice, error) {
	return s.writeoffs.ListByUser(ctx, conn, userID)
}

// DeviceTypes exposes the catalog for keyboard rendering.
func (s *Service) DeviceTypes(ctx context.Context, conn *gorm.DB) ([]models.DeviceType, error) {
	return s.types.List(ctx, conn)
}
