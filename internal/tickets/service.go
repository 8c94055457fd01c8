package tickets

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olegbarsky/techstock-bot/internal/contracts"
	"github.com/olegbarsky/techstock-bot/internal/devicetypes"
	"github.com/olegbarsky/techstock-bot/pkg/config"
	"github.com/olegbarsky/techstock-bot/pkg/db/models"
	"github.com/olegbarsky/techstock-bot/pkg/enums"
	"github.com/olegbarsky/techstock-bot/pkg/errors"
	"github.com/olegbarsky/techstock-bot/pkg/pagination"
)

// Service implements the ticket lifecycle: creation against the
// configured number format, the device collection on each ticket, and
// contract linking.
type Service struct {
	tickets   *Repository
	contracts *contracts.Repository
	types     *devicetypes.Repository

	ticketNumber   *regexp.Regexp
	contractNumber *regexp.Regexp
	maxDevices     int
	pageSize       int
}

func NewService(repo *Repository, contractRepo *contracts.Repository, typeRepo *devicetypes.Repository, cfg config.BotConfig) *Service {
	return &Service{
		tickets:        repo,
		contracts:      contractRepo,
		types:          typeRepo,
		ticketNumber:   regexp.MustCompile(cfg.TicketNumberPattern),
		contractNumber: regexp.MustCompile(cfg.ContractNumberPattern),
		maxDevices:     cfg.MaxDevicesPerTicket,
		pageSize:       cfg.HistoryPageSize,
	}
}

// Create validates the external number and opens a new ticket for the
// user.
func (s *Service) Create(ctx context.Context, tx *gorm.DB, user *models.User, number string) (*models.Ticket, error) {
	if !s.ticketNumber.MatchString(number) {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("ticket number %q does not match the required format", number))
	}
	ticket := &models.Ticket{
		Number: number,
		UserID: user.ID,
	}
	if err := s.tickets.Create(ctx, tx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Get fetches a ticket with its full card associations.
func (s *Service) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Ticket, error) {
	return s.tickets.FindByID(ctx, tx, id, "Devices", "Devices.Type", "Contract")
}

// Delete removes the ticket and everything attached to it.
func (s *Service) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return s.tickets.Delete(ctx, tx, id)
}

// AddDevice appends a unit of the given catalog type to the ticket and
// returns it together with its resolved type. The ticket must carry
// its device collection.
func (s *Service) AddDevice(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, typeSlug string) (*models.Device, error) {
	if len(ticket.Devices) >= s.maxDevices {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("ticket already holds %d devices", s.maxDevices))
	}
	deviceType, err := s.types.FindBySlug(ctx, tx, typeSlug)
	if err != nil {
		return nil, err
	}
	device := &models.Device{
		TicketID:     ticket.ID,
		DeviceTypeID: deviceType.ID,
		Position:     len(ticket.Devices),
		Status:       enums.DeviceStatusInstalled,
		Type:         deviceType,
	}
	if err := s.tickets.AddDevice(ctx, tx, device); err != nil {
		return nil, err
	}
	ticket.Devices = append(ticket.Devices, *device)
	return device, nil
}

// SetSerial records the serial number on the device at the given
// position, validated against the type's pattern. The ticket must
// carry devices with their types loaded.
func (s *Service) SetSerial(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, index int, serial string) (*models.Device, error) {
	device, err := deviceAt(ticket, index)
	if err != nil {
		return nil, err
	}
	if device.Type == nil {
		return nil, errors.New(errors.CodeStateConflict, "device type not loaded")
	}
	if !device.Type.HasSerial {
		return nil, errors.New(errors.CodeStateConflict, fmt.Sprintf("%s units carry no serial number", device.Type.Name))
	}
	if !device.Type.ValidSerial(serial) {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("serial %q does not match the %s format", serial, device.Type.Name))
	}
	device.SerialNumber = &serial
	if err := s.tickets.SaveDevice(ctx, tx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// ToggleDefect flips the defect mark on the device at the given
// position, moving its status between installed and defect. The target
// status must be legal both for the current status and for the
// device's type. The ticket must carry devices with their types loaded.
func (s *Service) ToggleDefect(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, index int) (*models.Device, error) {
	device, err := deviceAt(ticket, index)
	if err != nil {
		return nil, err
	}
	if device.Type == nil {
		return nil, errors.New(errors.CodeStateConflict, "device type not loaded")
	}
	next := enums.DeviceStatusDefect
	if device.Defect {
		next = enums.DeviceStatusInstalled
	}
	if !device.Status.CanTransitionTo(next) {
		return nil, errors.New(errors.CodeStateConflict, fmt.Sprintf("device cannot move from %s to %s", device.Status, next))
	}
	if !device.Type.AllowsStatus(next) {
		return nil, errors.New(errors.CodeStateConflict, fmt.Sprintf("%s units cannot be marked %s", device.Type.Name, next))
	}
	device.Defect = !device.Defect
	device.Status = next
	if err := s.tickets.SaveDevice(ctx, tx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// RemoveDevice drops the device at the given position and compacts the
// positions after it.
func (s *Service) RemoveDevice(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, index int) error {
	device, err := deviceAt(ticket, index)
	if err != nil {
		return err
	}
	if err := s.tickets.DeleteDevice(ctx, tx, device); err != nil {
		return err
	}
	ticket.Devices = append(ticket.Devices[:index], ticket.Devices[index+1:]...)
	for i := range ticket.Devices {
		ticket.Devices[i].Position = i
	}
	return nil
}

// LinkContract attaches the ticket to the contract with the entered
// number, creating the contract when it is new.
func (s *Service) LinkContract(ctx context.Context, tx *gorm.DB, ticket *models.Ticket, number string) (*models.Contract, error) {
	if !s.contractNumber.MatchString(number) {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("contract number %q does not match the required format", number))
	}
	contract, err := s.contracts.FindOrCreateByNumber(ctx, tx, number)
	if err != nil {
		return nil, err
	}
	ticket.ContractID = &contract.ID
	ticket.Contract = contract
	if err := s.tickets.Save(ctx, tx, ticket); err != nil {
		return nil, err
	}
	return contract, nil
}

// History returns one page of the user's tickets, newest first.
func (s *Service) History(ctx context.Context, conn *gorm.DB, userID uuid.UUID, pageNumber int) ([]models.Ticket, pagination.Page, error) {
	return s.tickets.ListByUser(ctx, conn, userID, pageNumber, s.pageSize)
}

// DeviceTypes exposes the catalog for keyboard rendering.
func (s *Service) DeviceTypes(ctx context.Context, conn *gorm.DB) ([]models.DeviceType, error) {
	return s.types.List(ctx, conn)
}

func deviceAt(ticket *models.Ticket, index int) (*models.Device, error) {
	if index < 0 || index >= len(ticket.Devices) {
		return nil, errors.New(errors.CodeStateConflict, fmt.Sprintf("device index %d out of range %d", index, len(ticket.Devices)))
	}
	return &ticket.Devices[index], nil
}
