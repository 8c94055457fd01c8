package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/olegbarsky/techstock-bot/pkg/enums"
)

// Device is a catalog-typed unit attached to a ticket. Devices keep a
// stable Position so conversation state may reference them by index.
type Device struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TicketID     uuid.UUID          `gorm:"column:ticket_id;type:uuid;not null;index"`
	DeviceTypeID uuid.UUID          `gorm:"column:device_type_id;type:uuid;not null"`
	Position     int                `gorm:"column:position;not null"`
	SerialNumber *string            `gorm:"column:serial_number;type:text"`
	Status       enums.DeviceStatus `gorm:"column:status;type:text;not null;default:'installed'"`
	Defect       bool               `gorm:"column:defect;not null;default:false"`

	Type *DeviceType `gorm:"foreignKey:DeviceTypeID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
