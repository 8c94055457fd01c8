package models

import (
	"time"

	"github.com/google/uuid"
)

// WriteoffDevice is a removed device tracked on a user's write-off
// list, independent of any ticket.
type WriteoffDevice struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	DeviceTypeID uuid.UUID `gorm:"column:device_type_id;type:uuid;not null"`
	SerialNumber *string   `gorm:"column:serial_number;type:text"`
	Defect       bool      `gorm:"column:defect;not null;default:false"`

	Type *DeviceType `gorm:"foreignKey:DeviceTypeID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
