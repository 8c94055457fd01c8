package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is an externally numbered service request owned by one user.
type Ticket struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number     string     `gorm:"column:number;type:text;not null;uniqueIndex"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	ContractID *uuid.UUID `gorm:"column:contract_id;type:uuid;index"`

	Contract *Contract `gorm:"foreignKey:ContractID"`
	Devices  []Device  `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
