package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract backs one or more tickets. Deleting a ticket never deletes
// the contract it references.
type Contract struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number string    `gorm:"column:number;type:text;not null;uniqueIndex"`

	Tickets []Ticket `gorm:"foreignKey:ContractID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
