package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical identity entity, keyed by the chat-platform id.
// UpdatedAt doubles as the cache staleness marker: it advances on every
// committed mutation and never moves backwards.
type User struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TelegramID int64     `gorm:"column:telegram_id;not null;uniqueIndex"`
	FirstName  string    `gorm:"column:first_name;type:text;not null;default:''"`
	LastName   string    `gorm:"column:last_name;type:text;not null;default:''"`
	Username   *string   `gorm:"column:username;type:text"`

	// Roles are non-exclusive; a user with none set is a guest.
	IsAdmin    bool `gorm:"column:is_admin;not null;default:false"`
	IsManager  bool `gorm:"column:is_manager;not null;default:false"`
	IsEngineer bool `gorm:"column:is_engineer;not null;default:false"`

	// AcceptsRegistrations only carries meaning for managers: guests
	// may self-register while at least one manager keeps it on.
	AcceptsRegistrations bool `gorm:"column:accepts_registrations;not null;default:false"`
	Disabled             bool `gorm:"column:disabled;not null;default:false"`

	// State holds the serialized conversation state blob; empty or
	// NULL means no pending multi-step flow.
	State []byte `gorm:"column:state;type:jsonb"`

	Tickets   []Ticket         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Writeoffs []WriteoffDevice `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	// Both timestamps are stamped by the repository, not by GORM's
	// autotime: updated_at is the staleness marker and must hold the
	// exact value the store keeps, truncated to the store's precision.
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// MarkerPrecision is the finest timestamp resolution the datasource is
// trusted to store losslessly. Marker stamps are truncated to it so a
// cached row compares equal to its own committed write.
const MarkerPrecision = time.Microsecond

// IsGuest reports whether the user carries no role at all.
func (u *User) IsGuest() bool {
	return !u.IsAdmin && !u.IsManager && !u.IsEngineer
}

// FullName renders the display name parts for chat output.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	case u.Username != nil:
		return *u.Username
	default:
		return ""
	}
}
