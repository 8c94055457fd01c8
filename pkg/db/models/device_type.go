package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegbarsky/techstock-bot/pkg/enums"
)

// DeviceType is a shared catalog row referenced by devices and
// write-offs; it is never owned or cascaded by either.
type DeviceType struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug string    `gorm:"column:slug;type:text;not null;uniqueIndex"`
	Name string    `gorm:"column:name;type:text;not null"`

	// HasSerial tells whether units of this type carry a serial
	// number; SerialPattern, when set, validates entered serials.
	HasSerial     bool    `gorm:"column:has_serial;not null;default:false"`
	SerialPattern *string `gorm:"column:serial_pattern;type:text"`

	// Statuses narrows the lifecycle states units of this type may
	// hold, as a comma-separated list. Empty allows every state.
	Statuses string `gorm:"column:statuses;type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AllowsStatus reports whether units of this type may hold the status.
func (d *DeviceType) AllowsStatus(status enums.DeviceStatus) bool {
	if d.Statuses == "" {
		return true
	}
	for _, part := range strings.Split(d.Statuses, ",") {
		if enums.DeviceStatus(strings.TrimSpace(part)) == status {
			return true
		}
	}
	return false
}

// ValidSerial checks a serial number against the configured pattern.
// Types without a pattern accept any non-empty serial.
func (d *DeviceType) ValidSerial(serial string) bool {
	if serial == "" {
		return false
	}
	if d.SerialPattern == nil || *d.SerialPattern == "" {
		return true
	}
	matched, err := regexp.MatchString(*d.SerialPattern, serial)
	if err != nil {
		return false
	}
	return matched
}
