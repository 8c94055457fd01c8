package enums

import "fmt"

// DeviceStatus is the lifecycle state of a device on a ticket.
type DeviceStatus string

const (
	DeviceStatusInstalled DeviceStatus = "installed"
	DeviceStatusDefect    DeviceStatus = "defect"
	DeviceStatusRemoved   DeviceStatus = "removed"
)

var validDeviceStatuses = []DeviceStatus{
	DeviceStatusInstalled,
	DeviceStatusDefect,
	DeviceStatusRemoved,
}

// Legal transitions per status. A device enters as installed; defect
// and removed are terminal relative to each other only through installed.
var deviceStatusTransitions = map[DeviceStatus][]DeviceStatus{
	DeviceStatusInstalled: {DeviceStatusDefect, DeviceStatusRemoved},
	DeviceStatusDefect:    {DeviceStatusInstalled, DeviceStatusRemoved},
	DeviceStatusRemoved:   {},
}

// String implements fmt.Stringer.
func (d DeviceStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeviceStatus.
func (d DeviceStatus) IsValid() bool {
	for _, candidate := range validDeviceStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the status change is legal.
func (d DeviceStatus) CanTransitionTo(next DeviceStatus) bool {
	for _, candidate := range deviceStatusTransitions[d] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseDeviceStatus converts raw input into a DeviceStatus.
func ParseDeviceStatus(value string) (DeviceStatus, error) {
	for _, candidate := range validDeviceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid device status %q", value)
}
