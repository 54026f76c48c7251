package resource

import "time"

// AvailabilityStatus is the resource-side flag the engine keeps consistent
// with request lifecycles. Only the allocation transitions write it.
type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusReserved    AvailabilityStatus = "reserved"
	StatusInUse       AvailabilityStatus = "in_use"
	StatusMaintenance AvailabilityStatus = "maintenance"
)

func (s AvailabilityStatus) String() string {
	return string(s)
}

func (s AvailabilityStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusInUse, StatusMaintenance:
		return true
	default:
		return false
	}
}

// StatusForAllocation is the availability a resource takes when a booking is
// allocated: reserved while the window is still in the future, in_use once it
// has started.
func StatusForAllocation(startDate, today time.Time) AvailabilityStatus {
	if startDate.After(today) {
		return StatusReserved
	}
	return StatusInUse
}
