package resource

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnderMaintenance = errors.New("resource is under maintenance")
	ErrInvalidStatus    = errors.New("invalid availability status")
)

// Resource is the engine's view of a catalog entry: identity plus the
// availability flag and current assignment. Name, type, cost and condition
// stay with the catalog; the engine never touches them.
type Resource struct {
	id                uuid.UUID
	availability      AvailabilityStatus
	assignedToProgram *uuid.UUID
	assignmentDate    *time.Time
}

func NewResource(id uuid.UUID, availability AvailabilityStatus) (*Resource, error) {
	if !availability.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Resource{id: id, availability: availability}, nil
}

func ReconstructResource(
	id uuid.UUID,
	availability AvailabilityStatus,
	assignedToProgram *uuid.UUID,
	assignmentDate *time.Time,
) *Resource {
	return &Resource{
		id:                id,
		availability:      availability,
		assignedToProgram: assignedToProgram,
		assignmentDate:    assignmentDate,
	}
}

// Assign flips the availability flag when a booking takes the resource.
func (r *Resource) Assign(status AvailabilityStatus, programID *uuid.UUID, date time.Time) error {
	if r.availability == StatusMaintenance {
		return ErrUnderMaintenance
	}
	if status != StatusReserved && status != StatusInUse {
		return ErrInvalidStatus
	}
	r.availability = status
	r.assignedToProgram = programID
	r.assignmentDate = &date
	return nil
}

// Activate promotes a reserved resource to in_use once its booking starts.
func (r *Resource) Activate() error {
	if r.availability != StatusReserved {
		return ErrInvalidStatus
	}
	r.availability = StatusInUse
	return nil
}

// Release returns the resource to the pool and clears the assignment.
func (r *Resource) Release() {
	if r.availability == StatusMaintenance {
		return
	}
	r.availability = StatusAvailable
	r.assignedToProgram = nil
	r.assignmentDate = nil
}

func (r *Resource) IsAvailable() bool {
	return r.availability == StatusAvailable
}

func (r *Resource) ID() uuid.UUID                    { return r.id }
func (r *Resource) Availability() AvailabilityStatus { return r.availability }
func (r *Resource) AssignedToProgram() *uuid.UUID    { return r.assignedToProgram }
func (r *Resource) AssignmentDate() *time.Time       { return r.assignmentDate }
