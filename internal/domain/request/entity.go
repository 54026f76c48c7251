package request

import (
	"errors"
	"time"

	"reservation-engine/internal/pkg/clock"

	"github.com/google/uuid"
)

var (
	ErrMissingRequester   = errors.New("requester is required")
	ErrMissingTarget      = errors.New("either a resource or a resource type is required")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidQuantity    = errors.New("quantity must be at least one")
	ErrEmptyPurpose       = errors.New("purpose is required")
	ErrInvalidTransition  = errors.New("status does not permit this transition")
	ErrScheduleRequired   = errors.New("start and end dates are required")
	ErrResourceRequired   = errors.New("request is not bound to a concrete resource")
	ErrResourceBound      = errors.New("request is already bound to a resource")
	ErrRequestDeleted     = errors.New("request has been deleted")
	ErrReasonRequired     = errors.New("a reason is required")
)

// ReservationRequest is the aggregate the allocation engine drives through its
// lifecycle. All status transitions go through the methods below; nothing else
// mutates the status or review fields.
type ReservationRequest struct {
	id               uuid.UUID
	resourceID       *uuid.UUID
	resourceTypeID   *uuid.UUID
	programModuleID  *uuid.UUID
	activityID       *uuid.UUID
	requestType      string
	quantity         int32
	purpose          string
	schedule         *Schedule
	priority         Priority
	status           Status
	requestedBy      uuid.UUID
	approvedBy       *uuid.UUID
	fulfilledBy      *uuid.UUID
	rejectionReason  *string
	reviewNotes      *string
	actualReturnDate *time.Time
	returnCondition  *string
	createdAt        time.Time
	updatedAt        time.Time
	deletedAt        *time.Time
}

type NewRequestParams struct {
	ResourceID      *uuid.UUID
	ResourceTypeID  *uuid.UUID
	ProgramModuleID *uuid.UUID
	ActivityID      *uuid.UUID
	RequestType     string
	Quantity        int32
	Purpose         string
	Schedule        *Schedule
	Priority        Priority
	RequestedBy     uuid.UUID
}

func NewReservationRequest(p NewRequestParams, now time.Time) (*ReservationRequest, error) {
	if p.RequestedBy == uuid.Nil {
		return nil, ErrMissingRequester
	}
	if p.ResourceID == nil && p.ResourceTypeID == nil {
		return nil, ErrMissingTarget
	}
	if p.Priority == "" {
		p.Priority = PriorityMedium
	}
	if !p.Priority.IsValid() {
		return nil, ErrInvalidPriority
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	if p.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if p.Purpose == "" {
		return nil, ErrEmptyPurpose
	}

	return &ReservationRequest{
		id:              uuid.New(),
		resourceID:      p.ResourceID,
		resourceTypeID:  p.ResourceTypeID,
		programModuleID: p.ProgramModuleID,
		activityID:      p.ActivityID,
		requestType:     p.RequestType,
		quantity:        p.Quantity,
		purpose:         p.Purpose,
		schedule:        p.Schedule,
		priority:        p.Priority,
		status:          StatusPending,
		requestedBy:     p.RequestedBy,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

func ReconstructReservationRequest(
	id uuid.UUID,
	resourceID, resourceTypeID, programModuleID, activityID *uuid.UUID,
	requestType string,
	quantity int32,
	purpose string,
	schedule *Schedule,
	priority Priority,
	status Status,
	requestedBy uuid.UUID,
	approvedBy, fulfilledBy *uuid.UUID,
	rejectionReason, reviewNotes *string,
	actualReturnDate *time.Time,
	returnCondition *string,
	createdAt, updatedAt time.Time,
	deletedAt *time.Time,
) *ReservationRequest {
	return &ReservationRequest{
		id:               id,
		resourceID:       resourceID,
		resourceTypeID:   resourceTypeID,
		programModuleID:  programModuleID,
		activityID:       activityID,
		requestType:      requestType,
		quantity:         quantity,
		purpose:          purpose,
		schedule:         schedule,
		priority:         priority,
		status:           status,
		requestedBy:      requestedBy,
		approvedBy:       approvedBy,
		fulfilledBy:      fulfilledBy,
		rejectionReason:  rejectionReason,
		reviewNotes:      reviewNotes,
		actualReturnDate: actualReturnDate,
		returnCondition:  returnCondition,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
		deletedAt:        deletedAt,
	}
}

// Approve records the review decision. No resource mutation happens here:
// approval reserves a decision, not physical custody.
func (r *ReservationRequest) Approve(approver uuid.UUID, now time.Time) error {
	if r.deletedAt != nil {
		return ErrRequestDeleted
	}
	if r.status != StatusPending {
		return ErrInvalidTransition
	}
	r.status = StatusApproved
	r.approvedBy = &approver
	r.updatedAt = now
	return nil
}

// Reject only applies before allocation; once a resource has been taken, the
// booking ends through Return.
func (r *ReservationRequest) Reject(approver uuid.UUID, reason string, now time.Time) error {
	if r.deletedAt != nil {
		return ErrRequestDeleted
	}
	if reason == "" {
		return ErrReasonRequired
	}
	switch r.status {
	case StatusPending, StatusApproved, StatusReturnedForAmendment:
	default:
		return ErrInvalidTransition
	}
	r.status = StatusRejected
	r.approvedBy = &approver
	r.rejectionReason = &reason
	r.updatedAt = now
	return nil
}

// ReturnForAmendment shares Reject's guard: any pre-allocation status can be
// sent back, including one already waiting on amendments.
func (r *ReservationRequest) ReturnForAmendment(approver uuid.UUID, notes string, now time.Time) error {
	if r.deletedAt != nil {
		return ErrRequestDeleted
	}
	switch r.status {
	case StatusPending, StatusApproved, StatusReturnedForAmendment:
	default:
		return ErrInvalidTransition
	}
	r.status = StatusReturnedForAmendment
	r.approvedBy = &approver
	r.reviewNotes = &notes
	r.updatedAt = now
	return nil
}

// Resubmit re-enters the queue after amendment, clearing the prior review.
func (r *ReservationRequest) Resubmit(schedule *Schedule, purpose *string, now time.Time) error {
	if r.deletedAt != nil {
		return ErrRequestDeleted
	}
	if r.status != StatusReturnedForAmendment {
		return ErrInvalidTransition
	}
	if schedule != nil {
		r.schedule = schedule
	}
	if purpose != nil && *purpose != "" {
		r.purpose = *purpose
	}
	r.status = StatusPending
	r.approvedBy = nil
	r.rejectionReason = nil
	r.reviewNotes = nil
	r.updatedAt = now
	return nil
}

// BindResource attaches a concrete resource to a type-only request. Until
// bound, the request never participates in conflict detection and cannot be
// allocated.
func (r *ReservationRequest) BindResource(resourceID uuid.UUID, now time.Time) error {
	if r.deletedAt != nil {
		return ErrRequestDeleted
	}
	if r.status != StatusPending && r.status != StatusApproved {
		return ErrInvalidTransition
	}
	if r.resourceID != nil {
		return ErrResourceBound
	}
	r.resourceID = &resourceID
	r.updatedAt = now
	return nil
}

// Allocate takes custody. The caller is responsible for running the conflict
// check and the resource availability write in the same transaction.
func (r *ReservationRequest) Allocate(allocator uuid.UUID, now time.Time) error {
	if r.deletedAt != nil {
		return ErrRequestDeleted
	}
	if r.status != StatusApproved {
		return ErrInvalidTransition
	}
	if r.resourceID == nil {
		return ErrResourceRequired
	}
	if r.schedule == nil {
		return ErrScheduleRequired
	}
	r.status = StatusAllocated
	r.fulfilledBy = &allocator
	r.updatedAt = now
	return nil
}

// MarkInUse is the date-triggered promotion once the booking window starts.
func (r *ReservationRequest) MarkInUse(now time.Time) error {
	if r.status != StatusAllocated {
		return ErrInvalidTransition
	}
	r.status = StatusInUse
	r.updatedAt = now
	return nil
}

// Return closes the booking. Idempotent: returning an already-returned
// request is a no-op.
func (r *ReservationRequest) Return(details ReturnDetails, now time.Time) error {
	if r.status == StatusReturned {
		return nil
	}
	if !r.status.IsHolding() {
		return ErrInvalidTransition
	}
	r.status = StatusReturned
	if r.actualReturnDate == nil {
		d := clock.Day(now)
		r.actualReturnDate = &d
	}
	if details.Condition != nil {
		r.returnCondition = details.Condition
	}
	if details.Notes != nil {
		r.reviewNotes = details.Notes
	}
	r.updatedAt = now
	return nil
}

func (r *ReservationRequest) SoftDelete(now time.Time) error {
	if r.deletedAt != nil {
		return nil
	}
	if r.status.IsHolding() {
		return ErrInvalidTransition
	}
	r.deletedAt = &now
	r.updatedAt = now
	return nil
}

func (r *ReservationRequest) IsDeleted() bool {
	return r.deletedAt != nil
}

func (r *ReservationRequest) ID() uuid.UUID               { return r.id }
func (r *ReservationRequest) ResourceID() *uuid.UUID      { return r.resourceID }
func (r *ReservationRequest) ResourceTypeID() *uuid.UUID  { return r.resourceTypeID }
func (r *ReservationRequest) ProgramModuleID() *uuid.UUID { return r.programModuleID }
func (r *ReservationRequest) ActivityID() *uuid.UUID      { return r.activityID }
func (r *ReservationRequest) RequestType() string         { return r.requestType }
func (r *ReservationRequest) Quantity() int32             { return r.quantity }
func (r *ReservationRequest) Purpose() string             { return r.purpose }
func (r *ReservationRequest) Schedule() *Schedule         { return r.schedule }
func (r *ReservationRequest) Priority() Priority          { return r.priority }
func (r *ReservationRequest) Status() Status              { return r.status }
func (r *ReservationRequest) RequestedBy() uuid.UUID      { return r.requestedBy }
func (r *ReservationRequest) ApprovedBy() *uuid.UUID      { return r.approvedBy }
func (r *ReservationRequest) FulfilledBy() *uuid.UUID     { return r.fulfilledBy }
func (r *ReservationRequest) RejectionReason() *string    { return r.rejectionReason }
func (r *ReservationRequest) ReviewNotes() *string        { return r.reviewNotes }
func (r *ReservationRequest) ActualReturnDate() *time.Time { return r.actualReturnDate }
func (r *ReservationRequest) ReturnCondition() *string    { return r.returnCondition }
func (r *ReservationRequest) CreatedAt() time.Time        { return r.createdAt }
func (r *ReservationRequest) UpdatedAt() time.Time        { return r.updatedAt }
func (r *ReservationRequest) DeletedAt() *time.Time       { return r.deletedAt }
