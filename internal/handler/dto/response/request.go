package response

import (
	"time"

	"reservation-engine/internal/usecase/commands"
	"reservation-engine/internal/usecase/queries"

	"github.com/google/uuid"
)

type ConflictResponse struct {
	RequestID   uuid.UUID `json:"requestId"`
	RequestedBy uuid.UUID `json:"requestedBy"`
	Status      string    `json:"status"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
}

type ReservationRequestResponse struct {
	ID               uuid.UUID         `json:"id"`
	ResourceID       *uuid.UUID        `json:"resourceId,omitempty"`
	ResourceTypeID   *uuid.UUID        `json:"resourceTypeId,omitempty"`
	ProgramModuleID  *uuid.UUID        `json:"programModuleId,omitempty"`
	ActivityID       *uuid.UUID        `json:"activityId,omitempty"`
	RequestType      string            `json:"requestType"`
	Quantity         int32             `json:"quantity"`
	Purpose          string            `json:"purpose"`
	StartDate        *string           `json:"startDate,omitempty"`
	EndDate          *string           `json:"endDate,omitempty"`
	DurationDays     *int              `json:"durationDays,omitempty"`
	Priority         string            `json:"priority"`
	Status           string            `json:"status"`
	RequestedBy      uuid.UUID         `json:"requestedBy"`
	ApprovedBy       *uuid.UUID        `json:"approvedBy,omitempty"`
	FulfilledBy      *uuid.UUID        `json:"fulfilledBy,omitempty"`
	RejectionReason  *string           `json:"rejectionReason,omitempty"`
	ReviewNotes      *string           `json:"reviewNotes,omitempty"`
	ActualReturnDate *string           `json:"actualReturnDate,omitempty"`
	ReturnCondition  *string           `json:"returnCondition,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	HasConflict      bool              `json:"hasConflict"`
	ConflictDetails  *ConflictResponse `json:"conflictDetails,omitempty"`
	QueuePosition    *int              `json:"queuePosition,omitempty"`
}

type CreateReservationRequestResponse struct {
	Request         *ReservationRequestResponse `json:"request"`
	HasConflict     bool                        `json:"hasConflict"`
	ConflictDetails *ConflictResponse           `json:"conflictDetails,omitempty"`
	QueuePosition   *int                        `json:"queuePosition,omitempty"`
}

func FromRequestView(v *queries.RequestView) *ReservationRequestResponse {
	return &ReservationRequestResponse{
		ID:               v.ID,
		ResourceID:       v.ResourceID,
		ResourceTypeID:   v.ResourceTypeID,
		ProgramModuleID:  v.ProgramModuleID,
		ActivityID:       v.ActivityID,
		RequestType:      v.RequestType,
		Quantity:         v.Quantity,
		Purpose:          v.Purpose,
		StartDate:        formatDate(v.StartDate),
		EndDate:          formatDate(v.EndDate),
		DurationDays:     v.DurationDays,
		Priority:         v.Priority,
		Status:           v.Status,
		RequestedBy:      v.RequestedBy,
		ApprovedBy:       v.ApprovedBy,
		FulfilledBy:      v.FulfilledBy,
		RejectionReason:  v.RejectionReason,
		ReviewNotes:      v.ReviewNotes,
		ActualReturnDate: formatDate(v.ActualReturnDate),
		ReturnCondition:  v.ReturnCondition,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
		HasConflict:      v.HasConflict,
		ConflictDetails:  fromConflictDetails(v.ConflictDetails),
		QueuePosition:    v.QueuePosition,
	}
}

func FromCreateResult(r *commands.CreateRequestResult) *CreateReservationRequestResponse {
	return &CreateReservationRequestResponse{
		Request:         FromRequestView(r.Request),
		HasConflict:     r.HasConflict,
		ConflictDetails: fromConflictDetails(r.ConflictDetails),
		QueuePosition:   r.QueuePosition,
	}
}

func fromConflictDetails(d *queries.ConflictDetails) *ConflictResponse {
	if d == nil {
		return nil
	}
	return &ConflictResponse{
		RequestID:   d.RequestID,
		RequestedBy: d.RequestedBy,
		Status:      d.Status,
		StartDate:   d.StartDate.Format("2006-01-02"),
		EndDate:     d.EndDate.Format("2006-01-02"),
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
