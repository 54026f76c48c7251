package request

import (
	"strings"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/usecase/commands"

	"github.com/google/uuid"
)

// Dates travel as "2006-01-02" strings; the engine never needs finer
// granularity than a day.
const dateLayout = "2006-01-02"

type CreateReservationRequest struct {
	ResourceID      *uuid.UUID `json:"resource_id,omitempty"`
	ResourceTypeID  *uuid.UUID `json:"resource_type_id,omitempty"`
	ProgramModuleID *uuid.UUID `json:"program_module_id,omitempty"`
	ActivityID      *uuid.UUID `json:"activity_id,omitempty"`
	RequestType     string     `json:"request_type"`
	Quantity        int32      `json:"quantity"`
	Purpose         string     `json:"purpose" binding:"required"`
	StartDate       *string    `json:"start_date,omitempty"`
	EndDate         *string    `json:"end_date,omitempty"`
	Priority        string     `json:"priority"`
	RequestedBy     uuid.UUID  `json:"requested_by" binding:"required"`
}

func (r CreateReservationRequest) ToParams() (commands.CreateRequestParams, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return commands.CreateRequestParams{}, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return commands.CreateRequestParams{}, err
	}

	return commands.CreateRequestParams{
		ResourceID:      r.ResourceID,
		ResourceTypeID:  r.ResourceTypeID,
		ProgramModuleID: r.ProgramModuleID,
		ActivityID:      r.ActivityID,
		RequestType:     strings.TrimSpace(r.RequestType),
		Quantity:        r.Quantity,
		Purpose:         strings.TrimSpace(r.Purpose),
		StartDate:       start,
		EndDate:         end,
		Priority:        request.Priority(r.Priority),
		RequestedBy:     r.RequestedBy,
	}, nil
}

type ApproveRequest struct {
	ApproverID uuid.UUID `json:"approver_id" binding:"required"`
}

type RejectRequest struct {
	ApproverID uuid.UUID `json:"approver_id" binding:"required"`
	Reason     string    `json:"reason" binding:"required"`
}

type ReturnForAmendmentRequest struct {
	ApproverID uuid.UUID `json:"approver_id" binding:"required"`
	Notes      string    `json:"notes" binding:"required"`
}

type ResubmitRequest struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Purpose   *string `json:"purpose,omitempty"`
}

func (r ResubmitRequest) ToParams() (commands.ResubmitParams, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return commands.ResubmitParams{}, err
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return commands.ResubmitParams{}, err
	}
	return commands.ResubmitParams{
		StartDate: start,
		EndDate:   end,
		Purpose:   r.Purpose,
	}, nil
}

type BindResourceRequest struct {
	ResourceID uuid.UUID `json:"resource_id" binding:"required"`
}

type AllocateRequest struct {
	AllocatorID uuid.UUID `json:"allocator_id" binding:"required"`
}

type ReturnRequest struct {
	Condition *string `json:"condition,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
