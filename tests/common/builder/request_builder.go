//go:build unit || e2e

package builder

import (
	"time"

	domrequest "reservation-engine/internal/domain/request"
	reqdto "reservation-engine/internal/handler/dto/request"
	"reservation-engine/internal/usecase/commands"
	"reservation-engine/internal/usecase/queries"

	"github.com/google/uuid"
)

type RequestBuilder struct {
	ResourceID      *uuid.UUID
	ResourceTypeID  *uuid.UUID
	ProgramModuleID *uuid.UUID
	RequestType     string
	Quantity        int32
	Purpose         string
	StartDate       time.Time
	EndDate         time.Time
	Priority        domrequest.Priority
	RequestedBy     uuid.UUID
	CreatedAt       time.Time
}

func NewRequestBuilder() *RequestBuilder {
	resourceID := uuid.New()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	return &RequestBuilder{
		ResourceID:  &resourceID,
		RequestType: "equipment",
		Quantity:    1,
		Purpose:     "Field measurement session",
		StartDate:   time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 1, 25, 0, 0, 0, 0, time.UTC),
		Priority:    domrequest.PriorityMedium,
		RequestedBy: uuid.New(),
		CreatedAt:   now,
	}
}

func (b *RequestBuilder) With(mutate func(*RequestBuilder)) *RequestBuilder {
	mutate(b)
	return b
}

func (b *RequestBuilder) Schedule() *domrequest.Schedule {
	s, err := domrequest.NewSchedule(b.StartDate, b.EndDate)
	if err != nil {
		panic(err)
	}
	return &s
}

func (b *RequestBuilder) BuildDomain() (*domrequest.ReservationRequest, error) {
	return domrequest.NewReservationRequest(domrequest.NewRequestParams{
		ResourceID:      b.ResourceID,
		ResourceTypeID:  b.ResourceTypeID,
		ProgramModuleID: b.ProgramModuleID,
		RequestType:     b.RequestType,
		Quantity:        b.Quantity,
		Purpose:         b.Purpose,
		Schedule:        b.Schedule(),
		Priority:        b.Priority,
		RequestedBy:     b.RequestedBy,
	}, b.CreatedAt)
}

func (b *RequestBuilder) BuildCreateParams() commands.CreateRequestParams {
	start := b.StartDate
	end := b.EndDate
	return commands.CreateRequestParams{
		ResourceID:      b.ResourceID,
		ResourceTypeID:  b.ResourceTypeID,
		ProgramModuleID: b.ProgramModuleID,
		RequestType:     b.RequestType,
		Quantity:        b.Quantity,
		Purpose:         b.Purpose,
		StartDate:       &start,
		EndDate:         &end,
		Priority:        b.Priority,
		RequestedBy:     b.RequestedBy,
	}
}

func (b *RequestBuilder) BuildCreateRequestDTO() reqdto.CreateReservationRequest {
	start := b.StartDate.Format("2006-01-02")
	end := b.EndDate.Format("2006-01-02")
	return reqdto.CreateReservationRequest{
		ResourceID:      b.ResourceID,
		ResourceTypeID:  b.ResourceTypeID,
		ProgramModuleID: b.ProgramModuleID,
		RequestType:     b.RequestType,
		Quantity:        b.Quantity,
		Purpose:         b.Purpose,
		StartDate:       &start,
		EndDate:         &end,
		Priority:        string(b.Priority),
		RequestedBy:     b.RequestedBy,
	}
}

func (b *RequestBuilder) BuildView(status domrequest.Status) *queries.RequestView {
	start := b.StartDate
	end := b.EndDate
	duration := int(end.Sub(start).Hours() / 24)
	return &queries.RequestView{
		ID:           uuid.New(),
		ResourceID:   b.ResourceID,
		RequestType:  b.RequestType,
		Quantity:     b.Quantity,
		Purpose:      b.Purpose,
		StartDate:    &start,
		EndDate:      &end,
		DurationDays: &duration,
		Priority:     string(b.Priority),
		Status:       status.String(),
		RequestedBy:  b.RequestedBy,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.CreatedAt,
	}
}
