package commands

import (
	"context"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/pkg/config"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/queries"
	"reservation-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrRequestNotFound         = errs.New("reservation request not found")
	ErrResourceNotFound        = errs.New("resource not found")
	ErrValidation              = errs.New("request validation failed")
	ErrInvalidStateTransition  = errs.New("invalid state transition")
	ErrResourceConflict        = errs.New("resource conflict")
	ErrScheduleRequired        = errs.New("schedule or resource binding missing")
	ErrResourceUnavailable     = errs.New("resource cannot take assignments")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

// ConflictError carries the blocking booking so callers can surface it.
type ConflictError struct {
	Blocking shared.ConflictSnapshot
}

func (e *ConflictError) Error() string {
	return "resource already booked by request " + e.Blocking.RequestID.String() +
		" from " + e.Blocking.StartDate.Format("2006-01-02") +
		" to " + e.Blocking.EndDate.Format("2006-01-02")
}

type CreateRequestParams struct {
	ResourceID      *uuid.UUID
	ResourceTypeID  *uuid.UUID
	ProgramModuleID *uuid.UUID
	ActivityID      *uuid.UUID
	RequestType     string
	Quantity        int32
	Purpose         string
	StartDate       *time.Time
	EndDate         *time.Time
	Priority        request.Priority
	RequestedBy     uuid.UUID
}

type CreateRequestResult struct {
	Request         *queries.RequestView
	HasConflict     bool
	ConflictDetails *queries.ConflictDetails
	QueuePosition   *int
}

type ReturnParams struct {
	Condition *string
	Notes     *string
}

type ResubmitParams struct {
	StartDate *time.Time
	EndDate   *time.Time
	Purpose   *string
}

type RequestCommands interface {
	CreateRequest(ctx context.Context, p CreateRequestParams) (*CreateRequestResult, error)
	Approve(ctx context.Context, requestID, approverID uuid.UUID) (*queries.RequestView, error)
	Reject(ctx context.Context, requestID, approverID uuid.UUID, reason string) (*queries.RequestView, error)
	ReturnForAmendment(ctx context.Context, requestID, approverID uuid.UUID, notes string) (*queries.RequestView, error)
	Resubmit(ctx context.Context, requestID uuid.UUID, p ResubmitParams) (*queries.RequestView, error)
	BindResource(ctx context.Context, requestID, resourceID uuid.UUID) (*queries.RequestView, error)
	Allocate(ctx context.Context, requestID, allocatorID uuid.UUID) (*queries.RequestView, error)
	Return(ctx context.Context, requestID uuid.UUID, p ReturnParams) (*queries.RequestView, error)
	Delete(ctx context.Context, requestID uuid.UUID) error
}

type requestCommandsImpl struct {
	uow            shared.UnitOfWork
	requestQueries queries.RequestQueries
	clock          clock.Clock
	policy         config.EngineConfig
}

func NewRequestCommands(
	uow shared.UnitOfWork,
	requestQueries queries.RequestQueries,
	clk clock.Clock,
	policy config.EngineConfig,
) RequestCommands {
	return &requestCommandsImpl{
		uow:            uow,
		requestQueries: requestQueries,
		clock:          clk,
		policy:         policy,
	}
}

func (c *requestCommandsImpl) CreateRequest(ctx context.Context, p CreateRequestParams) (*CreateRequestResult, error) {
	schedule, err := scheduleFromDates(p.StartDate, p.EndDate)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	req, err := request.NewReservationRequest(request.NewRequestParams{
		ResourceID:      p.ResourceID,
		ResourceTypeID:  p.ResourceTypeID,
		ProgramModuleID: p.ProgramModuleID,
		ActivityID:      p.ActivityID,
		RequestType:     p.RequestType,
		Quantity:        p.Quantity,
		Purpose:         p.Purpose,
		Schedule:        schedule,
		Priority:        p.Priority,
		RequestedBy:     p.RequestedBy,
	}, c.clock.Now())
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	result := &CreateRequestResult{}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if p.ResourceID != nil {
			if _, resErr := tx.Resources().FindByID(ctx, tx.DB(), *p.ResourceID); resErr != nil {
				return mapResourceLookupErr(resErr)
			}
		}

		requestID, createErr := tx.Requests().Create(ctx, tx.DB(), req)
		if createErr != nil {
			return errs.Mark(createErr, ErrDatabaseOperationFailed)
		}

		// Conflicts at creation are a soft signal: the request is still
		// created, only flagged for the approver.
		if req.ResourceID() != nil && req.Schedule() != nil {
			blocking, confErr := tx.Requests().FirstOverlapping(
				ctx, tx.DB(),
				*req.ResourceID(), req.Schedule().Start(), req.Schedule().End(),
				requestID, request.ActiveStatuses,
			)
			if confErr != nil {
				return errs.Mark(confErr, ErrDatabaseOperationFailed)
			}
			if blocking != nil {
				result.HasConflict = true
				result.ConflictDetails = conflictDetailsFromSnapshot(blocking)
			}

			earlier, rankErr := tx.Requests().CountEarlierPending(
				ctx, tx.DB(),
				*req.ResourceID(), req.Schedule().Start(), req.Schedule().End(),
				req.CreatedAt(), requestID,
			)
			if rankErr != nil {
				return errs.Mark(rankErr, ErrDatabaseOperationFailed)
			}
			pos := earlier + 1
			result.QueuePosition = &pos
		}

		if notifyErr := c.notifyQueued(ctx, tx, req, result); notifyErr != nil {
			return errs.Mark(notifyErr, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := c.requestQueries.GetByIDSystem(ctx, req.ID())
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	result.Request = view
	return result, nil
}

func (c *requestCommandsImpl) Approve(ctx context.Context, requestID, approverID uuid.UUID) (*queries.RequestView, error) {
	return c.transition(ctx, requestID, func(ctx context.Context, tx shared.Tx, req *request.ReservationRequest) error {
		if err := req.Approve(approverID, c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}

		// Policy knob: deployments that want overlapping requests caught at
		// review time run the conflict check here as well.
		if c.policy.BlockConflictingApprovals && req.ResourceID() != nil && req.Schedule() != nil {
			blocking, err := tx.Requests().FirstOverlapping(
				ctx, tx.DB(),
				*req.ResourceID(), req.Schedule().Start(), req.Schedule().End(),
				req.ID(), request.ActiveStatuses,
			)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			if blocking != nil {
				return errs.Mark(&ConflictError{Blocking: *blocking}, ErrResourceConflict)
			}
		}

		return c.notifyStatus(ctx, tx, req, "request_approved")
	})
}

func (c *requestCommandsImpl) Reject(ctx context.Context, requestID, approverID uuid.UUID, reason string) (*queries.RequestView, error) {
	return c.transition(ctx, requestID, func(ctx context.Context, tx shared.Tx, req *request.ReservationRequest) error {
		if err := req.Reject(approverID, reason, c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}
		return c.notifyStatus(ctx, tx, req, "request_rejected")
	})
}

func (c *requestCommandsImpl) ReturnForAmendment(ctx context.Context, requestID, approverID uuid.UUID, notes string) (*queries.RequestView, error) {
	return c.transition(ctx, requestID, func(ctx context.Context, tx shared.Tx, req *request.ReservationRequest) error {
		if err := req.ReturnForAmendment(approverID, notes, c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}
		return c.notifyStatus(ctx, tx, req, "request_returned_for_amendment")
	})
}

func (c *requestCommandsImpl) Resubmit(ctx context.Context, requestID uuid.UUID, p ResubmitParams) (*queries.RequestView, error) {
	schedule, err := scheduleFromDates(p.StartDate, p.EndDate)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	return c.transition(ctx, requestID, func(ctx context.Context, tx shared.Tx, req *request.ReservationRequest) error {
		if err := req.Resubmit(schedule, p.Purpose, c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}
		return c.notifyStatus(ctx, tx, req, "request_resubmitted")
	})
}

func (c *requestCommandsImpl) BindResource(ctx context.Context, requestID, resourceID uuid.UUID) (*queries.RequestView, error) {
	return c.transition(ctx, requestID, func(ctx context.Context, tx shared.Tx, req *request.ReservationRequest) error {
		if _, err := tx.Resources().FindByID(ctx, tx.DB(), resourceID); err != nil {
			return mapResourceLookupErr(err)
		}
		if err := req.BindResource(resourceID, c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}
		return nil
	})
}

// Delete does not go through transition: the soft-deleted row is invisible
// to the read store, so there is no view to re-read afterwards.
func (c *requestCommandsImpl) Delete(ctx context.Context, requestID uuid.UUID) error {
	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		req, err := tx.Requests().FindByIDForUpdate(ctx, tx.DB(), requestID)
		if err != nil {
			return mapRequestLookupErr(err)
		}
		if err := req.SoftDelete(c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}
		if err := tx.Requests().Update(ctx, tx.DB(), req); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}

// transition wraps the load-mutate-store cycle shared by every lifecycle
// command: lock the request row, apply the mutation, persist, then re-read
// the view outside the transaction.
func (c *requestCommandsImpl) transition(
	ctx context.Context,
	requestID uuid.UUID,
	mutate func(ctx context.Context, tx shared.Tx, req *request.ReservationRequest) error,
) (*queries.RequestView, error) {
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		req, err := tx.Requests().FindByIDForUpdate(ctx, tx.DB(), requestID)
		if err != nil {
			return mapRequestLookupErr(err)
		}

		if err := mutate(ctx, tx, req); err != nil {
			return err
		}

		if err := tx.Requests().Update(ctx, tx.DB(), req); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view, err := c.requestQueries.GetByIDSystem(ctx, requestID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return view, nil
}

func scheduleFromDates(start, end *time.Time) (*request.Schedule, error) {
	if start == nil && end == nil {
		return nil, nil
	}
	if start == nil || end == nil {
		return nil, errs.New("both start and end dates must be provided together")
	}
	s, err := request.NewSchedule(*start, *end)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func conflictDetailsFromSnapshot(s *shared.ConflictSnapshot) *queries.ConflictDetails {
	return &queries.ConflictDetails{
		RequestID:   s.RequestID,
		RequestedBy: s.RequestedBy,
		Status:      s.Status.String(),
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
	}
}
