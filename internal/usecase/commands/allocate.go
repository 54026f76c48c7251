package commands

import (
	"context"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/domain/resource"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/queries"
	"reservation-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

// Allocate is the one place where check-then-act must be atomic: the resource
// row is locked before the conflict query, so two overlapping allocations for
// the same resource serialize and the loser sees the winner's booking.
func (c *requestCommandsImpl) Allocate(ctx context.Context, requestID, allocatorID uuid.UUID) (*queries.RequestView, error) {
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		req, err := tx.Requests().FindByIDForUpdate(ctx, tx.DB(), requestID)
		if err != nil {
			return mapRequestLookupErr(err)
		}

		if req.ResourceID() == nil || req.Schedule() == nil {
			return ErrScheduleRequired
		}

		res, err := tx.Resources().FindByIDForUpdate(ctx, tx.DB(), *req.ResourceID())
		if err != nil {
			return mapResourceLookupErr(err)
		}

		// Only bookings that have actually taken the resource block; an
		// approved-but-unallocated competitor loses the race here, not earlier.
		blocking, err := tx.Requests().FirstOverlapping(
			ctx, tx.DB(),
			*req.ResourceID(), req.Schedule().Start(), req.Schedule().End(),
			req.ID(), request.HoldingStatuses,
		)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if blocking != nil {
			return errs.Mark(&ConflictError{Blocking: *blocking}, ErrResourceConflict)
		}

		if err := req.Allocate(allocatorID, c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}

		today := c.clock.Today()
		status := resource.StatusForAllocation(req.Schedule().Start(), today)
		if err := res.Assign(status, req.ProgramModuleID(), today); err != nil {
			return errs.Mark(err, ErrResourceUnavailable)
		}

		if err := tx.Requests().Update(ctx, tx.DB(), req); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := tx.Resources().SetAvailability(ctx, tx.DB(), res); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return c.notifyStatus(ctx, tx, req, "request_allocated")
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

// Return closes the booking on demand; the lazy sweep performs the same
// closure for bookings nobody returned explicitly.
func (c *requestCommandsImpl) Return(ctx context.Context, requestID uuid.UUID, p ReturnParams) (*queries.RequestView, error) {
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		req, err := tx.Requests().FindByIDForUpdate(ctx, tx.DB(), requestID)
		if err != nil {
			return mapRequestLookupErr(err)
		}

		if req.Status() == request.StatusReturned {
			return nil // idempotent
		}

		details := request.ReturnDetails{Condition: p.Condition, Notes: p.Notes}
		if err := req.Return(details, c.clock.Now()); err != nil {
			return mapDomainErr(err)
		}

		if err := tx.Requests().Update(ctx, tx.DB(), req); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := releaseResource(ctx, tx, req); err != nil {
			return err
		}
		return c.notifyStatus(ctx, tx, req, "request_returned")
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

// releaseResource frees the resource after a closure, unless another holding
// booking still claims it (a newer allocation may have taken over already).
func releaseResource(ctx context.Context, tx shared.Tx, req *request.ReservationRequest) error {
	if req.ResourceID() == nil {
		return nil
	}

	res, err := tx.Resources().FindByIDForUpdate(ctx, tx.DB(), *req.ResourceID())
	if err != nil {
		return mapResourceLookupErr(err)
	}

	held, err := tx.Requests().HasOtherHolding(ctx, tx.DB(), *req.ResourceID(), req.ID())
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if held {
		return nil
	}

	res.Release()
	if err := tx.Resources().SetAvailability(ctx, tx.DB(), res); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}
