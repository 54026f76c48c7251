package commands

import (
	"context"
	"log/slog"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/domain/resource"
	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/shared"
)

// SweepCommands is the lazy expiry pass. It runs opportunistically before
// list/read operations instead of on a timer, so it must be safe to invoke
// arbitrarily often: running it twice in a row leaves the store unchanged.
type SweepCommands interface {
	Run(ctx context.Context) error
}

type sweepCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewSweepCommands(uow shared.UnitOfWork, clk clock.Clock) SweepCommands {
	return &sweepCommandsImpl{uow: uow, clock: clk}
}

func (s *sweepCommandsImpl) Run(ctx context.Context) error {
	today := s.clock.Today()
	var closed, promoted int

	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		n, err := s.closeExpired(ctx, tx, today)
		if err != nil {
			return err
		}
		closed = n

		n, err = s.promoteStarted(ctx, tx, today)
		if err != nil {
			return err
		}
		promoted = n
		return nil
	})
	if err != nil {
		return err
	}

	if closed > 0 || promoted > 0 {
		slog.Info("expiry sweep applied changes", "closed", closed, "promoted", promoted)
	}
	return nil
}

// closeExpired moves allocated/in_use bookings whose end date has passed to
// returned and frees their resources (unless a newer allocation holds one).
func (s *sweepCommandsImpl) closeExpired(ctx context.Context, tx shared.Tx, today time.Time) (int, error) {
	expired, err := tx.Requests().FindExpiredHolding(ctx, tx.DB(), today)
	if err != nil {
		return 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	for _, req := range expired {
		if err := req.Return(request.ReturnDetails{}, s.clock.Now()); err != nil {
			return 0, mapDomainErr(err)
		}
		if err := tx.Requests().Update(ctx, tx.DB(), req); err != nil {
			return 0, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := releaseResource(ctx, tx, req); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

// promoteStarted flips allocated bookings whose window has begun to in_use,
// together with their reserved resources.
func (s *sweepCommandsImpl) promoteStarted(ctx context.Context, tx shared.Tx, today time.Time) (int, error) {
	started, err := tx.Requests().FindStartedAllocated(ctx, tx.DB(), today)
	if err != nil {
		return 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	for _, req := range started {
		if err := req.MarkInUse(s.clock.Now()); err != nil {
			return 0, mapDomainErr(err)
		}
		if err := tx.Requests().Update(ctx, tx.DB(), req); err != nil {
			return 0, errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if req.ResourceID() == nil {
			continue
		}
		res, err := tx.Resources().FindByIDForUpdate(ctx, tx.DB(), *req.ResourceID())
		if err != nil {
			return 0, mapResourceLookupErr(err)
		}
		if res.Availability() != resource.StatusReserved {
			continue
		}
		if err := res.Activate(); err != nil {
			return 0, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := tx.Resources().SetAvailability(ctx, tx.DB(), res); err != nil {
			return 0, errs.Mark(err, ErrDatabaseOperationFailed)
		}
	}
	return len(started), nil
}
