//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/domain/resource"
	"reservation-engine/internal/pkg/clock"
	"reservation-engine/internal/pkg/config"
	"reservation-engine/internal/pkg/errs"
	"reservation-engine/internal/usecase/commands"
	"reservation-engine/tests/common/builder"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type SweepTestSuite struct {
	suite.Suite
	store    *memStore
	clock    *clock.MockClock
	commands commands.RequestCommands
	sweep    commands.SweepCommands
	ctx      context.Context

	resourceID uuid.UUID
}

func (s *SweepTestSuite) SetupTest() {
	s.store = newMemStore()
	s.clock = clock.NewMockClock(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	s.ctx = context.Background()

	res, err := resource.NewResource(uuid.New(), resource.StatusAvailable)
	s.Require().NoError(err)
	s.resourceID = res.ID()
	s.store.addResource(res)

	uow := newMemUoW(s.store)
	s.commands = commands.NewRequestCommands(uow, newMemQueries(s.store), s.clock, config.EngineConfig{})
	s.sweep = commands.NewSweepCommands(uow, s.clock)
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepTestSuite))
}

func (s *SweepTestSuite) allocate(start, end time.Time) uuid.UUID {
	b := builder.NewRequestBuilder()
	b.ResourceID = &s.resourceID
	b.StartDate = start
	b.EndDate = end

	created, err := s.commands.CreateRequest(s.ctx, b.BuildCreateParams())
	s.Require().NoError(err)
	_, err = s.commands.Approve(s.ctx, created.Request.ID, uuid.New())
	s.Require().NoError(err)
	_, err = s.commands.Allocate(s.ctx, created.Request.ID, uuid.New())
	s.Require().NoError(err)
	return created.Request.ID
}

// snapshot captures the observable state the sweep mutates, for comparing
// repeated runs.
type storeSnapshot struct {
	RequestStatuses      map[uuid.UUID]string
	ResourceAvailability map[uuid.UUID]string
}

func (s *SweepTestSuite) snapshot() storeSnapshot {
	snap := storeSnapshot{
		RequestStatuses:      make(map[uuid.UUID]string),
		ResourceAvailability: make(map[uuid.UUID]string),
	}
	for id, req := range s.store.requests {
		snap.RequestStatuses[id] = req.Status().String()
	}
	for id, res := range s.store.resources {
		snap.ResourceAvailability[id] = string(res.Availability())
	}
	return snap
}

func (s *SweepTestSuite) TestRun() {
	s.Run("closes expired bookings and frees their resources", func() {
		s.SetupTest()
		id := s.allocate(day(2025, 1, 10), day(2025, 1, 15))

		s.clock.Set(time.Date(2025, 1, 16, 8, 0, 0, 0, time.UTC))
		s.Require().NoError(s.sweep.Run(s.ctx))

		req := s.store.requests[id]
		s.Equal(request.StatusReturned, req.Status())
		s.Require().NotNil(req.ActualReturnDate())
		s.Equal(day(2025, 1, 16), *req.ActualReturnDate())
		s.Equal(resource.StatusAvailable, s.store.resources[s.resourceID].Availability())
	})

	s.Run("end date itself is not expired", func() {
		s.SetupTest()
		id := s.allocate(day(2025, 1, 10), day(2025, 1, 15))

		s.clock.Set(time.Date(2025, 1, 15, 23, 0, 0, 0, time.UTC))
		s.Require().NoError(s.sweep.Run(s.ctx))

		s.NotEqual(request.StatusReturned, s.store.requests[id].Status())
	})

	s.Run("promotes started allocations to in_use", func() {
		s.SetupTest()
		id := s.allocate(day(2025, 1, 20), day(2025, 1, 25))
		s.Equal(resource.StatusReserved, s.store.resources[s.resourceID].Availability())

		s.clock.Set(time.Date(2025, 1, 20, 7, 0, 0, 0, time.UTC))
		s.Require().NoError(s.sweep.Run(s.ctx))

		s.Equal(request.StatusInUse, s.store.requests[id].Status())
		s.Equal(resource.StatusInUse, s.store.resources[s.resourceID].Availability())
	})

	s.Run("future allocations are untouched", func() {
		s.SetupTest()
		id := s.allocate(day(2025, 1, 20), day(2025, 1, 25))

		s.Require().NoError(s.sweep.Run(s.ctx))

		s.Equal(request.StatusAllocated, s.store.requests[id].Status())
		s.Equal(resource.StatusReserved, s.store.resources[s.resourceID].Availability())
	})

	s.Run("repeated runs leave the store unchanged", func() {
		s.SetupTest()
		s.allocate(day(2025, 1, 10), day(2025, 1, 12))

		res2, err := resource.NewResource(uuid.New(), resource.StatusAvailable)
		s.Require().NoError(err)
		s.store.addResource(res2)
		b := builder.NewRequestBuilder()
		b.ResourceID = ptrOf(res2.ID())
		b.StartDate = day(2025, 1, 14)
		b.EndDate = day(2025, 1, 18)
		created, err := s.commands.CreateRequest(s.ctx, b.BuildCreateParams())
		s.Require().NoError(err)
		_, err = s.commands.Approve(s.ctx, created.Request.ID, uuid.New())
		s.Require().NoError(err)
		_, err = s.commands.Allocate(s.ctx, created.Request.ID, uuid.New())
		s.Require().NoError(err)

		s.clock.Set(time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC))
		s.Require().NoError(s.sweep.Run(s.ctx))
		first := s.snapshot()

		s.Require().NoError(s.sweep.Run(s.ctx))
		second := s.snapshot()

		s.Empty(cmp.Diff(first, second), "second sweep must be a no-op")
	})

	s.Run("expired booking does not free a resource held by a newer one", func() {
		s.SetupTest()
		expired := s.allocate(day(2025, 1, 10), day(2025, 1, 12))
		next := s.allocate(day(2025, 1, 13), day(2025, 1, 18))

		s.clock.Set(time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC))
		s.Require().NoError(s.sweep.Run(s.ctx))

		s.Equal(request.StatusReturned, s.store.requests[expired].Status())
		s.Equal(request.StatusInUse, s.store.requests[next].Status())
		s.Equal(resource.StatusInUse, s.store.resources[s.resourceID].Availability())
	})
}

// TestExpiryHandoff walks two competing bookings through the whole engine:
// the second is flagged at creation, blocked at allocation while the first
// holds the resource, and succeeds once the sweep closes the expired hold.
func (s *SweepTestSuite) TestExpiryHandoff() {
	s.SetupTest()
	first := s.allocate(day(2025, 1, 10), day(2025, 1, 15))
	s.Require().NoError(s.sweep.Run(s.ctx))
	s.Equal(request.StatusInUse, s.store.requests[first].Status())

	b := builder.NewRequestBuilder()
	b.ResourceID = &s.resourceID
	b.StartDate = day(2025, 1, 14)
	b.EndDate = day(2025, 1, 18)
	created, err := s.commands.CreateRequest(s.ctx, b.BuildCreateParams())
	s.Require().NoError(err)
	second := created.Request.ID

	s.True(created.HasConflict, "overlap with the active booking is flagged at creation")
	s.Require().NotNil(created.ConflictDetails)
	s.Equal(first, created.ConflictDetails.RequestID)

	_, err = s.commands.Approve(s.ctx, second, uuid.New())
	s.Require().NoError(err, "the flag is advisory, approval still goes through")

	_, err = s.commands.Allocate(s.ctx, second, uuid.New())
	s.Require().True(errs.Is(err, commands.ErrResourceConflict))
	var conflict *commands.ConflictError
	s.Require().True(errs.As(err, &conflict))
	s.Equal(first, conflict.Blocking.RequestID)

	s.clock.Set(time.Date(2025, 1, 16, 9, 0, 0, 0, time.UTC))
	s.Require().NoError(s.sweep.Run(s.ctx))
	s.Equal(request.StatusReturned, s.store.requests[first].Status())
	s.Equal(resource.StatusAvailable, s.store.resources[s.resourceID].Availability())

	view, err := s.commands.Allocate(s.ctx, second, uuid.New())
	s.Require().NoError(err, "the freed resource goes to the waiting booking")
	s.Equal(request.StatusAllocated.String(), view.Status)
	s.Equal(resource.StatusInUse, s.store.resources[s.resourceID].Availability())

	// The next sweep promotes the already-running booking.
	s.Require().NoError(s.sweep.Run(s.ctx))
	s.Equal(request.StatusInUse, s.store.requests[second].Status())
}

func ptrOf[T any](v T) *T {
	return &v
}
