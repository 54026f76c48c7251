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

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type RequestCommandsTestSuite struct {
	suite.Suite
	store    *memStore
	clock    *clock.MockClock
	commands commands.RequestCommands
	ctx      context.Context

	resourceID uuid.UUID
}

func (s *RequestCommandsTestSuite) SetupTest() {
	s.setupWithPolicy(config.EngineConfig{})
}

func (s *RequestCommandsTestSuite) setupWithPolicy(policy config.EngineConfig) {
	s.store = newMemStore()
	s.clock = clock.NewMockClock(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	s.ctx = context.Background()

	res, err := resource.NewResource(uuid.New(), resource.StatusAvailable)
	s.Require().NoError(err)
	s.resourceID = res.ID()
	s.store.addResource(res)

	s.commands = commands.NewRequestCommands(
		newMemUoW(s.store),
		newMemQueries(s.store),
		s.clock,
		policy,
	)
}

func TestRequestCommandsSuite(t *testing.T) {
	suite.Run(t, new(RequestCommandsTestSuite))
}

func (s *RequestCommandsTestSuite) createParams(start, end time.Time) commands.CreateRequestParams {
	b := builder.NewRequestBuilder()
	b.ResourceID = &s.resourceID
	b.StartDate = start
	b.EndDate = end
	return b.BuildCreateParams()
}

func (s *RequestCommandsTestSuite) mustCreate(start, end time.Time) *commands.CreateRequestResult {
	result, err := s.commands.CreateRequest(s.ctx, s.createParams(start, end))
	s.Require().NoError(err)
	s.Require().NotNil(result)
	return result
}

func (s *RequestCommandsTestSuite) TestCreateRequest() {
	s.Run("first request has no conflict and heads the queue", func() {
		s.SetupTest()
		result := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))

		s.Equal(request.StatusPending.String(), result.Request.Status)
		s.False(result.HasConflict)
		s.Nil(result.ConflictDetails)
		s.Require().NotNil(result.QueuePosition)
		s.Equal(1, *result.QueuePosition)
		s.Len(s.store.jobsByTopic("request_queued"), 1)
		s.Empty(s.store.jobsByTopic("request_conflict_detected"))
	})

	s.Run("overlap with an approved request is flagged but not rejected", func() {
		s.SetupTest()
		first := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		_, err := s.commands.Approve(s.ctx, first.Request.ID, uuid.New())
		s.Require().NoError(err)

		second := s.mustCreate(day(2025, 1, 25), day(2025, 1, 28))
		s.True(second.HasConflict)
		s.Require().NotNil(second.ConflictDetails)
		s.Equal(first.Request.ID, second.ConflictDetails.RequestID)
		s.Equal(request.StatusPending.String(), second.Request.Status)
		s.Len(s.store.jobsByTopic("request_conflict_detected"), 1)
	})

	s.Run("pending competitors do not trigger the conflict flag", func() {
		s.SetupTest()
		s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		second := s.mustCreate(day(2025, 1, 22), day(2025, 1, 26))
		s.False(second.HasConflict)
	})

	s.Run("queue position follows creation order", func() {
		s.SetupTest()
		first := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		s.clock.Add(time.Minute)
		second := s.mustCreate(day(2025, 1, 22), day(2025, 1, 27))
		s.clock.Add(time.Minute)
		third := s.mustCreate(day(2025, 1, 24), day(2025, 1, 26))

		s.Equal(1, *first.QueuePosition)
		s.Equal(2, *second.QueuePosition)
		s.Equal(3, *third.QueuePosition)
	})

	s.Run("non-overlapping request starts its own queue", func() {
		s.SetupTest()
		s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		s.clock.Add(time.Minute)
		other := s.mustCreate(day(2025, 2, 10), day(2025, 2, 12))
		s.Equal(1, *other.QueuePosition)
	})

	s.Run("type-only request carries no conflict or queue annotations", func() {
		s.SetupTest()
		b := builder.NewRequestBuilder()
		typeID := uuid.New()
		b.ResourceID = nil
		b.ResourceTypeID = &typeID
		result, err := s.commands.CreateRequest(s.ctx, b.BuildCreateParams())
		s.Require().NoError(err)
		s.False(result.HasConflict)
		s.Nil(result.QueuePosition)
	})

	s.Run("start date without end date fails validation", func() {
		s.SetupTest()
		params := s.createParams(day(2025, 1, 20), day(2025, 1, 25))
		params.EndDate = nil
		_, err := s.commands.CreateRequest(s.ctx, params)
		s.True(errs.Is(err, commands.ErrValidation))
	})

	s.Run("unknown resource fails", func() {
		s.SetupTest()
		params := s.createParams(day(2025, 1, 20), day(2025, 1, 25))
		unknown := uuid.New()
		params.ResourceID = &unknown
		_, err := s.commands.CreateRequest(s.ctx, params)
		s.True(errs.Is(err, commands.ErrResourceNotFound))
	})
}

func (s *RequestCommandsTestSuite) TestApprove() {
	s.Run("approves a pending request", func() {
		s.SetupTest()
		created := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		approver := uuid.New()

		view, err := s.commands.Approve(s.ctx, created.Request.ID, approver)
		s.Require().NoError(err)
		s.Equal(request.StatusApproved.String(), view.Status)
		s.Require().NotNil(view.ApprovedBy)
		s.Equal(approver, *view.ApprovedBy)
		s.Len(s.store.jobsByTopic("request_approved"), 1)
	})

	s.Run("second approval fails", func() {
		s.SetupTest()
		created := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		_, err := s.commands.Approve(s.ctx, created.Request.ID, uuid.New())
		s.Require().NoError(err)
		_, err = s.commands.Approve(s.ctx, created.Request.ID, uuid.New())
		s.True(errs.Is(err, commands.ErrInvalidStateTransition))
	})

	s.Run("missing request", func() {
		s.SetupTest()
		_, err := s.commands.Approve(s.ctx, uuid.New(), uuid.New())
		s.True(errs.Is(err, commands.ErrRequestNotFound))
	})

	s.Run("overlapping approvals coexist under the default policy", func() {
		s.SetupTest()
		first := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		second := s.mustCreate(day(2025, 1, 23), day(2025, 1, 27))

		_, err := s.commands.Approve(s.ctx, first.Request.ID, uuid.New())
		s.Require().NoError(err)
		_, err = s.commands.Approve(s.ctx, second.Request.ID, uuid.New())
		s.NoError(err)
	})

	s.Run("strict policy rejects the second overlapping approval", func() {
		s.setupWithPolicy(config.EngineConfig{BlockConflictingApprovals: true})
		first := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		second := s.mustCreate(day(2025, 1, 23), day(2025, 1, 27))

		_, err := s.commands.Approve(s.ctx, first.Request.ID, uuid.New())
		s.Require().NoError(err)
		_, err = s.commands.Approve(s.ctx, second.Request.ID, uuid.New())
		s.True(errs.Is(err, commands.ErrResourceConflict))
	})
}

func (s *RequestCommandsTestSuite) TestReviewFlow() {
	s.Run("reject records the reason", func() {
		s.SetupTest()
		created := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))

		view, err := s.commands.Reject(s.ctx, created.Request.ID, uuid.New(), "double booking")
		s.Require().NoError(err)
		s.Equal(request.StatusRejected.String(), view.Status)
		s.Len(s.store.jobsByTopic("request_rejected"), 1)
	})

	s.Run("return for amendment then resubmit", func() {
		s.SetupTest()
		created := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))

		view, err := s.commands.ReturnForAmendment(s.ctx, created.Request.ID, uuid.New(), "shorten the window")
		s.Require().NoError(err)
		s.Equal(request.StatusReturnedForAmendment.String(), view.Status)

		newStart := day(2025, 1, 21)
		newEnd := day(2025, 1, 23)
		view, err = s.commands.Resubmit(s.ctx, created.Request.ID, commands.ResubmitParams{
			StartDate: &newStart,
			EndDate:   &newEnd,
		})
		s.Require().NoError(err)
		s.Equal(request.StatusPending.String(), view.Status)
		s.Nil(view.ApprovedBy)
		s.Require().NotNil(view.StartDate)
		s.Equal(newStart, *view.StartDate)
	})

	s.Run("resubmitting a pending request fails", func() {
		s.SetupTest()
		created := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		_, err := s.commands.Resubmit(s.ctx, created.Request.ID, commands.ResubmitParams{})
		s.True(errs.Is(err, commands.ErrInvalidStateTransition))
	})
}

func (s *RequestCommandsTestSuite) TestBindResource() {
	s.Run("binds a type-only request to a concrete resource", func() {
		s.SetupTest()
		b := builder.NewRequestBuilder()
		typeID := uuid.New()
		b.ResourceID = nil
		b.ResourceTypeID = &typeID
		created, err := s.commands.CreateRequest(s.ctx, b.BuildCreateParams())
		s.Require().NoError(err)

		view, err := s.commands.BindResource(s.ctx, created.Request.ID, s.resourceID)
		s.Require().NoError(err)
		s.Require().NotNil(view.ResourceID)
		s.Equal(s.resourceID, *view.ResourceID)
	})

	s.Run("rejects an unknown resource", func() {
		s.SetupTest()
		b := builder.NewRequestBuilder()
		typeID := uuid.New()
		b.ResourceID = nil
		b.ResourceTypeID = &typeID
		created, err := s.commands.CreateRequest(s.ctx, b.BuildCreateParams())
		s.Require().NoError(err)

		_, err = s.commands.BindResource(s.ctx, created.Request.ID, uuid.New())
		s.True(errs.Is(err, commands.ErrResourceNotFound))
	})
}

func (s *RequestCommandsTestSuite) TestDelete() {
	s.Run("soft deletes a pending request", func() {
		s.SetupTest()
		created := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		s.Require().NoError(s.commands.Delete(s.ctx, created.Request.ID))

		req := s.store.requests[created.Request.ID]
		s.True(req.IsDeleted())

		// The deleted row is gone as far as lookups are concerned.
		err := s.commands.Delete(s.ctx, created.Request.ID)
		s.True(errs.Is(err, commands.ErrRequestNotFound))
	})

	s.Run("refuses while the booking holds a resource", func() {
		s.SetupTest()
		created := s.mustCreate(day(2025, 1, 20), day(2025, 1, 25))
		_, err := s.commands.Approve(s.ctx, created.Request.ID, uuid.New())
		s.Require().NoError(err)
		_, err = s.commands.Allocate(s.ctx, created.Request.ID, uuid.New())
		s.Require().NoError(err)

		s.True(errs.Is(s.commands.Delete(s.ctx, created.Request.ID), commands.ErrInvalidStateTransition))
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
