package queries

import (
	"context"
	"log/slog"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type RequestView struct {
	ID               uuid.UUID  `json:"id"`
	ResourceID       *uuid.UUID `json:"resource_id,omitempty"`
	ResourceTypeID   *uuid.UUID `json:"resource_type_id,omitempty"`
	ProgramModuleID  *uuid.UUID `json:"program_module_id,omitempty"`
	ActivityID       *uuid.UUID `json:"activity_id,omitempty"`
	RequestType      string     `json:"request_type"`
	Quantity         int32      `json:"quantity"`
	Purpose          string     `json:"purpose"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	DurationDays     *int       `json:"duration_days,omitempty"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	RequestedBy      uuid.UUID  `json:"requested_by"`
	ApprovedBy       *uuid.UUID `json:"approved_by,omitempty"`
	FulfilledBy      *uuid.UUID `json:"fulfilled_by,omitempty"`
	RejectionReason  *string    `json:"rejection_reason,omitempty"`
	ReviewNotes      *string    `json:"review_notes,omitempty"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty"`
	ReturnCondition  *string    `json:"return_condition,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Derived, computed per read for pending requests only.
	HasConflict     bool             `json:"has_conflict"`
	ConflictDetails *ConflictDetails `json:"conflict_details,omitempty"`
	QueuePosition   *int             `json:"queue_position,omitempty"`
}

type ConflictDetails struct {
	RequestID   uuid.UUID `json:"request_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// ListFilters is the typed, validated replacement for an open-ended filter
// bag: every field the list operation understands is named here.
type ListFilters struct {
	Status          *request.Status
	RequestType     *string
	ProgramModuleID *uuid.UUID
	ResourceID      *uuid.UUID
	RequestedBy     *uuid.UUID
	Limit           int32
	Offset          int32
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var ErrInvalidFilter = errs.New("invalid list filter")

func (f *ListFilters) Validate() error {
	if f.Status != nil && !f.Status.IsValid() {
		return ErrInvalidFilter
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		return ErrInvalidFilter
	}
	return nil
}

type RequestQueries interface {
	List(ctx context.Context, filters ListFilters) ([]*RequestView, error)
	GetByID(ctx context.Context, id uuid.UUID) (*RequestView, error)
	// GetByIDSystem skips the expiry sweep; used for read-after-write inside
	// command flows.
	GetByIDSystem(ctx context.Context, id uuid.UUID) (*RequestView, error)
}

type RequestViewRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RequestView, error)
	List(ctx context.Context, filters ListFilters) ([]*RequestView, error)
	// FirstOverlappingActive returns the earliest-starting active booking
	// overlapping [start, end] on the resource, or nil.
	FirstOverlappingActive(ctx context.Context, resourceID uuid.UUID, start, end time.Time, excluding uuid.UUID) (*ConflictDetails, error)
	// CountEarlierPending counts pending competitors created strictly earlier.
	CountEarlierPending(ctx context.Context, resourceID uuid.UUID, start, end time.Time, createdAt time.Time, excluding uuid.UUID) (int, error)
}

// Sweeper is the lazy expiry pass run before reads. Declared here so the
// query side does not depend on the command package.
type Sweeper interface {
	Run(ctx context.Context) error
}

type requestQueriesImpl struct {
	repo    RequestViewRepo
	sweeper Sweeper
}

func NewRequestQueries(repo RequestViewRepo, sweeper Sweeper) RequestQueries {
	return &requestQueriesImpl{repo: repo, sweeper: sweeper}
}

func (q *requestQueriesImpl) List(ctx context.Context, filters ListFilters) ([]*RequestView, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	q.sweep(ctx)

	views, err := q.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	for _, v := range views {
		if err := q.annotate(ctx, v); err != nil {
			return nil, err
		}
	}
	return views, nil
}

func (q *requestQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*RequestView, error) {
	q.sweep(ctx)

	view, err := q.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := q.annotate(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (q *requestQueriesImpl) GetByIDSystem(ctx context.Context, id uuid.UUID) (*RequestView, error) {
	view, err := q.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := q.annotate(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

// sweep failures never fail the read; the caller just sees possibly-stale
// lifecycle state until the next write or sweep succeeds.
func (q *requestQueriesImpl) sweep(ctx context.Context) {
	if err := q.sweeper.Run(ctx); err != nil {
		slog.Warn("expiry sweep failed, serving read with possibly-stale state", "error", err)
	}
}

// annotate computes the derived conflict flag and queue position. Only
// pending requests get the expensive annotation; settled rows skip it.
func (q *requestQueriesImpl) annotate(ctx context.Context, v *RequestView) error {
	if v.Status != request.StatusPending.String() {
		return nil
	}
	if v.ResourceID == nil || v.StartDate == nil || v.EndDate == nil {
		return nil
	}

	conflict, err := q.repo.FirstOverlappingActive(ctx, *v.ResourceID, *v.StartDate, *v.EndDate, v.ID)
	if err != nil {
		return err
	}
	if conflict != nil {
		v.HasConflict = true
		v.ConflictDetails = conflict
	}

	earlier, err := q.repo.CountEarlierPending(ctx, *v.ResourceID, *v.StartDate, *v.EndDate, v.CreatedAt, v.ID)
	if err != nil {
		return err
	}
	pos := earlier + 1
	v.QueuePosition = &pos
	return nil
}
