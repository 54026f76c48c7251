package shared

import (
	"context"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/domain/resource"
	"reservation-engine/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error
}

type Tx interface {
	Requests() RequestRepository
	Resources() ResourceRepository
	Notifications() NotificationRepository
	DB() db.DBTX
}

// ConflictSnapshot identifies the booking that blocks a candidate window.
type ConflictSnapshot struct {
	RequestID   uuid.UUID
	RequestedBy uuid.UUID
	Status      request.Status
	StartDate   time.Time
	EndDate     time.Time
}

type RequestRepository interface {
	Create(ctx context.Context, db db.DBTX, req *request.ReservationRequest) (uuid.UUID, error)
	Update(ctx context.Context, db db.DBTX, req *request.ReservationRequest) error
	FindByID(ctx context.Context, db db.DBTX, id uuid.UUID) (*request.ReservationRequest, error)
	// FindByIDForUpdate locks the request row for the remainder of the
	// transaction so concurrent transitions serialize.
	FindByIDForUpdate(ctx context.Context, db db.DBTX, id uuid.UUID) (*request.ReservationRequest, error)
	// FirstOverlapping returns the earliest-starting non-deleted request in
	// one of the given statuses whose window overlaps [start, end] on the
	// resource, excluding the given request id.
	FirstOverlapping(ctx context.Context, db db.DBTX, resourceID uuid.UUID, start, end time.Time, excluding uuid.UUID, statuses []request.Status) (*ConflictSnapshot, error)
	// CountEarlierPending counts pending requests competing for overlapping
	// dates on the resource that were created strictly earlier.
	CountEarlierPending(ctx context.Context, db db.DBTX, resourceID uuid.UUID, start, end time.Time, createdAt time.Time, excluding uuid.UUID) (int, error)
	// FindExpiredHolding returns allocated/in_use requests whose end date has
	// passed as of today.
	FindExpiredHolding(ctx context.Context, db db.DBTX, today time.Time) ([]*request.ReservationRequest, error)
	// FindStartedAllocated returns allocated requests whose window covers today.
	FindStartedAllocated(ctx context.Context, db db.DBTX, today time.Time) ([]*request.ReservationRequest, error)
	// HasOtherHolding reports whether any other allocated/in_use request still
	// claims the resource.
	HasOtherHolding(ctx context.Context, db db.DBTX, resourceID uuid.UUID, excluding uuid.UUID) (bool, error)
}

type ResourceRepository interface {
	FindByID(ctx context.Context, db db.DBTX, id uuid.UUID) (*resource.Resource, error)
	// FindByIDForUpdate takes a row-level lock on the resource; every write to
	// the availability flag happens under this lock.
	FindByIDForUpdate(ctx context.Context, db db.DBTX, id uuid.UUID) (*resource.Resource, error)
	SetAvailability(ctx context.Context, db db.DBTX, res *resource.Resource) error
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, db db.DBTX, kind, topic string, payload []byte, runAt time.Time) error
}
