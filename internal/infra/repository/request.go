package repository

import (
	"context"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/infra/db"
	"reservation-engine/internal/pkg/pgconv"
	"reservation-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const requestColumns = `
	id, resource_id, resource_type_id, program_module_id, activity_id,
	request_type, quantity, purpose, start_date, end_date, priority, status,
	requested_by, approved_by, fulfilled_by, rejection_reason, review_notes,
	actual_return_date, return_condition, created_at, updated_at, deleted_at`

type RequestRepository struct{}

func NewRequestRepository() shared.RequestRepository {
	return &RequestRepository{}
}

func (r *RequestRepository) Create(ctx context.Context, dbtx db.DBTX, req *request.ReservationRequest) (uuid.UUID, error) {
	const stmt = `
INSERT INTO reservation_requests (
	id, resource_id, resource_type_id, program_module_id, activity_id,
	request_type, quantity, purpose, start_date, end_date, priority, status,
	requested_by, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING id`

	var start, end pgtype.Date
	if s := req.Schedule(); s != nil {
		start = pgconv.DateToPgtype(s.Start())
		end = pgconv.DateToPgtype(s.End())
	}

	var id uuid.UUID
	err := dbtx.QueryRow(ctx, stmt,
		req.ID(),
		pgconv.UUIDPtrToPgtype(req.ResourceID()),
		pgconv.UUIDPtrToPgtype(req.ResourceTypeID()),
		pgconv.UUIDPtrToPgtype(req.ProgramModuleID()),
		pgconv.UUIDPtrToPgtype(req.ActivityID()),
		req.RequestType(),
		req.Quantity(),
		req.Purpose(),
		start,
		end,
		req.Priority().String(),
		req.Status().String(),
		req.RequestedBy(),
		req.CreatedAt(),
		req.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create reservation request", err)
	}
	return id, nil
}

func (r *RequestRepository) Update(ctx context.Context, dbtx db.DBTX, req *request.ReservationRequest) error {
	const stmt = `
UPDATE reservation_requests SET
	resource_id = $2,
	purpose = $3,
	start_date = $4,
	end_date = $5,
	status = $6,
	approved_by = $7,
	fulfilled_by = $8,
	rejection_reason = $9,
	review_notes = $10,
	actual_return_date = $11,
	return_condition = $12,
	updated_at = $13,
	deleted_at = $14
WHERE id = $1`

	var start, end pgtype.Date
	if s := req.Schedule(); s != nil {
		start = pgconv.DateToPgtype(s.Start())
		end = pgconv.DateToPgtype(s.End())
	}

	tag, err := dbtx.Exec(ctx, stmt,
		req.ID(),
		pgconv.UUIDPtrToPgtype(req.ResourceID()),
		req.Purpose(),
		start,
		end,
		req.Status().String(),
		pgconv.UUIDPtrToPgtype(req.ApprovedBy()),
		pgconv.UUIDPtrToPgtype(req.FulfilledBy()),
		pgconv.StringPtrToPgtype(req.RejectionReason()),
		pgconv.StringPtrToPgtype(req.ReviewNotes()),
		pgconv.DatePtrToPgtype(req.ActualReturnDate()),
		pgconv.StringPtrToPgtype(req.ReturnCondition()),
		req.UpdatedAt(),
		pgconv.TimePtrToPgtype(req.DeletedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation request", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("reservation request not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*request.ReservationRequest, error) {
	query := `SELECT` + requestColumns + ` FROM reservation_requests WHERE id = $1 AND deleted_at IS NULL`
	return r.queryOne(ctx, dbtx, query, id)
}

func (r *RequestRepository) FindByIDForUpdate(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*request.ReservationRequest, error) {
	query := `SELECT` + requestColumns + ` FROM reservation_requests WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	return r.queryOne(ctx, dbtx, query, id)
}

func (r *RequestRepository) FirstOverlapping(
	ctx context.Context,
	dbtx db.DBTX,
	resourceID uuid.UUID,
	start, end time.Time,
	excluding uuid.UUID,
	statuses []request.Status,
) (*shared.ConflictSnapshot, error) {
	// Inclusive overlap: s1 <= e2 AND e1 >= s2. A booking ending on day N
	// conflicts with one starting on day N.
	const query = `
SELECT id, requested_by, status, start_date, end_date
FROM reservation_requests
WHERE resource_id = $1
  AND deleted_at IS NULL
  AND id <> $2
  AND status = ANY($3)
  AND start_date <= $5
  AND end_date >= $4
ORDER BY start_date ASC
LIMIT 1`

	var (
		snap       shared.ConflictSnapshot
		status     string
		startDate  pgtype.Date
		endDate    pgtype.Date
	)
	err := dbtx.QueryRow(ctx, query,
		resourceID, excluding, statusStrings(statuses),
		pgconv.DateToPgtype(start), pgconv.DateToPgtype(end),
	).Scan(&snap.RequestID, &snap.RequestedBy, &status, &startDate, &endDate)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to query overlapping bookings", err)
	}
	snap.Status = request.Status(status)
	snap.StartDate = pgconv.DateFromPgtype(startDate)
	snap.EndDate = pgconv.DateFromPgtype(endDate)
	return &snap, nil
}

func (r *RequestRepository) CountEarlierPending(
	ctx context.Context,
	dbtx db.DBTX,
	resourceID uuid.UUID,
	start, end time.Time,
	createdAt time.Time,
	excluding uuid.UUID,
) (int, error) {
	const query = `
SELECT COUNT(*)
FROM reservation_requests
WHERE resource_id = $1
  AND deleted_at IS NULL
  AND id <> $2
  AND status = 'pending'
  AND start_date <= $4
  AND end_date >= $3
  AND created_at < $5`

	var count int
	err := dbtx.QueryRow(ctx, query,
		resourceID, excluding,
		pgconv.DateToPgtype(start), pgconv.DateToPgtype(end),
		createdAt,
	).Scan(&count)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to count earlier pending requests", err)
	}
	return count, nil
}

func (r *RequestRepository) FindExpiredHolding(ctx context.Context, dbtx db.DBTX, today time.Time) ([]*request.ReservationRequest, error) {
	query := `
SELECT` + requestColumns + `
FROM reservation_requests
WHERE deleted_at IS NULL
  AND status = ANY($1)
  AND end_date < $2
ORDER BY end_date ASC
FOR UPDATE`

	return r.queryMany(ctx, dbtx, query, statusStrings(request.HoldingStatuses), pgconv.DateToPgtype(today))
}

func (r *RequestRepository) FindStartedAllocated(ctx context.Context, dbtx db.DBTX, today time.Time) ([]*request.ReservationRequest, error) {
	query := `
SELECT` + requestColumns + `
FROM reservation_requests
WHERE deleted_at IS NULL
  AND status = 'allocated'
  AND start_date <= $1
  AND end_date >= $1
ORDER BY start_date ASC
FOR UPDATE`

	return r.queryMany(ctx, dbtx, query, pgconv.DateToPgtype(today))
}

func (r *RequestRepository) HasOtherHolding(ctx context.Context, dbtx db.DBTX, resourceID uuid.UUID, excluding uuid.UUID) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM reservation_requests
	WHERE resource_id = $1
	  AND deleted_at IS NULL
	  AND id <> $2
	  AND status = ANY($3)
)`

	var held bool
	err := dbtx.QueryRow(ctx, query, resourceID, excluding, statusStrings(request.HoldingStatuses)).Scan(&held)
	if err != nil {
		return false, infra.WrapRepoErr("failed to check holding bookings", err)
	}
	return held, nil
}

func (r *RequestRepository) queryOne(ctx context.Context, dbtx db.DBTX, query string, args ...any) (*request.ReservationRequest, error) {
	req, err := scanRequest(dbtx.QueryRow(ctx, query, args...))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation request not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation request", err)
	}
	return req, nil
}

func (r *RequestRepository) queryMany(ctx context.Context, dbtx db.DBTX, query string, args ...any) ([]*request.ReservationRequest, error) {
	rows, err := dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query reservation requests", err)
	}
	defer rows.Close()

	var result []*request.ReservationRequest
	for rows.Next() {
		req, scanErr := scanRequest(rows)
		if scanErr != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation request", scanErr)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservation requests", err)
	}
	return result, nil
}

func scanRequest(row pgx.Row) (*request.ReservationRequest, error) {
	var (
		id                                                      uuid.UUID
		resourceID, resourceTypeID, programModuleID, activityID pgtype.UUID
		requestType, purpose, priority, status                  string
		quantity                                                int32
		startDate, endDate, actualReturnDate                    pgtype.Date
		requestedBy                                             uuid.UUID
		approvedBy, fulfilledBy                                 pgtype.UUID
		rejectionReason, reviewNotes, returnCondition           pgtype.Text
		createdAt, updatedAt                                    time.Time
		deletedAt                                               pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &resourceID, &resourceTypeID, &programModuleID, &activityID,
		&requestType, &quantity, &purpose, &startDate, &endDate, &priority, &status,
		&requestedBy, &approvedBy, &fulfilledBy, &rejectionReason, &reviewNotes,
		&actualReturnDate, &returnCondition, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	var schedule *request.Schedule
	if startDate.Valid && endDate.Valid {
		s, schedErr := request.NewSchedule(startDate.Time, endDate.Time)
		if schedErr != nil {
			return nil, schedErr
		}
		schedule = &s
	}

	return request.ReconstructReservationRequest(
		id,
		pgconv.UUIDPtrFromPgtype(resourceID),
		pgconv.UUIDPtrFromPgtype(resourceTypeID),
		pgconv.UUIDPtrFromPgtype(programModuleID),
		pgconv.UUIDPtrFromPgtype(activityID),
		requestType,
		quantity,
		purpose,
		schedule,
		request.Priority(priority),
		request.Status(status),
		requestedBy,
		pgconv.UUIDPtrFromPgtype(approvedBy),
		pgconv.UUIDPtrFromPgtype(fulfilledBy),
		pgconv.StringPtrFromPgtype(rejectionReason),
		pgconv.StringPtrFromPgtype(reviewNotes),
		pgconv.DatePtrFromPgtype(actualReturnDate),
		pgconv.StringPtrFromPgtype(returnCondition),
		createdAt,
		updatedAt,
		pgconv.TimePtrFromPgtype(deletedAt),
	), nil
}

func statusStrings(statuses []request.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}
