package readstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/infra/db"
	"reservation-engine/internal/pkg/pgconv"
	"reservation-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const requestViewColumns = `
	id, resource_id, resource_type_id, program_module_id, activity_id,
	request_type, quantity, purpose, start_date, end_date, priority, status,
	requested_by, approved_by, fulfilled_by, rejection_reason, review_notes,
	actual_return_date, return_condition, created_at, updated_at`

type RequestReadStore struct {
	db db.DBTX
}

func NewRequestReadStore(dbtx db.DBTX) queries.RequestViewRepo {
	return &RequestReadStore{db: dbtx}
}

func (r *RequestReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.RequestView, error) {
	query := `SELECT` + requestViewColumns + ` FROM reservation_requests WHERE id = $1 AND deleted_at IS NULL`

	view, err := scanRequestView(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation request not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation request view", err)
	}
	return view, nil
}

func (r *RequestReadStore) List(ctx context.Context, filters queries.ListFilters) ([]*queries.RequestView, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}

	addFilter := func(column string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filters.Status != nil {
		addFilter("status", filters.Status.String())
	}
	if filters.RequestType != nil {
		addFilter("request_type", *filters.RequestType)
	}
	if filters.ProgramModuleID != nil {
		addFilter("program_module_id", *filters.ProgramModuleID)
	}
	if filters.ResourceID != nil {
		addFilter("resource_id", *filters.ResourceID)
	}
	if filters.RequestedBy != nil {
		addFilter("requested_by", *filters.RequestedBy)
	}

	args = append(args, filters.Limit, filters.Offset)
	query := fmt.Sprintf(
		`SELECT%s FROM reservation_requests WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		requestViewColumns, strings.Join(where, " AND "), len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservation requests", err)
	}
	defer rows.Close()

	var result []*queries.RequestView
	for rows.Next() {
		view, scanErr := scanRequestView(rows)
		if scanErr != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation request view", scanErr)
		}
		result = append(result, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservation request views", err)
	}
	return result, nil
}

func (r *RequestReadStore) FirstOverlappingActive(
	ctx context.Context,
	resourceID uuid.UUID,
	start, end time.Time,
	excluding uuid.UUID,
) (*queries.ConflictDetails, error) {
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

	statuses := make([]string, len(request.ActiveStatuses))
	for i, s := range request.ActiveStatuses {
		statuses[i] = s.String()
	}

	var (
		details            queries.ConflictDetails
		startDate, endDate pgtype.Date
	)
	err := r.db.QueryRow(ctx, query,
		resourceID, excluding, statuses,
		pgconv.DateToPgtype(start), pgconv.DateToPgtype(end),
	).Scan(&details.RequestID, &details.RequestedBy, &details.Status, &startDate, &endDate)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, nil
		}
		return nil, infra.WrapRepoErr("failed to query overlapping active bookings", err)
	}
	details.StartDate = pgconv.DateFromPgtype(startDate)
	details.EndDate = pgconv.DateFromPgtype(endDate)
	return &details, nil
}

func (r *RequestReadStore) CountEarlierPending(
	ctx context.Context,
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
	err := r.db.QueryRow(ctx, query,
		resourceID, excluding,
		pgconv.DateToPgtype(start), pgconv.DateToPgtype(end),
		createdAt,
	).Scan(&count)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to count earlier pending requests", err)
	}
	return count, nil
}

func scanRequestView(row pgx.Row) (*queries.RequestView, error) {
	var (
		v                                                       queries.RequestView
		resourceID, resourceTypeID, programModuleID, activityID pgtype.UUID
		approvedBy, fulfilledBy                                 pgtype.UUID
		startDate, endDate, actualReturnDate                    pgtype.Date
		rejectionReason, reviewNotes, returnCondition           pgtype.Text
	)

	err := row.Scan(
		&v.ID, &resourceID, &resourceTypeID, &programModuleID, &activityID,
		&v.RequestType, &v.Quantity, &v.Purpose, &startDate, &endDate, &v.Priority, &v.Status,
		&v.RequestedBy, &approvedBy, &fulfilledBy, &rejectionReason, &reviewNotes,
		&actualReturnDate, &returnCondition, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.ResourceID = pgconv.UUIDPtrFromPgtype(resourceID)
	v.ResourceTypeID = pgconv.UUIDPtrFromPgtype(resourceTypeID)
	v.ProgramModuleID = pgconv.UUIDPtrFromPgtype(programModuleID)
	v.ActivityID = pgconv.UUIDPtrFromPgtype(activityID)
	v.ApprovedBy = pgconv.UUIDPtrFromPgtype(approvedBy)
	v.FulfilledBy = pgconv.UUIDPtrFromPgtype(fulfilledBy)
	v.RejectionReason = pgconv.StringPtrFromPgtype(rejectionReason)
	v.ReviewNotes = pgconv.StringPtrFromPgtype(reviewNotes)
	v.ReturnCondition = pgconv.StringPtrFromPgtype(returnCondition)
	v.StartDate = pgconv.DatePtrFromPgtype(startDate)
	v.EndDate = pgconv.DatePtrFromPgtype(endDate)
	v.ActualReturnDate = pgconv.DatePtrFromPgtype(actualReturnDate)

	if v.StartDate != nil && v.EndDate != nil {
		days := int(v.EndDate.Sub(*v.StartDate).Hours() / 24)
		v.DurationDays = &days
	}
	return &v, nil
}
