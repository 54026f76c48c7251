package repository

import (
	"context"

	"reservation-engine/internal/domain/resource"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/infra/db"
	"reservation-engine/internal/pkg/pgconv"
	"reservation-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ResourceRepository is the single module boundary through which the engine
// touches the catalog's availability flag. Catalog metadata is never written
// here.
type ResourceRepository struct{}

func NewResourceRepository() shared.ResourceRepository {
	return &ResourceRepository{}
}

func (r *ResourceRepository) FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*resource.Resource, error) {
	const query = `
SELECT id, availability_status, assigned_to_program, assignment_date
FROM resources
WHERE id = $1`
	return r.queryOne(ctx, dbtx, query, id)
}

// FindByIDForUpdate locks the resource row. Allocation's conflict check and
// availability write both run under this lock, closing the check-then-act
// race between concurrent allocations.
func (r *ResourceRepository) FindByIDForUpdate(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*resource.Resource, error) {
	const query = `
SELECT id, availability_status, assigned_to_program, assignment_date
FROM resources
WHERE id = $1
FOR UPDATE`
	return r.queryOne(ctx, dbtx, query, id)
}

func (r *ResourceRepository) SetAvailability(ctx context.Context, dbtx db.DBTX, res *resource.Resource) error {
	const stmt = `
UPDATE resources SET
	availability_status = $2,
	assigned_to_program = $3,
	assignment_date = $4,
	updated_at = NOW()
WHERE id = $1`

	tag, err := dbtx.Exec(ctx, stmt,
		res.ID(),
		res.Availability().String(),
		pgconv.UUIDPtrToPgtype(res.AssignedToProgram()),
		pgconv.DatePtrToPgtype(res.AssignmentDate()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to set resource availability", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("resource not found", pgx.ErrNoRows, infra.KindNotFound)
	}
	return nil
}

func (r *ResourceRepository) queryOne(ctx context.Context, dbtx db.DBTX, query string, id uuid.UUID) (*resource.Resource, error) {
	var (
		resID             uuid.UUID
		availability      string
		assignedToProgram pgtype.UUID
		assignmentDate    pgtype.Date
	)
	err := dbtx.QueryRow(ctx, query, id).Scan(&resID, &availability, &assignedToProgram, &assignmentDate)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("resource not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find resource", err)
	}

	return resource.ReconstructResource(
		resID,
		resource.AvailabilityStatus(availability),
		pgconv.UUIDPtrFromPgtype(assignedToProgram),
		pgconv.DatePtrFromPgtype(assignmentDate),
	), nil
}
