package commands

import (
	"errors"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/domain/resource"
	"reservation-engine/internal/infra"
	"reservation-engine/internal/pkg/errs"
)

func mapRequestLookupErr(err error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return ErrRequestNotFound
	}
	return errs.Mark(err, ErrDatabaseOperationFailed)
}

func mapResourceLookupErr(err error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return ErrResourceNotFound
	}
	return errs.Mark(err, ErrDatabaseOperationFailed)
}

func mapDomainErr(err error) error {
	switch {
	case errors.Is(err, request.ErrInvalidTransition),
		errors.Is(err, request.ErrRequestDeleted):
		return errs.Mark(err, ErrInvalidStateTransition)
	case errors.Is(err, request.ErrScheduleRequired),
		errors.Is(err, request.ErrResourceRequired):
		return errs.Mark(err, ErrScheduleRequired)
	case errors.Is(err, resource.ErrUnderMaintenance):
		return errs.Mark(err, ErrResourceUnavailable)
	default:
		return errs.Mark(err, ErrValidation)
	}
}
