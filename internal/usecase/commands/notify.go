package commands

import (
	"context"
	"encoding/json"

	"reservation-engine/internal/domain/request"
	"reservation-engine/internal/usecase/shared"
)

const notificationKind = "email"

// Notification jobs are written in the same transaction as the state change,
// so a delivered event always corresponds to a committed transition.
func (c *requestCommandsImpl) notifyStatus(ctx context.Context, tx shared.Tx, req *request.ReservationRequest, topic string) error {
	payload, err := json.Marshal(map[string]any{
		"request_id":   req.ID(),
		"recipient_id": req.RequestedBy(),
		"status":       req.Status().String(),
	})
	if err != nil {
		return err
	}
	return tx.Notifications().CreateJob(ctx, tx.DB(), notificationKind, topic, payload, c.clock.Now())
}

func (c *requestCommandsImpl) notifyQueued(ctx context.Context, tx shared.Tx, req *request.ReservationRequest, result *CreateRequestResult) error {
	body := map[string]any{
		"request_id":   req.ID(),
		"recipient_id": req.RequestedBy(),
		"status":       req.Status().String(),
	}
	if result.QueuePosition != nil {
		body["queue_position"] = *result.QueuePosition
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if err := tx.Notifications().CreateJob(ctx, tx.DB(), notificationKind, "request_queued", payload, c.clock.Now()); err != nil {
		return err
	}

	if !result.HasConflict {
		return nil
	}
	conflictPayload, err := json.Marshal(map[string]any{
		"request_id":          req.ID(),
		"recipient_id":        req.RequestedBy(),
		"blocking_request_id": result.ConflictDetails.RequestID,
		"blocking_start_date": result.ConflictDetails.StartDate,
		"blocking_end_date":   result.ConflictDetails.EndDate,
	})
	if err != nil {
		return err
	}
	return tx.Notifications().CreateJob(ctx, tx.DB(), notificationKind, "request_conflict_detected", conflictPayload, c.clock.Now())
}
