package repository

import (
	"context"
	"time"

	"reservation-engine/internal/infra"
	"reservation-engine/internal/infra/db"
	"reservation-engine/internal/usecase/shared"
)

// NotificationRepository persists outbound events as jobs; a worker outside
// this engine owns delivery.
type NotificationRepository struct{}

func NewNotificationRepository() shared.NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) CreateJob(ctx context.Context, dbtx db.DBTX, kind, topic string, payload []byte, runAt time.Time) error {
	const stmt = `
INSERT INTO notification_jobs (kind, topic, payload, run_at, status)
VALUES ($1, $2, $3, $4, 'pending')`

	if _, err := dbtx.Exec(ctx, stmt, kind, topic, payload, runAt); err != nil {
		return infra.WrapRepoErr("failed to create notification job", err)
	}
	return nil
}
