package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// OutboxStatus is an ops-facing view of the latest outbox row for a booking.
type OutboxStatus struct {
	RecordId         int                 `json:"record_id"`
	ReferenceType    OutboxReferenceType `json:"reference_type"`
	ReferenceId      int                 `json:"reference_id"`
	PublishStatus    string              `json:"publish_status"`
	PublishAttempts  int                 `json:"publish_attempts"`
	NextAttemptAt    *time.Time          `json:"next_attempt_at"`
	LastPublishError *string             `json:"last_publish_error"`
	CorrelationId    string              `json:"correlation_id"`
	CreatedAt        time.Time           `json:"created_at"`
	PublishedAt      *time.Time          `json:"published_at"`
}

// GetOutboxStatus returns gorm.ErrRecordNotFound when the reference has no outbox row.
func GetOutboxStatus(ctx context.Context, db *gorm.DB, referenceType OutboxReferenceType, referenceId int) (*OutboxStatus, error) {
	var rec OutboxRecord
	if err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("outbox_record_id DESC").
		First(&rec).Error; err != nil {
		return nil, err
	}

	return &OutboxStatus{
		RecordId:         rec.ID,
		ReferenceType:    rec.ReferenceType,
		ReferenceId:      rec.ReferenceId,
		PublishStatus:    rec.PublishStatus,
		PublishAttempts:  rec.PublishAttempts,
		NextAttemptAt:    rec.NextAttemptAt,
		LastPublishError: rec.LastPublishError,
		CorrelationId:    rec.CorrelationId,
		CreatedAt:        rec.CreatedAt,
		PublishedAt:      rec.PublishedAt,
	}, nil
}
