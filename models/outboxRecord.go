package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/refinehaus/clinic_backend/config"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// OutboxRecord is written in the same transaction as the booking; publishing happens after commit
// via workflow.OutboxDispatcher.
type OutboxRecord struct {
	ID                  int                 `gorm:"column:outbox_record_id;primaryKey;index:idx_outbox_dispatch,priority:3" json:"outbox_record_id"`
	TransactionDateTime time.Time           `gorm:"index;not null" json:"transaction_date_time"`
	ReferenceId         int                 `gorm:"index:idx_outbox_reference,priority:2;not null" json:"reference_id"`
	ReferenceType       OutboxReferenceType `gorm:"size:20;index:idx_outbox_reference,priority:1;not null" json:"reference_type"`
	Action              OutboxAction        `gorm:"size:1;not null" json:"action"`
	Payload             []byte              `json:"payload"`
	PublishStatus       string              `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt         *time.Time          `gorm:"index" json:"published_at"`
	PubSubMessageId     *string             `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts     int                 `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt       *time.Time          `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt            *time.Time          `gorm:"index" json:"locked_at"`
	LockedBy            *string             `gorm:"size:100" json:"locked_by"`
	LastPublishError    *string             `gorm:"type:text" json:"last_publish_error"`
	CorrelationId       string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt           time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxRecord) TableName() string { return "outbox_record" }

func ConvertToPubSubMessage(record OutboxRecord) config.PubSubMessage {
	return config.PubSubMessage{
		ID:                  record.ID,
		TransactionDateTime: record.TransactionDateTime,
		ReferenceId:         record.ReferenceId,
		ReferenceType:       string(record.ReferenceType),
		Action:              string(record.Action),
		Payload:             json.RawMessage(record.Payload),
		CorrelationId:       record.CorrelationId,
	}
}

// ReplayOutbox resets a SENT, FAILED or DEAD row to PENDING so the dispatcher picks it up again.
func ReplayOutbox(ctx context.Context, db *gorm.DB, recordId int) (*OutboxRecord, error) {
	res := db.WithContext(ctx).
		Model(&OutboxRecord{}).
		Where("outbox_record_id = ? AND publish_status <> ?", recordId, OutboxPublishStatusProcessing).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    nil,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var record OutboxRecord
	if err := db.WithContext(ctx).First(&record, "outbox_record_id = ?", recordId).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
